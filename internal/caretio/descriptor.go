package caretio

// Descriptor is the value-type record describing one file type: its
// human name, canonical extension, whether it carries the textual
// header, its XML root tag, and which encodings it can read and write.
type Descriptor struct {
	// Name is the descriptive name shown to users ("Coordinate File").
	Name string

	// Extension is the canonical extension including the leading dot.
	Extension string

	// HasHeader reports whether the type carries the textual header block.
	HasHeader bool

	// XMLRoot is the expected document root tag for XML encodings.
	XMLRoot string

	// DefaultWriteEncoding is the starting point for write-encoding
	// selection; the preferred-encoding list may override it.
	DefaultWriteEncoding Encoding

	access [numEncodings]Access
}

// SetAccess records the capability for one encoding.
func (d *Descriptor) SetAccess(e Encoding, a Access) {
	if e >= 0 && int(e) < numEncodings {
		d.access[e] = a
	}
}

// Access returns the capability for one encoding.
func (d *Descriptor) Access(e Encoding) Access {
	if e < 0 || int(e) >= numEncodings {
		return AccessNone
	}
	return d.access[e]
}

func (d *Descriptor) CanRead(e Encoding) bool  { return d.Access(e).CanRead() }
func (d *Descriptor) CanWrite(e Encoding) bool { return d.Access(e).CanWrite() }

// OtherOnly reports whether the type is stored in a foreign format the
// framework does not wrap (no abstract header, no encoding tag).
func (d *Descriptor) OtherOnly() bool {
	return d.access[EncodingOther] != AccessNone && !d.HasHeader
}
