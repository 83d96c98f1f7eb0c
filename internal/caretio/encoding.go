// Package caretio implements the encoding-polymorphic file framework used
// by every CARET file type: a textual key/value header, a body codec, and
// read/write dispatch over the on-disk encodings a file type supports.
package caretio

import (
	"fmt"
	"strings"
)

// Encoding identifies an on-disk representation of a file body.
type Encoding int

const (
	EncodingASCII Encoding = iota
	EncodingBinary
	EncodingXML
	EncodingXMLBase64
	EncodingXMLGzipBase64
	EncodingOther
	EncodingCSV

	numEncodings = int(EncodingCSV) + 1
)

// encodingTags are the literal values written into the header's
// "encoding" tag. They are part of the on-disk format and must not change.
var encodingTags = [numEncodings]string{
	"ASCII",
	"BINARY",
	"XML",
	"XML_BASE64",
	"XML_GZIP_BASE64",
	"OTHER",
	"COMMA_SEPARATED_VALUE_FILE",
}

func (e Encoding) String() string {
	if e < 0 || int(e) >= numEncodings {
		return fmt.Sprintf("Encoding(%d)", int(e))
	}
	return encodingTags[e]
}

// IsXMLFamily reports whether the encoding is one of the XML forms.
func (e Encoding) IsXMLFamily() bool {
	return e == EncodingXML || e == EncodingXMLBase64 || e == EncodingXMLGzipBase64
}

// ParseEncoding maps a header tag value or a configuration name onto an
// Encoding. Both the on-disk spelling ("XML_GZIP_BASE64") and the config
// spelling ("xml_gzip_base64", "csv") are accepted.
func ParseEncoding(s string) (Encoding, error) {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	for i, tag := range encodingTags {
		if normalized == tag {
			return Encoding(i), nil
		}
	}
	if normalized == "CSV" {
		return EncodingCSV, nil
	}
	return 0, fmt.Errorf("unrecognized encoding %q", s)
}

// Access describes what a file type can do with a given encoding.
type Access int

const (
	AccessNone Access = iota
	AccessReadOnly
	AccessWriteOnly
	AccessReadWrite
)

func (a Access) CanRead() bool  { return a == AccessReadOnly || a == AccessReadWrite }
func (a Access) CanWrite() bool { return a == AccessWriteOnly || a == AccessReadWrite }
