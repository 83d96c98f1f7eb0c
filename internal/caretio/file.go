package caretio

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/caretsuite/sumsync/internal/common"
)

// Options carries the process-wide file framework settings, injected
// rather than read from globals so tests and pipelines can vary them.
type Options struct {
	// OverwriteAllowed permits Write to replace an existing file.
	OverwriteAllowed bool

	// PreferredWriteEncodings is walked in order on every write; the
	// first encoding the file's type can write replaces the type's
	// default (and any encoding observed at read time).
	PreferredWriteEncodings []Encoding

	// PermissionsMask, when nonzero, is chmod-applied after a
	// successful write.
	PermissionsMask fs.FileMode
}

// BodyCodec is the contract between the framework and a concrete file
// format: parse the payload on read, emit it on write. The framework
// owns the header; the codec never sees it.
type BodyCodec interface {
	// ReadBody parses the payload for the given encoding. For headered,
	// CSV and other formats the reader is positioned at the first
	// payload byte; for the XML family it exposes the whole document.
	// When metadataOnly is set the codec must consume nothing and parse
	// nothing.
	ReadBody(enc Encoding, r io.Reader, metadataOnly bool) error

	// WriteBody emits the payload for the given encoding. For the XML
	// family the writer is positioned inside the document root, after
	// the FileHeader element.
	WriteBody(enc Encoding, w io.Writer) error
}

// FileError is the single failure type raised by the framework. It
// carries the offending path and wraps the underlying cause.
type FileError struct {
	Path string
	Op   string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// File binds a Descriptor and a BodyCodec into a readable/writable
// unit: the framework negotiates the encoding and handles the header;
// the codec handles the payload.
type File struct {
	desc  *Descriptor
	codec BodyCodec
	opts  Options

	header        Header
	path          string
	readEncoding  Encoding
	writeEncoding Encoding
	modified      uint32
}

// NewFile builds a File for the given type. The write encoding starts
// at the descriptor's default.
func NewFile(desc *Descriptor, codec BodyCodec, opts Options) *File {
	return &File{
		desc:          desc,
		codec:         codec,
		opts:          opts,
		writeEncoding: desc.DefaultWriteEncoding,
	}
}

// Descriptor returns the file's type record.
func (f *File) Descriptor() *Descriptor { return f.desc }

// Codec returns the body codec for callers that need the parsed payload.
func (f *File) Codec() BodyCodec { return f.codec }

// Header returns the metadata header. Mutations through the returned
// pointer do not bump the modified counter; use SetHeaderTag for that.
func (f *File) Header() *Header { return &f.header }

// Path returns the path last read from or written to.
func (f *File) Path() string { return f.path }

// ReadEncoding returns the encoding observed on disk by the last Read.
func (f *File) ReadEncoding() Encoding { return f.readEncoding }

// WriteEncoding returns the encoding the next Write would negotiate.
func (f *File) WriteEncoding() Encoding { return f.selectWriteEncoding() }

// SetHeaderTag stores a header entry and marks the file modified.
func (f *File) SetHeaderTag(key, value string) {
	f.header.Set(key, value)
	f.SetModified()
}

// SetComment stores the human comment and marks the file modified.
func (f *File) SetComment(comment string) {
	f.header.SetComment(comment)
	f.SetModified()
}

// Modified returns the change counter. It wraps silently.
func (f *File) Modified() uint32 { return f.modified }

// SetModified bumps the change counter.
func (f *File) SetModified() { f.modified++ }

// ClearModified resets the change counter.
func (f *File) ClearModified() { f.modified = 0 }

// Read opens path, negotiates the encoding, reads the header if the
// type has one, and hands the payload to the codec. On any failure the
// file is left unmodified-clean and the error carries the path.
func (f *File) Read(path string) error {
	return f.readPath(path, false)
}

// ReadMetadataOnly behaves exactly like Read but tells the codec to
// skip payload parsing.
func (f *File) ReadMetadataOnly(path string) error {
	return f.readPath(path, true)
}

func (f *File) readPath(path string, metadataOnly bool) error {
	if err := f.doRead(path, metadataOnly); err != nil {
		f.ClearModified()
		return &FileError{Path: path, Op: "read", Err: err}
	}
	f.path = path
	f.ClearModified()
	return nil
}

func (f *File) doRead(path string, metadataOnly bool) error {
	fh, err := os.Open(path)
	if err != nil {
		return err
	}
	defer fh.Close()

	format, err := DetectFormat(fh, f.desc)
	if err != nil {
		return err
	}

	data, err := io.ReadAll(fh)
	if err != nil {
		return err
	}

	f.header.Clear()

	enc := EncodingASCII
	payload := data

	switch format {
	case FormatXML:
		hdr, err := parseXMLHeader(data, f.desc)
		if err != nil {
			return err
		}
		f.header = hdr
		enc = EncodingXML
		if v, ok := f.header.Get(TagEncoding); ok {
			if declared, perr := ParseEncoding(v); perr == nil && declared.IsXMLFamily() {
				enc = declared
			}
		}
		payload = data

	case FormatCSV:
		enc = EncodingCSV
		tables, err := parseCSVTables(data)
		if err != nil {
			return err
		}
		for _, tbl := range tables {
			if tbl.name == csvHeaderTable {
				tableIntoHeader(tbl, &f.header)
				break
			}
		}
		payload = data

	case FormatOther:
		enc = EncodingOther
		payload = data

	case FormatHeadered:
		if f.desc.HasHeader {
			hdr, offset, found, err := parseASCIIHeader(data)
			if err != nil {
				return err
			}
			if found {
				f.header = hdr
				payload = data[offset:]
			}
		}
		// The declared encoding decides ascii vs binary; absent tag
		// means ascii.
		if v, ok := f.header.Get(TagEncoding); ok {
			if declared, perr := ParseEncoding(v); perr == nil {
				enc = declared
			}
		}
	}

	if !f.desc.CanRead(enc) {
		return fmt.Errorf("%w: %s does not support reading %s",
			common.ErrUnsupportedEncoding, f.desc.Name, enc)
	}

	f.readEncoding = enc
	if f.desc.CanWrite(enc) {
		f.writeEncoding = enc
	}

	return f.codec.ReadBody(enc, bytes.NewReader(payload), metadataOnly)
}

// Write negotiates the write encoding, stamps the header, and emits the
// header followed by the codec's payload. It refuses to replace an
// existing file unless overwriting was enabled.
func (f *File) Write(path string) error {
	if err := f.doWrite(path); err != nil {
		return &FileError{Path: path, Op: "write", Err: err}
	}
	f.path = path
	f.ClearModified()
	return nil
}

func (f *File) doWrite(path string) error {
	if !f.opts.OverwriteAllowed {
		if _, err := os.Stat(path); err == nil {
			return common.ErrFileExists
		}
	}

	enc := f.selectWriteEncoding()
	if !f.desc.CanWrite(enc) {
		return fmt.Errorf("%w: %s does not support writing %s",
			common.ErrUnsupportedEncoding, f.desc.Name, enc)
	}

	if enc != EncodingOther {
		f.header.Set(TagDate, time.Now().Format(time.RFC1123))
		f.header.Set(TagEncoding, enc.String())
	}

	fh, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := f.emit(fh, enc); err != nil {
		fh.Close()
		// A partial file is deleted only when overwriting was allowed;
		// otherwise it is left in place for post-mortem.
		if f.opts.OverwriteAllowed {
			os.Remove(path)
		}
		return err
	}

	if err := fh.Close(); err != nil {
		return err
	}

	if f.opts.PermissionsMask != 0 {
		if err := os.Chmod(path, f.opts.PermissionsMask); err != nil {
			return err
		}
	}
	return nil
}

func (f *File) emit(w io.Writer, enc Encoding) error {
	switch {
	case enc == EncodingASCII || enc == EncodingBinary:
		if f.desc.HasHeader {
			if err := writeASCIIHeader(w, &f.header); err != nil {
				return err
			}
		}
		return f.codec.WriteBody(enc, w)

	case enc.IsXMLFamily():
		return writeXMLDocument(w, f.desc.XMLRoot, &f.header, func(body io.Writer) error {
			return f.codec.WriteBody(enc, body)
		})

	case enc == EncodingCSV:
		if _, err := io.WriteString(w, csvFileMagic+"\n"); err != nil {
			return err
		}
		if err := writeCSVTables(w, []csvTable{headerIntoTable(&f.header)}); err != nil {
			return err
		}
		return f.codec.WriteBody(enc, w)

	default: // other
		return f.codec.WriteBody(enc, w)
	}
}

// selectWriteEncoding applies the preferred-encoding walk to the
// current write encoding.
func (f *File) selectWriteEncoding() Encoding {
	enc := f.writeEncoding
	for _, p := range f.opts.PreferredWriteEncodings {
		if f.desc.CanWrite(p) {
			enc = p
			break
		}
	}
	return enc
}

// ReadFromMemory writes the bytes to a scratch file, reads that file,
// and deletes it. A non-empty debugName names the scratch file and
// keeps it on disk afterwards.
func (f *File) ReadFromMemory(data []byte, debugName string) error {
	name := debugName
	keep := name != ""
	if !keep {
		name = filepath.Join(os.TempDir(), "sumsync-scratch-"+uuid.NewString()+f.desc.Extension)
	}
	if err := os.WriteFile(name, data, 0o600); err != nil {
		return &FileError{Path: name, Op: "write scratch", Err: err}
	}
	err := f.Read(name)
	if !keep {
		os.Remove(name)
	}
	return err
}
