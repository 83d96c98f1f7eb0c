package caretio

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/caretsuite/sumsync/internal/common"
)

// Well-known extensions the pipelines test against.
const (
	SpecFileExtension  = ".spec"
	SceneFileExtension = ".scene"
)

// CodecFactory produces a fresh BodyCodec for one file instance.
type CodecFactory func() BodyCodec

type registration struct {
	suffix  string
	desc    *Descriptor
	factory CodecFactory
}

// Registry maps file-name suffixes to typed descriptors and codecs.
// Matching uses endswith semantics and walks the table in registration
// order, so compound extensions (".nii.gz", ".4dfp.img") must be
// registered before the suffixes they contain.
type Registry struct {
	opts Options
	regs []registration
}

// NewRegistry builds a registry preloaded with the standard file types.
func NewRegistry(opts Options) *Registry {
	r := &Registry{opts: opts}
	r.registerDefaults()
	return r
}

// Options returns the framework options files from this registry carry.
func (r *Registry) Options() Options { return r.opts }

// Register appends a suffix mapping. Later registrations do not shadow
// earlier ones; order is significant.
func (r *Registry) Register(suffix string, desc *Descriptor, factory CodecFactory) {
	r.regs = append(r.regs, registration{suffix: suffix, desc: desc, factory: factory})
}

// DescriptorFor returns the descriptor matching path, or
// common.ErrUnknownFileType wrapping the unmatched extension.
func (r *Registry) DescriptorFor(path string) (*Descriptor, error) {
	for _, reg := range r.regs {
		if strings.HasSuffix(path, reg.suffix) {
			return reg.desc, nil
		}
	}
	if desc := probeImageFile(path); desc != nil {
		return desc, nil
	}
	ext := filepath.Ext(path)
	if ext == "" {
		ext = path
	}
	return nil, fmt.Errorf("%w: %s", common.ErrUnknownFileType, ext)
}

// FileFor builds a File handler for path from the suffix table.
func (r *Registry) FileFor(path string) (*File, error) {
	for _, reg := range r.regs {
		if strings.HasSuffix(path, reg.suffix) {
			return NewFile(reg.desc, reg.factory(), r.opts), nil
		}
	}
	if desc := probeImageFile(path); desc != nil {
		return NewFile(desc, NewRawBodyCodec(), r.opts), nil
	}
	ext := filepath.Ext(path)
	if ext == "" {
		ext = path
	}
	return nil, fmt.Errorf("%w: %s", common.ErrUnknownFileType, ext)
}

// IsSpecFile reports whether path names a spec file.
func IsSpecFile(path string) bool {
	return strings.HasSuffix(path, SpecFileExtension)
}

// IsSceneFile reports whether path names a scene file.
func IsSceneFile(path string) bool {
	return strings.HasSuffix(path, SceneFileExtension)
}

// NewCaretDescriptor builds a descriptor for a native file type that
// reads and writes ascii, binary and all XML forms.
func NewCaretDescriptor(name, ext, xmlRoot string, defaultWrite Encoding) *Descriptor {
	d := &Descriptor{
		Name:                 name,
		Extension:            ext,
		HasHeader:            true,
		XMLRoot:              xmlRoot,
		DefaultWriteEncoding: defaultWrite,
	}
	d.SetAccess(EncodingASCII, AccessReadWrite)
	d.SetAccess(EncodingBinary, AccessReadWrite)
	d.SetAccess(EncodingXML, AccessReadWrite)
	d.SetAccess(EncodingXMLBase64, AccessReadWrite)
	d.SetAccess(EncodingXMLGzipBase64, AccessReadWrite)
	return d
}

// NewForeignDescriptor builds a descriptor for a format the framework
// does not wrap (volumes, images): no abstract header, other-encoded.
func NewForeignDescriptor(name, ext string) *Descriptor {
	d := &Descriptor{
		Name:                 name,
		Extension:            ext,
		DefaultWriteEncoding: EncodingOther,
	}
	d.SetAccess(EncodingOther, AccessReadWrite)
	return d
}

func (r *Registry) registerDefaults() {
	raw := CodecFactory(func() BodyCodec { return NewRawBodyCodec() })

	spec := NewCaretDescriptor("Spec File", SpecFileExtension, "CaretSpecFile", EncodingASCII)
	scene := NewCaretDescriptor("Scene File", SceneFileExtension, "SceneFile", EncodingXML)

	coord := NewCaretDescriptor("Coordinate File", ".coord", "CoordinateFile", EncodingBinary)
	topo := NewCaretDescriptor("Topology File", ".topo", "TopologyFile", EncodingBinary)
	metric := NewCaretDescriptor("Metric File", ".metric", "MetricFile", EncodingBinary)
	metric.SetAccess(EncodingCSV, AccessReadWrite)
	paint := NewCaretDescriptor("Paint File", ".paint", "PaintFile", EncodingBinary)
	shape := NewCaretDescriptor("Surface Shape File", ".surface_shape", "SurfaceShapeFile", EncodingBinary)
	shape.SetAccess(EncodingCSV, AccessReadWrite)

	r.Register(SpecFileExtension, spec, raw)
	r.Register(SceneFileExtension, scene, raw)
	r.Register(".coord", coord, raw)
	r.Register(".topo", topo, raw)
	r.Register(".metric", metric, raw)
	r.Register(".paint", paint, raw)
	r.Register(".surface_shape", shape, raw)

	// Volumes. Compound suffixes come before the suffixes they contain.
	r.Register(".nii.gz", NewForeignDescriptor("NIFTI Volume File (compressed)", ".nii.gz"), raw)
	r.Register(".nii", NewForeignDescriptor("NIFTI Volume File", ".nii"), raw)
	r.Register(".BRIK.gz", NewForeignDescriptor("AFNI Volume Data File (compressed)", ".BRIK.gz"), raw)
	r.Register(".BRIK", NewForeignDescriptor("AFNI Volume Data File", ".BRIK"), raw)
	r.Register(".HEAD", NewForeignDescriptor("AFNI Volume Header File", ".HEAD"), raw)
	r.Register(".4dfp.img", NewForeignDescriptor("WUSTL Volume Data File", ".4dfp.img"), raw)
	r.Register(".4dfp.ifh", NewForeignDescriptor("WUSTL Volume Header File", ".4dfp.ifh"), raw)
	r.Register(".ifh", NewForeignDescriptor("WUSTL Volume Header File", ".ifh"), raw)
	r.Register(".hdr", NewForeignDescriptor("Analyze Volume Header File", ".hdr"), raw)
	r.Register(".img.gz", NewForeignDescriptor("Analyze Volume Data File (compressed)", ".img.gz"), raw)
	r.Register(".img", NewForeignDescriptor("Analyze Volume Data File", ".img"), raw)
	r.Register(".mnc", NewForeignDescriptor("MINC Volume File", ".mnc"), raw)
}

// Image signatures, probed by content rather than extension: some tools
// hand out screenshots with no or wrong extensions.
var imageSignatures = []struct {
	name  string
	magic []byte
}{
	{"JPEG Image File", []byte{0xFF, 0xD8, 0xFF}},
	{"PNG Image File", []byte{0x89, 0x50, 0x4E, 0x47}},
	{"GIF Image File", []byte("GIF8")},
}

// probeImageFile opens path and matches the leading bytes against known
// image signatures. Returns nil when the file cannot be opened or no
// signature matches.
func probeImageFile(path string) *Descriptor {
	fh, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer fh.Close()

	head := make([]byte, 8)
	n, err := io.ReadFull(fh, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil
	}
	head = head[:n]

	for _, sig := range imageSignatures {
		if bytes.HasPrefix(head, sig.magic) {
			return NewForeignDescriptor(sig.name, filepath.Ext(path))
		}
	}
	return nil
}

// ParseEncodings converts configuration spellings into Encoding values.
func ParseEncodings(names []string) ([]Encoding, error) {
	encodings := make([]Encoding, 0, len(names))
	for _, name := range names {
		e, err := ParseEncoding(name)
		if err != nil {
			return nil, err
		}
		encodings = append(encodings, e)
	}
	return encodings, nil
}
