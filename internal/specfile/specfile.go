// Package specfile implements the spec-file model: an ordered list of
// (category tag, file reference) pairs indexing the files that together
// form a working dataset.
package specfile

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/caretsuite/sumsync/internal/caretio"
)

// Entry is one line of a spec file: the category tag (topology,
// coordinate, volume header, ...) and the referenced file, either
// absolute or relative to the spec file's directory.
type Entry struct {
	Tag       string
	Reference string
}

// codec parses and emits the "tag reference" body lines through the
// caretio framework; the framework owns the header block.
type codec struct {
	entries []Entry
}

func (c *codec) ReadBody(enc caretio.Encoding, r io.Reader, metadataOnly bool) error {
	if metadataOnly {
		return nil
	}
	if enc != caretio.EncodingASCII {
		return fmt.Errorf("spec file: cannot read %s", enc)
	}
	c.entries = nil
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		tag, ref, ok := strings.Cut(line, " ")
		if !ok {
			return fmt.Errorf("spec file: malformed entry %q", line)
		}
		c.entries = append(c.entries, Entry{Tag: tag, Reference: strings.TrimSpace(ref)})
	}
	return scanner.Err()
}

func (c *codec) WriteBody(enc caretio.Encoding, w io.Writer) error {
	if enc != caretio.EncodingASCII {
		return fmt.Errorf("spec file: cannot write %s", enc)
	}
	for _, e := range c.entries {
		if _, err := fmt.Fprintf(w, "%s %s\n", e.Tag, e.Reference); err != nil {
			return err
		}
	}
	return nil
}

func newDescriptor() *caretio.Descriptor {
	d := &caretio.Descriptor{
		Name:                 "Spec File",
		Extension:            caretio.SpecFileExtension,
		HasHeader:            true,
		XMLRoot:              "CaretSpecFile",
		DefaultWriteEncoding: caretio.EncodingASCII,
	}
	d.SetAccess(caretio.EncodingASCII, caretio.AccessReadWrite)
	return d
}

// Model is the in-memory spec file.
type Model struct {
	file  *caretio.File
	codec *codec
	path  string
}

// New builds an empty model with the given framework options.
func New(opts caretio.Options) *Model {
	c := &codec{}
	return &Model{
		file:  caretio.NewFile(newDescriptor(), c, opts),
		codec: c,
	}
}

// Read parses path into the ordered entry list.
func (m *Model) Read(path string) error {
	if err := m.file.Read(path); err != nil {
		return err
	}
	m.path = path
	return nil
}

// Write emits the entries in order.
func (m *Model) Write(path string) error {
	if err := m.file.Write(path); err != nil {
		return err
	}
	m.path = path
	return nil
}

// Header exposes the spec file's metadata header (species, structure,
// space and friends).
func (m *Model) Header() *caretio.Header { return m.file.Header() }

// Path returns the path last read from or written to.
func (m *Model) Path() string { return m.path }

// Dir returns the directory relative references resolve against.
func (m *Model) Dir() string { return filepath.Dir(m.path) }

// Entries returns the entries in order. The slice is the model's own;
// callers must not mutate it.
func (m *Model) Entries() []Entry { return m.codec.entries }

// Append adds an entry at the end.
func (m *Model) Append(tag, reference string) {
	m.codec.entries = append(m.codec.entries, Entry{Tag: tag, Reference: reference})
	m.file.SetModified()
}

// AllDataFiles yields every non-empty reference in entry order. When
// expand is non-nil it is invoked per reference and any extra paths it
// returns (chained volume data files) follow their originating entry.
func (m *Model) AllDataFiles(expand func(reference string) []string) []string {
	var files []string
	for _, e := range m.codec.entries {
		if e.Reference == "" {
			continue
		}
		files = append(files, e.Reference)
		if expand != nil {
			files = append(files, expand(e.Reference)...)
		}
	}
	return files
}

// ResolveReference turns a spec entry reference into a usable path:
// absolute references pass through, relative ones join the spec file's
// directory.
func (m *Model) ResolveReference(reference string) string {
	if filepath.IsAbs(reference) {
		return reference
	}
	return filepath.Join(m.Dir(), reference)
}

// StripPaths rewrites every reference to its basename, preserving order.
func (m *Model) StripPaths() {
	for i := range m.codec.entries {
		m.codec.entries[i].Reference = filepath.Base(m.codec.entries[i].Reference)
	}
	m.file.SetModified()
}

// CommonSubdirectoryPrefix returns the longest directory prefix shared
// by every reference's directory component, or "" when the entries do
// not agree on one.
func (m *Model) CommonSubdirectoryPrefix() string {
	var common []string
	first := true
	for _, e := range m.codec.entries {
		if e.Reference == "" {
			continue
		}
		dir := filepath.Dir(e.Reference)
		if dir == "." {
			return ""
		}
		parts := strings.Split(dir, string(filepath.Separator))
		if first {
			common = parts
			first = false
			continue
		}
		common = commonPrefix(common, parts)
		if len(common) == 0 {
			return ""
		}
	}
	if first || len(common) == 0 {
		return ""
	}
	return filepath.Join(common...)
}

func commonPrefix(a, b []string) []string {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return a[:i]
		}
	}
	return a[:n]
}
