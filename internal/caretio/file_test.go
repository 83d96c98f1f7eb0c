package caretio

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caretsuite/sumsync/internal/common"
)

func newTestFile(opts Options) *File {
	desc := NewCaretDescriptor("Metric File", ".metric", "MetricFile", EncodingASCII)
	desc.SetAccess(EncodingCSV, AccessReadWrite)
	return NewFile(desc, NewRawBodyCodec(), opts)
}

func tempPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name)
}

func TestFile_HeaderRoundTrip_ASCII(t *testing.T) {
	path := tempPath(t, "roundtrip.metric")

	out := newTestFile(Options{OverwriteAllowed: true})
	out.SetComment("line1\nline2")
	out.SetHeaderTag(TagStructure, "right")
	out.Codec().(*RawBodyCodec).Data = []byte("1 2 3\n")
	require.NoError(t, out.Write(path))

	in := newTestFile(Options{})
	require.NoError(t, in.Read(path))

	assert.Equal(t, "line1\nline2", in.Header().Comment())
	structure, ok := in.Header().Get(TagStructure)
	require.True(t, ok)
	assert.Equal(t, "right", structure)
	_, ok = in.Header().Get("hem_flag")
	assert.False(t, ok)

	assert.Equal(t, EncodingASCII, in.ReadEncoding())
	assert.Equal(t, []byte("1 2 3\n"), in.Codec().(*RawBodyCodec).Data)
}

func TestFile_HeaderRoundTrip_XML(t *testing.T) {
	path := tempPath(t, "roundtrip.metric")

	out := newTestFile(Options{
		OverwriteAllowed:        true,
		PreferredWriteEncodings: []Encoding{EncodingXML},
	})
	out.SetComment("line1\nline2")
	out.SetHeaderTag(TagStructure, "right")
	out.Codec().(*RawBodyCodec).Data = []byte("1 2 3\n")
	require.NoError(t, out.Write(path))

	in := newTestFile(Options{})
	require.NoError(t, in.Read(path))

	assert.Equal(t, EncodingXML, in.ReadEncoding())
	assert.Equal(t, "line1\nline2", in.Header().Comment())
	structure, _ := in.Header().Get(TagStructure)
	assert.Equal(t, "right", structure)
	assert.Equal(t, []byte("1 2 3\n"), in.Codec().(*RawBodyCodec).Data)
}

func TestFile_LegacyXMLHeaderForm(t *testing.T) {
	// Old writers nested one element per tag under <header> instead of
	// the FileHeader/Element/Name/Value form.
	path := tempPath(t, "legacy.metric")
	doc := `<MetricFile>
<header>
<hem_flag>right</hem_flag>
<comment>old writer</comment>
</header>
<Data>1 2 3</Data>
</MetricFile>`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	f := newTestFile(Options{})
	require.NoError(t, f.Read(path))

	assert.Equal(t, EncodingXML, f.ReadEncoding())
	structure, ok := f.Header().Get(TagStructure)
	require.True(t, ok)
	assert.Equal(t, "right", structure)
	_, ok = f.Header().Get("hem_flag")
	assert.False(t, ok)
	assert.Equal(t, "old writer", f.Header().Comment())
	assert.Equal(t, []byte("1 2 3"), f.Codec().(*RawBodyCodec).Data)
}

func TestFile_HemFlagOnDiskBecomesStructure(t *testing.T) {
	path := tempPath(t, "legacy.metric")
	require.NoError(t, os.WriteFile(path,
		[]byte("BeginHeader\nhem_flag right\nEndHeader\n"), 0o600))

	f := newTestFile(Options{})
	require.NoError(t, f.Read(path))

	_, ok := f.Header().Get("hem_flag")
	assert.False(t, ok)
	structure, ok := f.Header().Get(TagStructure)
	require.True(t, ok)
	assert.Equal(t, "right", structure)
}

func TestFile_PayloadRoundTrip_AllEncodings(t *testing.T) {
	payload := []byte("0.5 1.5 2.5\n3.5 4.5 5.5\n")

	encodings := []Encoding{
		EncodingASCII,
		EncodingBinary,
		EncodingXML,
		EncodingXMLBase64,
		EncodingXMLGzipBase64,
		EncodingCSV,
	}
	for _, enc := range encodings {
		t.Run(enc.String(), func(t *testing.T) {
			path := tempPath(t, "payload.metric")

			out := newTestFile(Options{
				OverwriteAllowed:        true,
				PreferredWriteEncodings: []Encoding{enc},
			})
			out.Codec().(*RawBodyCodec).Data = payload
			require.NoError(t, out.Write(path))

			in := newTestFile(Options{})
			require.NoError(t, in.Read(path))
			assert.Equal(t, enc, in.ReadEncoding())
			assert.Equal(t, payload, in.Codec().(*RawBodyCodec).Data)
		})
	}
}

func TestFile_BinaryPayloadLocatedByEndHeaderScan(t *testing.T) {
	// The payload may hold any bytes, including newlines and header-like
	// text; only the first EndHeader terminates the header.
	payload := []byte{0x00, 0x01, '\n', 0xFF, 'E', 'n', 'd'}

	path := tempPath(t, "binary.metric")
	out := newTestFile(Options{
		OverwriteAllowed:        true,
		PreferredWriteEncodings: []Encoding{EncodingBinary},
	})
	out.Codec().(*RawBodyCodec).Data = payload
	require.NoError(t, out.Write(path))

	in := newTestFile(Options{})
	require.NoError(t, in.Read(path))
	assert.Equal(t, EncodingBinary, in.ReadEncoding())
	assert.Equal(t, payload, in.Codec().(*RawBodyCodec).Data)
}

func TestFile_WriteRefusesExistingWithoutOverwrite(t *testing.T) {
	path := tempPath(t, "existing.metric")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	f := newTestFile(Options{OverwriteAllowed: false})
	err := f.Write(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrFileExists)

	var fileErr *FileError
	require.True(t, errors.As(err, &fileErr))
	assert.Equal(t, path, fileErr.Path)
}

func TestFile_UnsupportedEncodingRejectedBeforeBodyParse(t *testing.T) {
	desc := &Descriptor{
		Name:                 "ASCII Only File",
		Extension:            ".metric",
		HasHeader:            true,
		DefaultWriteEncoding: EncodingASCII,
	}
	desc.SetAccess(EncodingASCII, AccessReadWrite)

	path := tempPath(t, "binary.metric")
	require.NoError(t, os.WriteFile(path,
		[]byte("BeginHeader\nencoding BINARY\nEndHeader\n\x00\x01"), 0o600))

	f := NewFile(desc, NewRawBodyCodec(), Options{})
	err := f.Read(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUnsupportedEncoding)
	assert.Zero(t, f.Modified())
}

func TestFile_PreferredEncodingPromotesWriteType(t *testing.T) {
	f := newTestFile(Options{
		PreferredWriteEncodings: []Encoding{EncodingOther, EncodingXML},
	})
	// EncodingOther is not writable for this type; the walk continues to
	// the first writable entry.
	assert.Equal(t, EncodingXML, f.WriteEncoding())
}

func TestFile_ReadResetsWriteTypeToObservedEncoding(t *testing.T) {
	path := tempPath(t, "observed.metric")
	out := newTestFile(Options{
		OverwriteAllowed:        true,
		PreferredWriteEncodings: []Encoding{EncodingXMLBase64},
	})
	out.Codec().(*RawBodyCodec).Data = []byte("payload")
	require.NoError(t, out.Write(path))

	in := newTestFile(Options{})
	require.NoError(t, in.Read(path))
	assert.Equal(t, EncodingXMLBase64, in.WriteEncoding())
}

func TestFile_ReadMetadataOnlySkipsPayload(t *testing.T) {
	path := tempPath(t, "meta.metric")
	out := newTestFile(Options{OverwriteAllowed: true})
	out.SetComment("hello")
	out.Codec().(*RawBodyCodec).Data = []byte("payload")
	require.NoError(t, out.Write(path))

	in := newTestFile(Options{})
	require.NoError(t, in.ReadMetadataOnly(path))
	assert.Equal(t, "hello", in.Header().Comment())
	assert.Nil(t, in.Codec().(*RawBodyCodec).Data)
}

func TestFile_ReadFromMemory(t *testing.T) {
	data := []byte("BeginHeader\nstructure left\nEndHeader\npayload")

	f := newTestFile(Options{})
	require.NoError(t, f.ReadFromMemory(data, ""))

	structure, _ := f.Header().Get(TagStructure)
	assert.Equal(t, "left", structure)
	assert.Equal(t, []byte("payload"), f.Codec().(*RawBodyCodec).Data)
}

func TestFile_ReadFromMemory_DebugNameKeepsScratch(t *testing.T) {
	debugPath := tempPath(t, "debug.metric")
	data := []byte("BeginHeader\nEndHeader\npayload")

	f := newTestFile(Options{})
	require.NoError(t, f.ReadFromMemory(data, debugPath))

	_, err := os.Stat(debugPath)
	assert.NoError(t, err, "scratch file must be kept when a debug name is given")
}

func TestFile_ModifiedCounter(t *testing.T) {
	f := newTestFile(Options{OverwriteAllowed: true})
	assert.Zero(t, f.Modified())

	f.SetComment("a")
	f.SetHeaderTag("structure", "left")
	assert.EqualValues(t, 2, f.Modified())

	path := tempPath(t, "mod.metric")
	require.NoError(t, f.Write(path))
	assert.Zero(t, f.Modified())
}

func TestFile_PermissionsMaskApplied(t *testing.T) {
	path := tempPath(t, "perms.metric")
	f := newTestFile(Options{OverwriteAllowed: true, PermissionsMask: 0o640})
	f.Codec().(*RawBodyCodec).Data = []byte("x")
	require.NoError(t, f.Write(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.EqualValues(t, 0o640, info.Mode().Perm())
}
