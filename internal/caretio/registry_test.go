package caretio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caretsuite/sumsync/internal/common"
)

func TestRegistry_CompoundExtensionsDisambiguated(t *testing.T) {
	r := NewRegistry(Options{})

	tests := []struct {
		path string
		name string
	}{
		{"brain.nii.gz", "NIFTI Volume File (compressed)"},
		{"brain.nii", "NIFTI Volume File"},
		{"brain.BRIK.gz", "AFNI Volume Data File (compressed)"},
		{"brain.BRIK", "AFNI Volume Data File"},
		{"brain.4dfp.img", "WUSTL Volume Data File"},
		{"brain.img", "Analyze Volume Data File"},
		{"H.R.spec", "Spec File"},
		{"H.R.coord", "Coordinate File"},
	}
	for _, tc := range tests {
		desc, err := r.DescriptorFor(tc.path)
		require.NoError(t, err, tc.path)
		assert.Equal(t, tc.name, desc.Name, tc.path)
	}
}

func TestRegistry_UnknownExtensionCarriesExt(t *testing.T) {
	r := NewRegistry(Options{})

	_, err := r.DescriptorFor("data.xyz")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUnknownFileType)
	assert.Contains(t, err.Error(), ".xyz")
}

func TestRegistry_ImageDecidedByProbe(t *testing.T) {
	dir := t.TempDir()
	// PNG signature under an unregistered extension.
	path := filepath.Join(dir, "capture.snapshot")
	require.NoError(t, os.WriteFile(path,
		[]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, 0o600))

	r := NewRegistry(Options{})
	desc, err := r.DescriptorFor(path)
	require.NoError(t, err)
	assert.Equal(t, "PNG Image File", desc.Name)
}

func TestRegistry_FileForCarriesOptions(t *testing.T) {
	r := NewRegistry(Options{OverwriteAllowed: true})
	f, err := r.FileFor("x.coord")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "x.coord")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o600))
	f.Codec().(*RawBodyCodec).Data = []byte("new")
	assert.NoError(t, f.Write(path))
}

func TestIsSpecFile(t *testing.T) {
	assert.True(t, IsSpecFile("H.R.spec"))
	assert.False(t, IsSpecFile("H.R.coord"))
	assert.True(t, IsSceneFile("atlas.scene"))
}

func TestParseEncodings(t *testing.T) {
	encodings, err := ParseEncodings([]string{"xml", "binary", "xml_gzip_base64"})
	require.NoError(t, err)
	assert.Equal(t, []Encoding{EncodingXML, EncodingBinary, EncodingXMLGzipBase64}, encodings)

	_, err = ParseEncodings([]string{"parquet"})
	assert.Error(t, err)
}
