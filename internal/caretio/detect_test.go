package caretio

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func detect(t *testing.T, data []byte, desc *Descriptor) DetectedFormat {
	t.Helper()
	r := bytes.NewReader(data)
	format, err := DetectFormat(r, desc)
	require.NoError(t, err)

	// Position must be restored.
	pos, err := r.Seek(0, io.SeekCurrent)
	require.NoError(t, err)
	require.EqualValues(t, 0, pos)

	return format
}

func TestDetectFormat_XML(t *testing.T) {
	assert.Equal(t, FormatXML, detect(t, []byte(`<?xml version="1.0"?><CoordinateFile/>`), nil))
	assert.Equal(t, FormatXML, detect(t, []byte("  \n\t <root/>"), nil))
}

func TestDetectFormat_HighBitByteIsNotXML(t *testing.T) {
	data := append([]byte{0x80, 0x01}, []byte("<root/>")...)
	assert.Equal(t, FormatHeadered, detect(t, data, nil))
}

func TestDetectFormat_CSVMagic(t *testing.T) {
	assert.Equal(t, FormatCSV, detect(t, []byte(csvFileMagic+"\nTableName,header\n"), nil))
	assert.Equal(t, FormatCSV, detect(t, []byte(csvFileMagic+"\r\nTableName,header\n"), nil))

	// The magic must be the whole first line.
	assert.Equal(t, FormatHeadered, detect(t, []byte(csvFileMagic+",extra\n"), nil))
}

func TestDetectFormat_HeaderedDefault(t *testing.T) {
	data := []byte("BeginHeader\nencoding ASCII\nEndHeader\npayload")
	assert.Equal(t, FormatHeadered, detect(t, data, nil))
}

func TestDetectFormat_OtherDescriptor(t *testing.T) {
	desc := NewForeignDescriptor("AFNI Volume Header File", ".HEAD")
	data := []byte("type = string-attribute\n")
	assert.Equal(t, FormatOther, detect(t, data, desc))
}
