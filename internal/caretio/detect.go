package caretio

import (
	"bytes"
	"fmt"
	"io"
)

// DetectedFormat is the coarse on-disk classification produced by
// peeking at an opened file. The precise encoding (ascii vs binary,
// plain XML vs base64 forms) comes from the header afterwards.
type DetectedFormat int

const (
	FormatHeadered DetectedFormat = iota // BeginHeader-prefixed ascii or binary
	FormatXML
	FormatCSV
	FormatOther // foreign format, no abstract header
)

// csvFileMagic is the first line of every CSV-encoded file. It is an
// internal marker produced by this framework's CSV writer, not a
// standardized signature.
const csvFileMagic = "CSVF-FILE,1"

const detectProbeSize = 512

// DetectFormat classifies an opened file positioned at zero.
//
// Rules, in order: a probe containing any byte >= 127 cannot be XML;
// otherwise the first non-whitespace character decides XML; the CSV
// magic line decides CSV; what remains is header-prefixed unless the
// descriptor declares the type as other-encoded.
//
// The file position is restored before returning.
func DetectFormat(r io.ReadSeeker, desc *Descriptor) (DetectedFormat, error) {
	pos, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return FormatOther, fmt.Errorf("detect: %w", err)
	}
	defer r.Seek(pos, io.SeekStart)

	probe := make([]byte, detectProbeSize)
	n, err := io.ReadFull(r, probe)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return FormatOther, fmt.Errorf("detect: %w", err)
	}
	probe = probe[:n]

	if looksLikeXML(probe) {
		return FormatXML, nil
	}

	if isCSV(probe) {
		return FormatCSV, nil
	}

	if desc != nil && desc.OtherOnly() {
		return FormatOther, nil
	}
	return FormatHeadered, nil
}

func looksLikeXML(probe []byte) bool {
	for _, b := range probe {
		if b >= 127 {
			return false
		}
	}
	for _, b := range probe {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return b == '<'
	}
	return false
}

func isCSV(probe []byte) bool {
	// The magic must be the whole first line; a small margin covers a
	// trailing CR before the newline.
	limit := len(csvFileMagic) + 2
	if len(probe) > limit {
		probe = probe[:limit]
	}
	if !bytes.HasPrefix(probe, []byte(csvFileMagic)) {
		return false
	}
	rest := probe[len(csvFileMagic):]
	return len(rest) == 0 || rest[0] == '\n' || rest[0] == '\r'
}
