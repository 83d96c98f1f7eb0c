// Package volume classifies neuroimaging volume files by extension and
// resolves the separate data file belonging to a header-plus-data pair.
package volume

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Kind identifies a volume file family.
type Kind int

const (
	KindUnknown Kind = iota
	KindAFNI
	KindWUSTL
	KindAnalyze
	KindNIFTI
	KindMINC
)

func (k Kind) String() string {
	switch k {
	case KindAFNI:
		return "AFNI"
	case KindWUSTL:
		return "WUSTL"
	case KindAnalyze:
		return "Analyze"
	case KindNIFTI:
		return "NIFTI"
	case KindMINC:
		return "MINC"
	default:
		return "unknown"
	}
}

// Classify reports the volume family a path belongs to, or KindUnknown
// when the extension is not a recognized volume extension. Compound
// extensions are matched before their suffixes, so ".nii.gz" is NIFTI
// rather than a gzip of something else.
func Classify(path string) Kind {
	name := filepath.Base(path)
	switch {
	case hasSuffix(name, ".nii.gz"), hasSuffix(name, ".nii"):
		return KindNIFTI
	case hasSuffix(name, ".mnc"):
		return KindMINC
	case hasSuffix(name, ".HEAD"), hasSuffix(name, ".BRIK"), hasSuffix(name, ".BRIK.gz"):
		return KindAFNI
	case hasSuffix(name, ".4dfp.ifh"), hasSuffix(name, ".4dfp.img"), hasSuffix(name, ".ifh"):
		return KindWUSTL
	case hasSuffix(name, ".hdr"), hasSuffix(name, ".img.gz"), hasSuffix(name, ".img"):
		return KindAnalyze
	default:
		return KindUnknown
	}
}

// IsHeaderFile reports whether path names the header half of a
// header-plus-data pair. NIFTI and MINC volumes are single-file and
// never report true.
func IsHeaderFile(path string) bool {
	name := filepath.Base(path)
	return hasSuffix(name, ".HEAD") || hasSuffix(name, ".4dfp.ifh") ||
		hasSuffix(name, ".ifh") || hasSuffix(name, ".hdr")
}

// DataFileName returns the path of the data file belonging to the given
// header file. WUSTL interfile headers record the data-file name
// explicitly and are parsed; AFNI and Analyze pairs derive the name by
// extension substitution.
func DataFileName(headerPath string) (string, error) {
	name := filepath.Base(headerPath)
	switch {
	case hasSuffix(name, ".HEAD"):
		return swapSuffix(headerPath, ".HEAD", ".BRIK"), nil
	case hasSuffix(name, ".4dfp.ifh"), hasSuffix(name, ".ifh"):
		return wustlDataFile(headerPath)
	case hasSuffix(name, ".hdr"):
		return swapSuffix(headerPath, ".hdr", ".img"), nil
	default:
		return "", fmt.Errorf("volume: %s is not a header file", headerPath)
	}
}

// ResolveDataFile locates the on-disk data file for a header file. When
// the plain data file is absent but a ".gz" sibling exists, the sibling
// is returned instead; when neither exists the plain name is returned
// so the caller can report it as missing.
func ResolveDataFile(headerPath string) (string, error) {
	dataPath, err := DataFileName(headerPath)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(dataPath); err == nil {
		return dataPath, nil
	}
	gz := dataPath + ".gz"
	if _, err := os.Stat(gz); err == nil {
		return gz, nil
	}
	return dataPath, nil
}

// wustlDataFile parses a WUSTL interfile header, a text file of
// "key := value" lines, for the recorded data-file name. The name is
// resolved against the header's directory. When the header does not
// record one, the conventional ".img" twin is assumed.
func wustlDataFile(headerPath string) (string, error) {
	f, err := os.Open(headerPath)
	if err != nil {
		return "", fmt.Errorf("volume: open header: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":=")
		if !ok {
			continue
		}
		if strings.TrimSpace(key) == "name of data file" {
			name := strings.TrimSpace(value)
			if name == "" {
				break
			}
			if filepath.IsAbs(name) {
				return name, nil
			}
			return filepath.Join(filepath.Dir(headerPath), name), nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("volume: read header: %w", err)
	}
	if name := filepath.Base(headerPath); hasSuffix(name, ".4dfp.ifh") {
		return swapSuffix(headerPath, ".4dfp.ifh", ".4dfp.img"), nil
	}
	return swapSuffix(headerPath, ".ifh", ".img"), nil
}

func hasSuffix(name, suffix string) bool {
	return strings.HasSuffix(name, suffix)
}

func swapSuffix(path, oldSuffix, newSuffix string) string {
	return strings.TrimSuffix(path, oldSuffix) + newSuffix
}
