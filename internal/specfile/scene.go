package specfile

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// sceneFileNameElement marks scene elements whose character data is a
// spec-file data-file reference.
const sceneFileNameElement = "FileName"

// RewriteScenePaths copies the scene XML at src to dst with every
// embedded file reference stripped to its basename, mirroring what
// StripPaths does for spec files. The copy is what gets uploaded; src
// is never touched.
func RewriteScenePaths(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("scene rewrite: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("scene rewrite: %w", err)
	}

	if err := rewriteSceneStream(in, out); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("scene rewrite: %w", err)
	}
	return out.Close()
}

func rewriteSceneStream(r io.Reader, w io.Writer) error {
	dec := xml.NewDecoder(r)
	enc := xml.NewEncoder(w)

	inFileName := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == sceneFileNameElement {
				inFileName++
			}
		case xml.EndElement:
			if t.Name.Local == sceneFileNameElement {
				inFileName--
			}
		case xml.CharData:
			if inFileName > 0 {
				if trimmed := strings.TrimSpace(string(t)); trimmed != "" {
					tok = xml.CharData(filepath.Base(trimmed))
				}
			}
		}
		if err := enc.EncodeToken(tok); err != nil {
			return err
		}
	}
	return enc.Flush()
}
