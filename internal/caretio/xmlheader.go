package caretio

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

const (
	fileHeaderElement   = "FileHeader"
	legacyHeaderElement = "header"
)

// xmlHeaderEntry is one Element record of the current header form.
type xmlHeaderEntry struct {
	Name  string `xml:"Name"`
	Value string `xml:"Value"`
}

type xmlFileHeader struct {
	Elements []xmlHeaderEntry `xml:"Element"`
}

// legacyXMLHeader is the old nested-element form: every tag is its own
// element directly under <header>.
type legacyXMLHeader struct {
	Entries []legacyXMLEntry `xml:",any"`
}

type legacyXMLEntry struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

// parseXMLHeader validates the document root against the descriptor's
// declared tag and extracts the header from either the current
// FileHeader form or the legacy nested-element form.
func parseXMLHeader(data []byte, desc *Descriptor) (Header, error) {
	var hdr Header

	dec := xml.NewDecoder(bytes.NewReader(data))

	root, err := nextStartElement(dec)
	if err != nil {
		return hdr, fmt.Errorf("xml header: %w", err)
	}
	if !rootTagAcceptable(root.Name.Local, desc) {
		return hdr, fmt.Errorf("xml header: root element is %q, want %q",
			root.Name.Local, desc.XMLRoot)
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return hdr, nil
		}
		if err != nil {
			return hdr, fmt.Errorf("xml header: %w", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case fileHeaderElement:
			var fh xmlFileHeader
			if err := dec.DecodeElement(&fh, &se); err != nil {
				return hdr, fmt.Errorf("xml header: %w", err)
			}
			for _, e := range fh.Elements {
				hdr.Set(strings.TrimSpace(e.Name), e.Value)
			}
			return hdr, nil
		case legacyHeaderElement:
			var lh legacyXMLHeader
			if err := dec.DecodeElement(&lh, &se); err != nil {
				return hdr, fmt.Errorf("xml header: %w", err)
			}
			for _, e := range lh.Entries {
				hdr.Set(e.XMLName.Local, e.Value)
			}
			return hdr, nil
		default:
			if err := dec.Skip(); err != nil {
				return hdr, fmt.Errorf("xml header: %w", err)
			}
		}
	}
}

// rootTagAcceptable implements the narrow root-tag exceptions: an HTML
// document and any root beginning with "Abstract" pass regardless of the
// descriptor.
func rootTagAcceptable(tag string, desc *Descriptor) bool {
	if desc != nil && tag == desc.XMLRoot {
		return true
	}
	if strings.EqualFold(tag, "html") {
		return true
	}
	return strings.HasPrefix(tag, "Abstract")
}

func nextStartElement(dec *xml.Decoder) (xml.StartElement, error) {
	for {
		tok, err := dec.Token()
		if err != nil {
			return xml.StartElement{}, err
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se, nil
		}
	}
}

// writeXMLDocument emits the current header form only; the legacy form
// is read-compatible but never written.
func writeXMLDocument(w io.Writer, rootTag string, hdr *Header, writeBody func(io.Writer) error) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "<%s>\n", rootTag); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "<%s>\n", fileHeaderElement); err != nil {
		return err
	}
	for _, key := range hdr.Keys() {
		value, _ := hdr.Get(key)
		if _, err := io.WriteString(w, "<Element>\n"); err != nil {
			return err
		}
		if err := writeCDATAElement(w, "Name", key); err != nil {
			return err
		}
		if err := writeCDATAElement(w, "Value", value); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "</Element>\n"); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "</%s>\n", fileHeaderElement); err != nil {
		return err
	}
	if err := writeBody(w); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "</%s>\n", rootTag)
	return err
}

// writeCDATAElement wraps text in a CDATA section, splitting any "]]>"
// the text itself contains.
func writeCDATAElement(w io.Writer, tag, text string) error {
	escaped := strings.ReplaceAll(text, "]]>", "]]]]><![CDATA[>")
	_, err := fmt.Fprintf(w, "<%s><![CDATA[%s]]></%s>\n", tag, escaped, tag)
	return err
}
