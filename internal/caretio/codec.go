package caretio

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
)

const (
	rawDataElement = "Data"
	csvDataTable   = "data"
)

// RawBodyCodec stores the payload verbatim. It supports every encoding
// and is the codec behind file types whose payload the client ships
// without interpreting (which is all the pipelines need).
type RawBodyCodec struct {
	Data []byte
}

func NewRawBodyCodec() *RawBodyCodec { return &RawBodyCodec{} }

func (c *RawBodyCodec) ReadBody(enc Encoding, r io.Reader, metadataOnly bool) error {
	if metadataOnly {
		return nil
	}
	switch enc {
	case EncodingASCII, EncodingBinary, EncodingOther:
		data, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		c.Data = data
		return nil

	case EncodingXML, EncodingXMLBase64, EncodingXMLGzipBase64:
		text, err := extractElementText(r, rawDataElement)
		if err != nil {
			return err
		}
		return c.decodeXMLText(enc, text)

	case EncodingCSV:
		data, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		tables, err := parseCSVTables(data)
		if err != nil {
			return err
		}
		for _, tbl := range tables {
			if tbl.name == csvDataTable && len(tbl.rows) > 0 && len(tbl.rows[0]) > 0 {
				c.Data = []byte(tbl.rows[0][0])
				return nil
			}
		}
		c.Data = nil
		return nil
	}
	return fmt.Errorf("raw codec: cannot read %s", enc)
}

func (c *RawBodyCodec) decodeXMLText(enc Encoding, text string) error {
	switch enc {
	case EncodingXML:
		c.Data = []byte(text)
		return nil
	case EncodingXMLBase64:
		data, err := base64.StdEncoding.DecodeString(text)
		if err != nil {
			return err
		}
		c.Data = data
		return nil
	default: // xml+gzip+base64
		packed, err := base64.StdEncoding.DecodeString(text)
		if err != nil {
			return err
		}
		zr, err := gzip.NewReader(bytes.NewReader(packed))
		if err != nil {
			return err
		}
		defer zr.Close()
		data, err := io.ReadAll(zr)
		if err != nil {
			return err
		}
		c.Data = data
		return nil
	}
}

func (c *RawBodyCodec) WriteBody(enc Encoding, w io.Writer) error {
	switch enc {
	case EncodingASCII, EncodingBinary, EncodingOther:
		_, err := w.Write(c.Data)
		return err

	case EncodingXML:
		if _, err := fmt.Fprintf(w, "<%s>", rawDataElement); err != nil {
			return err
		}
		if err := xml.EscapeText(w, c.Data); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, "</%s>\n", rawDataElement)
		return err

	case EncodingXMLBase64:
		_, err := fmt.Fprintf(w, "<%s>%s</%s>\n", rawDataElement,
			base64.StdEncoding.EncodeToString(c.Data), rawDataElement)
		return err

	case EncodingXMLGzipBase64:
		var packed bytes.Buffer
		zw := gzip.NewWriter(&packed)
		if _, err := zw.Write(c.Data); err != nil {
			return err
		}
		if err := zw.Close(); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, "<%s>%s</%s>\n", rawDataElement,
			base64.StdEncoding.EncodeToString(packed.Bytes()), rawDataElement)
		return err

	case EncodingCSV:
		return writeCSVTables(w, []csvTable{{
			name:    csvDataTable,
			columns: []string{"payload"},
			rows:    [][]string{{string(c.Data)}},
		}})
	}
	return fmt.Errorf("raw codec: cannot write %s", enc)
}

// extractElementText returns the character data of the first element
// with the given local name anywhere in the document.
func extractElementText(r io.Reader, name string) (string, error) {
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return "", nil
		}
		if err != nil {
			return "", err
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != name {
			continue
		}
		var text string
		if err := dec.DecodeElement(&text, &se); err != nil {
			return "", err
		}
		return text, nil
	}
}
