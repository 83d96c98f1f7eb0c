package caretio

import (
	"bytes"
	"fmt"
	"io"
	"strings"
)

const (
	beginHeaderToken = "BeginHeader"
	endHeaderToken   = "EndHeader"
)

// parseASCIIHeader reads the BeginHeader/EndHeader block from data.
//
// If the first token of the first line is not BeginHeader, found is
// false and offset is zero so the caller can parse from the very first
// byte. Otherwise offset is the index of the first payload byte.
//
// Payload location deliberately scans for the literal EndHeader byte
// sequence instead of trusting a text reader's cursor; binary payloads
// start on the byte after the EndHeader line's newline.
func parseASCIIHeader(data []byte) (hdr Header, offset int, found bool, err error) {
	firstLine := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		firstLine = data[:i]
	}
	fields := strings.Fields(string(firstLine))
	if len(fields) == 0 || fields[0] != beginHeaderToken {
		return Header{}, 0, false, nil
	}

	end := bytes.Index(data, []byte(endHeaderToken))
	if end < 0 {
		return Header{}, 0, false, fmt.Errorf("header: missing %s", endHeaderToken)
	}

	block := string(data[len(firstLine):end])
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		tag, value, _ := strings.Cut(trimmed, " ")
		hdr.Set(tag, unescapeHeaderValue(value))
	}

	offset = end + len(endHeaderToken)
	if offset < len(data) && data[offset] == '\r' {
		offset++
	}
	if offset < len(data) && data[offset] == '\n' {
		offset++
	}
	return hdr, offset, true, nil
}

// writeASCIIHeader emits the BeginHeader/EndHeader block with one
// "tag value" line per entry, values newline-escaped.
func writeASCIIHeader(w io.Writer, hdr *Header) error {
	if _, err := io.WriteString(w, beginHeaderToken+"\n"); err != nil {
		return err
	}
	for _, key := range hdr.Keys() {
		value, _ := hdr.Get(key)
		if _, err := fmt.Fprintf(w, "%s %s\n", key, escapeHeaderValue(value)); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, endHeaderToken+"\n")
	return err
}
