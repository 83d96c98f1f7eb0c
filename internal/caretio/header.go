package caretio

import "strings"

// Well-known header tags.
const (
	TagComment   = "comment"
	TagEncoding  = "encoding"
	TagDate      = "date"
	TagStructure = "structure"

	// Legacy tags rewritten or dropped on insertion.
	tagHemFlag   = "hem_flag"
	tagVersionID = "version_id"
)

// headerEntry is one key/value pair. The key keeps the casing it was
// inserted with; lookups normalize.
type headerEntry struct {
	key   string
	value string
}

// Header is the ordered key/value metadata block shared by every file
// type with a textual header.
//
// Keys are compared case-insensitively but stored preserving their
// original casing. Two canonical rules apply on every insertion: the
// legacy key "hem_flag" is rewritten to "structure" (value carried
// across), and "version_id" is silently discarded.
//
// The comment value is held with literal newlines in memory; the ascii
// on-disk form escapes them (see escapeHeaderValue).
type Header struct {
	entries []headerEntry
}

func normalizeTag(key string) string { return strings.ToLower(key) }

// Set inserts or replaces the value for key, applying the canonical
// rename rules.
func (h *Header) Set(key, value string) {
	switch normalizeTag(key) {
	case tagHemFlag:
		key = TagStructure
	case tagVersionID:
		return
	}

	norm := normalizeTag(key)
	for i := range h.entries {
		if normalizeTag(h.entries[i].key) == norm {
			h.entries[i].value = value
			return
		}
	}
	h.entries = append(h.entries, headerEntry{key: key, value: value})
}

// Get returns the value for key (case-insensitive).
func (h *Header) Get(key string) (string, bool) {
	norm := normalizeTag(key)
	for i := range h.entries {
		if normalizeTag(h.entries[i].key) == norm {
			return h.entries[i].value, true
		}
	}
	return "", false
}

// Delete removes key if present.
func (h *Header) Delete(key string) {
	norm := normalizeTag(key)
	for i := range h.entries {
		if normalizeTag(h.entries[i].key) == norm {
			h.entries = append(h.entries[:i], h.entries[i+1:]...)
			return
		}
	}
}

// Len returns the number of entries.
func (h *Header) Len() int { return len(h.entries) }

// Keys returns the keys in insertion order, original casing preserved.
func (h *Header) Keys() []string {
	keys := make([]string, 0, len(h.entries))
	for _, e := range h.entries {
		keys = append(keys, e.key)
	}
	return keys
}

// Clear removes every entry.
func (h *Header) Clear() { h.entries = nil }

// Comment returns the human comment with literal newlines.
func (h *Header) Comment() string {
	v, _ := h.Get(TagComment)
	return v
}

// SetComment stores the human comment. The value uses literal newlines;
// translation to the escaped on-disk form happens at serialization time.
func (h *Header) SetComment(comment string) {
	h.Set(TagComment, comment)
}

// escapeHeaderValue rewrites literal newlines as the two-character
// sequence `\n` so a value fits on one ascii header line. Backslashes
// are doubled first so the transformation is reversible.
func escapeHeaderValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, "\r\n", "\n")
	v = strings.ReplaceAll(v, "\n", `\n`)
	return v
}

// unescapeHeaderValue reverses escapeHeaderValue.
func unescapeHeaderValue(v string) string {
	var b strings.Builder
	b.Grow(len(v))
	for i := 0; i < len(v); i++ {
		if v[i] == '\\' && i+1 < len(v) {
			switch v[i+1] {
			case 'n':
				b.WriteByte('\n')
				i++
				continue
			case '\\':
				b.WriteByte('\\')
				i++
				continue
			}
		}
		b.WriteByte(v[i])
	}
	return b.String()
}
