// Package filter drops posts the channel owner marks as out of scope.
package filter

import (
	"strings"

	"github.com/ppiankov/chansync/internal/source"
)

// Tags is a set of exclusion prefixes such as "#Events".
type Tags struct {
	prefixes []string
}

// NewTags builds a tag set. Blank entries are ignored; tags are used verbatim
// otherwise (no case folding).
func NewTags(tags []string) *Tags {
	t := &Tags{prefixes: make([]string, 0, len(tags))}
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			t.prefixes = append(t.prefixes, tag)
		}
	}
	return t
}

// Excluded reports whether p's trimmed text starts with one of the tags.
// Media-only posts are never excluded.
func (t *Tags) Excluded(p source.Post) bool {
	if t == nil || p.MediaOnly {
		return false
	}
	_, ok := t.Match(p.Text)
	return ok
}

// Match returns the first tag that prefixes the trimmed text.
func (t *Tags) Match(text string) (string, bool) {
	if t == nil {
		return "", false
	}
	text = strings.TrimSpace(text)
	for _, tag := range t.prefixes {
		if strings.HasPrefix(text, tag) {
			return tag, true
		}
	}
	return "", false
}

// List returns the configured tags.
func (t *Tags) List() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.prefixes...)
}
