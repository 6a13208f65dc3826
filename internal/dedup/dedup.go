// Package dedup decides whether a post is already recorded in the document.
//
// A post counts as recorded when its permalink occurs anywhere in the
// document's flattened text. This is substring containment, so a permalink
// that is a prefix of a longer one (https://t.me/x/12 inside
// https://t.me/x/123) is reported as seen. That approximation is accepted.
package dedup

import (
	"strings"

	"github.com/ppiankov/chansync/internal/docs"
)

// Blob concatenates every text run of every paragraph in document order.
func Blob(c *docs.Content) string {
	var sb strings.Builder
	for _, el := range c.Paragraphs() {
		for _, run := range el.Runs {
			sb.WriteString(run)
		}
	}
	return sb.String()
}

// Index answers membership queries against a document snapshot.
type Index struct {
	blob string
}

// NewIndex builds an index over c.
func NewIndex(c *docs.Content) *Index {
	return &Index{blob: Blob(c)}
}

// Contains reports whether identifier appears in the indexed text. An empty
// identifier is never considered present.
func (ix *Index) Contains(identifier string) bool {
	if identifier == "" {
		return false
	}
	return strings.Contains(ix.blob, identifier)
}

// Len returns the size of the indexed text in bytes.
func (ix *Index) Len() int {
	return len(ix.blob)
}
