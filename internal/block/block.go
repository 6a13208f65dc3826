// Package block renders and recognizes the dated upload blocks kept in the
// target document.
//
// A block looks like:
//
//	--- UPLOAD FROM 17.10.2026 ---
//
//	https://t.me/channel/101
//	first post
//
//	https://t.me/channel/102
//	[Media]
//
// Blocks are prepended, so the newest block is always first in the document.
package block

import (
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/chansync/internal/source"
)

const (
	// DateLayout is the marker date format (DD.MM.YYYY).
	DateLayout = "02.01.2006"

	// MediaPlaceholder stands in for the body of a post without text.
	MediaPlaceholder = "[Media]"

	markerPrefix = "--- UPLOAD FROM "
	markerSuffix = " ---"
)

// Header returns the marker line for date followed by a blank line.
func Header(date time.Time) string {
	return markerPrefix + date.Format(DateLayout) + markerSuffix + "\n\n"
}

// Entry formats one post as identifier, body, blank line.
func Entry(p source.Post) string {
	body := p.Text
	if p.MediaOnly || body == "" {
		body = MediaPlaceholder
	}
	return p.URL + "\n" + body + "\n\n"
}

// Builder accumulates entries for one upload block. Each added entry goes in
// front of the previous ones, so feeding posts newest first yields a block
// listed oldest first.
type Builder struct {
	entries []string
}

// Prepend places p's entry before every entry added so far.
func (b *Builder) Prepend(p source.Post) {
	b.entries = append(b.entries, Entry(p))
}

// Len returns the number of entries.
func (b *Builder) Len() int {
	return len(b.entries)
}

// Entries returns the accumulated entry text without a header.
func (b *Builder) Entries() string {
	var sb strings.Builder
	for i := len(b.entries) - 1; i >= 0; i-- {
		sb.WriteString(b.entries[i])
	}
	return sb.String()
}

// String renders the full block dated date. It returns "" when empty.
func (b *Builder) String(date time.Time) string {
	if len(b.entries) == 0 {
		return ""
	}
	return Header(date) + b.Entries()
}

// ParseError reports a marker line whose date is not a real calendar date.
type ParseError struct {
	Marker string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse marker %q: %v", e.Marker, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
