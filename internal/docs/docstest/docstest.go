// Package docstest provides an in-memory document for tests. It follows the
// Google Docs index model: the body starts at index 1 after a section break,
// indexes count UTF-16 code units, and the final newline cannot be deleted.
package docstest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode/utf16"

	"github.com/ppiankov/chansync/internal/docs"
)

// Document is an in-memory stand-in for docs.Client.
type Document struct {
	mu   sync.Mutex
	body []uint16 // always ends with '\n'

	// Errors returned by the next matching call when set.
	FetchErr  error
	InsertErr error
	DeleteErr error

	Fetches int
	Inserts []Insert
	Deletes []Delete
}

// Insert records one InsertText call.
type Insert struct {
	Text  string
	Index int64
}

// Delete records one DeleteRange call.
type Delete struct {
	Start, End int64
}

// New returns a document whose body is text. A trailing newline is added
// when missing.
func New(text string) *Document {
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	return &Document{body: utf16.Encode([]rune(text))}
}

// Text returns the current body text including the final newline.
func (d *Document) Text() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return string(utf16.Decode(d.body))
}

// Fetch returns a snapshot split into one paragraph per line.
func (d *Document) Fetch(_ context.Context) (*docs.Content, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.Fetches++
	if d.FetchErr != nil {
		return nil, d.FetchErr
	}
	c := Content(string(utf16.Decode(d.body)))
	c.RevisionID = fmt.Sprintf("rev-%d", len(d.Inserts)+len(d.Deletes))
	return c, nil
}

// InsertText inserts text before index.
func (d *Document) InsertText(_ context.Context, text string, index int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.InsertErr != nil {
		return d.InsertErr
	}
	if index < 1 || index > int64(len(d.body)) {
		return fmt.Errorf("docstest: insert index %d out of range [1, %d]", index, len(d.body))
	}

	units := utf16.Encode([]rune(text))
	pos := int(index - 1)
	body := make([]uint16, 0, len(d.body)+len(units))
	body = append(body, d.body[:pos]...)
	body = append(body, units...)
	body = append(body, d.body[pos:]...)
	d.body = body

	d.Inserts = append(d.Inserts, Insert{Text: text, Index: index})
	return nil
}

// DeleteRange removes [start, end).
func (d *Document) DeleteRange(_ context.Context, start, end int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.DeleteErr != nil {
		return d.DeleteErr
	}
	// The final newline sits at index len(body).
	if start < 1 || end <= start || end > int64(len(d.body)) {
		return fmt.Errorf("docstest: delete range [%d, %d) out of range", start, end)
	}

	d.body = append(d.body[:start-1], d.body[end-1:]...)
	d.Deletes = append(d.Deletes, Delete{Start: start, End: end})
	return nil
}

// Content builds a snapshot for text the way the Docs API reports it: a
// section break covering [0, 1) followed by one paragraph per line.
func Content(text string) *docs.Content {
	c := &docs.Content{
		DocumentID: "docstest",
		Title:      "docstest",
		Elements:   []docs.Element{{StartIndex: 0, EndIndex: 1}},
	}

	idx := int64(1)
	for _, line := range strings.SplitAfter(text, "\n") {
		if line == "" {
			continue
		}
		n := int64(len(utf16.Encode([]rune(line))))
		c.Elements = append(c.Elements, docs.Element{
			StartIndex: idx,
			EndIndex:   idx + n,
			Paragraph:  true,
			Runs:       []string{line},
		})
		idx += n
	}
	return c
}
