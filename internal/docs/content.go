package docs

import (
	"strings"

	gdocs "google.golang.org/api/docs/v1"
)

// Content is a read-only snapshot of a document body.
type Content struct {
	DocumentID string
	Title      string
	RevisionID string
	Elements   []Element
}

// Element is one structural element of the body. Indexes are the half-open
// range [StartIndex, EndIndex) in the document's flat text. Non-paragraph
// elements (section breaks, tables, TOCs) are kept only for their range.
type Element struct {
	StartIndex int64
	EndIndex   int64
	Paragraph  bool
	Runs       []string // text run contents, paragraphs only
}

// Text concatenates the element's text runs.
func (e Element) Text() string {
	return strings.Join(e.Runs, "")
}

// EndIndex returns the end of the last element, or 0 for an empty body. The
// final position is the document's trailing newline and cannot be deleted.
func (c *Content) EndIndex() int64 {
	if c == nil || len(c.Elements) == 0 {
		return 0
	}
	return c.Elements[len(c.Elements)-1].EndIndex
}

// Before returns a copy of c holding only the elements that start before
// index, as the document would read after deleting from index onward.
func (c *Content) Before(index int64) *Content {
	if c == nil {
		return nil
	}
	out := *c
	out.Elements = nil
	for _, el := range c.Elements {
		if el.StartIndex >= index {
			break
		}
		out.Elements = append(out.Elements, el)
	}
	return &out
}

// Paragraphs returns the paragraph elements in document order.
func (c *Content) Paragraphs() []Element {
	if c == nil {
		return nil
	}
	var out []Element
	for _, el := range c.Elements {
		if el.Paragraph {
			out = append(out, el)
		}
	}
	return out
}

func contentFromDocument(doc *gdocs.Document) *Content {
	c := &Content{
		DocumentID: doc.DocumentId,
		Title:      doc.Title,
		RevisionID: doc.RevisionId,
	}
	if doc.Body == nil {
		return c
	}

	for _, se := range doc.Body.Content {
		if se == nil {
			continue
		}
		el := Element{StartIndex: se.StartIndex, EndIndex: se.EndIndex}
		if se.Paragraph != nil {
			el.Paragraph = true
			for _, pe := range se.Paragraph.Elements {
				if pe == nil || pe.TextRun == nil {
					continue
				}
				el.Runs = append(el.Runs, pe.TextRun.Content)
			}
		}
		c.Elements = append(c.Elements, el)
	}
	return c
}
