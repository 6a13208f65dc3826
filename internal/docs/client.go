// Package docs reads and edits a single Google Docs document.
package docs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gdocs "google.golang.org/api/docs/v1"
	"google.golang.org/api/option"
)

// Client performs reads and atomic edits against one document.
type Client struct {
	svc        *gdocs.Service
	documentID string
}

// New creates a client for documentID. Callers supply authentication through
// opts (option.WithTokenSource, or option.WithHTTPClient in tests).
func New(ctx context.Context, documentID string, opts ...option.ClientOption) (*Client, error) {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return nil, errors.New("docs: document id is required")
	}

	svc, err := gdocs.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("docs: create service: %w", err)
	}
	return &Client{svc: svc, documentID: documentID}, nil
}

// Connect creates a client authorized by creds. endpoint overrides the API
// base URL when non-empty.
func Connect(ctx context.Context, documentID string, creds *Credentials, endpoint string) (*Client, error) {
	if creds == nil || creds.TokenSource == nil {
		return nil, &CredentialError{Err: errors.New("no token source")}
	}
	opts := []option.ClientOption{option.WithTokenSource(creds.TokenSource)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	return New(ctx, documentID, opts...)
}

// Fetch retrieves the full body of the document.
func (c *Client) Fetch(ctx context.Context) (*Content, error) {
	doc, err := c.svc.Documents.Get(c.documentID).Context(ctx).Do()
	if err != nil {
		return nil, accessError("get", c.documentID, err)
	}
	return contentFromDocument(doc), nil
}

// InsertText inserts text at index as one edit. Index 1 is the start of the body.
func (c *Client) InsertText(ctx context.Context, text string, index int64) error {
	if text == "" {
		return &AccessError{Op: "insert", DocumentID: c.documentID, Err: errors.New("empty text")}
	}
	if index < 1 {
		return &AccessError{Op: "insert", DocumentID: c.documentID, Err: fmt.Errorf("invalid index %d", index)}
	}

	return c.batchUpdate(ctx, "insert", &gdocs.Request{
		InsertText: &gdocs.InsertTextRequest{
			Location: &gdocs.Location{Index: index},
			Text:     text,
		},
	})
}

// DeleteRange removes [start, end) as one edit. end must stay below the
// document's final index, which holds the undeletable trailing newline.
func (c *Client) DeleteRange(ctx context.Context, start, end int64) error {
	if start < 1 || end <= start {
		return &AccessError{Op: "delete", DocumentID: c.documentID, Err: fmt.Errorf("invalid range [%d, %d)", start, end)}
	}

	return c.batchUpdate(ctx, "delete", &gdocs.Request{
		DeleteContentRange: &gdocs.DeleteContentRangeRequest{
			Range: &gdocs.Range{StartIndex: start, EndIndex: end},
		},
	})
}

func (c *Client) batchUpdate(ctx context.Context, op string, reqs ...*gdocs.Request) error {
	body := &gdocs.BatchUpdateDocumentRequest{Requests: reqs}
	if _, err := c.svc.Documents.BatchUpdate(c.documentID, body).Context(ctx).Do(); err != nil {
		return accessError(op, c.documentID, err)
	}
	return nil
}
