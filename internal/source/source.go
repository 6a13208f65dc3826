package source

import (
	"context"
	"fmt"
	"time"
)

// Post represents a single message read from the channel.
type Post struct {
	Channel    string    // channel name
	ExternalID string    // message number within the channel
	URL        string    // permalink, unique per post
	Text       string    // trimmed message text, empty for media-only posts
	MediaOnly  bool      // true when the message carries no text node
	PostedAt   time.Time // zero when the page does not expose it
}

// Source fetches posts from the configured channel.
type Source interface {
	// Name returns the source identifier (e.g. "telegram").
	Name() string

	// Fetch returns the channel's current posts in page order.
	Fetch(ctx context.Context) ([]Post, error)
}

// FetchError reports that the channel could not be read at all.
type FetchError struct {
	URL    string
	Status int // HTTP status, 0 for transport failures
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
