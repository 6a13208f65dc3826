package source

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

const feedSourceName = "feed"

// FeedSource reads the channel through an RSS/Atom mirror (for example an
// RSSHub telegram/channel route) instead of the preview page.
type FeedSource struct {
	channel string
	feedURL string
	client  *http.Client
}

// NewFeed creates a mirror-feed source for channel.
func NewFeed(channel, feedURL string, timeout time.Duration) (*FeedSource, error) {
	channel = strings.TrimPrefix(strings.TrimSpace(channel), "@")
	if channel == "" {
		return nil, errors.New("feed: channel is required")
	}
	if strings.TrimSpace(feedURL) == "" {
		return nil, errors.New("feed: feed URL is required")
	}
	if timeout <= 0 {
		timeout = fetchTimeout
	}
	return &FeedSource{
		channel: channel,
		feedURL: strings.TrimSpace(feedURL),
		client: &http.Client{
			Timeout:   timeout,
			Transport: &uaTransport{base: http.DefaultTransport},
		},
	}, nil
}

func (fs *FeedSource) Name() string {
	return feedSourceName
}

// Fetch parses the mirror feed. Items keep feed order, which for the common
// mirrors is newest first.
func (fs *FeedSource) Fetch(ctx context.Context) ([]Post, error) {
	fp := gofeed.NewParser()
	fp.Client = fs.client

	feed, err := fp.ParseURLWithContext(fs.feedURL, ctx)
	if err != nil {
		var httpErr gofeed.HTTPError
		if errors.As(err, &httpErr) {
			return nil, &FetchError{URL: fs.feedURL, Status: httpErr.StatusCode}
		}
		return nil, &FetchError{URL: fs.feedURL, Err: err}
	}

	return postsFromFeed(feed, fs.channel), nil
}

// uaTransport injects a User-Agent header into every request.
type uaTransport struct {
	base http.RoundTripper
}

func (t *uaTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", userAgent)
	return t.base.RoundTrip(req)
}

func postsFromFeed(feed *gofeed.Feed, channel string) []Post {
	var posts []Post
	for _, item := range feed.Items {
		link := strings.TrimSpace(item.Link)
		if link == "" {
			continue
		}

		text := itemText(item)
		post := Post{
			Channel:    channel,
			ExternalID: messageID(link),
			URL:        link,
			Text:       text,
			MediaOnly:  text == "",
		}
		if t := itemPublishedTime(item); !t.IsZero() {
			post.PostedAt = t
		}
		posts = append(posts, post)
	}
	return posts
}

func itemPublishedTime(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return *item.PublishedParsed
	}
	if item.UpdatedParsed != nil {
		return *item.UpdatedParsed
	}
	return time.Time{}
}

func itemText(item *gofeed.Item) string {
	raw := item.Content
	if raw == "" {
		raw = item.Description
	}
	return htmlText(raw)
}

// htmlText renders an HTML fragment as plain text, turning <br> into newlines.
func htmlText(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	return messageText(doc.Selection)
}
