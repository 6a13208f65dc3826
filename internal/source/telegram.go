package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

const (
	sourceName       = "telegram"
	defaultBaseURL   = "https://t.me"
	fetchTimeout     = 10 * time.Second
	defaultPageDelay = time.Second
	userAgent        = "Mozilla/5.0 (compatible; chansync/1.0; +https://github.com/ppiankov/chansync)"
)

var errMissingPermalink = errors.New("message has no permalink")

var lineBreaks = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// ParseError reports a single message block that could not be read. The
// block is skipped and the rest of the page is still used.
type ParseError struct {
	Index int // position of the block on the page
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("message block %d: %v", e.Index, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// TelegramOptions tunes how the public preview page is read.
type TelegramOptions struct {
	BaseURL   string        // defaults to https://t.me
	Timeout   time.Duration // per request, defaults to 10s
	MaxPages  int           // pages to walk back through, defaults to 1
	PageDelay time.Duration // minimum spacing between page requests
	Logger    *log.Logger
}

// TelegramSource reads the public web preview (t.me/s/<channel>) of one channel.
type TelegramSource struct {
	channel  string
	baseURL  string
	client   *http.Client
	maxPages int
	limiter  *rate.Limiter
	logger   *log.Logger
}

// NewTelegram creates a preview-page source for channel. A leading "@" is
// accepted and stripped.
func NewTelegram(channel string, opts TelegramOptions) (*TelegramSource, error) {
	channel = strings.TrimPrefix(strings.TrimSpace(channel), "@")
	if channel == "" {
		return nil, errors.New("telegram: channel is required")
	}
	if strings.ContainsAny(channel, "/?# ") {
		return nil, fmt.Errorf("telegram: invalid channel name %q", channel)
	}

	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = fetchTimeout
	}
	if opts.MaxPages < 1 {
		opts.MaxPages = 1
	}
	if opts.PageDelay <= 0 {
		opts.PageDelay = defaultPageDelay
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}

	return &TelegramSource{
		channel:  channel,
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		client:   &http.Client{Timeout: opts.Timeout},
		maxPages: opts.MaxPages,
		limiter:  rate.NewLimiter(rate.Every(opts.PageDelay), 1),
		logger:   opts.Logger,
	}, nil
}

// Name returns "telegram".
func (ts *TelegramSource) Name() string {
	return sourceName
}

// Fetch reads up to MaxPages preview pages, newest page first. Posts keep the
// order in which they appear on each page; older pages are appended after.
func (ts *TelegramSource) Fetch(ctx context.Context) ([]Post, error) {
	var posts []Post
	seen := make(map[string]bool)
	before := 0

	for page := 0; page < ts.maxPages; page++ {
		if err := ts.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("telegram: rate limiter: %w", err)
		}

		items, err := ts.fetchPage(ctx, before)
		if err != nil {
			return nil, err
		}

		for _, p := range items {
			if seen[p.URL] {
				continue
			}
			seen[p.URL] = true
			posts = append(posts, p)
		}

		oldest := oldestMessageID(items)
		if oldest <= 1 || (before != 0 && oldest >= before) {
			break
		}
		before = oldest
	}

	return posts, nil
}

func (ts *TelegramSource) pageURL(before int) string {
	u := fmt.Sprintf("%s/s/%s", ts.baseURL, url.PathEscape(ts.channel))
	if before > 0 {
		u += "?before=" + strconv.Itoa(before)
	}
	return u
}

func (ts *TelegramSource) fetchPage(ctx context.Context, before int) ([]Post, error) {
	pageURL := ts.pageURL(before)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := ts.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: pageURL, Status: resp.StatusCode}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: fmt.Errorf("parse html: %w", err)}
	}

	posts, skipped := parsePage(doc, ts.channel)
	for _, perr := range skipped {
		ts.logger.Warn("skipping message block", "url", pageURL, "err", perr)
	}
	ts.logger.Debug("fetched preview page", "url", pageURL, "posts", len(posts), "skipped", len(skipped))

	return posts, nil
}

// parsePage extracts every message block from a preview page. Blocks that
// cannot be read are returned as errors and left out of the posts.
func parsePage(doc *goquery.Document, channel string) ([]Post, []error) {
	var (
		posts []Post
		errs  []error
	)

	doc.Find("div.tgme_widget_message_wrap").Each(func(i int, s *goquery.Selection) {
		post, err := parseMessage(s, channel)
		if err != nil {
			errs = append(errs, &ParseError{Index: i, Err: err})
			return
		}
		posts = append(posts, post)
	})

	return posts, errs
}

func parseMessage(s *goquery.Selection, channel string) (Post, error) {
	link := s.Find("a.tgme_widget_message_date").First()
	href, _ := link.Attr("href")
	href = strings.TrimSpace(href)
	if href == "" {
		return Post{}, errMissingPermalink
	}

	post := Post{
		Channel:    channel,
		ExternalID: messageID(href),
		URL:        href,
	}

	if dt, ok := link.Find("time").Attr("datetime"); ok {
		if t, err := time.Parse(time.RFC3339, dt); err == nil {
			post.PostedAt = t
		}
	}

	// Quoted replies carry their own text container; only the message body counts.
	body := s.Find("div.tgme_widget_message_text").FilterFunction(func(_ int, sel *goquery.Selection) bool {
		return sel.ParentsFiltered(".tgme_widget_message_reply").Length() == 0
	}).First()

	if body.Length() > 0 {
		post.Text = messageText(body)
	}
	post.MediaOnly = post.Text == ""

	return post, nil
}

func messageText(sel *goquery.Selection) string {
	sel.Find("br").ReplaceWithHtml("\n")
	return strings.TrimSpace(lineBreaks.Replace(sel.Text()))
}

// messageID returns the trailing path segment of a permalink such as
// https://t.me/channel/123.
func messageID(permalink string) string {
	u, err := url.Parse(permalink)
	if err != nil {
		return ""
	}
	id := path.Base(u.Path)
	if id == "." || id == "/" {
		return ""
	}
	return id
}

func oldestMessageID(posts []Post) int {
	oldest := 0
	for _, p := range posts {
		n, err := strconv.Atoi(p.ExternalID)
		if err != nil {
			continue
		}
		if oldest == 0 || n < oldest {
			oldest = n
		}
	}
	return oldest
}
