package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
)

func messageHTML(channel string, id int, body string) string {
	text := ""
	if body != "" {
		text = `<div class="tgme_widget_message_text js-message_text" dir="auto">` + body + `</div>`
	}
	return fmt.Sprintf(`<div class="tgme_widget_message_wrap js-widget_message_wrap">
  <div class="tgme_widget_message text_not_supported_wrap js-widget_message" data-post="%[1]s/%[2]d">
    %[3]s
    <div class="tgme_widget_message_footer">
      <a class="tgme_widget_message_date" href="https://t.me/%[1]s/%[2]d"><time datetime="2026-10-17T09:30:00+00:00" class="time">09:30</time></a>
    </div>
  </div>
</div>`, channel, id, text)
}

func pageHTML(blocks ...string) string {
	return `<!DOCTYPE html><html><head><title>channel</title></head><body><section class="tgme_channel_history js-message_history">` +
		strings.Join(blocks, "\n") + `</section></body></html>`
}

func parseTestPage(t *testing.T, html string) ([]Post, []error) {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return parsePage(doc, "news")
}

func TestParsePage_Messages(t *testing.T) {
	html := pageHTML(
		messageHTML("news", 103, "third<br>post"),
		messageHTML("news", 102, "  #tag second  "),
		messageHTML("news", 101, ""),
	)

	posts, errs := parseTestPage(t, html)
	if len(errs) != 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	if len(posts) != 3 {
		t.Fatalf("got %d posts, want 3", len(posts))
	}

	p := posts[0]
	if p.URL != "https://t.me/news/103" {
		t.Errorf("url = %q", p.URL)
	}
	if p.ExternalID != "103" {
		t.Errorf("external_id = %q, want 103", p.ExternalID)
	}
	if p.Channel != "news" {
		t.Errorf("channel = %q, want news", p.Channel)
	}
	if p.Text != "third\npost" {
		t.Errorf("text = %q, want line break normalized", p.Text)
	}
	if p.MediaOnly {
		t.Error("media_only = true for text post")
	}
	want := time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)
	if !p.PostedAt.Equal(want) {
		t.Errorf("posted_at = %v, want %v", p.PostedAt, want)
	}

	if posts[1].Text != "#tag second" {
		t.Errorf("post[1].text = %q, want trimmed", posts[1].Text)
	}

	if !posts[2].MediaOnly {
		t.Error("post[2] without text should be media only")
	}
	if posts[2].Text != "" {
		t.Errorf("post[2].text = %q, want empty", posts[2].Text)
	}
}

func TestParsePage_MissingPermalinkSkipped(t *testing.T) {
	broken := `<div class="tgme_widget_message_wrap"><div class="tgme_widget_message_text">orphan</div></div>`
	html := pageHTML(
		messageHTML("news", 5, "first"),
		broken,
		messageHTML("news", 4, "second"),
	)

	posts, errs := parseTestPage(t, html)
	if len(posts) != 2 {
		t.Fatalf("got %d posts, want 2", len(posts))
	}
	if len(errs) != 1 {
		t.Fatalf("got %d errors, want 1", len(errs))
	}

	var perr *ParseError
	if !errors.As(errs[0], &perr) {
		t.Fatalf("error type = %T, want *ParseError", errs[0])
	}
	if perr.Index != 1 {
		t.Errorf("index = %d, want 1", perr.Index)
	}
	if !errors.Is(errs[0], errMissingPermalink) {
		t.Errorf("error = %v, want missing permalink", errs[0])
	}
}

func TestParsePage_IgnoresReplyQuote(t *testing.T) {
	block := `<div class="tgme_widget_message_wrap">
  <a class="tgme_widget_message_reply" href="https://t.me/news/1">
    <div class="tgme_widget_message_text js-message_reply_text">quoted text</div>
  </a>
  <div class="tgme_widget_message_text js-message_text">own text</div>
  <a class="tgme_widget_message_date" href="https://t.me/news/2"><time datetime="2026-10-17T09:30:00+00:00"></time></a>
</div>`

	posts, _ := parseTestPage(t, pageHTML(block))
	if len(posts) != 1 {
		t.Fatalf("got %d posts, want 1", len(posts))
	}
	if posts[0].Text != "own text" {
		t.Errorf("text = %q, want own text", posts[0].Text)
	}
}

func TestParsePage_Empty(t *testing.T) {
	posts, errs := parseTestPage(t, pageHTML())
	if posts != nil || errs != nil {
		t.Errorf("got posts=%v errs=%v, want nil", posts, errs)
	}
}

func TestNewTelegram_EmptyChannel(t *testing.T) {
	_, err := NewTelegram("  ", TelegramOptions{})
	if err == nil {
		t.Fatal("expected error for empty channel")
	}
	if !strings.Contains(err.Error(), "channel is required") {
		t.Errorf("error = %q", err)
	}
}

func TestNewTelegram_InvalidChannel(t *testing.T) {
	_, err := NewTelegram("news/1", TelegramOptions{})
	if err == nil {
		t.Fatal("expected error for channel with slash")
	}
}

func TestNewTelegram_StripsAt(t *testing.T) {
	ts, err := NewTelegram("@news", TelegramOptions{})
	if err != nil {
		t.Fatalf("new telegram: %v", err)
	}
	if ts.channel != "news" {
		t.Errorf("channel = %q, want news", ts.channel)
	}
	if ts.Name() != "telegram" {
		t.Errorf("name = %q, want telegram", ts.Name())
	}
	if got := ts.pageURL(0); got != "https://t.me/s/news" {
		t.Errorf("page url = %q", got)
	}
	if got := ts.pageURL(42); got != "https://t.me/s/news?before=42" {
		t.Errorf("page url = %q", got)
	}
}

func TestTelegramSource_Fetch(t *testing.T) {
	var gotPath, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUA = r.Header.Get("User-Agent")
		_, _ = fmt.Fprint(w, pageHTML(
			messageHTML("news", 11, "newest"),
			messageHTML("news", 10, "older"),
		))
	}))
	defer srv.Close()

	ts, err := NewTelegram("news", TelegramOptions{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new telegram: %v", err)
	}

	posts, err := ts.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if gotPath != "/s/news" {
		t.Errorf("path = %q, want /s/news", gotPath)
	}
	if !strings.Contains(gotUA, "chansync") {
		t.Errorf("user agent = %q", gotUA)
	}
	if len(posts) != 2 {
		t.Fatalf("got %d posts, want 2", len(posts))
	}
	if posts[0].Text != "newest" || posts[1].Text != "older" {
		t.Errorf("order = [%q %q], want page order", posts[0].Text, posts[1].Text)
	}
}

func TestTelegramSource_FetchStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ts, _ := NewTelegram("news", TelegramOptions{BaseURL: srv.URL})
	_, err := ts.Fetch(context.Background())
	if err == nil {
		t.Fatal("expected error for 502")
	}

	var ferr *FetchError
	if !errors.As(err, &ferr) {
		t.Fatalf("error type = %T, want *FetchError", err)
	}
	if ferr.Status != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", ferr.Status)
	}
	if !strings.Contains(err.Error(), "status 502") {
		t.Errorf("error = %q", err)
	}
}

func TestTelegramSource_FetchTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	ts, _ := NewTelegram("news", TelegramOptions{BaseURL: url, Timeout: time.Second})
	_, err := ts.Fetch(context.Background())

	var ferr *FetchError
	if !errors.As(err, &ferr) {
		t.Fatalf("error = %v, want *FetchError", err)
	}
	if ferr.Status != 0 {
		t.Errorf("status = %d, want 0 for transport failure", ferr.Status)
	}
}

func TestTelegramSource_FetchPages(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		switch r.URL.Query().Get("before") {
		case "":
			_, _ = fmt.Fprint(w, pageHTML(messageHTML("news", 21, "p21"), messageHTML("news", 20, "p20")))
		case "20":
			_, _ = fmt.Fprint(w, pageHTML(messageHTML("news", 19, "p19"), messageHTML("news", 20, "p20")))
		default:
			t.Errorf("unexpected before=%q", r.URL.Query().Get("before"))
		}
	}))
	defer srv.Close()

	ts, _ := NewTelegram("news", TelegramOptions{
		BaseURL:   srv.URL,
		MaxPages:  2,
		PageDelay: time.Millisecond,
	})

	posts, err := ts.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if requests.Load() != 2 {
		t.Errorf("requests = %d, want 2", requests.Load())
	}

	var ids []string
	for _, p := range posts {
		ids = append(ids, p.ExternalID)
	}
	if strings.Join(ids, ",") != "21,20,19" {
		t.Errorf("ids = %v, want [21 20 19] without duplicates", ids)
	}
}

func TestTelegramSource_FetchStopsOnEmptyPage(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		_, _ = fmt.Fprint(w, pageHTML())
	}))
	defer srv.Close()

	ts, _ := NewTelegram("news", TelegramOptions{BaseURL: srv.URL, MaxPages: 5, PageDelay: time.Millisecond})
	posts, err := ts.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(posts) != 0 {
		t.Errorf("got %d posts, want 0", len(posts))
	}
	if requests.Load() != 1 {
		t.Errorf("requests = %d, want 1", requests.Load())
	}
}

func TestMessageID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://t.me/news/123", "123"},
		{"https://t.me/news/123?single", "123"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := messageID(tt.in); got != tt.want {
			t.Errorf("messageID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
