package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/chansync/internal/config"
	"github.com/ppiankov/chansync/internal/docs/docstest"
	"github.com/ppiankov/chansync/internal/syncer"
)

func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	oldStdout := os.Stdout
	reader, writer, err := os.Pipe()
	if err != nil {
		t.Fatalf("open stdout pipe: %v", err)
	}

	os.Stdout = writer
	runErr := fn()
	_ = writer.Close()
	os.Stdout = oldStdout

	out, readErr := io.ReadAll(reader)
	_ = reader.Close()
	if readErr != nil {
		t.Fatalf("read stdout pipe: %v", readErr)
	}
	return string(out), runErr
}

func requireContains(t *testing.T, got, want string) {
	t.Helper()

	if !strings.Contains(got, want) {
		t.Fatalf("expected output to contain %q, got:\n%s", want, got)
	}
}

// clearEnv blanks the variables config.Load reads.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CHANNEL_NAME", "DOCUMENT_ID", "GOOGLE_APPLICATION_CREDENTIALS",
		config.DefaultCredentialsEnv, "TZ_NAME", "SOURCE_MODE", "FEED_URL",
		"LOG_LEVEL", "LOG_FORMAT", "EXCLUDE_TAGS", "RETENTION", "COLUMNS",
	} {
		t.Setenv(key, "")
	}
}

// setupCLI points the package at a temp config dir, a fake channel page and
// the given in-memory document. It returns the buffer run logs go to.
func setupCLI(t *testing.T, doc *docstest.Document, page string) *strings.Builder {
	t.Helper()
	clearEnv(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, page)
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	cfg := fmt.Sprintf(`channel: news
document_id: doc-1
exclude_tags: ["#Ads"]
source:
  base_url: %s
  timeout: 2s
  page_delay: 1ms
log:
  level: debug
`, srv.URL)
	if err := os.WriteFile(filepath.Join(dir, config.DefaultConfigFile), []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	logs := &strings.Builder{}
	oldConfigDir, oldConnect, oldLogOutput, oldDryRun := configDir, connectDocument, logOutput, syncDryRun
	t.Cleanup(func() {
		configDir, connectDocument, logOutput, syncDryRun = oldConfigDir, oldConnect, oldLogOutput, oldDryRun
	})

	configDir = dir
	logOutput = logs
	syncDryRun = false
	connectDocument = func(context.Context, *config.Config) (syncer.Document, error) {
		return doc, nil
	}
	return logs
}

func channelPage(posts ...[2]string) string {
	var sb strings.Builder
	sb.WriteString(`<html><body><section class="tgme_channel_history">`)
	for _, p := range posts {
		text := ""
		if p[1] != "" {
			text = `<div class="tgme_widget_message_text js-message_text">` + p[1] + `</div>`
		}
		fmt.Fprintf(&sb, `<div class="tgme_widget_message_wrap">%s
<a class="tgme_widget_message_date" href="https://t.me/news/%s"><time datetime="2026-10-17T09:30:00+00:00"></time></a></div>`,
			text, p[0])
	}
	sb.WriteString(`</section></body></html>`)
	return sb.String()
}
