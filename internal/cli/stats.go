package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/chansync/internal/block"
	"github.com/ppiankov/chansync/internal/config"
	"github.com/ppiankov/chansync/internal/docs"
)

var statsFormat string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the upload blocks currently in the document",
	RunE:  statsAction,
}

func init() {
	statsCmd.Flags().StringVar(&statsFormat, "format", "terminal", "output format: terminal, json")
	rootCmd.AddCommand(statsCmd)
}

func statsAction(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := cmd.Context()
	doc, err := connectDocument(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect document: %w", err)
	}
	content, err := doc.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch document: %w", err)
	}

	blocks := block.Scan(paragraphLines(content), cfg.Location)
	now := time.Now().In(cfg.Location)

	switch statsFormat {
	case "json":
		return printStatsJSON(os.Stdout, blocks, now, cfg.Retention.Duration)
	case "terminal", "":
		printStats(os.Stdout, blocks, now, cfg.Retention.Duration)
		return nil
	default:
		return fmt.Errorf("unknown format %q (want terminal or json)", statsFormat)
	}
}

func paragraphLines(content *docs.Content) []string {
	paras := content.Paragraphs()
	lines := make([]string, 0, len(paras))
	for _, el := range paras {
		lines = append(lines, el.Text())
	}
	return lines
}

type jsonStatsOutput struct {
	Blocks  []jsonBlockStats `json:"blocks"`
	Entries int              `json:"entries"`
	Expired int              `json:"expired"`
}

type jsonBlockStats struct {
	Date    string `json:"date,omitempty"`
	Marker  string `json:"marker"`
	Entries int    `json:"entries"`
	AgeDays int    `json:"age_days"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
}

const (
	statusKept    = "kept"
	statusExpired = "expired"
	statusInvalid = "invalid"
)

func blockStatus(b block.Info, cutoff time.Time) string {
	switch {
	case b.Err != nil:
		return statusInvalid
	case b.Date.Before(cutoff):
		return statusExpired
	default:
		return statusKept
	}
}

func ageDays(b block.Info, now time.Time) int {
	if b.Err != nil {
		return 0
	}
	return int(now.Sub(b.Date).Hours() / 24)
}

func printStatsJSON(w io.Writer, blocks []block.Info, now time.Time, retention time.Duration) error {
	cutoff := now.Add(-retention)
	out := jsonStatsOutput{Blocks: make([]jsonBlockStats, 0, len(blocks))}

	for _, b := range blocks {
		js := jsonBlockStats{
			Marker:  b.Marker,
			Entries: b.Entries,
			AgeDays: ageDays(b, now),
			Status:  blockStatus(b, cutoff),
		}
		if b.Err != nil {
			js.Error = b.Err.Error()
		} else {
			js.Date = b.Date.Format(block.DateLayout)
		}
		if js.Status == statusExpired {
			out.Expired++
		}
		out.Entries += b.Entries
		out.Blocks = append(out.Blocks, js)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func printStats(w io.Writer, blocks []block.Info, now time.Time, retention time.Duration) {
	if len(blocks) == 0 {
		_, _ = fmt.Fprintln(w, "No upload blocks found. Run 'chansync sync' first.")
		return
	}

	cutoff := now.Add(-retention)
	total := 0
	for _, b := range blocks {
		total += b.Entries
	}

	_, _ = fmt.Fprintf(w, "chansync stats: %d posts in %d blocks, retention %s\n\n",
		total, len(blocks), formatStatsDuration(retention))

	_, _ = fmt.Fprintf(w, "  %-10s  %7s  %4s  %s\n", "Date", "Entries", "Age", "Status")
	var expired, invalid []block.Info
	for _, b := range blocks {
		date := "??.??.????"
		if b.Err == nil {
			date = b.Date.Format(block.DateLayout)
		}
		status := blockStatus(b, cutoff)
		_, _ = fmt.Fprintf(w, "  %-10s  %7d  %3dd  %s\n", date, b.Entries, ageDays(b, now), status)

		switch status {
		case statusExpired:
			expired = append(expired, b)
		case statusInvalid:
			invalid = append(invalid, b)
		}
	}
	_, _ = fmt.Fprintln(w)

	if len(expired) > 0 {
		_, _ = fmt.Fprintf(w, "--- Expired (removed on next sync from %s) ---\n\n", expired[0].Date.Format(block.DateLayout))
	}
	if len(invalid) > 0 {
		_, _ = fmt.Fprintln(w, "--- Unparseable markers (never pruned) ---")
		_, _ = fmt.Fprintln(w)
		for _, b := range invalid {
			_, _ = fmt.Fprintf(w, "  %s\n", b.Marker)
		}
		_, _ = fmt.Fprintln(w)
	}
}

func formatStatsDuration(d time.Duration) string {
	hours := int(d.Hours())
	if hours >= 24 && hours%24 == 0 {
		return fmt.Sprintf("%d days", hours/24)
	}
	return fmt.Sprintf("%dh", hours)
}
