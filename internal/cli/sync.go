package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/ppiankov/chansync/internal/block"
	"github.com/ppiankov/chansync/internal/config"
	"github.com/ppiankov/chansync/internal/docs"
	"github.com/ppiankov/chansync/internal/filter"
	"github.com/ppiankov/chansync/internal/logging"
	"github.com/ppiankov/chansync/internal/prune"
	"github.com/ppiankov/chansync/internal/source"
	"github.com/ppiankov/chansync/internal/syncer"
)

const defaultPreviewWidth = 100

var syncDryRun bool

var syncCmd = &cobra.Command{
	Use:     "sync",
	Aliases: []string{"run"},
	Short:   "Run one synchronization of the channel into the document",
	RunE:    syncAction,
}

func init() {
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "read everything but do not edit the document")
	rootCmd.AddCommand(syncCmd)
}

// logOutput is where run logs go. Tests swap it.
var logOutput io.Writer = os.Stderr

// connectDocument opens the target document. Tests swap it for an in-memory
// document.
var connectDocument = defaultConnectDocument

func defaultConnectDocument(ctx context.Context, cfg *config.Config) (syncer.Document, error) {
	var (
		creds *docs.Credentials
		err   error
	)
	if len(cfg.Credentials) == 0 && cfg.CredentialsFile != "" {
		creds, err = docs.LoadCredentialsFile(ctx, cfg.CredentialsFile)
	} else {
		creds, err = docs.LoadCredentials(ctx, cfg.Credentials)
	}
	if err != nil {
		return nil, err
	}
	return docs.Connect(ctx, cfg.DocumentID, creds, cfg.Docs.Endpoint)
}

func syncAction(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(logOutput, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}

	src, err := newSource(cfg, logger)
	if err != nil {
		return fmt.Errorf("create source: %w", err)
	}

	s := &syncer.Syncer{
		Connect: func(ctx context.Context) (syncer.Document, error) {
			return connectDocument(ctx, cfg)
		},
		Source:   src,
		Tags:     filter.NewTags(cfg.ExcludeTags),
		Pruner:   prune.New(cfg.Retention.Duration, cfg.Location, logger.WithPrefix("prune")),
		Location: cfg.Location,
		Logger:   logger,
		DryRun:   syncDryRun,
	}

	logger.Info("starting run",
		"channel", cfg.Channel,
		"document", cfg.DocumentID,
		"source", src.Name(),
		"exclude_tags", s.Tags.List(),
		"dry_run", syncDryRun,
	)

	rep, err := s.Run(cmd.Context())
	if err != nil {
		// Already logged with its stage. A failed run is not a process failure.
		return nil
	}

	if syncDryRun {
		printDryRun(os.Stdout, rep, previewWidth())
	}
	return nil
}

func newSource(cfg *config.Config, logger *log.Logger) (source.Source, error) {
	switch cfg.Source.Mode {
	case "feed":
		return source.NewFeed(cfg.Channel, cfg.Source.FeedURL, cfg.Source.Timeout.Duration)
	default:
		return source.NewTelegram(cfg.Channel, source.TelegramOptions{
			BaseURL:   cfg.Source.BaseURL,
			Timeout:   cfg.Source.Timeout.Duration,
			MaxPages:  cfg.Source.MaxPages,
			PageDelay: cfg.Source.PageDelay.Duration,
			Logger:    logger.WithPrefix("source"),
		})
	}
}

func printDryRun(w io.Writer, rep syncer.Report, width int) {
	_, _ = fmt.Fprintf(w, "Dry run: %d fetched, %d already recorded, %d excluded\n",
		rep.Fetched, rep.Duplicates, rep.Excluded)

	if !rep.PrunedFrom.IsZero() {
		_, _ = fmt.Fprintf(w, "Would prune blocks from %s onward\n", rep.PrunedFrom.Format(block.DateLayout))
	}
	for _, warn := range rep.Warnings {
		_, _ = fmt.Fprintf(w, "warning: %v\n", warn)
	}

	if rep.Block == "" {
		_, _ = fmt.Fprintln(w, "No new posts.")
		return
	}

	_, _ = fmt.Fprintln(w, "Would insert:")
	_, _ = fmt.Fprintln(w)
	for _, line := range strings.Split(strings.TrimRight(rep.Block, "\n"), "\n") {
		_, _ = fmt.Fprintln(w, runewidth.Truncate(line, width, "…"))
	}
}

func previewWidth() int {
	if n, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && n > 0 {
		return n
	}
	return defaultPreviewWidth
}
