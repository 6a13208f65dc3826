package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/chansync/internal/block"
	"github.com/ppiankov/chansync/internal/config"
	"github.com/ppiankov/chansync/internal/docs"
	"github.com/ppiankov/chansync/internal/logging"
)

const doctorTimeout = 30 * time.Second

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration, credentials, document and channel access",
	RunE:  doctorAction,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func doctorAction(cmd *cobra.Command, _ []string) error {
	ok := true

	// Config dir
	if info, err := os.Stat(configDir); err != nil || !info.IsDir() {
		printCheck(false, "config directory %s", configDir)
		ok = false
	} else {
		printCheck(true, "config directory %s", configDir)
	}

	// Config
	cfg, err := config.Load(configDir)
	if err != nil {
		printCheck(false, "config: %v", err)
		return fmt.Errorf("some checks failed")
	}
	printCheck(true, "config (channel %s, document %s, %d exclude tags, retention %s)",
		cfg.Channel, cfg.DocumentID, len(cfg.ExcludeTags), cfg.Retention.Duration)

	ctx, cancel := context.WithTimeout(cmd.Context(), doctorTimeout)
	defer cancel()

	// Credentials and document
	doc, err := connectDocument(ctx, cfg)
	if err != nil {
		printCheck(false, "document access: %v", err)
		ok = false
	} else if content, err := doc.Fetch(ctx); err != nil {
		printCheck(false, "document %s: %v", cfg.DocumentID, err)
		ok = false
	} else {
		printCheck(true, "document %s %q at %s (%d paragraphs, %d upload blocks)",
			cfg.DocumentID, content.Title, content.RevisionID, len(content.Paragraphs()), countMarkers(content, cfg))
	}

	// Channel
	src, err := newSource(cfg, logging.Discard())
	if err != nil {
		printCheck(false, "source: %v", err)
		ok = false
	} else if posts, err := src.Fetch(ctx); err != nil {
		printCheck(false, "%s source: %v", src.Name(), err)
		ok = false
	} else {
		printCheck(true, "%s source %s (%d posts)", src.Name(), cfg.Channel, len(posts))
		if len(posts) == 0 {
			printInfo("no posts parsed: the channel may be private or the page layout changed")
		}
	}

	if !ok {
		return fmt.Errorf("some checks failed")
	}
	fmt.Println("\nAll checks passed.")
	return nil
}

func countMarkers(content *docs.Content, cfg *config.Config) int {
	n := 0
	for _, el := range content.Paragraphs() {
		if _, found, _ := block.ParseMarker(el.Text(), cfg.Location); found {
			n++
		}
	}
	return n
}

func printCheck(pass bool, format string, args ...any) {
	mark := "FAIL"
	if pass {
		mark = " OK "
	}
	fmt.Printf("[%s] %s\n", mark, fmt.Sprintf(format, args...))
}

func printInfo(format string, args ...any) {
	fmt.Printf("[INFO] %s\n", fmt.Sprintf(format, args...))
}
