// Package cli provides the command-line interface for chansync.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ppiankov/chansync/internal/config"
)

// Version and Commit are set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)

var configDir string

var rootCmd = &cobra.Command{
	Use:   "chansync",
	Short: "Mirror a public channel into a Google Doc",
	Long: "chansync reads the public preview of a channel, skips posts already recorded or tagged as excluded, " +
		"and prepends the rest to a Google Doc as a dated upload block. Blocks older than the retention window are removed.",
	SilenceUsage:      true,
	PersistentPreRunE: loadEnvFile,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("chansync %s (%s)\n", Version, Commit)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", ".", "directory holding config.yaml and .env")
	rootCmd.AddCommand(versionCmd)
}

// loadEnvFile reads <config>/.env into the environment. Variables already set
// win over the file, and a missing file is not an error.
func loadEnvFile(_ *cobra.Command, _ []string) error {
	path := filepath.Join(configDir, config.DefaultEnvFile)
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ExecuteContext runs the root command with ctx available to subcommands.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
