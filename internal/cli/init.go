package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ppiankov/chansync/internal/config"
)

const envExampleFile = ".env.example"

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config directory with example files",
	RunE:  initAction,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func initAction(_ *cobra.Command, _ []string) error {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	created := 0

	configPath := filepath.Join(configDir, config.DefaultConfigFile)
	wrote, err := writeIfNotExists(configPath, []byte(exampleConfig), 0o644)
	if err != nil {
		return err
	}
	if wrote {
		created++
	}

	envPath := filepath.Join(configDir, envExampleFile)
	wrote, err = writeIfNotExists(envPath, []byte(exampleEnv), 0o600)
	if err != nil {
		return err
	}
	if wrote {
		created++
	}

	if created == 0 {
		fmt.Printf("Config directory %s already initialized.\n", configDir)
	} else {
		fmt.Printf("Initialized %s with %d config files.\n", configDir, created)
	}
	return nil
}

// writeIfNotExists writes data to path if the file does not exist.
// Returns true if the file was created.
func writeIfNotExists(path string, data []byte, perm os.FileMode) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		fmt.Printf("  exists: %s\n", path)
		return false, nil
	}
	if err := os.WriteFile(path, data, perm); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Printf("  created: %s\n", path)
	return true, nil
}

const exampleConfig = `# chansync configuration
# Environment variables (or .env next to this file) override these values.

channel: "@your_channel_here"   # CHANNEL_NAME
document_id: ""                 # DOCUMENT_ID

# Service-account key: inline JSON in this variable, or a key file.
credentials_env: GOOGLE_APPLICATION_CREDENTIALS_JSON
# credentials_file: /path/to/service-account.json

exclude_tags:                   # EXCLUDE_TAGS, comma separated
  - "#События"
  - "#ВекторыДня"
  - "#ЕстьМнение"

retention: 7d                   # RETENTION
timezone: "UTC"                 # TZ_NAME

source:
  mode: preview                 # preview or feed
  base_url: https://t.me
  # feed_url: https://rsshub.app/telegram/channel/your_channel_here
  timeout: 10s
  max_pages: 1
  page_delay: 1s

log:
  level: info                   # debug, info, warn, error
  format: text                  # text, json, logfmt
`

const exampleEnv = `# Copy to .env and fill in.
CHANNEL_NAME=your_channel_here
DOCUMENT_ID=
GOOGLE_APPLICATION_CREDENTIALS_JSON=
# GOOGLE_APPLICATION_CREDENTIALS=/path/to/service-account.json
# EXCLUDE_TAGS=#События,#ВекторыДня,#ЕстьМнение
# LOG_LEVEL=debug
`
