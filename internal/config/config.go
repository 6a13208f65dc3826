package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigFile     = "config.yaml"
	DefaultEnvFile        = ".env"
	DefaultCredentialsEnv = "GOOGLE_APPLICATION_CREDENTIALS_JSON"
	DefaultRetention      = 7 * 24 * time.Hour
	DefaultTimezone       = "UTC"
	DefaultSourceMode     = "preview"
	DefaultBaseURL        = "https://t.me"
	DefaultSourceTimeout  = 10 * time.Second
	DefaultMaxPages       = 1
	DefaultPageDelay      = time.Second
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
)

// DefaultExcludeTags are the rubric tags skipped unless configured otherwise.
var DefaultExcludeTags = []string{"#События", "#ВекторыДня", "#ЕстьМнение"}

// Duration wraps time.Duration for YAML unmarshaling from strings like "24h".
// A bare number or a "d" suffix is read as days.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// ParseDuration accepts Go durations ("36h") and day counts ("7d", "7").
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	days := strings.TrimSuffix(s, "d")
	if n, err := strconv.Atoi(days); err == nil {
		return time.Duration(n) * 24 * time.Hour, nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return parsed, nil
}

type Config struct {
	Channel         string       `yaml:"channel"`
	DocumentID      string       `yaml:"document_id"`
	CredentialsEnv  string       `yaml:"credentials_env"`
	CredentialsFile string       `yaml:"credentials_file"`
	ExcludeTags     []string     `yaml:"exclude_tags"`
	Retention       Duration     `yaml:"retention"`
	Timezone        string       `yaml:"timezone"`
	Source          SourceConfig `yaml:"source"`
	Docs            DocsConfig   `yaml:"docs"`
	Log             LogConfig    `yaml:"log"`

	// Resolved at load time.
	Credentials []byte         `yaml:"-"`
	Location    *time.Location `yaml:"-"`
}

type SourceConfig struct {
	Mode      string   `yaml:"mode"`
	BaseURL   string   `yaml:"base_url"`
	FeedURL   string   `yaml:"feed_url"`
	Timeout   Duration `yaml:"timeout"`
	MaxPages  int      `yaml:"max_pages"`
	PageDelay Duration `yaml:"page_delay"`
}

type DocsConfig struct {
	Endpoint string `yaml:"endpoint"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config.yaml from dir when present, applies defaults, overlays
// environment variables, resolves credentials, and validates. The file is
// optional: a deployment may configure everything through the environment.
func Load(dir string) (*Config, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("config dir is required")
	}

	var cfg Config

	path := filepath.Join(dir, DefaultConfigFile)
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// environment only
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyDefaults(&cfg)
	if err := resolveEnv(&cfg); err != nil {
		return nil, fmt.Errorf("resolve env: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.CredentialsEnv == "" {
		cfg.CredentialsEnv = DefaultCredentialsEnv
	}
	if cfg.ExcludeTags == nil {
		cfg.ExcludeTags = append([]string(nil), DefaultExcludeTags...)
	}
	if cfg.Retention.Duration == 0 {
		cfg.Retention.Duration = DefaultRetention
	}
	if cfg.Timezone == "" {
		cfg.Timezone = DefaultTimezone
	}
	if cfg.Source.Mode == "" {
		cfg.Source.Mode = DefaultSourceMode
	}
	if cfg.Source.BaseURL == "" {
		cfg.Source.BaseURL = DefaultBaseURL
	}
	if cfg.Source.Timeout.Duration == 0 {
		cfg.Source.Timeout.Duration = DefaultSourceTimeout
	}
	if cfg.Source.MaxPages == 0 {
		cfg.Source.MaxPages = DefaultMaxPages
	}
	if cfg.Source.PageDelay.Duration == 0 {
		cfg.Source.PageDelay.Duration = DefaultPageDelay
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}

// resolveEnv overlays environment variables on top of the file values.
func resolveEnv(cfg *Config) error {
	setString(&cfg.Channel, "CHANNEL_NAME")
	setString(&cfg.DocumentID, "DOCUMENT_ID")
	setString(&cfg.CredentialsFile, "GOOGLE_APPLICATION_CREDENTIALS")
	setString(&cfg.Timezone, "TZ_NAME")
	setString(&cfg.Source.Mode, "SOURCE_MODE")
	setString(&cfg.Source.FeedURL, "FEED_URL")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Format, "LOG_FORMAT")

	if v, ok := lookup("EXCLUDE_TAGS"); ok {
		cfg.ExcludeTags = splitAndTrim(v)
	}
	if v, ok := lookup("RETENTION"); ok {
		d, err := ParseDuration(v)
		if err != nil {
			return fmt.Errorf("RETENTION: %w", err)
		}
		cfg.Retention.Duration = d
	}

	// Inline JSON wins over a key file. The file is read when the document is
	// opened so that a bad key surfaces as a credential failure of the run.
	if v, ok := lookup(cfg.CredentialsEnv); ok {
		cfg.Credentials = []byte(v)
	}

	return nil
}

func validate(cfg *Config) error {
	cfg.Channel = strings.TrimPrefix(strings.TrimSpace(cfg.Channel), "@")
	if cfg.Channel == "" {
		return errors.New("channel: required (set channel or CHANNEL_NAME)")
	}
	if strings.TrimSpace(cfg.DocumentID) == "" {
		return errors.New("document_id: required (set document_id or DOCUMENT_ID)")
	}
	if cfg.Retention.Duration <= 0 {
		return fmt.Errorf("retention: must be positive, got %s", cfg.Retention.Duration)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("timezone: %w", err)
	}
	cfg.Location = loc

	switch cfg.Source.Mode {
	case "preview":
	case "feed":
		if strings.TrimSpace(cfg.Source.FeedURL) == "" {
			return errors.New("source.feed_url: required when source.mode is feed")
		}
	default:
		return fmt.Errorf("source.mode: unknown mode %q (want preview or feed)", cfg.Source.Mode)
	}
	if cfg.Source.MaxPages < 1 {
		return fmt.Errorf("source.max_pages: must be at least 1, got %d", cfg.Source.MaxPages)
	}
	if cfg.Source.Timeout.Duration < 0 || cfg.Source.PageDelay.Duration < 0 {
		return errors.New("source: timeout and page_delay cannot be negative")
	}

	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level: unknown level %q", cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case "text", "json", "logfmt":
	default:
		return fmt.Errorf("log.format: unknown format %q (want text, json or logfmt)", cfg.Log.Format)
	}

	return nil
}

func lookup(key string) (string, bool) {
	if key == "" {
		return "", false
	}
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

func setString(dst *string, key string) {
	if v, ok := lookup(key); ok {
		*dst = strings.TrimSpace(v)
	}
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
