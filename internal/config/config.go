// Package config loads pipeline configuration from the environment with an
// optional YAML overlay for per-source overrides.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the resolved process configuration.
type Config struct {
	// DatabaseURL is the Postgres DSN. Resolved from DATABASE_URL, or from
	// SUPABASE_URL + SUPABASE_SERVICE_ROLE_KEY / SUPABASE_ANON_KEY.
	DatabaseURL string `yaml:"database_url"`

	// ClickHouseDSN enables the run-metrics history store when set.
	ClickHouseDSN string `yaml:"clickhouse_dsn"`

	LogLevel string `yaml:"log_level"`

	QuiverQuantAPIKey string `yaml:"quiverquant_api_key"`

	// BrowserDevtoolsURL is the DevTools websocket endpoint of a headless
	// browser, e.g. the webSocketDebuggerUrl of a page target on
	// localhost:9222. Enables the fallback path for WAF-blocked sources.
	BrowserDevtoolsURL string `yaml:"browser_devtools_url"`

	// Blob storage. When S3Bucket is empty, artifacts go to BlobDir on the
	// local filesystem.
	S3Bucket    string `yaml:"s3_bucket"`
	S3Region    string `yaml:"s3_region"`
	BlobDir     string `yaml:"blob_dir"`
	MetricsAddr string `yaml:"metrics_addr"`

	// Sources holds per-source overrides keyed by source type.
	Sources map[string]SourceOverrides `yaml:"sources"`

	// Pipeline stage toggles.
	RemoveDuplicates bool `yaml:"remove_duplicates"`
	StrictValidation bool `yaml:"strict_validation"`
	SkipDuplicates   bool `yaml:"skip_duplicates"`
	UpdateExisting   bool `yaml:"update_existing"`
	ArchiveRaw       bool `yaml:"archive_raw"`
}

// SourceOverrides adjusts adapter behavior for one source.
type SourceOverrides struct {
	BaseURL             string  `yaml:"base_url"`
	LookbackDays        int     `yaml:"lookback_days"`
	RequestDelaySeconds float64 `yaml:"request_delay_seconds"`
	MaxRetries          int     `yaml:"max_retries"`
	TimeoutSeconds      int     `yaml:"timeout_seconds"`
	DownloadPDFs        bool    `yaml:"download_pdfs"`
}

// ErrMissingDatabaseURL indicates no usable Postgres DSN was configured.
var ErrMissingDatabaseURL = errors.New("missing database url: set DATABASE_URL or SUPABASE_URL with a key")

// Load resolves configuration from the environment, then applies the YAML
// file at path when non-empty. A missing database DSN is fatal for callers
// that persist; Load itself does not enforce it so read-only tools can reuse it.
func Load(path string) (*Config, error) {
	cfg := &Config{
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		ClickHouseDSN:      os.Getenv("CLICKHOUSE_DSN"),
		LogLevel:           os.Getenv("LOG_LEVEL"),
		QuiverQuantAPIKey:  os.Getenv("QUIVERQUANT_API_KEY"),
		BrowserDevtoolsURL: os.Getenv("BROWSER_DEVTOOLS_URL"),
		S3Bucket:           os.Getenv("S3_BUCKET"),
		S3Region:           os.Getenv("S3_REGION"),
		BlobDir:            os.Getenv("BLOB_DIR"),
		MetricsAddr:        ":9090",
		RemoveDuplicates:   true,
		SkipDuplicates:     true,
		ArchiveRaw:         true,
	}

	// Supabase-style environments supply the DSN via SUPABASE_URL plus a key.
	if cfg.DatabaseURL == "" {
		if u := os.Getenv("SUPABASE_URL"); u != "" {
			key := os.Getenv("SUPABASE_SERVICE_ROLE_KEY")
			if key == "" {
				key = os.Getenv("SUPABASE_ANON_KEY")
			}
			if key != "" {
				cfg.DatabaseURL = fmt.Sprintf("%s?apikey=%s", u, key)
			}
		}
	}

	if cfg.BlobDir == "" {
		cfg.BlobDir = "artifacts"
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	return cfg, nil
}

// RequireDatabase returns ErrMissingDatabaseURL when no DSN is configured.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return ErrMissingDatabaseURL
	}
	return nil
}
