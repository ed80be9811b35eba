// Package sources implements one adapter per external disclosure origin.
// Every adapter speaks the shared HTTP protocol from internal/httpclient and
// yields opaque raw records for the cleaning stage.
package sources

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"disclosure-lab/internal/artifacts"
	"disclosure-lab/internal/domain"
)

// ErrBlocked signals a WAF-blocked session. The orchestrator falls back to
// the browser driver when a source returns it.
var ErrBlocked = errors.New("sources: request blocked by waf")

// Source is one external disclosure origin.
type Source interface {
	Name() string
	// Fetch returns raw records covering the lookback window. params carries
	// source-specific options such as {"year": "2024"}.
	Fetch(ctx context.Context, lookbackDays int, params map[string]string) ([]*domain.RawDisclosure, error)
}

// BatchSource is implemented by adapters that support paged fetching.
type BatchSource interface {
	Source
	FetchBatch(ctx context.Context, offset, limit, lookbackDays int) ([]*domain.RawDisclosure, error)
}

// Archivable is implemented by adapters that persist the payloads they fetch.
type Archivable interface {
	AttachArchiver(m *artifacts.Manager)
}

// BrowserCapable adapters can replay their fetch through a driven browser
// after the plain HTTP path returned ErrBlocked.
type BrowserCapable interface {
	FetchViaBrowser(ctx context.Context, session *BrowserSession, lookbackDays int) ([]*domain.RawDisclosure, error)
}

// Config carries per-adapter settings.
type Config struct {
	Name         string
	SourceType   string
	BaseURL      string
	RequestDelay time.Duration
	MaxRetries   int
	Timeout      time.Duration
	Headers      map[string]string
	Params       map[string]string
	APIKey       string
	DownloadPDFs bool
	Logger       *zap.Logger
}

func (c *Config) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// registry maps source types to adapter constructors.
var registry = map[string]func(Config) (Source, error){
	domain.SourceUSHouse.String():      func(cfg Config) (Source, error) { return NewHouseAdapter(cfg) },
	domain.SourceUSSenate.String():     func(cfg Config) (Source, error) { return NewSenateAdapter(cfg) },
	domain.SourceUKParliament.String(): func(cfg Config) (Source, error) { return NewUKParliamentAdapter(cfg) },
	domain.SourceEUParliament.String(): func(cfg Config) (Source, error) { return NewEuroparlAdapter(cfg) },
	domain.SourceQuiverQuant.String():  func(cfg Config) (Source, error) { return NewQuiverQuantAdapter(cfg) },
	domain.SourceCalifornia.String():   func(cfg Config) (Source, error) { return NewStateRegistryAdapter(domain.SourceCalifornia.String(), cfg) },
	domain.SourceNewYork.String():      func(cfg Config) (Source, error) { return NewStateRegistryAdapter(domain.SourceNewYork.String(), cfg) },
	domain.SourceTexas.String():        func(cfg Config) (Source, error) { return NewStateRegistryAdapter(domain.SourceTexas.String(), cfg) },
}

// New constructs the adapter registered for sourceType.
func New(sourceType string, cfg Config) (Source, error) {
	ctor, ok := registry[sourceType]
	if !ok {
		return nil, fmt.Errorf("unknown source type %q", sourceType)
	}
	if cfg.SourceType == "" {
		cfg.SourceType = sourceType
	}
	return ctor(cfg)
}

// Types returns the registered source types, sorted.
func Types() []string {
	out := make([]string, 0, len(registry))
	for t := range registry {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
