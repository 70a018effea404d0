// Package cache persists fetched summaries keyed by date so repeated
// requests within the freshness window never touch the network.
package cache

import (
	"log/slog"
	"time"

	"github.com/HerrChaos/obsidian-waka-box/internal/model"
)

// FreshnessWindow is the maximum age of a usable entry.
const FreshnessWindow = time.Hour

// Store is a best-effort summary cache. Load and Save never fail from the
// caller's point of view: problems are logged and surface as a miss or a
// dropped write.
type Store interface {
	// EnsureReady (re)creates the backing directory. Every other method
	// calls it first.
	EnsureReady() error
	// Load returns the entry for key if it exists, is younger than the
	// freshness window and decodes cleanly.
	Load(key string) (*model.Summary, bool)
	// Save writes the summary for key, replacing any previous entry.
	Save(key string, summary *model.Summary)
	// Keys lists stored keys regardless of freshness.
	Keys() ([]string, error)
	// Clear removes every entry.
	Clear() error
	Close() error
}

type options struct {
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// Option customises a store.
type Option func(*options)

// WithClock replaces time.Now, for freshness checks in tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithTTL overrides FreshnessWindow.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) { o.ttl = ttl }
}

// WithLogger sets the logger used for swallowed errors.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func buildOptions(opts []Option) options {
	o := options{ttl: FreshnessWindow, now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// fresh reports whether an entry written at written is still usable at now.
func fresh(written, now time.Time, ttl time.Duration) bool {
	return now.Sub(written) < ttl
}
