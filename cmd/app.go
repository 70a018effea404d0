package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/HerrChaos/obsidian-waka-box/internal/cache"
	"github.com/HerrChaos/obsidian-waka-box/internal/config"
	"github.com/HerrChaos/obsidian-waka-box/internal/notes"
	"github.com/HerrChaos/obsidian-waka-box/internal/notify"
	"github.com/HerrChaos/obsidian-waka-box/internal/schedule"
	"github.com/HerrChaos/obsidian-waka-box/internal/summary"
	"github.com/HerrChaos/obsidian-waka-box/internal/wakatime"
)

// app holds the components shared by every command.
type app struct {
	logger    *slog.Logger
	store     *config.Store
	cache     cache.Store
	summaries *summary.Service
	notifier  notify.Notifier
	policy    *schedule.Policy
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: parseLevel(level)}))
}

// openStore loads the settings with a logger built from the flag or, once
// the file is read, from log_level.
func openStore() (*config.Store, *slog.Logger, error) {
	bootstrap := newLogger(os.Stderr, logLevel)
	store, err := config.Open(configPath, bootstrap)
	if err != nil {
		return nil, nil, err
	}
	level := logLevel
	if level == "" {
		level = store.Settings().LogLevel
	}
	return store, newLogger(os.Stderr, level), nil
}

func openCache(s config.Settings, configDir string, logger *slog.Logger) (cache.Store, error) {
	dir := s.CacheDir(configDir)
	switch s.Cache.Backend {
	case config.BackendBadger:
		store, err := cache.OpenBadger(dir, cache.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("opening badger cache %s: %w", dir, err)
		}
		return store, nil
	default:
		return cache.NewFileStore(dir, cache.WithLogger(logger)), nil
	}
}

func newFetcher(ctx context.Context, s config.Settings) *wakatime.Client {
	return wakatime.NewClient(ctx, wakatime.Options{
		BaseURL:           s.APIBaseURL,
		APIKey:            s.APIKey,
		AccessToken:       s.AccessToken,
		Timeout:           s.HTTPTimeout,
		RequestsPerMinute: s.RequestsPerMinute,
	})
}

// vaultFor returns the daily note store, or nil when no directory is set.
func vaultFor(s config.Settings) notes.Vault {
	dir := notesDir
	if dir == "" {
		dir = s.NotesDir
	}
	if dir == "" {
		return nil
	}
	return notes.NewDirVault(dir, s.DateFormat)
}

func newApp(ctx context.Context) (*app, error) {
	store, logger, err := openStore()
	if err != nil {
		return nil, err
	}
	s := store.Settings()

	c, err := openCache(s, store.Dir(), logger)
	if err != nil {
		return nil, err
	}

	a := &app{
		logger:   logger,
		store:    store,
		cache:    c,
		notifier: notify.NewWriter(os.Stderr),
	}
	a.summaries = summary.New(c, newFetcher(ctx, s), logger)
	a.policy = schedule.New(schedule.Options{
		Settings:  store.Settings,
		Summaries: a.summaries,
		Vault:     vaultFor(s),
		Notifier:  a.notifier,
		Logger:    logger,
	})

	// Later edits swap the API client and note store; the cache backend
	// stays as opened.
	store.Subscribe(func(next config.Settings) {
		a.summaries.SetFetcher(newFetcher(ctx, next))
		a.policy.SetVault(vaultFor(next))
		a.policy.SettingsChanged(next)
	})
	return a, nil
}

func (a *app) Close() {
	if err := a.cache.Close(); err != nil {
		a.logger.Warn("closing cache failed", "err", err)
	}
}
