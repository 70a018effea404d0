package cmd

import (
	"context"
	"errors"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/HerrChaos/obsidian-waka-box/internal/config"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Fetch today once, then keep refreshing every refresh_interval minutes",
	Long: `Run in the foreground: fetch today's summary (cache-first), then refetch it
every refresh_interval minutes until interrupted. Edits to config.json are
picked up while running.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	w, err := config.NewWatcher(a.store, a.logger)
	if err != nil {
		a.logger.Warn("config watcher unavailable, edits need a restart", "err", err)
	} else {
		w.Start()
		defer w.Stop()
	}

	// A missing key was already notified; run the startup fetch once a key
	// shows up.
	err = a.policy.Ready(ctx)
	if errors.Is(err, config.ErrMissingAPIKey) {
		var once sync.Once
		a.store.Subscribe(func(s config.Settings) {
			if s.RequireAPIKey() == nil {
				once.Do(func() { go a.policy.Ready(ctx) })
			}
		})
	} else if err != nil {
		return err
	}
	a.logger.Info("watching", "config", a.store.Path())

	if err := a.policy.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
