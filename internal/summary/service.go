// Package summary decides between the cache and the WakaTime API for a
// requested day.
package summary

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/HerrChaos/obsidian-waka-box/internal/cache"
	"github.com/HerrChaos/obsidian-waka-box/internal/model"
)

// Fetcher retrieves a summary from the remote API.
type Fetcher interface {
	FetchSummary(ctx context.Context, date string) (*model.Summary, error)
}

// Result is the outcome of GetSummary. Summary is nil exactly when Err is
// set.
type Result struct {
	Date      string
	Summary   *model.Summary
	FromCache bool
	Err       error
}

// OK reports whether a summary is present.
func (r Result) OK() bool { return r.Summary != nil }

// Service serves summaries cache-first with write-through. Concurrent
// requests for the same day and force flag share one in-flight operation.
type Service struct {
	store  cache.Store
	logger *slog.Logger
	group  singleflight.Group

	mu      sync.RWMutex
	fetcher Fetcher
}

// New returns a Service reading through store and fetching with fetcher.
func New(store cache.Store, fetcher Fetcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, fetcher: fetcher, logger: logger}
}

// SetFetcher swaps the remote client, e.g. after the API key changed.
// Requests already in flight keep the previous one.
func (s *Service) SetFetcher(f Fetcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetcher = f
}

func (s *Service) currentFetcher() Fetcher {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetcher
}

// GetSummary returns the summary for date. Without force a fresh cache
// entry is returned with FromCache set and no network access. With force,
// or on a miss, the API is called and a successful result is written to the
// cache before returning.
//
// Cancelling ctx stops this caller from waiting; the shared operation runs
// to completion for everyone else.
func (s *Service) GetSummary(ctx context.Context, date string, force bool) Result {
	key := date
	if force {
		key = "force\x00" + date
	}

	detached := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (any, error) {
		return s.resolve(detached, date, force), nil
	})

	select {
	case r := <-ch:
		if r.Shared {
			s.logger.Debug("joined in-flight summary request", "date", date, "force", force)
		}
		return r.Val.(Result)
	case <-ctx.Done():
		return Result{Date: date, Err: ctx.Err()}
	}
}

// Fetch is GetSummary delivered on a channel that receives exactly one
// Result.
func (s *Service) Fetch(ctx context.Context, date string, force bool) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		out <- s.GetSummary(ctx, date, force)
	}()
	return out
}

func (s *Service) resolve(ctx context.Context, date string, force bool) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			res = Result{Date: date, Err: fmt.Errorf("summary request for %s panicked: %v", date, p)}
			s.logger.Error("error requesting WakaTime summary", "date", date, "err", res.Err)
		}
	}()

	if !force {
		if cached, ok := s.store.Load(date); ok {
			s.logger.Info("success request from cache", "date", date)
			return Result{Date: date, Summary: cached, FromCache: true}
		}
	}

	fetcher := s.currentFetcher()
	if fetcher == nil {
		return Result{Date: date, Err: fmt.Errorf("no WakaTime client configured")}
	}

	s.logger.Info("start request", "date", date, "force", force)
	summary, err := fetcher.FetchSummary(ctx, date)
	if err != nil {
		s.logger.Error("error requesting WakaTime summary", "date", date, "err", err)
		return Result{Date: date, Err: err}
	}
	s.logger.Info("success request from WakaTime API", "date", date)
	s.store.Save(date, summary)
	return Result{Date: date, Summary: summary}
}
