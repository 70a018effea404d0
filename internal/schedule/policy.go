// Package schedule decides when summaries are fetched and where the
// results go.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/atotto/clipboard"

	"github.com/HerrChaos/obsidian-waka-box/internal/config"
	"github.com/HerrChaos/obsidian-waka-box/internal/notes"
	"github.com/HerrChaos/obsidian-waka-box/internal/notify"
	"github.com/HerrChaos/obsidian-waka-box/internal/summary"
	"github.com/HerrChaos/obsidian-waka-box/internal/timecalc"
)

// Getter returns summaries, cache-first unless forced.
type Getter interface {
	GetSummary(ctx context.Context, date string, force bool) summary.Result
}

// Clipboard receives the block text of a manual fetch.
type Clipboard interface {
	WriteAll(text string) error
}

// SystemClipboard writes to the OS clipboard.
type SystemClipboard struct{}

// WriteAll implements Clipboard.
func (SystemClipboard) WriteAll(text string) error {
	if clipboard.Unsupported {
		return errors.New("no clipboard utility available")
	}
	return clipboard.WriteAll(text)
}

// Options wires a Policy.
type Options struct {
	Settings  func() config.Settings
	Summaries Getter
	Vault     notes.Vault
	Clipboard Clipboard
	Notifier  notify.Notifier
	Logger    *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Policy runs the fetch triggers and routes every result into the daily
// notes.
type Policy struct {
	settings  func() config.Settings
	summaries Getter
	clip      Clipboard
	notifier  notify.Notifier
	logger    *slog.Logger
	now       func() time.Time
	interval  func(config.Settings) time.Duration

	mu        sync.Mutex
	vault     notes.Vault
	keyWarned bool
	changed   chan struct{}
}

// New returns a Policy.
func New(opts Options) *Policy {
	p := &Policy{
		settings:  opts.Settings,
		summaries: opts.Summaries,
		vault:     opts.Vault,
		clip:      opts.Clipboard,
		notifier:  opts.Notifier,
		logger:    opts.Logger,
		now:       opts.Now,
		interval:  config.Settings.RefreshEvery,
		changed:   make(chan struct{}, 1),
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.clip == nil {
		p.clip = SystemClipboard{}
	}
	if p.notifier == nil {
		p.notifier = &notify.Recorder{}
	}
	return p
}

// SetVault replaces the note store, e.g. after notes_dir or date_format
// changed.
func (p *Policy) SetVault(v notes.Vault) {
	p.mu.Lock()
	p.vault = v
	p.mu.Unlock()
}

func (p *Policy) currentVault() notes.Vault {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.vault
}

// SettingsChanged tells Run to re-read the refresh interval and clears
// the missing key warning once a key is present. It never blocks.
func (p *Policy) SettingsChanged(s config.Settings) {
	if s.RequireAPIKey() == nil {
		p.mu.Lock()
		p.keyWarned = false
		p.mu.Unlock()
	}
	select {
	case p.changed <- struct{}{}:
	default:
	}
}

// checkKey returns ErrMissingAPIKey while no key is configured, notifying
// only the first time.
func (p *Policy) checkKey(s config.Settings) error {
	err := s.RequireAPIKey()
	p.mu.Lock()
	defer p.mu.Unlock()
	if err == nil {
		p.keyWarned = false
		return nil
	}
	if !p.keyWarned {
		p.keyWarned = true
		p.notifier.Notify(err.Error(), notify.Long)
	}
	return err
}

func (p *Policy) today(s config.Settings) string {
	return timecalc.DateKey(p.now(), s.DateFormat)
}

// Ready performs the startup fetch for today, cache-first. Failures are
// logged only.
func (p *Policy) Ready(ctx context.Context) error {
	s := p.settings()
	if err := p.checkKey(s); err != nil {
		return err
	}
	p.refresh(ctx, s, p.today(s), false, false)
	return nil
}

// Run refreshes today every refresh_interval minutes until ctx is done.
// A zero interval idles until the setting changes.
func (p *Policy) Run(ctx context.Context) error {
	var (
		ticker *time.Ticker
		tick   <-chan time.Time
		every  time.Duration
	)
	reset := func() {
		d := p.interval(p.settings())
		if d == every && (ticker != nil || d == 0) {
			return
		}
		if ticker != nil {
			ticker.Stop()
			ticker, tick = nil, nil
		}
		every = d
		if d > 0 {
			ticker = time.NewTicker(d)
			tick = ticker.C
			p.logger.Info("refresh interval set", "every", d)
		} else {
			p.logger.Info("interval refresh disabled")
		}
	}
	reset()
	defer func() {
		if ticker != nil {
			ticker.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.changed:
			reset()
		case <-tick:
			s := p.settings()
			if p.checkKey(s) != nil {
				continue
			}
			p.refresh(ctx, s, p.today(s), false, false)
		}
	}
}

// RefreshToday force-fetches today.
func (p *Policy) RefreshToday(ctx context.Context) error {
	s := p.settings()
	if err := p.checkKey(s); err != nil {
		return err
	}
	return p.refresh(ctx, s, p.today(s), true, true)
}

// RefreshYesterday force-fetches the day before today.
func (p *Policy) RefreshYesterday(ctx context.Context) error {
	s := p.settings()
	if err := p.checkKey(s); err != nil {
		return err
	}
	return p.refresh(ctx, s, timecalc.DateKey(timecalc.Yesterday(p.now()), s.DateFormat), true, true)
}

// RefreshNote force-fetches the day named by a note title. A title that is
// not a date aborts with a DateParseError.
func (p *Policy) RefreshNote(ctx context.Context, title string) error {
	s := p.settings()
	if err := p.checkKey(s); err != nil {
		return err
	}
	day, err := timecalc.ParseDate(title, s.DateFormat, time.Local)
	if err != nil {
		p.notifier.Notify("note title is not a valid date: "+err.Error(), notify.Short)
		return err
	}
	date := timecalc.DateKey(day, s.DateFormat)
	p.notifier.Notify("fetching data for "+date, notify.Short)
	return p.refresh(ctx, s, date, true, true)
}

// RefreshNoteOrToday is RefreshNote falling back to today for titles that
// are empty or not a date.
func (p *Policy) RefreshNoteOrToday(ctx context.Context, title string) error {
	s := p.settings()
	if err := p.checkKey(s); err != nil {
		return err
	}
	date := p.today(s)
	if day, err := timecalc.ParseDate(title, s.DateFormat, time.Local); err == nil {
		date = timecalc.DateKey(day, s.DateFormat)
	} else if title != "" {
		p.logger.Debug("note title is not a date, using today", "title", title)
	}
	return p.refresh(ctx, s, date, true, true)
}

// FetchToClipboard force-fetches the day typed by the user and copies the
// block to the clipboard instead of writing a note. It returns the block.
func (p *Policy) FetchToClipboard(ctx context.Context, input string) (string, error) {
	block, date, err := p.FetchBlock(ctx, input)
	if err != nil {
		return "", err
	}
	if err := p.clip.WriteAll(block); err != nil {
		p.notifier.Notify("copy to clipboard failed: "+err.Error(), notify.Long)
		return block, fmt.Errorf("copy to clipboard: %w", err)
	}
	p.notifier.Notify(date+" copied to clipboard", notify.Short)
	return block, nil
}

// FetchBlock force-fetches the day typed by the user and renders its block
// without touching notes or the clipboard.
func (p *Policy) FetchBlock(ctx context.Context, input string) (block, date string, err error) {
	s := p.settings()
	if err := p.checkKey(s); err != nil {
		return "", "", err
	}
	day, err := timecalc.ParseDate(input, s.DateFormat, time.Local)
	if err != nil {
		p.notifier.Notify("fail due to "+err.Error(), notify.Long)
		return "", "", err
	}
	date = timecalc.DateKey(day, s.DateFormat)

	res := p.summaries.GetSummary(ctx, date, true)
	if !res.OK() {
		p.logger.Warn("no summary data received", "date", date, "error", res.Err)
		p.notifier.Notify("fetch failed for "+date+": "+errText(res.Err), notify.Long)
		return "", date, res.Err
	}
	block, err = notes.Block(res.Summary)
	if err != nil {
		return "", date, err
	}
	return block, date, nil
}

// refresh fetches one day and hands the result to the note handler.
// Only interactive callers surface failures through the notifier.
func (p *Policy) refresh(ctx context.Context, s config.Settings, date string, force, interactive bool) error {
	res := p.summaries.GetSummary(ctx, date, force)
	if !res.OK() {
		p.logger.Warn("no summary data received", "date", date, "force", force, "error", res.Err)
		if interactive {
			p.notifier.Notify("fetch failed for "+date+": "+errText(res.Err), notify.Long)
		}
		return res.Err
	}
	if err := p.handle(s, res); err != nil {
		p.logger.Error("update daily note failed", "date", date, "error", err)
		if interactive {
			p.notifier.Notify("update daily note failed: "+err.Error(), notify.Long)
		}
		return err
	}
	return nil
}

// handle announces a freshly fetched result and writes it into the daily
// note of the day the summary starts on.
func (p *Policy) handle(s config.Settings, res summary.Result) error {
	day, err := p.noteDay(s, res)
	if err != nil {
		return err
	}
	dateKey := timecalc.DateKey(day, s.DateFormat)
	if !res.FromCache {
		p.notifier.Notify(dateKey+" refreshed", notify.Short)
	}

	vault := p.currentVault()
	if vault == nil {
		return errors.New("no notes directory configured")
	}
	path, ok, err := vault.Find(day)
	if err != nil {
		return err
	}
	if !ok {
		if !s.CreateDailyNote {
			p.logger.Info("no daily note, skipping", "date", dateKey)
			return nil
		}
		if path, err = vault.Create(day); err != nil {
			return err
		}
		p.logger.Info("created daily note", "path", path)
	}

	block, err := notes.Block(res.Summary)
	if err != nil {
		return err
	}
	if err := vault.Process(path, func(content string) string {
		return notes.Upsert(content, block)
	}); err != nil {
		return err
	}
	p.logger.Debug("daily note updated", "path", path, "from_cache", res.FromCache)
	return nil
}

// noteDay is the local day the summary starts on, falling back to the
// requested date when start is missing or malformed.
func (p *Policy) noteDay(s config.Settings, res summary.Result) (time.Time, error) {
	if res.Summary.Start != "" {
		if t, err := time.Parse(time.RFC3339, res.Summary.Start); err == nil {
			return timecalc.StartOfDay(t.In(time.Local)), nil
		}
		p.logger.Debug("summary start not RFC3339", "start", res.Summary.Start)
	}
	return timecalc.ParseDate(res.Date, s.DateFormat, time.Local)
}

func errText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
