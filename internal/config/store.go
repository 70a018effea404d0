package config

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/spf13/viper"
)

type keyKind int

const (
	kindString keyKind = iota
	kindBool
	kindInt
	kindDuration
)

// keyKinds lists every settable key and how its textual value is parsed.
var keyKinds = map[string]keyKind{
	"api_key":             kindString,
	"api_base_url":        kindString,
	"access_token":        kindString,
	"date_format":         kindString,
	"chart_type":          kindString,
	"type_display":        kindString,
	"display_total_time":  kindBool,
	"show_legend":         kindBool,
	"refresh_interval":    kindInt,
	"create_daily_note":   kindBool,
	"notes_dir":           kindString,
	"cache.backend":       kindString,
	"cache.dir":           kindString,
	"http_timeout":        kindDuration,
	"requests_per_minute": kindInt,
	"log_level":           kindString,
}

// Keys returns the settable keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(keyKinds))
	for k := range keyKinds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func parseValue(key, value string) (any, error) {
	kind, ok := keyKinds[key]
	if !ok {
		return nil, fmt.Errorf("unknown setting %q", key)
	}
	switch kind {
	case kindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("%s: %q is not a boolean", key, value)
		}
		return b, nil
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("%s: %q is not an integer", key, value)
		}
		return n, nil
	case kindDuration:
		d, err := time.ParseDuration(value)
		if err != nil {
			return nil, fmt.Errorf("%s: %q is not a duration", key, value)
		}
		return d.String(), nil
	}
	return value, nil
}

func setDefaults(v *viper.Viper, d Settings) {
	v.SetDefault("api_key", d.APIKey)
	v.SetDefault("api_base_url", d.APIBaseURL)
	v.SetDefault("access_token", d.AccessToken)
	v.SetDefault("date_format", d.DateFormat)
	v.SetDefault("chart_type", string(d.ChartType))
	v.SetDefault("type_display", string(d.TypeDisplay))
	v.SetDefault("display_total_time", d.DisplayTotalTime)
	v.SetDefault("show_legend", d.ShowLegend)
	v.SetDefault("refresh_interval", d.RefreshInterval)
	v.SetDefault("create_daily_note", d.CreateDailyNote)
	v.SetDefault("notes_dir", d.NotesDir)
	v.SetDefault("cache.backend", d.Cache.Backend)
	v.SetDefault("cache.dir", d.Cache.Dir)
	v.SetDefault("http_timeout", d.HTTPTimeout.String())
	v.SetDefault("requests_per_minute", d.RequestsPerMinute)
	v.SetDefault("log_level", d.LogLevel)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("json")
	setDefaults(v, Default())
	return v
}

// Store owns the persisted settings. It is the single writer: every change
// goes through Set or Reset, is written to disk immediately and published
// to subscribers.
type Store struct {
	path   string
	logger *slog.Logger

	mu          sync.RWMutex
	current     Settings
	subscribers []func(Settings)
}

// Open loads the config file at path (DefaultPath when empty), creating an
// annotated default file on first run.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	s := &Store{path: path, logger: logger}
	_, cfg, err := s.load()
	if err != nil {
		return nil, err
	}
	s.current = cfg
	return s, nil
}

// Path returns the config file location.
func (s *Store) Path() string { return s.path }

// Dir returns the directory containing the config file.
func (s *Store) Dir() string { return filepath.Dir(s.path) }

// Settings returns a snapshot of the current settings.
func (s *Store) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Subscribe registers fn to be called with the new settings after every
// change.
func (s *Store) Subscribe(fn func(Settings)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// Set parses value for key, validates the resulting settings and persists
// them.
func (s *Store) Set(key, value string) error {
	typed, err := parseValue(key, value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	v, _, err := s.load()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	v.Set(key, typed)
	var cfg Settings
	if err := v.Unmarshal(&cfg); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("decoding settings: %w", err)
	}
	if err := Validate(cfg); err != nil {
		s.mu.Unlock()
		return err
	}
	if err := s.persist(v); err != nil {
		s.mu.Unlock()
		return err
	}
	s.current = cfg
	subs := append([]func(Settings){}, s.subscribers...)
	s.mu.Unlock()

	s.publish(subs, cfg)
	return nil
}

// Reset restores and persists the built-in defaults.
func (s *Store) Reset() error {
	s.mu.Lock()
	if err := s.persist(newViper()); err != nil {
		s.mu.Unlock()
		return err
	}
	s.current = Default()
	subs := append([]func(Settings){}, s.subscribers...)
	s.mu.Unlock()

	s.publish(subs, Default())
	return nil
}

// Reload re-reads the file after an external edit. Subscribers are only
// notified when the settings actually changed.
func (s *Store) Reload() (bool, error) {
	s.mu.Lock()
	_, cfg, err := s.load()
	if err != nil {
		s.mu.Unlock()
		return false, err
	}
	if cfg == s.current {
		s.mu.Unlock()
		return false, nil
	}
	s.current = cfg
	subs := append([]func(Settings){}, s.subscribers...)
	s.mu.Unlock()

	s.publish(subs, cfg)
	return true, nil
}

func (s *Store) publish(subs []func(Settings), cfg Settings) {
	for _, fn := range subs {
		fn(cfg)
	}
}

// load reads the file over the defaults. A missing file is created from
// the template and yields the defaults.
func (s *Store) load() (*viper.Viper, Settings, error) {
	v := newViper()

	data, err := os.ReadFile(s.path)
	switch {
	case os.IsNotExist(err):
		if writeErr := writeDefault(s.path); writeErr != nil {
			s.logger.Warn("could not create config file", "path", s.path, "err", writeErr)
		}
	case err != nil:
		return nil, Settings{}, fmt.Errorf("reading config file %s: %w", s.path, err)
	default:
		cleaned := stripLineComments(data)
		if len(bytes.TrimSpace(cleaned)) > 0 {
			if err := v.ReadConfig(bytes.NewReader(cleaned)); err != nil {
				return nil, Settings{}, fmt.Errorf("parsing config file %s: %w\nTip: delete the file to regenerate defaults", s.path, err)
			}
		}
	}

	var cfg Settings
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, Settings{}, fmt.Errorf("decoding config file %s: %w", s.path, err)
	}
	if err := Validate(cfg); err != nil {
		return nil, Settings{}, fmt.Errorf("invalid config file %s: %w", s.path, err)
	}
	return v, cfg, nil
}

func (s *Store) persist(v *viper.Viper) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("writing config file %s: %w", s.path, err)
	}
	return nil
}
