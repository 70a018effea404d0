package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/HerrChaos/obsidian-waka-box/internal/model"
)

// ErrMissingAPIKey is returned when no WakaTime API key is configured.
// Every fetch trigger is suppressed until one is set.
var ErrMissingAPIKey = errors.New("please enter your API key in the settings")

// ChartType is the kind of chart drawn for a summary.
type ChartType string

const (
	ChartDoughnut  ChartType = "doughnut"
	ChartBar       ChartType = "bar"
	ChartPie       ChartType = "pie"
	ChartRadar     ChartType = "radar"
	ChartPolarArea ChartType = "polarArea"
)

// ChartTypes lists every supported chart kind.
var ChartTypes = []ChartType{ChartDoughnut, ChartBar, ChartPie, ChartRadar, ChartPolarArea}

// Settings is the process-wide configuration. Components receive a copy
// (or a func returning the current copy); only Store mutates it.
type Settings struct {
	APIKey            string          `mapstructure:"api_key"`
	APIBaseURL        string          `mapstructure:"api_base_url"`
	AccessToken       string          `mapstructure:"access_token"`
	DateFormat        string          `mapstructure:"date_format"`
	ChartType         ChartType       `mapstructure:"chart_type"`
	TypeDisplay       model.Dimension `mapstructure:"type_display"`
	DisplayTotalTime  bool            `mapstructure:"display_total_time"`
	ShowLegend        bool            `mapstructure:"show_legend"`
	RefreshInterval   int             `mapstructure:"refresh_interval"`
	CreateDailyNote   bool            `mapstructure:"create_daily_note"`
	NotesDir          string          `mapstructure:"notes_dir"`
	Cache             CacheSettings   `mapstructure:"cache"`
	HTTPTimeout       time.Duration   `mapstructure:"http_timeout"`
	RequestsPerMinute int             `mapstructure:"requests_per_minute"`
	LogLevel          string          `mapstructure:"log_level"`
}

// CacheSettings selects and locates the summary cache.
type CacheSettings struct {
	// Backend is "file" or "badger".
	Backend string `mapstructure:"backend"`
	// Dir overrides the cache directory. Empty means <config dir>/.waka_box_cache.
	Dir string `mapstructure:"dir"`
}

const (
	DefaultAPIBaseURL  = "https://wakatime.com/api/v1"
	DefaultHTTPTimeout = 30 * time.Second
	CacheDirName       = ".waka_box_cache"
	BackendFile        = "file"
	BackendBadger      = "badger"
)

// Default returns the built-in settings every persisted file is merged over.
func Default() Settings {
	return Settings{
		APIBaseURL:       DefaultAPIBaseURL,
		DateFormat:       "YYYY-MM-DD",
		ChartType:        ChartDoughnut,
		TypeDisplay:      model.DimensionProject,
		DisplayTotalTime: true,
		ShowLegend:       true,
		Cache:            CacheSettings{Backend: BackendFile},
		HTTPTimeout:      DefaultHTTPTimeout,
		LogLevel:         "info",
	}
}

// RequireAPIKey reports ErrMissingAPIKey when the key is empty or blank.
func (s Settings) RequireAPIKey() error {
	if strings.TrimSpace(s.APIKey) == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// RefreshEvery converts the refresh interval to a duration; zero disables it.
func (s Settings) RefreshEvery() time.Duration {
	return time.Duration(s.RefreshInterval) * time.Minute
}

// CacheDir resolves the cache directory, defaulting to a hidden directory
// next to the config file.
func (s Settings) CacheDir(configDir string) string {
	if s.Cache.Dir != "" {
		return s.Cache.Dir
	}
	return filepath.Join(configDir, CacheDirName)
}

// Validate checks enumerations and ranges.
func Validate(s Settings) error {
	if !validChart(s.ChartType) {
		return fmt.Errorf("unknown chart_type %q (want one of %v)", s.ChartType, ChartTypes)
	}
	if _, err := model.ParseDimension(string(s.TypeDisplay)); err != nil {
		return fmt.Errorf("type_display: %w", err)
	}
	if s.RefreshInterval < 0 {
		return fmt.Errorf("refresh_interval must be >= 0, got %d", s.RefreshInterval)
	}
	if s.RequestsPerMinute < 0 {
		return fmt.Errorf("requests_per_minute must be >= 0, got %d", s.RequestsPerMinute)
	}
	if s.HTTPTimeout < 0 {
		return fmt.Errorf("http_timeout must be >= 0, got %s", s.HTTPTimeout)
	}
	if strings.TrimSpace(s.DateFormat) == "" {
		return errors.New("date_format must not be empty")
	}
	u, err := url.Parse(s.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api_base_url %q is not an absolute URL", s.APIBaseURL)
	}
	switch s.Cache.Backend {
	case BackendFile, BackendBadger:
	default:
		return fmt.Errorf("unknown cache.backend %q (want %q or %q)", s.Cache.Backend, BackendFile, BackendBadger)
	}
	return nil
}

func validChart(c ChartType) bool {
	for _, t := range ChartTypes {
		if t == c {
			return true
		}
	}
	return false
}

// configTemplate is the annotated config written on first run.
// Lines whose trimmed content starts with // are stripped before JSON parsing,
// allowing human-readable documentation inside the file. The file is
// rewritten without comments on the first settings change.
const configTemplate = `// wakabox configuration
//
// Missing keys fall back to the built-in defaults shown below.
// Change values with: wakabox config set <key> <value>
{
  // WakaTime API key, see https://wakatime.com/settings/api-key
  "api_key": "",
  "api_base_url": "https://wakatime.com/api/v1",

  // Moment-style format of daily note names and cache keys.
  "date_format": "YYYY-MM-DD",

  // doughnut, bar, pie, radar or polarArea
  "chart_type": "doughnut",
  // Project, Language, Editor, Machine or OperatingSystem
  "type_display": "Project",
  "display_total_time": true,
  "show_legend": true,

  // Minutes between background refreshes in "wakabox watch"; 0 disables.
  "refresh_interval": 0,

  // Directory holding the daily notes and whether missing notes are created.
  "notes_dir": "",
  "create_daily_note": false,

  "cache": {
    // file or badger
    "backend": "file",
    "dir": ""
  }
}
`

// DefaultDir returns $XDG_CONFIG_HOME/wakabox, falling back to ~/.wakabox.
func DefaultDir() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "wakabox"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".wakabox"), nil
}

// DefaultPath returns the config file inside DefaultDir.
func DefaultPath() (string, error) {
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// stripLineComments removes lines whose leading non-whitespace content starts
// with //. Only full-line comments are handled; inline comments are not stripped.
func stripLineComments(data []byte) []byte {
	var out []byte
	for _, line := range bytes.Split(data, []byte("\n")) {
		if bytes.HasPrefix(bytes.TrimLeft(line, " \t"), []byte("//")) {
			continue
		}
		out = append(out, line...)
		out = append(out, '\n')
	}
	return out
}

// writeDefault creates the config directory and writes the annotated default
// config template.
func writeDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0o600); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}
