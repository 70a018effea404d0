package cmd

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HerrChaos/obsidian-waka-box/internal/cache"
	"github.com/HerrChaos/obsidian-waka-box/internal/model"
	"github.com/HerrChaos/obsidian-waka-box/internal/notes"
)

func TestMask(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"abc", "***"},
		{"abcd", "****"},
		{"waka_1234abcd", "*********abcd"},
	}
	for _, tt := range tests {
		if got := mask(tt.in); got != tt.want {
			t.Errorf("mask(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"loud", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func resetFlags() {
	configPath, logLevel, notesDir = "", "", ""
	chartNote, chartType, chartKind, chartWidth = "", "", "", 60
	fetchPrint, refreshOrToday, configShowSecrets = false, false, false
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, settings map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	data, err := json.Marshal(settings)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func sample(start time.Time) *model.Summary {
	return &model.Summary{
		CumulativeTotal: model.CumulativeTotal{Seconds: 5400},
		Start:           start.Format(time.RFC3339),
		End:             start.Add(24*time.Hour - time.Second).Format(time.RFC3339),
		Data: []model.DaySummary{{
			Range: model.Range{Date: start.Format("2006-01-02")},
			Projects: []model.Category{
				{Name: "wakabox", TotalSeconds: 3600},
				{Name: "dotfiles", TotalSeconds: 1800},
			},
		}},
	}
}

func TestConfigSetShowReset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	out, err := run(t, "--config", path, "config", "set", "api_key", "waka_1234abcd")
	require.NoError(t, err)
	assert.Contains(t, out, "Saved api_key")

	_, err = run(t, "--config", path, "config", "set", "chart_type", "histogram")
	assert.Error(t, err)

	out, err = run(t, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "*********abcd")
	assert.NotContains(t, out, "waka_1234abcd")
	assert.Contains(t, out, "doughnut")

	out, err = run(t, "--config", path, "config", "show", "--secrets")
	require.NoError(t, err)
	assert.Contains(t, out, "waka_1234abcd")

	_, err = run(t, "--config", path, "config", "reset")
	require.NoError(t, err)
	out, err = run(t, "--config", path, "config", "show", "--secrets")
	require.NoError(t, err)
	assert.NotContains(t, out, "waka_1234abcd")
}

func TestChartFromNote(t *testing.T) {
	cfg := writeConfig(t, map[string]any{})
	block, err := notes.Block(sample(time.Date(2024, 1, 2, 0, 0, 0, 0, time.Local)))
	require.NoError(t, err)
	note := filepath.Join(t.TempDir(), "2024-01-02.md")
	require.NoError(t, os.WriteFile(note, []byte("# day\n"+block+"\n"), 0o600))

	out, err := run(t, "--config", cfg, "chart", "--note", note, "--kind", "bar")
	require.NoError(t, err)

	assert.Contains(t, out, "Project")
	assert.Contains(t, out, "Total: 1h 30m")
	assert.Contains(t, out, "wakabox")
	assert.Contains(t, out, "dotfiles")
	assert.Less(t, strings.Index(out, "wakabox"), strings.Index(out, "dotfiles"))

	_, err = run(t, "--config", cfg, "chart", "--note", note, "--type", "Color")
	assert.Error(t, err)
	_, err = run(t, "--config", cfg, "chart", "--note", note, "--kind", "histogram")
	assert.Error(t, err)
}

func TestCacheListAndClear(t *testing.T) {
	cfg := writeConfig(t, map[string]any{})

	out, err := run(t, "--config", cfg, "cache", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No cached summaries.")

	store := cache.NewFileStore(filepath.Join(filepath.Dir(cfg), ".waka_box_cache"))
	store.Save("2024-01-02", sample(time.Now()))

	out, err = run(t, "--config", cfg, "cache", "list")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-02\n", out)

	_, err = run(t, "--config", cfg, "cache", "clear")
	require.NoError(t, err)
	keys, err := store.Keys()
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestRefreshTodayWritesNote(t *testing.T) {
	today := time.Now()
	start := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.Local)
	dateKey := start.Format("2006-01-02")

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/users/current/summaries", r.URL.Path)
		assert.Equal(t, dateKey, r.URL.Query().Get("start"))
		assert.Equal(t, "k", r.URL.Query().Get("api_key"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(sample(start))
	}))
	defer srv.Close()

	notesDir := t.TempDir()
	cfg := writeConfig(t, map[string]any{
		"api_key":           "k",
		"api_base_url":      srv.URL,
		"notes_dir":         notesDir,
		"create_daily_note": true,
	})

	_, err := run(t, "--config", cfg, "refresh", "today")
	require.NoError(t, err)
	assert.EqualValues(t, 1, hits.Load())

	data, err := os.ReadFile(filepath.Join(notesDir, dateKey+".md"))
	require.NoError(t, err)
	s, err := notes.ParseBlock(string(data))
	require.NoError(t, err)
	assert.Equal(t, 5400.0, s.CumulativeTotal.Seconds)

	// chart is served from the cache written by the refresh
	out, err := run(t, "--config", cfg, "chart")
	require.NoError(t, err)
	assert.EqualValues(t, 1, hits.Load())
	assert.Contains(t, out, "wakabox")
}

func TestChartWithoutKeyNeverFetches(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_ = json.NewEncoder(w).Encode(sample(time.Now()))
	}))
	defer srv.Close()
	cfg := writeConfig(t, map[string]any{"api_base_url": srv.URL})

	_, err := run(t, "--config", cfg, "chart")
	assert.ErrorContains(t, err, "API key")
	assert.EqualValues(t, 0, hits.Load())

	// a fresh cache entry is still shown
	dateKey := time.Now().Format("2006-01-02")
	store := cache.NewFileStore(filepath.Join(filepath.Dir(cfg), ".waka_box_cache"))
	store.Save(dateKey, sample(time.Now()))

	out, err := run(t, "--config", cfg, "chart")
	require.NoError(t, err)
	assert.Contains(t, out, "wakabox")
	assert.EqualValues(t, 0, hits.Load())
}

func TestRefreshWithoutKey(t *testing.T) {
	cfg := writeConfig(t, map[string]any{"notes_dir": t.TempDir()})

	_, err := run(t, "--config", cfg, "refresh", "yesterday")
	assert.ErrorContains(t, err, "API key")
}

func TestRefreshNoteBadTitle(t *testing.T) {
	cfg := writeConfig(t, map[string]any{"api_key": "k", "notes_dir": t.TempDir()})

	_, err := run(t, "--config", cfg, "refresh", "note", "notes/Shopping list.md")
	assert.ErrorContains(t, err, "Shopping list")
}
