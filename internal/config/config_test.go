package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HerrChaos/obsidian-waka-box/internal/model"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "", cfg.APIKey)
	assert.Equal(t, "https://wakatime.com/api/v1", cfg.APIBaseURL)
	assert.Equal(t, "YYYY-MM-DD", cfg.DateFormat)
	assert.Equal(t, ChartDoughnut, cfg.ChartType)
	assert.Equal(t, model.DimensionProject, cfg.TypeDisplay)
	assert.True(t, cfg.DisplayTotalTime)
	assert.True(t, cfg.ShowLegend)
	assert.Equal(t, 0, cfg.RefreshInterval)
	assert.Equal(t, BackendFile, cfg.Cache.Backend)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.NoError(t, Validate(cfg))
}

func TestOpenCreatesTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wakabox", "config.json")

	store, err := Open(path, nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), store.Settings())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "// wakabox configuration")

	// The commented template must load back to the defaults.
	again, err := Open(path, nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), again.Settings())
}

func TestOpenMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `// partial config
{
  "api_key": "waka_123",
  "type_display": "Language",
  "show_legend": false,
  "cache": {"backend": "badger"}
}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	store, err := Open(path, nil)
	require.NoError(t, err)
	cfg := store.Settings()

	assert.Equal(t, "waka_123", cfg.APIKey)
	assert.Equal(t, model.DimensionLanguage, cfg.TypeDisplay)
	assert.False(t, cfg.ShowLegend)
	assert.Equal(t, BackendBadger, cfg.Cache.Backend)
	// untouched keys keep their defaults
	assert.Equal(t, DefaultAPIBaseURL, cfg.APIBaseURL)
	assert.True(t, cfg.DisplayTotalTime)
	assert.Equal(t, ChartDoughnut, cfg.ChartType)
}

func TestOpenRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"chart_type": "scatter"}`), 0o600))

	_, err := Open(path, nil)
	assert.Error(t, err)
}

func TestSetPersistsAndNotifies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	store, err := Open(path, nil)
	require.NoError(t, err)

	var got []Settings
	store.Subscribe(func(s Settings) { got = append(got, s) })

	require.NoError(t, store.Set("api_key", "secret"))
	require.NoError(t, store.Set("refresh_interval", "15"))
	require.NoError(t, store.Set("show_legend", "false"))
	require.NoError(t, store.Set("http_timeout", "5s"))

	cfg := store.Settings()
	assert.Equal(t, "secret", cfg.APIKey)
	assert.Equal(t, 15, cfg.RefreshInterval)
	assert.Equal(t, 15*time.Minute, cfg.RefreshEvery())
	assert.False(t, cfg.ShowLegend)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	require.Len(t, got, 4)
	assert.Equal(t, cfg, got[3])

	reopened, err := Open(path, nil)
	require.NoError(t, err)
	assert.Equal(t, cfg, reopened.Settings())
}

func TestSetRejectsBadValues(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "config.json"), nil)
	require.NoError(t, err)

	assert.Error(t, store.Set("no_such_key", "x"))
	assert.Error(t, store.Set("show_legend", "maybe"))
	assert.Error(t, store.Set("refresh_interval", "-1"))
	assert.Error(t, store.Set("chart_type", "scatter"))
	assert.Error(t, store.Set("type_display", "Branch"))
	assert.Error(t, store.Set("api_base_url", "not a url"))
	assert.Equal(t, Default(), store.Settings())
}

func TestReset(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "config.json"), nil)
	require.NoError(t, err)
	require.NoError(t, store.Set("chart_type", "bar"))

	require.NoError(t, store.Reset())
	assert.Equal(t, Default(), store.Settings())
}

func TestReloadOnlyNotifiesOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	store, err := Open(path, nil)
	require.NoError(t, err)

	calls := 0
	store.Subscribe(func(Settings) { calls++ })

	changed, err := store.Reload()
	require.NoError(t, err)
	assert.False(t, changed)

	require.NoError(t, os.WriteFile(path, []byte(`{"api_key": "edited"}`), 0o600))
	changed, err = store.Reload()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "edited", store.Settings().APIKey)
	assert.Equal(t, 1, calls)
}

func TestRequireAPIKey(t *testing.T) {
	cfg := Default()
	assert.ErrorIs(t, cfg.RequireAPIKey(), ErrMissingAPIKey)
	cfg.APIKey = "   "
	assert.ErrorIs(t, cfg.RequireAPIKey(), ErrMissingAPIKey)
	cfg.APIKey = "k"
	assert.NoError(t, cfg.RequireAPIKey())
}

func TestCacheDir(t *testing.T) {
	cfg := Default()
	assert.Equal(t, filepath.Join("/cfg", ".waka_box_cache"), cfg.CacheDir("/cfg"))
	cfg.Cache.Dir = "/tmp/elsewhere"
	assert.Equal(t, "/tmp/elsewhere", cfg.CacheDir("/cfg"))
}

func TestStripLineComments(t *testing.T) {
	in := []byte("// head\n{\n  // inner\n  \"a\": 1\n}")
	assert.Equal(t, "{\n  \"a\": 1\n}\n", string(stripLineComments(in)))
}

func TestWatcherReloadsOnEdit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	store, err := Open(path, nil)
	require.NoError(t, err)

	changed := make(chan Settings, 4)
	store.Subscribe(func(s Settings) { changed <- s })

	w, err := NewWatcher(store, nil)
	require.NoError(t, err)
	w.delay = 20 * time.Millisecond
	w.Start()
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte(`{"api_key": "from-editor"}`), 0o600))

	select {
	case s := <-changed:
		assert.Equal(t, "from-editor", s.APIKey)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not reload the edited file")
	}
}
