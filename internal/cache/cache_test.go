package cache_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HerrChaos/obsidian-waka-box/internal/cache"
	"github.com/HerrChaos/obsidian-waka-box/internal/model"
)

func sampleSummary() *model.Summary {
	return &model.Summary{
		Start: "2024-01-01T00:00:00Z",
		End:   "2024-01-01T23:59:59Z",
		CumulativeTotal: model.CumulativeTotal{
			Seconds: 3725.5,
			Text:    "1 hr 2 mins",
		},
		Data: []model.DaySummary{
			{
				Range:      model.Range{Date: "2024-01-01", Timezone: "UTC"},
				GrandTotal: model.GrandTotal{TotalSeconds: 3725.5, Hours: 1, Minutes: 2},
				Projects: []model.Category{
					{Name: "waka-box", TotalSeconds: 3000, Percent: 80.5},
					{Name: "dotfiles", TotalSeconds: 725.5},
				},
				Languages: []model.Category{{Name: "Go", TotalSeconds: 3725.5}},
			},
		},
	}
}

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func TestFileStoreRoundTrip(t *testing.T) {
	store := cache.NewFileStore(filepath.Join(t.TempDir(), ".waka_box_cache"))
	want := sampleSummary()

	store.Save("2024-01-01", want)
	got, ok := store.Load("2024-01-01")

	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestFileStoreMissingKey(t *testing.T) {
	store := cache.NewFileStore(t.TempDir())
	got, ok := store.Load("2024-01-01")
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestFileStoreFreshness(t *testing.T) {
	dir := t.TempDir()
	clk := &clock{}
	store := cache.NewFileStore(dir, cache.WithClock(clk.Now))

	store.Save("2024-01-01", sampleSummary())
	info, err := os.Stat(filepath.Join(dir, "2024-01-01"))
	require.NoError(t, err)
	written := info.ModTime()

	tests := []struct {
		age  time.Duration
		want bool
	}{
		{0, true},
		{30 * time.Minute, true},
		{time.Hour - time.Millisecond, true},
		{time.Hour, false},
		{3 * time.Hour, false},
	}
	for _, tt := range tests {
		clk.Set(written.Add(tt.age))
		_, ok := store.Load("2024-01-01")
		assert.Equal(t, tt.want, ok, "age %s", tt.age)
	}
}

func TestFileStoreCorruptIsMiss(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2024-01-01"), []byte("{bad json"), 0o600))

	store := cache.NewFileStore(dir)
	_, ok := store.Load("2024-01-01")
	assert.False(t, ok)
}

func TestFileStoreEnsureReadyRecreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	store := cache.NewFileStore(dir)

	store.Save("2024-01-01", sampleSummary())
	require.NoError(t, os.RemoveAll(dir))

	_, ok := store.Load("2024-01-01")
	assert.False(t, ok)
	_, err := os.Stat(dir)
	assert.NoError(t, err, "Load should recreate the cache directory")

	store.Save("2024-01-01", sampleSummary())
	_, ok = store.Load("2024-01-01")
	assert.True(t, ok)
}

func TestFileStoreOverwrite(t *testing.T) {
	store := cache.NewFileStore(t.TempDir())
	first := sampleSummary()
	second := sampleSummary()
	second.CumulativeTotal.Seconds = 10

	store.Save("2024-01-01", first)
	store.Save("2024-01-01", second)

	got, ok := store.Load("2024-01-01")
	require.True(t, ok)
	assert.Equal(t, 10.0, got.CumulativeTotal.Seconds)
}

func TestFileStoreConcurrentSaves(t *testing.T) {
	store := cache.NewFileStore(t.TempDir())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s := sampleSummary()
			s.CumulativeTotal.Seconds = float64(n)
			store.Save("2024-01-01", s)
		}(i)
	}
	wg.Wait()

	got, ok := store.Load("2024-01-01")
	require.True(t, ok, "last rename must leave a complete file")
	assert.Len(t, got.Data, 1)

	keys, err := store.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-01"}, keys, "no temp files may be left behind")
}

func TestFileStoreKeysAndClear(t *testing.T) {
	store := cache.NewFileStore(t.TempDir())
	store.Save("2024-01-02", sampleSummary())
	store.Save("2024-01-01", sampleSummary())
	store.Save("2024/01/03", sampleSummary())

	keys, err := store.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-01", "2024-01-02", "2024_01_03"}, keys)

	_, ok := store.Load("2024/01/03")
	assert.True(t, ok)

	require.NoError(t, store.Clear())
	keys, err = store.Keys()
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestBadgerStoreRoundTripAndFreshness(t *testing.T) {
	clk := &clock{now: time.Now()}
	store, err := cache.OpenBadger(t.TempDir(), cache.WithClock(clk.Now))
	require.NoError(t, err)
	defer store.Close()

	want := sampleSummary()
	store.Save("2024-01-01", want)

	got, ok := store.Load("2024-01-01")
	require.True(t, ok)
	assert.Equal(t, want, got)

	clk.Set(time.Now().Add(59 * time.Minute))
	_, ok = store.Load("2024-01-01")
	assert.True(t, ok)

	clk.Set(time.Now().Add(61 * time.Minute))
	_, ok = store.Load("2024-01-01")
	assert.False(t, ok)
}

func TestBadgerStoreKeysAndClear(t *testing.T) {
	store, err := cache.OpenBadger(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	store.Save("2024-01-02", sampleSummary())
	store.Save("2024-01-01", sampleSummary())

	keys, err := store.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-01", "2024-01-02"}, keys)

	require.NoError(t, store.Clear())
	_, ok := store.Load("2024-01-01")
	assert.False(t, ok)
}

func TestBadgerStoreRecoversRemovedDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "badger")
	store, err := cache.OpenBadger(dir)
	require.NoError(t, err)
	defer store.Close()

	store.Save("2024-01-01", sampleSummary())
	require.NoError(t, os.RemoveAll(dir))

	require.NoError(t, store.EnsureReady())
	_, err = os.Stat(dir)
	require.NoError(t, err)

	_, ok := store.Load("2024-01-01")
	assert.False(t, ok)
	store.Save("2024-01-02", sampleSummary())
	got, ok := store.Load("2024-01-02")
	require.True(t, ok)
	assert.Equal(t, sampleSummary(), got)
}

func TestStoresImplementInterface(t *testing.T) {
	var _ cache.Store = cache.NewFileStore(t.TempDir())
	var _ cache.Store = (*cache.BadgerStore)(nil)
}
