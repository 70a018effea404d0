package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"github.com/HerrChaos/obsidian-waka-box/internal/model"
)

// FileStore keeps one JSON file per key in a dedicated directory. Freshness
// comes from the file's modification time, not from its content.
type FileStore struct {
	dir  string
	opts options
	api  sonic.API
}

// NewFileStore returns a store rooted at dir. The directory is created
// lazily by EnsureReady.
func NewFileStore(dir string, opts ...Option) *FileStore {
	return &FileStore{dir: dir, opts: buildOptions(opts), api: sonic.ConfigStd}
}

// EnsureReady creates the backing directory if it is missing. It is called
// before every read and write because the directory may be removed while
// the process runs.
func (s *FileStore) EnsureReady() error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("cache error creating %s: %w", s.dir, err)
	}
	return nil
}

// fileName maps a date key to a single path element.
func fileName(key string) string {
	return strings.NewReplacer("/", "_", `\`, "_", "..", "_").Replace(key)
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, fileName(key))
}

// Load implements Store.
func (s *FileStore) Load(key string) (*model.Summary, bool) {
	log := s.opts.logger.With("key", key)
	if err := s.EnsureReady(); err != nil {
		log.Error("error loading WakaTime summary from cache", "err", err)
		return nil, false
	}

	path := s.path(key)
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false
	}
	if err != nil {
		log.Error("error loading WakaTime summary from cache", "err", err)
		return nil, false
	}
	if !fresh(info.ModTime(), s.opts.now(), s.opts.ttl) {
		log.Debug("cache entry expired", "modified", info.ModTime())
		return nil, false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Error("error loading WakaTime summary from cache", "err", err)
		return nil, false
	}
	var summary model.Summary
	if err := s.api.Unmarshal(data, &summary); err != nil {
		log.Error("error loading WakaTime summary from cache", "err", fmt.Errorf("corrupt JSON in %s: %w", path, err))
		return nil, false
	}
	return &summary, true
}

// Save implements Store. The write goes to a uniquely named temp file that
// is renamed into place, so overlapping saves for one key end with the last
// rename rather than a torn file.
func (s *FileStore) Save(key string, summary *model.Summary) {
	if err := s.save(key, summary); err != nil {
		s.opts.logger.Error("error saving WakaTime summary to cache", "key", key, "err", err)
	}
}

func (s *FileStore) save(key string, summary *model.Summary) error {
	if summary == nil {
		return errors.New("nil summary")
	}
	if err := s.EnsureReady(); err != nil {
		return err
	}
	data, err := s.api.Marshal(summary)
	if err != nil {
		return fmt.Errorf("cache error marshalling JSON: %w", err)
	}

	path := s.path(key)
	tmpPath := filepath.Join(s.dir, "."+fileName(key)+"."+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("cache error writing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("cache error renaming temp file: %w", err)
	}
	return nil
}

// Keys implements Store.
func (s *FileStore) Keys() ([]string, error) {
	if err := s.EnsureReady(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache error listing %s: %w", s.dir, err)
	}
	var keys []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		keys = append(keys, e.Name())
	}
	sort.Strings(keys)
	return keys, nil
}

// Clear implements Store.
func (s *FileStore) Clear() error {
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("cache error removing %s: %w", s.dir, err)
	}
	return s.EnsureReady()
}

// Close implements Store; a FileStore holds no resources.
func (s *FileStore) Close() error { return nil }
