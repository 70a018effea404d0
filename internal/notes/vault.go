// Package notes maintains the wakatime block inside daily Markdown notes.
package notes

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/HerrChaos/obsidian-waka-box/internal/timecalc"
)

// Vault is the note store the summaries are written into.
type Vault interface {
	// Find returns the daily note for date, if one exists.
	Find(date time.Time) (string, bool, error)
	// Create creates an empty daily note for date and returns its path.
	Create(date time.Time) (string, error)
	// Process rewrites the note at path with fn applied to its content.
	Process(path string, fn func(string) string) error
}

// DirVault stores daily notes as <dir>/<date>.md, the date rendered with a
// moment-style format.
type DirVault struct {
	dir    string
	format string

	// mu serialises read-modify-write cycles so concurrent results for
	// one note do not overwrite each other.
	mu sync.Mutex
}

// NewDirVault returns a vault rooted at dir.
func NewDirVault(dir, dateFormat string) *DirVault {
	return &DirVault{dir: dir, format: dateFormat}
}

// NotePath returns where the daily note for date lives.
func (v *DirVault) NotePath(date time.Time) string {
	return filepath.Join(v.dir, timecalc.DateKey(date, v.format)+".md")
}

// Find implements Vault.
func (v *DirVault) Find(date time.Time) (string, bool, error) {
	path := v.NotePath(date)
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("notes error reading %s: %w", path, err)
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("notes error: %s is a directory", path)
	}
	return path, true, nil
}

// Create implements Vault. An existing note is left untouched.
func (v *DirVault) Create(date time.Time) (string, error) {
	path := v.NotePath(date)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("notes error creating directories: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, fs.ErrExist) {
		return path, nil
	}
	if err != nil {
		return "", fmt.Errorf("notes error creating %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("notes error creating %s: %w", path, err)
	}
	return path, nil
}

// Process implements Vault. The new content is written atomically with the
// note's existing permissions; an unchanged note is not rewritten.
func (v *DirVault) Process(path string, fn func(string) string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("notes error reading %s: %w", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("notes error reading %s: %w", path, err)
	}
	updated := fn(string(data))
	if updated == string(data) {
		return nil
	}

	// the rewritten note keeps the permissions of the original
	mode := info.Mode().Perm()
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, []byte(updated), mode); err != nil {
		return fmt.Errorf("notes error writing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("notes error writing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("notes error renaming temp file: %w", err)
	}
	return nil
}

// Title returns a note's title: its file name without extension.
func Title(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
