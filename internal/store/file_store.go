package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/oakwood-commons/kvedit/pkg/loader"
	"github.com/oakwood-commons/kvedit/pkg/logger"
)

// ErrNoPath is returned by Save when the contents were not loaded from a file.
var ErrNoPath = errors.New("no file path to save to")

// Contents is the payload of SetContents.
type Contents struct {
	Contents string
}

// FileStore tracks the text of the file being edited and whether it has
// unsaved changes. Contents are always JSON; Save converts them back to the
// file's format.
type FileStore struct {
	mu       sync.RWMutex
	path     string
	format   loader.Format
	contents string
	saved    string
}

// NewFileStore returns a clean store for contents read from path. An empty
// path means the input came from stdin and cannot be saved.
func NewFileStore(path string, format loader.Format, contents string) *FileStore {
	if format == "" {
		format = loader.FormatJSON
	}
	return &FileStore{path: path, format: format, contents: contents, saved: contents}
}

// Path returns the backing file path.
func (f *FileStore) Path() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.path
}

// Format returns the format used when saving.
func (f *FileStore) Format() loader.Format {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.format
}

// Contents returns the current text.
func (f *FileStore) Contents() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.contents
}

// SetContents replaces the current text.
func (f *FileStore) SetContents(c Contents) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contents = c.Contents
}

// Dirty reports whether the contents changed since the last load or save.
func (f *FileStore) Dirty() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.contents != f.saved
}

// Save writes the contents back to the file, keeping its permissions.
func (f *FileStore) Save(ctx context.Context) error {
	lgr := logger.FromContext(ctx)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.path == "" {
		return ErrNoPath
	}
	data, err := loader.Encode(f.contents, f.format)
	if err != nil {
		return fmt.Errorf("encode %s: %w", f.path, err)
	}
	mode := os.FileMode(0o644)
	if info, err := os.Stat(f.path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.WriteFile(f.path, data, mode); err != nil {
		return fmt.Errorf("write %s: %w", f.path, err)
	}
	f.saved = f.contents
	lgr.V(1).Info("saved file", logger.FileKey, f.path, "bytes", len(data))
	return nil
}
