// Package file persists the monitoring cursor as a JSON document on local
// disk. Writes go through a temp file plus rename so a crash mid-write
// never leaves a torn cursor behind.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gabapcia/poolwatch/internal/poolwatch"
)

// CursorStore stores the cursor at a fixed filesystem path.
type CursorStore struct {
	path string
}

var _ poolwatch.CursorStorage = (*CursorStore)(nil)

// NewCursorStore builds a store rooted at path, creating parent directories
// as needed.
func NewCursorStore(path string) (*CursorStore, error) {
	if path == "" {
		return nil, fmt.Errorf("cursor path is required")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cursor directory: %w", err)
		}
	}

	return &CursorStore{path: path}, nil
}

// Load reads the last committed cursor. A missing file means no cursor has
// ever been saved.
func (s *CursorStore) Load(ctx context.Context) (poolwatch.StateCursor, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return poolwatch.StateCursor{}, poolwatch.ErrNoCursorFound
	}
	if err != nil {
		return poolwatch.StateCursor{}, fmt.Errorf("reading cursor file: %w", err)
	}

	var cursor poolwatch.StateCursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return poolwatch.StateCursor{}, fmt.Errorf("decoding cursor file: %w", err)
	}
	if cursor.Baselines == nil {
		cursor.Baselines = make(map[string]string)
	}
	return cursor, nil
}

// Save atomically replaces the stored cursor.
func (s *CursorStore) Save(ctx context.Context, cursor poolwatch.StateCursor) error {
	data, err := json.Marshal(cursor)
	if err != nil {
		return fmt.Errorf("encoding cursor: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp cursor file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp cursor file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("syncing temp cursor file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp cursor file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing cursor file: %w", err)
	}
	return nil
}
