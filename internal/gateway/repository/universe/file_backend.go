package universe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileBackend keeps every universe in one JSON file, rewritten on change.
type FileBackend struct {
	path string

	loadOnce sync.Once
	loadErr  error
	mu       sync.RWMutex
	byID     map[string]Universe
}

func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path, byID: make(map[string]Universe)}
}

func (b *FileBackend) ensureLoaded() error {
	b.loadOnce.Do(func() {
		raw, err := os.ReadFile(b.path)
		if errors.Is(err, fs.ErrNotExist) {
			return
		}
		if err != nil {
			b.loadErr = err
			return
		}
		var rows []Universe
		if err := json.Unmarshal(raw, &rows); err != nil {
			b.loadErr = fmt.Errorf("decode %s: %w", b.path, err)
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		for _, row := range rows {
			row = normalize(row)
			if row.ID == "" {
				continue
			}
			b.byID[row.ID] = row
		}
	})
	return b.loadErr
}

func (b *FileBackend) saveLocked() error {
	rows := make([]Universe, 0, len(b.byID))
	for _, u := range b.byID {
		rows = append(rows, u)
	}
	raw, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(b.path), 0o755); err != nil {
		return err
	}
	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, b.path)
}

func (b *FileBackend) Get(_ context.Context, id string) (Universe, error) {
	if err := b.ensureLoaded(); err != nil {
		return Universe{}, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	u, ok := b.byID[id]
	if !ok {
		return Universe{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return u, nil
}

func (b *FileBackend) Put(_ context.Context, u Universe) error {
	if err := b.ensureLoaded(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	prev, had := b.byID[u.ID]
	b.byID[u.ID] = u
	if err := b.saveLocked(); err != nil {
		if had {
			b.byID[u.ID] = prev
		} else {
			delete(b.byID, u.ID)
		}
		return err
	}
	return nil
}

func (b *FileBackend) List(_ context.Context) ([]Universe, error) {
	if err := b.ensureLoaded(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Universe, 0, len(b.byID))
	for _, u := range b.byID {
		out = append(out, u)
	}
	return out, nil
}

func (b *FileBackend) Delete(_ context.Context, id string) error {
	if err := b.ensureLoaded(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	prev, ok := b.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(b.byID, id)
	if err := b.saveLocked(); err != nil {
		b.byID[id] = prev
		return err
	}
	return nil
}

func (b *FileBackend) Close() error { return nil }
