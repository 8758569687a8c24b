// Package disk keeps media objects on local disk as a second cache tier
// between the in-memory blob cache and the object store.
package disk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	mediarepo "storyweave/internal/gateway/repository/media"
)

type Config struct {
	Root       string
	MaxEntries int
	MaxBytes   int64
}

type indexEntry struct {
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	AccessedAt  time.Time `json:"accessed_at"`
}

type index struct {
	Entries map[string]indexEntry `json:"entries"`
}

// Tier stores objects under <root>/data/<hash> and evicts the least recently
// used ones once MaxEntries or MaxBytes is exceeded. The index survives
// restarts; files missing on disk are dropped from it on open.
type Tier struct {
	mu sync.Mutex

	dataDir   string
	indexPath string

	maxEntries int
	maxBytes   int64

	totalBytes int64
	entries    map[string]indexEntry
	now        func() time.Time
}

func Open(cfg Config) (*Tier, error) {
	root := strings.TrimSpace(cfg.Root)
	if root == "" {
		return nil, errors.New("disk tier: root is required")
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 4096
	}
	t := &Tier{
		dataDir:    filepath.Join(root, "data"),
		indexPath:  filepath.Join(root, "index.json"),
		maxEntries: cfg.MaxEntries,
		maxBytes:   cfg.MaxBytes,
		entries:    map[string]indexEntry{},
		now:        time.Now,
	}
	if err := os.MkdirAll(t.dataDir, 0o755); err != nil {
		return nil, err
	}
	if err := t.loadIndex(); err != nil {
		return nil, fmt.Errorf("disk tier: %w", err)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.pruneLocked(); err != nil {
		return nil, err
	}
	return t, t.persistIndexLocked()
}

// Get returns the object for hash. A miss is (zero, false, nil).
func (t *Tier) Get(_ context.Context, hash string) (mediarepo.Object, bool, error) {
	if !mediarepo.ValidHash(hash) {
		return mediarepo.Object{}, false, nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	ent, ok := t.entries[hash]
	if !ok {
		return mediarepo.Object{}, false, nil
	}
	data, err := os.ReadFile(filepath.Join(t.dataDir, hash))
	if errors.Is(err, os.ErrNotExist) {
		t.removeLocked(hash)
		return mediarepo.Object{}, false, t.persistIndexLocked()
	}
	if err != nil {
		return mediarepo.Object{}, false, err
	}
	ent.AccessedAt = t.now()
	t.entries[hash] = ent
	if err := t.persistIndexLocked(); err != nil {
		return mediarepo.Object{}, false, err
	}
	return mediarepo.Object{Hash: hash, ContentType: ent.ContentType, Data: data}, true, nil
}

// Set writes obj unless it is already present.
func (t *Tier) Set(_ context.Context, obj mediarepo.Object) error {
	if !mediarepo.ValidHash(obj.Hash) {
		return fmt.Errorf("%w: %q", mediarepo.ErrInvalidHash, obj.Hash)
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if ent, ok := t.entries[obj.Hash]; ok {
		ent.AccessedAt = t.now()
		t.entries[obj.Hash] = ent
		return t.persistIndexLocked()
	}
	path := filepath.Join(t.dataDir, obj.Hash)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, obj.Data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return err
	}
	t.entries[obj.Hash] = indexEntry{
		ContentType: obj.ContentType,
		Size:        int64(len(obj.Data)),
		AccessedAt:  t.now(),
	}
	t.totalBytes += int64(len(obj.Data))
	if err := t.pruneLocked(); err != nil {
		return err
	}
	return t.persistIndexLocked()
}

func (t *Tier) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func (t *Tier) Bytes() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totalBytes
}

func (t *Tier) loadIndex() error {
	raw, err := os.ReadFile(t.indexPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	var idx index
	if err := json.Unmarshal(raw, &idx); err != nil {
		return fmt.Errorf("parse %s: %w", t.indexPath, err)
	}
	for hash, ent := range idx.Entries {
		if mediarepo.ValidHash(hash) {
			t.entries[hash] = ent
			t.totalBytes += ent.Size
		}
	}
	return nil
}

func (t *Tier) pruneLocked() error {
	for hash := range t.entries {
		if _, err := os.Stat(filepath.Join(t.dataDir, hash)); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return err
			}
			t.removeLocked(hash)
		}
	}
	for t.overLocked() {
		t.removeLocked(t.oldestLocked())
	}
	return nil
}

func (t *Tier) overLocked() bool {
	if len(t.entries) == 0 {
		return false
	}
	return len(t.entries) > t.maxEntries || (t.maxBytes > 0 && t.totalBytes > t.maxBytes)
}

func (t *Tier) oldestLocked() string {
	keys := make([]string, 0, len(t.entries))
	for k := range t.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := t.entries[keys[i]].AccessedAt, t.entries[keys[j]].AccessedAt
		if a.Equal(b) {
			return keys[i] < keys[j]
		}
		return a.Before(b)
	})
	return keys[0]
}

func (t *Tier) removeLocked(hash string) {
	ent, ok := t.entries[hash]
	if !ok {
		return
	}
	delete(t.entries, hash)
	t.totalBytes = max(t.totalBytes-ent.Size, 0)
	_ = os.Remove(filepath.Join(t.dataDir, hash))
}

func (t *Tier) persistIndexLocked() error {
	raw, err := json.MarshalIndent(index{Entries: t.entries}, "", "  ")
	if err != nil {
		return err
	}
	tmp := t.indexPath + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, t.indexPath)
}
