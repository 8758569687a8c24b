package universe

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2"
)

// Backend persists universes.
type Backend interface {
	Get(ctx context.Context, id string) (Universe, error)
	Put(ctx context.Context, u Universe) error
	List(ctx context.Context) ([]Universe, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// Store validates universes and caches lookups in front of a Backend.
type Store struct {
	backend Backend
	cache   *lru.Cache[string, Universe]
	now     func() time.Time
}

func New(backend Backend) *Store {
	cache, err := lru.New[string, Universe](256)
	if err != nil {
		panic(err)
	}
	return &Store{backend: backend, cache: cache, now: time.Now}
}

// Open picks a backend from dsn: empty for the JSON file at path,
// postgres:// for Postgres, sqlite: or file: for SQLite.
func Open(dsn, path string) (*Store, error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case dsn == "":
		log.Printf("universe store: file path=%s", path)
		return New(NewFileBackend(path)), nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		b, err := OpenPostgres(dsn)
		if err != nil {
			return nil, err
		}
		log.Printf("universe store: postgres")
		return New(b), nil
	case strings.HasPrefix(dsn, "sqlite:"), strings.HasPrefix(dsn, "file:"):
		b, err := OpenSQLite(strings.TrimPrefix(dsn, "sqlite:"))
		if err != nil {
			return nil, err
		}
		log.Printf("universe store: sqlite")
		return New(b), nil
	default:
		return nil, fmt.Errorf("universe store: unsupported dsn %q", dsn)
	}
}

func (s *Store) Get(ctx context.Context, id string) (Universe, error) {
	id = strings.TrimSpace(id)
	if u, ok := s.cache.Get(id); ok {
		return u, nil
	}
	u, err := s.backend.Get(ctx, id)
	if err != nil {
		return Universe{}, err
	}
	s.cache.Add(id, u)
	return u, nil
}

// Put creates or replaces u. An empty ID gets a fresh one.
func (s *Store) Put(ctx context.Context, u Universe) (Universe, error) {
	u = normalize(u)
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if err := validate(u); err != nil {
		return Universe{}, err
	}
	now := s.now().UTC()
	if prev, err := s.Get(ctx, u.ID); err == nil {
		u.CreatedAt = prev.CreatedAt
	} else if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	if err := s.backend.Put(ctx, u); err != nil {
		return Universe{}, fmt.Errorf("put universe %s: %w", u.ID, err)
	}
	s.cache.Add(u.ID, u)
	return u, nil
}

func (s *Store) List(ctx context.Context) ([]Universe, error) {
	out, err := s.backend.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	s.cache.Remove(id)
	return s.backend.Delete(ctx, id)
}

// FindByContract returns the universe bound to a contract address.
func (s *Store) FindByContract(ctx context.Context, address string) (Universe, error) {
	want := normalize(Universe{Contract: address}).Contract
	all, err := s.List(ctx)
	if err != nil {
		return Universe{}, err
	}
	for _, u := range all {
		if strings.EqualFold(u.Contract, want) {
			return u, nil
		}
	}
	return Universe{}, fmt.Errorf("%w: contract %s", ErrNotFound, address)
}

func (s *Store) Close() error {
	s.cache.Purge()
	return s.backend.Close()
}
