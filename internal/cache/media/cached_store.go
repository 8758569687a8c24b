package media

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	mediarepo "storyweave/internal/gateway/repository/media"
)

type Store = mediarepo.Store

type CacheConfig struct {
	TTL        time.Duration
	MaxEntries int
	MaxBytes   int
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		TTL:        30 * time.Minute,
		MaxEntries: 256,
		MaxBytes:   256 * 1024 * 1024, // 256MiB
	}
}

type MetricsSnapshot struct {
	Hits           uint64
	Misses         uint64
	TierHits       uint64
	TierErr        uint64
	OriginReads    uint64
	OriginWrites   uint64
	OriginReadErr  uint64
	OriginWriteErr uint64
}

type Metrics struct {
	hits           atomic.Uint64
	misses         atomic.Uint64
	tierHits       atomic.Uint64
	tierErr        atomic.Uint64
	originReads    atomic.Uint64
	originWrites   atomic.Uint64
	originReadErr  atomic.Uint64
	originWriteErr atomic.Uint64
}

func (m *Metrics) snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Hits:           m.hits.Load(),
		Misses:         m.misses.Load(),
		TierHits:       m.tierHits.Load(),
		TierErr:        m.tierErr.Load(),
		OriginReads:    m.originReads.Load(),
		OriginWrites:   m.originWrites.Load(),
		OriginReadErr:  m.originReadErr.Load(),
		OriginWriteErr: m.originWriteErr.Load(),
	}
}

// Tier is an optional second cache level, usually on local disk.
type Tier interface {
	Get(ctx context.Context, hash string) (mediarepo.Object, bool, error)
	Set(ctx context.Context, obj mediarepo.Object) error
}

// CachedStore is a read-through cache over a media store. Content is
// immutable per hash, so entries are never invalidated, only evicted.
type CachedStore struct {
	origin  Store
	blobs   *blobCache
	tier    Tier
	metrics Metrics
}

func NewCachedStore(origin Store, cfg CacheConfig) *CachedStore {
	def := DefaultCacheConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = def.MaxEntries
	}
	if cfg.MaxBytes < 0 {
		cfg.MaxBytes = def.MaxBytes
	}
	return &CachedStore{
		origin: origin,
		blobs:  newBlobCache(cfg.MaxEntries, cfg.MaxBytes, cfg.TTL),
	}
}

// WithTier adds a second level consulted after the memory cache.
func (s *CachedStore) WithTier(t Tier) *CachedStore {
	s.tier = t
	return s
}

func (s *CachedStore) remember(ctx context.Context, obj mediarepo.Object) {
	s.blobs.set(obj)
	if s.tier == nil {
		return
	}
	if err := s.tier.Set(ctx, obj); err != nil {
		s.metrics.tierErr.Add(1)
		log.Printf("media cache: tier set hash=%s: %v", obj.Hash, err)
	}
}

func (s *CachedStore) Put(ctx context.Context, data []byte, contentType string) (string, error) {
	s.metrics.originWrites.Add(1)
	h, err := s.origin.Put(ctx, data, contentType)
	if err != nil {
		s.metrics.originWriteErr.Add(1)
		return "", err
	}
	s.remember(ctx, mediarepo.Object{Hash: h, ContentType: contentType, Data: append([]byte(nil), data...)})
	return h, nil
}

func (s *CachedStore) Get(ctx context.Context, hash string) (mediarepo.Object, error) {
	if obj, ok := s.blobs.get(hash); ok {
		s.metrics.hits.Add(1)
		obj.Data = append([]byte(nil), obj.Data...)
		return obj, nil
	}
	s.metrics.misses.Add(1)
	if s.tier != nil {
		obj, ok, err := s.tier.Get(ctx, hash)
		if err != nil {
			s.metrics.tierErr.Add(1)
			log.Printf("media cache: tier get hash=%s: %v", hash, err)
		}
		if ok {
			s.metrics.tierHits.Add(1)
			s.blobs.set(obj)
			obj.Data = append([]byte(nil), obj.Data...)
			return obj, nil
		}
	}
	s.metrics.originReads.Add(1)

	obj, err := s.origin.Get(ctx, hash)
	if err != nil {
		s.metrics.originReadErr.Add(1)
		return mediarepo.Object{}, err
	}
	cached := obj
	cached.Data = append([]byte(nil), obj.Data...)
	s.remember(ctx, cached)
	return obj, nil
}

func (s *CachedStore) Metrics() MetricsSnapshot {
	if s == nil {
		return MetricsSnapshot{}
	}
	return s.metrics.snapshot()
}
