package app

import (
	"fmt"
	"log"
	"net/http"

	"storyweave/internal/cache/disk"
	mediacache "storyweave/internal/cache/media"
	"storyweave/internal/gateway/config"
	mediarepo "storyweave/internal/gateway/repository/media"
	"storyweave/internal/gateway/repository/universe"
)

type gatewayStores struct {
	media     *mediacache.CachedStore
	library   *mediarepo.Library
	universes *universe.Store
}

func initStores(cfg *config.Config, httpClient *http.Client) (*gatewayStores, error) {
	origin, err := chooseMediaStore(cfg, mediarepo.NewMemoryStore(), "in-memory", newMediaS3StoreFactory(cfg))
	if err != nil {
		return nil, err
	}
	cached := mediacache.NewCachedStore(origin, mediacache.DefaultCacheConfig())
	if dir := cfg.Media.CacheDir; dir != "" {
		tier, err := disk.Open(disk.Config{Root: dir, MaxBytes: cfg.Media.CacheDirMaxBytes})
		if err != nil {
			return nil, fmt.Errorf("failed to open media disk cache: %w", err)
		}
		cached.WithTier(tier)
		log.Printf("media cache: disk tier dir=%s entries=%d", dir, tier.Len())
	}

	universes, err := universe.Open(cfg.Universe.DSN, cfg.Universe.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open universe store: %w", err)
	}
	return &gatewayStores{
		media:     cached,
		library:   mediarepo.NewLibrary(cached, cfg.Media.PublicBaseURL, httpClient),
		universes: universes,
	}, nil
}

func newMediaS3StoreFactory(cfg *config.Config) func() (mediarepo.Store, error) {
	return func() (mediarepo.Store, error) {
		s3Cfg := mediarepo.S3Config{
			Endpoint:  cfg.Media.Endpoint,
			Region:    cfg.Media.Region,
			AccessKey: cfg.Media.AccessKey,
			SecretKey: cfg.Media.SecretKey,
			Bucket:    cfg.Media.Bucket,
			UseSSL:    cfg.Media.UseSSL,
		}
		s3Store, err := mediarepo.NewS3Store(s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize media s3 store: %w", err)
		}
		log.Printf("media store: s3 bucket=%s endpoint=%s", s3Cfg.Bucket, s3Cfg.Endpoint)
		return s3Store, nil
	}
}

func chooseMediaStore(
	cfg *config.Config,
	fallback mediarepo.Store,
	fallbackLabel string,
	s3Factory func() (mediarepo.Store, error),
) (mediarepo.Store, error) {
	if cfg.Media.CanUseS3() {
		return s3Factory()
	}
	if cfg.Media.Enabled {
		log.Printf("media store: using %s fallback (s3 config incomplete)", fallbackLabel)
	} else {
		log.Printf("media store: %s", fallbackLabel)
	}
	if fallback == nil {
		return nil, fmt.Errorf("media fallback store is nil")
	}
	return fallback, nil
}
