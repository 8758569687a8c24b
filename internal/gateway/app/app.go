package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"storyweave/internal/common/poll"
	"storyweave/internal/gateway/config"
	"storyweave/internal/gateway/handler"
	"storyweave/internal/gateway/handler/rpc"
	"storyweave/internal/gateway/server"
	gatewaygeneration "storyweave/internal/gateway/service/generation"
	gatewaytimeline "storyweave/internal/gateway/service/timeline"
	"storyweave/internal/generation"

	"github.com/ethereum/go-ethereum/ethclient"
)

type App struct {
	server     *server.Server
	stores     *gatewayStores
	providers  *providerSet
	chain      *ethclient.Client
	generation *gatewaygeneration.Service
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return NewWithConfig(ctx, cfg)
}

func NewWithConfig(ctx context.Context, cfg *config.Config) (*App, error) {
	httpClient := &http.Client{Timeout: 5 * time.Minute}

	// Dependencies
	stores, err := initStores(cfg, httpClient)
	if err != nil {
		return nil, err
	}
	chainClient, dial, err := initChain(ctx, cfg.Chain)
	if err != nil {
		_ = stores.universes.Close()
		return nil, err
	}
	providers := initProviders(ctx, cfg.Providers, httpClient)

	timelineSvc := gatewaytimeline.New(stores.universes, dial, gatewaytimeline.DefaultConfig())
	orch := &generation.Orchestrator{
		Images: providers.images,
		Videos: providers.videos,
		Media:  stores.library,
		Fetch:  stores.library,
		Poll: poll.Policy{
			Interval:  cfg.Poll.Interval,
			Timeout:   cfg.Poll.Timeout,
			MaxErrors: cfg.Poll.MaxErrors,
		},
		Upload: cfg.Media.Upload,
	}
	generationSvc := gatewaygeneration.New(orch, func(universeID string) generation.NodeWriter {
		return timelineSvc.Writer(universeID)
	}, gatewaygeneration.Config{SessionTTL: cfg.SessionTTL, StepTimeout: cfg.StepTimeout})

	healthHandler := rpc.NewHealthHandler(map[string]rpc.HealthCheck{
		"mediaCache": func(context.Context) map[string]any {
			m := stores.media.Metrics()
			return map[string]any{"hits": m.Hits, "misses": m.Misses, "diskHits": m.TierHits, "originReadErrors": m.OriginReadErr}
		},
		"sessions": func(context.Context) map[string]any {
			return map[string]any{"open": generationSvc.Len()}
		},
		"providers": func(context.Context) map[string]any {
			out := map[string]any{"image": providers.images != nil}
			for name := range providers.videos {
				out[name] = true
			}
			return out
		},
	})

	// Routing & Server
	mux := server.NewMux(server.Routes{
		RPC: []rpc.Registrar{
			rpc.NewTimelineHandler(timelineSvc),
			rpc.NewGenerationHandler(generationSvc),
			rpc.NewUniverseHandler(stores.universes),
			rpc.NewSegmentHandler(),
			healthHandler,
		},
		Sessions:       rpc.NewSessionStreamHandler(generationSvc),
		Media:          handler.NewMediaHandler(stores.media),
		AllowedOrigins: cfg.AllowedOrigins,
	})
	srv := server.New(cfg.Port, mux, server.Options{
		ReadHeaderTimeout:    cfg.Server.ReadHeaderTimeout,
		IdleTimeout:          cfg.Server.IdleTimeout,
		MaxConcurrentStreams: cfg.Server.MaxConcurrentStreams,
		ShutdownGrace:        cfg.Server.ShutdownGrace,
	})

	return &App{
		server:     srv,
		stores:     stores,
		providers:  providers,
		chain:      chainClient,
		generation: generationSvc,
	}, nil
}

func (a *App) Start() error {
	return a.server.Start()
}

// ShutdownGrace is how long Shutdown should be given. Steps still running
// after it are abandoned and their sessions are lost.
func (a *App) ShutdownGrace() time.Duration {
	return a.server.Grace()
}

// Shutdown stops accepting requests, lets running generation steps finish
// and releases the stores.
func (a *App) Shutdown(ctx context.Context) error {
	errs := []error{a.server.Shutdown(ctx)}
	errs = append(errs, a.generation.Shutdown(ctx))
	a.providers.stop()
	a.chain.Close()
	errs = append(errs, a.stores.universes.Close())
	return errors.Join(errs...)
}
