package app

import (
	"context"
	"log"
	"net/http"

	"storyweave/internal/gateway/config"
	"storyweave/internal/generation"
	"storyweave/internal/generation/provider"
)

type providerSet struct {
	images   provider.ImageGenerator
	videos   map[string]provider.VideoGenerator
	limiters []*provider.Limiter
}

func (p *providerSet) stop() {
	for _, l := range p.limiters {
		l.Stop()
	}
}

func (p *providerSet) limiter(cfg config.ProviderConfig) *provider.Limiter {
	l := provider.NewLimiter(cfg.RPS, cfg.Burst)
	if l != nil {
		p.limiters = append(p.limiters, l)
	}
	return l
}

// initProviders builds every provider whose credentials are configured.
// Missing providers leave their models unusable rather than failing startup.
func initProviders(ctx context.Context, cfg config.ProviderConfig, httpClient *http.Client) *providerSet {
	set := &providerSet{videos: map[string]provider.VideoGenerator{}}

	if cfg.GeminiAPIKey != "" {
		g, err := provider.NewGeminiProvider(ctx, provider.GeminiConfig{
			APIKey:     cfg.GeminiAPIKey,
			ImageModel: cfg.GeminiImageModel,
			EditModel:  cfg.GeminiEditModel,
			HTTPClient: httpClient,
			JobTTL:     cfg.JobTTL,
		})
		if err != nil {
			log.Printf("provider: gemini disabled: %v", err)
		} else {
			set.images = provider.LimitImages(g, set.limiter(cfg))
			set.videos[generation.ProviderGemini] = provider.LimitVideos(g, set.limiter(cfg))
			log.Printf("provider: gemini enabled")
		}
	}

	rest := []struct {
		name, base, key string
	}{
		{generation.ProviderSora, cfg.SoraBaseURL, cfg.SoraAPIKey},
		{generation.ProviderKling, cfg.KlingBaseURL, cfg.KlingAPIKey},
	}
	for _, r := range rest {
		if r.base == "" || r.key == "" {
			continue
		}
		p, err := provider.NewRESTVideoProvider(provider.RESTConfig{
			Name:       r.name,
			BaseURL:    r.base,
			APIKey:     r.key,
			HTTPClient: httpClient,
		})
		if err != nil {
			log.Printf("provider: %s disabled: %v", r.name, err)
			continue
		}
		set.videos[r.name] = provider.LimitVideos(p, set.limiter(cfg))
		log.Printf("provider: %s enabled base=%s", r.name, r.base)
	}
	return set
}
