package rpc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"storyweave/internal/api"
	"storyweave/internal/gateway/repository/universe"
	gensvc "storyweave/internal/gateway/service/generation"
	tlsvc "storyweave/internal/gateway/service/timeline"
	"storyweave/internal/generation"
	"storyweave/internal/generation/provider"
	tl "storyweave/internal/timeline"

	"github.com/stretchr/testify/require"
)

const testContract = "0x5fbdb2315678afecb367f032d93f642f64180aa3"

type fakeContract struct {
	mu    sync.Mutex
	nodes []tl.Node
}

func (c *fakeContract) GetFullGraph(context.Context) (tl.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return tl.Snapshot{Nodes: append([]tl.Node(nil), c.nodes...)}, nil
}

func (c *fakeContract) GetLeaves(context.Context) ([]uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	parents := map[uint64]bool{}
	for _, n := range c.nodes {
		parents[n.PreviousID] = true
	}
	var out []uint64
	for _, n := range c.nodes {
		if !parents[n.ID] {
			out = append(out, n.ID)
		}
	}
	return out, nil
}

func (c *fakeContract) CreateNode(_ context.Context, link, plot string, previousID uint64) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := uint64(len(c.nodes) + 1)
	c.nodes = append(c.nodes, tl.Node{ID: id, Link: link, Plot: plot, PreviousID: previousID})
	return id, nil
}

func (c *fakeContract) Creator() string { return "0x00000000000000000000000000000000000000aa" }

type stubImages struct {
	release chan struct{}
}

func (s *stubImages) GenerateImage(ctx context.Context, req provider.ImageRequest) (provider.Image, error) {
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return provider.Image{}, ctx.Err()
		}
	}
	return provider.Image{URL: "https://img.test/" + req.Prompt + ".png"}, nil
}

func (s *stubImages) EditImage(ctx context.Context, req provider.EditRequest) (provider.Image, error) {
	return s.GenerateImage(ctx, provider.ImageRequest{Prompt: req.Prompt})
}

type stubVideos struct{}

func (stubVideos) Name() string { return "stub" }

func (stubVideos) SubmitVideo(_ context.Context, req provider.VideoRequest) (provider.JobStatus, error) {
	return provider.JobStatus{ID: "job", State: provider.JobQueued}, nil
}

func (stubVideos) VideoStatus(_ context.Context, id string) (provider.JobStatus, error) {
	return provider.JobStatus{ID: id, State: provider.JobSucceeded, VideoURL: "https://vid.test/" + id + ".mp4"}, nil
}

type harness struct {
	srv       *httptest.Server
	client    *api.Client
	contract  *fakeContract
	images    *stubImages
	sessions  *gensvc.Service
	universes *universe.Store
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{contract: &fakeContract{}, images: &stubImages{}}

	h.universes = universe.New(universe.NewFileBackend(filepath.Join(t.TempDir(), "universes.json")))
	_, err := h.universes.Put(context.Background(), universe.Universe{ID: "u1", Name: "Harbour", Contract: testContract})
	require.NoError(t, err)

	timelines := tlsvc.New(h.universes, func(string) (tlsvc.Contract, error) { return h.contract, nil }, tlsvc.DefaultConfig())
	orch := &generation.Orchestrator{
		Images: h.images,
		Videos: map[string]provider.VideoGenerator{generation.ProviderSora: stubVideos{}},
	}
	orch.Poll.Interval = 5 * time.Millisecond
	orch.Poll.Timeout = 5 * time.Second
	h.sessions = gensvc.New(orch, func(id string) generation.NodeWriter { return timelines.Writer(id) }, gensvc.Config{})

	mux := http.NewServeMux()
	opts := HandlerOptions()
	for _, r := range []Registrar{
		NewTimelineHandler(timelines),
		NewGenerationHandler(h.sessions),
		NewUniverseHandler(h.universes),
		NewSegmentHandler(),
		NewHealthHandler(map[string]HealthCheck{
			"sessions": func(context.Context) map[string]any { return map[string]any{"open": h.sessions.Len()} },
		}),
	} {
		r.Register(mux, opts...)
	}
	mux.HandleFunc(api.SessionStreamPath, NewSessionStreamHandler(h.sessions).HandleSessionWS)

	h.srv = httptest.NewServer(mux)
	t.Cleanup(func() {
		h.srv.Close()
		h.sessions.Wait()
	})
	h.client = api.NewClient(h.srv.Client(), h.srv.URL)
	return h
}
