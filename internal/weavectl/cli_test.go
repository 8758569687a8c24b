package weavectl

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"storyweave/internal/gateway/handler/rpc"
	"storyweave/internal/gateway/repository/universe"
	gensvc "storyweave/internal/gateway/service/generation"
	tlsvc "storyweave/internal/gateway/service/timeline"
	"storyweave/internal/generation"
	"storyweave/internal/generation/provider"
	tl "storyweave/internal/timeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cliContract = "0x5fbdb2315678afecb367f032d93f642f64180aa3"

// runCLI executes weavectl with a profile and data files under dir.
func runCLI(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", dir)
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", filepath.Join(dir, "config.toml"), "--no-color"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSegmentsCommands(t *testing.T) {
	dir := t.TempDir()

	_, err := runCLI(t, dir, "segments", "add", "--id", "a", "--video", "https://v/a.mp4", "--seconds", "4")
	require.NoError(t, err)
	_, err = runCLI(t, dir, "segments", "add", "--id", "b", "--video", "https://v/b.mp4", "--seconds", "8")
	require.NoError(t, err)
	out, err := runCLI(t, dir, "seg", "swap", "0", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "total 12.0s")

	list, err := loadSegments(filepath.Join(dir, "weavectl", "segments.json"))
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].ID)

	out, err = runCLI(t, dir, "segments", "play")
	require.NoError(t, err)
	assert.Contains(t, out, "https://v/b.mp4")
	assert.Contains(t, out, "https://v/a.mp4")
	assert.Contains(t, out, "finished")

	_, err = runCLI(t, dir, "segments", "rm", "5")
	assert.Error(t, err)
	_, err = runCLI(t, dir, "segments", "move", "x", "0")
	assert.Error(t, err)

	out, err = runCLI(t, dir, "segments", "rm", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "total 4.0s")
}

func TestUniverseCommandsUseLocalStore(t *testing.T) {
	dir := t.TempDir()

	out, err := runCLI(t, dir, "universe", "add", "--id", "harbour", "--name", "Harbour", "--contract", cliContract)
	require.NoError(t, err)
	assert.Contains(t, out, "harbour")

	_, err = runCLI(t, dir, "profile", "set", "universe", "harbour")
	require.NoError(t, err)

	out, err = runCLI(t, dir, "universe", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "* ")
	assert.Contains(t, out, cliContract)

	_, err = runCLI(t, dir, "universe", "add", "--name", "Bad", "--contract", "0x12")
	assert.Error(t, err)

	_, err = runCLI(t, dir, "universe", "rm", "harbour")
	require.NoError(t, err)
	out, err = runCLI(t, dir, "universe", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "(none)")
}

type cliContractFake struct {
	mu    sync.Mutex
	nodes []tl.Node
}

func (c *cliContractFake) GetFullGraph(context.Context) (tl.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return tl.Snapshot{Nodes: append([]tl.Node(nil), c.nodes...)}, nil
}

func (c *cliContractFake) GetLeaves(ctx context.Context) ([]uint64, error) {
	snap, _ := c.GetFullGraph(ctx)
	return tl.Build(snap, tl.DefaultOptions()).Leaves(), nil
}

func (c *cliContractFake) CreateNode(_ context.Context, link, plot string, previousID uint64) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := uint64(len(c.nodes) + 1)
	c.nodes = append(c.nodes, tl.Node{ID: id, Link: link, Plot: plot, PreviousID: previousID})
	return id, nil
}

func (c *cliContractFake) Creator() string { return "" }

type cliImages struct{}

func (cliImages) GenerateImage(_ context.Context, req provider.ImageRequest) (provider.Image, error) {
	return provider.Image{URL: "https://img.test/still.png"}, nil
}

func (cliImages) EditImage(_ context.Context, req provider.EditRequest) (provider.Image, error) {
	return provider.Image{URL: "https://img.test/edit.png"}, nil
}

type cliVideos struct{}

func (cliVideos) Name() string { return "stub" }

func (cliVideos) SubmitVideo(context.Context, provider.VideoRequest) (provider.JobStatus, error) {
	return provider.JobStatus{ID: "clip", State: provider.JobQueued}, nil
}

func (cliVideos) VideoStatus(_ context.Context, id string) (provider.JobStatus, error) {
	return provider.JobStatus{ID: id, State: provider.JobSucceeded, VideoURL: "https://vid.test/" + id + ".mp4"}, nil
}

// newGateway serves the RPC handlers over a fake contract and returns a
// config dir whose profile points at it.
func newGateway(t *testing.T) (string, *cliContractFake) {
	t.Helper()
	contract := &cliContractFake{}
	universes := universe.New(universe.NewFileBackend(filepath.Join(t.TempDir(), "universes.json")))
	_, err := universes.Put(context.Background(), universe.Universe{ID: "harbour", Name: "Harbour", Contract: cliContract})
	require.NoError(t, err)

	timelines := tlsvc.New(universes, func(string) (tlsvc.Contract, error) { return contract, nil }, tlsvc.DefaultConfig())
	orch := &generation.Orchestrator{
		Images: cliImages{},
		Videos: map[string]provider.VideoGenerator{generation.ProviderSora: cliVideos{}},
	}
	orch.Poll.Interval = 5 * time.Millisecond
	orch.Poll.Timeout = 5 * time.Second
	sessions := gensvc.New(orch, func(id string) generation.NodeWriter { return timelines.Writer(id) }, gensvc.Config{})

	mux := http.NewServeMux()
	for _, r := range []rpc.Registrar{
		rpc.NewTimelineHandler(timelines),
		rpc.NewGenerationHandler(sessions),
		rpc.NewUniverseHandler(universes),
		rpc.NewHealthHandler(nil),
	} {
		r.Register(mux, rpc.HandlerOptions()...)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		sessions.Wait()
	})

	dir := t.TempDir()
	p := DefaultProfile()
	p.Gateway = srv.URL
	p.Universe = "harbour"
	p.Store = filepath.Join(dir, "universes.db")
	p.Segments = filepath.Join(dir, "segments.json")
	require.NoError(t, SaveProfile(filepath.Join(dir, "config.toml"), p))
	return dir, contract
}

func TestGenerateCommitsAndGraphShowsNode(t *testing.T) {
	dir, contract := newGateway(t)

	out, err := runCLI(t, dir, "generate", "--prompt", "harbour at dawn", "--motion", "waves", "--seconds", "6", "--plot", "the tide turns")
	require.NoError(t, err)
	assert.Contains(t, out, "image https://img.test/still.png")
	assert.Contains(t, out, "duration 6s is not offered by sora-2, used 4s")
	assert.Contains(t, out, "node 1")
	require.Len(t, contract.nodes, 1)
	assert.Equal(t, "https://vid.test/clip.mp4", contract.nodes[0].Link)
	assert.Equal(t, "the tide turns", contract.nodes[0].Plot)

	out, err = runCLI(t, dir, "graph")
	require.NoError(t, err)
	assert.Contains(t, out, "the tide turns")
	assert.Contains(t, out, "roots=1 leaves=1")

	out, err = runCLI(t, dir, "leaves")
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)
}

func TestGenerateExportAppendsSegment(t *testing.T) {
	dir, contract := newGateway(t)

	out, err := runCLI(t, dir, "generate", "--prompt", "fog", "--export")
	require.NoError(t, err)
	assert.Contains(t, out, "(1 clips)")
	assert.Empty(t, contract.nodes)

	list, err := loadSegments(filepath.Join(dir, "segments.json"))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "https://vid.test/clip.mp4", list[0].VideoURL)
	assert.Equal(t, 4.0, list[0].Seconds)
}

func TestGatewayCommands(t *testing.T) {
	dir, _ := newGateway(t)

	out, err := runCLI(t, dir, "models")
	require.NoError(t, err)
	assert.Contains(t, out, "sora-2")
	assert.Contains(t, out, "4/8/12")

	out, err = runCLI(t, dir, "health")
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "ok"`)

	out, err = runCLI(t, dir, "graph")
	require.NoError(t, err)
	assert.Contains(t, out, "(empty timeline)")

	_, err = runCLI(t, dir, "--universe", "nope", "leaves")
	assert.Error(t, err)

	_, err = runCLI(t, dir, "universe", "sync", "--pull")
	require.NoError(t, err)
	out, err = runCLI(t, dir, "universe", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "harbour")
}
