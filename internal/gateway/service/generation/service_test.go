package generation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	gen "storyweave/internal/generation"
	"storyweave/internal/generation/provider"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeImages struct {
	release chan struct{}
	err     error
}

func (f *fakeImages) wait(ctx context.Context) {
	if f.release == nil {
		return
	}
	select {
	case <-f.release:
	case <-ctx.Done():
	}
}

func (f *fakeImages) GenerateImage(ctx context.Context, req provider.ImageRequest) (provider.Image, error) {
	f.wait(ctx)
	if f.err != nil {
		return provider.Image{}, f.err
	}
	return provider.Image{URL: "https://img.test/" + req.Prompt + ".png"}, nil
}

func (f *fakeImages) EditImage(ctx context.Context, req provider.EditRequest) (provider.Image, error) {
	return f.GenerateImage(ctx, provider.ImageRequest{Prompt: req.Prompt})
}

type fakeVideos struct {
	mu       sync.Mutex
	requests []provider.VideoRequest
}

func (f *fakeVideos) Name() string { return "fake" }

func (f *fakeVideos) SubmitVideo(_ context.Context, req provider.VideoRequest) (provider.JobStatus, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return provider.JobStatus{ID: "job-1", State: provider.JobSucceeded, VideoURL: "https://vid.test/1.mp4"}, nil
}

func (f *fakeVideos) VideoStatus(context.Context, string) (provider.JobStatus, error) {
	return provider.JobStatus{}, errors.New("not polled")
}

type fakeWriter struct {
	mu    sync.Mutex
	calls []string
}

func (w *fakeWriter) CreateNode(_ context.Context, link, plot string, previousID uint64) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls = append(w.calls, link+"|"+plot)
	return previousID + 1, nil
}

func newService(images *fakeImages, videos *fakeVideos, writer *fakeWriter) *Service {
	orch := &gen.Orchestrator{
		Images: images,
		Videos: map[string]provider.VideoGenerator{gen.ProviderSora: videos},
	}
	return New(orch, func(string) gen.NodeWriter { return writer }, Config{StepTimeout: 5 * time.Second})
}

func TestSessionRunsToCommit(t *testing.T) {
	videos := &fakeVideos{}
	writer := &fakeWriter{}
	svc := newService(&fakeImages{}, videos, writer)

	snap := svc.Start("u1", 7)
	assert.Equal(t, gen.StatusIdle, snap.Status)

	started, err := svc.GenerateImage(context.Background(), snap.ID, gen.ImageInput{Prompt: "castle"})
	require.NoError(t, err)
	assert.Equal(t, gen.StatusGeneratingImage, started.Status)
	svc.Wait()

	snap, err = svc.Snapshot(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, gen.StatusImageReady, snap.Status)
	assert.Equal(t, "https://img.test/castle.png", snap.ImageURL)

	_, err = svc.GenerateVideo(context.Background(), snap.ID, gen.VideoInput{Prompt: "pan", Model: "sora-2", Seconds: 6})
	require.NoError(t, err)
	svc.Wait()

	snap, err = svc.Snapshot(snap.ID)
	require.NoError(t, err)
	require.Equal(t, gen.StatusVideoReady, snap.Status)
	assert.Equal(t, 4, snap.Video.Seconds)
	require.Len(t, videos.requests, 1)
	assert.Equal(t, "https://img.test/castle.png", videos.requests[0].Image.URL)

	nodeID, link, err := svc.Commit(context.Background(), snap.ID, "the gate opens")
	require.NoError(t, err)
	assert.Equal(t, uint64(8), nodeID)
	assert.Equal(t, "https://vid.test/1.mp4", link)
	assert.Equal(t, []string{"https://vid.test/1.mp4|the gate opens"}, writer.calls)

	_, err = svc.Snapshot(snap.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSecondStepWhileBusyIsRejected(t *testing.T) {
	images := &fakeImages{release: make(chan struct{})}
	svc := newService(images, &fakeVideos{}, &fakeWriter{})
	snap := svc.Start("u1", 0)

	_, err := svc.GenerateImage(context.Background(), snap.ID, gen.ImageInput{Prompt: "a"})
	require.NoError(t, err)
	_, err = svc.GenerateImage(context.Background(), snap.ID, gen.ImageInput{Prompt: "b"})
	assert.ErrorIs(t, err, gen.ErrBusy)

	close(images.release)
	svc.Wait()
	snap, err = svc.Snapshot(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://img.test/a.png", snap.ImageURL)
}

func TestClosedSessionDiscardsInFlightResult(t *testing.T) {
	images := &fakeImages{release: make(chan struct{})}
	writer := &fakeWriter{}
	svc := newService(images, &fakeVideos{}, writer)
	snap := svc.Start("u1", 0)

	ctx, cancel := context.WithCancel(context.Background())
	_, err := svc.GenerateImage(ctx, snap.ID, gen.ImageInput{Prompt: "a"})
	require.NoError(t, err)
	cancel()

	require.NoError(t, svc.Close(snap.ID))
	close(images.release)
	svc.Wait()

	assert.Equal(t, 0, svc.Len())
	_, err = svc.Commit(context.Background(), snap.ID, "plot")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, writer.calls)
}

func TestFailedImageLeavesSessionRestartable(t *testing.T) {
	images := &fakeImages{err: errors.New("quota exceeded")}
	svc := newService(images, &fakeVideos{}, &fakeWriter{})
	snap := svc.Start("u1", 0)

	_, err := svc.GenerateImage(context.Background(), snap.ID, gen.ImageInput{Prompt: "a"})
	require.NoError(t, err)
	svc.Wait()

	snap, err = svc.Snapshot(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, gen.StatusFailed, snap.Status)
	assert.Contains(t, snap.Error, "quota exceeded")

	_, err = svc.GenerateVideo(context.Background(), snap.ID, gen.VideoInput{Model: "sora-2"})
	assert.ErrorIs(t, err, gen.ErrInvalidTransition)

	images.err = nil
	_, err = svc.GenerateImage(context.Background(), snap.ID, gen.ImageInput{Prompt: "b"})
	require.NoError(t, err)
	svc.Wait()
	snap, err = svc.Snapshot(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, gen.StatusImageReady, snap.Status)
}

func TestSubscribeSeesTransitions(t *testing.T) {
	svc := newService(&fakeImages{}, &fakeVideos{}, &fakeWriter{})
	snap := svc.Start("u1", 0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	events, err := svc.Subscribe(ctx, snap.ID)
	require.NoError(t, err)

	_, err = svc.GenerateImage(context.Background(), snap.ID, gen.ImageInput{Prompt: "a"})
	require.NoError(t, err)

	for {
		select {
		case got, ok := <-events:
			require.True(t, ok, "stream ended early")
			if got.Status == gen.StatusImageReady {
				return
			}
		case <-ctx.Done():
			t.Fatal("no image-ready snapshot")
		}
	}
}

func TestExportReleasesSession(t *testing.T) {
	svc := newService(&fakeImages{}, &fakeVideos{}, &fakeWriter{})
	snap := svc.Start("u1", 0)
	_, err := svc.GenerateImage(context.Background(), snap.ID, gen.ImageInput{Prompt: "a"})
	require.NoError(t, err)
	svc.Wait()
	_, err = svc.GenerateVideo(context.Background(), snap.ID, gen.VideoInput{Model: "sora-2", Seconds: 8})
	require.NoError(t, err)
	svc.Wait()

	seg, err := svc.Export(context.Background(), snap.ID, "pan")
	require.NoError(t, err)
	assert.Equal(t, "https://vid.test/1.mp4", seg.VideoURL)
	assert.Equal(t, float64(8), seg.Seconds)
	assert.Equal(t, 0, svc.Len())
}

func TestUnknownSession(t *testing.T) {
	svc := newService(&fakeImages{}, &fakeVideos{}, &fakeWriter{})
	_, err := svc.GenerateImage(context.Background(), "nope", gen.ImageInput{Prompt: "a"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Close("nope"), ErrNotFound)
}

func TestAwaitReturnsSettledSnapshot(t *testing.T) {
	images := &fakeImages{release: make(chan struct{})}
	svc := newService(images, &fakeVideos{}, &fakeWriter{})
	snap := svc.Start("u1", 0)
	_, err := svc.GenerateImage(context.Background(), snap.ID, gen.ImageInput{Prompt: "a"})
	require.NoError(t, err)

	pending, err := svc.Await(context.Background(), snap.ID, 20*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, gen.StatusGeneratingImage, pending.Status)

	close(images.release)
	done, err := svc.Await(context.Background(), snap.ID, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, gen.StatusImageReady, done.Status)
	svc.Wait()
}
