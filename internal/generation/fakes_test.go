package generation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"storyweave/internal/common/poll"
	"storyweave/internal/generation/provider"
)

type fakeImages struct {
	mu     sync.Mutex
	gens   []provider.ImageRequest
	edits  []provider.EditRequest
	err    error
	inline bool
}

func (f *fakeImages) GenerateImage(ctx context.Context, req provider.ImageRequest) (provider.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gens = append(f.gens, req)
	if f.err != nil {
		return provider.Image{}, f.err
	}
	if f.inline {
		return provider.Image{Bytes: []byte("png:" + req.Prompt), MIMEType: "image/png"}, nil
	}
	return provider.Image{URL: "https://img.example/" + req.Prompt}, nil
}

func (f *fakeImages) EditImage(ctx context.Context, req provider.EditRequest) (provider.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, req)
	if f.err != nil {
		return provider.Image{}, f.err
	}
	return provider.Image{Bytes: []byte("edit"), MIMEType: "image/png"}, nil
}

// fakeVideos replays statuses on successive VideoStatus calls.
type fakeVideos struct {
	mu        sync.Mutex
	name      string
	submitted []provider.VideoRequest
	statuses  []provider.JobStatus
	statusErr error
	calls     int
}

func (f *fakeVideos) Name() string { return f.name }

func (f *fakeVideos) SubmitVideo(ctx context.Context, req provider.VideoRequest) (provider.JobStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, req)
	return provider.JobStatus{ID: "job-1", State: provider.JobQueued}, nil
}

func (f *fakeVideos) VideoStatus(ctx context.Context, id string) (provider.JobStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.statusErr != nil {
		return provider.JobStatus{}, f.statusErr
	}
	st := f.statuses[min(f.calls-1, len(f.statuses)-1)]
	st.ID = id
	return st, nil
}

func (f *fakeVideos) Download(ctx context.Context, url string) ([]byte, string, error) {
	return []byte("mp4:" + url), "video/mp4", nil
}

func (f *fakeVideos) requests() []provider.VideoRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]provider.VideoRequest(nil), f.submitted...)
}

type fakeMedia struct {
	mu    sync.Mutex
	types []string
}

func (f *fakeMedia) Put(ctx context.Context, data []byte, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.types = append(f.types, contentType)
	return fmt.Sprintf("https://media.example/%d", len(f.types)), nil
}

func (f *fakeMedia) videoUploads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.types {
		if t == "video/mp4" {
			n++
		}
	}
	return n
}

type fakeFetch struct{ err error }

func (f fakeFetch) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	return []byte("bytes:" + url), "image/png", nil
}

type createCall struct {
	Link     string
	Plot     string
	Previous uint64
}

type fakeNodes struct {
	mu    sync.Mutex
	calls []createCall
	err   error
	// entered and release, when set, hold CreateNode until the test lets go.
	entered chan struct{}
	release chan struct{}
}

func (f *fakeNodes) CreateNode(ctx context.Context, link, plot string, previous uint64) (uint64, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.calls = append(f.calls, createCall{link, plot, previous})
	return uint64(100 + len(f.calls)), nil
}

func (f *fakeNodes) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func succeeded() []provider.JobStatus {
	return []provider.JobStatus{
		{State: provider.JobRunning, Progress: 50},
		{State: provider.JobSucceeded, VideoURL: "https://provider.example/v.mp4"},
	}
}

func failedJob(msg string) []provider.JobStatus {
	return []provider.JobStatus{
		{State: provider.JobRunning},
		{State: provider.JobFailed, Message: msg},
	}
}

func testOrchestrator(images *fakeImages, videos *fakeVideos, media *fakeMedia) *Orchestrator {
	return &Orchestrator{
		Images: images,
		Videos: map[string]provider.VideoGenerator{videos.name: videos},
		Media:  media,
		Fetch:  fakeFetch{},
		Poll:   poll.Policy{Interval: time.Millisecond, Timeout: time.Second, MaxErrors: 1},
		Upload: true,
	}
}

var errProvider = errors.New("provider says no")
