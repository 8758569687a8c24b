package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJobAPI struct {
	mu       sync.Mutex
	polls    int
	statuses []string
	created  restCreateRequest
	auth     string
}

func (f *fakeJobAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /videos", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&f.created)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "vid_1", "status": "queued"})
	})
	mux.HandleFunc("GET /videos/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		st := f.statuses[min(f.polls, len(f.statuses)-1)]
		f.polls++
		body := map[string]any{"id": r.PathValue("id"), "status": st, "progress": 40}
		if st == "failed" {
			body["error"] = map[string]any{"code": "moderation", "message": "blocked"}
		}
		_ = json.NewEncoder(w).Encode(body)
	})
	mux.HandleFunc("GET /videos/{id}/content", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		_, _ = w.Write([]byte("mp4-bytes"))
	})
	return mux
}

func newTestREST(t *testing.T, api *fakeJobAPI) (*RESTVideoProvider, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)
	p, err := NewRESTVideoProvider(RESTConfig{Name: "sora", BaseURL: srv.URL + "/", APIKey: "sk-test", HTTPClient: srv.Client()})
	require.NoError(t, err)
	return p, srv
}

func TestRESTSubmitSendsRequestAndDecodesQueued(t *testing.T) {
	api := &fakeJobAPI{statuses: []string{"in_progress"}}
	p, _ := newTestREST(t, api)

	st, err := p.SubmitVideo(context.Background(), VideoRequest{
		Model:       "sora-2",
		Prompt:      "a lighthouse",
		Seconds:     8,
		AspectRatio: "16:9",
		Image:       &Reference{URL: "https://media/x.png"},
	})
	require.NoError(t, err)
	assert.Equal(t, "vid_1", st.ID)
	assert.Equal(t, JobQueued, st.State)
	assert.False(t, st.Terminal())

	assert.Equal(t, "Bearer sk-test", api.auth)
	assert.Equal(t, "sora-2", api.created.Model)
	assert.Equal(t, "8", api.created.Seconds)
	assert.Equal(t, "1280x720", api.created.Size)
	assert.Equal(t, "https://media/x.png", api.created.InputReference)
}

func TestRESTStatusCompletedYieldsContentURL(t *testing.T) {
	api := &fakeJobAPI{statuses: []string{"in_progress", "completed"}}
	p, srv := newTestREST(t, api)
	ctx := context.Background()

	st, err := p.VideoStatus(ctx, "vid_1")
	require.NoError(t, err)
	assert.Equal(t, JobRunning, st.State)
	assert.Equal(t, 40, st.Progress)

	st, err = p.VideoStatus(ctx, "vid_1")
	require.NoError(t, err)
	assert.Equal(t, JobSucceeded, st.State)
	assert.Equal(t, srv.URL+"/videos/vid_1/content", st.VideoURL)

	data, mime, err := p.Download(ctx, st.VideoURL)
	require.NoError(t, err)
	assert.Equal(t, "mp4-bytes", string(data))
	assert.Equal(t, "video/mp4", mime)
}

func TestRESTStatusFailedCarriesMessage(t *testing.T) {
	api := &fakeJobAPI{statuses: []string{"failed"}}
	p, _ := newTestREST(t, api)

	st, err := p.VideoStatus(context.Background(), "vid_1")
	require.NoError(t, err)
	assert.Equal(t, JobFailed, st.State)
	assert.True(t, st.Terminal())
	assert.ErrorContains(t, st.Err(), "blocked")
}

func TestRESTUnknownStatusIsPermanent(t *testing.T) {
	api := &fakeJobAPI{statuses: []string{"exploded"}}
	p, _ := newTestREST(t, api)

	_, err := p.VideoStatus(context.Background(), "vid_1")
	require.Error(t, err)
	assert.True(t, IsPermanent(err))
}

func TestRESTHTTPErrorsClassified(t *testing.T) {
	var code atomic.Int32
	code.Store(http.StatusBadRequest)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(code.Load()))
		_, _ = w.Write([]byte(`{"error":{"message":"bad seconds"}}`))
	}))
	t.Cleanup(srv.Close)
	p, err := NewRESTVideoProvider(RESTConfig{BaseURL: srv.URL, HTTPClient: srv.Client()})
	require.NoError(t, err)

	_, err = p.SubmitVideo(context.Background(), VideoRequest{Model: "kling-v2.1", Prompt: "x"})
	require.Error(t, err)
	assert.True(t, IsPermanent(err))
	assert.ErrorContains(t, err, "bad seconds")

	code.Store(http.StatusServiceUnavailable)
	_, err = p.VideoStatus(context.Background(), "vid_1")
	require.Error(t, err)
	assert.False(t, IsPermanent(err))

	code.Store(http.StatusTooManyRequests)
	_, err = p.VideoStatus(context.Background(), "vid_1")
	require.Error(t, err)
	assert.False(t, IsPermanent(err))
}

func TestNewRESTVideoProviderRequiresBase(t *testing.T) {
	_, err := NewRESTVideoProvider(RESTConfig{BaseURL: "  "})
	assert.Error(t, err)
}
