package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"storyweave/internal/api"
	"storyweave/internal/gateway/handler"
	"storyweave/internal/gateway/handler/rpc"
	mediarepo "storyweave/internal/gateway/repository/media"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMuxServesRPCAndMediaBehindCORS(t *testing.T) {
	store := mediarepo.NewMemoryStore()
	hash, err := store.Put(context.Background(), []byte("still"), "image/png")
	require.NoError(t, err)

	srv := httptest.NewServer(NewMux(Routes{
		RPC:            []rpc.Registrar{rpc.NewSegmentHandler(), rpc.NewHealthHandler(nil)},
		Media:          handler.NewMediaHandler(store),
		AllowedOrigins: []string{"https://app.example"},
	}))
	defer srv.Close()

	res, err := http.Get(srv.URL + api.MediaPathPrefix + hash)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+api.HealthCheckProcedure, nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	res, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, "https://app.example", res.Header.Get("Access-Control-Allow-Origin"))

	health, err := api.NewClient(srv.Client(), srv.URL).Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", health.AsMap()["status"])

	res, err = http.Get(srv.URL + api.SessionStreamPath)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}
