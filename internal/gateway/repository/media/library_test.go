package media

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreIsContentAddressed(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	h1, err := s.Put(ctx, []byte("frame"), "image/png")
	require.NoError(t, err)
	h2, err := s.Put(ctx, []byte("frame"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, Hash([]byte("frame")), h1)

	obj, err := s.Get(ctx, h1)
	require.NoError(t, err)
	assert.Equal(t, "image/png", obj.ContentType)
	assert.Equal(t, []byte("frame"), obj.Data)

	_, err = s.Get(ctx, Hash([]byte("other")))
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get(ctx, "../etc/passwd")
	assert.ErrorIs(t, err, ErrInvalidHash)
}

func TestLibraryResolvesOwnURLsFromStore(t *testing.T) {
	lib := NewLibrary(NewMemoryStore(), "http://localhost:8081/media/", nil)
	ctx := context.Background()

	u, err := lib.Put(ctx, []byte("clip"), "video/mp4")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, "http://localhost:8081/media/"))

	h, ok := lib.HashOf(u)
	require.True(t, ok)
	assert.Equal(t, Hash([]byte("clip")), h)

	data, ct, err := lib.Fetch(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, "clip", string(data))
	assert.Equal(t, "video/mp4", ct)

	again, err := lib.Import(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, u, again)
}

func TestLibraryImportsRemoteContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("remote-jpeg"))
	}))
	t.Cleanup(srv.Close)

	store := NewMemoryStore()
	lib := NewLibrary(store, "https://cdn.example/media", srv.Client())
	ctx := context.Background()

	u, err := lib.Import(ctx, srv.URL+"/hero.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/media/"+Hash([]byte("remote-jpeg")), u)

	obj, err := store.Get(ctx, Hash([]byte("remote-jpeg")))
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", obj.ContentType)

	_, err = lib.Import(ctx, srv.URL+"/missing")
	assert.ErrorContains(t, err, "status 404")
}

func TestValidHash(t *testing.T) {
	assert.True(t, ValidHash(Hash(nil)))
	assert.False(t, ValidHash(strings.ToUpper(Hash(nil))))
	assert.False(t, ValidHash("abc"))
}
