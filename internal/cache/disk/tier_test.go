package disk

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	mediarepo "storyweave/internal/gateway/repository/media"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func object(data string) mediarepo.Object {
	return mediarepo.Object{Hash: mediarepo.Hash([]byte(data)), ContentType: "video/mp4", Data: []byte(data)}
}

func TestTierSetGetSurvivesReopen(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()
	tier, err := Open(Config{Root: root})
	require.NoError(t, err)

	obj := object("clip")
	require.NoError(t, tier.Set(ctx, obj))

	reopened, err := Open(Config{Root: root})
	require.NoError(t, err)
	got, ok, err := reopened.Get(ctx, obj.Hash)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "clip", string(got.Data))
	assert.Equal(t, "video/mp4", got.ContentType)
	assert.Equal(t, int64(4), reopened.Bytes())
}

func TestTierEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	tier, err := Open(Config{Root: t.TempDir(), MaxEntries: 2})
	require.NoError(t, err)
	clock := time.Unix(1000, 0)
	tier.now = func() time.Time { clock = clock.Add(time.Second); return clock }

	a, b, c := object("a"), object("b"), object("c")
	require.NoError(t, tier.Set(ctx, a))
	require.NoError(t, tier.Set(ctx, b))
	_, ok, err := tier.Get(ctx, a.Hash)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, tier.Set(ctx, c))

	_, ok, _ = tier.Get(ctx, b.Hash)
	assert.False(t, ok)
	_, ok, _ = tier.Get(ctx, a.Hash)
	assert.True(t, ok)
	assert.Equal(t, 2, tier.Len())
}

func TestTierByteLimit(t *testing.T) {
	ctx := context.Background()
	tier, err := Open(Config{Root: t.TempDir(), MaxBytes: 5})
	require.NoError(t, err)
	require.NoError(t, tier.Set(ctx, object("abc")))
	require.NoError(t, tier.Set(ctx, object("def")))
	assert.Equal(t, 1, tier.Len())
	assert.LessOrEqual(t, tier.Bytes(), int64(5))
}

func TestTierDropsMissingFiles(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()
	tier, err := Open(Config{Root: root})
	require.NoError(t, err)
	obj := object("gone")
	require.NoError(t, tier.Set(ctx, obj))
	require.NoError(t, os.Remove(filepath.Join(root, "data", obj.Hash)))

	_, ok, err := tier.Get(ctx, obj.Hash)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, tier.Len())
}

func TestTierRejectsBadHash(t *testing.T) {
	tier, err := Open(Config{Root: t.TempDir()})
	require.NoError(t, err)
	err = tier.Set(context.Background(), mediarepo.Object{Hash: "../escape", Data: []byte("x")})
	assert.ErrorIs(t, err, mediarepo.ErrInvalidHash)
	_, ok, err := tier.Get(context.Background(), "../escape")
	assert.NoError(t, err)
	assert.False(t, ok)

	_, err = Open(Config{})
	assert.Error(t, err)
}
