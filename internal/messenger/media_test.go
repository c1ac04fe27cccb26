package messenger_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Freeeeeet/dorm_bot/internal/messenger"
	"github.com/Freeeeeet/dorm_bot/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCache(t *testing.T, m messenger.Messenger) *messenger.MediaCache {
	t.Helper()
	path := filepath.Join(t.TempDir(), "greeting.jpg")
	require.NoError(t, os.WriteFile(path, []byte("jpeg"), 0o600))

	cache, err := messenger.NewMediaCache(m, map[string]string{"greeting": path}, 8, testutil.NewTestLogger())
	require.NoError(t, err)
	return cache
}

func TestMediaCache_UploadsOnceThenReusesFileID(t *testing.T) {
	fake := testutil.NewFakeMessenger()
	cache := newCache(t, fake)
	ctx := context.Background()

	_, err := cache.Send(ctx, 42, "greeting", "hi", nil)
	require.NoError(t, err)
	_, err = cache.Send(ctx, 43, "greeting", "hi", nil)
	require.NoError(t, err)

	calls := fake.ByMethod("SendPhoto")
	require.Len(t, calls, 2)
	assert.True(t, calls[0].Photo.IsUpload())
	assert.Equal(t, []byte("jpeg"), calls[0].Photo.Data)
	assert.Equal(t, "uploaded-greeting.jpg", calls[1].Photo.FileID)

	id, ok := cache.FileID("greeting")
	assert.True(t, ok)
	assert.Equal(t, "uploaded-greeting.jpg", id)
}

func TestMediaCache_InvalidateOnError(t *testing.T) {
	fake := testutil.NewFakeMessenger()
	cache := newCache(t, fake)
	ctx := context.Background()

	_, err := cache.Send(ctx, 42, "greeting", "", nil)
	require.NoError(t, err)

	fake.Fail["SendPhoto"] = errors.New("wrong file identifier")
	_, err = cache.Send(ctx, 42, "greeting", "", nil)
	require.Error(t, err)

	_, ok := cache.FileID("greeting")
	assert.False(t, ok, "rejected file id must be dropped")

	calls := fake.ByMethod("SendPhoto")
	require.Len(t, calls, 3)
	assert.False(t, calls[1].Photo.IsUpload())
	assert.True(t, calls[2].Photo.IsUpload(), "falls back to upload after invalidation")
}

func TestMediaCache_UnknownAsset(t *testing.T) {
	cache := newCache(t, testutil.NewFakeMessenger())

	assert.False(t, cache.Has("missing"))
	_, err := cache.Send(context.Background(), 42, "missing", "", nil)
	assert.ErrorIs(t, err, messenger.ErrUnknownAsset)
}

func TestMediaCache_ExplicitInvalidate(t *testing.T) {
	fake := testutil.NewFakeMessenger()
	cache := newCache(t, fake)

	_, err := cache.Send(context.Background(), 42, "greeting", "", nil)
	require.NoError(t, err)

	cache.Invalidate("greeting")
	_, ok := cache.FileID("greeting")
	assert.False(t, ok)
}
