package manifest

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/shovehq/shove/internal/pagecache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGetter struct {
	calls atomic.Int32
	raw   []byte
	err   error
}

func (f *fakeGetter) GetOrEmpty(ctx context.Context, key string) ([]byte, error) {
	f.calls.Add(1)
	return f.raw, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestReload_PopulatesManifest(t *testing.T) {
	raw, err := Encode(Manifest{Entries: map[string]string{"/index.html": "pages/a"}})
	require.NoError(t, err)

	getter := &fakeGetter{raw: raw}
	cache, err := pagecache.New(10)
	require.NoError(t, err)

	s := New(getter, cache, testLogger())
	changed, err := s.Reload(context.Background())
	require.NoError(t, err)
	assert.True(t, changed)

	key, ok := s.Current().Key("/index.html")
	assert.True(t, ok)
	assert.Equal(t, "pages/a", key)
}

func TestReload_SkipsUnchanged(t *testing.T) {
	raw, err := Encode(Manifest{Entries: map[string]string{"/index.html": "pages/a"}})
	require.NoError(t, err)

	getter := &fakeGetter{raw: raw}
	cache, err := pagecache.New(10)
	require.NoError(t, err)

	s := New(getter, cache, testLogger())
	changed, err := s.Reload(context.Background())
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = s.Reload(context.Background())
	require.NoError(t, err)
	assert.False(t, changed)

	assert.Equal(t, int32(2), getter.calls.Load())
}

func TestReload_InvalidatesRemovedPages(t *testing.T) {
	cache, err := pagecache.New(10)
	require.NoError(t, err)
	cache.Put("/old.html", pagecache.Entry{Bytes: []byte("stale")})

	raw, err := Encode(Manifest{Entries: map[string]string{}})
	require.NoError(t, err)
	getter := &fakeGetter{raw: raw}

	s := New(getter, cache, testLogger())
	// seed Current() with the "old" manifest so Diff sees a removal
	seeded := Manifest{Entries: map[string]string{"/old.html": "pages/old"}}
	s.current.Store(&seeded)

	changed, err := s.Reload(context.Background())
	require.NoError(t, err)
	assert.True(t, changed)

	_, ok := cache.Get("/old.html")
	assert.False(t, ok)
}

func TestReload_AlreadyReloading(t *testing.T) {
	getter := &fakeGetter{raw: nil}
	cache, err := pagecache.New(10)
	require.NoError(t, err)

	s := New(getter, cache, testLogger())
	s.reloading.Lock()
	defer s.reloading.Unlock()

	_, err = s.Reload(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyReloading)
}
