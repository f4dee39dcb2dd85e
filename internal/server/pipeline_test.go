package server

import (
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shovehq/shove/internal/authpolicy"
	"github.com/shovehq/shove/internal/cachecontrol"
	"github.com/shovehq/shove/internal/objectstore"
	"github.com/shovehq/shove/internal/pagecache"
	"github.com/shovehq/shove/internal/ratelimit"
	"github.com/shovehq/shove/internal/realm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	pages map[string][]byte
}

func (f *fakeFetcher) Get(ctx context.Context, key string) ([]byte, string, error) {
	body, ok := f.pages[key]
	if !ok {
		return nil, "", &objectstore.NotFoundError{Key: key}
	}
	return body, "text/html", nil
}

type fakeAuthBacking struct {
	data map[string][]byte
}

func (f *fakeAuthBacking) GetOrEmpty(ctx context.Context, key string) ([]byte, error) {
	return f.data[key], nil
}

func (f *fakeAuthBacking) Put(ctx context.Context, key string, body []byte, contentType string) error {
	f.data[key] = body
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPipeline(t *testing.T, manifestEntries map[string]string, pages map[string][]byte) *Pipeline {
	t.Helper()

	cache, err := pagecache.New(10)
	require.NoError(t, err)

	authStore, err := authpolicy.New(&fakeAuthBacking{data: map[string][]byte{}}, []byte("secret"), "bucket", testLogger())
	require.NoError(t, err)

	ccStore := cachecontrol.New(&fakeAuthBacking{data: map[string][]byte{}}, testLogger())

	return New(Deps{
		Fetcher: &fakeFetcher{pages: pages},
		ManifestKey: func(path string) (string, string, bool) {
			key, ok := manifestEntries[path]
			return path, key, ok
		},
		AuthStore:    authStore,
		CacheControl: ccStore,
		PageCache:    cache,
		RateLimiter:  ratelimit.New(10),
		Logger:       testLogger(),
	})
}

func TestHandlePage_ServesKnownPage(t *testing.T) {
	p := newTestPipeline(t,
		map[string]string{"/index.html": "pages/abc"},
		map[string][]byte{"pages/abc": []byte("<html>hi</html>")},
	)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<html>hi</html>", rec.Body.String())
	assert.Equal(t, "text/html", rec.Header().Get("Content-Type"))
}

func TestHandlePage_UnknownPathServes404(t *testing.T) {
	p := newTestPipeline(t,
		map[string]string{"/404.html": "pages/404"},
		map[string][]byte{"pages/404": []byte("not found")},
	)

	req := httptest.NewRequest(http.MethodGet, "/missing.html", nil)
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not found", rec.Body.String())
}

func TestHandlePage_HeadOmitsBodyButKeepsContentLength(t *testing.T) {
	p := newTestPipeline(t,
		map[string]string{"/index.html": "pages/abc"},
		map[string][]byte{"pages/abc": []byte("hello world")},
	)

	req := httptest.NewRequest(http.MethodHead, "/", nil)
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "11", rec.Header().Get("Content-Length"))
	assert.Empty(t, rec.Body.String())
}

func TestHandlePage_RejectsUnsupportedMethod(t *testing.T) {
	p := newTestPipeline(t, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/index.html", nil)
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleHealthcheck(t *testing.T) {
	p := newTestPipeline(t, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthcheck", nil)
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandlePage_ProtectedRealmRequiresAuth(t *testing.T) {
	cache, err := pagecache.New(10)
	require.NoError(t, err)
	authStore, err := authpolicy.New(&fakeAuthBacking{data: map[string][]byte{}}, []byte("secret"), "bucket", testLogger())
	require.NoError(t, err)
	ccStore := cachecontrol.New(&fakeAuthBacking{data: map[string][]byte{}}, testLogger())

	ctx := context.Background()
	_, err = authStore.AddUser(ctx, "alice", "hunter2")
	require.NoError(t, err)
	require.NoError(t, authStore.Protect(ctx, realm.StartsWith("/admin/"), []string{"alice"}))

	p := New(Deps{
		Fetcher: &fakeFetcher{pages: map[string][]byte{"pages/admin": []byte("secret page")}},
		ManifestKey: func(path string) (string, string, bool) {
			if path == "/admin/index.html" {
				return path, "pages/admin", true
			}
			return path, "", false
		},
		AuthStore:    authStore,
		CacheControl: ccStore,
		PageCache:    cache,
		RateLimiter:  ratelimit.New(10),
		Logger:       testLogger(),
	})

	req := httptest.NewRequest(http.MethodGet, "/admin/", nil)
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, `Basic realm="/admin/index.html" charset="UTF-8"`, rec.Header().Get("WWW-Authenticate"))

	malformed := httptest.NewRequest(http.MethodGet, "/admin/", nil)
	malformed.Header.Set("Authorization", "Basic not-base64!!")
	malformedRec := httptest.NewRecorder()
	p.ServeHTTP(malformedRec, malformed)
	assert.Equal(t, http.StatusBadRequest, malformedRec.Code)

	wrongPassword := httptest.NewRequest(http.MethodGet, "/admin/", nil)
	wrongPassword.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte("alice:wrong")))
	wrongPasswordRec := httptest.NewRecorder()
	p.ServeHTTP(wrongPasswordRec, wrongPassword)
	assert.Equal(t, http.StatusUnauthorized, wrongPasswordRec.Code)

	req2 := httptest.NewRequest(http.MethodGet, "/admin/", nil)
	req2.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte("alice:hunter2")))
	rec2 := httptest.NewRecorder()
	p.ServeHTTP(rec2, req2)
	assert.Equal(t, http.StatusOK, rec2.Code)
	assert.Equal(t, "secret page", rec2.Body.String())
}
