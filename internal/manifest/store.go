package manifest

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/shovehq/shove/internal/pagecache"
)

// Key is the well-known object-store key the manifest is published under.
const Key = "upload_data.json"

// ErrAlreadyReloading is returned when a reload is requested while another
// one is already in flight; the caller should simply treat this as "no-op,
// try again later" rather than an error worth surfacing.
var ErrAlreadyReloading = errors.New("manifest: reload already in progress")

// ObjectGetter is the slice of objectstore.Store that Store needs to fetch
// the manifest. Accepting the narrow interface rather than the concrete
// type keeps this package testable without a live bucket.
type ObjectGetter interface {
	GetOrEmpty(ctx context.Context, key string) ([]byte, error)
}

// Store holds the current Manifest and coordinates reloading it from the
// object store. Reads go through an atomic.Pointer and never block;
// reloads are serialized with a non-blocking try-lock so at most one
// reload runs per Store at a time, mirroring the digest-guarded reload in
// the original pages/state machinery.
type Store struct {
	store  ObjectGetter
	cache  *pagecache.Cache
	logger *slog.Logger

	reloading sync.Mutex
	current   atomic.Pointer[Manifest]
	lastHash  atomic.Pointer[[32]byte]
}

// New constructs a Store with an empty manifest. Call Reload to populate
// it before serving traffic.
func New(store ObjectGetter, cache *pagecache.Cache, logger *slog.Logger) *Store {
	s := &Store{store: store, cache: cache, logger: logger}
	empty := Manifest{Entries: map[string]string{}}
	s.current.Store(&empty)
	return s
}

// Current returns the most recently loaded Manifest. Safe for concurrent
// use with Reload.
func (s *Store) Current() Manifest {
	return *s.current.Load()
}

// Reload fetches the manifest object, and if its contents changed since
// the last successful reload, swaps it in and invalidates any page-cache
// entries for paths that were removed or changed. It returns
// ErrAlreadyReloading rather than blocking if another reload is already
// running. The returned bool reports whether the manifest actually
// changed, so callers only broadcast live-reload on a real swap instead of
// on every no-op tick.
func (s *Store) Reload(ctx context.Context) (bool, error) {
	if !s.reloading.TryLock() {
		return false, ErrAlreadyReloading
	}
	defer s.reloading.Unlock()

	raw, err := s.store.GetOrEmpty(ctx, Key)
	if err != nil {
		return false, fmt.Errorf("fetch manifest: %w", err)
	}

	hash := sha256.Sum256(raw)
	if prev := s.lastHash.Load(); prev != nil && *prev == hash {
		s.logger.Debug("manifest unchanged, skipping reload")
		return false, nil
	}

	next, err := Decode(raw)
	if err != nil {
		return false, fmt.Errorf("decode manifest: %w", err)
	}

	prevManifest := s.Current()
	removed, updated := prevManifest.Diff(next)

	s.current.Store(&next)
	s.lastHash.Store(&hash)

	if s.cache != nil && len(removed) > 0 {
		removedSet := make(map[string]struct{}, len(removed))
		for _, path := range removed {
			removedSet[path] = struct{}{}
		}
		n := s.cache.InvalidateIf(func(path string) bool {
			_, ok := removedSet[path]
			return ok
		})
		s.logger.Info("invalidated page cache entries for removed pages", "count", n)
	}
	if s.cache != nil {
		for _, path := range updated {
			s.cache.Remove(path)
		}
	}

	s.logger.Info("manifest reloaded",
		"entry_count", len(next.Entries),
		"removed", len(removed),
		"updated", len(updated),
	)
	return true, nil
}
