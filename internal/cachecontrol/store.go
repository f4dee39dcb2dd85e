package cachecontrol

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/shovehq/shove/internal/nonempty"
	"github.com/shovehq/shove/internal/realm"
)

// DataKey is the object-store key the cache-control policy is published
// under. Unlike the access policy, this catalog is not encrypted: it
// carries no secrets, only which paths get which caching behavior.
const DataKey = "cache_control.json"

// ErrAlreadyReloading mirrors manifest.ErrAlreadyReloading.
var ErrAlreadyReloading = errors.New("cachecontrol: reload already in progress")

// ObjectStore is the slice of objectstore.Store this package needs.
type ObjectStore interface {
	GetOrEmpty(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, body []byte, contentType string) error
}

// Store holds the current cache-control Policy and coordinates reloading
// and persisting it, following the same atomic-pointer-plus-try-lock
// shape as manifest.Store and authpolicy.Store.
type Store struct {
	store  ObjectStore
	logger *slog.Logger

	reloading sync.Mutex
	current   atomic.Pointer[Policy]
	lastHash  atomic.Pointer[[32]byte]
}

// New constructs a Store with an empty policy. Call Reload to populate it.
func New(store ObjectStore, logger *slog.Logger) *Store {
	s := &Store{store: store, logger: logger}
	empty := Empty()
	s.current.Store(&empty)
	return s
}

// Current returns the most recently loaded Policy.
func (s *Store) Current() Policy {
	return *s.current.Load()
}

// Reload fetches the policy object, and if it changed, parses and swaps
// it in.
func (s *Store) Reload(ctx context.Context) error {
	if !s.reloading.TryLock() {
		return ErrAlreadyReloading
	}
	defer s.reloading.Unlock()

	raw, err := s.store.GetOrEmpty(ctx, DataKey)
	if err != nil {
		return fmt.Errorf("fetch cache control policy: %w", err)
	}

	hash := sha256.Sum256(raw)
	if prev := s.lastHash.Load(); prev != nil && *prev == hash {
		s.logger.Debug("cache control policy unchanged, skipping reload")
		return nil
	}

	next, err := Decode(raw)
	if err != nil {
		return fmt.Errorf("decode cache control policy: %w", err)
	}

	s.current.Store(&next)
	s.lastHash.Store(&hash)
	s.logger.Info("cache control policy reloaded", "override_count", len(next.Overrides))
	return nil
}

func (s *Store) save(ctx context.Context, policy Policy) error {
	raw, err := Encode(policy)
	if err != nil {
		return fmt.Errorf("encode cache control policy: %w", err)
	}
	if err := s.store.Put(ctx, DataKey, raw, "application/json"); err != nil {
		return fmt.Errorf("save cache control policy: %w", err)
	}
	s.current.Store(&policy)
	return nil
}

// SetDefault sets the catalog-wide default directives.
func (s *Store) SetDefault(ctx context.Context, directives []Directive) error {
	list, ok := nonempty.New(directives)
	if !ok {
		return errors.New("cachecontrol: default requires at least one directive")
	}
	next := clonePolicy(s.Current())
	next.Default = &list
	return s.save(ctx, next)
}

// SetOverride sets the directives applied to paths matching realm.
func (s *Store) SetOverride(ctx context.Context, r realm.Realm, directives []Directive) error {
	list, ok := nonempty.New(directives)
	if !ok {
		return errors.New("cachecontrol: override requires at least one directive")
	}
	next := clonePolicy(s.Current())
	next.Overrides[r] = list
	return s.save(ctx, next)
}

// RemoveOverride removes the override for realm, if any.
func (s *Store) RemoveOverride(ctx context.Context, r realm.Realm) error {
	next := clonePolicy(s.Current())
	delete(next.Overrides, r)
	return s.save(ctx, next)
}

// GetDirectives returns the Cache-Control directives that apply to path.
func (s *Store) GetDirectives(path string) []Directive {
	return s.Current().Directives(path)
}

func clonePolicy(p Policy) Policy {
	next := Empty()
	next.Default = p.Default
	for r, list := range p.Overrides {
		next.Overrides[r] = list
	}
	return next
}
