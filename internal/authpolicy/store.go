package authpolicy

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/shovehq/shove/internal/realm"
)

// DataKey is the object-store key the encrypted policy blob lives at.
const DataKey = "authdata"

// ErrAlreadyReloading mirrors manifest.ErrAlreadyReloading: a reload is
// already running, the caller should treat this as transient.
var ErrAlreadyReloading = errors.New("authpolicy: reload already in progress")

// ErrUserNotFound is returned when an operation references an unknown
// username.
var ErrUserNotFound = errors.New("authpolicy: user not found")

// ObjectStore is the slice of objectstore.Store this package needs.
type ObjectStore interface {
	GetOrEmpty(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, body []byte, contentType string) error
}

// Store holds the current Policy and coordinates reloading and persisting
// it, encrypted, to the object store. Like manifest.Store, reads are
// lock-free via atomic.Pointer and reloads are serialized with a
// non-blocking try-lock.
type Store struct {
	store  ObjectStore
	key    []byte
	logger *slog.Logger

	reloading sync.Mutex
	current   atomic.Pointer[Policy]
	lastHash  atomic.Pointer[[32]byte]
}

// New constructs a Store. secret and bucketName together derive the
// encryption key via HKDF; secret should be the AUTH_ENCRYPTION_KEY
// environment value.
func New(store ObjectStore, secret []byte, bucketName string, logger *slog.Logger) (*Store, error) {
	key, err := deriveKey(secret, bucketName)
	if err != nil {
		return nil, err
	}

	s := &Store{store: store, key: key, logger: logger}
	empty := Empty()
	s.current.Store(&empty)
	return s, nil
}

// Current returns the most recently loaded Policy.
func (s *Store) Current() Policy {
	return *s.current.Load()
}

// Reload fetches the encrypted policy blob, and if it changed, decrypts
// and swaps it in.
func (s *Store) Reload(ctx context.Context) error {
	if !s.reloading.TryLock() {
		return ErrAlreadyReloading
	}
	defer s.reloading.Unlock()

	raw, err := s.store.GetOrEmpty(ctx, DataKey)
	if err != nil {
		return fmt.Errorf("fetch auth policy: %w", err)
	}

	hash := sha256.Sum256(raw)
	if prev := s.lastHash.Load(); prev != nil && *prev == hash {
		s.logger.Debug("auth policy unchanged, skipping reload")
		return nil
	}

	var next Policy
	if len(raw) == 0 {
		next = Empty()
	} else {
		plaintext, err := decrypt(s.key, raw)
		if err != nil {
			return fmt.Errorf("decrypt auth policy: %w", err)
		}
		next, err = Decode(plaintext)
		if err != nil {
			return fmt.Errorf("parse auth policy: %w", err)
		}
	}

	s.current.Store(&next)
	s.lastHash.Store(&hash)
	s.logger.Info("auth policy reloaded", "realm_count", len(next.Realms), "user_count", len(next.Users))
	return nil
}

// save encrypts and persists policy, then updates the in-memory view.
func (s *Store) save(ctx context.Context, policy Policy) error {
	raw, err := Encode(policy)
	if err != nil {
		return fmt.Errorf("encode auth policy: %w", err)
	}

	ciphertext, err := encrypt(s.key, raw)
	if err != nil {
		return err
	}

	if err := s.store.Put(ctx, DataKey, ciphertext, "application/octet-stream"); err != nil {
		return fmt.Errorf("save auth policy: %w", err)
	}

	s.current.Store(&policy)
	return nil
}

// AddUser creates a new user with a freshly hashed password and persists
// the updated policy. It returns the generated user id.
func (s *Store) AddUser(ctx context.Context, username, password string) (uuid.UUID, error) {
	credential, err := hashPassword(password)
	if err != nil {
		return uuid.UUID{}, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("generate user id: %w", err)
	}

	current := s.Current()
	next := clonePolicy(current)
	next.Users[id] = User{ID: id, Username: username, StoredCredential: credential}

	if err := s.save(ctx, next); err != nil {
		return uuid.UUID{}, err
	}
	return id, nil
}

// RemoveUser deletes a user and drops it from every realm's access list.
func (s *Store) RemoveUser(ctx context.Context, username string) error {
	current := s.Current()
	id, ok := findUserID(current, username)
	if !ok {
		return ErrUserNotFound
	}

	next := clonePolicy(current)
	delete(next.Users, id)
	for r, ids := range next.Realms {
		remaining := removeID(ids, id)
		if len(remaining) == 0 {
			delete(next.Realms, r)
			continue
		}
		next.Realms[r] = remaining
	}

	return s.save(ctx, next)
}

// Protect grants the named users access to realm, replacing any existing
// grant for that realm.
func (s *Store) Protect(ctx context.Context, r realm.Realm, usernames []string) error {
	current := s.Current()
	ids, err := usernamesToIDs(current, usernames)
	if err != nil {
		return err
	}

	next := clonePolicy(current)
	next.Realms[r] = ids
	return s.save(ctx, next)
}

// ProtectAdditional grants the named users access to realm in addition to
// whoever already has access.
func (s *Store) ProtectAdditional(ctx context.Context, r realm.Realm, usernames []string) error {
	current := s.Current()
	ids, err := usernamesToIDs(current, usernames)
	if err != nil {
		return err
	}

	next := clonePolicy(current)
	existing := next.Realms[r]
	for _, id := range ids {
		if !containsID(existing, id) {
			existing = append(existing, id)
		}
	}
	next.Realms[r] = existing
	return s.save(ctx, next)
}

// RemoveRealm removes protection from realm entirely.
func (s *Store) RemoveRealm(ctx context.Context, r realm.Realm) error {
	current := s.Current()
	next := clonePolicy(current)
	delete(next.Realms, r)
	return s.save(ctx, next)
}

// ListRealms returns every protected realm and the usernames granted
// access to it.
func (s *Store) ListRealms() map[realm.Realm][]string {
	current := s.Current()
	out := make(map[realm.Realm][]string, len(current.Realms))
	for r, ids := range current.Realms {
		names := make([]string, 0, len(ids))
		for _, id := range ids {
			if u, ok := current.Users[id]; ok {
				names = append(names, u.Username)
			}
		}
		out[r] = names
	}
	return out
}

// ListUsers returns every known username.
func (s *Store) ListUsers() []string {
	current := s.Current()
	out := make([]string, 0, len(current.Users))
	for _, u := range current.Users {
		out = append(out, u.Username)
	}
	return out
}

// FindUsersWithAccess returns the credential set for the most specific
// realm matching path (see Policy.FindUsersWithAccess), or false if path
// is public.
func (s *Store) FindUsersWithAccess(path string) (map[string]User, bool) {
	return s.Current().FindUsersWithAccess(path)
}

// Verify checks a username/password pair against the current policy in a
// way that takes the same time whether or not the username exists.
func (s *Store) Verify(username, password string) bool {
	current := s.Current()
	for _, u := range current.Users {
		if u.Username == username {
			return verifyPassword(u.StoredCredential, password)
		}
	}
	verifyPassword(fakeCredential, password)
	return false
}

// VerifyAgainst checks a username/password pair against a specific set of
// users -- normally the set returned by FindUsersWithAccess for a realm --
// rather than every user in the policy, so access granted to one realm
// doesn't implicitly grant access to another. It still runs the fake-hash
// comparison for unknown usernames, so realm membership can't be inferred
// from response timing either.
func (s *Store) VerifyAgainst(users map[string]User, username, password string) bool {
	if u, ok := users[username]; ok {
		return verifyPassword(u.StoredCredential, password)
	}
	verifyPassword(fakeCredential, password)
	return false
}

func clonePolicy(p Policy) Policy {
	next := Empty()
	for id, u := range p.Users {
		next.Users[id] = u
	}
	for r, ids := range p.Realms {
		cp := make([]uuid.UUID, len(ids))
		copy(cp, ids)
		next.Realms[r] = cp
	}
	return next
}

func findUserID(p Policy, username string) (uuid.UUID, bool) {
	for id, u := range p.Users {
		if u.Username == username {
			return id, true
		}
	}
	return uuid.UUID{}, false
}

func usernamesToIDs(p Policy, usernames []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(usernames))
	for _, name := range usernames {
		id, ok := findUserID(p, name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUserNotFound, name)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func removeID(ids []uuid.UUID, target uuid.UUID) []uuid.UUID {
	out := ids[:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}

func containsID(ids []uuid.UUID, target uuid.UUID) bool {
	for _, id := range ids {
		if id == target {
			return true
		}
	}
	return false
}
