// Package authpolicy stores which paths require authentication, who may
// access them, and each user's password credential. The policy is
// persisted to the object store as an AES-256-GCM encrypted blob.
package authpolicy

import (
	"github.com/google/uuid"
	"github.com/shovehq/shove/internal/realm"
)

// User is a single credentialed account.
type User struct {
	ID               uuid.UUID `json:"id"`
	Username         string    `json:"username"`
	StoredCredential string    `json:"stored_credential"`
}

// Policy is the in-memory, queryable form: realms keyed directly for O(1)
// lookup, users keyed by id.
type Policy struct {
	Realms map[realm.Realm][]uuid.UUID
	Users  map[uuid.UUID]User
}

// Empty returns a Policy with no protected realms and no users.
func Empty() Policy {
	return Policy{
		Realms: map[realm.Realm][]uuid.UUID{},
		Users:  map[uuid.UUID]User{},
	}
}

// FindUsersWithAccess returns the credential set for the realm that most
// specifically matches path, or false if path is public (matched by no
// realm). "Most specific" breaks ties between overlapping realms by
// longest operand, so which realm governs a path never depends on Go's
// randomized map iteration order.
func (p Policy) FindUsersWithAccess(path string) (map[string]User, bool) {
	best, ok := mostSpecificMatch(p.Realms, path)
	if !ok {
		return nil, false
	}

	userIDs := p.Realms[best]
	byUsername := make(map[string]User, len(userIDs))
	for _, id := range userIDs {
		if u, ok := p.Users[id]; ok {
			byUsername[u.Username] = u
		}
	}
	return byUsername, true
}

// mostSpecificMatch picks, among every realm in realms that matches path,
// the one with the longest operand, falling back to the lexically
// smallest rendering when operands tie, so the result is deterministic
// regardless of map iteration order.
func mostSpecificMatch[V any](realms map[realm.Realm]V, path string) (realm.Realm, bool) {
	best, found := realm.Realm{}, false
	for r := range realms {
		if !r.Matches(path) {
			continue
		}
		if !found || isMoreSpecific(r, best) {
			best, found = r, true
		}
	}
	return best, found
}

// isMoreSpecific reports whether a should take precedence over b when both
// match the same path.
func isMoreSpecific(a, b realm.Realm) bool {
	if len(a.Operand()) != len(b.Operand()) {
		return len(a.Operand()) > len(b.Operand())
	}
	return a.String() < b.String()
}
