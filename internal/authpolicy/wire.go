package authpolicy

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/shovehq/shove/internal/realm"
)

// wireRealm is the serializable form of a realm.Realm: Go's encoding/json
// can't use a struct as a map key, so the persisted form is a flat slice
// of (realm, user ids) pairs instead of a map, the way the original Rust
// storer serializes its HashMap as a Vec of tuples.
type wireRealm struct {
	Kind    int    `json:"kind"`
	Operand string `json:"operand"`
}

type wireRealmEntry struct {
	Realm   wireRealm   `json:"realm"`
	UserIDs []uuid.UUID `json:"user_ids"`
}

type wirePolicy struct {
	Realms []wireRealmEntry `json:"realms"`
	Users  []User           `json:"users"`
}

func toWireRealm(r realm.Realm) wireRealm {
	return wireRealm{Kind: int(r.Kind()), Operand: r.Operand()}
}

func fromWireRealm(w wireRealm) (realm.Realm, error) {
	switch realm.Kind(w.Kind) {
	case realm.KindStartsWith:
		return realm.StartsWith(w.Operand), nil
	case realm.KindEndsWith:
		return realm.EndsWith(w.Operand), nil
	case realm.KindContains:
		return realm.Contains(w.Operand), nil
	case realm.KindRegex:
		return realm.Regex(w.Operand)
	default:
		return realm.Realm{}, errUnknownRealmKind(w.Kind)
	}
}

type errUnknownRealmKind int

func (e errUnknownRealmKind) Error() string {
	return "authpolicy: unknown realm kind in stored policy"
}

// Encode serializes a Policy into its persisted wire form. A realm with no
// users is never written: per the Ownership invariant, a realm that loses
// its last user is pruned rather than persisted as an empty grant.
func Encode(p Policy) ([]byte, error) {
	w := wirePolicy{}
	for r, ids := range p.Realms {
		if len(ids) == 0 {
			continue
		}
		w.Realms = append(w.Realms, wireRealmEntry{Realm: toWireRealm(r), UserIDs: ids})
	}
	for _, u := range p.Users {
		w.Users = append(w.Users, u)
	}
	return json.Marshal(w)
}

// Decode parses a Policy from its persisted wire form. Empty input decodes
// to an empty Policy so a never-yet-protected site works out of the box.
func Decode(raw []byte) (Policy, error) {
	if len(raw) == 0 {
		return Empty(), nil
	}

	var w wirePolicy
	if err := json.Unmarshal(raw, &w); err != nil {
		return Policy{}, err
	}

	p := Empty()
	for _, u := range w.Users {
		p.Users[u.ID] = u
	}
	for _, entry := range w.Realms {
		if len(entry.UserIDs) == 0 {
			continue
		}
		r, err := fromWireRealm(entry.Realm)
		if err != nil {
			return Policy{}, err
		}
		p.Realms[r] = entry.UserIDs
	}
	return p, nil
}
