package cachecontrol

import (
	"encoding/json"

	"github.com/shovehq/shove/internal/nonempty"
	"github.com/shovehq/shove/internal/realm"
)

// Policy holds realm-scoped Cache-Control overrides plus an optional
// catalog-wide default used when no override matches.
type Policy struct {
	Default   *nonempty.List[Directive]
	Overrides map[realm.Realm]nonempty.List[Directive]
}

// Empty returns a Policy with no overrides and no default.
func Empty() Policy {
	return Policy{Overrides: map[realm.Realm]nonempty.List[Directive]{}}
}

// Directives returns every directive from overrides whose realm matches
// path, falling back to Default only when no override matched at all.
func (p Policy) Directives(path string) []Directive {
	var matched []Directive
	for r, directives := range p.Overrides {
		if r.Matches(path) {
			matched = append(matched, directives.AsSlice()...)
		}
	}
	if len(matched) > 0 {
		return matched
	}
	if p.Default != nil {
		return p.Default.AsSlice()
	}
	return nil
}

// wire forms, mirroring authpolicy's approach to serializing a
// struct-keyed map as a flat slice of pairs.
type wireDirective struct {
	Kind       DirectiveKind `json:"kind"`
	MaxAgeSecs int           `json:"max_age_secs,omitempty"`
}

type wireOverride struct {
	Realm      wireRealm       `json:"realm"`
	Directives []wireDirective `json:"directives"`
}

type wireRealm struct {
	Kind    int    `json:"kind"`
	Operand string `json:"operand"`
}

type wirePolicy struct {
	Default   []wireDirective `json:"default,omitempty"`
	Overrides []wireOverride  `json:"overrides"`
}

func toWireDirective(d Directive) wireDirective {
	return wireDirective{Kind: d.Kind, MaxAgeSecs: d.MaxAgeSecs}
}

func fromWireDirective(w wireDirective) Directive {
	return Directive{Kind: w.Kind, MaxAgeSecs: w.MaxAgeSecs}
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
		return realm.Realm{}, errUnknownRealmKind
	}
}

var errUnknownRealmKind = jsonError("cachecontrol: unknown realm kind in stored policy")

type jsonError string

func (e jsonError) Error() string { return string(e) }

// Encode serializes a Policy to its persisted JSON form.
func Encode(p Policy) ([]byte, error) {
	w := wirePolicy{}
	if p.Default != nil {
		for _, d := range p.Default.AsSlice() {
			w.Default = append(w.Default, toWireDirective(d))
		}
	}
	for r, directives := range p.Overrides {
		entry := wireOverride{Realm: toWireRealm(r)}
		for _, d := range directives.AsSlice() {
			entry.Directives = append(entry.Directives, toWireDirective(d))
		}
		w.Overrides = append(w.Overrides, entry)
	}
	return json.Marshal(w)
}

// Decode parses a Policy from its persisted JSON form.
func Decode(raw []byte) (Policy, error) {
	if len(raw) == 0 {
		return Empty(), nil
	}

	var w wirePolicy
	if err := json.Unmarshal(raw, &w); err != nil {
		return Policy{}, err
	}

	p := Empty()
	if len(w.Default) > 0 {
		directives := make([]Directive, len(w.Default))
		for i, d := range w.Default {
			directives[i] = fromWireDirective(d)
		}
		list, ok := nonempty.New(directives)
		if ok {
			p.Default = &list
		}
	}
	for _, entry := range w.Overrides {
		r, err := fromWireRealm(entry.Realm)
		if err != nil {
			return Policy{}, err
		}
		directives := make([]Directive, len(entry.Directives))
		for i, d := range entry.Directives {
			directives[i] = fromWireDirective(d)
		}
		list, ok := nonempty.New(directives)
		if !ok {
			continue
		}
		p.Overrides[r] = list
	}
	return p, nil
}
