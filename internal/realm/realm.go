// Package realm defines path-matching rules used to scope access policies
// and cache-control overrides to subsets of a site.
package realm

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// Kind identifies which matching rule a Realm applies.
type Kind int

const (
	// KindStartsWith matches paths that begin with Operand.
	KindStartsWith Kind = iota
	// KindEndsWith matches paths that end with Operand.
	KindEndsWith
	// KindContains matches paths that contain Operand as a substring.
	KindContains
	// KindRegex matches paths against a compiled regular expression.
	KindRegex
)

// Realm is a closed, structurally-comparable description of a set of paths.
// It is deliberately a concrete struct rather than an interface, and holds
// only comparable fields (kind, operand) so it can be used directly as a
// map key with built-in equality: two Regex realms are equal iff they share
// the same source pattern, never by compiled-object identity. Compiled
// regexes are cached separately, keyed by pattern.
type Realm struct {
	kind    Kind
	operand string
}

var regexCache sync.Map // map[string]*regexp.Regexp

// StartsWith builds a Realm matching paths with the given prefix.
func StartsWith(prefix string) Realm {
	return Realm{kind: KindStartsWith, operand: prefix}
}

// EndsWith builds a Realm matching paths with the given suffix.
func EndsWith(suffix string) Realm {
	return Realm{kind: KindEndsWith, operand: suffix}
}

// Contains builds a Realm matching paths containing the given substring.
func Contains(substr string) Realm {
	return Realm{kind: KindContains, operand: substr}
}

// Regex builds a Realm matching paths against pattern. It returns an error
// if pattern does not compile.
func Regex(pattern string) (Realm, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Realm{}, fmt.Errorf("compile realm regex %q: %w", pattern, err)
	}
	regexCache.LoadOrStore(pattern, re)
	return Realm{kind: KindRegex, operand: pattern}, nil
}

func compiledRegex(pattern string) *regexp.Regexp {
	if cached, ok := regexCache.Load(pattern); ok {
		return cached.(*regexp.Regexp)
	}
	re := regexp.MustCompile(pattern)
	actual, _ := regexCache.LoadOrStore(pattern, re)
	return actual.(*regexp.Regexp)
}

// Kind reports which matching strategy this Realm uses.
func (r Realm) Kind() Kind {
	return r.kind
}

// Operand returns the prefix, suffix, substring, or regex source backing
// this Realm.
func (r Realm) Operand() string {
	return r.operand
}

// Matches reports whether path falls within this realm.
func (r Realm) Matches(path string) bool {
	switch r.kind {
	case KindStartsWith:
		return strings.HasPrefix(path, r.operand)
	case KindEndsWith:
		return strings.HasSuffix(path, r.operand)
	case KindContains:
		return strings.Contains(path, r.operand)
	case KindRegex:
		return compiledRegex(r.operand).MatchString(path)
	default:
		return false
	}
}

// String renders the realm for logging and CLI display.
func (r Realm) String() string {
	switch r.kind {
	case KindStartsWith:
		return fmt.Sprintf("starts_with(%s)", r.operand)
	case KindEndsWith:
		return fmt.Sprintf("ends_with(%s)", r.operand)
	case KindContains:
		return fmt.Sprintf("contains(%s)", r.operand)
	case KindRegex:
		return fmt.Sprintf("regex(%s)", r.operand)
	default:
		return "unknown_realm"
	}
}

// Equal reports structural equality with another Realm. Since Realm's only
// fields are the comparable kind and operand, this is equivalent to ==; it
// exists so callers don't need to know that.
func (r Realm) Equal(other Realm) bool {
	return r == other
}
