// Package manifest tracks the published page catalog: which paths exist
// and what object-store key backs each one.
package manifest

import "encoding/json"

// Manifest maps every servable full object-store path to the object-store
// key holding its bytes. Root is a key prefix within the object store: a
// request path is resolved to its entry by prepending Root, not by
// looking up the request path directly.
type Manifest struct {
	Root    string            `json:"root"`
	Entries map[string]string `json:"entries"`
}

// Decode parses a manifest from its JSON wire form.
func Decode(raw []byte) (Manifest, error) {
	var m Manifest
	if len(raw) == 0 {
		return Manifest{Entries: map[string]string{}}, nil
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return Manifest{}, err
	}
	if m.Entries == nil {
		m.Entries = map[string]string{}
	}
	return m, nil
}

// Encode serializes a manifest to its JSON wire form.
func Encode(m Manifest) ([]byte, error) {
	return json.Marshal(m)
}

// Key returns the object-store key for fullPath (a full object-store path,
// already prefixed with Root), and whether it exists.
func (m Manifest) Key(fullPath string) (string, bool) {
	key, ok := m.Entries[fullPath]
	return key, ok
}

// Resolve turns a request path into the full object-store path it maps to
// (Root prepended, as the original server's `format!("{root}{path}")`
// does) and looks up that path's object-store key. found is false when no
// entry exists at the resolved path.
func (m Manifest) Resolve(path string) (fullPath, key string, found bool) {
	fullPath = m.Root + path
	key, found = m.Entries[fullPath]
	return fullPath, key, found
}

// Diff computes, relative to next, which paths were removed and which
// were added or changed (by key); Store.Reload uses both lists to decide
// which page-cache entries to drop.
func (m Manifest) Diff(next Manifest) (removed, updated []string) {
	for path := range m.Entries {
		if _, ok := next.Entries[path]; !ok {
			removed = append(removed, path)
		}
	}
	for path, key := range next.Entries {
		oldKey, ok := m.Entries[path]
		if !ok || oldKey != key {
			updated = append(updated, path)
		}
	}
	return removed, updated
}
