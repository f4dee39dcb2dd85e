package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_Empty(t *testing.T) {
	m, err := Decode(nil)
	require.NoError(t, err)
	assert.NotNil(t, m.Entries)
	assert.Empty(t, m.Entries)
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	m := Manifest{Root: "pages", Entries: map[string]string{"/index.html": "pages/abcd1234"}}
	raw, err := Encode(m)
	require.NoError(t, err)

	decoded, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, m, decoded)
}

func TestKey(t *testing.T) {
	m := Manifest{Entries: map[string]string{"/about.html": "pages/xyz"}}
	key, ok := m.Key("/about.html")
	assert.True(t, ok)
	assert.Equal(t, "pages/xyz", key)

	_, ok = m.Key("/missing.html")
	assert.False(t, ok)
}

func TestResolve_PrependsRoot(t *testing.T) {
	m := Manifest{Root: "site", Entries: map[string]string{"site/index.html": "pages/abc"}}

	fullPath, key, ok := m.Resolve("/index.html")
	assert.True(t, ok)
	assert.Equal(t, "site/index.html", fullPath)
	assert.Equal(t, "pages/abc", key)

	fullPath, _, ok = m.Resolve("/missing.html")
	assert.False(t, ok)
	assert.Equal(t, "site/missing.html", fullPath)
}

func TestDiff(t *testing.T) {
	old := Manifest{Entries: map[string]string{
		"/index.html": "pages/a",
		"/about.html": "pages/b",
		"/old.html":   "pages/c",
	}}
	next := Manifest{Entries: map[string]string{
		"/index.html": "pages/a",
		"/about.html": "pages/b2",
		"/new.html":   "pages/d",
	}}

	removed, updated := old.Diff(next)
	assert.ElementsMatch(t, []string{"/old.html"}, removed)
	assert.ElementsMatch(t, []string{"/about.html", "/new.html"}, updated)
}
