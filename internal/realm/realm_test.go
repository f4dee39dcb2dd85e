package realm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatches(t *testing.T) {
	assert.True(t, StartsWith("/admin/").Matches("/admin/dashboard"))
	assert.False(t, StartsWith("/admin/").Matches("/public/"))

	assert.True(t, EndsWith(".pdf").Matches("/docs/report.pdf"))
	assert.True(t, Contains("internal").Matches("/docs/internal/report.html"))

	re, err := Regex(`^/v[0-9]+/`)
	require.NoError(t, err)
	assert.True(t, re.Matches("/v2/users"))
	assert.False(t, re.Matches("/users"))
}

func TestRegex_InvalidPattern(t *testing.T) {
	_, err := Regex("(unterminated")
	assert.Error(t, err)
}

func TestEquality_UsableAsMapKey(t *testing.T) {
	m := map[Realm]string{}
	m[StartsWith("/a")] = "one"
	m[StartsWith("/a")] = "two"
	assert.Len(t, m, 1)
	assert.Equal(t, "two", m[StartsWith("/a")])
}

func TestEquality_RegexComparesBySource(t *testing.T) {
	a, err := Regex(`^/v[0-9]+/`)
	require.NoError(t, err)
	b, err := Regex(`^/v[0-9]+/`)
	require.NoError(t, err)
	assert.True(t, a.Equal(b))
	assert.Equal(t, a, b)
}
