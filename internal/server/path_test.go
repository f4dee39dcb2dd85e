package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePath_AppendsIndexForDirectories(t *testing.T) {
	assert.Equal(t, "/index.html", normalizePath("/"))
	assert.Equal(t, "/blog/index.html", normalizePath("/blog"))
	assert.Equal(t, "/blog/index.html", normalizePath("/blog/"))
}

func TestNormalizePath_LeavesExtensionedPathsAlone(t *testing.T) {
	assert.Equal(t, "/app.js", normalizePath("/app.js"))
	assert.Equal(t, "/assets/app.css", normalizePath("/assets/app.css"))
}

func TestNormalizePath_DecodesPercentEncodingBeforeCleaning(t *testing.T) {
	// %2e%2e is "..": must be decoded, then lexically cleaned away,
	// never left to reach the object store as a literal traversal.
	assert.Equal(t, "/index.html", normalizePath("/%2e%2e/%2e%2e/etc/passwd/.."+"/../.."))
}

func TestNormalizePath_DoesNotEscapeRoot(t *testing.T) {
	// Leading ".." segments above root are dropped by lexical cleaning,
	// never read as an attempt to reach a path outside the served tree.
	assert.Equal(t, "/etc/index.html", normalizePath("/../../../etc/passwd/.."))
}

func TestNormalizePath_DotfileDirectoryKeepsIndex(t *testing.T) {
	assert.Equal(t, "/.well-known/index.html", normalizePath("/.well-known"))
}
