package server

import (
	"net/url"
	"path"
	"strings"
)

// normalizePath turns a raw request URI path into the key used to look up
// a page: percent-decode first (so an encoded path segment can't smuggle a
// traversal sequence past path.Clean), lexically clean the result, and if
// it names no file extension, treat it as a directory and append
// "index.html".
func normalizePath(raw string) string {
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		decoded = raw
	}

	clean := path.Clean("/" + decoded)

	if hasExtension(clean) {
		return clean
	}

	if !strings.HasSuffix(clean, "/") {
		clean += "/"
	}
	return clean + "index.html"
}

// hasExtension reports whether the final path segment contains a '.' that
// isn't itself the first character (so "/.well-known/foo" isn't treated
// as having an extension).
func hasExtension(p string) bool {
	base := path.Base(p)
	dot := strings.LastIndex(base, ".")
	return dot > 0
}
