package server

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func basicAuthHeader(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

func TestParseBasicAuth_Valid(t *testing.T) {
	creds, ok := parseBasicAuth(basicAuthHeader("alice", "hunter2"))
	assert.True(t, ok)
	assert.Equal(t, "alice", creds.username)
	assert.Equal(t, "hunter2", creds.password)
}

func TestParseBasicAuth_UsernameWithColons(t *testing.T) {
	creds, ok := parseBasicAuth(basicAuthHeader("a:b:c", "hunter2"))
	assert.True(t, ok)
	assert.Equal(t, "a:b:c", creds.username)
	assert.Equal(t, "hunter2", creds.password)
}

func TestParseBasicAuth_MissingOrMalformed(t *testing.T) {
	_, ok := parseBasicAuth("")
	assert.False(t, ok)

	_, ok = parseBasicAuth("Bearer sometoken")
	assert.False(t, ok)

	_, ok = parseBasicAuth("Basic not-base64!!")
	assert.False(t, ok)
}

func TestClientIP_PrefersForwardedFor(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	assert.Equal(t, "203.0.113.5", clientIP(r))
}

func TestClientIP_FallsBackToRemoteAddr(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.1:54321"
	assert.Equal(t, "192.0.2.1:54321", clientIP(r))
}
