package authpolicy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	credential, err := hashPassword("correct horse battery staple")
	require.NoError(t, err)

	assert.True(t, verifyPassword(credential, "correct horse battery staple"))
	assert.False(t, verifyPassword(credential, "wrong password"))
}

func TestVerifyPassword_MalformedCredential(t *testing.T) {
	assert.False(t, verifyPassword("not-a-credential", "anything"))
}

func TestFakeCredential_NeverMatches(t *testing.T) {
	assert.False(t, verifyPassword(fakeCredential, ""))
	assert.False(t, verifyPassword(fakeCredential, "password"))
}
