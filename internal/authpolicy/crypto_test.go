package authpolicy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveKey_Deterministic(t *testing.T) {
	k1, err := deriveKey([]byte("secret"), "my-bucket")
	require.NoError(t, err)
	k2, err := deriveKey([]byte("secret"), "my-bucket")
	require.NoError(t, err)
	assert.Equal(t, k1, k2)
	assert.Len(t, k1, 32)
}

func TestDeriveKey_DiffersPerBucket(t *testing.T) {
	k1, err := deriveKey([]byte("secret"), "bucket-a")
	require.NoError(t, err)
	k2, err := deriveKey([]byte("secret"), "bucket-b")
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2)
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	key, err := deriveKey([]byte("secret"), "bucket")
	require.NoError(t, err)

	ciphertext, err := encrypt(key, []byte(`{"realms":[],"users":[]}`))
	require.NoError(t, err)

	plaintext, err := decrypt(key, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, `{"realms":[],"users":[]}`, string(plaintext))
}

func TestDecrypt_RejectsTamperedCiphertext(t *testing.T) {
	key, err := deriveKey([]byte("secret"), "bucket")
	require.NoError(t, err)

	ciphertext, err := encrypt(key, []byte("hello"))
	require.NoError(t, err)
	ciphertext[len(ciphertext)-1] ^= 0xFF

	_, err = decrypt(key, ciphertext)
	assert.Error(t, err)
}

func TestEncrypt_NonceIsRandomPerCall(t *testing.T) {
	key, err := deriveKey([]byte("secret"), "bucket")
	require.NoError(t, err)

	c1, err := encrypt(key, []byte("hello"))
	require.NoError(t, err)
	c2, err := encrypt(key, []byte("hello"))
	require.NoError(t, err)

	assert.NotEqual(t, c1[:nonceSize], c2[:nonceSize])
}
