package authpolicy

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// hkdfInfo is the fixed HKDF info string binding derived keys to this
// specific use, so the same root secret used elsewhere can never collide
// with the access-policy encryption key.
const hkdfInfo = "Auth Encryption Key"

// nonceSize is the standard AES-GCM nonce length.
const nonceSize = 12

// deriveKey derives the 32-byte AES-256 key used to encrypt the access
// policy from the operator-supplied secret, salted with the bucket name so
// the same secret produces different keys per bucket.
func deriveKey(secret []byte, bucketName string) ([]byte, error) {
	reader := hkdf.New(sha256.New, secret, []byte(bucketName), []byte(hkdfInfo))
	key := make([]byte, 32)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("derive auth encryption key: %w", err)
	}
	return key, nil
}

// encrypt seals plaintext under key, prepending a freshly generated random
// nonce to the returned ciphertext.
func encrypt(key, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, plaintext, nil)
	return append(nonce, sealed...), nil
}

// decrypt splits the leading nonce off ciphertext and opens the remainder
// under key.
func decrypt(key, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short: %d bytes", len(ciphertext))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}

	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plaintext, nil
}
