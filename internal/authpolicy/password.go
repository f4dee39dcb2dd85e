package authpolicy

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2 parameters. These match the library defaults used by the original
// implementation: moderate time/memory cost suitable for an interactive
// login, not a batch job.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	saltLen      = 32
)

// hashPassword returns a self-describing credential string encoding the
// Argon2id parameters, salt, and derived hash, so verification never needs
// out-of-band parameter lookup.
func hashPassword(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// fakeCredential is a precomputed, valid-looking credential string with no
// corresponding password. verifyPassword runs against it for unknown
// usernames so the time spent hashing doesn't reveal whether the username
// exists.
var fakeCredential = mustFakeCredential()

func mustFakeCredential() string {
	c, err := hashPassword("this password never matches anything")
	if err != nil {
		panic(err)
	}
	return c
}

// verifyPassword checks password against a stored credential string in
// constant time. Pass fakeCredential as stored when the username is
// unknown, so callers never branch on existence before paying the hashing
// cost.
func verifyPassword(stored, password string) bool {
	parts := strings.Split(stored, "$")
	// "$argon2id$v=19$m=...,t=...,p=...$salt$hash" splits into 6 parts,
	// the first being empty (leading '$').
	if len(parts) != 6 {
		return false
	}

	var version, memory, time int
	var threads int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}

	got := argon2.IDKey([]byte(password), salt, uint32(time), uint32(memory), uint8(threads), uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1
}
