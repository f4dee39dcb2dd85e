package authpolicy

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shovehq/shove/internal/realm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	id := uuid.New()
	p := Empty()
	p.Users[id] = User{ID: id, Username: "alice", StoredCredential: "hash"}
	p.Realms[realm.StartsWith("/admin/")] = []uuid.UUID{id}

	raw, err := Encode(p)
	require.NoError(t, err)

	decoded, err := Decode(raw)
	require.NoError(t, err)

	assert.Equal(t, p.Users, decoded.Users)
	assert.Equal(t, p.Realms, decoded.Realms)
}

func TestDecode_Empty(t *testing.T) {
	p, err := Decode(nil)
	require.NoError(t, err)
	assert.Empty(t, p.Users)
	assert.Empty(t, p.Realms)
}
