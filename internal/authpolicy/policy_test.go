package authpolicy

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shovehq/shove/internal/realm"
	"github.com/stretchr/testify/assert"
)

func TestFindUsersWithAccess_OverlappingRealmsPickMostSpecific(t *testing.T) {
	broad := uuid.New()
	narrow := uuid.New()

	policy := Policy{
		Realms: map[realm.Realm][]uuid.UUID{
			realm.StartsWith("/admin/"):        {broad},
			realm.StartsWith("/admin/billing/"): {narrow},
		},
		Users: map[uuid.UUID]User{
			broad:  {ID: broad, Username: "ops"},
			narrow: {ID: narrow, Username: "finance"},
		},
	}

	users, ok := policy.FindUsersWithAccess("/admin/billing/invoices.html")
	assert.True(t, ok)
	assert.Contains(t, users, "finance")
	assert.NotContains(t, users, "ops")
}

func TestFindUsersWithAccess_NoMatchIsPublic(t *testing.T) {
	policy := Empty()
	_, ok := policy.FindUsersWithAccess("/public/index.html")
	assert.False(t, ok)
}

func TestFindUsersWithAccess_DeterministicAcrossRepeatedCalls(t *testing.T) {
	id := uuid.New()
	policy := Policy{
		Realms: map[realm.Realm][]uuid.UUID{
			realm.StartsWith("/a/"): {id},
			realm.StartsWith("/b/"): {id},
		},
		Users: map[uuid.UUID]User{id: {ID: id, Username: "owner"}},
	}

	first, ok := policy.FindUsersWithAccess("/a/page.html")
	assert.True(t, ok)
	for i := 0; i < 20; i++ {
		next, ok := policy.FindUsersWithAccess("/a/page.html")
		assert.True(t, ok)
		assert.Equal(t, first, next)
	}
}
