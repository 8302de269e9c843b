package media

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maintline/internal/domain"
)

type fakeOwners struct {
	agents map[string][]string
	err    error
	asked  []string
}

func (f *fakeOwners) OwningAgents(_ context.Context, _ Kind, rel string) ([]string, error) {
	f.asked = append(f.asked, rel)
	if f.err != nil {
		return nil, f.err
	}
	return f.agents[rel], nil
}

func TestGateAllowed(t *testing.T) {
	ctx := context.Background()
	agent := domain.User{ID: "agent-1", Role: domain.RoleAgent}
	other := domain.User{ID: "agent-2", Role: domain.RoleAgent}
	manie := domain.User{ID: "manie-1", Role: domain.RoleManie}
	admin := domain.User{ID: "admin-1", Role: domain.RoleAdmin}

	owners := &fakeOwners{agents: map[string][]string{
		"quotes/quote.pdf":  {"agent-1"},
		"quotes/orphan.pdf": nil,
		"quotes/shared.pdf": {"agent-1", "agent-2"},
	}}
	gate := &Gate{Owners: owners}

	check := func(user domain.User, rel string) bool {
		t.Helper()
		ok, err := gate.Allowed(ctx, user, rel)
		require.NoError(t, err)
		return ok
	}

	// Anonymous requests are always refused.
	assert.False(t, check(domain.User{}, "quotes/quote.pdf"))

	// Admins may read anything, recognized or not.
	assert.True(t, check(admin, "quotes/quote.pdf"))
	assert.True(t, check(admin, "whatever/anything.bin"))

	// Manie may read any recognized document but nothing else.
	assert.True(t, check(manie, "quotes/quote.pdf"))
	assert.False(t, check(manie, "attachments/file.pdf"))

	// Agents only reach their own documents.
	assert.True(t, check(agent, "quotes/quote.pdf"))
	assert.False(t, check(other, "quotes/quote.pdf"))

	// No owning job, or more than one, reads as a refusal.
	assert.False(t, check(agent, "quotes/orphan.pdf"))
	assert.False(t, check(agent, "quotes/shared.pdf"))

	// Hostile paths are refused before any lookup runs.
	owners.asked = nil
	assert.False(t, check(agent, "/quotes/quote.pdf"))
	assert.False(t, check(agent, "../quotes/quote.pdf"))
	assert.False(t, check(manie, "quotes/../../etc/passwd"))
	assert.Empty(t, owners.asked)
}

func TestGateLookupError(t *testing.T) {
	gate := &Gate{Owners: &fakeOwners{err: errors.New("db closed")}}
	ok, err := gate.Allowed(context.Background(),
		domain.User{ID: "agent-1", Role: domain.RoleAgent}, "quotes/quote.pdf")
	require.Error(t, err)
	assert.False(t, ok)
}
