package media

import (
	"context"
	"path"
	"strings"

	"maintline/internal/domain"
)

// OwnerLookup resolves a stored path to the agent IDs of the jobs that
// reference it.
type OwnerLookup interface {
	OwningAgents(ctx context.Context, kind Kind, rel string) ([]string, error)
}

// Gate decides whether a user may read a private media path.
type Gate struct {
	Owners OwnerLookup
}

// Allowed runs the access checks in order and fails closed. user is the
// zero value when the request is unauthenticated.
func (g *Gate) Allowed(ctx context.Context, user domain.User, rel string) (bool, error) {
	if user.ID == "" {
		return false, nil
	}
	if user.Role == domain.RoleAdmin {
		return true, nil
	}
	// Traversal checks come before classification so a hostile path never
	// reaches the lookup queries.
	if path.IsAbs(rel) || strings.HasPrefix(rel, "/") {
		return false, nil
	}
	for _, part := range strings.Split(rel, "/") {
		if part == ".." {
			return false, nil
		}
	}
	kind := Classify(rel)
	if kind == KindUnrecognized {
		return false, nil
	}
	switch user.Role {
	case domain.RoleManie:
		return true, nil
	case domain.RoleAgent:
		agents, err := g.Owners.OwningAgents(ctx, kind, rel)
		if err != nil {
			return false, err
		}
		// The path is the only link back to the job. If zero or multiple
		// jobs claim it, ownership is ambiguous and the agent is refused.
		if len(agents) != 1 {
			return false, nil
		}
		return agents[0] == user.ID, nil
	}
	return false, nil
}
