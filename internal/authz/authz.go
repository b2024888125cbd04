// Package authz enforces the workspace role hierarchy. Checks are
// always "at least this role"; a missing membership is reported as not
// found so unauthorized actors cannot distinguish a workspace they were
// removed from and one that never existed.
package authz

import (
	"fmt"

	"github.com/google/uuid"

	podrepo "github.com/Synap-core/backend-sub006/internal/data/repos/pod"
	types "github.com/Synap-core/backend-sub006/internal/domain"
	"github.com/Synap-core/backend-sub006/internal/pkg/dbctx"
	pkgerrors "github.com/Synap-core/backend-sub006/internal/pkg/errors"
	"github.com/Synap-core/backend-sub006/internal/platform/logger"
)

var roleRank = map[string]int{
	types.RoleViewer: 1,
	types.RoleEditor: 2,
	types.RoleAdmin:  3,
	types.RoleOwner:  4,
}

// RoleRank reports the hierarchy position of role, 0 for unknown roles.
func RoleRank(role string) int {
	return roleRank[role]
}

type Gate struct {
	members podrepo.MemberRepo
	log     *logger.Logger
}

func NewGate(members podrepo.MemberRepo, baseLog *logger.Logger) *Gate {
	return &Gate{
		members: members,
		log:     baseLog.With("component", "authz"),
	}
}

// RequireWorkspaceRole returns the actor's membership when its role is
// at least minimumRole. No membership row yields ErrNotFound; an
// insufficient role yields ErrForbidden naming both roles.
func (g *Gate) RequireWorkspaceRole(dbc dbctx.Context, workspaceID, userID uuid.UUID, minimumRole string) (*types.WorkspaceMember, error) {
	needed, ok := roleRank[minimumRole]
	if !ok {
		return nil, fmt.Errorf("%w: unknown role %q", pkgerrors.ErrValidation, minimumRole)
	}

	member, err := g.members.GetByWorkspaceAndUser(dbc, workspaceID, userID)
	if err != nil {
		return nil, err
	}
	if roleRank[member.Role] < needed {
		return nil, fmt.Errorf("%w: Requires %s role or higher (you have: %s)", pkgerrors.ErrForbidden, minimumRole, member.Role)
	}
	return member, nil
}

// HasWorkspaceRole is the non-throwing variant, for conditional logic
// rather than enforcement.
func (g *Gate) HasWorkspaceRole(dbc dbctx.Context, workspaceID, userID uuid.UUID, minimumRole string) bool {
	_, err := g.RequireWorkspaceRole(dbc, workspaceID, userID, minimumRole)
	return err == nil
}

// RequireResourceOwner guards resources that carry a user id but no
// workspace scoping. Any mismatch is forbidden, not hidden.
func RequireResourceOwner(resourceUserID, userID uuid.UUID) error {
	if resourceUserID != userID {
		return fmt.Errorf("%w: resource belongs to a different user", pkgerrors.ErrForbidden)
	}
	return nil
}
