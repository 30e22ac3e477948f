package port

import (
	"context"

	"github.com/dinecircle/authz-service/internal/core/domain"
)

// CapabilityResolver is the external authority for role and capability
// questions. The role-to-capability decision table lives behind this boundary
// (database-side functions); the service never hardcodes it. All four calls
// are single round trips, consistent with each other at call time, and may
// fail — callers must treat any error as a denial.
type CapabilityResolver interface {
	// CanUserPerform answers whether the user holds the capability, optionally
	// scoped to a group. groupID == nil is valid for global capabilities.
	CanUserPerform(ctx context.Context, userID string, capability domain.Capability, groupID *string) (bool, error)

	// GlobalRole resolves the user's system-wide role.
	GlobalRole(ctx context.Context, userID string) (domain.GlobalRole, error)

	// GroupRole resolves the user's role within the group, GroupRoleNone when
	// the user is not a member.
	GroupRole(ctx context.Context, userID, groupID string) (domain.GroupRole, error)

	// CapabilitySet resolves every capability the user holds, optionally
	// scoped to a group.
	CapabilitySet(ctx context.Context, userID string, groupID *string) ([]domain.Capability, error)
}
