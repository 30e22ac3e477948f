package port

import (
	"context"

	"github.com/dinecircle/authz-service/internal/core/domain"
)

// GroupRepository manages groups and memberships.
type GroupRepository interface {
	// Create inserts the group and its owner membership together.
	Create(ctx context.Context, group domain.Group) error
	Update(ctx context.Context, group domain.Group) error
	GetByID(ctx context.Context, groupID string) (*domain.Group, error)

	// GroupIDs returns every group the user belongs to.
	GroupIDs(ctx context.Context, userID string) ([]string, error)

	// SharesGroup reports whether the two users have at least one group in
	// common. Used by the visibility layer as a pure predicate.
	SharesGroup(ctx context.Context, userA, userB string) (bool, error)

	// MemberRole returns GroupRoleNone when the user is not a member.
	MemberRole(ctx context.Context, groupID, userID string) (domain.GroupRole, error)
	SetMemberRole(ctx context.Context, groupID, userID string, role domain.GroupRole) error
	RemoveMember(ctx context.Context, groupID, userID string) error

	// TransferOwnership atomically demotes the current owner and promotes the
	// new one. The group never has zero or two owners, even transiently.
	TransferOwnership(ctx context.Context, groupID, fromUserID, toUserID string, demoteTo domain.GroupRole) error
}
