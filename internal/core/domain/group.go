package domain

import "time"

// Group is a dining circle: membership gates content visibility.
type Group struct {
	ID          string
	Name        string
	Description *string
	OwnerID     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// GroupMember links a user to a group with a role.
type GroupMember struct {
	GroupID  string
	UserID   string
	Role     GroupRole
	JoinedAt time.Time
}

// InviteCode gates signup and group joining. Consumption is owned by the
// signup flow; this service creates codes and records their creation.
type InviteCode struct {
	ID        string
	GroupID   string
	Code      string
	CreatedBy string
	MaxUses   int
	Uses      int
	ExpiresAt *time.Time
	CreatedAt time.Time
}
