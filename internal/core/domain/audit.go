package domain

import "time"

// AuditAction enumerates the sensitive operations recorded in the audit log.
type AuditAction string

const (
	AuditActionGroupCreated         AuditAction = "group_created"
	AuditActionGroupUpdated         AuditAction = "group_updated"
	AuditActionRoleChanged          AuditAction = "role_changed"
	AuditActionMemberRemoved        AuditAction = "member_removed"
	AuditActionInviteCodeGenerated  AuditAction = "invite_code_generated"
	AuditActionOwnershipTransferred AuditAction = "ownership_transferred"
)

// AuditTargetType classifies what an audit entry's target ID refers to.
type AuditTargetType string

const (
	AuditTargetUser       AuditTargetType = "user"
	AuditTargetGroup      AuditTargetType = "group"
	AuditTargetInviteCode AuditTargetType = "invite_code"
)

// AuditLogEntry is an immutable record of one sensitive action. Entries are
// append-only: never updated, never deleted.
type AuditLogEntry struct {
	ID         string
	ActorID    string
	Action     AuditAction
	TargetType AuditTargetType
	TargetID   string
	GroupID    *string
	Metadata   map[string]any
	Reason     *string
	IPAddress  *string
	UserAgent  *string
	CreatedAt  time.Time

	// Display info joined at read time, never stored.
	Actor  *UserDisplay
	Target *UserDisplay
}

// UserDisplay carries the denormalized fields used to enhance audit entries.
type UserDisplay struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	FullName *string `json:"full_name,omitempty"`
	Email    string  `json:"email"`
}
