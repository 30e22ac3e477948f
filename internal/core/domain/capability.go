package domain

// Capability names one permitted action. Capabilities are the only unit of
// authorization in the service; nothing outside the resolver branches on roles.
type Capability string

const (
	CapabilityCreateGroup        Capability = "create_group"
	CapabilityEditGroup          Capability = "edit_group"
	CapabilityDeleteGroup        Capability = "delete_group"
	CapabilityManageRoles        Capability = "manage_roles"
	CapabilityInviteMember       Capability = "invite_member"
	CapabilityManageInvites      Capability = "manage_invites"
	CapabilityRemoveMember       Capability = "remove_member"
	CapabilityTransferOwnership  Capability = "transfer_ownership"
	CapabilityPostReview         Capability = "post_review"
	CapabilityViewAuditLog       Capability = "view_audit_log"
	CapabilityAdministerPlatform Capability = "administer_platform"
)

// GlobalRole is the system-wide role axis. Every user has exactly one.
type GlobalRole string

const (
	GlobalRoleAdmin GlobalRole = "admin"
	GlobalRoleUser  GlobalRole = "user"
)

// GroupRole is a user's role within one group. A group has exactly one owner.
type GroupRole string

const (
	GroupRoleOwner  GroupRole = "owner"
	GroupRoleAdmin  GroupRole = "admin"
	GroupRoleMember GroupRole = "member"
	GroupRoleNone   GroupRole = "none"
)

// ValidGroupRole reports whether the value is one of the assignable group roles.
func ValidGroupRole(role GroupRole) bool {
	switch role {
	case GroupRoleOwner, GroupRoleAdmin, GroupRoleMember, GroupRoleNone:
		return true
	}
	return false
}

// PermissionContext is a read-only snapshot of a user's authorization state,
// built on demand and never persisted.
type PermissionContext struct {
	UserID       string       `json:"user_id"`
	GlobalRole   GlobalRole   `json:"global_role"`
	GroupRole    *GroupRole   `json:"group_role,omitempty"`
	GroupID      *string      `json:"group_id,omitempty"`
	Capabilities []Capability `json:"capabilities"`
}

// Has reports whether the snapshot's capability set contains the capability.
// Absence only means "unconfirmed": the set is a subset-safe cache, so a
// missing capability must be re-checked against the resolver, never assumed
// denied by callers that can afford the round trip.
func (c PermissionContext) Has(capability Capability) bool {
	for _, have := range c.Capabilities {
		if have == capability {
			return true
		}
	}
	return false
}
