package usecase

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dinecircle/authz-service/internal/core/domain"
	"github.com/dinecircle/authz-service/internal/core/port"
	"github.com/dinecircle/authz-service/internal/repository"
)

var (
	// ErrGroupNotFound indicates the group does not exist.
	ErrGroupNotFound = errors.New("group not found")
	// ErrNotAMember indicates the target user is not a member of the group.
	ErrNotAMember = errors.New("user is not a group member")
	// ErrInvalidRole indicates the requested role is not assignable.
	ErrInvalidRole = errors.New("invalid group role")
	// ErrCannotRemoveOwner indicates an attempt to remove the group owner.
	ErrCannotRemoveOwner = errors.New("group owner cannot be removed")
	// ErrInvalidGroupName indicates a missing or blank group name.
	ErrInvalidGroupName = errors.New("invalid group name")
)

const (
	defaultInviteMaxUses = 1
	inviteCodeBytes      = 10
)

var inviteEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// CreateGroupInput captures the payload for creating a group.
type CreateGroupInput struct {
	Name        string
	Description *string
}

// UpdateGroupInput captures the payload for updating a group. Nil fields are
// left unchanged.
type UpdateGroupInput struct {
	GroupID     string
	Name        *string
	Description *string
}

// GenerateInviteInput captures the payload for minting an invite code.
type GenerateInviteInput struct {
	GroupID   string
	MaxUses   int
	ExpiresAt *time.Time
}

// GroupService applies the sensitive group mutations. Every operation
// follows the same convention: EnsureCan first, before any side effect, then
// the primary write, then the matching audit helper once the write is known
// good.
type GroupService struct {
	permissions *PermissionService
	groups      port.GroupRepository
	invites     port.InviteRepository
	audit       *AuditService
	logger      *zap.Logger
	now         func() time.Time
	newID       func() string
}

// NewGroupService constructs a GroupService.
func NewGroupService(permissions *PermissionService, groups port.GroupRepository, invites port.InviteRepository, audit *AuditService, logger *zap.Logger) *GroupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GroupService{
		permissions: permissions,
		groups:      groups,
		invites:     invites,
		audit:       audit,
		logger:      logger,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// WithClock injects a clock, primarily for tests.
func (s *GroupService) WithClock(now func() time.Time) *GroupService {
	if now != nil {
		s.now = now
	}
	return s
}

// CreateGroup provisions a new group owned by the actor.
func (s *GroupService) CreateGroup(ctx context.Context, actorID string, input CreateGroupInput, req RequestMeta) (*domain.Group, error) {
	if err := s.permissions.EnsureCan(ctx, actorID, domain.CapabilityCreateGroup, nil); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrInvalidGroupName
	}

	now := s.now().UTC()
	group := domain.Group{
		ID:        s.newID(),
		Name:      name,
		OwnerID:   actorID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if input.Description != nil {
		trimmed := strings.TrimSpace(*input.Description)
		if trimmed != "" {
			group.Description = &trimmed
		}
	}

	if err := s.groups.Create(ctx, group); err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}

	s.audit.LogGroupCreated(ctx, actorID, group.ID, group.Name, req)
	return &group, nil
}

// UpdateGroup modifies group metadata, recording which fields changed.
func (s *GroupService) UpdateGroup(ctx context.Context, actorID string, input UpdateGroupInput, req RequestMeta) (*domain.Group, error) {
	if err := s.permissions.EnsureCan(ctx, actorID, domain.CapabilityEditGroup, &input.GroupID); err != nil {
		return nil, err
	}

	group, err := s.groups.GetByID(ctx, input.GroupID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("get group: %w", err)
	}

	changes := map[string]any{}
	if input.Name != nil {
		trimmed := strings.TrimSpace(*input.Name)
		if trimmed == "" {
			return nil, ErrInvalidGroupName
		}
		if trimmed != group.Name {
			changes["name"] = map[string]string{"old": group.Name, "new": trimmed}
			group.Name = trimmed
		}
	}
	if input.Description != nil {
		trimmed := strings.TrimSpace(*input.Description)
		if trimmed == "" {
			if group.Description != nil {
				changes["description"] = map[string]any{"old": *group.Description, "new": nil}
			}
			group.Description = nil
		} else {
			old := ""
			if group.Description != nil {
				old = *group.Description
			}
			if trimmed != old {
				changes["description"] = map[string]string{"old": old, "new": trimmed}
				group.Description = &trimmed
			}
		}
	}

	if len(changes) == 0 {
		return group, nil
	}

	group.UpdatedAt = s.now().UTC()
	if err := s.groups.Update(ctx, *group); err != nil {
		return nil, fmt.Errorf("update group: %w", err)
	}

	s.audit.LogGroupUpdated(ctx, actorID, group.ID, changes, req)
	return group, nil
}

// ChangeMemberRole moves a member between the admin and member tiers. Owner
// is never assignable here; it only moves via TransferOwnership.
func (s *GroupService) ChangeMemberRole(ctx context.Context, actorID, groupID, targetUserID string, newRole domain.GroupRole, req RequestMeta) error {
	if err := s.permissions.EnsureCan(ctx, actorID, domain.CapabilityManageRoles, &groupID); err != nil {
		return err
	}

	if newRole != domain.GroupRoleAdmin && newRole != domain.GroupRoleMember {
		return ErrInvalidRole
	}

	oldRole, err := s.groups.MemberRole(ctx, groupID, targetUserID)
	if err != nil {
		return fmt.Errorf("get member role: %w", err)
	}
	if oldRole == domain.GroupRoleNone {
		return ErrNotAMember
	}
	if oldRole == domain.GroupRoleOwner {
		return ErrInvalidRole
	}
	if oldRole == newRole {
		return nil
	}

	if err := s.groups.SetMemberRole(ctx, groupID, targetUserID, newRole); err != nil {
		return fmt.Errorf("set member role: %w", err)
	}

	s.audit.LogRoleChanged(ctx, actorID, targetUserID, groupID, oldRole, newRole, req)
	return nil
}

// RemoveMember removes a non-owner member from the group.
func (s *GroupService) RemoveMember(ctx context.Context, actorID, groupID, targetUserID string, reason *string, req RequestMeta) error {
	if err := s.permissions.EnsureCan(ctx, actorID, domain.CapabilityRemoveMember, &groupID); err != nil {
		return err
	}

	role, err := s.groups.MemberRole(ctx, groupID, targetUserID)
	if err != nil {
		return fmt.Errorf("get member role: %w", err)
	}
	if role == domain.GroupRoleNone {
		return ErrNotAMember
	}
	if role == domain.GroupRoleOwner {
		return ErrCannotRemoveOwner
	}

	if err := s.groups.RemoveMember(ctx, groupID, targetUserID); err != nil {
		return fmt.Errorf("remove member: %w", err)
	}

	s.audit.LogMemberRemoved(ctx, actorID, targetUserID, groupID, role, reason, req)
	return nil
}

// GenerateInviteCode mints a new invite code for the group.
func (s *GroupService) GenerateInviteCode(ctx context.Context, actorID string, input GenerateInviteInput, req RequestMeta) (*domain.InviteCode, error) {
	if err := s.permissions.EnsureCan(ctx, actorID, domain.CapabilityManageInvites, &input.GroupID); err != nil {
		return nil, err
	}

	maxUses := input.MaxUses
	if maxUses <= 0 {
		maxUses = defaultInviteMaxUses
	}

	code, err := newInviteCode()
	if err != nil {
		return nil, fmt.Errorf("generate invite code: %w", err)
	}

	invite := domain.InviteCode{
		ID:        s.newID(),
		GroupID:   input.GroupID,
		Code:      code,
		CreatedBy: actorID,
		MaxUses:   maxUses,
		ExpiresAt: input.ExpiresAt,
		CreatedAt: s.now().UTC(),
	}

	if err := s.invites.Create(ctx, invite); err != nil {
		return nil, fmt.Errorf("create invite: %w", err)
	}

	s.audit.LogInviteCodeGenerated(ctx, actorID, invite.ID, invite.GroupID, invite.MaxUses, invite.ExpiresAt, req)
	return &invite, nil
}

// TransferOwnership atomically hands the group to a current member. The old
// owner is demoted to demoteTo (admin when unspecified); at no point does
// the group have zero or two owners.
func (s *GroupService) TransferOwnership(ctx context.Context, actorID, groupID, newOwnerID string, demoteTo domain.GroupRole, req RequestMeta) error {
	if err := s.permissions.EnsureCan(ctx, actorID, domain.CapabilityTransferOwnership, &groupID); err != nil {
		return err
	}

	if demoteTo == "" {
		demoteTo = domain.GroupRoleAdmin
	}
	if demoteTo != domain.GroupRoleAdmin && demoteTo != domain.GroupRoleMember {
		return ErrInvalidRole
	}

	targetRole, err := s.groups.MemberRole(ctx, groupID, newOwnerID)
	if err != nil {
		return fmt.Errorf("get member role: %w", err)
	}
	if targetRole == domain.GroupRoleNone {
		return ErrNotAMember
	}
	if targetRole == domain.GroupRoleOwner {
		return nil
	}

	if err := s.groups.TransferOwnership(ctx, groupID, actorID, newOwnerID, demoteTo); err != nil {
		return fmt.Errorf("transfer ownership: %w", err)
	}

	s.audit.LogOwnershipTransferred(ctx, actorID, newOwnerID, groupID, demoteTo, req)
	return nil
}

func newInviteCode() (string, error) {
	buf := make([]byte, inviteCodeBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return inviteEncoding.EncodeToString(buf), nil
}
