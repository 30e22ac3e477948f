package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dinecircle/authz-service/internal/core/domain"
	"github.com/dinecircle/authz-service/internal/core/port"
)

// PermissionDeniedCode is carried by PermissionError for API consumers.
const PermissionDeniedCode = "INSUFFICIENT_PERMISSIONS"

const defaultResolverTimeout = 2 * time.Second

// PermissionError signals a denied action. It is the only error the
// permission service ever returns, and only from EnsureCan; HTTP handlers map
// it to 403.
type PermissionError struct {
	Capability domain.Capability
	GroupID    *string
	Code       string
}

func (e *PermissionError) Error() string {
	if e.GroupID != nil {
		return fmt.Sprintf("insufficient permissions: missing capability %q in group %s", e.Capability, *e.GroupID)
	}
	return fmt.Sprintf("insufficient permissions: missing capability %q", e.Capability)
}

// PermissionCheck is the detailed outcome of a single capability check.
type PermissionCheck struct {
	Allowed           bool               `json:"allowed"`
	Reason            string             `json:"reason,omitempty"`
	RequiredRole      string             `json:"required_role,omitempty"`
	MissingCapability *domain.Capability `json:"missing_capability,omitempty"`
}

// requiredRoleHints maps ownership/admin-tier capabilities to the role text
// shown in denial reasons. This is static UI copy, not authorization logic:
// the real role-to-capability table lives behind the resolver.
var requiredRoleHints = map[domain.Capability]string{
	domain.CapabilityCreateGroup:        "global administrators",
	domain.CapabilityViewAuditLog:       "global administrators",
	domain.CapabilityAdministerPlatform: "global administrators",
	domain.CapabilityDeleteGroup:        "the group owner",
	domain.CapabilityTransferOwnership:  "the group owner",
	domain.CapabilityEditGroup:          "group owners and admins",
	domain.CapabilityManageRoles:        "group owners and admins",
	domain.CapabilityRemoveMember:       "group owners and admins",
	domain.CapabilityManageInvites:      "group owners and admins",
}

const genericDenialReason = "You do not have permission to perform this action."

// DecisionRecorder receives one observation per capability check for metrics.
type DecisionRecorder interface {
	RecordDecision(capability domain.Capability, outcome string)
}

// PermissionService wraps the capability resolver with fail-closed ergonomic
// checks. Every method except EnsureCan is total: resolver failures are
// logged and coerced to the safest denial value, never propagated. Nothing is
// cached server-side — every check reads fresh so role changes are visible to
// the next request as soon as the store allows.
type PermissionService struct {
	resolver port.CapabilityResolver
	logger   *zap.Logger
	timeout  time.Duration
	recorder DecisionRecorder
}

// NewPermissionService constructs a PermissionService.
func NewPermissionService(resolver port.CapabilityResolver, logger *zap.Logger) *PermissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PermissionService{
		resolver: resolver,
		logger:   logger,
		timeout:  defaultResolverTimeout,
	}
}

// WithTimeout overrides the per-call resolver deadline.
func (s *PermissionService) WithTimeout(timeout time.Duration) *PermissionService {
	if timeout > 0 {
		s.timeout = timeout
	}
	return s
}

// WithDecisionRecorder attaches a metrics sink for check outcomes.
func (s *PermissionService) WithDecisionRecorder(recorder DecisionRecorder) *PermissionService {
	s.recorder = recorder
	return s
}

func (s *PermissionService) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func (s *PermissionService) record(capability domain.Capability, outcome string) {
	if s.recorder != nil {
		s.recorder.RecordDecision(capability, outcome)
	}
}

// Can reports whether the user holds the capability. Never errors: a resolver
// failure (including deadline expiry) denies.
func (s *PermissionService) Can(ctx context.Context, userID string, capability domain.Capability, groupID *string) bool {
	cctx, cancel := s.bound(ctx)
	defer cancel()

	allowed, err := s.resolver.CanUserPerform(cctx, userID, capability, groupID)
	if err != nil {
		s.logger.Warn("capability check failed, denying",
			zap.String("user_id", userID),
			zap.String("capability", string(capability)),
			zap.Stringp("group_id", groupID),
			zap.Error(err),
		)
		s.record(capability, "error")
		return false
	}

	if allowed {
		s.record(capability, "allow")
	} else {
		s.record(capability, "deny")
	}
	return allowed
}

// EnsureCan is the gate mutation paths call before any side effect. It
// returns nil exactly when Can returns true; otherwise a *PermissionError.
func (s *PermissionService) EnsureCan(ctx context.Context, userID string, capability domain.Capability, groupID *string) error {
	if s.Can(ctx, userID, capability, groupID) {
		return nil
	}
	return &PermissionError{
		Capability: capability,
		GroupID:    groupID,
		Code:       PermissionDeniedCode,
	}
}

// GetUserPermissions aggregates the user's global role, group role, and
// capability set into one snapshot. The three resolver calls run
// concurrently and degrade individually: a failed call leaves its field at
// the safe default (user / nil / empty) instead of aborting the context.
// A context is always returned.
func (s *PermissionService) GetUserPermissions(ctx context.Context, userID string, groupID *string) domain.PermissionContext {
	pc := domain.PermissionContext{
		UserID:       userID,
		GlobalRole:   domain.GlobalRoleUser,
		GroupID:      groupID,
		Capabilities: []domain.Capability{},
	}

	var wg sync.WaitGroup
	var mu sync.Mutex

	wg.Add(1)
	go func() {
		defer wg.Done()
		cctx, cancel := s.bound(ctx)
		defer cancel()
		role, err := s.resolver.GlobalRole(cctx, userID)
		if err != nil {
			s.logger.Warn("global role lookup failed, defaulting to user",
				zap.String("user_id", userID), zap.Error(err))
			return
		}
		mu.Lock()
		pc.GlobalRole = role
		mu.Unlock()
	}()

	if groupID != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cctx, cancel := s.bound(ctx)
			defer cancel()
			role, err := s.resolver.GroupRole(cctx, userID, *groupID)
			if err != nil {
				s.logger.Warn("group role lookup failed, omitting",
					zap.String("user_id", userID), zap.String("group_id", *groupID), zap.Error(err))
				return
			}
			mu.Lock()
			pc.GroupRole = &role
			mu.Unlock()
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		cctx, cancel := s.bound(ctx)
		defer cancel()
		capabilities, err := s.resolver.CapabilitySet(cctx, userID, groupID)
		if err != nil {
			s.logger.Warn("capability set lookup failed, defaulting to empty",
				zap.String("user_id", userID), zap.Error(err))
			return
		}
		if capabilities == nil {
			capabilities = []domain.Capability{}
		}
		mu.Lock()
		pc.Capabilities = capabilities
		mu.Unlock()
	}()

	wg.Wait()
	return pc
}

// CheckCapabilities fans out one check per capability concurrently. The
// returned map holds exactly the input capability set — every key present,
// each value a boolean — regardless of individual resolver outcomes.
func (s *PermissionService) CheckCapabilities(ctx context.Context, userID string, capabilities []domain.Capability, groupID *string) map[domain.Capability]bool {
	results := make(map[domain.Capability]bool, len(capabilities))
	if len(capabilities) == 0 {
		return results
	}

	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, capability := range capabilities {
		mu.Lock()
		if _, seen := results[capability]; seen {
			mu.Unlock()
			continue
		}
		results[capability] = false
		mu.Unlock()

		wg.Add(1)
		go func(capability domain.Capability) {
			defer wg.Done()
			allowed := s.Can(ctx, userID, capability, groupID)
			mu.Lock()
			results[capability] = allowed
			mu.Unlock()
		}(capability)
	}

	wg.Wait()
	return results
}

// CheckPermission runs one check and, on denial, attaches a human-readable
// reason plus a required-role hint for the capabilities in the static table.
func (s *PermissionService) CheckPermission(ctx context.Context, userID string, capability domain.Capability, groupID *string) PermissionCheck {
	if s.Can(ctx, userID, capability, groupID) {
		return PermissionCheck{Allowed: true}
	}

	missing := capability
	check := PermissionCheck{
		Allowed:           false,
		MissingCapability: &missing,
		Reason:            genericDenialReason,
	}

	if hint, ok := requiredRoleHints[capability]; ok {
		check.RequiredRole = hint
		check.Reason = fmt.Sprintf("This action is restricted to %s.", hint)
	}

	return check
}

// Convenience checks. Defined purely as Can calls so capabilities stay the
// only authorization currency — no role string comparisons here.

// IsGlobalAdmin reports whether the user can administer the platform.
func (s *PermissionService) IsGlobalAdmin(ctx context.Context, userID string) bool {
	return s.Can(ctx, userID, domain.CapabilityAdministerPlatform, nil)
}

// IsGroupOwner reports whether the user holds owner-tier power in the group.
func (s *PermissionService) IsGroupOwner(ctx context.Context, userID, groupID string) bool {
	return s.Can(ctx, userID, domain.CapabilityTransferOwnership, &groupID)
}

// IsGroupAdmin reports whether the user holds admin-tier power in the group.
func (s *PermissionService) IsGroupAdmin(ctx context.Context, userID, groupID string) bool {
	return s.Can(ctx, userID, domain.CapabilityManageRoles, &groupID)
}
