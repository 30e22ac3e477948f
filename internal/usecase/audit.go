package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dinecircle/authz-service/internal/core/domain"
	"github.com/dinecircle/authz-service/internal/core/port"
)

const (
	defaultAuditPageLimit = 50
	maxAuditPageLimit     = 100
	auditWriteTimeout     = 2 * time.Second
)

// LogEventInput captures one sensitive action for the audit trail.
type LogEventInput struct {
	ActorID    string
	Action     domain.AuditAction
	TargetType domain.AuditTargetType
	TargetID   string
	GroupID    *string
	Metadata   map[string]any
	Reason     *string
	IPAddress  *string
	UserAgent  *string
}

// AuditLogResult is one page of the audit log with exact totals.
type AuditLogResult struct {
	Entries []domain.AuditLogEntry
	Count   int
	HasMore bool
}

// AuditStats aggregates the filtered window.
type AuditStats struct {
	TotalEvents    int
	EventsByAction map[domain.AuditAction]int
	RecentActivity []domain.AuditLogEntry
}

// AuditService records and serves the immutable audit trail. Writes are
// best-effort: LogEvent swallows every failure so audit logging never blocks
// or fails the operation it documents. Reads are total: any backend error
// yields an empty well-typed result so audit failures never cascade into
// caller failures.
type AuditService struct {
	audits  port.AuditRepository
	users   port.UserDirectory
	events  port.EventPublisher
	logger  *zap.Logger
	timeout time.Duration
	now     func() time.Time
	newID   func() string
}

// NewAuditService constructs an AuditService.
func NewAuditService(audits port.AuditRepository, users port.UserDirectory, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{
		audits:  audits,
		users:   users,
		logger:  logger,
		timeout: auditWriteTimeout,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// WithEventPublisher mirrors successful writes onto the event bus.
func (s *AuditService) WithEventPublisher(events port.EventPublisher) *AuditService {
	s.events = events
	return s
}

// WithTimeout overrides the per-call store deadline.
func (s *AuditService) WithTimeout(timeout time.Duration) *AuditService {
	if timeout > 0 {
		s.timeout = timeout
	}
	return s
}

// WithClock injects a clock, primarily for tests.
func (s *AuditService) WithClock(now func() time.Time) *AuditService {
	if now != nil {
		s.now = now
	}
	return s
}

// LogEvent appends one immutable entry and returns its ID, or the empty
// string when the write failed. It never returns an error: the caller's
// primary operation must not depend on audit success.
func (s *AuditService) LogEvent(ctx context.Context, input LogEventInput) string {
	entry := domain.AuditLogEntry{
		ID:         s.newID(),
		ActorID:    input.ActorID,
		Action:     input.Action,
		TargetType: input.TargetType,
		TargetID:   input.TargetID,
		GroupID:    input.GroupID,
		Metadata:   input.Metadata,
		Reason:     input.Reason,
		IPAddress:  input.IPAddress,
		UserAgent:  input.UserAgent,
		CreatedAt:  s.now().UTC(),
	}

	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.audits.Insert(cctx, entry); err != nil {
		s.logger.Error("audit insert failed",
			zap.String("action", string(entry.Action)),
			zap.String("actor_id", entry.ActorID),
			zap.String("target_id", entry.TargetID),
			zap.Error(err),
		)
		return ""
	}

	s.publish(ctx, entry)
	return entry.ID
}

func (s *AuditService) publish(ctx context.Context, entry domain.AuditLogEntry) {
	if s.events == nil {
		return
	}

	event := domain.AuditLoggedEvent{
		EventID:    uuid.NewString(),
		AuditID:    entry.ID,
		ActorID:    entry.ActorID,
		Action:     entry.Action,
		TargetType: entry.TargetType,
		TargetID:   entry.TargetID,
		GroupID:    entry.GroupID,
		Metadata:   entry.Metadata,
		OccurredAt: entry.CreatedAt,
	}

	if err := s.events.PublishAuditLogged(ctx, event); err != nil {
		s.logger.Warn("audit event publish failed",
			zap.String("audit_id", entry.ID), zap.Error(err))
	}
}

// Named helpers fix action, target type, and metadata shape per operation.
// New sensitive operations get a new helper here instead of ad-hoc LogEvent
// calls, so metadata stays self-documenting for audit consumers.

// RequestMeta carries the caller-side request attribution for audit entries.
type RequestMeta struct {
	IPAddress *string
	UserAgent *string
}

// LogGroupCreated records a new group.
func (s *AuditService) LogGroupCreated(ctx context.Context, actorID, groupID, groupName string, req RequestMeta) string {
	return s.LogEvent(ctx, LogEventInput{
		ActorID:    actorID,
		Action:     domain.AuditActionGroupCreated,
		TargetType: domain.AuditTargetGroup,
		TargetID:   groupID,
		GroupID:    &groupID,
		Metadata:   map[string]any{"group_name": groupName},
		IPAddress:  req.IPAddress,
		UserAgent:  req.UserAgent,
	})
}

// LogGroupUpdated records which fields changed on a group.
func (s *AuditService) LogGroupUpdated(ctx context.Context, actorID, groupID string, changes map[string]any, req RequestMeta) string {
	return s.LogEvent(ctx, LogEventInput{
		ActorID:    actorID,
		Action:     domain.AuditActionGroupUpdated,
		TargetType: domain.AuditTargetGroup,
		TargetID:   groupID,
		GroupID:    &groupID,
		Metadata:   map[string]any{"changes": changes},
		IPAddress:  req.IPAddress,
		UserAgent:  req.UserAgent,
	})
}

// LogRoleChanged records a member's role transition.
func (s *AuditService) LogRoleChanged(ctx context.Context, actorID, targetUserID, groupID string, oldRole, newRole domain.GroupRole, req RequestMeta) string {
	return s.LogEvent(ctx, LogEventInput{
		ActorID:    actorID,
		Action:     domain.AuditActionRoleChanged,
		TargetType: domain.AuditTargetUser,
		TargetID:   targetUserID,
		GroupID:    &groupID,
		Metadata: map[string]any{
			"old_role": string(oldRole),
			"new_role": string(newRole),
		},
		IPAddress: req.IPAddress,
		UserAgent: req.UserAgent,
	})
}

// LogMemberRemoved records a member removal, with the optional actor-supplied
// reason.
func (s *AuditService) LogMemberRemoved(ctx context.Context, actorID, targetUserID, groupID string, removedRole domain.GroupRole, reason *string, req RequestMeta) string {
	return s.LogEvent(ctx, LogEventInput{
		ActorID:    actorID,
		Action:     domain.AuditActionMemberRemoved,
		TargetType: domain.AuditTargetUser,
		TargetID:   targetUserID,
		GroupID:    &groupID,
		Metadata:   map[string]any{"removed_role": string(removedRole)},
		Reason:     reason,
		IPAddress:  req.IPAddress,
		UserAgent:  req.UserAgent,
	})
}

// LogInviteCodeGenerated records invite creation. The code itself is not
// logged, only its ID and constraints.
func (s *AuditService) LogInviteCodeGenerated(ctx context.Context, actorID, inviteID, groupID string, maxUses int, expiresAt *time.Time, req RequestMeta) string {
	metadata := map[string]any{"max_uses": maxUses}
	if expiresAt != nil {
		metadata["expires_at"] = expiresAt.UTC().Format(time.RFC3339)
	}
	return s.LogEvent(ctx, LogEventInput{
		ActorID:    actorID,
		Action:     domain.AuditActionInviteCodeGenerated,
		TargetType: domain.AuditTargetInviteCode,
		TargetID:   inviteID,
		GroupID:    &groupID,
		Metadata:   metadata,
		IPAddress:  req.IPAddress,
		UserAgent:  req.UserAgent,
	})
}

// LogOwnershipTransferred records an ownership transfer; the target is the
// new owner.
func (s *AuditService) LogOwnershipTransferred(ctx context.Context, actorID, newOwnerID, groupID string, demotedTo domain.GroupRole, req RequestMeta) string {
	return s.LogEvent(ctx, LogEventInput{
		ActorID:    actorID,
		Action:     domain.AuditActionOwnershipTransferred,
		TargetType: domain.AuditTargetUser,
		TargetID:   newOwnerID,
		GroupID:    &groupID,
		Metadata: map[string]any{
			"previous_owner": actorID,
			"new_owner":      newOwnerID,
			"demoted_to":     string(demotedTo),
		},
		IPAddress: req.IPAddress,
		UserAgent: req.UserAgent,
	})
}

func normalizeAuditWindow(filter port.AuditFilter) port.AuditFilter {
	if filter.Limit <= 0 {
		filter.Limit = defaultAuditPageLimit
	}
	if filter.Limit > maxAuditPageLimit {
		filter.Limit = maxAuditPageLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return filter
}

// GetAuditLog returns one filtered page ordered by created_at descending.
// Count is fetched with a separate query over the whole window so has_more
// and count stay correct on the last page. Any backend error yields the
// empty result.
func (s *AuditService) GetAuditLog(ctx context.Context, filter port.AuditFilter) AuditLogResult {
	empty := AuditLogResult{Entries: []domain.AuditLogEntry{}}
	filter = normalizeAuditWindow(filter)

	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	entries, err := s.audits.List(cctx, filter)
	if err != nil {
		s.logger.Error("audit list failed", zap.Error(err))
		return empty
	}

	count, err := s.audits.Count(cctx, filter)
	if err != nil {
		s.logger.Error("audit count failed", zap.Error(err))
		return empty
	}

	entries = s.enhance(cctx, entries)

	return AuditLogResult{
		Entries: entries,
		Count:   count,
		HasMore: filter.Offset+filter.Limit < count,
	}
}

// enhance joins actor and user-target display info in one batch keyed by the
// page's distinct ID set. Enhancement failure is non-fatal: entries come back
// unenhanced.
func (s *AuditService) enhance(ctx context.Context, entries []domain.AuditLogEntry) []domain.AuditLogEntry {
	if s.users == nil || len(entries) == 0 {
		return entries
	}

	idSet := make(map[string]struct{}, len(entries)*2)
	for _, entry := range entries {
		idSet[entry.ActorID] = struct{}{}
		if entry.TargetType == domain.AuditTargetUser {
			idSet[entry.TargetID] = struct{}{}
		}
	}

	ids := make([]string, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}

	displays, err := s.users.DisplayByIDs(ctx, ids)
	if err != nil {
		s.logger.Warn("audit enhancement lookup failed", zap.Error(err))
		return entries
	}

	for i := range entries {
		if display, ok := displays[entries[i].ActorID]; ok {
			actor := display
			entries[i].Actor = &actor
		}
		if entries[i].TargetType == domain.AuditTargetUser {
			if display, ok := displays[entries[i].TargetID]; ok {
				target := display
				entries[i].Target = &target
			}
		}
	}

	return entries
}

// GetAuditStats tallies the filtered window. EventsByAction covers every
// matching row, not just one page; RecentActivity reuses GetAuditLog with a
// fixed limit of 10.
func (s *AuditService) GetAuditStats(ctx context.Context, filter port.AuditFilter) AuditStats {
	empty := AuditStats{
		EventsByAction: map[domain.AuditAction]int{},
		RecentActivity: []domain.AuditLogEntry{},
	}

	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tally, err := s.audits.CountByAction(cctx, filter)
	if err != nil {
		s.logger.Error("audit stats tally failed", zap.Error(err))
		return empty
	}
	if tally == nil {
		tally = map[domain.AuditAction]int{}
	}

	total := 0
	for _, n := range tally {
		total += n
	}

	recentFilter := filter
	recentFilter.Limit = 10
	recentFilter.Offset = 0
	recent := s.GetAuditLog(ctx, recentFilter)

	return AuditStats{
		TotalEvents:    total,
		EventsByAction: tally,
		RecentActivity: recent.Entries,
	}
}
