package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dinecircle/authz-service/internal/core/domain"
	"github.com/dinecircle/authz-service/internal/usecase"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// PermissionContextResponse wraps the caller's authorization snapshot.
type PermissionContextResponse struct {
	Permissions domain.PermissionContext `json:"permissions"`
}

// CheckPermissionRequest asks whether the caller holds one capability.
type CheckPermissionRequest struct {
	Capability string  `json:"capability" binding:"required"`
	GroupID    *string `json:"group_id,omitempty"`
}

// CheckPermissionResponse carries the detailed check outcome.
type CheckPermissionResponse struct {
	Allowed           bool    `json:"allowed"`
	Reason            string  `json:"reason,omitempty"`
	RequiredRole      string  `json:"required_role,omitempty"`
	MissingCapability *string `json:"missing_capability,omitempty"`
}

// CheckCapabilitiesRequest asks for a batch of capability checks.
type CheckCapabilitiesRequest struct {
	Capabilities []string `json:"capabilities" binding:"required"`
	GroupID      *string  `json:"group_id,omitempty"`
}

// CheckCapabilitiesResponse maps each requested capability to its outcome.
type CheckCapabilitiesResponse struct {
	Results map[string]bool `json:"results"`
}

// AuditEntryPayload is the API view of one audit log entry.
type AuditEntryPayload struct {
	ID         string              `json:"id"`
	ActorID    string              `json:"actor_id"`
	Action     string              `json:"action"`
	TargetType string              `json:"target_type"`
	TargetID   string              `json:"target_id"`
	GroupID    *string             `json:"group_id,omitempty"`
	Metadata   map[string]any      `json:"metadata,omitempty"`
	Reason     *string             `json:"reason,omitempty"`
	IPAddress  *string             `json:"ip_address,omitempty"`
	UserAgent  *string             `json:"user_agent,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
	Actor      *domain.UserDisplay `json:"actor,omitempty"`
	Target     *domain.UserDisplay `json:"target,omitempty"`
}

// AuditLogResponse is one page of the audit log with exact totals.
type AuditLogResponse struct {
	Entries []AuditEntryPayload `json:"entries"`
	Count   int                 `json:"count"`
	HasMore bool                `json:"has_more"`
}

// AuditStatsResponse aggregates the filtered audit window.
type AuditStatsResponse struct {
	TotalEvents    int                 `json:"total_events"`
	EventsByAction map[string]int      `json:"events_by_action"`
	RecentActivity []AuditEntryPayload `json:"recent_activity"`
}

// ReviewCursorPayload is the keyset cursor echoed back to clients.
type ReviewCursorPayload struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
}

// ReviewPageResponse is one page of visible reviews.
type ReviewPageResponse struct {
	Reviews    []domain.Review      `json:"reviews"`
	Page       int                  `json:"page"`
	Limit      int                  `json:"limit"`
	Total      int                  `json:"total"`
	TotalPages int                  `json:"total_pages"`
	HasMore    bool                 `json:"has_more"`
	NextCursor *ReviewCursorPayload `json:"next_cursor,omitempty"`
}

// GroupPayload summarizes a group entity.
type GroupPayload struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	OwnerID     string    `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// GroupCreateRequest defines the payload for creating a group.
type GroupCreateRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description,omitempty"`
}

// GroupUpdateRequest defines the payload for updating a group.
type GroupUpdateRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// MemberRoleRequest sets a member's role within a group.
type MemberRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// MemberRemoveRequest carries the optional removal reason.
type MemberRemoveRequest struct {
	Reason *string `json:"reason,omitempty"`
}

// InviteCreateRequest defines the payload for minting an invite code.
type InviteCreateRequest struct {
	MaxUses   int        `json:"max_uses"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// InvitePayload returns the minted invite code.
type InvitePayload struct {
	ID        string     `json:"id"`
	GroupID   string     `json:"group_id"`
	Code      string     `json:"code"`
	MaxUses   int        `json:"max_uses"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// OwnershipTransferRequest hands the group to a current member.
type OwnershipTransferRequest struct {
	NewOwnerID string `json:"new_owner_id" binding:"required"`
	DemoteTo   string `json:"demote_to,omitempty"`
}

// HealthResponse describes the service health payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadyResponse describes readiness probe results with dependency checks.
type ReadyResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

func newAuditEntryPayload(entry domain.AuditLogEntry) AuditEntryPayload {
	return AuditEntryPayload{
		ID:         entry.ID,
		ActorID:    entry.ActorID,
		Action:     string(entry.Action),
		TargetType: string(entry.TargetType),
		TargetID:   entry.TargetID,
		GroupID:    entry.GroupID,
		Metadata:   entry.Metadata,
		Reason:     entry.Reason,
		IPAddress:  entry.IPAddress,
		UserAgent:  entry.UserAgent,
		CreatedAt:  entry.CreatedAt,
		Actor:      entry.Actor,
		Target:     entry.Target,
	}
}

func newAuditEntryPayloads(entries []domain.AuditLogEntry) []AuditEntryPayload {
	payloads := make([]AuditEntryPayload, 0, len(entries))
	for _, entry := range entries {
		payloads = append(payloads, newAuditEntryPayload(entry))
	}
	return payloads
}

func newGroupPayload(group domain.Group) GroupPayload {
	return GroupPayload{
		ID:          group.ID,
		Name:        group.Name,
		Description: group.Description,
		OwnerID:     group.OwnerID,
		CreatedAt:   group.CreatedAt,
		UpdatedAt:   group.UpdatedAt,
	}
}

func newReviewPageResponse(page usecase.ReviewPage) ReviewPageResponse {
	resp := ReviewPageResponse{
		Reviews:    page.Reviews,
		Page:       page.Page,
		Limit:      page.Limit,
		Total:      page.Total,
		TotalPages: page.TotalPages,
		HasMore:    page.HasMore,
	}
	if resp.Reviews == nil {
		resp.Reviews = []domain.Review{}
	}
	if page.NextCursor != nil {
		resp.NextCursor = &ReviewCursorPayload{
			CreatedAt: page.NextCursor.CreatedAt,
			ID:        page.NextCursor.ID,
		}
	}
	return resp
}
