package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dinecircle/authz-service/internal/core/domain"
	"github.com/dinecircle/authz-service/internal/core/port"
	"github.com/dinecircle/authz-service/internal/transport/http/middleware"
	"github.com/dinecircle/authz-service/internal/usecase"
)

// AuditHandler serves the admin-only audit log surface. Both endpoints gate
// on view_audit_log before touching the store.
type AuditHandler struct {
	permissions *usecase.PermissionService
	audit       *usecase.AuditService
}

// NewAuditHandler builds an audit handler instance.
func NewAuditHandler(permissions *usecase.PermissionService, audit *usecase.AuditService) *AuditHandler {
	return &AuditHandler{permissions: permissions, audit: audit}
}

func parseAuditFilter(c *gin.Context) port.AuditFilter {
	filter := port.AuditFilter{}

	if raw := strings.TrimSpace(c.Query("action")); raw != "" {
		action := domain.AuditAction(raw)
		filter.Action = &action
	}
	if raw := strings.TrimSpace(c.Query("actor_id")); raw != "" {
		filter.ActorID = &raw
	}
	if raw := strings.TrimSpace(c.Query("group_id")); raw != "" {
		filter.GroupID = &raw
	}
	if raw := strings.TrimSpace(c.Query("target_type")); raw != "" {
		targetType := domain.AuditTargetType(raw)
		filter.TargetType = &targetType
	}
	if raw := strings.TrimSpace(c.Query("from_date")); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.FromDate = &ts
		}
	}
	if raw := strings.TrimSpace(c.Query("to_date")); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.ToDate = &ts
		}
	}
	if raw := c.Query("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil {
			filter.Limit = limit
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if offset, err := strconv.Atoi(raw); err == nil {
			filter.Offset = offset
		}
	}

	return filter
}

// GetAuditLog godoc
// @Summary Retrieve the audit log
// @Description Returns one filtered page of audit entries with actor and target display info.
// @Tags Audit
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Param action query string false "Filter by action"
// @Param actor_id query string false "Filter by actor"
// @Param group_id query string false "Filter by group"
// @Param target_type query string false "Filter by target type"
// @Param from_date query string false "Inclusive lower bound (RFC3339)"
// @Param to_date query string false "Inclusive upper bound (RFC3339)"
// @Param limit query int false "Page size (default 50, max 100)"
// @Param offset query int false "Page offset"
// @Success 200 {object} AuditLogResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /api/v1/admin/audit-log [get]
func (h *AuditHandler) GetAuditLog(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	if err := h.permissions.EnsureCan(c.Request.Context(), userID, domain.CapabilityViewAuditLog, nil); err != nil {
		RespondWithMappedError(c, err, nil, http.StatusInternalServerError, "failed to check permissions")
		return
	}

	result := h.audit.GetAuditLog(c.Request.Context(), parseAuditFilter(c))

	c.JSON(http.StatusOK, AuditLogResponse{
		Entries: newAuditEntryPayloads(result.Entries),
		Count:   result.Count,
		HasMore: result.HasMore,
	})
}

// GetAuditStats godoc
// @Summary Audit log statistics
// @Description Tallies the filtered audit window by action and returns recent activity.
// @Tags Audit
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Success 200 {object} AuditStatsResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /api/v1/admin/audit-log/stats [get]
func (h *AuditHandler) GetAuditStats(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	if err := h.permissions.EnsureCan(c.Request.Context(), userID, domain.CapabilityViewAuditLog, nil); err != nil {
		RespondWithMappedError(c, err, nil, http.StatusInternalServerError, "failed to check permissions")
		return
	}

	stats := h.audit.GetAuditStats(c.Request.Context(), parseAuditFilter(c))

	byAction := make(map[string]int, len(stats.EventsByAction))
	for action, count := range stats.EventsByAction {
		byAction[string(action)] = count
	}

	c.JSON(http.StatusOK, AuditStatsResponse{
		TotalEvents:    stats.TotalEvents,
		EventsByAction: byAction,
		RecentActivity: newAuditEntryPayloads(stats.RecentActivity),
	})
}
