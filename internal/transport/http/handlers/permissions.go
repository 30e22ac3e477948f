package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dinecircle/authz-service/internal/core/domain"
	"github.com/dinecircle/authz-service/internal/transport/http/middleware"
	"github.com/dinecircle/authz-service/internal/usecase"
)

// PermissionHandler serves the caller-facing permission surface. All
// endpoints answer about the authenticated caller only; there is no way to
// query another user's capabilities.
type PermissionHandler struct {
	permissions *usecase.PermissionService
}

// NewPermissionHandler builds a permission handler instance.
func NewPermissionHandler(permissions *usecase.PermissionService) *PermissionHandler {
	return &PermissionHandler{permissions: permissions}
}

// GetPermissions godoc
// @Summary Get the caller's permission context
// @Description Returns the caller's global role, optional group role, and capability set.
// @Tags Permissions
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Param group_id query string false "Scope the snapshot to a group"
// @Success 200 {object} PermissionContextResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/auth/permissions [get]
func (h *PermissionHandler) GetPermissions(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	var groupID *string
	if raw := strings.TrimSpace(c.Query("group_id")); raw != "" {
		groupID = &raw
	}

	pc := h.permissions.GetUserPermissions(c.Request.Context(), userID, groupID)
	c.JSON(http.StatusOK, PermissionContextResponse{Permissions: pc})
}

// CheckPermission godoc
// @Summary Check one capability
// @Description Returns whether the caller holds the capability, with a denial reason when not.
// @Tags Permissions
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Param request body CheckPermissionRequest true "Capability check request"
// @Success 200 {object} CheckPermissionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/auth/check-permission [post]
func (h *PermissionHandler) CheckPermission(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	var req CheckPermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid check payload"))
		return
	}

	capability := domain.Capability(strings.TrimSpace(req.Capability))
	if capability == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "capability cannot be empty"))
		return
	}

	check := h.permissions.CheckPermission(c.Request.Context(), userID, capability, req.GroupID)

	resp := CheckPermissionResponse{
		Allowed:      check.Allowed,
		Reason:       check.Reason,
		RequiredRole: check.RequiredRole,
	}
	if check.MissingCapability != nil {
		missing := string(*check.MissingCapability)
		resp.MissingCapability = &missing
	}

	c.JSON(http.StatusOK, resp)
}

// CheckCapabilities godoc
// @Summary Check a batch of capabilities
// @Description Returns an allow/deny result for every requested capability.
// @Tags Permissions
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Param request body CheckCapabilitiesRequest true "Batch check request"
// @Success 200 {object} CheckCapabilitiesResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/auth/check-capabilities [post]
func (h *PermissionHandler) CheckCapabilities(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	var req CheckCapabilitiesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid check payload"))
		return
	}

	capabilities := make([]domain.Capability, 0, len(req.Capabilities))
	for _, raw := range req.Capabilities {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "capability cannot be empty"))
			return
		}
		capabilities = append(capabilities, domain.Capability(trimmed))
	}

	results := h.permissions.CheckCapabilities(c.Request.Context(), userID, capabilities, req.GroupID)

	payload := make(map[string]bool, len(results))
	for capability, allowed := range results {
		payload[string(capability)] = allowed
	}

	c.JSON(http.StatusOK, CheckCapabilitiesResponse{Results: payload})
}
