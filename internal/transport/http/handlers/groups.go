package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dinecircle/authz-service/internal/core/domain"
	"github.com/dinecircle/authz-service/internal/repository"
	"github.com/dinecircle/authz-service/internal/transport/http/middleware"
	"github.com/dinecircle/authz-service/internal/usecase"
)

// GroupHandler serves the sensitive group mutations. Request attribution
// (IP, user agent) rides along so audit entries carry it.
type GroupHandler struct {
	groups *usecase.GroupService
}

// NewGroupHandler builds a group handler instance.
func NewGroupHandler(groups *usecase.GroupService) *GroupHandler {
	return &GroupHandler{groups: groups}
}

func requestMeta(c *gin.Context) usecase.RequestMeta {
	meta := usecase.RequestMeta{}
	if ip := c.ClientIP(); ip != "" {
		meta.IPAddress = &ip
	}
	if ua := c.Request.UserAgent(); ua != "" {
		meta.UserAgent = &ua
	}
	return meta
}

var groupErrorCases = []ErrorCase{
	{Err: usecase.ErrGroupNotFound, Status: http.StatusNotFound, Message: "group not found"},
	{Err: usecase.ErrNotAMember, Status: http.StatusBadRequest, Message: "user is not a group member"},
	{Err: usecase.ErrInvalidRole, Status: http.StatusBadRequest, Message: "invalid group role"},
	{Err: usecase.ErrCannotRemoveOwner, Status: http.StatusBadRequest, Message: "group owner cannot be removed"},
	{Err: usecase.ErrInvalidGroupName, Status: http.StatusBadRequest, Message: "invalid group name"},
	{Err: repository.ErrNotFound, Status: http.StatusNotFound, Message: "not found"},
	{Err: repository.ErrConflict, Status: http.StatusConflict, Message: "conflicting update, retry"},
}

// CreateGroup godoc
// @Summary Create a new group
// @Tags Groups
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Param request body GroupCreateRequest true "Group create request"
// @Success 201 {object} GroupPayload
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /api/v1/groups [post]
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	actorID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	var req GroupCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid group payload"))
		return
	}

	group, err := h.groups.CreateGroup(c.Request.Context(), actorID, usecase.CreateGroupInput{
		Name:        req.Name,
		Description: req.Description,
	}, requestMeta(c))
	if err != nil {
		RespondWithMappedError(c, err, groupErrorCases, http.StatusInternalServerError, "failed to create group")
		return
	}

	c.JSON(http.StatusCreated, newGroupPayload(*group))
}

// UpdateGroup godoc
// @Summary Update group metadata
// @Tags Groups
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Param id path string true "Group ID"
// @Param request body GroupUpdateRequest true "Group update request"
// @Success 200 {object} GroupPayload
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/groups/{id} [patch]
func (h *GroupHandler) UpdateGroup(c *gin.Context) {
	actorID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	groupID := strings.TrimSpace(c.Param("id"))
	if groupID == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "missing group id"))
		return
	}

	var req GroupUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid group payload"))
		return
	}

	group, err := h.groups.UpdateGroup(c.Request.Context(), actorID, usecase.UpdateGroupInput{
		GroupID:     groupID,
		Name:        req.Name,
		Description: req.Description,
	}, requestMeta(c))
	if err != nil {
		RespondWithMappedError(c, err, groupErrorCases, http.StatusInternalServerError, "failed to update group")
		return
	}

	c.JSON(http.StatusOK, newGroupPayload(*group))
}

// ChangeMemberRole godoc
// @Summary Change a member's role
// @Tags Groups
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Param id path string true "Group ID"
// @Param userId path string true "Target user ID"
// @Param request body MemberRoleRequest true "New role"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /api/v1/groups/{id}/members/{userId}/role [put]
func (h *GroupHandler) ChangeMemberRole(c *gin.Context) {
	actorID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	groupID := strings.TrimSpace(c.Param("id"))
	targetID := strings.TrimSpace(c.Param("userId"))
	if groupID == "" || targetID == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "missing group or user id"))
		return
	}

	var req MemberRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid role payload"))
		return
	}

	err := h.groups.ChangeMemberRole(c.Request.Context(), actorID, groupID, targetID,
		domain.GroupRole(strings.TrimSpace(req.Role)), requestMeta(c))
	if err != nil {
		RespondWithMappedError(c, err, groupErrorCases, http.StatusInternalServerError, "failed to change role")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "role updated"})
}

// RemoveMember godoc
// @Summary Remove a member from the group
// @Tags Groups
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Param id path string true "Group ID"
// @Param userId path string true "Target user ID"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /api/v1/groups/{id}/members/{userId} [delete]
func (h *GroupHandler) RemoveMember(c *gin.Context) {
	actorID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	groupID := strings.TrimSpace(c.Param("id"))
	targetID := strings.TrimSpace(c.Param("userId"))
	if groupID == "" || targetID == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "missing group or user id"))
		return
	}

	// Body is optional; a removal reason may ride along.
	var req MemberRemoveRequest
	_ = c.ShouldBindJSON(&req)

	err := h.groups.RemoveMember(c.Request.Context(), actorID, groupID, targetID, req.Reason, requestMeta(c))
	if err != nil {
		RespondWithMappedError(c, err, groupErrorCases, http.StatusInternalServerError, "failed to remove member")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "member removed"})
}

// GenerateInvite godoc
// @Summary Generate an invite code
// @Tags Groups
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Param id path string true "Group ID"
// @Param request body InviteCreateRequest true "Invite constraints"
// @Success 201 {object} InvitePayload
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /api/v1/groups/{id}/invites [post]
func (h *GroupHandler) GenerateInvite(c *gin.Context) {
	actorID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	groupID := strings.TrimSpace(c.Param("id"))
	if groupID == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "missing group id"))
		return
	}

	var req InviteCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid invite payload"))
		return
	}

	invite, err := h.groups.GenerateInviteCode(c.Request.Context(), actorID, usecase.GenerateInviteInput{
		GroupID:   groupID,
		MaxUses:   req.MaxUses,
		ExpiresAt: req.ExpiresAt,
	}, requestMeta(c))
	if err != nil {
		RespondWithMappedError(c, err, groupErrorCases, http.StatusInternalServerError, "failed to generate invite")
		return
	}

	c.JSON(http.StatusCreated, InvitePayload{
		ID:        invite.ID,
		GroupID:   invite.GroupID,
		Code:      invite.Code,
		MaxUses:   invite.MaxUses,
		ExpiresAt: invite.ExpiresAt,
		CreatedAt: invite.CreatedAt,
	})
}

// TransferOwnership godoc
// @Summary Transfer group ownership
// @Tags Groups
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Param id path string true "Group ID"
// @Param request body OwnershipTransferRequest true "Transfer request"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /api/v1/groups/{id}/transfer-ownership [post]
func (h *GroupHandler) TransferOwnership(c *gin.Context) {
	actorID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	groupID := strings.TrimSpace(c.Param("id"))
	if groupID == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "missing group id"))
		return
	}

	var req OwnershipTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid transfer payload"))
		return
	}

	err := h.groups.TransferOwnership(c.Request.Context(), actorID, groupID,
		strings.TrimSpace(req.NewOwnerID), domain.GroupRole(strings.TrimSpace(req.DemoteTo)), requestMeta(c))
	if err != nil {
		RespondWithMappedError(c, err, groupErrorCases, http.StatusInternalServerError, "failed to transfer ownership")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "ownership transferred"})
}
