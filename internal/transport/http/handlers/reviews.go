package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dinecircle/authz-service/internal/core/domain"
	"github.com/dinecircle/authz-service/internal/transport/http/middleware"
	"github.com/dinecircle/authz-service/internal/usecase"
)

// ReviewHandler serves visibility-resolved review listings.
type ReviewHandler struct {
	visibility *usecase.VisibilityService
}

// NewReviewHandler builds a review handler instance.
func NewReviewHandler(visibility *usecase.VisibilityService) *ReviewHandler {
	return &ReviewHandler{visibility: visibility}
}

// parseReviewPage reads pagination from the query string. A cursor, when
// present, takes precedence over the page number.
func parseReviewPage(c *gin.Context) usecase.ReviewPageInput {
	input := usecase.ReviewPageInput{}

	if raw := c.Query("page"); raw != "" {
		if page, err := strconv.Atoi(raw); err == nil {
			input.Page = page
		}
	}
	if raw := c.Query("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil {
			input.Limit = limit
		}
	}

	createdAt := strings.TrimSpace(c.Query("cursor_created_at"))
	id := strings.TrimSpace(c.Query("cursor_id"))
	if createdAt != "" && id != "" {
		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			input.Cursor = &domain.ReviewCursor{CreatedAt: ts, ID: id}
		}
	}

	return input
}

// ListUserReviews godoc
// @Summary List a user's visible reviews
// @Description Returns the page of the author's reviews the caller may see under group visibility rules.
// @Tags Reviews
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Param id path string true "Author user ID"
// @Param page query int false "Page number (offset mode)"
// @Param limit query int false "Page size (default 20, max 100)"
// @Param cursor_created_at query string false "Keyset cursor timestamp (RFC3339Nano)"
// @Param cursor_id query string false "Keyset cursor row ID"
// @Success 200 {object} ReviewPageResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/users/{id}/reviews [get]
func (h *ReviewHandler) ListUserReviews(c *gin.Context) {
	viewerID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	authorID := strings.TrimSpace(c.Param("id"))
	if authorID == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "missing user id"))
		return
	}

	page, err := h.visibility.ListUserReviews(c.Request.Context(), viewerID, authorID, parseReviewPage(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list reviews"))
		return
	}

	c.JSON(http.StatusOK, newReviewPageResponse(page))
}
