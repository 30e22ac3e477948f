package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dinecircle/authz-service/internal/transport/http/middleware"
	"github.com/dinecircle/authz-service/internal/usecase"
)

// FeedHandler serves the follow-driven home timeline.
type FeedHandler struct {
	visibility *usecase.VisibilityService
}

// NewFeedHandler builds a feed handler instance.
func NewFeedHandler(visibility *usecase.VisibilityService) *FeedHandler {
	return &FeedHandler{visibility: visibility}
}

// ListFeed godoc
// @Summary List the caller's home feed
// @Description Returns reviews by users the caller follows, newest first.
// @Tags Reviews
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Param page query int false "Page number (offset mode)"
// @Param limit query int false "Page size (default 20, max 100)"
// @Param cursor_created_at query string false "Keyset cursor timestamp (RFC3339Nano)"
// @Param cursor_id query string false "Keyset cursor row ID"
// @Success 200 {object} ReviewPageResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/feed [get]
func (h *FeedHandler) ListFeed(c *gin.Context) {
	viewerID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	page, err := h.visibility.ListFeed(c.Request.Context(), viewerID, parseReviewPage(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list feed"))
		return
	}

	c.JSON(http.StatusOK, newReviewPageResponse(page))
}
