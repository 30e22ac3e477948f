package port

import (
	"context"

	"github.com/dinecircle/authz-service/internal/core/domain"
)

// ReviewWindow selects one page of reviews, newest first. When Cursor is set
// the query is keyset (created_at < cursor, same order); otherwise Offset
// applies.
type ReviewWindow struct {
	Limit  int
	Offset int
	Cursor *domain.ReviewCursor
}

// ReviewRepository reads reviews for the visibility layer.
type ReviewRepository interface {
	ListByAuthor(ctx context.Context, authorID string, window ReviewWindow) ([]domain.Review, error)
	CountByAuthor(ctx context.Context, authorID string) (int, error)

	ListByAuthors(ctx context.Context, authorIDs []string, window ReviewWindow) ([]domain.Review, error)
	CountByAuthors(ctx context.Context, authorIDs []string) (int, error)
}
