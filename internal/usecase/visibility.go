package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dinecircle/authz-service/internal/core/domain"
	"github.com/dinecircle/authz-service/internal/core/port"
)

const (
	defaultReviewPageLimit = 20
	maxReviewPageLimit     = 100
)

// ReviewPageInput selects one page of visible reviews. When Cursor is set,
// pagination is keyset and Page is ignored; otherwise offset pagination
// applies with Page starting at 1.
type ReviewPageInput struct {
	Page   int
	Limit  int
	Cursor *domain.ReviewCursor
}

// ReviewPage is one page of visible reviews. Total and TotalPages are only
// populated in offset mode; in cursor mode HasMore is the len(rows) == limit
// heuristic and NextCursor points past the last row returned.
type ReviewPage struct {
	Reviews    []domain.Review
	Page       int
	Limit      int
	Total      int
	TotalPages int
	HasMore    bool
	NextCursor *domain.ReviewCursor
}

// VisibilityService decides which of another user's reviews a viewer may
// see. Two independent relations drive it and are never merged: group
// co-membership gates the per-author listing, the follow graph gates the
// home feed.
type VisibilityService struct {
	reviews port.ReviewRepository
	groups  port.GroupRepository
	follows port.FollowRepository
	logger  *zap.Logger
}

// NewVisibilityService constructs a VisibilityService.
func NewVisibilityService(reviews port.ReviewRepository, groups port.GroupRepository, follows port.FollowRepository, logger *zap.Logger) *VisibilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VisibilityService{reviews: reviews, groups: groups, follows: follows, logger: logger}
}

func normalizeReviewPage(input ReviewPageInput) ReviewPageInput {
	if input.Limit <= 0 {
		input.Limit = defaultReviewPageLimit
	}
	if input.Limit > maxReviewPageLimit {
		input.Limit = maxReviewPageLimit
	}
	if input.Page <= 0 {
		input.Page = 1
	}
	return input
}

func emptyReviewPage(input ReviewPageInput) ReviewPage {
	return ReviewPage{
		Reviews: []domain.Review{},
		Page:    input.Page,
		Limit:   input.Limit,
	}
}

// ListUserReviews returns the page of the author's reviews the viewer may
// see. Owners see everything. Otherwise one shared group grants full
// visibility into the author's reviews — all of them, not just those posted
// under the shared group; this all-or-nothing grant is the intended product
// semantic, not group-scoped filtering. No shared group means no visibility,
// and the count query is skipped since the result is provably empty.
func (s *VisibilityService) ListUserReviews(ctx context.Context, viewerID, authorID string, input ReviewPageInput) (ReviewPage, error) {
	input = normalizeReviewPage(input)

	if viewerID != authorID {
		shared, err := s.groups.SharesGroup(ctx, viewerID, authorID)
		if err != nil {
			return emptyReviewPage(input), fmt.Errorf("check shared groups: %w", err)
		}
		if !shared {
			return emptyReviewPage(input), nil
		}
	}

	if input.Cursor != nil {
		return s.cursorPage(ctx, input, func(window port.ReviewWindow) ([]domain.Review, error) {
			return s.reviews.ListByAuthor(ctx, authorID, window)
		})
	}

	return s.offsetPage(ctx, input,
		func(window port.ReviewWindow) ([]domain.Review, error) {
			return s.reviews.ListByAuthor(ctx, authorID, window)
		},
		func() (int, error) {
			return s.reviews.CountByAuthor(ctx, authorID)
		},
	)
}

// ListFeed returns the viewer's home timeline: reviews by users the viewer
// follows, newest first. The follow relation alone drives inclusion here.
func (s *VisibilityService) ListFeed(ctx context.Context, viewerID string, input ReviewPageInput) (ReviewPage, error) {
	input = normalizeReviewPage(input)

	followees, err := s.follows.FolloweeIDs(ctx, viewerID)
	if err != nil {
		return emptyReviewPage(input), fmt.Errorf("list followees: %w", err)
	}
	if len(followees) == 0 {
		return emptyReviewPage(input), nil
	}

	if input.Cursor != nil {
		return s.cursorPage(ctx, input, func(window port.ReviewWindow) ([]domain.Review, error) {
			return s.reviews.ListByAuthors(ctx, followees, window)
		})
	}

	return s.offsetPage(ctx, input,
		func(window port.ReviewWindow) ([]domain.Review, error) {
			return s.reviews.ListByAuthors(ctx, followees, window)
		},
		func() (int, error) {
			return s.reviews.CountByAuthors(ctx, followees)
		},
	)
}

func (s *VisibilityService) cursorPage(_ context.Context, input ReviewPageInput, list func(port.ReviewWindow) ([]domain.Review, error)) (ReviewPage, error) {
	rows, err := list(port.ReviewWindow{Limit: input.Limit, Cursor: input.Cursor})
	if err != nil {
		return emptyReviewPage(input), fmt.Errorf("list reviews after cursor: %w", err)
	}

	page := ReviewPage{
		Reviews: rows,
		Page:    input.Page,
		Limit:   input.Limit,
		HasMore: len(rows) == input.Limit,
	}
	if page.Reviews == nil {
		page.Reviews = []domain.Review{}
	}
	if last := lastReview(rows); last != nil {
		page.NextCursor = &domain.ReviewCursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return page, nil
}

func (s *VisibilityService) offsetPage(_ context.Context, input ReviewPageInput, list func(port.ReviewWindow) ([]domain.Review, error), count func() (int, error)) (ReviewPage, error) {
	offset := (input.Page - 1) * input.Limit

	rows, err := list(port.ReviewWindow{Limit: input.Limit, Offset: offset})
	if err != nil {
		return emptyReviewPage(input), fmt.Errorf("list reviews: %w", err)
	}

	total, err := count()
	if err != nil {
		return emptyReviewPage(input), fmt.Errorf("count reviews: %w", err)
	}

	page := ReviewPage{
		Reviews:    rows,
		Page:       input.Page,
		Limit:      input.Limit,
		Total:      total,
		TotalPages: (total + input.Limit - 1) / input.Limit,
		HasMore:    input.Page*input.Limit < total,
	}
	if page.Reviews == nil {
		page.Reviews = []domain.Review{}
	}
	if last := lastReview(rows); last != nil {
		page.NextCursor = &domain.ReviewCursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return page, nil
}

func lastReview(rows []domain.Review) *domain.Review {
	if len(rows) == 0 {
		return nil
	}
	return &rows[len(rows)-1]
}
