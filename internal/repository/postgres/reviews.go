package postgres

import (
	"context"
	"database/sql"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"

	"github.com/dinecircle/authz-service/internal/core/domain"
	"github.com/dinecircle/authz-service/internal/core/port"
)

const reviewsTable = "dinecircle.reviews r"

var reviewColumns = []string{
	"r.id", "r.author_id", "r.restaurant_id", "rest.name", "r.rating", "r.body", "r.group_id", "r.created_at",
}

// ReviewRepository implements port.ReviewRepository over PostgreSQL.
// Read-only: review writes are owned by the main application.
type ReviewRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewReviewRepository constructs a review repository instance.
func NewReviewRepository(exec pgExecutor) *ReviewRepository {
	return &ReviewRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *ReviewRepository) base() squirrel.SelectBuilder {
	return r.builder.Select(reviewColumns...).
		From(reviewsTable).
		Join("dinecircle.restaurants rest ON rest.id = r.restaurant_id")
}

// windowed applies ordering and the keyset/offset window. Keyset uses a row
// comparison on (created_at, id) so same-timestamp rows never repeat or skip
// across pages.
func windowed(query squirrel.SelectBuilder, window port.ReviewWindow) squirrel.SelectBuilder {
	query = query.OrderBy("r.created_at DESC", "r.id DESC")

	if window.Cursor != nil {
		query = query.Where(
			squirrel.Expr("(r.created_at, r.id) < (?, ?)", window.Cursor.CreatedAt, window.Cursor.ID),
		)
	} else if window.Offset > 0 {
		query = query.Offset(uint64(window.Offset))
	}

	if window.Limit > 0 {
		query = query.Limit(uint64(window.Limit))
	}

	return query
}

// ListByAuthor returns one window of the author's reviews, newest first.
func (r *ReviewRepository) ListByAuthor(ctx context.Context, authorID string, window port.ReviewWindow) ([]domain.Review, error) {
	query := windowed(r.base().Where(squirrel.Eq{"r.author_id": authorID}), window)
	return r.list(ctx, query)
}

// CountByAuthor returns the author's total review count.
func (r *ReviewRepository) CountByAuthor(ctx context.Context, authorID string) (int, error) {
	stmt, args, err := r.builder.Select("COUNT(*)").
		From(reviewsTable).
		Where(squirrel.Eq{"r.author_id": authorID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count reviews sql: %w", err)
	}

	var count int
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count reviews: %w", err)
	}
	return count, nil
}

// ListByAuthors returns one window of reviews by any of the authors.
func (r *ReviewRepository) ListByAuthors(ctx context.Context, authorIDs []string, window port.ReviewWindow) ([]domain.Review, error) {
	if len(authorIDs) == 0 {
		return nil, nil
	}
	query := windowed(r.base().Where(squirrel.Eq{"r.author_id": authorIDs}), window)
	return r.list(ctx, query)
}

// CountByAuthors returns the total review count across the authors.
func (r *ReviewRepository) CountByAuthors(ctx context.Context, authorIDs []string) (int, error) {
	if len(authorIDs) == 0 {
		return 0, nil
	}

	stmt, args, err := r.builder.Select("COUNT(*)").
		From(reviewsTable).
		Where(squirrel.Eq{"r.author_id": authorIDs}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count feed sql: %w", err)
	}

	var count int
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count feed reviews: %w", err)
	}
	return count, nil
}

func (r *ReviewRepository) list(ctx context.Context, query squirrel.SelectBuilder) ([]domain.Review, error) {
	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list reviews sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}
	defer rows.Close()

	var reviews []domain.Review
	for rows.Next() {
		var (
			review  domain.Review
			groupID sql.NullString
		)
		if err := rows.Scan(
			&review.ID, &review.AuthorID, &review.RestaurantID, &review.RestaurantName,
			&review.Rating, &review.Body, &groupID, &review.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		if groupID.Valid {
			review.GroupID = &groupID.String
		}
		reviews = append(reviews, review)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reviews: %w", err)
	}

	return reviews, nil
}

var _ port.ReviewRepository = (*ReviewRepository)(nil)
