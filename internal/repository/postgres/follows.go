package postgres

import (
	"context"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"

	"github.com/dinecircle/authz-service/internal/core/port"
)

const followsTable = "dinecircle.follows"

// FollowRepository implements port.FollowRepository over PostgreSQL.
type FollowRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewFollowRepository constructs a follow repository instance.
func NewFollowRepository(exec pgExecutor) *FollowRepository {
	return &FollowRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// FolloweeIDs returns every user the follower follows.
func (r *FollowRepository) FolloweeIDs(ctx context.Context, followerID string) ([]string, error) {
	stmt, args, err := r.builder.Select("followee_id").
		From(followsTable).
		Where(squirrel.Eq{"follower_id": followerID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build followees sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query followees: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan followee: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate followees: %w", err)
	}

	return ids, nil
}

var _ port.FollowRepository = (*FollowRepository)(nil)
