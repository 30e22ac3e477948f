package postgres

import (
	"context"
	"database/sql"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"

	"github.com/dinecircle/authz-service/internal/core/domain"
	"github.com/dinecircle/authz-service/internal/core/port"
)

const usersTable = "dinecircle.users"

// UserDirectory implements port.UserDirectory over PostgreSQL.
type UserDirectory struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewUserDirectory constructs a user directory instance.
func NewUserDirectory(exec pgExecutor) *UserDirectory {
	return &UserDirectory{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// DisplayByIDs resolves display info for the given IDs in one query.
func (r *UserDirectory) DisplayByIDs(ctx context.Context, userIDs []string) (map[string]domain.UserDisplay, error) {
	displays := make(map[string]domain.UserDisplay, len(userIDs))
	if len(userIDs) == 0 {
		return displays, nil
	}

	stmt, args, err := r.builder.Select("id", "name", "full_name", "email").
		From(usersTable).
		Where(squirrel.Eq{"id": userIDs}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build user display sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query user display: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			display  domain.UserDisplay
			fullName sql.NullString
		)
		if err := rows.Scan(&display.ID, &display.Name, &fullName, &display.Email); err != nil {
			return nil, fmt.Errorf("scan user display: %w", err)
		}
		if fullName.Valid {
			display.FullName = &fullName.String
		}
		displays[display.ID] = display
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user display: %w", err)
	}

	return displays, nil
}

var _ port.UserDirectory = (*UserDirectory)(nil)
