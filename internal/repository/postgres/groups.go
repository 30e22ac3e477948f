package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/dinecircle/authz-service/internal/core/domain"
	"github.com/dinecircle/authz-service/internal/core/port"
	"github.com/dinecircle/authz-service/internal/repository"
)

const (
	groupsTable  = "dinecircle.groups"
	membersTable = "dinecircle.group_members"
)

// GroupRepository implements port.GroupRepository over PostgreSQL.
type GroupRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewGroupRepository constructs a group repository instance.
func NewGroupRepository(exec pgExecutor) *GroupRepository {
	return &GroupRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts the group and its owner membership together.
func (r *GroupRepository) Create(ctx context.Context, group domain.Group) error {
	stmt, args, err := r.builder.Insert(groupsTable).
		Columns("id", "name", "description", "owner_id", "created_at", "updated_at").
		Values(group.ID, group.Name, group.Description, group.OwnerID, group.CreatedAt, group.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert group sql: %w", err)
	}

	memberStmt, memberArgs, err := r.builder.Insert(membersTable).
		Columns("group_id", "user_id", "role", "joined_at").
		Values(group.ID, group.OwnerID, string(domain.GroupRoleOwner), group.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert owner membership sql: %w", err)
	}

	return r.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, stmt, args...); err != nil {
			return fmt.Errorf("insert group: %w", err)
		}
		if _, err := tx.Exec(ctx, memberStmt, memberArgs...); err != nil {
			return fmt.Errorf("insert owner membership: %w", err)
		}
		return nil
	})
}

// Update writes group metadata.
func (r *GroupRepository) Update(ctx context.Context, group domain.Group) error {
	stmt, args, err := r.builder.Update(groupsTable).
		Set("name", group.Name).
		Set("description", group.Description).
		Set("updated_at", group.UpdatedAt).
		Where(squirrel.Eq{"id": group.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update group sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update group: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// GetByID retrieves a group.
func (r *GroupRepository) GetByID(ctx context.Context, groupID string) (*domain.Group, error) {
	stmt, args, err := r.builder.Select("id", "name", "description", "owner_id", "created_at", "updated_at").
		From(groupsTable).
		Where(squirrel.Eq{"id": groupID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select group sql: %w", err)
	}

	var (
		group       domain.Group
		description sql.NullString
	)
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(
		&group.ID, &group.Name, &description, &group.OwnerID, &group.CreatedAt, &group.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan group: %w", err)
	}

	if description.Valid {
		group.Description = &description.String
	}
	return &group, nil
}

// GroupIDs returns every group the user belongs to.
func (r *GroupRepository) GroupIDs(ctx context.Context, userID string) ([]string, error) {
	stmt, args, err := r.builder.Select("group_id").
		From(membersTable).
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build group ids sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query group ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan group id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate group ids: %w", err)
	}

	return ids, nil
}

// SharesGroup reports whether two users have at least one group in common,
// computed store-side as a single EXISTS over the membership self-join.
func (r *GroupRepository) SharesGroup(ctx context.Context, userA, userB string) (bool, error) {
	const stmt = `SELECT EXISTS (
		SELECT 1 FROM dinecircle.group_members a
		JOIN dinecircle.group_members b ON b.group_id = a.group_id
		WHERE a.user_id = $1 AND b.user_id = $2
	)`

	var shared bool
	if err := r.exec.QueryRow(ctx, stmt, userA, userB).Scan(&shared); err != nil {
		return false, fmt.Errorf("check shared group: %w", err)
	}

	return shared, nil
}

// MemberRole returns GroupRoleNone when no membership row exists.
func (r *GroupRepository) MemberRole(ctx context.Context, groupID, userID string) (domain.GroupRole, error) {
	stmt, args, err := r.builder.Select("role").
		From(membersTable).
		Where(squirrel.Eq{"group_id": groupID, "user_id": userID}).
		Limit(1).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build member role sql: %w", err)
	}

	var role string
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&role); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.GroupRoleNone, nil
		}
		return "", fmt.Errorf("scan member role: %w", err)
	}

	return domain.GroupRole(role), nil
}

// SetMemberRole writes a member's role.
func (r *GroupRepository) SetMemberRole(ctx context.Context, groupID, userID string, role domain.GroupRole) error {
	stmt, args, err := r.builder.Update(membersTable).
		Set("role", string(role)).
		Where(squirrel.Eq{"group_id": groupID, "user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set role sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("set member role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// RemoveMember deletes a membership row.
func (r *GroupRepository) RemoveMember(ctx context.Context, groupID, userID string) error {
	stmt, args, err := r.builder.Delete(membersTable).
		Where(squirrel.Eq{"group_id": groupID, "user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build remove member sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// TransferOwnership demotes the current owner and promotes the new one
// inside a single transaction. Both updates must hit exactly one row each;
// anything else rolls back so the single-owner invariant holds.
func (r *GroupRepository) TransferOwnership(ctx context.Context, groupID, fromUserID, toUserID string, demoteTo domain.GroupRole) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			"UPDATE dinecircle.group_members SET role = $1 WHERE group_id = $2 AND user_id = $3 AND role = 'owner'",
			string(demoteTo), groupID, fromUserID,
		)
		if err != nil {
			return fmt.Errorf("demote owner: %w", err)
		}
		if tag.RowsAffected() != 1 {
			return repository.ErrConflict
		}

		tag, err = tx.Exec(ctx,
			"UPDATE dinecircle.group_members SET role = 'owner' WHERE group_id = $1 AND user_id = $2",
			groupID, toUserID,
		)
		if err != nil {
			return fmt.Errorf("promote new owner: %w", err)
		}
		if tag.RowsAffected() != 1 {
			return repository.ErrNotFound
		}

		tag, err = tx.Exec(ctx,
			"UPDATE dinecircle.groups SET owner_id = $1, updated_at = now() WHERE id = $2",
			toUserID, groupID,
		)
		if err != nil {
			return fmt.Errorf("update group owner: %w", err)
		}
		if tag.RowsAffected() != 1 {
			return repository.ErrNotFound
		}

		return nil
	})
}

func (r *GroupRepository) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	beginner, ok := r.exec.(pgBeginner)
	if !ok {
		return fmt.Errorf("executor does not support transactions")
	}

	tx, err := beginner.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

var _ port.GroupRepository = (*GroupRepository)(nil)
