package postgres

import (
	"context"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"

	"github.com/dinecircle/authz-service/internal/core/domain"
	"github.com/dinecircle/authz-service/internal/core/port"
)

const invitesTable = "dinecircle.invite_codes"

// InviteRepository implements port.InviteRepository over PostgreSQL.
type InviteRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewInviteRepository constructs an invite repository instance.
func NewInviteRepository(exec pgExecutor) *InviteRepository {
	return &InviteRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new invite code with zero uses.
func (r *InviteRepository) Create(ctx context.Context, invite domain.InviteCode) error {
	stmt, args, err := r.builder.Insert(invitesTable).
		Columns("id", "group_id", "code", "created_by", "max_uses", "uses", "expires_at", "created_at").
		Values(invite.ID, invite.GroupID, invite.Code, invite.CreatedBy, invite.MaxUses, 0, invite.ExpiresAt, invite.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert invite sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert invite: %w", err)
	}

	return nil
}

var _ port.InviteRepository = (*InviteRepository)(nil)
