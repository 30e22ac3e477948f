package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"

	"github.com/dinecircle/authz-service/internal/core/domain"
	"github.com/dinecircle/authz-service/internal/core/port"
)

const auditTable = "dinecircle.audit_log"

var auditColumns = []string{
	"id", "actor_id", "action", "target_type", "target_id", "group_id",
	"metadata", "reason", "ip_address", "user_agent", "created_at",
}

// AuditRepository implements port.AuditRepository over PostgreSQL. The table
// is append-only: no update or delete statements exist here.
type AuditRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAuditRepository constructs an audit repository instance.
func NewAuditRepository(exec pgExecutor) *AuditRepository {
	return &AuditRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Insert appends one entry.
func (r *AuditRepository) Insert(ctx context.Context, entry domain.AuditLogEntry) error {
	metadata, err := marshalMetadata(entry.Metadata)
	if err != nil {
		return fmt.Errorf("marshal audit metadata: %w", err)
	}

	stmt, args, err := r.builder.Insert(auditTable).
		Columns(auditColumns...).
		Values(
			entry.ID,
			entry.ActorID,
			string(entry.Action),
			string(entry.TargetType),
			entry.TargetID,
			entry.GroupID,
			metadata,
			entry.Reason,
			entry.IPAddress,
			entry.UserAgent,
			entry.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert audit sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}

	return nil
}

func (r *AuditRepository) filtered(base squirrel.SelectBuilder, filter port.AuditFilter) squirrel.SelectBuilder {
	if filter.Action != nil {
		base = base.Where(squirrel.Eq{"action": string(*filter.Action)})
	}
	if filter.ActorID != nil {
		base = base.Where(squirrel.Eq{"actor_id": *filter.ActorID})
	}
	if filter.GroupID != nil {
		base = base.Where(squirrel.Eq{"group_id": *filter.GroupID})
	}
	if filter.TargetType != nil {
		base = base.Where(squirrel.Eq{"target_type": string(*filter.TargetType)})
	}
	if filter.FromDate != nil {
		base = base.Where(squirrel.GtOrEq{"created_at": *filter.FromDate})
	}
	if filter.ToDate != nil {
		base = base.Where(squirrel.LtOrEq{"created_at": *filter.ToDate})
	}
	return base
}

// List returns one page ordered by created_at descending.
func (r *AuditRepository) List(ctx context.Context, filter port.AuditFilter) ([]domain.AuditLogEntry, error) {
	query := r.filtered(r.builder.Select(auditColumns...).From(auditTable), filter).
		OrderBy("created_at DESC")

	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		query = query.Offset(uint64(filter.Offset))
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list audit sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.AuditLogEntry
	for rows.Next() {
		var (
			entry      domain.AuditLogEntry
			action     string
			targetType string
			groupID    sql.NullString
			metadata   []byte
			reason     sql.NullString
			ipAddress  sql.NullString
			userAgent  sql.NullString
			createdAt  time.Time
		)

		if err := rows.Scan(
			&entry.ID, &entry.ActorID, &action, &targetType, &entry.TargetID,
			&groupID, &metadata, &reason, &ipAddress, &userAgent, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}

		entry.Action = domain.AuditAction(action)
		entry.TargetType = domain.AuditTargetType(targetType)
		entry.CreatedAt = createdAt
		if groupID.Valid {
			entry.GroupID = &groupID.String
		}
		if reason.Valid {
			entry.Reason = &reason.String
		}
		if ipAddress.Valid {
			entry.IPAddress = &ipAddress.String
		}
		if userAgent.Valid {
			entry.UserAgent = &userAgent.String
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &entry.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal audit metadata: %w", err)
			}
		}

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}

	return entries, nil
}

// Count returns total matching rows, independent of the page window.
func (r *AuditRepository) Count(ctx context.Context, filter port.AuditFilter) (int, error) {
	stmt, args, err := r.filtered(r.builder.Select("COUNT(*)").From(auditTable), filter).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count audit sql: %w", err)
	}

	var count int
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count audit entries: %w", err)
	}

	return count, nil
}

// CountByAction tallies matching rows per action over the whole window.
func (r *AuditRepository) CountByAction(ctx context.Context, filter port.AuditFilter) (map[domain.AuditAction]int, error) {
	stmt, args, err := r.filtered(r.builder.Select("action", "COUNT(*)").From(auditTable), filter).
		GroupBy("action").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build tally audit sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("tally audit entries: %w", err)
	}
	defer rows.Close()

	tally := make(map[domain.AuditAction]int)
	for rows.Next() {
		var action string
		var count int
		if err := rows.Scan(&action, &count); err != nil {
			return nil, fmt.Errorf("scan audit tally: %w", err)
		}
		tally[domain.AuditAction(action)] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit tally: %w", err)
	}

	return tally, nil
}

func marshalMetadata(metadata map[string]any) ([]byte, error) {
	if metadata == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(metadata)
}

var _ port.AuditRepository = (*AuditRepository)(nil)
