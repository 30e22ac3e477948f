package port

import (
	"context"
	"time"

	"github.com/dinecircle/authz-service/internal/core/domain"
)

// AuditFilter narrows audit log reads. Limit/Offset only affect List; Count
// and CountByAction always cover the whole filtered window.
type AuditFilter struct {
	Action     *domain.AuditAction
	ActorID    *string
	GroupID    *string
	TargetType *domain.AuditTargetType
	FromDate   *time.Time
	ToDate     *time.Time
	Limit      int
	Offset     int
}

// AuditRepository persists the append-only audit log.
type AuditRepository interface {
	Insert(ctx context.Context, entry domain.AuditLogEntry) error

	// List returns one page ordered by created_at descending.
	List(ctx context.Context, filter AuditFilter) ([]domain.AuditLogEntry, error)

	// Count returns the total matching rows independent of the page window.
	Count(ctx context.Context, filter AuditFilter) (int, error)

	// CountByAction tallies matching rows per action over the whole window.
	CountByAction(ctx context.Context, filter AuditFilter) (map[domain.AuditAction]int, error)
}
