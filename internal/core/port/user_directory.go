package port

import (
	"context"

	"github.com/dinecircle/authz-service/internal/core/domain"
)

// UserDirectory resolves display info for audit entry enhancement. Always
// batch: one call per page of entries, keyed by the distinct ID set.
type UserDirectory interface {
	DisplayByIDs(ctx context.Context, userIDs []string) (map[string]domain.UserDisplay, error)
}
