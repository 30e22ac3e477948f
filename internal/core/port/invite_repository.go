package port

import (
	"context"

	"github.com/dinecircle/authz-service/internal/core/domain"
)

// InviteRepository persists invite codes. Consumption counters and redemption
// are owned by the signup flow.
type InviteRepository interface {
	Create(ctx context.Context, invite domain.InviteCode) error
}
