package port

import (
	"context"

	"github.com/dinecircle/authz-service/internal/core/domain"
)

// EventPublisher mirrors audit entries onto the event bus. Publishing is
// best-effort; failures must never surface to the operation being audited.
type EventPublisher interface {
	PublishAuditLogged(ctx context.Context, event domain.AuditLoggedEvent) error
}
