package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dinecircle/authz-service/internal/core/domain"
	"github.com/dinecircle/authz-service/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for development environments.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

// PublishAuditLogged logs audit.logged events.
func (p *StubPublisher) PublishAuditLogged(_ context.Context, event domain.AuditLoggedEvent) error {
	at := event.OccurredAt
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", auditLoggedEventType),
		zap.String("audit_id", event.AuditID),
		zap.String("actor_id", event.ActorID),
		zap.String("action", string(event.Action)),
		zap.String("target_type", string(event.TargetType)),
		zap.String("target_id", event.TargetID),
		zap.Time("timestamp", at.UTC()),
	)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
