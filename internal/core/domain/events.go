package domain

import "time"

// AuditLoggedEvent mirrors a persisted audit entry onto the event bus so
// downstream consumers (compliance export, alerting) see sensitive actions
// without polling the log table.
type AuditLoggedEvent struct {
	EventID    string
	AuditID    string
	ActorID    string
	Action     AuditAction
	TargetType AuditTargetType
	TargetID   string
	GroupID    *string
	Metadata   map[string]any
	OccurredAt time.Time
}
