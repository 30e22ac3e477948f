package postgres

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/dinecircle/authz-service/internal/core/domain"
	"github.com/dinecircle/authz-service/internal/core/port"
)

func TestAuditRepository_Insert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewAuditRepository(mock)

	createdAt := time.Now().UTC()
	groupID := "group-1"
	entry := domain.AuditLogEntry{
		ID:         "audit-1",
		ActorID:    "user-1",
		Action:     domain.AuditActionGroupCreated,
		TargetType: domain.AuditTargetGroup,
		TargetID:   groupID,
		GroupID:    &groupID,
		Metadata:   map[string]any{"group_name": "Brunch Club"},
		CreatedAt:  createdAt,
	}

	mock.ExpectExec(`INSERT INTO dinecircle\.audit_log`).
		WithArgs(
			entry.ID,
			entry.ActorID,
			"group_created",
			"group",
			entry.TargetID,
			&groupID,
			[]byte(`{"group_name":"Brunch Club"}`),
			(*string)(nil),
			(*string)(nil),
			(*string)(nil),
			entry.CreatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Insert(context.Background(), entry); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAuditRepository_InsertNilMetadata(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewAuditRepository(mock)

	entry := domain.AuditLogEntry{
		ID:         "audit-1",
		ActorID:    "user-1",
		Action:     domain.AuditActionGroupUpdated,
		TargetType: domain.AuditTargetGroup,
		TargetID:   "group-1",
		CreatedAt:  time.Now().UTC(),
	}

	mock.ExpectExec(`INSERT INTO dinecircle\.audit_log`).
		WithArgs(
			entry.ID,
			entry.ActorID,
			"group_updated",
			"group",
			entry.TargetID,
			(*string)(nil),
			[]byte(`{}`),
			(*string)(nil),
			(*string)(nil),
			(*string)(nil),
			entry.CreatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Insert(context.Background(), entry); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAuditRepository_ListAppliesFilterAndWindow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewAuditRepository(mock)

	createdAt := time.Now().UTC()
	action := domain.AuditActionRoleChanged
	actorID := "user-1"
	groupID := "group-1"

	rows := pgxmock.NewRows([]string{
		"id", "actor_id", "action", "target_type", "target_id", "group_id",
		"metadata", "reason", "ip_address", "user_agent", "created_at",
	}).AddRow(
		"audit-1", actorID, "role_changed", "user", "user-2", groupID,
		[]byte(`{"old_role":"member","new_role":"admin"}`), nil, nil, nil, createdAt,
	)

	mock.ExpectQuery(`SELECT .+ FROM dinecircle\.audit_log WHERE action = \$1 AND actor_id = \$2 ORDER BY created_at DESC LIMIT 25 OFFSET 50`).
		WithArgs("role_changed", actorID).
		WillReturnRows(rows)

	entries, err := repo.List(context.Background(), port.AuditFilter{
		Action:  &action,
		ActorID: &actorID,
		Limit:   25,
		Offset:  50,
	})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Action != domain.AuditActionRoleChanged {
		t.Errorf("unexpected action %q", entry.Action)
	}
	if entry.GroupID == nil || *entry.GroupID != groupID {
		t.Errorf("unexpected group ID %v", entry.GroupID)
	}
	if entry.Metadata["new_role"] != "admin" {
		t.Errorf("unexpected metadata %v", entry.Metadata)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAuditRepository_CountIgnoresWindow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewAuditRepository(mock)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM dinecircle\.audit_log`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(42))

	count, err := repo.Count(context.Background(), port.AuditFilter{Limit: 10, Offset: 20})
	if err != nil {
		t.Fatalf("Count returned error: %v", err)
	}
	if count != 42 {
		t.Fatalf("expected 42, got %d", count)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAuditRepository_CountByAction(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewAuditRepository(mock)

	rows := pgxmock.NewRows([]string{"action", "count"}).
		AddRow("group_created", 7).
		AddRow("role_changed", 3)

	mock.ExpectQuery(`SELECT action, COUNT\(\*\) FROM dinecircle\.audit_log GROUP BY action`).
		WillReturnRows(rows)

	tally, err := repo.CountByAction(context.Background(), port.AuditFilter{})
	if err != nil {
		t.Fatalf("CountByAction returned error: %v", err)
	}

	if tally[domain.AuditActionGroupCreated] != 7 || tally[domain.AuditActionRoleChanged] != 3 {
		t.Fatalf("unexpected tally %v", tally)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
