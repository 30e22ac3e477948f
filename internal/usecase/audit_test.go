package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/dinecircle/authz-service/internal/core/domain"
	"github.com/dinecircle/authz-service/internal/core/port"
	"github.com/dinecircle/authz-service/internal/usecase"
)

type stubAuditRepo struct {
	mu        sync.Mutex
	inserted  []domain.AuditLogEntry
	insertErr error

	listEntries []domain.AuditLogEntry
	listErr     error
	listFilter  port.AuditFilter

	count    int
	countErr error

	tally    map[domain.AuditAction]int
	tallyErr error
}

func (r *stubAuditRepo) Insert(_ context.Context, entry domain.AuditLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return r.insertErr
	}
	r.inserted = append(r.inserted, entry)
	return nil
}

func (r *stubAuditRepo) List(_ context.Context, filter port.AuditFilter) ([]domain.AuditLogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listFilter = filter
	return r.listEntries, r.listErr
}

func (r *stubAuditRepo) Count(context.Context, port.AuditFilter) (int, error) {
	return r.count, r.countErr
}

func (r *stubAuditRepo) CountByAction(context.Context, port.AuditFilter) (map[domain.AuditAction]int, error) {
	return r.tally, r.tallyErr
}

type stubUserDirectory struct {
	displays map[string]domain.UserDisplay
	err      error
	gotIDs   []string
	calls    int
}

func (d *stubUserDirectory) DisplayByIDs(_ context.Context, userIDs []string) (map[string]domain.UserDisplay, error) {
	d.calls++
	d.gotIDs = userIDs
	if d.err != nil {
		return nil, d.err
	}
	return d.displays, nil
}

type stubEventPublisher struct {
	events []domain.AuditLoggedEvent
	err    error
}

func (p *stubEventPublisher) PublishAuditLogged(_ context.Context, event domain.AuditLoggedEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func TestLogEventPersistsEntry(t *testing.T) {
	repo := &stubAuditRepo{}
	publisher := &stubEventPublisher{}
	fixed := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	svc := usecase.NewAuditService(repo, nil, zaptest.NewLogger(t)).
		WithEventPublisher(publisher).
		WithClock(func() time.Time { return fixed })

	groupID := "group-1"
	id := svc.LogEvent(context.Background(), usecase.LogEventInput{
		ActorID:    "user-1",
		Action:     domain.AuditActionGroupCreated,
		TargetType: domain.AuditTargetGroup,
		TargetID:   groupID,
		GroupID:    &groupID,
		Metadata:   map[string]any{"group_name": "Tacos"},
	})

	if id == "" {
		t.Fatal("expected a non-empty audit ID")
	}
	if len(repo.inserted) != 1 {
		t.Fatalf("expected 1 inserted entry, got %d", len(repo.inserted))
	}
	entry := repo.inserted[0]
	if entry.ID != id {
		t.Errorf("entry ID %q does not match returned ID %q", entry.ID, id)
	}
	if !entry.CreatedAt.Equal(fixed) {
		t.Errorf("unexpected created_at %v", entry.CreatedAt)
	}
	if len(publisher.events) != 1 || publisher.events[0].AuditID != id {
		t.Errorf("expected one published event for the entry, got %v", publisher.events)
	}
}

func TestLogEventSwallowsInsertFailure(t *testing.T) {
	repo := &stubAuditRepo{insertErr: errors.New("insert failed")}
	publisher := &stubEventPublisher{}
	svc := usecase.NewAuditService(repo, nil, zaptest.NewLogger(t)).
		WithEventPublisher(publisher)

	id := svc.LogEvent(context.Background(), usecase.LogEventInput{
		ActorID:    "user-1",
		Action:     domain.AuditActionGroupUpdated,
		TargetType: domain.AuditTargetGroup,
		TargetID:   "group-1",
	})

	if id != "" {
		t.Errorf("expected empty ID on failure, got %q", id)
	}
	if len(publisher.events) != 0 {
		t.Error("failed write must not publish an event")
	}
}

func TestLogEventIgnoresPublishFailure(t *testing.T) {
	repo := &stubAuditRepo{}
	publisher := &stubEventPublisher{err: errors.New("broker down")}
	svc := usecase.NewAuditService(repo, nil, zaptest.NewLogger(t)).
		WithEventPublisher(publisher)

	id := svc.LogEvent(context.Background(), usecase.LogEventInput{
		ActorID:    "user-1",
		Action:     domain.AuditActionRoleChanged,
		TargetType: domain.AuditTargetUser,
		TargetID:   "user-2",
	})

	if id == "" {
		t.Error("publish failure must not fail the write")
	}
}

func TestNamedHelpersShapeMetadata(t *testing.T) {
	repo := &stubAuditRepo{}
	svc := usecase.NewAuditService(repo, nil, zaptest.NewLogger(t))
	meta := usecase.RequestMeta{}

	svc.LogGroupCreated(context.Background(), "user-1", "group-1", "Brunch Club", meta)
	svc.LogRoleChanged(context.Background(), "user-1", "user-2", "group-1", domain.GroupRoleMember, domain.GroupRoleAdmin, meta)
	reason := "spam"
	svc.LogMemberRemoved(context.Background(), "user-1", "user-3", "group-1", domain.GroupRoleMember, &reason, meta)
	svc.LogInviteCodeGenerated(context.Background(), "user-1", "invite-1", "group-1", 5, nil, meta)
	svc.LogOwnershipTransferred(context.Background(), "user-1", "user-2", "group-1", domain.GroupRoleAdmin, meta)

	if len(repo.inserted) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(repo.inserted))
	}

	created := repo.inserted[0]
	if created.Action != domain.AuditActionGroupCreated || created.Metadata["group_name"] != "Brunch Club" {
		t.Errorf("unexpected group_created entry %+v", created)
	}

	roleChanged := repo.inserted[1]
	if roleChanged.TargetType != domain.AuditTargetUser || roleChanged.TargetID != "user-2" {
		t.Errorf("role_changed must target the affected user, got %+v", roleChanged)
	}
	if roleChanged.Metadata["old_role"] != "member" || roleChanged.Metadata["new_role"] != "admin" {
		t.Errorf("unexpected role transition metadata %v", roleChanged.Metadata)
	}

	removed := repo.inserted[2]
	if removed.Reason == nil || *removed.Reason != "spam" {
		t.Errorf("expected removal reason, got %v", removed.Reason)
	}

	invite := repo.inserted[3]
	if invite.TargetType != domain.AuditTargetInviteCode || invite.Metadata["max_uses"] != 5 {
		t.Errorf("unexpected invite entry %+v", invite)
	}
	if _, leaked := invite.Metadata["code"]; leaked {
		t.Error("invite code value must never reach the audit log")
	}

	transferred := repo.inserted[4]
	if transferred.Metadata["new_owner"] != "user-2" || transferred.Metadata["demoted_to"] != "admin" {
		t.Errorf("unexpected transfer metadata %v", transferred.Metadata)
	}
}

func TestGetAuditLogEnhancesEntries(t *testing.T) {
	groupID := "group-1"
	repo := &stubAuditRepo{
		listEntries: []domain.AuditLogEntry{
			{ID: "a1", ActorID: "user-1", Action: domain.AuditActionRoleChanged, TargetType: domain.AuditTargetUser, TargetID: "user-2", GroupID: &groupID},
			{ID: "a2", ActorID: "user-1", Action: domain.AuditActionGroupUpdated, TargetType: domain.AuditTargetGroup, TargetID: groupID, GroupID: &groupID},
		},
		count: 2,
	}
	directory := &stubUserDirectory{displays: map[string]domain.UserDisplay{
		"user-1": {ID: "user-1", Name: "ana", Email: "ana@example.com"},
		"user-2": {ID: "user-2", Name: "bo", Email: "bo@example.com"},
	}}
	svc := usecase.NewAuditService(repo, directory, zaptest.NewLogger(t))

	result := svc.GetAuditLog(context.Background(), port.AuditFilter{})

	if result.Count != 2 || result.HasMore {
		t.Errorf("unexpected page math: count=%d has_more=%v", result.Count, result.HasMore)
	}
	if directory.calls != 1 {
		t.Errorf("expected one batched directory call, got %d", directory.calls)
	}
	if len(directory.gotIDs) != 2 {
		t.Errorf("expected distinct actor+target ID set of 2, got %v", directory.gotIDs)
	}

	first := result.Entries[0]
	if first.Actor == nil || first.Actor.Name != "ana" {
		t.Errorf("expected enhanced actor, got %v", first.Actor)
	}
	if first.Target == nil || first.Target.Name != "bo" {
		t.Errorf("expected enhanced user target, got %v", first.Target)
	}

	second := result.Entries[1]
	if second.Target != nil {
		t.Error("group targets must not be enhanced with user display info")
	}
}

func TestGetAuditLogSurvivesEnhancementFailure(t *testing.T) {
	repo := &stubAuditRepo{
		listEntries: []domain.AuditLogEntry{
			{ID: "a1", ActorID: "user-1", Action: domain.AuditActionGroupCreated, TargetType: domain.AuditTargetGroup, TargetID: "group-1"},
		},
		count: 1,
	}
	directory := &stubUserDirectory{err: errors.New("directory down")}
	svc := usecase.NewAuditService(repo, directory, zaptest.NewLogger(t))

	result := svc.GetAuditLog(context.Background(), port.AuditFilter{})

	if len(result.Entries) != 1 {
		t.Fatalf("expected unenhanced entries, got %d", len(result.Entries))
	}
	if result.Entries[0].Actor != nil {
		t.Error("expected nil actor when enhancement fails")
	}
}

func TestGetAuditLogReturnsEmptyOnBackendFailure(t *testing.T) {
	repo := &stubAuditRepo{listErr: errors.New("query failed")}
	svc := usecase.NewAuditService(repo, nil, zaptest.NewLogger(t))

	result := svc.GetAuditLog(context.Background(), port.AuditFilter{})

	if result.Entries == nil || len(result.Entries) != 0 {
		t.Errorf("expected empty non-nil entries, got %v", result.Entries)
	}
	if result.Count != 0 || result.HasMore {
		t.Errorf("expected zeroed totals, got count=%d has_more=%v", result.Count, result.HasMore)
	}
}

func TestGetAuditLogNormalizesWindow(t *testing.T) {
	repo := &stubAuditRepo{count: 500}
	svc := usecase.NewAuditService(repo, nil, zaptest.NewLogger(t))

	svc.GetAuditLog(context.Background(), port.AuditFilter{Limit: 0, Offset: -5})
	if repo.listFilter.Limit != 50 || repo.listFilter.Offset != 0 {
		t.Errorf("expected default window 50/0, got %d/%d", repo.listFilter.Limit, repo.listFilter.Offset)
	}

	svc.GetAuditLog(context.Background(), port.AuditFilter{Limit: 1000})
	if repo.listFilter.Limit != 100 {
		t.Errorf("expected limit clamped to 100, got %d", repo.listFilter.Limit)
	}
}

func TestGetAuditLogHasMore(t *testing.T) {
	repo := &stubAuditRepo{
		listEntries: make([]domain.AuditLogEntry, 50),
		count:       120,
	}
	svc := usecase.NewAuditService(repo, nil, zaptest.NewLogger(t))

	page := svc.GetAuditLog(context.Background(), port.AuditFilter{Limit: 50, Offset: 0})
	if !page.HasMore {
		t.Error("expected has_more on first page of 120")
	}

	last := svc.GetAuditLog(context.Background(), port.AuditFilter{Limit: 50, Offset: 100})
	if last.HasMore {
		t.Error("expected no has_more on last page")
	}
}

func TestGetAuditStatsTalliesWholeWindow(t *testing.T) {
	repo := &stubAuditRepo{
		tally: map[domain.AuditAction]int{
			domain.AuditActionGroupCreated: 7,
			domain.AuditActionRoleChanged:  3,
		},
		listEntries: []domain.AuditLogEntry{{ID: "a1", ActorID: "user-1"}},
		count:       10,
	}
	svc := usecase.NewAuditService(repo, nil, zaptest.NewLogger(t))

	stats := svc.GetAuditStats(context.Background(), port.AuditFilter{})

	if stats.TotalEvents != 10 {
		t.Errorf("expected 10 total events, got %d", stats.TotalEvents)
	}
	if stats.EventsByAction[domain.AuditActionGroupCreated] != 7 {
		t.Errorf("unexpected tally %v", stats.EventsByAction)
	}
	if len(stats.RecentActivity) != 1 {
		t.Errorf("expected recent activity page, got %d entries", len(stats.RecentActivity))
	}
	if repo.listFilter.Limit != 10 || repo.listFilter.Offset != 0 {
		t.Errorf("recent activity must use limit 10 offset 0, got %d/%d", repo.listFilter.Limit, repo.listFilter.Offset)
	}
}

func TestGetAuditStatsReturnsEmptyOnFailure(t *testing.T) {
	repo := &stubAuditRepo{tallyErr: errors.New("tally failed")}
	svc := usecase.NewAuditService(repo, nil, zaptest.NewLogger(t))

	stats := svc.GetAuditStats(context.Background(), port.AuditFilter{})

	if stats.TotalEvents != 0 {
		t.Errorf("expected zero total, got %d", stats.TotalEvents)
	}
	if stats.EventsByAction == nil || stats.RecentActivity == nil {
		t.Error("expected well-typed empty maps and slices")
	}
}
