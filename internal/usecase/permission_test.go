package usecase_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/dinecircle/authz-service/internal/core/domain"
	"github.com/dinecircle/authz-service/internal/usecase"
)

// stubResolver scripts resolver answers per capability and records calls.
type stubResolver struct {
	mu         sync.Mutex
	allowed    map[domain.Capability]bool
	failWith   error
	globalRole domain.GlobalRole
	groupRole  domain.GroupRole
	caps       []domain.Capability
	canCalls   int
}

func (r *stubResolver) CanUserPerform(_ context.Context, _ string, capability domain.Capability, _ *string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.canCalls++
	if r.failWith != nil {
		return false, r.failWith
	}
	return r.allowed[capability], nil
}

func (r *stubResolver) GlobalRole(context.Context, string) (domain.GlobalRole, error) {
	if r.failWith != nil {
		return "", r.failWith
	}
	return r.globalRole, nil
}

func (r *stubResolver) GroupRole(context.Context, string, string) (domain.GroupRole, error) {
	if r.failWith != nil {
		return "", r.failWith
	}
	return r.groupRole, nil
}

func (r *stubResolver) CapabilitySet(context.Context, string, *string) ([]domain.Capability, error) {
	if r.failWith != nil {
		return nil, r.failWith
	}
	return r.caps, nil
}

type recordedDecision struct {
	capability domain.Capability
	outcome    string
}

type stubRecorder struct {
	mu        sync.Mutex
	decisions []recordedDecision
}

func (s *stubRecorder) RecordDecision(capability domain.Capability, outcome string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decisions = append(s.decisions, recordedDecision{capability, outcome})
}

func TestCanAllowsAndDenies(t *testing.T) {
	resolver := &stubResolver{allowed: map[domain.Capability]bool{
		domain.CapabilityPostReview: true,
	}}
	svc := usecase.NewPermissionService(resolver, zaptest.NewLogger(t))

	if !svc.Can(context.Background(), "user-1", domain.CapabilityPostReview, nil) {
		t.Error("expected post_review allowed")
	}
	if svc.Can(context.Background(), "user-1", domain.CapabilityCreateGroup, nil) {
		t.Error("expected create_group denied")
	}
}

func TestCanDeniesOnResolverFailure(t *testing.T) {
	resolver := &stubResolver{failWith: errors.New("connection refused")}
	recorder := &stubRecorder{}
	svc := usecase.NewPermissionService(resolver, zaptest.NewLogger(t)).
		WithDecisionRecorder(recorder)

	if svc.Can(context.Background(), "user-1", domain.CapabilityPostReview, nil) {
		t.Error("resolver failure must deny")
	}
	if len(recorder.decisions) != 1 || recorder.decisions[0].outcome != "error" {
		t.Errorf("expected one error decision, got %v", recorder.decisions)
	}
}

func TestEnsureCanReturnsPermissionError(t *testing.T) {
	resolver := &stubResolver{allowed: map[domain.Capability]bool{
		domain.CapabilityEditGroup: true,
	}}
	svc := usecase.NewPermissionService(resolver, zaptest.NewLogger(t))
	groupID := "group-1"

	if err := svc.EnsureCan(context.Background(), "user-1", domain.CapabilityEditGroup, &groupID); err != nil {
		t.Fatalf("expected nil for allowed capability, got %v", err)
	}

	err := svc.EnsureCan(context.Background(), "user-1", domain.CapabilityDeleteGroup, &groupID)
	var permErr *usecase.PermissionError
	if !errors.As(err, &permErr) {
		t.Fatalf("expected *PermissionError, got %T", err)
	}
	if permErr.Code != usecase.PermissionDeniedCode {
		t.Errorf("unexpected code %q", permErr.Code)
	}
	if permErr.Capability != domain.CapabilityDeleteGroup {
		t.Errorf("unexpected capability %q", permErr.Capability)
	}
	if !strings.Contains(permErr.Error(), "group-1") {
		t.Errorf("expected group in error message, got %q", permErr.Error())
	}
}

func TestGetUserPermissionsAggregatesSnapshot(t *testing.T) {
	resolver := &stubResolver{
		globalRole: domain.GlobalRoleAdmin,
		groupRole:  domain.GroupRoleOwner,
		caps: []domain.Capability{
			domain.CapabilityAdministerPlatform,
			domain.CapabilityEditGroup,
		},
	}
	svc := usecase.NewPermissionService(resolver, zaptest.NewLogger(t))
	groupID := "group-1"

	pc := svc.GetUserPermissions(context.Background(), "user-1", &groupID)

	if pc.UserID != "user-1" {
		t.Errorf("unexpected user id %q", pc.UserID)
	}
	if pc.GlobalRole != domain.GlobalRoleAdmin {
		t.Errorf("unexpected global role %q", pc.GlobalRole)
	}
	if pc.GroupRole == nil || *pc.GroupRole != domain.GroupRoleOwner {
		t.Errorf("unexpected group role %v", pc.GroupRole)
	}
	if !pc.Has(domain.CapabilityEditGroup) {
		t.Error("expected edit_group in capability set")
	}
}

func TestGetUserPermissionsDegradesToSafeDefaults(t *testing.T) {
	resolver := &stubResolver{failWith: errors.New("timeout")}
	svc := usecase.NewPermissionService(resolver, zaptest.NewLogger(t))
	groupID := "group-1"

	pc := svc.GetUserPermissions(context.Background(), "user-1", &groupID)

	if pc.GlobalRole != domain.GlobalRoleUser {
		t.Errorf("expected default user role, got %q", pc.GlobalRole)
	}
	if pc.GroupRole != nil {
		t.Errorf("expected nil group role, got %v", *pc.GroupRole)
	}
	if pc.Capabilities == nil || len(pc.Capabilities) != 0 {
		t.Errorf("expected empty capability slice, got %v", pc.Capabilities)
	}
}

func TestCheckCapabilitiesCoversEveryInput(t *testing.T) {
	resolver := &stubResolver{allowed: map[domain.Capability]bool{
		domain.CapabilityPostReview: true,
	}}
	svc := usecase.NewPermissionService(resolver, zaptest.NewLogger(t))

	results := svc.CheckCapabilities(context.Background(), "user-1", []domain.Capability{
		domain.CapabilityPostReview,
		domain.CapabilityCreateGroup,
		domain.CapabilityPostReview, // duplicate collapses to one entry
	}, nil)

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if !results[domain.CapabilityPostReview] {
		t.Error("expected post_review allowed")
	}
	if results[domain.CapabilityCreateGroup] {
		t.Error("expected create_group denied")
	}
}

func TestCheckCapabilitiesEmptyInput(t *testing.T) {
	svc := usecase.NewPermissionService(&stubResolver{}, zaptest.NewLogger(t))
	results := svc.CheckCapabilities(context.Background(), "user-1", nil, nil)
	if len(results) != 0 {
		t.Errorf("expected empty result map, got %v", results)
	}
}

func TestCheckPermissionDenialCarriesRoleHint(t *testing.T) {
	resolver := &stubResolver{}
	svc := usecase.NewPermissionService(resolver, zaptest.NewLogger(t))

	check := svc.CheckPermission(context.Background(), "user-1", domain.CapabilityCreateGroup, nil)

	if check.Allowed {
		t.Fatal("expected denial")
	}
	if check.MissingCapability == nil || *check.MissingCapability != domain.CapabilityCreateGroup {
		t.Errorf("unexpected missing capability %v", check.MissingCapability)
	}
	if check.RequiredRole != "global administrators" {
		t.Errorf("unexpected required role %q", check.RequiredRole)
	}
	if !strings.Contains(check.Reason, "global administrators") {
		t.Errorf("expected role hint in reason, got %q", check.Reason)
	}
}

func TestCheckPermissionAllowedHasNoReason(t *testing.T) {
	resolver := &stubResolver{allowed: map[domain.Capability]bool{
		domain.CapabilityPostReview: true,
	}}
	svc := usecase.NewPermissionService(resolver, zaptest.NewLogger(t))

	check := svc.CheckPermission(context.Background(), "user-1", domain.CapabilityPostReview, nil)

	if !check.Allowed {
		t.Fatal("expected allow")
	}
	if check.Reason != "" || check.MissingCapability != nil {
		t.Errorf("allowed check must carry no denial detail, got %+v", check)
	}
}

func TestConvenienceChecksUseCapabilities(t *testing.T) {
	resolver := &stubResolver{allowed: map[domain.Capability]bool{
		domain.CapabilityAdministerPlatform: true,
		domain.CapabilityManageRoles:        true,
	}}
	svc := usecase.NewPermissionService(resolver, zaptest.NewLogger(t))

	if !svc.IsGlobalAdmin(context.Background(), "user-1") {
		t.Error("expected global admin")
	}
	if svc.IsGroupOwner(context.Background(), "user-1", "group-1") {
		t.Error("expected not group owner without transfer_ownership")
	}
	if !svc.IsGroupAdmin(context.Background(), "user-1", "group-1") {
		t.Error("expected group admin via manage_roles")
	}
}

func TestRecorderObservesOutcomes(t *testing.T) {
	resolver := &stubResolver{allowed: map[domain.Capability]bool{
		domain.CapabilityPostReview: true,
	}}
	recorder := &stubRecorder{}
	svc := usecase.NewPermissionService(resolver, zaptest.NewLogger(t)).
		WithDecisionRecorder(recorder)

	svc.Can(context.Background(), "user-1", domain.CapabilityPostReview, nil)
	svc.Can(context.Background(), "user-1", domain.CapabilityCreateGroup, nil)

	if len(recorder.decisions) != 2 {
		t.Fatalf("expected 2 decisions, got %d", len(recorder.decisions))
	}
	if recorder.decisions[0].outcome != "allow" || recorder.decisions[1].outcome != "deny" {
		t.Errorf("unexpected outcomes %v", recorder.decisions)
	}
}
