package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dinecircle/authz-service/internal/core/domain"
	"github.com/dinecircle/authz-service/internal/core/port"
)

// CapabilityResolver implements port.CapabilityResolver over the
// database-side authorization functions. The role-to-capability decision
// table lives entirely in those functions; this type only shapes the calls.
type CapabilityResolver struct {
	exec pgExecutor
}

// NewCapabilityResolver constructs a resolver backed by the provided executor.
func NewCapabilityResolver(exec pgExecutor) *CapabilityResolver {
	return &CapabilityResolver{exec: exec}
}

// CanUserPerform calls can_user_perform. A NULL result denies.
func (r *CapabilityResolver) CanUserPerform(ctx context.Context, userID string, capability domain.Capability, groupID *string) (bool, error) {
	row := r.exec.QueryRow(ctx, "SELECT dinecircle.can_user_perform($1, $2, $3)", userID, string(capability), groupID)

	var allowed sql.NullBool
	if err := row.Scan(&allowed); err != nil {
		return false, fmt.Errorf("can_user_perform: %w", err)
	}

	return allowed.Valid && allowed.Bool, nil
}

// GlobalRole calls user_global_role. Unknown users resolve to the plain user
// role rather than an error; the store treats every authenticated subject as
// at least a user.
func (r *CapabilityResolver) GlobalRole(ctx context.Context, userID string) (domain.GlobalRole, error) {
	row := r.exec.QueryRow(ctx, "SELECT dinecircle.user_global_role($1)", userID)

	var role sql.NullString
	if err := row.Scan(&role); err != nil {
		return "", fmt.Errorf("user_global_role: %w", err)
	}

	if !role.Valid || role.String != string(domain.GlobalRoleAdmin) {
		return domain.GlobalRoleUser, nil
	}
	return domain.GlobalRoleAdmin, nil
}

// GroupRole calls user_group_role. NULL maps to GroupRoleNone.
func (r *CapabilityResolver) GroupRole(ctx context.Context, userID, groupID string) (domain.GroupRole, error) {
	row := r.exec.QueryRow(ctx, "SELECT dinecircle.user_group_role($1, $2)", userID, groupID)

	var role sql.NullString
	if err := row.Scan(&role); err != nil {
		return "", fmt.Errorf("user_group_role: %w", err)
	}

	if !role.Valid {
		return domain.GroupRoleNone, nil
	}

	parsed := domain.GroupRole(role.String)
	if !domain.ValidGroupRole(parsed) {
		return "", fmt.Errorf("user_group_role: unexpected role %q", role.String)
	}
	return parsed, nil
}

// CapabilitySet calls user_capabilities, which returns a text array.
func (r *CapabilityResolver) CapabilitySet(ctx context.Context, userID string, groupID *string) ([]domain.Capability, error) {
	row := r.exec.QueryRow(ctx, "SELECT dinecircle.user_capabilities($1, $2)", userID, groupID)

	var names []string
	if err := row.Scan(&names); err != nil {
		return nil, fmt.Errorf("user_capabilities: %w", err)
	}

	capabilities := make([]domain.Capability, 0, len(names))
	for _, name := range names {
		capabilities = append(capabilities, domain.Capability(name))
	}
	return capabilities, nil
}

var _ port.CapabilityResolver = (*CapabilityResolver)(nil)
