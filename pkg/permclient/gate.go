package permclient

import (
	"context"

	"github.com/dinecircle/authz-service/internal/core/domain"
)

// Gate runs callbacks only when the caller holds a capability. Check
// failures deny: a gate that cannot verify permission behaves as if
// permission were refused.
type Gate struct {
	client *Client
}

// NewGate builds a gate over the client.
func NewGate(client *Client) *Gate {
	return &Gate{client: client}
}

// Allowed reports whether the capability check passes. Errors read as false.
func (g *Gate) Allowed(ctx context.Context, capability domain.Capability, groupID *string) bool {
	result, err := g.client.CheckPermission(ctx, capability, groupID)
	if err != nil {
		return false
	}
	return result.Allowed
}

// Run executes fn when the caller holds the capability, otherwise returns
// ErrDenied without calling fn.
func (g *Gate) Run(ctx context.Context, capability domain.Capability, groupID *string, fn func(context.Context) error) error {
	if !g.Allowed(ctx, capability, groupID) {
		return ErrDenied
	}
	return fn(ctx)
}

// RunAny executes fn when the caller holds at least one of the capabilities.
func (g *Gate) RunAny(ctx context.Context, capabilities []domain.Capability, groupID *string, fn func(context.Context) error) error {
	results, err := g.client.CheckCapabilities(ctx, capabilities, groupID)
	if err != nil {
		return ErrDenied
	}
	for _, allowed := range results {
		if allowed {
			return fn(ctx)
		}
	}
	return ErrDenied
}
