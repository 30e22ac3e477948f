// Package permclient is the Go client for the authorization surface. It
// mirrors the service's fail-closed stance: any transport or decoding failure
// reads as "denied", and the cached capability set is subset-safe — a cached
// capability proves permission, a missing one only means "ask the service".
package permclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dinecircle/authz-service/internal/core/domain"
)

const defaultCacheTTL = 30 * time.Second

// ErrDenied is returned by gated calls when the capability check fails.
var ErrDenied = errors.New("permission denied")

// TokenSource supplies the bearer token attached to every request.
type TokenSource func() string

// Client talks to the authorization service over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	token   TokenSource
	ttl     time.Duration

	mu        sync.RWMutex
	cached    *Snapshot
	fetchedAt time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithCacheTTL overrides how long a permission snapshot is reused.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// New constructs a Client for the service at baseURL.
func New(baseURL string, token TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		token:   token,
		ttl:     defaultCacheTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot is a point-in-time view of the caller's permission context.
type Snapshot struct {
	Context domain.PermissionContext
}

// Can reports whether the snapshot proves the capability. False only means
// unconfirmed; use Client.CheckPermission for an authoritative answer.
func (s *Snapshot) Can(capability domain.Capability) bool {
	if s == nil {
		return false
	}
	return s.Context.Has(capability)
}

// CanAny reports whether the snapshot proves at least one capability.
func (s *Snapshot) CanAny(capabilities ...domain.Capability) bool {
	for _, capability := range capabilities {
		if s.Can(capability) {
			return true
		}
	}
	return false
}

// CanAll reports whether the snapshot proves every capability.
func (s *Snapshot) CanAll(capabilities ...domain.Capability) bool {
	if s == nil {
		return false
	}
	for _, capability := range capabilities {
		if !s.Can(capability) {
			return false
		}
	}
	return true
}

// IsGlobalAdmin reports whether the snapshot proves platform administration.
func (s *Snapshot) IsGlobalAdmin() bool {
	return s.Can(domain.CapabilityAdministerPlatform)
}

type permissionsEnvelope struct {
	Permissions domain.PermissionContext `json:"permissions"`
}

// Permissions returns the caller's permission snapshot, reusing a cached one
// inside the TTL. Group-scoped snapshots bypass the cache: the cache only
// holds the global view.
func (c *Client) Permissions(ctx context.Context, groupID *string) (*Snapshot, error) {
	if groupID == nil {
		c.mu.RLock()
		if c.cached != nil && time.Since(c.fetchedAt) < c.ttl {
			snapshot := c.cached
			c.mu.RUnlock()
			return snapshot, nil
		}
		c.mu.RUnlock()
	}

	endpoint := c.baseURL + "/api/v1/auth/permissions"
	if groupID != nil {
		endpoint += "?group_id=" + url.QueryEscape(*groupID)
	}

	var envelope permissionsEnvelope
	if err := c.get(ctx, endpoint, &envelope); err != nil {
		return nil, err
	}

	snapshot := &Snapshot{Context: envelope.Permissions}
	if groupID == nil {
		c.mu.Lock()
		c.cached = snapshot
		c.fetchedAt = time.Now()
		c.mu.Unlock()
	}

	return snapshot, nil
}

// Invalidate drops the cached snapshot so the next read hits the service.
func (c *Client) Invalidate() {
	c.mu.Lock()
	c.cached = nil
	c.mu.Unlock()
}

type checkPermissionRequest struct {
	Capability string  `json:"capability"`
	GroupID    *string `json:"group_id,omitempty"`
}

// CheckResult is the service's detailed answer for one capability.
type CheckResult struct {
	Allowed           bool    `json:"allowed"`
	Reason            string  `json:"reason,omitempty"`
	RequiredRole      string  `json:"required_role,omitempty"`
	MissingCapability *string `json:"missing_capability,omitempty"`
}

// CheckPermission returns the authoritative answer for one capability. A
// cached snapshot short-circuits only positive answers; absence always asks
// the service.
func (c *Client) CheckPermission(ctx context.Context, capability domain.Capability, groupID *string) (CheckResult, error) {
	if groupID == nil {
		c.mu.RLock()
		cached := c.cached
		fresh := time.Since(c.fetchedAt) < c.ttl
		c.mu.RUnlock()
		if cached != nil && fresh && cached.Can(capability) {
			return CheckResult{Allowed: true}, nil
		}
	}

	var result CheckResult
	err := c.post(ctx, c.baseURL+"/api/v1/auth/check-permission", checkPermissionRequest{
		Capability: string(capability),
		GroupID:    groupID,
	}, &result)
	if err != nil {
		return CheckResult{}, err
	}
	return result, nil
}

type checkCapabilitiesRequest struct {
	Capabilities []string `json:"capabilities"`
	GroupID      *string  `json:"group_id,omitempty"`
}

type checkCapabilitiesResponse struct {
	Results map[string]bool `json:"results"`
}

// CheckCapabilities returns an allow/deny map for a batch of capabilities.
func (c *Client) CheckCapabilities(ctx context.Context, capabilities []domain.Capability, groupID *string) (map[domain.Capability]bool, error) {
	names := make([]string, 0, len(capabilities))
	for _, capability := range capabilities {
		names = append(names, string(capability))
	}

	var resp checkCapabilitiesResponse
	err := c.post(ctx, c.baseURL+"/api/v1/auth/check-capabilities", checkCapabilitiesRequest{
		Capabilities: names,
		GroupID:      groupID,
	}, &resp)
	if err != nil {
		return nil, err
	}

	results := make(map[domain.Capability]bool, len(resp.Results))
	for name, allowed := range resp.Results {
		results[domain.Capability(name)] = allowed
	}
	return results, nil
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, endpoint string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.token != nil {
		if token := c.token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call authz service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("authz service returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
