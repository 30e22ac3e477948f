package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) *red.Client {
	t.Helper()

	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := red.NewClient(&red.Options{Addr: server.Addr()})

	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})

	return client
}

func TestRateLimitStore_AllowsUnderLimit(t *testing.T) {
	store := NewRateLimitStore(newTestRedis(t))

	ctx := context.Background()
	now := time.Now()
	window := time.Minute

	for i := 0; i < 3; i++ {
		decision, err := store.Take(ctx, "check:user-1", 3, window, now.Add(time.Duration(i)*time.Second))
		if err != nil {
			t.Fatalf("Take returned error: %v", err)
		}
		if !decision.Allowed {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
		if decision.Remaining != 3-i-1 {
			t.Fatalf("attempt %d: expected remaining %d, got %d", i+1, 3-i-1, decision.Remaining)
		}
	}
}

func TestRateLimitStore_DeniesAtLimit(t *testing.T) {
	store := NewRateLimitStore(newTestRedis(t))

	ctx := context.Background()
	now := time.Now()
	window := time.Minute

	for i := 0; i < 2; i++ {
		if _, err := store.Take(ctx, "check:user-1", 2, window, now); err != nil {
			t.Fatalf("Take returned error: %v", err)
		}
	}

	decision, err := store.Take(ctx, "check:user-1", 2, window, now.Add(time.Second))
	if err != nil {
		t.Fatalf("Take returned error: %v", err)
	}
	if decision.Allowed {
		t.Fatal("expected denial at limit")
	}
	if decision.Remaining != 0 {
		t.Fatalf("expected remaining 0, got %d", decision.Remaining)
	}
	if decision.RetryAfter <= 0 || decision.RetryAfter > window {
		t.Fatalf("expected retry-after within (0, %v], got %v", window, decision.RetryAfter)
	}
}

func TestRateLimitStore_DeniedAttemptsDoNotExtendPenalty(t *testing.T) {
	store := NewRateLimitStore(newTestRedis(t))

	ctx := context.Background()
	now := time.Now()
	window := 10 * time.Second

	if _, err := store.Take(ctx, "check:user-1", 1, window, now); err != nil {
		t.Fatalf("Take returned error: %v", err)
	}

	// Hammering while denied must not push the reset point forward.
	for i := 1; i <= 3; i++ {
		decision, err := store.Take(ctx, "check:user-1", 1, window, now.Add(time.Duration(i)*time.Second))
		if err != nil {
			t.Fatalf("Take returned error: %v", err)
		}
		if decision.Allowed {
			t.Fatalf("attempt at +%ds should be denied", i)
		}
	}

	decision, err := store.Take(ctx, "check:user-1", 1, window, now.Add(window).Add(time.Second))
	if err != nil {
		t.Fatalf("Take returned error: %v", err)
	}
	if !decision.Allowed {
		t.Fatal("expected admission after the original window elapsed")
	}
}

func TestRateLimitStore_WindowSlides(t *testing.T) {
	store := NewRateLimitStore(newTestRedis(t))

	ctx := context.Background()
	now := time.Now()
	window := 10 * time.Second

	for i := 0; i < 2; i++ {
		if _, err := store.Take(ctx, "check:user-1", 2, window, now); err != nil {
			t.Fatalf("Take returned error: %v", err)
		}
	}

	decision, err := store.Take(ctx, "check:user-1", 2, window, now.Add(window).Add(time.Millisecond))
	if err != nil {
		t.Fatalf("Take returned error: %v", err)
	}
	if !decision.Allowed {
		t.Fatal("expected expired attempts to be trimmed from the window")
	}
}

func TestRateLimitStore_KeysAreIndependent(t *testing.T) {
	store := NewRateLimitStore(newTestRedis(t))

	ctx := context.Background()
	now := time.Now()

	if _, err := store.Take(ctx, "check:user-1", 1, time.Minute, now); err != nil {
		t.Fatalf("Take returned error: %v", err)
	}

	decision, err := store.Take(ctx, "check:user-2", 1, time.Minute, now)
	if err != nil {
		t.Fatalf("Take returned error: %v", err)
	}
	if !decision.Allowed {
		t.Fatal("one caller's attempts must not count against another")
	}
}

func TestRateLimitStore_DisabledRuleAdmits(t *testing.T) {
	store := NewRateLimitStore(newTestRedis(t))

	decision, err := store.Take(context.Background(), "check:user-1", 0, time.Minute, time.Now())
	if err != nil {
		t.Fatalf("Take returned error: %v", err)
	}
	if !decision.Allowed {
		t.Fatal("limit <= 0 must disable the rule")
	}
}

func TestRateLimitStore_CustomPrefix(t *testing.T) {
	client := newTestRedis(t)
	store := NewRateLimitStore(client).WithKeyPrefix("custom:prefix")

	ctx := context.Background()
	if _, err := store.Take(ctx, "check:user-1", 5, time.Minute, time.Now()); err != nil {
		t.Fatalf("Take returned error: %v", err)
	}

	keys, err := client.Keys(ctx, "custom:prefix:*").Result()
	if err != nil {
		t.Fatalf("Keys returned error: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("expected one namespaced key, got %v", keys)
	}
}
