package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"

	"github.com/dinecircle/authz-service/internal/core/port"
)

type fakeRateLimitStore struct {
	decision port.RateLimitDecision
	err      error

	takenKeys []string
}

func (f *fakeRateLimitStore) Take(_ context.Context, key string, _ int, _ time.Duration, _ time.Time) (port.RateLimitDecision, error) {
	f.takenKeys = append(f.takenKeys, key)
	return f.decision, f.err
}

func newRateLimitRouter(store port.RateLimitStore, rule RateLimitRule, t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)

	limiter := NewRateLimiter(store, zaptest.NewLogger(t))
	router := gin.New()
	router.Use(limiter.RateLimit(rule))
	router.GET("/check", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestRateLimitAllowsWithinLimit(t *testing.T) {
	store := &fakeRateLimitStore{decision: port.RateLimitDecision{Allowed: true, Remaining: 4}}
	rule := RateLimitRule{Name: "check", Limit: 5, Window: time.Minute, Identifier: ClientIPIdentifier()}
	router := newRateLimitRouter(store, rule, t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/check", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "4" {
		t.Errorf("expected remaining header 4, got %q", got)
	}
	if len(store.takenKeys) != 1 || store.takenKeys[0] != "check:10.0.0.1" {
		t.Errorf("unexpected storage keys: %v", store.takenKeys)
	}
}

func TestRateLimitRejectsOverLimit(t *testing.T) {
	store := &fakeRateLimitStore{decision: port.RateLimitDecision{Allowed: false, RetryAfter: 30 * time.Second}}
	rule := RateLimitRule{Name: "check", Limit: 5, Window: time.Minute, Identifier: ClientIPIdentifier()}
	router := newRateLimitRouter(store, rule, t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/check", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "30" {
		t.Errorf("expected Retry-After 30, got %q", got)
	}

	var problem ProblemDetails
	if err := json.Unmarshal(rec.Body.Bytes(), &problem); err != nil {
		t.Fatalf("decode problem payload: %v", err)
	}
	if problem.Status != http.StatusTooManyRequests {
		t.Errorf("expected problem status 429, got %d", problem.Status)
	}
	if problem.RetryAfter != 30 {
		t.Errorf("expected retry_after 30, got %d", problem.RetryAfter)
	}
}

func TestRateLimitStoreFailureAdmitsRequest(t *testing.T) {
	store := &fakeRateLimitStore{err: context.DeadlineExceeded}
	rule := RateLimitRule{Name: "check", Limit: 5, Window: time.Minute, Identifier: ClientIPIdentifier()}
	router := newRateLimitRouter(store, rule, t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/check", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 when store fails, got %d", rec.Code)
	}
}

func TestRateLimitSkipsInvalidRules(t *testing.T) {
	store := &fakeRateLimitStore{decision: port.RateLimitDecision{Allowed: true}}
	rule := RateLimitRule{Name: "broken", Limit: 0, Window: time.Minute, Identifier: ClientIPIdentifier()}
	router := newRateLimitRouter(store, rule, t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/check", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(store.takenKeys) != 0 {
		t.Errorf("expected no store calls for invalid rule, got %v", store.takenKeys)
	}
}

func TestUserIdentifierPrefersAuthenticatedUser(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/check", nil)
	c.Set(UserIDKey, "user-1")

	id, ok := UserIdentifier()(c)
	if !ok || id != "user:user-1" {
		t.Fatalf("expected user-scoped identifier, got %q ok=%v", id, ok)
	}
}
