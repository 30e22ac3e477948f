package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/dinecircle/authz-service/internal/infra/config"
	"github.com/dinecircle/authz-service/internal/transport/http/handlers"
	"github.com/dinecircle/authz-service/internal/transport/http/middleware"
	"github.com/dinecircle/authz-service/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Permissions *usecase.PermissionService
	Audit       *usecase.AuditService
	Visibility  *usecase.VisibilityService
	Groups      *usecase.GroupService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	Services    ServiceSet
	Database    DatabaseChecker
	Cache       CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	if origins := deps.Config.App.CORSAllowedOrigins; len(origins) > 0 {
		r.Use(middleware.CORS(origins))
	}
	if metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{}); err != nil {
		deps.Logger.Warn("failed to init http metrics, requests will not be counted", zap.Error(err))
	} else {
		r.Use(metrics.Handler())
	}

	authMiddleware := middleware.RequireAuth(deps.Config.Auth)

	checks := map[string]handlers.DependencyPinger{}
	if deps.Database != nil {
		checks["database"] = deps.Database.Ping
	}
	if deps.Cache != nil {
		checks["redis"] = deps.Cache.HealthCheck
	}

	healthHandler := handlers.NewHealthHandler(checks)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Ready)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		authGroup.Use(authMiddleware)
		if checkMW := rateLimitRule(deps, "authz_check", deps.Config.RateLimit.CheckMaxAttempts); checkMW != nil {
			authGroup.Use(checkMW)
		}

		permissionHandler := handlers.NewPermissionHandler(deps.Services.Permissions)
		authGroup.GET("/permissions", permissionHandler.GetPermissions)
		authGroup.POST("/check-permission", permissionHandler.CheckPermission)
		authGroup.POST("/check-capabilities", permissionHandler.CheckCapabilities)

		reviewHandler := handlers.NewReviewHandler(deps.Services.Visibility)
		api.GET("/users/:id/reviews", authMiddleware, reviewHandler.ListUserReviews)

		feedHandler := handlers.NewFeedHandler(deps.Services.Visibility)
		api.GET("/feed", authMiddleware, feedHandler.ListFeed)

		if deps.Services.Groups != nil {
			groupHandler := handlers.NewGroupHandler(deps.Services.Groups)
			groupsGroup := api.Group("/groups")
			groupsGroup.Use(authMiddleware)
			if mutateMW := rateLimitRule(deps, "group_mutate", deps.Config.RateLimit.GroupMutateMaxAttempts); mutateMW != nil {
				groupsGroup.Use(mutateMW)
			}

			groupsGroup.POST("", groupHandler.CreateGroup)
			groupsGroup.PATCH("/:id", groupHandler.UpdateGroup)
			groupsGroup.PUT("/:id/members/:userId/role", groupHandler.ChangeMemberRole)
			groupsGroup.DELETE("/:id/members/:userId", groupHandler.RemoveMember)
			groupsGroup.POST("/:id/transfer-ownership", groupHandler.TransferOwnership)

			inviteHandlers := []gin.HandlerFunc{}
			if inviteMW := rateLimitRule(deps, "invite_mint", deps.Config.RateLimit.InviteCodeMaxAttempts); inviteMW != nil {
				inviteHandlers = append(inviteHandlers, inviteMW)
			}
			inviteHandlers = append(inviteHandlers, groupHandler.GenerateInvite)
			groupsGroup.POST("/:id/invites", inviteHandlers...)
		}

		auditHandler := handlers.NewAuditHandler(deps.Services.Permissions, deps.Services.Audit)
		adminGroup := api.Group("/admin")
		adminGroup.Use(authMiddleware)
		if auditMW := rateLimitRule(deps, "audit_query", deps.Config.RateLimit.AuditQueryMaxAttempts); auditMW != nil {
			adminGroup.Use(auditMW)
		}
		adminGroup.GET("/audit-log", auditHandler.GetAuditLog)
		adminGroup.GET("/audit-log/stats", auditHandler.GetAuditStats)
	}

	return r
}

func rateLimitRule(deps Dependencies, name string, limit int) gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil || limit <= 0 {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	rule := middleware.RateLimitRule{
		Name:       name,
		Limit:      limit,
		Window:     window,
		Identifier: middleware.UserIdentifier(),
	}

	return deps.RateLimiter.RateLimit(rule)
}
