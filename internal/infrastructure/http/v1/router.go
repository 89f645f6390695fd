// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"orgadmin/internal/core/security"
	"orgadmin/internal/infrastructure/http/v1/handlers"
	"orgadmin/internal/infrastructure/http/v1/middleware"
	"orgadmin/internal/infrastructure/orghint"
	"orgadmin/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// Logger for request logging
	Logger *logger.Logger

	// DB is pinged by the readiness probe
	DB handlers.Pinger

	// Identity verifies the caller
	Identity middleware.IdentityResolver

	// OrgResolver selects the caller's organization
	OrgResolver middleware.OrgResolver

	// HintCodec signs and verifies the organization hint cookie
	HintCodec *orghint.Codec

	// OrgContext controls hint handling
	OrgContext middleware.OrgContextOptions

	// Gate reports MFA freshness on /me
	Gate *security.Gate

	Memberships   handlers.MembershipService
	Invitations   handlers.InvitationService
	Organizations handlers.OrganizationService
	Audit         handlers.AuditService
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth)
	healthHandler := handlers.NewHealthHandler(cfg.DB)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	base := handlers.NewBaseHandler()

	// API v1: every route runs with a verified identity and a resolved principal
	v1 := router.Group("/api/v1")
	v1.Use(middleware.Identity(cfg.Identity))                                     // 1. Verify provider identity
	v1.Use(middleware.OrgContext(cfg.OrgResolver, cfg.HintCodec, cfg.OrgContext)) // 2. Resolve user and organization
	{
		v1.GET("/me", handlers.NewMeHandler(base, cfg.Gate).Get)

		handlers.NewMembershipHandler(base, cfg.Memberships).RegisterRoutes(v1.Group("/memberships"))
		handlers.NewInvitationHandler(base, cfg.Invitations).RegisterRoutes(v1.Group("/invitations"))

		orgHandler := handlers.NewOrganizationHandler(base, cfg.Organizations)
		v1.GET("/organization", orgHandler.Get)
		v1.PATCH("/organization", orgHandler.Update)

		v1.GET("/audit-events", handlers.NewAuditHandler(base, cfg.Audit).List)
	}

	return router
}
