// Package main is the entry point for the orgadmin API server.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"orgadmin/internal/config"
	"orgadmin/internal/core/security"
	"orgadmin/internal/domain/audit"
	"orgadmin/internal/domain/invitation"
	"orgadmin/internal/domain/membership"
	"orgadmin/internal/domain/organization"
	"orgadmin/internal/domain/orgcontext"
	v1 "orgadmin/internal/infrastructure/http/v1"
	"orgadmin/internal/infrastructure/http/v1/middleware"
	"orgadmin/internal/infrastructure/identity"
	"orgadmin/internal/infrastructure/orghint"
	"orgadmin/internal/infrastructure/storage/postgres"
	"orgadmin/internal/infrastructure/storage/postgres/org_repo"
	"orgadmin/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "optional config file (yaml, toml or json)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.IsLocal() || cfg.App.Env == config.EnvDevelopment,
		Format:      cfg.Log.Format,
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Infow("starting orgadmin server", "env", cfg.App.Env)

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(cfg.Database.URL)
	poolCfg.MaxConns = cfg.Database.MaxConns
	poolCfg.MinConns = cfg.Database.MinConns
	poolCfg.AcquireTimeout = cfg.Database.AcquireTimeout

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Infow("database connection established", "max_conns", poolCfg.MaxConns)

	txOpts := postgres.DefaultTxOptions()
	txOpts.StatementTimeout = cfg.Database.StatementTimeout
	propagator := postgres.NewPropagator(pool, txOpts)

	// --- Audit ---
	emitter, err := postgres.NewAuditEmitter()
	if err != nil {
		log.Fatalw("failed to create audit emitter", "error", err)
	}
	reader, err := postgres.NewAuditReader()
	if err != nil {
		log.Fatalw("failed to create audit reader", "error", err)
	}
	defer reader.Close()

	// --- Domain services ---
	gate := security.NewGate(cfg.Auth.MFAWindow)

	users := org_repo.NewUserRepo()
	memberships := org_repo.NewMembershipRepo()
	invitations := org_repo.NewInvitationRepo()
	organizations := org_repo.NewOrganizationRepo()

	membershipService := membership.NewService(propagator, memberships, emitter, gate)
	invitationService := invitation.NewService(propagator, invitations, memberships, emitter, gate)
	organizationService := organization.NewService(propagator, organizations, emitter, gate)
	auditService := audit.NewService(propagator, reader, gate)
	resolver := orgcontext.NewResolver(propagator, users, memberships)

	// --- Identity ---
	identityResolver, err := identity.NewResolver(identity.Config{
		Token: identity.TokenConfig{
			Secret:       cfg.Auth.JWTSecret,
			PublicKeyPEM: cfg.Auth.JWTPublicKey,
			Issuer:       cfg.Auth.Issuer,
			Audience:     cfg.Auth.Audience,
		},
		BypassEnabled: cfg.TestAuthBypass.Enabled,
		BypassSecret:  cfg.TestAuthBypass.Secret,
		Local:         cfg.IsLocal(),
	})
	if err != nil {
		log.Fatalw("failed to configure identity resolver", "error", err)
	}
	if cfg.TestAuthBypass.Enabled {
		log.Warnw("test auth bypass enabled", "secret_required", cfg.TestAuthBypass.Secret != "")
	}

	hintSecret := cfg.OrgHint.Secret
	if hintSecret == "" {
		hintSecret, err = ephemeralSecret()
		if err != nil {
			log.Fatalw("failed to generate org hint secret", "error", err)
		}
		log.Warn("ORG_HINT_SECRET not set, organization hint cookies will not survive a restart")
	}
	codec, err := orghint.NewCodec(hintSecret)
	if err != nil {
		log.Fatalw("failed to create org hint codec", "error", err)
	}

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Logger:      log,
		DB:          pool,
		Identity:    identityResolver,
		OrgResolver: resolver,
		HintCodec:   codec,
		OrgContext: middleware.OrgContextOptions{
			AllowQueryHint: !cfg.IsProduction(),
			PersistHint:    cfg.OrgHint.Persist,
			SecureCookie:   !cfg.IsLocal(),
		},
		Gate:          gate,
		Memberships:   membershipService,
		Invitations:   invitationService,
		Organizations: organizationService,
		Audit:         auditService,
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", cfg.App.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	go logPoolStats(ctx, pool)

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

func ephemeralSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func logPoolStats(ctx context.Context, pool *postgres.Pool) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		pool.LogStats(ctx)
	}
}
