// Package main provides a CLI tool for seeding a development database.
//
// It provisions one owner account with an organization so the API can be
// exercised with the test identity headers. Run it as a role that bypasses
// row level security (the migration owner in local setups).
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5"

	"orgadmin/internal/core/id"
	"orgadmin/internal/core/security"
	"orgadmin/internal/infrastructure/storage/postgres"
	"orgadmin/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dbURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	ownerID, err := seedUser(ctx, pool, log,
		getEnv("SEED_EXTERNAL_USER_ID", "ext_owner"),
		getEnv("SEED_EMAIL", "owner@orgadmin.local"))
	if err != nil {
		log.Fatalw("failed to seed owner", "error", err)
	}

	orgID, err := seedOrganization(ctx, pool, log, getEnv("SEED_ORG_SLUG", "acme"), getEnv("SEED_ORG_NAME", "Acme"))
	if err != nil {
		log.Fatalw("failed to seed organization", "error", err)
	}

	if err := seedMembership(ctx, pool, ownerID, orgID, security.RoleOwner, security.StatusApproved); err != nil {
		log.Fatalw("failed to seed owner membership", "error", err)
	}

	if os.Getenv("SEED_DEMO_DATA") == "true" {
		if err := seedDemoData(ctx, pool, log, orgID); err != nil {
			log.Fatalw("failed to seed demo data", "error", err)
		}
	}

	log.Infow("seeding completed successfully",
		"owner_user_id", ownerID,
		"organization_id", orgID)
}

func seedUser(ctx context.Context, pool *postgres.Pool, log *logger.Logger, externalID, email string) (id.ID, error) {
	var existingID id.ID
	err := pool.QueryRow(ctx, `SELECT id FROM users WHERE external_id = $1`, externalID).Scan(&existingID)
	if err == nil {
		log.Infow("user already exists", "external_id", externalID, "user_id", existingID)
		return existingID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return id.ID{}, fmt.Errorf("check user exists: %w", err)
	}

	userID := id.New()
	_, err = pool.Exec(ctx, `
		INSERT INTO users (id, external_id, email)
		VALUES ($1, $2, $3)
	`, userID, externalID, email)
	if err != nil {
		return id.ID{}, fmt.Errorf("insert user: %w", err)
	}

	log.Infow("user created", "external_id", externalID, "email", logger.MaskEmail(email), "user_id", userID)
	return userID, nil
}

func seedOrganization(ctx context.Context, pool *postgres.Pool, log *logger.Logger, slug, name string) (id.ID, error) {
	orgID := id.New()
	tag, err := pool.Exec(ctx, `
		INSERT INTO organizations (id, name, slug)
		VALUES ($1, $2, $3)
		ON CONFLICT (slug) DO NOTHING
	`, orgID, name, slug)
	if err != nil {
		return id.ID{}, fmt.Errorf("insert organization: %w", err)
	}

	if tag.RowsAffected() == 0 {
		if err := pool.QueryRow(ctx, `SELECT id FROM organizations WHERE slug = $1`, slug).Scan(&orgID); err != nil {
			return id.ID{}, fmt.Errorf("fetch organization %s: %w", slug, err)
		}
		log.Infow("organization already exists", "slug", slug, "organization_id", orgID)
		return orgID, nil
	}

	log.Infow("organization created", "slug", slug, "organization_id", orgID)
	return orgID, nil
}

func seedMembership(ctx context.Context, pool *postgres.Pool, userID, orgID id.ID, role security.Role, status security.Status) error {
	_, err := pool.Exec(ctx, `
		INSERT INTO organization_memberships (user_id, organization_id, role, status, approved_at)
		VALUES ($1, $2, $3, $4, CASE WHEN $4 = 'approved' THEN now() END)
		ON CONFLICT (user_id, organization_id) DO NOTHING
	`, userID, orgID, string(role), string(status))
	if err != nil {
		return fmt.Errorf("insert membership: %w", err)
	}
	return nil
}

// seedDemoData adds members in every status and a second organization, so
// approve, block and organization switching have something to act on.
func seedDemoData(ctx context.Context, pool *postgres.Pool, log *logger.Logger, orgID id.ID) error {
	log.Info("seeding demo data...")

	members := []struct {
		externalID string
		email      string
		role       security.Role
		status     security.Status
	}{
		{"ext_admin", "admin@orgadmin.local", security.RoleAdmin, security.StatusApproved},
		{"ext_pending", "pending@orgadmin.local", security.RoleMember, security.StatusPending},
		{"ext_blocked", "blocked@orgadmin.local", security.RoleMember, security.StatusBlocked},
	}

	for _, m := range members {
		userID, err := seedUser(ctx, pool, log, m.externalID, m.email)
		if err != nil {
			return err
		}
		if err := seedMembership(ctx, pool, userID, orgID, m.role, m.status); err != nil {
			return err
		}
	}

	secondOrg, err := seedOrganization(ctx, pool, log, "globex", "Globex")
	if err != nil {
		return err
	}

	var adminID id.ID
	if err := pool.QueryRow(ctx, `SELECT id FROM users WHERE external_id = 'ext_admin'`).Scan(&adminID); err != nil {
		return fmt.Errorf("fetch demo admin: %w", err)
	}
	return seedMembership(ctx, pool, adminID, secondOrg, security.RoleMember, security.StatusPending)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
