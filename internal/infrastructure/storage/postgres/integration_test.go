//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"orgadmin/db"
	"orgadmin/internal/core/apperror"
	"orgadmin/internal/core/id"
	"orgadmin/internal/core/security"
	"orgadmin/internal/core/tx"
	"orgadmin/internal/domain/audit"
	"orgadmin/internal/domain/membership"
	"orgadmin/internal/infrastructure/storage/postgres"
	"orgadmin/internal/infrastructure/storage/postgres/org_repo"
)

const appRolePassword = "app-secret"

type fixture struct {
	admin      *pgxpool.Pool // superuser, for seeding and checking outside RLS
	pool       *postgres.Pool
	propagator *postgres.Propagator
	emitter    *postgres.AuditEmitter

	org    id.ID
	owner  id.ID // approved admin performing mutations
	target id.ID // pending member
}

// Run with: go test -tags=integration -timeout 180s ./internal/infrastructure/storage/postgres/...
func setupDatabase(t *testing.T) *fixture {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("orgadmin"),
		tcpostgres.WithUsername("owner"),
		tcpostgres.WithPassword("owner"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	})

	ownerDSN, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	sqlDB, err := sql.Open("pgx", ownerDSN)
	require.NoError(t, err)
	defer sqlDB.Close()
	require.NoError(t, db.Migrate(ctx, sqlDB, "up"))

	admin, err := pgxpool.New(ctx, ownerDSN)
	require.NoError(t, err)
	t.Cleanup(admin.Close)

	_, err = admin.Exec(ctx, "CREATE ROLE orgadmin_test LOGIN PASSWORD '"+appRolePassword+"' IN ROLE orgadmin_app")
	require.NoError(t, err)

	appDSN, err := url.Parse(ownerDSN)
	require.NoError(t, err)
	appDSN.User = url.UserPassword("orgadmin_test", appRolePassword)

	// A single connection makes every call reuse the same session.
	cfg := postgres.DefaultPoolConfig(appDSN.String())
	cfg.MaxConns = 1
	cfg.MinConns = 1
	pool, err := postgres.NewPool(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	emitter, err := postgres.NewAuditEmitter()
	require.NoError(t, err)

	f := &fixture{
		admin:      admin,
		pool:       pool,
		propagator: postgres.NewPropagator(pool, postgres.DefaultTxOptions()),
		emitter:    emitter,
		org:        id.New(),
		owner:      id.New(),
		target:     id.New(),
	}
	f.seed(t)
	return f
}

func (f *fixture) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	stmts := []struct {
		sql  string
		args []any
	}{
		{"INSERT INTO users (id, external_id, email) VALUES ($1, 'ext_u1', 'u1@example.com'), ($2, 'ext_u2', 'u2@example.com')",
			[]any{f.owner, f.target}},
		{"INSERT INTO organizations (id, name, slug) VALUES ($1, 'Acme', 'acme')", []any{f.org}},
		{"INSERT INTO organization_memberships (user_id, organization_id, role, status) VALUES ($1, $3, 'admin', 'approved'), ($2, $3, 'member', 'pending')",
			[]any{f.owner, f.target, f.org}},
	}
	for _, s := range stmts {
		_, err := f.admin.Exec(ctx, s.sql, s.args...)
		require.NoError(t, err)
	}
}

func (f *fixture) addPendingMember(t *testing.T, email string) id.ID {
	t.Helper()
	ctx := context.Background()
	user := id.New()
	_, err := f.admin.Exec(ctx, "INSERT INTO users (id, external_id, email) VALUES ($1, $2, $3)", user, "ext_"+user.String(), email)
	require.NoError(t, err)
	_, err = f.admin.Exec(ctx, "INSERT INTO organization_memberships (user_id, organization_id, role, status) VALUES ($1, $2, 'member', 'pending')", user, f.org)
	require.NoError(t, err)
	return user
}

func (f *fixture) status(t *testing.T, user id.ID) string {
	t.Helper()
	var status string
	err := f.admin.QueryRow(context.Background(),
		"SELECT status FROM organization_memberships WHERE user_id = $1 AND organization_id = $2", user, f.org).Scan(&status)
	require.NoError(t, err)
	return status
}

func (f *fixture) auditCount(t *testing.T, action string, target id.ID) int {
	t.Helper()
	var n int
	err := f.admin.QueryRow(context.Background(),
		"SELECT count(*) FROM audit_logs WHERE action = $1 AND target_pk = $2", action, target.String()).Scan(&n)
	require.NoError(t, err)
	return n
}

func (f *fixture) principal(mfa bool) *security.Principal {
	p := &security.Principal{
		UserID:         f.owner,
		ExternalUserID: "ext_u1",
		Email:          "u1@example.com",
		Org: &security.OrgContext{
			OrganizationID: f.org,
			Role:           security.RoleAdmin,
			Status:         security.StatusApproved,
		},
	}
	if mfa {
		at := time.Now().Add(-time.Minute)
		p.MFAVerifiedAt = &at
	}
	return p
}

func (f *fixture) adminContext(mfa bool) security.Context {
	return security.Context{
		UserID:             f.owner,
		ExternalUserID:     "ext_u1",
		ExternalEmail:      "u1@example.com",
		OrganizationID:     f.org,
		OrganizationRole:   security.RoleAdmin,
		OrganizationStatus: security.StatusApproved,
		MFASatisfied:       mfa,
	}
}

func TestIntegration_SettingsDoNotLeakAcrossRequests(t *testing.T) {
	f := setupDatabase(t)
	ctx := context.Background()

	read := func(sc security.Context) (orgID, mfa string, visible int) {
		err := f.propagator.RunWithContext(ctx, sc, func(ctx context.Context, conn tx.Conn) error {
			if err := conn.QueryRow(ctx,
				"SELECT current_setting('app.org_id', true), current_setting('app.mfa', true)").Scan(&orgID, &mfa); err != nil {
				return err
			}
			return conn.QueryRow(ctx, "SELECT count(*) FROM organization_memberships").Scan(&visible)
		})
		require.NoError(t, err)
		return orgID, mfa, visible
	}

	orgID, mfa, visible := read(f.adminContext(true))
	assert.Equal(t, f.org.String(), orgID)
	assert.Equal(t, security.MFAOn, mfa)
	assert.Equal(t, 2, visible)

	// Same physical connection, context without organization or MFA.
	orgID, mfa, visible = read(security.Context{UserID: f.target, ExternalUserID: "ext_u2"})
	assert.Empty(t, orgID)
	assert.Equal(t, security.MFAOff, mfa)
	assert.Equal(t, 1, visible, "only the caller's own membership")

	// Outside any transaction the session carries nothing.
	conn, err := f.pool.Acquire(ctx)
	require.NoError(t, err)
	defer conn.Release()
	var leaked string
	require.NoError(t, conn.QueryRow(ctx, "SELECT coalesce(current_setting('app.org_id', true), '')").Scan(&leaked))
	assert.Empty(t, leaked)
}

func TestIntegration_ApproveScenario(t *testing.T) {
	f := setupDatabase(t)
	ctx := context.Background()
	svc := membership.NewService(f.propagator, org_repo.NewMembershipRepo(), f.emitter, security.NewGate(0))

	res, err := svc.Approve(ctx, f.principal(true), f.target)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Updated)
	assert.Equal(t, "approved", f.status(t, f.target))
	assert.Equal(t, 1, f.auditCount(t, audit.ActionMembershipApprove, f.target))

	res, err = svc.Approve(ctx, f.principal(true), f.target)
	require.NoError(t, err)
	assert.Zero(t, res.Updated)
	assert.Equal(t, 1, f.auditCount(t, audit.ActionMembershipApprove, f.target))
}

func TestIntegration_ApproveWithoutMFA(t *testing.T) {
	f := setupDatabase(t)
	ctx := context.Background()
	repo := org_repo.NewMembershipRepo()
	svc := membership.NewService(f.propagator, repo, f.emitter, security.NewGate(0))

	_, err := svc.Approve(ctx, f.principal(false), f.target)
	assert.True(t, apperror.IsForbidden(err))
	assert.Equal(t, "pending", f.status(t, f.target))

	// The policy refuses the same write even when the gate is skipped.
	var n int64
	err = f.propagator.RunWithContext(ctx, f.adminContext(false), func(ctx context.Context, conn tx.Conn) error {
		var err error
		n, err = repo.Approve(ctx, conn, f.org, f.target, f.owner)
		return err
	})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, "pending", f.status(t, f.target))
}

func TestIntegration_FailedWorkLeavesNoTrace(t *testing.T) {
	f := setupDatabase(t)
	ctx := context.Background()
	repo := org_repo.NewMembershipRepo()
	pending := f.addPendingMember(t, "u3@example.com")
	errAbort := errors.New("abort after write")

	err := f.propagator.RunWithContext(ctx, f.adminContext(true), func(ctx context.Context, conn tx.Conn) error {
		n, err := repo.Approve(ctx, conn, f.org, pending, f.owner)
		require.NoError(t, err)
		require.Equal(t, int64(1), n)
		f.emitter.Record(ctx, conn, audit.Event{
			ActorUserID: f.owner,
			ActorOrgID:  f.org,
			Action:      audit.ActionMembershipApprove,
			TargetTable: "organization_memberships",
			TargetPK:    pending.String(),
		})
		return errAbort
	})

	assert.ErrorIs(t, err, errAbort)
	assert.Equal(t, "pending", f.status(t, pending))
	assert.Zero(t, f.auditCount(t, audit.ActionMembershipApprove, pending))
}

func TestIntegration_RejectedAuditRowKeepsTransaction(t *testing.T) {
	f := setupDatabase(t)
	ctx := context.Background()
	repo := org_repo.NewMembershipRepo()
	pending := f.addPendingMember(t, "u4@example.com")

	err := f.propagator.RunWithContext(ctx, f.adminContext(true), func(ctx context.Context, conn tx.Conn) error {
		// Impersonating another actor violates the insert policy.
		f.emitter.Record(ctx, conn, audit.Event{
			ActorUserID: f.target,
			ActorOrgID:  f.org,
			Action:      audit.ActionMembershipApprove,
			TargetPK:    pending.String(),
		})
		_, err := repo.Approve(ctx, conn, f.org, pending, f.owner)
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, "approved", f.status(t, pending))
	assert.Zero(t, f.auditCount(t, audit.ActionMembershipApprove, pending))
}

func TestIntegration_AuditLogIsAppendOnly(t *testing.T) {
	f := setupDatabase(t)
	ctx := context.Background()

	err := f.propagator.RunWithContext(ctx, f.adminContext(true), func(ctx context.Context, conn tx.Conn) error {
		_, err := conn.Exec(ctx, "DELETE FROM audit_logs")
		return err
	})
	assert.True(t, apperror.IsForbidden(postgres.ClassifyError(err)), "got %v", err)
}
