package membership_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orgadmin/internal/core/apperror"
	"orgadmin/internal/core/id"
	"orgadmin/internal/core/security"
	"orgadmin/internal/core/tx"
	"orgadmin/internal/core/tx/txtest"
	"orgadmin/internal/domain/audit"
	"orgadmin/internal/domain/membership"
)

type key struct{ org, user id.ID }

type memRepo struct {
	mu     sync.Mutex
	rows   map[key]*membership.Membership
	writes int
}

func newMemRepo(ms ...membership.Membership) *memRepo {
	r := &memRepo{rows: make(map[key]*membership.Membership)}
	for i := range ms {
		m := ms[i]
		r.rows[key{m.OrganizationID, m.UserID}] = &m
	}
	return r
}

func (r *memRepo) ListForUser(_ context.Context, _ tx.Conn, userID id.ID) ([]membership.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []membership.Membership
	for k, m := range r.rows {
		if k.user == userID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *memRepo) ListByOrganization(_ context.Context, _ tx.Conn, orgID id.ID) ([]membership.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []membership.Membership
	for k, m := range r.rows {
		if k.org == orgID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *memRepo) Get(_ context.Context, _ tx.Conn, orgID, userID id.ID) (*membership.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.rows[key{orgID, userID}]
	if !ok {
		return nil, apperror.NewNotFound("membership", userID.String())
	}
	cp := *m
	return &cp, nil
}

func (r *memRepo) Approve(_ context.Context, _ tx.Conn, orgID, userID, approvedBy id.ID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.rows[key{orgID, userID}]
	if !ok || m.Status != security.StatusPending {
		return 0, nil
	}
	now := time.Now()
	m.Status = security.StatusApproved
	m.ApprovedAt = &now
	m.ApprovedBy = &approvedBy
	r.writes++
	return 1, nil
}

func (r *memRepo) Block(_ context.Context, _ tx.Conn, orgID, userID id.ID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.rows[key{orgID, userID}]
	if !ok || m.Status == security.StatusBlocked || m.Role == security.RoleOwner {
		return 0, nil
	}
	m.Status = security.StatusBlocked
	r.writes++
	return 1, nil
}

func (r *memRepo) Create(_ context.Context, _ tx.Conn, m *membership.Membership) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[key{m.OrganizationID, m.UserID}] = m
	r.writes++
	return nil
}

func (r *memRepo) status(orgID, userID id.ID) security.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[key{orgID, userID}].Status
}

type fixture struct {
	runner   *txtest.Runner
	repo     *memRepo
	recorder *txtest.AuditRecorder
	svc      *membership.Service
	org      id.ID
	admin    id.ID
	target   id.ID
	owner    id.ID
	now      time.Time
}

func newFixture() *fixture {
	f := &fixture{
		runner:   &txtest.Runner{},
		recorder: &txtest.AuditRecorder{},
		org:      id.New(),
		admin:    id.New(),
		target:   id.New(),
		owner:    id.New(),
		now:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.repo = newMemRepo(
		membership.Membership{UserID: f.admin, OrganizationID: f.org, Role: security.RoleAdmin, Status: security.StatusApproved},
		membership.Membership{UserID: f.target, OrganizationID: f.org, Role: security.RoleMember, Status: security.StatusPending},
		membership.Membership{UserID: f.owner, OrganizationID: f.org, Role: security.RoleOwner, Status: security.StatusApproved},
	)
	gate := security.NewGate(10 * time.Minute)
	gate.Now = func() time.Time { return f.now }
	f.svc = membership.NewService(f.runner, f.repo, f.recorder, gate)
	return f
}

func (f *fixture) adminPrincipal(mfaAgo time.Duration) *security.Principal {
	p := &security.Principal{
		UserID:         f.admin,
		ExternalUserID: "ext_admin",
		Email:          "admin@example.com",
		Org: &security.OrgContext{
			OrganizationID: f.org,
			Role:           security.RoleAdmin,
			Status:         security.StatusApproved,
		},
	}
	if mfaAgo >= 0 {
		at := f.now.Add(-mfaAgo)
		p.MFAVerifiedAt = &at
	}
	return p
}

func TestApprove_PendingMemberIsApprovedOnceAndAudited(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := f.adminPrincipal(time.Minute)

	res, err := f.svc.Approve(ctx, p, f.target)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Updated)
	assert.Equal(t, security.StatusApproved, f.repo.status(f.org, f.target))

	events := f.recorder.Events()
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionMembershipApprove, events[0].Action)
	assert.Equal(t, f.admin, events[0].ActorUserID)
	assert.Equal(t, f.org, events[0].ActorOrgID)
	assert.Equal(t, f.target.String(), events[0].TargetPK)

	calls := f.runner.Calls()
	require.Len(t, calls, 1)
	assert.True(t, calls[0].MFASatisfied)
	assert.Equal(t, f.org, calls[0].OrganizationID)

	again, err := f.svc.Approve(ctx, p, f.target)
	require.NoError(t, err)
	assert.Equal(t, int64(0), again.Updated)
	assert.Len(t, f.recorder.Events(), 1, "repeat must not add an audit row")
}

func TestApprove_WithoutMFARejectedBeforeAnyWrite(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Approve(context.Background(), f.adminPrincipal(-1), f.target)

	assert.True(t, apperror.IsForbidden(err))
	assert.Empty(t, f.runner.Calls(), "runner must not be reached")
	assert.Zero(t, f.repo.writes)
	assert.Equal(t, security.StatusPending, f.repo.status(f.org, f.target))
	assert.Empty(t, f.recorder.Events())
}

func TestApprove_StaleMFARejected(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Approve(context.Background(), f.adminPrincipal(11*time.Minute), f.target)

	assert.True(t, apperror.IsForbidden(err))
	assert.Empty(t, f.runner.Calls())
}

func TestApprove_MemberRoleRejected(t *testing.T) {
	f := newFixture()
	p := f.adminPrincipal(time.Minute)
	p.Org.Role = security.RoleMember

	_, err := f.svc.Approve(context.Background(), p, f.target)

	assert.True(t, apperror.IsForbidden(err))
	assert.Empty(t, f.runner.Calls())
}

func TestApprove_RunnerErrorPropagates(t *testing.T) {
	f := newFixture()
	f.runner.Err = apperror.NewPoolExhausted(nil)

	_, err := f.svc.Approve(context.Background(), f.adminPrincipal(time.Minute), f.target)

	assert.True(t, apperror.HasCode(err, apperror.CodePoolExhausted))
}

func TestBlock(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := f.adminPrincipal(time.Minute)

	res, err := f.svc.Block(ctx, p, f.target)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Updated)
	assert.Equal(t, security.StatusBlocked, f.repo.status(f.org, f.target))
	require.Len(t, f.recorder.Events(), 1)
	assert.Equal(t, audit.ActionMembershipBlock, f.recorder.Events()[0].Action)

	res, err = f.svc.Block(ctx, p, f.target)
	require.NoError(t, err)
	assert.Zero(t, res.Updated)
	assert.Len(t, f.recorder.Events(), 1)
}

func TestBlock_Refusals(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := f.adminPrincipal(time.Minute)

	_, err := f.svc.Block(ctx, p, f.owner)
	assert.True(t, apperror.IsForbidden(err))

	_, err = f.svc.Block(ctx, p, f.admin)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = f.svc.Block(ctx, p, id.New())
	assert.True(t, apperror.IsNotFound(err))

	assert.Empty(t, f.recorder.Events())
}

func TestList_RequiresApprovedMembership(t *testing.T) {
	f := newFixture()
	p := f.adminPrincipal(-1)

	members, err := f.svc.List(context.Background(), p)
	require.NoError(t, err)
	assert.Len(t, members, 3)
	assert.False(t, f.runner.Calls()[0].MFASatisfied)

	p.Org.Status = security.StatusPending
	_, err = f.svc.List(context.Background(), p)
	assert.True(t, apperror.IsForbidden(err))

	_, err = f.svc.List(context.Background(), &security.Principal{UserID: f.admin})
	assert.True(t, apperror.HasCode(err, apperror.CodeNoOrganizationContext))
}
