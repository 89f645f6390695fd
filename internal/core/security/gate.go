package security

import (
	"time"

	"orgadmin/internal/core/apperror"
)

// DefaultMFAWindow is how long a second-factor verification stays fresh.
const DefaultMFAWindow = 10 * time.Minute

// Gate turns a Principal into the Context a caller may run under. Checks
// run in a fixed order: organization context, role, status, MFA. The first
// failure is returned; nothing is downgraded silently.
type Gate struct {
	MFAWindow time.Duration
	Now       func() time.Time
}

// NewGate creates a gate. A non-positive window falls back to DefaultMFAWindow.
func NewGate(window time.Duration) *Gate {
	if window <= 0 {
		window = DefaultMFAWindow
	}
	return &Gate{MFAWindow: window, Now: time.Now}
}

// Baseline returns the principal's context with the MFA flag off.
// Use it for reads that need no role.
func (g *Gate) Baseline(p *Principal) Context {
	c := p.UserContext()
	if p.Org != nil {
		c.OrganizationID = p.Org.OrganizationID
		c.OrganizationRole = p.Org.Role
		c.OrganizationStatus = p.Org.Status
	}
	return c
}

// RequireMember requires an approved membership of any role.
func (g *Gate) RequireMember(p *Principal) (Context, error) {
	if err := requireOrg(p); err != nil {
		return Context{}, err
	}
	if err := requireApproved(p); err != nil {
		return Context{}, err
	}
	return g.Baseline(p), nil
}

// RequireAdmin requires an approved admin or owner membership.
func (g *Gate) RequireAdmin(p *Principal) (Context, error) {
	if err := requireOrg(p); err != nil {
		return Context{}, err
	}
	if !p.Org.Role.AtLeast(RoleAdmin) {
		return Context{}, apperror.NewForbidden("admin role required").
			WithDetail("reason", "role").
			WithDetail("role", p.Org.Role)
	}
	if err := requireApproved(p); err != nil {
		return Context{}, err
	}
	return g.Baseline(p), nil
}

// RequirePrivileged is RequireAdmin plus a fresh MFA verification. It is the
// only way to obtain a Context with MFASatisfied set.
func (g *Gate) RequirePrivileged(p *Principal) (Context, error) {
	c, err := g.RequireAdmin(p)
	if err != nil {
		return Context{}, err
	}
	if !g.MFAFresh(p) {
		return Context{}, apperror.NewForbidden("recent multi-factor verification required").
			WithDetail("reason", "mfa")
	}
	c.MFASatisfied = true
	return c, nil
}

// MFAFresh reports whether p verified a second factor within the window.
// Verification times in the future are rejected.
func (g *Gate) MFAFresh(p *Principal) bool {
	if p == nil || p.MFAVerifiedAt == nil {
		return false
	}
	now := g.now()
	at := *p.MFAVerifiedAt
	if at.After(now) {
		return false
	}
	return now.Sub(at) <= g.MFAWindow
}

func (g *Gate) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

func requireOrg(p *Principal) error {
	if p == nil {
		return apperror.NewUnauthenticated("authentication required")
	}
	if p.Org == nil {
		return apperror.NewNoOrganizationContext()
	}
	return nil
}

func requireApproved(p *Principal) error {
	if p.Org.Status != StatusApproved {
		return apperror.NewForbidden("membership is not approved").
			WithDetail("reason", "status").
			WithDetail("status", p.Org.Status)
	}
	return nil
}
