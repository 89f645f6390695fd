package security

import (
	"context"
	"time"

	appctx "orgadmin/internal/core/context"
	"orgadmin/internal/core/id"
)

// OrgContext is the membership selected for the current request.
type OrgContext struct {
	OrganizationID   id.ID
	OrganizationName string
	Role             Role
	Status           Status
}

// Principal is a provisioned caller plus the organization context resolved
// for this request. Org is nil when the user has no membership.
type Principal struct {
	UserID         id.ID
	ExternalUserID string
	Email          string
	MFAVerifiedAt  *time.Time
	Org            *OrgContext
}

// ExternalContext is used before the internal user is known: only the
// provider identity is set.
func ExternalContext(identity *appctx.Identity) Context {
	if identity == nil {
		return Context{}
	}
	return Context{
		ExternalUserID: identity.ExternalUserID,
		ExternalEmail:  identity.Email,
	}
}

// UserContext carries the user but no organization.
func (p *Principal) UserContext() Context {
	if p == nil {
		return Context{}
	}
	return Context{
		UserID:         p.UserID,
		ExternalUserID: p.ExternalUserID,
		ExternalEmail:  p.Email,
	}
}

type principalKey struct{}

// WithPrincipal adds Principal to context.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// GetPrincipal returns Principal from context or nil.
func GetPrincipal(ctx context.Context) *Principal {
	if p, ok := ctx.Value(principalKey{}).(*Principal); ok {
		return p
	}
	return nil
}
