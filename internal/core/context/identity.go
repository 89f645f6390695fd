// Package context provides request-scoped values extraction.
package context

import (
	"context"
	"time"
)

// IdentitySource tells which resolver produced an Identity.
type IdentitySource string

const (
	IdentitySourceToken  IdentitySource = "token"
	IdentitySourceBypass IdentitySource = "test_bypass"
)

// Identity is what the auth provider vouches for: nothing here has been
// matched against the application's own user table yet.
type Identity struct {
	ExternalUserID string
	Email          string

	// MFAVerifiedAt is the last time the provider saw a second factor.
	// Nil means never, which every MFA gate treats as not satisfied.
	MFAVerifiedAt *time.Time

	Source IdentitySource
}

type identityKey struct{}

// WithIdentity adds Identity to context.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// GetIdentity returns Identity from context or nil.
func GetIdentity(ctx context.Context) *Identity {
	if v, ok := ctx.Value(identityKey{}).(*Identity); ok {
		return v
	}
	return nil
}
