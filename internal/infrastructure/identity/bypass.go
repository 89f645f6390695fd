package identity

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	appctx "orgadmin/internal/core/context"
)

// Test bypass headers.
const (
	HeaderTestUserID       = "X-Test-User-Id"
	HeaderTestUserEmail    = "X-Test-User-Email"
	HeaderTestMFA          = "X-Test-MFA"
	HeaderTestBypassSecret = "X-Test-Bypass-Secret"
)

// FixedHeaderResolver takes the identity from test headers. It only exists
// when the bypass is enabled at startup. When a secret is configured the
// override is honoured only if the request presents it; otherwise the
// request falls through to next.
type FixedHeaderResolver struct {
	next   Resolver
	secret []byte
	now    func() time.Time
}

var _ Resolver = (*FixedHeaderResolver)(nil)

// NewFixedHeaderResolver creates a bypass resolver. An empty secret is
// accepted only in local environments; NewResolver enforces that.
func NewFixedHeaderResolver(next Resolver, secret string) *FixedHeaderResolver {
	return &FixedHeaderResolver{next: next, secret: []byte(secret), now: time.Now}
}

// Resolve implements Resolver.
func (r *FixedHeaderResolver) Resolve(req *http.Request) (*appctx.Identity, error) {
	userID := strings.TrimSpace(req.Header.Get(HeaderTestUserID))
	if userID == "" || !r.secretMatches(req) {
		return r.next.Resolve(req)
	}

	identity := &appctx.Identity{
		ExternalUserID: userID,
		Email:          strings.TrimSpace(req.Header.Get(HeaderTestUserEmail)),
		Source:         appctx.IdentitySourceBypass,
	}
	if mfaFlag(req.Header.Get(HeaderTestMFA)) {
		now := r.now()
		identity.MFAVerifiedAt = &now
	}
	return identity, nil
}

func (r *FixedHeaderResolver) secretMatches(req *http.Request) bool {
	if len(r.secret) == 0 {
		return true
	}
	presented := []byte(req.Header.Get(HeaderTestBypassSecret))
	return subtle.ConstantTimeCompare(presented, r.secret) == 1
}

func mfaFlag(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}
