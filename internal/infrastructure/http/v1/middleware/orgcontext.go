package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"orgadmin/internal/core/apperror"
	appctx "orgadmin/internal/core/context"
	"orgadmin/internal/core/id"
	"orgadmin/internal/core/security"
	"orgadmin/internal/domain/orgcontext"
	"orgadmin/internal/infrastructure/orghint"
	"orgadmin/pkg/logger"
)

// OrgResolver maps an identity and a hint to a principal.
// Implemented by orgcontext.Resolver.
type OrgResolver interface {
	Resolve(ctx context.Context, identity *appctx.Identity, hint orgcontext.Hint) (*orgcontext.Result, error)
}

// OrgContextOptions controls hint handling.
type OrgContextOptions struct {
	// AllowQueryHint accepts the org_id query parameter. Off in production.
	AllowQueryHint bool

	// PersistHint writes the selected organization back as a signed cookie.
	PersistHint bool

	// SecureCookie marks the hint cookie Secure.
	SecureCookie bool
}

// OrgContext middleware resolves the caller's principal and organization.
// Must run after Identity.
func OrgContext(resolver OrgResolver, codec *orghint.Codec, opts OrgContextOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		identity := appctx.GetIdentity(ctx)
		if identity == nil {
			_ = c.Error(apperror.NewUnauthenticated("authentication required"))
			c.Abort()
			return
		}

		hint := orghint.FromRequest(c.Request, codec, opts.AllowQueryHint)

		res, err := resolver.Resolve(ctx, identity, hint)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(security.WithPrincipal(ctx, res.Principal))
		c.Set("user_id", res.Principal.UserID.String())

		if opts.PersistHint && !id.IsNil(res.HintToPersist) {
			persistHint(c, codec, res.HintToPersist, opts.SecureCookie)
		}

		c.Next()
	}
}

func persistHint(c *gin.Context, codec *orghint.Codec, orgID id.ID, secure bool) {
	cookie, err := codec.Cookie(orgID, secure)
	if err != nil {
		logger.Warn(c.Request.Context(), "organization hint not persisted", "error", err)
		return
	}
	http.SetCookie(c.Writer, cookie)
}
