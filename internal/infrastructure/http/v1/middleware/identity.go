package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appctx "orgadmin/internal/core/context"
)

// IdentityResolver verifies who is calling. Implemented by identity.Resolver.
type IdentityResolver interface {
	Resolve(r *http.Request) (*appctx.Identity, error)
}

// Identity middleware authenticates the request and stores the verified
// identity in the request context. Failures abort with the resolver's error.
func Identity(resolver IdentityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := resolver.Resolve(c.Request)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(appctx.WithIdentity(c.Request.Context(), identity))
		c.Set("external_user_id", identity.ExternalUserID)

		c.Next()
	}
}
