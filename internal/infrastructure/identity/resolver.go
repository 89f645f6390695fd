// Package identity verifies who is calling. The variant is chosen once at
// startup: provider tokens only, or provider tokens behind a header-driven
// test bypass.
package identity

import (
	"errors"
	"net/http"

	appctx "orgadmin/internal/core/context"
)

// Resolver extracts a verified identity from a request.
type Resolver interface {
	Resolve(r *http.Request) (*appctx.Identity, error)
}

// Config selects and configures the resolver.
type Config struct {
	Token TokenConfig

	// BypassEnabled turns on FixedHeaderResolver.
	BypassEnabled bool
	BypassSecret  string

	// Local relaxes the bypass secret requirement for developer machines.
	Local bool
}

// ErrBypassSecretRequired is returned when the bypass is enabled outside a
// local environment without a shared secret.
var ErrBypassSecretRequired = errors.New("test auth bypass requires a shared secret outside local environments")

// NewResolver builds the resolver for cfg.
func NewResolver(cfg Config) (Resolver, error) {
	tokens, err := NewTokenResolver(cfg.Token)
	if err != nil {
		return nil, err
	}
	if !cfg.BypassEnabled {
		return tokens, nil
	}

	secret := cfg.BypassSecret
	if !cfg.Local && secret == "" {
		return nil, ErrBypassSecretRequired
	}
	return NewFixedHeaderResolver(tokens, secret), nil
}
