package identity

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"orgadmin/internal/core/apperror"
	appctx "orgadmin/internal/core/context"
)

// TokenConfig holds provider token verification settings. Exactly one of
// Secret (HS256) or PublicKeyPEM (RS256) is expected.
type TokenConfig struct {
	Secret       string
	PublicKeyPEM string
	Issuer       string
	Audience     string
	Leeway       time.Duration
}

// Claims are the provider token claims this service reads.
type Claims struct {
	jwt.RegisteredClaims
	Email    string           `json:"email"`
	AMR      []string         `json:"amr,omitempty"`
	AuthTime *jwt.NumericDate `json:"auth_time,omitempty"`
}

// mfaMethod is the authentication method reference for a second factor.
const mfaMethod = "mfa"

// TokenResolver verifies bearer tokens issued by the auth provider.
type TokenResolver struct {
	method jwt.SigningMethod
	key    any
	parser *jwt.Parser
}

var _ Resolver = (*TokenResolver)(nil)

// NewTokenResolver creates a token resolver from cfg.
func NewTokenResolver(cfg TokenConfig) (*TokenResolver, error) {
	opts := []jwt.ParserOption{jwt.WithExpirationRequired()}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	if cfg.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(cfg.Leeway))
	}

	r := &TokenResolver{}
	switch {
	case cfg.PublicKeyPEM != "":
		key, err := parsePublicKey(cfg.PublicKeyPEM)
		if err != nil {
			return nil, err
		}
		r.method, r.key = jwt.SigningMethodRS256, key
	case cfg.Secret != "":
		r.method, r.key = jwt.SigningMethodHS256, []byte(cfg.Secret)
	default:
		return nil, errors.New("token verification key is not configured")
	}

	r.parser = jwt.NewParser(append(opts, jwt.WithValidMethods([]string{r.method.Alg()}))...)
	return r, nil
}

func parsePublicKey(pemData string) (*rsa.PublicKey, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pemData))
	if err != nil {
		return nil, fmt.Errorf("parse token public key: %w", err)
	}
	return key, nil
}

// Resolve implements Resolver.
func (r *TokenResolver) Resolve(req *http.Request) (*appctx.Identity, error) {
	raw, ok := bearerToken(req)
	if !ok {
		return nil, apperror.NewUnauthenticated("authorization required")
	}
	return r.Verify(raw)
}

// Verify validates a raw token and returns the identity it vouches for.
func (r *TokenResolver) Verify(raw string) (*appctx.Identity, error) {
	claims := &Claims{}
	token, err := r.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return r.key, nil
	})
	if err != nil || !token.Valid {
		return nil, apperror.NewUnauthenticated("invalid or expired token").WithCause(err)
	}
	if claims.Subject == "" {
		return nil, apperror.NewUnauthenticated("token has no subject")
	}

	identity := &appctx.Identity{
		ExternalUserID: claims.Subject,
		Email:          strings.TrimSpace(claims.Email),
		Source:         appctx.IdentitySourceToken,
	}
	if slices.Contains(claims.AMR, mfaMethod) && claims.AuthTime != nil {
		at := claims.AuthTime.Time
		identity.MFAVerifiedAt = &at
	}
	return identity, nil
}

func bearerToken(req *http.Request) (string, bool) {
	header := req.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
