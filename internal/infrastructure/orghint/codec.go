// Package orghint reads and writes the client's organization hint.
package orghint

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"

	"orgadmin/internal/core/id"
)

// Cookie name and lifetime.
const (
	CookieName = "orgadmin_org"
	CookieTTL  = 24 * time.Hour
)

const hkdfInfo = "orgadmin org-hint cookie v1"

type hintClaims struct {
	jwt.RegisteredClaims
	Org string `json:"org"`
}

// Codec signs and verifies hint cookie values.
type Codec struct {
	key []byte
	now func() time.Time
}

// NewCodec derives the signing key from secret.
func NewCodec(secret string) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("org hint secret is empty")
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(hkdfInfo)), key); err != nil {
		return nil, fmt.Errorf("derive org hint key: %w", err)
	}

	return &Codec{key: key, now: time.Now}, nil
}

// Encode returns a signed value naming orgID.
func (c *Codec) Encode(orgID id.ID) (string, error) {
	now := c.now()
	claims := hintClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(CookieTTL)),
		},
		Org: orgID.String(),
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("sign org hint: %w", err)
	}
	return s, nil
}

// Decode verifies value and returns the organization it names.
func (c *Codec) Decode(value string) (id.ID, error) {
	claims := &hintClaims{}
	_, err := jwt.ParseWithClaims(value, claims, func(*jwt.Token) (any, error) {
		return c.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return id.ID{}, fmt.Errorf("verify org hint: %w", err)
	}
	orgID, err := id.Parse(claims.Org)
	if err != nil {
		return id.ID{}, fmt.Errorf("parse org hint: %w", err)
	}
	return orgID, nil
}

// Cookie builds the http-only, same-site-lax hint cookie.
func (c *Codec) Cookie(orgID id.ID, secure bool) (*http.Cookie, error) {
	value, err := c.Encode(orgID)
	if err != nil {
		return nil, err
	}
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(CookieTTL / time.Second),
		Expires:  c.now().Add(CookieTTL),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}, nil
}
