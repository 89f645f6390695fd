// Package invitation issues, revokes and redeems organization invitations.
package invitation

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"orgadmin/internal/core/id"
	"orgadmin/internal/core/security"
	"orgadmin/internal/core/tx"
)

// DefaultTTL is how long an invitation can be accepted.
const DefaultTTL = 7 * 24 * time.Hour

// Status is the invitation lifecycle state.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRevoked  Status = "revoked"
)

// Invitation offers email a membership with Role in an organization.
type Invitation struct {
	ID             id.ID         `db:"id" json:"id"`
	OrganizationID id.ID         `db:"organization_id" json:"organizationId"`
	Email          string        `db:"email" json:"email"`
	Role           security.Role `db:"role" json:"role"`
	Status         Status        `db:"status" json:"status"`
	TokenHash      string        `db:"token_hash" json:"-"`
	InvitedBy      id.ID         `db:"invited_by" json:"invitedBy"`
	ExpiresAt      time.Time     `db:"expires_at" json:"expiresAt"`
	CreatedAt      time.Time     `db:"created_at" json:"createdAt"`
	AcceptedAt     *time.Time    `db:"accepted_at" json:"acceptedAt,omitempty"`
	RevokedAt      *time.Time    `db:"revoked_at" json:"revokedAt,omitempty"`
	RevokedBy      *id.ID        `db:"revoked_by" json:"revokedBy,omitempty"`
}

// Expired reports whether the invitation can no longer be accepted at now.
func (i *Invitation) Expired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

// Created is the result of issuing an invitation. Token is shown once;
// only its hash is stored.
type Created struct {
	Invitation *Invitation `json:"invitation"`
	Token      string      `json:"token"`
}

// NewToken returns a random token and the hash to persist.
func NewToken() (token, hash string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("generate invitation token: %w", err)
	}
	token = base64.RawURLEncoding.EncodeToString(b)
	return token, HashToken(token), nil
}

// HashToken returns the stored form of token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Repository defines invitation storage operations.
type Repository interface {
	Create(ctx context.Context, conn tx.Conn, inv *Invitation) error

	// ListByOrganization returns invitations newest first.
	ListByOrganization(ctx context.Context, conn tx.Conn, orgID id.ID) ([]Invitation, error)

	// Revoke revokes a pending invitation and returns the rows changed.
	Revoke(ctx context.Context, conn tx.Conn, orgID, invitationID, revokedBy id.ID) (int64, error)

	// GetByTokenHash returns NOT_FOUND when no visible invitation matches.
	GetByTokenHash(ctx context.Context, conn tx.Conn, hash string) (*Invitation, error)

	// MarkAccepted accepts a pending invitation and returns the rows changed.
	MarkAccepted(ctx context.Context, conn tx.Conn, invitationID id.ID) (int64, error)
}
