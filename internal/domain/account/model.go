// Package account holds application users provisioned from the auth provider.
package account

import (
	"context"
	"time"

	"orgadmin/internal/core/id"
	"orgadmin/internal/core/tx"
)

// User is an application account linked to an external identity.
type User struct {
	ID          id.ID     `db:"id" json:"id"`
	ExternalID  string    `db:"external_id" json:"externalId"`
	Email       string    `db:"email" json:"email"`
	DisplayName *string   `db:"display_name" json:"displayName,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// Repository defines user storage operations.
type Repository interface {
	// GetByExternalID returns NOT_FOUND when no account is linked to externalID.
	GetByExternalID(ctx context.Context, conn tx.Conn, externalID string) (*User, error)
}
