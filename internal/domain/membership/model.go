// Package membership manages users' memberships in organizations.
package membership

import (
	"context"
	"time"

	"orgadmin/internal/core/id"
	"orgadmin/internal/core/security"
	"orgadmin/internal/core/tx"
)

// Membership links a user to an organization with a role and a status.
type Membership struct {
	UserID           id.ID           `db:"user_id" json:"userId"`
	OrganizationID   id.ID           `db:"organization_id" json:"organizationId"`
	OrganizationName string          `db:"organization_name" json:"organizationName,omitempty"`
	Email            string          `db:"email" json:"email,omitempty"`
	DisplayName      *string         `db:"display_name" json:"displayName,omitempty"`
	Role             security.Role   `db:"role" json:"role"`
	Status           security.Status `db:"status" json:"status"`
	ApprovedAt       *time.Time      `db:"approved_at" json:"approvedAt,omitempty"`
	ApprovedBy       *id.ID          `db:"approved_by" json:"approvedBy,omitempty"`
	CreatedAt        time.Time       `db:"created_at" json:"createdAt"`
}

// Result reports how many memberships a mutation changed.
type Result struct {
	Updated int64 `json:"updated"`
}

// Repository defines membership storage operations.
type Repository interface {
	// ListForUser returns every membership of userID with organization names.
	ListForUser(ctx context.Context, conn tx.Conn, userID id.ID) ([]Membership, error)

	// ListByOrganization returns the organization's members with their emails.
	ListByOrganization(ctx context.Context, conn tx.Conn, orgID id.ID) ([]Membership, error)

	// Get returns NOT_FOUND when the user is not a member of orgID.
	Get(ctx context.Context, conn tx.Conn, orgID, userID id.ID) (*Membership, error)

	// Approve moves a pending membership to approved and returns the rows changed.
	Approve(ctx context.Context, conn tx.Conn, orgID, userID, approvedBy id.ID) (int64, error)

	// Block blocks a non-owner membership and returns the rows changed.
	Block(ctx context.Context, conn tx.Conn, orgID, userID id.ID) (int64, error)

	// Create inserts a membership.
	Create(ctx context.Context, conn tx.Conn, m *Membership) error
}
