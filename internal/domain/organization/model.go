// Package organization exposes the settings of the caller's organization.
package organization

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"orgadmin/internal/core/apperror"
	"orgadmin/internal/core/id"
	"orgadmin/internal/core/tx"
)

const maxNameLength = 200

// Organization is a tenant.
type Organization struct {
	ID        id.ID     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Slug      string    `db:"slug" json:"slug"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// UpdateInput holds the mutable fields. Nil fields are left unchanged.
type UpdateInput struct {
	Name *string `json:"name"`
}

// Validate normalizes and checks the input.
func (in *UpdateInput) Validate() error {
	if in.Name == nil {
		return apperror.NewValidation("nothing to update")
	}
	name := strings.TrimSpace(*in.Name)
	if name == "" {
		return apperror.NewValidation("name is required").WithDetail("field", "name")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return apperror.NewValidation("name is too long").
			WithDetail("field", "name").
			WithDetail("max", maxNameLength)
	}
	in.Name = &name
	return nil
}

// Repository defines organization storage operations.
type Repository interface {
	// Get returns NOT_FOUND when the organization is not visible.
	Get(ctx context.Context, conn tx.Conn, orgID id.ID) (*Organization, error)

	// UpdateName returns NOT_FOUND when no visible row was updated.
	UpdateName(ctx context.Context, conn tx.Conn, orgID id.ID, name string) (*Organization, error)
}
