package dto

import (
	"orgadmin/internal/core/security"
	"orgadmin/internal/domain/invitation"
)

// CreateInvitationRequest for inviting a user by email.
type CreateInvitationRequest struct {
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role"`
}

// ToInput converts request to domain input.
func (r CreateInvitationRequest) ToInput() invitation.CreateInput {
	return invitation.CreateInput{Email: r.Email, Role: security.Role(r.Role)}
}

// AcceptInvitationRequest carries the token from the invitation link.
type AcceptInvitationRequest struct {
	Token string `json:"token" binding:"required"`
}
