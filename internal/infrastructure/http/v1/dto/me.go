package dto

import (
	"time"

	"orgadmin/internal/core/security"
)

// OrganizationContextResponse is the organization selected for the request.
type OrganizationContextResponse struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Role   security.Role   `json:"role"`
	Status security.Status `json:"status"`
}

// MeResponse describes the caller.
type MeResponse struct {
	UserID         string                       `json:"userId"`
	ExternalUserID string                       `json:"externalUserId"`
	Email          string                       `json:"email"`
	MFAVerifiedAt  *time.Time                   `json:"mfaVerifiedAt,omitempty"`
	MFAFresh       bool                         `json:"mfaFresh"`
	Organization   *OrganizationContextResponse `json:"organization"`
}

// FromPrincipal creates MeResponse from a resolved principal.
func FromPrincipal(p *security.Principal, mfaFresh bool) MeResponse {
	resp := MeResponse{
		UserID:         p.UserID.String(),
		ExternalUserID: p.ExternalUserID,
		Email:          p.Email,
		MFAVerifiedAt:  p.MFAVerifiedAt,
		MFAFresh:       mfaFresh,
	}
	if p.Org != nil {
		resp.Organization = &OrganizationContextResponse{
			ID:     p.Org.OrganizationID.String(),
			Name:   p.Org.OrganizationName,
			Role:   p.Org.Role,
			Status: p.Org.Status,
		}
	}
	return resp
}
