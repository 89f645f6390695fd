package dto

import "orgadmin/internal/domain/organization"

// UpdateOrganizationRequest for PATCH /organization.
type UpdateOrganizationRequest struct {
	Name *string `json:"name"`
}

// ToInput converts request to domain input.
func (r UpdateOrganizationRequest) ToInput() organization.UpdateInput {
	return organization.UpdateInput{Name: r.Name}
}
