package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"orgadmin/internal/core/security"
	"orgadmin/internal/domain/organization"
	"orgadmin/internal/infrastructure/http/v1/dto"
)

// OrganizationService is implemented by organization.Service.
type OrganizationService interface {
	Get(ctx context.Context, p *security.Principal) (*organization.Organization, error)
	Update(ctx context.Context, p *security.Principal, in organization.UpdateInput) (*organization.Organization, error)
}

// OrganizationHandler handles the caller's organization settings.
type OrganizationHandler struct {
	*BaseHandler
	service OrganizationService
}

// NewOrganizationHandler creates a new organization handler.
func NewOrganizationHandler(base *BaseHandler, service OrganizationService) *OrganizationHandler {
	return &OrganizationHandler{BaseHandler: base, service: service}
}

// Get handles GET /organization
func (h *OrganizationHandler) Get(c *gin.Context) {
	org, err := h.service.Get(c.Request.Context(), h.Principal(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, org)
}

// Update handles PATCH /organization
func (h *OrganizationHandler) Update(c *gin.Context) {
	var req dto.UpdateOrganizationRequest
	if !h.BindJSON(c, &req) {
		return
	}

	org, err := h.service.Update(c.Request.Context(), h.Principal(c), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, org)
}
