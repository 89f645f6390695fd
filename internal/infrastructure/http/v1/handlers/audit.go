package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"orgadmin/internal/core/security"
	"orgadmin/internal/domain/audit"
	"orgadmin/internal/infrastructure/http/v1/dto"
)

// AuditService is implemented by audit.Service.
type AuditService interface {
	List(ctx context.Context, p *security.Principal, limit int) ([]audit.Entry, error)
}

// AuditHandler exposes the organization's audit trail.
type AuditHandler struct {
	*BaseHandler
	service AuditService
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(base *BaseHandler, service AuditService) *AuditHandler {
	return &AuditHandler{BaseHandler: base, service: service}
}

// List handles GET /audit-events?limit=N
func (h *AuditHandler) List(c *gin.Context) {
	entries, err := h.service.List(c.Request.Context(), h.Principal(c), h.ParseIntQuery(c, "limit", 0))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(entries))
}
