package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"orgadmin/internal/core/id"
	"orgadmin/internal/core/security"
	"orgadmin/internal/domain/membership"
	"orgadmin/internal/infrastructure/http/v1/dto"
)

// MembershipService is implemented by membership.Service.
type MembershipService interface {
	List(ctx context.Context, p *security.Principal) ([]membership.Membership, error)
	Approve(ctx context.Context, p *security.Principal, target id.ID) (membership.Result, error)
	Block(ctx context.Context, p *security.Principal, target id.ID) (membership.Result, error)
}

// MembershipHandler handles membership administration.
type MembershipHandler struct {
	*BaseHandler
	service MembershipService
}

// NewMembershipHandler creates a new membership handler.
func NewMembershipHandler(base *BaseHandler, service MembershipService) *MembershipHandler {
	return &MembershipHandler{BaseHandler: base, service: service}
}

// RegisterRoutes registers membership routes.
func (h *MembershipHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("/:userId/approve", h.Approve)
	rg.POST("/:userId/block", h.Block)
}

// List handles GET /memberships
func (h *MembershipHandler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context(), h.Principal(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(items))
}

// Approve handles POST /memberships/:userId/approve
func (h *MembershipHandler) Approve(c *gin.Context) {
	target, ok := h.ParseIDParam(c, "userId")
	if !ok {
		return
	}

	res, err := h.service.Approve(c.Request.Context(), h.Principal(c), target)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromResult(res))
}

// Block handles POST /memberships/:userId/block
func (h *MembershipHandler) Block(c *gin.Context) {
	target, ok := h.ParseIDParam(c, "userId")
	if !ok {
		return
	}

	res, err := h.service.Block(c.Request.Context(), h.Principal(c), target)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromResult(res))
}
