package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"orgadmin/internal/core/id"
	"orgadmin/internal/core/security"
	"orgadmin/internal/domain/invitation"
	"orgadmin/internal/domain/membership"
	"orgadmin/internal/infrastructure/http/v1/dto"
)

// InvitationService is implemented by invitation.Service.
type InvitationService interface {
	Create(ctx context.Context, p *security.Principal, in invitation.CreateInput) (*invitation.Created, error)
	List(ctx context.Context, p *security.Principal) ([]invitation.Invitation, error)
	Revoke(ctx context.Context, p *security.Principal, invitationID id.ID) (membership.Result, error)
	Accept(ctx context.Context, p *security.Principal, token string) (*membership.Membership, error)
}

// InvitationHandler handles invitation endpoints.
type InvitationHandler struct {
	*BaseHandler
	service InvitationService
}

// NewInvitationHandler creates a new invitation handler.
func NewInvitationHandler(base *BaseHandler, service InvitationService) *InvitationHandler {
	return &InvitationHandler{BaseHandler: base, service: service}
}

// RegisterRoutes registers invitation routes.
func (h *InvitationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.POST("/accept", h.Accept)
	rg.POST("/:id/revoke", h.Revoke)
}

// Create handles POST /invitations
func (h *InvitationHandler) Create(c *gin.Context) {
	var req dto.CreateInvitationRequest
	if !h.BindJSON(c, &req) {
		return
	}

	created, err := h.service.Create(c.Request.Context(), h.Principal(c), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, created)
}

// List handles GET /invitations
func (h *InvitationHandler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context(), h.Principal(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(items))
}

// Revoke handles POST /invitations/:id/revoke
func (h *InvitationHandler) Revoke(c *gin.Context) {
	invitationID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	res, err := h.service.Revoke(c.Request.Context(), h.Principal(c), invitationID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromResult(res))
}

// Accept handles POST /invitations/accept
func (h *InvitationHandler) Accept(c *gin.Context) {
	var req dto.AcceptInvitationRequest
	if !h.BindJSON(c, &req) {
		return
	}

	m, err := h.service.Accept(c.Request.Context(), h.Principal(c), req.Token)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, m)
}
