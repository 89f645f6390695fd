package handlers

import (
	"github.com/gin-gonic/gin"

	"orgadmin/internal/core/apperror"
	"orgadmin/internal/core/security"
	"orgadmin/internal/infrastructure/http/v1/dto"
)

// MeHandler describes the caller.
type MeHandler struct {
	*BaseHandler
	gate *security.Gate
}

// NewMeHandler creates a new me handler.
func NewMeHandler(base *BaseHandler, gate *security.Gate) *MeHandler {
	return &MeHandler{BaseHandler: base, gate: gate}
}

// Get handles GET /me
func (h *MeHandler) Get(c *gin.Context) {
	p := h.Principal(c)
	if p == nil {
		h.Error(c, apperror.NewUnauthenticated("authentication required"))
		return
	}
	h.OK(c, dto.FromPrincipal(p, h.gate.MFAFresh(p)))
}
