package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sparkreview_backend/internal/middleware"
	"sparkreview_backend/internal/models"
	"sparkreview_backend/internal/services"
	"sparkreview_backend/internal/services/dto"
)

type DisputeHandler struct {
	*BaseHandler
	disputeService services.DisputeService
}

func NewDisputeHandler(base *BaseHandler, disputeService services.DisputeService) *DisputeHandler {
	return &DisputeHandler{
		BaseHandler:    base,
		disputeService: disputeService,
	}
}

func (h *DisputeHandler) RegisterRoutes(r *gin.RouterGroup, authMW gin.HandlerFunc) {
	slots := r.Group("/slots")
	slots.Use(authMW)
	{
		slots.POST("/:slotId/dispute", middleware.RequireRoles(models.UserRoleReviewer), h.Open)
		slots.POST("/:slotId/dispute/resolve", middleware.RequireRoles(models.UserRoleAdmin), h.Resolve)
	}
}

func (h *DisputeHandler) Open(c *gin.Context) {
	reviewerID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.OpenDisputeRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	slot, err := h.disputeService.Open(c.Param("slotId"), reviewerID, req.Note)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewSlotResponse(slot))
}

func (h *DisputeHandler) Resolve(c *gin.Context) {
	adjudicatorID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.ResolveDisputeRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	slot, err := h.disputeService.Resolve(c.Param("slotId"), adjudicatorID, models.DisputeOutcome(req.Outcome))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewSlotResponse(slot))
}
