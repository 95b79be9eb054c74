package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sparkreview_backend/internal/middleware"
	"sparkreview_backend/internal/models"
	"sparkreview_backend/internal/services"
	"sparkreview_backend/internal/services/dto"
)

type SlotHandler struct {
	*BaseHandler
	claimService     services.ClaimService
	lifecycleService services.LifecycleService
}

func NewSlotHandler(
	base *BaseHandler,
	claimService services.ClaimService,
	lifecycleService services.LifecycleService,
) *SlotHandler {
	return &SlotHandler{
		BaseHandler:      base,
		claimService:     claimService,
		lifecycleService: lifecycleService,
	}
}

func (h *SlotHandler) RegisterRoutes(r *gin.RouterGroup, authMW gin.HandlerFunc) {
	requests := r.Group("/requests")
	requests.Use(authMW)
	{
		requests.POST("/:requestId/claim", middleware.RequireRoles(models.UserRoleReviewer), h.Claim)
	}

	slots := r.Group("/slots")
	slots.Use(authMW)
	{
		slots.POST("/:slotId/submit", middleware.RequireRoles(models.UserRoleReviewer), h.Submit)
		slots.POST("/:slotId/accept", h.Accept)
		slots.POST("/:slotId/reject", h.Reject)
	}
}

// Claim assigns the caller the first open slot of the request. Fails
// with 409 when the request has no capacity left.
func (h *SlotHandler) Claim(c *gin.Context) {
	reviewerID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	slot, err := h.claimService.ClaimSlot(c.Param("requestId"), reviewerID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewSlotResponse(slot))
}

func (h *SlotHandler) Submit(c *gin.Context) {
	reviewerID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.SubmitReviewRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	slot, err := h.lifecycleService.Submit(c.Param("slotId"), reviewerID, req.Content)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewSlotResponse(slot))
}

func (h *SlotHandler) Accept(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.AcceptReviewRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	slot, err := h.lifecycleService.Accept(c.Param("slotId"), userID, &req.Rating, models.AcceptanceManual)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewSlotResponse(slot))
}

func (h *SlotHandler) Reject(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.RejectReviewRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	slot, err := h.lifecycleService.Reject(c.Param("slotId"), userID, req.Reason, req.Notes)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewSlotResponse(slot))
}
