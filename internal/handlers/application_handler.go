package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sparkreview_backend/internal/middleware"
	"sparkreview_backend/internal/models"
	"sparkreview_backend/internal/services"
	"sparkreview_backend/internal/services/dto"
)

type ApplicationHandler struct {
	*BaseHandler
	claimService services.ClaimService
}

func NewApplicationHandler(base *BaseHandler, claimService services.ClaimService) *ApplicationHandler {
	return &ApplicationHandler{
		BaseHandler:  base,
		claimService: claimService,
	}
}

func (h *ApplicationHandler) RegisterRoutes(r *gin.RouterGroup, authMW gin.HandlerFunc) {
	applications := r.Group("/applications")
	applications.Use(authMW)
	{
		applications.POST("", middleware.RequireRoles(models.UserRoleReviewer), h.Apply)
		applications.POST("/:applicationId/accept", h.Accept)
		applications.POST("/:applicationId/reject", h.Reject)
		applications.POST("/:applicationId/withdraw", middleware.RequireRoles(models.UserRoleReviewer), h.Withdraw)
	}
}

func (h *ApplicationHandler) Apply(c *gin.Context) {
	applicantID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.ApplyRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	app, err := h.claimService.Apply(applicantID, req.RequestID, req.Pitch)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, applicationToResponse(app))
}

func (h *ApplicationHandler) Accept(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	slot, err := h.claimService.AcceptApplication(c.Param("applicationId"), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewSlotResponse(slot))
}

func (h *ApplicationHandler) Reject(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	if err := h.claimService.RejectApplication(c.Param("applicationId"), userID); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Application rejected"})
}

func (h *ApplicationHandler) Withdraw(c *gin.Context) {
	applicantID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	if err := h.claimService.WithdrawApplication(c.Param("applicationId"), applicantID); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Application withdrawn"})
}

func applicationToResponse(app *models.SlotApplication) *dto.ApplicationResponse {
	return &dto.ApplicationResponse{
		ID:          app.ID,
		RequestID:   app.RequestID,
		ApplicantID: app.ApplicantID,
		Pitch:       app.Pitch,
		Status:      string(app.Status),
		SlotID:      app.SlotID,
		DecidedAt:   app.DecidedAt,
		CreatedAt:   app.CreatedAt,
	}
}
