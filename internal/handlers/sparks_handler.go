package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sparkreview_backend/internal/services"
)

type SparksHandler struct {
	*BaseHandler
	sparksService services.SparksService
}

func NewSparksHandler(base *BaseHandler, sparksService services.SparksService) *SparksHandler {
	return &SparksHandler{
		BaseHandler:   base,
		sparksService: sparksService,
	}
}

func (h *SparksHandler) RegisterRoutes(r *gin.RouterGroup, authMW gin.HandlerFunc) {
	sparks := r.Group("/sparks")
	sparks.Use(authMW)
	{
		sparks.GET("/balance", h.GetBalance)
		sparks.GET("/history", h.GetHistory)
		sparks.POST("/profile-bonus", h.ClaimProfileBonus)
		sparks.POST("/portfolio-bonus", h.ClaimPortfolioBonus)
	}
}

func (h *SparksHandler) GetBalance(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	resp, err := h.sparksService.GetBalance(userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *SparksHandler) GetHistory(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	page, pageSize := ParsePagination(c)

	resp, err := h.sparksService.GetHistory(userID, page, pageSize)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ClaimProfileBonus grants the one-time profile completion bonus.
// Calling it again is a no-op, not an error.
func (h *SparksHandler) ClaimProfileBonus(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	if err := h.sparksService.GrantProfileBonus(userID); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Profile bonus processed"})
}

func (h *SparksHandler) ClaimPortfolioBonus(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	if err := h.sparksService.GrantPortfolioBonus(userID); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Portfolio bonus processed"})
}
