package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sparkreview_backend/internal/middleware"
	"sparkreview_backend/internal/models"
	"sparkreview_backend/internal/services"
	"sparkreview_backend/internal/services/dto"
)

type RequestHandler struct {
	*BaseHandler
	requestService services.RequestService
}

func NewRequestHandler(base *BaseHandler, requestService services.RequestService) *RequestHandler {
	return &RequestHandler{
		BaseHandler:    base,
		requestService: requestService,
	}
}

func (h *RequestHandler) RegisterRoutes(r *gin.RouterGroup, authMW gin.HandlerFunc) {
	requests := r.Group("/requests")
	requests.Use(authMW)
	{
		requests.POST("", middleware.RequireRoles(models.UserRoleRequester, models.UserRoleAdmin), h.Create)
		requests.GET("", h.ListOpen)
		requests.GET("/my", h.ListMy)
		requests.GET("/:requestId", h.Get)
		requests.GET("/:requestId/slots", h.GetSlots)
		requests.DELETE("/:requestId", h.Cancel)
	}
}

func (h *RequestHandler) Create(c *gin.Context) {
	ownerID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.CreateRequestRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	resp, err := h.requestService.Create(ownerID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *RequestHandler) ListOpen(c *gin.Context) {
	page, pageSize := ParsePagination(c)

	resp, err := h.requestService.ListOpen(page, pageSize)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *RequestHandler) ListMy(c *gin.Context) {
	ownerID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	page, pageSize := ParsePagination(c)

	resp, err := h.requestService.ListByOwner(ownerID, page, pageSize)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *RequestHandler) Get(c *gin.Context) {
	resp, err := h.requestService.Get(c.Param("requestId"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *RequestHandler) GetSlots(c *gin.Context) {
	slots, err := h.requestService.GetSlots(c.Param("requestId"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"slots": slots})
}

func (h *RequestHandler) Cancel(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	if err := h.requestService.Cancel(c.Param("requestId"), userID); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Request cancelled"})
}
