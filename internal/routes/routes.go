package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sparkreview_backend/internal/handlers"
	"sparkreview_backend/internal/middleware"
	"sparkreview_backend/internal/services"
)

// RegisterRoutes wires every HTTP route of the API.
func RegisterRoutes(
	ginRouter *gin.Engine,
	appHandlers *handlers.AppHandlers,
	authService services.AuthService,
) {
	ginRouter.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authMW := middleware.AuthMiddleware(authService)

	api := ginRouter.Group("/api/v1")
	{
		appHandlers.AuthHandler.RegisterRoutes(api)
		appHandlers.RequestHandler.RegisterRoutes(api, authMW)
		appHandlers.SlotHandler.RegisterRoutes(api, authMW)
		appHandlers.ApplicationHandler.RegisterRoutes(api, authMW)
		appHandlers.DisputeHandler.RegisterRoutes(api, authMW)
		appHandlers.SparksHandler.RegisterRoutes(api, authMW)
		appHandlers.NotificationHandler.RegisterRoutes(api, authMW)
		appHandlers.WebhookHandler.RegisterRoutes(api)
	}
}
