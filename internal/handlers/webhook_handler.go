package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"sparkreview_backend/internal/logger"
	"sparkreview_backend/internal/services"
)

// WebhookVerifier authenticates gateway callbacks. Satisfied by
// payments.Client.
type WebhookVerifier interface {
	VerifyWebhookSignature(payload []byte, receivedSig string) bool
}

type WebhookHandler struct {
	*BaseHandler
	escrowService services.EscrowService
	verifier      WebhookVerifier
}

func NewWebhookHandler(base *BaseHandler, escrowService services.EscrowService, verifier WebhookVerifier) *WebhookHandler {
	return &WebhookHandler{
		BaseHandler:   base,
		escrowService: escrowService,
		verifier:      verifier,
	}
}

func (h *WebhookHandler) RegisterRoutes(r *gin.RouterGroup) {
	// No auth middleware: the gateway authenticates with an HMAC signature.
	r.POST("/webhooks/payments", h.HandlePaymentEvent)
}

type paymentEvent struct {
	Type     string `json:"type"`
	IntentID string `json:"intent_id"`
}

func (h *WebhookHandler) HandlePaymentEvent(c *gin.Context) {
	ctx := c.Request.Context()

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot read payload"})
		return
	}

	signature := c.GetHeader("X-Webhook-Signature")
	if !h.verifier.VerifyWebhookSignature(payload, signature) {
		logger.CtxWarn(ctx, "Webhook signature verification failed", "ip", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
		return
	}

	var event paymentEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}

	switch event.Type {
	case "capture.confirmed":
		if err := h.escrowService.ConfirmCapture(ctx, event.IntentID); err != nil {
			h.HandleServiceError(c, err)
			return
		}
	default:
		// Unknown event types are acknowledged so the gateway stops
		// redelivering them.
		logger.CtxDebug(ctx, "Ignoring unhandled payment event", "type", event.Type)
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
