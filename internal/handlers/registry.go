package handlers

// AppHandlers holds every handler of the application.
type AppHandlers struct {
	AuthHandler         *AuthHandler
	RequestHandler      *RequestHandler
	SlotHandler         *SlotHandler
	ApplicationHandler  *ApplicationHandler
	DisputeHandler      *DisputeHandler
	SparksHandler       *SparksHandler
	NotificationHandler *NotificationHandler
	WebhookHandler      *WebhookHandler
}
