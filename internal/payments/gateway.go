package payments

import "context"

// Intent is the gateway-side record of a payment capture in flight.
type Intent struct {
	ID     string `json:"id"`
	Amount float64 `json:"amount"`
	Status string `json:"status"`
}

// Gateway is the consumed surface of the external payment provider. Capture
// confirmation arrives asynchronously through the provider's webhook, so
// CreateIntent only opens the capture; Transfer and Refund are keyed for
// idempotent retry (the key is the slot id).
type Gateway interface {
	CreateIntent(ctx context.Context, amount float64, customerID string) (*Intent, error)
	Transfer(ctx context.Context, destinationAccount string, amount float64, idempotencyKey string) (transferID string, err error)
	Refund(ctx context.Context, intentID string, amount float64, idempotencyKey string) (refundID string, err error)
}
