package payments

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to the payment gateway's REST API. Every mutating call carries
// an Idempotency-Key header so the gateway deduplicates retried requests.
type Client struct {
	BaseURL       string
	APIKey        string
	WebhookSecret string
	HTTPClient    *http.Client
}

func NewClient(baseURL, apiKey, webhookSecret string, timeout time.Duration) *Client {
	return &Client{
		BaseURL:       baseURL,
		APIKey:        apiKey,
		WebhookSecret: webhookSecret,
		HTTPClient:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) CreateIntent(ctx context.Context, amount float64, customerID string) (*Intent, error) {
	body := map[string]interface{}{
		"amount":   amount,
		"customer": customerID,
	}
	var intent Intent
	if err := c.post(ctx, "/v1/payment_intents", "", body, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

func (c *Client) Transfer(ctx context.Context, destinationAccount string, amount float64, idempotencyKey string) (string, error) {
	body := map[string]interface{}{
		"destination": destinationAccount,
		"amount":      amount,
	}
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.post(ctx, "/v1/transfers", idempotencyKey, body, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *Client) Refund(ctx context.Context, intentID string, amount float64, idempotencyKey string) (string, error) {
	body := map[string]interface{}{
		"payment_intent": intentID,
		"amount":         amount,
	}
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.post(ctx, "/v1/refunds", idempotencyKey, body, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// VerifyWebhookSignature checks the HMAC-SHA256 signature the gateway attaches
// to webhook deliveries.
func (c *Client) VerifyWebhookSignature(payload []byte, receivedSig string) bool {
	mac := hmac.New(sha256.New, []byte(c.WebhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(receivedSig))
}

func (c *Client) post(ctx context.Context, path, idempotencyKey string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("gateway request %s: status %d: %s", path, resp.StatusCode, string(data))
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
