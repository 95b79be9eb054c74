package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, "sk_test_123", "whsec_test", 2*time.Second)
}

func TestCreateIntentSendsAuthAndBody(t *testing.T) {
	var gotAuth string
	var gotBody map[string]interface{}

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payment_intents", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		json.NewEncoder(w).Encode(Intent{ID: "pi_123", Amount: 50, Status: "requires_capture"})
	})

	intent, err := client.CreateIntent(context.Background(), 50, "cus_9")
	require.NoError(t, err)
	assert.Equal(t, "pi_123", intent.ID)
	assert.Equal(t, "Bearer sk_test_123", gotAuth)
	assert.Equal(t, 50.0, gotBody["amount"])
	assert.Equal(t, "cus_9", gotBody["customer"])
}

func TestTransferCarriesIdempotencyKey(t *testing.T) {
	var gotKey string

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/transfers", r.URL.Path)
		gotKey = r.Header.Get("Idempotency-Key")
		json.NewEncoder(w).Encode(map[string]string{"id": "tr_42"})
	})

	id, err := client.Transfer(context.Background(), "acct_7", 45, "slot-abc")
	require.NoError(t, err)
	assert.Equal(t, "tr_42", id)
	assert.Equal(t, "slot-abc", gotKey)
}

func TestRefundTargetsIntent(t *testing.T) {
	var gotBody map[string]interface{}

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/refunds", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]string{"id": "re_7"})
	})

	id, err := client.Refund(context.Background(), "pi_123", 50, "slot-abc")
	require.NoError(t, err)
	assert.Equal(t, "re_7", id)
	assert.Equal(t, "pi_123", gotBody["payment_intent"])
}

func TestErrorStatusSurfacesBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"error":"insufficient_funds"}`))
	})

	_, err := client.CreateIntent(context.Background(), 50, "cus_9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 402")
	assert.Contains(t, err.Error(), "insufficient_funds")
}

func TestContextCancellationAborts(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.CreateIntent(ctx, 50, "cus_9")
	require.Error(t, err)
}

func TestVerifyWebhookSignature(t *testing.T) {
	client := NewClient("http://unused", "sk", "whsec_test", time.Second)
	payload := []byte(`{"type":"capture.confirmed","payment_intent":"pi_1"}`)

	mac := hmac.New(sha256.New, []byte("whsec_test"))
	mac.Write(payload)
	valid := hex.EncodeToString(mac.Sum(nil))

	assert.True(t, client.VerifyWebhookSignature(payload, valid))
	assert.False(t, client.VerifyWebhookSignature(payload, "deadbeef"))
	assert.False(t, client.VerifyWebhookSignature([]byte("tampered"), valid))
}
