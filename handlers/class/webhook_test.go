package class

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stripe/stripe-go/v74/webhook"
)

const testWebhookSecret = "whsec_test_secret"

func newWebhookTestApp(t *testing.T) *fiber.App {
	t.Helper()
	handler := NewClassHandler(nil, nil, nil, nil, testWebhookSecret)
	app := fiber.New()
	app.Post("/api/v1/classes/webhook", handler.StripeWebhook)
	return app
}

// signedRequest builds a webhook delivery with a valid Stripe-Signature
// header for the payload.
func signedRequest(payload []byte) *http.Request {
	now := time.Now()
	sig := webhook.ComputeSignature(now, payload, testWebhookSecret)
	header := fmt.Sprintf("t=%d,v1=%s", now.Unix(), hex.EncodeToString(sig))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/classes/webhook", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", header)
	return req
}

func TestStripeWebhookRejectsBadSignature(t *testing.T) {
	app := newWebhookTestApp(t)

	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{}}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/classes/webhook", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", "t=12345,v1=deadbeef")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestStripeWebhookRejectsMissingSignature(t *testing.T) {
	app := newWebhookTestApp(t)

	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{}}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/classes/webhook", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestStripeWebhookAcknowledgesUnhandledEventTypes(t *testing.T) {
	app := newWebhookTestApp(t)

	payload := []byte(`{"id":"evt_2","type":"charge.refunded","data":{"object":{}}}`)
	resp, err := app.Test(signedRequest(payload))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestStripeWebhookRejectsMalformedIntentPayload(t *testing.T) {
	app := newWebhookTestApp(t)

	// Valid signature, but data.object is not an intent
	payload := []byte(`{"id":"evt_3","type":"payment_intent.succeeded","data":{"object":[]}}`)
	resp, err := app.Test(signedRequest(payload))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}
