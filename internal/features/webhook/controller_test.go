package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(h *harness) *fiber.App {
	app := fiber.New()
	NewWebhookApi(NewWebhookController(h.svc, h.cfg), h.cfg).Setup(app)
	return app
}

func post(t *testing.T, app *fiber.App, body []byte, signature string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/api/paystack/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(SignatureHeader, signature)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return resp.StatusCode, out
}

func TestWebhookEndpointAcceptsSignedDelivery(t *testing.T) {
	h := newHarness(t)
	app := newTestApp(h)
	body := payload(t, "customer.created", map[string]any{"customer_code": "CUS_http"})

	status, out := post(t, app, body, Sign(testSecret, body))
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, out["received"])
	assert.Equal(t, "CUS_http", h.only(t, "customer").RemoteID())
}

func TestWebhookEndpointRejectsBadSignature(t *testing.T) {
	h := newHarness(t)
	app := newTestApp(h)
	body := payload(t, "customer.created", map[string]any{"customer_code": "CUS_http"})

	status, _ := post(t, app, body, Sign("sk_test_other", body))
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = post(t, app, body, "")
	assert.Equal(t, fiber.StatusBadRequest, status)

	n, err := h.docs.Count(context.Background(), "customer", nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestWebhookEndpointTestModeAlwaysAcknowledges(t *testing.T) {
	h := newHarness(t)
	h.cfg.Paystack.TestMode = true
	app := newTestApp(h)
	body := payload(t, "customer.created", map[string]any{"customer_code": "CUS_http"})

	status, out := post(t, app, body, "not-a-signature")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, out["received"])

	n, err := h.docs.Count(context.Background(), "customer", nil)
	require.NoError(t, err)
	assert.Zero(t, n, "test mode must not process deliveries")
}

func TestWebhookEndpointHandlerFailureIs400(t *testing.T) {
	h := newHarness(t)
	h.svc.Handle("charge.failed", func(ctx context.Context, e Event) error {
		return errors.New("ledger unavailable")
	})
	app := newTestApp(h)
	body := payload(t, "charge.failed", map[string]any{"id": 1})

	status, out := post(t, app, body, Sign(testSecret, body))
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, out["error"], "ledger unavailable")
}

func TestWebhookEndpointMalformedJSONIsAcknowledged(t *testing.T) {
	h := newHarness(t)
	app := newTestApp(h)
	body := []byte(`{"event": "customer.created", "data": `)

	status, out := post(t, app, body, Sign(testSecret, body))
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, out["received"])
}
