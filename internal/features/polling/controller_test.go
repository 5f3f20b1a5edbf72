package polling

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"go-paystack-sync/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func call(t *testing.T, app *fiber.App, method, path, token string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
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

func TestPollingEndpoints(t *testing.T) {
	utils.SetSecret("polling-test-secret")
	token, err := utils.GenerateToken("admin-1", []string{"admin"}, time.Minute)
	require.NoError(t, err)

	cfg := newTestConfig(100)
	svc, docs := setup(t, cfg, &fakeCustomers{pages: map[int][]map[string]any{
		1: {customer("CUS_a", "deny")},
	}})
	seed(t, docs, "CUS_a", false)

	app := fiber.New()
	NewPollingApi(NewPollingController(svc), cfg).Setup(app)

	status, _ := call(t, app, fiber.MethodPost, "/api/paystack/polling/blacklist/run", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = call(t, app, fiber.MethodGet, "/api/paystack/polling/blacklist", token)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, out := call(t, app, fiber.MethodPost, "/api/paystack/polling/blacklist/run", token)
	require.Equal(t, fiber.StatusOK, status)
	data := out["data"].(map[string]any)
	assert.Equal(t, float64(1), data["corrected"])

	status, out = call(t, app, fiber.MethodGet, "/api/paystack/polling/blacklist", token)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(1), out["data"].(map[string]any)["pages"])
}

func TestPollingRunWhenDisabledIsConflict(t *testing.T) {
	cfg := newTestConfig(100)
	cfg.SkipAuth = true
	cfg.Paystack.Blacklist.Enabled = false
	svc, _ := setup(t, cfg, &fakeCustomers{})

	app := fiber.New()
	NewPollingApi(NewPollingController(svc), cfg).Setup(app)

	status, out := call(t, app, fiber.MethodPost, "/api/paystack/polling/blacklist/run", "")
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Contains(t, out["error"], "disabled")
}
