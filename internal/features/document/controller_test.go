package document

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"go-paystack-sync/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) (*fiber.App, DocumentService) {
	t.Helper()
	cfg := &config.Config{
		SkipAuth: true,
		Paystack: config.PaystackConfig{Sync: config.DefaultSyncConfigs()},
	}
	svc := NewDocumentService(NewMemoryStore(), cfg, nil)
	app := fiber.New()
	NewDocumentApi(NewDocumentController(svc, cfg), cfg).Setup(app)
	return app, svc
}

func send(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestDocumentCRUDEndpoints(t *testing.T) {
	app, _ := newTestApp(t)

	status, out := send(t, app, fiber.MethodPost, "/api/collections/plan", `{"title":"Gold","paystackID":"42"}`)
	require.Equal(t, fiber.StatusCreated, status)
	doc := out["doc"].(map[string]any)
	id := doc["id"].(string)
	assert.Equal(t, "https://dashboard.paystack.com/plan/42", doc["docUrl"])

	status, out = send(t, app, fiber.MethodPatch, "/api/collections/plan/"+id, `{"title":"Platinum"}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Platinum", out["doc"].(map[string]any)["title"])

	status, out = send(t, app, fiber.MethodGet, "/api/collections/plan?title=Platinum", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(1), out["totalDocs"])

	status, _ = send(t, app, fiber.MethodDelete, "/api/collections/plan/"+id, "")
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = send(t, app, fiber.MethodGet, "/api/collections/plan/"+id, "")
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestDocumentEndpointsHidePasswordsAndSkipDocURLForUnsynced(t *testing.T) {
	app, _ := newTestApp(t)

	status, out := send(t, app, fiber.MethodPost, "/api/collections/customer?disableVerificationEmail=true",
		`{"email":"ada@example.com","password":"pw","passwordConfirm":"pw"}`)
	require.Equal(t, fiber.StatusCreated, status)
	doc := out["doc"].(map[string]any)
	assert.NotContains(t, doc, "password")
	assert.NotContains(t, doc, "docUrl")
	assert.Equal(t, true, doc["_verified"])

	status, out = send(t, app, fiber.MethodPost, "/api/collections/notes", `{"paystackID":"x"}`)
	require.Equal(t, fiber.StatusCreated, status)
	assert.NotContains(t, out["doc"], "docUrl")
}
