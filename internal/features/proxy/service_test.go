package proxy

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	stdsync "sync"
	"testing"

	"go-paystack-sync/internal/config"
	"go-paystack-sync/internal/paystack"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seen struct {
	Method string
	URI    string
	Body   map[string]any
}

type fakePaystack struct {
	mu     stdsync.Mutex
	calls  []seen
	routes map[string]func() (int, any)
}

func (f *fakePaystack) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	call := seen{Method: r.Method, URI: r.URL.RequestURI()}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &call.Body)
	}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	route, ok := f.routes[r.Method+" "+r.URL.Path]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{"status": false, "message": "Transaction not found"})
		return
	}
	status, data := route()
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"status": status < 300, "message": "ok", "data": data})
}

func (f *fakePaystack) Calls() []seen {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]seen(nil), f.calls...)
}

func newTestService(t *testing.T, fake *fakePaystack) (*config.Config, ProxyService) {
	t.Helper()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	cfg := &config.Config{
		SkipAuth: true,
		Paystack: config.PaystackConfig{
			Enabled:   true,
			Rest:      true,
			SecretKey: "sk_test_proxy",
		},
	}
	client := paystack.NewClient(server.URL, cfg.Paystack.SecretKey, server.Client(), nil)
	return cfg, NewProxyService(cfg, client, nil)
}

func transactions() (int, any) {
	return http.StatusOK, []any{
		map[string]any{
			"id": 302961, "status": "success", "amount": 250000, "currency": "NGN",
			"paid_at": "2026-01-02T03:04:05Z", "customer": map[string]any{"customer_code": "CUS_a"},
		},
		map[string]any{"id": 302962, "status": "abandoned", "amount": 1000, "currency": "NGN"},
	}
}

func TestForwardBuildsResourcePath(t *testing.T) {
	fake := &fakePaystack{routes: map[string]func() (int, any){
		"PUT /plan/PLN_x": func() (int, any) { return http.StatusOK, map[string]any{"plan_code": "PLN_x"} },
	}}
	_, svc := newTestService(t, fake)

	resp, err := svc.Forward(context.Background(), RestRequest{
		Resource: "plan",
		ID:       "PLN_x",
		Method:   "put",
		Args:     []any{map[string]any{"name": "Gold"}, "ignored"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "PLN_x", resp.DataMap()["plan_code"])

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, http.MethodPut, calls[0].Method)
	assert.Equal(t, map[string]any{"name": "Gold"}, calls[0].Body)
}

func TestForwardRejectsBadInput(t *testing.T) {
	fake := &fakePaystack{}
	cfg, svc := newTestService(t, fake)
	ctx := context.Background()

	_, err := svc.Forward(ctx, RestRequest{Resource: "plan", Method: "PATCH"})
	assert.ErrorIs(t, err, ErrInvalidMethod)

	_, err = svc.Forward(ctx, RestRequest{Resource: "wallet"})
	assert.ErrorIs(t, err, ErrUnknownResource)

	cfg.Paystack.TestMode = true
	_, err = svc.Forward(ctx, RestRequest{Resource: "plan", Method: "POST"})
	assert.ErrorIs(t, err, ErrTestMode)

	assert.Empty(t, fake.Calls())
}

func TestForwardRawPath(t *testing.T) {
	fake := &fakePaystack{routes: map[string]func() (int, any){
		"POST /transaction/initialize": func() (int, any) {
			return http.StatusOK, map[string]any{"authorization_url": "https://checkout.paystack.com/x"}
		},
	}}
	_, svc := newTestService(t, fake)

	resp, err := svc.Forward(context.Background(), RestRequest{
		Path:   "/transaction/initialize",
		Method: "POST",
		Args:   []any{map[string]any{"email": "ada@example.com", "amount": 5000}},
	})
	require.NoError(t, err)
	assert.True(t, resp.OK())
}

func TestListResourceProjectsFields(t *testing.T) {
	fake := &fakePaystack{routes: map[string]func() (int, any){"GET /transaction": transactions}}
	_, svc := newTestService(t, fake)

	list, err := svc.ListResource(context.Background(), "transaction", 2, 10)
	require.NoError(t, err)
	require.Equal(t, 2, list.TotalDocs)

	first := list.Docs[0]
	assert.Equal(t, "302961", first["id"])
	assert.Equal(t, "success", first["status"])
	assert.Equal(t, float64(2500), first["amount"])
	assert.Equal(t, "CUS_a", first["customer"])
	assert.Equal(t, "", list.Docs[1]["customer"])

	assert.Equal(t, "/transaction?page=2&perPage=10", fake.Calls()[0].URI)
}

func TestGetResourceStringifiesIDs(t *testing.T) {
	fake := &fakePaystack{routes: map[string]func() (int, any){
		"GET /refund/7": func() (int, any) {
			return http.StatusOK, map[string]any{"id": 7, "transaction": 302961, "amount": 5000, "status": "processed"}
		},
	}}
	_, svc := newTestService(t, fake)

	doc, err := svc.GetResource(context.Background(), "refund", "7")
	require.NoError(t, err)
	assert.Equal(t, "7", doc["id"])
	assert.Equal(t, "302961", doc["transaction"])
	assert.Equal(t, float64(50), doc["amount"])
}

func TestGetResourceRemoteFailure(t *testing.T) {
	_, svc := newTestService(t, &fakePaystack{})

	_, err := svc.GetResource(context.Background(), "transaction", "1")
	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, http.StatusNotFound, remote.Status)
	assert.Equal(t, "Transaction not found", remote.Message)

	_, err = svc.GetResource(context.Background(), "customer", "1")
	assert.ErrorIs(t, err, ErrUnknownResource)
}

func newTestApp(cfg *config.Config, svc ProxyService) *fiber.App {
	app := fiber.New()
	NewProxyApi(NewProxyController(svc), cfg).Setup(app)
	return app
}

func do(t *testing.T, app *fiber.App, req *http.Request) (int, map[string]any) {
	t.Helper()
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}
