package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"go-paystack-sync/internal/config"
	"go-paystack-sync/internal/features/document"
	sync_feature "go-paystack-sync/internal/features/sync"
	"go-paystack-sync/internal/paystack"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "sk_test_webhooksecret"

type harness struct {
	cfg      *config.Config
	docs     document.DocumentService
	svc      WebhookService
	outbound *int32
}

// newHarness wires the webhook service to an in-memory host with outbound sync hooks
// installed, so tests can assert inbound writes never call Paystack back.
func newHarness(t *testing.T, handlers ...string) *harness {
	t.Helper()

	var outbound int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&outbound, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":true,"data":{}}`))
	}))
	t.Cleanup(server.Close)

	cfg := &config.Config{
		Paystack: config.PaystackConfig{
			Enabled:         true,
			SecretKey:       testSecret,
			WebhookSecret:   testSecret,
			DefaultCurrency: "NGN",
			Sync:            config.DefaultSyncConfigs(),
			Blacklist:       config.BlacklistConfig{Enabled: true},
			WebhookHandlers: handlers,
		},
	}
	docs := document.NewDocumentService(document.NewMemoryStore(), cfg, nil)
	client := paystack.NewClient(server.URL, testSecret, server.Client(), nil)
	sync_feature.NewSyncService(cfg, client, docs, nil).Register()

	return &harness{
		cfg:      cfg,
		docs:     docs,
		svc:      NewWebhookService(cfg, docs, nil),
		outbound: &outbound,
	}
}

func payload(t *testing.T, event string, data map[string]any) []byte {
	t.Helper()
	raw, err := json.Marshal(map[string]any{"event": event, "data": data})
	require.NoError(t, err)
	return raw
}

func (h *harness) only(t *testing.T, collection string) document.Document {
	t.Helper()
	res, err := h.docs.Find(context.Background(), collection, nil, 0)
	require.NoError(t, err)
	require.Len(t, res.Docs, 1)
	return res.Docs[0]
}

func TestVerify(t *testing.T) {
	h := newHarness(t)
	body := payload(t, "customer.created", map[string]any{"customer_code": "CUS_a"})
	signature := Sign(testSecret, body)

	assert.NoError(t, h.svc.Verify(body, signature))

	tampered := append([]byte(nil), body...)
	tampered[len(tampered)-2] ^= 0x01
	assert.ErrorIs(t, h.svc.Verify(tampered, signature), ErrInvalidSignature)

	badHeader := []byte(signature)
	if badHeader[0] == 'a' {
		badHeader[0] = 'b'
	} else {
		badHeader[0] = 'a'
	}
	assert.ErrorIs(t, h.svc.Verify(body, string(badHeader)), ErrInvalidSignature)

	assert.ErrorIs(t, h.svc.Verify(body, ""), ErrMissingSignature)
	assert.ErrorIs(t, h.svc.Verify(nil, signature), ErrMissingSignature)
}

func TestVerifyWithoutSecretAcceptsAnything(t *testing.T) {
	h := newHarness(t)
	h.cfg.Paystack.WebhookSecret = ""
	assert.NoError(t, h.svc.Verify([]byte(`{}`), ""))
}

func TestCustomerCreatedTwiceYieldsOneDocument(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	body := payload(t, "customer.created", map[string]any{
		"id":            5,
		"customer_code": "CUS_a",
		"first_name":    "Ada",
		"email":         "ada@example.com",
	})

	require.NoError(t, h.svc.Dispatch(ctx, body))
	require.NoError(t, h.svc.Dispatch(ctx, body))

	doc := h.only(t, "customer")
	assert.Equal(t, "CUS_a", doc.RemoteID())
	assert.Equal(t, "Ada", doc["name"])
	assert.Equal(t, document.StateSynced, doc.SyncState())
	assert.Equal(t, true, doc[document.FieldVerified])
	_, hasConfirm := doc[document.FieldPasswordConfirm]
	assert.False(t, hasConfirm)

	hash, ok := doc[document.FieldPassword].(string)
	require.True(t, ok)
	assert.NotEmpty(t, hash)
	_, err := bcrypt.Cost([]byte(hash))
	assert.NoError(t, err, "password must be stored hashed")

	assert.Zero(t, atomic.LoadInt32(h.outbound), "inbound writes must not call Paystack")
}

func TestCustomerUpdatedPatchesMappedFields(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.svc.Dispatch(ctx, payload(t, "customer.created", map[string]any{
		"customer_code": "CUS_a", "first_name": "Ada", "email": "ada@example.com",
	})))
	require.NoError(t, h.svc.Dispatch(ctx, payload(t, "customer.updated", map[string]any{
		"customer_code": "CUS_a", "first_name": "Grace",
	})))

	doc := h.only(t, "customer")
	assert.Equal(t, "Grace", doc["name"])
	assert.Equal(t, "ada@example.com", doc["email"], "absent remote fields must not erase local data")
	assert.Zero(t, atomic.LoadInt32(h.outbound))
}

func TestUpdateKeepsSiblingFieldsOfNestedObjects(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	plan, ok := h.cfg.Paystack.SyncFor("plan")
	require.True(t, ok)
	plan.Fields = append(plan.Fields, config.FieldSyncConfig{FieldPath: "meta.remoteName", PaystackProperty: "name"})

	existing, err := h.docs.Create(ctx, "plan", document.Document{
		"title":                "Gold",
		"meta":                 map[string]any{"remoteName": "old", "note": "keep me"},
		document.FieldRemoteID: "42",
		document.FieldSkipSync: true,
	})
	require.NoError(t, err)

	require.NoError(t, h.svc.Dispatch(ctx, payload(t, "plan.updated", map[string]any{"id": 42, "name": "new"})))

	doc, err := h.docs.Get(ctx, "plan", existing.ID())
	require.NoError(t, err)
	assert.Equal(t, "new", doc["title"])
	meta, ok := doc["meta"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "new", meta["remoteName"])
	assert.Equal(t, "keep me", meta["note"])
	assert.Zero(t, atomic.LoadInt32(h.outbound))
}

func TestPlanLifecycleScalesAmountAndDeletes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.svc.Dispatch(ctx, payload(t, "plan.created", map[string]any{
		"id": 42, "plan_code": "PLN_x", "name": "Gold", "amount": 500000, "interval": "monthly",
	})))

	doc := h.only(t, "plan")
	assert.Equal(t, "42", doc.RemoteID())
	assert.Equal(t, "Gold", doc["title"])
	assert.Equal(t, float64(5000), doc["amount"])

	require.NoError(t, h.svc.Dispatch(ctx, payload(t, "plan.deleted", map[string]any{"id": 42})))

	n, err := h.docs.Count(ctx, "plan", nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, atomic.LoadInt32(h.outbound), "inbound deletes must not call Paystack")
}

func TestDeleteOfUnknownDocumentIsNotAnError(t *testing.T) {
	h := newHarness(t)
	assert.NoError(t, h.svc.Dispatch(context.Background(), payload(t, "product.deleted", map[string]any{"id": 404})))
}

func TestPayloadWithoutIdentifierIsIgnored(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.svc.Dispatch(ctx, payload(t, "product.created", map[string]any{"name": "Mug"})))
	n, err := h.docs.Count(ctx, "product", nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUnhandledActionAndMalformedPayload(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	assert.NoError(t, h.svc.Dispatch(ctx, payload(t, "customer.identification_failed", map[string]any{"customer_code": "CUS_a"})))
	assert.NoError(t, h.svc.Dispatch(ctx, []byte(`{not json`)))

	n, err := h.docs.Count(ctx, "customer", nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCustomHandlersRunForUnsyncedResources(t *testing.T) {
	h := newHarness(t)
	var all, transfer []string
	h.svc.HandleAll(func(ctx context.Context, e Event) error {
		all = append(all, e.Event)
		return nil
	})
	h.svc.Handle("transfer.success", func(ctx context.Context, e Event) error {
		transfer = append(transfer, e.Event)
		return nil
	})

	ctx := context.Background()
	require.NoError(t, h.svc.Dispatch(ctx, payload(t, "transfer.success", map[string]any{"id": 1})))
	require.NoError(t, h.svc.Dispatch(ctx, payload(t, "customer.created", map[string]any{"customer_code": "CUS_b"})))

	assert.Equal(t, []string{"transfer.success", "customer.created"}, all)
	assert.Equal(t, []string{"transfer.success"}, transfer)
}

func TestCustomHandlerErrorIsReturned(t *testing.T) {
	h := newHarness(t)
	boom := errors.New("boom")
	h.svc.HandleAll(func(ctx context.Context, e Event) error { return boom })

	err := h.svc.Dispatch(context.Background(), payload(t, "customer.created", map[string]any{"customer_code": "CUS_c"}))
	assert.ErrorIs(t, err, boom)

	// native sync still happened
	doc := h.only(t, "customer")
	assert.Equal(t, "CUS_c", doc.RemoteID())
}

func TestChargeSuccessUpsertsTransactionByReference(t *testing.T) {
	h := newHarness(t, EventChargeSuccess)
	ctx := context.Background()
	body := payload(t, EventChargeSuccess, map[string]any{
		"id":        9001,
		"reference": "ref_123",
		"amount":    250000,
		"currency":  "NGN",
		"status":    "success",
		"channel":   "card",
		"customer":  map[string]any{"customer_code": "CUS_a"},
	})

	require.NoError(t, h.svc.Dispatch(ctx, body))
	require.NoError(t, h.svc.Dispatch(ctx, body))

	doc := h.only(t, "transaction")
	assert.Equal(t, "ref_123", doc["reference"])
	assert.Equal(t, float64(2500), doc["amount"])
	assert.Equal(t, "CUS_a", doc["customer_code"])
	assert.Equal(t, "9001", doc.RemoteID())
}

func TestPaymentRequestSuccessMarksTransactionPaid(t *testing.T) {
	h := newHarness(t, EventPaymentRequestSuccess)
	ctx := context.Background()

	existing, err := h.docs.Create(ctx, "transaction", document.Document{"reference": "ref_9", "status": "pending"})
	require.NoError(t, err)

	require.NoError(t, h.svc.Dispatch(ctx, payload(t, EventPaymentRequestSuccess, map[string]any{
		"reference": "ref_9", "paid_at": "2026-01-02T03:04:05Z",
	})))

	doc, err := h.docs.Get(ctx, "transaction", existing.ID())
	require.NoError(t, err)
	assert.Equal(t, "success", doc["status"])
	assert.Equal(t, "2026-01-02T03:04:05Z", doc["paid_at"])
}

func TestEventSplitAndClassify(t *testing.T) {
	resource, action := Event{Event: "paymentrequest.success"}.Split()
	assert.Equal(t, "paymentrequest", resource)
	assert.Equal(t, "success", action)

	resource, action = Event{Event: "subscription.not_renew.extra"}.Split()
	assert.Equal(t, "subscription", resource)
	assert.Equal(t, "not_renew.extra", action)

	assert.Equal(t, ActionUpsert, Classify("processed"))
	assert.Equal(t, ActionDelete, Classify("deleted"))
	assert.Equal(t, ActionNone, Classify("disable"))
}

func TestIdentifierPriority(t *testing.T) {
	ids, ref := identifiers("customer", map[string]any{
		"id":       float64(5),
		"customer": map[string]any{"customer_code": "CUS_nested"},
	})
	assert.Equal(t, []string{"CUS_nested", "5"}, ids)
	assert.Empty(t, ref)

	ids, ref = identifiers("transaction", map[string]any{"reference": "ref_1"})
	assert.Empty(t, ids)
	assert.Equal(t, "ref_1", ref)
}
