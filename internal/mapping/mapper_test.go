package mapping

import (
	"testing"

	"go-paystack-sync/internal/config"

	"github.com/stretchr/testify/assert"
)

var productFields = []config.FieldSyncConfig{
	{FieldPath: "name", PaystackProperty: "name"},
	{FieldPath: "price", PaystackProperty: "price"},
	{FieldPath: "code", PaystackProperty: "meta.product_code"},
}

func TestDeepen(t *testing.T) {
	got := Deepen(map[string]any{"a.b": 1, "a.c": 2})
	assert.Equal(t, map[string]any{"a": map[string]any{"b": 1, "c": 2}}, got)
}

func TestDeepenLeavesFlatMapsAlone(t *testing.T) {
	flat := map[string]any{"name": "Gold", "amount": 500}
	assert.Equal(t, flat, Deepen(flat))
	assert.Equal(t, Deepen(flat), Deepen(Deepen(flat)))
}

func TestDeepenCollidingKeysAreDeterministic(t *testing.T) {
	flat := map[string]any{"a": 1, "a.b": 2}
	for i := 0; i < 50; i++ {
		assert.Equal(t, map[string]any{"a": map[string]any{"b": 2}}, Deepen(flat))
	}
}

func TestDeepenMergesIntoExistingObjectWithoutMutatingInput(t *testing.T) {
	meta := map[string]any{"note": "keep"}
	got := Deepen(map[string]any{"meta": meta, "meta.code": "PRD_1"})

	assert.Equal(t, map[string]any{"meta": map[string]any{"note": "keep", "code": "PRD_1"}}, got)
	assert.Equal(t, map[string]any{"note": "keep"}, meta)
}

func TestOverlayKeepsSiblingKeys(t *testing.T) {
	base := map[string]any{
		"title": "Gold",
		"meta":  map[string]any{"remoteName": "old", "note": "keep", "deep": map[string]any{"x": 1, "y": 2}},
	}
	patch := map[string]any{
		"title": "Platinum",
		"meta":  map[string]any{"remoteName": "new", "deep": map[string]any{"y": 3}},
	}

	got := Overlay(base, patch)
	assert.Equal(t, map[string]any{
		"title": "Platinum",
		"meta": map[string]any{
			"remoteName": "new",
			"note":       "keep",
			"deep":       map[string]any{"x": 1, "y": 3},
		},
	}, got)
	assert.Equal(t, "old", base["meta"].(map[string]any)["remoteName"], "base must not be mutated")
}

func TestOverlayReplacesNonObjectBase(t *testing.T) {
	got := Overlay(map[string]any{"meta": "scalar"}, map[string]any{"meta": map[string]any{"a": 1}})
	assert.Equal(t, map[string]any{"meta": map[string]any{"a": 1}}, got)
}

func TestFlattenScalesMoneyAndSkipsAbsentFields(t *testing.T) {
	got := Flatten(productFields, map[string]any{"name": "Mug", "price": 19.99})
	assert.Equal(t, map[string]any{"name": "Mug", "price": int64(1999)}, got)
	_, present := got["meta.product_code"]
	assert.False(t, present)
}

func TestFlattenReadsNestedLocalPaths(t *testing.T) {
	fields := []config.FieldSyncConfig{{FieldPath: "profile.email", PaystackProperty: "email"}}
	got := Flatten(fields, map[string]any{"profile": map[string]any{"email": "a@b.co"}})
	assert.Equal(t, map[string]any{"email": "a@b.co"}, got)
}

func TestUnflattenResolvesNestedAndDropsMissing(t *testing.T) {
	fields := []config.FieldSyncConfig{
		{FieldPath: "code", PaystackProperty: "customer.customer_code"},
		{FieldPath: "email", PaystackProperty: "customer.email"},
		{FieldPath: "amount", PaystackProperty: "amount"},
		{FieldPath: "phone", PaystackProperty: "customer.phone"},
	}
	remote := map[string]any{
		"amount":   float64(250000),
		"customer": map[string]any{"customer_code": "CUS_x", "email": "a@b.co", "phone": nil},
	}
	got := Unflatten(fields, remote)
	assert.Equal(t, map[string]any{"code": "CUS_x", "email": "a@b.co", "amount": float64(2500)}, got)
}

func TestRoundTripRestrictedToMappedFields(t *testing.T) {
	local := map[string]any{"name": "Mug", "price": 150.0, "code": "PRD_1", "unmapped": true}

	remote := Deepen(Flatten(productFields, local))
	assert.Equal(t, map[string]any{
		"name":  "Mug",
		"price": int64(15000),
		"meta":  map[string]any{"product_code": "PRD_1"},
	}, remote)

	back := Unflatten(productFields, remote)
	assert.Equal(t, map[string]any{"name": "Mug", "price": 150.0, "code": "PRD_1"}, back)
}

func TestDiffOnlyChangedFields(t *testing.T) {
	before := map[string]any{"name": "A", "price": 100}
	after := map[string]any{"name": "A", "price": 200}
	assert.Equal(t, map[string]any{"price": int64(20000)}, Diff(productFields, before, after))
}

func TestDiffTreatsNumericTypesAsEqual(t *testing.T) {
	before := map[string]any{"name": "A", "price": int32(100)}
	after := map[string]any{"name": "A", "price": float64(100)}
	assert.Empty(t, Diff(productFields, before, after))
}

func TestEqualNested(t *testing.T) {
	assert.True(t, Equal(map[string]any{"a": 1}, map[string]any{"a": 1.0}))
	assert.False(t, Equal("1", 1))
	assert.True(t, Equal(nil, nil))
}

func TestIsMonetary(t *testing.T) {
	assert.True(t, IsMonetary("amount"))
	assert.True(t, IsMonetary("plan.price"))
	assert.False(t, IsMonetary("amount_paid"))
}
