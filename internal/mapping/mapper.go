// Package mapping converts documents between the flat, dot-addressed local shape and
// the nested JSON bodies the Paystack API speaks.
package mapping

import (
	"encoding/json"
	"math"
	"reflect"
	"sort"
	"strings"

	"go-paystack-sync/internal/config"
)

// monetaryProperties are scaled between major units (local) and minor units (remote).
var monetaryProperties = map[string]bool{
	"amount": true,
	"price":  true,
}

// IsMonetary reports whether a remote property path ends in a money field.
func IsMonetary(property string) bool {
	return monetaryProperties[lastSegment(property)]
}

// Flatten builds remote-property-path -> value for every mapped field present on doc.
// Monetary values are converted to minor units. Absent fields are omitted.
func Flatten(fields []config.FieldSyncConfig, doc map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		v, ok := Lookup(doc, f.FieldPath)
		if !ok {
			continue
		}
		out[f.PaystackProperty] = toRemote(f.PaystackProperty, v)
	}
	return out
}

// Diff is Flatten restricted to fields whose value differs between before and after.
func Diff(fields []config.FieldSyncConfig, before, after map[string]any) map[string]any {
	out := make(map[string]any)
	for _, f := range fields {
		newVal, ok := Lookup(after, f.FieldPath)
		if !ok {
			continue
		}
		oldVal, _ := Lookup(before, f.FieldPath)
		if Equal(oldVal, newVal) {
			continue
		}
		out[f.PaystackProperty] = toRemote(f.PaystackProperty, newVal)
	}
	return out
}

// Deepen turns {"a.b": 1, "a.c": 2} into {"a": {"b": 1, "c": 2}}. Keys without dots pass through.
// Keys are applied in sorted order, so when "a" and "a.b" collide the nested path wins.
func Deepen(flat map[string]any) map[string]any {
	keys := make([]string, 0, len(flat))
	for key := range flat {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	result := make(map[string]any, len(flat))
	for _, key := range keys {
		parts := strings.Split(key, ".")
		current := result
		for i, part := range parts {
			if i == len(parts)-1 {
				current[part] = flat[key]
				break
			}
			// copy maps taken from the input so writing below never mutates it
			next := make(map[string]any)
			if existing, ok := asMap(current[part]); ok {
				for k, v := range existing {
					next[k] = v
				}
			}
			current[part] = next
			current = next
		}
	}
	return result
}

// Overlay merges every nested object in patch over the matching object in base and
// returns the result keyed like patch. Stores replace top-level values wholesale, so
// this keeps sibling keys of base alive through a partial write.
func Overlay(base, patch map[string]any) map[string]any {
	out := make(map[string]any, len(patch))
	for key, value := range patch {
		nested, ok := value.(map[string]any)
		existing, baseOK := asMap(base[key])
		if !ok || !baseOK {
			out[key] = value
			continue
		}
		merged := make(map[string]any, len(existing)+len(nested))
		for k, v := range existing {
			merged[k] = v
		}
		for k, v := range Overlay(existing, nested) {
			merged[k] = v
		}
		out[key] = merged
	}
	return out
}

// Unflatten resolves every remote property path against a Paystack document and returns
// local-field-path -> value. Missing properties are dropped, never written as nil.
func Unflatten(fields []config.FieldSyncConfig, remote map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		v, ok := Lookup(remote, f.PaystackProperty)
		if !ok || v == nil {
			continue
		}
		out[f.FieldPath] = ToLocal(f.PaystackProperty, v)
	}
	return out
}

// Lookup walks a dot-separated path through nested maps.
func Lookup(doc map[string]any, path string) (any, bool) {
	if doc == nil || path == "" {
		return nil, false
	}
	if v, ok := doc[path]; ok {
		return v, true
	}
	current := doc
	parts := strings.Split(path, ".")
	for i, part := range parts {
		v, ok := current[part]
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return v, true
		}
		next, ok := asMap(v)
		if !ok {
			return nil, false
		}
		current = next
	}
	return nil, false
}

// Equal compares two values the way they would compare after a JSON round trip,
// so int 100 and float64 100 are the same.
func Equal(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	return reflect.DeepEqual(normalize(a), normalize(b))
}

func toRemote(property string, v any) any {
	if !IsMonetary(property) {
		return v
	}
	f, ok := toFloat(v)
	if !ok {
		return v
	}
	return int64(math.Round(f * 100))
}

// ToLocal converts one Paystack value to its local form; money goes back to major units.
func ToLocal(property string, v any) any {
	if !IsMonetary(property) {
		return v
	}
	f, ok := toFloat(v)
	if !ok {
		return v
	}
	return f / 100
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[string]string:
		out := make(map[string]any, len(m))
		for k, s := range m {
			out[k] = s
		}
		return out, true
	}
	return nil, false
}

func normalize(v any) any {
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}

func lastSegment(path string) string {
	if i := strings.LastIndex(path, "."); i >= 0 {
		return path[i+1:]
	}
	return path
}
