package proxy

import (
	"fmt"
	"strconv"

	"go-paystack-sync/internal/mapping"
)

// RestRequest is the body accepted by the REST proxy endpoint.
type RestRequest struct {
	Resource string `json:"paystackResource"`
	ID       string `json:"paystackID"`
	Method   string `json:"paystackMethod"`
	// Args follows the Paystack SDK calling convention; only the first element is sent as the body.
	Args []any `json:"paystackArgs"`
	// Path addresses endpoints outside the resource table, e.g. /transaction/initialize.
	Path string `json:"path"`
}

func (r RestRequest) body() any {
	if len(r.Args) == 0 {
		return nil
	}
	return r.Args[0]
}

// ResourceList mirrors the host's find shape for read-only remote resources.
type ResourceList struct {
	Docs      []map[string]any `json:"docs"`
	TotalDocs int              `json:"totalDocs"`
}

// RemoteError carries a non-200 answer from Paystack to the HTTP layer.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("paystack returned %d: %s", e.Status, e.Message)
}

// projection picks the fields exposed for one read-only resource kind.
type projection func(item map[string]any) map[string]any

var projections = map[string]projection{
	"transaction": func(t map[string]any) map[string]any {
		customer, _ := mapping.Lookup(t, "customer.customer_code")
		return map[string]any{
			"id":       stringify(t["id"]),
			"status":   t["status"],
			"amount":   money(t["amount"]),
			"currency": t["currency"],
			"paid_at":  t["paid_at"],
			"customer": stringOr(customer, ""),
		}
	},
	"refund": func(r map[string]any) map[string]any {
		return map[string]any{
			"id":          stringify(r["id"]),
			"transaction": stringify(r["transaction"]),
			"amount":      money(r["amount"]),
			"status":      r["status"],
			"refunded_at": r["refunded_at"],
		}
	},
	"order": func(o map[string]any) map[string]any {
		return map[string]any{
			"id":       stringify(o["id"]),
			"amount":   money(o["amount"]),
			"currency": o["currency"],
			"status":   o["status"],
		}
	},
	"subscription": func(s map[string]any) map[string]any {
		return map[string]any{
			"id":                stringify(s["id"]),
			"status":            s["status"],
			"subscription_code": s["subscription_code"],
			"next_payment_date": s["next_payment_date"],
		}
	},
}

// ReadOnlyResources lists the kinds served under /api/paystack/resources.
func ReadOnlyResources() []string {
	return []string{"transaction", "refund", "order", "subscription"}
}

func money(v any) any {
	if v == nil {
		return nil
	}
	return mapping.ToLocal("amount", v)
}

func stringOr(v any, fallback string) string {
	if s := stringify(v); s != "" {
		return s
	}
	return fallback
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case map[string]any:
		// refunds embed the whole transaction object in some API versions
		return stringify(t["id"])
	default:
		return fmt.Sprint(t)
	}
}
