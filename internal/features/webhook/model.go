package webhook

import (
	"context"
	"strings"
)

// SignatureHeader carries the hex HMAC-SHA512 of the raw body.
const SignatureHeader = "x-paystack-signature"

// Event is a Paystack webhook delivery.
type Event struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data"`
}

// Split breaks "customer.created" into ("customer", "created"). Only the first dot counts.
func (e Event) Split() (resource, action string) {
	resource, action, _ = strings.Cut(e.Event, ".")
	return resource, action
}

type Action int

const (
	ActionNone Action = iota
	ActionUpsert
	ActionDelete
)

var actions = map[string]Action{
	"create":    ActionUpsert,
	"created":   ActionUpsert,
	"update":    ActionUpsert,
	"updated":   ActionUpsert,
	"success":   ActionUpsert,
	"processed": ActionUpsert,
	"delete":    ActionDelete,
	"deleted":   ActionDelete,
}

func Classify(action string) Action {
	return actions[action]
}

// Handler is a caller-supplied reaction to a webhook event.
type Handler func(ctx context.Context, event Event) error

// identifierRule lists where a resource kind's Paystack identifier may sit in a payload,
// highest priority first. Kinds with reference set fall back to the payload reference.
type identifierRule struct {
	candidates []string
	reference  bool
}

var identifierRules = map[string]identifierRule{
	"customer":       {candidates: []string{"customer_code", "customer.customer_code", "id", "customer.id"}},
	"plan":           {candidates: []string{"id", "plan_code"}},
	"product":        {candidates: []string{"id", "product_code"}},
	"subscription":   {candidates: []string{"subscription_code", "id"}},
	"paymentrequest": {candidates: []string{"request_code", "id"}},
	"transaction":    {candidates: []string{"id"}, reference: true},
	"charge":         {candidates: []string{"id"}, reference: true},
	"refund":         {candidates: []string{"id"}, reference: true},
}

var defaultIdentifierRule = identifierRule{candidates: []string{"id"}}

func ruleFor(resource string) identifierRule {
	if rule, ok := identifierRules[resource]; ok {
		return rule
	}
	return defaultIdentifierRule
}
