package paystack

import (
	"net/url"
	"strconv"
	"strings"
)

// Endpoints maps the resource kinds the plugin knows about to their API collection paths.
var Endpoints = map[string]string{
	"customer":     "/customer",
	"plan":         "/plan",
	"product":      "/product",
	"transaction":  "/transaction",
	"refund":       "/refund",
	"order":        "/order",
	"subscription": "/subscription",
	"page":         "/page",
	"invoice":      "/paymentrequest",
}

// RiskActionPath is the endpoint used to blacklist or whitelist a customer.
const RiskActionPath = "/customer/set_risk_action"

const (
	RiskActionDeny    = "deny"
	RiskActionDefault = "default"
)

// BuildPath returns the API path for a resource, optionally followed by an identifier.
// Unknown resources are used verbatim with a leading slash.
func BuildPath(resource, id string) string {
	base, ok := Endpoints[resource]
	if !ok {
		base = resource
		if !strings.HasPrefix(base, "/") {
			base = "/" + base
		}
	}
	if id == "" {
		return base
	}
	return base + "/" + url.PathEscape(id)
}

// ListPath builds a paginated collection path such as /customer?page=2&perPage=100.
func ListPath(resource string, page, perPage int) string {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("perPage", strconv.Itoa(perPage))
	return BuildPath(resource, "") + "?" + q.Encode()
}

// DashboardURL links a synced document to its page on the Paystack dashboard.
func DashboardURL(resourceType, id string) string {
	if id == "" {
		return ""
	}
	return "https://dashboard.paystack.com/" + resourceType + "/" + url.PathEscape(id)
}
