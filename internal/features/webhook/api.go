package webhook

import (
	"go-paystack-sync/internal/common/api"
	"go-paystack-sync/internal/config"

	"github.com/gofiber/fiber/v2"
)

type WebhookApi struct {
	controller *WebhookController
	config     *config.Config
}

func NewWebhookApi(controller *WebhookController, config *config.Config) api.Route {
	return &WebhookApi{
		controller: controller,
		config:     config,
	}
}

// Setup registers the inbound endpoint. It is authenticated by signature, not JWT.
func (h *WebhookApi) Setup(app *fiber.App) {
	if !h.config.Paystack.Enabled {
		return
	}
	app.Post("/api/paystack/webhook", h.controller.ReceiveWebhook)
}
