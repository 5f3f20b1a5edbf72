package webhook

import (
	"go-paystack-sync/internal/config"

	"github.com/gofiber/fiber/v2"
)

type WebhookController struct {
	Service WebhookService
	Config  *config.Config
}

func NewWebhookController(service WebhookService, cfg *config.Config) *WebhookController {
	return &WebhookController{Service: service, Config: cfg}
}

// ReceiveWebhook godoc
func (ctrl *WebhookController) ReceiveWebhook(c *fiber.Ctx) error {
	if ctrl.Config.Paystack.TestMode {
		return c.JSON(fiber.Map{
			"received": true,
		})
	}

	// fiber reuses the request buffer once the handler returns
	body := append([]byte(nil), c.Body()...)
	if err := ctrl.Service.Verify(body, c.Get(SignatureHeader)); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if err := ctrl.Service.Dispatch(c.UserContext(), body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"received": true,
			"error":    err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"received": true,
	})
}
