package polling

import (
	"go-paystack-sync/internal/common/api"
	"go-paystack-sync/internal/config"
	"go-paystack-sync/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type PollingApi struct {
	controller *PollingController
	config     *config.Config
}

func NewPollingApi(controller *PollingController, config *config.Config) api.Route {
	return &PollingApi{
		controller: controller,
		config:     config,
	}
}

func (h *PollingApi) Setup(app *fiber.App) {
	polling := app.Group("/api/paystack/polling", middleware.AuthMiddleware(h.config.SkipAuth))

	polling.Get("/blacklist", h.controller.GetBlacklist)
	polling.Post("/blacklist/run", h.controller.RunBlacklist)
}
