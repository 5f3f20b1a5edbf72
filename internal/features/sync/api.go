package sync

import (
	"go-paystack-sync/internal/common/api"
	"go-paystack-sync/internal/config"
	"go-paystack-sync/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type SyncApi struct {
	controller *SyncController
	config     *config.Config
}

func NewSyncApi(controller *SyncController, config *config.Config) api.Route {
	return &SyncApi{
		controller: controller,
		config:     config,
	}
}

// Setup registers all sync routes
func (h *SyncApi) Setup(app *fiber.App) {
	syncGroup := app.Group("/api/paystack/sync", middleware.AuthMiddleware(h.config.SkipAuth))

	syncGroup.Get("/status", h.controller.GetStatus)
	syncGroup.Post("/:collection/:id/push", h.controller.PushDocument)
}
