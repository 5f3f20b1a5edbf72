package document

import (
	"go-paystack-sync/internal/common/api"
	"go-paystack-sync/internal/config"
	"go-paystack-sync/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type DocumentApi struct {
	controller *DocumentController
	config     *config.Config
}

func NewDocumentApi(controller *DocumentController, config *config.Config) api.Route {
	return &DocumentApi{
		controller: controller,
		config:     config,
	}
}

// Setup registers the host collection routes
func (h *DocumentApi) Setup(app *fiber.App) {
	collections := app.Group("/api/collections", middleware.AuthMiddleware(h.config.SkipAuth))

	collections.Get("/:collection", h.controller.ListDocuments)
	collections.Post("/:collection", h.controller.CreateDocument)
	collections.Get("/:collection/:id", h.controller.GetDocument)
	collections.Patch("/:collection/:id", h.controller.UpdateDocument)
	collections.Put("/:collection/:id", h.controller.UpdateDocument)
	collections.Delete("/:collection/:id", h.controller.DeleteDocument)
}
