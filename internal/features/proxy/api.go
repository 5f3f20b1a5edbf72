package proxy

import (
	"go-paystack-sync/internal/common/api"
	"go-paystack-sync/internal/config"
	"go-paystack-sync/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type ProxyApi struct {
	controller *ProxyController
	config     *config.Config
}

func NewProxyApi(controller *ProxyController, config *config.Config) api.Route {
	return &ProxyApi{
		controller: controller,
		config:     config,
	}
}

func (h *ProxyApi) Setup(app *fiber.App) {
	auth := middleware.AuthMiddleware(h.config.SkipAuth)

	// kept off the /api/paystack prefix itself so the webhook route stays unauthenticated
	if h.config.Paystack.Rest {
		app.Post("/api/paystack/rest", auth, h.controller.Rest)
	}
	resources := app.Group("/api/paystack/resources", auth)
	resources.Get("/:resource", h.controller.ListResources)
	resources.Get("/:resource/:id", h.controller.GetResource)
}
