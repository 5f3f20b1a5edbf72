package cron_feature

import (
	"go-paystack-sync/internal/common/api"
	"go-paystack-sync/internal/config"
	"go-paystack-sync/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type CronApi struct {
	cronController *CronController
	config         *config.Config
}

func NewCronApi(cronController *CronController, config *config.Config) api.Route {
	return &CronApi{
		cronController: cronController,
		config:         config,
	}
}

func (h *CronApi) Setup(app *fiber.App) {
	jobs := app.Group("/api/paystack/jobs", middleware.AuthMiddleware(h.config.SkipAuth))

	jobs.Get("/", h.cronController.ListJobs)
	jobs.Post("/:name/execute", h.cronController.ExecuteJob)
}
