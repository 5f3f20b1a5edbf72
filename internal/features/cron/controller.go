package cron_feature

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

type CronController struct {
	Service CronService
}

func NewCronController(service CronService) *CronController {
	return &CronController{
		Service: service,
	}
}

// ListJobs godoc
func (c *CronController) ListJobs(ctx *fiber.Ctx) error {
	return ctx.JSON(fiber.Map{
		"data": c.Service.ListJobs(),
	})
}

// ExecuteJob godoc
func (c *CronController) ExecuteJob(ctx *fiber.Ctx) error {
	err := c.Service.ExecuteJob(ctx.UserContext(), ctx.Params("name"))
	if errors.Is(err, ErrJobNotFound) {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(fiber.Map{"message": "Job executed successfully"})
}
