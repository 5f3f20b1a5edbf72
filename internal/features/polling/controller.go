package polling

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

type PollingController struct {
	Service PollingService
}

func NewPollingController(service PollingService) *PollingController {
	return &PollingController{
		Service: service,
	}
}

// RunBlacklist godoc
func (ctrl *PollingController) RunBlacklist(c *fiber.Ctx) error {
	summary, err := ctrl.Service.Run(c.UserContext())
	if errors.Is(err, ErrDisabled) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"data": summary,
	})
}

// GetBlacklist godoc
func (ctrl *PollingController) GetBlacklist(c *fiber.Ctx) error {
	last := ctrl.Service.LastRun()
	if last == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Blacklist polling has not run yet",
		})
	}

	return c.JSON(fiber.Map{
		"data": last,
	})
}
