package system

import (
	"time"

	"go-paystack-sync/internal/config"

	"github.com/gofiber/fiber/v2"
)

type HealthController struct {
	config  *config.Config
	started time.Time
}

func NewHealthController(cfg *config.Config) *HealthController {
	return &HealthController{
		config:  cfg,
		started: time.Now(),
	}
}

// Health godoc
func (h *HealthController) Health(c *fiber.Ctx) error {
	p := h.config.Paystack
	return c.JSON(fiber.Map{
		"status": "ok",
		"uptime": time.Since(h.started).Round(time.Second).String(),
		"store":  h.config.StoreDriver,
		"paystack": fiber.Map{
			"enabled":   p.Enabled,
			"test_mode": p.TestMode,
			"rest":      p.Rest,
			"polling":   p.Blacklist.Enabled && p.Blacklist.Polling,
			"synced":    len(p.Sync),
		},
	})
}
