package sync

import (
	"errors"

	"go-paystack-sync/internal/features/document"

	"github.com/gofiber/fiber/v2"
)

type SyncController struct {
	Service SyncService
}

func NewSyncController(service SyncService) *SyncController {
	return &SyncController{
		Service: service,
	}
}

// GetStatus godoc
func (ctrl *SyncController) GetStatus(c *fiber.Ctx) error {
	status, err := ctrl.Service.Status(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"data": status,
	})
}

// PushDocument godoc
func (ctrl *SyncController) PushDocument(c *fiber.Ctx) error {
	result, err := ctrl.Service.Push(c.UserContext(), c.Params("collection"), c.Params("id"))
	switch {
	case errors.Is(err, document.ErrNotFound), errors.Is(err, ErrNotSynced):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, ErrTestMode):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": err.Error(),
		})
	case err != nil:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"data": result,
	})
}
