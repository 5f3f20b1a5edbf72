package proxy

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

type ProxyController struct {
	Service ProxyService
}

func NewProxyController(service ProxyService) *ProxyController {
	return &ProxyController{
		Service: service,
	}
}

func errorStatus(err error) int {
	var remote *RemoteError
	switch {
	case errors.As(err, &remote):
		if remote.Status == 0 {
			return fiber.StatusBadGateway
		}
		return remote.Status
	case errors.Is(err, ErrUnknownResource):
		return fiber.StatusNotFound
	case errors.Is(err, ErrTestMode):
		return fiber.StatusConflict
	case errors.Is(err, ErrInvalidMethod):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// Rest godoc
func (ctrl *ProxyController) Rest(c *fiber.Ctx) error {
	var req RestRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	resp, err := ctrl.Service.Forward(c.UserContext(), req)
	if err != nil {
		status := errorStatus(err)
		// an unknown resource is a bad request here, not a missing route
		if errors.Is(err, ErrUnknownResource) {
			status = fiber.StatusBadRequest
		}
		return c.Status(status).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(resp.Status).JSON(resp)
}

// ListResources godoc
func (ctrl *ProxyController) ListResources(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	perPage := c.QueryInt("perPage", 50)

	list, err := ctrl.Service.ListResource(c.UserContext(), c.Params("resource"), page, perPage)
	if err != nil {
		return c.Status(errorStatus(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(list)
}

// GetResource godoc
func (ctrl *ProxyController) GetResource(c *fiber.Ctx) error {
	doc, err := ctrl.Service.GetResource(c.UserContext(), c.Params("resource"), c.Params("id"))
	if err != nil {
		return c.Status(errorStatus(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"doc": doc,
	})
}
