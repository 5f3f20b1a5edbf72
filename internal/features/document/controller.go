package document

import (
	"errors"

	"go-paystack-sync/internal/config"
	"go-paystack-sync/internal/paystack"

	"github.com/gofiber/fiber/v2"
)

type DocumentController struct {
	Service DocumentService
	Config  *config.Config
}

func NewDocumentController(service DocumentService, cfg *config.Config) *DocumentController {
	return &DocumentController{Service: service, Config: cfg}
}

// present strips credentials and adds a dashboard link when the document is synced.
func (ctrl *DocumentController) present(collection string, doc Document) Document {
	out := Public(doc)
	if sc, ok := ctrl.Config.Paystack.SyncFor(collection); ok {
		if url := paystack.DashboardURL(sc.ResourceType, doc.RemoteID()); url != "" {
			out["docUrl"] = url
		}
	}
	return out
}

func errorStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return fiber.StatusNotFound
	}
	return fiber.StatusBadRequest
}

// CreateDocument godoc
func (ctrl *DocumentController) CreateDocument(c *fiber.Ctx) error {
	collection := c.Params("collection")
	var data map[string]interface{}
	if err := c.BodyParser(&data); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	var opts []CreateOption
	if c.QueryBool("disableVerificationEmail") {
		opts = append(opts, WithoutVerificationEmail())
	}

	doc, err := ctrl.Service.Create(c.UserContext(), collection, Document(data), opts...)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"doc": ctrl.present(collection, doc),
	})
}

// GetDocument godoc
func (ctrl *DocumentController) GetDocument(c *fiber.Ctx) error {
	collection := c.Params("collection")
	doc, err := ctrl.Service.Get(c.UserContext(), collection, c.Params("id"))
	if err != nil {
		return c.Status(errorStatus(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(ctrl.present(collection, doc))
}

// ListDocuments godoc
func (ctrl *DocumentController) ListDocuments(c *fiber.Ctx) error {
	collection := c.Params("collection")
	limit := ParseInt64(c.Query("limit", "10"), 10)

	filter := make(map[string]interface{})
	c.Context().QueryArgs().VisitAll(func(key, value []byte) {
		if k := string(key); k != "limit" {
			filter[k] = queryValue(string(value))
		}
	})

	res, err := ctrl.Service.Find(c.UserContext(), collection, filter, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	docs := make([]Document, 0, len(res.Docs))
	for _, doc := range res.Docs {
		docs = append(docs, ctrl.present(collection, doc))
	}
	return c.JSON(fiber.Map{
		"docs":      docs,
		"totalDocs": res.TotalDocs,
		"limit":     limit,
	})
}

// UpdateDocument godoc
func (ctrl *DocumentController) UpdateDocument(c *fiber.Ctx) error {
	collection := c.Params("collection")
	var data map[string]interface{}
	if err := c.BodyParser(&data); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	doc, err := ctrl.Service.Update(c.UserContext(), collection, c.Params("id"), Document(data))
	if err != nil {
		return c.Status(errorStatus(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"doc": ctrl.present(collection, doc),
	})
}

// DeleteDocument godoc
func (ctrl *DocumentController) DeleteDocument(c *fiber.Ctx) error {
	if err := ctrl.Service.Delete(c.UserContext(), c.Params("collection"), c.Params("id")); err != nil {
		return c.Status(errorStatus(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Document deleted successfully",
	})
}
