package handlers

import (
	"errors"
	"html"

	"shelflife/internal/models"
	"shelflife/internal/repositories"
	"shelflife/internal/services"

	"github.com/gofiber/fiber/v2"
)

// MaxNearExpiryDays bounds the days query parameter of the near-expiry endpoint.
const MaxNearExpiryDays = 365

// productResponse is the JSON shape of a product. Name is the display form.
type productResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	ProductionDate string `json:"production_date"`
	ExpiryDate     string `json:"expiry_date"`
}

func toProductResponse(p models.Product) productResponse {
	return productResponse{
		ID:             p.ID,
		Name:           html.UnescapeString(p.Name),
		ProductionDate: p.ProductionDate,
		ExpiryDate:     p.ExpiryDate,
	}
}

// ProductHandler handles JSON API requests for products.
type ProductHandler struct {
	service        *services.ProductService
	nearExpiryDays int
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService, nearExpiryDays int) *ProductHandler {
	return &ProductHandler{
		service:        service,
		nearExpiryDays: nearExpiryDays,
	}
}

// RegisterRoutes registers the product routes with the Fiber app.
func (h *ProductHandler) RegisterRoutes(router fiber.Router) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleGetProducts)
	productRoutes.Post("/", h.HandleCreateProduct)
	productRoutes.Get("/near-expiry", h.HandleGetNearExpiry)
	productRoutes.Get("/:id", h.HandleGetProductByID)
	productRoutes.Delete("/:id", h.HandleDeleteProduct)
}

// HandleGetProducts lists all products, earliest expiry first.
func (h *ProductHandler) HandleGetProducts(c *fiber.Ctx) error {
	products, err := h.service.ListProducts(c.UserContext())
	if err != nil {
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "could not retrieve products")
	}

	res := make([]productResponse, 0, len(products))
	for _, p := range products {
		res = append(res, toProductResponse(p))
	}
	return c.JSON(res)
}

// HandleGetProductByID retrieves a single product by its ID.
func (h *ProductHandler) HandleGetProductByID(c *fiber.Ctx) error {
	product, err := h.service.GetProduct(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrProductNotFound) {
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "product not found")
		}
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "could not retrieve product")
	}
	return c.JSON(toProductResponse(*product))
}

// HandleCreateProduct creates a product from a JSON or form body.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var input services.ProductInput
	if err := c.BodyParser(&input); err != nil {
		return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
	}

	product, err := h.service.CreateProduct(c.UserContext(), input)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		}
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "could not create product")
	}
	return c.Status(fiber.StatusCreated).JSON(toProductResponse(*product))
}

// HandleDeleteProduct deletes a product by its ID.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	if err := h.service.DeleteProduct(c.UserContext(), c.Params("id")); err != nil {
		if errors.Is(err, repositories.ErrProductNotFound) {
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "product not found")
		}
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "could not delete product")
	}
	return c.JSON(fiber.Map{"message": "product deleted"})
}

// HandleGetNearExpiry lists products expiring within ?days= days, inclusive.
func (h *ProductHandler) HandleGetNearExpiry(c *fiber.Ctx) error {
	days := h.nearExpiryDays
	if c.Query("days") != "" {
		days = c.QueryInt("days", -1)
		if days < 0 || days > MaxNearExpiryDays {
			return writeError(c, fiber.StatusBadRequest, "INVALID_DAYS", "days must be between 0 and 365")
		}
	}

	items := h.service.GetNearExpiry(c.UserContext(), days)
	for i := range items {
		items[i].Name = html.UnescapeString(items[i].Name)
	}
	return c.JSON(fiber.Map{
		"days":  days,
		"items": items,
	})
}
