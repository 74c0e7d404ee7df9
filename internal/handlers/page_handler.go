package handlers

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html"
	"html/template"

	"shelflife/internal/dates"
	"shelflife/internal/export"
	"shelflife/internal/middleware"
	"shelflife/internal/models"
	"shelflife/internal/repositories"
	"shelflife/internal/services"

	"github.com/gofiber/fiber/v2"
)

//go:embed templates/*.html
var templateFS embed.FS

// Names are stored escaped; display undoes that so html/template escapes them exactly once.
var pageTemplates = template.Must(
	template.New("pages").
		Funcs(template.FuncMap{"display": html.UnescapeString}).
		ParseFS(templateFS, "templates/*.html"),
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type indexPage struct {
	Title          string
	Flash          *Flash
	CSRFToken      string
	MaxNameLength  int
	MaxFutureYears int
	Products       []models.Product
}

type nearExpiryPage struct {
	Title string
	Days  int
	Items []models.NearExpiryItem
}

type errorPage struct {
	Title   string
	Message string
}

// PageHandler serves the server-rendered product pages.
type PageHandler struct {
	service        *services.ProductService
	nearExpiryDays int
}

// NewPageHandler creates a new PageHandler.
func NewPageHandler(service *services.ProductService, nearExpiryDays int) *PageHandler {
	return &PageHandler{
		service:        service,
		nearExpiryDays: nearExpiryDays,
	}
}

// RegisterRoutes registers the page routes. middlewares run before every page
// handler, so form protection applies to the pages only.
func (h *PageHandler) RegisterRoutes(router fiber.Router, middlewares ...fiber.Handler) {
	chain := func(handler fiber.Handler) []fiber.Handler {
		return append(append([]fiber.Handler{}, middlewares...), handler)
	}

	router.Get("/", chain(h.HandleIndex)...)
	router.Post("/", chain(h.HandleCreate)...)
	router.Post("/delete/:id", chain(h.HandleDelete)...)
	router.Get("/near-expiry", chain(h.HandleNearExpiry)...)
	router.Get("/products/export.xlsx", chain(h.HandleExport)...)
}

// HandleIndex renders the add form and the product list.
func (h *PageHandler) HandleIndex(c *fiber.Ctx) error {
	page := indexPage{
		Title:          "نظام إدارة المنتجات",
		Flash:          popFlash(c),
		CSRFToken:      middleware.GetCSRFToken(c),
		MaxNameLength:  services.MaxNameLength,
		MaxFutureYears: dates.MaxFutureYears,
	}

	products, err := h.service.ListProducts(c.UserContext())
	if err != nil {
		page.Flash = &Flash{Category: flashDanger, Message: msgListFailed}
		return h.render(c, fiber.StatusInternalServerError, "index.html", page)
	}
	page.Products = products
	return h.render(c, fiber.StatusOK, "index.html", page)
}

// HandleCreate adds a product from the submitted form and redirects back to the list.
func (h *PageHandler) HandleCreate(c *fiber.Ctx) error {
	input := services.ProductInput{
		Name:           c.FormValue("name"),
		ProductionDate: c.FormValue("production_date"),
		ExpiryDate:     c.FormValue("expiry_date"),
	}

	if _, err := h.service.CreateProduct(c.UserContext(), input); err != nil {
		setFlash(c, flashDanger, createErrorMessage(err))
	} else {
		setFlash(c, flashSuccess, msgProductAdded)
	}
	return c.Redirect("/", fiber.StatusSeeOther)
}

// HandleDelete removes a product. Unknown IDs get a 404 page.
func (h *PageHandler) HandleDelete(c *fiber.Ctx) error {
	err := h.service.DeleteProduct(c.UserContext(), c.Params("id"))
	switch {
	case errors.Is(err, repositories.ErrProductNotFound):
		return h.render(c, fiber.StatusNotFound, "error.html", errorPage{
			Title:   "404",
			Message: msgProductNotFound,
		})
	case err != nil:
		setFlash(c, flashDanger, deleteErrorMessage(err))
	default:
		setFlash(c, flashSuccess, msgProductDeleted)
	}
	return c.Redirect("/", fiber.StatusSeeOther)
}

// HandleFormRejected answers a page form that failed the CSRF check: the
// user is sent back to the list with a danger flash and a fresh form.
func (h *PageHandler) HandleFormRejected(c *fiber.Ctx, _ error) error {
	setFlash(c, flashDanger, msgFormExpired)
	return c.Redirect("/", fiber.StatusSeeOther)
}

// HandleNearExpiry renders the products expiring within the configured window.
func (h *PageHandler) HandleNearExpiry(c *fiber.Ctx) error {
	return h.render(c, fiber.StatusOK, "near_expiry.html", nearExpiryPage{
		Title: "منتجات قريبة الانتهاء",
		Days:  h.nearExpiryDays,
		Items: h.service.GetNearExpiry(c.UserContext(), h.nearExpiryDays),
	})
}

// HandleExport streams every product as an XLSX workbook.
func (h *PageHandler) HandleExport(c *fiber.Ctx) error {
	products, err := h.service.ListProducts(c.UserContext())
	if err != nil {
		return h.renderError(c, fiber.StatusInternalServerError, msgExportFailed)
	}

	var buf bytes.Buffer
	if err := export.WriteProducts(&buf, products, h.service.Now()); err != nil {
		return h.renderError(c, fiber.StatusInternalServerError, msgExportFailed)
	}

	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="products.xlsx"`)
	return c.Send(buf.Bytes())
}

func (h *PageHandler) renderError(c *fiber.Ctx, status int, message string) error {
	return h.render(c, status, "error.html", errorPage{Title: msgUnexpectedFailure, Message: message})
}

func (h *PageHandler) render(c *fiber.Ctx, status int, name string, data any) error {
	var buf bytes.Buffer
	if err := pageTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Status(status).Send(buf.Bytes())
}
