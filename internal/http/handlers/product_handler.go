package handlers

import (
	"github.com/gofiber/fiber/v2"

	"cartscout/internal/services"
	"cartscout/internal/validate"
)

type ProductHandler struct {
	Products *services.ProductService
}

// Search serves GET /products/search?q=&limit=.
func (h *ProductHandler) Search(c *fiber.Ctx) error {
	limit := validate.Limit(c.QueryInt("limit", 0))
	products, err := h.Products.Search(c.Query("q"), limit)
	if err != nil {
		return fail(c, "products.search", err)
	}
	return okMeta(c, products, fiber.Map{"limit": limit, "count": len(products)})
}
