package handlers

import (
	"github.com/gofiber/fiber/v2"

	"cartscout/internal/log"
	"cartscout/internal/services"
)

type StoreHandler struct {
	Stores *services.StoreService
}

func (h *StoreHandler) Index(c *fiber.Ctx) error {
	stores, err := h.Stores.AllStores()
	if err != nil {
		return fail(c, "stores.index", err)
	}
	return ok(c, fiber.StatusOK, stores)
}

func (h *StoreHandler) Favorites(c *fiber.Ctx) error {
	ids, err := h.Stores.FavoriteStoreIDs(userID(c))
	if err != nil {
		return fail(c, "stores.favorites", err)
	}
	return ok(c, fiber.StatusOK, ids)
}

func (h *StoreHandler) AddFavorite(c *fiber.Ctx) error {
	var body struct {
		StoreID string `json:"store_id"`
	}
	if err := decode(c, &body); err != nil {
		return fail(c, "stores.favorites.add", err)
	}
	ids, err := h.Stores.AddFavorite(userID(c), body.StoreID)
	if err != nil {
		return fail(c, "stores.favorites.add", err)
	}
	log.Audit(c, "stores.favorites.add", map[string]any{"store": body.StoreID})
	return ok(c, fiber.StatusCreated, ids)
}

func (h *StoreHandler) RemoveFavorite(c *fiber.Ctx) error {
	id := c.Params("storeId")
	ids, err := h.Stores.RemoveFavorite(userID(c), id)
	if err != nil {
		return fail(c, "stores.favorites.remove", err)
	}
	log.Audit(c, "stores.favorites.remove", map[string]any{"store": id})
	return ok(c, fiber.StatusOK, ids)
}
