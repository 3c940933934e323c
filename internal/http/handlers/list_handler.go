package handlers

import (
	"github.com/gofiber/fiber/v2"

	"cartscout/internal/domain"
	"cartscout/internal/log"
	"cartscout/internal/repos"
	"cartscout/internal/services"
)

type ListHandler struct {
	Lists  *services.ListService
	Stores *services.StoreService
}

type listBody struct {
	Name      *string   `json:"name"`
	ListType  *string   `json:"list_type"`
	WeekStart optString `json:"week_start"`
}

func (b listBody) input() services.ListInput {
	return services.ListInput{
		Name:         b.Name,
		ListType:     b.ListType,
		WeekStart:    b.WeekStart.Value,
		WeekStartSet: b.WeekStart.Set,
	}
}

type itemBody struct {
	CanonicalProductID *string  `json:"canonical_product_id"`
	FreeText           *string  `json:"free_text"`
	Quantity           *float64 `json:"quantity"`
}

type itemPatchBody struct {
	Quantity *float64  `json:"quantity"`
	Checked  *flexBool `json:"checked"`
}

func includeItems(c *fiber.Ctx) bool { return c.Query("include") == "items" }

func (h *ListHandler) Index(c *fiber.Ctx) error {
	if includeItems(c) {
		lists, err := h.Lists.ListsWithItems(userID(c))
		if err != nil {
			return fail(c, "lists.index", err)
		}
		return ok(c, fiber.StatusOK, lists)
	}
	lists, err := h.Lists.ListsForUser(userID(c))
	if err != nil {
		return fail(c, "lists.index", err)
	}
	return ok(c, fiber.StatusOK, lists)
}

func (h *ListHandler) Create(c *fiber.Ctx) error {
	var body listBody
	if err := decode(c, &body); err != nil {
		return fail(c, "lists.create", err)
	}
	l, err := h.Lists.CreateList(userID(c), body.input())
	if err != nil {
		return fail(c, "lists.create", err)
	}
	log.Audit(c, "lists.create", map[string]any{"list": l.ID})
	return ok(c, fiber.StatusCreated, l)
}

func (h *ListHandler) Show(c *fiber.Ctx) error {
	if includeItems(c) {
		l, err := h.Lists.GetListWithItems(userID(c), c.Params("id"))
		if err != nil {
			return fail(c, "lists.show", err)
		}
		return ok(c, fiber.StatusOK, l)
	}
	l, err := h.Lists.GetList(userID(c), c.Params("id"))
	if err != nil {
		return fail(c, "lists.show", err)
	}
	return ok(c, fiber.StatusOK, l)
}

func (h *ListHandler) Update(c *fiber.Ctx) error {
	var body listBody
	if err := decode(c, &body); err != nil {
		return fail(c, "lists.update", err)
	}
	l, err := h.Lists.UpdateList(userID(c), c.Params("id"), body.input())
	if err != nil {
		return fail(c, "lists.update", err)
	}
	log.Audit(c, "lists.update", map[string]any{"list": l.ID})
	return ok(c, fiber.StatusOK, l)
}

func (h *ListHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.Lists.DeleteList(userID(c), id); err != nil {
		return fail(c, "lists.delete", err)
	}
	log.Audit(c, "lists.delete", map[string]any{"list": id})
	return noContent(c)
}

func (h *ListHandler) StoreIDs(c *fiber.Ctx) error {
	ids, err := h.Stores.ListStoreIDs(userID(c), c.Params("id"))
	if err != nil {
		return fail(c, "lists.stores", err)
	}
	return ok(c, fiber.StatusOK, ids)
}

func (h *ListHandler) SetStores(c *fiber.Ctx) error {
	var body struct {
		StoreIDs []string `json:"store_ids"`
	}
	if err := decode(c, &body); err != nil {
		return fail(c, "lists.stores.set", err)
	}
	ids, err := h.Stores.SetListStores(userID(c), c.Params("id"), body.StoreIDs)
	if err != nil {
		return fail(c, "lists.stores.set", err)
	}
	log.Audit(c, "lists.stores.set", map[string]any{"list": c.Params("id"), "stores": len(ids)})
	return ok(c, fiber.StatusOK, ids)
}

func (h *ListHandler) AddItem(c *fiber.Ctx) error {
	var body itemBody
	if err := decode(c, &body); err != nil {
		return fail(c, "items.add", err)
	}
	it, err := h.Lists.AddItem(userID(c), c.Params("id"), services.ItemInput{
		CanonicalProductID: body.CanonicalProductID,
		FreeText:           body.FreeText,
		Quantity:           body.Quantity,
	})
	if err != nil {
		return fail(c, "items.add", err)
	}
	log.Audit(c, "items.add", map[string]any{"list": it.ListID, "item": it.ID})
	return ok(c, fiber.StatusCreated, it)
}

func (h *ListHandler) UpdateItem(c *fiber.Ctx) error {
	var body itemPatchBody
	if err := decode(c, &body); err != nil {
		return fail(c, "items.update", err)
	}
	patch := repos.ItemPatch{Quantity: body.Quantity}
	if body.Checked != nil {
		v := bool(*body.Checked)
		patch.Checked = &v
	}
	it, err := h.Lists.UpdateItem(userID(c), c.Params("id"), c.Params("itemId"), patch)
	if err != nil {
		return fail(c, "items.update", err)
	}
	log.Audit(c, "items.update", map[string]any{"list": it.ListID, "item": it.ID})
	return ok(c, fiber.StatusOK, it)
}

func (h *ListHandler) DeleteItem(c *fiber.Ctx) error {
	listID, itemID := c.Params("id"), c.Params("itemId")
	if err := h.Lists.DeleteItem(userID(c), listID, itemID); err != nil {
		return fail(c, "items.delete", err)
	}
	log.Audit(c, "items.delete", map[string]any{"list": listID, "item": itemID})
	return noContent(c)
}

func (h *ListHandler) ReorderItems(c *fiber.Ctx) error {
	var body struct {
		ItemIDs []string `json:"item_ids"`
	}
	if err := decode(c, &body); err != nil {
		return fail(c, "items.reorder", err)
	}
	items, err := h.Lists.ReorderItems(userID(c), c.Params("id"), body.ItemIDs)
	if err != nil {
		return fail(c, "items.reorder", err)
	}
	log.Audit(c, "items.reorder", map[string]any{"list": c.Params("id"), "items": len(items)})
	return ok(c, fiber.StatusOK, items)
}

// Print renders a list as a plain HTML page for printing or sharing.
func (h *ListHandler) Print(c *fiber.Ctx) error {
	l, err := h.Lists.GetListWithItems(userID(c), c.Params("id"))
	if err != nil {
		return fail(c, "lists.print", err)
	}
	ids, err := h.Stores.ListStoreIDs(userID(c), l.ID)
	if err != nil {
		return fail(c, "lists.print", err)
	}
	all, err := h.Stores.AllStores()
	if err != nil {
		return fail(c, "lists.print", err)
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var stores []domain.Store
	for _, s := range all {
		if want[s.ID] {
			stores = append(stores, s)
		}
	}
	return render(c, "list_print", fiber.Map{"List": l, "Items": l.Items, "Stores": stores})
}
