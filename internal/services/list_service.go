package services

import (
	"fmt"

	"github.com/google/uuid"

	"cartscout/internal/domain"
	"cartscout/internal/repos"
	"cartscout/internal/validate"
)

const (
	defaultListName = "New list"
	msgListNotFound = "List not found"
	msgItemNotFound = "Item not found"
)

type ListService struct {
	Lists    *repos.ListRepo
	Items    *repos.ItemRepo
	Products *repos.ProductRepo
}

func NewListService(l *repos.ListRepo, i *repos.ItemRepo, p *repos.ProductRepo) *ListService {
	return &ListService{Lists: l, Items: i, Products: p}
}

// ListInput is a create or patch body. Nil fields were absent; WeekStartSet
// distinguishes an explicit null week_start (clear it) from a missing one.
type ListInput struct {
	Name         *string
	ListType     *string
	WeekStart    *string
	WeekStartSet bool
}

type ItemInput struct {
	CanonicalProductID *string
	FreeText           *string
	Quantity           *float64
}

func (s *ListService) ListsForUser(userID string) ([]domain.List, error) {
	lists, err := s.Lists.ByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("load lists: %w", err)
	}
	return lists, nil
}

func (s *ListService) ListsWithItems(userID string) ([]domain.ListWithItems, error) {
	lists, err := s.ListsForUser(userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(lists))
	for i, l := range lists {
		ids[i] = l.ID
	}
	items, err := s.Items.ByLists(ids)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	out := make([]domain.ListWithItems, len(lists))
	for i, l := range lists {
		its := items[l.ID]
		if its == nil {
			its = []domain.ListItem{}
		}
		out[i] = domain.ListWithItems{List: l, Items: its}
	}
	return out, nil
}

// GetList returns NOT_FOUND for lists the user does not own, same as for
// lists that do not exist.
func (s *ListService) GetList(userID, listID string) (domain.List, error) {
	if _, ok := validate.ID(listID); !ok {
		return domain.List{}, NotFound(msgListNotFound)
	}
	l, err := s.Lists.Get(userID, listID)
	if err != nil {
		return domain.List{}, notFoundOr(err, msgListNotFound)
	}
	return l, nil
}

func (s *ListService) GetListWithItems(userID, listID string) (domain.ListWithItems, error) {
	l, err := s.GetList(userID, listID)
	if err != nil {
		return domain.ListWithItems{}, err
	}
	items, err := s.Items.ByList(l.ID)
	if err != nil {
		return domain.ListWithItems{}, fmt.Errorf("load items: %w", err)
	}
	return domain.ListWithItems{List: l, Items: items}, nil
}

func (s *ListService) CreateList(userID string, in ListInput) (domain.List, error) {
	name := defaultListName
	if in.Name != nil {
		n, ok := validate.ListName(*in.Name)
		if !ok {
			return domain.List{}, Validation("Name too long")
		}
		if n != "" {
			name = n
		}
	}
	listType := domain.ListCustom
	if in.ListType != nil {
		if t, ok := validate.ListType(*in.ListType); ok {
			listType = t
		}
	}
	weekStart, err := weekStartOf(in)
	if err != nil {
		return domain.List{}, err
	}

	now := domain.Now()
	l := domain.List{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		ListType:  listType,
		WeekStart: weekStart,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Lists.Create(l); err != nil {
		return domain.List{}, fmt.Errorf("create list: %w", err)
	}
	return l, nil
}

// UpdateList applies the fields present in the patch. An empty patch returns
// the list as stored without touching updated_at.
func (s *ListService) UpdateList(userID, listID string, in ListInput) (domain.List, error) {
	l, err := s.GetList(userID, listID)
	if err != nil {
		return domain.List{}, err
	}
	changed := false
	if in.Name != nil {
		n, ok := validate.ListName(*in.Name)
		if !ok {
			return domain.List{}, Validation("Name too long")
		}
		if n == "" {
			return domain.List{}, Validation("Name cannot be empty")
		}
		l.Name = n
		changed = true
	}
	if in.ListType != nil {
		t, ok := validate.ListType(*in.ListType)
		if !ok {
			return domain.List{}, Validation("list_type must be current_week, next_order or custom")
		}
		l.ListType = t
		changed = true
	}
	if in.WeekStartSet {
		ws, err := weekStartOf(in)
		if err != nil {
			return domain.List{}, err
		}
		l.WeekStart = ws
		changed = true
	}
	if !changed {
		return l, nil
	}

	l.UpdatedAt = domain.Now()
	ok, err := s.Lists.Update(l)
	if err != nil {
		return domain.List{}, fmt.Errorf("update list: %w", err)
	}
	if !ok {
		return domain.List{}, NotFound(msgListNotFound)
	}
	return l, nil
}

func weekStartOf(in ListInput) (*string, error) {
	if in.WeekStart == nil || *in.WeekStart == "" {
		return nil, nil
	}
	ws, ok := validate.WeekStart(*in.WeekStart)
	if !ok {
		return nil, Validation("week_start must be a date in YYYY-MM-DD form")
	}
	return &ws, nil
}

func (s *ListService) DeleteList(userID, listID string) error {
	if _, ok := validate.ID(listID); !ok {
		return NotFound(msgListNotFound)
	}
	ok, err := s.Lists.Delete(userID, listID)
	if err != nil {
		return fmt.Errorf("delete list: %w", err)
	}
	if !ok {
		return NotFound(msgListNotFound)
	}
	return nil
}

// AddItem appends an item. A product reference takes precedence over free
// text; the item stores exactly one of them.
func (s *ListService) AddItem(userID, listID string, in ItemInput) (domain.ListItem, error) {
	var productID, freeText string
	if in.CanonicalProductID != nil {
		productID = *in.CanonicalProductID
	}
	if in.FreeText != nil {
		t, ok := validate.FreeText(*in.FreeText)
		if !ok {
			return domain.ListItem{}, Validation("Free text too long")
		}
		freeText = t
	}
	if productID != "" {
		id, ok := validate.ID(productID)
		if !ok {
			return domain.ListItem{}, Validation("Invalid canonical_product_id")
		}
		productID = id
	}
	if productID == "" && freeText == "" {
		return domain.ListItem{}, Validation("Provide canonical_product_id or free_text")
	}
	qty := 1.0
	if in.Quantity != nil {
		if !validate.Quantity(*in.Quantity) {
			return domain.ListItem{}, Validation("quantity must be a positive number")
		}
		qty = *in.Quantity
	}

	l, err := s.GetList(userID, listID)
	if err != nil {
		return domain.ListItem{}, err
	}

	it := domain.ListItem{
		ID:        uuid.NewString(),
		ListID:    l.ID,
		Quantity:  qty,
		CreatedAt: domain.Now(),
	}
	if productID != "" {
		if _, err := s.Products.Get(productID); err != nil {
			return domain.ListItem{}, notFoundOr(err, "Product not found")
		}
		it.CanonicalProductID = &productID
	} else {
		it.FreeText = &freeText
	}
	if err := s.Items.Insert(&it); err != nil {
		return domain.ListItem{}, fmt.Errorf("insert item: %w", err)
	}
	return s.item(l.ID, it.ID)
}

func (s *ListService) UpdateItem(userID, listID, itemID string, patch repos.ItemPatch) (domain.ListItem, error) {
	if patch.Quantity != nil && !validate.Quantity(*patch.Quantity) {
		return domain.ListItem{}, Validation("quantity must be a positive number")
	}
	l, err := s.GetList(userID, listID)
	if err != nil {
		return domain.ListItem{}, err
	}
	if _, ok := validate.ID(itemID); !ok {
		return domain.ListItem{}, NotFound(msgItemNotFound)
	}
	if !patch.Empty() {
		ok, err := s.Items.Update(l.ID, itemID, patch, domain.Now())
		if err != nil {
			return domain.ListItem{}, fmt.Errorf("update item: %w", err)
		}
		if !ok {
			return domain.ListItem{}, NotFound(msgItemNotFound)
		}
	}
	return s.item(l.ID, itemID)
}

func (s *ListService) DeleteItem(userID, listID, itemID string) error {
	l, err := s.GetList(userID, listID)
	if err != nil {
		return err
	}
	if _, ok := validate.ID(itemID); !ok {
		return NotFound(msgItemNotFound)
	}
	ok, err := s.Items.Delete(l.ID, itemID, domain.Now())
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if !ok {
		return NotFound(msgItemNotFound)
	}
	return nil
}

// ReorderItems takes every item id of the list exactly once, in the new order.
func (s *ListService) ReorderItems(userID, listID string, itemIDs []string) ([]domain.ListItem, error) {
	l, err := s.GetList(userID, listID)
	if err != nil {
		return nil, err
	}
	current, err := s.Items.ByList(l.ID)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	if len(itemIDs) != len(current) {
		return nil, Validation("item_ids must contain every item of the list exactly once")
	}
	want := make(map[string]bool, len(current))
	for _, it := range current {
		want[it.ID] = true
	}
	for _, id := range itemIDs {
		if !want[id] {
			return nil, Validation("item_ids must contain every item of the list exactly once")
		}
		delete(want, id)
	}
	if len(itemIDs) > 0 {
		if err := s.Items.Reorder(l.ID, itemIDs, domain.Now()); err != nil {
			return nil, fmt.Errorf("reorder items: %w", err)
		}
	}
	return s.Items.ByList(l.ID)
}

func (s *ListService) item(listID, itemID string) (domain.ListItem, error) {
	it, err := s.Items.Get(listID, itemID)
	if err != nil {
		return domain.ListItem{}, notFoundOr(err, msgItemNotFound)
	}
	return it, nil
}
