package services_test

import (
	"testing"
	"time"

	"cartscout/internal/repos"
	"cartscout/internal/services"
)

func TestCreateList_Defaults(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, "u1")

	l, err := e.lists.CreateList(u, services.ListInput{Name: ptr("   "), ListType: ptr("weekly")})
	if err != nil {
		t.Fatal(err)
	}
	if l.Name != "New list" || l.ListType != "custom" || l.WeekStart != nil {
		t.Fatalf("unexpected defaults: %+v", l)
	}

	l, err = e.lists.CreateList(u, services.ListInput{Name: ptr(" Groceries "), ListType: ptr("next_order"), WeekStart: ptr("2025-03-03")})
	if err != nil {
		t.Fatal(err)
	}
	if l.Name != "Groceries" || l.ListType != "next_order" || l.WeekStart == nil || *l.WeekStart != "2025-03-03" {
		t.Fatalf("unexpected list: %+v", l)
	}

	_, err = e.lists.CreateList(u, services.ListInput{WeekStart: ptr("next monday")})
	wantCode(t, err, services.CodeValidation)
}

func TestListsAreScopedByOwner(t *testing.T) {
	e := newEnv(t)
	alice, bob := e.user(t, "alice"), e.user(t, "bob")

	l, err := e.lists.CreateList(alice, services.ListInput{Name: ptr("Alice's")})
	if err != nil {
		t.Fatal(err)
	}

	_, err = e.lists.GetList(bob, l.ID)
	wantCode(t, err, services.CodeNotFound)
	_, err = e.lists.UpdateList(bob, l.ID, services.ListInput{Name: ptr("mine now")})
	wantCode(t, err, services.CodeNotFound)
	wantCode(t, e.lists.DeleteList(bob, l.ID), services.CodeNotFound)
	_, err = e.lists.AddItem(bob, l.ID, services.ItemInput{FreeText: ptr("milk")})
	wantCode(t, err, services.CodeNotFound)

	bobs, err := e.lists.ListsForUser(bob)
	if err != nil {
		t.Fatal(err)
	}
	if len(bobs) != 0 {
		t.Fatalf("bob should see no lists, got %d", len(bobs))
	}
}

func TestListsForUser_NewestFirst(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, "u1")

	first, _ := e.lists.CreateList(u, services.ListInput{Name: ptr("first")})
	time.Sleep(2 * time.Millisecond)
	second, _ := e.lists.CreateList(u, services.ListInput{Name: ptr("second")})

	got, err := e.lists.ListsForUser(u)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != second.ID {
		t.Fatalf("expected second list first, got %+v", got)
	}

	// Adding an item touches the list and moves it to the top.
	time.Sleep(2 * time.Millisecond)
	if _, err := e.lists.AddItem(u, first.ID, services.ItemInput{FreeText: ptr("eggs")}); err != nil {
		t.Fatal(err)
	}
	got, _ = e.lists.ListsForUser(u)
	if got[0].ID != first.ID {
		t.Fatalf("expected touched list first, got %s", got[0].Name)
	}
}

func TestUpdateList_Partial(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, "u1")
	l, _ := e.lists.CreateList(u, services.ListInput{Name: ptr("Weekly"), WeekStart: ptr("2025-03-03")})

	same, err := e.lists.UpdateList(u, l.ID, services.ListInput{})
	if err != nil {
		t.Fatal(err)
	}
	if same.UpdatedAt != l.UpdatedAt || same.Name != "Weekly" {
		t.Fatalf("empty patch changed the list: %+v", same)
	}

	time.Sleep(2 * time.Millisecond)
	upd, err := e.lists.UpdateList(u, l.ID, services.ListInput{ListType: ptr("current_week")})
	if err != nil {
		t.Fatal(err)
	}
	if upd.Name != "Weekly" || upd.ListType != "current_week" || upd.WeekStart == nil {
		t.Fatalf("partial update clobbered fields: %+v", upd)
	}
	if upd.UpdatedAt <= l.UpdatedAt {
		t.Fatalf("updated_at not bumped: %s <= %s", upd.UpdatedAt, l.UpdatedAt)
	}

	cleared, err := e.lists.UpdateList(u, l.ID, services.ListInput{WeekStart: ptr(""), WeekStartSet: true})
	if err != nil {
		t.Fatal(err)
	}
	if cleared.WeekStart != nil {
		t.Fatalf("week_start not cleared: %v", *cleared.WeekStart)
	}

	_, err = e.lists.UpdateList(u, l.ID, services.ListInput{ListType: ptr("someday")})
	wantCode(t, err, services.CodeValidation)
}

func TestAddItem_Rules(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, "u1")
	l, _ := e.lists.CreateList(u, services.ListInput{})

	_, err := e.lists.AddItem(u, l.ID, services.ItemInput{FreeText: ptr("   ")})
	wantCode(t, err, services.CodeValidation)

	_, err = e.lists.AddItem(u, l.ID, services.ItemInput{CanonicalProductID: ptr("prod-does-not-exist")})
	wantCode(t, err, services.CodeNotFound)

	_, err = e.lists.AddItem(u, l.ID, services.ItemInput{FreeText: ptr("milk"), Quantity: ptr(0.0)})
	wantCode(t, err, services.CodeValidation)

	a, err := e.lists.AddItem(u, l.ID, services.ItemInput{FreeText: ptr(" oat milk ")})
	if err != nil {
		t.Fatal(err)
	}
	if a.FreeText == nil || *a.FreeText != "oat milk" || a.CanonicalProductID != nil || a.Quantity != 1 || a.SortOrder != 1 {
		t.Fatalf("unexpected free-text item: %+v", a)
	}

	// Both given: the product reference wins.
	b, err := e.lists.AddItem(u, l.ID, services.ItemInput{CanonicalProductID: ptr("prod-bananas"), FreeText: ptr("bananas"), Quantity: ptr(2.5)})
	if err != nil {
		t.Fatal(err)
	}
	if b.CanonicalProductID == nil || b.FreeText != nil {
		t.Fatalf("expected product-only item: %+v", b)
	}
	if b.DisplayName == nil || *b.DisplayName != "Bananas" || b.Quantity != 2.5 || b.SortOrder != 2 {
		t.Fatalf("unexpected product item: %+v", b)
	}
}

func TestUpdateItem(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, "u1")
	l, _ := e.lists.CreateList(u, services.ListInput{})
	it, _ := e.lists.AddItem(u, l.ID, services.ItemInput{FreeText: ptr("bread")})

	got, err := e.lists.UpdateItem(u, l.ID, it.ID, repos.ItemPatch{Checked: ptr(true)})
	if err != nil {
		t.Fatal(err)
	}
	if !got.Checked || got.Quantity != 1 {
		t.Fatalf("unexpected item: %+v", got)
	}

	got, err = e.lists.UpdateItem(u, l.ID, it.ID, repos.ItemPatch{Quantity: ptr(3.0)})
	if err != nil {
		t.Fatal(err)
	}
	if !got.Checked || got.Quantity != 3 {
		t.Fatalf("quantity update lost checked flag: %+v", got)
	}

	_, err = e.lists.UpdateItem(u, l.ID, "missing-item", repos.ItemPatch{Checked: ptr(false)})
	wantCode(t, err, services.CodeNotFound)
	_, err = e.lists.UpdateItem(u, l.ID, "missing-item", repos.ItemPatch{})
	wantCode(t, err, services.CodeNotFound)
	_, err = e.lists.UpdateItem(u, l.ID, it.ID, repos.ItemPatch{Quantity: ptr(-1.0)})
	wantCode(t, err, services.CodeValidation)
}

func TestDeleteItemAndCascade(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, "u1")
	l, _ := e.lists.CreateList(u, services.ListInput{})
	a, _ := e.lists.AddItem(u, l.ID, services.ItemInput{FreeText: ptr("a")})
	_, _ = e.lists.AddItem(u, l.ID, services.ItemInput{FreeText: ptr("b")})
	if _, err := e.stores.SetListStores(u, l.ID, []string{"store-kroger-1"}); err != nil {
		t.Fatal(err)
	}

	if err := e.lists.DeleteItem(u, l.ID, a.ID); err != nil {
		t.Fatal(err)
	}
	wantCode(t, e.lists.DeleteItem(u, l.ID, a.ID), services.CodeNotFound)

	if err := e.lists.DeleteList(u, l.ID); err != nil {
		t.Fatal(err)
	}
	var items, links int
	if err := e.db.Get(&items, `SELECT COUNT(*) FROM list_items WHERE list_id = ?`, l.ID); err != nil {
		t.Fatal(err)
	}
	if err := e.db.Get(&links, `SELECT COUNT(*) FROM list_stores WHERE list_id = ?`, l.ID); err != nil {
		t.Fatal(err)
	}
	if items != 0 || links != 0 {
		t.Fatalf("delete did not cascade: items=%d links=%d", items, links)
	}
}

func TestListsWithItemsAndReorder(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, "u1")
	l, _ := e.lists.CreateList(u, services.ListInput{})
	empty, _ := e.lists.CreateList(u, services.ListInput{Name: ptr("empty")})
	a, _ := e.lists.AddItem(u, l.ID, services.ItemInput{FreeText: ptr("a")})
	b, _ := e.lists.AddItem(u, l.ID, services.ItemInput{FreeText: ptr("b")})
	c, _ := e.lists.AddItem(u, l.ID, services.ItemInput{FreeText: ptr("c")})

	all, err := e.lists.ListsWithItems(u)
	if err != nil {
		t.Fatal(err)
	}
	for _, lw := range all {
		if lw.ID == empty.ID && (lw.Items == nil || len(lw.Items) != 0) {
			t.Fatalf("empty list should carry an empty item slice, got %#v", lw.Items)
		}
		if lw.ID == l.ID && len(lw.Items) != 3 {
			t.Fatalf("expected 3 items, got %d", len(lw.Items))
		}
	}

	_, err = e.lists.ReorderItems(u, l.ID, []string{c.ID, a.ID})
	wantCode(t, err, services.CodeValidation)
	_, err = e.lists.ReorderItems(u, l.ID, []string{c.ID, a.ID, a.ID})
	wantCode(t, err, services.CodeValidation)

	items, err := e.lists.ReorderItems(u, l.ID, []string{c.ID, a.ID, b.ID})
	if err != nil {
		t.Fatal(err)
	}
	if items[0].ID != c.ID || items[1].ID != a.ID || items[2].ID != b.ID {
		t.Fatalf("unexpected order: %s %s %s", items[0].ID, items[1].ID, items[2].ID)
	}
	if items[0].SortOrder != 1 || items[2].SortOrder != 3 {
		t.Fatalf("sort_order not renumbered: %+v", items)
	}
}
