package repos

import (
	"database/sql"

	"github.com/jmoiron/sqlx"

	"cartscout/internal/domain"
)

const itemSelect = `
  SELECT li.id, li.list_id, li.canonical_product_id, li.free_text, li.quantity,
         li.sort_order, li.checked, li.created_at,
         cp.display_name, cp.brand, cp.size_description, cp.upc
  FROM list_items li
  LEFT JOIN canonical_products cp ON cp.id = li.canonical_product_id
`

const itemOrder = ` ORDER BY li.sort_order, li.created_at, li.id`

type ItemRepo struct{ db *sqlx.DB }

func NewItemRepo(db *sqlx.DB) *ItemRepo { return &ItemRepo{db: db} }

func (r *ItemRepo) ByList(listID string) ([]domain.ListItem, error) {
	out := []domain.ListItem{}
	err := r.db.Select(&out, itemSelect+` WHERE li.list_id = ?`+itemOrder, listID)
	return out, err
}

// ByLists loads the items of several lists in one query, grouped by list id.
func (r *ItemRepo) ByLists(listIDs []string) (map[string][]domain.ListItem, error) {
	out := make(map[string][]domain.ListItem, len(listIDs))
	if len(listIDs) == 0 {
		return out, nil
	}
	q, args, err := sqlx.In(itemSelect+` WHERE li.list_id IN (?)`+itemOrder, listIDs)
	if err != nil {
		return nil, err
	}
	var rows []domain.ListItem
	if err := r.db.Select(&rows, r.db.Rebind(q), args...); err != nil {
		return nil, err
	}
	for _, it := range rows {
		out[it.ListID] = append(out[it.ListID], it)
	}
	return out, nil
}

// Get returns sql.ErrNoRows when the item is not part of the list.
func (r *ItemRepo) Get(listID, itemID string) (domain.ListItem, error) {
	var it domain.ListItem
	err := r.db.Get(&it, itemSelect+` WHERE li.id = ? AND li.list_id = ?`, itemID, listID)
	return it, err
}

// Insert appends the item to the end of its list and bumps the list's
// updated_at. SortOrder is assigned here.
func (r *ItemRepo) Insert(it *domain.ListItem) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.Get(&it.SortOrder, `SELECT COALESCE(MAX(sort_order), 0) + 1 FROM list_items WHERE list_id = ?`, it.ListID); err != nil {
		return err
	}
	if _, err := tx.NamedExec(`
	  INSERT INTO list_items(id, list_id, canonical_product_id, free_text, quantity, sort_order, checked, created_at)
	  VALUES(:id, :list_id, :canonical_product_id, :free_text, :quantity, :sort_order, :checked, :created_at)
	`, it); err != nil {
		return err
	}
	if err := touch(tx, it.ListID, it.CreatedAt); err != nil {
		return err
	}
	return tx.Commit()
}

// ItemPatch carries the fields a client may change on an item; nil means keep.
type ItemPatch struct {
	Quantity *float64
	Checked  *bool
}

func (p ItemPatch) Empty() bool { return p.Quantity == nil && p.Checked == nil }

func (r *ItemRepo) Update(listID, itemID string, p ItemPatch, now string) (bool, error) {
	if p.Empty() {
		return false, nil
	}
	tx, err := r.db.Beginx()
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(`
	  UPDATE list_items
	  SET quantity = COALESCE(?, quantity), checked = COALESCE(?, checked)
	  WHERE id = ? AND list_id = ?
	`, p.Quantity, p.Checked, itemID, listID)
	if err != nil {
		return false, err
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return false, err
	}
	if err := touch(tx, listID, now); err != nil {
		return false, err
	}
	return true, tx.Commit()
}

func (r *ItemRepo) Delete(listID, itemID, now string) (bool, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(`DELETE FROM list_items WHERE id = ? AND list_id = ?`, itemID, listID)
	if err != nil {
		return false, err
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return false, err
	}
	if err := touch(tx, listID, now); err != nil {
		return false, err
	}
	return true, tx.Commit()
}

// Reorder numbers the given items 1..n in order. Every id must belong to the
// list; otherwise nothing changes and sql.ErrNoRows is returned.
func (r *ItemRepo) Reorder(listID string, itemIDs []string, now string) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for i, id := range itemIDs {
		res, err := tx.Exec(`UPDATE list_items SET sort_order = ? WHERE id = ? AND list_id = ?`, i+1, id, listID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return sql.ErrNoRows
		}
	}
	if err := touch(tx, listID, now); err != nil {
		return err
	}
	return tx.Commit()
}

func touch(tx *sqlx.Tx, listID, now string) error {
	_, err := tx.Exec(`UPDATE lists SET updated_at = ? WHERE id = ?`, now, listID)
	return err
}
