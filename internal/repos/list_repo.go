package repos

import (
	"github.com/jmoiron/sqlx"

	"cartscout/internal/domain"
)

const listColumns = `id, user_id, name, list_type, week_start, created_at, updated_at`

type ListRepo struct{ db *sqlx.DB }

func NewListRepo(db *sqlx.DB) *ListRepo { return &ListRepo{db: db} }

// ByUser returns the user's lists, most recently changed first.
func (r *ListRepo) ByUser(userID string) ([]domain.List, error) {
	out := []domain.List{}
	err := r.db.Select(&out, `
	  SELECT `+listColumns+`
	  FROM lists
	  WHERE user_id = ?
	  ORDER BY updated_at DESC, created_at DESC, id
	`, userID)
	return out, err
}

// Get returns sql.ErrNoRows when the list does not exist or belongs to someone else.
func (r *ListRepo) Get(userID, listID string) (domain.List, error) {
	var l domain.List
	err := r.db.Get(&l, `SELECT `+listColumns+` FROM lists WHERE id = ? AND user_id = ?`, listID, userID)
	return l, err
}

func (r *ListRepo) Create(l domain.List) error {
	_, err := r.db.NamedExec(`
	  INSERT INTO lists(id, user_id, name, list_type, week_start, created_at, updated_at)
	  VALUES(:id, :user_id, :name, :list_type, :week_start, :created_at, :updated_at)
	`, l)
	return err
}

// Update writes the mutable columns of an owned list.
func (r *ListRepo) Update(l domain.List) (bool, error) {
	res, err := r.db.NamedExec(`
	  UPDATE lists
	  SET name = :name, list_type = :list_type, week_start = :week_start, updated_at = :updated_at
	  WHERE id = :id AND user_id = :user_id
	`, l)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Delete removes an owned list; items and store links go with it.
func (r *ListRepo) Delete(userID, listID string) (bool, error) {
	res, err := r.db.Exec(`DELETE FROM lists WHERE id = ? AND user_id = ?`, listID, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *ListRepo) StoreIDs(listID string) ([]string, error) {
	out := []string{}
	err := r.db.Select(&out, `
	  SELECT ls.store_id
	  FROM list_stores ls
	  JOIN stores s ON s.id = ls.store_id
	  WHERE ls.list_id = ?
	  ORDER BY s.chain, s.name
	`, listID)
	return out, err
}

// ReplaceStores swaps the list's store set for storeIDs. Ids with no matching
// store are skipped.
func (r *ListRepo) ReplaceStores(listID string, storeIDs []string) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM list_stores WHERE list_id = ?`, listID); err != nil {
		return err
	}
	for _, id := range storeIDs {
		if _, err := tx.Exec(`
		  INSERT INTO list_stores(list_id, store_id)
		  SELECT ?, id FROM stores WHERE id = ?
		  ON CONFLICT(list_id, store_id) DO NOTHING
		`, listID, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}
