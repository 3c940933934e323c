package repos

import (
	"github.com/jmoiron/sqlx"

	"cartscout/internal/domain"
)

type StoreRepo struct{ db *sqlx.DB }

func NewStoreRepo(db *sqlx.DB) *StoreRepo { return &StoreRepo{db: db} }

func (r *StoreRepo) All() ([]domain.Store, error) {
	out := []domain.Store{}
	err := r.db.Select(&out, `
	  SELECT id, external_id, name, address_line, city, state, zip_code, chain, source
	  FROM stores
	  ORDER BY chain, name
	`)
	return out, err
}

func (r *StoreRepo) Exists(id string) (bool, error) {
	var n int
	err := r.db.Get(&n, `SELECT COUNT(*) FROM stores WHERE id = ?`, id)
	return n > 0, err
}

func (r *StoreRepo) FavoriteIDs(userID string) ([]string, error) {
	out := []string{}
	err := r.db.Select(&out, `
	  SELECT store_id FROM user_favorite_stores
	  WHERE user_id = ?
	  ORDER BY created_at, store_id
	`, userID)
	return out, err
}

func (r *StoreRepo) AddFavorite(userID, storeID, now string) error {
	_, err := r.db.Exec(`
	  INSERT INTO user_favorite_stores(user_id, store_id, created_at)
	  VALUES(?, ?, ?)
	  ON CONFLICT(user_id, store_id) DO NOTHING
	`, userID, storeID, now)
	return err
}

func (r *StoreRepo) RemoveFavorite(userID, storeID string) error {
	_, err := r.db.Exec(`DELETE FROM user_favorite_stores WHERE user_id = ? AND store_id = ?`, userID, storeID)
	return err
}
