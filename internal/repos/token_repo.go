package repos

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
)

// TokenRepo stores hashes of issued refresh tokens. A token is usable once.
type TokenRepo struct{ db *sqlx.DB }

func NewTokenRepo(db *sqlx.DB) *TokenRepo { return &TokenRepo{db: db} }

func (r *TokenRepo) Save(id, userID, hash, expiresAt, createdAt string) error {
	_, err := r.db.Exec(`
	  INSERT INTO refresh_tokens(id, user_id, token_hash, expires_at, created_at)
	  VALUES(?,?,?,?,?)
	`, id, userID, hash, expiresAt, createdAt)
	return err
}

// Consume deletes the live token with the given hash and returns its owner.
// sql.ErrNoRows means unknown, already used or expired.
func (r *TokenRepo) Consume(hash, now string) (string, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	var row struct {
		ID     string `db:"id"`
		UserID string `db:"user_id"`
	}
	if err := tx.Get(&row, `
	  SELECT rt.id, rt.user_id
	  FROM refresh_tokens rt
	  JOIN users u ON u.id = rt.user_id
	  WHERE rt.token_hash = ? AND rt.expires_at > ?
	`, hash, now); err != nil {
		return "", err
	}
	res, err := tx.Exec(`DELETE FROM refresh_tokens WHERE id = ?`, row.ID)
	if err != nil {
		return "", err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return "", sql.ErrNoRows
	}
	return row.UserID, tx.Commit()
}

func (r *TokenRepo) PruneExpired(now string) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM refresh_tokens WHERE expires_at <= ?`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
