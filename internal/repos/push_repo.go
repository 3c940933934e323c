package repos

import (
	"github.com/jmoiron/sqlx"

	"cartscout/internal/domain"
)

type PushRepo struct{ db *sqlx.DB }

func NewPushRepo(db *sqlx.DB) *PushRepo { return &PushRepo{db: db} }

// Upsert registers a device token; a token seen again moves to the new owner
// and platform.
func (r *PushRepo) Upsert(t domain.PushToken) error {
	_, err := r.db.NamedExec(`
	  INSERT INTO push_tokens(id, user_id, token, platform, created_at)
	  VALUES(:id, :user_id, :token, :platform, :created_at)
	  ON CONFLICT(token) DO UPDATE SET user_id = excluded.user_id, platform = excluded.platform
	`, t)
	return err
}
