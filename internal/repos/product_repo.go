package repos

import (
	"strings"

	"github.com/jmoiron/sqlx"

	"cartscout/internal/domain"
)

const productColumns = `id, display_name, brand, category, size_description, upc, source`

type ProductRepo struct{ db *sqlx.DB }

func NewProductRepo(db *sqlx.DB) *ProductRepo { return &ProductRepo{db: db} }

func (r *ProductRepo) Get(id string) (domain.CanonicalProduct, error) {
	var p domain.CanonicalProduct
	err := r.db.Get(&p, `SELECT `+productColumns+` FROM canonical_products WHERE id = ?`, id)
	return p, err
}

// Search does a substring match on product name or brand, ignoring case and
// accents.
func (r *ProductRepo) Search(q string, limit int) ([]domain.CanonicalProduct, error) {
	out := []domain.CanonicalProduct{}
	err := r.db.Select(&out, `
	  SELECT `+productColumns+`
	  FROM canonical_products
	  WHERE search_text LIKE ? ESCAPE '\'
	  ORDER BY display_name, id
	  LIMIT ?
	`, "%"+escapeLike(Fold(q))+"%", limit)
	return out, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
