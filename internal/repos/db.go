package repos

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/mozillazg/go-unidecode"
	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"

	"cartscout/internal/domain"
	"cartscout/internal/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

//go:embed seed/catalog.yaml
var catalogYAML []byte

// OpenDB opens the sqlite database, applies pending migrations and seeds the
// store and product catalog. ":memory:" gives a private in-memory database.
func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", withPragmas(dsn))
	if err != nil {
		return nil, err
	}
	// One connection: an in-memory database lives and dies with its
	// connection, and sqlite serializes writers anyway.
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := migrateUp(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := seedCatalog(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func withPragmas(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func migrateUp(db *sqlx.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migrations source: %w", err)
	}
	driver, err := sqlite.WithInstance(db.DB, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("migrations driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	// m.Close would close the shared *sql.DB, so only the source is released.
	defer func() { _ = src.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	v, dirty, _ := m.Version()
	log.Logger().WithField("version", v).WithField("dirty", dirty).Info("db.migrate")
	return nil
}

type catalog struct {
	Stores   []domain.Store            `yaml:"stores"`
	Products []domain.CanonicalProduct `yaml:"products"`
}

// seedCatalog inserts the default stores and products. Existing rows are left
// alone, so it is safe on every start.
func seedCatalog(db *sqlx.DB) error {
	var c catalog
	if err := yaml.Unmarshal(catalogYAML, &c); err != nil {
		return fmt.Errorf("parse catalog seed: %w", err)
	}

	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, s := range c.Stores {
		if _, err := tx.Exec(`
			INSERT INTO stores(id, external_id, name, address_line, city, state, zip_code, chain, source)
			VALUES(?,?,?,?,?,?,?,?,?)
			ON CONFLICT(id) DO NOTHING
		`, s.ID, s.ExternalID, s.Name, s.AddressLine, s.City, s.State, s.ZipCode, s.Chain, s.Source); err != nil {
			return fmt.Errorf("seed store %s: %w", s.ID, err)
		}
	}
	for _, p := range c.Products {
		if _, err := tx.Exec(`
			INSERT INTO canonical_products(id, display_name, brand, category, size_description, upc, source, search_text)
			VALUES(?,?,?,?,?,?,?,?)
			ON CONFLICT(id) DO NOTHING
		`, p.ID, p.DisplayName, p.Brand, p.Category, p.SizeDescription, p.UPC, p.Source, SearchText(p)); err != nil {
			return fmt.Errorf("seed product %s: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

// Fold lower-cases s and romanizes it, so "Jalapeño" and "jalapeno" compare equal.
func Fold(s string) string {
	return strings.ToLower(unidecode.Unidecode(s))
}

// SearchText is the folded text a product is matched against: name and brand.
func SearchText(p domain.CanonicalProduct) string {
	t := Fold(p.DisplayName)
	if p.Brand != nil && *p.Brand != "" {
		t += "\n" + Fold(*p.Brand)
	}
	return t
}
