package services_test

import (
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"cartscout/internal/auth"
	"cartscout/internal/domain"
	"cartscout/internal/repos"
	"cartscout/internal/services"
)

type env struct {
	db       *sqlx.DB
	auth     *services.AuthService
	lists    *services.ListService
	stores   *services.StoreService
	products *services.ProductService
	push     *services.PushService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	listRepo := repos.NewListRepo(db)
	productRepo := repos.NewProductRepo(db)
	iss := auth.NewIssuer("test-access", "test-refresh", 15*time.Minute, time.Hour)
	return &env{
		db:       db,
		auth:     services.NewAuthService(repos.NewUserRepo(db), repos.NewTokenRepo(db), iss),
		lists:    services.NewListService(listRepo, repos.NewItemRepo(db), productRepo),
		stores:   services.NewStoreService(repos.NewStoreRepo(db), listRepo),
		products: services.NewProductService(productRepo),
		push:     services.NewPushService(repos.NewPushRepo(db)),
	}
}

// user inserts a user row directly; bcrypt is only exercised by the auth tests.
func (e *env) user(t *testing.T, id string) string {
	t.Helper()
	err := repos.NewUserRepo(e.db).Create(domain.User{ID: id, Email: id + "@example.com", Hash: "x", CreatedAt: domain.Now()})
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func wantCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s, got nil", code)
	}
	if !services.IsCode(err, code) {
		t.Fatalf("expected %s, got %v", code, err)
	}
}

func ptr[T any](v T) *T { return &v }
