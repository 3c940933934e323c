package handlers

import (
	"github.com/jmoiron/sqlx"

	"cartscout/internal/auth"
	"cartscout/internal/repos"
	"cartscout/internal/services"
)

type Deps struct {
	Auth *services.AuthService

	AuthHandler    *AuthHandler
	ListHandler    *ListHandler
	StoreHandler   *StoreHandler
	ProductHandler *ProductHandler
	PushHandler    *PushHandler
}

func NewDeps(db *sqlx.DB, iss *auth.Issuer) *Deps {
	userRepo := repos.NewUserRepo(db)
	tokenRepo := repos.NewTokenRepo(db)
	listRepo := repos.NewListRepo(db)
	itemRepo := repos.NewItemRepo(db)
	storeRepo := repos.NewStoreRepo(db)
	prodRepo := repos.NewProductRepo(db)
	pushRepo := repos.NewPushRepo(db)

	authSvc := services.NewAuthService(userRepo, tokenRepo, iss)
	listSvc := services.NewListService(listRepo, itemRepo, prodRepo)
	storeSvc := services.NewStoreService(storeRepo, listRepo)
	prodSvc := services.NewProductService(prodRepo)
	pushSvc := services.NewPushService(pushRepo)

	return &Deps{
		Auth:           authSvc,
		AuthHandler:    &AuthHandler{Auth: authSvc},
		ListHandler:    &ListHandler{Lists: listSvc, Stores: storeSvc},
		StoreHandler:   &StoreHandler{Stores: storeSvc},
		ProductHandler: &ProductHandler{Products: prodSvc},
		PushHandler:    &PushHandler{Push: pushSvc},
	}
}
