package services

import (
	"fmt"

	"cartscout/internal/domain"
	"cartscout/internal/repos"
	"cartscout/internal/validate"
)

type StoreService struct {
	Stores *repos.StoreRepo
	Lists  *repos.ListRepo
}

func NewStoreService(s *repos.StoreRepo, l *repos.ListRepo) *StoreService {
	return &StoreService{Stores: s, Lists: l}
}

func (s *StoreService) AllStores() ([]domain.Store, error) {
	stores, err := s.Stores.All()
	if err != nil {
		return nil, fmt.Errorf("load stores: %w", err)
	}
	return stores, nil
}

func (s *StoreService) FavoriteStoreIDs(userID string) ([]string, error) {
	ids, err := s.Stores.FavoriteIDs(userID)
	if err != nil {
		return nil, fmt.Errorf("load favorites: %w", err)
	}
	return ids, nil
}

// AddFavorite is idempotent and returns the user's favorites afterwards.
func (s *StoreService) AddFavorite(userID, storeID string) ([]string, error) {
	id, ok := validate.ID(storeID)
	if !ok {
		return nil, Validation("store_id is required")
	}
	exists, err := s.Stores.Exists(id)
	if err != nil {
		return nil, fmt.Errorf("check store: %w", err)
	}
	if !exists {
		return nil, NotFound("Store not found")
	}
	if err := s.Stores.AddFavorite(userID, id, domain.Now()); err != nil {
		return nil, fmt.Errorf("add favorite: %w", err)
	}
	return s.FavoriteStoreIDs(userID)
}

// RemoveFavorite returns the remaining favorites. Removing a store that is
// not a favorite is not an error.
func (s *StoreService) RemoveFavorite(userID, storeID string) ([]string, error) {
	if id, ok := validate.ID(storeID); ok {
		if err := s.Stores.RemoveFavorite(userID, id); err != nil {
			return nil, fmt.Errorf("remove favorite: %w", err)
		}
	}
	return s.FavoriteStoreIDs(userID)
}

func (s *StoreService) ListStoreIDs(userID, listID string) ([]string, error) {
	if err := s.ownList(userID, listID); err != nil {
		return nil, err
	}
	ids, err := s.Lists.StoreIDs(listID)
	if err != nil {
		return nil, fmt.Errorf("load list stores: %w", err)
	}
	return ids, nil
}

// SetListStores replaces the list's stores. Unknown store ids are skipped and
// duplicates collapse; the stored set is returned.
func (s *StoreService) SetListStores(userID, listID string, storeIDs []string) ([]string, error) {
	if len(storeIDs) > validate.MaxStoreIDs {
		return nil, Validation("Too many stores")
	}
	ids, ok := validate.StoreIDs(storeIDs)
	if !ok {
		return nil, Validation("store_ids must be store identifiers")
	}
	if err := s.ownList(userID, listID); err != nil {
		return nil, err
	}
	if err := s.Lists.ReplaceStores(listID, ids); err != nil {
		return nil, fmt.Errorf("replace list stores: %w", err)
	}
	return s.ListStoreIDs(userID, listID)
}

func (s *StoreService) ownList(userID, listID string) error {
	if _, ok := validate.ID(listID); !ok {
		return NotFound(msgListNotFound)
	}
	if _, err := s.Lists.Get(userID, listID); err != nil {
		return notFoundOr(err, msgListNotFound)
	}
	return nil
}
