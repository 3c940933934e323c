package services

import (
	"fmt"

	"cartscout/internal/domain"
	"cartscout/internal/repos"
	"cartscout/internal/validate"
)

type ProductService struct {
	Products *repos.ProductRepo
}

func NewProductService(p *repos.ProductRepo) *ProductService { return &ProductService{Products: p} }

// Search returns add-item suggestions. An empty query yields no results.
func (s *ProductService) Search(q string, limit int) ([]domain.CanonicalProduct, error) {
	q, ok := validate.Q(q)
	if !ok {
		return nil, Validation("Invalid search query")
	}
	if q == "" {
		return []domain.CanonicalProduct{}, nil
	}
	out, err := s.Products.Search(q, validate.Limit(limit))
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	return out, nil
}
