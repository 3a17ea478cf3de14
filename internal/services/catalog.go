package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/shopmind/shopmind-backend/internal/apierr"
	"github.com/shopmind/shopmind-backend/internal/logger"
	"github.com/shopmind/shopmind-backend/internal/repos"
	"github.com/shopmind/shopmind-backend/internal/types"
)

// CatalogService resolves product and category names for the assistant tools.
// It is the one place that decides what "not found" and "ambiguous" mean.
type CatalogService struct {
	products   repos.ProductRepo
	categories repos.CategoryRepo
	log        *logger.Logger
}

func NewCatalogService(products repos.ProductRepo, categories repos.CategoryRepo, baseLog *logger.Logger) *CatalogService {
	return &CatalogService{
		products:   products,
		categories: categories,
		log:        baseLog.With("service", "CatalogService"),
	}
}

// FindProduct matches a user-supplied name: a unique exact match wins, a
// unique substring match is accepted, multiple matches are an ambiguity the
// user has to settle.
func (s *CatalogService) FindProduct(ctx context.Context, storeID uuid.UUID, name string) (*types.Product, error) {
	matches, err := s.products.SearchByName(ctx, nil, storeID, name)
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, &apierr.UnresolvedReference{Kind: "product", Term: name}
	case 1:
		return matches[0], nil
	}
	// An exact (case-insensitive) hit among the substring matches is not
	// ambiguous; "Mug" should find "Mug" even when "Travel Mug" exists.
	var exact *types.Product
	for _, p := range matches {
		if strings.EqualFold(p.Name, name) {
			if exact != nil {
				exact = nil
				break
			}
			exact = p
		}
	}
	if exact != nil {
		return exact, nil
	}
	candidates := make([]string, 0, len(matches))
	for _, p := range matches {
		candidates = append(candidates, p.Name)
	}
	return nil, &apierr.AmbiguousMatch{Kind: "product", Term: name, Candidates: candidates}
}

func (s *CatalogService) ListProducts(ctx context.Context, storeID uuid.UUID, f repos.ProductFilters) ([]*types.Product, error) {
	return s.products.List(ctx, nil, storeID, f)
}

// FindCategory returns nil without an error when the name is unknown; callers
// decide whether that means "offer to create it" or "unresolved".
func (s *CatalogService) FindCategory(ctx context.Context, storeID uuid.UUID, name string) (*types.Category, error) {
	return s.categories.GetByName(ctx, nil, storeID, name)
}

func (s *CatalogService) CreateCategory(ctx context.Context, storeID uuid.UUID, name string) (*types.Category, error) {
	return s.categories.Create(ctx, nil, &types.Category{
		StoreID: storeID,
		Name:    strings.TrimSpace(name),
	})
}

func (s *CatalogService) CategoryNames(ctx context.Context, storeID uuid.UUID) ([]string, error) {
	return s.categories.ListNames(ctx, nil, storeID)
}

func (s *CatalogService) AddToCategory(ctx context.Context, productID, categoryID uuid.UUID) (bool, error) {
	return s.categories.AddProduct(ctx, nil, productID, categoryID)
}

func (s *CatalogService) RemoveFromCategory(ctx context.Context, productID, categoryID uuid.UUID) (bool, error) {
	return s.categories.RemoveProduct(ctx, nil, productID, categoryID)
}
