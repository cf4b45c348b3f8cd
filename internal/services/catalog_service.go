package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "github.com/baovptse192440/NongSanProject-sub002/internal/domain"
	"github.com/baovptse192440/NongSanProject-sub002/internal/repositories"
)

// CatalogServiceDeps bundles collaborators required to construct a catalog service.
type CatalogServiceDeps struct {
	Products repositories.ProductRepository
	Logger   func(context.Context, string, map[string]any)
}

type catalogService struct {
	products repositories.ProductRepository
	logger   func(context.Context, string, map[string]any)
}

var _ CatalogService = (*catalogService)(nil)

// NewCatalogService constructs the public catalog read service.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Products == nil {
		return nil, errors.New("catalog service: product repository is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &catalogService{products: deps.Products, logger: logger}, nil
}

func (s *catalogService) ListProducts(ctx context.Context, filter ProductListFilter) (domain.CursorPage[ProductDetail], error) {
	page, err := s.products.List(ctx, repositories.ProductListFilter{
		CategoryID: strings.TrimSpace(filter.CategoryID),
		Status:     domain.ProductStatusActive,
		Pagination: filter.Pagination,
	})
	if err != nil {
		return domain.CursorPage[ProductDetail]{}, mapRepositoryError("catalog", err, nil, nil)
	}

	items := make([]ProductDetail, 0, len(page.Items))
	for _, product := range page.Items {
		detail, err := s.detail(ctx, product)
		if err != nil {
			return domain.CursorPage[ProductDetail]{}, err
		}
		items = append(items, detail)
	}
	return domain.CursorPage[ProductDetail]{Items: items, NextPageToken: page.NextPageToken}, nil
}

func (s *catalogService) GetProduct(ctx context.Context, ref string) (ProductDetail, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ProductDetail{}, fmt.Errorf("%w: product reference is required", ErrCatalogInvalidInput)
	}

	product, err := s.products.FindBySlug(ctx, ref)
	if err != nil && isRepositoryNotFound(err) {
		product, err = s.products.FindByID(ctx, ref)
	}
	if err != nil {
		return ProductDetail{}, mapRepositoryError("catalog", err, ErrProductNotFound, nil)
	}
	if product.Status == domain.ProductStatusInactive {
		return ProductDetail{}, fmt.Errorf("%w: %s", ErrProductNotFound, ref)
	}
	return s.detail(ctx, product)
}

func (s *catalogService) detail(ctx context.Context, product Product) (ProductDetail, error) {
	var variants []ProductVariant
	if product.HasVariants {
		loaded, err := s.products.ListVariants(ctx, product.ID, true)
		if err != nil {
			return ProductDetail{}, mapRepositoryError("catalog", err, nil, nil)
		}
		variants = loaded
		if len(variants) == 0 {
			s.logger(ctx, "catalog.variants.none_active", map[string]any{"productID": product.ID})
		}
	}
	return ProductDetail{
		Product:  product,
		Variants: variants,
		Pricing:  domain.ResolvePricing(product, variants),
	}, nil
}
