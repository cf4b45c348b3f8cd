package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/baovptse192440/NongSanProject-sub002/internal/domain"
)

func newCatalogFixture(t *testing.T) (CatalogService, *stubProductRepo) {
	t.Helper()
	repo := catalogFixture()
	svc, err := NewCatalogService(CatalogServiceDeps{Products: repo})
	require.NoError(t, err)
	return svc, repo
}

func TestCatalogServiceListProductsResolvesPricing(t *testing.T) {
	svc, repo := newCatalogFixture(t)

	page, err := svc.ListProducts(context.Background(), ProductListFilter{
		CategoryID: " grains ",
		Pagination: Pagination{PageSize: 20, PageToken: "cursor-1"},
	})
	require.NoError(t, err)

	require.Equal(t, domain.ProductStatusActive, repo.listFilter.Status)
	require.Equal(t, "grains", repo.listFilter.CategoryID)
	require.Equal(t, "cursor-1", repo.listFilter.Pagination.PageToken)
	require.Equal(t, "cursor-2", page.NextPageToken)

	require.Len(t, page.Items, 2)
	rice, coffee := page.Items[0], page.Items[1]

	require.Empty(t, rice.Variants)
	require.True(t, rice.Pricing.FinalPrice().Equal(dec(10)))
	require.Equal(t, 5, rice.Pricing.Stock)

	require.Len(t, coffee.Variants, 2, "inactive variants are hidden")
	require.Equal(t, "v250", coffee.Pricing.VariantID)
	require.True(t, coffee.Pricing.FinalPrice().Equal(dec(12)))
}

func TestCatalogServiceGetProductBySlugOrID(t *testing.T) {
	svc, _ := newCatalogFixture(t)

	bySlug, err := svc.GetProduct(context.Background(), "gao-st25")
	require.NoError(t, err)
	require.Equal(t, "rice", bySlug.Product.ID)

	byID, err := svc.GetProduct(context.Background(), "coffee")
	require.NoError(t, err)
	require.Equal(t, "ca-phe", byID.Product.Slug)
	require.Len(t, byID.Variants, 2)
}

func TestCatalogServiceGetProductHidesInactive(t *testing.T) {
	svc, _ := newCatalogFixture(t)

	_, err := svc.GetProduct(context.Background(), "hidden")
	require.ErrorIs(t, err, ErrProductNotFound)

	_, err = svc.GetProduct(context.Background(), "nothing-here")
	require.ErrorIs(t, err, ErrProductNotFound)

	_, err = svc.GetProduct(context.Background(), "  ")
	require.ErrorIs(t, err, ErrCatalogInvalidInput)
}

func TestCatalogServiceOutOfStockProductStaysVisible(t *testing.T) {
	svc, _ := newCatalogFixture(t)

	detail, err := svc.GetProduct(context.Background(), "tra")
	require.NoError(t, err)
	require.Equal(t, domain.ProductStatusOutOfStock, detail.Product.Status)
}

func TestCatalogServiceVariantFailure(t *testing.T) {
	svc, repo := newCatalogFixture(t)
	repo.variantErr = stubRepositoryError{unavailable: true}

	_, err := svc.GetProduct(context.Background(), "coffee")
	require.Error(t, err)
	require.Contains(t, err.Error(), "repository unavailable")
}

func TestNewCatalogServiceRequiresRepository(t *testing.T) {
	_, err := NewCatalogService(CatalogServiceDeps{})
	require.Error(t, err)
}
