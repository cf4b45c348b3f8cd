package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	domain "github.com/baovptse192440/NongSanProject-sub002/internal/domain"
	"github.com/baovptse192440/NongSanProject-sub002/internal/services"
)

func newProductRouter(svc services.CatalogService) chi.Router {
	router := chi.NewRouter()
	router.Route("/public", NewProductHandlers(svc).Routes)
	return router
}

func TestProductHandlersGetProduct(t *testing.T) {
	sale := decimal.NewFromInt(8)
	pct := 20
	svc := &stubCatalogService{
		getFunc: func(_ context.Context, ref string) (services.ProductDetail, error) {
			if ref != "green-tea" {
				return services.ProductDetail{}, services.ErrProductNotFound
			}
			return services.ProductDetail{
				Product: services.Product{
					ID:          "p1",
					Name:        "Green tea",
					Slug:        "green-tea",
					Status:      domain.ProductStatusActive,
					HasVariants: true,
				},
				Variants: []services.ProductVariant{
					{ID: "v1", Name: "500g", SaleFields: domain.SaleFields{RetailPrice: decimal.NewFromInt(10), OnSale: true, SalePrice: &sale}, Stock: 4, Status: domain.VariantStatusActive},
				},
				Pricing: services.PricingView{
					RetailPrice:    decimal.NewFromInt(10),
					WholesalePrice: decimal.NewFromInt(7),
					OnSale:         true,
					SalePrice:      &sale,
					SalePercentage: &pct,
					Stock:          4,
					VariantID:      "v1",
				},
			}, nil
		},
	}
	router := newProductRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/public/products/green-tea", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Product productPayload `json:"product"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	pricing := resp.Product.Pricing
	if pricing.FinalPrice.String() != "8.00" || pricing.RetailPrice.String() != "10.00" {
		t.Fatalf("unexpected pricing %#v", pricing)
	}
	if pricing.SalePercentage == nil || *pricing.SalePercentage != 20 || pricing.VariantID != "v1" {
		t.Fatalf("unexpected sale fields %#v", pricing)
	}
	if len(resp.Product.Variants) != 1 || resp.Product.Variants[0].FinalPrice.String() != "8.00" {
		t.Fatalf("unexpected variants %#v", resp.Product.Variants)
	}

	req = httptest.NewRequest(http.MethodGet, "/public/products/unknown", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestProductHandlersListProducts(t *testing.T) {
	var captured services.ProductListFilter
	svc := &stubCatalogService{
		listFunc: func(_ context.Context, filter services.ProductListFilter) (domain.CursorPage[services.ProductDetail], error) {
			captured = filter
			return domain.CursorPage[services.ProductDetail]{
				Items: []services.ProductDetail{
					{Product: services.Product{ID: "p1", Name: "Rice"}, Pricing: services.PricingView{RetailPrice: decimal.NewFromInt(3)}},
				},
				NextPageToken: "more",
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/public/products?category_id=grains&pageSize=500", nil)
	rr := httptest.NewRecorder()
	newProductRouter(svc).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if captured.CategoryID != "grains" || captured.Pagination.PageSize != 100 {
		t.Fatalf("unexpected filter %#v", captured)
	}
	var resp struct {
		Products      []productPayload `json:"products"`
		NextPageToken string           `json:"next_page_token"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Products) != 1 || resp.Products[0].Pricing.FinalPrice.String() != "3.00" || resp.NextPageToken != "more" {
		t.Fatalf("unexpected response %#v", resp)
	}
	if resp.Products[0].Images == nil {
		t.Fatalf("expected empty images array rather than null")
	}
}

func TestProductHandlersListInvalidToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/public/products?pageToken=not-a-cursor", nil)
	rr := httptest.NewRecorder()
	newProductRouter(&stubCatalogService{}).ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["error"] != "invalid_page_token" {
		t.Fatalf("expected invalid_page_token, got %v", body["error"])
	}
}
