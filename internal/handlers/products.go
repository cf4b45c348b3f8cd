package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/baovptse192440/NongSanProject-sub002/internal/services"
)

// ProductHandlers serves the public catalog.
type ProductHandlers struct {
	catalog services.CatalogService
}

// NewProductHandlers constructs catalog handlers.
func NewProductHandlers(catalog services.CatalogService) *ProductHandlers {
	return &ProductHandlers{catalog: catalog}
}

// Routes registers the /products endpoints below the public group.
func (h *ProductHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/products", h.listProducts)
	r.Get("/products/{productRef}", h.getProduct)
}

func (h *ProductHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		serviceUnavailable(ctx, w, "catalog")
		return
	}

	page, ok := parsePagination(w, r)
	if !ok {
		return
	}

	result, err := h.catalog.ListProducts(ctx, services.ProductListFilter{
		CategoryID: strings.TrimSpace(r.URL.Query().Get("category_id")),
		Pagination: page,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	items := make([]productPayload, 0, len(result.Items))
	for _, detail := range result.Items {
		items = append(items, buildProductPayload(detail))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"products":        items,
		"next_page_token": result.NextPageToken,
	})
}

func (h *ProductHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		serviceUnavailable(ctx, w, "catalog")
		return
	}

	ref := strings.TrimSpace(chi.URLParam(r, "productRef"))
	detail, err := h.catalog.GetProduct(ctx, ref)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"product": buildProductPayload(detail)})
}
