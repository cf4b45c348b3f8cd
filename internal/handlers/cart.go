package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/baovptse192440/NongSanProject-sub002/internal/services"
)

const maxCartBodySize = 16 * 1024

// CartHandlers exposes the signed-in user's cart and its archive.
type CartHandlers struct {
	carts services.CartService
}

type upsertCartItemRequest struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

type archiveCartRequest struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

// NewCartHandlers constructs cart handlers. Authentication is applied by the router group.
func NewCartHandlers(carts services.CartService) *CartHandlers {
	return &CartHandlers{carts: carts}
}

// Routes registers cart endpoints relative to the API root.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/cart", h.getCart)
	r.Put("/cart/items", h.upsertItem)
	r.Delete("/cart/items/{productID}", h.removeItem)
	r.Post("/cart:archive", h.archiveCart)
	r.Get("/cart/history", h.listHistory)
}

func (h *CartHandlers) getCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		serviceUnavailable(ctx, w, "cart")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	cart, err := h.carts.GetCart(ctx, identity.UID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"cart": buildCartPayload(cart)})
}

func (h *CartHandlers) upsertItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		serviceUnavailable(ctx, w, "cart")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req upsertCartItemRequest
	if !decodeJSONBody(w, r, maxCartBodySize, &req) {
		return
	}

	cart, err := h.carts.UpsertItem(ctx, services.UpsertCartItemCommand{
		UserID:    identity.UID,
		ProductID: strings.TrimSpace(req.ProductID),
		VariantID: strings.TrimSpace(req.VariantID),
		Quantity:  req.Quantity,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"cart": buildCartPayload(cart)})
}

func (h *CartHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		serviceUnavailable(ctx, w, "cart")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	cart, err := h.carts.RemoveItem(ctx, services.RemoveCartItemCommand{
		UserID:    identity.UID,
		ProductID: strings.TrimSpace(chi.URLParam(r, "productID")),
		VariantID: strings.TrimSpace(r.URL.Query().Get("variant_id")),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"cart": buildCartPayload(cart)})
}

func (h *CartHandlers) archiveCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		serviceUnavailable(ctx, w, "cart")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req archiveCartRequest
	if !decodeOptionalJSONBody(w, r, maxCartBodySize, &req) {
		return
	}

	history, err := h.carts.ArchiveCart(ctx, services.ArchiveCartCommand{
		UserID:  identity.UID,
		OrderID: strings.TrimSpace(req.OrderID),
		Status:  services.CartHistoryStatus(strings.ToLower(strings.TrimSpace(req.Status))),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, map[string]any{"history": buildCartHistoryPayload(history)})
}

func (h *CartHandlers) listHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		serviceUnavailable(ctx, w, "cart")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	page, ok := parsePagination(w, r)
	if !ok {
		return
	}

	result, err := h.carts.ListHistory(ctx, services.CartHistoryFilter{UserID: identity.UID, Pagination: page})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	items := make([]cartHistoryPayload, 0, len(result.Items))
	for _, history := range result.Items {
		items = append(items, buildCartHistoryPayload(history))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"history":         items,
		"next_page_token": result.NextPageToken,
	})
}
