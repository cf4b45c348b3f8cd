package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/baovptse192440/NongSanProject-sub002/internal/platform/httpx"
	"github.com/baovptse192440/NongSanProject-sub002/internal/services"
)

const (
	maxOrderBodySize = 64 * 1024

	defaultSubmitLimit  = 5
	defaultSubmitWindow = time.Minute
)

type submitOrderItemRequest struct {
	ProductID   string   `json:"product_id"`
	VariantID   string   `json:"variant_id"`
	ProductName string   `json:"product_name"`
	VariantName string   `json:"variant_name"`
	Slug        string   `json:"slug"`
	Image       string   `json:"image"`
	Price       *float64 `json:"price"`
	Quantity    int      `json:"quantity"`
}

type submitOrderRequest struct {
	Items       []submitOrderItemRequest `json:"items"`
	Subtotal    *float64                 `json:"subtotal"`
	ShippingFee *float64                 `json:"shipping_fee"`
	Total       *float64                 `json:"total"`
	Notes       string                   `json:"notes"`
}

// OrderHandlers serves order submission and the customer's own order history.
type OrderHandlers struct {
	orders  services.OrderService
	limiter rateLimiter
}

// OrderHandlersOption customises OrderHandlers.
type OrderHandlersOption func(*OrderHandlers)

// WithSubmitRateLimit caps order submissions per user. A non-positive limit disables throttling.
func WithSubmitRateLimit(limit int, window time.Duration, clock func() time.Time) OrderHandlersOption {
	return func(h *OrderHandlers) {
		h.limiter = newWindowLimiter(limit, window, clock)
	}
}

// NewOrderHandlers constructs customer order handlers.
func NewOrderHandlers(orders services.OrderService, opts ...OrderHandlersOption) *OrderHandlers {
	h := &OrderHandlers{
		orders:  orders,
		limiter: newWindowLimiter(defaultSubmitLimit, defaultSubmitWindow, nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes registers /orders endpoints relative to the API root.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/orders", h.submitOrder)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{orderID}", h.getOrder)
}

func (h *OrderHandlers) submitOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		serviceUnavailable(ctx, w, "order")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if h.limiter != nil && !h.limiter.Allow(identity.UID) {
		httpx.WriteError(ctx, w, httpx.NewError("rate_limited", "too many orders submitted, try again shortly", http.StatusTooManyRequests))
		return
	}

	var req submitOrderRequest
	if !decodeJSONBody(w, r, maxOrderBodySize, &req) {
		return
	}

	cmd := services.SubmitOrderCommand{
		UserID:      identity.UID,
		Subtotal:    req.Subtotal,
		ShippingFee: req.ShippingFee,
		Total:       req.Total,
		Notes:       req.Notes,
	}
	for _, item := range req.Items {
		cmd.Items = append(cmd.Items, services.SubmitOrderItem{
			ProductID:   strings.TrimSpace(item.ProductID),
			VariantID:   strings.TrimSpace(item.VariantID),
			ProductName: item.ProductName,
			VariantName: item.VariantName,
			Slug:        item.Slug,
			Image:       item.Image,
			Price:       item.Price,
			Quantity:    item.Quantity,
		})
	}

	submission, err := h.orders.SubmitOrder(ctx, cmd)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	w.Header().Set("Location", "/api/v1/orders/"+submission.Order.ID)
	writeJSONResponse(w, http.StatusCreated, map[string]any{
		"order":        buildOrderPayload(submission.Order),
		"side_effects": buildSideEffectPayload(submission.SideEffects),
	})
}

func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		serviceUnavailable(ctx, w, "order")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	writeOrderList(w, r, h.orders, identity.UID)
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		serviceUnavailable(ctx, w, "order")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	order, err := h.orders.GetOrder(ctx, orderID, services.OrderReadOptions{UserID: identity.UID})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"order": buildOrderPayload(order)})
}

// writeOrderList serves both the customer and admin listings. An empty userID lists every order.
func writeOrderList(w http.ResponseWriter, r *http.Request, orders services.OrderService, userID string) {
	ctx := r.Context()
	page, ok := parsePagination(w, r)
	if !ok {
		return
	}

	result, err := orders.ListOrders(ctx, services.OrderListFilter{
		UserID:     userID,
		Status:     parseFilterValues(r.URL.Query()["status"]),
		Pagination: page,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	items := make([]orderPayload, 0, len(result.Items))
	for _, order := range result.Items {
		items = append(items, buildOrderPayload(order))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"orders":          items,
		"next_page_token": result.NextPageToken,
	})
}
