package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/baovptse192440/NongSanProject-sub002/internal/domain"
	"github.com/baovptse192440/NongSanProject-sub002/internal/services"
)

const maxStatusBodySize = 4 * 1024

type updateOrderStatusRequest struct {
	Status string `json:"status"`
}

// AdminOrderHandlers lets staff browse every order and move orders through their lifecycle.
type AdminOrderHandlers struct {
	orders services.OrderService
}

// NewAdminOrderHandlers constructs admin order handlers. The router group enforces the admin role.
func NewAdminOrderHandlers(orders services.OrderService) *AdminOrderHandlers {
	return &AdminOrderHandlers{orders: orders}
}

// Routes registers endpoints below the /admin group.
func (h *AdminOrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{orderID}", h.getOrder)
	r.Put("/orders/{orderID}/status", h.updateStatus)
}

func (h *AdminOrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	if h.orders == nil {
		serviceUnavailable(r.Context(), w, "order")
		return
	}
	if _, ok := requireIdentity(w, r); !ok {
		return
	}
	writeOrderList(w, r, h.orders, strings.TrimSpace(r.URL.Query().Get("user_id")))
}

func (h *AdminOrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		serviceUnavailable(ctx, w, "order")
		return
	}
	if _, ok := requireIdentity(w, r); !ok {
		return
	}

	order, err := h.orders.GetOrder(ctx, strings.TrimSpace(chi.URLParam(r, "orderID")), services.OrderReadOptions{})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"order":            buildOrderPayload(order),
		"allowed_statuses": h.allowedStatuses(order.Status),
	})
}

func (h *AdminOrderHandlers) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		serviceUnavailable(ctx, w, "order")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req updateOrderStatusRequest
	if !decodeJSONBody(w, r, maxStatusBodySize, &req) {
		return
	}

	change, err := h.orders.UpdateStatus(ctx, services.UpdateOrderStatusCommand{
		OrderID:      strings.TrimSpace(chi.URLParam(r, "orderID")),
		TargetStatus: req.Status,
		ActorID:      identity.UID,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"order":            buildOrderPayload(change.Order),
		"previous_status":  string(change.PreviousStatus),
		"changed":          change.Changed,
		"side_effects":     buildSideEffectPayload(change.SideEffects),
		"allowed_statuses": h.allowedStatuses(change.Order.Status),
	})
}

func (h *AdminOrderHandlers) allowedStatuses(from domain.OrderStatus) []string {
	targets := h.orders.AllowedStatuses(from)
	out := make([]string, 0, len(targets))
	for _, status := range targets {
		out = append(out, string(status))
	}
	return out
}
