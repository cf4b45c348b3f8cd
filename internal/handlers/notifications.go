package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/baovptse192440/NongSanProject-sub002/internal/platform/httpx"
	"github.com/baovptse192440/NongSanProject-sub002/internal/services"
)

// NotificationHandlers exposes the caller's in-app notifications.
type NotificationHandlers struct {
	notifications services.NotificationService
}

// NewNotificationHandlers constructs notification handlers.
func NewNotificationHandlers(notifications services.NotificationService) *NotificationHandlers {
	return &NotificationHandlers{notifications: notifications}
}

// Routes registers /me/notifications endpoints relative to the API root.
func (h *NotificationHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/me/notifications", h.list)
	r.Post("/me/notifications/{notificationID}:read", h.markRead)
}

func (h *NotificationHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.notifications == nil {
		serviceUnavailable(ctx, w, "notification")
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

	unreadOnly := false
	if raw := strings.TrimSpace(r.URL.Query().Get("unread")); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "unread must be a boolean", http.StatusBadRequest))
			return
		}
		unreadOnly = parsed
	}

	result, err := h.notifications.List(ctx, services.NotificationListFilter{
		UserID:     identity.UID,
		UnreadOnly: unreadOnly,
		Pagination: page,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	items := make([]notificationPayload, 0, len(result.Items))
	for _, n := range result.Items {
		items = append(items, buildNotificationPayload(n))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"notifications":   items,
		"next_page_token": result.NextPageToken,
	})
}

func (h *NotificationHandlers) markRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.notifications == nil {
		serviceUnavailable(ctx, w, "notification")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	n, err := h.notifications.MarkRead(ctx, services.MarkNotificationReadCommand{
		UserID:         identity.UID,
		NotificationID: strings.TrimSpace(chi.URLParam(r, "notificationID")),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"notification": buildNotificationPayload(n)})
}
