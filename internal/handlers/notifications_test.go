package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/baovptse192440/NongSanProject-sub002/internal/domain"
	"github.com/baovptse192440/NongSanProject-sub002/internal/services"
)

func newNotificationRouter(svc services.NotificationService) chi.Router {
	router := chi.NewRouter()
	NewNotificationHandlers(svc).Routes(router)
	return router
}

func TestNotificationHandlersList(t *testing.T) {
	now := time.Date(2024, 8, 1, 12, 0, 0, 0, time.UTC)
	var captured services.NotificationListFilter
	svc := &stubNotificationService{
		listFunc: func(_ context.Context, filter services.NotificationListFilter) (domain.CursorPage[services.Notification], error) {
			captured = filter
			return domain.CursorPage[services.Notification]{
				Items: []services.Notification{
					{ID: "n1", Type: domain.NotificationTypeOrder, Title: "Order shipped", OrderID: "ord-1", OrderNumber: "OD1", CreatedAt: now},
				},
			}, nil
		},
	}

	req := withUser(httptest.NewRequest(http.MethodGet, "/me/notifications?unread=true", nil), "user-1")
	rr := httptest.NewRecorder()
	newNotificationRouter(svc).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if captured.UserID != "user-1" || !captured.UnreadOnly {
		t.Fatalf("unexpected filter %#v", captured)
	}
	var resp struct {
		Notifications []notificationPayload `json:"notifications"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Notifications) != 1 || resp.Notifications[0].OrderNumber != "OD1" || resp.Notifications[0].Read {
		t.Fatalf("unexpected notifications %#v", resp.Notifications)
	}
}

func TestNotificationHandlersListRejectsBadFlag(t *testing.T) {
	req := withUser(httptest.NewRequest(http.MethodGet, "/me/notifications?unread=maybe", nil), "user-1")
	rr := httptest.NewRecorder()
	newNotificationRouter(&stubNotificationService{}).ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestNotificationHandlersMarkRead(t *testing.T) {
	readAt := time.Date(2024, 8, 2, 0, 0, 0, 0, time.UTC)
	svc := &stubNotificationService{
		markReadFunc: func(_ context.Context, cmd services.MarkNotificationReadCommand) (services.Notification, error) {
			if cmd.UserID != "user-1" || cmd.NotificationID != "n1" {
				return services.Notification{}, services.ErrNotificationNotFound
			}
			return services.Notification{ID: "n1", Read: true, ReadAt: &readAt}, nil
		},
	}
	router := newNotificationRouter(svc)

	req := withUser(httptest.NewRequest(http.MethodPost, "/me/notifications/n1:read", nil), "user-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Notification notificationPayload `json:"notification"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Notification.Read || resp.Notification.ReadAt != "2024-08-02T00:00:00Z" {
		t.Fatalf("unexpected notification %#v", resp.Notification)
	}

	req = withUser(httptest.NewRequest(http.MethodPost, "/me/notifications/n1:read", nil), "user-2")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 for another user's notification, got %d", rr.Code)
	}
}
