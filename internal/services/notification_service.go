package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/baovptse192440/NongSanProject-sub002/internal/domain"
	"github.com/baovptse192440/NongSanProject-sub002/internal/repositories"
)

// NotificationServiceDeps bundles collaborators required to construct a notification service.
type NotificationServiceDeps struct {
	Notifications repositories.NotificationRepository
	Clock         func() time.Time
}

type notificationService struct {
	notifications repositories.NotificationRepository
	clock         func() time.Time
}

var _ NotificationService = (*notificationService)(nil)

// NewNotificationService constructs the notification consumer service.
func NewNotificationService(deps NotificationServiceDeps) (NotificationService, error) {
	if deps.Notifications == nil {
		return nil, errors.New("notification service: notification repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &notificationService{
		notifications: deps.Notifications,
		clock: func() time.Time {
			return clock().UTC()
		},
	}, nil
}

func (s *notificationService) List(ctx context.Context, filter NotificationListFilter) (domain.CursorPage[Notification], error) {
	userID := strings.TrimSpace(filter.UserID)
	if userID == "" {
		return domain.CursorPage[Notification]{}, fmt.Errorf("%w: user id is required", ErrNotificationInvalidInput)
	}
	page, err := s.notifications.ListByUser(ctx, repositories.NotificationListFilter{
		UserID:     userID,
		UnreadOnly: filter.UnreadOnly,
		Pagination: filter.Pagination,
	})
	if err != nil {
		return domain.CursorPage[Notification]{}, mapRepositoryError("notification", err, nil, nil)
	}
	return page, nil
}

// MarkRead is idempotent: an already read notification keeps its original read time.
func (s *notificationService) MarkRead(ctx context.Context, cmd MarkNotificationReadCommand) (Notification, error) {
	userID := strings.TrimSpace(cmd.UserID)
	notificationID := strings.TrimSpace(cmd.NotificationID)
	if userID == "" || notificationID == "" {
		return Notification{}, fmt.Errorf("%w: user id and notification id are required", ErrNotificationInvalidInput)
	}

	notification, err := s.notifications.FindByID(ctx, notificationID)
	if err != nil {
		return Notification{}, mapRepositoryError("notification", err, ErrNotificationNotFound, nil)
	}
	if notification.UserID != userID {
		return Notification{}, fmt.Errorf("%w: %s", ErrNotificationNotFound, notificationID)
	}
	if notification.Read {
		return notification, nil
	}

	now := s.clock()
	if err := s.notifications.MarkRead(ctx, notificationID, now); err != nil {
		return Notification{}, mapRepositoryError("notification", err, ErrNotificationNotFound, nil)
	}
	notification.Read = true
	notification.ReadAt = &now
	return notification, nil
}
