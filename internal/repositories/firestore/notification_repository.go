package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/baovptse192440/NongSanProject-sub002/internal/domain"
	pfirestore "github.com/baovptse192440/NongSanProject-sub002/internal/platform/firestore"
	"github.com/baovptse192440/NongSanProject-sub002/internal/repositories"
)

const notificationCollection = "notifications"

// NotificationRepository persists in-app notifications.
type NotificationRepository struct {
	base *pfirestore.BaseRepository[notificationDocument]
}

var _ repositories.NotificationRepository = (*NotificationRepository)(nil)

// NewNotificationRepository constructs a Firestore-backed notification repository.
func NewNotificationRepository(provider *pfirestore.Provider) (*NotificationRepository, error) {
	if provider == nil {
		return nil, errors.New("notification repository requires firestore provider")
	}
	return &NotificationRepository{base: pfirestore.NewBaseRepository[notificationDocument](provider, notificationCollection)}, nil
}

func (r *NotificationRepository) Insert(ctx context.Context, notification domain.Notification) error {
	if r == nil || r.base == nil {
		return errors.New("notification repository not initialised")
	}
	_, err := r.base.Create(ctx, notification.ID, notificationDocument{
		UserID:      notification.UserID,
		Type:        string(notification.Type),
		Title:       notification.Title,
		Message:     notification.Message,
		OrderID:     notification.OrderID,
		OrderNumber: notification.OrderNumber,
		Read:        notification.Read,
		ReadAt:      normalizeTimePointer(notification.ReadAt),
		CreatedAt:   notification.CreatedAt.UTC(),
	})
	return err
}

func (r *NotificationRepository) FindByID(ctx context.Context, notificationID string) (domain.Notification, error) {
	if r == nil || r.base == nil {
		return domain.Notification{}, errors.New("notification repository not initialised")
	}
	doc, err := r.base.Get(ctx, strings.TrimSpace(notificationID))
	if err != nil {
		return domain.Notification{}, err
	}
	return decodeNotification(doc), nil
}

func (r *NotificationRepository) ListByUser(ctx context.Context, filter repositories.NotificationListFilter) (domain.CursorPage[domain.Notification], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Notification]{}, errors.New("notification repository not initialised")
	}
	return listPage(ctx, r.base, filter.Pagination, "createdAt",
		func(q firestore.Query) firestore.Query {
			q = q.Where("userId", "==", strings.TrimSpace(filter.UserID))
			if filter.UnreadOnly {
				q = q.Where("read", "==", false)
			}
			return q
		},
		func(doc notificationDocument) time.Time { return doc.CreatedAt },
		decodeNotification,
	)
}

func (r *NotificationRepository) MarkRead(ctx context.Context, notificationID string, readAt time.Time) error {
	if r == nil || r.base == nil {
		return errors.New("notification repository not initialised")
	}
	_, err := r.base.Update(ctx, strings.TrimSpace(notificationID), []firestore.Update{
		{Path: "read", Value: true},
		{Path: "readAt", Value: readAt.UTC()},
	}, firestore.Exists)
	return err
}

type notificationDocument struct {
	UserID      string     `firestore:"userId"`
	Type        string     `firestore:"type"`
	Title       string     `firestore:"title"`
	Message     string     `firestore:"message"`
	OrderID     string     `firestore:"orderId,omitempty"`
	OrderNumber string     `firestore:"orderNumber,omitempty"`
	Read        bool       `firestore:"read"`
	ReadAt      *time.Time `firestore:"readAt,omitempty"`
	CreatedAt   time.Time  `firestore:"createdAt"`
}

func decodeNotification(doc pfirestore.Document[notificationDocument]) domain.Notification {
	data := doc.Data
	return domain.Notification{
		ID:          doc.ID,
		UserID:      data.UserID,
		Type:        domain.NotificationType(data.Type),
		Title:       data.Title,
		Message:     data.Message,
		OrderID:     data.OrderID,
		OrderNumber: data.OrderNumber,
		Read:        data.Read,
		ReadAt:      normalizeTimePointer(data.ReadAt),
		CreatedAt:   chooseTime(data.CreatedAt, doc.CreateTime),
	}
}
