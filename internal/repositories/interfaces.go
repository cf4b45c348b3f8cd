package repositories

import (
	"context"
	"time"

	"github.com/baovptse192440/NongSanProject-sub002/internal/domain"
)

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// ProductRepository reads catalog products and their variants.
type ProductRepository interface {
	FindByID(ctx context.Context, productID string) (domain.Product, error)
	FindBySlug(ctx context.Context, slug string) (domain.Product, error)
	List(ctx context.Context, filter ProductListFilter) (domain.CursorPage[domain.Product], error)
	// ListVariants returns the variants owned by productID in creation order.
	ListVariants(ctx context.Context, productID string, activeOnly bool) ([]domain.ProductVariant, error)
	FindVariant(ctx context.Context, productID, variantID string) (domain.ProductVariant, error)
}

// OrderRepository persists orders. Insert must reject a duplicate order number
// with a RepositoryError reporting IsConflict. UpdateStatus must do the same when
// the stored status no longer equals from.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	UpdateStatus(ctx context.Context, orderID string, from, to domain.OrderStatus, updatedAt time.Time) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	ExistsByOrderNumber(ctx context.Context, orderNumber string) (bool, error)
	List(ctx context.Context, filter OrderListFilter) (domain.CursorPage[domain.Order], error)
}

// UserRepository reads user profiles.
type UserRepository interface {
	FindByID(ctx context.Context, userID string) (domain.User, error)
	ListByRole(ctx context.Context, role domain.UserRole) ([]domain.User, error)
}

// NotificationRepository persists in-app notifications.
type NotificationRepository interface {
	Insert(ctx context.Context, notification domain.Notification) error
	FindByID(ctx context.Context, notificationID string) (domain.Notification, error)
	ListByUser(ctx context.Context, filter NotificationListFilter) (domain.CursorPage[domain.Notification], error)
	MarkRead(ctx context.Context, notificationID string, readAt time.Time) error
}

// CartRepository persists the single cart owned by each user.
type CartRepository interface {
	// GetCart returns a RepositoryError reporting IsNotFound when the user has no cart.
	GetCart(ctx context.Context, userID string) (domain.Cart, error)
	// SaveCart writes the cart. When expectedUpdatedAt is non-nil the write fails
	// with a conflict unless the stored cart still carries that timestamp.
	SaveCart(ctx context.Context, cart domain.Cart, expectedUpdatedAt *time.Time) (domain.Cart, error)
	// ArchiveCart atomically stores the history record and clears the cart items,
	// guarded by the same updatedAt precondition as SaveCart.
	ArchiveCart(ctx context.Context, history domain.CartHistory, expectedUpdatedAt time.Time, clearedAt time.Time) error
}

// CartHistoryRepository reads archived carts.
type CartHistoryRepository interface {
	ListByUser(ctx context.Context, filter CartHistoryListFilter) (domain.CursorPage[domain.CartHistory], error)
}

// HealthRepository exposes status of downstream dependencies for health checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}

// ProductListFilter narrows product listings.
type ProductListFilter struct {
	CategoryID string
	Status     domain.ProductStatus
	Pagination domain.Pagination
}

// OrderListFilter narrows order listings. An empty UserID lists every user's orders.
type OrderListFilter struct {
	UserID     string
	Status     []domain.OrderStatus
	Pagination domain.Pagination
}

// NotificationListFilter narrows notification listings.
type NotificationListFilter struct {
	UserID     string
	UnreadOnly bool
	Pagination domain.Pagination
}

// CartHistoryListFilter narrows cart history listings.
type CartHistoryListFilter struct {
	UserID     string
	Pagination domain.Pagination
}
