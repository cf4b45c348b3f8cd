package services

import (
	"context"

	domain "github.com/baovptse192440/NongSanProject-sub002/internal/domain"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Pagination         = domain.Pagination
	Product            = domain.Product
	ProductVariant     = domain.ProductVariant
	ProductDetail      = domain.ProductDetail
	PricingView        = domain.PricingView
	User               = domain.User
	Order              = domain.Order
	OrderItem          = domain.OrderItem
	OrderStatus        = domain.OrderStatus
	OrderCustomer      = domain.OrderCustomer
	Notification       = domain.Notification
	Cart               = domain.Cart
	CartItem           = domain.CartItem
	CartHistory        = domain.CartHistory
	CartHistoryStatus  = domain.CartHistoryStatus
	SystemHealthReport = domain.SystemHealthReport
)

// CatalogService serves the public product read path with resolved pricing.
type CatalogService interface {
	ListProducts(ctx context.Context, filter ProductListFilter) (domain.CursorPage[ProductDetail], error)
	// GetProduct accepts either a slug or a document id.
	GetProduct(ctx context.Context, ref string) (ProductDetail, error)
}

// CartService manages the per-user cart and its archived snapshots.
type CartService interface {
	GetCart(ctx context.Context, userID string) (Cart, error)
	UpsertItem(ctx context.Context, cmd UpsertCartItemCommand) (Cart, error)
	RemoveItem(ctx context.Context, cmd RemoveCartItemCommand) (Cart, error)
	ArchiveCart(ctx context.Context, cmd ArchiveCartCommand) (CartHistory, error)
	ListHistory(ctx context.Context, filter CartHistoryFilter) (domain.CursorPage[CartHistory], error)
}

// OrderService owns order submission, status transitions and order reads.
type OrderService interface {
	SubmitOrder(ctx context.Context, cmd SubmitOrderCommand) (OrderSubmission, error)
	UpdateStatus(ctx context.Context, cmd UpdateOrderStatusCommand) (OrderStatusChange, error)
	GetOrder(ctx context.Context, orderID string, opts OrderReadOptions) (Order, error)
	ListOrders(ctx context.Context, filter OrderListFilter) (domain.CursorPage[Order], error)
	// AllowedStatuses lists the statuses the configured policy accepts after from.
	AllowedStatuses(from domain.OrderStatus) []domain.OrderStatus
}

// NotificationService exposes a user's in-app notifications.
type NotificationService interface {
	List(ctx context.Context, filter NotificationListFilter) (domain.CursorPage[Notification], error)
	MarkRead(ctx context.Context, cmd MarkNotificationReadCommand) (Notification, error)
}

// SystemService reports dependency health.
type SystemService interface {
	HealthReport(ctx context.Context) (SystemHealthReport, error)
}

// EmailDispatcher hands order emails to a delivery channel.
type EmailDispatcher interface {
	Dispatch(ctx context.Context, job MailJob) error
}

// ProductListFilter narrows public catalog listings.
type ProductListFilter struct {
	CategoryID string
	Pagination Pagination
}

// UpsertCartItemCommand sets the quantity of a cart line, adding it if absent.
type UpsertCartItemCommand struct {
	UserID    string
	ProductID string
	VariantID string
	Quantity  int
}

// RemoveCartItemCommand deletes a cart line.
type RemoveCartItemCommand struct {
	UserID    string
	ProductID string
	VariantID string
}

// ArchiveCartCommand snapshots the cart into history. Status defaults to completed.
type ArchiveCartCommand struct {
	UserID  string
	OrderID string
	Status  CartHistoryStatus
}

// CartHistoryFilter narrows archived cart listings for a user.
type CartHistoryFilter struct {
	UserID     string
	Pagination Pagination
}

// SubmitOrderCommand carries the client-side cart snapshot for a new order.
type SubmitOrderCommand struct {
	UserID      string
	Items       []SubmitOrderItem
	Subtotal    *float64
	ShippingFee *float64
	Total       *float64
	Notes       string
}

// SubmitOrderItem is a single requested order line.
type SubmitOrderItem struct {
	ProductID   string
	VariantID   string
	ProductName string
	VariantName string
	Slug        string
	Image       string
	Price       *float64
	Quantity    int
}

// OrderSubmission reports the persisted order together with the side effects attempted after it.
type OrderSubmission struct {
	Order       Order
	SideEffects SideEffectLog
}

// UpdateOrderStatusCommand moves an order to a new status on behalf of an admin.
type UpdateOrderStatusCommand struct {
	OrderID      string
	TargetStatus string
	ActorID      string
}

// OrderStatusChange reports a status update and the side effects attempted after it.
type OrderStatusChange struct {
	Order          Order
	PreviousStatus OrderStatus
	Changed        bool
	SideEffects    SideEffectLog
}

// OrderReadOptions restricts order reads. A non-empty UserID hides orders owned by others.
type OrderReadOptions struct {
	UserID string
}

// OrderListFilter narrows order listings. An empty UserID lists all users' orders.
type OrderListFilter struct {
	UserID     string
	Status     []string
	Pagination Pagination
}

// NotificationListFilter narrows notification listings.
type NotificationListFilter struct {
	UserID     string
	UnreadOnly bool
	Pagination Pagination
}

// MarkNotificationReadCommand flags a notification as read by its owner.
type MarkNotificationReadCommand struct {
	UserID         string
	NotificationID string
}
