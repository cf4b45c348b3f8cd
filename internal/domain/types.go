package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Pagination defines standard cursor-based paging inputs for list operations.
type Pagination struct {
	PageSize  int
	PageToken string
}

// CursorPage packages list results with an encoded next token.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
}

// ProductStatus enumerates catalog visibility states.
type ProductStatus string

const (
	// ProductStatusActive marks products visible and purchasable on the storefront.
	ProductStatusActive ProductStatus = "active"
	// ProductStatusInactive hides the product from the storefront.
	ProductStatusInactive ProductStatus = "inactive"
	// ProductStatusOutOfStock keeps the product visible but blocks adding it to carts.
	ProductStatusOutOfStock ProductStatus = "out_of_stock"
)

// VariantStatus enumerates variant availability states.
type VariantStatus string

const (
	VariantStatusActive   VariantStatus = "active"
	VariantStatusInactive VariantStatus = "inactive"
)

// SaleFields groups the price tier shared by products and variants.
type SaleFields struct {
	RetailPrice    decimal.Decimal
	WholesalePrice decimal.Decimal
	OnSale         bool
	SalePrice      *decimal.Decimal
	SalePercentage *int
	SaleStartsAt   *time.Time
	SaleEndsAt     *time.Time
}

// FinalPrice returns the sale price when the item is on sale with a non-zero
// sale price, otherwise the retail price.
func (s SaleFields) FinalPrice() decimal.Decimal {
	if s.OnSale && s.SalePrice != nil && !s.SalePrice.IsZero() {
		return *s.SalePrice
	}
	return s.RetailPrice
}

// Product is a catalog entry. When HasVariants is set its own price and stock
// fields are zero and the values live on its variants.
type Product struct {
	ID          string
	Name        string
	Slug        string
	CategoryID  string
	Description string
	Images      []string
	SaleFields
	Stock       int
	SKU         string
	Status      ProductStatus
	HasVariants bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PrimaryImage returns the first image or an empty string.
func (p Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// ProductVariant is a purchasable option of a product with its own price tier and stock.
type ProductVariant struct {
	ID        string
	ProductID string
	Name      string
	SKU       string
	SaleFields
	Stock     int
	Status    VariantStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PricingView is the display-ready pricing derived from a product and its variants.
type PricingView struct {
	RetailPrice    decimal.Decimal
	WholesalePrice decimal.Decimal
	OnSale         bool
	SalePrice      *decimal.Decimal
	SalePercentage *int
	Stock          int
	// VariantID identifies the representative variant, empty for simple products.
	VariantID string
}

// FinalPrice returns the price a customer pays for the representative item.
func (v PricingView) FinalPrice() decimal.Decimal {
	if v.OnSale && v.SalePrice != nil && !v.SalePrice.IsZero() {
		return *v.SalePrice
	}
	return v.RetailPrice
}

// ProductDetail bundles a product with its active variants and resolved pricing.
type ProductDetail struct {
	Product  Product
	Variants []ProductVariant
	Pricing  PricingView
}

// UserRole enumerates account roles.
type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

// User is the customer or staff profile stored alongside the Firebase account.
type User struct {
	ID        string
	FullName  string
	Email     string
	Phone     string
	Address   string
	City      string
	State     string
	ZipCode   string
	Role      UserRole
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MissingShippingFields lists the profile fields required for shipping that are blank.
func (u User) MissingShippingFields() []string {
	required := []struct {
		name  string
		value string
	}{
		{"fullName", u.FullName},
		{"email", u.Email},
		{"address", u.Address},
		{"city", u.City},
		{"state", u.State},
		{"zipCode", u.ZipCode},
	}
	var missing []string
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			missing = append(missing, field.name)
		}
	}
	return missing
}

// OrderStatus enumerates valid lifecycle states for orders.
type OrderStatus string

const (
	// OrderStatusPending is the initial state of every submitted order.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusConfirmed indicates the store accepted the order.
	OrderStatusConfirmed OrderStatus = "confirmed"
	// OrderStatusProcessing indicates the order is being packed.
	OrderStatusProcessing OrderStatus = "processing"
	// OrderStatusShipped indicates the order left the warehouse.
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusDelivered indicates the customer received the order.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled indicates the order will not be fulfilled.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// OrderStatuses lists every status in lifecycle order.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// Valid reports whether the status is one of the known lifecycle states.
func (s OrderStatus) Valid() bool {
	for _, candidate := range OrderStatuses {
		if s == candidate {
			return true
		}
	}
	return false
}

// OrderCustomer snapshots the shipping profile at submission time.
type OrderCustomer struct {
	FullName string
	Email    string
	Phone    string
	Address  string
	City     string
	State    string
	ZipCode  string
}

// OrderItem snapshots a purchased line so later catalog edits do not alter the order.
type OrderItem struct {
	ProductID   string
	VariantID   string
	ProductName string
	VariantName string
	Slug        string
	Image       string
	UnitPrice   decimal.Decimal
	Quantity    int
}

// LineTotal returns unit price times quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order captures a submitted order and its lifecycle status.
type Order struct {
	ID          string
	OrderNumber string
	UserID      string
	Customer    OrderCustomer
	Items       []OrderItem
	Subtotal    decimal.Decimal
	ShippingFee decimal.Decimal
	Total       decimal.Decimal
	Status      OrderStatus
	Notes       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NotificationType categorises in-app notifications.
type NotificationType string

const (
	NotificationTypeOrder  NotificationType = "order"
	NotificationTypeSystem NotificationType = "system"
	NotificationTypeUser   NotificationType = "user"
)

// Notification is an in-app message addressed to a single user.
type Notification struct {
	ID          string
	UserID      string
	Type        NotificationType
	Title       string
	Message     string
	OrderID     string
	OrderNumber string
	Read        bool
	ReadAt      *time.Time
	CreatedAt   time.Time
}

// CartItem is a line in a shopping cart with price and stock captured when added.
type CartItem struct {
	ProductID   string
	VariantID   string
	Name        string
	VariantName string
	Image       string
	Price       decimal.Decimal
	Quantity    int
	Stock       int
}

// Key identifies the line by product and variant.
func (i CartItem) Key() string {
	if i.VariantID == "" {
		return i.ProductID
	}
	return i.ProductID + "/" + i.VariantID
}

// Cart is the per-user shopping cart.
type Cart struct {
	UserID    string
	Items     []CartItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Total sums price times quantity across all items.
func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// CartHistoryStatus records how an archived cart ended.
type CartHistoryStatus string

const (
	CartHistoryCompleted CartHistoryStatus = "completed"
	CartHistoryCancelled CartHistoryStatus = "cancelled"
	CartHistoryAbandoned CartHistoryStatus = "abandoned"
)

// Valid reports whether the status is known.
func (s CartHistoryStatus) Valid() bool {
	switch s {
	case CartHistoryCompleted, CartHistoryCancelled, CartHistoryAbandoned:
		return true
	}
	return false
}

// CartHistory is an immutable snapshot of a cart at archival time.
type CartHistory struct {
	ID          string
	UserID      string
	OrderID     string
	Items       []CartItem
	TotalAmount decimal.Decimal
	Status      CartHistoryStatus
	CreatedAt   time.Time
}

const (
	// HealthStatusOK indicates all dependency checks succeeded.
	HealthStatusOK = "ok"
	// HealthStatusDegraded indicates at least one dependency check failed.
	HealthStatusDegraded = "degraded"
	// HealthStatusError indicates the check itself failed.
	HealthStatusError = "error"
)

// SystemHealthCheck describes the outcome of an individual dependency probe.
type SystemHealthCheck struct {
	Status    string
	Detail    string
	Error     string
	Latency   time.Duration
	CheckedAt time.Time
}

// SystemHealthReport aggregates dependency status for health endpoints.
type SystemHealthReport struct {
	Status      string
	Checks      map[string]SystemHealthCheck
	Version     string
	CommitSHA   string
	Environment string
	Uptime      time.Duration
	GeneratedAt time.Time
}
