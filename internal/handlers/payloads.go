package handlers

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/baovptse192440/NongSanProject-sub002/internal/services"
)

// money renders a decimal as a JSON number with two fraction digits.
func money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

func optionalMoney(d *decimal.Decimal) *json.Number {
	if d == nil {
		return nil
	}
	value := money(*d)
	return &value
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

type pricingPayload struct {
	RetailPrice    json.Number  `json:"retail_price"`
	WholesalePrice json.Number  `json:"wholesale_price"`
	OnSale         bool         `json:"on_sale"`
	SalePrice      *json.Number `json:"sale_price,omitempty"`
	SalePercentage *int         `json:"sale_percentage,omitempty"`
	FinalPrice     json.Number  `json:"final_price"`
	Stock          int          `json:"stock"`
	VariantID      string       `json:"variant_id,omitempty"`
}

type variantPayload struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	SKU            string       `json:"sku,omitempty"`
	RetailPrice    json.Number  `json:"retail_price"`
	OnSale         bool         `json:"on_sale"`
	SalePrice      *json.Number `json:"sale_price,omitempty"`
	SalePercentage *int         `json:"sale_percentage,omitempty"`
	FinalPrice     json.Number  `json:"final_price"`
	Stock          int          `json:"stock"`
	Status         string       `json:"status"`
}

type productPayload struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Slug        string           `json:"slug"`
	CategoryID  string           `json:"category_id,omitempty"`
	Description string           `json:"description,omitempty"`
	Images      []string         `json:"images"`
	SKU         string           `json:"sku,omitempty"`
	Status      string           `json:"status"`
	HasVariants bool             `json:"has_variants"`
	Pricing     pricingPayload   `json:"pricing"`
	Variants    []variantPayload `json:"variants,omitempty"`
	CreatedAt   string           `json:"created_at,omitempty"`
	UpdatedAt   string           `json:"updated_at,omitempty"`
}

func buildProductPayload(detail services.ProductDetail) productPayload {
	product := detail.Product
	images := product.Images
	if images == nil {
		images = []string{}
	}
	payload := productPayload{
		ID:          product.ID,
		Name:        product.Name,
		Slug:        product.Slug,
		CategoryID:  product.CategoryID,
		Description: product.Description,
		Images:      images,
		SKU:         product.SKU,
		Status:      string(product.Status),
		HasVariants: product.HasVariants,
		Pricing: pricingPayload{
			RetailPrice:    money(detail.Pricing.RetailPrice),
			WholesalePrice: money(detail.Pricing.WholesalePrice),
			OnSale:         detail.Pricing.OnSale,
			SalePrice:      optionalMoney(detail.Pricing.SalePrice),
			SalePercentage: detail.Pricing.SalePercentage,
			FinalPrice:     money(detail.Pricing.FinalPrice()),
			Stock:          detail.Pricing.Stock,
			VariantID:      detail.Pricing.VariantID,
		},
		CreatedAt: formatTime(product.CreatedAt),
		UpdatedAt: formatTime(product.UpdatedAt),
	}
	for _, variant := range detail.Variants {
		payload.Variants = append(payload.Variants, variantPayload{
			ID:             variant.ID,
			Name:           variant.Name,
			SKU:            variant.SKU,
			RetailPrice:    money(variant.RetailPrice),
			OnSale:         variant.OnSale,
			SalePrice:      optionalMoney(variant.SalePrice),
			SalePercentage: variant.SalePercentage,
			FinalPrice:     money(variant.FinalPrice()),
			Stock:          variant.Stock,
			Status:         string(variant.Status),
		})
	}
	return payload
}

type cartItemPayload struct {
	ProductID   string      `json:"product_id"`
	VariantID   string      `json:"variant_id,omitempty"`
	Name        string      `json:"name"`
	VariantName string      `json:"variant_name,omitempty"`
	Image       string      `json:"image,omitempty"`
	Price       json.Number `json:"price"`
	Quantity    int         `json:"quantity"`
	Stock       int         `json:"stock"`
	LineTotal   json.Number `json:"line_total"`
}

type cartPayload struct {
	UserID    string            `json:"user_id"`
	Items     []cartItemPayload `json:"items"`
	ItemCount int               `json:"item_count"`
	Total     json.Number       `json:"total"`
	UpdatedAt string            `json:"updated_at,omitempty"`
}

func buildCartItems(items []services.CartItem) []cartItemPayload {
	out := make([]cartItemPayload, 0, len(items))
	for _, item := range items {
		out = append(out, cartItemPayload{
			ProductID:   item.ProductID,
			VariantID:   item.VariantID,
			Name:        item.Name,
			VariantName: item.VariantName,
			Image:       item.Image,
			Price:       money(item.Price),
			Quantity:    item.Quantity,
			Stock:       item.Stock,
			LineTotal:   money(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))),
		})
	}
	return out
}

func buildCartPayload(cart services.Cart) cartPayload {
	count := 0
	for _, item := range cart.Items {
		count += item.Quantity
	}
	return cartPayload{
		UserID:    cart.UserID,
		Items:     buildCartItems(cart.Items),
		ItemCount: count,
		Total:     money(cart.Total()),
		UpdatedAt: formatTime(cart.UpdatedAt),
	}
}

type cartHistoryPayload struct {
	ID          string            `json:"id"`
	OrderID     string            `json:"order_id,omitempty"`
	Items       []cartItemPayload `json:"items"`
	TotalAmount json.Number       `json:"total_amount"`
	Status      string            `json:"status"`
	CreatedAt   string            `json:"created_at"`
}

func buildCartHistoryPayload(history services.CartHistory) cartHistoryPayload {
	return cartHistoryPayload{
		ID:          history.ID,
		OrderID:     history.OrderID,
		Items:       buildCartItems(history.Items),
		TotalAmount: money(history.TotalAmount),
		Status:      string(history.Status),
		CreatedAt:   formatTime(history.CreatedAt),
	}
}

type customerPayload struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Address  string `json:"address"`
	City     string `json:"city"`
	State    string `json:"state"`
	ZipCode  string `json:"zip_code"`
}

type orderItemPayload struct {
	ProductID   string      `json:"product_id"`
	VariantID   string      `json:"variant_id,omitempty"`
	ProductName string      `json:"product_name"`
	VariantName string      `json:"variant_name,omitempty"`
	Slug        string      `json:"slug,omitempty"`
	Image       string      `json:"image"`
	Price       json.Number `json:"price"`
	Quantity    int         `json:"quantity"`
	LineTotal   json.Number `json:"line_total"`
}

type orderPayload struct {
	ID          string             `json:"id"`
	OrderNumber string             `json:"order_number"`
	UserID      string             `json:"user_id"`
	Status      string             `json:"status"`
	Customer    customerPayload    `json:"customer"`
	Items       []orderItemPayload `json:"items"`
	Subtotal    json.Number        `json:"subtotal"`
	ShippingFee json.Number        `json:"shipping_fee"`
	Total       json.Number        `json:"total"`
	Notes       string             `json:"notes,omitempty"`
	CreatedAt   string             `json:"created_at"`
	UpdatedAt   string             `json:"updated_at,omitempty"`
}

func buildOrderPayload(order services.Order) orderPayload {
	items := make([]orderItemPayload, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemPayload{
			ProductID:   item.ProductID,
			VariantID:   item.VariantID,
			ProductName: item.ProductName,
			VariantName: item.VariantName,
			Slug:        item.Slug,
			Image:       item.Image,
			Price:       money(item.UnitPrice),
			Quantity:    item.Quantity,
			LineTotal:   money(item.LineTotal()),
		})
	}
	return orderPayload{
		ID:          order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Status:      string(order.Status),
		Customer: customerPayload{
			FullName: order.Customer.FullName,
			Email:    order.Customer.Email,
			Phone:    order.Customer.Phone,
			Address:  order.Customer.Address,
			City:     order.Customer.City,
			State:    order.Customer.State,
			ZipCode:  order.Customer.ZipCode,
		},
		Items:       items,
		Subtotal:    money(order.Subtotal),
		ShippingFee: money(order.ShippingFee),
		Total:       money(order.Total),
		Notes:       order.Notes,
		CreatedAt:   formatTime(order.CreatedAt),
		UpdatedAt:   formatTime(order.UpdatedAt),
	}
}

type sideEffectPayload struct {
	Kind   string `json:"kind"`
	Target string `json:"target,omitempty"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func buildSideEffectPayload(log services.SideEffectLog) []sideEffectPayload {
	out := make([]sideEffectPayload, 0, len(log.Outcomes))
	for _, outcome := range log.Outcomes {
		out = append(out, sideEffectPayload{
			Kind:   string(outcome.Kind),
			Target: outcome.Target,
			Status: string(outcome.Status),
			Detail: outcome.Detail,
		})
	}
	return out
}

type notificationPayload struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	Message     string `json:"message"`
	OrderID     string `json:"order_id,omitempty"`
	OrderNumber string `json:"order_number,omitempty"`
	Read        bool   `json:"read"`
	ReadAt      string `json:"read_at,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func buildNotificationPayload(n services.Notification) notificationPayload {
	payload := notificationPayload{
		ID:          n.ID,
		Type:        string(n.Type),
		Title:       n.Title,
		Message:     n.Message,
		OrderID:     n.OrderID,
		OrderNumber: n.OrderNumber,
		Read:        n.Read,
		CreatedAt:   formatTime(n.CreatedAt),
	}
	if n.ReadAt != nil {
		payload.ReadAt = formatTime(*n.ReadAt)
	}
	return payload
}
