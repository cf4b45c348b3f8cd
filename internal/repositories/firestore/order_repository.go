package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/baovptse192440/NongSanProject-sub002/internal/domain"
	pfirestore "github.com/baovptse192440/NongSanProject-sub002/internal/platform/firestore"
	"github.com/baovptse192440/NongSanProject-sub002/internal/repositories"
)

const (
	orderCollection       = "orders"
	orderNumberCollection = "order_numbers"
)

// OrderRepository persists orders and the order-number uniqueness index.
type OrderRepository struct {
	provider *pfirestore.Provider
	orders   *pfirestore.BaseRepository[orderDocument]
	numbers  *pfirestore.BaseRepository[orderNumberDocument]
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	return &OrderRepository{
		provider: provider,
		orders:   pfirestore.NewBaseRepository[orderDocument](provider, orderCollection),
		numbers:  pfirestore.NewBaseRepository[orderNumberDocument](provider, orderNumberCollection),
	}, nil
}

// Insert creates the order together with its order_numbers/{number} claim in a
// single transaction. A taken number or order id fails the commit with a conflict.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if r == nil || r.orders == nil {
		return errors.New("order repository not initialised")
	}
	orderID := strings.TrimSpace(order.ID)
	number := strings.TrimSpace(order.OrderNumber)
	if orderID == "" || number == "" {
		return errors.New("order repository: order id and number are required")
	}

	orderRef, err := r.orders.DocumentRef(ctx, orderID)
	if err != nil {
		return err
	}
	numberRef, err := r.numbers.DocumentRef(ctx, number)
	if err != nil {
		return err
	}
	doc := encodeOrder(order)

	return r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := tx.Create(numberRef, orderNumberDocument{OrderID: orderID, CreatedAt: doc.CreatedAt}); err != nil {
			return err
		}
		return tx.Create(orderRef, doc)
	}, pfirestore.WithTxAttempts(1))
}

// UpdateStatus moves an order from one status to another. The order must still
// carry from when the transaction reads it, otherwise nothing is written and a
// conflict is returned.
func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID string, from, to domain.OrderStatus, updatedAt time.Time) error {
	if r == nil || r.orders == nil {
		return errors.New("order repository not initialised")
	}
	id := strings.TrimSpace(orderID)
	ref, err := r.orders.DocumentRef(ctx, id)
	if err != nil {
		return err
	}

	return r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		doc, err := pfirestore.Decode[orderDocument](snap)
		if err != nil {
			return err
		}
		if current := domain.OrderStatus(doc.Data.Status); current != from {
			return pfirestore.NewConflict("orders.update_status", fmt.Errorf("order %s is %s, expected %s", id, current, from))
		}
		return tx.Update(ref, []firestore.Update{
			{Path: "status", Value: string(to)},
			{Path: "updatedAt", Value: updatedAt.UTC()},
		})
	})
}

// FindByID loads an order by document id.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if r == nil || r.orders == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	doc, err := r.orders.Get(ctx, strings.TrimSpace(orderID))
	if err != nil {
		return domain.Order{}, err
	}
	return decodeOrder(doc), nil
}

// ExistsByOrderNumber checks the uniqueness index for a candidate number.
func (r *OrderRepository) ExistsByOrderNumber(ctx context.Context, orderNumber string) (bool, error) {
	if r == nil || r.numbers == nil {
		return false, errors.New("order repository not initialised")
	}
	_, err := r.numbers.Get(ctx, strings.TrimSpace(orderNumber))
	if err == nil {
		return true, nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && repoErr.IsNotFound() {
		return false, nil
	}
	return false, err
}

// List returns orders newest first, optionally scoped to one user and status set.
func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if r == nil || r.orders == nil {
		return domain.CursorPage[domain.Order]{}, errors.New("order repository not initialised")
	}
	statuses := make([]string, 0, len(filter.Status))
	for _, status := range filter.Status {
		statuses = append(statuses, string(status))
	}
	// Firestore "in" clauses accept at most 10 values; there are only six statuses.
	return listPage(ctx, r.orders, filter.Pagination, "createdAt",
		func(q firestore.Query) firestore.Query {
			if userID := strings.TrimSpace(filter.UserID); userID != "" {
				q = q.Where("userId", "==", userID)
			}
			switch len(statuses) {
			case 0:
			case 1:
				q = q.Where("status", "==", statuses[0])
			default:
				q = q.Where("status", "in", statuses)
			}
			return q
		},
		func(doc orderDocument) time.Time { return doc.CreatedAt },
		decodeOrder,
	)
}

type orderNumberDocument struct {
	OrderID   string    `firestore:"orderId"`
	CreatedAt time.Time `firestore:"createdAt"`
}

type orderCustomerDocument struct {
	FullName string `firestore:"fullName"`
	Email    string `firestore:"email"`
	Phone    string `firestore:"phone,omitempty"`
	Address  string `firestore:"address"`
	City     string `firestore:"city"`
	State    string `firestore:"state"`
	ZipCode  string `firestore:"zipCode"`
}

type orderItemDocument struct {
	ProductID   string  `firestore:"productId"`
	VariantID   string  `firestore:"variantId,omitempty"`
	ProductName string  `firestore:"productName"`
	VariantName string  `firestore:"variantName,omitempty"`
	Slug        string  `firestore:"slug,omitempty"`
	Image       string  `firestore:"image"`
	Price       float64 `firestore:"price"`
	Quantity    int     `firestore:"quantity"`
}

type orderDocument struct {
	OrderNumber string                `firestore:"orderNumber"`
	UserID      string                `firestore:"userId"`
	Customer    orderCustomerDocument `firestore:"shippingAddress"`
	Items       []orderItemDocument   `firestore:"items"`
	Subtotal    float64               `firestore:"subtotal"`
	ShippingFee float64               `firestore:"shippingFee"`
	Total       float64               `firestore:"total"`
	Status      string                `firestore:"status"`
	Notes       string                `firestore:"notes,omitempty"`
	CreatedAt   time.Time             `firestore:"createdAt"`
	UpdatedAt   time.Time             `firestore:"updatedAt"`
}

func encodeOrder(order domain.Order) orderDocument {
	items := make([]orderItemDocument, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemDocument{
			ProductID:   item.ProductID,
			VariantID:   item.VariantID,
			ProductName: item.ProductName,
			VariantName: item.VariantName,
			Slug:        item.Slug,
			Image:       item.Image,
			Price:       moneyToStore(item.UnitPrice),
			Quantity:    item.Quantity,
		})
	}
	c := order.Customer
	return orderDocument{
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Customer: orderCustomerDocument{
			FullName: c.FullName,
			Email:    c.Email,
			Phone:    c.Phone,
			Address:  c.Address,
			City:     c.City,
			State:    c.State,
			ZipCode:  c.ZipCode,
		},
		Items:       items,
		Subtotal:    moneyToStore(order.Subtotal),
		ShippingFee: moneyToStore(order.ShippingFee),
		Total:       moneyToStore(order.Total),
		Status:      string(order.Status),
		Notes:       order.Notes,
		CreatedAt:   order.CreatedAt.UTC(),
		UpdatedAt:   order.UpdatedAt.UTC(),
	}
}

func decodeOrder(doc pfirestore.Document[orderDocument]) domain.Order {
	data := doc.Data
	items := make([]domain.OrderItem, 0, len(data.Items))
	for _, item := range data.Items {
		items = append(items, domain.OrderItem{
			ProductID:   item.ProductID,
			VariantID:   item.VariantID,
			ProductName: item.ProductName,
			VariantName: item.VariantName,
			Slug:        item.Slug,
			Image:       item.Image,
			UnitPrice:   moneyFromStore(item.Price),
			Quantity:    item.Quantity,
		})
	}
	c := data.Customer
	return domain.Order{
		ID:          doc.ID,
		OrderNumber: data.OrderNumber,
		UserID:      data.UserID,
		Customer: domain.OrderCustomer{
			FullName: c.FullName,
			Email:    c.Email,
			Phone:    c.Phone,
			Address:  c.Address,
			City:     c.City,
			State:    c.State,
			ZipCode:  c.ZipCode,
		},
		Items:       items,
		Subtotal:    moneyFromStore(data.Subtotal),
		ShippingFee: moneyFromStore(data.ShippingFee),
		Total:       moneyFromStore(data.Total),
		Status:      domain.OrderStatus(data.Status),
		Notes:       data.Notes,
		CreatedAt:   chooseTime(data.CreatedAt, doc.CreateTime),
		UpdatedAt:   chooseTime(data.UpdatedAt, doc.UpdateTime),
	}
}
