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
	cartCollection        = "carts"
	cartHistoryCollection = "cart_histories"
)

// CartRepository persists one cart document per user (carts/{uid}) and the
// archived cart_histories written when a cart is checked out.
type CartRepository struct {
	provider  *pfirestore.Provider
	carts     *pfirestore.BaseRepository[cartDocument]
	histories *pfirestore.BaseRepository[cartHistoryDocument]
}

var (
	_ repositories.CartRepository        = (*CartRepository)(nil)
	_ repositories.CartHistoryRepository = (*CartRepository)(nil)
)

// NewCartRepository constructs a Firestore-backed cart repository.
func NewCartRepository(provider *pfirestore.Provider) (*CartRepository, error) {
	if provider == nil {
		return nil, errors.New("cart repository requires firestore provider")
	}
	return &CartRepository{
		provider:  provider,
		carts:     pfirestore.NewBaseRepository[cartDocument](provider, cartCollection),
		histories: pfirestore.NewBaseRepository[cartHistoryDocument](provider, cartHistoryCollection),
	}, nil
}

// GetCart loads the cart for the given user. UpdatedAt carries the Firestore
// update time so callers can pass it back as a write precondition.
func (r *CartRepository) GetCart(ctx context.Context, userID string) (domain.Cart, error) {
	if r == nil || r.carts == nil {
		return domain.Cart{}, errors.New("cart repository not initialised")
	}
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return domain.Cart{}, errors.New("cart repository: user id is required")
	}
	doc, err := r.carts.Get(ctx, uid)
	if err != nil {
		return domain.Cart{}, err
	}
	return decodeCart(doc.ID, doc.Data, doc.CreateTime, doc.UpdateTime), nil
}

// SaveCart writes the whole cart document.
func (r *CartRepository) SaveCart(ctx context.Context, cart domain.Cart, expectedUpdatedAt *time.Time) (domain.Cart, error) {
	if r == nil || r.carts == nil {
		return domain.Cart{}, errors.New("cart repository not initialised")
	}
	uid := strings.TrimSpace(cart.UserID)
	if uid == "" {
		return domain.Cart{}, errors.New("cart repository: user id is required")
	}

	now := time.Now().UTC()
	doc := cartDocument{
		Items:     encodeCartItems(cart.Items),
		CreatedAt: chooseTime(cart.CreatedAt, now),
		UpdatedAt: now,
	}

	var (
		updateTime time.Time
		err        error
	)
	if expectedUpdatedAt == nil || expectedUpdatedAt.IsZero() {
		updateTime, err = r.carts.Set(ctx, uid, doc)
	} else {
		updateTime, err = r.carts.Update(ctx, uid, []firestore.Update{
			{Path: "items", Value: doc.Items},
			{Path: "updatedAt", Value: doc.UpdatedAt},
		}, firestore.LastUpdateTime(expectedUpdatedAt.UTC()))
	}
	if err != nil {
		return domain.Cart{}, err
	}

	saved := cart
	saved.UserID = uid
	saved.Items = append([]domain.CartItem(nil), cart.Items...)
	saved.CreatedAt = doc.CreatedAt
	saved.UpdatedAt = updateTime
	return saved, nil
}

// ArchiveCart creates the history snapshot and empties the cart in one
// transaction. The cart must still carry expectedUpdatedAt, otherwise the
// archive aborts with a conflict and nothing is written.
func (r *CartRepository) ArchiveCart(ctx context.Context, history domain.CartHistory, expectedUpdatedAt time.Time, clearedAt time.Time) error {
	if r == nil || r.carts == nil || r.histories == nil {
		return errors.New("cart repository not initialised")
	}
	uid := strings.TrimSpace(history.UserID)
	cartRef, err := r.carts.DocumentRef(ctx, uid)
	if err != nil {
		return err
	}
	historyRef, err := r.histories.DocumentRef(ctx, history.ID)
	if err != nil {
		return err
	}
	historyDoc := encodeCartHistory(history)

	return r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(cartRef)
		if err != nil {
			return err
		}
		if !snap.UpdateTime.Equal(expectedUpdatedAt) {
			return pfirestore.NewConflict("carts.archive", fmt.Errorf("cart %s modified concurrently", uid))
		}
		if err := tx.Create(historyRef, historyDoc); err != nil {
			return err
		}
		return tx.Update(cartRef, []firestore.Update{
			{Path: "items", Value: []cartItemDocument{}},
			{Path: "updatedAt", Value: clearedAt.UTC()},
		})
	})
}

// ListByUser returns archived carts newest first.
func (r *CartRepository) ListByUser(ctx context.Context, filter repositories.CartHistoryListFilter) (domain.CursorPage[domain.CartHistory], error) {
	if r == nil || r.histories == nil {
		return domain.CursorPage[domain.CartHistory]{}, errors.New("cart repository not initialised")
	}
	return listPage(ctx, r.histories, filter.Pagination, "createdAt",
		func(q firestore.Query) firestore.Query {
			return q.Where("userId", "==", strings.TrimSpace(filter.UserID))
		},
		func(doc cartHistoryDocument) time.Time { return doc.CreatedAt },
		decodeCartHistory,
	)
}

type cartItemDocument struct {
	ProductID   string  `firestore:"productId"`
	VariantID   string  `firestore:"variantId,omitempty"`
	Name        string  `firestore:"name"`
	VariantName string  `firestore:"variantName,omitempty"`
	Image       string  `firestore:"image,omitempty"`
	Price       float64 `firestore:"price"`
	Quantity    int     `firestore:"quantity"`
	Stock       int     `firestore:"stock"`
}

type cartDocument struct {
	Items     []cartItemDocument `firestore:"items"`
	CreatedAt time.Time          `firestore:"createdAt"`
	UpdatedAt time.Time          `firestore:"updatedAt"`
}

type cartHistoryDocument struct {
	UserID      string             `firestore:"userId"`
	OrderID     string             `firestore:"orderId,omitempty"`
	Items       []cartItemDocument `firestore:"items"`
	TotalAmount float64            `firestore:"totalAmount"`
	Status      string             `firestore:"status"`
	CreatedAt   time.Time          `firestore:"createdAt"`
}

func encodeCartItems(items []domain.CartItem) []cartItemDocument {
	out := make([]cartItemDocument, 0, len(items))
	for _, item := range items {
		out = append(out, cartItemDocument{
			ProductID:   item.ProductID,
			VariantID:   item.VariantID,
			Name:        item.Name,
			VariantName: item.VariantName,
			Image:       item.Image,
			Price:       moneyToStore(item.Price),
			Quantity:    item.Quantity,
			Stock:       item.Stock,
		})
	}
	return out
}

func decodeCartItems(items []cartItemDocument) []domain.CartItem {
	out := make([]domain.CartItem, 0, len(items))
	for _, item := range items {
		out = append(out, domain.CartItem{
			ProductID:   item.ProductID,
			VariantID:   item.VariantID,
			Name:        item.Name,
			VariantName: item.VariantName,
			Image:       item.Image,
			Price:       moneyFromStore(item.Price),
			Quantity:    item.Quantity,
			Stock:       item.Stock,
		})
	}
	return out
}

func decodeCart(id string, doc cartDocument, createTime, updateTime time.Time) domain.Cart {
	return domain.Cart{
		UserID:    id,
		Items:     decodeCartItems(doc.Items),
		CreatedAt: chooseTime(doc.CreatedAt, createTime),
		UpdatedAt: updateTime,
	}
}

func encodeCartHistory(history domain.CartHistory) cartHistoryDocument {
	return cartHistoryDocument{
		UserID:      history.UserID,
		OrderID:     history.OrderID,
		Items:       encodeCartItems(history.Items),
		TotalAmount: moneyToStore(history.TotalAmount),
		Status:      string(history.Status),
		CreatedAt:   history.CreatedAt.UTC(),
	}
}

func decodeCartHistory(doc pfirestore.Document[cartHistoryDocument]) domain.CartHistory {
	data := doc.Data
	return domain.CartHistory{
		ID:          doc.ID,
		UserID:      data.UserID,
		OrderID:     data.OrderID,
		Items:       decodeCartItems(data.Items),
		TotalAmount: moneyFromStore(data.TotalAmount),
		Status:      domain.CartHistoryStatus(data.Status),
		CreatedAt:   chooseTime(data.CreatedAt, doc.CreateTime),
	}
}
