package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/baovptse192440/NongSanProject-sub002/internal/domain"
	"github.com/baovptse192440/NongSanProject-sub002/internal/repositories"
)

const cartHistoryIDPrefix = "chs_"

// CartServiceDeps bundles collaborators required to construct a cart service.
type CartServiceDeps struct {
	Carts    repositories.CartRepository
	History  repositories.CartHistoryRepository
	Products repositories.ProductRepository
	// Orders, when set, is used to check that an archive's order id belongs to the cart owner.
	Orders      repositories.OrderRepository
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(context.Context, string, map[string]any)
}

type cartService struct {
	carts    repositories.CartRepository
	history  repositories.CartHistoryRepository
	products repositories.ProductRepository
	orders   repositories.OrderRepository
	clock    func() time.Time
	newID    func() string
	logger   func(context.Context, string, map[string]any)
}

var _ CartService = (*cartService)(nil)

// NewCartService constructs the cart service.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Carts == nil {
		return nil, errors.New("cart service: cart repository is required")
	}
	if deps.History == nil {
		return nil, errors.New("cart service: cart history repository is required")
	}
	if deps.Products == nil {
		return nil, errors.New("cart service: product repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &cartService{
		carts:    deps.Carts,
		history:  deps.History,
		products: deps.Products,
		orders:   deps.Orders,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

func (s *cartService) GetCart(ctx context.Context, userID string) (Cart, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Cart{}, fmt.Errorf("%w: user id is required", ErrCartInvalidInput)
	}
	cart, _, err := s.loadCart(ctx, userID)
	return cart, err
}

func (s *cartService) UpsertItem(ctx context.Context, cmd UpsertCartItemCommand) (Cart, error) {
	userID := strings.TrimSpace(cmd.UserID)
	productID := strings.TrimSpace(cmd.ProductID)
	variantID := strings.TrimSpace(cmd.VariantID)

	vErr := newValidationError(ErrCartInvalidInput)
	if userID == "" {
		vErr.add("user_id", "is required")
	}
	if productID == "" {
		vErr.add("product_id", "is required")
	}
	if cmd.Quantity < 1 {
		vErr.add("quantity", "must be at least 1")
	}
	if !vErr.empty() {
		return Cart{}, vErr
	}

	line, err := s.resolveLine(ctx, productID, variantID)
	if err != nil {
		return Cart{}, err
	}
	line.Quantity = min(cmd.Quantity, line.Stock)

	cart, existed, err := s.loadCart(ctx, userID)
	if err != nil {
		return Cart{}, err
	}

	replaced := false
	for i := range cart.Items {
		if cart.Items[i].Key() == line.Key() {
			cart.Items[i] = line
			replaced = true
			break
		}
	}
	if !replaced {
		cart.Items = append(cart.Items, line)
	}

	saved, err := s.save(ctx, cart, existed)
	if err != nil {
		return Cart{}, err
	}
	s.logger(ctx, "cart.item.upserted", map[string]any{
		"userID":    userID,
		"productID": productID,
		"variantID": variantID,
		"quantity":  line.Quantity,
	})
	return saved, nil
}

func (s *cartService) RemoveItem(ctx context.Context, cmd RemoveCartItemCommand) (Cart, error) {
	userID := strings.TrimSpace(cmd.UserID)
	productID := strings.TrimSpace(cmd.ProductID)
	if userID == "" || productID == "" {
		return Cart{}, fmt.Errorf("%w: user id and product id are required", ErrCartInvalidInput)
	}

	cart, existed, err := s.loadCart(ctx, userID)
	if err != nil || !existed {
		return cart, err
	}

	key := CartItem{ProductID: productID, VariantID: strings.TrimSpace(cmd.VariantID)}.Key()
	kept := cart.Items[:0:0]
	for _, item := range cart.Items {
		if item.Key() != key {
			kept = append(kept, item)
		}
	}
	if len(kept) == len(cart.Items) {
		return cart, nil
	}
	cart.Items = kept
	return s.save(ctx, cart, true)
}

func (s *cartService) ArchiveCart(ctx context.Context, cmd ArchiveCartCommand) (CartHistory, error) {
	userID := strings.TrimSpace(cmd.UserID)
	orderID := strings.TrimSpace(cmd.OrderID)
	status := domain.CartHistoryStatus(strings.ToLower(strings.TrimSpace(string(cmd.Status))))
	if status == "" {
		status = domain.CartHistoryCompleted
	}

	vErr := newValidationError(ErrCartInvalidInput)
	if userID == "" {
		vErr.add("user_id", "is required")
	}
	if !status.Valid() {
		vErr.add("status", "must be one of completed, cancelled, abandoned")
	}
	if !vErr.empty() {
		return CartHistory{}, vErr
	}

	if orderID != "" && s.orders != nil {
		order, err := s.orders.FindByID(ctx, orderID)
		if err != nil && !isRepositoryNotFound(err) {
			return CartHistory{}, mapRepositoryError("cart", err, nil, nil)
		}
		if err != nil || order.UserID != userID {
			vErr.add("order_id", "does not reference an order of this user")
			return CartHistory{}, vErr
		}
	}

	cart, existed, err := s.loadCart(ctx, userID)
	if err != nil {
		return CartHistory{}, err
	}
	if !existed || len(cart.Items) == 0 {
		return CartHistory{}, ErrCartEmpty
	}

	now := s.clock()
	history := CartHistory{
		ID:          cartHistoryIDPrefix + s.newID(),
		UserID:      userID,
		OrderID:     orderID,
		Items:       append([]CartItem(nil), cart.Items...),
		TotalAmount: cart.Total(),
		Status:      status,
		CreatedAt:   now,
	}

	if err := s.carts.ArchiveCart(ctx, history, cart.UpdatedAt, now); err != nil {
		if isRepositoryNotFound(err) {
			return CartHistory{}, ErrCartEmpty
		}
		return CartHistory{}, mapRepositoryError("cart", err, nil, ErrCartConflict)
	}

	s.logger(ctx, "cart.archived", map[string]any{
		"userID":    userID,
		"historyID": history.ID,
		"orderID":   orderID,
		"status":    string(status),
		"items":     len(history.Items),
		"total":     history.TotalAmount.String(),
	})
	return history, nil
}

func (s *cartService) ListHistory(ctx context.Context, filter CartHistoryFilter) (domain.CursorPage[CartHistory], error) {
	userID := strings.TrimSpace(filter.UserID)
	if userID == "" {
		return domain.CursorPage[CartHistory]{}, fmt.Errorf("%w: user id is required", ErrCartInvalidInput)
	}
	page, err := s.history.ListByUser(ctx, repositories.CartHistoryListFilter{
		UserID:     userID,
		Pagination: filter.Pagination,
	})
	if err != nil {
		return domain.CursorPage[CartHistory]{}, mapRepositoryError("cart", err, nil, nil)
	}
	return page, nil
}

// loadCart returns the stored cart, or an empty cart and false when the user has none.
func (s *cartService) loadCart(ctx context.Context, userID string) (Cart, bool, error) {
	cart, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		if isRepositoryNotFound(err) {
			return Cart{UserID: userID, Items: []CartItem{}}, false, nil
		}
		return Cart{}, false, mapRepositoryError("cart", err, nil, ErrCartConflict)
	}
	if cart.Items == nil {
		cart.Items = []CartItem{}
	}
	return cart, true, nil
}

func (s *cartService) save(ctx context.Context, cart Cart, existed bool) (Cart, error) {
	var expected *time.Time
	if existed && !cart.UpdatedAt.IsZero() {
		at := cart.UpdatedAt
		expected = &at
	}
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = s.clock()
	}
	saved, err := s.carts.SaveCart(ctx, cart, expected)
	if err != nil {
		return Cart{}, mapRepositoryError("cart", err, nil, ErrCartConflict)
	}
	return saved, nil
}

// resolveLine snapshots price, stock and naming for a product or one of its variants.
func (s *cartService) resolveLine(ctx context.Context, productID, variantID string) (CartItem, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return CartItem{}, mapRepositoryError("cart", err, ErrProductNotFound, nil)
	}
	switch product.Status {
	case domain.ProductStatusInactive:
		return CartItem{}, fmt.Errorf("%w: %s", ErrProductNotFound, productID)
	case domain.ProductStatusOutOfStock:
		return CartItem{}, fmt.Errorf("%w: %s is out of stock", ErrCartUnavailableProduct, productID)
	}

	line := CartItem{
		ProductID: product.ID,
		Name:      product.Name,
		Image:     product.PrimaryImage(),
	}

	if product.HasVariants {
		if variantID == "" {
			vErr := newValidationError(ErrCartInvalidInput)
			vErr.add("variant_id", "is required for products with variants")
			return CartItem{}, vErr
		}
		variant, err := s.products.FindVariant(ctx, product.ID, variantID)
		if err != nil {
			return CartItem{}, mapRepositoryError("cart", err, ErrProductNotFound, nil)
		}
		if variant.Status == domain.VariantStatusInactive {
			return CartItem{}, fmt.Errorf("%w: variant %s is inactive", ErrCartUnavailableProduct, variantID)
		}
		line.VariantID = variant.ID
		line.VariantName = variant.Name
		line.Price = variant.FinalPrice()
		line.Stock = variant.Stock
	} else {
		if variantID != "" {
			vErr := newValidationError(ErrCartInvalidInput)
			vErr.add("variant_id", "product has no variants")
			return CartItem{}, vErr
		}
		line.Price = domain.ResolvePricing(product, nil).FinalPrice()
		line.Stock = product.Stock
	}

	if line.Stock <= 0 {
		return CartItem{}, fmt.Errorf("%w: %s has no stock", ErrCartUnavailableProduct, line.Key())
	}
	return line, nil
}
