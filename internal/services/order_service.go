package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"

	domain "github.com/baovptse192440/NongSanProject-sub002/internal/domain"
	"github.com/baovptse192440/NongSanProject-sub002/internal/platform/textutil"
	"github.com/baovptse192440/NongSanProject-sub002/internal/repositories"
)

const (
	orderIDPrefix        = "ord_"
	notificationIDPrefix = "ntf_"

	defaultPlaceholderImage = "/images/placeholder.png"
	maxOrderNotesLength     = 1000
)

// OrderServiceDeps bundles collaborators required to construct an order service.
type OrderServiceDeps struct {
	Orders        repositories.OrderRepository
	Users         repositories.UserRepository
	Notifications repositories.NotificationRepository
	// Numbers defaults to a generator backed by Orders.
	Numbers *OrderNumberGenerator
	Mailer  EmailDispatcher
	Policy  TransitionPolicy
	// AdminEmails are extra recipients of new-order emails on top of admin profiles.
	AdminEmails      []string
	PlaceholderImage string
	Money            MoneyFormatter
	Clock            func() time.Time
	IDGenerator      func() string
	Logger           func(context.Context, string, map[string]any)
	Meter            metric.Meter
}

type orderService struct {
	orders        repositories.OrderRepository
	users         repositories.UserRepository
	notifications repositories.NotificationRepository
	numbers       *OrderNumberGenerator
	mailer        EmailDispatcher
	policy        TransitionPolicy
	adminEmails   []string
	placeholder   string
	money         MoneyFormatter
	clock         func() time.Time
	newID         func() string
	logger        func(context.Context, string, map[string]any)
	metrics       sideEffectMetrics
}

var _ OrderService = (*orderService)(nil)

// NewOrderService assembles the order workflow service.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Users == nil {
		return nil, errors.New("order service: user repository is required")
	}
	if deps.Notifications == nil {
		return nil, errors.New("order service: notification repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	numbers := deps.Numbers
	if numbers == nil {
		generator, err := NewOrderNumberGenerator(OrderNumberGeneratorDeps{Lookup: deps.Orders, Clock: clock})
		if err != nil {
			return nil, fmt.Errorf("order service: %w", err)
		}
		numbers = generator
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

	placeholder := strings.TrimSpace(deps.PlaceholderImage)
	if placeholder == "" {
		placeholder = defaultPlaceholderImage
	}

	return &orderService{
		orders:        deps.Orders,
		users:         deps.Users,
		notifications: deps.Notifications,
		numbers:       numbers,
		mailer:        deps.Mailer,
		policy:        deps.Policy,
		adminEmails:   textutil.NormalizeEmails(deps.AdminEmails),
		placeholder:   placeholder,
		money:         deps.Money,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:   idGen,
		logger:  logger,
		metrics: newSideEffectMetrics(deps.Meter),
	}, nil
}

func (s *orderService) SubmitOrder(ctx context.Context, cmd SubmitOrderCommand) (OrderSubmission, error) {
	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		return OrderSubmission{}, fmt.Errorf("%w: user id is required", ErrOrderInvalidInput)
	}
	if vErr := validateSubmitOrder(cmd); !vErr.empty() {
		return OrderSubmission{}, vErr
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return OrderSubmission{}, mapRepositoryError("order", err, ErrOrderCustomerNotFound, nil)
	}
	if missing := user.MissingShippingFields(); len(missing) > 0 {
		return OrderSubmission{}, &IncompleteProfileError{Missing: missing}
	}

	now := s.clock()
	order := Order{
		ID:     orderIDPrefix + s.newID(),
		UserID: userID,
		Customer: OrderCustomer{
			FullName: strings.TrimSpace(user.FullName),
			Email:    strings.TrimSpace(user.Email),
			Phone:    strings.TrimSpace(user.Phone),
			Address:  strings.TrimSpace(user.Address),
			City:     strings.TrimSpace(user.City),
			State:    strings.TrimSpace(user.State),
			ZipCode:  strings.TrimSpace(user.ZipCode),
		},
		Items:       s.snapshotItems(cmd.Items),
		Subtotal:    decimalFromInput(cmd.Subtotal),
		ShippingFee: decimalFromInput(cmd.ShippingFee),
		Total:       decimalFromInput(cmd.Total),
		Status:      domain.OrderStatusPending,
		Notes:       textutil.PlainText(cmd.Notes, maxOrderNotesLength),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	number, err := s.numbers.Generate(ctx, func(ctx context.Context, candidate string) error {
		order.OrderNumber = candidate
		return s.orders.Insert(ctx, order)
	})
	if err != nil {
		if errors.Is(err, ErrOrderNumberGenerationFailed) {
			s.logger(ctx, "order.number.exhausted", map[string]any{"userID": userID, "error": err.Error()})
			return OrderSubmission{}, err
		}
		return OrderSubmission{}, mapRepositoryError("order", err, nil, ErrOrderConflict)
	}
	order.OrderNumber = number

	s.logger(ctx, "order.submitted", map[string]any{
		"orderID":     order.ID,
		"orderNumber": order.OrderNumber,
		"userID":      userID,
		"items":       len(order.Items),
		"total":       order.Total.String(),
	})

	sideEffects := s.notifyAdmins(ctx, order)
	s.reportSideEffects(ctx, "submit", order, sideEffects)

	return OrderSubmission{Order: order, SideEffects: sideEffects}, nil
}

func (s *orderService) UpdateStatus(ctx context.Context, cmd UpdateOrderStatusCommand) (OrderStatusChange, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	vErr := newValidationError(ErrOrderInvalidInput)
	if orderID == "" {
		vErr.add("order_id", "is required")
	}
	target := domain.OrderStatus(strings.ToLower(strings.TrimSpace(cmd.TargetStatus)))
	if !target.Valid() {
		vErr.add("status", "must be one of pending, confirmed, processing, shipped, delivered, cancelled")
	}
	if !vErr.empty() {
		return OrderStatusChange{}, vErr
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return OrderStatusChange{}, mapRepositoryError("order", err, ErrOrderNotFound, ErrOrderConflict)
	}

	previous := order.Status
	if !s.policy.Allows(previous, target) {
		return OrderStatusChange{}, fmt.Errorf("%w: %s policy does not allow %s -> %s", ErrOrderInvalidState, s.policy.Kind(), previous, target)
	}

	now := s.clock()
	if err := s.orders.UpdateStatus(ctx, order.ID, previous, target, now); err != nil {
		return OrderStatusChange{}, mapRepositoryError("order", err, ErrOrderNotFound, ErrOrderConflict)
	}
	order.Status = target
	order.UpdatedAt = now

	changed := previous != target
	s.logger(ctx, "order.status.updated", map[string]any{
		"orderID":     order.ID,
		"orderNumber": order.OrderNumber,
		"actorID":     strings.TrimSpace(cmd.ActorID),
		"from":        string(previous),
		"to":          string(target),
		"changed":     changed,
	})

	result := OrderStatusChange{Order: order, PreviousStatus: previous, Changed: changed}
	if changed && target != domain.OrderStatusPending {
		result.SideEffects = s.notifyCustomer(ctx, order)
		s.reportSideEffects(ctx, "status", order, result.SideEffects)
	}
	return result, nil
}

func (s *orderService) AllowedStatuses(from domain.OrderStatus) []domain.OrderStatus {
	return s.policy.Targets(from)
}

func (s *orderService) GetOrder(ctx context.Context, orderID string, opts OrderReadOptions) (Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, mapRepositoryError("order", err, ErrOrderNotFound, nil)
	}
	if owner := strings.TrimSpace(opts.UserID); owner != "" && order.UserID != owner {
		return Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, filter OrderListFilter) (domain.CursorPage[Order], error) {
	statuses := make([]domain.OrderStatus, 0, len(filter.Status))
	for _, raw := range filter.Status {
		raw = strings.ToLower(strings.TrimSpace(raw))
		if raw == "" {
			continue
		}
		status := domain.OrderStatus(raw)
		if !status.Valid() {
			vErr := newValidationError(ErrOrderInvalidInput)
			vErr.add("status", fmt.Sprintf("unknown status %q", raw))
			return domain.CursorPage[Order]{}, vErr
		}
		statuses = append(statuses, status)
	}

	page, err := s.orders.List(ctx, repositories.OrderListFilter{
		UserID:     strings.TrimSpace(filter.UserID),
		Status:     statuses,
		Pagination: filter.Pagination,
	})
	if err != nil {
		return domain.CursorPage[Order]{}, mapRepositoryError("order", err, nil, nil)
	}
	return page, nil
}

func (s *orderService) notifyAdmins(ctx context.Context, order Order) SideEffectLog {
	var log SideEffectLog

	admins, err := s.users.ListByRole(ctx, domain.UserRoleAdmin)
	if err != nil {
		log.failed(SideEffectAdminNotification, "admins", err)
		admins = nil
	}

	profileEmails := make([]string, 0, len(admins))
	for _, admin := range admins {
		profileEmails = append(profileEmails, admin.Email)
	}
	recipients := textutil.NormalizeEmails(profileEmails, s.adminEmails)

	switch {
	case len(recipients) == 0:
		log.skipped(SideEffectAdminEmail, "no admin email addresses")
	case s.mailer == nil:
		log.skipped(SideEffectAdminEmail, "mail dispatcher not configured")
	default:
		job := NewOrderMailJob(MailKindAdminNewOrder, order, recipients)
		target := strings.Join(recipients, ",")
		if err := s.mailer.Dispatch(ctx, job); err != nil {
			log.failed(SideEffectAdminEmail, target, err)
		} else {
			log.succeeded(SideEffectAdminEmail, target)
		}
	}

	if err == nil && len(admins) == 0 {
		log.skipped(SideEffectAdminNotification, "no admin users")
		return log
	}

	wording := adminNewOrderCopy(order.OrderNumber, order.Customer.FullName, s.money.Format(order.Total))
	for _, admin := range admins {
		if err := s.insertNotification(ctx, admin.ID, order, wording); err != nil {
			log.failed(SideEffectAdminNotification, admin.ID, err)
			continue
		}
		log.succeeded(SideEffectAdminNotification, admin.ID)
	}
	return log
}

func (s *orderService) notifyCustomer(ctx context.Context, order Order) SideEffectLog {
	var log SideEffectLog

	email := strings.TrimSpace(order.Customer.Email)
	switch {
	case email == "":
		log.skipped(SideEffectCustomerEmail, "order has no customer email")
	case s.mailer == nil:
		log.skipped(SideEffectCustomerEmail, "mail dispatcher not configured")
	default:
		if err := s.mailer.Dispatch(ctx, NewOrderMailJob(MailKindOrderStatus, order, []string{email})); err != nil {
			log.failed(SideEffectCustomerEmail, email, err)
		} else {
			log.succeeded(SideEffectCustomerEmail, email)
		}
	}

	wording := customerStatusCopy(order.OrderNumber, order.Status)
	if err := s.insertNotification(ctx, order.UserID, order, wording); err != nil {
		log.failed(SideEffectCustomerNotification, order.UserID, err)
	} else {
		log.succeeded(SideEffectCustomerNotification, order.UserID)
	}
	return log
}

func (s *orderService) insertNotification(ctx context.Context, userID string, order Order, wording orderCopy) error {
	return s.notifications.Insert(ctx, Notification{
		ID:          notificationIDPrefix + s.newID(),
		UserID:      userID,
		Type:        domain.NotificationTypeOrder,
		Title:       wording.Title,
		Message:     wording.Message,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		CreatedAt:   s.clock(),
	})
}

func (s *orderService) reportSideEffects(ctx context.Context, operation string, order Order, log SideEffectLog) {
	s.metrics.record(ctx, operation, log)
	for _, outcome := range log.Failures() {
		s.logger(ctx, "order.side_effect.failed", map[string]any{
			"operation":   operation,
			"orderID":     order.ID,
			"orderNumber": order.OrderNumber,
			"kind":        string(outcome.Kind),
			"target":      outcome.Target,
			"error":       outcome.Detail,
		})
	}
}

func (s *orderService) snapshotItems(items []SubmitOrderItem) []OrderItem {
	out := make([]OrderItem, 0, len(items))
	for _, item := range items {
		image := strings.TrimSpace(item.Image)
		if image == "" {
			image = s.placeholder
		}
		out = append(out, OrderItem{
			ProductID:   strings.TrimSpace(item.ProductID),
			VariantID:   strings.TrimSpace(item.VariantID),
			ProductName: strings.TrimSpace(item.ProductName),
			VariantName: strings.TrimSpace(item.VariantName),
			Slug:        strings.TrimSpace(item.Slug),
			Image:       image,
			UnitPrice:   decimalFromInput(item.Price),
			Quantity:    item.Quantity,
		})
	}
	return out
}

func validateSubmitOrder(cmd SubmitOrderCommand) *ValidationError {
	vErr := newValidationError(ErrOrderInvalidInput)

	if len(cmd.Items) == 0 {
		vErr.add("items", "must contain at least one item")
	}
	for i, item := range cmd.Items {
		prefix := fmt.Sprintf("items[%d].", i)
		if strings.TrimSpace(item.ProductID) == "" {
			vErr.add(prefix+"product_id", "is required")
		}
		if strings.TrimSpace(item.ProductName) == "" {
			vErr.add(prefix+"product_name", "is required")
		}
		if item.Quantity < 1 {
			vErr.add(prefix+"quantity", "must be at least 1")
		}
		switch {
		case item.Price == nil:
			vErr.add(prefix+"price", "must be a number")
		case *item.Price < 0:
			vErr.add(prefix+"price", "must not be negative")
		}
	}

	checkAmount := func(field string, value *float64, required bool) {
		switch {
		case value == nil && required:
			vErr.add(field, "must be a number")
		case value != nil && *value < 0:
			vErr.add(field, "must not be negative")
		}
	}
	checkAmount("subtotal", cmd.Subtotal, true)
	checkAmount("shipping_fee", cmd.ShippingFee, false)
	checkAmount("total", cmd.Total, true)

	return vErr
}

func decimalFromInput(value *float64) decimal.Decimal {
	if value == nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(*value)
}
