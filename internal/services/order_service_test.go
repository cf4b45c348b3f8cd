package services

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	domain "github.com/baovptse192440/NongSanProject-sub002/internal/domain"
	"github.com/baovptse192440/NongSanProject-sub002/internal/repositories"
)

var orderNumberPattern = regexp.MustCompile(`^OD\d{11}$`)

type stubRepositoryError struct {
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e stubRepositoryError) Error() string       { return "repository error" }
func (e stubRepositoryError) IsNotFound() bool    { return e.notFound }
func (e stubRepositoryError) IsConflict() bool    { return e.conflict }
func (e stubRepositoryError) IsUnavailable() bool { return e.unavailable }

type stubOrderRepo struct {
	insertFn       func(context.Context, domain.Order) error
	updateStatusFn func(context.Context, string, domain.OrderStatus, domain.OrderStatus, time.Time) error
	findFn         func(context.Context, string) (domain.Order, error)
	existsFn       func(context.Context, string) (bool, error)
	listFn         func(context.Context, repositories.OrderListFilter) (domain.CursorPage[domain.Order], error)

	inserted []domain.Order
	updates  []domain.OrderStatus
	expected []domain.OrderStatus
}

func (s *stubOrderRepo) Insert(ctx context.Context, order domain.Order) error {
	if s.insertFn != nil {
		if err := s.insertFn(ctx, order); err != nil {
			return err
		}
	}
	s.inserted = append(s.inserted, order)
	return nil
}

func (s *stubOrderRepo) UpdateStatus(ctx context.Context, orderID string, from, to domain.OrderStatus, updatedAt time.Time) error {
	if s.updateStatusFn != nil {
		if err := s.updateStatusFn(ctx, orderID, from, to, updatedAt); err != nil {
			return err
		}
	}
	s.updates = append(s.updates, to)
	s.expected = append(s.expected, from)
	return nil
}

func (s *stubOrderRepo) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if s.findFn != nil {
		return s.findFn(ctx, orderID)
	}
	return domain.Order{}, stubRepositoryError{notFound: true}
}

func (s *stubOrderRepo) ExistsByOrderNumber(ctx context.Context, orderNumber string) (bool, error) {
	if s.existsFn != nil {
		return s.existsFn(ctx, orderNumber)
	}
	return false, nil
}

func (s *stubOrderRepo) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return domain.CursorPage[domain.Order]{}, nil
}

type stubUserRepo struct {
	users      map[string]domain.User
	listErr    error
	listCalled int
}

func (s *stubUserRepo) FindByID(_ context.Context, userID string) (domain.User, error) {
	user, ok := s.users[userID]
	if !ok {
		return domain.User{}, stubRepositoryError{notFound: true}
	}
	return user, nil
}

func (s *stubUserRepo) ListByRole(_ context.Context, role domain.UserRole) ([]domain.User, error) {
	s.listCalled++
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []domain.User
	for _, user := range s.users {
		if user.Role == role {
			out = append(out, user)
		}
	}
	return out, nil
}

type stubNotificationRepo struct {
	insertFn   func(context.Context, domain.Notification) error
	findFn     func(context.Context, string) (domain.Notification, error)
	listFn     func(context.Context, repositories.NotificationListFilter) (domain.CursorPage[domain.Notification], error)
	markReadFn func(context.Context, string, time.Time) error

	inserted []domain.Notification
	marked   []string
}

func (s *stubNotificationRepo) Insert(ctx context.Context, notification domain.Notification) error {
	if s.insertFn != nil {
		if err := s.insertFn(ctx, notification); err != nil {
			return err
		}
	}
	s.inserted = append(s.inserted, notification)
	return nil
}

func (s *stubNotificationRepo) FindByID(ctx context.Context, notificationID string) (domain.Notification, error) {
	if s.findFn != nil {
		return s.findFn(ctx, notificationID)
	}
	return domain.Notification{}, stubRepositoryError{notFound: true}
}

func (s *stubNotificationRepo) ListByUser(ctx context.Context, filter repositories.NotificationListFilter) (domain.CursorPage[domain.Notification], error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return domain.CursorPage[domain.Notification]{}, nil
}

func (s *stubNotificationRepo) MarkRead(ctx context.Context, notificationID string, readAt time.Time) error {
	if s.markReadFn != nil {
		if err := s.markReadFn(ctx, notificationID, readAt); err != nil {
			return err
		}
	}
	s.marked = append(s.marked, notificationID)
	return nil
}

type stubMailer struct {
	err  error
	jobs []MailJob
}

func (s *stubMailer) Dispatch(_ context.Context, job MailJob) error {
	s.jobs = append(s.jobs, job)
	return s.err
}

func floatPtr(v float64) *float64 { return &v }

var orderTestNow = time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)

func completeCustomer() domain.User {
	return domain.User{
		ID:       "user-1",
		FullName: "Nguyen Van A",
		Email:    "a@example.com",
		Phone:    "0900000000",
		Address:  "12 Le Loi",
		City:     "Da Lat",
		State:    "Lam Dong",
		ZipCode:  "670000",
		Role:     domain.UserRoleUser,
	}
}

func orderFixtureUsers(admins ...domain.User) *stubUserRepo {
	users := map[string]domain.User{"user-1": completeCustomer()}
	for _, admin := range admins {
		admin.Role = domain.UserRoleAdmin
		users[admin.ID] = admin
	}
	return &stubUserRepo{users: users}
}

type orderFixture struct {
	orders        *stubOrderRepo
	users         *stubUserRepo
	notifications *stubNotificationRepo
	mailer        *stubMailer
	sleeps        int
}

func newOrderFixture(t *testing.T, policy TransitionPolicy, mutate ...func(*OrderServiceDeps)) (OrderService, *orderFixture) {
	t.Helper()

	fx := &orderFixture{
		orders:        &stubOrderRepo{},
		users:         orderFixtureUsers(domain.User{ID: "admin-1", Email: "admin1@example.com"}, domain.User{ID: "admin-2", Email: "admin2@example.com"}),
		notifications: &stubNotificationRepo{},
		mailer:        &stubMailer{},
	}

	numbers, err := NewOrderNumberGenerator(OrderNumberGeneratorDeps{
		Lookup: fx.orders,
		Clock:  func() time.Time { return orderTestNow },
		Random: func(int) int { return 42 },
		Sleep: func(context.Context, time.Duration) error {
			fx.sleeps++
			return nil
		},
	})
	require.NoError(t, err)

	deps := OrderServiceDeps{
		Orders:        fx.orders,
		Users:         fx.users,
		Notifications: fx.notifications,
		Numbers:       numbers,
		Mailer:        fx.mailer,
		Policy:        policy,
		Clock:         func() time.Time { return orderTestNow },
		IDGenerator:   func() string { return "01TESTULID" },
	}
	for _, fn := range mutate {
		fn(&deps)
	}

	svc, err := NewOrderService(deps)
	require.NoError(t, err)
	return svc, fx
}

func riceOrderCommand() SubmitOrderCommand {
	return SubmitOrderCommand{
		UserID: "user-1",
		Items: []SubmitOrderItem{{
			ProductID:   "p1",
			ProductName: "Rice",
			Quantity:    2,
			Price:       floatPtr(10),
		}},
		Subtotal:    floatPtr(20),
		ShippingFee: floatPtr(5),
		Total:       floatPtr(25),
	}
}

func TestNewOrderServiceRequiresRepositories(t *testing.T) {
	_, err := NewOrderService(OrderServiceDeps{})
	require.Error(t, err)

	_, err = NewOrderService(OrderServiceDeps{Orders: &stubOrderRepo{}})
	require.Error(t, err)

	_, err = NewOrderService(OrderServiceDeps{Orders: &stubOrderRepo{}, Users: &stubUserRepo{}})
	require.Error(t, err)
}

func TestOrderServiceSubmitOrderPersistsPendingSnapshot(t *testing.T) {
	svc, fx := newOrderFixture(t, StandardTransitionPolicy())

	result, err := svc.SubmitOrder(context.Background(), riceOrderCommand())
	require.NoError(t, err)

	order := result.Order
	require.Regexp(t, orderNumberPattern, order.OrderNumber)
	require.Equal(t, domain.OrderStatusPending, order.Status)
	require.Equal(t, "ord_01TESTULID", order.ID)
	require.Len(t, fx.orders.inserted, 1)

	stored := fx.orders.inserted[0]
	require.Equal(t, order.OrderNumber, stored.OrderNumber)
	require.Equal(t, "Nguyen Van A", stored.Customer.FullName)
	require.Equal(t, "670000", stored.Customer.ZipCode)
	require.Len(t, stored.Items, 1)
	require.Equal(t, defaultPlaceholderImage, stored.Items[0].Image)
	require.True(t, stored.Items[0].UnitPrice.Equal(decimal.NewFromInt(10)))
	require.True(t, stored.Subtotal.Equal(decimal.NewFromInt(20)))
	require.True(t, stored.Total.Equal(decimal.NewFromInt(25)))
	require.True(t, stored.CreatedAt.Equal(orderTestNow))
}

func TestOrderServiceSubmitOrderNotifiesAdmins(t *testing.T) {
	svc, fx := newOrderFixture(t, StandardTransitionPolicy(), func(deps *OrderServiceDeps) {
		deps.AdminEmails = []string{"owner@example.com", "ADMIN1@example.com"}
	})

	result, err := svc.SubmitOrder(context.Background(), riceOrderCommand())
	require.NoError(t, err)

	require.Len(t, fx.mailer.jobs, 1)
	job := fx.mailer.jobs[0]
	require.Equal(t, MailKindAdminNewOrder, job.Kind)
	require.ElementsMatch(t, []string{"admin1@example.com", "admin2@example.com", "owner@example.com"}, job.Recipients)
	require.Equal(t, result.Order.OrderNumber, job.Order.Number)

	require.Len(t, fx.notifications.inserted, 2)
	targets := []string{fx.notifications.inserted[0].UserID, fx.notifications.inserted[1].UserID}
	require.ElementsMatch(t, []string{"admin-1", "admin-2"}, targets)
	for _, n := range fx.notifications.inserted {
		require.Equal(t, domain.NotificationTypeOrder, n.Type)
		require.Equal(t, result.Order.ID, n.OrderID)
		require.Equal(t, result.Order.OrderNumber, n.OrderNumber)
		require.False(t, n.Read)
	}

	require.Equal(t, 1, result.SideEffects.Count(SideEffectAdminEmail, SideEffectSucceeded))
	require.Equal(t, 2, result.SideEffects.Count(SideEffectAdminNotification, SideEffectSucceeded))
	require.Empty(t, result.SideEffects.Failures())
}

func TestOrderServiceSubmitOrderSideEffectFailuresDoNotFail(t *testing.T) {
	var events []string
	svc, fx := newOrderFixture(t, StandardTransitionPolicy(), func(deps *OrderServiceDeps) {
		deps.Logger = func(_ context.Context, event string, _ map[string]any) {
			events = append(events, event)
		}
	})
	fx.mailer.err = errors.New("smtp down")
	fx.notifications.insertFn = func(_ context.Context, n domain.Notification) error {
		if n.UserID == "admin-2" {
			return errors.New("firestore unavailable")
		}
		return nil
	}

	result, err := svc.SubmitOrder(context.Background(), riceOrderCommand())
	require.NoError(t, err)
	require.Len(t, fx.orders.inserted, 1)
	require.Equal(t, domain.OrderStatusPending, result.Order.Status)

	require.Equal(t, 1, result.SideEffects.Count(SideEffectAdminEmail, SideEffectFailed))
	require.Equal(t, 1, result.SideEffects.Count(SideEffectAdminNotification, SideEffectFailed))
	require.Equal(t, 1, result.SideEffects.Count(SideEffectAdminNotification, SideEffectSucceeded))
	require.Len(t, result.SideEffects.Failures(), 2)
	require.Contains(t, events, "order.side_effect.failed")
}

func TestOrderServiceSubmitOrderWithoutAdminsRecordsSkips(t *testing.T) {
	svc, fx := newOrderFixture(t, StandardTransitionPolicy())
	fx.users.users = map[string]domain.User{"user-1": completeCustomer()}

	result, err := svc.SubmitOrder(context.Background(), riceOrderCommand())
	require.NoError(t, err)
	require.Empty(t, fx.mailer.jobs)
	require.Empty(t, fx.notifications.inserted)
	require.Equal(t, 1, result.SideEffects.Count(SideEffectAdminEmail, SideEffectSkipped))
	require.Equal(t, 1, result.SideEffects.Count(SideEffectAdminNotification, SideEffectSkipped))
}

func TestOrderServiceSubmitOrderAdminLookupFailure(t *testing.T) {
	svc, fx := newOrderFixture(t, StandardTransitionPolicy(), func(deps *OrderServiceDeps) {
		deps.AdminEmails = []string{"owner@example.com"}
	})
	fx.users.listErr = stubRepositoryError{unavailable: true}

	result, err := svc.SubmitOrder(context.Background(), riceOrderCommand())
	require.NoError(t, err)
	require.Len(t, fx.mailer.jobs, 1)
	require.Equal(t, []string{"owner@example.com"}, fx.mailer.jobs[0].Recipients)
	require.Equal(t, 1, result.SideEffects.Count(SideEffectAdminNotification, SideEffectFailed))
	require.Empty(t, fx.notifications.inserted)
}

func TestOrderServiceSubmitOrderValidation(t *testing.T) {
	cases := map[string]struct {
		mutate func(*SubmitOrderCommand)
		fields []string
	}{
		"empty items": {
			mutate: func(cmd *SubmitOrderCommand) { cmd.Items = nil },
			fields: []string{"items"},
		},
		"missing totals": {
			mutate: func(cmd *SubmitOrderCommand) {
				cmd.Subtotal = nil
				cmd.Total = nil
			},
			fields: []string{"subtotal", "total"},
		},
		"negative shipping": {
			mutate: func(cmd *SubmitOrderCommand) { cmd.ShippingFee = floatPtr(-1) },
			fields: []string{"shipping_fee"},
		},
		"bad item": {
			mutate: func(cmd *SubmitOrderCommand) {
				cmd.Items[0].ProductID = ""
				cmd.Items[0].Quantity = 0
				cmd.Items[0].Price = nil
			},
			fields: []string{"items[0].price", "items[0].product_id", "items[0].quantity"},
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			svc, fx := newOrderFixture(t, StandardTransitionPolicy())
			cmd := riceOrderCommand()
			tc.mutate(&cmd)

			_, err := svc.SubmitOrder(context.Background(), cmd)
			require.ErrorIs(t, err, ErrOrderInvalidInput)

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			require.Equal(t, tc.fields, vErr.Fields())
			require.Empty(t, fx.orders.inserted)
			require.Empty(t, fx.notifications.inserted)
			require.Empty(t, fx.mailer.jobs)
		})
	}
}

func TestOrderServiceSubmitOrderRequiresCompleteProfile(t *testing.T) {
	svc, fx := newOrderFixture(t, StandardTransitionPolicy())
	customer := completeCustomer()
	customer.Address = "  "
	fx.users.users["user-1"] = customer

	_, err := svc.SubmitOrder(context.Background(), riceOrderCommand())
	require.ErrorIs(t, err, ErrIncompleteShippingProfile)

	var profileErr *IncompleteProfileError
	require.ErrorAs(t, err, &profileErr)
	require.Equal(t, []string{"address"}, profileErr.Missing)
	require.Empty(t, fx.orders.inserted)
	require.Zero(t, fx.users.listCalled)
}

func TestOrderServiceSubmitOrderUnknownCustomer(t *testing.T) {
	svc, fx := newOrderFixture(t, StandardTransitionPolicy())
	delete(fx.users.users, "user-1")

	_, err := svc.SubmitOrder(context.Background(), riceOrderCommand())
	require.ErrorIs(t, err, ErrOrderCustomerNotFound)
	require.Empty(t, fx.orders.inserted)
}

func TestOrderServiceSubmitOrderNumberExhaustion(t *testing.T) {
	svc, fx := newOrderFixture(t, StandardTransitionPolicy())
	fx.orders.existsFn = func(context.Context, string) (bool, error) { return true, nil }

	_, err := svc.SubmitOrder(context.Background(), riceOrderCommand())
	require.ErrorIs(t, err, ErrOrderNumberGenerationFailed)
	require.Empty(t, fx.orders.inserted)
	require.Empty(t, fx.mailer.jobs)
	require.Equal(t, defaultOrderNumberAttempts-1, fx.sleeps)
}

func TestOrderServiceSubmitOrderRetriesOnStorageConflict(t *testing.T) {
	svc, fx := newOrderFixture(t, StandardTransitionPolicy())
	attempts := 0
	fx.orders.insertFn = func(context.Context, domain.Order) error {
		attempts++
		if attempts == 1 {
			return stubRepositoryError{conflict: true}
		}
		return nil
	}

	result, err := svc.SubmitOrder(context.Background(), riceOrderCommand())
	require.NoError(t, err)
	require.Equal(t, 2, attempts)
	require.Equal(t, 1, fx.sleeps)
	require.Len(t, fx.orders.inserted, 1)
	require.Equal(t, fx.orders.inserted[0].OrderNumber, result.Order.OrderNumber)
}

func TestOrderServiceSubmitOrderSanitisesNotes(t *testing.T) {
	svc, fx := newOrderFixture(t, StandardTransitionPolicy())
	cmd := riceOrderCommand()
	cmd.Notes = `<img src=x onerror=alert(1)>Call <b>before</b> delivery`
	cmd.Items[0].Image = "/img/rice.png"

	_, err := svc.SubmitOrder(context.Background(), cmd)
	require.NoError(t, err)
	require.Equal(t, "Call before delivery", fx.orders.inserted[0].Notes)
	require.Equal(t, "/img/rice.png", fx.orders.inserted[0].Items[0].Image)
}

func pendingOrder(status domain.OrderStatus) domain.Order {
	return domain.Order{
		ID:          "ord_1",
		OrderNumber: "OD12345678001",
		UserID:      "user-1",
		Customer:    domain.OrderCustomer{FullName: "Nguyen Van A", Email: "a@example.com"},
		Items: []domain.OrderItem{{
			ProductID: "p1", ProductName: "Rice", UnitPrice: decimal.NewFromInt(10), Quantity: 2,
		}},
		Subtotal: decimal.NewFromInt(20),
		Total:    decimal.NewFromInt(25),
		Status:   status,
	}
}

func TestOrderServiceUpdateStatusNotifiesCustomerOnChange(t *testing.T) {
	svc, fx := newOrderFixture(t, StandardTransitionPolicy())
	fx.orders.findFn = func(context.Context, string) (domain.Order, error) {
		return pendingOrder(domain.OrderStatusPending), nil
	}

	result, err := svc.UpdateStatus(context.Background(), UpdateOrderStatusCommand{OrderID: "ord_1", TargetStatus: "confirmed", ActorID: "admin-1"})
	require.NoError(t, err)
	require.True(t, result.Changed)
	require.Equal(t, domain.OrderStatusPending, result.PreviousStatus)
	require.Equal(t, domain.OrderStatusConfirmed, result.Order.Status)
	require.Equal(t, []domain.OrderStatus{domain.OrderStatusConfirmed}, fx.orders.updates)
	require.Equal(t, []domain.OrderStatus{domain.OrderStatusPending}, fx.orders.expected)

	require.Len(t, fx.notifications.inserted, 1)
	n := fx.notifications.inserted[0]
	require.Equal(t, "user-1", n.UserID)
	require.Equal(t, "Order confirmed", n.Title)
	require.Contains(t, n.Message, "OD12345678001")

	require.Len(t, fx.mailer.jobs, 1)
	require.Equal(t, MailKindOrderStatus, fx.mailer.jobs[0].Kind)
	require.Equal(t, []string{"a@example.com"}, fx.mailer.jobs[0].Recipients)
	require.Equal(t, "confirmed", fx.mailer.jobs[0].Order.Status)
}

func TestOrderServiceUpdateStatusCopyPerStatus(t *testing.T) {
	cases := []struct {
		from    domain.OrderStatus
		to      domain.OrderStatus
		title   string
		message string
	}{
		{domain.OrderStatusPending, domain.OrderStatusConfirmed, "Order confirmed", "has been confirmed"},
		{domain.OrderStatusConfirmed, domain.OrderStatusProcessing, "Order in preparation", "is being packed"},
		{domain.OrderStatusProcessing, domain.OrderStatusShipped, "Order shipped", "is on its way"},
		{domain.OrderStatusShipped, domain.OrderStatusDelivered, "Order delivered", "has been delivered"},
		{domain.OrderStatusPending, domain.OrderStatusCancelled, "Order cancelled", "has been cancelled"},
	}

	composer, err := NewMailComposer("NongSan", MoneyFormatter{})
	require.NoError(t, err)

	for _, tc := range cases {
		t.Run(string(tc.to), func(t *testing.T) {
			svc, fx := newOrderFixture(t, StandardTransitionPolicy())
			fx.orders.findFn = func(context.Context, string) (domain.Order, error) {
				return pendingOrder(tc.from), nil
			}

			result, err := svc.UpdateStatus(context.Background(), UpdateOrderStatusCommand{OrderID: "ord_1", TargetStatus: string(tc.to)})
			require.NoError(t, err)
			require.True(t, result.Changed)

			require.Len(t, fx.notifications.inserted, 1)
			require.Equal(t, tc.title, fx.notifications.inserted[0].Title)
			require.Contains(t, fx.notifications.inserted[0].Message, tc.message)
			require.Contains(t, fx.notifications.inserted[0].Message, "OD12345678001")

			require.Len(t, fx.mailer.jobs, 1)
			require.Equal(t, MailKindOrderStatus, fx.mailer.jobs[0].Kind)
			msg, err := composer.Compose(fx.mailer.jobs[0])
			require.NoError(t, err)
			require.Equal(t, "[NongSan] "+tc.title+" - OD12345678001", msg.Subject)
		})
	}
}

func TestCustomerStatusCopyIsDistinctPerStatus(t *testing.T) {
	statuses := []domain.OrderStatus{
		domain.OrderStatusPending,
		domain.OrderStatusConfirmed,
		domain.OrderStatusProcessing,
		domain.OrderStatusShipped,
		domain.OrderStatusDelivered,
		domain.OrderStatusCancelled,
	}

	seen := map[string]domain.OrderStatus{}
	for _, status := range statuses {
		if status == domain.OrderStatusPending {
			continue
		}
		wording := customerStatusCopy("OD1", status)
		require.NotEqual(t, "Order updated", wording.Title, status)
		if prev, ok := seen[wording.Title]; ok {
			t.Fatalf("statuses %s and %s share title %q", prev, status, wording.Title)
		}
		seen[wording.Title] = status
	}

	for _, status := range []domain.OrderStatus{domain.OrderStatusPending, "on_hold"} {
		wording := customerStatusCopy("OD1", status)
		require.Equal(t, "Order updated", wording.Title)
		require.Equal(t, "Your order OD1 is now "+string(status)+".", wording.Message)
	}
}

func TestOrderServiceUpdateStatusConcurrentChangeConflicts(t *testing.T) {
	svc, fx := newOrderFixture(t, StandardTransitionPolicy())
	fx.orders.findFn = func(context.Context, string) (domain.Order, error) {
		return pendingOrder(domain.OrderStatusProcessing), nil
	}
	fx.orders.updateStatusFn = func(_ context.Context, _ string, from, _ domain.OrderStatus, _ time.Time) error {
		require.Equal(t, domain.OrderStatusProcessing, from)
		return stubRepositoryError{conflict: true}
	}

	_, err := svc.UpdateStatus(context.Background(), UpdateOrderStatusCommand{OrderID: "ord_1", TargetStatus: "cancelled"})
	require.ErrorIs(t, err, ErrOrderConflict)
	require.Empty(t, fx.notifications.inserted)
	require.Empty(t, fx.mailer.jobs)
}

func TestOrderServiceAllowedStatusesFollowPolicy(t *testing.T) {
	svc, _ := newOrderFixture(t, StandardTransitionPolicy())
	require.Equal(t, []domain.OrderStatus{domain.OrderStatusDelivered}, svc.AllowedStatuses(domain.OrderStatusShipped))
	require.Empty(t, svc.AllowedStatuses(domain.OrderStatusCancelled))

	permissive, _ := newOrderFixture(t, PermissiveTransitionPolicy())
	require.Len(t, permissive.AllowedStatuses(domain.OrderStatusDelivered), 5)
}

func TestOrderServiceUpdateStatusUnchangedSkipsSideEffects(t *testing.T) {
	svc, fx := newOrderFixture(t, StandardTransitionPolicy())
	fx.orders.findFn = func(context.Context, string) (domain.Order, error) {
		return pendingOrder(domain.OrderStatusConfirmed), nil
	}

	result, err := svc.UpdateStatus(context.Background(), UpdateOrderStatusCommand{OrderID: "ord_1", TargetStatus: "confirmed"})
	require.NoError(t, err)
	require.False(t, result.Changed)
	require.Len(t, fx.orders.updates, 1)
	require.Empty(t, fx.notifications.inserted)
	require.Empty(t, fx.mailer.jobs)
	require.Empty(t, result.SideEffects.Outcomes)
}

func TestOrderServiceUpdateStatusBackToPendingSkipsSideEffects(t *testing.T) {
	svc, fx := newOrderFixture(t, PermissiveTransitionPolicy())
	fx.orders.findFn = func(context.Context, string) (domain.Order, error) {
		return pendingOrder(domain.OrderStatusDelivered), nil
	}

	result, err := svc.UpdateStatus(context.Background(), UpdateOrderStatusCommand{OrderID: "ord_1", TargetStatus: "pending"})
	require.NoError(t, err)
	require.True(t, result.Changed)
	require.Equal(t, domain.OrderStatusPending, result.Order.Status)
	require.Empty(t, fx.notifications.inserted)
	require.Empty(t, fx.mailer.jobs)
}

func TestOrderServiceUpdateStatusPolicyRejection(t *testing.T) {
	svc, fx := newOrderFixture(t, StandardTransitionPolicy())
	fx.orders.findFn = func(context.Context, string) (domain.Order, error) {
		return pendingOrder(domain.OrderStatusDelivered), nil
	}

	_, err := svc.UpdateStatus(context.Background(), UpdateOrderStatusCommand{OrderID: "ord_1", TargetStatus: "pending"})
	require.ErrorIs(t, err, ErrOrderInvalidState)
	require.Empty(t, fx.orders.updates)
	require.Empty(t, fx.notifications.inserted)
}

func TestOrderServiceUpdateStatusInvalidTarget(t *testing.T) {
	svc, fx := newOrderFixture(t, StandardTransitionPolicy())

	_, err := svc.UpdateStatus(context.Background(), UpdateOrderStatusCommand{OrderID: "ord_1", TargetStatus: "refunded"})
	require.ErrorIs(t, err, ErrOrderInvalidInput)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Equal(t, []string{"status"}, vErr.Fields())
	require.Empty(t, fx.orders.updates)
}

func TestOrderServiceUpdateStatusNotFound(t *testing.T) {
	svc, _ := newOrderFixture(t, StandardTransitionPolicy())

	_, err := svc.UpdateStatus(context.Background(), UpdateOrderStatusCommand{OrderID: "missing", TargetStatus: "confirmed"})
	require.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOrderServiceUpdateStatusSideEffectFailuresAreLogged(t *testing.T) {
	svc, fx := newOrderFixture(t, StandardTransitionPolicy())
	fx.orders.findFn = func(context.Context, string) (domain.Order, error) {
		return pendingOrder(domain.OrderStatusProcessing), nil
	}
	fx.mailer.err = errors.New("quota exceeded")
	fx.notifications.insertFn = func(context.Context, domain.Notification) error {
		return stubRepositoryError{unavailable: true}
	}

	result, err := svc.UpdateStatus(context.Background(), UpdateOrderStatusCommand{OrderID: "ord_1", TargetStatus: "shipped"})
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusShipped, result.Order.Status)
	require.Equal(t, 1, result.SideEffects.Count(SideEffectCustomerEmail, SideEffectFailed))
	require.Equal(t, 1, result.SideEffects.Count(SideEffectCustomerNotification, SideEffectFailed))
}

func TestOrderServiceUpdateStatusUpdateFailure(t *testing.T) {
	svc, fx := newOrderFixture(t, StandardTransitionPolicy())
	fx.orders.findFn = func(context.Context, string) (domain.Order, error) {
		return pendingOrder(domain.OrderStatusPending), nil
	}
	fx.orders.updateStatusFn = func(context.Context, string, domain.OrderStatus, domain.OrderStatus, time.Time) error {
		return stubRepositoryError{unavailable: true}
	}

	_, err := svc.UpdateStatus(context.Background(), UpdateOrderStatusCommand{OrderID: "ord_1", TargetStatus: "confirmed"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "repository unavailable")
	require.Empty(t, fx.notifications.inserted)
}

func TestOrderServiceGetOrderHidesOtherUsersOrders(t *testing.T) {
	svc, fx := newOrderFixture(t, StandardTransitionPolicy())
	fx.orders.findFn = func(context.Context, string) (domain.Order, error) {
		return pendingOrder(domain.OrderStatusPending), nil
	}

	order, err := svc.GetOrder(context.Background(), "ord_1", OrderReadOptions{UserID: "user-1"})
	require.NoError(t, err)
	require.Equal(t, "ord_1", order.ID)

	_, err = svc.GetOrder(context.Background(), "ord_1", OrderReadOptions{UserID: "intruder"})
	require.ErrorIs(t, err, ErrOrderNotFound)

	order, err = svc.GetOrder(context.Background(), "ord_1", OrderReadOptions{})
	require.NoError(t, err)
	require.Equal(t, "user-1", order.UserID)
}

func TestOrderServiceListOrdersPassesFilter(t *testing.T) {
	svc, fx := newOrderFixture(t, StandardTransitionPolicy())
	var captured repositories.OrderListFilter
	fx.orders.listFn = func(_ context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
		captured = filter
		return domain.CursorPage[domain.Order]{Items: []domain.Order{pendingOrder(domain.OrderStatusPending)}, NextPageToken: "next"}, nil
	}

	page, err := svc.ListOrders(context.Background(), OrderListFilter{
		UserID:     " user-1 ",
		Status:     []string{"Pending", " shipped"},
		Pagination: Pagination{PageSize: 5},
	})
	require.NoError(t, err)
	require.Equal(t, "next", page.NextPageToken)
	require.Equal(t, "user-1", captured.UserID)
	require.Equal(t, []domain.OrderStatus{domain.OrderStatusPending, domain.OrderStatusShipped}, captured.Status)
	require.Equal(t, 5, captured.Pagination.PageSize)

	_, err = svc.ListOrders(context.Background(), OrderListFilter{Status: []string{"lost"}})
	require.ErrorIs(t, err, ErrOrderInvalidInput)
}
