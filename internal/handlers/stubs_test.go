package handlers

import (
	"context"
	"net/http"

	domain "github.com/baovptse192440/NongSanProject-sub002/internal/domain"
	"github.com/baovptse192440/NongSanProject-sub002/internal/platform/auth"
	"github.com/baovptse192440/NongSanProject-sub002/internal/services"
)

type stubCatalogService struct {
	listFunc func(context.Context, services.ProductListFilter) (domain.CursorPage[services.ProductDetail], error)
	getFunc  func(context.Context, string) (services.ProductDetail, error)
}

func (s *stubCatalogService) ListProducts(ctx context.Context, filter services.ProductListFilter) (domain.CursorPage[services.ProductDetail], error) {
	if s.listFunc == nil {
		return domain.CursorPage[services.ProductDetail]{}, nil
	}
	return s.listFunc(ctx, filter)
}

func (s *stubCatalogService) GetProduct(ctx context.Context, ref string) (services.ProductDetail, error) {
	if s.getFunc == nil {
		return services.ProductDetail{}, services.ErrProductNotFound
	}
	return s.getFunc(ctx, ref)
}

type stubCartService struct {
	getFunc     func(context.Context, string) (services.Cart, error)
	upsertFunc  func(context.Context, services.UpsertCartItemCommand) (services.Cart, error)
	removeFunc  func(context.Context, services.RemoveCartItemCommand) (services.Cart, error)
	archiveFunc func(context.Context, services.ArchiveCartCommand) (services.CartHistory, error)
	historyFunc func(context.Context, services.CartHistoryFilter) (domain.CursorPage[services.CartHistory], error)
}

func (s *stubCartService) GetCart(ctx context.Context, userID string) (services.Cart, error) {
	if s.getFunc == nil {
		return services.Cart{UserID: userID}, nil
	}
	return s.getFunc(ctx, userID)
}

func (s *stubCartService) UpsertItem(ctx context.Context, cmd services.UpsertCartItemCommand) (services.Cart, error) {
	if s.upsertFunc == nil {
		return services.Cart{UserID: cmd.UserID}, nil
	}
	return s.upsertFunc(ctx, cmd)
}

func (s *stubCartService) RemoveItem(ctx context.Context, cmd services.RemoveCartItemCommand) (services.Cart, error) {
	if s.removeFunc == nil {
		return services.Cart{UserID: cmd.UserID}, nil
	}
	return s.removeFunc(ctx, cmd)
}

func (s *stubCartService) ArchiveCart(ctx context.Context, cmd services.ArchiveCartCommand) (services.CartHistory, error) {
	if s.archiveFunc == nil {
		return services.CartHistory{}, services.ErrCartEmpty
	}
	return s.archiveFunc(ctx, cmd)
}

func (s *stubCartService) ListHistory(ctx context.Context, filter services.CartHistoryFilter) (domain.CursorPage[services.CartHistory], error) {
	if s.historyFunc == nil {
		return domain.CursorPage[services.CartHistory]{}, nil
	}
	return s.historyFunc(ctx, filter)
}

type stubOrderService struct {
	submitFunc func(context.Context, services.SubmitOrderCommand) (services.OrderSubmission, error)
	updateFunc func(context.Context, services.UpdateOrderStatusCommand) (services.OrderStatusChange, error)
	getFunc    func(context.Context, string, services.OrderReadOptions) (services.Order, error)
	listFunc   func(context.Context, services.OrderListFilter) (domain.CursorPage[services.Order], error)
	allowed    map[domain.OrderStatus][]domain.OrderStatus
}

func (s *stubOrderService) SubmitOrder(ctx context.Context, cmd services.SubmitOrderCommand) (services.OrderSubmission, error) {
	if s.submitFunc == nil {
		return services.OrderSubmission{}, nil
	}
	return s.submitFunc(ctx, cmd)
}

func (s *stubOrderService) UpdateStatus(ctx context.Context, cmd services.UpdateOrderStatusCommand) (services.OrderStatusChange, error) {
	if s.updateFunc == nil {
		return services.OrderStatusChange{}, nil
	}
	return s.updateFunc(ctx, cmd)
}

func (s *stubOrderService) GetOrder(ctx context.Context, id string, opts services.OrderReadOptions) (services.Order, error) {
	if s.getFunc == nil {
		return services.Order{}, services.ErrOrderNotFound
	}
	return s.getFunc(ctx, id, opts)
}

func (s *stubOrderService) ListOrders(ctx context.Context, filter services.OrderListFilter) (domain.CursorPage[services.Order], error) {
	if s.listFunc == nil {
		return domain.CursorPage[services.Order]{}, nil
	}
	return s.listFunc(ctx, filter)
}

func (s *stubOrderService) AllowedStatuses(from domain.OrderStatus) []domain.OrderStatus {
	return s.allowed[from]
}

type stubNotificationService struct {
	listFunc     func(context.Context, services.NotificationListFilter) (domain.CursorPage[services.Notification], error)
	markReadFunc func(context.Context, services.MarkNotificationReadCommand) (services.Notification, error)
}

func (s *stubNotificationService) List(ctx context.Context, filter services.NotificationListFilter) (domain.CursorPage[services.Notification], error) {
	if s.listFunc == nil {
		return domain.CursorPage[services.Notification]{}, nil
	}
	return s.listFunc(ctx, filter)
}

func (s *stubNotificationService) MarkRead(ctx context.Context, cmd services.MarkNotificationReadCommand) (services.Notification, error) {
	if s.markReadFunc == nil {
		return services.Notification{}, services.ErrNotificationNotFound
	}
	return s.markReadFunc(ctx, cmd)
}

type stubSystemService struct {
	report services.SystemHealthReport
	err    error
}

func (s *stubSystemService) HealthReport(context.Context) (services.SystemHealthReport, error) {
	return s.report, s.err
}

type stubDispatcher struct {
	err  error
	jobs []services.MailJob
}

func (s *stubDispatcher) Dispatch(_ context.Context, job services.MailJob) error {
	s.jobs = append(s.jobs, job)
	return s.err
}

type stubRepoError struct {
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e stubRepoError) Error() string       { return "repository failure" }
func (e stubRepoError) IsNotFound() bool    { return e.notFound }
func (e stubRepoError) IsConflict() bool    { return e.conflict }
func (e stubRepoError) IsUnavailable() bool { return e.unavailable }

func withUser(req *http.Request, uid string) *http.Request {
	return req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: uid, Role: domain.UserRoleUser}))
}

func withAdmin(req *http.Request, uid string) *http.Request {
	return req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: uid, Role: domain.UserRoleAdmin}))
}

var (
	_ services.CatalogService      = (*stubCatalogService)(nil)
	_ services.CartService         = (*stubCartService)(nil)
	_ services.OrderService        = (*stubOrderService)(nil)
	_ services.NotificationService = (*stubNotificationService)(nil)
	_ services.SystemService       = (*stubSystemService)(nil)
	_ services.EmailDispatcher     = (*stubDispatcher)(nil)
)
