package unit

import (
	"app/internal/domain/model"
	repo "app/internal/repository"
	"app/internal/usecase"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// =====================
// TxManager / TxRepos mocks
// =====================

// AdminTxManagerMock は WithinTx の中で渡す repos を固定して unit テストを回す
type AdminTxManagerMock struct {
	mock.Mock
	Repos repo.TxRepos
}

func (m *AdminTxManagerMock) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	// 呼ばれた事実だけ記録（ctxの具体値は問わない）
	m.Called(ctx)
	return fn(m.Repos)
}

type AdminTxReposMock struct {
	orders     repo.OrderRepository
	orderItems repo.OrderItemRepository

	// AdminOrderUsecase では使わないが TxRepos interface を満たすために保持
	products  repo.ProductRepository
	auditLogs repo.AuditLogRepository
}

func (r *AdminTxReposMock) Orders() repo.OrderRepository         { return r.orders }
func (r *AdminTxReposMock) OrderItems() repo.OrderItemRepository { return r.orderItems }
func (r *AdminTxReposMock) Products() repo.ProductRepository     { return r.products }
func (r *AdminTxReposMock) AuditLogs() repo.AuditLogRepository   { return r.auditLogs }

// =====================
// Repository mocks (Admin向け：衝突回避)
// =====================

type AdminOrderRepoMock struct{ mock.Mock }

func (m *AdminOrderRepoMock) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *AdminOrderRepoMock) ListByClientID(ctx context.Context, clientID int64, page int, limit int) ([]model.Order, int64, error) {
	panic("not used in AdminOrderUsecase tests")
}

func (m *AdminOrderRepoMock) Create(ctx context.Context, order model.Order) (int64, error) {
	panic("not used in AdminOrderUsecase tests")
}

func (m *AdminOrderRepoMock) UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	args := m.Called(ctx, orderID, status)
	return args.Error(0)
}

func (m *AdminOrderRepoMock) UpdatePaymentStatus(ctx context.Context, orderID int64, status model.PaymentStatus) error {
	args := m.Called(ctx, orderID, status)
	return args.Error(0)
}

func (m *AdminOrderRepoMock) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (model.Order, bool, error) {
	panic("not used in AdminOrderUsecase tests")
}

func (m *AdminOrderRepoMock) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	args := m.Called(ctx, f)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Get(1).(int64), args.Error(2)
}

type AdminOrderItemRepoMock struct{ mock.Mock }

func (m *AdminOrderItemRepoMock) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	panic("not used in AdminOrderUsecase tests")
}

func (m *AdminOrderItemRepoMock) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	args := m.Called(ctx, orderID)
	items, _ := args.Get(0).([]model.OrderItem)
	return items, args.Error(1)
}

type AdminAuditRepoMock struct{ mock.Mock }

func (m *AdminAuditRepoMock) Create(ctx context.Context, log model.AuditLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *AdminAuditRepoMock) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	args := m.Called(ctx, filter)
	logs, _ := args.Get(0).([]model.AuditLog)
	return logs, args.Error(1)
}

// =====================
// Helper: error contains（HTTPErrorの実装詳細に依存しない）
// =====================

func assertErrContains(t *testing.T, err error, wantSubstr string) {
	t.Helper()
	if assert.Error(t, err) {
		assert.True(t, strings.Contains(err.Error(), wantSubstr), "err=%q want contains %q", err.Error(), wantSubstr)
	}
}

var adminTestClock = fixedClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}

// =====================
// List tests
// =====================

func TestAdminOrderUsecase_List_InvalidPage(t *testing.T) {
	tx := new(AdminTxManagerMock)
	uc := usecase.NewAdminOrderUsecase(tx, adminTestClock)

	outs, err := uc.List(context.Background(), repo.AdminOrderListFilter{Page: 0, Limit: 20})
	assert.Equal(t, 0, len(outs))
	assertErrContains(t, err, "invalid page")
}

func TestAdminOrderUsecase_List_InvalidLimit(t *testing.T) {
	tx := new(AdminTxManagerMock)
	uc := usecase.NewAdminOrderUsecase(tx, adminTestClock)

	outs, err := uc.List(context.Background(), repo.AdminOrderListFilter{Page: 1, Limit: 0})
	assert.Equal(t, 0, len(outs))
	assertErrContains(t, err, "invalid limit")
}

func TestAdminOrderUsecase_List_Success_CallsItemsPerOrder(t *testing.T) {
	ctx := context.Background()

	tx := new(AdminTxManagerMock)
	ordersRepo := new(AdminOrderRepoMock)
	itemsRepo := new(AdminOrderItemRepoMock)

	tx.Repos = &AdminTxReposMock{
		orders:     ordersRepo,
		orderItems: itemsRepo,
	}
	tx.On("WithinTx", mock.Anything).Return(nil)

	f := repo.AdminOrderListFilter{Page: 1, Limit: 20}

	orders := []model.Order{
		{ID: 10, Status: model.OrderStatusCreated},
		{ID: 11, Status: model.OrderStatusShipped},
	}

	ordersRepo.On("ListAdmin", mock.Anything, f).Return(orders, int64(2), nil)
	itemsRepo.On("ListByOrderID", mock.Anything, int64(10)).Return([]model.OrderItem{}, nil)
	itemsRepo.On("ListByOrderID", mock.Anything, int64(11)).Return([]model.OrderItem{}, nil)

	uc := usecase.NewAdminOrderUsecase(tx, adminTestClock)

	outs, err := uc.List(ctx, f)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(outs))

	tx.AssertExpectations(t)
	ordersRepo.AssertExpectations(t)
	itemsRepo.AssertExpectations(t)
}

// =====================
// UpdateStatus tests
// =====================

func TestAdminOrderUsecase_UpdateStatus_UnauthorizedActor(t *testing.T) {
	tx := new(AdminTxManagerMock)
	uc := usecase.NewAdminOrderUsecase(tx, adminTestClock)

	err := uc.UpdateStatus(context.Background(), 0, 1, usecase.AdminUpdateOrderStatusInput{Status: "SHIPPED"})
	assertErrContains(t, err, "unauthorized")
}

func TestAdminOrderUsecase_UpdateStatus_InvalidOrderID(t *testing.T) {
	tx := new(AdminTxManagerMock)
	uc := usecase.NewAdminOrderUsecase(tx, adminTestClock)

	err := uc.UpdateStatus(context.Background(), 1, 0, usecase.AdminUpdateOrderStatusInput{Status: "SHIPPED"})
	assertErrContains(t, err, "invalid id")
}

func TestAdminOrderUsecase_UpdateStatus_InvalidStatus(t *testing.T) {
	tx := new(AdminTxManagerMock)
	uc := usecase.NewAdminOrderUsecase(tx, adminTestClock)

	err := uc.UpdateStatus(context.Background(), 1, 1, usecase.AdminUpdateOrderStatusInput{Status: "XXX"})
	assertErrContains(t, err, "invalid status")
}

func TestAdminOrderUsecase_UpdateStatus_NotFound(t *testing.T) {
	ctx := context.Background()

	tx := new(AdminTxManagerMock)
	ordersRepo := new(AdminOrderRepoMock)

	tx.Repos = &AdminTxReposMock{orders: ordersRepo}
	tx.On("WithinTx", mock.Anything).Return(nil)

	orderID := int64(99)

	ordersRepo.On("FindByID", mock.Anything, orderID).Return(model.Order{}, repo.ErrNotFound)

	uc := usecase.NewAdminOrderUsecase(tx, adminTestClock)

	err := uc.UpdateStatus(ctx, 1, orderID, usecase.AdminUpdateOrderStatusInput{Status: "SHIPPED"})
	assertErrContains(t, err, "not found")

	ordersRepo.AssertExpectations(t)
}

func TestAdminOrderUsecase_UpdateStatus_SameStatus_NoOp(t *testing.T) {
	ctx := context.Background()

	tx := new(AdminTxManagerMock)
	ordersRepo := new(AdminOrderRepoMock)
	audit := new(AdminAuditRepoMock)

	tx.Repos = &AdminTxReposMock{orders: ordersRepo, auditLogs: audit}
	tx.On("WithinTx", mock.Anything).Return(nil)

	orderID := int64(1)

	ordersRepo.On("FindByID", mock.Anything, orderID).Return(model.Order{
		ID:     orderID,
		Status: model.OrderStatusShipped,
	}, nil)

	uc := usecase.NewAdminOrderUsecase(tx, adminTestClock)

	err := uc.UpdateStatus(ctx, 1, orderID, usecase.AdminUpdateOrderStatusInput{Status: "SHIPPED"})
	assert.NoError(t, err)

	ordersRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	audit.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAdminOrderUsecase_UpdateStatus_CannotChangeCancelled(t *testing.T) {
	ctx := context.Background()

	tx := new(AdminTxManagerMock)
	ordersRepo := new(AdminOrderRepoMock)

	tx.Repos = &AdminTxReposMock{orders: ordersRepo}
	tx.On("WithinTx", mock.Anything).Return(nil)

	ordersRepo.On("FindByID", mock.Anything, int64(1)).Return(model.Order{
		ID:     1,
		Status: model.OrderStatusCancelled,
	}, nil)

	uc := usecase.NewAdminOrderUsecase(tx, adminTestClock)

	err := uc.UpdateStatus(ctx, 1, 1, usecase.AdminUpdateOrderStatusInput{Status: "SHIPPED"})
	assertErrContains(t, err, "cannot change cancelled order")
}

func TestAdminOrderUsecase_UpdateStatus_CannotChangeDelivered(t *testing.T) {
	ctx := context.Background()

	tx := new(AdminTxManagerMock)
	ordersRepo := new(AdminOrderRepoMock)

	tx.Repos = &AdminTxReposMock{orders: ordersRepo}
	tx.On("WithinTx", mock.Anything).Return(nil)

	ordersRepo.On("FindByID", mock.Anything, int64(1)).Return(model.Order{
		ID:     1,
		Status: model.OrderStatusDelivered,
	}, nil)

	uc := usecase.NewAdminOrderUsecase(tx, adminTestClock)

	err := uc.UpdateStatus(ctx, 1, 1, usecase.AdminUpdateOrderStatusInput{Status: "SHIPPED"})
	assertErrContains(t, err, "cannot change delivered order")
}

func TestAdminOrderUsecase_UpdateStatus_Success_WritesAuditLog(t *testing.T) {
	ctx := context.Background()

	tx := new(AdminTxManagerMock)
	ordersRepo := new(AdminOrderRepoMock)
	audit := new(AdminAuditRepoMock)

	tx.Repos = &AdminTxReposMock{orders: ordersRepo, auditLogs: audit}
	tx.On("WithinTx", mock.Anything).Return(nil)

	adminID := int64(9)
	orderID := int64(1)

	ordersRepo.On("FindByID", mock.Anything, orderID).Return(model.Order{
		ID:     orderID,
		Status: model.OrderStatusProcessing,
	}, nil)
	ordersRepo.On("UpdateStatus", mock.Anything, orderID, model.OrderStatusShipped).Return(nil)

	audit.On("Create", mock.Anything, mock.MatchedBy(func(l model.AuditLog) bool {
		return l.ActorUserID == adminID &&
			l.Action == model.AuditActionUpdateOrderStatus &&
			l.ResourceID == orderID &&
			strings.Contains(l.BeforeJSON, "PROCESSING") &&
			strings.Contains(l.AfterJSON, "SHIPPED")
	})).Return(nil)

	uc := usecase.NewAdminOrderUsecase(tx, adminTestClock)

	err := uc.UpdateStatus(ctx, adminID, orderID, usecase.AdminUpdateOrderStatusInput{Status: "SHIPPED"})
	assert.NoError(t, err)

	ordersRepo.AssertExpectations(t)
	audit.AssertExpectations(t)
}

// =====================
// UpdatePaymentStatus tests
// =====================

func TestAdminOrderUsecase_UpdatePaymentStatus_InvalidStatus(t *testing.T) {
	tx := new(AdminTxManagerMock)
	uc := usecase.NewAdminOrderUsecase(tx, adminTestClock)

	err := uc.UpdatePaymentStatus(context.Background(), 1, 1, usecase.AdminUpdatePaymentStatusInput{PaymentStatus: "XXX"})
	assertErrContains(t, err, "invalid payment status")
}

func TestAdminOrderUsecase_UpdatePaymentStatus_Success_WritesAuditLog(t *testing.T) {
	ctx := context.Background()

	tx := new(AdminTxManagerMock)
	ordersRepo := new(AdminOrderRepoMock)
	audit := new(AdminAuditRepoMock)

	tx.Repos = &AdminTxReposMock{orders: ordersRepo, auditLogs: audit}
	tx.On("WithinTx", mock.Anything).Return(nil)

	adminID := int64(9)
	orderID := int64(1)

	ordersRepo.On("FindByID", mock.Anything, orderID).Return(model.Order{
		ID:            orderID,
		PaymentStatus: model.PaymentStatusAccepted,
	}, nil)
	ordersRepo.On("UpdatePaymentStatus", mock.Anything, orderID, model.PaymentStatusRefunded).Return(nil)

	audit.On("Create", mock.Anything, mock.MatchedBy(func(l model.AuditLog) bool {
		return l.Action == model.AuditActionUpdatePaymentStatus &&
			strings.Contains(l.BeforeJSON, "ACCEPTED") &&
			strings.Contains(l.AfterJSON, "REFUNDED")
	})).Return(nil)

	uc := usecase.NewAdminOrderUsecase(tx, adminTestClock)

	err := uc.UpdatePaymentStatus(ctx, adminID, orderID, usecase.AdminUpdatePaymentStatusInput{PaymentStatus: "REFUNDED"})
	assert.NoError(t, err)

	ordersRepo.AssertExpectations(t)
	audit.AssertExpectations(t)
}
