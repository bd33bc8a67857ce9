package service

import (
	"context"
	"io"
	"log/slog"

	"github.com/stretchr/testify/mock"

	"github.com/Palak111111/Scrapify-server/internal/domain"
	"github.com/Palak111111/Scrapify-server/internal/repository"
)

// --- Mock Product Repository ---

type mockProductRepository struct {
	mock.Mock
}

func (m *mockProductRepository) CreateWithOutbox(ctx context.Context, product *domain.Product, record *domain.OutboxRecord) error {
	args := m.Called(ctx, product, record)
	return args.Error(0)
}

func (m *mockProductRepository) CreateMany(ctx context.Context, products []domain.Product) ([]string, error) {
	args := m.Called(ctx, products)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockProductRepository) Find(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *mockProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) GetByName(ctx context.Context, name string) (*domain.Product, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *mockProductRepository) DeleteByID(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockProductRepository) DeleteByName(ctx context.Context, name string) (int64, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(int64), args.Error(1)
}

// --- Mock User Repository ---

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) FindByIDs(ctx context.Context, ids []string) (map[string]domain.User, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.User), args.Error(1)
}

func (m *mockUserRepository) StreamIDs(ctx context.Context, batchSize int32, fn func(ids []string) error) error {
	args := m.Called(ctx, batchSize, fn)
	if stream, ok := args.Get(0).(func(context.Context, int32, func([]string) error) error); ok {
		return stream(ctx, batchSize, fn)
	}
	return args.Error(0)
}

func (m *mockUserRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// --- Mock Notification Repository ---

type mockNotificationRepository struct {
	mock.Mock
}

func (m *mockNotificationRepository) CreateBatch(ctx context.Context, notifications []domain.Notification) (int64, error) {
	args := m.Called(ctx, notifications)
	if count, ok := args.Get(0).(func(context.Context, []domain.Notification) int64); ok {
		return count(ctx, notifications), args.Error(1)
	}
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockNotificationRepository) CountByEvent(ctx context.Context, eventID string) (int64, error) {
	args := m.Called(ctx, eventID)
	return args.Get(0).(int64), args.Error(1)
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func int64Ptr(v int64) *int64 {
	return &v
}
