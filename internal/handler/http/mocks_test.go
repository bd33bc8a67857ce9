package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/mock"

	"github.com/Palak111111/Scrapify-server/internal/domain"
	"github.com/Palak111111/Scrapify-server/internal/repository"
	"github.com/Palak111111/Scrapify-server/internal/service"
	"github.com/Palak111111/Scrapify-server/pkg/health"
	"github.com/Palak111111/Scrapify-server/pkg/middleware"
)

// =============================================================================
// Mock ProductRepository
// =============================================================================

type mockProductRepo struct {
	mock.Mock
}

func (m *mockProductRepo) CreateWithOutbox(ctx context.Context, product *domain.Product, record *domain.OutboxRecord) error {
	args := m.Called(ctx, product, record)
	if args.Error(0) == nil && product.ID == "" {
		product.ID = testProductID
	}
	return args.Error(0)
}

func (m *mockProductRepo) CreateMany(ctx context.Context, products []domain.Product) ([]string, error) {
	args := m.Called(ctx, products)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockProductRepo) Find(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *mockProductRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepo) GetByName(ctx context.Context, name string) (*domain.Product, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepo) Update(ctx context.Context, product *domain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *mockProductRepo) DeleteByID(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockProductRepo) DeleteByName(ctx context.Context, name string) (int64, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(int64), args.Error(1)
}

// =============================================================================
// Mock UserRepository
// =============================================================================

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) FindByIDs(ctx context.Context, ids []string) (map[string]domain.User, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.User), args.Error(1)
}

func (m *mockUserRepo) StreamIDs(ctx context.Context, batchSize int32, fn func(ids []string) error) error {
	args := m.Called(ctx, batchSize, fn)
	return args.Error(0)
}

func (m *mockUserRepo) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// =============================================================================
// Test Helpers
// =============================================================================

const (
	testProductID = "65f1c2a4e13b2c0a9c8d7e6f"
	testSellerID  = "65f1c2a4e13b2c0a9c8d7e70"
	testUserID    = "65f1c2a4e13b2c0a9c8d7e71"
)

type testEnv struct {
	router   http.Handler
	products *mockProductRepo
	users    *mockUserRepo
	registry *prometheus.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
	products := new(mockProductRepo)
	users := new(mockUserRepo)
	registry := prometheus.NewRegistry()

	router := NewRouter(
		service.NewProductService(products, users, logger),
		service.NewReviewService(products, logger),
		health.NewHandler(),
		logger,
		RouterConfig{
			ServiceName:  "catalog-test",
			MaxBodyBytes: 1 << 20,
			CORS:         middleware.DefaultCORSConfig(),
			Gatherer:     registry,
			HTTPMetrics:  middleware.NewHTTPMetrics(registry, "catalog-test"),
		},
	)

	t.Cleanup(func() {
		products.AssertExpectations(t)
		users.AssertExpectations(t)
	})

	return &testEnv{router: router, products: products, users: users, registry: registry}
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func storedProduct() *domain.Product {
	return &domain.Product{
		ID:          testProductID,
		ProductName: "Widget",
		Price:       10,
		SellerID:    testSellerID,
		Category:    "tools",
		Rating:      []domain.Rating{},
		Review:      []domain.Review{},
		Version:     1,
	}
}
