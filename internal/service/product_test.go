package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Palak111111/Scrapify-server/internal/domain"
	"github.com/Palak111111/Scrapify-server/internal/repository"
	apperrors "github.com/Palak111111/Scrapify-server/pkg/errors"
)

var testNow = time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

func newTestProductService(repo *mockProductRepository, users *mockUserRepository) *ProductService {
	svc := NewProductService(repo, users, newTestLogger())
	svc.now = func() time.Time { return testNow }
	return svc
}

func widgetInput() *ProductInput {
	return &ProductInput{
		ProductName: "Widget",
		Description: "A useful widget",
		Price:       10,
		Quantity:    5,
		SellerID:    "seller-1",
		Category:    "tools",
		Thumbnail:   "thumb.png",
		Images:      []string{"a.png", "b.png"},
	}
}

// --- CreateProduct ---

func TestCreateProduct_PersistsProductAndOutboxRecord(t *testing.T) {
	repo := new(mockProductRepository)
	svc := newTestProductService(repo, new(mockUserRepository))
	ctx := context.Background()

	var record *domain.OutboxRecord
	repo.On("CreateWithOutbox", ctx, mock.AnythingOfType("*domain.Product"), mock.AnythingOfType("*domain.OutboxRecord")).
		Run(func(args mock.Arguments) {
			p := args.Get(1).(*domain.Product)
			record = args.Get(2).(*domain.OutboxRecord)
			p.ID = "prod-1"
			record.AggregateID = p.ID
		}).
		Return(nil)

	product, err := svc.CreateProduct(ctx, widgetInput())

	require.NoError(t, err)
	assert.Equal(t, "prod-1", product.ID)
	assert.Equal(t, "Widget", product.ProductName)
	assert.Equal(t, []string{"a.png", "b.png"}, product.Images)
	assert.Empty(t, product.Rating)
	assert.Empty(t, product.Review)
	assert.Equal(t, testNow, product.CreatedAt)

	require.NotNil(t, record)
	assert.NotEmpty(t, record.EventID)
	assert.Equal(t, domain.EventProductCreated, record.EventType)
	assert.Equal(t, "prod-1", record.AggregateID)

	var payload domain.ProductCreatedPayload
	require.NoError(t, json.Unmarshal(record.Payload, &payload))
	assert.Equal(t, "Widget", payload.ProductName)
	assert.Equal(t, "seller-1", payload.SellerID)

	repo.AssertExpectations(t)
}

func TestCreateProduct_StoreError(t *testing.T) {
	repo := new(mockProductRepository)
	svc := newTestProductService(repo, new(mockUserRepository))
	ctx := context.Background()

	repo.On("CreateWithOutbox", ctx, mock.Anything, mock.Anything).Return(errors.New("no primary"))

	product, err := svc.CreateProduct(ctx, widgetInput())

	assert.Nil(t, product)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create product")
	assert.Equal(t, apperrors.KindInternal, apperrors.KindOf(err))
}

// --- CreateProducts ---

func TestCreateProducts_Success(t *testing.T) {
	repo := new(mockProductRepository)
	svc := newTestProductService(repo, new(mockUserRepository))
	ctx := context.Background()

	repo.On("CreateMany", ctx, mock.MatchedBy(func(ps []domain.Product) bool {
		return len(ps) == 2 && ps[0].ProductName == "Widget" && ps[1].ProductName == "Gadget"
	})).Return([]string{"p1", "p2"}, nil)

	gadget := widgetInput()
	gadget.ProductName = "Gadget"

	ids, err := svc.CreateProducts(ctx, []ProductInput{*widgetInput(), *gadget})

	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, ids)
	repo.AssertExpectations(t)
}

func TestCreateProducts_Empty(t *testing.T) {
	repo := new(mockProductRepository)
	svc := newTestProductService(repo, new(mockUserRepository))

	_, err := svc.CreateProducts(context.Background(), nil)

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	repo.AssertNotCalled(t, "CreateMany", mock.Anything, mock.Anything)
}

// --- FindProducts ---

func TestFindProducts_ResolvesSellerAndReviewers(t *testing.T) {
	repo := new(mockProductRepository)
	users := new(mockUserRepository)
	svc := newTestProductService(repo, users)
	ctx := context.Background()

	category := "tools"
	filter := repository.ProductFilter{Category: &category}
	repo.On("Find", ctx, filter).Return([]domain.Product{
		{ID: "p1", SellerID: "s1", Review: []domain.Review{{UserID: "u1", UserReview: "great"}}},
		{ID: "p2", SellerID: "s1"},
		{ID: "p3", SellerID: "gone"},
	}, nil)
	users.On("FindByIDs", ctx, []string{"s1", "gone", "u1"}).Return(map[string]domain.User{
		"s1": {ID: "s1", Name: "Seller"},
		"u1": {ID: "u1", Name: "Reviewer"},
	}, nil)

	products, err := svc.FindProducts(ctx, filter)

	require.NoError(t, err)
	require.Len(t, products, 3)
	require.NotNil(t, products[0].Seller)
	assert.Equal(t, "Seller", products[0].Seller.Name)
	require.NotNil(t, products[0].Review[0].User)
	assert.Equal(t, "Reviewer", products[0].Review[0].User.Name)
	assert.Equal(t, "Seller", products[1].Seller.Name)
	assert.Nil(t, products[2].Seller)

	repo.AssertExpectations(t)
	users.AssertExpectations(t)
}

func TestFindProducts_EmptyResultSkipsUserLookup(t *testing.T) {
	repo := new(mockProductRepository)
	users := new(mockUserRepository)
	svc := newTestProductService(repo, users)
	ctx := context.Background()

	repo.On("Find", ctx, repository.ProductFilter{}).Return([]domain.Product{}, nil)

	products, err := svc.FindProducts(ctx, repository.ProductFilter{})

	require.NoError(t, err)
	assert.Empty(t, products)
	users.AssertNotCalled(t, "FindByIDs", mock.Anything, mock.Anything)
}

func TestFindProducts_UserLookupFails(t *testing.T) {
	repo := new(mockProductRepository)
	users := new(mockUserRepository)
	svc := newTestProductService(repo, users)
	ctx := context.Background()

	repo.On("Find", ctx, repository.ProductFilter{}).Return([]domain.Product{{ID: "p1", SellerID: "s1"}}, nil)
	users.On("FindByIDs", ctx, []string{"s1"}).Return(nil, errors.New("timeout"))

	_, err := svc.FindProducts(ctx, repository.ProductFilter{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "resolve users")
}

// --- DeleteProduct ---

func TestDeleteProduct_NotFound(t *testing.T) {
	repo := new(mockProductRepository)
	svc := newTestProductService(repo, new(mockUserRepository))
	ctx := context.Background()

	repo.On("DeleteByID", ctx, "missing").Return(apperrors.NotFound("product", "missing"))

	err := svc.DeleteProduct(ctx, "missing")

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDeleteProductsByName_DeletesAll(t *testing.T) {
	repo := new(mockProductRepository)
	svc := newTestProductService(repo, new(mockUserRepository))
	ctx := context.Background()

	repo.On("GetByName", ctx, "Widget").Return(&domain.Product{ID: "p1", ProductName: "Widget"}, nil)
	repo.On("DeleteByName", ctx, "Widget").Return(int64(3), nil)

	deleted, err := svc.DeleteProductsByName(ctx, "Widget")

	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
	repo.AssertExpectations(t)
}

func TestDeleteProductsByName_NotFound(t *testing.T) {
	repo := new(mockProductRepository)
	svc := newTestProductService(repo, new(mockUserRepository))
	ctx := context.Background()

	repo.On("GetByName", ctx, "Ghost").Return(nil, apperrors.NotFoundBy("product", "productName", "Ghost"))

	_, err := svc.DeleteProductsByName(ctx, "Ghost")

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	repo.AssertNotCalled(t, "DeleteByName", mock.Anything, mock.Anything)
}

// --- UpdateProduct ---

func storedProduct() *domain.Product {
	return &domain.Product{
		ID:            "p1",
		ProductName:   "Widget",
		SellerID:      "seller-1",
		Rating:        []domain.Rating{{UserID: "u1", Rating: 4}, {UserID: "u2", Rating: 5}},
		RatingCount:   2,
		AverageRating: 4.5,
		Review:        []domain.Review{{UserID: "u1", UserReview: "good"}, {UserID: "u2", UserReview: "great"}},
		Version:       7,
	}
}

func TestUpdateProduct_ReplacesFieldsAndReviews(t *testing.T) {
	repo := new(mockProductRepository)
	svc := newTestProductService(repo, new(mockUserRepository))
	ctx := context.Background()

	repo.On("GetByID", ctx, "p1").Return(storedProduct(), nil)
	repo.On("Update", ctx, mock.AnythingOfType("*domain.Product")).Return(nil)

	input := &UpdateProductInput{ID: "p1", ProductInput: *widgetInput()}
	input.ProductName = "Widget Pro"
	input.Price = 12
	input.Review = &InlineReview{UserID: "u3", UserReview: "new", Date: testNow}

	product, err := svc.UpdateProduct(ctx, input)

	require.NoError(t, err)
	assert.Equal(t, "Widget Pro", product.ProductName)
	assert.Equal(t, 12.0, product.Price)
	assert.Equal(t, []domain.Review{{UserID: "u3", UserReview: "new", Date: testNow}}, product.Review)
	assert.Len(t, product.Rating, 2)
	assert.InDelta(t, 4.5, product.AverageRating, 1e-9)
	repo.AssertExpectations(t)
}

func TestUpdateProduct_WithoutReviewKeepsReviews(t *testing.T) {
	repo := new(mockProductRepository)
	svc := newTestProductService(repo, new(mockUserRepository))
	ctx := context.Background()

	repo.On("GetByID", ctx, "p1").Return(storedProduct(), nil)
	repo.On("Update", ctx, mock.AnythingOfType("*domain.Product")).Return(nil)

	product, err := svc.UpdateProduct(ctx, &UpdateProductInput{ID: "p1", ProductInput: *widgetInput()})

	require.NoError(t, err)
	assert.Len(t, product.Review, 2)
}

func TestUpdateProduct_NotFound(t *testing.T) {
	repo := new(mockProductRepository)
	svc := newTestProductService(repo, new(mockUserRepository))
	ctx := context.Background()

	repo.On("GetByID", ctx, "missing").Return(nil, apperrors.NotFound("product", "missing"))

	_, err := svc.UpdateProduct(ctx, &UpdateProductInput{ID: "missing", ProductInput: *widgetInput()})

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUpdateProduct_StaleVersion(t *testing.T) {
	repo := new(mockProductRepository)
	svc := newTestProductService(repo, new(mockUserRepository))
	ctx := context.Background()

	repo.On("GetByID", ctx, "p1").Return(storedProduct(), nil)

	_, err := svc.UpdateProduct(ctx, &UpdateProductInput{ID: "p1", ProductInput: *widgetInput(), Version: int64Ptr(6)})

	assert.ErrorIs(t, err, apperrors.ErrConflict)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUpdateProduct_RetriesOnVersionConflict(t *testing.T) {
	repo := new(mockProductRepository)
	svc := newTestProductService(repo, new(mockUserRepository))
	ctx := context.Background()

	repo.On("GetByID", ctx, "p1").Return(storedProduct(), nil).Twice()
	repo.On("Update", ctx, mock.Anything).Return(apperrors.Conflict("product was modified concurrently")).Once()
	repo.On("Update", ctx, mock.Anything).Return(nil).Once()

	_, err := svc.UpdateProduct(ctx, &UpdateProductInput{ID: "p1", ProductInput: *widgetInput()})

	require.NoError(t, err)
	repo.AssertNumberOfCalls(t, "GetByID", 2)
	repo.AssertNumberOfCalls(t, "Update", 2)
}
