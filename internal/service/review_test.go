package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Palak111111/Scrapify-server/internal/domain"
	apperrors "github.com/Palak111111/Scrapify-server/pkg/errors"
)

func newTestReviewService(repo *mockProductRepository) *ReviewService {
	return NewReviewService(repo, newTestLogger())
}

// --- RateProduct ---

func TestRateProduct_AppendsAndRecomputes(t *testing.T) {
	repo := new(mockProductRepository)
	svc := newTestReviewService(repo)
	ctx := context.Background()

	stored := &domain.Product{ID: "p1", Rating: []domain.Rating{{UserID: "a", Rating: 4}}, RatingCount: 1, AverageRating: 4}
	repo.On("GetByID", ctx, "p1").Return(stored, nil)
	repo.On("Update", ctx, mock.MatchedBy(func(p *domain.Product) bool {
		return p.RatingCount == 2 && p.AverageRating == 4.5
	})).Return(nil)

	product, err := svc.RateProduct(ctx, &RateInput{ProductID: "p1", UserID: "b", Rating: 5})

	require.NoError(t, err)
	assert.Equal(t, 2, product.RatingCount)
	assert.InDelta(t, 4.5, product.AverageRating, 1e-9)
	repo.AssertExpectations(t)
}

func TestRateProduct_AlreadyRated(t *testing.T) {
	repo := new(mockProductRepository)
	svc := newTestReviewService(repo)
	ctx := context.Background()

	stored := &domain.Product{ID: "p1", Rating: []domain.Rating{{UserID: "a", Rating: 4}, {UserID: "b", Rating: 5}}, RatingCount: 2, AverageRating: 4.5}
	repo.On("GetByID", ctx, "p1").Return(stored, nil)

	product, err := svc.RateProduct(ctx, &RateInput{ProductID: "p1", UserID: "a", Rating: 1})

	assert.Nil(t, product)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.InDelta(t, 4.5, stored.AverageRating, 1e-9)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestRateProduct_NotFound(t *testing.T) {
	repo := new(mockProductRepository)
	svc := newTestReviewService(repo)
	ctx := context.Background()

	repo.On("GetByID", ctx, "p1").Return(nil, apperrors.NotFound("product", "p1"))

	_, err := svc.RateProduct(ctx, &RateInput{ProductID: "p1", UserID: "a", Rating: 3})

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRateProduct_PersistentContention(t *testing.T) {
	repo := new(mockProductRepository)
	svc := newTestReviewService(repo)
	ctx := context.Background()

	for i := 0; i < maxVersionAttempts; i++ {
		repo.On("GetByID", ctx, "p1").Return(&domain.Product{ID: "p1"}, nil).Once()
	}
	repo.On("Update", ctx, mock.Anything).Return(apperrors.Conflict("product was modified concurrently"))

	_, err := svc.RateProduct(ctx, &RateInput{ProductID: "p1", UserID: "a", Rating: 3})

	assert.ErrorIs(t, err, apperrors.ErrConflict)
	repo.AssertNumberOfCalls(t, "Update", maxVersionAttempts)
}

func TestRateProduct_StoreErrorNotRetried(t *testing.T) {
	repo := new(mockProductRepository)
	svc := newTestReviewService(repo)
	ctx := context.Background()

	repo.On("GetByID", ctx, "p1").Return(&domain.Product{ID: "p1"}, nil)
	repo.On("Update", ctx, mock.Anything).Return(errors.New("socket closed"))

	_, err := svc.RateProduct(ctx, &RateInput{ProductID: "p1", UserID: "a", Rating: 3})

	require.Error(t, err)
	assert.Equal(t, apperrors.KindInternal, apperrors.KindOf(err))
	repo.AssertNumberOfCalls(t, "Update", 1)
}

func TestRateProduct_MissingIDs(t *testing.T) {
	repo := new(mockProductRepository)
	svc := newTestReviewService(repo)

	_, err := svc.RateProduct(context.Background(), &RateInput{ProductID: "p1"})

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

// --- ReviewProduct ---

func TestReviewProduct_Appends(t *testing.T) {
	repo := new(mockProductRepository)
	svc := newTestReviewService(repo)
	ctx := context.Background()

	repo.On("GetByID", ctx, "p1").Return(&domain.Product{ID: "p1", Review: []domain.Review{}}, nil)
	repo.On("Update", ctx, mock.AnythingOfType("*domain.Product")).Return(nil)

	product, err := svc.ReviewProduct(ctx, &ReviewInput{ProductID: "p1", UserID: "a", UserReview: "solid", Date: testNow})

	require.NoError(t, err)
	require.Len(t, product.Review, 1)
	assert.Equal(t, domain.Review{UserID: "a", UserReview: "solid", Date: testNow}, product.Review[0])
}

func TestReviewProduct_DefaultsDate(t *testing.T) {
	repo := new(mockProductRepository)
	svc := newTestReviewService(repo)
	ctx := context.Background()

	repo.On("GetByID", ctx, "p1").Return(&domain.Product{ID: "p1"}, nil)
	repo.On("Update", ctx, mock.Anything).Return(nil)

	product, err := svc.ReviewProduct(ctx, &ReviewInput{ProductID: "p1", UserID: "a", UserReview: "solid"})

	require.NoError(t, err)
	assert.False(t, product.Review[0].Date.IsZero())
}

func TestReviewProduct_AlreadyReviewed(t *testing.T) {
	repo := new(mockProductRepository)
	svc := newTestReviewService(repo)
	ctx := context.Background()

	repo.On("GetByID", ctx, "p1").Return(&domain.Product{ID: "p1", Review: []domain.Review{{UserID: "a", UserReview: "first"}}}, nil)

	_, err := svc.ReviewProduct(ctx, &ReviewInput{ProductID: "p1", UserID: "a", UserReview: "second"})

	assert.ErrorIs(t, err, apperrors.ErrConflict)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}
