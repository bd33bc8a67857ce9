package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Palak111111/Scrapify-server/internal/domain"
	"github.com/Palak111111/Scrapify-server/internal/repository"
	apperrors "github.com/Palak111111/Scrapify-server/pkg/errors"
)

// ReviewService records per-user ratings and reviews on products.
type ReviewService struct {
	repo   repository.ProductRepository
	logger *slog.Logger
}

// NewReviewService creates a new review service.
func NewReviewService(repo repository.ProductRepository, logger *slog.Logger) *ReviewService {
	return &ReviewService{repo: repo, logger: logger}
}

// RateInput holds the parameters for rating a product.
type RateInput struct {
	ProductID string
	UserID    string
	Rating    float64
}

// ReviewInput holds the parameters for reviewing a product.
type ReviewInput struct {
	ProductID  string
	UserID     string
	UserReview string
	Date       time.Time
}

// RateProduct adds the user's rating and recomputes the product's rating
// aggregates. A second rating by the same user is a conflict.
func (s *ReviewService) RateProduct(ctx context.Context, input *RateInput) (*domain.Product, error) {
	if input.ProductID == "" || input.UserID == "" {
		return nil, apperrors.InvalidInput("productId and userId are required")
	}

	product, err := mutateProduct(ctx, s.repo, s.logger, input.ProductID, func(p *domain.Product) error {
		return p.ApplyRating(input.UserID, input.Rating)
	})
	if err != nil {
		return nil, fmt.Errorf("rate product: %w", err)
	}

	s.logger.InfoContext(ctx, "product rated",
		slog.String("product_id", product.ID),
		slog.Int("rating_count", product.RatingCount),
		slog.Float64("average_rating", product.AverageRating),
	)
	return product, nil
}

// ReviewProduct adds the user's review. A second review by the same user is
// a conflict.
func (s *ReviewService) ReviewProduct(ctx context.Context, input *ReviewInput) (*domain.Product, error) {
	if input.ProductID == "" || input.UserID == "" {
		return nil, apperrors.InvalidInput("productId and userId are required")
	}

	date := input.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}

	product, err := mutateProduct(ctx, s.repo, s.logger, input.ProductID, func(p *domain.Product) error {
		return p.ApplyReview(input.UserID, input.UserReview, date)
	})
	if err != nil {
		return nil, fmt.Errorf("review product: %w", err)
	}

	s.logger.InfoContext(ctx, "product reviewed",
		slog.String("product_id", product.ID),
		slog.Int("review_count", len(product.Review)),
	)
	return product, nil
}
