package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Palak111111/Scrapify-server/internal/domain"
	"github.com/Palak111111/Scrapify-server/internal/repository"
	apperrors "github.com/Palak111111/Scrapify-server/pkg/errors"
)

// Attempts made by read-modify-write operations before giving up on a
// contended product.
const maxVersionAttempts = 3

// ProductService implements the business logic for product operations.
type ProductService struct {
	repo   repository.ProductRepository
	users  repository.UserRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewProductService creates a new product service.
func NewProductService(repo repository.ProductRepository, users repository.UserRepository, logger *slog.Logger) *ProductService {
	return &ProductService{
		repo:   repo,
		users:  users,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ProductInput holds the owner-supplied fields of a product.
type ProductInput struct {
	ProductName        string
	Description        string
	Price              float64
	Quantity           int
	Weight             float64
	SellerID           string
	Category           string
	Brand              string
	ShippingCost       float64
	Commission         float64
	DiscountPercentage float64
	Thumbnail          string
	Images             []string
}

// InlineReview is the single review carried by a full product update.
type InlineReview struct {
	UserID     string
	UserReview string
	Date       time.Time
}

// UpdateProductInput holds the parameters for a full product update.
type UpdateProductInput struct {
	ID string
	ProductInput
	Review *InlineReview
	// Version, when set, must equal the stored version.
	Version *int64
}

func (in *ProductInput) newProduct(now time.Time) domain.Product {
	p := domain.Product{
		Rating:    []domain.Rating{},
		Review:    []domain.Review{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	in.applyTo(&p)
	return p
}

func (in *ProductInput) applyTo(p *domain.Product) {
	p.ProductName = in.ProductName
	p.Description = in.Description
	p.Price = in.Price
	p.Quantity = in.Quantity
	p.Weight = in.Weight
	p.SellerID = in.SellerID
	p.Category = in.Category
	p.Brand = in.Brand
	p.ShippingCost = in.ShippingCost
	p.Commission = in.Commission
	p.DiscountPercentage = in.DiscountPercentage
	p.Thumbnail = in.Thumbnail
	p.Images = in.Images
	if p.Images == nil {
		p.Images = []string{}
	}
}

// CreateProduct persists a new product together with the product.created
// outbox record that drives notification fan-out.
func (s *ProductService) CreateProduct(ctx context.Context, input *ProductInput) (*domain.Product, error) {
	now := s.now()
	product := input.newProduct(now)

	record := &domain.OutboxRecord{
		EventID:   uuid.New().String(),
		EventType: domain.EventProductCreated,
		CreatedAt: now,
	}

	// The product id travels as the event's aggregate id.
	payload := domain.ProductCreatedPayload{ProductName: product.ProductName, SellerID: product.SellerID}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", record.EventType, err)
	}
	record.Payload = raw

	if err := s.repo.CreateWithOutbox(ctx, &product, record); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", product.ID),
		slog.String("event_id", record.EventID),
	)
	return &product, nil
}

// CreateProducts inserts all products or none. No notifications are sent.
func (s *ProductService) CreateProducts(ctx context.Context, inputs []ProductInput) ([]string, error) {
	if len(inputs) == 0 {
		return nil, apperrors.InvalidInput("at least one product is required")
	}

	now := s.now()
	products := make([]domain.Product, 0, len(inputs))
	for i := range inputs {
		products = append(products, inputs[i].newProduct(now))
	}

	ids, err := s.repo.CreateMany(ctx, products)
	if err != nil {
		return nil, fmt.Errorf("create products: %w", err)
	}

	s.logger.InfoContext(ctx, "products created", slog.Int("count", len(ids)))
	return ids, nil
}

// FindProducts returns the products matching filter with seller and
// reviewer references resolved.
func (s *ProductService) FindProducts(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, error) {
	products, err := s.repo.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	if err := s.resolveUsers(ctx, products); err != nil {
		return nil, err
	}
	return products, nil
}

// resolveUsers fills in Seller and Review[].User with one user lookup.
func (s *ProductService) resolveUsers(ctx context.Context, products []domain.Product) error {
	ids := append(domain.SellerIDs(products), domain.ReviewerIDs(products)...)
	if len(ids) == 0 {
		return nil
	}

	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("resolve users: %w", err)
	}

	for i := range products {
		p := &products[i]
		if u, ok := users[p.SellerID]; ok {
			p.Seller = &u
		}
		for j := range p.Review {
			if u, ok := users[p.Review[j].UserID]; ok {
				p.Review[j].User = &u
			}
		}
	}
	return nil
}

// DeleteProduct removes a single product by id.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.repo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	s.logger.InfoContext(ctx, "product deleted", slog.String("product_id", id))
	return nil
}

// DeleteProductsByName removes every product named name. It fails with not
// found when no product has that name.
func (s *ProductService) DeleteProductsByName(ctx context.Context, name string) (int64, error) {
	if _, err := s.repo.GetByName(ctx, name); err != nil {
		return 0, fmt.Errorf("delete products by name: %w", err)
	}

	deleted, err := s.repo.DeleteByName(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("delete products by name: %w", err)
	}

	s.logger.InfoContext(ctx, "products deleted by name",
		slog.String("product_name", name),
		slog.Int64("deleted", deleted),
	)
	return deleted, nil
}

// UpdateProduct replaces every mutable field of a product. A supplied inline
// review replaces the whole review collection. Ratings are left untouched.
func (s *ProductService) UpdateProduct(ctx context.Context, input *UpdateProductInput) (*domain.Product, error) {
	product, err := mutateProduct(ctx, s.repo, s.logger, input.ID, func(p *domain.Product) error {
		if input.Version != nil && *input.Version != p.Version {
			return apperrors.Conflict("product version is stale")
		}
		input.ProductInput.applyTo(p)
		if input.Review != nil {
			p.Review = []domain.Review{{
				UserID:     input.Review.UserID,
				UserReview: input.Review.UserReview,
				Date:       input.Review.Date,
			}}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	s.logger.InfoContext(ctx, "product updated",
		slog.String("product_id", product.ID),
		slog.Int64("version", product.Version),
	)
	return product, nil
}

// mutateProduct loads the product, applies mutate and writes it back under
// the version it was read at. Version conflicts are retried with fresh state;
// errors from mutate are returned as is.
func mutateProduct(ctx context.Context, repo repository.ProductRepository, l *slog.Logger, id string, mutate func(p *domain.Product) error) (*domain.Product, error) {
	var lastErr error
	for attempt := 1; attempt <= maxVersionAttempts; attempt++ {
		product, err := repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := mutate(product); err != nil {
			return nil, err
		}

		err = repo.Update(ctx, product)
		if err == nil {
			return product, nil
		}
		if !errors.Is(err, apperrors.ErrConflict) {
			return nil, err
		}

		lastErr = err
		l.WarnContext(ctx, "product version conflict",
			slog.String("product_id", id),
			slog.Int("attempt", attempt),
		)
	}
	return nil, lastErr
}
