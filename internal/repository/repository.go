package repository

import (
	"context"

	"github.com/Palak111111/Scrapify-server/internal/domain"
)

// ProductFilter selects products by exact match. Nil fields are ignored; an
// empty filter matches every product.
type ProductFilter struct {
	ID       *string
	Name     *string
	Category *string
	Price    *float64
}

// ProductRepository defines the interface for product persistence operations.
type ProductRepository interface {
	// CreateWithOutbox inserts a product and its outbox record atomically.
	// The product ID is assigned by the store.
	CreateWithOutbox(ctx context.Context, product *domain.Product, record *domain.OutboxRecord) error

	// CreateMany inserts all products or none and returns their new IDs.
	CreateMany(ctx context.Context, products []domain.Product) ([]string, error)

	// Find returns the products matching filter. No match is not an error.
	Find(ctx context.Context, filter ProductFilter) ([]domain.Product, error)

	// GetByID retrieves a product by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// GetByName retrieves the first product with the given name.
	GetByName(ctx context.Context, name string) (*domain.Product, error)

	// Update replaces a product if its stored version still equals
	// product.Version, then increments the version. A stale version yields a
	// conflict error.
	Update(ctx context.Context, product *domain.Product) error

	// DeleteByID removes a product from the store by its identifier.
	DeleteByID(ctx context.Context, id string) error

	// DeleteByName removes every product with the given name.
	DeleteByName(ctx context.Context, name string) (int64, error)
}

// UserRepository is the read-only view of the user store.
type UserRepository interface {
	// FindByIDs resolves users by id. Unknown ids are skipped.
	FindByIDs(ctx context.Context, ids []string) (map[string]domain.User, error)

	// StreamIDs calls fn with successive batches of user ids until every
	// user has been visited or fn returns an error.
	StreamIDs(ctx context.Context, batchSize int32, fn func(ids []string) error) error

	// Count returns the number of users.
	Count(ctx context.Context) (int64, error)
}

// OutboxRepository defines the persistence operations of the event outbox.
type OutboxRepository interface {
	// ListPending returns undispatched records that have not used up their
	// publish attempts, oldest first.
	ListPending(ctx context.Context, limit int) ([]domain.OutboxRecord, error)

	// MarkDispatched records a successful publish.
	MarkDispatched(ctx context.Context, id string) error

	// MarkFailed increments the attempt counter and stores the last error.
	MarkFailed(ctx context.Context, id string, cause string) error
}

// NotificationRepository defines the write side of the notification store.
type NotificationRepository interface {
	// CreateBatch inserts notifications, skipping ones whose (event, user)
	// pair already exists. It returns the number of rows inserted.
	CreateBatch(ctx context.Context, notifications []domain.Notification) (int64, error)

	// CountByEvent returns how many notifications exist for an event.
	CountByEvent(ctx context.Context, eventID string) (int64, error)
}
