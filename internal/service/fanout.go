package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Palak111111/Scrapify-server/internal/domain"
	"github.com/Palak111111/Scrapify-server/internal/repository"
	apperrors "github.com/Palak111111/Scrapify-server/pkg/errors"
)

// FanoutConfig tunes notification fan-out.
type FanoutConfig struct {
	// MessagePrefix precedes the product name in every notification.
	MessagePrefix string
	// UserBatchSize is the cursor batch size used to walk the user store.
	UserBatchSize int32
	// ChunkSize is the maximum number of rows per insert statement.
	ChunkSize int
}

// FanoutService creates one notification per user for each new product.
type FanoutService struct {
	users         repository.UserRepository
	notifications repository.NotificationRepository
	cfg           FanoutConfig
	logger        *slog.Logger
	now           func() time.Time
}

// NewFanoutService creates a new fan-out service.
func NewFanoutService(users repository.UserRepository, notifications repository.NotificationRepository, cfg FanoutConfig, logger *slog.Logger) *FanoutService {
	if cfg.UserBatchSize <= 0 {
		cfg.UserBatchSize = 500
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 500
	}
	return &FanoutService{
		users:         users,
		notifications: notifications,
		cfg:           cfg,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// NotifyNewProduct notifies every user about a new product. It is safe to
// call again for the same event: notifications that already exist are
// skipped. It returns the number of notifications created by this call.
func (s *FanoutService) NotifyNewProduct(ctx context.Context, eventID, productID, productName string) (int64, error) {
	if eventID == "" || productID == "" {
		return 0, apperrors.InvalidInput("event id and product id are required")
	}

	message := domain.NewArrivalMessage(s.cfg.MessagePrefix, productName)
	createdAt := s.now()

	var created, users int64
	err := s.users.StreamIDs(ctx, s.cfg.UserBatchSize, func(ids []string) error {
		users += int64(len(ids))
		for start := 0; start < len(ids); start += s.cfg.ChunkSize {
			end := min(start+s.cfg.ChunkSize, len(ids))

			batch := make([]domain.Notification, 0, end-start)
			for _, userID := range ids[start:end] {
				batch = append(batch, domain.Notification{
					ID:        uuid.New().String(),
					UserID:    userID,
					ProductID: productID,
					EventID:   eventID,
					Message:   message,
					CreatedAt: createdAt,
				})
			}

			n, err := s.notifications.CreateBatch(ctx, batch)
			if err != nil {
				return err
			}
			created += n
		}
		return nil
	})
	if err != nil {
		return created, fmt.Errorf("notify new product %s: %w", productID, err)
	}

	attrs := []any{
		slog.String("event_id", eventID),
		slog.String("product_id", productID),
		slog.Int64("users", users),
		slog.Int64("created", created),
	}
	if created < users {
		// Some rows were skipped as duplicates, so the event was seen before.
		stored, err := s.notifications.CountByEvent(ctx, eventID)
		if err != nil {
			s.logger.WarnContext(ctx, "failed to count existing notifications", append(attrs, slog.String("error", err.Error()))...)
			return created, nil
		}
		attrs = append(attrs, slog.Int64("existing", stored-created))
		if stored < users {
			s.logger.WarnContext(ctx, "notifications missing for some users", attrs...)
			return created, nil
		}
		s.logger.InfoContext(ctx, "redelivered event already fanned out", attrs...)
		return created, nil
	}

	s.logger.InfoContext(ctx, "new product notifications created", attrs...)
	return created, nil
}
