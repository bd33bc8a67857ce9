package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Palak111111/Scrapify-server/internal/domain"
	apperrors "github.com/Palak111111/Scrapify-server/pkg/errors"
	pkgkafka "github.com/Palak111111/Scrapify-server/pkg/kafka"
)

// Notifier creates the notifications for a new product.
type Notifier interface {
	NotifyNewProduct(ctx context.Context, eventID, productID, productName string) (int64, error)
}

// FanoutHandler routes incoming Kafka events to the notification fan-out.
type FanoutHandler struct {
	notifier Notifier
	logger   *slog.Logger
}

// NewFanoutHandler creates a new fan-out event handler.
func NewFanoutHandler(notifier Notifier, logger *slog.Logger) *FanoutHandler {
	return &FanoutHandler{notifier: notifier, logger: logger}
}

// Handle processes an incoming event based on its event type. Unknown types
// are logged and acknowledged.
func (h *FanoutHandler) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case domain.EventProductCreated:
		return h.handleProductCreated(ctx, event)
	default:
		h.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

func (h *FanoutHandler) handleProductCreated(ctx context.Context, event *pkgkafka.Event) error {
	var payload domain.ProductCreatedPayload
	if err := event.UnmarshalData(&payload); err != nil {
		return err
	}
	if event.AggregateID == "" {
		return apperrors.InvalidInput(fmt.Sprintf("event %s has no product id", event.EventID))
	}

	created, err := h.notifier.NotifyNewProduct(ctx, event.EventID, event.AggregateID, payload.ProductName)
	if err != nil {
		return err
	}

	h.logger.InfoContext(ctx, "product.created fan-out complete",
		slog.String("event_id", event.EventID),
		slog.String("product_id", event.AggregateID),
		slog.Int64("notifications", created),
	)
	return nil
}
