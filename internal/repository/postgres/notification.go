package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/Palak111111/Scrapify-server/internal/domain"
	"github.com/Palak111111/Scrapify-server/pkg/database"
)

const notificationColumnCount = 6

// Postgres allows at most 65535 bind parameters per statement.
const maxNotificationsPerStatement = 65535 / notificationColumnCount

// NotificationRepository implements repository.NotificationRepository using PostgreSQL.
type NotificationRepository struct {
	pool   database.DBTX
	tracer *database.QueryTracer
}

// NewNotificationRepository creates a new PostgreSQL-backed notification repository.
func NewNotificationRepository(pool database.DBTX, tracer *database.QueryTracer) *NotificationRepository {
	if tracer == nil {
		tracer = &database.QueryTracer{System: "postgresql"}
	}
	return &NotificationRepository{pool: pool, tracer: tracer}
}

// CreateBatch inserts notifications with a single multi-row statement.
// Rows whose (event_id, user_id) already exist are skipped, so redelivered
// events never create duplicates.
func (r *NotificationRepository) CreateBatch(ctx context.Context, notifications []domain.Notification) (inserted int64, err error) {
	if len(notifications) == 0 {
		return 0, nil
	}
	if len(notifications) > maxNotificationsPerStatement {
		return 0, fmt.Errorf("insert notifications: batch of %d exceeds %d rows", len(notifications), maxNotificationsPerStatement)
	}

	ctx, end := r.tracer.Start(ctx, "InsertNotifications", "notifications")
	defer func() { end(err) }()

	query, args := buildInsertNotifications(notifications)
	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert notifications: %w", err)
	}
	return ct.RowsAffected(), nil
}

// CountByEvent returns the number of notifications created for an event.
func (r *NotificationRepository) CountByEvent(ctx context.Context, eventID string) (n int64, err error) {
	ctx, end := r.tracer.Start(ctx, "CountNotificationsByEvent", "notifications")
	defer func() { end(err) }()

	query := `SELECT COUNT(*) FROM notifications WHERE event_id = $1`
	if err := r.pool.QueryRow(ctx, query, eventID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count notifications by event: %w", err)
	}
	return n, nil
}

func buildInsertNotifications(notifications []domain.Notification) (string, []any) {
	var sb strings.Builder
	sb.WriteString("INSERT INTO notifications (id, user_id, product_id, event_id, message, created_at) VALUES ")

	args := make([]any, 0, len(notifications)*notificationColumnCount)
	for i, n := range notifications {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * notificationColumnCount
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4, base+5, base+6)
		args = append(args, n.ID, n.UserID, n.ProductID, n.EventID, n.Message, n.CreatedAt)
	}
	sb.WriteString(" ON CONFLICT (event_id, user_id) DO NOTHING")

	return sb.String(), args
}
