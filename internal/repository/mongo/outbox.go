package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Palak111111/Scrapify-server/internal/domain"
	"github.com/Palak111111/Scrapify-server/pkg/database"
	apperrors "github.com/Palak111111/Scrapify-server/pkg/errors"
)

// OutboxRepository implements repository.OutboxRepository using MongoDB.
type OutboxRepository struct {
	outbox      *mongo.Collection
	tracer      *database.QueryTracer
	maxAttempts int
}

// NewOutboxRepository creates a new MongoDB-backed outbox repository.
// Records that failed maxAttempts times are no longer listed as pending;
// a non-positive value uses domain.DefaultOutboxMaxAttempts.
func NewOutboxRepository(db *mongo.Database, tracer *database.QueryTracer, maxAttempts int) *OutboxRepository {
	if tracer == nil {
		tracer = &database.QueryTracer{System: "mongodb"}
	}
	if maxAttempts <= 0 {
		maxAttempts = domain.DefaultOutboxMaxAttempts
	}
	return &OutboxRepository{outbox: db.Collection(OutboxCollection), tracer: tracer, maxAttempts: maxAttempts}
}

// pendingFilter matches undispatched records that still have attempts left.
func pendingFilter(maxAttempts int) bson.D {
	return bson.D{
		{Key: "dispatchedAt", Value: nil},
		{Key: "attempts", Value: bson.D{{Key: "$lt", Value: maxAttempts}}},
	}
}

// ListPending returns up to limit undispatched records, oldest first.
// Parked records are skipped.
func (r *OutboxRepository) ListPending(ctx context.Context, limit int) (records []domain.OutboxRecord, err error) {
	ctx, end := r.tracer.Start(ctx, "ListPendingOutbox", OutboxCollection)
	defer func() { end(err) }()

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetLimit(int64(limit))
	cursor, err := r.outbox.Find(ctx, pendingFilter(r.maxAttempts), opts)
	if err != nil {
		return nil, fmt.Errorf("find pending outbox records: %w", err)
	}
	defer cursor.Close(ctx)

	records = make([]domain.OutboxRecord, 0)
	for cursor.Next(ctx) {
		var doc outboxDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode outbox record: %w", err)
		}
		records = append(records, doc.toDomain())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox records: %w", err)
	}
	return records, nil
}

// MarkDispatched sets dispatchedAt on the record.
func (r *OutboxRepository) MarkDispatched(ctx context.Context, id string) (err error) {
	ctx, end := r.tracer.Start(ctx, "MarkOutboxDispatched", OutboxCollection)
	defer func() { end(err) }()

	oid, err := objectID("id", id)
	if err != nil {
		return err
	}
	update := bson.D{
		{Key: "$set", Value: bson.D{{Key: "dispatchedAt", Value: time.Now().UTC()}}},
		{Key: "$inc", Value: bson.D{{Key: "attempts", Value: 1}}},
	}
	res, err := r.outbox.UpdateOne(ctx, bson.D{{Key: "_id", Value: oid}}, update)
	if err != nil {
		return fmt.Errorf("mark outbox record dispatched: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("outbox record", id)
	}
	return nil
}

// MarkFailed increments attempts and stores cause as the last error.
func (r *OutboxRepository) MarkFailed(ctx context.Context, id string, cause string) (err error) {
	ctx, end := r.tracer.Start(ctx, "MarkOutboxFailed", OutboxCollection)
	defer func() { end(err) }()

	oid, err := objectID("id", id)
	if err != nil {
		return err
	}
	update := bson.D{
		{Key: "$set", Value: bson.D{{Key: "lastError", Value: cause}}},
		{Key: "$inc", Value: bson.D{{Key: "attempts", Value: 1}}},
	}
	res, err := r.outbox.UpdateOne(ctx, bson.D{{Key: "_id", Value: oid}}, update)
	if err != nil {
		return fmt.Errorf("mark outbox record failed: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("outbox record", id)
	}
	return nil
}
