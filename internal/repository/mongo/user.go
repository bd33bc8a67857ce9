package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Palak111111/Scrapify-server/internal/domain"
	"github.com/Palak111111/Scrapify-server/pkg/database"
)

// The stored credential never leaves the database.
var userProjection = bson.D{{Key: "password", Value: 0}}

// UserRepository implements repository.UserRepository using MongoDB.
type UserRepository struct {
	users  *mongo.Collection
	tracer *database.QueryTracer
}

// NewUserRepository creates a new MongoDB-backed user repository.
func NewUserRepository(db *mongo.Database, tracer *database.QueryTracer) *UserRepository {
	if tracer == nil {
		tracer = &database.QueryTracer{System: "mongodb"}
	}
	return &UserRepository{users: db.Collection(UsersCollection), tracer: tracer}
}

// FindByIDs returns the users with the given ids keyed by id. Malformed
// and unknown ids are skipped.
func (r *UserRepository) FindByIDs(ctx context.Context, ids []string) (users map[string]domain.User, err error) {
	users = make(map[string]domain.User, len(ids))

	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 {
		return users, nil
	}

	ctx, end := r.tracer.Start(ctx, "FindUsersByIDs", UsersCollection)
	defer func() { end(err) }()

	filter := bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: oids}}}}
	cursor, err := r.users.Find(ctx, filter, options.Find().SetProjection(userProjection))
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var doc userDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode user: %w", err)
		}
		u := doc.toDomain()
		users[u.ID] = u
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// StreamIDs walks every user id in _id order and hands them to fn in
// batches of at most batchSize.
func (r *UserRepository) StreamIDs(ctx context.Context, batchSize int32, fn func(ids []string) error) (err error) {
	if batchSize <= 0 {
		batchSize = 500
	}

	ctx, end := r.tracer.Start(ctx, "StreamUserIDs", UsersCollection)
	defer func() { end(err) }()

	opts := options.Find().
		SetProjection(bson.D{{Key: "_id", Value: 1}}).
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetBatchSize(batchSize)
	cursor, err := r.users.Find(ctx, bson.D{}, opts)
	if err != nil {
		return fmt.Errorf("find user ids: %w", err)
	}
	defer cursor.Close(ctx)

	batch := make([]string, 0, batchSize)
	for cursor.Next(ctx) {
		var doc struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return fmt.Errorf("decode user id: %w", err)
		}
		batch = append(batch, doc.ID.Hex())
		if int32(len(batch)) == batchSize {
			if err := fn(batch); err != nil {
				return err
			}
			batch = make([]string, 0, batchSize)
		}
	}
	if err := cursor.Err(); err != nil {
		return fmt.Errorf("iterate user ids: %w", err)
	}
	if len(batch) > 0 {
		return fn(batch)
	}
	return nil
}

// Count returns the number of users.
func (r *UserRepository) Count(ctx context.Context) (n int64, err error) {
	ctx, end := r.tracer.Start(ctx, "CountUsers", UsersCollection)
	defer func() { end(err) }()

	n, err = r.users.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}
