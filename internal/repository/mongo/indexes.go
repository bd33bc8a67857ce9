package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the catalog queries rely on. Creating an
// existing index is a no-op.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	products := []mongo.IndexModel{
		{Keys: bson.D{{Key: "productName", Value: 1}}},
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "price", Value: 1}}},
	}
	if _, err := db.Collection(ProductsCollection).Indexes().CreateMany(ctx, products); err != nil {
		return fmt.Errorf("create product indexes: %w", err)
	}

	outbox := []mongo.IndexModel{
		{Keys: bson.D{{Key: "dispatchedAt", Value: 1}, {Key: "createdAt", Value: 1}}},
		{Keys: bson.D{{Key: "eventId", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	if _, err := db.Collection(OutboxCollection).Indexes().CreateMany(ctx, outbox); err != nil {
		return fmt.Errorf("create outbox indexes: %w", err)
	}
	return nil
}
