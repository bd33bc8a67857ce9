package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoConfig holds MongoDB connection configuration.
type MongoConfig struct {
	URI             string
	Database        string
	AppName         string
	MaxPoolSize     uint64
	ConnectTimeout  time.Duration
	ServerSelection time.Duration
}

// NewMongoClient connects and pings the primary, retrying with backoff.
func NewMongoClient(ctx context.Context, cfg MongoConfig, logger *slog.Logger) (*mongo.Client, error) {
	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.AppName != "" {
		opts.SetAppName(cfg.AppName)
	}
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.MaxPoolSize)
	}
	if cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(cfg.ConnectTimeout)
	}
	if cfg.ServerSelection > 0 {
		opts.SetServerSelectionTimeout(cfg.ServerSelection)
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("parse mongo config: %w", err)
	}

	return connectWithRetry(ctx, logger, "mongo", defaultRetryAttempts, retryBackoff,
		func(ctx context.Context) (*mongo.Client, error) {
			client, err := mongo.Connect(ctx, opts)
			if err != nil {
				return nil, err
			}
			if err := client.Ping(ctx, readpref.Primary()); err != nil {
				_ = client.Disconnect(context.Background())
				return nil, err
			}
			return client, nil
		})
}

// MongoPinger returns a health checker for client.
func MongoPinger(client *mongo.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		return client.Ping(ctx, readpref.Primary())
	}
}
