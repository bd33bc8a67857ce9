// Package main populates a local catalog with users and products. Users are
// written straight to the users collection, which this service only reads;
// products go through the bulk create path so they get the same defaults as
// API-created ones.
//
// Run: go run ./cmd/seed
package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Palak111111/Scrapify-server/internal/config"
	mongorepo "github.com/Palak111111/Scrapify-server/internal/repository/mongo"
	"github.com/Palak111111/Scrapify-server/internal/service"
	pkgconfig "github.com/Palak111111/Scrapify-server/pkg/config"
	"github.com/Palak111111/Scrapify-server/pkg/database"
	"github.com/Palak111111/Scrapify-server/pkg/logger"
)

type seedConfig struct {
	Users     int   `env:"SEED_USERS" envDefault:"50"`
	Products  int   `env:"SEED_PRODUCTS" envDefault:"1000"`
	BatchSize int   `env:"SEED_BATCH_SIZE" envDefault:"500"`
	RandSeed  int64 `env:"SEED_RAND" envDefault:"42"`
}

var (
	categories = []string{"electronics", "home", "garden", "toys", "books", "sports", "fashion"}
	brands     = []string{"Acme", "Globex", "Initech", "Umbrella", "Hooli", "Stark"}
	adjectives = []string{"Compact", "Deluxe", "Eco", "Smart", "Classic", "Pro", "Mini"}
	nouns      = []string{"Lamp", "Kettle", "Backpack", "Speaker", "Planter", "Notebook", "Drone", "Jacket"}
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	var seed seedConfig
	if err := pkgconfig.Load(&seed); err != nil {
		slog.Error("failed to load seed config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.New("catalog-seed", cfg.LogLevel)
	if err := run(context.Background(), cfg, seed, log); err != nil {
		log.Error("seed failed", logger.Err(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, seed seedConfig, log *slog.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	client, err := database.NewMongoClient(ctx, cfg.Mongo(), log)
	if err != nil {
		return fmt.Errorf("connect to mongodb: %w", err)
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	db := client.Database(cfg.MongoDB)
	if err := mongorepo.EnsureIndexes(ctx, db); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}

	rng := rand.New(rand.NewSource(seed.RandSeed))

	tracer := database.NewQueryTracer("mongodb", cfg.SlowQueryThreshold, log)
	users := mongorepo.NewUserRepository(db, tracer)

	sellerIDs, err := seedUsers(ctx, db, seed.Users)
	if err != nil {
		return err
	}
	total, err := users.Count(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	log.Info("users seeded", slog.Int("count", len(sellerIDs)), slog.Int64("total", total))

	products := service.NewProductService(
		mongorepo.NewProductRepository(db, mongorepo.NewSessionTransactor(client), tracer),
		users,
		log,
	)

	created := 0
	for created < seed.Products {
		n := min(seed.BatchSize, seed.Products-created)
		batch := make([]service.ProductInput, 0, n)
		for i := 0; i < n; i++ {
			batch = append(batch, generateProduct(rng, sellerIDs))
		}

		ids, err := products.CreateProducts(ctx, batch)
		if err != nil {
			return fmt.Errorf("seed products %d-%d: %w", created, created+n, err)
		}
		created += len(ids)
		log.Info("product batch seeded", slog.Int("seeded", created), slog.Int("total", seed.Products))
	}
	return nil
}

func seedUsers(ctx context.Context, db *mongo.Database, n int) ([]string, error) {
	if n < 1 {
		return nil, fmt.Errorf("SEED_USERS must be positive, got %d", n)
	}

	now := time.Now().UTC()
	docs := make([]any, 0, n)
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id := primitive.NewObjectID()
		ids = append(ids, id.Hex())
		docs = append(docs, bson.D{
			{Key: "_id", Value: id},
			{Key: "name", Value: fmt.Sprintf("Seed User %d", i+1)},
			{Key: "email", Value: fmt.Sprintf("seed-user-%d-%s@example.com", i+1, id.Hex()[18:])},
			{Key: "role", Value: "seller"},
			{Key: "createdAt", Value: now},
		})
	}

	if _, err := db.Collection(mongorepo.UsersCollection).InsertMany(ctx, docs); err != nil {
		return nil, fmt.Errorf("seed users: %w", err)
	}
	return ids, nil
}

func generateProduct(rng *rand.Rand, sellerIDs []string) service.ProductInput {
	name := fmt.Sprintf("%s %s %d",
		adjectives[rng.Intn(len(adjectives))],
		nouns[rng.Intn(len(nouns))],
		rng.Intn(10000),
	)
	price := float64(rng.Intn(50000)+199) / 100

	return service.ProductInput{
		ProductName:        name,
		Description:        "Seeded product " + name,
		Price:              price,
		Quantity:           rng.Intn(500),
		Weight:             float64(rng.Intn(5000)) / 1000,
		SellerID:           sellerIDs[rng.Intn(len(sellerIDs))],
		Category:           categories[rng.Intn(len(categories))],
		Brand:              brands[rng.Intn(len(brands))],
		ShippingCost:       float64(rng.Intn(1500)) / 100,
		Commission:         float64(rng.Intn(20)),
		DiscountPercentage: float64(rng.Intn(6) * 5),
		Thumbnail:          fmt.Sprintf("uploads/seed/%d.png", rng.Intn(100)),
		Images:             []string{fmt.Sprintf("uploads/seed/%d-1.png", rng.Intn(100))},
	}
}
