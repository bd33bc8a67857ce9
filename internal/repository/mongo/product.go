package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Palak111111/Scrapify-server/internal/domain"
	"github.com/Palak111111/Scrapify-server/internal/repository"
	"github.com/Palak111111/Scrapify-server/pkg/database"
	apperrors "github.com/Palak111111/Scrapify-server/pkg/errors"
)

// ProductRepository implements repository.ProductRepository using MongoDB.
type ProductRepository struct {
	products *mongo.Collection
	outbox   *mongo.Collection
	tx       Transactor
	tracer   *database.QueryTracer
}

// NewProductRepository creates a new MongoDB-backed product repository.
func NewProductRepository(db *mongo.Database, tx Transactor, tracer *database.QueryTracer) *ProductRepository {
	if tracer == nil {
		tracer = &database.QueryTracer{System: "mongodb"}
	}
	return &ProductRepository{
		products: db.Collection(ProductsCollection),
		outbox:   db.Collection(OutboxCollection),
		tx:       tx,
		tracer:   tracer,
	}
}

// CreateWithOutbox inserts the product and its outbox record in one
// transaction. product.ID and record.AggregateID are set to the new id.
func (r *ProductRepository) CreateWithOutbox(ctx context.Context, product *domain.Product, record *domain.OutboxRecord) (err error) {
	ctx, end := r.tracer.Start(ctx, "InsertProductWithOutbox", ProductsCollection)
	defer func() { end(err) }()

	id := primitive.NewObjectID()
	product.ID = id.Hex()
	record.AggregateID = product.ID

	doc, err := newProductDocument(product)
	if err != nil {
		return err
	}

	err = r.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := r.products.InsertOne(ctx, doc); err != nil {
			return fmt.Errorf("insert product: %w", err)
		}
		if _, err := r.outbox.InsertOne(ctx, newOutboxDocument(record)); err != nil {
			return fmt.Errorf("insert outbox record: %w", err)
		}
		return nil
	})
	if err != nil {
		product.ID = ""
		record.AggregateID = ""
		return mapWriteError(err)
	}
	return nil
}

// CreateMany inserts every product in one transaction.
func (r *ProductRepository) CreateMany(ctx context.Context, products []domain.Product) (ids []string, err error) {
	ctx, end := r.tracer.Start(ctx, "InsertProducts", ProductsCollection)
	defer func() { end(err) }()

	docs := make([]any, 0, len(products))
	ids = make([]string, 0, len(products))
	for i := range products {
		doc, err := newProductDocument(&products[i])
		if err != nil {
			return nil, fmt.Errorf("product %d: %w", i, err)
		}
		doc.ID = primitive.NewObjectID()
		docs = append(docs, doc)
		ids = append(ids, doc.ID.Hex())
	}

	err = r.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := r.products.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true)); err != nil {
			return fmt.Errorf("insert products: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, mapWriteError(err)
	}

	for i := range products {
		products[i].ID = ids[i]
	}
	return ids, nil
}

// Find returns the products matching filter in insertion order.
func (r *ProductRepository) Find(ctx context.Context, filter repository.ProductFilter) (products []domain.Product, err error) {
	ctx, end := r.tracer.Start(ctx, "FindProducts", ProductsCollection)
	defer func() { end(err) }()

	query, err := buildProductQuery(filter)
	if err != nil {
		return nil, err
	}

	cursor, err := r.products.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	defer cursor.Close(ctx)

	products = make([]domain.Product, 0)
	for cursor.Next(ctx) {
		var doc productDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode product: %w", err)
		}
		products = append(products, doc.toDomain())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}

// GetByID retrieves a product by its ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (product *domain.Product, err error) {
	ctx, end := r.tracer.Start(ctx, "GetProductByID", ProductsCollection)
	defer func() { end(err) }()

	oid, err := objectID("id", id)
	if err != nil {
		return nil, err
	}
	product, err = r.findOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.NotFound("product", id)
	}
	return product, err
}

// GetByName retrieves the first product with the given name.
func (r *ProductRepository) GetByName(ctx context.Context, name string) (product *domain.Product, err error) {
	ctx, end := r.tracer.Start(ctx, "GetProductByName", ProductsCollection)
	defer func() { end(err) }()

	product, err = r.findOne(ctx, bson.D{{Key: "productName", Value: name}})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.NotFoundBy("product", "productName", name)
	}
	return product, err
}

func (r *ProductRepository) findOne(ctx context.Context, filter bson.D) (*domain.Product, error) {
	var doc productDocument
	if err := r.products.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, err
		}
		return nil, fmt.Errorf("find product: %w", err)
	}
	p := doc.toDomain()
	return &p, nil
}

// Update replaces the stored document when its version still matches
// product.Version. On success product.Version is incremented.
func (r *ProductRepository) Update(ctx context.Context, product *domain.Product) (err error) {
	ctx, end := r.tracer.Start(ctx, "ReplaceProduct", ProductsCollection)
	defer func() { end(err) }()

	doc, err := newProductDocument(product)
	if err != nil {
		return err
	}
	if doc.ID.IsZero() {
		return apperrors.InvalidInput("product id is required")
	}

	expected := product.Version
	doc.Version = expected + 1
	doc.UpdatedAt = time.Now().UTC()

	filter := bson.D{{Key: "_id", Value: doc.ID}, {Key: "version", Value: expected}}
	res, err := r.products.ReplaceOne(ctx, filter, doc)
	if err != nil {
		return fmt.Errorf("replace product: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.Conflict("product was modified concurrently")
	}

	product.Version = doc.Version
	product.UpdatedAt = doc.UpdatedAt
	return nil
}

// DeleteByID removes a product by its ID.
func (r *ProductRepository) DeleteByID(ctx context.Context, id string) (err error) {
	ctx, end := r.tracer.Start(ctx, "DeleteProduct", ProductsCollection)
	defer func() { end(err) }()

	oid, err := objectID("id", id)
	if err != nil {
		return err
	}
	res, err := r.products.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if res.DeletedCount == 0 {
		return apperrors.NotFound("product", id)
	}
	return nil
}

// DeleteByName removes every product with the given name.
func (r *ProductRepository) DeleteByName(ctx context.Context, name string) (deleted int64, err error) {
	ctx, end := r.tracer.Start(ctx, "DeleteProductsByName", ProductsCollection)
	defer func() { end(err) }()

	res, err := r.products.DeleteMany(ctx, bson.D{{Key: "productName", Value: name}})
	if err != nil {
		return 0, fmt.Errorf("delete products by name: %w", err)
	}
	return res.DeletedCount, nil
}

func buildProductQuery(f repository.ProductFilter) (bson.D, error) {
	query := bson.D{}
	if f.ID != nil {
		oid, err := objectID("id", *f.ID)
		if err != nil {
			return nil, err
		}
		query = append(query, bson.E{Key: "_id", Value: oid})
	}
	if f.Name != nil {
		query = append(query, bson.E{Key: "productName", Value: *f.Name})
	}
	if f.Category != nil {
		query = append(query, bson.E{Key: "category", Value: *f.Category})
	}
	if f.Price != nil {
		query = append(query, bson.E{Key: "price", Value: *f.Price})
	}
	return query, nil
}

func mapWriteError(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return apperrors.Conflict("product already exists")
	}
	return err
}
