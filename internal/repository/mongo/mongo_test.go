package mongo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/Palak111111/Scrapify-server/internal/domain"
)

// directTx runs fn without a session; mock deployments cannot run transactions.
type directTx struct{ calls int }

func (d *directTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	d.calls++
	return fn(ctx)
}

func newMockT(t *testing.T) *mtest.T {
	return mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
}

func toBSON(t *testing.T, v any) bson.D {
	t.Helper()
	raw, err := bson.Marshal(v)
	require.NoError(t, err)
	var d bson.D
	require.NoError(t, bson.Unmarshal(raw, &d))
	return d
}

var (
	sellerOID = primitive.NewObjectID()
	userAOID  = primitive.NewObjectID()
	userBOID  = primitive.NewObjectID()
	fixedTime = time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
)

func sampleProduct() *domain.Product {
	return &domain.Product{
		ProductName: "Widget",
		Description: "A useful widget",
		Price:       10,
		Quantity:    5,
		Weight:      0.4,
		SellerID:    sellerOID.Hex(),
		Category:    "tools",
		Brand:       "Acme",
		Thumbnail:   "thumb.png",
		Images:      []string{"a.png", "b.png"},
		Rating:      []domain.Rating{},
		Review:      []domain.Review{},
		CreatedAt:   fixedTime,
		UpdatedAt:   fixedTime,
	}
}

func sampleDocument(t *testing.T, id primitive.ObjectID, name string) bson.D {
	t.Helper()
	p := sampleProduct()
	p.ProductName = name
	p.Rating = []domain.Rating{{UserID: userAOID.Hex(), Rating: 4}, {UserID: userBOID.Hex(), Rating: 5}}
	p.RatingCount = 2
	p.AverageRating = 4.5
	p.Review = []domain.Review{{UserID: userAOID.Hex(), UserReview: "great", Date: fixedTime}}
	p.Version = 3
	doc, err := newProductDocument(p)
	require.NoError(t, err)
	doc.ID = id
	return toBSON(t, doc)
}
