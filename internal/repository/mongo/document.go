package mongo

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Palak111111/Scrapify-server/internal/domain"
	apperrors "github.com/Palak111111/Scrapify-server/pkg/errors"
)

// Collection names.
const (
	ProductsCollection = "products"
	UsersCollection    = "users"
	OutboxCollection   = "outbox"
)

type productDocument struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty"`
	ProductName        string             `bson:"productName"`
	Description        string             `bson:"description"`
	Price              float64            `bson:"price"`
	Quantity           int                `bson:"quantity"`
	Weight             float64            `bson:"weight"`
	SellerID           primitive.ObjectID `bson:"sellerId"`
	Category           string             `bson:"category"`
	Brand              string             `bson:"brand"`
	ShippingCost       float64            `bson:"shippingCost"`
	Commission         float64            `bson:"commission"`
	DiscountPercentage float64            `bson:"discountPercentage"`
	Thumbnail          string             `bson:"thumbnail"`
	Images             []string           `bson:"images"`
	Rating             []ratingDocument   `bson:"rating"`
	RatingCount        int                `bson:"ratingCount"`
	AverageRating      float64            `bson:"averageRating"`
	Review             []reviewDocument   `bson:"review"`
	Version            int64              `bson:"version"`
	CreatedAt          time.Time          `bson:"createdAt"`
	UpdatedAt          time.Time          `bson:"updatedAt"`
}

type ratingDocument struct {
	UserID primitive.ObjectID `bson:"userId"`
	Rating float64            `bson:"rating"`
}

type reviewDocument struct {
	UserID     primitive.ObjectID `bson:"userId"`
	UserReview string             `bson:"userReview"`
	Date       time.Time          `bson:"date"`
}

type userDocument struct {
	ID        primitive.ObjectID `bson:"_id"`
	Name      string             `bson:"name"`
	Email     string             `bson:"email"`
	Phone     string             `bson:"phone,omitempty"`
	Role      string             `bson:"role,omitempty"`
	CreatedAt time.Time          `bson:"createdAt"`
}

type outboxDocument struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	EventID      string             `bson:"eventId"`
	EventType    string             `bson:"eventType"`
	AggregateID  string             `bson:"aggregateId"`
	Payload      string             `bson:"payload"`
	CreatedAt    time.Time          `bson:"createdAt"`
	DispatchedAt *time.Time         `bson:"dispatchedAt"`
	Attempts     int                `bson:"attempts"`
	LastError    string             `bson:"lastError,omitempty"`
}

func objectID(field, hex string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, apperrors.InvalidInput(fmt.Sprintf("%s must be a valid id", field))
	}
	return oid, nil
}

func hexOrEmpty(oid primitive.ObjectID) string {
	if oid.IsZero() {
		return ""
	}
	return oid.Hex()
}

func newProductDocument(p *domain.Product) (*productDocument, error) {
	doc := &productDocument{
		ProductName:        p.ProductName,
		Description:        p.Description,
		Price:              p.Price,
		Quantity:           p.Quantity,
		Weight:             p.Weight,
		Category:           p.Category,
		Brand:              p.Brand,
		ShippingCost:       p.ShippingCost,
		Commission:         p.Commission,
		DiscountPercentage: p.DiscountPercentage,
		Thumbnail:          p.Thumbnail,
		Images:             p.Images,
		RatingCount:        p.RatingCount,
		AverageRating:      p.AverageRating,
		Version:            p.Version,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
		Rating:             make([]ratingDocument, 0, len(p.Rating)),
		Review:             make([]reviewDocument, 0, len(p.Review)),
	}
	if doc.Images == nil {
		doc.Images = []string{}
	}

	var err error
	if p.ID != "" {
		if doc.ID, err = objectID("_id", p.ID); err != nil {
			return nil, err
		}
	}
	if doc.SellerID, err = objectID("sellerId", p.SellerID); err != nil {
		return nil, err
	}
	for _, r := range p.Rating {
		uid, err := objectID("userId", r.UserID)
		if err != nil {
			return nil, err
		}
		doc.Rating = append(doc.Rating, ratingDocument{UserID: uid, Rating: r.Rating})
	}
	for _, r := range p.Review {
		uid, err := objectID("userId", r.UserID)
		if err != nil {
			return nil, err
		}
		doc.Review = append(doc.Review, reviewDocument{UserID: uid, UserReview: r.UserReview, Date: r.Date})
	}
	return doc, nil
}

func (d *productDocument) toDomain() domain.Product {
	p := domain.Product{
		ID:                 hexOrEmpty(d.ID),
		ProductName:        d.ProductName,
		Description:        d.Description,
		Price:              d.Price,
		Quantity:           d.Quantity,
		Weight:             d.Weight,
		SellerID:           hexOrEmpty(d.SellerID),
		Category:           d.Category,
		Brand:              d.Brand,
		ShippingCost:       d.ShippingCost,
		Commission:         d.Commission,
		DiscountPercentage: d.DiscountPercentage,
		Thumbnail:          d.Thumbnail,
		Images:             d.Images,
		RatingCount:        d.RatingCount,
		AverageRating:      d.AverageRating,
		Version:            d.Version,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
		Rating:             make([]domain.Rating, 0, len(d.Rating)),
		Review:             make([]domain.Review, 0, len(d.Review)),
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	for _, r := range d.Rating {
		p.Rating = append(p.Rating, domain.Rating{UserID: hexOrEmpty(r.UserID), Rating: r.Rating})
	}
	for _, r := range d.Review {
		p.Review = append(p.Review, domain.Review{UserID: hexOrEmpty(r.UserID), UserReview: r.UserReview, Date: r.Date})
	}
	return p
}

func (d *userDocument) toDomain() domain.User {
	return domain.User{
		ID:        d.ID.Hex(),
		Name:      d.Name,
		Email:     d.Email,
		Phone:     d.Phone,
		Role:      d.Role,
		CreatedAt: d.CreatedAt,
	}
}

func newOutboxDocument(r *domain.OutboxRecord) *outboxDocument {
	return &outboxDocument{
		EventID:      r.EventID,
		EventType:    r.EventType,
		AggregateID:  r.AggregateID,
		Payload:      string(r.Payload),
		CreatedAt:    r.CreatedAt,
		DispatchedAt: r.DispatchedAt,
		Attempts:     r.Attempts,
		LastError:    r.LastError,
	}
}

func (d *outboxDocument) toDomain() domain.OutboxRecord {
	return domain.OutboxRecord{
		ID:           hexOrEmpty(d.ID),
		EventID:      d.EventID,
		EventType:    d.EventType,
		AggregateID:  d.AggregateID,
		Payload:      []byte(d.Payload),
		CreatedAt:    d.CreatedAt,
		DispatchedAt: d.DispatchedAt,
		Attempts:     d.Attempts,
		LastError:    d.LastError,
	}
}
