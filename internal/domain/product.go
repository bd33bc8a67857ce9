package domain

import (
	"time"

	apperrors "github.com/Palak111111/Scrapify-server/pkg/errors"
)

// Rating bounds accepted for a single user rating.
const (
	MinRating = 0
	MaxRating = 5
)

// Product represents a product document in the catalog.
type Product struct {
	ID                 string    `json:"_id"`
	ProductName        string    `json:"productName"`
	Description        string    `json:"description"`
	Price              float64   `json:"price"`
	Quantity           int       `json:"quantity"`
	Weight             float64   `json:"weight"`
	SellerID           string    `json:"sellerId"`
	Seller             *User     `json:"seller,omitempty"`
	Category           string    `json:"category"`
	Brand              string    `json:"brand"`
	ShippingCost       float64   `json:"shippingCost"`
	Commission         float64   `json:"commission"`
	DiscountPercentage float64   `json:"discountPercentage"`
	Thumbnail          string    `json:"thumbnail"`
	Images             []string  `json:"images"`
	Rating             []Rating  `json:"rating"`
	RatingCount        int       `json:"ratingCount"`
	AverageRating      float64   `json:"averageRating"`
	Review             []Review  `json:"review"`
	Version            int64     `json:"version"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// Rating is a single user's rating of a product.
type Rating struct {
	UserID string  `json:"userId"`
	Rating float64 `json:"rating"`
}

// Review is a single user's written review of a product.
type Review struct {
	UserID     string    `json:"userId"`
	User       *User     `json:"user,omitempty"`
	UserReview string    `json:"userReview"`
	Date       time.Time `json:"date"`
}

// HasRated reports whether userID already has a rating entry.
func (p *Product) HasRated(userID string) bool {
	for _, r := range p.Rating {
		if r.UserID == userID {
			return true
		}
	}
	return false
}

// HasReviewed reports whether userID already has a review entry.
func (p *Product) HasReviewed(userID string) bool {
	for _, r := range p.Review {
		if r.UserID == userID {
			return true
		}
	}
	return false
}

// ApplyRating appends a rating for userID and recomputes the derived
// ratingCount and averageRating fields.
func (p *Product) ApplyRating(userID string, value float64) error {
	if value < MinRating || value > MaxRating {
		return apperrors.InvalidInput("rating must be between 0 and 5")
	}
	if p.HasRated(userID) {
		return apperrors.Conflict("product already rated by this user")
	}

	p.Rating = append(p.Rating, Rating{UserID: userID, Rating: value})
	p.RecomputeRating()
	return nil
}

// ApplyReview appends a review for userID.
func (p *Product) ApplyReview(userID, text string, date time.Time) error {
	if p.HasReviewed(userID) {
		return apperrors.Conflict("product already reviewed by this user")
	}

	p.Review = append(p.Review, Review{UserID: userID, UserReview: text, Date: date})
	return nil
}

// RecomputeRating sets ratingCount to the number of entries and
// averageRating to their arithmetic mean, or 0 when there are none.
func (p *Product) RecomputeRating() {
	p.RatingCount = len(p.Rating)
	if p.RatingCount == 0 {
		p.AverageRating = 0
		return
	}

	var sum float64
	for _, r := range p.Rating {
		sum += r.Rating
	}
	p.AverageRating = sum / float64(p.RatingCount)
}

// SellerIDs returns the distinct seller ids referenced by products.
func SellerIDs(products []Product) []string {
	return distinct(len(products), func(yield func(string)) {
		for _, p := range products {
			yield(p.SellerID)
		}
	})
}

// ReviewerIDs returns the distinct review author ids referenced by products.
func ReviewerIDs(products []Product) []string {
	return distinct(len(products), func(yield func(string)) {
		for _, p := range products {
			for _, r := range p.Review {
				yield(r.UserID)
			}
		}
	})
}

func distinct(hint int, each func(yield func(string))) []string {
	seen := make(map[string]struct{}, hint)
	out := make([]string, 0, hint)
	each(func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	})
	return out
}
