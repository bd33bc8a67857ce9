package domain

import (
	"strings"
	"time"
)

// Notification is a message delivered to one user about one new product.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	ProductID string    `json:"productId"`
	EventID   string    `json:"eventId"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewArrivalMessage builds the notification text for a newly listed product.
func NewArrivalMessage(prefix, productName string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return productName
	}
	return prefix + " " + productName
}
