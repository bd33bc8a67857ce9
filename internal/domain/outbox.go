package domain

import (
	"encoding/json"
	"time"
)

// Outbox event types.
const (
	EventProductCreated = "product.created"
)

// DefaultOutboxMaxAttempts is the number of publish attempts after which a
// record is parked and no longer polled.
const DefaultOutboxMaxAttempts = 10

// OutboxRecord is an event persisted alongside the aggregate it describes,
// waiting to be relayed to the message broker.
type OutboxRecord struct {
	ID           string          `json:"id"`
	EventID      string          `json:"eventId"`
	EventType    string          `json:"eventType"`
	AggregateID  string          `json:"aggregateId"`
	Payload      json.RawMessage `json:"payload"`
	CreatedAt    time.Time       `json:"createdAt"`
	DispatchedAt *time.Time      `json:"dispatchedAt,omitempty"`
	Attempts     int             `json:"attempts"`
	LastError    string          `json:"lastError,omitempty"`
}

// ProductCreatedPayload is the payload of a product.created event. The
// product id is the event's aggregate id.
type ProductCreatedPayload struct {
	ProductName string `json:"product_name"`
	SellerID    string `json:"seller_id,omitempty"`
}
