package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

// Transactor runs fn inside a multi-document transaction. The context passed
// to fn carries the session and must be used for every operation in it.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// SessionTransactor runs transactions on sessions of a client. It requires a
// replica set or sharded cluster.
type SessionTransactor struct {
	client *mongo.Client
}

// NewSessionTransactor creates a transactor backed by client sessions.
func NewSessionTransactor(client *mongo.Client) *SessionTransactor {
	return &SessionTransactor{client: client}
}

// WithTransaction starts a session and runs fn in a transaction, retrying
// transient transaction errors as the driver does.
func (t *SessionTransactor) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := t.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc)
	})
	return err
}
