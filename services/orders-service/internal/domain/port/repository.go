package port

import (
	"context"

	"github.com/google/uuid"

	"github.com/bibbank/settlement/pkg/outbox"
	"github.com/bibbank/settlement/services/orders-service/internal/domain/model"
)

// OrderStore opens order transactions and serves non-locking reads.
type OrderStore interface {
	// WithinTx runs fn in one database transaction. fn's error rolls it back.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx OrderTx) error) error
	// FindByID fails with model.ErrOrderNotFound.
	FindByID(ctx context.Context, id uuid.UUID) (model.Order, error)
	// ListByUser returns the user's orders, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Order, error)
}

// OrderTx is the set of operations available inside an order transaction.
type OrderTx interface {
	// InsertOrder fails with model.ErrOrderExists for a duplicate id.
	InsertOrder(ctx context.Context, o model.Order) error
	// LockOrder takes a row lock held until the transaction ends. It fails
	// with model.ErrOrderNotFound.
	LockOrder(ctx context.Context, id uuid.UUID) (model.Order, error)
	UpdateOrder(ctx context.Context, o model.Order) error
	// AppendOutbox queues events for the relay.
	AppendOutbox(ctx context.Context, entries ...outbox.Entry) error
}

// PendingMarker advances an order once its payment request has been
// published. It runs inside the relay's claim transaction.
type PendingMarker func(ctx context.Context, tx OrderTx, orderID uuid.UUID) error
