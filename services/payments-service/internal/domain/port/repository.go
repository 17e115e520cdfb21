package port

import (
	"context"

	"github.com/google/uuid"

	"github.com/bibbank/settlement/pkg/inbox"
	"github.com/bibbank/settlement/pkg/outbox"
	"github.com/bibbank/settlement/services/payments-service/internal/domain/model"
)

// LedgerStore opens ledger transactions and serves non-locking reads.
type LedgerStore interface {
	// WithinTx runs fn in one database transaction. fn's error rolls it back.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error
	// FindAccount returns a snapshot of the account without locking it.
	FindAccount(ctx context.Context, userID uuid.UUID) (model.Account, error)
}

// LedgerTx is the set of operations available inside a ledger transaction.
// Lock methods take a row lock held until the transaction ends.
type LedgerTx interface {
	// InsertAccount fails with model.ErrAccountExists for a duplicate user.
	InsertAccount(ctx context.Context, acc model.Account) error
	// LockAccount fails with model.ErrAccountNotFound.
	LockAccount(ctx context.Context, userID uuid.UUID) (model.Account, error)
	UpdateAccount(ctx context.Context, acc model.Account) error

	// InsertHold fails with model.ErrHoldExists when the order already has one.
	InsertHold(ctx context.Context, h model.Hold) error
	// LockHold fails with model.ErrHoldNotFound when the order has no hold.
	LockHold(ctx context.Context, orderID uuid.UUID) (model.Hold, error)
	UpdateHold(ctx context.Context, h model.Hold) error

	// AdmitInbox records an inbound message and reports whether it was new.
	AdmitInbox(ctx context.Context, rec inbox.Record) (bool, error)
	// AppendOutbox queues events for the relay.
	AppendOutbox(ctx context.Context, entries ...outbox.Entry) error
}
