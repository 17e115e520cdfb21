package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/settlement/services/orders-service/internal/domain/model"
	"github.com/bibbank/settlement/services/orders-service/internal/domain/port"
)

// MarkOrderPending advances an order to PENDING after its payment request
// has been published. It runs inside the relay's transaction, so it is
// handed the transaction instead of a store.
type MarkOrderPending struct {
	now func() time.Time
}

func NewMarkOrderPending() *MarkOrderPending {
	return &MarkOrderPending{now: time.Now}
}

// Apply implements port.PendingMarker. A missing order is skipped so that a
// stray outbox row never blocks the relay.
func (uc *MarkOrderPending) Apply(ctx context.Context, tx port.OrderTx, orderID uuid.UUID) error {
	order, err := tx.LockOrder(ctx, orderID)
	if errors.Is(err, model.ErrOrderNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	updated, changed := order.MarkPending(uc.now())
	if !changed {
		return nil
	}
	return tx.UpdateOrder(ctx, updated)
}
