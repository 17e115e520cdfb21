package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/bibbank/settlement/pkg/contract"
	"github.com/bibbank/settlement/services/orders-service/internal/domain/port"
	"github.com/bibbank/settlement/services/orders-service/internal/domain/valueobject"
)

// ApplyResult reports what a payment result did to its order.
type ApplyResult struct {
	Status valueobject.OrderStatus
	// Changed is false when the order was already terminal.
	Changed bool
}

// ApplyPaymentResult moves an order to FINISHED or CANCELLED. Duplicate and
// late results leave a terminal order untouched.
type ApplyPaymentResult struct {
	store port.OrderStore
	now   func() time.Time
}

func NewApplyPaymentResult(store port.OrderStore) *ApplyPaymentResult {
	return &ApplyPaymentResult{store: store, now: time.Now}
}

func (uc *ApplyPaymentResult) Execute(ctx context.Context, result contract.PaymentResult) (ApplyResult, error) {
	var res ApplyResult
	err := uc.store.WithinTx(ctx, func(ctx context.Context, tx port.OrderTx) error {
		order, err := tx.LockOrder(ctx, result.OrderID)
		if err != nil {
			return err
		}
		updated, changed := order.ApplyPaymentResult(result, uc.now())
		res = ApplyResult{Status: updated.Status(), Changed: changed}
		if !changed {
			return nil
		}
		return tx.UpdateOrder(ctx, updated)
	})
	if err != nil {
		return ApplyResult{}, fmt.Errorf("apply payment result for order %s: %w", result.OrderID, err)
	}
	return res, nil
}
