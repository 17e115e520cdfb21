package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/bibbank/settlement/pkg/outbox"
	"github.com/bibbank/settlement/services/orders-service/internal/application/dto"
	"github.com/bibbank/settlement/services/orders-service/internal/domain/model"
	"github.com/bibbank/settlement/services/orders-service/internal/domain/port"
)

// CreateOrder stores a new order and its payment request in one transaction.
type CreateOrder struct {
	store port.OrderStore
	now   func() time.Time
}

func NewCreateOrder(store port.OrderStore) *CreateOrder {
	return &CreateOrder{store: store, now: time.Now}
}

func (uc *CreateOrder) Execute(ctx context.Context, req dto.CreateOrderRequest) (dto.OrderResponse, error) {
	order, err := model.NewOrder(req.OrderID, req.UserID, req.Amount, req.Description, uc.now())
	if err != nil {
		return dto.OrderResponse{}, fmt.Errorf("create order: %w", err)
	}

	entries := make([]outbox.Entry, 0, len(order.Events()))
	for _, evt := range order.ClearEvents() {
		entry, err := outbox.FromEvent(evt)
		if err != nil {
			return dto.OrderResponse{}, fmt.Errorf("create order: %w", err)
		}
		entries = append(entries, entry)
	}

	err = uc.store.WithinTx(ctx, func(ctx context.Context, tx port.OrderTx) error {
		if err := tx.InsertOrder(ctx, order); err != nil {
			return err
		}
		return tx.AppendOutbox(ctx, entries...)
	})
	if err != nil {
		return dto.OrderResponse{}, fmt.Errorf("create order %s: %w", order.ID(), err)
	}
	return dto.FromOrder(order), nil
}
