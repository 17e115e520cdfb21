package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bibbank/settlement/services/orders-service/internal/application/dto"
	"github.com/bibbank/settlement/services/orders-service/internal/domain/model"
	"github.com/bibbank/settlement/services/orders-service/internal/domain/port"
)

// GetOrder reads one of the caller's orders. Another user's order is
// reported as not found.
type GetOrder struct {
	store port.OrderStore
}

func NewGetOrder(store port.OrderStore) *GetOrder {
	return &GetOrder{store: store}
}

func (uc *GetOrder) Execute(ctx context.Context, userID, orderID uuid.UUID) (dto.OrderResponse, error) {
	order, err := uc.store.FindByID(ctx, orderID)
	if err != nil {
		return dto.OrderResponse{}, fmt.Errorf("get order: %w", err)
	}
	if !order.OwnedBy(userID) {
		return dto.OrderResponse{}, fmt.Errorf("get order: %w: %s", model.ErrOrderNotFound, orderID)
	}
	return dto.FromOrder(order), nil
}
