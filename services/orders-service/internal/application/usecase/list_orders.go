package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bibbank/settlement/services/orders-service/internal/application/dto"
	"github.com/bibbank/settlement/services/orders-service/internal/domain/port"
)

// ListOrders returns a user's orders, newest first.
type ListOrders struct {
	store port.OrderStore
}

func NewListOrders(store port.OrderStore) *ListOrders {
	return &ListOrders{store: store}
}

func (uc *ListOrders) Execute(ctx context.Context, userID uuid.UUID) (dto.ListOrdersResponse, error) {
	orders, err := uc.store.ListByUser(ctx, userID)
	if err != nil {
		return dto.ListOrdersResponse{}, fmt.Errorf("list orders: %w", err)
	}
	resp := dto.ListOrdersResponse{Orders: make([]dto.OrderResponse, 0, len(orders))}
	for _, o := range orders {
		resp.Orders = append(resp.Orders, dto.FromOrder(o))
	}
	return resp, nil
}
