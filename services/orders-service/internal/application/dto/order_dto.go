package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/settlement/pkg/money"
	"github.com/bibbank/settlement/services/orders-service/internal/domain/model"
)

// CreateOrderRequest is the input DTO for placing an order. OrderID is
// optional; the gateway supplies one so the order matches its hold.
type CreateOrderRequest struct {
	Amount      money.Amount `json:"amount"`
	Description string       `json:"description"`
	OrderID     uuid.UUID    `json:"order_id"`
	UserID      uuid.UUID    `json:"-"`
}

// OrderResponse is the order representation returned by every endpoint.
type OrderResponse struct {
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	Amount      money.Amount `json:"amount"`
	Description string       `json:"description"`
	Status      string       `json:"status"`
	ID          uuid.UUID    `json:"id"`
	UserID      uuid.UUID    `json:"user_id"`
}

// FromOrder maps the domain order onto its response.
func FromOrder(o model.Order) OrderResponse {
	return OrderResponse{
		ID:          o.ID(),
		UserID:      o.UserID(),
		Amount:      o.Amount(),
		Description: o.Description(),
		Status:      o.Status().String(),
		CreatedAt:   o.CreatedAt(),
		UpdatedAt:   o.UpdatedAt(),
	}
}

// ListOrdersResponse wraps a user's orders.
type ListOrdersResponse struct {
	Orders []OrderResponse `json:"orders"`
}
