package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/settlement/pkg/money"
	"github.com/bibbank/settlement/services/payments-service/internal/domain/model"
)

// Hold statuses reported to HTTP callers.
const (
	StatusHeld     = "held"
	StatusReleased = "released"
	StatusCaptured = "captured"
)

// AccountResponse is the snapshot returned by every account endpoint.
type AccountResponse struct {
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
	Balance   money.Amount `json:"balance"`
	UserID    uuid.UUID    `json:"user_id"`
}

// FromAccount maps the domain account onto its response.
func FromAccount(acc model.Account) AccountResponse {
	return AccountResponse{
		UserID:    acc.UserID(),
		Balance:   acc.Balance(),
		CreatedAt: acc.CreatedAt(),
		UpdatedAt: acc.UpdatedAt(),
	}
}

// DepositRequest is the input DTO for crediting an account.
type DepositRequest struct {
	Amount money.Amount `json:"amount"`
	UserID uuid.UUID    `json:"-"`
}

// HoldRequest is the input DTO for reserving funds for an order.
type HoldRequest struct {
	Amount  money.Amount `json:"amount"`
	OrderID uuid.UUID    `json:"order_id"`
	UserID  uuid.UUID    `json:"-"`
}

// OrderRefRequest names the order whose hold is released or captured.
type OrderRefRequest struct {
	OrderID uuid.UUID `json:"order_id"`
	UserID  uuid.UUID `json:"-"`
}

// HoldResponse reports the state a hold was left in.
type HoldResponse struct {
	Status  string       `json:"status"`
	Balance money.Amount `json:"balance"`
	OrderID uuid.UUID    `json:"order_id"`
}
