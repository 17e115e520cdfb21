package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/settlement/pkg/contract"
	"github.com/bibbank/settlement/pkg/events"
	"github.com/bibbank/settlement/pkg/money"
	"github.com/bibbank/settlement/services/orders-service/internal/domain/event"
	"github.com/bibbank/settlement/services/orders-service/internal/domain/valueobject"
)

// Order is the aggregate root of the orders domain.
// It is immutable; all state transitions return a new instance.
type Order struct {
	events.EventCollector

	id          uuid.UUID
	userID      uuid.UUID
	amount      money.Amount
	description string
	status      valueobject.OrderStatus
	createdAt   time.Time
	updatedAt   time.Time
}

// NewOrder creates an order in NEW status and records a PaymentRequested
// event for it. A nil id is replaced by a fresh one.
func NewOrder(id, userID uuid.UUID, amount money.Amount, description string, now time.Time) (Order, error) {
	if userID == uuid.Nil {
		return Order{}, ErrInvalidUser
	}
	if !amount.IsPositive() {
		return Order{}, fmt.Errorf("%w, got: %s", ErrInvalidAmount, amount)
	}
	if id == uuid.Nil {
		id = uuid.New()
	}

	now = now.UTC()
	o := Order{
		id:          id,
		userID:      userID,
		amount:      amount,
		description: description,
		status:      valueobject.OrderStatusNew,
		createdAt:   now,
		updatedAt:   now,
	}
	o.Record(event.NewPaymentRequested(contract.PaymentRequested{
		OrderID: id,
		UserID:  userID,
		Amount:  amount,
	}, now))
	return o, nil
}

// ReconstructOrder recreates an Order from persisted data without validation
// or emitting events. Used by repository implementations.
func ReconstructOrder(
	id uuid.UUID,
	userID uuid.UUID,
	amount money.Amount,
	description string,
	status valueobject.OrderStatus,
	createdAt time.Time,
	updatedAt time.Time,
) Order {
	return Order{
		id:          id,
		userID:      userID,
		amount:      amount,
		description: description,
		status:      status,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

// MarkPending moves a NEW order to PENDING once its payment request has left
// the outbox. Any other status is left alone and changed is false.
func (o Order) MarkPending(now time.Time) (updated Order, changed bool) {
	if o.status != valueobject.OrderStatusNew {
		return o, false
	}
	return o.transition(valueobject.OrderStatusPending, now), true
}

// ApplyPaymentResult finishes the order on a successful payment and cancels
// it otherwise. A terminal order absorbs the result and changed is false.
func (o Order) ApplyPaymentResult(result contract.PaymentResult, now time.Time) (updated Order, changed bool) {
	next := valueobject.OrderStatusCancelled
	if result.Succeeded() {
		next = valueobject.OrderStatusFinished
	}
	if !o.status.CanTransitionTo(next) {
		return o, false
	}
	return o.transition(next, now), true
}

// OwnedBy reports whether the order belongs to userID.
func (o Order) OwnedBy(userID uuid.UUID) bool {
	return o.userID == userID
}

func (o Order) transition(next valueobject.OrderStatus, now time.Time) Order {
	updated := o
	updated.EventCollector = o.Fork()
	updated.status = next
	updated.updatedAt = now.UTC()
	return updated
}

func (o Order) ID() uuid.UUID                   { return o.id }
func (o Order) UserID() uuid.UUID               { return o.userID }
func (o Order) Amount() money.Amount            { return o.amount }
func (o Order) Description() string             { return o.description }
func (o Order) Status() valueobject.OrderStatus { return o.status }
func (o Order) CreatedAt() time.Time            { return o.createdAt }
func (o Order) UpdatedAt() time.Time            { return o.updatedAt }
