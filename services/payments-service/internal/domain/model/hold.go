package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/settlement/pkg/money"
	"github.com/bibbank/settlement/services/payments-service/internal/domain/valueobject"
)

// Hold reserves funds of one account for one order. The amount leaves the
// balance when the hold is placed; release returns it and capture makes the
// debit final.
type Hold struct {
	orderID    uuid.UUID
	userID     uuid.UUID
	amount     money.Amount
	createdAt  time.Time
	releasedAt *time.Time
	capturedAt *time.Time
}

// NewHold creates an open hold.
func NewHold(orderID, userID uuid.UUID, amount money.Amount, now time.Time) (Hold, error) {
	if orderID == uuid.Nil {
		return Hold{}, ErrInvalidOrder
	}
	if userID == uuid.Nil {
		return Hold{}, ErrInvalidUser
	}
	if !amount.IsPositive() {
		return Hold{}, fmt.Errorf("%w, got: %s", ErrInvalidAmount, amount)
	}
	return Hold{
		orderID:   orderID,
		userID:    userID,
		amount:    amount,
		createdAt: now.UTC(),
	}, nil
}

// ReconstructHold recreates a Hold from persistence (no validation).
func ReconstructHold(orderID, userID uuid.UUID, amount money.Amount, createdAt time.Time, releasedAt, capturedAt *time.Time) Hold {
	return Hold{
		orderID:    orderID,
		userID:     userID,
		amount:     amount,
		createdAt:  createdAt,
		releasedAt: releasedAt,
		capturedAt: capturedAt,
	}
}

// Status derives the lifecycle state from the timestamps.
func (h Hold) Status() valueobject.HoldStatus {
	switch {
	case h.capturedAt != nil:
		return valueobject.HoldStatusCaptured
	case h.releasedAt != nil:
		return valueobject.HoldStatusReleased
	default:
		return valueobject.HoldStatusOpen
	}
}

// IsOpen reports whether the hold has been neither released nor captured.
func (h Hold) IsOpen() bool {
	return h.Status() == valueobject.HoldStatusOpen
}

// Matches reports whether the hold was placed for userID and amount.
func (h Hold) Matches(userID uuid.UUID, amount money.Amount) bool {
	return h.userID == userID && h.amount.Equal(amount)
}

// Release closes an open hold (immutable - returns new copy). The caller
// credits the amount back to the account.
func (h Hold) Release(now time.Time) (Hold, error) {
	if !h.IsOpen() {
		return Hold{}, fmt.Errorf("%w: hold for order %s is %s", ErrHoldNotFound, h.orderID, h.Status())
	}
	at := now.UTC()
	updated := h
	updated.releasedAt = &at
	return updated, nil
}

// Capture finalizes an open hold (immutable - returns new copy).
func (h Hold) Capture(now time.Time) (Hold, error) {
	if !h.IsOpen() {
		return Hold{}, fmt.Errorf("%w: hold for order %s is %s", ErrHoldNotFound, h.orderID, h.Status())
	}
	at := now.UTC()
	updated := h
	updated.capturedAt = &at
	return updated, nil
}

// Accessors

func (h Hold) OrderID() uuid.UUID     { return h.orderID }
func (h Hold) UserID() uuid.UUID      { return h.userID }
func (h Hold) Amount() money.Amount   { return h.amount }
func (h Hold) CreatedAt() time.Time   { return h.createdAt }
func (h Hold) ReleasedAt() *time.Time { return h.releasedAt }
func (h Hold) CapturedAt() *time.Time { return h.capturedAt }
