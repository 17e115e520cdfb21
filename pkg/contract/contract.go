// Package contract defines the messages exchanged between the orders and
// payments services and the broker topology that carries them.
package contract

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/bibbank/settlement/pkg/money"
)

// Event types written to the outbox tables.
const (
	EventPaymentRequested = "payment_requested"
	EventPaymentSucceeded = "payment_succeeded"
	EventPaymentFailed    = "payment_failed"
)

// Result values carried by PaymentResult.
const (
	ResultSuccess = "success"
	ResultFailed  = "failed"
)

// Failure reasons carried by PaymentResult.
const (
	ReasonNoAccount         = "no_account"
	ReasonInsufficientFunds = "insufficient_funds"
	ReasonHoldMismatch      = "hold_mismatch"
	ReasonHoldClosed        = "hold_closed"
)

// ErrMalformedMessage marks a broker payload that can never be processed.
// Consumers dead-letter such messages instead of retrying them.
var ErrMalformedMessage = errors.New("malformed message")

// PaymentRequested asks the payments service to settle an order.
type PaymentRequested struct {
	OrderID uuid.UUID    `json:"order_id"`
	UserID  uuid.UUID    `json:"user_id"`
	Amount  money.Amount `json:"amount"`
}

// PaymentResult reports how a PaymentRequested was settled.
type PaymentResult struct {
	OrderID uuid.UUID    `json:"order_id"`
	UserID  uuid.UUID    `json:"user_id"`
	Amount  money.Amount `json:"amount"`
	Result  string       `json:"result"`
	Reason  string       `json:"reason,omitempty"`
}

// Succeeded reports whether the payment went through.
func (r PaymentResult) Succeeded() bool {
	return r.Result == ResultSuccess
}

// EventType returns the outbox event type for the result.
func (r PaymentResult) EventType() string {
	if r.Succeeded() {
		return EventPaymentSucceeded
	}
	return EventPaymentFailed
}

// DecodePaymentRequested parses and validates a PaymentRequested body.
func DecodePaymentRequested(body []byte) (PaymentRequested, error) {
	var msg PaymentRequested
	if err := json.Unmarshal(body, &msg); err != nil {
		return PaymentRequested{}, fmt.Errorf("%w: decode payment request: %w", ErrMalformedMessage, err)
	}
	switch {
	case msg.OrderID == uuid.Nil:
		return PaymentRequested{}, fmt.Errorf("%w: payment request without order_id", ErrMalformedMessage)
	case msg.UserID == uuid.Nil:
		return PaymentRequested{}, fmt.Errorf("%w: payment request without user_id", ErrMalformedMessage)
	case !msg.Amount.IsPositive():
		return PaymentRequested{}, fmt.Errorf("%w: payment request amount %s is not positive", ErrMalformedMessage, msg.Amount)
	}
	return msg, nil
}

// DecodePaymentResult parses and validates a PaymentResult body.
func DecodePaymentResult(body []byte) (PaymentResult, error) {
	var msg PaymentResult
	if err := json.Unmarshal(body, &msg); err != nil {
		return PaymentResult{}, fmt.Errorf("%w: decode payment result: %w", ErrMalformedMessage, err)
	}
	if msg.OrderID == uuid.Nil {
		return PaymentResult{}, fmt.Errorf("%w: payment result without order_id", ErrMalformedMessage)
	}
	if msg.Result == "" {
		return PaymentResult{}, fmt.Errorf("%w: payment result without result", ErrMalformedMessage)
	}
	return msg, nil
}
