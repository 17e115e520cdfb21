package event

import (
	"time"

	"github.com/bibbank/settlement/pkg/contract"
	"github.com/bibbank/settlement/pkg/events"
)

// AggregateTypeOrder is the aggregate type of every order event.
const AggregateTypeOrder = "Order"

// PaymentRequested is emitted when an order is created and asks the
// payments service to settle it.
type PaymentRequested struct {
	events.BaseEvent
	Request contract.PaymentRequested
}

// NewPaymentRequested builds the event for req.
func NewPaymentRequested(req contract.PaymentRequested, now time.Time) PaymentRequested {
	return PaymentRequested{
		BaseEvent: events.NewBaseEvent(contract.EventPaymentRequested, req.OrderID, AggregateTypeOrder, req, now),
		Request:   req,
	}
}
