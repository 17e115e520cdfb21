package event

import (
	"time"

	"github.com/bibbank/settlement/pkg/contract"
	"github.com/bibbank/settlement/pkg/events"
)

// AggregateTypeOrder is the aggregate a payment result belongs to. Results
// are keyed by order id so they share ordering with the request.
const AggregateTypeOrder = "Order"

// PaymentSettled is emitted when a payment request has been decided,
// successfully or not.
type PaymentSettled struct {
	events.BaseEvent
	Result contract.PaymentResult
}

// NewPaymentSettled builds the event carrying result.
func NewPaymentSettled(result contract.PaymentResult, now time.Time) PaymentSettled {
	return PaymentSettled{
		BaseEvent: events.NewBaseEvent(result.EventType(), result.OrderID, AggregateTypeOrder, result, now),
		Result:    result,
	}
}
