package valueobject

import "fmt"

// OrderStatus is an immutable value object for the lifecycle state of an order.
type OrderStatus struct {
	value string
}

// Known order statuses.
var (
	OrderStatusNew       = OrderStatus{"NEW"}
	OrderStatusPending   = OrderStatus{"PENDING"}
	OrderStatusFinished  = OrderStatus{"FINISHED"}
	OrderStatusCancelled = OrderStatus{"CANCELLED"}
)

var knownOrderStatuses = map[string]OrderStatus{
	"NEW":       OrderStatusNew,
	"PENDING":   OrderStatusPending,
	"FINISHED":  OrderStatusFinished,
	"CANCELLED": OrderStatusCancelled,
}

// NewOrderStatus validates and creates an OrderStatus from a string.
func NewOrderStatus(s string) (OrderStatus, error) {
	st, ok := knownOrderStatuses[s]
	if !ok {
		return OrderStatus{}, fmt.Errorf("unknown order status %q: expected NEW, PENDING, FINISHED, or CANCELLED", s)
	}
	return st, nil
}

// String returns the string representation of the status.
func (s OrderStatus) String() string {
	return s.value
}

// IsZero returns true if the status is empty.
func (s OrderStatus) IsZero() bool {
	return s.value == ""
}

// Equal returns true if two statuses are equal.
func (s OrderStatus) Equal(other OrderStatus) bool {
	return s.value == other.value
}

// IsTerminal reports whether the status absorbs every further transition.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusFinished || s == OrderStatusCancelled
}

// CanTransitionTo reports whether next is a legal successor. Transitions
// only move forward: NEW → PENDING → FINISHED | CANCELLED. A result may
// arrive before the request was marked published, so NEW may also move
// straight to a terminal status.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case OrderStatusNew:
		return next == OrderStatusPending || next.IsTerminal()
	case OrderStatusPending:
		return next.IsTerminal()
	default:
		return false
	}
}
