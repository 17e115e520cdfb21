package contract

import "github.com/bibbank/settlement/pkg/rabbitmq"

// Broker names shared by both services.
const (
	Exchange            = "payment_exchange"
	QueuePaymentRequest = "payment_requests"
	QueuePaymentResults = "payment_results"
)

// Topology returns the exchange, queues and bindings both services declare.
// Declaring is idempotent, so either service may start first.
func Topology(exchangeKind string) rabbitmq.Topology {
	return rabbitmq.Topology{
		Exchange:     Exchange,
		ExchangeKind: exchangeKind,
		DeadLetter:   true,
		Queues: []rabbitmq.QueueBinding{
			{Queue: QueuePaymentRequest, RoutingKey: QueuePaymentRequest},
			{Queue: QueuePaymentResults, RoutingKey: QueuePaymentResults},
		},
	}
}

// RoutingKeyFor maps an outbox event type to the routing key it is published with.
func RoutingKeyFor(eventType string) (string, bool) {
	switch eventType {
	case EventPaymentRequested:
		return QueuePaymentRequest, true
	case EventPaymentSucceeded, EventPaymentFailed:
		return QueuePaymentResults, true
	default:
		return "", false
	}
}
