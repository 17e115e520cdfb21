package rabbitmq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// QueueBinding is a durable queue bound to the topology exchange.
type QueueBinding struct {
	Queue      string
	RoutingKey string
}

// Topology is one durable exchange with its queues. With DeadLetter set,
// every queue dead-letters into "<exchange>.dlx" and gets a "<queue>.dlq"
// companion that collects rejected messages.
type Topology struct {
	Exchange     string
	ExchangeKind string
	Queues       []QueueBinding
	DeadLetter   bool
}

// Declarer is the subset of *amqp.Channel used to declare a topology.
type Declarer interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
}

// DeadLetterExchange returns the name of the dead-letter exchange.
func (t Topology) DeadLetterExchange() string {
	return t.Exchange + ".dlx"
}

// DeadLetterQueue returns the name of the dead-letter queue for queue.
func DeadLetterQueue(queue string) string {
	return queue + ".dlq"
}

// Declare creates the exchange, queues and bindings. All declarations are
// idempotent as long as the existing entities have the same arguments.
func (t Topology) Declare(ch Declarer) error {
	kind := t.ExchangeKind
	if kind == "" {
		kind = amqp.ExchangeTopic
	}

	if err := ch.ExchangeDeclare(t.Exchange, kind, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq: declare exchange %s: %w", t.Exchange, err)
	}

	if t.DeadLetter {
		dlx := t.DeadLetterExchange()
		if err := ch.ExchangeDeclare(dlx, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
			return fmt.Errorf("rabbitmq: declare exchange %s: %w", dlx, err)
		}
	}

	for _, b := range t.Queues {
		var args amqp.Table
		if t.DeadLetter {
			args = amqp.Table{
				"x-dead-letter-exchange":    t.DeadLetterExchange(),
				"x-dead-letter-routing-key": b.Queue,
			}
		}

		if _, err := ch.QueueDeclare(b.Queue, true, false, false, false, args); err != nil {
			return fmt.Errorf("rabbitmq: declare queue %s: %w", b.Queue, err)
		}
		if err := ch.QueueBind(b.Queue, b.RoutingKey, t.Exchange, false, nil); err != nil {
			return fmt.Errorf("rabbitmq: bind queue %s to %s: %w", b.Queue, t.Exchange, err)
		}

		if t.DeadLetter {
			dlq := DeadLetterQueue(b.Queue)
			if _, err := ch.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
				return fmt.Errorf("rabbitmq: declare queue %s: %w", dlq, err)
			}
			if err := ch.QueueBind(dlq, b.Queue, t.DeadLetterExchange(), false, nil); err != nil {
				return fmt.Errorf("rabbitmq: bind queue %s: %w", dlq, err)
			}
		}
	}

	return nil
}
