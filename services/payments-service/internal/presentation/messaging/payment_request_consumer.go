// Package messaging consumes payment requests from the broker.
package messaging

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bibbank/settlement/pkg/contract"
	"github.com/bibbank/settlement/pkg/inbox"
	"github.com/bibbank/settlement/pkg/rabbitmq"
	"github.com/bibbank/settlement/services/payments-service/internal/application/usecase"
)

// PaymentRequestProcessor settles one decoded payment request.
type PaymentRequestProcessor interface {
	Execute(ctx context.Context, req contract.PaymentRequested) (usecase.ProcessResult, error)
}

// PaymentRequestConsumer adapts PaymentRequestProcessor to a broker handler.
type PaymentRequestConsumer struct {
	processor PaymentRequestProcessor
	logger    *slog.Logger
}

func NewPaymentRequestConsumer(processor PaymentRequestProcessor, logger *slog.Logger) *PaymentRequestConsumer {
	return &PaymentRequestConsumer{
		processor: processor,
		logger:    logger.With("component", "payment_request_consumer"),
	}
}

// Handle implements rabbitmq.Handler. Malformed bodies are dead-lettered;
// any other failure is returned so the delivery is requeued.
func (c *PaymentRequestConsumer) Handle(ctx context.Context, d rabbitmq.Delivery) error {
	req, err := contract.DecodePaymentRequested(d.Body)
	if err != nil {
		c.logger.Warn("dropping malformed payment request",
			"message_id", d.MessageID,
			"redelivered", d.Redelivered,
			"error", err,
		)
		if errors.Is(err, contract.ErrMalformedMessage) {
			return rabbitmq.Reject(err)
		}
		return err
	}

	res, err := c.processor.Execute(ctx, req)
	if err != nil {
		c.logger.Error("payment request failed, requeueing",
			"order_id", req.OrderID,
			"error", err,
		)
		return err
	}

	if res.Outcome == inbox.Duplicate {
		c.logger.Info("duplicate payment request ignored", "order_id", req.OrderID)
		return nil
	}
	c.logger.Info("payment request settled",
		"order_id", req.OrderID,
		"user_id", req.UserID,
		"amount", req.Amount.String(),
		"result", res.Result.Result,
		"reason", res.Result.Reason,
	)
	return nil
}
