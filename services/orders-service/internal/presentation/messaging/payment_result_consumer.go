// Package messaging consumes payment results from the broker.
package messaging

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bibbank/settlement/pkg/contract"
	"github.com/bibbank/settlement/pkg/rabbitmq"
	"github.com/bibbank/settlement/services/orders-service/internal/application/usecase"
	"github.com/bibbank/settlement/services/orders-service/internal/domain/model"
)

// PaymentResultApplier applies one decoded payment result to its order.
type PaymentResultApplier interface {
	Execute(ctx context.Context, result contract.PaymentResult) (usecase.ApplyResult, error)
}

// PaymentResultConsumer adapts PaymentResultApplier to a broker handler.
type PaymentResultConsumer struct {
	applier PaymentResultApplier
	logger  *slog.Logger
}

func NewPaymentResultConsumer(applier PaymentResultApplier, logger *slog.Logger) *PaymentResultConsumer {
	return &PaymentResultConsumer{
		applier: applier,
		logger:  logger.With("component", "payment_result_consumer"),
	}
}

// Handle implements rabbitmq.Handler. Malformed bodies are dead-lettered and
// results for unknown orders are acknowledged; neither can ever apply.
func (c *PaymentResultConsumer) Handle(ctx context.Context, d rabbitmq.Delivery) error {
	result, err := contract.DecodePaymentResult(d.Body)
	if err != nil {
		c.logger.Warn("dropping malformed payment result",
			"message_id", d.MessageID,
			"redelivered", d.Redelivered,
			"error", err,
		)
		if errors.Is(err, contract.ErrMalformedMessage) {
			return rabbitmq.Reject(err)
		}
		return err
	}

	res, err := c.applier.Execute(ctx, result)
	switch {
	case errors.Is(err, model.ErrOrderNotFound):
		c.logger.Warn("payment result for unknown order", "order_id", result.OrderID)
		return nil
	case err != nil:
		c.logger.Error("payment result failed, requeueing",
			"order_id", result.OrderID,
			"error", err,
		)
		return err
	}

	if !res.Changed {
		c.logger.Info("payment result ignored, order already terminal",
			"order_id", result.OrderID,
			"status", res.Status.String(),
		)
		return nil
	}
	c.logger.Info("order settled",
		"order_id", result.OrderID,
		"status", res.Status.String(),
		"reason", result.Reason,
	)
	return nil
}
