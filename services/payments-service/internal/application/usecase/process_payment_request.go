package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bibbank/settlement/pkg/contract"
	"github.com/bibbank/settlement/pkg/inbox"
	"github.com/bibbank/settlement/pkg/outbox"
	"github.com/bibbank/settlement/services/payments-service/internal/domain/event"
	"github.com/bibbank/settlement/services/payments-service/internal/domain/port"
	"github.com/bibbank/settlement/services/payments-service/internal/domain/service"
)

// InboxConsumer labels the payment-request inbox in metrics.
const InboxConsumer = "payments"

// ProcessResult tells the caller what happened to a payment request.
type ProcessResult struct {
	Outcome inbox.Outcome
	// Result is zero for a duplicate.
	Result contract.PaymentResult
}

// ProcessPaymentRequest settles a PaymentRequested exactly once. The inbox
// admission, the ledger change and the result event share one transaction.
type ProcessPaymentRequest struct {
	store  port.LedgerStore
	ledger *service.Ledger
	now    func() time.Time
}

func NewProcessPaymentRequest(store port.LedgerStore, ledger *service.Ledger) *ProcessPaymentRequest {
	return &ProcessPaymentRequest{store: store, ledger: ledger, now: time.Now}
}

func (uc *ProcessPaymentRequest) Execute(ctx context.Context, req contract.PaymentRequested) (ProcessResult, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("marshal payment request: %w", err)
	}
	rec := inbox.Record{
		MessageID:   req.OrderID,
		EventType:   contract.EventPaymentRequested,
		Payload:     payload,
		ProcessedAt: uc.now().UTC(),
	}

	var res ProcessResult
	err = uc.store.WithinTx(ctx, func(ctx context.Context, tx port.LedgerTx) error {
		outcome, err := inbox.Guard(ctx, inbox.GateFunc(tx.AdmitInbox), InboxConsumer, rec, func(ctx context.Context) error {
			result, err := uc.ledger.Settle(ctx, tx, req)
			if err != nil {
				return err
			}
			entry, err := outbox.FromEvent(event.NewPaymentSettled(result, uc.now()))
			if err != nil {
				return err
			}
			if err := tx.AppendOutbox(ctx, entry); err != nil {
				return err
			}
			res.Result = result
			return nil
		})
		res.Outcome = outcome
		return err
	})
	if err != nil {
		return ProcessResult{}, fmt.Errorf("process payment request %s: %w", req.OrderID, err)
	}
	return res, nil
}
