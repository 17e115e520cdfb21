package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/settlement/pkg/contract"
	"github.com/bibbank/settlement/pkg/money"
	"github.com/bibbank/settlement/services/payments-service/internal/domain/model"
	"github.com/bibbank/settlement/services/payments-service/internal/domain/port"
)

// DebitOutcome is the result of a direct debit. A refused debit is a
// business outcome, not an error.
type DebitOutcome struct {
	Account model.Account
	// Reason is empty on success, otherwise a contract failure reason.
	Reason string
}

// OK reports whether the debit went through.
func (o DebitOutcome) OK() bool {
	return o.Reason == ""
}

// Ledger implements the balance operations over a LedgerTx. Every method
// expects to run inside LedgerStore.WithinTx; rows are locked hold first,
// then account.
type Ledger struct {
	now func() time.Time
}

// NewLedger creates a Ledger using the wall clock.
func NewLedger() *Ledger {
	return NewLedgerWithClock(time.Now)
}

// NewLedgerWithClock creates a Ledger with an injected clock.
func NewLedgerWithClock(now func() time.Time) *Ledger {
	return &Ledger{now: now}
}

// OpenAccount creates an account with a zero balance.
func (l *Ledger) OpenAccount(ctx context.Context, tx port.LedgerTx, userID uuid.UUID) (model.Account, error) {
	acc, err := model.NewAccount(userID, l.now())
	if err != nil {
		return model.Account{}, err
	}
	if err := tx.InsertAccount(ctx, acc); err != nil {
		return model.Account{}, err
	}
	return acc, nil
}

// Deposit credits amount to the user's account.
func (l *Ledger) Deposit(ctx context.Context, tx port.LedgerTx, userID uuid.UUID, amount money.Amount) (model.Account, error) {
	if !amount.IsPositive() {
		return model.Account{}, fmt.Errorf("%w, got: %s", model.ErrInvalidAmount, amount)
	}

	acc, err := tx.LockAccount(ctx, userID)
	if err != nil {
		return model.Account{}, err
	}
	acc, err = acc.Credit(amount, l.now())
	if err != nil {
		return model.Account{}, err
	}
	if err := tx.UpdateAccount(ctx, acc); err != nil {
		return model.Account{}, err
	}
	return acc, nil
}

// PlaceHold moves amount out of the balance into an open hold for orderID.
// The balance check and the debit happen under the same account lock.
func (l *Ledger) PlaceHold(ctx context.Context, tx port.LedgerTx, orderID, userID uuid.UUID, amount money.Amount) (model.Hold, model.Account, error) {
	now := l.now()
	hold, err := model.NewHold(orderID, userID, amount, now)
	if err != nil {
		return model.Hold{}, model.Account{}, err
	}

	acc, err := tx.LockAccount(ctx, userID)
	if err != nil {
		return model.Hold{}, model.Account{}, err
	}
	acc, err = acc.Debit(amount, now)
	if err != nil {
		return model.Hold{}, model.Account{}, err
	}

	if err := tx.InsertHold(ctx, hold); err != nil {
		return model.Hold{}, model.Account{}, err
	}
	if err := tx.UpdateAccount(ctx, acc); err != nil {
		return model.Hold{}, model.Account{}, err
	}
	return hold, acc, nil
}

// ReleaseHold closes the open hold for orderID and credits its amount back.
// Releasing twice fails with model.ErrHoldNotFound, so funds return once.
func (l *Ledger) ReleaseHold(ctx context.Context, tx port.LedgerTx, orderID uuid.UUID) (model.Hold, model.Account, error) {
	now := l.now()

	hold, err := tx.LockHold(ctx, orderID)
	if err != nil {
		return model.Hold{}, model.Account{}, err
	}
	released, err := hold.Release(now)
	if err != nil {
		return model.Hold{}, model.Account{}, err
	}

	acc, err := tx.LockAccount(ctx, hold.UserID())
	if err != nil {
		return model.Hold{}, model.Account{}, err
	}
	acc, err = acc.Credit(hold.Amount(), now)
	if err != nil {
		return model.Hold{}, model.Account{}, err
	}

	if err := tx.UpdateAccount(ctx, acc); err != nil {
		return model.Hold{}, model.Account{}, err
	}
	if err := tx.UpdateHold(ctx, released); err != nil {
		return model.Hold{}, model.Account{}, err
	}
	return released, acc, nil
}

// CaptureHold finalizes the open hold for orderID. The balance was already
// reduced when the hold was placed.
func (l *Ledger) CaptureHold(ctx context.Context, tx port.LedgerTx, orderID uuid.UUID) (model.Hold, error) {
	hold, err := tx.LockHold(ctx, orderID)
	if err != nil {
		return model.Hold{}, err
	}
	captured, err := hold.Capture(l.now())
	if err != nil {
		return model.Hold{}, err
	}
	if err := tx.UpdateHold(ctx, captured); err != nil {
		return model.Hold{}, err
	}
	return captured, nil
}

// ApplyDirectDebit debits amount without a hold. A missing account or a
// short balance is reported through the outcome.
func (l *Ledger) ApplyDirectDebit(ctx context.Context, tx port.LedgerTx, userID uuid.UUID, amount money.Amount) (DebitOutcome, error) {
	acc, err := tx.LockAccount(ctx, userID)
	if errors.Is(err, model.ErrAccountNotFound) {
		return DebitOutcome{Reason: contract.ReasonNoAccount}, nil
	}
	if err != nil {
		return DebitOutcome{}, err
	}

	debited, err := acc.Debit(amount, l.now())
	if errors.Is(err, model.ErrInsufficientFunds) {
		return DebitOutcome{Account: acc, Reason: contract.ReasonInsufficientFunds}, nil
	}
	if err != nil {
		return DebitOutcome{}, err
	}

	if err := tx.UpdateAccount(ctx, debited); err != nil {
		return DebitOutcome{}, err
	}
	return DebitOutcome{Account: debited}, nil
}

// Settle decides a payment request. A hold placed for the order is
// authoritative: a matching open hold is captured, a mismatching one is
// released, a released one fails the order. Only an order with no hold at
// all is direct-debited, so no order is ever charged twice.
func (l *Ledger) Settle(ctx context.Context, tx port.LedgerTx, req contract.PaymentRequested) (contract.PaymentResult, error) {
	result := contract.PaymentResult{
		OrderID: req.OrderID,
		UserID:  req.UserID,
		Amount:  req.Amount,
	}

	hold, err := tx.LockHold(ctx, req.OrderID)
	switch {
	case errors.Is(err, model.ErrHoldNotFound):
		outcome, err := l.ApplyDirectDebit(ctx, tx, req.UserID, req.Amount)
		if err != nil {
			return contract.PaymentResult{}, fmt.Errorf("direct debit for order %s: %w", req.OrderID, err)
		}
		return settled(result, outcome.Reason), nil

	case err != nil:
		return contract.PaymentResult{}, err

	case !hold.IsOpen():
		if hold.CapturedAt() != nil && hold.Matches(req.UserID, req.Amount) {
			return settled(result, ""), nil
		}
		return settled(result, contract.ReasonHoldClosed), nil

	case !hold.Matches(req.UserID, req.Amount):
		if _, _, err := l.ReleaseHold(ctx, tx, req.OrderID); err != nil {
			return contract.PaymentResult{}, fmt.Errorf("release mismatched hold %s: %w", req.OrderID, err)
		}
		return settled(result, contract.ReasonHoldMismatch), nil

	default:
		if _, err := l.CaptureHold(ctx, tx, req.OrderID); err != nil {
			return contract.PaymentResult{}, fmt.Errorf("capture hold %s: %w", req.OrderID, err)
		}
		return settled(result, ""), nil
	}
}

func settled(r contract.PaymentResult, reason string) contract.PaymentResult {
	if reason == "" {
		r.Result = contract.ResultSuccess
		return r
	}
	r.Result = contract.ResultFailed
	r.Reason = reason
	return r
}
