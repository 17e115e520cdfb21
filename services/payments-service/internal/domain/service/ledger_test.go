package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/settlement/pkg/contract"
	"github.com/bibbank/settlement/pkg/money"
	"github.com/bibbank/settlement/services/payments-service/internal/domain/model"
	"github.com/bibbank/settlement/services/payments-service/internal/domain/port"
	"github.com/bibbank/settlement/services/payments-service/internal/domain/service"
	"github.com/bibbank/settlement/services/payments-service/internal/domain/valueobject"
	"github.com/bibbank/settlement/services/payments-service/internal/infrastructure/memory"
)

var fixedNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

type fixture struct {
	store  *memory.LedgerStore
	ledger *service.Ledger
	userID uuid.UUID
}

func newFixture(t *testing.T, balance string) fixture {
	t.Helper()
	f := fixture{
		store:  memory.NewLedgerStore(),
		ledger: service.NewLedgerWithClock(func() time.Time { return fixedNow }),
		userID: uuid.New(),
	}
	f.tx(t, func(ctx context.Context, tx port.LedgerTx) error {
		if _, err := f.ledger.OpenAccount(ctx, tx, f.userID); err != nil {
			return err
		}
		if balance == "0" {
			return nil
		}
		_, err := f.ledger.Deposit(ctx, tx, f.userID, money.MustParse(balance))
		return err
	})
	return f
}

func (f fixture) tx(t *testing.T, fn func(ctx context.Context, tx port.LedgerTx) error) {
	t.Helper()
	require.NoError(t, f.store.WithinTx(context.Background(), fn))
}

func (f fixture) balance(t *testing.T) string {
	t.Helper()
	acc, err := f.store.FindAccount(context.Background(), f.userID)
	require.NoError(t, err)
	return acc.Balance().String()
}

func TestLedger_OpenAccountTwice(t *testing.T) {
	f := newFixture(t, "0")

	err := f.store.WithinTx(context.Background(), func(ctx context.Context, tx port.LedgerTx) error {
		_, err := f.ledger.OpenAccount(ctx, tx, f.userID)
		return err
	})
	assert.ErrorIs(t, err, model.ErrAccountExists)
	assert.Equal(t, "0.00", f.balance(t))
}

func TestLedger_Deposit(t *testing.T) {
	f := newFixture(t, "100")
	assert.Equal(t, "100.00", f.balance(t))

	err := f.store.WithinTx(context.Background(), func(ctx context.Context, tx port.LedgerTx) error {
		_, err := f.ledger.Deposit(ctx, tx, uuid.New(), money.MustParse("10"))
		return err
	})
	assert.ErrorIs(t, err, model.ErrAccountNotFound)

	err = f.store.WithinTx(context.Background(), func(ctx context.Context, tx port.LedgerTx) error {
		_, err := f.ledger.Deposit(ctx, tx, f.userID, money.MustParse("0"))
		return err
	})
	assert.ErrorIs(t, err, model.ErrInvalidAmount)
}

func TestLedger_PlaceHold(t *testing.T) {
	f := newFixture(t, "100")
	orderID := uuid.New()

	f.tx(t, func(ctx context.Context, tx port.LedgerTx) error {
		hold, acc, err := f.ledger.PlaceHold(ctx, tx, orderID, f.userID, money.MustParse("40"))
		require.NoError(t, err)
		assert.True(t, hold.IsOpen())
		assert.Equal(t, "60.00", acc.Balance().String())
		return nil
	})
	assert.Equal(t, "60.00", f.balance(t))

	err := f.store.WithinTx(context.Background(), func(ctx context.Context, tx port.LedgerTx) error {
		_, _, err := f.ledger.PlaceHold(ctx, tx, orderID, f.userID, money.MustParse("10"))
		return err
	})
	assert.ErrorIs(t, err, model.ErrHoldExists)
	assert.Equal(t, "60.00", f.balance(t), "a rejected hold must not debit")
}

func TestLedger_PlaceHoldInsufficientFunds(t *testing.T) {
	f := newFixture(t, "100")

	err := f.store.WithinTx(context.Background(), func(ctx context.Context, tx port.LedgerTx) error {
		_, _, err := f.ledger.PlaceHold(ctx, tx, uuid.New(), f.userID, money.MustParse("150"))
		return err
	})
	assert.ErrorIs(t, err, model.ErrInsufficientFunds)
	assert.Equal(t, "100.00", f.balance(t))
}

func TestLedger_ReleaseTwiceCreditsOnce(t *testing.T) {
	f := newFixture(t, "100")
	orderID := uuid.New()

	f.tx(t, func(ctx context.Context, tx port.LedgerTx) error {
		_, _, err := f.ledger.PlaceHold(ctx, tx, orderID, f.userID, money.MustParse("40"))
		return err
	})
	f.tx(t, func(ctx context.Context, tx port.LedgerTx) error {
		hold, acc, err := f.ledger.ReleaseHold(ctx, tx, orderID)
		require.NoError(t, err)
		assert.Equal(t, valueobject.HoldStatusReleased, hold.Status())
		assert.Equal(t, "100.00", acc.Balance().String())
		return nil
	})

	err := f.store.WithinTx(context.Background(), func(ctx context.Context, tx port.LedgerTx) error {
		_, _, err := f.ledger.ReleaseHold(ctx, tx, orderID)
		return err
	})
	assert.ErrorIs(t, err, model.ErrHoldNotFound)
	assert.Equal(t, "100.00", f.balance(t))
}

func TestLedger_CaptureHold(t *testing.T) {
	f := newFixture(t, "100")
	orderID := uuid.New()

	f.tx(t, func(ctx context.Context, tx port.LedgerTx) error {
		_, _, err := f.ledger.PlaceHold(ctx, tx, orderID, f.userID, money.MustParse("40"))
		return err
	})
	f.tx(t, func(ctx context.Context, tx port.LedgerTx) error {
		hold, err := f.ledger.CaptureHold(ctx, tx, orderID)
		require.NoError(t, err)
		assert.Equal(t, valueobject.HoldStatusCaptured, hold.Status())
		return nil
	})
	assert.Equal(t, "60.00", f.balance(t), "capture does not debit again")

	err := f.store.WithinTx(context.Background(), func(ctx context.Context, tx port.LedgerTx) error {
		_, _, err := f.ledger.ReleaseHold(ctx, tx, orderID)
		return err
	})
	assert.ErrorIs(t, err, model.ErrHoldNotFound, "a captured hold cannot be released")
	assert.Equal(t, "60.00", f.balance(t))
}

func TestLedger_ApplyDirectDebit(t *testing.T) {
	tests := []struct {
		name        string
		balance     string
		amount      string
		unknownUser bool
		wantReason  string
		wantBalance string
	}{
		{name: "debited", balance: "100", amount: "40", wantBalance: "60.00"},
		{name: "insufficient funds", balance: "100", amount: "150", wantReason: contract.ReasonInsufficientFunds, wantBalance: "100.00"},
		{name: "no account", balance: "100", amount: "40", unknownUser: true, wantReason: contract.ReasonNoAccount, wantBalance: "100.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.balance)
			userID := f.userID
			if tt.unknownUser {
				userID = uuid.New()
			}

			f.tx(t, func(ctx context.Context, tx port.LedgerTx) error {
				outcome, err := f.ledger.ApplyDirectDebit(ctx, tx, userID, money.MustParse(tt.amount))
				require.NoError(t, err)
				assert.Equal(t, tt.wantReason, outcome.Reason)
				assert.Equal(t, tt.wantReason == "", outcome.OK())
				return nil
			})
			assert.Equal(t, tt.wantBalance, f.balance(t))
		})
	}
}

func TestLedger_Settle(t *testing.T) {
	tests := []struct {
		name        string
		balance     string
		setup       func(t *testing.T, f fixture, orderID uuid.UUID)
		reqAmount   string
		wantResult  string
		wantReason  string
		wantBalance string
		wantHold    valueobject.HoldStatus
	}{
		{
			name:    "captures matching hold",
			balance: "100",
			setup: func(t *testing.T, f fixture, orderID uuid.UUID) {
				f.tx(t, func(ctx context.Context, tx port.LedgerTx) error {
					_, _, err := f.ledger.PlaceHold(ctx, tx, orderID, f.userID, money.MustParse("40"))
					return err
				})
			},
			reqAmount:   "40",
			wantResult:  contract.ResultSuccess,
			wantBalance: "60.00",
			wantHold:    valueobject.HoldStatusCaptured,
		},
		{
			name:    "releases mismatched hold",
			balance: "100",
			setup: func(t *testing.T, f fixture, orderID uuid.UUID) {
				f.tx(t, func(ctx context.Context, tx port.LedgerTx) error {
					_, _, err := f.ledger.PlaceHold(ctx, tx, orderID, f.userID, money.MustParse("30"))
					return err
				})
			},
			reqAmount:   "40",
			wantResult:  contract.ResultFailed,
			wantReason:  contract.ReasonHoldMismatch,
			wantBalance: "100.00",
			wantHold:    valueobject.HoldStatusReleased,
		},
		{
			name:    "released hold fails the order",
			balance: "100",
			setup: func(t *testing.T, f fixture, orderID uuid.UUID) {
				f.tx(t, func(ctx context.Context, tx port.LedgerTx) error {
					if _, _, err := f.ledger.PlaceHold(ctx, tx, orderID, f.userID, money.MustParse("40")); err != nil {
						return err
					}
					_, _, err := f.ledger.ReleaseHold(ctx, tx, orderID)
					return err
				})
			},
			reqAmount:   "40",
			wantResult:  contract.ResultFailed,
			wantReason:  contract.ReasonHoldClosed,
			wantBalance: "100.00",
			wantHold:    valueobject.HoldStatusReleased,
		},
		{
			name:    "already captured hold is a success",
			balance: "100",
			setup: func(t *testing.T, f fixture, orderID uuid.UUID) {
				f.tx(t, func(ctx context.Context, tx port.LedgerTx) error {
					if _, _, err := f.ledger.PlaceHold(ctx, tx, orderID, f.userID, money.MustParse("40")); err != nil {
						return err
					}
					_, err := f.ledger.CaptureHold(ctx, tx, orderID)
					return err
				})
			},
			reqAmount:   "40",
			wantResult:  contract.ResultSuccess,
			wantBalance: "60.00",
			wantHold:    valueobject.HoldStatusCaptured,
		},
		{
			name:        "no hold falls back to direct debit",
			balance:     "100",
			reqAmount:   "40",
			wantResult:  contract.ResultSuccess,
			wantBalance: "60.00",
		},
		{
			name:        "no hold and short balance",
			balance:     "10",
			reqAmount:   "40",
			wantResult:  contract.ResultFailed,
			wantReason:  contract.ReasonInsufficientFunds,
			wantBalance: "10.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.balance)
			orderID := uuid.New()
			if tt.setup != nil {
				tt.setup(t, f, orderID)
			}

			req := contract.PaymentRequested{OrderID: orderID, UserID: f.userID, Amount: money.MustParse(tt.reqAmount)}
			f.tx(t, func(ctx context.Context, tx port.LedgerTx) error {
				result, err := f.ledger.Settle(ctx, tx, req)
				require.NoError(t, err)
				assert.Equal(t, tt.wantResult, result.Result)
				assert.Equal(t, tt.wantReason, result.Reason)
				assert.Equal(t, orderID, result.OrderID)
				assert.Equal(t, f.userID, result.UserID)
				return nil
			})

			assert.Equal(t, tt.wantBalance, f.balance(t))
			if !tt.wantHold.IsZero() {
				hold, ok := f.store.Hold(orderID)
				require.True(t, ok)
				assert.Equal(t, tt.wantHold, hold.Status())
			}
		})
	}
}

func TestLedger_SettleUnknownAccount(t *testing.T) {
	f := newFixture(t, "100")
	req := contract.PaymentRequested{OrderID: uuid.New(), UserID: uuid.New(), Amount: money.MustParse("5")}

	f.tx(t, func(ctx context.Context, tx port.LedgerTx) error {
		result, err := f.ledger.Settle(ctx, tx, req)
		require.NoError(t, err)
		assert.Equal(t, contract.ResultFailed, result.Result)
		assert.Equal(t, contract.ReasonNoAccount, result.Reason)
		return nil
	})
}
