package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bibbank/settlement/services/payments-service/internal/application/dto"
	"github.com/bibbank/settlement/services/payments-service/internal/domain/model"
	"github.com/bibbank/settlement/services/payments-service/internal/domain/port"
	"github.com/bibbank/settlement/services/payments-service/internal/domain/service"
)

// ReleaseHold returns the funds of an open hold to its account.
type ReleaseHold struct {
	store  port.LedgerStore
	ledger *service.Ledger
}

func NewReleaseHold(store port.LedgerStore, ledger *service.Ledger) *ReleaseHold {
	return &ReleaseHold{store: store, ledger: ledger}
}

func (uc *ReleaseHold) Execute(ctx context.Context, req dto.OrderRefRequest) (dto.HoldResponse, error) {
	var acc model.Account
	err := uc.store.WithinTx(ctx, func(ctx context.Context, tx port.LedgerTx) error {
		if err := ownHold(ctx, tx, req); err != nil {
			return err
		}
		var err error
		_, acc, err = uc.ledger.ReleaseHold(ctx, tx, req.OrderID)
		return err
	})
	if err != nil {
		return dto.HoldResponse{}, fmt.Errorf("release order %s: %w", req.OrderID, err)
	}
	return dto.HoldResponse{Status: dto.StatusReleased, OrderID: req.OrderID, Balance: acc.Balance()}, nil
}

// CaptureHold finalizes an open hold.
type CaptureHold struct {
	store  port.LedgerStore
	ledger *service.Ledger
}

func NewCaptureHold(store port.LedgerStore, ledger *service.Ledger) *CaptureHold {
	return &CaptureHold{store: store, ledger: ledger}
}

func (uc *CaptureHold) Execute(ctx context.Context, req dto.OrderRefRequest) (dto.HoldResponse, error) {
	var acc model.Account
	err := uc.store.WithinTx(ctx, func(ctx context.Context, tx port.LedgerTx) error {
		if err := ownHold(ctx, tx, req); err != nil {
			return err
		}
		hold, err := uc.ledger.CaptureHold(ctx, tx, req.OrderID)
		if err != nil {
			return err
		}
		acc, err = tx.LockAccount(ctx, hold.UserID())
		return err
	})
	if err != nil {
		return dto.HoldResponse{}, fmt.Errorf("capture order %s: %w", req.OrderID, err)
	}
	return dto.HoldResponse{Status: dto.StatusCaptured, OrderID: req.OrderID, Balance: acc.Balance()}, nil
}

// ownHold hides another user's hold behind ErrHoldNotFound. A zero user id
// skips the check.
func ownHold(ctx context.Context, tx port.LedgerTx, req dto.OrderRefRequest) error {
	if req.UserID == uuid.Nil {
		return nil
	}
	hold, err := tx.LockHold(ctx, req.OrderID)
	if err != nil {
		return err
	}
	if hold.UserID() != req.UserID {
		return fmt.Errorf("%w: order %s", model.ErrHoldNotFound, req.OrderID)
	}
	return nil
}
