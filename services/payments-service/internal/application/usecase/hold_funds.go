package usecase

import (
	"context"
	"fmt"

	"github.com/bibbank/settlement/services/payments-service/internal/application/dto"
	"github.com/bibbank/settlement/services/payments-service/internal/domain/model"
	"github.com/bibbank/settlement/services/payments-service/internal/domain/port"
	"github.com/bibbank/settlement/services/payments-service/internal/domain/service"
)

// HoldFunds reserves an order's amount on the user's account.
type HoldFunds struct {
	store  port.LedgerStore
	ledger *service.Ledger
}

func NewHoldFunds(store port.LedgerStore, ledger *service.Ledger) *HoldFunds {
	return &HoldFunds{store: store, ledger: ledger}
}

func (uc *HoldFunds) Execute(ctx context.Context, req dto.HoldRequest) (dto.HoldResponse, error) {
	var acc model.Account
	err := uc.store.WithinTx(ctx, func(ctx context.Context, tx port.LedgerTx) error {
		var err error
		_, acc, err = uc.ledger.PlaceHold(ctx, tx, req.OrderID, req.UserID, req.Amount)
		return err
	})
	if err != nil {
		return dto.HoldResponse{}, fmt.Errorf("hold order %s: %w", req.OrderID, err)
	}
	return dto.HoldResponse{Status: dto.StatusHeld, OrderID: req.OrderID, Balance: acc.Balance()}, nil
}
