package usecase

import (
	"context"
	"fmt"

	"github.com/bibbank/settlement/services/payments-service/internal/application/dto"
	"github.com/bibbank/settlement/services/payments-service/internal/domain/model"
	"github.com/bibbank/settlement/services/payments-service/internal/domain/port"
	"github.com/bibbank/settlement/services/payments-service/internal/domain/service"
)

// Deposit credits funds to an existing account.
type Deposit struct {
	store  port.LedgerStore
	ledger *service.Ledger
}

func NewDeposit(store port.LedgerStore, ledger *service.Ledger) *Deposit {
	return &Deposit{store: store, ledger: ledger}
}

func (uc *Deposit) Execute(ctx context.Context, req dto.DepositRequest) (dto.AccountResponse, error) {
	var acc model.Account
	err := uc.store.WithinTx(ctx, func(ctx context.Context, tx port.LedgerTx) error {
		var err error
		acc, err = uc.ledger.Deposit(ctx, tx, req.UserID, req.Amount)
		return err
	})
	if err != nil {
		return dto.AccountResponse{}, fmt.Errorf("deposit to %s: %w", req.UserID, err)
	}
	return dto.FromAccount(acc), nil
}
