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

// CreateAccount opens a zero-balance account for a user.
type CreateAccount struct {
	store  port.LedgerStore
	ledger *service.Ledger
}

func NewCreateAccount(store port.LedgerStore, ledger *service.Ledger) *CreateAccount {
	return &CreateAccount{store: store, ledger: ledger}
}

func (uc *CreateAccount) Execute(ctx context.Context, userID uuid.UUID) (dto.AccountResponse, error) {
	var acc model.Account
	err := uc.store.WithinTx(ctx, func(ctx context.Context, tx port.LedgerTx) error {
		var err error
		acc, err = uc.ledger.OpenAccount(ctx, tx, userID)
		return err
	})
	if err != nil {
		return dto.AccountResponse{}, fmt.Errorf("create account %s: %w", userID, err)
	}
	return dto.FromAccount(acc), nil
}
