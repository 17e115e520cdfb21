package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bibbank/settlement/services/payments-service/internal/application/dto"
	"github.com/bibbank/settlement/services/payments-service/internal/domain/port"
)

// GetAccount reads an account snapshot.
type GetAccount struct {
	store port.LedgerStore
}

func NewGetAccount(store port.LedgerStore) *GetAccount {
	return &GetAccount{store: store}
}

func (uc *GetAccount) Execute(ctx context.Context, userID uuid.UUID) (dto.AccountResponse, error) {
	acc, err := uc.store.FindAccount(ctx, userID)
	if err != nil {
		return dto.AccountResponse{}, fmt.Errorf("get account: %w", err)
	}
	return dto.FromAccount(acc), nil
}
