package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/settlement/pkg/money"
)

// Account is a user's balance in the ledger. Values are immutable;
// transitions return an updated copy.
type Account struct {
	userID    uuid.UUID
	balance   money.Amount
	createdAt time.Time
	updatedAt time.Time
}

// NewAccount opens an account with a zero balance.
func NewAccount(userID uuid.UUID, now time.Time) (Account, error) {
	if userID == uuid.Nil {
		return Account{}, ErrInvalidUser
	}
	now = now.UTC()
	return Account{
		userID:    userID,
		balance:   money.Zero,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// ReconstructAccount recreates an Account from persistence (no validation).
func ReconstructAccount(userID uuid.UUID, balance money.Amount, createdAt, updatedAt time.Time) Account {
	return Account{
		userID:    userID,
		balance:   balance,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

// Credit adds amount to the balance (immutable - returns new copy).
func (a Account) Credit(amount money.Amount, now time.Time) (Account, error) {
	if !amount.IsPositive() {
		return Account{}, fmt.Errorf("%w, got: %s", ErrInvalidAmount, amount)
	}
	balance := a.balance.Add(amount)
	if !balance.InRange() {
		return Account{}, fmt.Errorf("%w: balance %s plus %s exceeds %s", ErrInvalidAmount, a.balance, amount, money.Max)
	}
	updated := a
	updated.balance = balance
	updated.updatedAt = now.UTC()
	return updated, nil
}

// Debit removes amount from the balance. The balance never goes negative.
func (a Account) Debit(amount money.Amount, now time.Time) (Account, error) {
	if !amount.IsPositive() {
		return Account{}, fmt.Errorf("%w, got: %s", ErrInvalidAmount, amount)
	}
	if !a.CanCover(amount) {
		return Account{}, fmt.Errorf("%w: balance %s, requested %s", ErrInsufficientFunds, a.balance, amount)
	}
	updated := a
	updated.balance = a.balance.Sub(amount)
	updated.updatedAt = now.UTC()
	return updated, nil
}

// CanCover reports whether the balance is at least amount.
func (a Account) CanCover(amount money.Amount) bool {
	return !a.balance.LessThan(amount)
}

// Accessors

func (a Account) UserID() uuid.UUID     { return a.userID }
func (a Account) Balance() money.Amount { return a.balance }
func (a Account) CreatedAt() time.Time  { return a.createdAt }
func (a Account) UpdatedAt() time.Time  { return a.updatedAt }
