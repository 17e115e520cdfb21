package model

import "errors"

// Ledger errors. Callers match them with errors.Is.
var (
	ErrAccountExists     = errors.New("account already exists")
	ErrAccountNotFound   = errors.New("account not found")
	ErrInsufficientFunds = errors.New("insufficient_funds")
	ErrHoldExists        = errors.New("hold already exists")
	ErrHoldNotFound      = errors.New("hold not found")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInvalidUser       = errors.New("user id is required")
	ErrInvalidOrder      = errors.New("order id is required")
)
