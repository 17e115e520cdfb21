package model

import "errors"

// Order errors. Callers match them with errors.Is.
var (
	ErrOrderNotFound = errors.New("order not found")
	ErrOrderExists   = errors.New("order already exists")
	ErrInvalidAmount = errors.New("amount must be positive")
	ErrInvalidUser   = errors.New("user id is required")
)
