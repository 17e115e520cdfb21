package testutil

import (
	"io"
	"log/slog"

	"github.com/bibbank/settlement/pkg/money"
)

// Amount parses a decimal literal, panicking on malformed input.
func Amount(s string) money.Amount {
	return money.MustParse(s)
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
