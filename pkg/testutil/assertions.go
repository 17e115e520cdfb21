package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bibbank/settlement/pkg/money"
)

// AssertAmount compares amounts by value so "10" and "10.00" are equal.
func AssertAmount(t *testing.T, expected string, actual money.Amount) {
	t.Helper()
	assert.Truef(t, money.MustParse(expected).Equal(actual), "expected amount %s, got %s", expected, actual)
}
