package money

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits kept for every amount. It matches
// the NUMERIC(18,2) columns amounts are stored in.
const Scale = 2

// maxIntegerDigits is the integer part NUMERIC(18,2) leaves room for.
const maxIntegerDigits = 18 - Scale

// ErrOutOfRange is returned for amounts that do not fit NUMERIC(18,2).
var ErrOutOfRange = errors.New("amount out of range")

// Max is the largest storable amount, 9999999999999999.99.
var Max = Amount{d: decimal.New(999999999999999999, -Scale)}

// Amount is an immutable fixed-point monetary amount with two decimal places.
// The zero value is a valid zero amount.
type Amount struct {
	d decimal.Decimal
}

// Zero is the zero amount.
var Zero = Amount{}

// New rounds d to Scale and wraps it.
func New(d decimal.Decimal) Amount {
	return Amount{d: d.Round(Scale)}
}

// FromInt returns an amount of n whole units.
func FromInt(n int64) Amount {
	return Amount{d: decimal.NewFromInt(n)}
}

// Parse parses a decimal string such as "40", "40.5" or "40.50". Amounts
// beyond Max in either direction fail with ErrOutOfRange.
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	a, err := fromDecimal(d)
	if err != nil {
		return Amount{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return a, nil
}

// fromDecimal bounds d by its digit count before Round touches it, since
// rounding or formatting a value like 1e200000000 materializes every digit.
func fromDecimal(d decimal.Decimal) (Amount, error) {
	if d.IsZero() {
		return Zero, nil
	}
	// Magnitude is below 10^intDigits.
	intDigits := int64(len(d.Coefficient().Text(10))) + int64(d.Exponent())
	if d.IsNegative() {
		intDigits-- // leading minus sign
	}
	switch {
	case intDigits > maxIntegerDigits:
		return Amount{}, ErrOutOfRange
	case intDigits < -Scale:
		return Zero, nil
	}
	a := New(d)
	if a.d.Abs().GreaterThan(Max.d) {
		return Amount{}, ErrOutOfRange
	}
	return a, nil
}

// MustParse is Parse that panics on error. Intended for constants and tests.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Decimal returns the underlying decimal value.
func (a Amount) Decimal() decimal.Decimal {
	return a.d
}

func (a Amount) IsZero() bool     { return a.d.IsZero() }
func (a Amount) IsPositive() bool { return a.d.IsPositive() }
func (a Amount) IsNegative() bool { return a.d.IsNegative() }

// InRange reports whether a fits NUMERIC(18,2). Sums of in-range amounts
// may not.
func (a Amount) InRange() bool { return a.d.Abs().LessThanOrEqual(Max.d) }

// Add returns a + other.
func (a Amount) Add(other Amount) Amount {
	return Amount{d: a.d.Add(other.d)}
}

// Sub returns a - other. The result may be negative; callers that guard a
// balance must check before subtracting.
func (a Amount) Sub(other Amount) Amount {
	return Amount{d: a.d.Sub(other.d)}
}

// Cmp compares a and other and returns -1, 0 or +1.
func (a Amount) Cmp(other Amount) int {
	return a.d.Cmp(other.d)
}

func (a Amount) Equal(other Amount) bool       { return a.d.Equal(other.d) }
func (a Amount) LessThan(other Amount) bool    { return a.d.LessThan(other.d) }
func (a Amount) GreaterThan(other Amount) bool { return a.d.GreaterThan(other.d) }

// String formats the amount with exactly two decimals, e.g. "40.00".
func (a Amount) String() string {
	return a.d.StringFixed(Scale)
}

// MarshalJSON encodes the amount as a JSON number with two decimals.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return fmt.Errorf("invalid amount: null")
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("invalid amount: %w", err)
		}
		data = []byte(s)
	}
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Scan implements sql.Scanner so NUMERIC columns can be read directly.
func (a *Amount) Scan(src any) error {
	var d decimal.Decimal
	if err := d.Scan(src); err != nil {
		return fmt.Errorf("scan amount: %w", err)
	}
	parsed, err := fromDecimal(d)
	if err != nil {
		return fmt.Errorf("scan amount: %w", err)
	}
	*a = parsed
	return nil
}

// Value implements driver.Valuer.
func (a Amount) Value() (driver.Value, error) {
	return a.String(), nil
}
