// Package valueobjects holds small immutable domain values.
package valueobjects

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/NomadCrew/nomad-budget-backend/errors"
	"github.com/shopspring/decimal"
)

// Currency is an ISO 4217 code.
type Currency string

const (
	INR Currency = "INR"
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
)

// DefaultCurrency is what budgets and expenses are recorded in.
const DefaultCurrency = INR

var currencySymbols = map[Currency]string{
	INR: "₹",
	USD: "$",
	EUR: "€",
	GBP: "£",
}

const (
	ErrInvalidAmount    = "INVALID_AMOUNT"
	ErrInvalidCurrency  = "INVALID_CURRENCY"
	ErrCurrencyMismatch = "CURRENCY_MISMATCH"
)

// Money is a non-negative amount in one currency with at most two decimals.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney validates and builds a Money value.
func NewMoney(amount decimal.Decimal, currency Currency) (*Money, error) {
	if _, ok := currencySymbols[currency]; !ok {
		return nil, errors.ValidationFailed(
			ErrInvalidCurrency,
			fmt.Sprintf("currency %s is not supported", currency),
		)
	}
	if amount.IsNegative() {
		return nil, errors.ValidationFailed(ErrInvalidAmount, "amount cannot be negative")
	}
	if amount.Exponent() < -2 && !amount.Equal(amount.Round(2)) {
		return nil, errors.ValidationFailed(ErrInvalidAmount, "amount cannot have more than 2 decimal places")
	}
	return &Money{amount: amount, currency: currency}, nil
}

// NewMoneyFromString parses a decimal string in the given currency.
func NewMoneyFromString(amount string, currency string) (*Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return nil, errors.ValidationFailed("invalid amount format", err.Error())
	}
	return NewMoney(d, Currency(strings.ToUpper(currency)))
}

func (m Money) Amount() decimal.Decimal { return m.amount }
func (m Money) Currency() Currency      { return m.currency }
func (m Money) IsZero() bool            { return m.amount.IsZero() }

// Add sums two values of the same currency.
func (m Money) Add(other Money) (*Money, error) {
	if m.currency != other.currency {
		return nil, errors.ValidationFailed(
			ErrCurrencyMismatch,
			fmt.Sprintf("cannot add %s to %s", other.currency, m.currency),
		)
	}
	return &Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// Split divides the value into n parts that differ by at most one minor unit
// and sum exactly to the original.
func (m Money) Split(n int) ([]Money, error) {
	if n <= 0 {
		return nil, errors.ValidationFailed("invalid split", "number of parts must be positive")
	}

	hundred := decimal.NewFromInt(100)
	total := m.amount.Mul(hundred).Round(0)
	parts := decimal.NewFromInt(int64(n))
	base := total.Div(parts).Floor()
	remainder := total.Sub(base.Mul(parts)).IntPart()

	result := make([]Money, n)
	for i := range result {
		cents := base
		if int64(i) < remainder {
			cents = cents.Add(decimal.NewFromInt(1))
		}
		result[i] = Money{amount: cents.Div(hundred), currency: m.currency}
	}
	return result, nil
}

// String renders the amount with its symbol and two decimals, e.g. ₹1250.00.
func (m Money) String() string {
	return Format(m.amount, m.currency)
}

// Format renders an amount with the currency symbol and two decimals. Negative
// amounts keep their sign in front of the symbol.
func Format(amount decimal.Decimal, currency Currency) string {
	symbol, ok := currencySymbols[currency]
	if !ok {
		symbol = string(currency) + " "
	}
	if amount.IsNegative() {
		return "-" + symbol + amount.Neg().StringFixed(2)
	}
	return symbol + amount.StringFixed(2)
}

// FormatINR is Format in the default currency.
func FormatINR(amount decimal.Decimal) string {
	return Format(amount, DefaultCurrency)
}

// ParseAmount coerces a loosely typed document value into a non-negative
// decimal. Anything that is not a finite number, or a string holding one,
// becomes zero, and so does any value outside the storable range.
func ParseAmount(v any) decimal.Decimal {
	var d decimal.Decimal
	switch val := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		d = val
	case *decimal.Decimal:
		if val == nil {
			return decimal.Zero
		}
		d = *val
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return decimal.Zero
		}
		d = decimal.NewFromFloat(val)
	case float32:
		f := float64(val)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return decimal.Zero
		}
		d = decimal.NewFromFloat32(val)
	case int:
		d = decimal.NewFromInt(int64(val))
	case int32:
		d = decimal.NewFromInt32(val)
	case int64:
		d = decimal.NewFromInt(val)
	case uint:
		d = decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(val)), 0)
	case uint64:
		d = decimal.NewFromBigInt(new(big.Int).SetUint64(val), 0)
	case json.Number:
		parsed, err := decimal.NewFromString(val.String())
		if err != nil {
			return decimal.Zero
		}
		d = parsed
	case string:
		s := strings.TrimSpace(val)
		s = strings.TrimPrefix(s, currencySymbols[DefaultCurrency])
		parsed, err := decimal.NewFromString(strings.TrimSpace(s))
		if err != nil {
			return decimal.Zero
		}
		d = parsed
	default:
		return decimal.Zero
	}
	if d.IsNegative() || !inAmountRange(d) {
		return decimal.Zero
	}
	return d
}

// maxAmountExponent bounds the decimal exponent ParseAmount accepts. Larger
// exponents make every later rescale arbitrarily expensive.
const maxAmountExponent = 20

// MaxAmount is the first value that no longer fits NUMERIC(14, 2).
var MaxAmount = decimal.New(1, 12)

func inAmountRange(d decimal.Decimal) bool {
	exp := d.Exponent()
	if exp > maxAmountExponent || exp < -maxAmountExponent {
		return false
	}
	return d.LessThan(MaxAmount)
}
