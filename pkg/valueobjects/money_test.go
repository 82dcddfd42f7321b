package valueobjects

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	tests := []struct {
		name        string
		amount      decimal.Decimal
		currency    Currency
		shouldError bool
	}{
		{"valid rupees", decimal.RequireFromString("1250.50"), INR, false},
		{"trailing zeros allowed", decimal.RequireFromString("10.500"), INR, false},
		{"negative amount", decimal.NewFromFloat(-10.99), INR, true},
		{"invalid currency", decimal.NewFromFloat(10.99), "XXX", true},
		{"too many decimal places", decimal.RequireFromString("10.999"), USD, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			money, err := NewMoney(tt.amount, tt.currency)
			if tt.shouldError {
				assert.Error(t, err)
				assert.Nil(t, money)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.amount.Equal(money.Amount()))
			assert.Equal(t, tt.currency, money.Currency())
		})
	}
}

func TestMoney_Split(t *testing.T) {
	m, err := NewMoneyFromString("100", "inr")
	require.NoError(t, err)

	parts, err := m.Split(3)
	require.NoError(t, err)
	require.Len(t, parts, 3)

	assert.Equal(t, "33.34", parts[0].Amount().StringFixed(2))
	assert.Equal(t, "33.33", parts[1].Amount().StringFixed(2))
	assert.Equal(t, "33.33", parts[2].Amount().StringFixed(2))

	sum := decimal.Zero
	for _, p := range parts {
		sum = sum.Add(p.Amount())
	}
	assert.True(t, sum.Equal(decimal.NewFromInt(100)))

	_, err = m.Split(0)
	assert.Error(t, err)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "₹1250.00", FormatINR(decimal.NewFromInt(1250)))
	assert.Equal(t, "-₹150.00", FormatINR(decimal.NewFromInt(-150)))
	assert.Equal(t, "$312.50", Format(decimal.NewFromFloat(312.5), USD))
	assert.Equal(t, "CHF 1.00", Format(decimal.NewFromInt(1), "CHF"))
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"nil", nil, "0"},
		{"float", 50.25, "50.25"},
		{"int", 50, "50"},
		{"int64", int64(7), "7"},
		{"uint64", uint64(9), "9"},
		{"numeric string", " 1250.5 ", "1250.5"},
		{"rupee prefixed string", "₹300", "300"},
		{"garbage string", "abc", "0"},
		{"empty string", "", "0"},
		{"json number", json.Number("12.75"), "12.75"},
		{"bad json number", json.Number("1e"), "0"},
		{"negative", -40.0, "0"},
		{"NaN", math.NaN(), "0"},
		{"infinity", math.Inf(1), "0"},
		{"bool", true, "0"},
		{"map", map[string]any{"value": 3}, "0"},
		{"decimal", decimal.NewFromInt(42), "42"},
		{"huge exponent string", "1e900000000", "0"},
		{"tiny exponent string", "1e-900000000", "0"},
		{"huge exponent json number", json.Number("1e400"), "0"},
		{"above storable range", "1000000000000", "0"},
		{"largest storable", "999999999999.99", "999999999999.99"},
		{"scientific within range", "1.5e3", "1500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseAmount(tt.input)
			assert.True(t, decimal.RequireFromString(tt.expected).Equal(got), "got %s", got)
		})
	}
}
