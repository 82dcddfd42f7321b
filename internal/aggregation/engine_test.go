package aggregation

import (
	"encoding/json"
	"math/rand"
	"testing"
	"time"

	"github.com/NomadCrew/nomad-budget-backend/pkg/timestamp"
	"github.com/NomadCrew/nomad-budget-backend/pkg/valueobjects"
	"github.com/NomadCrew/nomad-budget-backend/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func at(y int, m time.Month, d, h int) *time.Time {
	t := time.Date(y, m, d, h, 0, 0, 0, time.UTC)
	return &t
}

func expense(category, amount string, date *time.Time) types.Expense {
	return types.Expense{Category: category, Amount: dec(amount), Date: date}
}

func stringify(r Result) (string, map[string]string, map[string]string) {
	cats := make(map[string]string)
	for k, v := range r.CategoryMap() {
		cats[k] = v.String()
	}
	days := make(map[string]string)
	for k, v := range r.DailyMap() {
		days[k.String()] = v.String()
	}
	return r.TotalSpent.String(), cats, days
}

func TestSummarize_OrderIndependent(t *testing.T) {
	expenses := []types.Expense{
		expense("Food", "120.50", at(2025, 3, 10, 9)),
		expense("Transport", "800", at(2025, 3, 10, 18)),
		expense("Food", "0.10", at(2025, 3, 11, 12)),
		expense("", "0.20", at(2025, 3, 12, 7)),
		expense("Accommodation", "3000", nil),
		expense("Food", "79.40", at(2025, 3, 12, 21)),
	}

	want := Summarize(Input{Budget: dec("5000"), Expenses: expenses, MemberCount: 2})
	wantTotal, wantCats, wantDays := stringify(want)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		shuffled := append([]types.Expense(nil), expenses...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got := Summarize(Input{Budget: dec("5000"), Expenses: shuffled, MemberCount: 2})
		gotTotal, gotCats, gotDays := stringify(got)
		assert.Equal(t, wantTotal, gotTotal)
		assert.Equal(t, wantCats, gotCats)
		assert.Equal(t, wantDays, gotDays)
	}

	assert.Equal(t, "4000.2", want.TotalSpent.String())
	assert.Equal(t, "200", wantCats["Food"])
	assert.Equal(t, "0.2", wantCats[types.DefaultCategory])
	assert.Len(t, want.Daily, 3)
	assert.Equal(t, 1, want.UndatedCount)
}

func TestSummarize_DailyIsChronological(t *testing.T) {
	result := Summarize(Input{Expenses: []types.Expense{
		expense("Food", "1", at(2025, 3, 12, 0)),
		expense("Food", "1", at(2025, 3, 10, 0)),
		expense("Food", "1", at(2025, 3, 11, 0)),
	}})

	require.Len(t, result.Daily, 3)
	assert.Equal(t, "2025-03-10", result.Daily[0].Day.String())
	assert.Equal(t, "2025-03-11", result.Daily[1].Day.String())
	assert.Equal(t, "2025-03-12", result.Daily[2].Day.String())
}

func TestSummarize_CategoryFirstSeenOrder(t *testing.T) {
	result := Summarize(Input{Expenses: []types.Expense{
		expense("Transport", "1", nil),
		expense("Food", "1", nil),
		expense("Transport", "1", nil),
	}})

	require.Len(t, result.PerCategory, 2)
	assert.Equal(t, "Transport", result.PerCategory[0].Category)
	assert.Equal(t, "Food", result.PerCategory[1].Category)
}

func TestSummarize_ClampsPercent(t *testing.T) {
	result := Summarize(Input{
		Budget:   dec("100"),
		Expenses: []types.Expense{expense("Food", "250", nil)},
	})

	assert.True(t, result.PercentSpent.Equal(dec("100")), result.PercentSpent.String())
	assert.True(t, result.Remaining.Equal(dec("-150")), result.Remaining.String())
}

func TestSummarize_ZeroBudget(t *testing.T) {
	for _, budget := range []string{"0", "-10"} {
		t.Run(budget, func(t *testing.T) {
			result := Summarize(Input{
				Budget:   dec(budget),
				Expenses: []types.Expense{expense("Food", "50", nil), expense("Food", "25", nil)},
			})
			assert.True(t, result.PercentSpent.IsZero())
			assert.True(t, result.Remaining.Equal(dec("-75")), result.Remaining.String())
		})
	}
}

func TestSummarize_Empty(t *testing.T) {
	result := Summarize(Input{Budget: dec("500"), MemberCount: 3})

	assert.True(t, result.TotalSpent.IsZero())
	assert.True(t, result.Remaining.Equal(dec("500")))
	assert.True(t, result.PercentSpent.IsZero())
	assert.True(t, result.PerPersonShare.IsZero())
	assert.True(t, result.DailyAverage.IsZero())
	assert.Empty(t, result.PerCategory)
	assert.Empty(t, result.Daily)
}

func TestSummarize_PartialSpend(t *testing.T) {
	result := Summarize(Input{
		Budget:      dec("3000"),
		Expenses:    []types.Expense{expense("Food", "1250", at(2025, 3, 10, 12))},
		MemberCount: 1,
	})

	assert.Equal(t, "1250", result.TotalSpent.String())
	assert.Equal(t, "1750", result.Remaining.String())
	assert.Equal(t, "41.67", result.PercentSpent.StringFixed(2))
}

func TestSummarize_MalformedAmountCountsAsZero(t *testing.T) {
	raw := []any{"abc", 50}
	var expenses []types.Expense
	for _, v := range raw {
		expenses = append(expenses, types.Expense{Category: "Food", Amount: valueobjects.ParseAmount(v)})
	}

	result := Summarize(Input{Budget: dec("100"), Expenses: expenses})
	assert.Equal(t, "50", result.TotalSpent.String())
	assert.Equal(t, 2, result.ExpenseCount)
}

func TestSummarize_OversizedAmountCountsAsZero(t *testing.T) {
	expenses := []types.Expense{
		{Category: "Food", Amount: valueobjects.ParseAmount("1e900000000")},
		{Category: "Food", Amount: valueobjects.ParseAmount(0.5)},
		{Category: "Food", Amount: valueobjects.ParseAmount(json.Number("1e-900000000"))},
	}

	result := Summarize(Input{Budget: dec("100"), Expenses: expenses})
	assert.Equal(t, "0.5", result.TotalSpent.String())
	assert.Equal(t, 3, result.ExpenseCount)
}

func TestSummarize_PerPersonShare(t *testing.T) {
	expenses := []types.Expense{expense("Food", "1250", nil)}

	result := Summarize(Input{Expenses: expenses, MemberCount: 4})
	assert.Equal(t, "312.5", result.PerPersonShare.String())

	result = Summarize(Input{Expenses: expenses, MemberCount: 0})
	assert.True(t, result.PerPersonShare.IsZero())
}

func TestSummarize_DailyAverage(t *testing.T) {
	result := Summarize(Input{Expenses: []types.Expense{
		expense("Food", "100", at(2025, 3, 10, 8)),
		expense("Food", "50", at(2025, 3, 10, 20)),
		expense("Food", "150", at(2025, 3, 11, 8)),
		expense("Food", "60", nil),
	}})

	// Undated spend is in the total but does not add a day.
	assert.Equal(t, "360", result.TotalSpent.String())
	assert.Equal(t, "180", result.DailyAverage.String())
}

func TestSummarize_DailyUsesLocation(t *testing.T) {
	kolkata, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	// 20:00 UTC is already the next day in India.
	result := Summarize(Input{
		Expenses: []types.Expense{expense("Food", "10", at(2025, 3, 10, 20))},
		Location: kolkata,
	})
	require.Len(t, result.Daily, 1)
	assert.Equal(t, "2025-03-11", result.Daily[0].Day.String())
}

func TestSummarize_DoesNotMutateInput(t *testing.T) {
	expenses := []types.Expense{expense("", "-5", nil), expense("Food", "5", nil)}
	Summarize(Input{Expenses: expenses})

	assert.Equal(t, "", expenses[0].Category)
	assert.Equal(t, "-5", expenses[0].Amount.String())
}

func TestPercentOf(t *testing.T) {
	tests := []struct {
		spent, budget, want string
	}{
		{"49", "100", "49"},
		{"50.5", "100", "50.5"},
		{"250", "100", "100"},
		{"10", "0", "0"},
		{"0", "100", "0"},
	}
	for _, tt := range tests {
		got := PercentOf(dec(tt.spent), dec(tt.budget))
		assert.True(t, got.Equal(dec(tt.want)), "%s/%s: got %s", tt.spent, tt.budget, got)
	}
}

func TestForTrip(t *testing.T) {
	now := time.Date(2025, 3, 11, 10, 0, 0, 0, time.UTC)
	trip := types.Trip{
		ID:          "trip-1",
		Name:        "Goa",
		StartDate:   timestamp.Day{Year: 2025, Month: 3, Day: 10},
		EndDate:     timestamp.Day{Year: 2025, Month: 3, Day: 15},
		TotalBudget: dec("3000"),
		CategoryBudgets: map[string]decimal.Decimal{
			"Food":          dec("1000"),
			"Shopping":      dec("500"),
			"Accommodation": dec("1200"),
		},
	}
	expenses := []types.Expense{
		expense("Food", "250", at(2025, 3, 10, 12)),
		expense("Transport", "100", at(2025, 3, 10, 15)),
	}

	report := ForTrip(trip, expenses, now, time.UTC)

	assert.Equal(t, Active, report.Classification)
	assert.Equal(t, 1, report.MemberCount)
	assert.Equal(t, "350", report.PerPersonShare.String())
	require.Len(t, report.CategoryUsage, 4)

	names := make([]string, 0, len(report.CategoryUsage))
	for _, u := range report.CategoryUsage {
		names = append(names, u.Category)
	}
	assert.Equal(t, []string{"Food", "Transport", "Accommodation", "Shopping"}, names)

	food := report.CategoryUsage[0]
	assert.Equal(t, "750", food.Remaining.String())
	assert.Equal(t, "25", food.PercentUsed.String())

	transport := report.CategoryUsage[1]
	assert.True(t, transport.Allocated.IsZero())
	assert.Equal(t, "-100", transport.Remaining.String())
}

func TestBalances(t *testing.T) {
	members := []types.Member{{ID: "a", IsOwner: true}, {ID: "b"}, {ID: "c"}}
	expenses := []types.Expense{
		{Amount: dec("100"), PaidBy: "a"},
		{Amount: dec("30"), PaidBy: "b", SplitWith: []string{"b", "c"}},
	}

	balances := Balances(expenses, members)
	require.Len(t, balances, 3)

	got := make(map[string][3]string)
	for _, b := range balances {
		got[b.Participant] = [3]string{b.Paid.String(), b.Owed.String(), b.Net.String()}
	}
	assert.Equal(t, [3]string{"100", "33.34", "66.66"}, got["a"])
	assert.Equal(t, [3]string{"30", "48.33", "-18.33"}, got["b"])
	assert.Equal(t, [3]string{"0", "48.33", "-48.33"}, got["c"])

	net := decimal.Zero
	for _, b := range balances {
		net = net.Add(b.Net)
	}
	assert.True(t, net.IsZero())
}

func TestBalances_DefaultPayerWithoutMembers(t *testing.T) {
	balances := Balances([]types.Expense{{Amount: dec("40")}}, nil)
	require.Len(t, balances, 1)
	assert.Equal(t, types.DefaultPayer, balances[0].Participant)
	assert.True(t, balances[0].Net.IsZero())
}
