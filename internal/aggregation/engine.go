// Package aggregation computes budget totals and trip classifications from
// already-coerced trips and expenses. Everything here is pure: no I/O, and
// inputs are never mutated.
package aggregation

import (
	"sort"
	"time"

	"github.com/NomadCrew/nomad-budget-backend/pkg/timestamp"
	"github.com/NomadCrew/nomad-budget-backend/types"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Input is everything Summarize needs. A nil Location means UTC.
type Input struct {
	Budget      decimal.Decimal
	Expenses    []types.Expense
	MemberCount int
	Location    *time.Location
}

// CategoryTotal is the summed spend of one category.
type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
}

// DayTotal is the summed spend of one calendar day.
type DayTotal struct {
	Day   timestamp.Day   `json:"day"`
	Total decimal.Decimal `json:"total"`
}

// Result holds the derived figures for one trip. PerCategory keeps the order
// in which categories were first seen; Daily is chronological.
type Result struct {
	TotalSpent     decimal.Decimal `json:"totalSpent"`
	Remaining      decimal.Decimal `json:"remaining"`
	PercentSpent   decimal.Decimal `json:"percentSpent"`
	PerCategory    []CategoryTotal `json:"perCategoryTotals"`
	Daily          []DayTotal      `json:"dailyTotals"`
	PerPersonShare decimal.Decimal `json:"perPersonShare"`
	DailyAverage   decimal.Decimal `json:"dailyAverage"`
	ExpenseCount   int             `json:"expenseCount"`
	UndatedCount   int             `json:"undatedCount"`
}

// CategoryMap returns PerCategory as a map.
func (r Result) CategoryMap() map[string]decimal.Decimal {
	m := make(map[string]decimal.Decimal, len(r.PerCategory))
	for _, c := range r.PerCategory {
		m[c.Category] = c.Total
	}
	return m
}

// DailyMap returns Daily as a map.
func (r Result) DailyMap() map[timestamp.Day]decimal.Decimal {
	m := make(map[timestamp.Day]decimal.Decimal, len(r.Daily))
	for _, d := range r.Daily {
		m[d.Day] = d.Total
	}
	return m
}

// Summarize aggregates the expenses against the budget. A negative budget
// counts as zero. Expenses without a date still count toward every total
// except Daily.
func Summarize(in Input) Result {
	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}
	budget := in.Budget
	if budget.IsNegative() {
		budget = decimal.Zero
	}

	total := decimal.Zero
	categoryIndex := make(map[string]int)
	var perCategory []CategoryTotal
	daily := make(map[timestamp.Day]decimal.Decimal)
	undated := 0

	for _, e := range in.Expenses {
		amount := e.Amount
		if amount.IsNegative() {
			amount = decimal.Zero
		}
		total = total.Add(amount)

		category := e.Category
		if category == "" {
			category = types.DefaultCategory
		}
		if i, ok := categoryIndex[category]; ok {
			perCategory[i].Total = perCategory[i].Total.Add(amount)
		} else {
			categoryIndex[category] = len(perCategory)
			perCategory = append(perCategory, CategoryTotal{Category: category, Total: amount})
		}

		if e.Date == nil || e.Date.IsZero() {
			undated++
			continue
		}
		day := timestamp.DayOf(*e.Date, loc)
		daily[day] = daily[day].Add(amount)
	}

	days := make([]DayTotal, 0, len(daily))
	for day, sum := range daily {
		days = append(days, DayTotal{Day: day, Total: sum})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Day.Before(days[j].Day) })

	perPerson := decimal.Zero
	if in.MemberCount > 0 {
		perPerson = total.Div(decimal.NewFromInt(int64(in.MemberCount)))
	}

	dayCount := int64(len(days))
	if dayCount < 1 {
		dayCount = 1
	}

	if perCategory == nil {
		perCategory = []CategoryTotal{}
	}

	return Result{
		TotalSpent:     total,
		Remaining:      budget.Sub(total),
		PercentSpent:   PercentOf(total, budget).Round(2),
		PerCategory:    perCategory,
		Daily:          days,
		PerPersonShare: perPerson,
		DailyAverage:   total.Div(decimal.NewFromInt(dayCount)),
		ExpenseCount:   len(in.Expenses),
		UndatedCount:   undated,
	}
}

// PercentOf returns spent as a percentage of budget, clamped to [0, 100] and
// unrounded. A budget of zero or less yields zero.
func PercentOf(spent, budget decimal.Decimal) decimal.Decimal {
	if !budget.IsPositive() || !spent.IsPositive() {
		return decimal.Zero
	}
	pct := spent.Mul(hundred).Div(budget)
	if pct.GreaterThan(hundred) {
		return hundred
	}
	return pct
}
