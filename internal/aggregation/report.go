package aggregation

import (
	"sort"
	"time"

	"github.com/NomadCrew/nomad-budget-backend/pkg/timestamp"
	"github.com/NomadCrew/nomad-budget-backend/types"
	"github.com/shopspring/decimal"
)

// CategoryUsage compares a category's allocation with its spend.
type CategoryUsage struct {
	Category    string          `json:"category"`
	Allocated   decimal.Decimal `json:"allocated"`
	Spent       decimal.Decimal `json:"spent"`
	Remaining   decimal.Decimal `json:"remaining"`
	PercentUsed decimal.Decimal `json:"percentUsed"`
}

// Report is the full derived view of one trip.
type Report struct {
	TripID         string          `json:"tripId"`
	TripName       string          `json:"tripName"`
	StartDate      timestamp.Day   `json:"startDate"`
	EndDate        timestamp.Day   `json:"endDate"`
	Classification Classification  `json:"classification"`
	Budget         decimal.Decimal `json:"budget"`
	MemberCount    int             `json:"memberCount"`
	Result
	CategoryUsage []CategoryUsage `json:"categoryUsage"`
	Balances      []MemberBalance `json:"balances"`
	GeneratedAt   time.Time       `json:"generatedAt"`
}

// ForTrip builds a Report for trip as of now. Trips without members are
// treated as having just the owner.
func ForTrip(trip types.Trip, expenses []types.Expense, now time.Time, loc *time.Location) Report {
	if loc == nil {
		loc = time.UTC
	}
	budget := trip.TotalBudget
	if budget.IsNegative() {
		budget = decimal.Zero
	}

	result := Summarize(Input{
		Budget:      budget,
		Expenses:    expenses,
		MemberCount: trip.MemberCount(),
		Location:    loc,
	})

	return Report{
		TripID:         trip.ID,
		TripName:       trip.Name,
		StartDate:      trip.StartDate,
		EndDate:        trip.EndDate,
		Classification: Classify(trip.StartDate, trip.EndDate, timestamp.DayOf(now, loc)),
		Budget:         budget,
		MemberCount:    trip.MemberCount(),
		Result:         result,
		CategoryUsage:  categoryUsage(result.PerCategory, trip.CategoryBudgets),
		Balances:       Balances(expenses, trip.Members),
		GeneratedAt:    now,
	}
}

// categoryUsage lists spent categories in first-seen order followed by
// allocated-but-unspent categories sorted by name.
func categoryUsage(spent []CategoryTotal, allocations map[string]decimal.Decimal) []CategoryUsage {
	usage := make([]CategoryUsage, 0, len(spent)+len(allocations))
	seen := make(map[string]bool, len(spent))

	build := func(category string, allocated, total decimal.Decimal) CategoryUsage {
		if allocated.IsNegative() {
			allocated = decimal.Zero
		}
		pct := decimal.Zero
		if allocated.IsPositive() {
			pct = total.Mul(hundred).Div(allocated).Round(2)
		}
		return CategoryUsage{
			Category:    category,
			Allocated:   allocated,
			Spent:       total,
			Remaining:   allocated.Sub(total),
			PercentUsed: pct,
		}
	}

	for _, c := range spent {
		seen[c.Category] = true
		usage = append(usage, build(c.Category, allocations[c.Category], c.Total))
	}

	var unspent []string
	for category, allocated := range allocations {
		if !seen[category] && allocated.IsPositive() {
			unspent = append(unspent, category)
		}
	}
	sort.Strings(unspent)
	for _, category := range unspent {
		usage = append(usage, build(category, allocations[category], decimal.Zero))
	}
	return usage
}
