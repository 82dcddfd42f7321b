package types

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DefaultCategory is used when an expense has no category.
	DefaultCategory = "Other"
	// DefaultPayer is used when an expense has no payer.
	DefaultPayer = "You"
)

// StarterCategories are offered to every user; any other name is allowed too.
var StarterCategories = []string{
	"Food",
	"Transport",
	"Accommodation",
	"Shopping",
	"Entertainment",
	"Groceries",
	"Health",
	"Sightseeing",
	"Souvenirs",
	DefaultCategory,
}

// Expense is a single spend recorded against a trip. Date is nil when the
// source document carried no usable date.
type Expense struct {
	ID         string          `json:"id"`
	TripID     string          `json:"tripId"`
	UserID     string          `json:"userId"`
	Title      string          `json:"title"`
	Category   string          `json:"category"`
	Amount     decimal.Decimal `json:"amount"`
	Date       *time.Time      `json:"date"`
	PaidBy     string          `json:"paidBy"`
	PaidByName string          `json:"paidByName,omitempty"`
	SplitWith  []string        `json:"splitWith,omitempty"`
	Receipt    string          `json:"receipt,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}
