package types

import (
	"time"

	"github.com/NomadCrew/nomad-budget-backend/pkg/timestamp"
	"github.com/shopspring/decimal"
)

// Member is a person on a trip. Well-formed trips have exactly one owner.
type Member struct {
	ID      string `json:"id"`
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	IsOwner bool   `json:"isOwner"`
}

// Trip is a user's travel plan with a date range and budget.
type Trip struct {
	ID              string                     `json:"id"`
	UserID          string                     `json:"userId"`
	Name            string                     `json:"name"`
	Description     string                     `json:"description,omitempty"`
	Image           string                     `json:"image,omitempty"`
	StartDate       timestamp.Day              `json:"startDate"`
	EndDate         timestamp.Day              `json:"endDate"`
	TotalBudget     decimal.Decimal            `json:"totalBudget"`
	CategoryBudgets map[string]decimal.Decimal `json:"categoryBudgets"`
	Members         []Member                   `json:"members"`
	CreatedBy       string                     `json:"createdBy,omitempty"`
	CreatedAt       time.Time                  `json:"createdAt"`
	UpdatedAt       time.Time                  `json:"updatedAt"`
}

// MemberCount is the number of members, at least one (the owner).
func (t Trip) MemberCount() int {
	if len(t.Members) == 0 {
		return 1
	}
	return len(t.Members)
}

// TripUpdate is a partial update. Nil fields are left unchanged.
type TripUpdate struct {
	Name            *string
	Description     *string
	Image           *string
	StartDate       *timestamp.Day
	EndDate         *timestamp.Day
	TotalBudget     *decimal.Decimal
	CategoryBudgets map[string]decimal.Decimal
	Members         []Member
}

// IsEmpty reports whether the update changes nothing.
func (u TripUpdate) IsEmpty() bool {
	return u.Name == nil && u.Description == nil && u.Image == nil &&
		u.StartDate == nil && u.EndDate == nil && u.TotalBudget == nil &&
		u.CategoryBudgets == nil && u.Members == nil
}

// Apply copies the set fields of u onto t.
func (t *Trip) Apply(u TripUpdate) {
	if u.Name != nil {
		t.Name = *u.Name
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.Image != nil {
		t.Image = *u.Image
	}
	if u.StartDate != nil {
		t.StartDate = *u.StartDate
	}
	if u.EndDate != nil {
		t.EndDate = *u.EndDate
	}
	if u.TotalBudget != nil {
		t.TotalBudget = *u.TotalBudget
	}
	if u.CategoryBudgets != nil {
		t.CategoryBudgets = u.CategoryBudgets
	}
	if u.Members != nil {
		t.Members = u.Members
	}
}
