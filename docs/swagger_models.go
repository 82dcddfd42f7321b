package docs

// Request bodies are decoded as loose documents so that amounts may arrive as
// numbers or strings and dates in any accepted shape. These types only
// describe the common shapes for Swagger.

// TripRequest is used for Swagger documentation
// @Description Trip document. Unknown fields are ignored.
type TripRequest struct {
	// Trip name
	Name string `json:"name" example:"Goa with friends"`

	// Free text
	Description string `json:"description,omitempty" example:"Beach week"`

	// Start date as YYYY-MM-DD, RFC 3339, epoch milliseconds or {"seconds": n}
	StartDate string `json:"startDate" example:"2026-12-20"`

	// End date, same shapes as startDate
	EndDate string `json:"endDate" example:"2026-12-27"`

	// Total budget, number or decimal string
	TotalBudget string `json:"totalBudget" example:"45000"`

	// Optional per-category caps
	CategoryBudgets map[string]string `json:"categoryBudgets,omitempty"`

	// Members sharing the trip; the owner counts as one when empty
	Members []MemberRequest `json:"members,omitempty"`
}

// MemberRequest is used for Swagger documentation
type MemberRequest struct {
	ID    string `json:"id" example:"m-2"`
	Name  string `json:"name" example:"Ravi"`
	Email string `json:"email,omitempty" example:"ravi@example.com"`
}

// ExpenseRequest is used for Swagger documentation
// @Description Expense document
type ExpenseRequest struct {
	Title     string   `json:"title" example:"Dinner at Thalassa"`
	Category  string   `json:"category" example:"Food"`
	Amount    string   `json:"amount" example:"2400.50"`
	Date      string   `json:"date,omitempty" example:"2026-12-21T20:30:00+05:30"`
	PaidBy    string   `json:"paidBy,omitempty" example:"m-2"`
	SplitWith []string `json:"splitWith,omitempty"`
}

// ImportRequest is used for Swagger documentation
// @Description Export document with expenses nested under each trip
type ImportRequest struct {
	Trips []ImportTrip `json:"trips"`
}

// ImportTrip is used for Swagger documentation
type ImportTrip struct {
	TripRequest
	Expenses []ExpenseRequest `json:"expenses,omitempty"`
}

// RefreshRequest is used for Swagger documentation
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" example:"v1.MRjRg..."`
}
