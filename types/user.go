package types

import "github.com/shopspring/decimal"

// User is the identity resolved from an access token.
type User struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL,omitempty"`
}

// ProfileStats summarizes a user's trips.
type ProfileStats struct {
	TotalTrips  int             `json:"totalTrips"`
	ActiveTrips int             `json:"activeTrips"`
	TotalSpent  decimal.Decimal `json:"totalSpent"`
}

// Profile is the response for the current user.
type Profile struct {
	User  User         `json:"user"`
	Stats ProfileStats `json:"stats"`
}
