package pexels

import (
	"strings"

	"github.com/NomadCrew/nomad-budget-backend/types"
)

// genericWords are dropped from trip names before searching; "Goa trip 2025"
// searches for "Goa".
var genericWords = map[string]bool{
	"trip": true, "travel": true, "vacation": true, "holiday": true,
	"tour": true, "getaway": true, "weekend": true, "with": true,
	"and": true, "the": true, "to": true, "my": true, "our": true,
}

// BuildSearchQuery derives a photo search from the trip name.
func BuildSearchQuery(trip *types.Trip) string {
	var kept []string
	for _, word := range strings.Fields(trip.Name) {
		w := strings.Trim(word, ".,!?:;-_()'\"")
		if w == "" || genericWords[strings.ToLower(w)] || isNumber(w) {
			continue
		}
		kept = append(kept, w)
	}
	if len(kept) == 0 {
		return strings.TrimSpace(trip.Name)
	}
	return strings.Join(kept, " ")
}

func isNumber(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
