package document

import (
	"encoding/json"
	"fmt"

	apperrors "github.com/NomadCrew/nomad-budget-backend/errors"
	"github.com/NomadCrew/nomad-budget-backend/types"
)

// ImportedTrip is a trip with the expenses that were nested under it.
type ImportedTrip struct {
	Trip     types.Trip
	Expenses []types.Expense
}

// Skipped records a document that could not be imported.
type Skipped struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Export decodes a {"trips": [{..., "expenses": [...]}]} export. Invalid trips
// or expenses are skipped and reported rather than failing the whole import.
func (d *Decoder) Export(raw []byte) ([]ImportedTrip, []Skipped, error) {
	var body struct {
		Trips []Doc `json:"trips"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, nil, apperrors.ValidationFailed("invalid import", err.Error())
	}

	var (
		out     []ImportedTrip
		skipped []Skipped
	)
	for i, doc := range body.Trips {
		trip, err := d.Trip(doc)
		if err != nil {
			skipped = append(skipped, Skipped{Path: fmt.Sprintf("trips[%d]", i), Reason: reason(err)})
			continue
		}

		imported := ImportedTrip{Trip: trip}
		rawExpenses, _ := doc["expenses"].([]any)
		for j, item := range rawExpenses {
			expenseDoc, ok := item.(map[string]any)
			if !ok {
				skipped = append(skipped, Skipped{Path: fmt.Sprintf("trips[%d].expenses[%d]", i, j), Reason: "not an object"})
				continue
			}
			expense, err := d.Expense(expenseDoc)
			if err != nil {
				skipped = append(skipped, Skipped{Path: fmt.Sprintf("trips[%d].expenses[%d]", i, j), Reason: reason(err)})
				continue
			}
			imported.Expenses = append(imported.Expenses, expense)
		}
		out = append(out, imported)
	}
	return out, skipped, nil
}

func reason(err error) string {
	if appErr, ok := apperrors.As(err); ok && appErr.Detail != "" {
		return appErr.Detail
	}
	return err.Error()
}
