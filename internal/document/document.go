// Package document coerces loosely typed trip and expense documents, as they
// arrive in request bodies and data exports, into the strict shapes in types.
// Nothing past this package sees a missing or mistyped field.
package document

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/NomadCrew/nomad-budget-backend/errors"
	"github.com/NomadCrew/nomad-budget-backend/pkg/timestamp"
	"github.com/NomadCrew/nomad-budget-backend/pkg/valueobjects"
	"github.com/NomadCrew/nomad-budget-backend/types"
	"github.com/shopspring/decimal"
)

// MaxMemberCount is the largest bare member count a document may carry. Larger
// counts are treated like a missing one.
const MaxMemberCount = 100

// Doc is an undecoded document.
type Doc = map[string]any

// Decoder carries the location used for date-only and zone-less values.
type Decoder struct {
	loc *time.Location
}

// NewDecoder returns a Decoder reading zone-less dates in loc (UTC if nil).
func NewDecoder(loc *time.Location) *Decoder {
	if loc == nil {
		loc = time.UTC
	}
	return &Decoder{loc: loc}
}

// Trip decodes a full trip document. Only an empty name is rejected.
func (d *Decoder) Trip(doc Doc) (types.Trip, error) {
	trip := types.Trip{
		ID:              str(doc, "id"),
		UserID:          str(doc, "userId"),
		Name:            strings.TrimSpace(str(doc, "name")),
		Description:     str(doc, "description"),
		Image:           str(doc, "image"),
		StartDate:       d.day(doc["startDate"]),
		EndDate:         d.day(doc["endDate"]),
		TotalBudget:     budget(doc),
		CategoryBudgets: categoryBudgets(doc["categoryBudgets"]),
		Members:         members(doc["members"]),
		CreatedBy:       str(doc, "createdBy"),
	}
	if t := timestamp.Normalize(doc["createdAt"], d.loc); t.Valid() {
		trip.CreatedAt = t.Time
	}
	if t := timestamp.Normalize(doc["updatedAt"], d.loc); t.Valid() {
		trip.UpdatedAt = t.Time
	}

	if trip.Name == "" {
		return types.Trip{}, apperrors.ValidationFailed("invalid trip", "name is required")
	}
	return trip, nil
}

// TripUpdate decodes a partial update. Absent keys stay nil; a present but
// empty name is rejected.
func (d *Decoder) TripUpdate(doc Doc) (types.TripUpdate, error) {
	var u types.TripUpdate

	if _, ok := doc["name"]; ok {
		name := strings.TrimSpace(str(doc, "name"))
		if name == "" {
			return types.TripUpdate{}, apperrors.ValidationFailed("invalid trip", "name cannot be empty")
		}
		u.Name = &name
	}
	if _, ok := doc["description"]; ok {
		v := str(doc, "description")
		u.Description = &v
	}
	if _, ok := doc["image"]; ok {
		v := str(doc, "image")
		u.Image = &v
	}
	if v, ok := doc["startDate"]; ok {
		day := d.day(v)
		u.StartDate = &day
	}
	if v, ok := doc["endDate"]; ok {
		day := d.day(v)
		u.EndDate = &day
	}
	if _, ok := doc["totalBudget"]; ok {
		b := budget(doc)
		u.TotalBudget = &b
	} else if _, ok := doc["budget"]; ok {
		b := budget(doc)
		u.TotalBudget = &b
	}
	if v, ok := doc["categoryBudgets"]; ok {
		u.CategoryBudgets = categoryBudgets(v)
	}
	if v, ok := doc["members"]; ok {
		u.Members = members(v)
	}
	return u, nil
}

// Expense decodes an expense document. Only an empty title is rejected; an
// unusable date leaves Date nil so the amount still counts.
func (d *Decoder) Expense(doc Doc) (types.Expense, error) {
	e := types.Expense{
		ID:         str(doc, "id"),
		TripID:     str(doc, "tripId"),
		UserID:     str(doc, "userId"),
		Title:      strings.TrimSpace(str(doc, "title")),
		Category:   strings.TrimSpace(str(doc, "category")),
		Amount:     valueobjects.ParseAmount(doc["amount"]),
		PaidBy:     strings.TrimSpace(str(doc, "paidBy")),
		PaidByName: str(doc, "paidByName"),
		SplitWith:  strList(doc["splitWith"]),
		Receipt:    str(doc, "receipt"),
	}
	if e.Title == "" {
		e.Title = strings.TrimSpace(str(doc, "description"))
	}
	if e.Category == "" {
		e.Category = types.DefaultCategory
	}
	if e.PaidBy == "" {
		e.PaidBy = types.DefaultPayer
	}
	if t := timestamp.Normalize(doc["date"], d.loc); t.Valid() {
		date := t.Time
		e.Date = &date
	}
	if t := timestamp.Normalize(doc["createdAt"], d.loc); t.Valid() {
		e.CreatedAt = t.Time
	}

	if e.Title == "" {
		return types.Expense{}, apperrors.ValidationFailed("invalid expense", "title is required")
	}
	return e, nil
}

func (d *Decoder) day(v any) timestamp.Day {
	day, _ := timestamp.Normalize(v, d.loc).Day(d.loc)
	return day
}

// budget prefers totalBudget and falls back to the legacy budget field.
func budget(doc Doc) decimal.Decimal {
	if v, ok := doc["totalBudget"]; ok && v != nil {
		return valueobjects.ParseAmount(v)
	}
	return valueobjects.ParseAmount(doc["budget"])
}

func categoryBudgets(v any) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	m, ok := v.(map[string]any)
	if !ok {
		return out
	}
	for name, amount := range m {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		out[name] = valueobjects.ParseAmount(amount)
	}
	return out
}

// members accepts a list of member objects, a list of ids, or a bare count.
func members(v any) []types.Member {
	switch val := v.(type) {
	case []any:
		out := make([]types.Member, 0, len(val))
		for i, item := range val {
			switch m := item.(type) {
			case map[string]any:
				member := types.Member{
					ID:      str(m, "id"),
					Name:    str(m, "name"),
					Email:   str(m, "email"),
					IsOwner: boolean(m["isOwner"]),
				}
				if member.ID == "" {
					member.ID = fmt.Sprintf("member-%d", i+1)
				}
				out = append(out, member)
			case string:
				if m != "" {
					out = append(out, types.Member{ID: m})
				}
			}
		}
		return out
	case []types.Member:
		return append([]types.Member(nil), val...)
	default:
		n := valueobjects.ParseAmount(v).IntPart()
		if n <= 0 || n > MaxMemberCount {
			return []types.Member{}
		}
		out := make([]types.Member, n)
		for i := range out {
			out[i] = types.Member{ID: fmt.Sprintf("member-%d", i+1), IsOwner: i == 0}
		}
		return out
	}
}

func str(doc Doc, key string) string {
	switch v := doc[key].(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}

func strList(v any) []string {
	list, ok := v.([]any)
	if !ok {
		if s, ok := v.([]string); ok {
			return append([]string(nil), s...)
		}
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func boolean(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, _ := strconv.ParseBool(b)
		return parsed
	default:
		return false
	}
}
