package aggregation

import (
	"sort"
	"time"

	"github.com/NomadCrew/nomad-budget-backend/pkg/timestamp"
	"github.com/NomadCrew/nomad-budget-backend/types"
)

// Classification is a trip's lifecycle position relative to a reference day.
type Classification string

const (
	Active         Classification = "active"
	Upcoming       Classification = "upcoming"
	Historical     Classification = "historical"
	Unclassifiable Classification = "unclassifiable"
)

// Classify places [start, end] relative to ref. Missing days or an inverted
// range are unclassifiable.
func Classify(start, end, ref timestamp.Day) Classification {
	if start.IsZero() || end.IsZero() || ref.IsZero() || start.After(end) {
		return Unclassifiable
	}
	switch {
	case ref.Before(start):
		return Upcoming
	case ref.After(end):
		return Historical
	default:
		return Active
	}
}

// ClassifyValues normalizes raw date values before classifying, for callers
// holding undecoded documents.
func ClassifyValues(start, end any, reference time.Time, loc *time.Location) Classification {
	startDay, ok := timestamp.Normalize(start, loc).Day(loc)
	if !ok {
		return Unclassifiable
	}
	endDay, ok := timestamp.Normalize(end, loc).Day(loc)
	if !ok {
		return Unclassifiable
	}
	return Classify(startDay, endDay, timestamp.DayOf(reference, loc))
}

// Buckets groups trips by classification. Unclassifiable trips are dropped.
type Buckets struct {
	Active     []types.Trip `json:"active"`
	Upcoming   []types.Trip `json:"upcoming"`
	Historical []types.Trip `json:"historical"`
}

// Bucket classifies every trip against ref. Active and upcoming trips are
// ordered by start day, historical ones most recent first.
func Bucket(trips []types.Trip, ref timestamp.Day) Buckets {
	b := Buckets{
		Active:     []types.Trip{},
		Upcoming:   []types.Trip{},
		Historical: []types.Trip{},
	}
	for _, t := range trips {
		switch Classify(t.StartDate, t.EndDate, ref) {
		case Active:
			b.Active = append(b.Active, t)
		case Upcoming:
			b.Upcoming = append(b.Upcoming, t)
		case Historical:
			b.Historical = append(b.Historical, t)
		}
	}

	byStart := func(list []types.Trip) func(i, j int) bool {
		return func(i, j int) bool { return list[i].StartDate.Before(list[j].StartDate) }
	}
	sort.SliceStable(b.Active, byStart(b.Active))
	sort.SliceStable(b.Upcoming, byStart(b.Upcoming))
	sort.SliceStable(b.Historical, func(i, j int) bool {
		return b.Historical[i].EndDate.After(b.Historical[j].EndDate)
	})
	return b
}
