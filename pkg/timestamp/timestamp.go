// Package timestamp normalizes the date shapes found in trip and expense
// documents into one comparable value.
//
// Documents carry dates as native times, ISO-8601 strings, or the
// {seconds, nanoseconds} tuple used by document-store exports. Normalize
// is applied once at the ingestion boundary; code past that point only sees
// time.Time and Day.
package timestamp

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind tags which representation a Timestamp was decoded from.
type Kind int

const (
	KindInvalid Kind = iota
	KindNative
	KindISO
	KindEpoch
)

func (k Kind) String() string {
	switch k {
	case KindNative:
		return "native"
	case KindISO:
		return "iso"
	case KindEpoch:
		return "epoch"
	default:
		return "invalid"
	}
}

// Epoch is the {seconds, nanoseconds} tuple shape.
type Epoch struct {
	Seconds     int64 `json:"seconds"`
	Nanoseconds int64 `json:"nanoseconds"`
}

// Time converts the tuple to an instant.
func (e Epoch) Time() time.Time {
	return time.Unix(e.Seconds, e.Nanoseconds)
}

// Timestamp is the normalized result. Time is only meaningful when Kind is
// not KindInvalid.
type Timestamp struct {
	Kind Kind
	Time time.Time
}

// Valid reports whether the input could be parsed.
func (t Timestamp) Valid() bool {
	return t.Kind != KindInvalid
}

// Day truncates the instant to a calendar day in loc.
func (t Timestamp) Day(loc *time.Location) (Day, bool) {
	if !t.Valid() {
		return Day{}, false
	}
	return DayOf(t.Time, loc), true
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

const dateOnly = "2006-01-02"

// Normalize decodes v into a Timestamp. Strings without a zone, including
// date-only strings, are read as wall time in loc. Unparsable input yields
// KindInvalid; it never panics.
func Normalize(v any, loc *time.Location) Timestamp {
	if loc == nil {
		loc = time.UTC
	}

	switch val := v.(type) {
	case nil:
		return Timestamp{}
	case time.Time:
		if val.IsZero() {
			return Timestamp{}
		}
		return Timestamp{Kind: KindNative, Time: val}
	case *time.Time:
		if val == nil || val.IsZero() {
			return Timestamp{}
		}
		return Timestamp{Kind: KindNative, Time: *val}
	case string:
		return parseISO(val, loc)
	case Epoch:
		return Timestamp{Kind: KindEpoch, Time: val.Time()}
	case *Epoch:
		if val == nil {
			return Timestamp{}
		}
		return Timestamp{Kind: KindEpoch, Time: val.Time()}
	case map[string]any:
		return parseEpochMap(val)
	case json.RawMessage:
		var decoded any
		if err := json.Unmarshal(val, &decoded); err != nil {
			return Timestamp{}
		}
		return Normalize(decoded, loc)
	default:
		return Timestamp{}
	}
}

func parseISO(s string, loc *time.Location) Timestamp {
	s = strings.TrimSpace(s)
	if s == "" {
		return Timestamp{}
	}
	if t, err := time.ParseInLocation(dateOnly, s, loc); err == nil {
		return Timestamp{Kind: KindISO, Time: t}
	}
	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return Timestamp{Kind: KindISO, Time: t}
		}
	}
	return Timestamp{}
}

func parseEpochMap(m map[string]any) Timestamp {
	secRaw, ok := m["seconds"]
	if !ok {
		secRaw, ok = m["_seconds"]
	}
	if !ok {
		return Timestamp{}
	}
	nanoRaw, ok := m["nanoseconds"]
	if !ok {
		nanoRaw = m["_nanoseconds"]
	}

	sec, ok := toInt64(secRaw)
	if !ok {
		return Timestamp{}
	}
	nanos, ok := toInt64(nanoRaw)
	if !ok {
		nanos = 0
	}
	return Timestamp{Kind: KindEpoch, Time: Epoch{Seconds: sec, Nanoseconds: nanos}.Time()}
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) || n > math.MaxInt64 || n < math.MinInt64 {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		if err == nil {
			return i, true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return int64(f), true
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}
