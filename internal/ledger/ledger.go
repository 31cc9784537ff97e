// Package ledger implements the per-task daily hours ledger: a map of
// calendar date (YYYY-MM-DD) to hours worked on that date.
//
// Reads are lenient: a malformed serialized ledger is treated as empty and
// individual malformed entries are dropped. Writes are strict and always
// produce canonical JSON with sorted keys.
package ledger

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"task-tracker-api/internal/apperr"
)

// DateLayout is the only accepted date format for ledger keys and task dates.
const DateLayout = "2006-01-02"

// Empty is the serialized form of a ledger without entries.
const Empty = "{}"

// Ledger maps a calendar date to the hours recorded on it.
type Ledger map[string]float64

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q is not YYYY-MM-DD", apperr.ErrInvalidInput, s)
	}
	return t, nil
}

// ValidDate reports whether s is a YYYY-MM-DD date.
func ValidDate(s string) bool {
	_, err := ParseDate(s)
	return err == nil
}

// DateOf formats the calendar date of t in t's location.
func DateOf(t time.Time) string {
	return t.Format(DateLayout)
}

// Parse decodes a serialized ledger. It never fails.
func Parse(raw string) Ledger {
	out := Ledger{}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return out
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return out
	}
	for key, v := range decoded {
		d, err := ParseDate(key)
		if err != nil {
			continue
		}
		hours, ok := toHours(v)
		if !ok {
			continue
		}
		date := DateOf(d)
		out[date] = Round(out[date] + hours)
	}
	return out
}

// legacy rows stored hours as strings
func toHours(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0, false
	}
	return f, true
}

// String returns the canonical serialized form.
func (l Ledger) String() string {
	if len(l) == 0 {
		return Empty
	}
	b, err := json.Marshal(map[string]float64(l))
	if err != nil {
		// only reachable with NaN/Inf, which Add refuses
		return Empty
	}
	return string(b)
}

// Clone returns an independent copy.
func (l Ledger) Clone() Ledger {
	out := make(Ledger, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

// HoursOn returns the hours recorded for date, or 0.
func (l Ledger) HoursOn(date string) float64 {
	d, err := ParseDate(date)
	if err != nil {
		return 0
	}
	return l[DateOf(d)]
}

// Add returns a new ledger with delta added to date. The receiver is not modified.
func (l Ledger) Add(date string, delta float64) (Ledger, error) {
	d, err := ParseDate(date)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		return nil, fmt.Errorf("%w: hours must be a finite number", apperr.ErrInvalidInput)
	}
	if delta < 0 {
		return nil, fmt.Errorf("%w: hours must not be negative, got %v", apperr.ErrInvalidInput, delta)
	}
	if !Precise(delta) {
		return nil, fmt.Errorf("%w: hours allow at most 2 decimal places, got %v", apperr.ErrInvalidInput, delta)
	}
	out := l.Clone()
	key := DateOf(d)
	out[key] = Round(out[key] + delta)
	return out, nil
}

// Total sums every entry.
func (l Ledger) Total() float64 {
	var sum float64
	for _, v := range l {
		sum += v
	}
	return Round(sum)
}

// InRange sums the entries with start <= date <= end. Malformed bounds yield 0.
func (l Ledger) InRange(start, end string) float64 {
	s, err := ParseDate(start)
	if err != nil {
		return 0
	}
	e, err := ParseDate(end)
	if err != nil {
		return 0
	}
	lo, hi := DateOf(s), DateOf(e)
	var sum float64
	for date, v := range l {
		// keys are canonical YYYY-MM-DD, so string order is date order
		if date >= lo && date <= hi {
			sum += v
		}
	}
	return Round(sum)
}

// HoursOnDate returns the hours recorded for date in a serialized ledger.
func HoursOnDate(raw, date string) float64 {
	return Parse(raw).HoursOn(date)
}

// AddHours adds delta hours to date and returns the new serialized ledger.
func AddHours(raw, date string, delta float64) (string, error) {
	next, err := Parse(raw).Add(date, delta)
	if err != nil {
		return "", err
	}
	return next.String(), nil
}

// TotalHours sums every entry of a serialized ledger.
func TotalHours(raw string) float64 {
	return Parse(raw).Total()
}

// HoursInRange sums the entries of a serialized ledger between start and end inclusive.
func HoursInRange(raw, start, end string) float64 {
	return Parse(raw).InRange(start, end)
}

// Round rounds v to hundredths, the resolution every ledger entry and sum uses.
func Round(v float64) float64 {
	return math.Round(v*100) / 100
}

// Precise reports whether v is representable in hundredths of an hour, so
// adding it to a ledger loses nothing to rounding.
func Precise(v float64) bool {
	scaled := v * 100
	return math.Abs(scaled-math.Round(scaled)) < 1e-6
}
