package xsd

import "fmt"

// DurationValue models an XSD duration as the pair of components the XSD 1.1
// spec keeps separate for comparison purposes: a whole-months part
// (year/month duration) and a seconds part (day/time duration), matching
// oxsdatatypes' split between YearMonthDuration and DayTimeDuration rather
// than collapsing to a single scalar.
type DurationValue struct {
	Months  int64
	Seconds DecimalValue
}

// NewYearMonthDuration builds a duration carrying only a months component.
func NewYearMonthDuration(months int64) DurationValue {
	return DurationValue{Months: months, Seconds: NewDecimalFromInt64(0)}
}

// NewDayTimeDuration builds a duration carrying only a seconds component.
func NewDayTimeDuration(seconds DecimalValue) DurationValue {
	return DurationValue{Seconds: seconds}
}

// Add implements interval arithmetic: components add independently, since
// months and seconds are not commensurable without calendar context.
func (d DurationValue) Add(o DurationValue) DurationValue {
	return DurationValue{Months: d.Months + o.Months, Seconds: d.Seconds.Add(o.Seconds)}
}

func (d DurationValue) Sub(o DurationValue) DurationValue {
	return DurationValue{Months: d.Months - o.Months, Seconds: d.Seconds.Sub(o.Seconds)}
}

func (d DurationValue) Neg() DurationValue {
	return DurationValue{Months: -d.Months, Seconds: d.Seconds.Neg()}
}

// Cmp compares two durations only when both components order the same way
// (or one is zero); XSD duration comparison is a partial order in general,
// so ok is false for incomparable pairs (e.g. "P1M" vs "P30D").
func (d DurationValue) Cmp(o DurationValue) (cmp int, ok bool) {
	monthsCmp := cmpInt64(d.Months, o.Months)
	secondsCmp := d.Seconds.Cmp(o.Seconds)
	switch {
	case monthsCmp == 0 && secondsCmp == 0:
		return 0, true
	case monthsCmp == 0:
		return secondsCmp, true
	case secondsCmp == 0:
		return monthsCmp, true
	case monthsCmp == secondsCmp:
		return monthsCmp, true
	default:
		return 0, false
	}
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// String renders a canonical-ish ISO 8601 duration lexical form.
func (d DurationValue) String() string {
	if d.Months == 0 && d.Seconds.IsZero() {
		return "PT0S"
	}
	s := "P"
	neg := d.Months < 0
	months := d.Months
	if neg {
		months = -months
	}
	years, rem := months/12, months%12
	if years != 0 {
		s += fmt.Sprintf("%dY", years)
	}
	if rem != 0 {
		s += fmt.Sprintf("%dM", rem)
	}
	if !d.Seconds.IsZero() {
		s += "T" + d.Seconds.String() + "S"
	}
	if neg {
		s = "-" + s
	}
	return s
}
