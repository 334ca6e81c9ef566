package xsd

import (
	"fmt"
	"time"
)

// DateTimeValue wraps the XSD dateTime/date/time lexical space over time.Time,
// keeping an explicit HasTimezone flag since XSD treats a dateTime with no
// timezone as distinct from (and incomparable in places with) one that
// carries "Z" or an offset -- information time.Time alone can't carry once
// parsed with a fixed location.
type DateTimeValue struct {
	Value       time.Time
	HasTimezone bool
}

const xsdDateTimeLayout = "2006-01-02T15:04:05.999999999Z07:00"
const xsdDateTimeLayoutNoTZ = "2006-01-02T15:04:05.999999999"
const xsdDateLayout = "2006-01-02Z07:00"
const xsdDateLayoutNoTZ = "2006-01-02"

// ParseDateTime parses an xsd:dateTime lexical form.
func ParseDateTime(s string) (DateTimeValue, error) {
	if t, err := time.Parse(xsdDateTimeLayout, s); err == nil {
		return DateTimeValue{Value: t, HasTimezone: true}, nil
	}
	if t, err := time.Parse(xsdDateTimeLayoutNoTZ, s); err == nil {
		return DateTimeValue{Value: t, HasTimezone: false}, nil
	}
	return DateTimeValue{}, fmt.Errorf("xsd:dateTime: invalid lexical form %q", s)
}

// ParseDate parses an xsd:date lexical form.
func ParseDate(s string) (DateTimeValue, error) {
	if t, err := time.Parse(xsdDateLayout, s); err == nil {
		return DateTimeValue{Value: t, HasTimezone: true}, nil
	}
	if t, err := time.Parse(xsdDateLayoutNoTZ, s); err == nil {
		return DateTimeValue{Value: t, HasTimezone: false}, nil
	}
	return DateTimeValue{}, fmt.Errorf("xsd:date: invalid lexical form %q", s)
}

func (d DateTimeValue) String() string {
	if d.HasTimezone {
		return d.Value.Format(xsdDateTimeLayout)
	}
	return d.Value.Format(xsdDateTimeLayoutNoTZ)
}

// Compare orders two dateTimes. Per XSD 1.1 §3.2.7.4, comparing a
// timezoned value against an untimezoned one is only partially defined;
// this implementation follows the common SPARQL-engine convention of
// treating an untimezoned value as if it were UTC; there is no option to
// change that.
func (d DateTimeValue) Compare(o DateTimeValue) int {
	switch {
	case d.Value.Before(o.Value):
		return -1
	case d.Value.After(o.Value):
		return 1
	default:
		return 0
	}
}

// AddDuration applies a DurationValue's months/seconds components via calendar
// arithmetic (AddDate for months, Add for the seconds remainder).
func (d DateTimeValue) AddDuration(dur DurationValue) DateTimeValue {
	months := dur.Months
	secs := dur.Seconds.Float64()
	v := d.Value.AddDate(0, int(months), 0).Add(time.Duration(secs * float64(time.Second)))
	return DateTimeValue{Value: v, HasTimezone: d.HasTimezone}
}

// Year, Month, Day, Hours, Minutes, Seconds, Timezone expose the XPath
// accessor functions SPARQL's date/time builtins delegate to.
func (d DateTimeValue) Year() int       { return d.Value.Year() }
func (d DateTimeValue) Month() int      { return int(d.Value.Month()) }
func (d DateTimeValue) Day() int        { return d.Value.Day() }
func (d DateTimeValue) Hours() int      { return d.Value.Hour() }
func (d DateTimeValue) Minutes() int    { return d.Value.Minute() }
func (d DateTimeValue) Seconds() DecimalValue {
	ns := d.Value.Nanosecond()
	sec := d.Value.Second()
	dec, _ := ParseDecimal(fmt.Sprintf("%d.%09d", sec, ns))
	return dec
}
func (d DateTimeValue) Timezone() (string, bool) {
	if !d.HasTimezone {
		return "", false
	}
	_, offset := d.Value.Zone()
	if offset == 0 {
		return "PT0S", true
	}
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	return fmt.Sprintf("%sPT%dH%dM", sign, offset/3600, (offset%3600)/60), true
}
