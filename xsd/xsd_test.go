package xsd

import (
	"math"
	"testing"
)

func TestDecimalParseAndCanonicalForm(t *testing.T) {
	cases := []struct{ in, want string }{
		{"1", "1.0"},
		{"-12.340", "-12.34"},
		{"+0.5", "0.5"},
		{".25", "0.25"},
		{"10.", "10.0"},
	}
	for _, c := range cases {
		d, err := ParseDecimal(c.in)
		if err != nil {
			t.Fatalf("ParseDecimal(%q): %v", c.in, err)
		}
		if got := d.String(); got != c.want {
			t.Fatalf("ParseDecimal(%q).String() = %q, want %q", c.in, got, c.want)
		}
	}
	if _, err := ParseDecimal(""); err == nil {
		t.Fatalf("empty lexical form must not parse")
	}
	if _, err := ParseDecimal("1.2.3"); err == nil {
		t.Fatalf("double dot must not parse")
	}
}

func TestDecimalArithmeticIsExact(t *testing.T) {
	// 0.1 + 0.2 must be exactly 0.3; no binary-float rounding residue.
	a, _ := ParseDecimal("0.1")
	b, _ := ParseDecimal("0.2")
	if got := a.Add(b).String(); got != "0.3" {
		t.Fatalf("0.1 + 0.2 = %q, want 0.3", got)
	}

	x, _ := ParseDecimal("2.5")
	y, _ := ParseDecimal("4")
	if got := x.Mul(y).String(); got != "10.0" {
		t.Fatalf("2.5 * 4 = %q, want 10.0", got)
	}
	if got := y.Sub(x).String(); got != "1.5" {
		t.Fatalf("4 - 2.5 = %q, want 1.5", got)
	}

	q, err := y.Div(x)
	if err != nil {
		t.Fatalf("Div: %v", err)
	}
	if got := q.String(); got != "1.6" {
		t.Fatalf("4 / 2.5 = %q, want 1.6", got)
	}
}

func TestDecimalDivisionByZeroErrors(t *testing.T) {
	a := NewDecimalFromInt64(1)
	zero := NewDecimalFromInt64(0)
	if _, err := a.Div(zero); err == nil {
		t.Fatalf("decimal division by zero must be an error, not Inf")
	}
}

func TestDecimalCompare(t *testing.T) {
	a, _ := ParseDecimal("-0.5")
	b, _ := ParseDecimal("0.5")
	if a.Cmp(b) >= 0 || b.Cmp(a) <= 0 || a.Cmp(a) != 0 {
		t.Fatalf("unexpected ordering: a.Cmp(b)=%d b.Cmp(a)=%d", a.Cmp(b), b.Cmp(a))
	}
}

func TestFloatEqualIsBitIdentity(t *testing.T) {
	nan := math.NaN()
	if !FloatEqual(nan, nan) {
		t.Fatalf("a NaN must equal itself bit-for-bit")
	}
	if FloatEqual(0.0, math.Copysign(0, -1)) {
		t.Fatalf("+0 and -0 differ in bits and must not be identical")
	}
	if !FloatEqual(1.5, 1.5) {
		t.Fatalf("equal values must be identical")
	}
}

func TestFloatCompareNaNIncomparable(t *testing.T) {
	if _, ok := Compare(math.NaN(), 1); ok {
		t.Fatalf("NaN must be incomparable")
	}
	less, ok := Compare(1, 2)
	if !ok || !less {
		t.Fatalf("1 < 2 expected, got less=%v ok=%v", less, ok)
	}
}

func TestDurationArithmeticAndOrder(t *testing.T) {
	ym := NewYearMonthDuration(14) // P1Y2M
	if got := ym.String(); got != "P1Y2M" {
		t.Fatalf("P1Y2M rendered as %q", got)
	}

	thirty, _ := ParseDecimal("30")
	dt := NewDayTimeDuration(thirty)
	sum := ym.Add(dt)
	if sum.Months != 14 || sum.Seconds.String() != "30.0" {
		t.Fatalf("unexpected sum %+v", sum)
	}

	neg := sum.Neg()
	if neg.Months != -14 {
		t.Fatalf("Neg months = %d", neg.Months)
	}

	// Two pure year-month durations are comparable.
	a := NewYearMonthDuration(12)
	b := NewYearMonthDuration(13)
	cmp, ok := a.Cmp(b)
	if !ok || cmp >= 0 {
		t.Fatalf("P1Y < P1Y1M expected, got cmp=%d ok=%v", cmp, ok)
	}

	// A year-month vs a day-time duration is indeterminate.
	if _, ok := a.Cmp(dt); ok {
		t.Fatalf("months-vs-seconds comparison must be indeterminate")
	}

	if got := DurationValue{}.String(); got != "PT0S" {
		t.Fatalf("zero duration rendered as %q", got)
	}
}

func TestDateTimeParseKeepsTimezonePresence(t *testing.T) {
	withTZ, err := ParseDateTime("2024-02-29T12:30:00Z")
	if err != nil {
		t.Fatalf("ParseDateTime: %v", err)
	}
	if !withTZ.HasTimezone {
		t.Fatalf("Z-suffixed dateTime must record a timezone")
	}

	noTZ, err := ParseDateTime("2024-02-29T12:30:00")
	if err != nil {
		t.Fatalf("ParseDateTime: %v", err)
	}
	if noTZ.HasTimezone {
		t.Fatalf("timezone-free dateTime must record its absence")
	}
	if got := noTZ.String(); got != "2024-02-29T12:30:00" {
		t.Fatalf("round-trip lost the lexical form: %q", got)
	}

	if _, err := ParseDateTime("2024-13-01T00:00:00"); err == nil {
		t.Fatalf("month 13 must not parse")
	}

	d, err := ParseDate("2024-02-29")
	if err != nil || d.HasTimezone {
		t.Fatalf("ParseDate: %+v err=%v", d, err)
	}
}

func TestDatatypeClassifiers(t *testing.T) {
	if !IsNumeric(Integer) || !IsNumeric(Decimal) || !IsNumeric(Double) {
		t.Fatalf("integer/decimal/double are numeric")
	}
	if IsNumeric(String) {
		t.Fatalf("xsd:string is not numeric")
	}
	if !IsIntegerFamily(Integer) {
		t.Fatalf("xsd:integer is in the integer family")
	}
	if IsIntegerFamily(Double) {
		t.Fatalf("xsd:double is not in the integer family")
	}
}
