package xsd

import "math"

// BooleanValue mirrors oxsdatatypes::BooleanValue: a thin wrapper so conversions from
// the other numeric types (non-zero, non-NaN) go through one place.
type BooleanValue bool

// BooleanFromFloat reports the XPath effective boolean value of f: false for
// zero and NaN, true otherwise.
func BooleanFromFloat(f float64) BooleanValue {
	return BooleanValue(f != 0 && !math.IsNaN(f))
}

// FloatEqual implements XSD float/double "identical" comparison: bit
// pattern equality, not IEEE-754 equality. Two NaNs with the same bits are
// identical; +0 and -0 are not (their bit patterns differ), matching
// oxsdatatypes' round-trip requirement over IEEE ==.
func FloatEqual(a, b float64) bool {
	return math.Float64bits(a) == math.Float64bits(b)
}

// Float32Equal is FloatEqual for xsd:float (stored as float32 lexical
// precision, promoted to float64 for arithmetic).
func Float32Equal(a, b float32) bool {
	return math.Float32bits(a) == math.Float32bits(b)
}

// Add, Sub, Mul, Div implement IEEE-754 arithmetic for xsd:double/xsd:float,
// propagating NaN/Inf per IEEE rules (division by zero yields +Inf/-Inf/NaN,
// never an error) -- the XPath numeric-operators semantics for the floating
// types, as opposed to xsd:decimal/xsd:integer division by zero, which is an
// evaluation error (see DecimalValue.Div).
func Add(a, b float64) float64 { return a + b }
func Sub(a, b float64) float64 { return a - b }
func Mul(a, b float64) float64 { return a * b }
func Div(a, b float64) float64 { return a / b }

// UnaryMinus negates f, preserving sign of zero and NaN payload per IEEE-754.
func UnaryMinus(f float64) float64 { return -f }

// Compare orders two xsd:double/xsd:float values per XPath fn:compare
// semantics for numerics: NaN is incomparable (returns false, false) rather
// than participating in the total order used elsewhere (Term.Compare).
func Compare(a, b float64) (less bool, ok bool) {
	if math.IsNaN(a) || math.IsNaN(b) {
		return false, false
	}
	return a < b, true
}
