package xsd

import (
	"fmt"
	"math/big"
	"strings"
)

// decimalScale is the fixed number of fractional digits xsd:decimal values
// carry internally, matching oxsdatatypes' i128-scaled representation
// (18 digits of scale gives headroom for SPARQL's typical decimal
// arithmetic without overflowing on repeated multiplication).
const decimalScale = 18

var scaleFactor = new(big.Int).Exp(big.NewInt(10), big.NewInt(decimalScale), nil)

// DecimalValue is a fixed-scale arbitrary-precision decimal: value == mantissa /
// 10^decimalScale. Grounded on oxsdatatypes::DecimalValue's scaled-integer
// design (no binary float involved, so decimal arithmetic never
// accumulates IEEE rounding error).
type DecimalValue struct {
	mantissa *big.Int
}

// NewDecimalFromInt64 builds a DecimalValue representing an exact integer.
func NewDecimalFromInt64(v int64) DecimalValue {
	return DecimalValue{mantissa: new(big.Int).Mul(big.NewInt(v), scaleFactor)}
}

// ParseDecimal parses an XSD decimal lexical form ("-12.340").
func ParseDecimal(s string) (DecimalValue, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DecimalValue{}, fmt.Errorf("xsd:decimal: empty lexical form")
	}
	neg := false
	switch s[0] {
	case '+':
		s = s[1:]
	case '-':
		neg = true
		s = s[1:]
	}
	intPart, fracPart, hasFrac := s, "", false
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart, hasFrac = s[:i], s[i+1:], true
	}
	if intPart == "" {
		intPart = "0"
	}
	if !hasFrac {
		fracPart = ""
	}
	if len(fracPart) > decimalScale {
		return DecimalValue{}, fmt.Errorf("xsd:decimal: %q exceeds supported scale", s)
	}
	fracPart += strings.Repeat("0", decimalScale-len(fracPart))
	digits := intPart + fracPart
	m, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return DecimalValue{}, fmt.Errorf("xsd:decimal: invalid lexical form %q", s)
	}
	if neg {
		m.Neg(m)
	}
	return DecimalValue{mantissa: m}, nil
}

// String renders the canonical XSD decimal lexical form.
func (d DecimalValue) String() string {
	if d.mantissa == nil {
		return "0.0"
	}
	neg := d.mantissa.Sign() < 0
	abs := new(big.Int).Abs(d.mantissa)
	digits := abs.String()
	for len(digits) <= decimalScale {
		digits = "0" + digits
	}
	intPart := digits[:len(digits)-decimalScale]
	fracPart := strings.TrimRight(digits[len(digits)-decimalScale:], "0")
	if fracPart == "" {
		fracPart = "0"
	}
	s := intPart + "." + fracPart
	if neg {
		s = "-" + s
	}
	return s
}

// mant is the zero-value guard: a DecimalValue's zero value means zero,
// so every method reads the mantissa through here instead of touching the
// possibly-nil pointer.
func (d DecimalValue) mant() *big.Int {
	if d.mantissa == nil {
		return new(big.Int)
	}
	return d.mantissa
}

func (d DecimalValue) Add(o DecimalValue) DecimalValue {
	return DecimalValue{mantissa: new(big.Int).Add(d.mant(), o.mant())}
}

func (d DecimalValue) Sub(o DecimalValue) DecimalValue {
	return DecimalValue{mantissa: new(big.Int).Sub(d.mant(), o.mant())}
}

func (d DecimalValue) Mul(o DecimalValue) DecimalValue {
	product := new(big.Int).Mul(d.mant(), o.mant())
	return DecimalValue{mantissa: product.Div(product, scaleFactor)}
}

// Div divides d by o. Per the SPARQL 1.1 operator mapping, xsd:decimal
// division by zero raises a type error, unlike IEEE float division which
// produces Inf/NaN.
func (d DecimalValue) Div(o DecimalValue) (DecimalValue, error) {
	if o.mant().Sign() == 0 {
		return DecimalValue{}, fmt.Errorf("xsd:decimal: division by zero")
	}
	scaled := new(big.Int).Mul(d.mant(), scaleFactor)
	return DecimalValue{mantissa: scaled.Div(scaled, o.mant())}, nil
}

func (d DecimalValue) Neg() DecimalValue {
	return DecimalValue{mantissa: new(big.Int).Neg(d.mant())}
}

// Cmp implements total ordering used by fn:compare/ORDER BY.
func (d DecimalValue) Cmp(o DecimalValue) int {
	return d.mant().Cmp(o.mant())
}

func (d DecimalValue) IsZero() bool { return d.mant().Sign() == 0 }

// Float64 converts to a float64 for interop with xsd:double arithmetic
// (SPARQL promotes mixed decimal/double operands to double).
func (d DecimalValue) Float64() float64 {
	f := new(big.Float).SetInt(d.mant())
	scale := new(big.Float).SetInt(scaleFactor)
	f.Quo(f, scale)
	result, _ := f.Float64()
	return result
}
