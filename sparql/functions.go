package sparql

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/geoknoesis/quadgraph/rdf"
	"github.com/geoknoesis/quadgraph/xsd"
)

// evalEnv carries the per-evaluation state expression evaluation needs
// beyond the current solution: a stable "now" for NOW()/UUID-adjacent
// functions so a single query sees one consistent timestamp, and the
// custom extension-function registry for OpCustomCall.
type evalEnv struct {
	now     time.Time
	custom  map[string]CustomFunction
}

// CustomFunction implements an IRI-named extension function, the escape
// hatch for functions the SPARQL 1.1 grammar doesn't name.
type CustomFunction func(args []rdf.Term) (rdf.Term, error)

func newEvalEnv(custom map[string]CustomFunction) *evalEnv {
	return &evalEnv{now: time.Now(), custom: custom}
}

// typeError is returned by expression evaluation when SPARQL's three-
// valued logic calls for the expression to simply fail (an unbound
// variable, a type mismatch) rather than panic; callers turn this into
// "exclude the row" (FILTER) or "leave unbound" (BIND/SELECT expr).
type typeError struct{ msg string }

func (e *typeError) Error() string { return e.msg }

func typeErrorf(format string, args ...any) error {
	return &typeError{fmt.Sprintf(format, args...)}
}

// evalExpr evaluates e against sol, returning a type error (never a panic)
// when SPARQL's semantics call for the expression to be unevaluable.
func evalExpr(e Expr, sol Solution, env *evalEnv) (rdf.Term, error) {
	switch ex := e.(type) {
	case VarExpr:
		t, ok := sol[ex.Var]
		if !ok {
			return nil, typeErrorf("unbound variable ?%s", ex.Var)
		}
		return t, nil
	case ConstExpr:
		return ex.Term, nil
	case CallExpr:
		return evalCall(ex, sol, env)
	case ExistsExpr:
		return nil, typeErrorf("EXISTS must be evaluated by the caller, not evalExpr")
	case AggregateRefExpr:
		return nil, typeErrorf("aggregate reference outside of a post-GROUP context")
	default:
		return nil, typeErrorf("unknown expression node %T", e)
	}
}

// effectiveBooleanValue implements SPARQL's EBV coercion: booleans by
// value, numerics non-zero/non-NaN, strings non-empty; anything else is a
// type error.
func effectiveBooleanValue(t rdf.Term) (bool, error) {
	lit, ok := t.(rdf.Literal)
	if !ok {
		return false, typeErrorf("EBV: %T has no effective boolean value", t)
	}
	switch lit.Datatype {
	case xsd.Boolean:
		return lit.Lexical == "true" || lit.Lexical == "1", nil
	case xsd.String, rdf.IRI{}:
		return lit.Lexical != "", nil
	}
	if n, ok := extractNumeric(lit); ok {
		return n.f != 0 && !math.IsNaN(n.f), nil
	}
	return false, typeErrorf("EBV: literal with datatype %s has no effective boolean value", lit.Datatype.Value)
}

func boolLiteral(b bool) rdf.Literal {
	lex := "false"
	if b {
		lex = "true"
	}
	return rdf.Literal{Lexical: lex, Datatype: xsd.Boolean}
}

func stringLiteral(s string) rdf.Literal {
	return rdf.Literal{Lexical: s, Datatype: xsd.String}
}

func simpleLiteral(s string) rdf.Literal {
	return rdf.Literal{Lexical: s}
}

type numericValue struct {
	iri rdf.IRI
	f   float64
}

// numericRank orders the XSD numeric type promotion hierarchy SPARQL
// arithmetic uses to pick a result type: integer < decimal < float <
// double (spec's arithmetic operators promote to the wider operand type).
func numericRank(iri rdf.IRI) int {
	switch iri {
	case xsd.Double:
		return 3
	case xsd.Float:
		return 2
	case xsd.Decimal:
		return 1
	default:
		return 0 // integer family
	}
}

func extractNumeric(t rdf.Term) (numericValue, bool) {
	lit, ok := t.(rdf.Literal)
	if !ok || !xsd.IsNumeric(lit.Datatype) {
		return numericValue{}, false
	}
	if lit.Datatype == xsd.Decimal {
		d, err := xsd.ParseDecimal(lit.Lexical)
		if err != nil {
			return numericValue{}, false
		}
		return numericValue{iri: lit.Datatype, f: d.Float64()}, true
	}
	var f float64
	if _, err := fmt.Sscanf(lit.Lexical, "%g", &f); err != nil {
		return numericValue{}, false
	}
	return numericValue{iri: lit.Datatype, f: f}, true
}

func numericLiteral(v float64, iri rdf.IRI) rdf.Literal {
	switch iri {
	case xsd.Double, xsd.Float:
		return rdf.Literal{Lexical: formatFloat(v), Datatype: iri}
	case xsd.Decimal:
		d, _ := xsd.ParseDecimal(fmt.Sprintf("%.18f", v))
		return rdf.Literal{Lexical: d.String(), Datatype: xsd.Decimal}
	default:
		return rdf.Literal{Lexical: fmt.Sprintf("%d", int64(v)), Datatype: xsd.Integer}
	}
}

func formatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "INF"
	case math.IsInf(v, -1):
		return "-INF"
	default:
		return fmt.Sprintf("%g", v)
	}
}

func wideType(a, b rdf.IRI) rdf.IRI {
	if numericRank(a) >= numericRank(b) {
		return a
	}
	return b
}

func extractString(t rdf.Term) (string, error) {
	switch v := t.(type) {
	case rdf.Literal:
		if v.Datatype.Value != "" && v.Datatype != xsd.String {
			return "", typeErrorf("expected a string, got literal of type %s", v.Datatype.Value)
		}
		return v.Lexical, nil
	case rdf.IRI:
		return v.Value, nil
	default:
		return "", typeErrorf("cannot extract a string from %T", t)
	}
}

// stringArg additionally returns the literal's language tag, for CONCAT's
// same-language propagation rule.
func stringArg(t rdf.Term) (value, lang string, err error) {
	lit, ok := t.(rdf.Literal)
	if !ok {
		return "", "", typeErrorf("expected a string literal, got %T", t)
	}
	return lit.Lexical, lit.Lang, nil
}

func evalCall(c CallExpr, sol Solution, env *evalEnv) (rdf.Term, error) {
	// BOUND is the one builtin that must not evaluate its argument.
	if c.Op == OpBound {
		v, ok := c.Args[0].(VarExpr)
		if !ok {
			return nil, typeErrorf("BOUND requires a variable argument")
		}
		_, bound := sol[v.Var]
		return boolLiteral(bound), nil
	}

	args := make([]rdf.Term, len(c.Args))
	argErrs := make([]error, len(c.Args))
	tolerant := c.Op == OpCoalesce || c.Op == OpIn || c.Op == OpNotIn
	for i, a := range c.Args {
		// COALESCE and IN/NOT IN must not short-circuit on a per-element
		// evaluation error -- a later element may still decide the result.
		if tolerant {
			args[i], argErrs[i] = evalExpr(a, sol, env)
			continue
		}
		t, err := evalExpr(a, sol, env)
		if err != nil {
			return nil, err
		}
		args[i] = t
	}

	switch c.Op {
	case OpOr:
		return evalOr(c.Args, sol, env)
	case OpAnd:
		return evalAnd(c.Args, sol, env)
	case OpNot:
		b, err := effectiveBooleanValue(args[0])
		if err != nil {
			return nil, err
		}
		return boolLiteral(!b), nil
	case OpEqual, OpNotEqual, OpLess, OpLessEqual, OpGreater, OpGreaterEqual:
		return evalComparison(c.Op, args[0], args[1])
	case OpIn, OpNotIn:
		if argErrs[0] != nil {
			return nil, argErrs[0]
		}
		return evalInTolerant(c.Op, args[0], args[1:], argErrs[1:])
	case OpAdd, OpSub, OpMul, OpDiv:
		return evalArith(c.Op, args[0], args[1])
	case OpUnaryPlus:
		n, ok := extractNumeric(args[0])
		if !ok {
			return nil, typeErrorf("unary + requires a numeric operand")
		}
		return numericLiteral(n.f, n.iri), nil
	case OpUnaryMinus:
		n, ok := extractNumeric(args[0])
		if !ok {
			return nil, typeErrorf("unary - requires a numeric operand")
		}
		return numericLiteral(-n.f, n.iri), nil
	case OpIf:
		b, err := effectiveBooleanValue(args[0])
		if err != nil {
			return nil, err
		}
		if b {
			return evalExpr(c.Args[1], sol, env)
		}
		return evalExpr(c.Args[2], sol, env)
	case OpCoalesce:
		for i := range args {
			if argErrs[i] == nil {
				return args[i], nil
			}
		}
		return nil, typeErrorf("COALESCE: all arguments unevaluable")
	case OpSameTerm:
		return boolLiteral(rdf.Equal(args[0], args[1])), nil
	case OpIsIRI:
		_, ok := args[0].(rdf.IRI)
		return boolLiteral(ok), nil
	case OpIsBlank:
		_, ok := args[0].(rdf.BlankNode)
		return boolLiteral(ok), nil
	case OpIsLiteral:
		_, ok := args[0].(rdf.Literal)
		return boolLiteral(ok), nil
	case OpIsNumeric:
		_, ok := extractNumeric(args[0])
		return boolLiteral(ok), nil
	case OpIsTriple:
		_, ok := args[0].(rdf.TripleTerm)
		return boolLiteral(ok), nil
	case OpStr:
		return evalStr(args[0])
	case OpLang:
		lit, ok := args[0].(rdf.Literal)
		if !ok {
			return nil, typeErrorf("LANG requires a literal argument")
		}
		return simpleLiteral(lit.Lang), nil
	case OpDatatype:
		lit, ok := args[0].(rdf.Literal)
		if !ok {
			return nil, typeErrorf("DATATYPE requires a literal argument")
		}
		if lit.Lang != "" {
			return nil, typeErrorf("DATATYPE is undefined for a language-tagged literal")
		}
		if lit.Datatype.Value == "" {
			return xsd.String, nil
		}
		return lit.Datatype, nil
	case OpIRI:
		s, err := extractString(args[0])
		if err != nil {
			return nil, err
		}
		return rdf.IRI{Value: s}, nil
	case OpBNode:
		if len(args) == 0 {
			return rdf.BlankNode{ID: uuid.NewString()}, nil
		}
		s, err := extractString(args[0])
		if err != nil {
			return nil, err
		}
		return rdf.BlankNode{ID: s}, nil
	case OpStrDt:
		s, err := extractString(args[0])
		if err != nil {
			return nil, err
		}
		dt, ok := args[1].(rdf.IRI)
		if !ok {
			return nil, typeErrorf("STRDT requires an IRI datatype argument")
		}
		return rdf.Literal{Lexical: s, Datatype: dt}, nil
	case OpStrLang:
		s, err := extractString(args[0])
		if err != nil {
			return nil, err
		}
		lang, err := extractString(args[1])
		if err != nil {
			return nil, err
		}
		return rdf.Literal{Lexical: s, Lang: lang}, nil
	case OpUUID:
		return rdf.IRI{Value: "urn:uuid:" + uuid.NewString()}, nil
	case OpStrUUID:
		return simpleLiteral(uuid.NewString()), nil
	case OpStrLen:
		s, err := extractString(args[0])
		if err != nil {
			return nil, err
		}
		return rdf.Literal{Lexical: fmt.Sprintf("%d", len([]rune(s))), Datatype: xsd.Integer}, nil
	case OpSubstr:
		return evalSubstr(args)
	case OpUCase:
		return evalCaseMap(args[0], strings.ToUpper)
	case OpLCase:
		return evalCaseMap(args[0], strings.ToLower)
	case OpStrStarts:
		a, b, err := twoStrings(args)
		if err != nil {
			return nil, err
		}
		return boolLiteral(strings.HasPrefix(a, b)), nil
	case OpStrEnds:
		a, b, err := twoStrings(args)
		if err != nil {
			return nil, err
		}
		return boolLiteral(strings.HasSuffix(a, b)), nil
	case OpContains:
		a, b, err := twoStrings(args)
		if err != nil {
			return nil, err
		}
		return boolLiteral(strings.Contains(a, b)), nil
	case OpStrBefore:
		a, b, err := twoStrings(args)
		if err != nil {
			return nil, err
		}
		if i := strings.Index(a, b); i >= 0 {
			return simpleLiteral(a[:i]), nil
		}
		return simpleLiteral(""), nil
	case OpStrAfter:
		a, b, err := twoStrings(args)
		if err != nil {
			return nil, err
		}
		if i := strings.Index(a, b); i >= 0 {
			return simpleLiteral(a[i+len(b):]), nil
		}
		return simpleLiteral(""), nil
	case OpEncodeForURI:
		s, err := extractString(args[0])
		if err != nil {
			return nil, err
		}
		return simpleLiteral(encodeForURI(s)), nil
	case OpConcat:
		return evalConcat(args)
	case OpLangMatches:
		tag, err := extractString(args[0])
		if err != nil {
			return nil, err
		}
		rng, err := extractString(args[1])
		if err != nil {
			return nil, err
		}
		return boolLiteral(langMatches(tag, rng)), nil
	case OpRegex:
		return evalRegex(args)
	case OpReplace:
		return evalReplace(args)
	case OpAbs:
		n, ok := extractNumeric(args[0])
		if !ok {
			return nil, typeErrorf("ABS requires a numeric argument")
		}
		return numericLiteral(math.Abs(n.f), n.iri), nil
	case OpRound:
		n, ok := extractNumeric(args[0])
		if !ok {
			return nil, typeErrorf("ROUND requires a numeric argument")
		}
		return numericLiteral(math.Round(n.f), n.iri), nil
	case OpCeil:
		n, ok := extractNumeric(args[0])
		if !ok {
			return nil, typeErrorf("CEIL requires a numeric argument")
		}
		return numericLiteral(math.Ceil(n.f), n.iri), nil
	case OpFloor:
		n, ok := extractNumeric(args[0])
		if !ok {
			return nil, typeErrorf("FLOOR requires a numeric argument")
		}
		return numericLiteral(math.Floor(n.f), n.iri), nil
	case OpRand:
		return numericLiteral(pseudoRand(), xsd.Double), nil
	case OpNow:
		return rdf.Literal{Lexical: xsdDateTimeString(env.now), Datatype: xsd.DateTime}, nil
	case OpYear, OpMonth, OpDay, OpHours, OpMinutes, OpSeconds, OpTimezone, OpTZ:
		return evalDateTimePart(c.Op, args[0])
	case OpMD5:
		return hashHex(args[0], md5.Sum)
	case OpSHA1:
		return hashHexVar(args[0], func(b []byte) []byte { s := sha1.Sum(b); return s[:] })
	case OpSHA256:
		return hashHexVar(args[0], func(b []byte) []byte { s := sha256.Sum256(b); return s[:] })
	case OpSHA384:
		return hashHexVar(args[0], func(b []byte) []byte { s := sha512.Sum384(b); return s[:] })
	case OpSHA512:
		return hashHexVar(args[0], func(b []byte) []byte { s := sha512.Sum512(b); return s[:] })
	case OpTriple:
		p, ok := args[1].(rdf.IRI)
		if !ok {
			return nil, typeErrorf("TRIPLE requires an IRI predicate")
		}
		return rdf.TripleTerm{S: args[0], P: p, O: args[2]}, nil
	case OpSubject:
		t, ok := args[0].(rdf.TripleTerm)
		if !ok {
			return nil, typeErrorf("SUBJECT requires a triple term argument")
		}
		return t.S, nil
	case OpPredicate:
		t, ok := args[0].(rdf.TripleTerm)
		if !ok {
			return nil, typeErrorf("PREDICATE requires a triple term argument")
		}
		return t.P, nil
	case OpObject:
		t, ok := args[0].(rdf.TripleTerm)
		if !ok {
			return nil, typeErrorf("OBJECT requires a triple term argument")
		}
		return t.O, nil
	case OpCustomCall:
		fn, ok := env.custom[c.Name.Value]
		if !ok {
			return nil, typeErrorf("unknown extension function <%s>", c.Name.Value)
		}
		return fn(args)
	default:
		return nil, typeErrorf("unsupported operator %d", c.Op)
	}
}

func evalOr(exprs []Expr, sol Solution, env *evalEnv) (rdf.Term, error) {
	sawErr := false
	for _, e := range exprs {
		v, err := evalExpr(e, sol, env)
		if err != nil {
			sawErr = true
			continue
		}
		b, err := effectiveBooleanValue(v)
		if err != nil {
			sawErr = true
			continue
		}
		if b {
			return boolLiteral(true), nil
		}
	}
	if sawErr {
		return nil, typeErrorf("OR: operand unevaluable and no operand was true")
	}
	return boolLiteral(false), nil
}

func evalAnd(exprs []Expr, sol Solution, env *evalEnv) (rdf.Term, error) {
	sawErr := false
	for _, e := range exprs {
		v, err := evalExpr(e, sol, env)
		if err != nil {
			sawErr = true
			continue
		}
		b, err := effectiveBooleanValue(v)
		if err != nil {
			sawErr = true
			continue
		}
		if !b {
			return boolLiteral(false), nil
		}
	}
	if sawErr {
		return nil, typeErrorf("AND: operand unevaluable and no operand was false")
	}
	return boolLiteral(true), nil
}

// evalComparison implements SPARQL's = != < <= > >=. Equality covers
// numerics, simple/xsd:string literals, literals sharing one datatype
// (booleans included) and RDF term equality as a fallback; the ordering
// operators accept only numerics and simple/xsd:string literals.
func evalComparison(op OpKind, a, b rdf.Term) (rdf.Term, error) {
	if op == OpEqual || op == OpNotEqual {
		eq, err := termsEqualSPARQL(a, b)
		if err != nil {
			return nil, err
		}
		if op == OpNotEqual {
			eq = !eq
		}
		return boolLiteral(eq), nil
	}

	if na, ok := extractNumeric(a); ok {
		if nb, ok := extractNumeric(b); ok {
			return boolLiteral(orderResult(op, compareFloat(na.f, nb.f))), nil
		}
	}
	if la, ok := a.(rdf.Literal); ok {
		if lb, ok := b.(rdf.Literal); ok && sameStringType(la, lb) {
			return boolLiteral(orderResult(op, compareStrings(la.Lexical, lb.Lexical))), nil
		}
	}
	return nil, typeErrorf("%T and %T are not ordered comparable", a, b)
}

func sameStringType(a, b rdf.Literal) bool {
	plain := func(l rdf.Literal) bool { return l.Lang == "" && (l.Datatype.Value == "" || l.Datatype == xsd.String) }
	return plain(a) && plain(b)
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func orderResult(op OpKind, cmp int) bool {
	switch op {
	case OpLess:
		return cmp < 0
	case OpLessEqual:
		return cmp <= 0
	case OpGreater:
		return cmp > 0
	case OpGreaterEqual:
		return cmp >= 0
	default:
		return false
	}
}

// termsEqualSPARQL is SPARQL `=`: RDF term equality, extended with
// numeric-value equality across differently-typed numerics and
// plain/xsd:string cross equality.
func termsEqualSPARQL(a, b rdf.Term) (bool, error) {
	if na, ok := extractNumeric(a); ok {
		if nb, ok := extractNumeric(b); ok {
			return na.f == nb.f, nil
		}
	}
	la, aIsLit := a.(rdf.Literal)
	lb, bIsLit := b.(rdf.Literal)
	if aIsLit && bIsLit {
		if sameStringType(la, lb) {
			return la.Lexical == lb.Lexical, nil
		}
		if la.Datatype != lb.Datatype || la.Lang != lb.Lang {
			if la.Datatype.Value == "" && lb.Datatype.Value == "" {
				return la.Lexical == lb.Lexical && la.Lang == lb.Lang, nil
			}
			return false, typeErrorf("incomparable literal datatypes %s and %s", la.Datatype.Value, lb.Datatype.Value)
		}
		return la.Lexical == lb.Lexical, nil
	}
	return rdf.Equal(a, b), nil
}

// evalInTolerant implements IN/NOT IN: a member that failed to evaluate
// (memberErrs[i] != nil) only fails the whole expression if no other
// member decides it first.
func evalInTolerant(op OpKind, needle rdf.Term, haystack []rdf.Term, memberErrs []error) (rdf.Term, error) {
	sawErr := false
	for i, t := range haystack {
		if memberErrs[i] != nil {
			sawErr = true
			continue
		}
		eq, err := termsEqualSPARQL(needle, t)
		if err != nil {
			sawErr = true
			continue
		}
		if eq {
			return boolLiteral(op == OpIn), nil
		}
	}
	if sawErr {
		return nil, typeErrorf("IN: member unevaluable and no member matched")
	}
	return boolLiteral(op == OpNotIn), nil
}

func evalArith(op OpKind, a, b rdf.Term) (rdf.Term, error) {
	na, ok := extractNumeric(a)
	if !ok {
		return nil, typeErrorf("arithmetic requires a numeric left operand, got %T", a)
	}
	nb, ok := extractNumeric(b)
	if !ok {
		return nil, typeErrorf("arithmetic requires a numeric right operand, got %T", b)
	}
	result := wideType(na.iri, nb.iri)
	switch op {
	case OpAdd:
		return numericLiteral(xsd.Add(na.f, nb.f), result), nil
	case OpSub:
		return numericLiteral(xsd.Sub(na.f, nb.f), result), nil
	case OpMul:
		return numericLiteral(xsd.Mul(na.f, nb.f), result), nil
	case OpDiv:
		if numericRank(result) == 0 || result == xsd.Decimal {
			if nb.f == 0 {
				return nil, typeErrorf("division by zero")
			}
		}
		return numericLiteral(xsd.Div(na.f, nb.f), widenForDivision(result)), nil
	default:
		return nil, typeErrorf("not an arithmetic operator")
	}
}

// widenForDivision promotes an integer-family division result to decimal,
// since SPARQL's "/" always yields a decimal or floating type, never integer.
func widenForDivision(iri rdf.IRI) rdf.IRI {
	if numericRank(iri) == 0 {
		return xsd.Decimal
	}
	return iri
}

func evalStr(t rdf.Term) (rdf.Term, error) {
	switch v := t.(type) {
	case rdf.IRI:
		return simpleLiteral(v.Value), nil
	case rdf.Literal:
		return simpleLiteral(v.Lexical), nil
	default:
		return nil, typeErrorf("STR cannot be applied to %T", t)
	}
}

func evalCaseMap(t rdf.Term, f func(string) string) (rdf.Term, error) {
	val, lang, err := stringArg(t)
	if err != nil {
		return nil, err
	}
	lit := t.(rdf.Literal)
	return rdf.Literal{Lexical: f(val), Datatype: lit.Datatype, Lang: lang}, nil
}

func twoStrings(args []rdf.Term) (string, string, error) {
	a, err := extractString(args[0])
	if err != nil {
		return "", "", err
	}
	b, err := extractString(args[1])
	if err != nil {
		return "", "", err
	}
	return a, b, nil
}

func evalConcat(args []rdf.Term) (rdf.Term, error) {
	var sb strings.Builder
	commonLang := ""
	allSameLang := true
	for i, t := range args {
		val, lang, err := stringArg(t)
		if err != nil {
			return nil, err
		}
		sb.WriteString(val)
		if i == 0 {
			commonLang = lang
		} else if lang != commonLang {
			allSameLang = false
		}
	}
	if allSameLang && commonLang != "" {
		return rdf.Literal{Lexical: sb.String(), Lang: commonLang}, nil
	}
	return simpleLiteral(sb.String()), nil
}

func evalSubstr(args []rdf.Term) (rdf.Term, error) {
	val, lang, err := stringArg(args[0])
	if err != nil {
		return nil, err
	}
	runes := []rune(val)
	start, ok := extractNumeric(args[1])
	if !ok {
		return nil, typeErrorf("SUBSTR requires a numeric start position")
	}
	startIdx := int(math.Round(start.f)) - 1
	if startIdx < 0 {
		startIdx = 0
	}
	if startIdx >= len(runes) {
		return simpleLiteral(""), nil
	}
	endIdx := len(runes)
	if len(args) == 3 {
		length, ok := extractNumeric(args[2])
		if !ok {
			return nil, typeErrorf("SUBSTR requires a numeric length")
		}
		endIdx = startIdx + int(math.Round(length.f))
		if endIdx > len(runes) {
			endIdx = len(runes)
		}
	}
	lit := args[0].(rdf.Literal)
	return rdf.Literal{Lexical: string(runes[startIdx:endIdx]), Datatype: lit.Datatype, Lang: lang}, nil
}

func encodeForURI(s string) string {
	const unreserved = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_.~"
	var sb strings.Builder
	for _, b := range []byte(s) {
		if strings.IndexByte(unreserved, b) >= 0 {
			sb.WriteByte(b)
		} else {
			fmt.Fprintf(&sb, "%%%02X", b)
		}
	}
	return sb.String()
}

// langMatches implements RFC 4647 basic filtering, as SPARQL's
// langMatches builtin requires: "*" matches any non-empty tag, an exact
// match (case-insensitive), or a "-"-delimited prefix match.
func langMatches(tag, rng string) bool {
	tag, rng = strings.ToLower(tag), strings.ToLower(rng)
	if rng == "*" {
		return tag != ""
	}
	if tag == rng {
		return true
	}
	return strings.HasPrefix(tag, rng+"-")
}

// evalRegex translates SPARQL's i/m/s/x/q flags into Go regexp syntax,
// following the same inline-flag-group approach as the function this
// package's builtin dispatch is grounded on.
func evalRegex(args []rdf.Term) (rdf.Term, error) {
	text, err := extractString(args[0])
	if err != nil {
		return nil, err
	}
	pattern, err := extractString(args[1])
	if err != nil {
		return nil, err
	}
	var flags string
	if len(args) == 3 {
		flags, err = extractString(args[2])
		if err != nil {
			return nil, err
		}
	}
	pattern, err = applyRegexFlags(pattern, flags)
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, typeErrorf("invalid regex pattern: %v", err)
	}
	return boolLiteral(re.MatchString(text)), nil
}

func applyRegexFlags(pattern, flags string) (string, error) {
	if flags == "" {
		return pattern, nil
	}
	quote := false
	var mods strings.Builder
	for _, f := range flags {
		switch f {
		case 'i', 'm', 's', 'x':
			mods.WriteRune(f)
		case 'q':
			quote = true
		default:
			return "", typeErrorf("unsupported REGEX flag %q", string(f))
		}
	}
	if quote {
		pattern = regexp.QuoteMeta(pattern)
	}
	if mods.Len() > 0 {
		pattern = "(?" + mods.String() + ")" + pattern
	}
	return pattern, nil
}

func evalReplace(args []rdf.Term) (rdf.Term, error) {
	text, lang, err := stringArg(args[0])
	if err != nil {
		return nil, err
	}
	pattern, err := extractString(args[1])
	if err != nil {
		return nil, err
	}
	replacement, err := extractString(args[2])
	if err != nil {
		return nil, err
	}
	var flags string
	if len(args) == 4 {
		flags, err = extractString(args[3])
		if err != nil {
			return nil, err
		}
	}
	pattern, err = applyRegexFlags(pattern, flags)
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, typeErrorf("invalid regex pattern: %v", err)
	}
	goReplacement := convertSPARQLReplacement(replacement)
	out := re.ReplaceAllString(text, goReplacement)
	lit := args[0].(rdf.Literal)
	return rdf.Literal{Lexical: out, Datatype: lit.Datatype, Lang: lang}, nil
}

// convertSPARQLReplacement rewrites SPARQL/XPath "$1" backreferences into
// Go regexp's "${1}" form.
func convertSPARQLReplacement(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '$' && i+1 < len(s) && s[i+1] >= '0' && s[i+1] <= '9' {
			j := i + 1
			for j < len(s) && s[j] >= '0' && s[j] <= '9' {
				j++
			}
			sb.WriteString("${" + s[i+1:j] + "}")
			i = j - 1
			continue
		}
		if s[i] == '$' {
			sb.WriteString("$$")
			continue
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

func pseudoRand() float64 {
	// A lightweight time-derived source: the fraction of the current
	// second, so two calls within the same nanosecond return the same value.
	return float64(time.Now().UnixNano()%1_000_000_000) / 1_000_000_000
}

func xsdDateTimeString(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.999999999Z")
}

func evalDateTimePart(op OpKind, t rdf.Term) (rdf.Term, error) {
	lit, ok := t.(rdf.Literal)
	if !ok || (lit.Datatype != xsd.DateTime && lit.Datatype != xsd.Date) {
		return nil, typeErrorf("date/time accessor requires an xsd:dateTime or xsd:date argument")
	}
	dt, err := xsd.ParseDateTime(lit.Lexical)
	if err != nil {
		dt, err = xsd.ParseDate(lit.Lexical)
	}
	if err != nil {
		return nil, typeErrorf("invalid date/time lexical form %q", lit.Lexical)
	}
	switch op {
	case OpYear:
		return rdf.Literal{Lexical: fmt.Sprintf("%d", dt.Year()), Datatype: xsd.Integer}, nil
	case OpMonth:
		return rdf.Literal{Lexical: fmt.Sprintf("%d", dt.Month()), Datatype: xsd.Integer}, nil
	case OpDay:
		return rdf.Literal{Lexical: fmt.Sprintf("%d", dt.Day()), Datatype: xsd.Integer}, nil
	case OpHours:
		return rdf.Literal{Lexical: fmt.Sprintf("%d", dt.Hours()), Datatype: xsd.Integer}, nil
	case OpMinutes:
		return rdf.Literal{Lexical: fmt.Sprintf("%d", dt.Minutes()), Datatype: xsd.Integer}, nil
	case OpSeconds:
		return rdf.Literal{Lexical: dt.Seconds().String(), Datatype: xsd.Decimal}, nil
	case OpTimezone:
		tz, ok := dt.Timezone()
		if !ok {
			return nil, typeErrorf("TIMEZONE: no timezone on this value")
		}
		return rdf.Literal{Lexical: tz, Datatype: xsd.DayTimeDuration}, nil
	case OpTZ:
		tz, ok := dt.Timezone()
		if !ok {
			return simpleLiteral(""), nil
		}
		return simpleLiteral(tz), nil
	default:
		return nil, typeErrorf("not a date/time accessor")
	}
}

func hashHex(t rdf.Term, sum func([]byte) [16]byte) (rdf.Term, error) {
	s, err := extractString(t)
	if err != nil {
		return nil, err
	}
	h := sum([]byte(s))
	return simpleLiteral(hex.EncodeToString(h[:])), nil
}

func hashHexVar(t rdf.Term, sum func([]byte) []byte) (rdf.Term, error) {
	s, err := extractString(t)
	if err != nil {
		return nil, err
	}
	return simpleLiteral(hex.EncodeToString(sum([]byte(s)))), nil
}
