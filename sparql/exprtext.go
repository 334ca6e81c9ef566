package sparql

import (
	"fmt"
	"strconv"
	"strings"
)

// writeExpr renders e back into SPARQL surface syntax, the inverse of
// exprparse.go's expression parsing. Used only to serialize a SERVICE
// sub-pattern's FILTER/BIND expressions for the outbound SELECT text
// (service.go); never exercised on the query-evaluation hot path.
func writeExpr(b *strings.Builder, e Expr) error {
	switch ex := e.(type) {
	case VarExpr:
		fmt.Fprintf(b, "?%s", ex.Var)
		return nil
	case ConstExpr:
		b.WriteString(termToSPARQL(ex.Term))
		return nil
	case ExistsExpr:
		if ex.Negate {
			b.WriteString("NOT ")
		}
		b.WriteString("EXISTS { ")
		if err := writeGroupGraphPattern(b, ex.Pattern); err != nil {
			return err
		}
		b.WriteString("}")
		return nil
	case AggregateRefExpr:
		return writeAggregate(b, ex.Func)
	case CallExpr:
		return writeCall(b, ex)
	default:
		return fmt.Errorf("sparql: cannot serialize expression of type %T", e)
	}
}

func writeAggregate(b *strings.Builder, fn AggregateFunc) error {
	name, ok := aggregateNames[fn.Kind]
	if !ok {
		return fmt.Errorf("sparql: unknown aggregate kind %d", fn.Kind)
	}
	b.WriteString(name)
	b.WriteString("(")
	if fn.Distinct {
		b.WriteString("DISTINCT ")
	}
	if fn.Expr == nil {
		b.WriteString("*")
	} else if err := writeExpr(b, fn.Expr); err != nil {
		return err
	}
	if fn.Kind == AggGroupConcat && fn.Separator != "" {
		fmt.Fprintf(b, "; SEPARATOR=%s", strconv.Quote(fn.Separator))
	}
	b.WriteString(")")
	return nil
}

var aggregateNames = map[AggregateKind]string{
	AggCount:       "COUNT",
	AggSum:         "SUM",
	AggMin:         "MIN",
	AggMax:         "MAX",
	AggAvg:         "AVG",
	AggGroupConcat: "GROUP_CONCAT",
	AggSample:      "SAMPLE",
}

// infixOps maps binary operators to their SPARQL surface spelling.
var infixOps = map[OpKind]string{
	OpEqual: "=", OpNotEqual: "!=",
	OpLess: "<", OpLessEqual: "<=", OpGreater: ">", OpGreaterEqual: ">=",
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/",
}

// funcNames maps OpKind to its SPARQL built-in function name for every
// operator that isn't an infix/unary operator or a functional form with
// bespoke syntax (those are handled directly in writeCall).
var funcNames = map[OpKind]string{
	OpBound: "BOUND", OpSameTerm: "sameTerm",
	OpIsIRI: "isIRI", OpIsBlank: "isBlank", OpIsLiteral: "isLiteral", OpIsNumeric: "isNumeric",
	OpStr: "STR", OpLang: "LANG", OpDatatype: "DATATYPE", OpIRI: "IRI", OpBNode: "BNODE",
	OpStrDt: "STRDT", OpStrLang: "STRLANG", OpUUID: "UUID", OpStrUUID: "STRUUID",
	OpStrLen: "STRLEN", OpSubstr: "SUBSTR", OpUCase: "UCASE", OpLCase: "LCASE",
	OpStrStarts: "STRSTARTS", OpStrEnds: "STRENDS", OpContains: "CONTAINS",
	OpStrBefore: "STRBEFORE", OpStrAfter: "STRAFTER", OpEncodeForURI: "ENCODE_FOR_URI",
	OpConcat: "CONCAT", OpLangMatches: "LANGMATCHES", OpRegex: "REGEX", OpReplace: "REPLACE",
	OpAbs: "ABS", OpRound: "ROUND", OpCeil: "CEIL", OpFloor: "FLOOR", OpRand: "RAND", OpNow: "NOW",
	OpYear: "YEAR", OpMonth: "MONTH", OpDay: "DAY", OpHours: "HOURS", OpMinutes: "MINUTES",
	OpSeconds: "SECONDS", OpTimezone: "TIMEZONE", OpTZ: "TZ",
	OpMD5: "MD5", OpSHA1: "SHA1", OpSHA256: "SHA256", OpSHA384: "SHA384", OpSHA512: "SHA512",
	OpTriple: "TRIPLE", OpSubject: "SUBJECT", OpPredicate: "PREDICATE", OpObject: "OBJECT",
	OpIsTriple: "isTRIPLE",
}

func writeCall(b *strings.Builder, c CallExpr) error {
	switch c.Op {
	case OpOr:
		return writeJoined(b, c.Args, " || ")
	case OpAnd:
		return writeJoined(b, c.Args, " && ")
	case OpNot:
		b.WriteString("!")
		return writeParen(b, c.Args[0])
	case OpUnaryPlus:
		b.WriteString("+")
		return writeParen(b, c.Args[0])
	case OpUnaryMinus:
		b.WriteString("-")
		return writeParen(b, c.Args[0])
	case OpIf:
		b.WriteString("IF(")
		if err := writeArgs(b, c.Args); err != nil {
			return err
		}
		b.WriteString(")")
		return nil
	case OpCoalesce:
		b.WriteString("COALESCE(")
		if err := writeArgs(b, c.Args); err != nil {
			return err
		}
		b.WriteString(")")
		return nil
	case OpIn, OpNotIn:
		if err := writeParen(b, c.Args[0]); err != nil {
			return err
		}
		if c.Op == OpNotIn {
			b.WriteString(" NOT IN (")
		} else {
			b.WriteString(" IN (")
		}
		if err := writeArgs(b, c.Args[1:]); err != nil {
			return err
		}
		b.WriteString(")")
		return nil
	case OpCustomCall:
		b.WriteString("<" + c.Name.Value + ">(")
		if err := writeArgs(b, c.Args); err != nil {
			return err
		}
		b.WriteString(")")
		return nil
	}

	if sym, ok := infixOps[c.Op]; ok && len(c.Args) == 2 {
		if err := writeParen(b, c.Args[0]); err != nil {
			return err
		}
		b.WriteString(" " + sym + " ")
		return writeParen(b, c.Args[1])
	}

	if name, ok := funcNames[c.Op]; ok {
		b.WriteString(name)
		b.WriteString("(")
		if err := writeArgs(b, c.Args); err != nil {
			return err
		}
		b.WriteString(")")
		return nil
	}
	return fmt.Errorf("sparql: unknown operator kind %d", c.Op)
}

func writeJoined(b *strings.Builder, args []Expr, sep string) error {
	for i, a := range args {
		if i > 0 {
			b.WriteString(sep)
		}
		if err := writeParen(b, a); err != nil {
			return err
		}
	}
	return nil
}

func writeArgs(b *strings.Builder, args []Expr) error {
	for i, a := range args {
		if i > 0 {
			b.WriteString(", ")
		}
		if err := writeExpr(b, a); err != nil {
			return err
		}
	}
	return nil
}

func writeParen(b *strings.Builder, e Expr) error {
	b.WriteString("(")
	if err := writeExpr(b, e); err != nil {
		return err
	}
	b.WriteString(")")
	return nil
}
