package sparql

import (
	"strings"
	"testing"

	"github.com/geoknoesis/quadgraph/rdf"
)

func TestWriteExprInfixAndCall(t *testing.T) {
	cond := CallExpr{Op: OpGreater, Args: []Expr{VarExpr{Var: "age"}, ConstExpr{Term: rdf.Literal{Lexical: "18"}}}}
	var b strings.Builder
	if err := writeExpr(&b, cond); err != nil {
		t.Fatalf("writeExpr: %v", err)
	}
	got := b.String()
	if !strings.Contains(got, "?age") || !strings.Contains(got, ">") {
		t.Fatalf("unexpected rendering: %q", got)
	}
}

func TestWriteExprFunctionCall(t *testing.T) {
	call := CallExpr{Op: OpStrLen, Args: []Expr{VarExpr{Var: "name"}}}
	var b strings.Builder
	if err := writeExpr(&b, call); err != nil {
		t.Fatalf("writeExpr: %v", err)
	}
	if got := b.String(); got != "STRLEN(?name)" {
		t.Fatalf("expected STRLEN(?name), got %q", got)
	}
}

func TestWriteExprBound(t *testing.T) {
	call := CallExpr{Op: OpBound, Args: []Expr{VarExpr{Var: "x"}}}
	var b strings.Builder
	if err := writeExpr(&b, call); err != nil {
		t.Fatalf("writeExpr: %v", err)
	}
	if got := b.String(); got != "BOUND(?x)" {
		t.Fatalf("expected BOUND(?x), got %q", got)
	}
}

// Every OpKind used in a CallExpr must render through writeCall without
// hitting its "unknown operator kind" fallback -- a gap here would
// silently break any SERVICE query using that builtin.
func TestWriteCallCoversAllOpKinds(t *testing.T) {
	kinds := []OpKind{
		OpOr, OpAnd, OpNot, OpEqual, OpNotEqual, OpLess, OpLessEqual, OpGreater, OpGreaterEqual,
		OpIn, OpNotIn, OpAdd, OpSub, OpMul, OpDiv, OpUnaryPlus, OpUnaryMinus,
		OpBound, OpIf, OpCoalesce, OpSameTerm, OpIsIRI, OpIsBlank, OpIsLiteral, OpIsNumeric,
		OpStr, OpLang, OpDatatype, OpIRI, OpBNode, OpStrDt, OpStrLang, OpUUID, OpStrUUID,
		OpStrLen, OpSubstr, OpUCase, OpLCase, OpStrStarts, OpStrEnds, OpContains,
		OpStrBefore, OpStrAfter, OpEncodeForURI, OpConcat, OpLangMatches, OpRegex, OpReplace,
		OpAbs, OpRound, OpCeil, OpFloor, OpRand, OpNow, OpYear, OpMonth, OpDay, OpHours,
		OpMinutes, OpSeconds, OpTimezone, OpTZ, OpMD5, OpSHA1, OpSHA256, OpSHA384, OpSHA512,
		OpTriple, OpSubject, OpPredicate, OpObject, OpIsTriple,
	}
	arg := ConstExpr{Term: rdf.Literal{Lexical: "x"}}
	infix := map[OpKind]bool{
		OpEqual: true, OpNotEqual: true, OpLess: true, OpLessEqual: true,
		OpGreater: true, OpGreaterEqual: true, OpAdd: true, OpSub: true, OpMul: true, OpDiv: true,
	}
	for _, k := range kinds {
		n := 3
		if infix[k] {
			n = 2
		}
		if k == OpNot || k == OpUnaryPlus || k == OpUnaryMinus {
			n = 1
		}
		args := make([]Expr, n)
		for i := range args {
			args[i] = arg
		}
		c := CallExpr{Op: k, Args: args}
		var b strings.Builder
		if err := writeCall(&b, c); err != nil {
			t.Errorf("writeCall(%d): %v", k, err)
		}
	}
}

func TestWriteExprCustomCall(t *testing.T) {
	c := CallExpr{Op: OpCustomCall, Name: rdf.IRI{Value: "http://ex/fn"}, Args: []Expr{VarExpr{Var: "x"}}}
	var b strings.Builder
	if err := writeExpr(&b, c); err != nil {
		t.Fatalf("writeExpr: %v", err)
	}
	if got := b.String(); got != "<http://ex/fn>(?x)" {
		t.Fatalf("unexpected rendering: %q", got)
	}
}
