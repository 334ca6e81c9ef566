package sparql

import "github.com/geoknoesis/quadgraph/rdf"

// Expr is a SPARQL scalar expression: a variable reference, a literal
// constant, an n-ary operator, a built-in function call, an aggregate
// reference (only valid directly inside a post-Group Extend/Filter), or
// FILTER EXISTS/NOT EXISTS.
type Expr interface {
	exprNode()
}

// VarExpr references a solution's binding for v.
type VarExpr struct{ Var Variable }

// ConstExpr is a literal constant term (IRI, Literal, or BlankNode --
// blank nodes are only valid inside CONSTRUCT templates and VALUES, but
// representable here for uniformity).
type ConstExpr struct{ Term rdf.Term }

// OpKind enumerates SPARQL's built-in operators and function names.
type OpKind int

const (
	// Logical and comparison.
	OpOr OpKind = iota
	OpAnd
	OpNot
	OpEqual
	OpNotEqual
	OpLess
	OpLessEqual
	OpGreater
	OpGreaterEqual
	OpIn
	OpNotIn

	// Arithmetic.
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpUnaryPlus
	OpUnaryMinus

	// SPARQL 1.1 functional forms and builtins.
	OpBound
	OpIf
	OpCoalesce
	OpSameTerm
	OpIsIRI
	OpIsBlank
	OpIsLiteral
	OpIsNumeric
	OpStr
	OpLang
	OpDatatype
	OpIRI
	OpBNode
	OpStrDt
	OpStrLang
	OpUUID
	OpStrUUID
	OpStrLen
	OpSubstr
	OpUCase
	OpLCase
	OpStrStarts
	OpStrEnds
	OpContains
	OpStrBefore
	OpStrAfter
	OpEncodeForURI
	OpConcat
	OpLangMatches
	OpRegex
	OpReplace
	OpAbs
	OpRound
	OpCeil
	OpFloor
	OpRand
	OpNow
	OpYear
	OpMonth
	OpDay
	OpHours
	OpMinutes
	OpSeconds
	OpTimezone
	OpTZ
	OpMD5
	OpSHA1
	OpSHA256
	OpSHA384
	OpSHA512

	// RDF-star accessors.
	OpTriple
	OpSubject
	OpPredicate
	OpObject
	OpIsTriple

	// Extension point for custom (IRI-named) functions.
	OpCustomCall
)

// CallExpr applies Op to Args. For OpCustomCall, Name holds the function
// IRI looked up in the evaluator's custom-function registry.
type CallExpr struct {
	Op   OpKind
	Args []Expr
	Name rdf.IRI // OpCustomCall only
}

// ExistsExpr is FILTER [NOT] EXISTS { pattern }.
type ExistsExpr struct {
	Pattern Algebra
	Negate  bool
}

// AggregateRefExpr references an aggregate's already-computed binding
// (used when an aggregate expression appears directly in a SELECT/HAVING
// expression rather than through a named Group binding).
type AggregateRefExpr struct{ Func AggregateFunc }

func (VarExpr) exprNode()          {}
func (ConstExpr) exprNode()        {}
func (CallExpr) exprNode()         {}
func (ExistsExpr) exprNode()       {}
func (AggregateRefExpr) exprNode() {}
