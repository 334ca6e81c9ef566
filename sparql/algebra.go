// Package sparql implements SPARQL 1.1 query and update: a parser that
// turns query/update text into an algebra tree (this file), an optimizer
// (optimize.go), a pull-iterator evaluator (eval.go, paths.go,
// functions.go), a SERVICE dispatcher (service.go), and an update
// executor (update.go).
//
// Grounded on aleksaelezovic/trigo's pkg/sparql package shape (algebra
// node names, Binding/Solution representation) and original_source/lib/
// spareval and original_source/lib/sparopt for exact operator and
// rewrite semantics where trigo is silent.
package sparql

import "github.com/geoknoesis/quadgraph/rdf"

// Variable is a SPARQL query variable, e.g. "s" for "?s".
type Variable string

// Algebra is any node of the query algebra tree.
type Algebra interface {
	algebraNode()
}

// BGP is a Basic Graph Pattern: a conjunction of triple patterns, each
// component either a bound rdf.Term or an unbound Variable.
type BGP struct {
	Patterns []TriplePattern
}

// TriplePattern is one triple of a BGP. A nil Term field and a non-empty
// Var field means the position is a variable; both nil/empty means it is
// unconstrained-but-anonymous (not valid SPARQL, but representable).
type TriplePattern struct {
	S, P, O PatternTerm
}

// PatternTerm is either a bound term or a variable.
type PatternTerm struct {
	Term rdf.Term
	Var  Variable
}

// IsVariable reports whether this position is unbound.
func (t PatternTerm) IsVariable() bool { return t.Term == nil && t.Var != "" }

// Bound constructs a PatternTerm bound to term.
func Bound(term rdf.Term) PatternTerm { return PatternTerm{Term: term} }

// Unbound constructs a PatternTerm bound to a variable.
func Unbound(v Variable) PatternTerm { return PatternTerm{Var: v} }

// Path is a property-path triple pattern: Start PathExpr End.
type Path struct {
	Start PatternTerm
	Expr  PathExpr
	End   PatternTerm
}

// PathExprKind discriminates the property-path expression shapes.
type PathExprKind int

const (
	PathIRI PathExprKind = iota
	PathInverse
	PathSeq
	PathAlt
	PathZeroOrOne
	PathZeroOrMore
	PathOneOrMore
	PathNegatedSet
)

// PathExpr is a property-path expression node.
type PathExpr struct {
	Kind     PathExprKind
	IRI      rdf.IRI    // PathIRI
	Sub      *PathExpr  // PathInverse, PathZeroOrOne, PathZeroOrMore, PathOneOrMore
	Left     *PathExpr  // PathSeq, PathAlt
	Right    *PathExpr  // PathSeq, PathAlt
	Negated  []rdf.IRI  // PathNegatedSet: forward predicates excluded
	NegatedInv []rdf.IRI // PathNegatedSet: inverse predicates excluded
}

// Join is an inner join of two sub-patterns over shared variables.
type Join struct{ Left, Right Algebra }

// LeftJoin is SPARQL OPTIONAL: every left solution is kept, extended by a
// matching right solution when Filter holds, or left as-is otherwise.
type LeftJoin struct {
	Left, Right Algebra
	Filter      Expr // nil means "true"
}

// Union is the union of two sub-patterns' solutions.
type Union struct{ Left, Right Algebra }

// Filter keeps only child solutions where Cond's effective boolean value
// is true.
type Filter struct {
	Cond  Expr
	Child Algebra
}

// Extend binds Var to Expr evaluated per solution (SPARQL BIND), leaving
// Var unbound if evaluation errors.
type Extend struct {
	Var   Variable
	Expr  Expr
	Child Algebra
}

// Minus removes from Left every solution compatible with some Right
// solution (SPARQL MINUS semantics: compatible on shared variables).
type Minus struct{ Left, Right Algebra }

// Values is an inline VALUES table: a fixed list of variables and rows,
// rows may contain rdf.Term(nil) for UNDEF.
type Values struct {
	Vars []Variable
	Rows [][]rdf.Term
}

// Service is a federated SPARQL call: dispatches Pattern to the IRI named
// by Endpoint, silently yielding one empty solution on failure when Silent
// is set. A variable endpoint is not resolved per solution; evaluation
// rejects it (or yields the empty solution when Silent is set).
type Service struct {
	Endpoint PatternTerm
	Pattern  Algebra
	Silent   bool
}

// Graph restricts Pattern's evaluation to the named graph (or, if Name is
// a variable, binds it to each graph the pattern matches in).
type Graph struct {
	Name    PatternTerm
	Pattern Algebra
}

// Group applies GROUP BY Keys and evaluates Aggregates per group.
type Group struct {
	Keys       []Expr
	Aggregates []AggregateBinding
	Child      Algebra
}

// AggregateBinding names the variable an aggregate's result is bound to.
type AggregateBinding struct {
	Var  Variable
	Func AggregateFunc
}

// AggregateKind enumerates SPARQL 1.1's built-in aggregates.
type AggregateKind int

const (
	AggCount AggregateKind = iota
	AggSum
	AggMin
	AggMax
	AggAvg
	AggGroupConcat
	AggSample
)

// AggregateFunc is one aggregate call: COUNT(DISTINCT ?x), GROUP_CONCAT
// with a SEPARATOR, etc.
type AggregateFunc struct {
	Kind      AggregateKind
	Expr      Expr // nil for COUNT(*)
	Distinct  bool
	Separator string // GROUP_CONCAT only; defaults to " "
}

// OrderCondition is one ORDER BY key.
type OrderCondition struct {
	Expr       Expr
	Descending bool
}

// OrderBy sorts Child's solutions by Conditions in order.
type OrderBy struct {
	Conditions []OrderCondition
	Child      Algebra
}

// Project restricts solutions to Vars, in order.
type Project struct {
	Vars  []Variable
	Child Algebra
}

// Distinct removes duplicate solutions (full equality).
type Distinct struct{ Child Algebra }

// Reduced permits (but does not require) duplicate elimination.
type Reduced struct{ Child Algebra }

// Slice applies OFFSET/LIMIT. Limit < 0 means unbounded.
type Slice struct {
	Offset int64
	Limit  int64
	Child  Algebra
}

func (BGP) algebraNode()      {}
func (Path) algebraNode()     {}
func (Join) algebraNode()     {}
func (LeftJoin) algebraNode() {}
func (Union) algebraNode()    {}
func (Filter) algebraNode()   {}
func (Extend) algebraNode()   {}
func (Minus) algebraNode()    {}
func (Values) algebraNode()   {}
func (Service) algebraNode()  {}
func (Graph) algebraNode()    {}
func (Group) algebraNode()    {}
func (OrderBy) algebraNode()  {}
func (Project) algebraNode()  {}
func (Distinct) algebraNode() {}
func (Reduced) algebraNode()  {}
func (Slice) algebraNode()    {}

// QueryForm distinguishes the four SPARQL query forms.
type QueryForm int

const (
	FormSelect QueryForm = iota
	FormAsk
	FormConstruct
	FormDescribe
)

// Query is a complete parsed SPARQL query.
type Query struct {
	Form      QueryForm
	Algebra   Algebra
	Construct []TriplePattern // CONSTRUCT template, FormConstruct only
	Describe  []PatternTerm   // DESCRIBE resources, FormDescribe only
	BaseIRI   string
}

// Update is a sequence of update operations, run as one write transaction
// per request.
type Update struct {
	Operations []UpdateOp
	BaseIRI    string
}

// UpdateOp is one update-request operation.
type UpdateOp interface {
	updateOp()
}

// InsertData adds ground (variable-free) quads.
type InsertData struct{ Quads []rdf.Quad }

// DeleteData removes ground quads.
type DeleteData struct{ Quads []rdf.Quad }

// DeleteInsert evaluates Where against the pre-transaction snapshot, then
// applies DeleteTemplate bindings followed by InsertTemplate bindings as
// one commit. Using is the optional USING/USING NAMED dataset clause,
// empty meaning "the whole default/named dataset".
type DeleteInsert struct {
	DeleteTemplate []TriplePattern
	InsertTemplate []TriplePattern
	Using          []PatternTerm
	UsingNamed     []PatternTerm
	Where          Algebra
}

// Load streams a remote or local document into Into (the default graph if
// nil), within the same transaction as the rest of the request.
type Load struct {
	Source IRIOrVar
	Into   PatternTerm // zero value means default graph
	Silent bool
}

// IRIOrVar is an IRI known at parse time (LOAD's source is never a
// variable in standard SPARQL Update, but this keeps the type symmetric
// with PatternTerm for future extension).
type IRIOrVar = PatternTerm

// GraphRef names a graph-clearing/creation/drop target.
type GraphRef int

const (
	GraphRefNamed GraphRef = iota
	GraphRefDefault
	GraphRefNamedGraphs // all named graphs, not the default
	GraphRefAll         // default graph plus all named graphs
)

// Clear empties Target (or all matching graphs).
type Clear struct {
	Ref    GraphRef
	Name   rdf.Term // meaningful when Ref == GraphRefNamed
	Silent bool
}

// Create declares a new named graph (a no-op for backends with implicit
// graph creation).
type Create struct {
	Name   rdf.Term
	Silent bool
}

// Drop removes a graph entirely (graph plus its triples).
type Drop struct {
	Ref    GraphRef
	Name   rdf.Term
	Silent bool
}

// GraphOp identifies COPY/MOVE/ADD's source and destination.
type GraphOp struct {
	Ref  GraphRef
	Name rdf.Term // meaningful when Ref == GraphRefNamed
}

// Copy replaces Dest's contents with Source's (Source unchanged).
type Copy struct {
	Source, Dest GraphOp
	Silent       bool
}

// Move replaces Dest's contents with Source's and empties Source.
type Move struct {
	Source, Dest GraphOp
	Silent       bool
}

// Add inserts Source's triples into Dest without clearing Dest first.
type Add struct {
	Source, Dest GraphOp
	Silent       bool
}

func (InsertData) updateOp()   {}
func (DeleteData) updateOp()   {}
func (DeleteInsert) updateOp() {}
func (Load) updateOp()         {}
func (Clear) updateOp()        {}
func (Create) updateOp()       {}
func (Drop) updateOp()         {}
func (Copy) updateOp()         {}
func (Move) updateOp()         {}
func (Add) updateOp()          {}
