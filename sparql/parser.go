package sparql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/geoknoesis/quadgraph/rdf"
	"github.com/geoknoesis/quadgraph/xsd"
)

// parser is a hand-written recursive-descent SPARQL 1.1 Query/Update
// parser over a scanner, in the same style as the lexer it builds on
// (no separate token stream; grammar productions consume the input
// directly, as aleksaelezovic/trigo's internal/nquads.Parser does for
// the simpler N-Quads grammar).
type parser struct {
	s           *scanner
	prefixes    map[string]string
	base        string
	bnodeSeq    int
	pathMarkers []pathPatternHolder
}

// ParseQuery parses a complete SPARQL 1.1 query string.
func ParseQuery(text string) (*Query, error) {
	p := &parser{s: newScanner(text), prefixes: map[string]string{}}
	if err := p.parsePrologue(); err != nil {
		return nil, err
	}
	var q *Query
	var err error
	switch {
	case p.s.peekKeyword("SELECT"):
		q, err = p.parseSelectQuery()
	case p.s.peekKeyword("CONSTRUCT"):
		q, err = p.parseConstructQuery()
	case p.s.peekKeyword("ASK"):
		q, err = p.parseAskQuery()
	case p.s.peekKeyword("DESCRIBE"):
		q, err = p.parseDescribeQuery()
	default:
		return nil, p.s.errorf("expected SELECT, CONSTRUCT, ASK, or DESCRIBE")
	}
	if err != nil {
		return nil, err
	}
	q.BaseIRI = p.base
	p.s.skipWS()
	if !p.s.eof() {
		return nil, p.s.errorf("unexpected trailing input")
	}
	return q, nil
}

// ParseUpdate parses a complete SPARQL 1.1 Update request (one or more
// ';'-separated operations).
func ParseUpdate(text string) (*Update, error) {
	p := &parser{s: newScanner(text), prefixes: map[string]string{}}
	var ops []UpdateOp
	for {
		if err := p.parsePrologue(); err != nil {
			return nil, err
		}
		p.s.skipWS()
		if p.s.eof() {
			break
		}
		op, err := p.parseUpdateOp()
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
		p.s.matchByte(';')
	}
	return &Update{Operations: ops, BaseIRI: p.base}, nil
}

// --- Prologue --------------------------------------------------------------

func (p *parser) parsePrologue() error {
	for {
		switch {
		case p.s.matchKeyword("PREFIX"):
			prefix, _, ok := p.s.scanPName()
			if !ok {
				return p.s.errorf("expected prefix name")
			}
			iri, err := p.s.scanIRIREF()
			if err != nil {
				return err
			}
			p.prefixes[prefix] = iri
		case p.s.matchKeyword("BASE"):
			iri, err := p.s.scanIRIREF()
			if err != nil {
				return err
			}
			p.base = iri
		default:
			return nil
		}
	}
}

// --- Query forms -------------------------------------------------------------

func (p *parser) parseSelectQuery() (*Query, error) {
	p.s.matchKeyword("SELECT")
	distinct, reduced := false, false
	switch {
	case p.s.matchKeyword("DISTINCT"):
		distinct = true
	case p.s.matchKeyword("REDUCED"):
		reduced = true
	}

	var vars []Variable
	star := false
	var extends []Extend
	if p.s.matchByte('*') {
		star = true
	} else {
		for {
			p.s.skipWS()
			if v, ok := p.s.scanVar(); ok {
				vars = append(vars, Variable(v))
				continue
			}
			if p.s.matchByte('(') {
				expr, err := p.parseExpression()
				if err != nil {
					return nil, err
				}
				if !p.s.matchKeyword("AS") {
					return nil, p.s.errorf("expected AS in SELECT expression")
				}
				v, ok := p.s.scanVar()
				if !ok {
					return nil, p.s.errorf("expected variable after AS")
				}
				if err := p.s.expectByte(')'); err != nil {
					return nil, err
				}
				vars = append(vars, Variable(v))
				extends = append(extends, Extend{Var: Variable(v), Expr: expr})
				continue
			}
			break
		}
	}

	where, err := p.parseWhereClause()
	if err != nil {
		return nil, err
	}

	alg, allVars, err := p.applySolutionModifiers(where, extends)
	if err != nil {
		return nil, err
	}
	if star {
		vars = allVars
	}
	alg = Project{Vars: vars, Child: alg}
	if distinct {
		alg = Distinct{Child: alg}
	} else if reduced {
		alg = Reduced{Child: alg}
	}
	return &Query{Form: FormSelect, Algebra: alg}, nil
}

func (p *parser) parseAskQuery() (*Query, error) {
	p.s.matchKeyword("ASK")
	where, err := p.parseWhereClause()
	if err != nil {
		return nil, err
	}
	alg, _, err := p.applySolutionModifiers(where, nil)
	if err != nil {
		return nil, err
	}
	return &Query{Form: FormAsk, Algebra: alg}, nil
}

func (p *parser) parseConstructQuery() (*Query, error) {
	p.s.matchKeyword("CONSTRUCT")
	var template []TriplePattern
	if p.s.peekByte() == '{' {
		p.s.matchByte('{')
		tpl, err := p.parseTriplesTemplate()
		if err != nil {
			return nil, err
		}
		template = tpl
		if err := p.s.expectByte('}'); err != nil {
			return nil, err
		}
	}
	where, err := p.parseWhereClause()
	if err != nil {
		return nil, err
	}
	alg, _, err := p.applySolutionModifiers(where, nil)
	if err != nil {
		return nil, err
	}
	return &Query{Form: FormConstruct, Algebra: alg, Construct: template}, nil
}

func (p *parser) parseDescribeQuery() (*Query, error) {
	p.s.matchKeyword("DESCRIBE")
	var resources []PatternTerm
	star := p.s.matchByte('*')
	if !star {
		for {
			pt, ok, err := p.tryParseVarOrTerm()
			if err != nil {
				return nil, err
			}
			if !ok {
				break
			}
			resources = append(resources, pt)
		}
	}
	var alg Algebra
	if p.s.peekKeyword("WHERE") || p.s.peekByte() == '{' {
		where, err := p.parseWhereClause()
		if err != nil {
			return nil, err
		}
		alg, _, err = p.applySolutionModifiers(where, nil)
		if err != nil {
			return nil, err
		}
	}
	return &Query{Form: FormDescribe, Algebra: alg, Describe: resources}, nil
}

func (p *parser) parseWhereClause() (Algebra, error) {
	p.s.matchKeyword("WHERE")
	return p.parseGroupGraphPattern()
}

// applySolutionModifiers wraps where with GROUP BY/HAVING/ORDER BY/
// LIMIT/OFFSET (in that grammar order), reports every variable mentioned
// in a triple or path pattern (for SELECT *), and resolves aggregates: any
// AggregateRefExpr reached from extends/HAVING/ORDER BY is hoisted into a
// Group node's Aggregates list (inserting an implicit single-group Group
// even without an explicit GROUP BY, as SPARQL 1.1 requires whenever an
// aggregate is used) and replaced in place by a reference to its bound
// variable.
func (p *parser) applySolutionModifiers(where Algebra, extends []Extend) (Algebra, []Variable, error) {
	allVars := collectVars(where)

	var groupKeys []Expr
	explicitGroup := false
	if p.s.matchKeyword("GROUP") {
		explicitGroup = true
		if !p.s.matchKeyword("BY") {
			return nil, nil, p.s.errorf("expected BY after GROUP")
		}
		for {
			e, ok, err := p.tryParseGroupCondition()
			if err != nil {
				return nil, nil, err
			}
			if !ok {
				break
			}
			groupKeys = append(groupKeys, e)
		}
	}

	var havingCond Expr
	if p.s.matchKeyword("HAVING") {
		cond, err := p.parseBrackettedExpression()
		if err != nil {
			return nil, nil, err
		}
		havingCond = cond
	}

	var orderConds []OrderCondition
	if p.s.matchKeyword("ORDER") {
		if !p.s.matchKeyword("BY") {
			return nil, nil, p.s.errorf("expected BY after ORDER")
		}
		for {
			desc := false
			if p.s.matchKeyword("ASC") {
			} else if p.s.matchKeyword("DESC") {
				desc = true
			}
			e, ok, err := p.tryParseOrderCondition()
			if err != nil {
				return nil, nil, err
			}
			if !ok {
				break
			}
			orderConds = append(orderConds, OrderCondition{Expr: e, Descending: desc})
		}
	}

	limit, offset := int64(-1), int64(0)
	if p.s.matchKeyword("LIMIT") {
		n, err := p.parseIntegerLiteralValue()
		if err != nil {
			return nil, nil, err
		}
		limit = n
	}
	if p.s.matchKeyword("OFFSET") {
		n, err := p.parseIntegerLiteralValue()
		if err != nil {
			return nil, nil, err
		}
		offset = n
	}

	var aggBindings []AggregateBinding
	seq := 0
	finalExtends := make([]Extend, 0, len(extends))
	for _, ex := range extends {
		rewritten := extractAggregates(ex.Expr, ex.Var, &aggBindings, &seq)
		if ve, ok := rewritten.(VarExpr); ok && ve.Var == ex.Var {
			continue // the whole expression was one aggregate call bound to its own AS variable
		}
		finalExtends = append(finalExtends, Extend{Var: ex.Var, Expr: rewritten})
	}
	if havingCond != nil {
		havingCond = extractAggregates(havingCond, "", &aggBindings, &seq)
	}
	for i := range orderConds {
		orderConds[i].Expr = extractAggregates(orderConds[i].Expr, "", &aggBindings, &seq)
	}

	if explicitGroup || len(aggBindings) > 0 {
		where = Group{Keys: groupKeys, Aggregates: aggBindings, Child: where}
	}
	for _, ex := range finalExtends {
		where = Extend{Var: ex.Var, Expr: ex.Expr, Child: where}
	}
	if havingCond != nil {
		where = Filter{Cond: havingCond, Child: where}
	}
	if len(orderConds) > 0 {
		where = OrderBy{Conditions: orderConds, Child: where}
	}
	if limit >= 0 || offset > 0 {
		where = Slice{Offset: offset, Limit: limit, Child: where}
	}
	return where, allVars, nil
}

// extractAggregates walks e for AggregateRefExpr nodes, appending each as
// an AggregateBinding (reusing varHint as the bound variable when e is
// itself exactly that aggregate call, else synthesizing "__aggN") and
// replacing it with a VarExpr referencing that binding.
func extractAggregates(e Expr, varHint Variable, bindings *[]AggregateBinding, seq *int) Expr {
	switch n := e.(type) {
	case AggregateRefExpr:
		v := varHint
		if v == "" {
			*seq++
			v = Variable(fmt.Sprintf("__agg%d", *seq))
		}
		*bindings = append(*bindings, AggregateBinding{Var: v, Func: n.Func})
		return VarExpr{Var: v}
	case CallExpr:
		args := make([]Expr, len(n.Args))
		for i, a := range n.Args {
			args[i] = extractAggregates(a, "", bindings, seq)
		}
		n.Args = args
		return n
	default:
		return e
	}
}

func (p *parser) tryParseGroupCondition() (Expr, bool, error) {
	p.s.skipWS()
	if p.s.matchByte('(') {
		e, err := p.parseExpression()
		if err != nil {
			return nil, false, err
		}
		if err := p.s.expectByte(')'); err != nil {
			return nil, false, err
		}
		return e, true, nil
	}
	if v, ok := p.s.scanVar(); ok {
		return VarExpr{Var: Variable(v)}, true, nil
	}
	return nil, false, nil
}

func (p *parser) tryParseOrderCondition() (Expr, bool, error) {
	p.s.skipWS()
	if p.s.peekByte() == '(' {
		return p.tryParseGroupCondition()
	}
	if v, ok := p.s.scanVar(); ok {
		return VarExpr{Var: Variable(v)}, true, nil
	}
	return nil, false, nil
}

func (p *parser) parseIntegerLiteralValue() (int64, error) {
	lex, _, ok := p.s.scanNumber()
	if !ok {
		return 0, p.s.errorf("expected an integer")
	}
	return strconv.ParseInt(lex, 10, 64)
}

// collectVars walks alg's triple/path patterns for every variable
// mentioned, used by SELECT * to compute its implicit projection list.
func collectVars(alg Algebra) []Variable {
	seen := map[Variable]bool{}
	var out []Variable
	add := func(pt PatternTerm) {
		if pt.IsVariable() && !seen[pt.Var] {
			seen[pt.Var] = true
			out = append(out, pt.Var)
		}
	}
	var walk func(Algebra)
	walk = func(a Algebra) {
		switch n := a.(type) {
		case BGP:
			for _, tp := range n.Patterns {
				add(tp.S)
				add(tp.P)
				add(tp.O)
			}
		case Path:
			add(n.Start)
			add(n.End)
		case Join:
			walk(n.Left)
			walk(n.Right)
		case LeftJoin:
			walk(n.Left)
			walk(n.Right)
		case Union:
			walk(n.Left)
			walk(n.Right)
		case Filter:
			walk(n.Child)
		case Extend:
			if !seen[n.Var] {
				seen[n.Var] = true
				out = append(out, n.Var)
			}
			walk(n.Child)
		case Minus:
			walk(n.Left)
		case Graph:
			add(n.Name)
			walk(n.Pattern)
		case Group:
			walk(n.Child)
			for _, agg := range n.Aggregates {
				if !seen[agg.Var] {
					seen[agg.Var] = true
					out = append(out, agg.Var)
				}
			}
		case OrderBy:
			walk(n.Child)
		case Slice:
			walk(n.Child)
		case Service:
			add(n.Endpoint)
			walk(n.Pattern)
		case Project:
			for _, v := range n.Vars {
				if !seen[v] {
					seen[v] = true
					out = append(out, v)
				}
			}
		case Distinct:
			walk(n.Child)
		case Reduced:
			walk(n.Child)
		case Values:
			for _, v := range n.Vars {
				if !seen[v] {
					seen[v] = true
					out = append(out, v)
				}
			}
		}
	}
	walk(alg)
	return out
}

// --- Group graph patterns ----------------------------------------------------

func (p *parser) parseGroupGraphPattern() (Algebra, error) {
	if err := p.s.expectByte('{'); err != nil {
		return nil, err
	}
	acc, err := p.parseGroupGraphPatternSub()
	if err != nil {
		return nil, err
	}
	if err := p.s.expectByte('}'); err != nil {
		return nil, err
	}
	return acc, nil
}

func joinAlgebra(a, b Algebra) Algebra {
	if bgp, ok := a.(BGP); ok && len(bgp.Patterns) == 0 {
		return b
	}
	return Join{Left: a, Right: b}
}

func (p *parser) parseGroupGraphPatternSub() (Algebra, error) {
	var acc Algebra = BGP{}
	var triples []TriplePattern
	var filters []Expr

	// flushTriples splits the accumulated conjuncts into plain BGP runs
	// and property-path markers, joining Path nodes in pattern order so a
	// path conjunct between two plain triples keeps its place in the
	// join tree.
	flushTriples := func() {
		if len(triples) == 0 {
			return
		}
		var run []TriplePattern
		flushRun := func() {
			if len(run) > 0 {
				acc = joinAlgebra(acc, BGP{Patterns: run})
				run = nil
			}
		}
		for _, tp := range triples {
			if holder, ok := p.isPathPattern(tp); ok {
				flushRun()
				acc = joinAlgebra(acc, Path{Start: holder.start, Expr: holder.expr, End: holder.end})
				continue
			}
			run = append(run, tp)
		}
		flushRun()
		triples = nil
	}

	for {
		p.s.skipWS()
		if p.s.eof() || p.s.peekByte() == '}' {
			break
		}
		switch {
		case p.s.matchKeyword("OPTIONAL"):
			flushTriples()
			inner, err := p.parseGroupGraphPattern()
			if err != nil {
				return nil, err
			}
			filter, inner := extractTrailingFilter(inner)
			acc = LeftJoin{Left: acc, Right: inner, Filter: filter}
		case p.s.matchKeyword("MINUS"):
			flushTriples()
			inner, err := p.parseGroupGraphPattern()
			if err != nil {
				return nil, err
			}
			acc = Minus{Left: acc, Right: inner}
		case p.s.matchKeyword("GRAPH"):
			name, err := p.parseVarOrTerm()
			if err != nil {
				return nil, err
			}
			inner, err := p.parseGroupGraphPattern()
			if err != nil {
				return nil, err
			}
			flushTriples()
			acc = joinAlgebra(acc, Graph{Name: name, Pattern: inner})
		case p.s.matchKeyword("SERVICE"):
			silent := p.s.matchKeyword("SILENT")
			endpoint, err := p.parseVarOrTerm()
			if err != nil {
				return nil, err
			}
			inner, err := p.parseGroupGraphPattern()
			if err != nil {
				return nil, err
			}
			flushTriples()
			acc = joinAlgebra(acc, Service{Endpoint: endpoint, Pattern: inner, Silent: silent})
		case p.s.matchKeyword("FILTER"):
			cond, err := p.parseConstraint()
			if err != nil {
				return nil, err
			}
			filters = append(filters, cond)
		case p.s.matchKeyword("BIND"):
			if err := p.s.expectByte('('); err != nil {
				return nil, err
			}
			expr, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if !p.s.matchKeyword("AS") {
				return nil, p.s.errorf("expected AS in BIND")
			}
			v, ok := p.s.scanVar()
			if !ok {
				return nil, p.s.errorf("expected a variable in BIND")
			}
			if err := p.s.expectByte(')'); err != nil {
				return nil, err
			}
			flushTriples()
			acc = Extend{Var: Variable(v), Expr: expr, Child: acc}
		case p.s.matchKeyword("VALUES"):
			vals, err := p.parseInlineData()
			if err != nil {
				return nil, err
			}
			flushTriples()
			acc = joinAlgebra(acc, vals)
		case p.s.peekByte() == '{':
			left, err := p.parseGroupGraphPattern()
			if err != nil {
				return nil, err
			}
			for p.s.matchKeyword("UNION") {
				right, err := p.parseGroupGraphPattern()
				if err != nil {
					return nil, err
				}
				left = Union{Left: left, Right: right}
			}
			flushTriples()
			acc = joinAlgebra(acc, left)
		default:
			tps, err := p.parseTriplesSameSubjectPath()
			if err != nil {
				return nil, err
			}
			triples = append(triples, tps...)
			p.s.matchByte('.')
		}
	}
	flushTriples()
	for _, f := range filters {
		acc = Filter{Cond: f, Child: acc}
	}
	return acc, nil
}

// extractTrailingFilter is a simplification hook: OPTIONAL's own FILTERs
// are already applied inside inner by parseGroupGraphPatternSub, so
// LeftJoin's separate Filter field is left nil here (kept for API
// symmetry with the algebra's OPTIONAL ( ... FILTER ... ) shorthand some
// engines hoist out).
func extractTrailingFilter(inner Algebra) (Expr, Algebra) {
	return nil, inner
}

func (p *parser) parseInlineData() (Values, error) {
	if err := p.s.expectByte('('); err != nil {
		if v, ok := p.s.scanVar(); ok {
			if err := p.s.expectByte('{'); err != nil {
				return Values{}, err
			}
			var rows [][]rdf.Term
			for !p.s.matchByte('}') {
				row, err := p.parseDataBlockValue()
				if err != nil {
					return Values{}, err
				}
				rows = append(rows, []rdf.Term{row})
			}
			return Values{Vars: []Variable{Variable(v)}, Rows: rows}, nil
		}
		return Values{}, err
	}
	var vars []Variable
	for {
		v, ok := p.s.scanVar()
		if !ok {
			break
		}
		vars = append(vars, Variable(v))
	}
	if err := p.s.expectByte(')'); err != nil {
		return Values{}, err
	}
	if err := p.s.expectByte('{'); err != nil {
		return Values{}, err
	}
	var rows [][]rdf.Term
	for !p.s.matchByte('}') {
		if err := p.s.expectByte('('); err != nil {
			return Values{}, err
		}
		var row []rdf.Term
		for i := 0; i < len(vars); i++ {
			val, err := p.parseDataBlockValue()
			if err != nil {
				return Values{}, err
			}
			row = append(row, val)
		}
		if err := p.s.expectByte(')'); err != nil {
			return Values{}, err
		}
		rows = append(rows, row)
	}
	return Values{Vars: vars, Rows: rows}, nil
}

func (p *parser) parseDataBlockValue() (rdf.Term, error) {
	p.s.skipWS()
	if p.s.matchKeyword("UNDEF") {
		return nil, nil
	}
	pt, ok, err := p.tryParseVarOrTerm()
	if err != nil {
		return nil, err
	}
	if !ok || pt.IsVariable() {
		return nil, p.s.errorf("expected a constant value in VALUES data")
	}
	return pt.Term, nil
}

// --- Triples -----------------------------------------------------------------

func (p *parser) parseTriplesTemplate() ([]TriplePattern, error) {
	var out []TriplePattern
	for {
		p.s.skipWS()
		if p.s.peekByte() == '}' || p.s.eof() {
			break
		}
		tps, err := p.parseTriplesSameSubjectPath()
		if err != nil {
			return nil, err
		}
		for _, tp := range tps {
			if _, isPath := p.isPathPattern(tp); isPath {
				return nil, p.s.errorf("property paths are not allowed in a triples template")
			}
		}
		out = append(out, tps...)
		if !p.s.matchByte('.') {
			break
		}
	}
	return out, nil
}

// parseTriplesSameSubjectPath parses one "subject predicateObjectList"
// production, expanding predicate-object and object lists into individual
// TriplePatterns. A non-trivial property path in the predicate position
// becomes a marker pattern (see pathPatternMarker) that callers tell apart
// from plain triples with isPathPattern. The triples of any collection or
// blank-node property list met in the statement follow its own triples.
func (p *parser) parseTriplesSameSubjectPath() ([]TriplePattern, error) {
	defer func() { pendingCollectionTriples = nil }()
	subj, err := p.parseGraphNode()
	if err != nil {
		return nil, err
	}
	tps, err := p.parsePredicateObjectListPath(subj)
	if err != nil {
		return nil, err
	}
	return append(tps, pendingCollectionTriples...), nil
}

func (p *parser) parsePredicateObjectListPath(subj PatternTerm) ([]TriplePattern, error) {
	var out []TriplePattern
	for {
		path, isPath, iri, err := p.parseVerbPath()
		if err != nil {
			return nil, err
		}
		objs, err := p.parseObjectListPath()
		if err != nil {
			return nil, err
		}
		for _, o := range objs {
			if isPath {
				pathTriples, err := p.pathToTriples(subj, path, o)
				if err != nil {
					return nil, err
				}
				out = append(out, pathTriples...)
			} else {
				out = append(out, TriplePattern{S: subj, P: Bound(iri), O: o})
			}
		}
		if !p.s.matchByte(';') {
			break
		}
		p.s.skipWS()
		if p.s.peekByte() == '.' || p.s.peekByte() == '}' || p.s.peekByte() == ';' {
			continue
		}
	}
	return out, nil
}

// pathToTriples records a property-path conjunct as a synthetic
// TriplePattern whose predicate position carries a marker IRI; the
// surrounding algebra builder (parseTriplesSameSubjectPath's caller in
// parseGroupGraphPatternSub) recognizes these via isPathPattern and emits
// a Path algebra node instead of a BGP row for them.
func (p *parser) pathToTriples(subj PatternTerm, path PathExpr, obj PatternTerm) ([]TriplePattern, error) {
	return []TriplePattern{p.pathPatternMarker(subj, path, obj)}, nil
}

func (p *parser) parseObjectListPath() ([]PatternTerm, error) {
	var out []PatternTerm
	for {
		o, err := p.parseGraphNode()
		if err != nil {
			return nil, err
		}
		out = append(out, o)
		if !p.s.matchByte(',') {
			break
		}
	}
	return out, nil
}

// parseVerbPath parses a predicate position, which is either "a"
// (rdf:type) or a property path expression. It returns either a plain
// bound IRI (isPath=false) for the common single-IRI case, or a PathExpr
// for anything using path operators.
func (p *parser) parseVerbPath() (path PathExpr, isPath bool, iri rdf.IRI, err error) {
	p.s.skipWS()
	if p.s.matchKeyword("a") {
		return PathExpr{}, false, rdf.IRI{Value: rdfType}, nil
	}
	pe, err := p.parsePathExpression()
	if err != nil {
		return PathExpr{}, false, rdf.IRI{}, err
	}
	if pe.Kind == PathIRI {
		return PathExpr{}, false, pe.IRI, nil
	}
	return pe, true, rdf.IRI{}, nil
}

const rdfType = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"

// --- Property paths ------------------------------------------------------

// parsePathExpression parses the full SPARQL 1.1 property path grammar:
// alternation (|) of sequences (/), each sequence element optionally
// inverted (^) or suffixed with ?, *, or +, with parenthesized groups and
// negated property sets (!).
func (p *parser) parsePathExpression() (PathExpr, error) {
	return p.parsePathAlternative()
}

func (p *parser) parsePathAlternative() (PathExpr, error) {
	left, err := p.parsePathSequence()
	if err != nil {
		return PathExpr{}, err
	}
	for p.s.matchByte('|') {
		right, err := p.parsePathSequence()
		if err != nil {
			return PathExpr{}, err
		}
		l, r := left, right
		left = PathExpr{Kind: PathAlt, Left: &l, Right: &r}
	}
	return left, nil
}

func (p *parser) parsePathSequence() (PathExpr, error) {
	left, err := p.parsePathEltOrInverse()
	if err != nil {
		return PathExpr{}, err
	}
	for p.s.matchByte('/') {
		right, err := p.parsePathEltOrInverse()
		if err != nil {
			return PathExpr{}, err
		}
		l, r := left, right
		left = PathExpr{Kind: PathSeq, Left: &l, Right: &r}
	}
	return left, nil
}

func (p *parser) parsePathEltOrInverse() (PathExpr, error) {
	inverse := p.s.matchByte('^')
	pe, err := p.parsePathPrimaryWithMod()
	if err != nil {
		return PathExpr{}, err
	}
	if inverse {
		return PathExpr{Kind: PathInverse, Sub: &pe}, nil
	}
	return pe, nil
}

func (p *parser) parsePathPrimaryWithMod() (PathExpr, error) {
	pe, err := p.parsePathPrimary()
	if err != nil {
		return PathExpr{}, err
	}
	p.s.skipWS()
	switch {
	case p.s.matchByte('*'):
		return PathExpr{Kind: PathZeroOrMore, Sub: &pe}, nil
	case p.s.matchByte('+'):
		return PathExpr{Kind: PathOneOrMore, Sub: &pe}, nil
	case p.s.matchByte('?'):
		return PathExpr{Kind: PathZeroOrOne, Sub: &pe}, nil
	default:
		return pe, nil
	}
}

func (p *parser) parsePathPrimary() (PathExpr, error) {
	p.s.skipWS()
	if p.s.matchKeyword("a") {
		return PathExpr{Kind: PathIRI, IRI: rdf.IRI{Value: rdfType}}, nil
	}
	if p.s.matchByte('(') {
		inner, err := p.parsePathExpression()
		if err != nil {
			return PathExpr{}, err
		}
		if err := p.s.expectByte(')'); err != nil {
			return PathExpr{}, err
		}
		return inner, nil
	}
	if p.s.matchByte('!') {
		return p.parseNegatedPropertySet()
	}
	iri, err := p.parseIRI()
	if err != nil {
		return PathExpr{}, err
	}
	return PathExpr{Kind: PathIRI, IRI: iri}, nil
}

func (p *parser) parseNegatedPropertySet() (PathExpr, error) {
	var fwd, inv []rdf.IRI
	parseOne := func() error {
		invOne := p.s.matchByte('^')
		iri, err := p.parseIRI()
		if err != nil {
			return err
		}
		if invOne {
			inv = append(inv, iri)
		} else {
			fwd = append(fwd, iri)
		}
		return nil
	}
	if p.s.matchByte('(') {
		for {
			p.s.skipWS()
			if p.s.peekByte() == ')' {
				break
			}
			if err := parseOne(); err != nil {
				return PathExpr{}, err
			}
			if !p.s.matchByte('|') {
				break
			}
		}
		if err := p.s.expectByte(')'); err != nil {
			return PathExpr{}, err
		}
	} else {
		if err := parseOne(); err != nil {
			return PathExpr{}, err
		}
	}
	return PathExpr{Kind: PathNegatedSet, Negated: fwd, NegatedInv: inv}, nil
}

// pathPatternMarker and isPathPattern encode/decode a property-path
// conjunct as a TriplePattern whose predicate carries a marker IRI into a
// parser-local registry, so parseGroupGraphPatternSub's single triples
// accumulator can hold plain triples and path conjuncts side by side
// until flush time without a second parallel data structure threaded
// through every call. The registry lives on the parser, never globally:
// two concurrent ParseQuery calls must not see each other's markers.
type pathPatternHolder struct {
	start, end PatternTerm
	expr       PathExpr
}

const pathMarkerPrefix = "urn:quadgraph:path-marker:"

func (p *parser) pathPatternMarker(subj PatternTerm, expr PathExpr, obj PatternTerm) TriplePattern {
	idx := len(p.pathMarkers)
	p.pathMarkers = append(p.pathMarkers, pathPatternHolder{start: subj, end: obj, expr: expr})
	return TriplePattern{S: subj, P: Bound(rdf.IRI{Value: fmt.Sprintf("%s%d", pathMarkerPrefix, idx)}), O: obj}
}

// isPathPattern recognizes a marker emitted by pathPatternMarker and
// returns the registered path conjunct.
func (p *parser) isPathPattern(tp TriplePattern) (pathPatternHolder, bool) {
	iri, ok := tp.P.Term.(rdf.IRI)
	if !ok || !strings.HasPrefix(iri.Value, pathMarkerPrefix) {
		return pathPatternHolder{}, false
	}
	idx, err := strconv.Atoi(iri.Value[len(pathMarkerPrefix):])
	if err != nil || idx < 0 || idx >= len(p.pathMarkers) {
		return pathPatternHolder{}, false
	}
	return p.pathMarkers[idx], true
}

// --- Variables and terms ------------------------------------------------

func (p *parser) parseGraphNode() (PatternTerm, error) {
	pt, ok, err := p.tryParseVarOrTerm()
	if err != nil {
		return PatternTerm{}, err
	}
	if ok {
		return pt, nil
	}
	if p.s.peekByte() == '(' {
		return p.parseCollection()
	}
	if p.s.peekByte() == '[' {
		return p.parseBlankNodePropertyList()
	}
	return PatternTerm{}, p.s.errorf("expected a term")
}

func (p *parser) parseVarOrTerm() (PatternTerm, error) {
	pt, ok, err := p.tryParseVarOrTerm()
	if err != nil {
		return PatternTerm{}, err
	}
	if !ok {
		return PatternTerm{}, p.s.errorf("expected a variable or term")
	}
	return pt, nil
}

func (p *parser) tryParseVarOrTerm() (PatternTerm, bool, error) {
	p.s.skipWS()
	if p.s.eof() {
		return PatternTerm{}, false, nil
	}
	if v, ok := p.s.scanVar(); ok {
		return Unbound(Variable(v)), true, nil
	}
	switch p.s.peekByte() {
	case '<':
		iri, err := p.s.scanIRIREF()
		if err != nil {
			return PatternTerm{}, false, err
		}
		return Bound(p.resolveIRIRef(iri)), true, nil
	case '"', '\'':
		lit, err := p.parseRDFLiteral()
		if err != nil {
			return PatternTerm{}, false, err
		}
		return Bound(lit), true, nil
	case '_':
		if strings.HasPrefix(p.s.input[p.s.pos:], "_:") {
			p.s.pos += 2
			start := p.s.pos
			for !p.s.eof() && isNameContinue(p.s.input[p.s.pos]) {
				p.s.pos++
			}
			return Bound(rdf.BlankNode{ID: p.s.input[start:p.s.pos]}), true, nil
		}
	}
	if p.s.matchKeyword("true") {
		return Bound(rdf.Literal{Lexical: "true", Datatype: xsd.Boolean}), true, nil
	}
	if p.s.matchKeyword("false") {
		return Bound(rdf.Literal{Lexical: "false", Datatype: xsd.Boolean}), true, nil
	}
	if lex, kind, ok := p.s.scanNumber(); ok {
		return Bound(numberLiteral(lex, kind)), true, nil
	}
	if prefix, local, ok := p.s.scanPName(); ok {
		iri, err := p.resolvePName(prefix, local)
		if err != nil {
			return PatternTerm{}, false, err
		}
		return Bound(iri), true, nil
	}
	return PatternTerm{}, false, nil
}

func numberLiteral(lex, kind string) rdf.Literal {
	switch kind {
	case "double":
		return rdf.Literal{Lexical: lex, Datatype: xsd.Double}
	case "decimal":
		return rdf.Literal{Lexical: lex, Datatype: xsd.Decimal}
	default:
		return rdf.Literal{Lexical: lex, Datatype: xsd.Integer}
	}
}

func (p *parser) parseIRI() (rdf.IRI, error) {
	pt, ok, err := p.tryParseVarOrTerm()
	if err != nil {
		return rdf.IRI{}, err
	}
	if !ok {
		return rdf.IRI{}, p.s.errorf("expected an IRI")
	}
	iri, isIRI := pt.Term.(rdf.IRI)
	if !isIRI {
		return rdf.IRI{}, p.s.errorf("expected an IRI, got a non-IRI term")
	}
	return iri, nil
}

func (p *parser) parseRDFLiteral() (rdf.Literal, error) {
	lex, err := p.s.scanString()
	if err != nil {
		return rdf.Literal{}, err
	}
	p.s.skipWS()
	if p.s.matchByte('@') {
		start := p.s.pos
		for !p.s.eof() && (isNameContinue(p.s.input[p.s.pos])) {
			p.s.pos++
		}
		return rdf.Literal{Lexical: lex, Lang: p.s.input[start:p.s.pos]}, nil
	}
	if p.s.matchString("^^") {
		dt, err := p.parseIRI()
		if err != nil {
			return rdf.Literal{}, err
		}
		return rdf.Literal{Lexical: lex, Datatype: dt}, nil
	}
	return rdf.Literal{Lexical: lex, Datatype: xsd.String}, nil
}

func (p *parser) parseCollection() (PatternTerm, error) {
	if err := p.s.expectByte('('); err != nil {
		return PatternTerm{}, err
	}
	var items []PatternTerm
	for {
		p.s.skipWS()
		if p.s.peekByte() == ')' {
			break
		}
		n, err := p.parseGraphNode()
		if err != nil {
			return PatternTerm{}, err
		}
		items = append(items, n)
	}
	if err := p.s.expectByte(')'); err != nil {
		return PatternTerm{}, err
	}
	head := Bound(rdf.IRI{Value: "http://www.w3.org/1999/02/22-rdf-syntax-ns#nil"})
	for i := len(items) - 1; i >= 0; i-- {
		bn := p.newBlankNode()
		pendingCollectionTriples = append(pendingCollectionTriples,
			TriplePattern{S: bn, P: Bound(rdf.IRI{Value: "http://www.w3.org/1999/02/22-rdf-syntax-ns#first"}), O: items[i]},
			TriplePattern{S: bn, P: Bound(rdf.IRI{Value: "http://www.w3.org/1999/02/22-rdf-syntax-ns#rest"}), O: head},
		)
		head = bn
	}
	return head, nil
}

// pendingCollectionTriples accumulates the rdf:first/rdf:rest triples a
// collection "( ... )" desugars to; parseTriplesSameSubjectPath drains it
// after each top-level call so collections anywhere in a triple compose
// correctly with the surrounding BGP.
var pendingCollectionTriples []TriplePattern

func (p *parser) newBlankNode() PatternTerm {
	p.bnodeSeq++
	return Bound(rdf.BlankNode{ID: fmt.Sprintf("_path%d", p.bnodeSeq)})
}

func (p *parser) parseBlankNodePropertyList() (PatternTerm, error) {
	if err := p.s.expectByte('['); err != nil {
		return PatternTerm{}, err
	}
	bn := p.newBlankNode()
	tps, err := p.parsePredicateObjectListPath(bn)
	if err != nil {
		return PatternTerm{}, err
	}
	pendingCollectionTriples = append(pendingCollectionTriples, tps...)
	if err := p.s.expectByte(']'); err != nil {
		return PatternTerm{}, err
	}
	return bn, nil
}

// resolveIRIRef resolves a relative IRIREF against the parser's base IRI.
// A full URI-reference resolution algorithm isn't implemented; this
// covers the common case of a base ending in '/' or the reference being
// already absolute, which is what every corpus query in practice needs.
func (p *parser) resolveIRIRef(ref string) rdf.IRI {
	if p.base == "" || strings.Contains(ref, "://") || ref == "" {
		return rdf.IRI{Value: ref}
	}
	if strings.HasPrefix(ref, "#") {
		if i := strings.IndexByte(p.base, '#'); i >= 0 {
			return rdf.IRI{Value: p.base[:i] + ref}
		}
		return rdf.IRI{Value: p.base + ref}
	}
	return rdf.IRI{Value: p.base + ref}
}

func (p *parser) resolvePName(prefix, local string) (rdf.IRI, error) {
	ns, ok := p.prefixes[prefix]
	if !ok {
		return rdf.IRI{}, p.s.errorf("undeclared prefix %q", prefix)
	}
	return rdf.IRI{Value: ns + unescapePNameLocal(local)}, nil
}

func unescapePNameLocal(local string) string {
	if !strings.ContainsAny(local, "\\%") {
		return local
	}
	var sb strings.Builder
	for i := 0; i < len(local); i++ {
		if local[i] == '\\' && i+1 < len(local) {
			sb.WriteByte(local[i+1])
			i++
			continue
		}
		sb.WriteByte(local[i])
	}
	return sb.String()
}
