package sparql

import (
	"strings"

	"github.com/geoknoesis/quadgraph/rdf"
	"github.com/geoknoesis/quadgraph/xsd"
)

// group accumulates every child solution that shares one GROUP BY key, in
// arrival order (GROUP_CONCAT and SAMPLE both care about order/first-seen).
type group struct {
	bindings Solution // bindings for GROUP BY keys that are plain variables
	rows     []Solution
}

// buildGroup hash-partitions Child's solutions by Keys, then evaluates
// each AggregateBinding over every partition. A streaming variant for
// ORDER-BY-aligned input is left to the optimizer (not implemented), so
// this always materializes.
func (e *Evaluator) buildGroup(n Group, gc graphCtx) (SolutionIterator, error) {
	child, err := e.build(n.Child, gc)
	if err != nil {
		return nil, err
	}
	defer child.Close()

	order := make([]string, 0, 16)
	groups := make(map[string]*group, 16)

	for child.Next() {
		if e.opts.Token.Cancelled() {
			return nil, ErrCancelled
		}
		sol := child.Solution()

		var key strings.Builder
		bindings := make(Solution, len(n.Keys))
		for _, k := range n.Keys {
			v, err := evalExpr(k, sol, e.env)
			if err == nil {
				key.WriteString(v.String())
				if ve, ok := k.(VarExpr); ok {
					bindings[ve.Var] = v
				}
			}
			key.WriteByte(0)
		}
		k := key.String()

		g, ok := groups[k]
		if !ok {
			if e.opts.Limits.MaxGroups > 0 && int64(len(groups)) >= e.opts.Limits.MaxGroups {
				return nil, limitErrorf("max_groups")
			}
			g = &group{bindings: bindings}
			groups[k] = g
			order = append(order, k)
		}
		g.rows = append(g.rows, sol)
	}
	if err := child.Err(); err != nil {
		return nil, err
	}

	// No GROUP BY and no input rows still yields exactly one group, so
	// aggregates like COUNT(*) evaluate to 0 rather than producing no
	// solutions at all (SPARQL 1.1 §18.5's implicit single group).
	if len(order) == 0 && len(n.Keys) == 0 {
		order = []string{""}
		groups[""] = &group{bindings: Solution{}}
	}

	out := make([]Solution, 0, len(order))
	for _, k := range order {
		g := groups[k]
		sol := g.bindings.Clone()
		for _, agg := range n.Aggregates {
			v, err := evalAggregate(agg.Func, g.rows, e.env)
			if err == nil {
				sol[agg.Var] = v
			}
		}
		out = append(out, sol)
	}
	return &sliceIterator{rows: out}, nil
}

// evalAggregate folds rows according to fn, applying Distinct de-duplication
// on the aggregated expression's value before folding when set.
func evalAggregate(fn AggregateFunc, rows []Solution, env *evalEnv) (rdf.Term, error) {
	values, err := aggregateOperands(fn, rows, env)
	if err != nil {
		return nil, err
	}

	switch fn.Kind {
	case AggCount:
		return numericLiteral(float64(len(values)), xsd.Integer), nil
	case AggSum:
		return foldNumeric(values, 0, func(acc, v float64) float64 { return acc + v }), nil
	case AggMin:
		return foldExtreme(values, true), nil
	case AggMax:
		return foldExtreme(values, false), nil
	case AggAvg:
		if len(values) == 0 {
			return numericLiteral(0, xsd.Integer), nil
		}
		sum := foldNumeric(values, 0, func(acc, v float64) float64 { return acc + v })
		n, _ := extractNumeric(sum)
		return numericLiteral(n.f/float64(len(values)), wideAggType(values)), nil
	case AggGroupConcat:
		sep := fn.Separator
		if sep == "" {
			sep = " "
		}
		parts := make([]string, 0, len(values))
		for _, v := range values {
			s, err := extractString(v)
			if err != nil {
				s = v.String()
			}
			parts = append(parts, s)
		}
		return stringLiteral(strings.Join(parts, sep)), nil
	case AggSample:
		if len(values) == 0 {
			return nil, typeErrorf("SAMPLE over an empty group is unbound")
		}
		return values[0], nil
	default:
		return nil, typeErrorf("unsupported aggregate kind %d", fn.Kind)
	}
}

// aggregateOperands evaluates fn's argument expression over every row
// (COUNT(*) has no expression and counts rows directly), applying
// Distinct, and dropping rows where evaluation errors -- SPARQL aggregates
// silently skip unevaluable inputs rather than failing the whole group.
func aggregateOperands(fn AggregateFunc, rows []Solution, env *evalEnv) ([]rdf.Term, error) {
	if fn.Expr == nil {
		// COUNT(*): every row counts, bound or not.
		out := make([]rdf.Term, len(rows))
		for i := range rows {
			out[i] = boolLiteral(true)
		}
		return out, nil
	}
	out := make([]rdf.Term, 0, len(rows))
	for _, row := range rows {
		v, err := evalExpr(fn.Expr, row, env)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	if fn.Distinct {
		out = dedupeTerms(out)
	}
	return out, nil
}

func dedupeTerms(in []rdf.Term) []rdf.Term {
	seen := make(map[string]bool, len(in))
	out := make([]rdf.Term, 0, len(in))
	for _, t := range in {
		k := t.String()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, t)
	}
	return out
}

// foldNumeric folds every numeric value in values through f, skipping
// non-numeric operands (SUM/AVG over a mixed group ignore what they can't
// add rather than erroring the whole aggregate).
func foldNumeric(values []rdf.Term, seed float64, f func(acc, v float64) float64) rdf.Term {
	acc := seed
	widest := xsd.Integer
	for _, v := range values {
		n, ok := extractNumeric(v)
		if !ok {
			continue
		}
		acc = f(acc, n.f)
		widest = wideType(widest, n.iri)
	}
	return numericLiteral(acc, widest)
}

func wideAggType(values []rdf.Term) rdf.IRI {
	widest := xsd.Integer
	for _, v := range values {
		n, ok := extractNumeric(v)
		if !ok {
			continue
		}
		widest = wideType(widest, n.iri)
	}
	return widest
}

// foldExtreme implements MIN/MAX over the SPARQL ORDER BY total order
// (rdf.Compare), not just numeric comparison, since MIN/MAX must work over
// any comparable term (strings, dates, IRIs).
func foldExtreme(values []rdf.Term, wantMin bool) rdf.Term {
	if len(values) == 0 {
		return nil
	}
	best := values[0]
	for _, v := range values[1:] {
		c := rdf.Compare(v, best)
		if (wantMin && c < 0) || (!wantMin && c > 0) {
			best = v
		}
	}
	return best
}
