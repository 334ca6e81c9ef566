package sparql

import (
	"fmt"
	"sort"

	"github.com/geoknoesis/quadgraph/rdf"
	"github.com/geoknoesis/quadgraph/results"
	"github.com/geoknoesis/quadgraph/store"
)

// QueryResult is the materialized outcome of ExecuteQuery. Exactly one of
// the form-specific fields is populated, discriminated by Form: Vars+Rows
// for SELECT, Boolean for ASK, Triples for CONSTRUCT and DESCRIBE.
type QueryResult struct {
	Form    QueryForm
	Vars    []Variable
	Rows    []Solution
	Boolean bool
	Triples []rdf.Triple
}

// Result converts a SELECT or ASK outcome into the results package's wire
// shape for serialization. CONSTRUCT/DESCRIBE outcomes are graphs, not
// result sets; serialize those through the rdf package's encoders instead.
func (r *QueryResult) Result() (results.Result, error) {
	switch r.Form {
	case FormAsk:
		return results.BooleanResult(r.Boolean), nil
	case FormSelect:
		vars := make([]string, len(r.Vars))
		for i, v := range r.Vars {
			vars[i] = string(v)
		}
		rows := make([]results.Row, len(r.Rows))
		for i, sol := range r.Rows {
			row := make(results.Row, len(sol))
			for v, t := range sol {
				row[string(v)] = t
			}
			rows[i] = row
		}
		return results.BindingsResult(vars, rows), nil
	default:
		return results.Result{}, fmt.Errorf("sparql: %v result is a graph, not a result set", r.Form)
	}
}

// ExecuteQuery parses nothing and stores nothing: it optimizes q's
// algebra, evaluates it against st, and materializes the outcome
// according to q's form. Callers that need streaming SELECT results use
// NewEvaluator/Evaluate directly and drive the iterator themselves.
func ExecuteQuery(st *store.Store, q *Query, opts EvalOptions) (*QueryResult, error) {
	ev := NewEvaluator(st, opts)
	var alg Algebra
	if q.Algebra != nil {
		alg = Optimize(q.Algebra)
	}

	switch q.Form {
	case FormSelect:
		rows, err := drainSolutions(ev, alg)
		if err != nil {
			return nil, err
		}
		return &QueryResult{Form: FormSelect, Vars: projectedVars(alg), Rows: rows}, nil

	case FormAsk:
		it, err := ev.Evaluate(alg)
		if err != nil {
			return nil, err
		}
		found := it.Next()
		err = it.Err()
		it.Close()
		if err != nil {
			return nil, err
		}
		return &QueryResult{Form: FormAsk, Boolean: found}, nil

	case FormConstruct:
		rows, err := drainSolutions(ev, alg)
		if err != nil {
			return nil, err
		}
		return &QueryResult{Form: FormConstruct, Triples: constructTriples(q.Construct, rows)}, nil

	case FormDescribe:
		return executeDescribe(st, ev, q, alg, opts)

	default:
		return nil, fmt.Errorf("sparql: unknown query form %v", q.Form)
	}
}

// projectedVars recovers the SELECT variable list from the algebra's top
// Project node, looking through the modifier wrappers the parser stacks
// above it (Distinct/Reduced/Slice/OrderBy).
func projectedVars(alg Algebra) []Variable {
	for {
		switch n := alg.(type) {
		case Project:
			return n.Vars
		case Distinct:
			alg = n.Child
		case Reduced:
			alg = n.Child
		case Slice:
			alg = n.Child
		case OrderBy:
			alg = n.Child
		default:
			return collectVars(alg)
		}
	}
}

// constructTriples instantiates the CONSTRUCT template once per solution,
// renaming template blank nodes freshly for each row (the SPARQL rule that
// keeps rows from sharing bnodes) and skipping each template triple whose
// variable is unbound or whose predicate slot resolves to a non-IRI.
func constructTriples(template []TriplePattern, rows []Solution) []rdf.Triple {
	var out []rdf.Triple
	seen := map[string]struct{}{}
	for i, sol := range rows {
		remap := map[string]rdf.BlankNode{}
		for _, tp := range template {
			s, ok := constructTerm(tp.S, sol, remap, i)
			if !ok {
				continue
			}
			p, ok := constructTerm(tp.P, sol, remap, i)
			if !ok {
				continue
			}
			pIRI, ok := p.(rdf.IRI)
			if !ok {
				continue
			}
			o, ok := constructTerm(tp.O, sol, remap, i)
			if !ok {
				continue
			}
			t := rdf.Triple{S: s, P: pIRI, O: o}
			key := t.S.String() + " " + t.P.Value + " " + t.O.String()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}

func constructTerm(pt PatternTerm, sol Solution, remap map[string]rdf.BlankNode, row int) (rdf.Term, bool) {
	if pt.Term != nil {
		if b, ok := pt.Term.(rdf.BlankNode); ok {
			fresh, ok := remap[b.ID]
			if !ok {
				fresh = rdf.BlankNode{ID: fmt.Sprintf("%s_r%d", b.ID, row)}
				remap[b.ID] = fresh
			}
			return fresh, true
		}
		return pt.Term, true
	}
	v, ok := sol[pt.Var]
	return v, ok
}

// Default DESCRIBE follow set: after a resource's own outbound triples,
// also include each object's label and type so the description is usable
// on its own. Overridable via EvalOptions.DescribeFollow.
var defaultDescribeFollow = []rdf.IRI{
	{Value: "http://www.w3.org/2000/01/rdf-schema#label"},
	{Value: "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"},
}

func executeDescribe(st *store.Store, ev *Evaluator, q *Query, alg Algebra, opts EvalOptions) (*QueryResult, error) {
	rows := []Solution{{}}
	if alg != nil {
		var err error
		rows, err = drainSolutions(ev, alg)
		if err != nil {
			return nil, err
		}
	}

	resources := map[string]rdf.Term{}
	if len(q.Describe) == 0 {
		// DESCRIBE *: every IRI or blank node bound by the WHERE clause.
		for _, sol := range rows {
			for _, t := range sol {
				addDescribeResource(resources, t)
			}
		}
	} else {
		for _, pt := range q.Describe {
			if pt.Term != nil {
				addDescribeResource(resources, pt.Term)
				continue
			}
			for _, sol := range rows {
				if t, ok := sol[pt.Var]; ok {
					addDescribeResource(resources, t)
				}
			}
		}
	}

	follow := opts.DescribeFollow
	if follow == nil {
		follow = defaultDescribeFollow
	}

	keys := make([]string, 0, len(resources))
	for k := range resources {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []rdf.Triple
	seen := map[string]struct{}{}
	for _, k := range keys {
		res := resources[k]
		outbound, err := scanPattern(st, store.Pattern{S: res})
		if err != nil {
			return nil, err
		}
		for _, ob := range outbound {
			appendTriple(&out, seen, ob.ToTriple())
			// Bounded second hop: only the configured predicates of each
			// object, never a full recursive expansion.
			obj := ob.O
			if obj.Kind() != rdf.TermIRI && obj.Kind() != rdf.TermBlankNode {
				continue
			}
			for _, pred := range follow {
				hops, err := scanPattern(st, store.Pattern{S: obj, P: pred})
				if err != nil {
					return nil, err
				}
				for _, h := range hops {
					appendTriple(&out, seen, h.ToTriple())
				}
			}
		}
	}
	return &QueryResult{Form: FormDescribe, Triples: out}, nil
}

func addDescribeResource(set map[string]rdf.Term, t rdf.Term) {
	if t == nil {
		return
	}
	if t.Kind() != rdf.TermIRI && t.Kind() != rdf.TermBlankNode {
		return
	}
	set[t.String()] = t
}

func appendTriple(out *[]rdf.Triple, seen map[string]struct{}, t rdf.Triple) {
	key := t.S.String() + " " + t.P.Value + " " + t.O.String()
	if _, dup := seen[key]; dup {
		return
	}
	seen[key] = struct{}{}
	*out = append(*out, t)
}
