package sparql

import (
	"errors"
	"testing"

	"github.com/geoknoesis/quadgraph/rdf"
)

func TestParseSelectWithFilter(t *testing.T) {
	q, err := ParseQuery(`
		PREFIX ex: <http://ex/>
		SELECT ?s ?o WHERE { ?s ex:p ?o . FILTER(?o > 3) }`)
	if err != nil {
		t.Fatalf("ParseQuery: %v", err)
	}
	if q.Form != FormSelect {
		t.Fatalf("expected SELECT form, got %v", q.Form)
	}
	vars := projectedVars(q.Algebra)
	if len(vars) != 2 || vars[0] != "s" || vars[1] != "o" {
		t.Fatalf("expected projection [s o], got %v", vars)
	}
	// Project wraps Filter wraps BGP.
	proj, ok := q.Algebra.(Project)
	if !ok {
		t.Fatalf("expected top-level Project, got %T", q.Algebra)
	}
	if _, ok := proj.Child.(Filter); !ok {
		t.Fatalf("expected Filter under Project, got %T", proj.Child)
	}
}

func TestParseSelectExpressionProjection(t *testing.T) {
	q, err := ParseQuery(`SELECT (?o + 1 AS ?n) WHERE { ?s ?p ?o }`)
	if err != nil {
		t.Fatalf("ParseQuery: %v", err)
	}
	vars := projectedVars(q.Algebra)
	if len(vars) != 1 || vars[0] != "n" {
		t.Fatalf("expected projection [n], got %v", vars)
	}
}

func TestParsePropertyPathBecomesPathNode(t *testing.T) {
	q, err := ParseQuery(`PREFIX ex: <http://ex/> SELECT ?x WHERE { ex:a ex:p+ ?x }`)
	if err != nil {
		t.Fatalf("ParseQuery: %v", err)
	}
	proj := q.Algebra.(Project)
	path, ok := proj.Child.(Path)
	if !ok {
		t.Fatalf("expected Path under Project, got %T", proj.Child)
	}
	if path.Expr.Kind != PathOneOrMore {
		t.Fatalf("expected one-or-more path, got kind %v", path.Expr.Kind)
	}
	if path.Expr.Sub == nil || path.Expr.Sub.Kind != PathIRI || path.Expr.Sub.IRI.Value != "http://ex/p" {
		t.Fatalf("expected inner ex:p, got %+v", path.Expr.Sub)
	}
}

func TestParsePathBetweenPlainTriplesKeepsOrder(t *testing.T) {
	q, err := ParseQuery(`PREFIX ex: <http://ex/>
		SELECT * WHERE { ?s ex:q ?a . ?s ex:p* ?x . ?x ex:r ?b }`)
	if err != nil {
		t.Fatalf("ParseQuery: %v", err)
	}
	// The path conjunct must survive as a Path node, not a BGP row with
	// a marker predicate.
	var sawPath bool
	var walk func(Algebra)
	walk = func(a Algebra) {
		switch n := a.(type) {
		case Path:
			sawPath = true
		case Join:
			walk(n.Left)
			walk(n.Right)
		case Project:
			walk(n.Child)
		case BGP:
			for _, tp := range n.Patterns {
				if iri, ok := tp.P.Term.(rdf.IRI); ok && len(iri.Value) > len(pathMarkerPrefix) && iri.Value[:len(pathMarkerPrefix)] == pathMarkerPrefix {
					t.Fatalf("undecoded path marker leaked into BGP: %v", iri.Value)
				}
			}
		}
	}
	walk(q.Algebra)
	if !sawPath {
		t.Fatalf("expected a Path node in the algebra")
	}
}

func TestParseAskConstructDescribe(t *testing.T) {
	q, err := ParseQuery(`ASK { ?s ?p ?o }`)
	if err != nil || q.Form != FormAsk {
		t.Fatalf("ASK: form=%v err=%v", q.Form, err)
	}

	q, err = ParseQuery(`PREFIX ex: <http://ex/>
		CONSTRUCT { ?s ex:q ?o } WHERE { ?s ex:p ?o }`)
	if err != nil || q.Form != FormConstruct {
		t.Fatalf("CONSTRUCT: form=%v err=%v", q.Form, err)
	}
	if len(q.Construct) != 1 {
		t.Fatalf("expected 1 template triple, got %d", len(q.Construct))
	}

	q, err = ParseQuery(`DESCRIBE <http://ex/a>`)
	if err != nil || q.Form != FormDescribe {
		t.Fatalf("DESCRIBE: form=%v err=%v", q.Form, err)
	}
	if len(q.Describe) != 1 || q.Describe[0].Term.(rdf.IRI).Value != "http://ex/a" {
		t.Fatalf("expected one described IRI, got %+v", q.Describe)
	}
	if q.Algebra != nil {
		t.Fatalf("DESCRIBE without WHERE should carry no algebra")
	}
}

func TestParseSyntaxErrorCarriesPosition(t *testing.T) {
	_, err := ParseQuery("SELECT ?s WHERE { ?s ?p }")
	if err == nil {
		t.Fatalf("expected a syntax error")
	}
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %T: %v", err, err)
	}
	if pe.Line < 1 || pe.Column < 1 {
		t.Fatalf("expected 1-based position, got %d:%d", pe.Line, pe.Column)
	}
}

func TestParseOptionalMinusUnionValues(t *testing.T) {
	q, err := ParseQuery(`PREFIX ex: <http://ex/>
		SELECT * WHERE {
			?s ex:p ?o .
			OPTIONAL { ?s ex:name ?n }
			MINUS { ?s ex:hidden true }
			{ ?s ex:k ex:a } UNION { ?s ex:k ex:b }
			VALUES ?o { 1 2 }
		}`)
	if err != nil {
		t.Fatalf("ParseQuery: %v", err)
	}
	kinds := map[string]bool{}
	var walk func(Algebra)
	walk = func(a Algebra) {
		switch n := a.(type) {
		case LeftJoin:
			kinds["optional"] = true
			walk(n.Left)
			walk(n.Right)
		case Minus:
			kinds["minus"] = true
			walk(n.Left)
			walk(n.Right)
		case Union:
			kinds["union"] = true
			walk(n.Left)
			walk(n.Right)
		case Values:
			kinds["values"] = true
		case Join:
			walk(n.Left)
			walk(n.Right)
		case Project:
			walk(n.Child)
		}
	}
	walk(q.Algebra)
	for _, k := range []string{"optional", "minus", "union", "values"} {
		if !kinds[k] {
			t.Fatalf("missing %s node in parsed algebra", k)
		}
	}
}

func TestParseUpdateOperations(t *testing.T) {
	u, err := ParseUpdate(`
		PREFIX ex: <http://ex/>
		INSERT DATA { ex:a ex:p ex:b . GRAPH ex:g { ex:c ex:p ex:d } } ;
		DELETE { ?s ex:old ?o } INSERT { ?s ex:new ?o } WHERE { ?s ex:old ?o } ;
		LOAD SILENT <http://ex/data.ttl> INTO GRAPH ex:g ;
		CLEAR DEFAULT ;
		DROP SILENT GRAPH ex:g ;
		COPY DEFAULT TO GRAPH ex:g ;
		MOVE GRAPH ex:g TO DEFAULT ;
		ADD SILENT GRAPH ex:g TO DEFAULT`)
	if err != nil {
		t.Fatalf("ParseUpdate: %v", err)
	}
	if len(u.Operations) != 8 {
		t.Fatalf("expected 8 operations, got %d", len(u.Operations))
	}

	ins := u.Operations[0].(InsertData)
	if len(ins.Quads) != 2 {
		t.Fatalf("expected 2 data quads, got %d", len(ins.Quads))
	}
	if ins.Quads[0].G != nil {
		t.Fatalf("first data quad should target the default graph")
	}
	if g, ok := ins.Quads[1].G.(rdf.IRI); !ok || g.Value != "http://ex/g" {
		t.Fatalf("second data quad should target ex:g, got %v", ins.Quads[1].G)
	}

	di := u.Operations[1].(DeleteInsert)
	if len(di.DeleteTemplate) != 1 || len(di.InsertTemplate) != 1 || di.Where == nil {
		t.Fatalf("unexpected DELETE/INSERT shape: %+v", di)
	}

	load := u.Operations[2].(Load)
	if !load.Silent || load.Source.Term.(rdf.IRI).Value != "http://ex/data.ttl" {
		t.Fatalf("unexpected LOAD: %+v", load)
	}
	if load.Into.Term.(rdf.IRI).Value != "http://ex/g" {
		t.Fatalf("unexpected LOAD target: %+v", load.Into)
	}

	if c := u.Operations[3].(Clear); c.Ref != GraphRefDefault || c.Silent {
		t.Fatalf("unexpected CLEAR: %+v", c)
	}
	if d := u.Operations[4].(Drop); d.Ref != GraphRefNamed || !d.Silent {
		t.Fatalf("unexpected DROP: %+v", d)
	}
	if cp := u.Operations[5].(Copy); cp.Source.Ref != GraphRefDefault || cp.Dest.Ref != GraphRefNamed {
		t.Fatalf("unexpected COPY: %+v", cp)
	}
	if mv := u.Operations[6].(Move); mv.Source.Ref != GraphRefNamed || mv.Dest.Ref != GraphRefDefault {
		t.Fatalf("unexpected MOVE: %+v", mv)
	}
	if ad := u.Operations[7].(Add); !ad.Silent {
		t.Fatalf("unexpected ADD: %+v", ad)
	}
}

func TestParseUpdateInsertDataRejectsVariables(t *testing.T) {
	_, err := ParseUpdate(`INSERT DATA { ?s <http://ex/p> <http://ex/o> }`)
	if err == nil {
		t.Fatalf("expected an error for a variable in INSERT DATA")
	}
}

func TestParseDeleteWhereDoublesAsTemplate(t *testing.T) {
	u, err := ParseUpdate(`DELETE WHERE { ?s <http://ex/p> ?o }`)
	if err != nil {
		t.Fatalf("ParseUpdate: %v", err)
	}
	di := u.Operations[0].(DeleteInsert)
	if len(di.DeleteTemplate) != 1 || di.Where == nil {
		t.Fatalf("unexpected DELETE WHERE shape: %+v", di)
	}
}

func TestParseExpressionPrecedence(t *testing.T) {
	q, err := ParseQuery(`SELECT (1 + 2 * 3 AS ?n) WHERE { ?s ?p ?o }`)
	if err != nil {
		t.Fatalf("ParseQuery: %v", err)
	}
	// Walk to the Extend the projection expression lowered into.
	var found *CallExpr
	var walk func(Algebra)
	walk = func(a Algebra) {
		switch n := a.(type) {
		case Extend:
			if c, ok := n.Expr.(CallExpr); ok {
				found = &c
			}
			walk(n.Child)
		case Project:
			walk(n.Child)
		case Join:
			walk(n.Left)
			walk(n.Right)
		}
	}
	walk(q.Algebra)
	if found == nil {
		t.Fatalf("expected an Extend carrying the projection expression")
	}
	if found.Op != OpAdd {
		t.Fatalf("expected + at the root (so * bound tighter), got op %v", found.Op)
	}
	mul, ok := found.Args[1].(CallExpr)
	if !ok || mul.Op != OpMul {
		t.Fatalf("expected the right operand of + to be *, got %+v", found.Args[1])
	}
}

func TestParseFilterNotExistsAndIn(t *testing.T) {
	q, err := ParseQuery(`PREFIX ex: <http://ex/>
		SELECT ?s WHERE {
			?s ex:p ?o .
			FILTER NOT EXISTS { ?s ex:hidden ?h }
			FILTER(?o IN (1, 2, 3))
		}`)
	if err != nil {
		t.Fatalf("ParseQuery: %v", err)
	}
	var sawExists, sawIn bool
	var walkExpr func(Expr)
	walkExpr = func(e Expr) {
		switch n := e.(type) {
		case ExistsExpr:
			if n.Negate {
				sawExists = true
			}
		case CallExpr:
			if n.Op == OpIn && len(n.Args) == 4 {
				sawIn = true
			}
			for _, a := range n.Args {
				walkExpr(a)
			}
		}
	}
	var walk func(Algebra)
	walk = func(a Algebra) {
		switch n := a.(type) {
		case Filter:
			walkExpr(n.Cond)
			walk(n.Child)
		case Project:
			walk(n.Child)
		case Join:
			walk(n.Left)
			walk(n.Right)
		}
	}
	walk(q.Algebra)
	if !sawExists || !sawIn {
		t.Fatalf("expected NOT EXISTS (%v) and IN (%v) filters", sawExists, sawIn)
	}
}

func TestParseBareInsertWhere(t *testing.T) {
	u, err := ParseUpdate(`PREFIX ex: <http://ex/>
		INSERT { ?s ex:copied ?o } WHERE { ?s ex:p ?o }`)
	if err != nil {
		t.Fatalf("ParseUpdate: %v", err)
	}
	di := u.Operations[0].(DeleteInsert)
	if len(di.DeleteTemplate) != 0 || len(di.InsertTemplate) != 1 || di.Where == nil {
		t.Fatalf("unexpected INSERT WHERE shape: %+v", di)
	}
}

func TestParseWithGraphBecomesUsing(t *testing.T) {
	u, err := ParseUpdate(`PREFIX ex: <http://ex/>
		WITH ex:g DELETE { ?s ex:p ?o } WHERE { ?s ex:p ?o }`)
	if err != nil {
		t.Fatalf("ParseUpdate: %v", err)
	}
	di := u.Operations[0].(DeleteInsert)
	if len(di.Using) != 1 {
		t.Fatalf("WITH must register a USING graph, got %+v", di.Using)
	}
}
