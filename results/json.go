package results

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/geoknoesis/quadgraph/rdf"
)

// jsonDoc mirrors the SPARQL 1.1 Query Results JSON Format's top-level
// shape (https://www.w3.org/TR/sparql11-results-json/): head.vars for a
// bindings result, head (empty) plus boolean for an ASK result.
type jsonDoc struct {
	Head    jsonHead          `json:"head"`
	Boolean *bool             `json:"boolean,omitempty"`
	Results *jsonResultsBlock `json:"results,omitempty"`
}

type jsonHead struct {
	Vars []string `json:"vars,omitempty"`
}

type jsonResultsBlock struct {
	Bindings []map[string]jsonTerm `json:"bindings"`
}

// jsonTerm is one binding's term encoding: {"type":"uri","value":"..."}, a
// literal additionally carrying "xml:lang" or "datatype", a "triple"
// extension ({"subject":...,"predicate":...,"object":...}) for RDF-star.
type jsonTerm struct {
	Type     string    `json:"type"`
	Value    string    `json:"value,omitempty"`
	Lang     string    `json:"xml:lang,omitempty"`
	Datatype string    `json:"datatype,omitempty"`
	Subject  *jsonTerm `json:"subject,omitempty"`
	Property *jsonTerm `json:"predicate,omitempty"`
	Object   *jsonTerm `json:"object,omitempty"`
}

func writeJSON(w io.Writer, r Result) error {
	var doc jsonDoc
	switch {
	case r.Boolean != nil:
		doc.Boolean = r.Boolean
	case r.Bindings != nil:
		doc.Head.Vars = r.Bindings.Vars
		block := &jsonResultsBlock{Bindings: make([]map[string]jsonTerm, 0, len(r.Bindings.Rows))}
		for _, row := range r.Bindings.Rows {
			out := make(map[string]jsonTerm, len(row))
			for _, v := range r.Bindings.Vars {
				t, ok := row[v]
				if !ok {
					continue // unbound variable: omit the key entirely (SPARQL 1.1 Query Results JSON Format)
				}
				out[v] = termToJSON(t)
			}
			block.Bindings = append(block.Bindings, out)
		}
		doc.Results = block
	default:
		return fmt.Errorf("results: empty Result has neither Boolean nor Bindings set")
	}
	enc := json.NewEncoder(w)
	return enc.Encode(doc)
}

func termToJSON(t rdf.Term) jsonTerm {
	switch v := t.(type) {
	case rdf.IRI:
		return jsonTerm{Type: "uri", Value: v.Value}
	case rdf.BlankNode:
		return jsonTerm{Type: "bnode", Value: v.ID}
	case rdf.Literal:
		jt := jsonTerm{Type: "literal", Value: v.Lexical}
		if v.Lang != "" {
			jt.Lang = v.Lang
		} else if v.Datatype.Value != "" && v.Datatype.Value != rdfLangStringIRI {
			jt.Datatype = v.Datatype.Value
		}
		return jt
	case rdf.TripleTerm:
		s := termToJSON(v.S)
		p := termToJSON(v.P)
		o := termToJSON(v.O)
		return jsonTerm{Type: "triple", Subject: &s, Property: &p, Object: &o}
	default:
		return jsonTerm{Type: "literal", Value: t.String()}
	}
}

const rdfLangStringIRI = "http://www.w3.org/1999/02/22-rdf-syntax-ns#langString"

func readJSON(r io.Reader) (Result, error) {
	var doc jsonDoc
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Result{}, fmt.Errorf("results: decoding JSON: %w", err)
	}
	if doc.Boolean != nil {
		return Result{Boolean: doc.Boolean}, nil
	}
	if doc.Results == nil {
		return Result{}, fmt.Errorf("results: JSON document has neither boolean nor results")
	}
	rows := make([]Row, 0, len(doc.Results.Bindings))
	for _, b := range doc.Results.Bindings {
		row := make(Row, len(b))
		for name, jt := range b {
			t, err := jsonTermToTerm(jt)
			if err != nil {
				return Result{}, err
			}
			row[name] = t
		}
		rows = append(rows, row)
	}
	return Result{Bindings: &Bindings{Vars: doc.Head.Vars, Rows: rows}}, nil
}

func jsonTermToTerm(jt jsonTerm) (rdf.Term, error) {
	switch jt.Type {
	case "uri":
		return rdf.IRI{Value: jt.Value}, nil
	case "bnode":
		return rdf.BlankNode{ID: jt.Value}, nil
	case "literal", "typed-literal":
		lit := rdf.Literal{Lexical: jt.Value}
		if jt.Lang != "" {
			lit.Lang = jt.Lang
			lit.Datatype = rdf.IRI{Value: rdfLangStringIRI}
		} else if jt.Datatype != "" {
			lit.Datatype = rdf.IRI{Value: jt.Datatype}
		} else {
			lit.Datatype = rdf.IRI{Value: "http://www.w3.org/2001/XMLSchema#string"}
		}
		return lit, nil
	case "triple":
		if jt.Subject == nil || jt.Property == nil || jt.Object == nil {
			return nil, fmt.Errorf("results: triple term missing subject/predicate/object")
		}
		s, err := jsonTermToTerm(*jt.Subject)
		if err != nil {
			return nil, err
		}
		p, err := jsonTermToTerm(*jt.Property)
		if err != nil {
			return nil, err
		}
		pIRI, ok := p.(rdf.IRI)
		if !ok {
			return nil, fmt.Errorf("results: triple term predicate is not a uri")
		}
		o, err := jsonTermToTerm(*jt.Object)
		if err != nil {
			return nil, err
		}
		return rdf.TripleTerm{S: s, P: pIRI, O: o}, nil
	default:
		return nil, fmt.Errorf("results: unknown JSON term type %q", jt.Type)
	}
}
