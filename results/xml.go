package results

import (
	"encoding/xml"
	"fmt"
	"io"

	"github.com/geoknoesis/quadgraph/rdf"
)

// The SPARQL Query Results XML Format (https://www.w3.org/TR/rdf-sparql-XMLres/):
//
//	<sparql xmlns="http://www.w3.org/2005/sparql-results#">
//	  <head><variable name="s"/></head>
//	  <results><result><binding name="s"><uri>...</uri></binding></result></results>
//	</sparql>
//
// or, for ASK: <sparql><head/><boolean>true</boolean></sparql>.
const sparqlResultsNS = "http://www.w3.org/2005/sparql-results#"

type xmlSparql struct {
	XMLName xml.Name     `xml:"sparql"`
	XMLNS   string       `xml:"xmlns,attr"`
	Head    xmlHead      `xml:"head"`
	Boolean *bool        `xml:"boolean,omitempty"`
	Results *xmlResults  `xml:"results,omitempty"`
}

type xmlHead struct {
	Variables []xmlVariable `xml:"variable"`
}

type xmlVariable struct {
	Name string `xml:"name,attr"`
}

type xmlResults struct {
	Result []xmlResult `xml:"result"`
}

type xmlResult struct {
	Bindings []xmlBinding `xml:"binding"`
}

type xmlBinding struct {
	Name    string      `xml:"name,attr"`
	URI     *string     `xml:"uri,omitempty"`
	BNode   *string     `xml:"bnode,omitempty"`
	Literal *xmlLiteral `xml:"literal,omitempty"`
}

type xmlLiteral struct {
	Value    string  `xml:",chardata"`
	Lang     string  `xml:"xml:lang,attr,omitempty"`
	Datatype string  `xml:"datatype,attr,omitempty"`
}

func writeXML(w io.Writer, r Result) error {
	doc := xmlSparql{XMLNS: sparqlResultsNS}
	switch {
	case r.Boolean != nil:
		doc.Boolean = r.Boolean
	case r.Bindings != nil:
		for _, v := range r.Bindings.Vars {
			doc.Head.Variables = append(doc.Head.Variables, xmlVariable{Name: v})
		}
		res := &xmlResults{Result: make([]xmlResult, 0, len(r.Bindings.Rows))}
		for _, row := range r.Bindings.Rows {
			var xr xmlResult
			for _, v := range r.Bindings.Vars {
				t, ok := row[v]
				if !ok {
					continue
				}
				xr.Bindings = append(xr.Bindings, termToXMLBinding(v, t))
			}
			res.Result = append(res.Result, xr)
		}
		doc.Results = res
	default:
		return fmt.Errorf("results: empty Result has neither Boolean nor Bindings set")
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func termToXMLBinding(name string, t rdf.Term) xmlBinding {
	b := xmlBinding{Name: name}
	switch v := t.(type) {
	case rdf.IRI:
		b.URI = &v.Value
	case rdf.BlankNode:
		b.BNode = &v.ID
	case rdf.Literal:
		lit := &xmlLiteral{Value: v.Lexical}
		if v.Lang != "" {
			lit.Lang = v.Lang
		} else if v.Datatype.Value != "" && v.Datatype.Value != rdfLangStringIRI {
			lit.Datatype = v.Datatype.Value
		}
		b.Literal = lit
	default:
		s := t.String()
		b.Literal = &xmlLiteral{Value: s}
	}
	return b
}

func readXML(r io.Reader) (Result, error) {
	var doc xmlSparql
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return Result{}, fmt.Errorf("results: decoding XML: %w", err)
	}
	if doc.Boolean != nil {
		return Result{Boolean: doc.Boolean}, nil
	}
	if doc.Results == nil {
		return Result{}, fmt.Errorf("results: XML document has neither boolean nor results")
	}
	vars := make([]string, 0, len(doc.Head.Variables))
	for _, v := range doc.Head.Variables {
		vars = append(vars, v.Name)
	}
	rows := make([]Row, 0, len(doc.Results.Result))
	for _, xr := range doc.Results.Result {
		row := make(Row, len(xr.Bindings))
		for _, b := range xr.Bindings {
			t, err := xmlBindingToTerm(b)
			if err != nil {
				return Result{}, err
			}
			row[b.Name] = t
		}
		rows = append(rows, row)
	}
	return Result{Bindings: &Bindings{Vars: vars, Rows: rows}}, nil
}

func xmlBindingToTerm(b xmlBinding) (rdf.Term, error) {
	switch {
	case b.URI != nil:
		return rdf.IRI{Value: *b.URI}, nil
	case b.BNode != nil:
		return rdf.BlankNode{ID: *b.BNode}, nil
	case b.Literal != nil:
		lit := rdf.Literal{Lexical: b.Literal.Value}
		switch {
		case b.Literal.Lang != "":
			lit.Lang = b.Literal.Lang
			lit.Datatype = rdf.IRI{Value: rdfLangStringIRI}
		case b.Literal.Datatype != "":
			lit.Datatype = rdf.IRI{Value: b.Literal.Datatype}
		default:
			lit.Datatype = rdf.IRI{Value: "http://www.w3.org/2001/XMLSchema#string"}
		}
		return lit, nil
	default:
		return nil, fmt.Errorf("results: binding %q has no uri/bnode/literal child", b.Name)
	}
}
