package results

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/geoknoesis/quadgraph/rdf"
)

// writeDelimited serializes a Bindings result as CSV or TSV
// (https://www.w3.org/TR/sparql11-results-csv-tsv/). Neither format has a
// standardized boolean form.
func writeDelimited(w io.Writer, r Result, sep rune) error {
	if r.Bindings == nil {
		return fmt.Errorf("results: CSV/TSV only serialize bindings results, not boolean")
	}
	cw := csv.NewWriter(w)
	cw.Comma = sep
	if sep == '\t' {
		cw.UseCRLF = false
	}
	header := append([]string(nil), r.Bindings.Vars...)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, row := range r.Bindings.Rows {
		rec := make([]string, len(r.Bindings.Vars))
		for i, v := range r.Bindings.Vars {
			t, ok := row[v]
			if !ok {
				continue // unbound: leave the field empty
			}
			if sep == '\t' {
				rec[i] = termToTSV(t)
			} else {
				rec[i] = termToCSV(t)
			}
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// termToCSV renders a term the lossy CSV way the SPARQL 1.1 Results CSV
// format mandates: IRIs and
// literals both as bare lexical text (no <>, no "", no datatype/lang
// markers) -- CSV cannot round-trip a result set, only display one.
func termToCSV(t rdf.Term) string {
	switch v := t.(type) {
	case rdf.IRI:
		return v.Value
	case rdf.BlankNode:
		return "_:" + v.ID
	case rdf.Literal:
		return v.Lexical
	default:
		return t.String()
	}
}

// termToTSV renders a term the TSV way: full term syntax so the result is
// lossless (<iri>, "literal"@lang, "literal"^^<dt>, _:bnode), per
// https://www.w3.org/TR/sparql11-results-csv-tsv/#tsv.
func termToTSV(t rdf.Term) string {
	switch v := t.(type) {
	case rdf.IRI:
		return "<" + v.Value + ">"
	case rdf.BlankNode:
		return "_:" + v.ID
	case rdf.Literal:
		var b strings.Builder
		b.WriteByte('"')
		for _, r := range v.Lexical {
			switch r {
			case '"':
				b.WriteString(`\"`)
			case '\\':
				b.WriteString(`\\`)
			case '\n':
				b.WriteString(`\n`)
			case '\r':
				b.WriteString(`\r`)
			default:
				b.WriteRune(r)
			}
		}
		b.WriteByte('"')
		if v.Lang != "" {
			b.WriteByte('@')
			b.WriteString(v.Lang)
		} else if v.Datatype.Value != "" && v.Datatype.Value != "http://www.w3.org/2001/XMLSchema#string" {
			b.WriteString("^^<")
			b.WriteString(v.Datatype.Value)
			b.WriteByte('>')
		}
		return b.String()
	case rdf.TripleTerm:
		return fmt.Sprintf("<<%s %s %s>>", termToTSV(v.S), termToTSV(v.P), termToTSV(v.O))
	default:
		return t.String()
	}
}

// readDelimited parses a CSV/TSV bindings table. CSV terms are read back
// as xsd:string literals, the lossy direction the W3C spec
// acknowledges; TSV terms are read back through the full term grammar.
func readDelimited(r io.Reader, sep rune) (Result, error) {
	cr := csv.NewReader(bufio.NewReader(r))
	cr.Comma = sep
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return Result{Bindings: &Bindings{}}, nil
		}
		return Result{}, fmt.Errorf("results: reading header: %w", err)
	}

	var rows []Row
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Result{}, fmt.Errorf("results: reading row: %w", err)
		}
		row := make(Row, len(header))
		for i, name := range header {
			if i >= len(rec) || rec[i] == "" {
				continue
			}
			var t rdf.Term
			if sep == '\t' {
				t, err = parseTSVTerm(rec[i])
				if err != nil {
					return Result{}, err
				}
			} else {
				t = rdf.Literal{Lexical: rec[i], Datatype: rdf.IRI{Value: "http://www.w3.org/2001/XMLSchema#string"}}
			}
			row[name] = t
		}
		rows = append(rows, row)
	}
	return Result{Bindings: &Bindings{Vars: header, Rows: rows}}, nil
}

// parseTSVTerm parses one TSV cell's term syntax: <iri>, _:bnode, or a
// quoted literal with an optional @lang or ^^<datatype> suffix.
func parseTSVTerm(s string) (rdf.Term, error) {
	switch {
	case strings.HasPrefix(s, "<") && strings.HasSuffix(s, ">"):
		return rdf.IRI{Value: s[1 : len(s)-1]}, nil
	case strings.HasPrefix(s, "_:"):
		return rdf.BlankNode{ID: s[2:]}, nil
	case strings.HasPrefix(s, `"`):
		return parseQuotedLiteral(s)
	default:
		return rdf.Literal{Lexical: s, Datatype: rdf.IRI{Value: "http://www.w3.org/2001/XMLSchema#string"}}, nil
	}
}

func parseQuotedLiteral(s string) (rdf.Term, error) {
	i := 1
	var lex strings.Builder
	for i < len(s) {
		c := s[i]
		if c == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case '"':
				lex.WriteByte('"')
			case '\\':
				lex.WriteByte('\\')
			case 'n':
				lex.WriteByte('\n')
			case 'r':
				lex.WriteByte('\r')
			default:
				lex.WriteByte(s[i+1])
			}
			i += 2
			continue
		}
		if c == '"' {
			i++
			break
		}
		lex.WriteByte(c)
		i++
	}
	rest := s[i:]
	lit := rdf.Literal{Lexical: lex.String()}
	switch {
	case strings.HasPrefix(rest, "@"):
		lit.Lang = rest[1:]
		lit.Datatype = rdf.IRI{Value: rdfLangStringIRI}
	case strings.HasPrefix(rest, "^^<") && strings.HasSuffix(rest, ">"):
		lit.Datatype = rdf.IRI{Value: rest[3 : len(rest)-1]}
	default:
		lit.Datatype = rdf.IRI{Value: "http://www.w3.org/2001/XMLSchema#string"}
	}
	return lit, nil
}
