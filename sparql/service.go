package sparql

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/geoknoesis/quadgraph/rdf"
	"github.com/geoknoesis/quadgraph/results"
)

// ServiceHandler dispatches a federated SERVICE sub-pattern to a named
// endpoint, returning the solutions it yields. Default use is via
// DefaultServiceHandler; tests and embedders may substitute their own,
// the same narrow-capability-interface shape as store.Backend.
type ServiceHandler interface {
	Query(endpoint rdf.IRI, pattern Algebra) ([]Solution, error)
}

// DefaultServiceHandler serializes pattern as a SPARQL SELECT query,
// POSTs it to endpoint, and parses the response. It is package-level
// rather than a zero-value HTTPServiceHandler so EvalOptions.Service ==
// nil can fall back to it without callers constructing one.
var DefaultServiceHandler ServiceHandler = NewHTTPServiceHandler(nil)

// HTTPServiceHandler is the net/http-based ServiceHandler implementation:
// each call is synchronous, with a redirect cap and timeout enforced by
// default. Query takes no context, so a call in flight cannot be
// cancelled; only the timeout ends it early.
type HTTPServiceHandler struct {
	Client       *http.Client
	Timeout      time.Duration
	MaxRedirects int
}

const defaultServiceTimeout = 30 * time.Second
const defaultServiceMaxRedirects = 5

// NewHTTPServiceHandler builds a handler over client (http.DefaultClient
// if nil), enforcing a mandatory timeout and redirect cap.
func NewHTTPServiceHandler(client *http.Client) *HTTPServiceHandler {
	if client == nil {
		client = &http.Client{}
	}
	h := &HTTPServiceHandler{Client: client, Timeout: defaultServiceTimeout, MaxRedirects: defaultServiceMaxRedirects}
	return h
}

// Query implements ServiceHandler.
func (h *HTTPServiceHandler) Query(endpoint rdf.IRI, pattern Algebra) ([]Solution, error) {
	queryText, err := algebraToSelectQuery(pattern)
	if err != nil {
		return nil, &ServiceError{Endpoint: endpoint.Value, Err: err}
	}

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	maxRedirects := h.MaxRedirects
	if maxRedirects <= 0 {
		maxRedirects = defaultServiceMaxRedirects
	}
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = defaultServiceTimeout
	}
	reqClient := *client
	reqClient.Timeout = timeout
	reqClient.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("sparql: SERVICE exceeded %d redirects", maxRedirects)
		}
		return nil
	}

	form := url.Values{"query": {queryText}}
	req, err := http.NewRequest(http.MethodPost, endpoint.Value, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &ServiceError{Endpoint: endpoint.Value, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/sparql-results+json, application/sparql-results+xml")

	resp, err := reqClient.Do(req)
	if err != nil {
		return nil, &ServiceError{Endpoint: endpoint.Value, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ServiceError{Endpoint: endpoint.Value, Err: fmt.Errorf("status %s", resp.Status)}
	}

	format, ok := results.FromMediaType(resp.Header.Get("Content-Type"))
	if !ok {
		format = results.FormatJSON
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ServiceError{Endpoint: endpoint.Value, Err: err}
	}
	res, err := results.Read(bytes.NewReader(body), format)
	if err != nil {
		return nil, &ServiceError{Endpoint: endpoint.Value, Err: err}
	}
	if res.Bindings == nil {
		return nil, &ServiceError{Endpoint: endpoint.Value, Err: fmt.Errorf("response carried no bindings")}
	}

	out := make([]Solution, 0, len(res.Bindings.Rows))
	for _, row := range res.Bindings.Rows {
		sol := make(Solution, len(row))
		for name, t := range row {
			sol[Variable(name)] = t
		}
		out = append(out, sol)
	}
	return out, nil
}

// algebraToSelectQuery renders pattern as a complete "SELECT * WHERE {
// ... }" query, the wire form the default handler sends. A dedicated
// serializer rather than a generic pretty-printer: the parser (parser.go)
// only ever needs to go text -> algebra, so nothing in this package can
// already do the reverse direction.
func algebraToSelectQuery(pattern Algebra) (string, error) {
	var b strings.Builder
	b.WriteString("SELECT * WHERE { ")
	if err := writeGroupGraphPattern(&b, pattern); err != nil {
		return "", err
	}
	b.WriteString(" }")
	return b.String(), nil
}

func writeGroupGraphPattern(b *strings.Builder, alg Algebra) error {
	switch n := alg.(type) {
	case nil:
		return nil
	case BGP:
		for _, tp := range n.Patterns {
			writePatternTerm(b, tp.S)
			b.WriteByte(' ')
			writePatternTerm(b, tp.P)
			b.WriteByte(' ')
			writePatternTerm(b, tp.O)
			b.WriteString(" . ")
		}
		return nil
	case Path:
		writePatternTerm(b, n.Start)
		b.WriteByte(' ')
		writePathExpr(b, n.Expr)
		b.WriteByte(' ')
		writePatternTerm(b, n.End)
		b.WriteString(" . ")
		return nil
	case Join:
		if err := writeGroupGraphPattern(b, n.Left); err != nil {
			return err
		}
		return writeGroupGraphPattern(b, n.Right)
	case LeftJoin:
		if err := writeGroupGraphPattern(b, n.Left); err != nil {
			return err
		}
		b.WriteString("OPTIONAL { ")
		if err := writeGroupGraphPattern(b, n.Right); err != nil {
			return err
		}
		if n.Filter != nil {
			b.WriteString("FILTER(")
			if err := writeExpr(b, n.Filter); err != nil {
				return err
			}
			b.WriteString(") ")
		}
		b.WriteString("} ")
		return nil
	case Union:
		b.WriteString("{ ")
		if err := writeGroupGraphPattern(b, n.Left); err != nil {
			return err
		}
		b.WriteString("} UNION { ")
		if err := writeGroupGraphPattern(b, n.Right); err != nil {
			return err
		}
		b.WriteString("} ")
		return nil
	case Minus:
		if err := writeGroupGraphPattern(b, n.Left); err != nil {
			return err
		}
		b.WriteString("MINUS { ")
		if err := writeGroupGraphPattern(b, n.Right); err != nil {
			return err
		}
		b.WriteString("} ")
		return nil
	case Filter:
		if err := writeGroupGraphPattern(b, n.Child); err != nil {
			return err
		}
		b.WriteString("FILTER(")
		if err := writeExpr(b, n.Cond); err != nil {
			return err
		}
		b.WriteString(") ")
		return nil
	case Extend:
		if err := writeGroupGraphPattern(b, n.Child); err != nil {
			return err
		}
		b.WriteString("BIND(")
		if err := writeExpr(b, n.Expr); err != nil {
			return err
		}
		fmt.Fprintf(b, " AS ?%s) ", n.Var)
		return nil
	case Graph:
		b.WriteString("GRAPH ")
		writePatternTerm(b, n.Name)
		b.WriteString(" { ")
		if err := writeGroupGraphPattern(b, n.Pattern); err != nil {
			return err
		}
		b.WriteString("} ")
		return nil
	case Values:
		fmt.Fprintf(b, "VALUES (")
		for _, v := range n.Vars {
			fmt.Fprintf(b, "?%s ", v)
		}
		b.WriteString(") { ")
		for _, row := range n.Rows {
			b.WriteString("( ")
			for _, t := range row {
				if t == nil {
					b.WriteString("UNDEF ")
				} else {
					b.WriteString(termToSPARQL(t))
					b.WriteByte(' ')
				}
			}
			b.WriteString(") ")
		}
		b.WriteString("} ")
		return nil
	case Service:
		if n.Silent {
			b.WriteString("SERVICE SILENT ")
		} else {
			b.WriteString("SERVICE ")
		}
		writePatternTerm(b, n.Endpoint)
		b.WriteString(" { ")
		if err := writeGroupGraphPattern(b, n.Pattern); err != nil {
			return err
		}
		b.WriteString("} ")
		return nil
	case Project:
		return writeGroupGraphPattern(b, n.Child)
	case Distinct:
		return writeGroupGraphPattern(b, n.Child)
	case Reduced:
		return writeGroupGraphPattern(b, n.Child)
	case Slice:
		return writeGroupGraphPattern(b, n.Child)
	case OrderBy:
		return writeGroupGraphPattern(b, n.Child)
	default:
		return fmt.Errorf("sparql: cannot serialize %T inside a SERVICE pattern", alg)
	}
}

func writePatternTerm(b *strings.Builder, pt PatternTerm) {
	if pt.IsVariable() {
		fmt.Fprintf(b, "?%s", pt.Var)
		return
	}
	if pt.Term == nil {
		b.WriteString("[] ")
		return
	}
	b.WriteString(termToSPARQL(pt.Term))
}

func termToSPARQL(t rdf.Term) string {
	switch v := t.(type) {
	case rdf.IRI:
		return "<" + v.Value + ">"
	case rdf.BlankNode:
		return "_:" + v.ID
	case rdf.Literal:
		lex := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`).Replace(v.Lexical)
		s := `"` + lex + `"`
		if v.Lang != "" {
			return s + "@" + v.Lang
		}
		if v.Datatype.Value != "" && v.Datatype.Value != "http://www.w3.org/2001/XMLSchema#string" {
			return s + "^^<" + v.Datatype.Value + ">"
		}
		return s
	case rdf.TripleTerm:
		return "<<" + termToSPARQL(v.S) + " " + termToSPARQL(v.P) + " " + termToSPARQL(v.O) + ">>"
	default:
		return t.String()
	}
}

func writePathExpr(b *strings.Builder, pe PathExpr) {
	switch pe.Kind {
	case PathIRI:
		b.WriteString("<" + pe.IRI.Value + ">")
	case PathInverse:
		b.WriteString("^")
		writePathExpr(b, *pe.Sub)
	case PathSeq:
		writePathExpr(b, *pe.Left)
		b.WriteString("/")
		writePathExpr(b, *pe.Right)
	case PathAlt:
		writePathExpr(b, *pe.Left)
		b.WriteString("|")
		writePathExpr(b, *pe.Right)
	case PathZeroOrOne:
		writePathExpr(b, *pe.Sub)
		b.WriteString("?")
	case PathZeroOrMore:
		writePathExpr(b, *pe.Sub)
		b.WriteString("*")
	case PathOneOrMore:
		writePathExpr(b, *pe.Sub)
		b.WriteString("+")
	case PathNegatedSet:
		b.WriteString("!(")
		for i, iri := range pe.Negated {
			if i > 0 {
				b.WriteString("|")
			}
			b.WriteString("<" + iri.Value + ">")
		}
		for _, iri := range pe.NegatedInv {
			if len(pe.Negated) > 0 {
				b.WriteString("|")
			}
			b.WriteString("^<" + iri.Value + ">")
		}
		b.WriteString(")")
	}
}
