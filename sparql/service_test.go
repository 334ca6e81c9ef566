package sparql

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/geoknoesis/quadgraph/rdf"
	"github.com/geoknoesis/quadgraph/store"
)

const serviceResultsJSON = `{
  "head": {"vars": ["s", "o"]},
  "results": {"bindings": [
    {"s": {"type": "uri", "value": "http://remote/a"},
     "o": {"type": "literal", "value": "1", "datatype": "http://www.w3.org/2001/XMLSchema#integer"}},
    {"s": {"type": "uri", "value": "http://remote/b"},
     "o": {"type": "literal", "value": "2", "datatype": "http://www.w3.org/2001/XMLSchema#integer"}}
  ]}
}`

func TestHTTPServiceHandlerParsesJSONBindings(t *testing.T) {
	var gotQuery, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		gotQuery = r.PostFormValue("query")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "application/sparql-results+json")
		fmt.Fprint(w, serviceResultsJSON)
	}))
	defer srv.Close()

	h := NewHTTPServiceHandler(srv.Client())
	pattern := BGP{Patterns: []TriplePattern{
		{S: Unbound("s"), P: Bound(rdf.IRI{Value: "http://remote/p"}), O: Unbound("o")},
	}}
	rows, err := h.Query(rdf.IRI{Value: srv.URL}, pattern)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 remote solutions, got %d", len(rows))
	}
	if rows[0]["s"].String() != "http://remote/a" {
		t.Fatalf("unexpected first binding %v", rows[0])
	}
	if gotQuery == "" || gotAccept != "application/sparql-results+json, application/sparql-results+xml" {
		t.Fatalf("unexpected outbound request: query=%q accept=%q", gotQuery, gotAccept)
	}
}

func TestHTTPServiceHandlerNon2xxIsServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	h := NewHTTPServiceHandler(srv.Client())
	_, err := h.Query(rdf.IRI{Value: srv.URL}, BGP{Patterns: []TriplePattern{
		{S: Unbound("s"), P: Unbound("p"), O: Unbound("o")},
	}})
	se, ok := err.(*ServiceError)
	if !ok {
		t.Fatalf("expected *ServiceError, got %T: %v", err, err)
	}
	if se.Endpoint != srv.URL {
		t.Fatalf("expected the failing endpoint recorded, got %q", se.Endpoint)
	}
}

func TestServiceClauseJoinsRemoteSolutions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/sparql-results+json")
		fmt.Fprint(w, serviceResultsJSON)
	}))
	defer srv.Close()

	s := store.Open(store.OpenMemory())
	defer s.Close()

	q := mustParse(t, fmt.Sprintf(`SELECT ?s ?o WHERE { SERVICE <%s> { ?s <http://remote/p> ?o } }`, srv.URL))
	res, err := ExecuteQuery(s, q, EvalOptions{Service: NewHTTPServiceHandler(srv.Client())})
	if err != nil {
		t.Fatalf("ExecuteQuery: %v", err)
	}
	if len(res.Rows) != 2 {
		t.Fatalf("expected 2 federated rows, got %d", len(res.Rows))
	}
}
