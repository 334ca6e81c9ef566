package sparql

import "fmt"

// LimitError is returned when a configured Limits guard is exceeded
// (result rows, groups, or property-path recursion depth). It is distinct
// from a typeError: a typeError is per-row and SPARQL's three-valued logic
// swallows it, while a LimitError always propagates to the top-level call.
type LimitError struct {
	Limit string
}

func (e *LimitError) Error() string { return fmt.Sprintf("sparql: limit exceeded: %s", e.Limit) }

func limitErrorf(limit string) error { return &LimitError{Limit: limit} }

// ServiceError wraps a failed SERVICE dispatch (transport failure, a
// non-2xx response, or a malformed result body) with the endpoint IRI
// that failed, so SILENT handling and error messages can both report it.
type ServiceError struct {
	Endpoint string
	Err      error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("sparql: SERVICE <%s>: %v", e.Endpoint, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }
