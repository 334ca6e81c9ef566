package rdf

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	ld "github.com/piprate/json-gold/ld"
)

// jsonLiteralPlaceholderIRI stands in for rdf:JSON while a document passes
// through json-gold's expansion/ToRDF pipeline, which does not know about
// RDF 1.2's JSON datatype; canonicalizeJSONLiteralDataset swaps the real
// datatype back in once the dataset comes out the other side.
const jsonLiteralPlaceholderIRI = "urn:json:literal"

// JSONLDOptions configures JSON-LD expansion, compaction, and RDF
// conversion. Most fields map directly onto json-gold's JsonLdOptions;
// quadgraph adds the Max* streaming guards and the Context cancellation
// hook.
type JSONLDOptions struct {
	// Context cancels JSON-LD decoding when done.
	Context context.Context
	// BaseIRI resolves relative IRIs.
	BaseIRI string
	// Base overrides the document base IRI when set.
	Base string
	// ProcessingMode controls JSON-LD version semantics: "json-ld-1.0" or "json-ld-1.1".
	ProcessingMode string

	// ExpandContext provides an external context for expansion.
	ExpandContext interface{}
	// CompactArrays controls compaction of single-element arrays.
	CompactArrays bool

	// RDF conversion flags.
	UseNativeTypes        bool
	UseRdfType            bool
	ProduceGeneralizedRdf bool

	// RdfDirection selects optional base-direction handling for strings (JSON-LD 1.1).
	RdfDirection string

	// SafeMode toggles json-gold's strict error handling.
	SafeMode bool

	// DocumentLoader resolves remote contexts and documents.
	DocumentLoader DocumentLoader

	// MaxInputBytes limits the size of JSON-LD input when decoding. Zero means unlimited.
	MaxInputBytes int64
	// MaxNodes limits the number of JSON-LD nodes processed. Zero means unlimited.
	MaxNodes int
	// MaxGraphItems limits the number of items in a @graph array. Zero means unlimited.
	MaxGraphItems int
	// MaxQuads limits the number of emitted quads. Zero means unlimited.
	MaxQuads int
	// MaxNestingDepth bounds @list/@graph/nested-node recursion depth during
	// streaming decode. Zero uses DefaultMaxDepth.
	MaxNestingDepth int
}

// DocumentLoader resolves remote contexts/documents referenced by @context
// or @import.
type DocumentLoader interface {
	LoadDocument(ctx context.Context, iri string) (RemoteDocument, error)
}

// RemoteDocument is a document fetched by a DocumentLoader.
type RemoteDocument struct {
	DocumentURL string
	Document    interface{}
	ContextURL  string
	Profile     string
}

// JSONLDProcessor exposes the JSON-LD 1.1 algorithms (expansion,
// compaction, flattening, and RDF conversion in both directions) as a
// single interface, so callers can substitute a processor in tests.
type JSONLDProcessor interface {
	Expand(ctx context.Context, input interface{}, opts JSONLDOptions) (interface{}, error)
	Compact(ctx context.Context, input interface{}, context interface{}, opts JSONLDOptions) (interface{}, error)
	Flatten(ctx context.Context, input interface{}, context interface{}, opts JSONLDOptions) (interface{}, error)
	ToRDF(ctx context.Context, input interface{}, opts JSONLDOptions) ([]Quad, error)
	FromRDF(ctx context.Context, quads []Quad, opts JSONLDOptions) (interface{}, error)
}

type goldJSONLDProcessor struct{}

// NewJSONLDProcessor returns the json-gold-backed JSONLDProcessor quadgraph
// uses internally for its JSON-LD codec.
func NewJSONLDProcessor() JSONLDProcessor {
	return &goldJSONLDProcessor{}
}

func (p *goldJSONLDProcessor) Expand(ctx context.Context, input interface{}, opts JSONLDOptions) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ld.NewJsonLdProcessor().Expand(input, goldOptionsFrom(ctx, opts))
}

func (p *goldJSONLDProcessor) Compact(ctx context.Context, input interface{}, context interface{}, opts JSONLDOptions) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ld.NewJsonLdProcessor().Compact(input, context, goldOptionsFrom(ctx, opts))
}

func (p *goldJSONLDProcessor) Flatten(ctx context.Context, input interface{}, context interface{}, opts JSONLDOptions) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ld.NewJsonLdProcessor().Flatten(input, context, goldOptionsFrom(ctx, opts))
}

func (p *goldJSONLDProcessor) ToRDF(ctx context.Context, input interface{}, opts JSONLDOptions) ([]Quad, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dataset, err := expandToGoldDataset(ctx, input, opts)
	if err != nil {
		return nil, err
	}
	serialized, err := (&ld.NQuadRDFSerializer{}).Serialize(dataset)
	if err != nil {
		return nil, err
	}
	nquads, ok := serialized.(string)
	if !ok {
		return nil, fmt.Errorf("jsonld: unexpected N-Quads result %T", serialized)
	}
	return parseNQuadsString(ctx, nquads)
}

func (p *goldJSONLDProcessor) FromRDF(ctx context.Context, quads []Quad, opts JSONLDOptions) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateJSONLiteralQuads(quads); err != nil {
		return nil, err
	}
	nquads, err := quadsToNQuads(quads)
	if err != nil {
		return nil, err
	}
	goldOpts := goldOptionsFrom(ctx, opts)
	goldOpts.Format = "application/n-quads"
	output, err := ld.NewJsonLdProcessor().FromRDF(nquads, goldOpts)
	if err != nil {
		return nil, err
	}
	return restoreJSONLiteralValues(output)
}

// expandToGoldDataset expands input (substituting quadgraph's rdf:JSON
// placeholder for any @json-typed value json-gold doesn't understand
// natively) and runs it through ToRDF, returning the resulting dataset
// with its JSON literals restored.
func expandToGoldDataset(ctx context.Context, input interface{}, opts JSONLDOptions) (*ld.RDFDataset, error) {
	prepared, err := prepareJSONLDForToRDF(ctx, input, opts)
	if err != nil {
		return nil, err
	}
	result, err := ld.NewJsonLdProcessor().ToRDF(prepared, goldOptionsFrom(ctx, opts))
	if err != nil {
		return nil, err
	}
	dataset, ok := result.(*ld.RDFDataset)
	if !ok {
		return nil, fmt.Errorf("jsonld: unexpected ToRDF result %T", result)
	}
	if err := canonicalizeJSONLiteralDataset(dataset); err != nil {
		return nil, err
	}
	return dataset, nil
}

// NewJSONLDTripleDecoder creates a JSON-LD triple decoder with options.
func NewJSONLDTripleDecoder(r io.Reader, opts JSONLDOptions) TripleDecoder {
	return newJSONLDTripleDecoderWithOptions(r, opts)
}

// NewJSONLDQuadDecoder creates a JSON-LD quad decoder with options.
func NewJSONLDQuadDecoder(r io.Reader, opts JSONLDOptions) QuadDecoder {
	return newJSONLDQuadDecoderWithOptions(r, opts)
}

// NewJSONLDTripleEncoder creates a JSON-LD triple encoder with options.
func NewJSONLDTripleEncoder(w io.Writer, opts JSONLDOptions) TripleEncoder {
	return newJSONLDTripleEncoderWithOptions(w, opts)
}

// NewJSONLDQuadEncoder creates a JSON-LD quad encoder with options.
func NewJSONLDQuadEncoder(w io.Writer, opts JSONLDOptions) QuadEncoder {
	return newJSONLDQuadEncoderWithOptions(w, opts)
}

// ParseJSONLDTriples streams JSON-LD triples to a handler.
func ParseJSONLDTriples(ctx context.Context, r io.Reader, opts JSONLDOptions, handler TripleHandler) error {
	decoder := NewJSONLDTripleDecoder(r, opts)
	defer decoder.Close()
	return parseTriplesWithDecoder(ctx, decoder, handler)
}

// ParseJSONLDQuads streams JSON-LD quads to a handler.
func ParseJSONLDQuads(ctx context.Context, r io.Reader, opts JSONLDOptions, handler QuadHandler) error {
	decoder := NewJSONLDQuadDecoder(r, opts)
	defer decoder.Close()
	return parseQuadsWithDecoder(ctx, decoder, handler)
}

// goldDocumentLoaderAdapter lets a quadgraph DocumentLoader stand in for
// json-gold's own loader interface, which has no context parameter.
type goldDocumentLoaderAdapter struct {
	ctx   context.Context
	inner DocumentLoader
}

func (l goldDocumentLoaderAdapter) LoadDocument(iri string) (*ld.RemoteDocument, error) {
	if l.inner == nil {
		return ld.NewDefaultDocumentLoader(nil).LoadDocument(iri)
	}
	remote, err := l.inner.LoadDocument(l.ctx, iri)
	if err != nil {
		return nil, err
	}
	return &ld.RemoteDocument{
		DocumentURL: remote.DocumentURL,
		Document:    remote.Document,
		ContextURL:  remote.ContextURL,
	}, nil
}

func goldOptionsFrom(ctx context.Context, opts JSONLDOptions) *ld.JsonLdOptions {
	goldOpts := ld.NewJsonLdOptions(opts.BaseIRI)
	if base := opts.Base; base != "" {
		goldOpts.Base = base
	} else if opts.BaseIRI != "" {
		goldOpts.Base = opts.BaseIRI
	}
	if opts.ProcessingMode != "" {
		goldOpts.ProcessingMode = opts.ProcessingMode
	}
	if opts.ExpandContext != nil {
		goldOpts.ExpandContext = opts.ExpandContext
	}
	goldOpts.CompactArrays = opts.CompactArrays
	goldOpts.UseNativeTypes = opts.UseNativeTypes
	goldOpts.UseRdfType = opts.UseRdfType
	goldOpts.ProduceGeneralizedRdf = opts.ProduceGeneralizedRdf
	goldOpts.SafeMode = opts.SafeMode
	if opts.DocumentLoader != nil {
		goldOpts.DocumentLoader = goldDocumentLoaderAdapter{ctx: ctx, inner: opts.DocumentLoader}
	}
	return goldOpts
}

func parseNQuadsString(ctx context.Context, nquads string) ([]Quad, error) {
	var quads []Quad
	err := ParseQuads(ctx, strings.NewReader(nquads), QuadFormatNQuads, QuadHandlerFunc(func(q Quad) error {
		quads = append(quads, q)
		return nil
	}))
	return quads, err
}

func quadsToNQuads(quads []Quad) (string, error) {
	var buf strings.Builder
	enc, err := NewQuadEncoder(&buf, QuadFormatNQuads)
	if err != nil {
		return "", err
	}
	for _, q := range quads {
		if err := enc.Write(q); err != nil {
			_ = enc.Close()
			return "", err
		}
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// canonicalizeJSONLiteralDataset rewrites every rdf:JSON-typed literal in
// dataset to its RFC 8785 canonical form, and restores the placeholder
// datatype json-gold's ToRDF assigned back to rdf:JSON.
func canonicalizeJSONLiteralDataset(dataset *ld.RDFDataset) error {
	if dataset == nil {
		return nil
	}
	for _, quads := range dataset.Graphs {
		for _, quad := range quads {
			if quad == nil || quad.Object == nil {
				return fmt.Errorf("jsonld: invalid quad in dataset")
			}
			literal, ok := quad.Object.(ld.Literal)
			if !ok {
				continue
			}
			if literal.Datatype == jsonLiteralPlaceholderIRI {
				literal.Datatype = ld.RDFJSONLiteral
			}
			if literal.Datatype == ld.RDFJSONLiteral {
				canonical, err := canonicalizeJSONLiteralString(literal.Value)
				if err != nil {
					return err
				}
				literal.Value = canonical
				quad.Object = literal
			}
		}
	}
	return nil
}

func canonicalizeJSONLiteralString(raw string) (string, error) {
	normalized, err := canonicalizeJSONText([]byte(raw))
	if err != nil {
		return "", fmt.Errorf("jsonld: invalid JSON literal: %w", err)
	}
	return string(normalized), nil
}

func canonicalizeJSONLiteralValue(value interface{}) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	canonical, err := canonicalizeJSONText(data)
	if err != nil {
		return "", err
	}
	return string(canonical), nil
}

func validateJSONLiteralQuads(quads []Quad) error {
	for _, q := range quads {
		literal, ok := q.O.(Literal)
		if !ok || literal.Datatype.Value != ld.RDFJSONLiteral {
			continue
		}
		if _, err := canonicalizeJSONLiteralString(literal.Lexical); err != nil {
			return err
		}
	}
	return nil
}

// restoreJSONLiteralValues walks a json-gold FromRDF result and replaces
// every rdf:JSON literal's string payload with its parsed JSON value,
// matching the JSON-LD 1.1 "@json" value-object shape.
func restoreJSONLiteralValues(input interface{}) (interface{}, error) {
	switch value := input.(type) {
	case map[string]interface{}:
		if jsonValue, ok := value["@value"]; ok {
			if jsonType, ok := value["@type"]; ok && jsonTypeIncludes(jsonType, ld.RDFJSONLiteral, "@json") {
				parsed, err := parseJSONLiteralValue(jsonValue)
				if err != nil {
					return nil, err
				}
				value["@type"] = "@json"
				value["@value"] = parsed
			}
		}
		for key, item := range value {
			restored, err := restoreJSONLiteralValues(item)
			if err != nil {
				return nil, err
			}
			value[key] = restored
		}
		return value, nil
	case []interface{}:
		for i, item := range value {
			restored, err := restoreJSONLiteralValues(item)
			if err != nil {
				return nil, err
			}
			value[i] = restored
		}
		return value, nil
	default:
		return input, nil
	}
}

func parseJSONLiteralValue(value interface{}) (interface{}, error) {
	s, ok := value.(string)
	if !ok {
		return value, nil
	}
	if _, err := canonicalizeJSONText([]byte(s)); err != nil {
		return nil, fmt.Errorf("jsonld: invalid JSON literal: %w", err)
	}
	var parsed interface{}
	if err := json.Unmarshal([]byte(s), &parsed); err != nil {
		return nil, fmt.Errorf("jsonld: invalid JSON literal: %w", err)
	}
	return parsed, nil
}

// prepareJSONLDForToRDF expands input and swaps any @json value object for
// quadgraph's placeholder IRI, since json-gold's ToRDF has no native
// notion of the rdf:JSON datatype.
func prepareJSONLDForToRDF(ctx context.Context, input interface{}, opts JSONLDOptions) (interface{}, error) {
	expanded, err := ld.NewJsonLdProcessor().Expand(input, goldOptionsFrom(ctx, opts))
	if err != nil {
		return nil, err
	}
	return replaceJSONLiteralValues(expanded)
}

func replaceJSONLiteralValues(input interface{}) (interface{}, error) {
	switch value := input.(type) {
	case map[string]interface{}:
		if jsonType, ok := value["@type"]; ok && jsonTypeIncludes(jsonType, "@json", ld.RDFJSONLiteral) {
			if jsonValue, ok := value["@value"]; ok {
				canonical, err := canonicalizeJSONLiteralValue(jsonValue)
				if err != nil {
					return nil, err
				}
				value["@value"] = canonical
				value["@type"] = jsonLiteralPlaceholderIRI
			}
		}
		for key, item := range value {
			prepared, err := replaceJSONLiteralValues(item)
			if err != nil {
				return nil, err
			}
			value[key] = prepared
		}
		return value, nil
	case []interface{}:
		for i, item := range value {
			prepared, err := replaceJSONLiteralValues(item)
			if err != nil {
				return nil, err
			}
			value[i] = prepared
		}
		return value, nil
	default:
		return input, nil
	}
}

func jsonTypeIncludes(raw interface{}, values ...string) bool {
	switch v := raw.(type) {
	case string:
		for _, value := range values {
			if v == value {
				return true
			}
		}
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				for _, value := range values {
					if s == value {
						return true
					}
				}
			}
		}
	}
	return false
}
