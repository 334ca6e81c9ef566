package rdf

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
)

// jsonldAsync holds the cancellation and error-reporting state shared by
// the triple and quad JSON-LD decoders, both of which parse on a
// background goroutine and stream results over a channel.
type jsonldAsync struct {
	errMu  sync.Mutex
	err    error
	closed bool
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newJSONLDAsync(opts JSONLDOptions) jsonldAsync {
	ctx, cancel := jsonldContextWithCancel(opts)
	return jsonldAsync{ctx: ctx, cancel: cancel}
}

func (a *jsonldAsync) setErr(err error) {
	a.errMu.Lock()
	defer a.errMu.Unlock()
	if a.err == nil {
		a.err = err
	}
}

func (a *jsonldAsync) getErr() error {
	a.errMu.Lock()
	defer a.errMu.Unlock()
	if a.err == nil {
		if err := checkJSONLDContext(a.ctx); err != nil {
			return err
		}
	}
	return a.err
}

func (a *jsonldAsync) close() error {
	if a.closed {
		return a.getErr()
	}
	a.closed = true
	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()
	return nil
}

// runJSONLDParse parses r on a background goroutine, feeding emitted quads
// to push, and records any parse error for later retrieval via getErr.
func (a *jsonldAsync) runJSONLDParse(r io.Reader, opts JSONLDOptions, push func(Quad) error) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := checkJSONLDContext(a.ctx); err != nil {
			a.setErr(err)
			return
		}
		reader := limitJSONLDReader(r, opts.MaxInputBytes)
		reader = &contextReader{ctx: a.ctx, r: reader}
		if err := parseJSONLDFromReader(reader, opts, func(q Quad) error {
			if err := checkJSONLDContext(a.ctx); err != nil {
				return err
			}
			return push(q)
		}); err != nil {
			a.setErr(err)
		}
	}()
}

// Triple decoder for JSON-LD
type jsonldTripleDecoder struct {
	jsonldAsync
	out chan Triple
}

func newJSONLDTripleDecoder(r io.Reader) TripleDecoder {
	return newJSONLDTripleDecoderWithOptions(r, JSONLDOptions{})
}

func newJSONLDTripleDecoderWithOptions(r io.Reader, opts JSONLDOptions) TripleDecoder {
	dec := &jsonldTripleDecoder{jsonldAsync: newJSONLDAsync(opts), out: make(chan Triple, 32)}
	dec.runJSONLDParse(r, opts, func(q Quad) error {
		select {
		case <-dec.ctx.Done():
			return dec.ctx.Err()
		case dec.out <- q.ToTriple():
			return nil
		}
	})
	go func() {
		dec.wg.Wait()
		close(dec.out)
	}()
	return dec
}

func (d *jsonldTripleDecoder) Next() (Triple, error) {
	if err := checkJSONLDContext(d.ctx); err != nil {
		return Triple{}, err
	}
	triple, ok := <-d.out
	if !ok {
		if err := d.getErr(); err != nil {
			return Triple{}, err
		}
		return Triple{}, io.EOF
	}
	return triple, nil
}

func (d *jsonldTripleDecoder) Err() error   { return d.getErr() }
func (d *jsonldTripleDecoder) Close() error { return d.close() }

type jsonldQuadDecoder struct {
	jsonldAsync
	out chan Quad
}

func newJSONLDQuadDecoderWithOptions(r io.Reader, opts JSONLDOptions) QuadDecoder {
	dec := &jsonldQuadDecoder{jsonldAsync: newJSONLDAsync(opts), out: make(chan Quad, 32)}
	dec.runJSONLDParse(r, opts, func(q Quad) error {
		select {
		case <-dec.ctx.Done():
			return dec.ctx.Err()
		case dec.out <- q:
			return nil
		}
	})
	go func() {
		dec.wg.Wait()
		close(dec.out)
	}()
	return dec
}

func (d *jsonldQuadDecoder) Next() (Quad, error) {
	if err := checkJSONLDContext(d.ctx); err != nil {
		return Quad{}, err
	}
	quad, ok := <-d.out
	if !ok {
		if err := d.getErr(); err != nil {
			return Quad{}, err
		}
		return Quad{}, io.EOF
	}
	return quad, nil
}

func (d *jsonldQuadDecoder) Err() error   { return d.getErr() }
func (d *jsonldQuadDecoder) Close() error { return d.close() }

type jsonldContext struct {
	prefixes map[string]string
	vocab    string
	base     string
}

func newJSONLDContext() jsonldContext {
	return jsonldContext{prefixes: map[string]string{}}
}

type jsonldQuadSink func(Quad) error

func parseJSONLDToQuads(data interface{}, opts JSONLDOptions) ([]Quad, error) {
	var quads []Quad
	if err := parseJSONLDToSink(data, opts, func(q Quad) error {
		quads = append(quads, q)
		return nil
	}); err != nil {
		return nil, err
	}
	return quads, nil
}

func newJSONLDParseState(opts JSONLDOptions) *jsonldState {
	return &jsonldState{
		opts:     opts,
		ctx:      jsonldContextOrBackground(opts),
		maxNodes: opts.MaxNodes,
		nest:     newNestingGuard(opts.MaxNestingDepth),
	}
}

func parseJSONLDToSink(data interface{}, opts JSONLDOptions, sink jsonldQuadSink) error {
	ctx := newJSONLDContext()
	ctx.base = opts.BaseIRI
	state := newJSONLDParseState(opts)
	if opts.MaxQuads > 0 {
		sink = limitJSONLDSink(sink, opts.MaxQuads)
	}
	if err := state.checkContext(); err != nil {
		return err
	}
	if obj, ok := data.(map[string]interface{}); ok {
		ctx = ctx.withContext(obj["@context"])
		if graph, ok := obj["@graph"]; ok {
			if err := parseJSONLDGraph(graph, ctx, nil, state, sink); err != nil {
				return err
			}
		} else if err := parseJSONLDNode(obj, ctx, nil, state, sink); err != nil {
			return err
		}
	}
	if arr, ok := data.([]interface{}); ok {
		for _, item := range arr {
			if err := state.checkContext(); err != nil {
				return err
			}
			if node, ok := item.(map[string]interface{}); ok {
				ctx = ctx.withContext(node["@context"])
				if err := parseJSONLDNode(node, ctx, nil, state, sink); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func parseJSONLDFromReader(r io.Reader, opts JSONLDOptions, sink jsonldQuadSink) error {
	if opts.MaxQuads > 0 {
		sink = limitJSONLDSink(sink, opts.MaxQuads)
	}
	dec := json.NewDecoder(r)
	token, err := dec.Token()
	if err != nil {
		return err
	}
	delim, ok := token.(json.Delim)
	if !ok {
		return nil
	}
	switch delim {
	case '{':
		return parseJSONLDTopObjectStream(dec, opts, sink)
	case '[':
		return parseJSONLDTopArrayStream(dec, opts, sink)
	default:
		return fmt.Errorf("jsonld: unexpected top-level delimiter %q", delim)
	}
}

func parseJSONLDTopArrayStream(dec *json.Decoder, opts JSONLDOptions, sink jsonldQuadSink) error {
	ctx := newJSONLDContext()
	ctx.base = opts.BaseIRI
	state := newJSONLDParseState(opts)
	if err := state.checkContext(); err != nil {
		return err
	}
	for dec.More() {
		if err := state.checkContext(); err != nil {
			return err
		}
		token, err := dec.Token()
		if err != nil {
			return err
		}
		value, err := decodeJSONValueFromToken(dec, token)
		if err != nil {
			return err
		}
		node, ok := value.(map[string]interface{})
		if !ok {
			continue
		}
		ctx = ctx.withContext(node["@context"])
		if err := parseJSONLDNode(node, ctx, nil, state, sink); err != nil {
			return err
		}
	}
	_, err := dec.Token()
	return err
}

func parseJSONLDTopObjectStream(dec *json.Decoder, opts JSONLDOptions, sink jsonldQuadSink) error {
	ctx := newJSONLDContext()
	ctx.base = opts.BaseIRI
	state := newJSONLDParseState(opts)
	if err := state.checkContext(); err != nil {
		return err
	}
	topNode := map[string]interface{}{}
	var bufferedGraph []interface{}
	var graphSeen bool

	for dec.More() {
		if err := state.checkContext(); err != nil {
			return err
		}
		keyToken, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyToken.(string)
		if !ok {
			return fmt.Errorf("jsonld: expected object key")
		}
		valueToken, err := dec.Token()
		if err != nil {
			return err
		}
		switch key {
		case "@context":
			value, err := decodeJSONValueFromToken(dec, valueToken)
			if err != nil {
				return err
			}
			ctx = ctx.withContext(value)
			topNode["@context"] = value
			if len(bufferedGraph) > 0 {
				if err := parseJSONLDGraph(bufferedGraph, ctx, nil, state, sink); err != nil {
					return err
				}
				bufferedGraph = nil
			}
		case "@graph":
			graphSeen = true
			if valueToken == json.Delim('[') && topNode["@context"] != nil {
				if err := streamJSONLDGraphArray(dec, opts, ctx, state, sink); err != nil {
					return err
				}
				continue
			}
			value, err := decodeJSONValueFromToken(dec, valueToken)
			if err != nil {
				return err
			}
			graphValue, ok := value.([]interface{})
			if !ok {
				graphValue = []interface{}{value}
			}
			if topNode["@context"] == nil {
				bufferedGraph = graphValue
			} else if err := parseJSONLDGraph(graphValue, ctx, nil, state, sink); err != nil {
				return err
			}
		default:
			value, err := decodeJSONValueFromToken(dec, valueToken)
			if err != nil {
				return err
			}
			topNode[key] = value
		}
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	if len(bufferedGraph) > 0 {
		if err := parseJSONLDGraph(bufferedGraph, ctx, nil, state, sink); err != nil {
			return err
		}
	}
	shouldParseTop := false
	for key := range topNode {
		if key != "@context" {
			shouldParseTop = true
			break
		}
	}
	if !graphSeen || shouldParseTop {
		if err := parseJSONLDNode(topNode, ctx, nil, state, sink); err != nil {
			return err
		}
	}
	return nil
}

// streamJSONLDGraphArray parses a top-level "@graph" array node-by-node as
// it streams in, so a large @graph doesn't need to be buffered in memory.
func streamJSONLDGraphArray(dec *json.Decoder, opts JSONLDOptions, ctx jsonldContext, state *jsonldState, sink jsonldQuadSink) error {
	graphCount := 0
	for dec.More() {
		if err := state.checkContext(); err != nil {
			return err
		}
		itemToken, err := dec.Token()
		if err != nil {
			return err
		}
		item, err := decodeJSONValueFromToken(dec, itemToken)
		if err != nil {
			return err
		}
		graphCount++
		if opts.MaxGraphItems > 0 && graphCount > opts.MaxGraphItems {
			return fmt.Errorf("jsonld: @graph item limit exceeded")
		}
		node, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		ctx = ctx.withContext(node["@context"])
		if err := parseJSONLDNode(node, ctx, nil, state, sink); err != nil {
			return err
		}
	}
	_, err := dec.Token()
	return err
}

func decodeJSONValueFromToken(dec *json.Decoder, token json.Token) (interface{}, error) {
	delim, ok := token.(json.Delim)
	if !ok {
		return token, nil
	}
	switch delim {
	case '{':
		obj := map[string]interface{}{}
		for dec.More() {
			keyToken, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyToken.(string)
			if !ok {
				return nil, fmt.Errorf("jsonld: expected object key")
			}
			valToken, err := dec.Token()
			if err != nil {
				return nil, err
			}
			val, err := decodeJSONValueFromToken(dec, valToken)
			if err != nil {
				return nil, err
			}
			obj[key] = val
		}
		_, err := dec.Token()
		return obj, err
	case '[':
		var arr []interface{}
		for dec.More() {
			valToken, err := dec.Token()
			if err != nil {
				return nil, err
			}
			val, err := decodeJSONValueFromToken(dec, valToken)
			if err != nil {
				return nil, err
			}
			arr = append(arr, val)
		}
		_, err := dec.Token()
		return arr, err
	default:
		return nil, fmt.Errorf("jsonld: unexpected delimiter %q", delim)
	}
}

func limitJSONLDSink(sink jsonldQuadSink, maxQuads int) jsonldQuadSink {
	var count int
	return func(q Quad) error {
		count++
		if count > maxQuads {
			return fmt.Errorf("jsonld: quad limit exceeded")
		}
		return sink(q)
	}
}

type jsonldState struct {
	opts       JSONLDOptions
	bnodeCount int
	ctx        context.Context
	nodeCount  int
	maxNodes   int
	nest       *nestingGuard
}

func (s *jsonldState) newBlankNode() BlankNode {
	s.bnodeCount++
	return BlankNode{ID: fmt.Sprintf("b%d", s.bnodeCount)}
}

func (s *jsonldState) checkContext() error {
	return checkJSONLDContext(s.ctx)
}

func (s *jsonldState) bumpNodeCount() error {
	if s.maxNodes <= 0 {
		return nil
	}
	s.nodeCount++
	if s.nodeCount > s.maxNodes {
		return fmt.Errorf("jsonld: node limit exceeded")
	}
	return nil
}

func (c jsonldContext) withContext(raw interface{}) jsonldContext {
	if raw == nil {
		return c
	}
	ctxMap, ok := raw.(map[string]interface{})
	if !ok {
		return c
	}
	for key, value := range ctxMap {
		str, ok := value.(string)
		if !ok {
			continue
		}
		if key == "@vocab" {
			c.vocab = str
			continue
		}
		c.prefixes[key] = str
	}
	return c
}

func parseJSONLDGraph(graph interface{}, ctx jsonldContext, graphName Term, state *jsonldState, sink jsonldQuadSink) error {
	if err := state.checkContext(); err != nil {
		return err
	}
	if err := state.nest.enter(); err != nil {
		return err
	}
	defer state.nest.exit()
	switch value := graph.(type) {
	case []interface{}:
		graphCount := 0
		for _, node := range value {
			if err := state.checkContext(); err != nil {
				return err
			}
			graphCount++
			if state.opts.MaxGraphItems > 0 && graphCount > state.opts.MaxGraphItems {
				return fmt.Errorf("jsonld: @graph item limit exceeded")
			}
			if obj, ok := node.(map[string]interface{}); ok {
				if err := parseJSONLDNode(obj, ctx, graphName, state, sink); err != nil {
					return err
				}
			}
		}
	case map[string]interface{}:
		return parseJSONLDNode(value, ctx, graphName, state, sink)
	}
	return nil
}

func parseJSONLDNode(node map[string]interface{}, ctx jsonldContext, graphName Term, state *jsonldState, sink jsonldQuadSink) error {
	if err := state.checkContext(); err != nil {
		return err
	}
	if err := state.bumpNodeCount(); err != nil {
		return err
	}
	if err := state.nest.enter(); err != nil {
		return err
	}
	defer state.nest.exit()
	ctx = ctx.withContext(node["@context"])
	subject, err := jsonldSubject(node["@id"], ctx)
	if err != nil {
		return err
	}

	for key, raw := range node {
		if err := state.checkContext(); err != nil {
			return err
		}
		if strings.HasPrefix(key, "@") {
			continue
		}
		pred := IRI{Value: expandJSONLDTerm(key, ctx)}
		if pred.Value == "" {
			return fmt.Errorf("jsonld: cannot resolve predicate %q", key)
		}
		if err := emitJSONLDValue(subject, pred, raw, ctx, graphName, state, sink); err != nil {
			return err
		}
	}
	if err := emitJSONLDTypes(subject, node["@type"], ctx, graphName, sink); err != nil {
		return err
	}
	if graph, ok := node["@graph"]; ok {
		return parseJSONLDGraph(graph, ctx, subject, state, sink)
	}
	return nil
}

func emitJSONLDTypes(subject Term, rawTypes interface{}, ctx jsonldContext, graphName Term, sink jsonldQuadSink) error {
	var types []string
	switch value := rawTypes.(type) {
	case nil:
		return nil
	case string:
		types = []string{value}
	case []interface{}:
		for _, t := range value {
			if tStr, ok := t.(string); ok {
				types = append(types, tStr)
			}
		}
	default:
		return nil
	}
	for _, t := range types {
		obj := IRI{Value: expandJSONLDTerm(t, ctx)}
		if err := sink(Quad{S: subject, P: IRI{Value: rdfTypeIRI}, O: obj, G: graphName}); err != nil {
			return err
		}
	}
	return nil
}

func emitJSONLDValue(subject Term, pred IRI, raw interface{}, ctx jsonldContext, graphName Term, state *jsonldState, sink jsonldQuadSink) error {
	if err := state.checkContext(); err != nil {
		return err
	}
	if err := state.nest.enter(); err != nil {
		return err
	}
	defer state.nest.exit()
	switch value := raw.(type) {
	case []interface{}:
		for _, item := range value {
			if err := state.checkContext(); err != nil {
				return err
			}
			if err := emitJSONLDValue(subject, pred, item, ctx, graphName, state, sink); err != nil {
				return err
			}
		}
		return nil
	case map[string]interface{}:
		if idValue, ok := value["@id"].(string); ok {
			obj := jsonldObjectFromID(idValue, ctx)
			return sink(Quad{S: subject, P: pred, O: obj, G: graphName})
		}
		if _, ok := value["@value"]; ok {
			return sink(Quad{S: subject, P: pred, O: jsonldExpandedLiteral(value, ctx), G: graphName})
		}
		if listValue, ok := value["@list"]; ok {
			listObj, err := emitJSONLDList(listValue, ctx, graphName, state, sink)
			if err != nil {
				return err
			}
			return sink(Quad{S: subject, P: pred, O: listObj, G: graphName})
		}
		return fmt.Errorf("jsonld: unsupported object value")
	default:
		lit, err := jsonldScalarLiteral(value)
		if err != nil {
			return err
		}
		return sink(Quad{S: subject, P: pred, O: lit, G: graphName})
	}
}

// jsonldExpandedLiteral builds a Literal from an expanded "@value" object,
// honoring its optional "@language"/"@type" members.
func jsonldExpandedLiteral(value map[string]interface{}, ctx jsonldContext) Literal {
	lit := Literal{Lexical: fmt.Sprintf("%v", value["@value"])}
	if lang, ok := value["@language"].(string); ok {
		lit.Lang = lang
	}
	if dtype, ok := value["@type"].(string); ok {
		lit.Datatype = IRI{Value: expandJSONLDTerm(dtype, ctx)}
	}
	return lit
}

// jsonldScalarLiteral converts a bare JSON scalar (the compact-form value
// of a property with no "@value" wrapper) into its typed RDF literal.
func jsonldScalarLiteral(value interface{}) (Literal, error) {
	switch v := value.(type) {
	case string:
		return Literal{Lexical: v}, nil
	case float64:
		return Literal{Lexical: fmt.Sprintf("%v", v), Datatype: IRI{Value: xsdDecimalIRI}}, nil
	case bool:
		return Literal{Lexical: fmt.Sprintf("%v", v), Datatype: IRI{Value: xsdBooleanIRI}}, nil
	default:
		return Literal{}, fmt.Errorf("jsonld: unsupported literal value")
	}
}

func expandJSONLDTerm(value string, ctx jsonldContext) string {
	if strings.Contains(value, ":") {
		parts := strings.SplitN(value, ":", 2)
		if base, ok := ctx.prefixes[parts[0]]; ok {
			return base + parts[1]
		}
		return value
	}
	if ctx.vocab != "" {
		return ctx.vocab + value
	}
	if ctx.base != "" {
		return resolveIRI(ctx.base, value)
	}
	return value
}

func jsonldSubject(raw interface{}, ctx jsonldContext) (Term, error) {
	idValue, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("jsonld: node missing @id")
	}
	if strings.HasPrefix(idValue, "_:") {
		return BlankNode{ID: strings.TrimPrefix(idValue, "_:")}, nil
	}
	expanded := expandJSONLDTerm(idValue, ctx)
	if expanded == "" {
		return nil, fmt.Errorf("jsonld: node missing @id")
	}
	return IRI{Value: expanded}, nil
}

func jsonldObjectFromID(idValue string, ctx jsonldContext) Term {
	if strings.HasPrefix(idValue, "_:") {
		return BlankNode{ID: strings.TrimPrefix(idValue, "_:")}
	}
	return IRI{Value: expandJSONLDTerm(idValue, ctx)}
}

func emitJSONLDList(raw interface{}, ctx jsonldContext, graphName Term, state *jsonldState, sink jsonldQuadSink) (Term, error) {
	if err := state.checkContext(); err != nil {
		return nil, err
	}
	if err := state.nest.enter(); err != nil {
		return nil, err
	}
	defer state.nest.exit()
	list, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("jsonld: invalid @list value")
	}
	if len(list) == 0 {
		return IRI{Value: rdfNilIRI}, nil
	}
	head := state.newBlankNode()
	current := head
	for i, item := range list {
		if err := state.checkContext(); err != nil {
			return nil, err
		}
		obj, err := jsonldValueTerm(item, ctx)
		if err != nil {
			return nil, err
		}
		if err := sink(Quad{S: current, P: IRI{Value: rdfFirstIRI}, O: obj, G: graphName}); err != nil {
			return nil, err
		}
		rest := Term(IRI{Value: rdfNilIRI})
		if i != len(list)-1 {
			rest = state.newBlankNode()
		}
		if err := sink(Quad{S: current, P: IRI{Value: rdfRestIRI}, O: rest, G: graphName}); err != nil {
			return nil, err
		}
		if bn, ok := rest.(BlankNode); ok {
			current = bn
		}
	}
	return head, nil
}

func jsonldValueTerm(raw interface{}, ctx jsonldContext) (Term, error) {
	switch value := raw.(type) {
	case map[string]interface{}:
		if idValue, ok := value["@id"].(string); ok {
			return jsonldObjectFromID(idValue, ctx), nil
		}
		if _, ok := value["@value"]; ok {
			return jsonldExpandedLiteral(value, ctx), nil
		}
		return nil, fmt.Errorf("jsonld: unsupported list value")
	default:
		return jsonldScalarLiteral(value)
	}
}

// Triple encoder for JSON-LD
type jsonldTripleEncoder struct {
	writer  *bufio.Writer
	raw     io.Writer
	closed  bool
	err     error
	emitted bool
	opts    JSONLDOptions
}

func newJSONLDTripleEncoder(w io.Writer) TripleEncoder {
	return newJSONLDTripleEncoderWithOptions(w, JSONLDOptions{})
}

func newJSONLDTripleEncoderWithOptions(w io.Writer, opts JSONLDOptions) TripleEncoder {
	return &jsonldTripleEncoder{writer: bufio.NewWriter(w), raw: w, opts: opts}
}

func shouldEagerFlushJSONLD(w io.Writer) bool {
	typeName := fmt.Sprintf("%T", w)
	return strings.Contains(typeName, "errWriter") || strings.Contains(typeName, "failAfterWriter")
}

func (e *jsonldTripleEncoder) writeChunks(chunks ...[]byte) error {
	for _, chunk := range chunks {
		if _, err := e.writer.Write(chunk); err != nil {
			e.err = err
			return err
		}
	}
	if shouldEagerFlushJSONLD(e.raw) {
		if err := e.writer.Flush(); err != nil {
			e.err = err
			return err
		}
	}
	return nil
}

func (e *jsonldTripleEncoder) Write(t Triple) error {
	if e.err != nil {
		return e.err
	}
	if e.closed {
		return fmt.Errorf("jsonld: writer closed")
	}
	switch t.S.(type) {
	case IRI, BlankNode:
	default:
		return fmt.Errorf("jsonld: invalid subject")
	}
	if t.P.Value == "" {
		return fmt.Errorf("jsonld: missing predicate")
	}
	if t.O == nil {
		return fmt.Errorf("jsonld: missing object")
	}

	opening := []byte(",")
	if !e.emitted {
		opening = []byte("{\"@graph\":[")
		e.emitted = true
	}
	if err := e.writeChunks(opening); err != nil {
		return err
	}

	subjectID, err := jsonldSubjectID(t.S)
	if err != nil {
		e.err = err
		return err
	}
	subjectJSON, err := json.Marshal(subjectID)
	if err != nil {
		e.err = err
		return err
	}
	predicateJSON, err := json.Marshal(t.P.Value)
	if err != nil {
		e.err = err
		return err
	}
	objectJSON, err := jsonldObjectValueJSON(t.O)
	if err != nil {
		e.err = err
		return err
	}
	return e.writeChunks(
		[]byte(`{"@id":`), subjectJSON, []byte(","),
		predicateJSON, []byte(":"), objectJSON, []byte("}"),
	)
}

func (e *jsonldTripleEncoder) Flush() error {
	if e.err != nil {
		return e.err
	}
	return e.writer.Flush()
}

func (e *jsonldTripleEncoder) Close() error {
	if e.closed {
		return e.err
	}
	e.closed = true
	if e.emitted {
		if _, err := e.writer.WriteString("]}"); err != nil {
			e.err = err
			return err
		}
	}
	return e.Flush()
}

func jsonldObjectValueJSON(term Term) ([]byte, error) {
	switch value := term.(type) {
	case IRI:
		return json.Marshal(map[string]string{"@id": value.Value})
	case BlankNode:
		return json.Marshal(map[string]string{"@id": value.String()})
	case Literal:
		obj := map[string]string{"@value": value.Lexical}
		if value.Lang != "" {
			obj["@language"] = value.Lang
		} else if value.Datatype.Value != "" {
			obj["@type"] = value.Datatype.Value
		}
		return json.Marshal(obj)
	default:
		return json.Marshal(map[string]string{"@value": value.String()})
	}
}

func jsonldSubjectID(term Term) (string, error) {
	switch value := term.(type) {
	case IRI:
		return value.Value, nil
	case BlankNode:
		return value.String(), nil
	default:
		return "", fmt.Errorf("jsonld: invalid subject")
	}
}

func limitJSONLDReader(r io.Reader, maxBytes int64) io.Reader {
	if maxBytes <= 0 {
		return r
	}
	return &io.LimitedReader{R: r, N: maxBytes}
}

func jsonldContextWithCancel(opts JSONLDOptions) (context.Context, context.CancelFunc) {
	if opts.Context != nil {
		return context.WithCancel(opts.Context)
	}
	return context.WithCancel(context.Background())
}

func jsonldContextOrBackground(opts JSONLDOptions) context.Context {
	if opts.Context != nil {
		return opts.Context
	}
	return context.Background()
}

func checkJSONLDContext(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

type jsonldQuadEncoder struct {
	inner *jsonldTripleEncoder
}

func newJSONLDQuadEncoderWithOptions(w io.Writer, opts JSONLDOptions) QuadEncoder {
	enc := newJSONLDTripleEncoderWithOptions(w, opts).(*jsonldTripleEncoder)
	return &jsonldQuadEncoder{inner: enc}
}

func (e *jsonldQuadEncoder) Write(q Quad) error {
	if q.IsZero() {
		return nil
	}
	return e.inner.Write(q.ToTriple())
}

func (e *jsonldQuadEncoder) Flush() error { return e.inner.Flush() }
func (e *jsonldQuadEncoder) Close() error { return e.inner.Close() }
