package rdf

import (
	"fmt"
	"io"
	"os"
	"strings"
)

const rdfNilIRI = "http://www.w3.org/1999/02/22-rdf-syntax-ns#nil"
const rdfFirstIRI = "http://www.w3.org/1999/02/22-rdf-syntax-ns#first"
const rdfRestIRI = "http://www.w3.org/1999/02/22-rdf-syntax-ns#rest"

// turtleParser is a token-driven recursive-descent parser for Turtle's
// grammar (also reused, line by line, by the TriG decoder). It buffers
// one statement at a time from the lexer, then re-tokenizes and parses
// that statement in full, which keeps the grammar's lookahead bounded to
// a single triple-producing statement rather than the whole document.
type turtleParser struct {
	lexer                      *turtleLexer
	opts                       DecodeOptions
	prefixes                   map[string]string
	baseIRI                    string
	allowQuotedTripleStatement bool
	pending                    []Triple
	expansionTriples           []Triple // triples generated by collections and blank-node property lists
	blankNodeCounter           int
	depth                      int
	err                        error
}

func newTurtleParser(r io.Reader, opts DecodeOptions) *turtleParser {
	if opts.AllowEnvOverrides && os.Getenv("TURTLE_ALLOW_QT_STMT") != "" {
		opts.AllowQuotedTripleStatement = true
	}
	return &turtleParser{
		lexer:                      newTurtleLexer(r, opts),
		opts:                       normalizeDecodeOptions(opts),
		prefixes:                   map[string]string{},
		allowQuotedTripleStatement: opts.AllowQuotedTripleStatement,
	}
}

// enterNesting tracks recursion through collections, blank-node property
// lists, and quoted triples, guarding against pathologically deep input.
func (p *turtleParser) enterNesting() error {
	p.depth++
	max := p.opts.MaxDepth
	if max < 0 {
		return nil
	}
	if max == 0 {
		max = DefaultMaxDepth
	}
	if p.depth > max {
		return WrapParseError("turtle", "", -1, ErrDepthExceeded)
	}
	return nil
}

func (p *turtleParser) exitNesting() {
	p.depth--
}

func (p *turtleParser) newBlankNode() BlankNode {
	p.blankNodeCounter++
	return BlankNode{ID: fmt.Sprintf("b%d", p.blankNodeCounter)}
}

func (p *turtleParser) Err() error { return p.err }

func (p *turtleParser) NextTriple() (Triple, error) {
	if len(p.pending) > 0 {
		next := p.pending[0]
		p.pending = p.pending[1:]
		return next, nil
	}
	if err := checkDecodeContext(p.opts.Context); err != nil {
		p.err = err
		return Triple{}, err
	}
	triple, _, err := p.readNextStatement()
	if err != nil {
		p.err = err
		return Triple{}, err
	}
	return triple, nil
}

// readNextStatement accumulates lexer lines into one statement, parses it
// once it is syntactically complete, and returns its first triple. Any
// additional triples it produced are queued onto p.pending. It always
// returns either (triple, true, nil) or (_, false, err) — a statement
// that parses to zero triples (e.g. a directive) just keeps scanning
// internally rather than being reported to the caller.
func (p *turtleParser) readNextStatement() (Triple, bool, error) {
	var statement strings.Builder
	for {
		if err := checkDecodeContext(p.opts.Context); err != nil {
			return Triple{}, false, err
		}
		token := p.lexer.Next()
		switch token.Kind {
		case TokEOF:
			line := strings.TrimSpace(statement.String())
			if line == "" {
				return Triple{}, false, io.EOF
			}
			return p.finishStatement(line)
		case TokError:
			return Triple{}, false, token.Err
		case TokLine:
			if statement.Len() == 0 && p.handleDirective(token.Lexeme) {
				continue
			}
			if err := p.appendStatementPart(&statement, token.Lexeme); err != nil {
				return Triple{}, false, err
			}
			stmt := strings.TrimSpace(statement.String())
			if stmt == "" || !isStatementComplete(stmt) {
				continue
			}
			triple, ok, err := p.finishStatement(stmt)
			if err != nil {
				return Triple{}, false, err
			}
			if !ok {
				statement.Reset()
				continue
			}
			return triple, true, nil
		}
	}
}

func (p *turtleParser) finishStatement(stmt string) (Triple, bool, error) {
	triples, err := p.parseStatement(stmt)
	if err != nil {
		return Triple{}, false, err
	}
	if len(triples) == 0 {
		return Triple{}, false, nil
	}
	if len(triples) > 1 {
		p.pending = triples[1:]
	}
	return triples[0], true, nil
}

func (p *turtleParser) parseStatement(line string) ([]Triple, error) {
	tokens, err := tokenizeTurtleLine(line)
	if err != nil {
		return nil, err
	}
	handled, err := p.parseDirectiveTokens(tokens)
	if err != nil {
		return nil, err
	}
	if handled {
		return nil, nil
	}
	return p.parseTriplesTokens(tokens, line)
}

func (p *turtleParser) appendStatementPart(builder *strings.Builder, part string) error {
	if builder.Len() > 0 {
		builder.WriteString(" ")
	}
	builder.WriteString(part)
	if p.opts.MaxStatementBytes > 0 && builder.Len() > p.opts.MaxStatementBytes {
		return ErrStatementTooLong
	}
	return nil
}

func (p *turtleParser) wrapParseError(statement string, err error) error {
	if p.opts.DebugStatements || (p.opts.AllowEnvOverrides && os.Getenv("TURTLE_DEBUG_STATEMENT") != "") {
		return WrapParseError("turtle", statement, -1, err)
	}
	return WrapParseError("turtle", "", -1, err)
}

// handleDirective recognizes a whole-line Turtle directive (@prefix,
// @base, @version and their SPARQL-style bare-keyword forms) without
// tokenizing it, which lets directives span the "fast path" before the
// parser falls back to full tokenization for ordinary triple statements.
func (p *turtleParser) handleDirective(line string) bool {
	if prefix, iri, ok := parseAtPrefixDirective(line, true); ok {
		p.prefixes[prefix] = iri
		return true
	}
	if prefix, iri, ok := parseBarePrefixDirective(line); ok {
		p.prefixes[prefix] = iri
		return true
	}
	if parseVersionDirective(line) {
		p.allowQuotedTripleStatement = true
		return true
	}
	if iri, ok := parseAtBaseDirective(line); ok {
		p.baseIRI = iri
		return true
	}
	if iri, ok := parseBaseDirective(line); ok {
		p.baseIRI = iri
		return true
	}
	return false
}

func (p *turtleParser) parseDirectiveTokens(tokens []turtleToken) (bool, error) {
	if len(tokens) == 0 {
		return false, nil
	}
	switch tokens[0].Kind {
	case TokPrefix:
		if tokens[0].Lexeme != lexPrefix && !strings.EqualFold(tokens[0].Lexeme, lexPrefixBare) {
			return false, nil
		}
		if len(tokens) < 3 || tokens[1].Kind != TokPNAMENS || tokens[2].Kind != TokIRIRef {
			return false, nil
		}
		p.prefixes[strings.TrimSuffix(tokens[1].Lexeme, ":")] = strings.Trim(tokens[2].Lexeme, "<>")
		return true, nil
	case TokBase:
		if tokens[0].Lexeme != lexBase && !strings.EqualFold(tokens[0].Lexeme, lexBaseBare) {
			return false, nil
		}
		if len(tokens) < 2 || tokens[1].Kind != TokIRIRef {
			return false, nil
		}
		p.baseIRI = strings.Trim(tokens[1].Lexeme, "<>")
		return true, nil
	case TokVersion:
		if tokens[0].Lexeme != lexVersion && !strings.EqualFold(tokens[0].Lexeme, lexVersionBare) {
			return false, nil
		}
		p.allowQuotedTripleStatement = true
		return true, nil
	default:
		return false, nil
	}
}

func (p *turtleParser) parseTriplesTokens(tokens []turtleToken, line string) ([]Triple, error) {
	stream := &turtleTokenStream{tokens: tokens}
	subject, err := p.parseTermTokens(stream, false)
	if err != nil {
		return nil, p.wrapParseError(line, err)
	}
	triples, err := p.parsePredicateObjectListTokens(stream, subject)
	if err != nil {
		return nil, p.wrapParseError(line, err)
	}
	triples = append(triples, p.expansionTriples...)
	p.expansionTriples = p.expansionTriples[:0]

	if stream.peek().Kind == TokDot {
		stream.next()
	}
	if stream.peek().Kind != TokEOF {
		return nil, p.wrapParseError(line, fmt.Errorf("unexpected token after statement: %v", stream.peek().Kind))
	}
	return triples, nil
}

func (p *turtleParser) parsePredicateObjectListTokens(stream *turtleTokenStream, subject Term) ([]Triple, error) {
	var triples []Triple
	for {
		predicate, err := p.parseVerbTokens(stream)
		if err != nil {
			return nil, err
		}
		objectTriples, err := p.parseObjectListTokens(stream, subject, predicate)
		if err != nil {
			return nil, err
		}
		triples = append(triples, objectTriples...)

		if stream.peek().Kind != TokSemicolon {
			return triples, nil
		}
		for stream.peek().Kind == TokSemicolon {
			stream.next()
		}
		if stream.peek().Kind == TokDot || stream.peek().Kind == TokEOF {
			return triples, nil
		}
	}
}

func (p *turtleParser) parseVerbTokens(stream *turtleTokenStream) (IRI, error) {
	if stream.peek().Kind == TokA {
		stream.next()
		return IRI{Value: rdfTypeIRI}, nil
	}
	term, err := p.parseTermTokens(stream, false)
	if err != nil {
		return IRI{}, err
	}
	iri, ok := term.(IRI)
	if !ok {
		return IRI{}, WrapParseError("turtle", "", -1, fmt.Errorf("predicate must be IRI, got %T", term))
	}
	return iri, nil
}

func (p *turtleParser) parseObjectListTokens(stream *turtleTokenStream, subject Term, predicate IRI) ([]Triple, error) {
	var triples []Triple
	for {
		obj, err := p.parseTermTokens(stream, true)
		if err != nil {
			return nil, err
		}
		triples = append(triples, Triple{S: subject, P: predicate, O: obj})

		if stream.peek().Kind == TokAnnotationL {
			annotationTriples, err := p.parseAnnotationTokens(stream, obj)
			if err != nil {
				return nil, err
			}
			triples = append(triples, annotationTriples...)
		}

		if stream.peek().Kind != TokComma {
			return triples, nil
		}
		stream.next()
	}
}

func (p *turtleParser) parseTermTokens(stream *turtleTokenStream, allowLiteral bool) (Term, error) {
	tok := stream.peek()
	switch tok.Kind {
	case TokIRIRef:
		stream.next()
		iri := strings.Trim(tok.Lexeme, "<>")
		if p.baseIRI != "" {
			iri = resolveIRI(p.baseIRI, iri)
		}
		return IRI{Value: iri}, nil
	case TokPNAMENS:
		stream.next()
		prefix := strings.TrimSuffix(tok.Lexeme, ":")
		base, ok := p.prefixes[prefix]
		if !ok {
			return nil, WrapParseError("turtle", "", -1, fmt.Errorf("undefined prefix: %s", prefix))
		}
		return IRI{Value: base}, nil
	case TokPNAMELN:
		stream.next()
		parts := strings.SplitN(tok.Lexeme, ":", 2)
		if len(parts) != 2 {
			return nil, WrapParseError("turtle", "", -1, fmt.Errorf("invalid prefixed name: %s", tok.Lexeme))
		}
		base, ok := p.prefixes[parts[0]]
		if !ok {
			return nil, WrapParseError("turtle", "", -1, fmt.Errorf("undefined prefix: %s", parts[0]))
		}
		return IRI{Value: base + parts[1]}, nil
	case TokBlankNode:
		stream.next()
		return BlankNode{ID: tok.Lexeme[2:]}, nil // skip "_:"
	case TokString, TokStringLong:
		return p.parseLiteralTokens(stream, allowLiteral)
	case TokInteger, TokDecimal, TokDouble, TokBoolean:
		stream.next()
		return p.parseTermFromLexeme(tok.Lexeme, allowLiteral)
	case TokLBracket:
		return p.parseBlankNodePropertyListTokens(stream)
	case TokLParen:
		return p.parseCollectionTokens(stream)
	case TokLDoubleAngle:
		return p.parseTripleTermTokens(stream)
	default:
		return nil, WrapParseError("turtle", "", -1, fmt.Errorf("unexpected token: %v", tok.Kind))
	}
}

// quotedLexeme strips the surrounding quote delimiters from a TokString
// or TokStringLong lexeme and returns the unescaped lexical value.
func (p *turtleParser) quotedLexeme(tok turtleToken) (string, error) {
	delimLen := 1
	if tok.Kind == TokStringLong {
		delimLen = 3
	}
	if len(tok.Lexeme) < 2*delimLen {
		return "", WrapParseError("turtle", "", -1, fmt.Errorf("invalid string literal"))
	}
	raw := tok.Lexeme[delimLen : len(tok.Lexeme)-delimLen]
	lexical, err := UnescapeString(raw)
	if err != nil {
		return "", WrapParseError("turtle", "", -1, err)
	}
	return lexical, nil
}

func (p *turtleParser) parseLiteralTokens(stream *turtleTokenStream, allowLiteral bool) (Term, error) {
	if !allowLiteral {
		return nil, WrapParseError("turtle", "", -1, fmt.Errorf("literal not allowed here"))
	}
	tok := stream.next()
	lexical, err := p.quotedLexeme(tok)
	if err != nil {
		return nil, err
	}

	next := stream.peek()
	switch next.Kind {
	case TokLangTag:
		stream.next()
		if !isValidLangTag(next.Lexeme) {
			return nil, WrapParseError("turtle", "", -1, fmt.Errorf("invalid language tag: %s", next.Lexeme))
		}
		if stream.peek().Kind == TokDatatypePrefix {
			return nil, WrapParseError("turtle", "", -1, fmt.Errorf("literal cannot have both language tag and datatype"))
		}
		return Literal{Lexical: lexical, Lang: next.Lexeme}, nil
	case TokDatatypePrefix:
		stream.next()
		dtTerm, err := p.parseTermTokens(stream, false)
		if err != nil {
			return nil, err
		}
		iri, ok := dtTerm.(IRI)
		if !ok {
			return nil, WrapParseError("turtle", "", -1, fmt.Errorf("datatype must be IRI"))
		}
		return Literal{Lexical: lexical, Datatype: iri}, nil
	default:
		return Literal{Lexical: lexical}, nil
	}
}

func (p *turtleParser) parseCollectionTokens(stream *turtleTokenStream) (Term, error) {
	if err := p.enterNesting(); err != nil {
		return nil, err
	}
	defer p.exitNesting()

	if stream.next().Kind != TokLParen {
		return nil, WrapParseError("turtle", "", -1, fmt.Errorf("expected '('"))
	}

	var objects []Term
	for stream.peek().Kind != TokRParen {
		obj, err := p.parseTermTokens(stream, true)
		if err != nil {
			return nil, err
		}
		objects = append(objects, obj)
	}
	stream.next() // consume ')'

	if len(objects) == 0 {
		return IRI{Value: rdfNilIRI}, nil
	}

	head := p.newBlankNode()
	rdfFirst := IRI{Value: rdfFirstIRI}
	rdfRest := IRI{Value: rdfRestIRI}
	rdfNil := IRI{Value: rdfNilIRI}

	current := head
	for i, obj := range objects {
		p.expansionTriples = append(p.expansionTriples, Triple{S: current, P: rdfFirst, O: obj})

		var rest Term = rdfNil
		if i < len(objects)-1 {
			rest = p.newBlankNode()
		}
		p.expansionTriples = append(p.expansionTriples, Triple{S: current, P: rdfRest, O: rest})

		if bn, ok := rest.(BlankNode); ok {
			current = bn
		}
	}
	return head, nil
}

func (p *turtleParser) parseBlankNodePropertyListTokens(stream *turtleTokenStream) (Term, error) {
	if err := p.enterNesting(); err != nil {
		return nil, err
	}
	defer p.exitNesting()

	if stream.next().Kind != TokLBracket {
		return nil, WrapParseError("turtle", "", -1, fmt.Errorf("expected '['"))
	}
	if stream.peek().Kind == TokRBracket {
		stream.next()
		return p.newBlankNode(), nil
	}

	bn := p.newBlankNode()
	for {
		predicate, err := p.parseVerbTokens(stream)
		if err != nil {
			return nil, err
		}

		for {
			object, err := p.parseTermTokens(stream, true)
			if err != nil {
				return nil, err
			}
			p.expansionTriples = append(p.expansionTriples, Triple{S: bn, P: predicate, O: object})

			if stream.peek().Kind == TokComma {
				stream.next()
				continue
			}
			if stream.peek().Kind == TokRBracket {
				stream.next()
				return bn, nil
			}
			break
		}

		if stream.peek().Kind == TokRBracket {
			stream.next()
			return bn, nil
		}
		if stream.peek().Kind != TokSemicolon {
			return nil, WrapParseError("turtle", "", -1, fmt.Errorf("expected ',' or ';' or ']'"))
		}
		for stream.peek().Kind == TokSemicolon {
			stream.next()
		}
		if stream.peek().Kind == TokRBracket {
			stream.next()
			return bn, nil
		}
	}
}

func (p *turtleParser) parseTripleTermTokens(stream *turtleTokenStream) (Term, error) {
	if err := p.enterNesting(); err != nil {
		return nil, err
	}
	defer p.exitNesting()

	if stream.next().Kind != TokLDoubleAngle {
		return nil, WrapParseError("turtle", "", -1, fmt.Errorf("expected '<<'"))
	}

	hasParens := stream.peek().Kind == TokLParen
	if hasParens {
		stream.next()
	}

	subject, err := p.parseTermTokens(stream, false)
	if err != nil {
		return nil, err
	}
	predicate, err := p.parseVerbTokens(stream)
	if err != nil {
		return nil, err
	}
	object, err := p.parseTermTokens(stream, true)
	if err != nil {
		return nil, err
	}

	if hasParens {
		if stream.peek().Kind != TokRParen {
			return nil, WrapParseError("turtle", "", -1, fmt.Errorf("expected ')'"))
		}
		stream.next()
	}

	// RDF-star's optional "~ reifier" suffix isn't tokenized by the lexer;
	// token-based parsing doesn't support it and falls back to the cursor
	// parser (turtle_cursor.go) for statements that need it.
	if stream.peek().Kind != TokRDoubleAngle {
		return nil, WrapParseError("turtle", "", -1, fmt.Errorf("expected '>>'"))
	}
	stream.next()
	return TripleTerm{S: subject, P: predicate, O: object}, nil
}

func (p *turtleParser) parseTermFromLexeme(lexeme string, allowLiteral bool) (Term, error) {
	cursor := &turtleCursor{
		input:                      lexeme,
		prefixes:                   p.prefixes,
		base:                       p.baseIRI,
		allowQuotedTripleStatement: p.allowQuotedTripleStatement,
	}
	term, err := cursor.parseTerm(allowLiteral)
	if err != nil {
		return nil, err
	}
	cursor.skipWS()
	if cursor.pos != len(cursor.input) {
		return nil, cursor.errorf("unexpected trailing input")
	}
	return term, nil
}

// parseAnnotationTokens parses an RDF-star inline annotation "{| ... |}"
// attached to the statement just produced for annotationSubject, folding
// its predicate-object pairs (and any further nested annotations) into
// ordinary triples about that subject.
func (p *turtleParser) parseAnnotationTokens(stream *turtleTokenStream, annotationSubject Term) ([]Triple, error) {
	if stream.next().Kind != TokAnnotationL {
		return nil, WrapParseError("turtle", "", -1, fmt.Errorf("expected '{|'"))
	}

	var triples []Triple
	for {
		pred, err := p.parseVerbTokens(stream)
		if err != nil {
			return nil, err
		}

		for {
			obj, err := p.parseTermTokens(stream, true)
			if err != nil {
				return nil, err
			}
			triples = append(triples, Triple{S: annotationSubject, P: pred, O: obj})

			if stream.peek().Kind == TokAnnotationL {
				nested, err := p.parseAnnotationTokens(stream, obj)
				if err != nil {
					return nil, err
				}
				triples = append(triples, nested...)
			}

			if stream.peek().Kind != TokComma {
				break
			}
			stream.next()
		}

		if stream.peek().Kind == TokAnnotationR {
			stream.next()
			return triples, nil
		}
		if stream.peek().Kind != TokSemicolon {
			return nil, WrapParseError("turtle", "", -1, fmt.Errorf("expected ',' or ';' or '|}'"))
		}
		for stream.peek().Kind == TokSemicolon {
			stream.next()
		}
		if stream.peek().Kind == TokAnnotationR {
			stream.next()
			return triples, nil
		}
	}
}

type turtleTokenStream struct {
	tokens []turtleToken
	pos    int
}

func (s *turtleTokenStream) peek() turtleToken {
	if s.pos >= len(s.tokens) {
		return turtleToken{Kind: TokEOF}
	}
	return s.tokens[s.pos]
}

func (s *turtleTokenStream) next() turtleToken {
	tok := s.peek()
	if s.pos < len(s.tokens) {
		s.pos++
	}
	return tok
}
