package sparql

import (
	"strings"

	"github.com/geoknoesis/quadgraph/rdf"
	"github.com/geoknoesis/quadgraph/xsd"
)

// Expression parsing: the standard SPARQL 1.1 precedence ladder
// (|| over && over relational over additive over multiplicative over
// unary), mirrored by exprtext.go's serializer in the other direction.

// builtinOps is funcNames inverted: uppercased SPARQL builtin name to
// OpKind, for dispatching a keyword-shaped call in a primary expression.
var builtinOps = func() map[string]OpKind {
	out := make(map[string]OpKind, len(funcNames))
	for op, name := range funcNames {
		out[strings.ToUpper(name)] = op
	}
	return out
}()

var aggregateKinds = func() map[string]AggregateKind {
	out := make(map[string]AggregateKind, len(aggregateNames))
	for kind, name := range aggregateNames {
		out[name] = kind
	}
	return out
}()

func (p *parser) parseBrackettedExpression() (Expr, error) {
	if err := p.s.expectByte('('); err != nil {
		return nil, err
	}
	e, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.s.expectByte(')'); err != nil {
		return nil, err
	}
	return e, nil
}

// parseConstraint is FILTER's operand: a bracketted expression, a builtin
// call, or an IRI-named function call.
func (p *parser) parseConstraint() (Expr, error) {
	p.s.skipWS()
	if p.s.peekByte() == '(' {
		return p.parseBrackettedExpression()
	}
	return p.parseUnaryExpression()
}

func (p *parser) parseExpression() (Expr, error) {
	return p.parseOrExpression()
}

func (p *parser) parseOrExpression() (Expr, error) {
	left, err := p.parseAndExpression()
	if err != nil {
		return nil, err
	}
	for p.s.matchString("||") {
		right, err := p.parseAndExpression()
		if err != nil {
			return nil, err
		}
		left = CallExpr{Op: OpOr, Args: []Expr{left, right}}
	}
	return left, nil
}

func (p *parser) parseAndExpression() (Expr, error) {
	left, err := p.parseRelationalExpression()
	if err != nil {
		return nil, err
	}
	for p.s.matchString("&&") {
		right, err := p.parseRelationalExpression()
		if err != nil {
			return nil, err
		}
		left = CallExpr{Op: OpAnd, Args: []Expr{left, right}}
	}
	return left, nil
}

func (p *parser) parseRelationalExpression() (Expr, error) {
	left, err := p.parseAdditiveExpression()
	if err != nil {
		return nil, err
	}

	var op OpKind
	switch {
	case p.s.matchString("<="):
		op = OpLessEqual
	case p.s.matchString(">="):
		op = OpGreaterEqual
	case p.s.matchString("!="):
		op = OpNotEqual
	case p.s.matchString("="):
		op = OpEqual
	case p.s.matchString("<"):
		op = OpLess
	case p.s.matchString(">"):
		op = OpGreater
	case p.s.matchKeyword("IN"):
		return p.parseInList(left, OpIn)
	case p.s.matchKeyword("NOT"):
		if !p.s.matchKeyword("IN") {
			return nil, p.s.errorf("expected IN after NOT")
		}
		return p.parseInList(left, OpNotIn)
	default:
		return left, nil
	}

	right, err := p.parseAdditiveExpression()
	if err != nil {
		return nil, err
	}
	return CallExpr{Op: op, Args: []Expr{left, right}}, nil
}

// parseInList finishes "expr [NOT] IN ( e1, e2, ... )" with the operand
// already parsed; the list goes into Args after the probe expression.
func (p *parser) parseInList(probe Expr, op OpKind) (Expr, error) {
	if err := p.s.expectByte('('); err != nil {
		return nil, err
	}
	args := []Expr{probe}
	if !p.s.matchByte(')') {
		for {
			e, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			args = append(args, e)
			if p.s.matchByte(',') {
				continue
			}
			if err := p.s.expectByte(')'); err != nil {
				return nil, err
			}
			break
		}
	}
	return CallExpr{Op: op, Args: args}, nil
}

func (p *parser) parseAdditiveExpression() (Expr, error) {
	left, err := p.parseMultiplicativeExpression()
	if err != nil {
		return nil, err
	}
	for {
		p.s.skipWS()
		// "?a -1" must parse as subtraction, so +/- here is always the
		// binary operator; a signed numeric literal only appears where a
		// primary expression is expected.
		switch {
		case p.s.matchByte('+'):
			right, err := p.parseMultiplicativeExpression()
			if err != nil {
				return nil, err
			}
			left = CallExpr{Op: OpAdd, Args: []Expr{left, right}}
		case p.s.matchByte('-'):
			right, err := p.parseMultiplicativeExpression()
			if err != nil {
				return nil, err
			}
			left = CallExpr{Op: OpSub, Args: []Expr{left, right}}
		default:
			return left, nil
		}
	}
}

func (p *parser) parseMultiplicativeExpression() (Expr, error) {
	left, err := p.parseUnaryExpression()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.s.matchByte('*'):
			right, err := p.parseUnaryExpression()
			if err != nil {
				return nil, err
			}
			left = CallExpr{Op: OpMul, Args: []Expr{left, right}}
		case p.s.matchByte('/'):
			right, err := p.parseUnaryExpression()
			if err != nil {
				return nil, err
			}
			left = CallExpr{Op: OpDiv, Args: []Expr{left, right}}
		default:
			return left, nil
		}
	}
}

func (p *parser) parseUnaryExpression() (Expr, error) {
	p.s.skipWS()
	switch p.s.peekByte() {
	case '!':
		p.s.pos++
		e, err := p.parseUnaryExpression()
		if err != nil {
			return nil, err
		}
		return CallExpr{Op: OpNot, Args: []Expr{e}}, nil
	case '+', '-':
		// A sign directly ahead of a digit is part of the numeric
		// literal; anything else is the unary operator.
		if p.s.pos+1 < p.s.length && (isDigit(p.s.input[p.s.pos+1]) || p.s.input[p.s.pos+1] == '.') {
			return p.parsePrimaryExpression()
		}
		op := OpUnaryPlus
		if p.s.peekByte() == '-' {
			op = OpUnaryMinus
		}
		p.s.pos++
		e, err := p.parseUnaryExpression()
		if err != nil {
			return nil, err
		}
		return CallExpr{Op: op, Args: []Expr{e}}, nil
	}
	return p.parsePrimaryExpression()
}

func (p *parser) parsePrimaryExpression() (Expr, error) {
	p.s.skipWS()
	if p.s.peekByte() == '(' {
		return p.parseBrackettedExpression()
	}

	// Variable.
	if v, ok := p.s.scanVar(); ok {
		return VarExpr{Var: Variable(v)}, nil
	}

	// String literal (with optional @lang or ^^datatype).
	if c := p.s.peekByte(); c == '"' || c == '\'' {
		lit, err := p.parseRDFLiteral()
		if err != nil {
			return nil, err
		}
		return ConstExpr{Term: lit}, nil
	}

	// Numeric literal.
	if lex, kind, ok := p.s.scanNumber(); ok {
		return ConstExpr{Term: numberLiteral(lex, kind)}, nil
	}

	// EXISTS / NOT EXISTS.
	if p.s.matchKeyword("EXISTS") {
		pat, err := p.parseGroupGraphPattern()
		if err != nil {
			return nil, err
		}
		return ExistsExpr{Pattern: pat}, nil
	}
	if p.s.peekKeyword("NOT") {
		save := p.s.pos
		p.s.matchKeyword("NOT")
		if p.s.matchKeyword("EXISTS") {
			pat, err := p.parseGroupGraphPattern()
			if err != nil {
				return nil, err
			}
			return ExistsExpr{Pattern: pat, Negate: true}, nil
		}
		p.s.pos = save
	}

	// Boolean literals.
	if p.s.matchKeyword("true") {
		return ConstExpr{Term: rdf.Literal{Lexical: "true", Datatype: xsd.Boolean}}, nil
	}
	if p.s.matchKeyword("false") {
		return ConstExpr{Term: rdf.Literal{Lexical: "false", Datatype: xsd.Boolean}}, nil
	}

	// Aggregates.
	if agg, ok, err := p.tryParseAggregate(); ok || err != nil {
		if err != nil {
			return nil, err
		}
		return agg, nil
	}

	// Builtin calls by keyword.
	if e, ok, err := p.tryParseBuiltinCall(); ok || err != nil {
		if err != nil {
			return nil, err
		}
		return e, nil
	}

	// IRI: either a custom function call or a plain IRI constant.
	if pt, ok, err := p.tryParseVarOrTerm(); err != nil {
		return nil, err
	} else if ok {
		if iri, isIRI := pt.Term.(rdf.IRI); isIRI {
			p.s.skipWS()
			if p.s.peekByte() == '(' {
				args, err := p.parseArgList()
				if err != nil {
					return nil, err
				}
				return CallExpr{Op: OpCustomCall, Name: iri, Args: args}, nil
			}
			return ConstExpr{Term: iri}, nil
		}
		if pt.Term != nil {
			return ConstExpr{Term: pt.Term}, nil
		}
		return VarExpr{Var: pt.Var}, nil
	}

	return nil, p.s.errorf("expected an expression")
}

// tryParseBuiltinCall matches "NAME(" for every name in builtinOps plus
// the functional forms with bespoke arity handling (IF, COALESCE). BOUND
// requires a variable argument, and the zero-argument builtins (NOW, RAND,
// UUID, STRUUID, BNODE) accept an empty argument list.
func (p *parser) tryParseBuiltinCall() (Expr, bool, error) {
	p.s.skipWS()
	save := p.s.pos
	start := p.s.pos
	for p.s.pos < p.s.length {
		c := p.s.input[p.s.pos]
		if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_' {
			p.s.pos++
			continue
		}
		break
	}
	name := strings.ToUpper(p.s.input[start:p.s.pos])
	if name == "" {
		p.s.pos = save
		return nil, false, nil
	}

	var op OpKind
	switch name {
	case "IF":
		op = OpIf
	case "COALESCE":
		op = OpCoalesce
	default:
		var known bool
		op, known = builtinOps[name]
		if !known {
			p.s.pos = save
			return nil, false, nil
		}
	}
	p.s.skipWS()
	if p.s.peekByte() != '(' {
		p.s.pos = save
		return nil, false, nil
	}
	args, err := p.parseArgList()
	if err != nil {
		return nil, false, err
	}
	return CallExpr{Op: op, Args: args}, true, nil
}

func (p *parser) parseArgList() ([]Expr, error) {
	if err := p.s.expectByte('('); err != nil {
		return nil, err
	}
	if p.s.matchByte(')') {
		return nil, nil
	}
	var args []Expr
	for {
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, e)
		if p.s.matchByte(',') {
			continue
		}
		if err := p.s.expectByte(')'); err != nil {
			return nil, err
		}
		return args, nil
	}
}

// tryParseAggregate matches COUNT/SUM/MIN/MAX/AVG/GROUP_CONCAT/SAMPLE
// calls, producing an AggregateRefExpr that applySolutionModifiers later
// hoists into a Group node.
func (p *parser) tryParseAggregate() (Expr, bool, error) {
	for name, kind := range aggregateKinds {
		if !p.s.peekKeyword(name) {
			continue
		}
		save := p.s.pos
		p.s.matchKeyword(name)
		p.s.skipWS()
		if p.s.peekByte() != '(' {
			p.s.pos = save
			return nil, false, nil
		}
		p.s.matchByte('(')

		fn := AggregateFunc{Kind: kind}
		if p.s.matchKeyword("DISTINCT") {
			fn.Distinct = true
		}
		if kind == AggCount && p.s.matchByte('*') {
			// COUNT(*): Expr stays nil.
		} else {
			e, err := p.parseExpression()
			if err != nil {
				return nil, false, err
			}
			fn.Expr = e
		}
		if kind == AggGroupConcat {
			fn.Separator = " "
			if p.s.matchByte(';') {
				if !p.s.matchKeyword("SEPARATOR") {
					return nil, false, p.s.errorf("expected SEPARATOR in GROUP_CONCAT")
				}
				if err := p.s.expectByte('='); err != nil {
					return nil, false, err
				}
				sep, err := p.s.scanString()
				if err != nil {
					return nil, false, err
				}
				fn.Separator = sep
			}
		}
		if err := p.s.expectByte(')'); err != nil {
			return nil, false, err
		}
		return AggregateRefExpr{Func: fn}, true, nil
	}
	return nil, false, nil
}
