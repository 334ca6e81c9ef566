package sparql

import "github.com/geoknoesis/quadgraph/rdf"

// Update-request parsing: one operation per call, with the prologue and
// ';' separators handled by ParseUpdate's loop.

func (p *parser) parseUpdateOp() (UpdateOp, error) {
	switch {
	case p.s.matchKeyword("INSERT"):
		if p.s.matchKeyword("DATA") {
			quads, err := p.parseQuadData()
			if err != nil {
				return nil, err
			}
			return InsertData{Quads: quads}, nil
		}
		// Bare INSERT { ... } WHERE { ... } (no DELETE template).
		tpl, err := p.parseQuadTemplate()
		if err != nil {
			return nil, err
		}
		return p.parseModifyTail(nil, tpl)

	case p.s.matchKeyword("DELETE"):
		if p.s.matchKeyword("DATA") {
			quads, err := p.parseQuadData()
			if err != nil {
				return nil, err
			}
			return DeleteData{Quads: quads}, nil
		}
		if p.s.matchKeyword("WHERE") {
			// DELETE WHERE { ... }: the pattern doubles as the template.
			tpl, alg, err := p.parseQuadPatternAsTemplate()
			if err != nil {
				return nil, err
			}
			return DeleteInsert{DeleteTemplate: tpl, Where: alg}, nil
		}
		tpl, err := p.parseQuadTemplate()
		if err != nil {
			return nil, err
		}
		return p.parseModify(tpl)

	case p.s.matchKeyword("WITH"):
		// WITH <g> DELETE ... INSERT ... WHERE: the graph becomes the
		// USING dataset for WHERE. Template graph targeting stays the
		// default graph (template GRAPH blocks are not accepted).
		g, err := p.parseIRI()
		if err != nil {
			return nil, err
		}
		op, err := p.parseUpdateOp()
		if err != nil {
			return nil, err
		}
		di, ok := op.(DeleteInsert)
		if !ok {
			return nil, p.s.errorf("WITH must precede a DELETE/INSERT operation")
		}
		di.Using = append([]PatternTerm{Bound(g)}, di.Using...)
		return di, nil

	case p.s.matchKeyword("LOAD"):
		return p.parseLoad()
	case p.s.matchKeyword("CLEAR"):
		silent := p.s.matchKeyword("SILENT")
		ref, name, err := p.parseGraphRef()
		if err != nil {
			return nil, err
		}
		return Clear{Ref: ref, Name: name, Silent: silent}, nil
	case p.s.matchKeyword("CREATE"):
		silent := p.s.matchKeyword("SILENT")
		if !p.s.matchKeyword("GRAPH") {
			return nil, p.s.errorf("expected GRAPH after CREATE")
		}
		g, err := p.parseIRI()
		if err != nil {
			return nil, err
		}
		return Create{Name: g, Silent: silent}, nil
	case p.s.matchKeyword("DROP"):
		silent := p.s.matchKeyword("SILENT")
		ref, name, err := p.parseGraphRef()
		if err != nil {
			return nil, err
		}
		return Drop{Ref: ref, Name: name, Silent: silent}, nil
	case p.s.matchKeyword("COPY"):
		src, dst, silent, err := p.parseGraphPair()
		if err != nil {
			return nil, err
		}
		return Copy{Source: src, Dest: dst, Silent: silent}, nil
	case p.s.matchKeyword("MOVE"):
		src, dst, silent, err := p.parseGraphPair()
		if err != nil {
			return nil, err
		}
		return Move{Source: src, Dest: dst, Silent: silent}, nil
	case p.s.matchKeyword("ADD"):
		src, dst, silent, err := p.parseGraphPair()
		if err != nil {
			return nil, err
		}
		return Add{Source: src, Dest: dst, Silent: silent}, nil
	}
	return nil, p.s.errorf("expected an update operation")
}

// parseModify finishes a DELETE-first modify operation: the DELETE
// template is already parsed, an INSERT template may follow, then the
// shared USING/WHERE tail.
func (p *parser) parseModify(deleteTpl []TriplePattern) (UpdateOp, error) {
	var insertTpl []TriplePattern
	if p.s.matchKeyword("INSERT") {
		tpl, err := p.parseQuadTemplate()
		if err != nil {
			return nil, err
		}
		insertTpl = tpl
	}
	return p.parseModifyTail(deleteTpl, insertTpl)
}

// parseModifyTail parses the USING/USING NAMED clauses and the WHERE
// pattern shared by every modify form.
func (p *parser) parseModifyTail(deleteTpl, insertTpl []TriplePattern) (UpdateOp, error) {
	var using, usingNamed []PatternTerm
	for p.s.matchKeyword("USING") {
		named := p.s.matchKeyword("NAMED")
		g, err := p.parseIRI()
		if err != nil {
			return nil, err
		}
		if named {
			usingNamed = append(usingNamed, Bound(g))
		} else {
			using = append(using, Bound(g))
		}
	}

	if !p.s.matchKeyword("WHERE") {
		return nil, p.s.errorf("expected WHERE in DELETE/INSERT")
	}
	where, err := p.parseGroupGraphPattern()
	if err != nil {
		return nil, err
	}
	return DeleteInsert{
		DeleteTemplate: deleteTpl,
		InsertTemplate: insertTpl,
		Using:          using,
		UsingNamed:     usingNamed,
		Where:          where,
	}, nil
}

func (p *parser) parseLoad() (UpdateOp, error) {
	silent := p.s.matchKeyword("SILENT")
	src, err := p.parseIRI()
	if err != nil {
		return nil, err
	}
	op := Load{Source: Bound(src), Silent: silent}
	if p.s.matchKeyword("INTO") {
		if !p.s.matchKeyword("GRAPH") {
			return nil, p.s.errorf("expected GRAPH after INTO")
		}
		g, err := p.parseIRI()
		if err != nil {
			return nil, err
		}
		op.Into = Bound(g)
	}
	return op, nil
}

// parseGraphRef is CLEAR/DROP's target: GRAPH <iri>, DEFAULT, NAMED, ALL.
func (p *parser) parseGraphRef() (GraphRef, rdf.Term, error) {
	switch {
	case p.s.matchKeyword("GRAPH"):
		g, err := p.parseIRI()
		if err != nil {
			return 0, nil, err
		}
		return GraphRefNamed, g, nil
	case p.s.matchKeyword("DEFAULT"):
		return GraphRefDefault, nil, nil
	case p.s.matchKeyword("NAMED"):
		return GraphRefNamedGraphs, nil, nil
	case p.s.matchKeyword("ALL"):
		return GraphRefAll, nil, nil
	}
	return 0, nil, p.s.errorf("expected GRAPH <iri>, DEFAULT, NAMED, or ALL")
}

// parseGraphOrDefault is one side of COPY/MOVE/ADD: [GRAPH] <iri> or
// DEFAULT.
func (p *parser) parseGraphOrDefault() (GraphOp, error) {
	if p.s.matchKeyword("DEFAULT") {
		return GraphOp{Ref: GraphRefDefault}, nil
	}
	p.s.matchKeyword("GRAPH")
	g, err := p.parseIRI()
	if err != nil {
		return GraphOp{}, err
	}
	return GraphOp{Ref: GraphRefNamed, Name: g}, nil
}

func (p *parser) parseGraphPair() (src, dst GraphOp, silent bool, err error) {
	silent = p.s.matchKeyword("SILENT")
	src, err = p.parseGraphOrDefault()
	if err != nil {
		return
	}
	if !p.s.matchKeyword("TO") {
		err = p.s.errorf("expected TO")
		return
	}
	dst, err = p.parseGraphOrDefault()
	return
}

// parseQuadData parses INSERT DATA/DELETE DATA's ground quads: a '{'
// block of triples, optionally interleaved with GRAPH <g> { ... } blocks,
// with every slot required to be a constant.
func (p *parser) parseQuadData() ([]rdf.Quad, error) {
	if err := p.s.expectByte('{'); err != nil {
		return nil, err
	}
	var quads []rdf.Quad
	for {
		if p.s.matchByte('}') {
			return quads, nil
		}
		if p.s.matchKeyword("GRAPH") {
			g, err := p.parseIRI()
			if err != nil {
				return nil, err
			}
			if err := p.s.expectByte('{'); err != nil {
				return nil, err
			}
			tps, err := p.parseTriplesTemplate()
			if err != nil {
				return nil, err
			}
			if err := p.s.expectByte('}'); err != nil {
				return nil, err
			}
			gq, err := groundQuads(tps, g)
			if err != nil {
				return nil, p.s.errorf("%v", err)
			}
			quads = append(quads, gq...)
			p.s.matchByte('.')
			continue
		}
		// One same-subject statement at a time, so default-graph triples
		// and GRAPH blocks can interleave freely inside the same braces.
		tps, err := p.parseTriplesSameSubjectPath()
		if err != nil {
			return nil, err
		}
		if len(tps) == 0 {
			return nil, p.s.errorf("expected triples or '}' in quad data")
		}
		gq, err := groundQuads(tps, nil)
		if err != nil {
			return nil, p.s.errorf("%v", err)
		}
		quads = append(quads, gq...)
		p.s.matchByte('.')
	}
}

// groundQuads rejects variables: INSERT DATA/DELETE DATA are ground by
// definition.
func groundQuads(tps []TriplePattern, graph rdf.Term) ([]rdf.Quad, error) {
	out := make([]rdf.Quad, 0, len(tps))
	for _, tp := range tps {
		if tp.S.IsVariable() || tp.P.IsVariable() || tp.O.IsVariable() {
			return nil, errVariableInData
		}
		pIRI, ok := tp.P.Term.(rdf.IRI)
		if !ok {
			return nil, errVariableInData
		}
		out = append(out, rdf.Quad{S: tp.S.Term, P: pIRI, O: tp.O.Term, G: graph})
	}
	return out, nil
}

var errVariableInData = &evalError{"sparql: INSERT DATA/DELETE DATA must be ground (no variables)"}

// parseQuadTemplate parses a '{ triples }' DELETE/INSERT template.
func (p *parser) parseQuadTemplate() ([]TriplePattern, error) {
	if err := p.s.expectByte('{'); err != nil {
		return nil, err
	}
	tps, err := p.parseTriplesTemplate()
	if err != nil {
		return nil, err
	}
	if err := p.s.expectByte('}'); err != nil {
		return nil, err
	}
	return tps, nil
}

// parseQuadPatternAsTemplate handles DELETE WHERE { ... }: the one pattern
// serves as both the WHERE clause and the delete template.
func (p *parser) parseQuadPatternAsTemplate() ([]TriplePattern, Algebra, error) {
	if err := p.s.expectByte('{'); err != nil {
		return nil, nil, err
	}
	tps, err := p.parseTriplesTemplate()
	if err != nil {
		return nil, nil, err
	}
	if err := p.s.expectByte('}'); err != nil {
		return nil, nil, err
	}
	return tps, BGP{Patterns: tps}, nil
}
