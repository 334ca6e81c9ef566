package rdf

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	xmlNS            = "http://www.w3.org/XML/1998/namespace"
	rdfXMLLiteralIRI = rdfXMLNS + "XMLLiteral"
	rdfSubjectIRI    = rdfXMLNS + "subject"
	rdfPredicateIRI  = rdfXMLNS + "predicate"
	rdfObjectIRI     = rdfXMLNS + "object"
)

// rdfxmltripleDecoder is the full striped-syntax RDF/XML decoder: it
// understands rdf:parseType (Resource/Literal/Collection/Triple), rdf:li
// container expansion, rdf:ID/rdf:about/rdf:nodeID subjects and the
// non-standard rdf:annotation/rdf:annotationNodeID extension used to
// attach an RDF-star annotation to a parsed statement.
type rdfxmltripleDecoder struct {
	dec              *xml.Decoder
	namespaces       map[string]string
	baseURI          string
	queue            []Triple
	err              error
	expandContainers bool
	containerIndex   map[string]int
	blankNodeCounter int
}

func newRDFXMLtripleDecoder(r io.Reader) TripleDecoder {
	return &rdfxmltripleDecoder{
		dec:              xml.NewDecoder(r),
		namespaces:       map[string]string{},
		containerIndex:   map[string]int{},
		expandContainers: true,
	}
}

func (d *rdfxmltripleDecoder) Next() (Triple, error) {
	for {
		if len(d.queue) > 0 {
			next := d.queue[0]
			d.queue = d.queue[1:]
			return next, nil
		}
		tok, err := d.nextToken()
		if err != nil {
			if err == io.EOF {
				return Triple{}, io.EOF
			}
			d.err = err
			return Triple{}, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		d.handleNamespaceDeclarations(start.Attr)
		if start.Name.Space == rdfXMLNS && start.Name.Local == "RDF" {
			continue
		}
		if !d.isNodeElement(start) {
			if err := d.consumeElement(); err != nil {
				d.err = err
				return Triple{}, err
			}
			continue
		}
		if _, err := d.readNode(start); err != nil {
			d.err = err
			return Triple{}, err
		}
	}
}

func (d *rdfxmltripleDecoder) Err() error   { return d.err }
func (d *rdfxmltripleDecoder) Close() error { return nil }

func (d *rdfxmltripleDecoder) nextToken() (xml.Token, error) {
	return d.dec.Token()
}

func (d *rdfxmltripleDecoder) wrapRDFXMLError(err error) error {
	return WrapParseError("rdfxml", "", -1, err)
}

// readNode processes a node element already consumed as a StartElement,
// emitting its rdf:type triple (if typed) and its property elements, and
// returns the subject term it assigned to the node.
func (d *rdfxmltripleDecoder) readNode(el xml.StartElement) (Term, error) {
	subject := d.subjectFromNode(el)
	if el.Name.Space != rdfXMLNS || el.Name.Local != "Description" {
		d.queue = append(d.queue, Triple{
			S: subject,
			P: IRI{Value: rdfXMLNS + "type"},
			O: IRI{Value: d.resolveQName(el.Name.Space, el.Name.Local)},
		})
	}
	return subject, d.readProperties(subject)
}

// readProperties consumes property elements up to the enclosing node
// element's EndElement, queueing a triple per property against subject.
func (d *rdfxmltripleDecoder) readProperties(subject Term) error {
	containerKey := d.containerKey(subject)
	for {
		tok, err := d.nextToken()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			d.handleNamespaceDeclarations(t.Attr)
			if err := d.validatePropertyElement(t); err != nil {
				return err
			}
			if err := d.processPropertyElement(t, subject, containerKey); err != nil {
				return err
			}
		case xml.EndElement:
			return nil
		}
	}
}

func (d *rdfxmltripleDecoder) validatePropertyIDs(attrs []xml.Attr) error {
	id := d.rdfAttrValue(attrs, "ID")
	if id != "" && !isValidXMLName(id) {
		return d.wrapRDFXMLError(fmt.Errorf("invalid rdf:ID %q", id))
	}
	return nil
}

func (d *rdfxmltripleDecoder) validateLiteralPropertyAttributes(attrs []xml.Attr) error {
	for _, attr := range attrs {
		if attr.Name.Space == rdfXMLNS && attr.Name.Local == "parseType" {
			continue
		}
		if attr.Name.Space == xmlNS {
			continue
		}
		if attr.Name.Space == "xmlns" || attr.Name.Local == "xmlns" || strings.HasPrefix(attr.Name.Local, "xmlns:") {
			continue
		}
		return d.wrapRDFXMLError(fmt.Errorf("rdf:parseType=\"Literal\" property elements cannot carry additional attributes"))
	}
	return nil
}

// objectFromPredicate determines the object of a property element, the
// expanded predicate having already been resolved by the caller. It also
// returns the non-standard rdf:annotation / rdf:annotationNodeID values
// attached to the element, if any.
func (d *rdfxmltripleDecoder) objectFromPredicate(el xml.StartElement) (Term, string, string, error) {
	annotation := d.rdfAttrValue(el.Attr, "annotation")
	annotationNodeID := d.rdfAttrValue(el.Attr, "annotationNodeID")

	if err := d.validateParseTypeAttributes(el.Attr, d.rdfAttrValue(el.Attr, "parseType")); err != nil {
		return nil, "", "", err
	}

	if resource := d.rdfAttrValue(el.Attr, "resource"); resource != "" {
		obj := IRI{Value: resolveIRI(d.baseURI, resource)}
		return obj, annotation, annotationNodeID, d.consumeElement()
	}
	if nodeID := d.rdfAttrValue(el.Attr, "nodeID"); nodeID != "" {
		if !isValidXMLName(nodeID) {
			return nil, "", "", d.wrapRDFXMLError(fmt.Errorf("invalid rdf:nodeID %q", nodeID))
		}
		obj := BlankNode{ID: nodeID}
		return obj, annotation, annotationNodeID, d.consumeElement()
	}

	parseType := d.rdfAttrValue(el.Attr, "parseType")
	switch parseType {
	case "Resource":
		obj, err := d.readNestedResource(el)
		return obj, annotation, annotationNodeID, err
	case "Literal":
		obj, err := d.readXMLLiteral(el)
		return obj, annotation, annotationNodeID, err
	case "Collection":
		obj, err := d.readCollection(el)
		return obj, annotation, annotationNodeID, err
	case "Triple":
		obj, err := d.readTripleTerm(el)
		return obj, annotation, annotationNodeID, err
	}

	tok, err := d.nextToken()
	if err != nil {
		return nil, "", "", err
	}
	if _, ok := tok.(xml.EndElement); ok {
		return Literal{Lexical: ""}, annotation, annotationNodeID, nil
	}
	if nested, ok := tok.(xml.StartElement); ok {
		d.handleNamespaceDeclarations(nested.Attr)
		subject, err := d.readNode(nested)
		if err != nil {
			return nil, "", "", err
		}
		return subject, annotation, annotationNodeID, nil
	}
	obj, annotation2, annotationNodeID2, err := d.readLiteralContent(el, tok)
	if annotation2 != "" {
		annotation = annotation2
	}
	if annotationNodeID2 != "" {
		annotationNodeID = annotationNodeID2
	}
	return obj, annotation, annotationNodeID, err
}

// readLiteralContent reads a plain-literal property element's text
// content (with optional xml:lang / rdf:datatype), given the first
// content token already read by the caller.
func (d *rdfxmltripleDecoder) readLiteralContent(start xml.StartElement, first xml.Token) (Term, string, string, error) {
	var content strings.Builder
	tok := first
	for {
		switch t := tok.(type) {
		case xml.CharData:
			content.Write(t)
		case xml.EndElement:
			lit := Literal{Lexical: content.String()}
			if lang := d.attrValue(start.Attr, xmlNS, "lang"); lang != "" {
				lit.Lang = lang
			}
			if dt := d.rdfAttrValue(start.Attr, "datatype"); dt != "" {
				lit.Datatype = IRI{Value: resolveIRI(d.baseURI, dt)}
			}
			return lit, "", "", nil
		case xml.StartElement:
			return nil, "", "", d.wrapRDFXMLError(fmt.Errorf("unexpected nested element in literal property content"))
		}
		next, err := d.nextToken()
		if err != nil {
			return nil, "", "", err
		}
		tok = next
	}
}

// readNestedResource handles rdf:parseType="Resource": the element's
// content is the property list of an implicit blank node.
func (d *rdfxmltripleDecoder) readNestedResource(start xml.StartElement) (Term, error) {
	bn := d.newBlankNode()
	if err := d.readProperties(bn); err != nil {
		return nil, err
	}
	return bn, nil
}

// readXMLLiteral handles rdf:parseType="Literal": the element's inner
// XML (exclusive of the wrapping element itself) becomes the lexical
// form of an rdf:XMLLiteral-typed literal.
func (d *rdfxmltripleDecoder) readXMLLiteral(start xml.StartElement) (Term, error) {
	if err := d.validateLiteralPropertyAttributes(start.Attr); err != nil {
		return nil, err
	}
	var buf strings.Builder
	depth := 0
	for {
		tok, err := d.nextToken()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			buf.WriteString(renderXMLStart(t))
		case xml.EndElement:
			if depth == 0 {
				return Literal{Lexical: buf.String(), Datatype: IRI{Value: rdfXMLLiteralIRI}}, nil
			}
			depth--
			buf.WriteString("</" + qnameLocal(t.Name) + ">")
		case xml.CharData:
			buf.WriteString(escapeXML(string(t)))
		}
	}
}

func renderXMLStart(t xml.StartElement) string {
	var b strings.Builder
	b.WriteString("<" + qnameLocal(t.Name))
	for _, attr := range t.Attr {
		b.WriteString(fmt.Sprintf(` %s="%s"`, qnameLocal(attr.Name), escapeXMLAttr(attr.Value)))
	}
	b.WriteString(">")
	return b.String()
}

func qnameLocal(name xml.Name) string {
	if name.Space == "" {
		return name.Local
	}
	return name.Local
}

// readCollection handles rdf:parseType="Collection": child node
// elements become an rdf:first/rdf:rest list, following the same
// expansion used by the Turtle decoder for "(...)".
func (d *rdfxmltripleDecoder) readCollection(start xml.StartElement) (Term, error) {
	var items []Term
	for {
		tok, err := d.nextToken()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			d.handleNamespaceDeclarations(t.Attr)
			subject, err := d.readNode(t)
			if err != nil {
				return nil, err
			}
			items = append(items, subject)
		case xml.EndElement:
			return d.buildCollection(items), nil
		}
	}
}

func (d *rdfxmltripleDecoder) buildCollection(items []Term) Term {
	if len(items) == 0 {
		return IRI{Value: rdfNilIRI}
	}
	head := d.newBlankNode()
	current := head
	for i, item := range items {
		d.queue = append(d.queue, Triple{S: current, P: IRI{Value: rdfFirstIRI}, O: item})
		var rest Term
		if i == len(items)-1 {
			rest = IRI{Value: rdfNilIRI}
		} else {
			rest = d.newBlankNode()
		}
		d.queue = append(d.queue, Triple{S: current, P: IRI{Value: rdfRestIRI}, O: rest})
		if bn, ok := rest.(BlankNode); ok {
			current = bn
		}
	}
	return head
}

// readTripleTerm handles rdf:parseType="Triple": rdf:subject,
// rdf:predicate and rdf:object children form an RDF-star quoted triple.
func (d *rdfxmltripleDecoder) readTripleTerm(start xml.StartElement) (Term, error) {
	var tt TripleTerm
	haveS, haveP, haveO := false, false, false
	for {
		tok, err := d.nextToken()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			d.handleNamespaceDeclarations(t.Attr)
			obj, _, _, err := d.objectFromPredicate(t)
			if err != nil {
				return nil, err
			}
			switch {
			case t.Name.Space == rdfXMLNS && t.Name.Local == "subject":
				tt.S = obj
				haveS = true
			case t.Name.Space == rdfXMLNS && t.Name.Local == "predicate":
				if iri, ok := obj.(IRI); ok {
					tt.P = iri
					haveP = true
				}
			case t.Name.Space == rdfXMLNS && t.Name.Local == "object":
				tt.O = obj
				haveO = true
			}
		case xml.EndElement:
			if !haveS || !haveP || !haveO {
				return nil, d.wrapRDFXMLError(fmt.Errorf("incomplete rdf:parseType=\"Triple\" term"))
			}
			return tt, nil
		}
	}
}

// handleAnnotation turns the non-standard rdf:annotation /
// rdf:annotationNodeID extension attributes into additional triples
// that reify the just-emitted statement as the subject of an
// RDF-star-style annotation graph rooted at the given node.
func (d *rdfxmltripleDecoder) handleAnnotation(subject Term, pred IRI, obj Term, annotation, annotationNodeID string) []Triple {
	var ann Term
	switch {
	case annotation != "":
		ann = IRI{Value: resolveIRI(d.baseURI, annotation)}
	case annotationNodeID != "":
		ann = BlankNode{ID: annotationNodeID}
	default:
		return nil
	}
	quoted := TripleTerm{S: subject, P: pred, O: obj}
	return []Triple{{S: quoted, P: IRI{Value: rdfXMLNS + "annotation"}, O: ann}}
}

func (d *rdfxmltripleDecoder) newBlankNode() BlankNode {
	d.blankNodeCounter++
	return BlankNode{ID: fmt.Sprintf("rdfxml%d", d.blankNodeCounter)}
}

func (d *rdfxmltripleDecoder) containerKey(term Term) string {
	switch t := term.(type) {
	case IRI:
		return "I:" + t.Value
	case BlankNode:
		return "B:" + t.ID
	default:
		return fmt.Sprintf("%v", term)
	}
}

func (d *rdfxmltripleDecoder) nextContainerPredicate(key string) string {
	d.containerIndex[key]++
	return rdfXMLNS + "_" + strconv.Itoa(d.containerIndex[key])
}

func (d *rdfxmltripleDecoder) bumpContainerIndex(key string, idx int) {
	if idx > d.containerIndex[key] {
		d.containerIndex[key] = idx
	}
}

func (d *rdfxmltripleDecoder) resolveID(id string) string {
	return d.baseURI + "#" + id
}

func (d *rdfxmltripleDecoder) isEmptyElement(el xml.StartElement) bool {
	if d.rdfAttrValue(el.Attr, "resource") != "" || d.rdfAttrValue(el.Attr, "nodeID") != "" {
		return d.rdfAttrValue(el.Attr, "parseType") == ""
	}
	return false
}

func (d *rdfxmltripleDecoder) isNodeElement(el xml.StartElement) bool {
	if el.Name.Space == rdfXMLNS && el.Name.Local == "Description" {
		return true
	}
	if el.Name.Space != rdfXMLNS {
		return true
	}
	if d.attrValue(el.Attr, rdfXMLNS, "about") != "" || d.attrValue(el.Attr, rdfXMLNS, "ID") != "" {
		return true
	}
	return el.Name.Space != rdfXMLNS
}

func (d *rdfxmltripleDecoder) isContainerElement(el xml.StartElement) bool {
	if el.Name.Space != rdfXMLNS {
		return false
	}
	switch el.Name.Local {
	case "Bag", "Seq", "Alt", "List":
		return true
	}
	return false
}

func (d *rdfxmltripleDecoder) subjectFromNode(el xml.StartElement) Term {
	if about := d.attrValue(el.Attr, rdfXMLNS, "about"); about != "" {
		return IRI{Value: resolveIRI(d.baseURI, about)}
	}
	if id := d.attrValue(el.Attr, rdfXMLNS, "ID"); id != "" {
		return IRI{Value: d.resolveID(id)}
	}
	if nodeID := d.attrValue(el.Attr, rdfXMLNS, "nodeID"); nodeID != "" {
		return BlankNode{ID: nodeID}
	}
	return d.newBlankNode()
}

func (d *rdfxmltripleDecoder) consumeElement() error {
	depth := 0
	for {
		tok, err := d.nextToken()
		if err != nil {
			return err
		}
		switch tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			if depth == 0 {
				return nil
			}
			depth--
		}
	}
}

func (d *rdfxmltripleDecoder) attrValue(attrs []xml.Attr, space, local string) string {
	for _, attr := range attrs {
		if attr.Name.Space == space && attr.Name.Local == local {
			return attr.Value
		}
	}
	return ""
}

func (d *rdfxmltripleDecoder) rdfAttrValue(attrs []xml.Attr, local string) string {
	return d.attrValue(attrs, rdfXMLNS, local)
}

func (d *rdfxmltripleDecoder) findPrefix(ns string) string {
	for prefix, uri := range d.namespaces {
		if uri == ns {
			return prefix
		}
	}
	return ""
}

func (d *rdfxmltripleDecoder) resolveQName(space, local string) string {
	return space + local
}

// resolveIRI resolves a relative IRI reference against the decoder's
// base URI.
func (d *rdfxmltripleDecoder) resolveIRI(base, rel string) string {
	return resolveIRI(base, rel)
}

// parseContainerIndex parses an rdf:_N container membership local name
// ("_1", "_2", ...) into its numeric index.
func parseContainerIndex(local string) (int, bool) {
	if !strings.HasPrefix(local, "_") {
		return 0, false
	}
	n, err := strconv.Atoi(local[1:])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// isValidXMLName reports whether s is a well-formed XML Name: it must
// start with a letter or underscore and contain only name characters.
func isValidXMLName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case r >= '0' && r <= '9', r == '-', r == '.':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// isForbiddenRDFPropertyElement reports whether local is an RDF core
// syntax term that cannot itself be used as a property element name
// (rdf:li is handled separately as a container membership shorthand).
func isForbiddenRDFPropertyElement(local string) bool {
	switch local {
	case "RDF", "Description", "ID", "about", "parseType", "resource", "nodeID", "datatype":
		return true
	}
	return false
}
