package rdf

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// RDFXMLEncodeOptions configures RDF/XML encoding: pretty-printing,
// explicit namespace prefixes, and a document-level xml:base.
type RDFXMLEncodeOptions struct {
	Pretty   bool
	Indent   string
	Prefixes map[string]string
	BaseIRI  string
}

type rdfxmltripleEncoder struct {
	writer       *bufio.Writer
	started      bool
	closed       bool
	err          error
	opts         RDFXMLEncodeOptions
	indent       string
	prefixes     map[string]string
	rootPrefixes map[string]string
	nsToPref     map[string]string
	autoSeq      int
}

func newRDFXMLtripleEncoder(w io.Writer) tripleEncoder {
	return newRDFXMLtripleEncoderWithOptions(w, RDFXMLEncodeOptions{})
}

func newRDFXMLtripleEncoderWithOptions(w io.Writer, opts RDFXMLEncodeOptions) tripleEncoder {
	indent := opts.Indent
	if opts.Pretty && indent == "" {
		indent = "  "
	}
	prefixes := copyPrefixMap(opts.Prefixes)
	nsToPref := make(map[string]string, len(prefixes))
	for prefix, ns := range prefixes {
		nsToPref[ns] = prefix
	}
	return &rdfxmltripleEncoder{
		writer:       bufio.NewWriter(w),
		opts:         opts,
		indent:       indent,
		prefixes:     prefixes,
		rootPrefixes: copyPrefixMap(opts.Prefixes),
		nsToPref:     nsToPref,
	}
}

func (e *rdfxmltripleEncoder) writeRootElement() error {
	if _, err := e.writer.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n"); err != nil {
		return err
	}
	var root strings.Builder
	root.WriteString(`<rdf:RDF xmlns:rdf="` + rdfXMLNS + `"`)
	if e.opts.BaseIRI != "" {
		root.WriteString(` xml:base="` + escapeXMLAttr(e.opts.BaseIRI) + `"`)
	}
	for _, prefix := range sortedPrefixKeys(e.opts.Prefixes) {
		if prefix == "rdf" {
			continue
		}
		ns := e.opts.Prefixes[prefix]
		if prefix == "" {
			root.WriteString(` xmlns="` + escapeXMLAttr(ns) + `"`)
			continue
		}
		root.WriteString(` xmlns:` + prefix + `="` + escapeXMLAttr(ns) + `"`)
	}
	root.WriteString(">\n")
	_, err := e.writer.WriteString(root.String())
	return err
}

func (e *rdfxmltripleEncoder) Write(t Triple) error {
	if e.err != nil {
		return e.err
	}
	if e.closed {
		return fmt.Errorf("rdfxml: writer closed")
	}
	if !e.started {
		e.started = true
		if err := e.writeRootElement(); err != nil {
			e.err = err
			return err
		}
	}

	subjectAttrs, err := rdfxmlSubjectAttrs(t.S)
	if err != nil {
		return err
	}
	predicate, predicateNS, err := e.predicateQName(t.P.Value)
	if err != nil {
		return err
	}

	line, err := renderRDFXMLPropertyElement(e.indent, subjectAttrs, predicate, predicateNS, t.O)
	if err != nil {
		return err
	}
	if _, werr := e.writer.WriteString(line); werr != nil {
		e.err = werr
		return werr
	}
	return nil
}

// renderRDFXMLPropertyElement renders a single <rdf:Description>...</rdf:Description>
// statement for object, which must be an IRI, BlankNode, or Literal.
func renderRDFXMLPropertyElement(indent, subjectAttrs, predicate, predicateNS string, object Term) (string, error) {
	switch value := object.(type) {
	case IRI:
		return fmt.Sprintf(`%s<rdf:Description %s><%s%s rdf:resource="%s"/></rdf:Description>`+"\n",
			indent, subjectAttrs, predicate, predicateNS, escapeXMLAttr(value.Value)), nil
	case BlankNode:
		return fmt.Sprintf(`%s<rdf:Description %s><%s%s rdf:nodeID="%s"/></rdf:Description>`+"\n",
			indent, subjectAttrs, predicate, predicateNS, escapeXMLAttr(value.ID)), nil
	case Literal:
		if value.Lang != "" && value.Datatype.Value != "" {
			return "", fmt.Errorf("rdfxml: literal cannot have both language and datatype")
		}
		literalAttrs := ""
		switch {
		case value.Lang != "":
			literalAttrs = ` xml:lang="` + escapeXMLAttr(value.Lang) + `"`
		case value.Datatype.Value != "":
			literalAttrs = ` rdf:datatype="` + escapeXMLAttr(value.Datatype.Value) + `"`
		}
		return fmt.Sprintf(`%s<rdf:Description %s><%s%s%s>%s</%s></rdf:Description>`+"\n",
			indent, subjectAttrs, predicate, predicateNS, literalAttrs, escapeXML(value.Lexical), predicate), nil
	default:
		return "", fmt.Errorf("rdfxml: unsupported object type")
	}
}

func (e *rdfxmltripleEncoder) Flush() error {
	if e.err != nil {
		return e.err
	}
	if e.closed {
		return fmt.Errorf("rdfxml: writer closed")
	}
	return e.writer.Flush()
}

func (e *rdfxmltripleEncoder) Close() error {
	if e.closed {
		return e.err
	}
	e.closed = true
	if !e.started {
		return nil
	}
	if _, err := e.writer.WriteString(`</rdf:RDF>` + "\n"); err != nil {
		e.err = err
		return err
	}
	return e.writer.Flush()
}

func escapeXML(value string) string {
	replacer := strings.NewReplacer(
		`&`, "&amp;",
		`<`, "&lt;",
		`>`, "&gt;",
		`"`, "&quot;",
		`'`, "&apos;",
	)
	return replacer.Replace(value)
}

func escapeXMLAttr(value string) string {
	return escapeXML(value)
}

func copyPrefixMap(prefixes map[string]string) map[string]string {
	out := make(map[string]string, len(prefixes))
	for key, value := range prefixes {
		out[key] = value
	}
	return out
}

func rdfxmlSubjectAttrs(term Term) (string, error) {
	switch value := term.(type) {
	case IRI:
		return `rdf:about="` + escapeXMLAttr(value.Value) + `"`, nil
	case BlankNode:
		return `rdf:nodeID="` + escapeXMLAttr(value.ID) + `"`, nil
	default:
		return "", fmt.Errorf("rdfxml: unsupported subject type")
	}
}

// predicateQName abbreviates iri against the encoder's known namespace
// prefixes, minting a fresh "nsN" prefix (and the xmlns declaration that
// introduces it) the first time a new namespace is seen.
func (e *rdfxmltripleEncoder) predicateQName(iri string) (string, string, error) {
	ns, local, ok := splitIRIForQName(iri)
	if !ok {
		return "", "", fmt.Errorf("rdfxml: unable to abbreviate predicate IRI %q", iri)
	}
	if prefix, ok := e.nsToPref[ns]; ok {
		if prefix == "" {
			return local, "", nil
		}
		if _, isRoot := e.rootPrefixes[prefix]; isRoot {
			return prefix + ":" + local, "", nil
		}
		return prefix + ":" + local, ` xmlns:` + prefix + `="` + escapeXMLAttr(ns) + `"`, nil
	}

	prefix := fmt.Sprintf("ns%d", e.autoSeq)
	e.autoSeq++
	e.prefixes[prefix] = ns
	e.nsToPref[ns] = prefix
	return prefix + ":" + local, ` xmlns:` + prefix + `="` + escapeXMLAttr(ns) + `"`, nil
}

func splitIRIForQName(iri string) (string, string, bool) {
	idx := strings.LastIndexAny(iri, "#/")
	if idx <= 0 || idx+1 >= len(iri) {
		return "", "", false
	}
	ns, local := iri[:idx+1], iri[idx+1:]
	if !isQNameLocal(local) {
		return "", "", false
	}
	return ns, local, true
}
