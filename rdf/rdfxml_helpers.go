package rdf

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// handleNamespaceDeclarations scans attrs for xmlns/xmlns:prefix declarations
// and merges them into the decoder's in-scope namespace map.
func (d *rdfxmltripleDecoder) handleNamespaceDeclarations(attrs []xml.Attr) {
	for _, attr := range attrs {
		if attr.Name.Space != "" {
			continue
		}
		switch {
		case strings.HasPrefix(attr.Name.Local, "xmlns:"):
			d.namespaces[strings.TrimPrefix(attr.Name.Local, "xmlns:")] = attr.Value
		case attr.Name.Local == "xmlns":
			d.namespaces[""] = attr.Value
		}
	}
}

// validatePropertyElement rejects property elements that use a reserved
// rdf: local name (RDF/XML §2.11) or carry malformed rdf:ID attributes.
func (d *rdfxmltripleDecoder) validatePropertyElement(el xml.StartElement) error {
	if err := d.validatePropertyIDs(el.Attr); err != nil {
		return err
	}
	if el.Name.Space == rdfXMLNS && isForbiddenRDFPropertyElement(el.Name.Local) {
		return d.wrapRDFXMLError(fmt.Errorf("illegal RDF property element %s", el.Name.Local))
	}
	return nil
}

// validateParseTypeAttributes enforces the mutual-exclusion rules between
// rdf:parseType, rdf:resource, and rdf:nodeID on a property element.
func (d *rdfxmltripleDecoder) validateParseTypeAttributes(attrs []xml.Attr, parseType string) error {
	resource := d.attrValue(attrs, rdfXMLNS, "resource")
	nodeID := d.attrValue(attrs, rdfXMLNS, "nodeID")

	if parseType == "Literal" {
		if err := d.validateLiteralPropertyAttributes(attrs); err != nil {
			return err
		}
	}
	if parseType != "" && (resource != "" || nodeID != "") {
		return d.wrapRDFXMLError(fmt.Errorf("rdf:parseType cannot be used with rdf:resource or rdf:nodeID"))
	}
	if resource != "" && nodeID != "" {
		return d.wrapRDFXMLError(fmt.Errorf("rdf:resource and rdf:nodeID are mutually exclusive"))
	}
	return nil
}

// resolveContainerPredicate resolves the predicate IRI for a property
// element, expanding rdf:li and rdf:_n container-membership properties
// into their numbered form when expandContainers is set. The bool result
// reports whether a numbered container slot was consumed.
func (d *rdfxmltripleDecoder) resolveContainerPredicate(el xml.StartElement, containerKey string) (string, bool) {
	if !d.expandContainers {
		return d.resolveQName(el.Name.Space, el.Name.Local), false
	}
	if el.Name.Space == rdfXMLNS && el.Name.Local == "li" {
		return d.nextContainerPredicate(containerKey), true
	}
	if el.Name.Space == rdfXMLNS && strings.HasPrefix(el.Name.Local, "_") {
		if idx, ok := parseContainerIndex(el.Name.Local); ok {
			d.bumpContainerIndex(containerKey, idx)
			return rdfXMLNS + el.Name.Local, true
		}
	}
	return d.resolveQName(el.Name.Space, el.Name.Local), false
}

// processPropertyElement resolves a property element's predicate and
// object, queues the resulting triple, and queues any RDF-star annotation
// triples attached to it via rdf:annotation/rdf:annotationNodeID.
func (d *rdfxmltripleDecoder) processPropertyElement(el xml.StartElement, subject Term, containerKey string) error {
	pred, _ := d.resolveContainerPredicate(el, containerKey)
	obj, annotation, annotationNodeID, err := d.objectFromPredicate(el)
	if err != nil {
		return err
	}
	if obj == nil {
		return nil
	}

	d.queue = append(d.queue, Triple{S: subject, P: IRI{Value: pred}, O: obj})

	if annotation != "" || annotationNodeID != "" {
		d.queue = append(d.queue, d.handleAnnotation(subject, IRI{Value: pred}, obj, annotation, annotationNodeID)...)
	}
	return nil
}
