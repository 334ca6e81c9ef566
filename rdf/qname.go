package rdf

// isQNameLocal reports whether value is safe to emit as a Turtle/RDF-XML
// qname local part without escaping: this is a conservative subset of the
// Turtle PN_LOCAL production (a leading name-start character followed by
// name characters), not the full Unicode grammar, since quadgraph falls
// back to a full IRI whenever a local name doesn't qualify.
func isQNameLocal(value string) bool {
	if value == "" {
		return false
	}
	for i := 0; i < len(value); i++ {
		ch := value[i]
		if i == 0 {
			if !isQNameStartByte(ch) {
				return false
			}
		} else if !isQNameBodyByte(ch) {
			return false
		}
	}
	return true
}

func isQNameStartByte(ch byte) bool {
	return (ch >= 'A' && ch <= 'Z') || (ch >= 'a' && ch <= 'z') || ch == '_'
}

func isQNameBodyByte(ch byte) bool {
	return isQNameStartByte(ch) || (ch >= '0' && ch <= '9') || ch == '-' || ch == '.'
}
