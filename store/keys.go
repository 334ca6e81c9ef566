package store

import "github.com/geoknoesis/quadgraph/dict"

// buildKey concatenates the four encoded quad components in perm order,
// producing the key for the corresponding index family.
func buildKey(terms [4]dict.EncodedTerm, perm [4]int) []byte {
	key := make([]byte, 0, decodedTermSize*4)
	for _, pos := range perm {
		b := terms[pos].Bytes()
		key = append(key, b[:]...)
	}
	return key
}

// buildPrefix concatenates only the bound leading components of perm,
// stopping at the first unbound (nil) entry in bound.
func buildPrefix(terms [4]dict.EncodedTerm, perm [4]int, bound [4]bool) []byte {
	var key []byte
	for _, pos := range perm {
		if !bound[pos] {
			break
		}
		b := terms[pos].Bytes()
		key = append(key, b[:]...)
	}
	return key
}

// splitKey decodes a full index key back into its four encoded components
// in S,P,O,G order, given the permutation it was built with.
func splitKey(key []byte, perm [4]int) ([4]dict.EncodedTerm, error) {
	var out [4]dict.EncodedTerm
	if len(key) != decodedTermSize*4 {
		return out, &Corruption{Reason: "quad index key has unexpected length"}
	}
	for i, pos := range perm {
		start := i * decodedTermSize
		out[pos] = dict.FromBytes(key[start : start+decodedTermSize])
	}
	return out, nil
}
