package dict

import "errors"

// ErrDictionaryCorruption is returned when a 128-bit hash collides with an
// existing, structurally different entry in the string/term table. The
// dictionary fails closed rather than chaining collisions, so the
// term<->encoded-term mapping stays injective.
var ErrDictionaryCorruption = errors.New("dictionary: hash collision between distinct terms")

// ErrUnsupportedTerm is returned when Encode is given a term value this
// encoder doesn't know how to represent (nil components, for instance).
var ErrUnsupportedTerm = errors.New("dictionary: unsupported term value")
