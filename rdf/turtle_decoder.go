package rdf

import "io"

// New triple decoder for Turtle
type turtleTripleDecoder struct {
	parser *turtleParser
	opts   DecodeOptions
	count  int64
}

func newTurtleTripleDecoder(r io.Reader) TripleDecoder {
	return newTurtleTripleDecoderWithOptions(r, DefaultDecodeOptions())
}

func newTurtleTripleDecoderWithOptions(r io.Reader, opts DecodeOptions) TripleDecoder {
	return &turtleTripleDecoder{
		parser: newTurtleParser(r, opts),
		opts:   opts,
	}
}

func (d *turtleTripleDecoder) Next() (Triple, error) {
	if d.opts.MaxTriples > 0 && d.count >= d.opts.MaxTriples {
		return Triple{}, WrapParseError("turtle", "", -1, ErrTripleLimitExceeded)
	}
	t, err := d.parser.NextTriple()
	if err == nil {
		d.count++
	}
	return t, err
}

func (d *turtleTripleDecoder) Err() error { return d.parser.Err() }
func (d *turtleTripleDecoder) Close() error {
	return nil
}
