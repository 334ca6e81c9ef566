package rdf

import (
	"context"
	"strings"
	"testing"
)

func TestParseStopsWhenContextIsCancelledMidStream(t *testing.T) {
	input := "<http://quadgraph.example/s> <http://quadgraph.example/p> \"v\" .\n"
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	seen := 0
	err := Parse(ctx, strings.NewReader(input), FormatNTriples, func(Statement) error {
		seen++
		cancel()
		return nil
	})
	if err != context.Canceled {
		t.Fatalf("Parse error = %v, want context.Canceled", err)
	}
	if seen != 1 {
		t.Fatalf("handler invoked %d times, want 1", seen)
	}
}

func TestParsePropagatesHandlerError(t *testing.T) {
	input := "<http://quadgraph.example/s> <http://quadgraph.example/p> \"v\" .\n"
	err := Parse(context.Background(), strings.NewReader(input), FormatNTriples, func(Statement) error {
		return ErrUnsupportedFormat
	})
	if err != ErrUnsupportedFormat {
		t.Fatalf("Parse error = %v, want ErrUnsupportedFormat", err)
	}
}
