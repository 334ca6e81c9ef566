package rdf

import (
	"io"
	"testing"
)

func TestPushDecoderNTriplesIncremental(t *testing.T) {
	d := NewPushDecoder(FormatNTriples, DefaultDecodeOptions())
	if err := d.Feed([]byte("<http://ex/s> <http://ex/p> ")); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if _, err := d.Next(); err != io.EOF {
		t.Fatalf("expected io.EOF before a full line is fed, got %v", err)
	}
	if err := d.Feed([]byte("\"o\" .\n")); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	q, err := d.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if q.S.String() != "http://ex/s" {
		t.Fatalf("unexpected subject: %v", q.S)
	}
	if err := d.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	if _, err := d.Next(); err != io.EOF {
		t.Fatalf("expected io.EOF at end of stream, got %v", err)
	}
}

func TestPushDecoderTurtleBuffersUntilEnd(t *testing.T) {
	d := NewPushDecoder(FormatTurtle, DefaultDecodeOptions())
	if err := d.Feed([]byte("<http://ex/s> <http://ex/p> <http://ex/o> .")); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if _, err := d.Next(); err != io.EOF {
		t.Fatalf("expected io.EOF before End(), got %v", err)
	}
	if err := d.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	q, err := d.Next()
	if err != nil {
		t.Fatalf("Next after End: %v", err)
	}
	if q.O.String() != "http://ex/o" {
		t.Fatalf("unexpected object: %v", q.O)
	}
}
