package rdf

import (
	"bytes"
	"io"
	"testing"
)

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, io.ErrClosedPipe }

func TestNewDecoderRejectsUnknownFormat(t *testing.T) {
	if _, err := NewDecoder(bytes.NewReader(nil), Format("not-a-format")); err != ErrUnsupportedFormat {
		t.Fatalf("NewDecoder error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestNewEncoderRejectsUnknownFormat(t *testing.T) {
	if _, err := NewEncoder(&bytes.Buffer{}, Format("not-a-format")); err != ErrUnsupportedFormat {
		t.Fatalf("NewEncoder error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestEveryEncoderAcceptsWriteFlushClose(t *testing.T) {
	quad := Quad{
		S: IRI{Value: "http://quadgraph.example/s"},
		P: IRI{Value: "http://quadgraph.example/p"},
		O: Literal{Lexical: "v"},
	}
	for _, format := range []Format{FormatNTriples, FormatNQuads, FormatTurtle, FormatTriG, FormatRDFXML, FormatJSONLD} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			enc, err := NewEncoder(&buf, format)
			if err != nil {
				t.Fatalf("NewEncoder: %v", err)
			}
			if err := enc.Write(quad); err != nil {
				t.Fatalf("Write: %v", err)
			}
			if err := enc.Flush(); err != nil {
				t.Fatalf("Flush: %v", err)
			}
			if err := enc.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}
		})
	}
}

func TestEncoderSurfacesUnderlyingWriteFailureOnFlush(t *testing.T) {
	enc, err := NewEncoder(brokenWriter{}, FormatNTriples)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	quad := Quad{
		S: IRI{Value: "http://quadgraph.example/s"},
		P: IRI{Value: "http://quadgraph.example/p"},
		O: Literal{Lexical: "v"},
	}
	if err := enc.Write(quad); err != nil {
		t.Fatalf("Write returned an error before the buffer was flushed: %v", err)
	}
	if err := enc.Flush(); err == nil {
		t.Fatal("expected Flush to surface the writer's error")
	}
}
