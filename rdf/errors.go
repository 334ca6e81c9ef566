package rdf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrUnsupportedFormat indicates an unsupported format.
var ErrUnsupportedFormat = errors.New("unsupported RDF format")

// ErrTripleLimitExceeded is returned when a decoder's MaxTriples limit is hit.
var ErrTripleLimitExceeded = errors.New("triple limit exceeded")

// ErrNestingTooDeep is returned when a parser's bracket/quoted-triple nesting
// guard trips.
var ErrNestingTooDeep = errors.New("nesting too deep")

// ErrCanceled names a canceled decode. The decoders do not return it: when
// DecodeOptions.Context is done mid-parse they return the context's own
// error (context.Canceled or context.DeadlineExceeded).
var ErrCanceled = errors.New("decode canceled")

// ErrorKind classifies the cause of a ParseError, mirroring the taxonomy
// used across the codec, storage and query layers.
type ErrorKind string

const (
	ErrorKindSyntax      ErrorKind = "syntax"
	ErrorKindIRI         ErrorKind = "iri"
	ErrorKindLanguageTag ErrorKind = "language_tag"
	ErrorKindIO          ErrorKind = "io"
	ErrorKindLimit       ErrorKind = "limit_exceeded"
	ErrorKindCanceled    ErrorKind = "canceled"
)

// ParseError reports a position-tracked parse failure. Line and Column are
// 1-based; ByteOffset/ByteEnd are 0-based byte offsets into the input seen
// so far by the decoder that produced the error.
type ParseError struct {
	Format     string
	Kind       ErrorKind
	Excerpt    string
	Line       int
	Column     int
	ByteOffset int
	ByteEnd    int
	Err        error
}

const maxParseErrorExcerpt = 80

func (e *ParseError) Error() string {
	loc := e.Format
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d:%d", e.Format, e.Line, e.Column)
	} else if e.ByteOffset >= 0 {
		loc = fmt.Sprintf("%s:offset %d", e.Format, e.ByteOffset)
	}
	msg := fmt.Sprintf("%s: %v", loc, e.Err)

	excerpt := e.Excerpt
	if excerpt == "" {
		return msg
	}
	truncated := len(excerpt) > maxParseErrorExcerpt
	if truncated {
		excerpt = excerpt[:maxParseErrorExcerpt]
	}
	msg += "\n  " + excerpt
	if truncated {
		msg += "..."
	}
	if e.Column > 0 && e.Column <= len(excerpt)+1 {
		msg += "\n  " + strings.Repeat(" ", e.Column-1) + "^"
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// WrapParseError wraps err as a ParseError without line/column information,
// recording only a byte offset. Used by decoders that scan a whole
// statement/document at once (Turtle, TriG, RDF/XML, JSON-LD).
func WrapParseError(format, excerpt string, offset int, err error) error {
	if err == nil {
		return nil
	}
	var pe *ParseError
	if errors.As(err, &pe) {
		return err
	}
	return &ParseError{
		Format:     format,
		Kind:       ErrorKindSyntax,
		Excerpt:    excerpt,
		ByteOffset: offset,
		ByteEnd:    -1,
		Err:        err,
	}
}

// WrapParseErrorWithPosition wraps err as a ParseError carrying a full
// line/column/byte position. Used by line-oriented decoders (N-Triples,
// N-Quads), where excerpt is the offending line.
func WrapParseErrorWithPosition(format, excerpt string, line, col, byteOffset int, err error) error {
	if err == nil {
		return nil
	}
	var pe *ParseError
	if errors.As(err, &pe) {
		return err
	}
	return &ParseError{
		Format:     format,
		Kind:       ErrorKindSyntax,
		Excerpt:    excerpt,
		Line:       line,
		Column:     col,
		ByteOffset: byteOffset,
		ByteEnd:    -1,
		Err:        err,
	}
}

// WrapIRIError reports a malformed IRI reference.
func WrapIRIError(format, excerpt string, offset int, err error) error {
	e := WrapParseError(format, excerpt, offset, err)
	if pe, ok := e.(*ParseError); ok {
		pe.Kind = ErrorKindIRI
	}
	return e
}

// WrapLanguageTagError reports a malformed BCP47 language tag.
func WrapLanguageTagError(format, excerpt string, offset int, err error) error {
	e := WrapParseError(format, excerpt, offset, err)
	if pe, ok := e.(*ParseError); ok {
		pe.Kind = ErrorKindLanguageTag
	}
	return e
}

// wrapParseError is an unexported alias of WrapParseError, kept for
// call sites within the package that predate the exported name.
func wrapParseError(format, excerpt string, offset int, err error) error {
	return WrapParseError(format, excerpt, offset, err)
}

// ErrLineTooLong is returned when a decoder line exceeds DecodeOptions.MaxLineBytes.
var ErrLineTooLong = errors.New("line exceeds maximum length")

// ErrStatementTooLong is returned when an accumulated statement exceeds
// DecodeOptions.MaxStatementBytes (Turtle/TriG accumulate a statement
// across multiple lines before parsing it).
var ErrStatementTooLong = errors.New("statement exceeds maximum length")

// ErrDepthExceeded is returned when nesting exceeds DecodeOptions.MaxDepth.
var ErrDepthExceeded = errors.New("nesting depth exceeded")

// ErrCode is a stable, comparable classification of a decode error,
// independent of its message text.
type ErrCode string

const (
	ErrCodeUnsupportedFormat    ErrCode = "unsupported_format"
	ErrCodeLineTooLong          ErrCode = "line_too_long"
	ErrCodeStatementTooLong     ErrCode = "statement_too_long"
	ErrCodeDepthExceeded        ErrCode = "depth_exceeded"
	ErrCodeTripleLimitExceeded  ErrCode = "triple_limit_exceeded"
	ErrCodeContextCanceled      ErrCode = "context_canceled"
	ErrCodeIOError              ErrCode = "io_error"
	ErrCodeParseError           ErrCode = "parse_error"
)

// Code classifies err into a stable ErrCode. It returns "" for nil and for
// io.EOF, which signal end-of-stream rather than failure.
func Code(err error) ErrCode {
	if err == nil || err == io.EOF {
		return ""
	}
	switch {
	case errors.Is(err, ErrUnsupportedFormat):
		return ErrCodeUnsupportedFormat
	case errors.Is(err, ErrLineTooLong):
		return ErrCodeLineTooLong
	case errors.Is(err, ErrStatementTooLong):
		return ErrCodeStatementTooLong
	case errors.Is(err, ErrDepthExceeded), errors.Is(err, ErrNestingTooDeep):
		return ErrCodeDepthExceeded
	case errors.Is(err, ErrTripleLimitExceeded):
		return ErrCodeTripleLimitExceeded
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrCodeContextCanceled
	}
	var pe *ParseError
	if errors.As(err, &pe) {
		if pe.Kind == ErrorKindIO {
			return ErrCodeIOError
		}
		return ErrCodeParseError
	}
	if errors.Is(err, io.ErrClosedPipe) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrCodeIOError
	}
	return ErrCodeParseError
}
