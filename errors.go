package jsonb

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrNotSupported is returned by a Source when it can not represent its
// value in the requested form.
var ErrNotSupported = errors.New("not supported")

// ErrNoValue is returned by Source.Get when the source is an object but
// does not contain the requested key.
var ErrNoValue = errors.New("no value")

// ErrTruncated indicates that the input ended, or a bounded payload ran
// out, before an element's header or payload could be read in full.
var ErrTruncated = errors.New("unexpected end of input")

// ErrTrailingData indicates that input bytes remain after the single
// top-level element was decoded.
var ErrTrailingData = errors.New("trailing data after top-level element")

// ErrOverrun indicates a child element whose declared payload size exceeds
// the remaining bytes of its enclosing array or object payload.
var ErrOverrun = errors.New("child element overruns enclosing payload")

// ErrDanglingKey indicates an object payload that ends after a key element
// with no value element following it.
var ErrDanglingKey = errors.New("object payload ends with a key that has no value")

// ErrTooDeep indicates that composite elements nest deeper than the
// configured limit. See Value.MaxDepth.
var ErrTooDeep = errors.New("maximum nesting depth exceeded")

// ErrInvalidUTF8 indicates a TextRaw payload that is not valid UTF-8.
var ErrInvalidUTF8 = errors.New("text payload is not valid utf-8")

// UnexpectedTypeError is returned when the element present in the input
// does not match the shape the caller requested, e.g. asking for an
// integer while positioned on a Text element. The reserved element types
// fail with this error for every requested shape.
type UnexpectedTypeError struct {
	// Expected names the requested shape, e.g. "integer" or "object key".
	Expected string

	// Actual is the element type found in the input.
	Actual ElementType
}

func (e UnexpectedTypeError) Error() string {
	return fmt.Sprintf("expected %s, found element of type %s", e.Expected, e.Actual)
}

type NotSupportedError struct {
	Type reflect.Type
}

func (n NotSupportedError) Error() string {
	return fmt.Sprintf("type %q is not supported", n.Type)
}
