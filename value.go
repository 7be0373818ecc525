package jsonb

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"strconv"
	"unicode/utf8"

	"github.com/go-gum/jsonb/literal"
)

// DefaultMaxDepth bounds how deep arrays and objects may nest. The format
// itself has no limit, but decoding is recursive and adversarial input
// could otherwise exhaust the stack. Tune per source with [Value.MaxDepth].
const DefaultMaxDepth = 200

// decodeState is shared by all Values of one decode operation.
type decodeState struct {
	maxDepth int
}

// Value is a single JSONB element positioned on a byte source. It
// implements [Source], [BinarySource] and [NullSource]: the conversion
// methods read the element's header, check its type against the requested
// shape and decode the payload.
//
// A Value is consumed by at most one conversion. The exception is Get,
// which buffers the object payload on first use so that every struct field
// lookup can rescan it. There is no coercion between scalar families:
// asking a Float element for an integer fails with [UnexpectedTypeError],
// as does asking an Int element for a float.
type Value struct {
	state *decodeState
	depth int

	// cur holds the position of the element's header. Derived child
	// Values have their header pre-decoded and only carry pay.
	cur *cursor

	// pay is the bounded view of the payload, established once the
	// header is known
	pay *cursor

	hdr    Header
	hasHdr bool

	// buffered object payload for repeated Get lookups
	obj       []byte
	objLoaded bool
}

var _ Source = (*Value)(nil)
var _ BinarySource = (*Value)(nil)
var _ NullSource = (*Value)(nil)

// FromBytes returns the JSONB element stored in data. The slice is not
// copied; payload spans alias it.
func FromBytes(data []byte) *Value {
	return &Value{
		cur:   newBytesCursor(data),
		state: &decodeState{maxDepth: DefaultMaxDepth},
	}
}

// FromReader returns the JSONB element read from r. The reader is consumed
// exactly up to the end of the element, except that object elements
// decoded through Get buffer their payload in memory. A decode error
// leaves the reader at an undefined position.
func FromReader(r io.Reader) *Value {
	return &Value{
		cur:   newReaderCursor(r),
		state: &decodeState{maxDepth: DefaultMaxDepth},
	}
}

// MaxDepth sets the maximum allowed nesting depth of arrays and objects.
// The default is DefaultMaxDepth. Exceeding the limit fails the decode
// with ErrTooDeep.
func (v *Value) MaxDepth(n int) {
	v.state.maxDepth = n
}

// header decodes the element's header on first use. The reserved element
// types are never valid and are rejected here, before any shape check.
func (v *Value) header() (Header, error) {
	if v.hasHdr {
		return v.hdr, nil
	}

	h, err := readHeader(v.cur)
	if err != nil {
		return Header{}, err
	}

	if h.Type.isReserved() {
		return Header{}, UnexpectedTypeError{Expected: "a value", Actual: h.Type}
	}

	v.hdr = h
	v.hasHdr = true

	return h, nil
}

// body returns the bounded view of the element's payload, creating it on
// first use.
func (v *Value) body(h Header) *cursor {
	if v.pay == nil {
		v.pay = v.cur.take(h.PayloadSize)
	}

	return v.pay
}

// scalarPayload reads the element's complete payload span.
func (v *Value) scalarPayload(h Header) ([]byte, error) {
	body := v.body(h)
	return body.read(int(body.remaining()))
}

// drainPayload discards whatever remains of the element's payload.
func (v *Value) drainPayload(h Header) error {
	body := v.body(h)
	return body.skip(int(body.remaining()))
}

// finish positions the cursor directly behind the element, discarding any
// unread payload bytes. Composite decoding calls this after every child so
// the byte accounting of the enclosing payload stays exact even when a
// child was only partially consumed.
func (v *Value) finish() error {
	h, err := v.header()
	if err != nil {
		return err
	}

	return v.drainPayload(h)
}

func (v *Value) checkDepth() error {
	if v.depth >= v.state.maxDepth {
		return fmt.Errorf("element nested %d levels deep: %w", v.depth, ErrTooDeep)
	}

	return nil
}

// child decodes the next element header from body and returns that element
// bounded to its payload. A declared payload size exceeding the bytes left
// in body is a malformed composite: the child can not possibly fit.
func (v *Value) child(body *cursor) (*Value, error) {
	h, err := readHeader(body)
	if err != nil {
		return nil, err
	}

	if h.Type.isReserved() {
		return nil, UnexpectedTypeError{Expected: "a value", Actual: h.Type}
	}

	if rem := body.remaining(); rem >= 0 && int64(h.PayloadSize) > rem {
		return nil, fmt.Errorf("%s element of %d bytes with %d remaining: %w", h.Type, h.PayloadSize, rem, ErrOverrun)
	}

	return &Value{
		state:  v.state,
		depth:  v.depth + 1,
		pay:    body.take(h.PayloadSize),
		hdr:    h,
		hasHdr: true,
	}, nil
}

// IsNull reports whether the element is a Null. A Null with a nonzero
// declared payload is tolerated, the payload is drained and ignored.
func (v *Value) IsNull() (bool, error) {
	h, err := v.header()
	if err != nil {
		return false, err
	}

	if h.Type != TypeNull {
		return false, nil
	}

	return true, v.drainPayload(h)
}

func (v *Value) Bool() (bool, error) {
	h, err := v.header()
	if err != nil {
		return false, err
	}

	switch h.Type {
	case TypeTrue:
		return true, v.drainPayload(h)
	case TypeFalse:
		return false, v.drainPayload(h)
	default:
		return false, UnexpectedTypeError{Expected: "boolean", Actual: h.Type}
	}
}

// intSpan reads the payload of an Int or Int5 element together with the
// literal flavor it must be parsed in.
func (v *Value) intSpan() ([]byte, literal.Flavor, error) {
	h, err := v.header()
	if err != nil {
		return nil, 0, err
	}

	var flavor literal.Flavor
	switch h.Type {
	case TypeInt:
		flavor = literal.JSON
	case TypeInt5:
		flavor = literal.JSON5
	default:
		return nil, 0, UnexpectedTypeError{Expected: "integer", Actual: h.Type}
	}

	span, err := v.scalarPayload(h)
	return span, flavor, err
}

func (v *Value) parseInt(bitSize int) (int64, error) {
	span, flavor, err := v.intSpan()
	if err != nil {
		return 0, err
	}

	value, err := literal.ParseInt(span, flavor, bitSize)
	if err != nil {
		return 0, literalErr(err)
	}

	return value, nil
}

func (v *Value) parseUint(bitSize int) (uint64, error) {
	span, flavor, err := v.intSpan()
	if err != nil {
		return 0, err
	}

	value, err := literal.ParseUint(span, flavor, bitSize)
	if err != nil {
		return 0, literalErr(err)
	}

	return value, nil
}

func (v *Value) Int() (int64, error) { return v.parseInt(64) }

func (v *Value) Int8() (int8, error) {
	value, err := v.parseInt(8)
	return int8(value), err
}

func (v *Value) Int16() (int16, error) {
	value, err := v.parseInt(16)
	return int16(value), err
}

func (v *Value) Int32() (int32, error) {
	value, err := v.parseInt(32)
	return int32(value), err
}

func (v *Value) Int64() (int64, error) { return v.parseInt(64) }

func (v *Value) Uint() (uint64, error) { return v.parseUint(64) }

func (v *Value) Uint8() (uint8, error) {
	value, err := v.parseUint(8)
	return uint8(value), err
}

func (v *Value) Uint16() (uint16, error) {
	value, err := v.parseUint(16)
	return uint16(value), err
}

func (v *Value) Uint32() (uint32, error) {
	value, err := v.parseUint(32)
	return uint32(value), err
}

func (v *Value) Uint64() (uint64, error) { return v.parseUint(64) }

func (v *Value) parseFloat(bitSize int) (float64, error) {
	h, err := v.header()
	if err != nil {
		return 0, err
	}

	var flavor literal.Flavor
	switch h.Type {
	case TypeFloat:
		flavor = literal.JSON
	case TypeFloat5:
		flavor = literal.JSON5
	default:
		return 0, UnexpectedTypeError{Expected: "float", Actual: h.Type}
	}

	span, err := v.scalarPayload(h)
	if err != nil {
		return 0, err
	}

	value, err := literal.ParseFloat(span, flavor, bitSize)
	if err != nil {
		return 0, literalErr(err)
	}

	return value, nil
}

func (v *Value) Float() (float64, error) { return v.parseFloat(64) }

func (v *Value) Float32() (float32, error) {
	value, err := v.parseFloat(32)
	return float32(value), err
}

func (v *Value) Float64() (float64, error) { return v.parseFloat(64) }

// String decodes any of the four text conventions to the one string value
// they all converge on.
func (v *Value) String() (string, error) {
	h, err := v.header()
	if err != nil {
		return "", err
	}

	var flavor literal.Flavor
	switch h.Type {
	case TypeText:
		flavor = literal.JSON
	case TypeTextJ:
		flavor = literal.JSONLenient
	case TypeText5:
		flavor = literal.JSON5

	case TypeTextRaw:
		span, err := v.scalarPayload(h)
		if err != nil {
			return "", err
		}
		if !utf8.Valid(span) {
			return "", fmt.Errorf("TextRaw payload of %d bytes: %w", len(span), ErrInvalidUTF8)
		}
		return string(span), nil

	default:
		return "", UnexpectedTypeError{Expected: "string", Actual: h.Type}
	}

	span, err := v.scalarPayload(h)
	if err != nil {
		return "", err
	}

	text, err := literal.Unescape(span, flavor)
	if err != nil {
		return "", literalErr(err)
	}

	return text, nil
}

// Iter iterates the children of an Array element in encounter order. Each
// child must be consumed before the next iteration step; unconsumed
// payload bytes are skipped so the position stays element-aligned.
func (v *Value) Iter() (iter.Seq[Source], error) {
	h, err := v.header()
	if err != nil {
		return nil, err
	}

	if h.Type != TypeArray {
		return nil, UnexpectedTypeError{Expected: "array", Actual: h.Type}
	}

	if err := v.checkDepth(); err != nil {
		return nil, err
	}

	body := v.body(h)

	it := func(yield func(Source) bool) {
		for body.remaining() > 0 {
			child, err := v.child(body)
			if err != nil {
				yield(errSource{err})
				return
			}

			if !yield(child) {
				return
			}

			if err := child.finish(); err != nil {
				yield(errSource{err})
				return
			}
		}
	}

	return it, nil
}

// KeyValues iterates the entries of an Object element in encounter order.
// Keys must be text elements; they are decoded eagerly and yielded as
// [StringSource], so map targets with non-string key types still work. Key
// uniqueness is not enforced here, that is up to the consumer.
func (v *Value) KeyValues() (iter.Seq2[Source, Source], error) {
	h, err := v.header()
	if err != nil {
		return nil, err
	}

	if h.Type != TypeObject {
		return nil, UnexpectedTypeError{Expected: "object", Actual: h.Type}
	}

	if err := v.checkDepth(); err != nil {
		return nil, err
	}

	body := v.body(h)

	it := func(yield func(Source, Source) bool) {
		for body.remaining() > 0 {
			key, err := v.objectKey(body)
			if err != nil {
				yieldError2(yield, err)
				return
			}

			if body.remaining() == 0 {
				yieldError2(yield, fmt.Errorf("key %q: %w", key, ErrDanglingKey))
				return
			}

			value, err := v.child(body)
			if err != nil {
				yieldError2(yield, err)
				return
			}

			if !yield(StringSource(key), value) {
				return
			}

			if err := value.finish(); err != nil {
				yieldError2(yield, err)
				return
			}
		}
	}

	return it, nil
}

// Get scans an Object element for the given key. The payload is buffered
// on first use so that one Get per struct field stays possible on a
// once-readable stream.
func (v *Value) Get(key string) (Source, error) {
	h, err := v.header()
	if err != nil {
		return nil, err
	}

	if h.Type != TypeObject {
		return nil, UnexpectedTypeError{Expected: "object", Actual: h.Type}
	}

	if err := v.checkDepth(); err != nil {
		return nil, err
	}

	if !v.objLoaded {
		span, err := v.scalarPayload(h)
		if err != nil {
			return nil, err
		}

		v.obj = span
		v.objLoaded = true
	}

	body := newBytesCursor(v.obj)
	for body.remaining() > 0 {
		name, err := v.objectKey(body)
		if err != nil {
			return nil, err
		}

		if body.remaining() == 0 {
			return nil, fmt.Errorf("key %q: %w", name, ErrDanglingKey)
		}

		value, err := v.child(body)
		if err != nil {
			return nil, err
		}

		if name == key {
			return value, nil
		}

		if err := value.finish(); err != nil {
			return nil, err
		}
	}

	return nil, ErrNoValue
}

// objectKey decodes the next element of body as an object key, which must
// be one of the four text types.
func (v *Value) objectKey(body *cursor) (string, error) {
	key, err := v.child(body)
	if err != nil {
		return "", err
	}

	if !key.hdr.Type.isText() {
		return "", UnexpectedTypeError{Expected: "object key", Actual: key.hdr.Type}
	}

	return key.String()
}

// literalErr classifies errors from the literal parser: malformed literal
// text additionally reports ErrNotSupported, following the convention of
// [StringSource]. Range errors pass through untouched.
func literalErr(err error) error {
	if errors.Is(err, strconv.ErrSyntax) {
		return errors.Join(err, ErrNotSupported)
	}

	return err
}

// errSource carries a structural error discovered inside an iteration,
// where no error return is available. Every conversion reports that error.
type errSource struct{ err error }

var _ Source = errSource{}

func (e errSource) Bool() (bool, error) { return false, e.err }

func (e errSource) Int() (int64, error) { return 0, e.err }

func (e errSource) Uint() (uint64, error) { return 0, e.err }

func (e errSource) Float() (float64, error) { return 0, e.err }

func (e errSource) String() (string, error) { return "", e.err }

func (e errSource) Get(string) (Source, error) { return nil, e.err }

func (e errSource) KeyValues() (iter.Seq2[Source, Source], error) { return nil, e.err }

func (e errSource) Iter() (iter.Seq[Source], error) { return nil, e.err }

func yieldError2(yield func(Source, Source) bool, err error) {
	src := errSource{err}
	yield(src, src)
}
