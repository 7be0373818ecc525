package jsonb

import (
	"fmt"
	"math"
)

// ElementType classifies the payload of a single JSONB element. It is
// stored in the low four bits of the first header byte.
type ElementType uint8

const (
	TypeNull ElementType = iota
	TypeTrue
	TypeFalse
	TypeInt     // canonical JSON integer literal text
	TypeInt5    // JSON5 integer literal text (hex, leading '+')
	TypeFloat   // canonical JSON real literal text
	TypeFloat5  // JSON5 real literal text (Infinity, NaN, bare '.')
	TypeText    // string body with strict JSON escapes
	TypeTextJ   // string body with JSON escapes, lenient
	TypeText5   // string body with JSON5 escapes
	TypeTextRaw // string content verbatim, no escapes
	TypeArray
	TypeObject
	TypeReserved13
	TypeReserved14
	TypeReserved15
)

var elementTypeNames = [16]string{
	"Null", "True", "False", "Int", "Int5", "Float", "Float5",
	"Text", "TextJ", "Text5", "TextRaw", "Array", "Object",
	"Reserved13", "Reserved14", "Reserved15",
}

func (e ElementType) String() string {
	if int(e) < len(elementTypeNames) {
		return elementTypeNames[e]
	}

	return fmt.Sprintf("ElementType(%d)", uint8(e))
}

// isText reports whether e is one of the four string conventions. Only
// text elements may appear as object keys.
func (e ElementType) isText() bool {
	return e >= TypeText && e <= TypeTextRaw
}

// isReserved reports whether e is one of the three tags that are never
// valid in well-formed input.
func (e ElementType) isReserved() bool {
	return e >= TypeReserved13
}

// Header describes one element: its type and the exact number of payload
// bytes that follow it. A header is produced per element during decoding
// and never outlives that element.
type Header struct {
	Type        ElementType
	PayloadSize int
}

// readHeader consumes one header from the cursor: a single tag byte plus
// 0, 1, 2, 4 or 8 trailing length bytes. The high nibble of the tag byte
// selects the length encoding, values 0 to 11 are the payload size itself,
// 12 to 15 announce a 1, 2, 4 or 8 byte big-endian size following. The low
// nibble is the element type. The same payload size may be written in any
// length encoding; non-minimal headers are valid.
func readHeader(cur *cursor) (Header, error) {
	first, err := cur.readByte()
	if err != nil {
		return Header{}, err
	}

	mode := first >> 4

	var size uint64
	if mode <= 11 {
		size = uint64(mode)
	} else {
		// 12, 13, 14, 15 announce 1, 2, 4, 8 trailing bytes
		span, err := cur.read(1 << (mode - 12))
		if err != nil {
			return Header{}, err
		}

		for _, b := range span {
			size = size<<8 | uint64(b)
		}
	}

	if size > math.MaxInt {
		return Header{}, fmt.Errorf("declared payload of %d bytes: %w", size, ErrTruncated)
	}

	return Header{
		Type:        ElementType(first & 0x0f),
		PayloadSize: int(size),
	}, nil
}
