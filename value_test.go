package jsonb

import (
	"bytes"
	"math"
	"strconv"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/require"
)

// encElem assembles one element using the smallest header that fits the
// payload. Tests that need a specific non-minimal header spell out the
// bytes directly.
func encElem(ty ElementType, payload string) []byte {
	n := len(payload)

	var out []byte
	switch {
	case n <= 11:
		out = append(out, byte(n)<<4|byte(ty))
	case n <= math.MaxUint8:
		out = append(out, 0xc0|byte(ty), byte(n))
	default:
		out = append(out, 0xd0|byte(ty), byte(n>>8), byte(n))
	}

	return append(out, payload...)
}

func encText(s string) []byte { return encElem(TypeText, s) }

func encInt(s string) []byte { return encElem(TypeInt, s) }

func encFloat(s string) []byte { return encElem(TypeFloat, s) }

// encArray concatenates the encoded children into an Array element.
func encArray(children ...[]byte) []byte {
	return encElem(TypeArray, string(bytes.Join(children, nil)))
}

// encObject concatenates the encoded members, alternating key and value,
// into an Object element.
func encObject(members ...[]byte) []byte {
	return encElem(TypeObject, string(bytes.Join(members, nil)))
}

func TestDecodeNull(t *testing.T) {
	value, err := UnmarshalNew[*int]([]byte{0x00})
	require.NoError(t, err)
	require.Nil(t, value)
}

func TestDecodeNullClearsPointer(t *testing.T) {
	five := 5
	target := &five

	err := Unmarshal([]byte{0x00}, &target)
	require.NoError(t, err)
	require.Nil(t, target)
}

func TestDecodeNullWithPayload(t *testing.T) {
	// a Null may declare payload bytes, they carry no meaning and are
	// skipped
	value, err := UnmarshalNew[*string](encElem(TypeNull, "xx"))
	require.NoError(t, err)
	require.Nil(t, value)
}

func TestDecodeBool(t *testing.T) {
	value, err := UnmarshalNew[bool]([]byte{0x01})
	require.NoError(t, err)
	require.Equal(t, value, true)

	value, err = UnmarshalNew[bool]([]byte{0x02})
	require.NoError(t, err)
	require.Equal(t, value, false)
}

func TestDecodeTypeMismatch(t *testing.T) {
	_, err := UnmarshalNew[int]([]byte{0x01})

	var typeErr UnexpectedTypeError
	require.ErrorAs(t, err, &typeErr)
	require.Equal(t, typeErr.Actual, TypeTrue)

	// no coercion between the scalar families
	_, err = UnmarshalNew[float64](encInt("1"))
	require.ErrorAs(t, err, &typeErr)
	require.Equal(t, typeErr.Actual, TypeInt)

	_, err = UnmarshalNew[int64](encFloat("1.0"))
	require.ErrorAs(t, err, &typeErr)
	require.Equal(t, typeErr.Actual, TypeFloat)

	_, err = UnmarshalNew[string](encInt("1"))
	require.ErrorAs(t, err, &typeErr)
	require.Equal(t, typeErr.Actual, TypeInt)
}

func TestDecodeIntHeaderEncodings(t *testing.T) {
	// the same element, the integer 1, in all five length encodings
	encodings := [][]byte{
		{0x13, '1'},
		{0xc3, 0x01, '1'},
		{0xd3, 0x00, 0x01, '1'},
		{0xe3, 0x00, 0x00, 0x00, 0x01, '1'},
		{0xf3, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, '1'},
	}

	for _, data := range encodings {
		intValue, err := UnmarshalNew[int](data)
		require.NoError(t, err)
		require.Equal(t, intValue, 1)

		int8Value, err := UnmarshalNew[int8](data)
		require.NoError(t, err)
		require.Equal(t, int8Value, int8(1))

		uint16Value, err := UnmarshalNew[uint16](data)
		require.NoError(t, err)
		require.Equal(t, uint16Value, uint16(1))

		uint64Value, err := UnmarshalNew[uint64](data)
		require.NoError(t, err)
		require.Equal(t, uint64Value, uint64(1))
	}
}

func TestDecodeIntExtremes(t *testing.T) {
	maxUint64, err := UnmarshalNew[uint64](encInt("18446744073709551615"))
	require.NoError(t, err)
	require.Equal(t, maxUint64, uint64(math.MaxUint64))

	minInt64, err := UnmarshalNew[int64](encInt("-9223372036854775808"))
	require.NoError(t, err)
	require.Equal(t, minInt64, int64(math.MinInt64))
}

func TestDecodeIntOutOfRange(t *testing.T) {
	_, err := UnmarshalNew[int8](encInt("128"))
	require.ErrorIs(t, err, strconv.ErrRange)

	_, err = UnmarshalNew[uint32](encInt("-1"))
	require.ErrorIs(t, err, strconv.ErrRange)

	_, err = UnmarshalNew[int64](encInt("9223372036854775808"))
	require.ErrorIs(t, err, strconv.ErrRange)
}

func TestDecodeIntMalformed(t *testing.T) {
	for _, text := range []string{"", "01", "1e4", "0x1a", "+7", "foobar"} {
		_, err := UnmarshalNew[int](encInt(text))
		require.ErrorIs(t, err, ErrNotSupported, "literal %q", text)
	}
}

func TestDecodeInt5(t *testing.T) {
	value, err := UnmarshalNew[int](encElem(TypeInt5, "0x1a"))
	require.NoError(t, err)
	require.Equal(t, value, 26)

	value, err = UnmarshalNew[int](encElem(TypeInt5, "-0x10"))
	require.NoError(t, err)
	require.Equal(t, value, -16)

	value, err = UnmarshalNew[int](encElem(TypeInt5, "+7"))
	require.NoError(t, err)
	require.Equal(t, value, 7)

	unsigned, err := UnmarshalNew[uint8](encElem(TypeInt5, "0xFF"))
	require.NoError(t, err)
	require.Equal(t, unsigned, uint8(255))
}

func TestDecodeFloat(t *testing.T) {
	value, err := UnmarshalNew[float64](encFloat("1.5"))
	require.NoError(t, err)
	require.Equal(t, value, 1.5)

	value, err = UnmarshalNew[float64](encFloat("-2e3"))
	require.NoError(t, err)
	require.Equal(t, value, -2000.0)

	small, err := UnmarshalNew[float32](encFloat("0.25"))
	require.NoError(t, err)
	require.Equal(t, small, float32(0.25))
}

func TestDecodeFloatMalformed(t *testing.T) {
	for _, text := range []string{"", ".5", "5.", "+1.5", "01.5", "1e", "Infinity", "NaN"} {
		_, err := UnmarshalNew[float64](encFloat(text))
		require.ErrorIs(t, err, ErrNotSupported, "literal %q", text)
	}
}

func TestDecodeFloat5(t *testing.T) {
	value, err := UnmarshalNew[float64](encElem(TypeFloat5, "Infinity"))
	require.NoError(t, err)
	require.True(t, math.IsInf(value, 1))

	value, err = UnmarshalNew[float64](encElem(TypeFloat5, "-Infinity"))
	require.NoError(t, err)
	require.True(t, math.IsInf(value, -1))

	value, err = UnmarshalNew[float64](encElem(TypeFloat5, "NaN"))
	require.NoError(t, err)
	require.True(t, math.IsNaN(value))

	value, err = UnmarshalNew[float64](encElem(TypeFloat5, ".5"))
	require.NoError(t, err)
	require.Equal(t, value, 0.5)

	value, err = UnmarshalNew[float64](encElem(TypeFloat5, "5."))
	require.NoError(t, err)
	require.Equal(t, value, 5.0)

	value, err = UnmarshalNew[float64](encElem(TypeFloat5, "+1.5"))
	require.NoError(t, err)
	require.Equal(t, value, 1.5)
}

func TestDecodeText(t *testing.T) {
	value, err := UnmarshalNew[string](encText("hello"))
	require.NoError(t, err)
	require.Equal(t, value, "hello")

	value, err = UnmarshalNew[string](encText(`a\nb`))
	require.NoError(t, err)
	require.Equal(t, value, "a\nb")

	value, err = UnmarshalNew[string](encText(`\u00e9`))
	require.NoError(t, err)
	require.Equal(t, value, "é")

	// surrogate pair
	value, err = UnmarshalNew[string](encText(`\ud83d\ude00`))
	require.NoError(t, err)
	require.Equal(t, value, "😀")

	// an unpaired surrogate half becomes the replacement character
	value, err = UnmarshalNew[string](encText(`\ud800`))
	require.NoError(t, err)
	require.Equal(t, value, "�")
}

func TestDecodeTextControlCharacters(t *testing.T) {
	// a raw newline in the body is rejected by the strict convention but
	// tolerated by the lenient one
	_, err := UnmarshalNew[string](encElem(TypeText, "a\nb"))
	require.ErrorIs(t, err, ErrNotSupported)

	value, err := UnmarshalNew[string](encElem(TypeTextJ, "a\nb"))
	require.NoError(t, err)
	require.Equal(t, value, "a\nb")
}

func TestDecodeText5(t *testing.T) {
	value, err := UnmarshalNew[string](encElem(TypeText5, `\x41`))
	require.NoError(t, err)
	require.Equal(t, value, "A")

	value, err = UnmarshalNew[string](encElem(TypeText5, `\'`))
	require.NoError(t, err)
	require.Equal(t, value, "'")

	// escaped line terminator contributes nothing
	value, err = UnmarshalNew[string](encElem(TypeText5, "a\\\nb"))
	require.NoError(t, err)
	require.Equal(t, value, "ab")

	// identity escape
	value, err = UnmarshalNew[string](encElem(TypeText5, `\q`))
	require.NoError(t, err)
	require.Equal(t, value, "q")

	// the same escape is invalid under the strict convention
	_, err = UnmarshalNew[string](encElem(TypeText, `\q`))
	require.ErrorIs(t, err, ErrNotSupported)
}

func TestDecodeTextRaw(t *testing.T) {
	// no escape processing at all, a backslash is just a byte
	value, err := UnmarshalNew[string](encElem(TypeTextRaw, `a\nb`))
	require.NoError(t, err)
	require.Equal(t, value, `a\nb`)

	_, err = UnmarshalNew[string](encElem(TypeTextRaw, "\xff"))
	require.ErrorIs(t, err, ErrInvalidUTF8)
}

func TestDecodeSlice(t *testing.T) {
	data := encArray(encInt("1"), encInt("2"), encInt("3"))

	value, err := UnmarshalNew[[]int](data)
	require.NoError(t, err)
	require.Equal(t, value, []int{1, 2, 3})
}

func TestDecodeArray(t *testing.T) {
	data := encArray(encText("first"), encText("second"), encText("third"))

	// extra elements are skipped without error
	short, err := UnmarshalNew[[2]string](data)
	require.NoError(t, err)
	require.Equal(t, short, [2]string{"first", "second"})

	// missing elements stay zero
	long, err := UnmarshalNew[[4]string](data)
	require.NoError(t, err)
	require.Equal(t, long, [4]string{"first", "second", "third", ""})
}

func TestDecodeStruct(t *testing.T) {
	type Address struct {
		City string `json:"city"`
		Zip  int32  `json:"zip"`
	}

	type Person struct {
		Name    string   `json:"name"`
		Age     int64    `json:"age"`
		Height  float32  `json:"height"`
		Tags    []string `json:"tags"`
		Address *Address `json:"address"`
		Partner *Person  `json:"partner"`
	}

	data := encObject(
		encText("name"), encText("Albert"),
		encText("age"), encInt("21"),
		encText("height"), encFloat("1.76"),
		encText("tags"), encArray(encText("foo"), encText("bar")),
		encText("address"), encObject(
			encText("city"), encText("Zürich"),
			encText("zip"), encInt("8015"),
		),
		encText("partner"), []byte{0x00},
	)

	value, err := UnmarshalNew[Person](data)
	require.NoError(t, err)
	require.Equal(t, value, Person{
		Name:   "Albert",
		Age:    21,
		Height: 1.76,
		Tags:   []string{"foo", "bar"},
		Address: &Address{
			City: "Zürich",
			Zip:  8015,
		},
	})
}

func TestDecodeStructFieldOrder(t *testing.T) {
	type Struct struct {
		A string `json:"a"`
		B string `json:"b"`
	}

	// member order in the payload does not need to match the field order
	data := encObject(
		encText("b"), encText("second"),
		encText("a"), encText("first"),
	)

	value, err := UnmarshalNew[Struct](data)
	require.NoError(t, err)
	require.Equal(t, value, Struct{A: "first", B: "second"})
}

func TestDecodeStructMissingField(t *testing.T) {
	type Struct struct {
		A string `json:"a"`
		B string `json:"b"`
	}

	data := encObject(encText("a"), encText("only"))

	value, err := UnmarshalNew[Struct](data)
	require.NoError(t, err)
	require.Equal(t, value, Struct{A: "only"})
}

func TestDecodeStructDuplicateKey(t *testing.T) {
	type Struct struct {
		A string `json:"a"`
	}

	// the first occurrence of a key wins
	data := encObject(
		encText("a"), encText("first"),
		encText("a"), encText("second"),
	)

	value, err := UnmarshalNew[Struct](data)
	require.NoError(t, err)
	require.Equal(t, value, Struct{A: "first"})
}

func TestDecodeMap(t *testing.T) {
	data := encObject(
		encText("one"), encInt("1"),
		encText("two"), encInt("2"),
	)

	value, err := UnmarshalNew[map[string]int](data)
	require.NoError(t, err)
	require.Equal(t, value, map[string]int{"one": 1, "two": 2})
}

func TestDecodeMapIntKeys(t *testing.T) {
	// keys are text on the wire, the decoder parses them into the key type
	data := encObject(
		encText("1"), encText("one"),
		encText("2"), encText("two"),
	)

	value, err := UnmarshalNew[map[int]string](data)
	require.NoError(t, err)
	require.Equal(t, value, map[int]string{1: "one", 2: "two"})
}

func TestDecodeObjectKeyConventions(t *testing.T) {
	// any of the four text types may appear as a key
	data := encObject(
		encElem(TypeTextRaw, "raw"), encInt("1"),
		encElem(TypeText5, `\x61`), encInt("2"),
	)

	value, err := UnmarshalNew[map[string]int](data)
	require.NoError(t, err)
	require.Equal(t, value, map[string]int{"raw": 1, "a": 2})
}

func TestDecodeObjectNonTextKey(t *testing.T) {
	data := encObject(encInt("1"), encText("one"))

	_, err := UnmarshalNew[map[string]string](data)

	var typeErr UnexpectedTypeError
	require.ErrorAs(t, err, &typeErr)
	require.Equal(t, typeErr.Expected, "object key")

	type Struct struct {
		A string `json:"a"`
	}

	_, err = UnmarshalNew[Struct](data)
	require.ErrorAs(t, err, &typeErr)
}

func TestDecodeObjectDanglingKey(t *testing.T) {
	// the payload ends after a key, its value is missing
	data := encObject(encText("a"))

	_, err := UnmarshalNew[map[string]string](data)
	require.ErrorIs(t, err, ErrDanglingKey)

	type Struct struct {
		A string `json:"a"`
	}

	_, err = UnmarshalNew[Struct](data)
	require.ErrorIs(t, err, ErrDanglingKey)
}

func TestDecodeTrailingData(t *testing.T) {
	err := Unmarshal([]byte{0x01, 0xff}, new(bool))
	require.ErrorIs(t, err, ErrTrailingData)

	err = UnmarshalReader(bytes.NewReader([]byte{0x01, 0xff}), new(bool))
	require.ErrorIs(t, err, ErrTrailingData)
}

func TestDecodeTruncated(t *testing.T) {
	// no input at all
	err := Unmarshal(nil, new(bool))
	require.ErrorIs(t, err, ErrTruncated)

	// header declares one trailing size byte that is missing
	err = Unmarshal([]byte{0xc3}, new(int))
	require.ErrorIs(t, err, ErrTruncated)

	// payload shorter than declared
	err = Unmarshal([]byte{0x33, '1'}, new(int))
	require.ErrorIs(t, err, ErrTruncated)

	err = UnmarshalReader(bytes.NewReader([]byte{0x33, '1'}), new(int))
	require.ErrorIs(t, err, ErrTruncated)
}

func TestDecodeChildOverrun(t *testing.T) {
	// array payload of two bytes containing a child that declares three
	data := []byte{0x2b, 0x33, '1'}

	_, err := UnmarshalNew[[]int](data)
	require.ErrorIs(t, err, ErrOverrun)
}

func TestDecodeReservedType(t *testing.T) {
	for _, tag := range []byte{0x0d, 0x0e, 0x0f} {
		_, err := UnmarshalNew[*int]([]byte{tag})

		var typeErr UnexpectedTypeError
		require.ErrorAs(t, err, &typeErr)
		require.True(t, typeErr.Actual.isReserved())
	}
}

type deep []deep

func nestedArrays(levels int) []byte {
	data := encArray()
	for range levels {
		data = encArray(data)
	}

	return data
}

func TestDecodeDepthLimit(t *testing.T) {
	_, err := UnmarshalNew[deep](nestedArrays(50))
	require.NoError(t, err)

	_, err = UnmarshalNew[deep](nestedArrays(2 * DefaultMaxDepth))
	require.ErrorIs(t, err, ErrTooDeep)
}

func TestDecodeCustomMaxDepth(t *testing.T) {
	value := FromBytes(nestedArrays(10))
	value.MaxDepth(5)

	var d Decoder
	err := d.Unmarshal(value, new(deep))
	require.ErrorIs(t, err, ErrTooDeep)
}

func TestDecodeFromReader(t *testing.T) {
	type Struct struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	data := encObject(
		encText("name"), encText("reader"),
		encText("count"), encInt("3"),
	)

	var value Struct
	err := UnmarshalReader(bytes.NewReader(data), &value)
	require.NoError(t, err)
	require.Equal(t, value, Struct{Name: "reader", Count: 3})

	// a reader that hands out one byte at a time must work the same
	value = Struct{}
	err = UnmarshalReader(iotest.OneByteReader(bytes.NewReader(data)), &value)
	require.NoError(t, err)
	require.Equal(t, value, Struct{Name: "reader", Count: 3})
}

func TestDecodeArrayLeavesNoTrailingData(t *testing.T) {
	// decoding into a shorter array abandons the extra elements; they must
	// still be accounted for when checking for trailing input
	data := encArray(encInt("1"), encInt("2"), encInt("3"))

	value, err := UnmarshalNew[[1]int](data)
	require.NoError(t, err)
	require.Equal(t, value, [1]int{1})
}

func TestValueStringDirect(t *testing.T) {
	// the Value layer is usable without the reflection decoder
	value := FromBytes(encText("direct"))

	text, err := value.String()
	require.NoError(t, err)
	require.Equal(t, text, "direct")
}

func TestValueGetMultipleLookups(t *testing.T) {
	data := encObject(
		encText("a"), encInt("1"),
		encText("b"), encInt("2"),
	)

	value := FromBytes(data)

	b, err := value.Get("b")
	require.NoError(t, err)
	bValue, err := b.Int()
	require.NoError(t, err)
	require.Equal(t, bValue, int64(2))

	// a second lookup rescans the buffered payload
	a, err := value.Get("a")
	require.NoError(t, err)
	aValue, err := a.Int()
	require.NoError(t, err)
	require.Equal(t, aValue, int64(1))

	_, err = value.Get("missing")
	require.ErrorIs(t, err, ErrNoValue)
}
