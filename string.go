package jsonb

import (
	"errors"
	"fmt"
	"iter"
	"strconv"
)

// StringSource adapts a string to a Source. Primitive conversions parse
// the string using strconv.ParseInt, strconv.ParseFloat and
// strconv.ParseBool; String returns the value as is. Object and slice
// conversions are not supported.
//
// The JSONB object iterator yields decoded keys as StringSource, which is
// what makes map targets with numeric key types work.
type StringSource string

var _ Source = StringSource("")
var _ BinarySource = StringSource("")

func (s StringSource) Bool() (bool, error) {
	parsedValue, err := strconv.ParseBool(string(s))
	return handleSyntaxErr(string(s), parsedValue, err)
}

func (s StringSource) Int() (int64, error) {
	parsedValue, err := strconv.ParseInt(string(s), 10, 64)
	return handleSyntaxErr(string(s), parsedValue, err)
}

func (s StringSource) Uint() (uint64, error) {
	parsedValue, err := strconv.ParseUint(string(s), 10, 64)
	return handleSyntaxErr(string(s), parsedValue, err)
}

func (s StringSource) Float() (float64, error) {
	parsedValue, err := strconv.ParseFloat(string(s), 64)
	return handleSyntaxErr(string(s), parsedValue, err)
}

func (s StringSource) String() (string, error) {
	return string(s), nil
}

func (s StringSource) Int8() (int8, error) {
	intValue, err := strconv.ParseInt(string(s), 10, 8)
	return handleSyntaxErr(string(s), int8(intValue), err)
}

func (s StringSource) Int16() (int16, error) {
	intValue, err := strconv.ParseInt(string(s), 10, 16)
	return handleSyntaxErr(string(s), int16(intValue), err)
}

func (s StringSource) Int32() (int32, error) {
	intValue, err := strconv.ParseInt(string(s), 10, 32)
	return handleSyntaxErr(string(s), int32(intValue), err)
}

func (s StringSource) Int64() (int64, error) {
	intValue, err := strconv.ParseInt(string(s), 10, 64)
	return handleSyntaxErr(string(s), intValue, err)
}

func (s StringSource) Uint8() (uint8, error) {
	intValue, err := strconv.ParseUint(string(s), 10, 8)
	return handleSyntaxErr(string(s), uint8(intValue), err)
}

func (s StringSource) Uint16() (uint16, error) {
	intValue, err := strconv.ParseUint(string(s), 10, 16)
	return handleSyntaxErr(string(s), uint16(intValue), err)
}

func (s StringSource) Uint32() (uint32, error) {
	intValue, err := strconv.ParseUint(string(s), 10, 32)
	return handleSyntaxErr(string(s), uint32(intValue), err)
}

func (s StringSource) Uint64() (uint64, error) {
	intValue, err := strconv.ParseUint(string(s), 10, 64)
	return handleSyntaxErr(string(s), intValue, err)
}

func (s StringSource) Float32() (float32, error) {
	floatValue, err := strconv.ParseFloat(string(s), 32)
	return handleSyntaxErr(string(s), float32(floatValue), err)
}

func (s StringSource) Float64() (float64, error) {
	floatValue, err := strconv.ParseFloat(string(s), 64)
	return handleSyntaxErr(string(s), floatValue, err)
}

func (s StringSource) Get(key string) (Source, error) {
	return nil, ErrNotSupported
}

func (s StringSource) KeyValues() (iter.Seq2[Source, Source], error) {
	return nil, ErrNotSupported
}

func (s StringSource) Iter() (iter.Seq[Source], error) {
	return nil, ErrNotSupported
}

func handleSyntaxErr[T any](inputValue string, value T, err error) (T, error) {
	var zeroValue T
	if errors.Is(err, strconv.ErrSyntax) {
		err := fmt.Errorf("parse value %q: %w", inputValue, err)
		return zeroValue, errors.Join(err, ErrNotSupported)
	}

	if err != nil {
		return zeroValue, err
	}

	return value, nil
}
