package jsonb

import "io"

// The default Decoder instance.
var dec Decoder

// Unmarshal decodes data, one complete JSONB element, into target, which
// must be a non-nil pointer. Bytes left over after the element fail the
// decode with ErrTrailingData.
func Unmarshal(data []byte, target any) error {
	return dec.UnmarshalBytes(data, target)
}

// UnmarshalReader decodes one complete JSONB element from r into target.
// The reader must not hold any bytes beyond the element.
func UnmarshalReader(r io.Reader, target any) error {
	return dec.UnmarshalReader(r, target)
}

// UnmarshalNew decodes data into a newly created instance of T.
func UnmarshalNew[T any](data []byte) (T, error) {
	return UnmarshalNewWith[T](&dec, data)
}

func UnmarshalNewWith[T any](dec *Decoder, data []byte) (T, error) {
	var target T
	err := dec.UnmarshalBytes(data, &target)
	return target, err
}

// UnmarshalBytes decodes the JSONB element in data into target.
func (d *Decoder) UnmarshalBytes(data []byte, target any) error {
	return d.unmarshalValue(FromBytes(data), target)
}

// UnmarshalReader decodes one JSONB element from r into target.
func (d *Decoder) UnmarshalReader(r io.Reader, target any) error {
	return d.unmarshalValue(FromReader(r), target)
}

func (d *Decoder) unmarshalValue(value *Value, target any) error {
	if err := d.Unmarshal(value, target); err != nil {
		return err
	}

	// skip payload bytes the target did not ask for, e.g. the tail of an
	// array decoded into a shorter fixed-size array, then require that
	// the input ends here
	if err := value.finish(); err != nil {
		return err
	}

	return value.cur.expectEOF()
}
