package jsonb

import "iter"

// Source is the abstract contract between a serialized value and the
// reflection [Decoder]. It describes one value and the conversions it may
// support:
//
//   - Primitive types: Bool, Int, Uint, Float and String.
//   - Objects: Get retrieves the value for a key, KeyValues iterates all
//     key/value pairs in encounter order.
//   - Slices: Iter iterates the elements in encounter order.
//
// A conversion that the underlying value can not provide must return
// [ErrNotSupported], possibly wrapped together with a more specific error.
// Source methods are not required to be idempotent: a Source backed by a
// stream may only be consumed once, which is exactly how the [Decoder]
// uses it. The JSONB [Value] is the Source implementation this package is
// about; [StringSource] and [EmptySource] are small building blocks for
// custom implementations.
type Source interface {
	// Bool returns the current value as a bool.
	Bool() (bool, error)

	// Int returns the current value as an int64.
	Int() (int64, error)

	// Uint returns the current value as an uint64.
	Uint() (uint64, error)

	// Float returns the current value as a float64.
	Float() (float64, error)

	// String returns the current value as a string.
	String() (string, error)

	// Get returns a child value of this Source if it exists. Returns
	// ErrNotSupported if the Source has no child values at all. If it
	// does have children, but not the requested one, it returns
	// ErrNoValue.
	Get(key string) (Source, error)

	// KeyValues interprets the Source as a map and yields its key and
	// value pairs. Returns ErrNotSupported if the Source is not a map.
	KeyValues() (iter.Seq2[Source, Source], error)

	// Iter interprets the Source as a slice and yields its elements.
	// Returns ErrNotSupported if the Source is not iterable.
	Iter() (iter.Seq[Source], error)
}

// BinarySource extends [Source] with conversions to integer and floating
// point values of a specific bit size. The [Decoder] prefers these over
// the generic Int, Uint and Float methods when the source implements them.
// This is how a target field of e.g. type int8 communicates its width to a
// binary format: the source gets asked for an Int8 and can apply the
// format's own range rules instead of an after-the-fact cast.
type BinarySource interface {
	Int8() (int8, error)
	Int16() (int16, error)
	Int32() (int32, error)
	Int64() (int64, error)

	Uint8() (uint8, error)
	Uint16() (uint16, error)
	Uint32() (uint32, error)
	Uint64() (uint64, error)

	Float32() (float32, error)
	Float64() (float64, error)
}

// NullSource is implemented by sources whose format has an explicit null
// value. The [Decoder] checks it before filling a pointer target: a null
// leaves the pointer nil instead of allocating a zero value.
//
// IsNull must not consume the value when it reports false, so that the
// actual conversion can still happen afterwards.
type NullSource interface {
	IsNull() (bool, error)
}
