package jsonb

import (
	"encoding"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"sync"
	"unsafe"

	"golang.org/x/exp/constraints"
)

// A setter sets the reflect.Value to a value extracted from the given Source
type setter func(Source, reflect.Value) error

// A set of types that are currently in construction
type typeSet map[reflect.Type]struct{}

var tyTextUnmarshaler = reflect.TypeFor[encoding.TextUnmarshaler]()

// Decoder unmarshals a [Source] onto go types. It walks the target type,
// compiles a setter per type it encounters and caches it, then pulls data
// out of the Source using the conversion matching each target: struct
// fields via Get, slices via Iter, maps via KeyValues, scalars via the
// primitive conversions, preferring the sized [BinarySource] methods.
// The zero value is ready to use and equivalent to NewDecoder().
type Decoder struct {
	// the struct tag that is used
	structTag string

	// Cache for setters, indexed by reflect.Type
	setterCache sync.Map

	// Require values for fields. Set to true to fail with ErrNoValue
	// if a value is missing for a struct field
	requireValues bool
}

func NewDecoder() *Decoder {
	return &Decoder{
		structTag: "json",
	}
}

func (d *Decoder) WithTag(structTag string) *Decoder {
	if d.structTag == structTag {
		return d
	}

	return &Decoder{
		structTag:     structTag,
		requireValues: d.requireValues,
	}
}

func (d *Decoder) RequireValues() *Decoder {
	if d.requireValues {
		return d
	}

	return &Decoder{
		structTag:     d.structTag,
		requireValues: true,
	}
}

// Unmarshal decodes the source into target, which must be a non-nil
// pointer to the value to fill.
func (d *Decoder) Unmarshal(source Source, target any) error {
	targetValue := reflect.ValueOf(target).Elem()

	// build the setter for the targets type
	setter, err := d.setterOf(typeSet{}, targetValue.Type())
	if err != nil {
		return err
	}

	return setter(source, targetValue)
}

func (d *Decoder) setterOf(inConstruction typeSet, ty reflect.Type) (setter, error) {
	if cached, ok := d.setterCache.Load(ty); ok {
		return cached.(setter), nil
	}

	if _, ok := inConstruction[ty]; ok {
		// detected a cycle. return a setter that does a cache lookup when executed.
		// we assume that the actual setter will be in the cache once this setter is executed.
		lazySetter := func(source Source, target reflect.Value) error {
			cached, _ := d.setterCache.Load(ty)
			return cached.(setter)(source, target)
		}

		return lazySetter, nil
	}

	inConstruction[ty] = struct{}{}

	setter, err := d.makeSetterOf(inConstruction, ty)
	if err != nil {
		return nil, err
	}

	d.setterCache.Store(ty, setter)

	return setter, nil
}

func (d *Decoder) makeSetterOf(inConstruction typeSet, ty reflect.Type) (setter, error) {
	if reflect.PointerTo(ty).Implements(tyTextUnmarshaler) {
		return setTextUnmarshaler, nil
	}

	switch ty.Kind() {
	case reflect.Bool:
		return setBool, nil

	case reflect.Int:
		switch unsafe.Sizeof(int(0)) {
		case 4:
			return makeSetInt(BinarySource.Int32, reflect.Value.SetInt, math.MinInt, math.MaxInt, false), nil
		case 8:
			return makeSetInt(BinarySource.Int64, reflect.Value.SetInt, math.MinInt, math.MaxInt, false), nil
		default:
			panic("int must be 4 or 8 byte")
		}

	case reflect.Int8:
		return makeSetInt(BinarySource.Int8, reflect.Value.SetInt, math.MinInt8, math.MaxInt8, false), nil

	case reflect.Int16:
		return makeSetInt(BinarySource.Int16, reflect.Value.SetInt, math.MinInt16, math.MaxInt16, false), nil

	case reflect.Int32:
		return makeSetInt(BinarySource.Int32, reflect.Value.SetInt, math.MinInt32, math.MaxInt32, false), nil

	case reflect.Int64:
		return makeSetInt(BinarySource.Int64, reflect.Value.SetInt, math.MinInt64, math.MaxInt64, false), nil

	case reflect.Uint:
		switch unsafe.Sizeof(uint(0)) {
		case 4:
			return makeSetInt(BinarySource.Uint32, reflect.Value.SetUint, 0, math.MaxUint, true), nil
		case 8:
			return makeSetInt(BinarySource.Uint64, reflect.Value.SetUint, 0, math.MaxUint, true), nil
		default:
			panic("uint must be 4 or 8 byte")
		}

	case reflect.Uint8:
		return makeSetInt(BinarySource.Uint8, reflect.Value.SetUint, 0, math.MaxUint8, true), nil

	case reflect.Uint16:
		return makeSetInt(BinarySource.Uint16, reflect.Value.SetUint, 0, math.MaxUint16, true), nil

	case reflect.Uint32:
		return makeSetInt(BinarySource.Uint32, reflect.Value.SetUint, 0, math.MaxUint32, true), nil

	case reflect.Uint64:
		return makeSetInt(BinarySource.Uint64, reflect.Value.SetUint, 0, math.MaxUint64, true), nil

	case reflect.Float32:
		return makeSetFloat(BinarySource.Float32), nil

	case reflect.Float64:
		return makeSetFloat(BinarySource.Float64), nil

	case reflect.String:
		return setString, nil

	case reflect.Pointer:
		return d.makeSetPointer(inConstruction, ty)

	case reflect.Struct:
		return d.makeSetStruct(inConstruction, ty)

	case reflect.Slice:
		return d.makeSetSlice(inConstruction, ty)

	case reflect.Array:
		return d.makeSetArray(inConstruction, ty)

	case reflect.Map:
		return d.makeSetMap(inConstruction, ty)

	default:
		return nil, NotSupportedError{Type: ty}
	}
}

func (d *Decoder) makeSetStruct(inConstruction typeSet, ty reflect.Type) (setter, error) {
	var setters []setter

	structTag := d.structTag
	if structTag == "" {
		structTag = "json"
	}

	fields := fieldsToSerialize(ty, structTag)

	for _, field := range fields {
		de, err := d.setterOf(inConstruction, field.Type)
		if err != nil {
			return nil, fmt.Errorf("setter for field %q: %w", field.Name, err)
		}

		setters = append(setters, de)
	}

	setter := func(source Source, target reflect.Value) error {
		for idx, field := range fields {
			fieldSource, err := source.Get(field.Name)
			switch {
			case errors.Is(err, ErrNoValue):
				if d.requireValues {
					return fmt.Errorf("field %q: %w", field.Name, err)
				}
				// It is okay to not get a value at all,
				// in that case we just skip the field
				continue
			case err != nil:
				return fmt.Errorf("lookup child %q: %w", field.Name, err)
			}

			fieldValue := target.FieldByIndex(field.Index)
			if err := setters[idx](fieldSource, fieldValue); err != nil {
				return fmt.Errorf("set field %q on %q: %w", field.Name, target.Type(), err)
			}
		}

		return nil
	}

	return setter, nil
}

func (d *Decoder) makeSetMap(inConstruction typeSet, ty reflect.Type) (setter, error) {
	keySetter, err := d.setterOf(inConstruction, ty.Key())
	if err != nil {
		return nil, fmt.Errorf("setter for key type %q: %w", ty, err)
	}

	valueSetter, err := d.setterOf(inConstruction, ty.Elem())
	if err != nil {
		return nil, fmt.Errorf("setter for value type %q: %w", ty, err)
	}

	keyType := ty.Key()
	valueType := ty.Elem()

	setter := func(source Source, target reflect.Value) error {
		keyValues, err := source.KeyValues()
		if err != nil {
			return fmt.Errorf("iterate key/value pairs: %w", err)
		}

		mapTarget := reflect.MakeMap(ty)

		for keySource, valueSource := range keyValues {
			keyTarget := reflect.New(keyType).Elem()
			if err := keySetter(keySource, keyTarget); err != nil {
				return fmt.Errorf("set key: %w", err)
			}

			valueTarget := reflect.New(valueType).Elem()
			if err := valueSetter(valueSource, valueTarget); err != nil {
				return fmt.Errorf("set value: %w", err)
			}

			mapTarget.SetMapIndex(keyTarget, valueTarget)
		}

		target.Set(mapTarget)

		return nil
	}

	return setter, nil
}

func (d *Decoder) makeSetSlice(inConstruction typeSet, ty reflect.Type) (setter, error) {
	elementSetter, err := d.setterOf(inConstruction, ty.Elem())
	if err != nil {
		return nil, fmt.Errorf("setter for element type %q: %w", ty, err)
	}

	// an empty element
	placeholderValue := reflect.New(ty.Elem()).Elem()

	setter := func(source Source, target reflect.Value) error {
		sourceIter, err := source.Iter()
		if err != nil {
			return fmt.Errorf("as iter: %w", err)
		}

		for elementSource := range sourceIter {
			// add an empty element to grow the list
			target.Set(reflect.Append(target, placeholderValue))

			idx := target.Len() - 1
			elementValue := target.Index(idx)
			if err := elementSetter(elementSource, elementValue); err != nil {
				return fmt.Errorf("set element idx=%d: %w", idx, err)
			}
		}

		return nil
	}

	return setter, nil
}

func (d *Decoder) makeSetArray(inConstruction typeSet, ty reflect.Type) (setter, error) {
	elementSetter, err := d.setterOf(inConstruction, ty.Elem())
	if err != nil {
		return nil, fmt.Errorf("setter for element type %q: %w", ty, err)
	}

	// number of elements in the array
	elementCount := ty.Len()

	setter := func(source Source, target reflect.Value) error {
		sourceIter, err := source.Iter()
		if err != nil {
			return fmt.Errorf("as iter: %w", err)
		}

		idx := 0
		for elementSource := range sourceIter {
			if idx >= elementCount {
				// extra elements in the source are skipped
				break
			}

			elementValue := target.Index(idx)
			if err := elementSetter(elementSource, elementValue); err != nil {
				return fmt.Errorf("set element idx=%d: %w", idx, err)
			}

			idx++
		}

		return nil
	}

	return setter, nil
}

func (d *Decoder) makeSetPointer(inConstruction typeSet, ty reflect.Type) (setter, error) {
	pointeeType := ty.Elem()

	pointeeSetter, err := d.setterOf(inConstruction, pointeeType)
	if err != nil {
		return nil, err
	}

	setter := func(source Source, target reflect.Value) error {
		if nullSource, ok := source.(NullSource); ok {
			isNull, err := nullSource.IsNull()
			if err != nil {
				return fmt.Errorf("check for null: %w", err)
			}

			if isNull {
				// an explicit null clears the pointer
				target.SetZero()
				return nil
			}
		}

		// newValue is now a pointer to an instance of the pointeeType
		newValue := reflect.New(pointeeType)
		if err := pointeeSetter(source, newValue.Elem()); err != nil {
			return err
		}

		// set pointer to the new value
		target.Set(newValue)

		return nil
	}

	return setter, err
}

func setBool(source Source, target reflect.Value) error {
	boolValue, err := source.Bool()
	if err != nil {
		return fmt.Errorf("get bool value: %w", err)
	}

	target.SetBool(boolValue)
	return nil
}

func makeSetInt[T constraints.Integer, V uint64 | int64](
	parse func(BinarySource) (T, error),
	setValue func(reflect.Value, V),
	minValue, maxValue V,
	isUnsigned bool,
) setter {
	return func(source Source, target reflect.Value) error {
		if binSource, ok := source.(BinarySource); ok {
			parsedValue, err := parse(binSource)
			if err != nil {
				return fmt.Errorf("get %T value: %w", parsedValue, err)
			}

			setValue(target, V(parsedValue))
			return nil
		}

		var vZero V

		if isUnsigned {
			// no binary source, fall back to Source.Uint
			uintValue, err := source.Uint()
			if err != nil {
				return fmt.Errorf("get uint value: %w", err)
			}

			if V(uintValue) > maxValue {
				return fmt.Errorf("invalid %T value %d: %w", vZero, uintValue, strconv.ErrRange)
			}

			setValue(target, V(uintValue))
			return nil
		}

		intValue, err := source.Int()
		if err != nil {
			return fmt.Errorf("get int value: %w", err)
		}

		if V(intValue) < minValue || V(intValue) > maxValue {
			return fmt.Errorf("invalid %T value %d: %w", vZero, intValue, strconv.ErrRange)
		}

		setValue(target, V(intValue))
		return nil
	}
}

func makeSetFloat[T constraints.Float](parse func(BinarySource) (T, error)) setter {
	return func(source Source, target reflect.Value) error {
		if binSource, ok := source.(BinarySource); ok {
			parsedValue, err := parse(binSource)
			if err != nil {
				return fmt.Errorf("get %T value: %w", parsedValue, err)
			}

			target.SetFloat(float64(parsedValue))
			return nil
		}

		floatValue, err := source.Float()
		if err != nil {
			return fmt.Errorf("get float value: %w", err)
		}

		target.SetFloat(floatValue)
		return nil
	}
}

func setString(source Source, target reflect.Value) error {
	stringValue, err := source.String()
	if err != nil {
		return fmt.Errorf("get string value: %w", err)
	}

	target.SetString(stringValue)

	return nil
}

func setTextUnmarshaler(source Source, target reflect.Value) error {
	text, err := source.String()
	if err != nil {
		return fmt.Errorf("get string value: %w", err)
	}

	m := target.Addr().Interface().(encoding.TextUnmarshaler)
	return m.UnmarshalText([]byte(text))
}
