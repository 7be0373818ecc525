package jsonb

import (
	"reflect"
	"slices"
	"strings"
)

type field struct {
	Name  string
	Type  reflect.Type
	Index []int
}

// fieldsToSerialize resolves the visible fields of a struct type under the
// given struct tag, applying the same embedding rules as encoding/json:
// fields of embedded structs are promoted, a shallower field shadows a
// deeper one with the same name, and on equal depth an explicitly tagged
// field wins. An unresolvable conflict silently drops the name.
func fieldsToSerialize(ty reflect.Type, structTag string) []field {
	if ty.Kind() != reflect.Struct {
		panic("not a struct")
	}

	type queued struct {
		Type        reflect.Type
		ParentIndex []int
	}

	type candidate struct {
		Explicit bool
		Field    field
	}

	// walk the type in breadth first order so that candidates for a name
	// arrive sorted by embedding depth
	queue := []queued{{Type: ty}}

	candidates := map[string][]candidate{}

	var order []string

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		for idx := range item.Type.NumField() {
			fi := item.Type.Field(idx)
			if !fi.IsExported() {
				continue
			}

			name, explicit := nameOf(fi, structTag)
			if name == "" {
				// this one is skipped
				continue
			}

			// derive the index of this field. ensure we allocate a new slice
			// by capping the parents index
			parent := item.ParentIndex
			index := append(parent[:len(parent):len(parent)], fi.Index...)

			if fi.Anonymous && !explicit {
				// embedded field without explicit name. only embedded
				// structs promote their fields
				if fi.Type.Kind() != reflect.Struct {
					continue
				}

				queue = append(queue, queued{fi.Type, index})
				continue
			}

			if len(candidates[name]) == 0 {
				order = append(order, name)
			}

			candidates[name] = append(candidates[name], candidate{
				Explicit: explicit,
				Field: field{
					Name:  name,
					Index: index,
					Type:  fi.Type,
				},
			})
		}
	}

	var fields []field

	for _, name := range order {
		candidates := candidates[name]

		// all candidates of the shallowest embedding depth are visible,
		// everything deeper is shadowed
		depth := len(candidates[0].Field.Index)
		visible := candidates[:0:0]
		for _, c := range candidates {
			if len(c.Field.Index) == depth {
				visible = append(visible, c)
			}
		}

		if len(visible) == 1 {
			fields = append(fields, visible[0].Field)
			continue
		}

		// on equal depth, a single explicitly tagged candidate wins
		explicit := slices.DeleteFunc(visible, func(c candidate) bool { return !c.Explicit })
		if len(explicit) == 1 {
			fields = append(fields, explicit[0].Field)
			continue
		}

		// no single candidate. the name is dropped without an error
	}

	return fields
}

func nameOf(fi reflect.StructField, structTag string) (name string, explicit bool) {
	// parse the struct tag to get a renamed alias
	tag := fi.Tag.Get(structTag)

	if tag == "" {
		// tag is empty, take the original name
		return fi.Name, false
	}

	if tag == "-" {
		// empty name indicates: skip this field
		return "", true
	}

	idx := strings.IndexByte(tag, ',')
	switch {
	case idx == -1:
		// no comma, take the full tag as explicit name
		return tag, true

	case idx > 0:
		// non empty alias, take up to the comma
		return tag[:idx], true

	default:
		// no alias before the comma, keep the field name
		return fi.Name, false
	}
}
