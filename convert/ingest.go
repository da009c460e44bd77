package convert

import (
	"fmt"
	"sort"

	"github.com/anirudhraja/protocodec/registry"
	"github.com/anirudhraja/protocodec/schema"
	"github.com/anirudhraja/protocodec/wire"
)

// ingester walks a plain object against a message schema. In verify mode it
// builds nothing and reports the first problem as a *VerifyError; otherwise it
// builds a message instance and reports shape problems as *TypeMismatchError.
type ingester struct {
	c      *Converter
	verify bool
}

func (in *ingester) fail(path, expected string, v interface{}, err error) error {
	if in.verify {
		if err != nil {
			return invalid(path, "%s expected: %v", expected, err)
		}
		return invalid(path, "%s expected", expected)
	}
	return mismatch(path, expected, v, err)
}

func (in *ingester) message(desc *schema.Message, v interface{}, path string, depth int) (wire.Message, error) {
	if depth > wire.DefaultRecursionLimit {
		return nil, in.fail(path, "shallower object", v, wire.ErrRecursionLimit)
	}
	if registry.IsWellKnownType(desc.FullName) {
		normalized, err := in.wellKnown(desc, v, path, depth)
		if err != nil {
			return nil, err
		}
		v = normalized
	}
	obj, ok := objectOf(v)
	if !ok {
		return nil, in.fail(path, "object", v, nil)
	}

	var out wire.Message
	if !in.verify {
		out = make(wire.Message)
	}
	setOneofs := make(map[*schema.Oneof]*schema.Field)
	for _, field := range desc.FieldsByNumber() {
		fpath := fieldPath(path, field.Name)
		val, present := lookupField(obj, field)
		if val == nil && !isValueType(&field.Type) {
			present = false
		}
		if !present {
			if in.verify && field.Label == schema.LabelRequired {
				return nil, invalid(fpath, "missing required field")
			}
			continue
		}

		if oneof := desc.OneofOf(field); oneof != nil {
			if prev, taken := setOneofs[oneof]; taken {
				if in.verify {
					return nil, invalid(fpath, "oneof %s has more than one member set (%s, %s)", oneof.Name, prev.Name, field.Name)
				}
				// the last member on the wire wins when decoding; mirror that
				delete(out, prev.Name)
			}
			setOneofs[oneof] = field
		}

		converted, err := in.field(field, val, fpath, depth)
		if err != nil {
			return nil, err
		}
		if out != nil {
			out[field.Name] = converted
		}
	}
	return out, nil
}

// lookupField finds a field's value under its proto name or JSON name.
func lookupField(obj map[string]interface{}, field *schema.Field) (interface{}, bool) {
	if v, ok := obj[field.Name]; ok {
		return v, true
	}
	if key := field.JSONKey(); key != field.Name {
		v, ok := obj[key]
		return v, ok
	}
	return nil, false
}

func (in *ingester) field(field *schema.Field, v interface{}, path string, depth int) (interface{}, error) {
	switch {
	case field.Type.Kind == schema.KindMap:
		entries, ok := mapOf(v)
		if !ok {
			return nil, in.fail(path, "object", v, nil)
		}
		keys := make([]string, 0, len(entries))
		for k := range entries {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		out := make(map[interface{}]interface{}, len(entries))
		for _, k := range keys {
			epath := indexPath(path, k)
			key, err := wire.ParseMapKey(k, field.Type.MapKey)
			if err != nil {
				return nil, in.fail(epath, string(field.Type.MapKey.PrimitiveType)+" key", k, err)
			}
			val := entries[k]
			if val == nil && !isValueType(field.Type.MapValue) {
				return nil, in.fail(epath, expectedName(field.Type.MapValue), val, nil)
			}
			converted, err := in.value(field.Type.MapValue, val, epath, depth)
			if err != nil {
				return nil, err
			}
			out[key] = converted
		}
		return out, nil

	case field.Label == schema.LabelRepeated:
		list, ok := listOf(v)
		if !ok {
			return nil, in.fail(path, "array", v, nil)
		}
		out := make([]interface{}, len(list))
		for i, elem := range list {
			epath := indexPath(path, i)
			if elem == nil && !isValueType(&field.Type) {
				return nil, in.fail(epath, expectedName(&field.Type), elem, nil)
			}
			converted, err := in.value(&field.Type, elem, epath, depth)
			if err != nil {
				return nil, err
			}
			out[i] = converted
		}
		return out, nil
	}
	return in.value(&field.Type, v, path, depth)
}

func (in *ingester) value(ft *schema.FieldType, v interface{}, path string, depth int) (interface{}, error) {
	switch ft.Kind {
	case schema.KindPrimitive:
		converted, err := coerceScalar(ft.PrimitiveType, v)
		if err != nil {
			return nil, in.fail(path, string(ft.PrimitiveType), v, err)
		}
		return converted, nil
	case schema.KindEnum:
		n, err := in.c.enumValue(ft.EnumType, v, in.verify)
		if err != nil {
			if in.verify {
				return nil, invalid(path, "%v", err)
			}
			return nil, mismatch(path, expectedName(ft), v, err)
		}
		return n, nil
	case schema.KindMessage:
		desc, err := in.c.message(ft.MessageType)
		if err != nil {
			if in.verify {
				return nil, invalid(path, "%v", err)
			}
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		msg, err := in.message(desc, v, path, depth+1)
		if err != nil {
			return nil, err
		}
		if msg == nil {
			return nil, nil
		}
		return msg, nil
	}
	return nil, in.fail(path, expectedName(ft), v, nil)
}

// isValueType reports whether JSON null is a meaningful value of ft.
func isValueType(ft *schema.FieldType) bool {
	return ft.Kind == schema.KindMessage && ft.MessageType == valueType
}
