package wire

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/anirudhraja/protocodec/schema"
)

// Map fields travel as repeated entry messages with the key in field 1 and
// the value in field 2.
const (
	mapKeyField   FieldNumber = 1
	mapValueField FieldNumber = 2
)

type mapEntry struct {
	key   interface{}
	value interface{}
}

// writeMap encodes every entry of a map field, sorted by key.
func (e *Encoder) writeMap(field *schema.Field, value interface{}) error {
	keyType, valueType := field.Type.MapKey, field.Type.MapValue
	entries, err := mapEntries(value, keyType)
	if err != nil {
		return err
	}
	sort.Slice(entries, func(i, j int) bool {
		return lessMapKey(entries[i].key, entries[j].key)
	})

	for _, entry := range entries {
		e.w.Tag(FieldNumber(field.Number), WireBytes).Fork()
		e.w.Tag(mapKeyField, WireTypeOf(keyType))
		if err := e.writeValue(keyType, entry.key); err != nil {
			return wrapWithField(err, fmt.Sprintf("[%v]", entry.key))
		}
		if entry.value != nil {
			e.w.Tag(mapValueField, WireTypeOf(valueType))
			if err := e.writeValue(valueType, entry.value); err != nil {
				return wrapWithField(err, fmt.Sprintf("[%v]", entry.key))
			}
		}
		if err := e.w.Ldelim(); err != nil {
			return err
		}
	}
	return nil
}

// mapEntries flattens the supported map representations.
func mapEntries(value interface{}, keyType *schema.FieldType) ([]mapEntry, error) {
	var entries []mapEntry
	switch v := value.(type) {
	case map[interface{}]interface{}:
		for k, val := range v {
			entries = append(entries, mapEntry{k, val})
		}
	case map[string]interface{}:
		for k, val := range v {
			key, err := ParseMapKey(k, keyType)
			if err != nil {
				return nil, err
			}
			entries = append(entries, mapEntry{key, val})
		}
	case map[string]string:
		for k, val := range v {
			entries = append(entries, mapEntry{k, val})
		}
	case map[string]int64:
		for k, val := range v {
			entries = append(entries, mapEntry{k, val})
		}
	case map[int32]string:
		for k, val := range v {
			entries = append(entries, mapEntry{k, val})
		}
	case map[string]float64:
		for k, val := range v {
			entries = append(entries, mapEntry{k, val})
		}
	default:
		return nil, fmt.Errorf("unsupported map type: %T", value)
	}
	return entries, nil
}

// ParseMapKey converts a map key in string form (as JSON objects carry them)
// to the key type's message instance representation.
func ParseMapKey(k string, keyType *schema.FieldType) (interface{}, error) {
	switch keyType.PrimitiveType {
	case schema.TypeString:
		return k, nil
	case schema.TypeBool:
		return strconv.ParseBool(k)
	case schema.TypeInt32, schema.TypeSint32, schema.TypeSfixed32:
		n, err := strconv.ParseInt(k, 10, 32)
		return int32(n), err
	case schema.TypeInt64, schema.TypeSint64, schema.TypeSfixed64:
		return strconv.ParseInt(k, 10, 64)
	case schema.TypeUint32, schema.TypeFixed32:
		n, err := strconv.ParseUint(k, 10, 32)
		return uint32(n), err
	case schema.TypeUint64, schema.TypeFixed64:
		return strconv.ParseUint(k, 10, 64)
	}
	return nil, fmt.Errorf("invalid map key type %s", keyType.PrimitiveType)
}

func lessMapKey(a, b interface{}) bool {
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return x < y
		}
	case bool:
		if y, ok := b.(bool); ok {
			return !x && y
		}
	}
	if x, err := asInt64(a); err == nil {
		if y, err := asInt64(b); err == nil {
			return x < y
		}
	}
	if x, err := asUint64(a); err == nil {
		if y, err := asUint64(b); err == nil {
			return x < y
		}
	}
	return fmt.Sprint(a) < fmt.Sprint(b)
}

// readMapEntry decodes one entry message. Missing keys or values take the
// zero value of their type.
func (d *Decoder) readMapEntry(r *Reader, keyType, valueType *schema.FieldType, depth int) (interface{}, interface{}, error) {
	var key, value interface{}
	for !r.EOF() {
		num, wt, err := r.Tag()
		if err != nil {
			return nil, nil, err
		}
		switch {
		case num == mapKeyField && wt == WireTypeOf(keyType):
			if key, err = d.readValue(r, keyType, nil, depth); err != nil {
				return nil, nil, fmt.Errorf("failed to decode map key: %w", err)
			}
		case num == mapValueField && wt == WireTypeOf(valueType):
			if value, err = d.readValue(r, valueType, value, depth); err != nil {
				return nil, nil, fmt.Errorf("failed to decode map value: %w", err)
			}
		default:
			if err := r.SkipType(wt); err != nil {
				return nil, nil, err
			}
		}
	}
	if key == nil {
		key = ZeroValue(keyType)
	}
	if value == nil {
		if valueType.Kind == schema.KindMessage {
			value = Message{}
		} else {
			value = ZeroValue(valueType)
		}
	}
	return key, value, nil
}
