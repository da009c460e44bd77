package convert

import (
	"encoding/base64"
	"fmt"
	"strconv"

	"github.com/anirudhraja/protocodec/registry"
	"github.com/anirudhraja/protocodec/schema"
	"github.com/anirudhraja/protocodec/wire"
)

// LongFormat selects how 64-bit integers are rendered.
type LongFormat int

const (
	LongsNative LongFormat = iota // int64 / uint64
	LongsString                   // decimal string
)

// EnumFormat selects how enum values are rendered.
type EnumFormat int

const (
	EnumsNumber EnumFormat = iota // int32 number
	EnumsString                   // value name; unknown numbers stay numbers
)

// BytesFormat selects how bytes fields are rendered.
type BytesFormat int

const (
	BytesBase64 BytesFormat = iota // standard base64 string
	BytesArray                     // []interface{} of ints
)

// ToObjectOptions controls ToObject rendering. The zero value renders only
// the fields present in the message, with native numbers, enum numbers and
// base64 bytes under proto field names.
type ToObjectOptions struct {
	// Defaults includes absent fields: scalars and enums with their default,
	// messages as nil, lists and maps empty. Oneof members are never defaulted.
	Defaults bool
	// Arrays includes absent repeated fields as empty lists.
	Arrays bool
	// Objects includes absent map fields as empty objects.
	Objects bool
	// Oneofs adds a key per set oneof naming the member that is set.
	Oneofs bool

	Longs LongFormat
	Enums EnumFormat
	Bytes BytesFormat

	// JSONNames keys fields by their JSON name instead of their proto name.
	JSONNames bool
	// WellKnownJSON renders nested well-known types in their JSON form:
	// RFC 3339 timestamps, "1.5s" durations, bare wrapper values and so on.
	WellKnownJSON bool
}

// ToObject renders a message instance as a plain object. The root is always
// an object, whatever its type.
func (c *Converter) ToObject(typeName string, msg wire.Message, opts ToObjectOptions) (map[string]interface{}, error) {
	desc, err := c.message(typeName)
	if err != nil {
		return nil, err
	}
	return c.object(desc, msg, opts, 0)
}

func (c *Converter) object(desc *schema.Message, msg wire.Message, opts ToObjectOptions, depth int) (map[string]interface{}, error) {
	if depth > wire.DefaultRecursionLimit {
		return nil, wire.ErrRecursionLimit
	}
	out := make(map[string]interface{}, len(msg))
	for _, field := range desc.FieldsByNumber() {
		key := field.Name
		if opts.JSONNames {
			key = field.JSONKey()
		}
		oneof := desc.OneofOf(field)

		v, present := msg[field.Name]
		if !present || v == nil {
			switch {
			case field.Type.Kind == schema.KindMap:
				if opts.Objects || opts.Defaults {
					out[key] = map[string]interface{}{}
				}
			case field.Label == schema.LabelRepeated:
				if opts.Arrays || opts.Defaults {
					out[key] = []interface{}{}
				}
			case opts.Defaults && oneof == nil:
				if field.Type.Kind == schema.KindMessage {
					out[key] = nil
					continue
				}
				def, err := wire.DefaultValue(field, c.resolver)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", field.Name, err)
				}
				out[key] = c.renderValue(&field.Type, def, opts)
			}
			continue
		}

		rendered, err := c.renderField(field, v, opts, depth)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", field.Name, err)
		}
		out[key] = rendered
		if oneof != nil && opts.Oneofs {
			out[oneof.Name] = key
		}
	}
	return out, nil
}

func (c *Converter) renderField(field *schema.Field, v interface{}, opts ToObjectOptions, depth int) (interface{}, error) {
	switch {
	case field.Type.Kind == schema.KindMap:
		entries, ok := mapOf(v)
		if !ok {
			return nil, fmt.Errorf("map field holds %T", v)
		}
		out := make(map[string]interface{}, len(entries))
		for k, val := range entries {
			rendered, err := c.render(field.Type.MapValue, val, opts, depth)
			if err != nil {
				return nil, fmt.Errorf("[%s]: %w", k, err)
			}
			out[k] = rendered
		}
		return out, nil

	case field.Label == schema.LabelRepeated:
		list, ok := listOf(v)
		if !ok {
			return nil, fmt.Errorf("repeated field holds %T", v)
		}
		out := make([]interface{}, len(list))
		for i, elem := range list {
			rendered, err := c.render(&field.Type, elem, opts, depth)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = rendered
		}
		return out, nil
	}
	return c.render(&field.Type, v, opts, depth)
}

// render renders one value, recursing into nested messages.
func (c *Converter) render(ft *schema.FieldType, v interface{}, opts ToObjectOptions, depth int) (interface{}, error) {
	if ft.Kind != schema.KindMessage {
		return c.renderValue(ft, v, opts), nil
	}
	nested, ok := v.(wire.Message)
	if !ok {
		// unresolvable nested messages decode to their raw bytes
		if raw, isBytes := v.([]byte); isBytes {
			return renderScalar(schema.TypeBytes, raw, opts), nil
		}
		return nil, fmt.Errorf("message field holds %T", v)
	}
	desc, err := c.message(ft.MessageType)
	if err != nil {
		return nil, err
	}
	return c.renderMessage(desc, nested, opts, depth+1)
}

func (c *Converter) renderMessage(desc *schema.Message, msg wire.Message, opts ToObjectOptions, depth int) (interface{}, error) {
	if opts.WellKnownJSON && registry.IsWellKnownType(desc.FullName) {
		if rendered, ok, err := c.renderWellKnown(desc, msg, opts, depth); ok {
			return rendered, err
		}
	}
	return c.object(desc, msg, opts, depth)
}

// renderValue renders a scalar or enum value.
func (c *Converter) renderValue(ft *schema.FieldType, v interface{}, opts ToObjectOptions) interface{} {
	if ft.Kind != schema.KindEnum {
		return renderScalar(ft.PrimitiveType, v, opts)
	}
	if opts.Enums == EnumsString && c.resolver != nil {
		n, err := coerceInt(v, -1<<31, 1<<31-1)
		if err != nil {
			return v
		}
		if enum, err := c.resolver.GetEnum(ft.EnumType); err == nil {
			if ev := enum.ValueByNumber(int32(n)); ev != nil {
				return ev.Name
			}
		}
	}
	return v
}

func renderScalar(pt schema.PrimitiveType, v interface{}, opts ToObjectOptions) interface{} {
	switch pt {
	case schema.TypeBytes:
		b, ok := v.([]byte)
		if !ok {
			return v
		}
		if opts.Bytes == BytesArray {
			out := make([]interface{}, len(b))
			for i, octet := range b {
				out[i] = int(octet)
			}
			return out
		}
		return base64.StdEncoding.EncodeToString(b)
	case schema.TypeInt64, schema.TypeSint64, schema.TypeSfixed64:
		if n, ok := v.(int64); ok && opts.Longs == LongsString {
			return strconv.FormatInt(n, 10)
		}
	case schema.TypeUint64, schema.TypeFixed64:
		if n, ok := v.(uint64); ok && opts.Longs == LongsString {
			return strconv.FormatUint(n, 10)
		}
	}
	return v
}
