package wire

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/anirudhraja/protocodec/schema"
)

// Resolver looks up message and enum definitions by type name.
type Resolver interface {
	GetMessage(name string) (*schema.Message, error)
	GetEnum(name string) (*schema.Enum, error)
}

func asInt64(v interface{}) (int64, error) {
	switch t := v.(type) {
	case int32:
		return int64(t), nil
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	case int8:
		return int64(t), nil
	case int16:
		return int64(t), nil
	case uint8:
		return int64(t), nil
	case uint16:
		return int64(t), nil
	case uint32:
		return int64(t), nil
	case uint64:
		if t > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows int64", t)
		}
		return int64(t), nil
	case uint:
		if uint64(t) > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows int64", t)
		}
		return int64(t), nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}

func asUint64(v interface{}) (uint64, error) {
	switch t := v.(type) {
	case uint32:
		return uint64(t), nil
	case uint64:
		return t, nil
	case uint:
		return uint64(t), nil
	case uint8:
		return uint64(t), nil
	case uint16:
		return uint64(t), nil
	default:
		i, err := asInt64(v)
		if err != nil {
			return 0, fmt.Errorf("expected unsigned integer, got %T", v)
		}
		if i < 0 {
			return 0, fmt.Errorf("negative value %d for unsigned field", i)
		}
		return uint64(i), nil
	}
}

func asInt32(v interface{}) (int32, error) {
	i, err := asInt64(v)
	if err != nil {
		return 0, err
	}
	if i < math.MinInt32 || i > math.MaxInt32 {
		return 0, fmt.Errorf("value %d overflows int32", i)
	}
	return int32(i), nil
}

func asUint32(v interface{}) (uint32, error) {
	u, err := asUint64(v)
	if err != nil {
		return 0, err
	}
	if u > math.MaxUint32 {
		return 0, fmt.Errorf("value %d overflows uint32", u)
	}
	return uint32(u), nil
}

func asFloat64(v interface{}) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	default:
		i, err := asInt64(v)
		if err != nil {
			return 0, fmt.Errorf("expected floating point number, got %T", v)
		}
		return float64(i), nil
	}
}

// enumNumber accepts an enum number or a value name.
func enumNumber(v interface{}, enumType string, resolver Resolver) (int32, error) {
	if name, ok := v.(string); ok {
		if resolver == nil {
			return 0, fmt.Errorf("cannot resolve enum value %q without a registry", name)
		}
		enum, err := resolver.GetEnum(enumType)
		if err != nil {
			return 0, err
		}
		ev := enum.ValueByName(name)
		if ev == nil {
			return 0, fmt.Errorf("enum %s has no value %q", enumType, name)
		}
		return ev.Number, nil
	}
	return asInt32(v)
}

// isZero reports whether v is the zero value of a singular field, which is
// not written to the wire. Messages are never zero: presence is their value.
func isZero(ft *schema.FieldType, v interface{}) bool {
	switch ft.Kind {
	case schema.KindEnum:
		// names are resolved to numbers before this check
		n, err := asInt64(v)
		return err == nil && n == 0
	case schema.KindPrimitive:
		switch t := v.(type) {
		case string:
			return t == ""
		case []byte:
			return len(t) == 0
		case bool:
			return !t
		case float64:
			return math.Float64bits(t) == 0
		case float32:
			return math.Float32bits(t) == 0
		default:
			if u, err := asUint64(t); err == nil {
				return u == 0
			}
			n, err := asInt64(t)
			return err == nil && n == 0
		}
	}
	return false
}

// ZeroValue returns the zero value of a scalar field type in its message
// instance representation.
func ZeroValue(ft *schema.FieldType) interface{} {
	if ft.Kind == schema.KindEnum {
		return int32(0)
	}
	switch ft.PrimitiveType {
	case schema.TypeDouble:
		return float64(0)
	case schema.TypeFloat:
		return float32(0)
	case schema.TypeInt64, schema.TypeSint64, schema.TypeSfixed64:
		return int64(0)
	case schema.TypeUint64, schema.TypeFixed64:
		return uint64(0)
	case schema.TypeInt32, schema.TypeSint32, schema.TypeSfixed32:
		return int32(0)
	case schema.TypeUint32, schema.TypeFixed32:
		return uint32(0)
	case schema.TypeBool:
		return false
	case schema.TypeString:
		return ""
	case schema.TypeBytes:
		return []byte{}
	}
	return nil
}

// DefaultValue returns the declared default of a scalar or enum field, or its
// zero value when none is declared.
func DefaultValue(f *schema.Field, resolver Resolver) (interface{}, error) {
	if f.DefaultValue == "" {
		if f.Type.Kind == schema.KindEnum && resolver != nil {
			// proto2 enums default to their first value
			if enum, err := resolver.GetEnum(f.Type.EnumType); err == nil && len(enum.Values) > 0 {
				return enum.Values[0].Number, nil
			}
		}
		return ZeroValue(&f.Type), nil
	}
	def := f.DefaultValue
	if f.Type.Kind == schema.KindEnum {
		return enumNumber(def, f.Type.EnumType, resolver)
	}
	switch f.Type.PrimitiveType {
	case schema.TypeString:
		return def, nil
	case schema.TypeBytes:
		if s, err := strconv.Unquote(`"` + def + `"`); err == nil {
			return []byte(s), nil
		}
		return []byte(def), nil
	case schema.TypeBool:
		return strconv.ParseBool(def)
	case schema.TypeDouble, schema.TypeFloat:
		var fv float64
		switch strings.ToLower(def) {
		case "inf":
			fv = math.Inf(1)
		case "-inf":
			fv = math.Inf(-1)
		case "nan":
			fv = math.NaN()
		default:
			var err error
			if fv, err = strconv.ParseFloat(def, 64); err != nil {
				return nil, err
			}
		}
		if f.Type.PrimitiveType == schema.TypeFloat {
			return float32(fv), nil
		}
		return fv, nil
	case schema.TypeInt32, schema.TypeSint32, schema.TypeSfixed32:
		n, err := strconv.ParseInt(def, 0, 32)
		return int32(n), err
	case schema.TypeInt64, schema.TypeSint64, schema.TypeSfixed64:
		return strconv.ParseInt(def, 0, 64)
	case schema.TypeUint32, schema.TypeFixed32:
		n, err := strconv.ParseUint(def, 0, 32)
		return uint32(n), err
	case schema.TypeUint64, schema.TypeFixed64:
		return strconv.ParseUint(def, 0, 64)
	}
	return nil, fmt.Errorf("field %s: no default for type %s", f.Name, f.Type.PrimitiveType)
}

// toSlice normalizes a repeated field value.
func toSlice(value interface{}) ([]interface{}, error) {
	switch v := value.(type) {
	case []interface{}:
		return v, nil
	case []Message:
		return spread(v), nil
	case []string:
		return spread(v), nil
	case []int32:
		return spread(v), nil
	case []int64:
		return spread(v), nil
	case []uint32:
		return spread(v), nil
	case []uint64:
		return spread(v), nil
	case []bool:
		return spread(v), nil
	case []float32:
		return spread(v), nil
	case []float64:
		return spread(v), nil
	case [][]byte:
		return spread(v), nil
	default:
		return nil, fmt.Errorf("repeated field value must be a slice, got %T", value)
	}
}

func spread[T any](in []T) []interface{} {
	out := make([]interface{}, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
