package convert

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/anirudhraja/protocodec/schema"
)

// coerceScalar converts a plain-object value to the message instance
// representation of pt. Numbers may arrive as strings, integral floats or
// json.Number; bytes as base64 strings or arrays of octets.
func coerceScalar(pt schema.PrimitiveType, v interface{}) (interface{}, error) {
	switch pt {
	case schema.TypeInt32, schema.TypeSint32, schema.TypeSfixed32:
		n, err := coerceInt(v, math.MinInt32, math.MaxInt32)
		return int32(n), err
	case schema.TypeUint32, schema.TypeFixed32:
		n, err := coerceInt(v, 0, math.MaxUint32)
		return uint32(n), err
	case schema.TypeInt64, schema.TypeSint64, schema.TypeSfixed64:
		in, err := ParseInt64Input(v)
		if err != nil {
			return nil, err
		}
		return in.Int64()
	case schema.TypeUint64, schema.TypeFixed64:
		in, err := ParseInt64Input(v)
		if err != nil {
			return nil, err
		}
		return in.Uint64()
	case schema.TypeDouble:
		return coerceFloat(v)
	case schema.TypeFloat:
		f, err := coerceFloat(v)
		if err != nil {
			return nil, err
		}
		if !math.IsInf(f, 0) && !math.IsNaN(f) && math.Abs(f) > math.MaxFloat32 {
			return nil, errOutOfRange
		}
		return float32(f), nil
	case schema.TypeBool:
		switch t := v.(type) {
		case bool:
			return t, nil
		case string:
			return strconv.ParseBool(t)
		}
		return nil, fmt.Errorf("cannot use %T as bool", v)
	case schema.TypeString:
		switch t := v.(type) {
		case string:
			return t, nil
		case json.Number:
			return t.String(), nil
		case []byte:
			if !utf8.Valid(t) {
				return nil, errors.New("invalid UTF-8")
			}
			return string(t), nil
		}
		return nil, fmt.Errorf("cannot use %T as string", v)
	case schema.TypeBytes:
		return coerceBytes(v)
	}
	return nil, fmt.Errorf("unsupported scalar type %s", pt)
}

// coerceInt accepts any integral number within [lo, hi].
func coerceInt(v interface{}, lo, hi int64) (int64, error) {
	if _, isBool := v.(bool); isBool {
		return 0, errors.New("cannot use bool as integer")
	}
	in, err := ParseInt64Input(v)
	if err != nil {
		return 0, err
	}
	if _, isPair := in.(Int64HighLow); isPair {
		return 0, errors.New("64-bit integer object for 32-bit field")
	}
	n, err := in.Int64()
	if err != nil {
		return 0, err
	}
	if n < lo || n > hi {
		return 0, errOutOfRange
	}
	return n, nil
}

func coerceFloat(v interface{}) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case json.Number:
		return t.Float64()
	case string:
		switch t {
		case "NaN":
			return math.NaN(), nil
		case "Infinity":
			return math.Inf(1), nil
		case "-Infinity":
			return math.Inf(-1), nil
		}
		return strconv.ParseFloat(strings.TrimSpace(t), 64)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		f, err := strconv.ParseFloat(fmt.Sprint(t), 64)
		return f, err
	}
	return 0, fmt.Errorf("cannot use %T as number", v)
}

// coerceBytes accepts standard or URL-safe base64, padded or not, raw byte
// slices and arrays of octets.
func coerceBytes(v interface{}) ([]byte, error) {
	switch t := v.(type) {
	case []byte:
		return t, nil
	case string:
		return decodeBase64(t)
	case []interface{}:
		out := make([]byte, len(t))
		for i, e := range t {
			n, err := coerceInt(e, 0, math.MaxUint8)
			if err != nil {
				return nil, fmt.Errorf("byte %d: %w", i, err)
			}
			out[i] = byte(n)
		}
		return out, nil
	}
	return nil, fmt.Errorf("cannot use %T as bytes", v)
}

func decodeBase64(s string) ([]byte, error) {
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding,
	} {
		if b, err := enc.DecodeString(s); err == nil {
			return b, nil
		}
	}
	return nil, errors.New("invalid base64")
}

// expectedName is the type name reported in mismatch errors.
func expectedName(ft *schema.FieldType) string {
	switch ft.Kind {
	case schema.KindPrimitive:
		return string(ft.PrimitiveType)
	case schema.KindEnum:
		return "enum " + ft.EnumType
	case schema.KindMap:
		return "object"
	}
	return "object " + ft.MessageType
}
