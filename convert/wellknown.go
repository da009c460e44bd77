package convert

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/anirudhraja/protocodec/registry"
	"github.com/anirudhraja/protocodec/schema"
	"github.com/anirudhraja/protocodec/wire"
)

const (
	timestampType = "google.protobuf.Timestamp"
	durationType  = "google.protobuf.Duration"
	fieldMaskType = "google.protobuf.FieldMask"
	structType    = "google.protobuf.Struct"
	valueType     = "google.protobuf.Value"
	listValueType = "google.protobuf.ListValue"
	anyType       = "google.protobuf.Any"

	typeURLPrefix = "type.googleapis.com/"

	// Timestamp range: 0001-01-01T00:00:00Z to 9999-12-31T23:59:59Z.
	minTimestampSeconds = -62135596800
	maxTimestampSeconds = 253402300799
	maxDurationSeconds  = 315576000000
)

// wellKnown rewrites the JSON form of a well-known type into its message
// shape. Values already in message shape pass through unchanged.
func (in *ingester) wellKnown(desc *schema.Message, v interface{}, path string, depth int) (interface{}, error) {
	name := desc.FullName
	if s, ok := v.(string); ok {
		var (
			shaped map[string]interface{}
			err    error
		)
		switch name {
		case timestampType:
			shaped, err = parseTimestamp(s)
		case durationType:
			shaped, err = parseDuration(s)
		case fieldMaskType:
			shaped = parseFieldMask(s)
		}
		if err != nil {
			return nil, in.fail(path, name, v, err)
		}
		if shaped != nil {
			return shaped, nil
		}
	}

	if _, ok := registry.WrapperValueType(name); ok {
		if _, isObject := v.(map[string]interface{}); !isObject {
			return map[string]interface{}{"value": v}, nil
		}
		return v, nil
	}

	switch name {
	case structType:
		if m, ok := objectOf(v); ok && !isStructShaped(m) {
			return map[string]interface{}{"fields": valueMap(m)}, nil
		}
	case valueType:
		if m, ok := objectOf(v); ok && isValueShaped(m) {
			return m, nil
		}
		return toValueShape(v), nil
	case listValueType:
		if list, ok := listOf(v); ok {
			return map[string]interface{}{"values": valueList(list)}, nil
		}
	case anyType:
		if m, ok := objectOf(v); ok {
			if _, typed := m["@type"]; typed {
				return in.any(m, path, depth)
			}
		}
	}
	return v, nil
}

// any resolves the packed type of an Any in JSON form. In verify mode the
// payload is checked against its type; otherwise it is encoded.
func (in *ingester) any(m map[string]interface{}, path string, depth int) (interface{}, error) {
	typeURL, ok := m["@type"].(string)
	if !ok || typeURL == "" {
		return nil, in.fail(fieldPath(path, "@type"), "type URL", m["@type"], nil)
	}
	if !strings.Contains(typeURL, "/") {
		typeURL = typeURLPrefix + typeURL
	}
	desc, err := in.c.message(typeURL[strings.LastIndex(typeURL, "/")+1:])
	if err != nil {
		if in.verify {
			return nil, invalid(fieldPath(path, "@type"), "%v", err)
		}
		return nil, fmt.Errorf("%s: unknown Any type: %w", path, err)
	}

	var payload interface{}
	switch raw, hasValue := m["value"]; {
	case registry.IsWellKnownType(desc.FullName):
		// well-known payloads keep their own JSON form under "value"
		payload = raw
	case hasValue && !isObjectValue(raw):
		b, err := coerceBytes(raw)
		if err != nil {
			return nil, in.fail(fieldPath(path, "value"), "bytes", raw, err)
		}
		return map[string]interface{}{"type_url": typeURL, "value": b}, nil
	default:
		rest := make(map[string]interface{}, len(m))
		for k, v := range m {
			if k != "@type" {
				rest[k] = v
			}
		}
		payload = rest
	}

	msg, err := in.message(desc, payload, path, depth+1)
	if err != nil {
		return nil, err
	}
	if in.verify {
		return map[string]interface{}{"type_url": typeURL}, nil
	}
	b, err := wire.EncodeMessage(msg, desc, in.c.resolver, wire.EncodeOptions{})
	if err != nil {
		return nil, fmt.Errorf("%s: packing %s: %w", path, desc.FullName, err)
	}
	return map[string]interface{}{"type_url": typeURL, "value": b}, nil
}

func isObjectValue(v interface{}) bool {
	_, ok := v.(map[string]interface{})
	return ok
}

var valueKinds = map[string]bool{
	"null_value": true, "nullValue": true,
	"number_value": true, "numberValue": true,
	"string_value": true, "stringValue": true,
	"bool_value": true, "boolValue": true,
	"struct_value": true, "structValue": true,
	"list_value": true, "listValue": true,
}

// isValueShaped reports whether m is a google.protobuf.Value in message shape:
// exactly one kind key.
func isValueShaped(m map[string]interface{}) bool {
	if len(m) != 1 {
		return false
	}
	for k := range m {
		return valueKinds[k]
	}
	return false
}

// isStructShaped reports whether m is a google.protobuf.Struct in message
// shape: a single "fields" object whose members are all shaped Values.
func isStructShaped(m map[string]interface{}) bool {
	if len(m) != 1 {
		return false
	}
	fields, ok := m["fields"].(map[string]interface{})
	if !ok {
		return false
	}
	for _, f := range fields {
		fm, ok := f.(map[string]interface{})
		if !ok || !isValueShaped(fm) {
			return false
		}
	}
	return true
}

func valueMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = toValueShape(v)
	}
	return out
}

func valueList(list []interface{}) []interface{} {
	out := make([]interface{}, len(list))
	for i, v := range list {
		out[i] = toValueShape(v)
	}
	return out
}

// toValueShape wraps a plain JSON value as a google.protobuf.Value.
func toValueShape(v interface{}) map[string]interface{} {
	switch t := v.(type) {
	case nil:
		return map[string]interface{}{"null_value": "NULL_VALUE"}
	case bool:
		return map[string]interface{}{"bool_value": t}
	case string:
		return map[string]interface{}{"string_value": t}
	case map[string]interface{}:
		return map[string]interface{}{"struct_value": map[string]interface{}{"fields": valueMap(t)}}
	}
	if list, ok := listOf(v); ok {
		return map[string]interface{}{"list_value": map[string]interface{}{"values": valueList(list)}}
	}
	if f, err := coerceFloat(v); err == nil {
		return map[string]interface{}{"number_value": f}
	}
	b, _ := json.Marshal(v)
	return map[string]interface{}{"string_value": string(b)}
}

func parseTimestamp(s string) (map[string]interface{}, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp: %w", err)
	}
	sec := t.Unix()
	if sec < minTimestampSeconds || sec > maxTimestampSeconds {
		return nil, errors.New("timestamp out of range")
	}
	return map[string]interface{}{"seconds": sec, "nanos": int32(t.Nanosecond())}, nil
}

// parseDuration parses the JSON form "-1.5s". Seconds and nanos share a sign.
func parseDuration(s string) (map[string]interface{}, error) {
	core, ok := strings.CutSuffix(s, "s")
	if !ok {
		return nil, errors.New("invalid duration: missing 's' suffix")
	}
	neg := strings.HasPrefix(core, "-")
	core = strings.TrimLeft(core, "+-")
	secPart, fracPart, _ := strings.Cut(core, ".")
	if secPart == "" && fracPart == "" {
		return nil, fmt.Errorf("invalid duration %q", s)
	}
	if secPart == "" {
		secPart = "0"
	}
	sec, err := strconv.ParseInt(secPart, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid duration seconds: %w", err)
	}
	if len(fracPart) > 9 {
		return nil, errors.New("invalid duration: more than nanosecond precision")
	}
	var nanos int64
	if fracPart != "" {
		if nanos, err = strconv.ParseInt(fracPart+strings.Repeat("0", 9-len(fracPart)), 10, 32); err != nil {
			return nil, fmt.Errorf("invalid duration nanos: %w", err)
		}
	}
	if sec > maxDurationSeconds {
		return nil, errors.New("duration out of range")
	}
	if neg {
		sec, nanos = -sec, -nanos
	}
	return map[string]interface{}{"seconds": sec, "nanos": int32(nanos)}, nil
}

func parseFieldMask(s string) map[string]interface{} {
	paths := []interface{}{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, camelToSnake(p))
		}
	}
	return map[string]interface{}{"paths": paths}
}

// camelToSnake converts lowerCamelCase to snake_case
func camelToSnake(s string) string {
	out := make([]byte, 0, len(s)+4)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			out = append(out, '_')
			c = c - 'A' + 'a'
		}
		out = append(out, c)
	}
	return string(out)
}

// renderWellKnown renders a decoded well-known type in its JSON form. The
// second result is false for types without a special form.
func (c *Converter) renderWellKnown(desc *schema.Message, msg wire.Message, opts ToObjectOptions, depth int) (interface{}, bool, error) {
	name := desc.FullName
	if pt, ok := registry.WrapperValueType(name); ok {
		v, present := msg["value"]
		if !present {
			v = wire.ZeroValue(&schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: pt})
		}
		return renderScalar(pt, v, opts), true, nil
	}

	switch name {
	case timestampType:
		sec, nanos := secondsNanos(msg)
		if sec < minTimestampSeconds || sec > maxTimestampSeconds || nanos < 0 || nanos > 999999999 {
			return nil, true, fmt.Errorf("timestamp %d.%09d out of range", sec, nanos)
		}
		t := time.Unix(sec, int64(nanos)).UTC()
		return t.Format("2006-01-02T15:04:05") + fraction(nanos) + "Z", true, nil

	case durationType:
		sec, nanos := secondsNanos(msg)
		if sec < -maxDurationSeconds || sec > maxDurationSeconds || (sec > 0 && nanos < 0) || (sec < 0 && nanos > 0) {
			return nil, true, fmt.Errorf("duration %d.%09d out of range", sec, nanos)
		}
		sign := ""
		if sec < 0 || nanos < 0 {
			sign = "-"
		}
		return sign + strconv.FormatInt(abs64(sec), 10) + fraction(int32(abs64(int64(nanos)))) + "s", true, nil

	case fieldMaskType:
		paths, _ := msg["paths"].([]interface{})
		parts := make([]string, 0, len(paths))
		for _, p := range paths {
			parts = append(parts, schema.ToLowerCamel(fmt.Sprint(p)))
		}
		return strings.Join(parts, ","), true, nil

	case structType:
		return c.renderStruct(msg, opts, depth)

	case valueType:
		return c.renderProtoValue(msg, opts, depth)

	case listValueType:
		values, _ := msg["values"].([]interface{})
		out := make([]interface{}, 0, len(values))
		for _, v := range values {
			vm, _ := v.(wire.Message)
			rendered, _, err := c.renderProtoValue(vm, opts, depth+1)
			if err != nil {
				return nil, true, err
			}
			out = append(out, rendered)
		}
		return out, true, nil

	case anyType:
		return c.renderAny(msg, opts, depth)
	}
	return nil, false, nil
}

func (c *Converter) renderStruct(msg wire.Message, opts ToObjectOptions, depth int) (interface{}, bool, error) {
	fields, _ := msg["fields"].(map[interface{}]interface{})
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		vm, _ := v.(wire.Message)
		rendered, _, err := c.renderProtoValue(vm, opts, depth+1)
		if err != nil {
			return nil, true, err
		}
		out[fmt.Sprint(k)] = rendered
	}
	return out, true, nil
}

func (c *Converter) renderProtoValue(msg wire.Message, opts ToObjectOptions, depth int) (interface{}, bool, error) {
	if depth > wire.DefaultRecursionLimit {
		return nil, true, wire.ErrRecursionLimit
	}
	switch {
	case msg == nil:
		return nil, true, nil
	case msg["number_value"] != nil:
		return msg["number_value"], true, nil
	case msg["string_value"] != nil:
		return msg["string_value"], true, nil
	case msg["bool_value"] != nil:
		return msg["bool_value"], true, nil
	case msg["struct_value"] != nil:
		sm, _ := msg["struct_value"].(wire.Message)
		return c.renderStruct(sm, opts, depth)
	case msg["list_value"] != nil:
		lm, _ := msg["list_value"].(wire.Message)
		values, _ := lm["values"].([]interface{})
		out := make([]interface{}, 0, len(values))
		for _, v := range values {
			vm, _ := v.(wire.Message)
			rendered, _, err := c.renderProtoValue(vm, opts, depth+1)
			if err != nil {
				return nil, true, err
			}
			out = append(out, rendered)
		}
		return out, true, nil
	}
	return nil, true, nil
}

func (c *Converter) renderAny(msg wire.Message, opts ToObjectOptions, depth int) (interface{}, bool, error) {
	typeURL, _ := msg["type_url"].(string)
	value, _ := msg["value"].([]byte)
	if typeURL == "" {
		return map[string]interface{}{}, true, nil
	}
	desc, err := c.message(typeURL[strings.LastIndex(typeURL, "/")+1:])
	if err != nil {
		return map[string]interface{}{"@type": typeURL, "value": base64.StdEncoding.EncodeToString(value)}, true, nil
	}
	inner, err := wire.DecodeMessage(value, desc, c.resolver, wire.DecodeOptions{AllowPartial: true})
	if err != nil {
		return nil, true, fmt.Errorf("unpacking %s: %w", desc.FullName, err)
	}
	rendered, err := c.renderMessage(desc, inner, opts, depth+1)
	if err != nil {
		return nil, true, err
	}
	if obj, ok := rendered.(map[string]interface{}); ok && !registry.IsWellKnownType(desc.FullName) {
		obj["@type"] = typeURL
		return obj, true, nil
	}
	return map[string]interface{}{"@type": typeURL, "value": rendered}, true, nil
}

func secondsNanos(msg wire.Message) (int64, int32) {
	sec, _ := msg["seconds"].(int64)
	nanos, _ := msg["nanos"].(int32)
	return sec, nanos
}

// fraction renders nanos with 0, 3, 6 or 9 digits.
func fraction(nanos int32) string {
	switch {
	case nanos == 0:
		return ""
	case nanos%1e6 == 0:
		return fmt.Sprintf(".%03d", nanos/1e6)
	case nanos%1e3 == 0:
		return fmt.Sprintf(".%06d", nanos/1e3)
	}
	return fmt.Sprintf(".%09d", nanos)
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
