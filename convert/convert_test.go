package convert

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anirudhraja/protocodec/registry"
	"github.com/anirudhraja/protocodec/wire"
)

const shopProto = `syntax = "proto3";
package shop;

enum Color {
  COLOR_UNSPECIFIED = 0;
  RED = 1;
  GREEN = 2;
}

message Item {
  string sku = 1;
  uint32 qty = 2;
  bytes tag = 3;
}

message Order {
  int64 id = 1;
  uint64 big = 2;
  int32 small = 3;
  double price = 4;
  float ratio = 5;
  bool paid = 6;
  string note = 7;
  bytes blob = 8;
  Color color = 9;
  repeated Item items = 10;
  map<string, int32> counts = 11;
  map<int64, Item> by_id = 12;
  oneof payment {
    string card = 13;
    bool cash = 14;
  }
  repeated int64 history = 15;
  repeated Color palette = 16;
  Item main_item = 17;
  google.protobuf.Timestamp created = 18;
  google.protobuf.Duration ttl = 19;
  google.protobuf.Int64Value limit = 20;
  google.protobuf.Struct attrs = 21;
  google.protobuf.Any extra = 22;
  google.protobuf.FieldMask mask = 23;
  google.protobuf.Value anything = 24;
}
`

const legacyProto = `syntax = "proto2";
package legacy;

message Record {
  required int32 id = 1;
  optional string name = 2 [default = "anon"];
  optional sint64 offset = 3 [default = -7];
}
`

func newTestConverter(t *testing.T) (*Converter, *registry.Registry) {
	t.Helper()
	reg := registry.New()
	require.NoError(t, reg.RegisterWellKnownTypes())
	for name, src := range map[string]string{"shop.proto": shopProto, "legacy.proto": legacyProto} {
		file, err := registry.ParseFile(name, strings.NewReader(src))
		require.NoError(t, err)
		require.NoError(t, reg.Register(file))
	}
	return New(reg), reg
}

// parseJSON decodes a JSON document the way HTTP handlers usually do.
func parseJSON(t *testing.T, doc string) map[string]interface{} {
	t.Helper()
	var obj map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(doc), &obj))
	return obj
}

func TestFromObject_Coercion(t *testing.T) {
	c, _ := newTestConverter(t)

	tests := []struct {
		name  string
		input map[string]interface{}
		want  wire.Message
	}{
		{
			name:  "json numbers",
			input: parseJSON(t, `{"id": 42, "big": 7, "small": -3, "price": 1.5, "ratio": 0.25}`),
			want:  wire.Message{"id": int64(42), "big": uint64(7), "small": int32(-3), "price": 1.5, "ratio": float32(0.25)},
		},
		{
			name:  "numeric strings",
			input: map[string]interface{}{"id": "-9223372036854775808", "big": "18446744073709551615", "small": "12", "price": "Infinity"},
			want:  wire.Message{"id": int64(math.MinInt64), "big": uint64(math.MaxUint64), "small": int32(12), "price": math.Inf(1)},
		},
		{
			name:  "json.Number and native ints",
			input: map[string]interface{}{"id": json.Number("9007199254740993"), "small": 5, "big": uint8(3)},
			want:  wire.Message{"id": int64(9007199254740993), "small": int32(5), "big": uint64(3)},
		},
		{
			name:  "high low pair",
			input: map[string]interface{}{"id": map[string]interface{}{"low": float64(-1), "high": float64(math.MaxInt32)}},
			want:  wire.Message{"id": int64(math.MaxInt64)},
		},
		{
			name:  "enum by name and number",
			input: map[string]interface{}{"color": "GREEN", "palette": []interface{}{"RED", float64(2), float64(9)}},
			want:  wire.Message{"color": int32(2), "palette": []interface{}{int32(1), int32(2), int32(9)}},
		},
		{
			name:  "bytes forms",
			input: map[string]interface{}{"blob": "AQID", "items": []interface{}{map[string]interface{}{"tag": []interface{}{float64(1), float64(255)}}}},
			want:  wire.Message{"blob": []byte{1, 2, 3}, "items": []interface{}{wire.Message{"tag": []byte{1, 255}}}},
		},
		{
			name:  "json names and unknown keys",
			input: map[string]interface{}{"mainItem": map[string]interface{}{"sku": "a"}, "byId": map[string]interface{}{"10": map[string]interface{}{}}, "bogus": 1},
			want:  wire.Message{"main_item": wire.Message{"sku": "a"}, "by_id": map[interface{}]interface{}{int64(10): wire.Message{}}},
		},
		{
			name:  "null is absent",
			input: map[string]interface{}{"note": nil, "main_item": nil, "paid": "true"},
			want:  wire.Message{"paid": true},
		},
		{
			name:  "last oneof member wins",
			input: map[string]interface{}{"card": "visa", "cash": true},
			want:  wire.Message{"cash": true},
		},
		{
			name:  "map of scalars",
			input: parseJSON(t, `{"counts": {"b": 2, "a": "1"}, "history": ["1", 2]}`),
			want:  wire.Message{"counts": map[interface{}]interface{}{"a": int32(1), "b": int32(2)}, "history": []interface{}{int64(1), int64(2)}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.FromObject("shop.Order", tt.input)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("FromObject() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFromObject_TypeMismatch(t *testing.T) {
	c, _ := newTestConverter(t)

	tests := []struct {
		name     string
		input    interface{}
		path     string
		expected string
	}{
		{"root not an object", []interface{}{1}, "", "object"},
		{"repeated not a list", map[string]interface{}{"items": "x"}, "items", "array"},
		{"message not an object", map[string]interface{}{"main_item": 5.0}, "main_item", "object"},
		{"map not an object", map[string]interface{}{"counts": []interface{}{}}, "counts", "object"},
		{"nested element", map[string]interface{}{"items": []interface{}{map[string]interface{}{}, map[string]interface{}{"qty": "many"}}}, "items[1].qty", "uint32"},
		{"int32 overflow", map[string]interface{}{"small": float64(1 << 40)}, "small", "int32"},
		{"fractional", map[string]interface{}{"id": 1.5}, "id", "int64"},
		{"bad map key", map[string]interface{}{"by_id": map[string]interface{}{"x": map[string]interface{}{}}}, "by_id[x]", "int64 key"},
		{"unknown enum name", map[string]interface{}{"color": "BLUE"}, "color", "enum shop.Color"},
		{"bad timestamp", map[string]interface{}{"created": "yesterday"}, "created", "google.protobuf.Timestamp"},
		{"null list element", map[string]interface{}{"history": []interface{}{nil}}, "history[0]", "int64"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.FromObject("shop.Order", tt.input)
			require.Error(t, err)
			var tm *TypeMismatchError
			require.True(t, errors.As(err, &tm), "got %T: %v", err, err)
			assert.Equal(t, tt.path, tm.Path)
			assert.Equal(t, tt.expected, tm.Expected)
		})
	}
}

func TestFromObject_UnknownType(t *testing.T) {
	c, _ := newTestConverter(t)
	_, err := c.FromObject("shop.Nope", map[string]interface{}{})
	assert.Error(t, err)

	_, err = New(nil).FromObject("shop.Order", map[string]interface{}{})
	assert.Error(t, err)
}

func TestVerify(t *testing.T) {
	c, _ := newTestConverter(t)

	tests := []struct {
		name     string
		typeName string
		input    interface{}
		path     string // empty when valid
		reason   string
	}{
		{name: "empty", typeName: "shop.Order", input: map[string]interface{}{}},
		{name: "valid", typeName: "shop.Order", input: parseJSON(t, `{
			"id": "12", "color": "RED", "items": [{"sku": "a", "qty": 2}],
			"counts": {"x": 1}, "byId": {"-5": {"tag": "AQ=="}}, "card": "visa",
			"created": "2024-01-02T03:04:05Z", "attrs": {"k": [1, null]}, "anything": null
		}`)},
		{name: "not an object", typeName: "shop.Order", input: "x", reason: "object expected"},
		{name: "int range", typeName: "shop.Order", input: map[string]interface{}{"small": float64(1 << 40)}, path: "small", reason: "int32 expected"},
		{name: "enum membership", typeName: "shop.Order", input: map[string]interface{}{"color": float64(7)}, path: "color", reason: "no value 7"},
		{name: "nested", typeName: "shop.Order", input: map[string]interface{}{"items": []interface{}{map[string]interface{}{"qty": -1.0}}}, path: "items[0].qty", reason: "uint32 expected"},
		{name: "oneof", typeName: "shop.Order", input: map[string]interface{}{"card": "visa", "cash": true}, path: "cash", reason: "more than one member"},
		{name: "map value", typeName: "shop.Order", input: map[string]interface{}{"counts": map[string]interface{}{"a": "x"}}, path: "counts[a]", reason: "int32 expected"},
		{name: "map key", typeName: "shop.Order", input: map[string]interface{}{"by_id": map[string]interface{}{"abc": map[string]interface{}{}}}, path: "by_id[abc]", reason: "int64 key expected"},
		{name: "base64", typeName: "shop.Order", input: map[string]interface{}{"blob": "!!!"}, path: "blob", reason: "bytes expected"},
		{name: "array shape", typeName: "shop.Order", input: map[string]interface{}{"palette": "RED"}, path: "palette", reason: "array expected"},
		{name: "duration", typeName: "shop.Order", input: map[string]interface{}{"ttl": "5m"}, path: "ttl", reason: "missing 's' suffix"},
		{name: "any type", typeName: "shop.Order", input: map[string]interface{}{"extra": map[string]interface{}{"@type": "type.googleapis.com/shop.Missing"}}, path: "extra.@type", reason: "not found"},
		{name: "any payload", typeName: "shop.Order", input: map[string]interface{}{"extra": map[string]interface{}{"@type": "shop.Item", "qty": "x"}}, path: "extra.qty", reason: "uint32 expected"},
		{name: "required", typeName: "legacy.Record", input: map[string]interface{}{"name": "x"}, path: "id", reason: "missing required field"},
		{name: "unknown type", typeName: "nope.Nope", input: map[string]interface{}{}, reason: "not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Verify(tt.typeName, tt.input)
			if tt.reason == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var verr *VerifyError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.path, verr.Path)
			assert.Contains(t, verr.Reason, tt.reason)

			// idempotent
			assert.Equal(t, err, c.Verify(tt.typeName, tt.input))
		})
	}
}

func TestVerify_DoesNotMutate(t *testing.T) {
	c, _ := newTestConverter(t)
	const doc = `{"attrs": {"a": {"b": [1, 2]}}, "limit": "5", "mask": "fooBar", "items": [{"tag": [1, 2]}]}`
	input := parseJSON(t, doc)

	require.NoError(t, c.Verify("shop.Order", input))
	if diff := cmp.Diff(parseJSON(t, doc), input); diff != "" {
		t.Errorf("Verify mutated its input (-before +after):\n%s", diff)
	}
}

func TestVerify_AcceptsWhatFromObjectBuildsFrom(t *testing.T) {
	c, _ := newTestConverter(t)
	input := parseJSON(t, `{"id": 1, "items": [{"sku": "a"}], "ttl": "1.5s", "cash": false}`)

	require.NoError(t, c.Verify("shop.Order", input))
	_, err := c.FromObject("shop.Order", input)
	require.NoError(t, err)
}
