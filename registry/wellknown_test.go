package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anirudhraja/protocodec/schema"
)

func TestRegisterWellKnownTypes(t *testing.T) {
	registry := New()
	require.NoError(t, registry.RegisterWellKnownTypes())
	require.NoError(t, registry.RegisterWellKnownTypes(), "registration is idempotent")

	for _, name := range []string{
		"google.protobuf.Timestamp", "google.protobuf.Duration", "google.protobuf.Empty",
		"google.protobuf.Any", "google.protobuf.FieldMask", "google.protobuf.Struct",
		"google.protobuf.Value", "google.protobuf.ListValue", "google.protobuf.Int64Value",
		"google.protobuf.BytesValue",
	} {
		msg, err := registry.GetMessage(name)
		require.NoError(t, err, name)
		assert.True(t, IsWellKnownType(msg.FullName), name)
	}

	value, err := registry.GetMessage("google.protobuf.Value")
	require.NoError(t, err)
	assert.Equal(t, "google.protobuf.NullValue", value.FieldByName("null_value").Type.EnumType)
	assert.Equal(t, schema.KindEnum, value.FieldByName("null_value").Type.Kind)
	assert.NotNil(t, value.OneofOf(value.FieldByName("list_value")))

	structMsg, err := registry.GetMessage("google.protobuf.Struct")
	require.NoError(t, err)
	fields := structMsg.FieldByName("fields")
	assert.Equal(t, schema.KindMap, fields.Type.Kind)
	assert.Equal(t, "google.protobuf.Value", fields.Type.MapValue.MessageType)
}

func TestWrapperTypes(t *testing.T) {
	tests := []struct {
		name string
		want schema.PrimitiveType
	}{
		{"google.protobuf.DoubleValue", schema.TypeDouble},
		{"google.protobuf.UInt32Value", schema.TypeUint32},
		{"google.protobuf.StringValue", schema.TypeString},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, IsWrapperType(tt.name))
			got, ok := WrapperValueType(tt.name)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.False(t, IsWrapperType("google.protobuf.Timestamp"))
	assert.False(t, IsWellKnownType("shop.Order"))
	_, ok := WrapperValueType("google.protobuf.Empty")
	assert.False(t, ok)
}

func TestWellKnownTypes_UserDefinitionReplacesBuiltin(t *testing.T) {
	registry := New()
	require.NoError(t, registry.RegisterWellKnownTypes())

	custom := parse(t, "google/protobuf/timestamp.proto", `syntax = "proto3";
package google.protobuf;
message Timestamp {
  int64 seconds = 1;
  int32 nanos = 2;
  string zone = 3;
}
`)
	require.NoError(t, registry.Register(custom))

	ts, err := registry.GetMessage("google.protobuf.Timestamp")
	require.NoError(t, err)
	assert.NotNil(t, ts.FieldByName("zone"))

	// a second user definition is a real collision
	again := parse(t, "other.proto", `syntax = "proto3"; package google.protobuf; message Timestamp {}`)
	err = registry.Register(again)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate type google.protobuf.Timestamp")
}

func TestWellKnownTypes_ReplacementRollsBack(t *testing.T) {
	registry := New()
	require.NoError(t, registry.RegisterWellKnownTypes())

	bad := parse(t, "dur.proto", `syntax = "proto3";
package google.protobuf;
message Duration { Unknown u = 1; }
`)
	require.Error(t, registry.Register(bad))

	dur, err := registry.GetMessage("google.protobuf.Duration")
	require.NoError(t, err)
	assert.NotNil(t, dur.FieldByName("nanos"), "built-in definition is restored")
	assert.Nil(t, dur.FieldByName("u"))

	good := parse(t, "dur2.proto", `syntax = "proto3";
package google.protobuf;
message Duration { int64 seconds = 1; }
`)
	require.NoError(t, registry.Register(good), "restored definition is still replaceable")
}
