package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/bufbuild/protocompile"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/anirudhraja/protocodec/schema"
)

const orderProto = `syntax = "proto3";
package shop.v1;

import "google/protobuf/timestamp.proto";

message Order {
  enum Status {
    STATUS_UNKNOWN = 0;
    STATUS_OPEN = 1;
  }
  message Line {
    string sku = 1;
    uint32 qty = 2;
  }
  int64 id = 1;
  Status status = 2;
  repeated Line lines = 3;
  map<string, int32> tags = 4;
  oneof payment {
    string card = 5;
    bool cash = 6;
  }
  google.protobuf.Timestamp created = 7;
  repeated sint32 deltas = 8 [packed = false];
  optional string note = 9 [json_name = "memo"];
  repeated Status history = 10;
}

service Orders {
  rpc Get(Order) returns (Order);
  rpc Watch(Order) returns (stream Order);
}
`

// compile runs protoc-equivalent compilation on in-memory sources.
func compile(t *testing.T, name string, sources map[string]string) *descriptorpb.FileDescriptorSet {
	t.Helper()
	compiler := protocompile.Compiler{
		Resolver: protocompile.WithStandardImports(&protocompile.SourceResolver{
			Accessor: protocompile.SourceAccessorFromMap(sources),
		}),
	}
	files, err := compiler.Compile(context.Background(), name)
	require.NoError(t, err)

	set := &descriptorpb.FileDescriptorSet{}
	for _, f := range files {
		set.File = append(set.File, protodesc.ToFileDescriptorProto(f))
	}
	return set
}

func TestLoadFileDescriptorSet_MatchesParsedSource(t *testing.T) {
	fromDescriptor := New()
	require.NoError(t, fromDescriptor.LoadFileDescriptorSet(compile(t, "order.proto", map[string]string{"order.proto": orderProto})))

	fromSource := New()
	require.NoError(t, fromSource.LoadSchema(writeProto(t, t.TempDir(), "order.proto", orderProto)))

	assert.Equal(t, fromSource.ListMessages(), fromDescriptor.ListMessages())
	assert.Equal(t, fromSource.ListEnums(), fromDescriptor.ListEnums())
	assert.Equal(t, fromSource.ListServices(), fromDescriptor.ListServices())

	want, err := fromSource.GetMessage("shop.v1.Order")
	require.NoError(t, err)
	got, err := fromDescriptor.GetMessage("shop.v1.Order")
	require.NoError(t, err)

	// descriptors always carry a json_name; .proto sources only when set explicitly
	opts := []cmp.Option{
		cmpopts.IgnoreUnexported(schema.Message{}),
		cmpopts.IgnoreFields(schema.Field{}, "JsonName"),
	}
	if diff := cmp.Diff(want, got, opts...); diff != "" {
		t.Errorf("descriptor and source schemas differ (-source +descriptor):\n%s", diff)
	}
	assert.Equal(t, "memo", got.FieldByNumber(9).JSONKey())
	assert.Equal(t, "memo", want.FieldByNumber(9).JSONKey())

	wantSvc, err := fromSource.GetService("shop.v1.Orders")
	require.NoError(t, err)
	gotSvc, err := fromDescriptor.GetService("shop.v1.Orders")
	require.NoError(t, err)
	if diff := cmp.Diff(wantSvc, gotSvc); diff != "" {
		t.Errorf("services differ (-source +descriptor):\n%s", diff)
	}
}

func TestFileFromDescriptor(t *testing.T) {
	set := compile(t, "order.proto", map[string]string{"order.proto": orderProto})
	file, err := FileFromDescriptor(set.File[0])
	require.NoError(t, err)

	assert.Equal(t, "order.proto", file.Name)
	assert.Equal(t, "shop.v1", file.Package)
	assert.Equal(t, "proto3", file.Syntax)
	require.Len(t, file.Imports, 1)
	assert.Equal(t, "google/protobuf/timestamp.proto", file.Imports[0].Path)

	order := file.Messages[0]
	require.Len(t, order.NestedTypes, 1, "map entries are folded into map fields")
	assert.Equal(t, "Line", order.NestedTypes[0].Name)
	require.Len(t, order.OneofGroups, 1, "synthetic proto3 optional oneofs are dropped")
	assert.Equal(t, "payment", order.OneofGroups[0].Name)

	note := order.FieldByName("note")
	require.NotNil(t, note)
	assert.Equal(t, schema.LabelOptional, note.Label)

	tags := order.FieldByName("tags")
	require.NotNil(t, tags)
	assert.Equal(t, schema.KindMap, tags.Type.Kind)
	assert.Equal(t, schema.TypeInt32, tags.Type.MapValue.PrimitiveType)

	// references stay fully qualified until registration
	assert.Equal(t, ".shop.v1.Order.Line", order.FieldByName("lines").Type.MessageType)
}

func TestFileFromDescriptor_Proto2(t *testing.T) {
	set := compile(t, "legacy.proto", map[string]string{"legacy.proto": `syntax = "proto2";
package legacy;
message Record {
  required int32 id = 1;
  optional string name = 2 [default = "anon"];
  repeated int32 scores = 3 [packed = true];
  repeated int32 raw = 4;
  optional group Extra = 5 {
    optional int32 x = 6;
  }
}
`})
	file, err := FileFromDescriptor(set.File[0])
	require.NoError(t, err)
	assert.Equal(t, "proto2", file.Syntax)

	record := file.Messages[0]
	assert.Equal(t, schema.LabelRequired, record.FieldByName("id").Label)
	assert.Equal(t, "anon", record.FieldByName("name").DefaultValue)
	assert.True(t, record.FieldByName("scores").Packed)
	assert.False(t, record.FieldByName("raw").Packed)
	assert.Nil(t, record.FieldByNumber(5), "groups are not decoded")
}

func TestLoadDescriptorSetFile(t *testing.T) {
	set := compile(t, "order.proto", map[string]string{"order.proto": orderProto})
	data, err := proto.Marshal(set)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "order.binpb")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	registry := New()
	require.NoError(t, registry.LoadDescriptorSetFile(path))
	_, err = registry.GetMessage("shop.v1.Order.Line")
	assert.NoError(t, err)

	// the same file registered twice is skipped
	require.NoError(t, registry.LoadDescriptorSetFile(path))

	require.NoError(t, os.WriteFile(path, []byte{0xff, 0xff}, 0o644))
	assert.Error(t, New().LoadDescriptorSetFile(path))
	assert.Error(t, New().LoadDescriptorSetFile(filepath.Join(t.TempDir(), "missing.binpb")))
}
