package protocodec

import (
	"context"
	"fmt"
	"testing"

	"github.com/bufbuild/protocompile"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/anirudhraja/protocodec/reverse"
)

const benchProto = `syntax = "proto3";
package bench;

message Post {
  int64 id = 1;
  string title = 2;
  repeated string tags = 3;
  repeated int32 scores = 4;
}

message User {
  int32 id = 1;
  string name = 2;
  bool active = 3;
  oneof contact_method {
    string email = 4;
    string phone = 5;
  }
  map<string, string> metadata = 6;
  repeated Post posts = 7;
  int64 created_at = 8;
}
`

// benchFixture holds the same schema in both runtimes and payloads encoded
// by the reference implementation.
type benchFixture struct {
	codec   *Codec
	user    protoreflect.MessageDescriptor
	simple  []byte
	complex []byte
}

func newBenchFixture(tb testing.TB) *benchFixture {
	tb.Helper()
	compiler := protocompile.Compiler{
		Resolver: &protocompile.SourceResolver{
			Accessor: protocompile.SourceAccessorFromMap(map[string]string{"bench.proto": benchProto}),
		},
	}
	files, err := compiler.Compile(context.Background(), "bench.proto")
	if err != nil {
		tb.Fatalf("Compile failed: %v", err)
	}
	codec := New(Config{})
	set := &descriptorpb.FileDescriptorSet{File: []*descriptorpb.FileDescriptorProto{protodesc.ToFileDescriptorProto(files[0])}}
	if err := codec.LoadDescriptorSet(set); err != nil {
		tb.Fatalf("LoadDescriptorSet failed: %v", err)
	}
	if err := codec.Register(reverse.File()); err != nil {
		tb.Fatalf("Register failed: %v", err)
	}

	f := &benchFixture{codec: codec, user: files[0].Messages().ByName("User")}
	if f.simple, err = (&reverse.StringReverseRequest{UserString: "John Doe <john@example.com>"}).Marshal(); err != nil {
		tb.Fatal(err)
	}
	if f.complex, err = proto.Marshal(f.complexUser()); err != nil {
		tb.Fatal(err)
	}
	return f
}

func (f *benchFixture) complexUser() *dynamicpb.Message {
	user := dynamicpb.NewMessage(f.user)
	fields := f.user.Fields()
	user.Set(fields.ByName("id"), protoreflect.ValueOfInt32(123))
	user.Set(fields.ByName("name"), protoreflect.ValueOfString("John Doe"))
	user.Set(fields.ByName("active"), protoreflect.ValueOfBool(true))
	user.Set(fields.ByName("email"), protoreflect.ValueOfString("john@example.com"))
	user.Set(fields.ByName("created_at"), protoreflect.ValueOfInt64(1640995200))

	metadata := user.Mutable(fields.ByName("metadata")).Map()
	for i := 0; i < 8; i++ {
		metadata.Set(protoreflect.ValueOfString(fmt.Sprintf("key%d", i)).MapKey(), protoreflect.ValueOfString(fmt.Sprintf("value%d", i)))
	}

	postDesc := fields.ByName("posts").Message()
	posts := user.Mutable(fields.ByName("posts")).List()
	for i := 0; i < 10; i++ {
		post := dynamicpb.NewMessage(postDesc)
		post.Set(postDesc.Fields().ByName("id"), protoreflect.ValueOfInt64(int64(1000+i)))
		post.Set(postDesc.Fields().ByName("title"), protoreflect.ValueOfString(fmt.Sprintf("post number %d", i)))
		tags := post.Mutable(postDesc.Fields().ByName("tags")).List()
		tags.Append(protoreflect.ValueOfString("go"))
		tags.Append(protoreflect.ValueOfString("protobuf"))
		scores := post.Mutable(postDesc.Fields().ByName("scores")).List()
		for s := int32(0); s < 16; s++ {
			scores.Append(protoreflect.ValueOfInt32(s * 37))
		}
		posts.Append(protoreflect.ValueOfMessage(post))
	}
	return user
}

func TestBenchFixture(t *testing.T) {
	f := newBenchFixture(t)

	msg, err := f.codec.Unmarshal("bench.User", f.complex)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got := len(msg["posts"].([]interface{})); got != 10 {
		t.Errorf("len(posts) = %d", got)
	}
	if got := len(msg["metadata"].(map[interface{}]interface{})); got != 8 {
		t.Errorf("len(metadata) = %d", got)
	}

	// our encoding is accepted and equal according to the reference runtime
	data, err := f.codec.Marshal("bench.User", msg)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	round := dynamicpb.NewMessage(f.user)
	if err := proto.Unmarshal(data, round); err != nil {
		t.Fatalf("proto.Unmarshal failed: %v", err)
	}
	if !proto.Equal(f.complexUser(), round) {
		t.Error("re-encoded user differs from the original")
	}
}

func BenchmarkSimple_Typed(b *testing.B) {
	f := newBenchFixture(b)
	b.ReportMetric(float64(len(f.simple)), "payload_bytes")
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var req reverse.StringReverseRequest
		if err := req.Unmarshal(f.simple); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSimple_TableDriven(b *testing.B) {
	f := newBenchFixture(b)
	b.ReportMetric(float64(len(f.simple)), "payload_bytes")
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := f.codec.Unmarshal(reverse.RequestType, f.simple); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkComplex_Codec(b *testing.B) {
	f := newBenchFixture(b)
	b.ReportMetric(float64(len(f.complex)), "payload_bytes")
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := f.codec.Unmarshal("bench.User", f.complex); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkComplex_DynamicPB(b *testing.B) {
	f := newBenchFixture(b)
	b.ReportMetric(float64(len(f.complex)), "payload_bytes")
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := proto.Unmarshal(f.complex, dynamicpb.NewMessage(f.user)); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkComplex_Encode(b *testing.B) {
	f := newBenchFixture(b)
	msg, err := f.codec.Unmarshal("bench.User", f.complex)
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := f.codec.Marshal("bench.User", msg); err != nil {
			b.Fatal(err)
		}
	}
}
