package registry

import (
	"github.com/anirudhraja/protocodec/schema"
)

const wellKnownPackage = "google.protobuf"

// RegisterWellKnownTypes registers the google.protobuf types that .proto
// sources commonly import: Timestamp, Duration, Empty, the nine wrappers,
// Any, FieldMask and the Struct family. It is idempotent, and a file that
// defines one of these names itself replaces the built-in definition.
func (r *Registry) RegisterWellKnownTypes() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var files []*schema.ProtoFile
	for _, file := range wellKnownFiles() {
		if _, seen := r.repo.ProtoFiles[file.Name]; seen {
			continue
		}
		if _, taken := r.messages[getFullName(file.Package, file.Messages[0].Name)]; taken {
			continue
		}
		files = append(files, file)
	}
	if len(files) == 0 {
		return nil
	}
	return r.registerLocked(files, true)
}

// IsWellKnownType reports whether name is one of the google.protobuf types
// RegisterWellKnownTypes provides.
func IsWellKnownType(name string) bool {
	switch name {
	case "google.protobuf.Timestamp", "google.protobuf.Duration", "google.protobuf.Empty",
		"google.protobuf.Any", "google.protobuf.FieldMask",
		"google.protobuf.Struct", "google.protobuf.Value", "google.protobuf.ListValue":
		return true
	}
	return IsWrapperType(name)
}

// IsWrapperType reports whether name is one of the nine scalar wrapper messages.
func IsWrapperType(name string) bool {
	_, ok := wrapperTypes[name]
	return ok
}

// WrapperValueType returns the primitive type carried by a wrapper message.
func WrapperValueType(name string) (schema.PrimitiveType, bool) {
	p, ok := wrapperTypes[name]
	return p, ok
}

var wrapperTypes = map[string]schema.PrimitiveType{
	"google.protobuf.DoubleValue": schema.TypeDouble,
	"google.protobuf.FloatValue":  schema.TypeFloat,
	"google.protobuf.Int64Value":  schema.TypeInt64,
	"google.protobuf.UInt64Value": schema.TypeUint64,
	"google.protobuf.Int32Value":  schema.TypeInt32,
	"google.protobuf.UInt32Value": schema.TypeUint32,
	"google.protobuf.BoolValue":   schema.TypeBool,
	"google.protobuf.StringValue": schema.TypeString,
	"google.protobuf.BytesValue":  schema.TypeBytes,
}

func wktField(name string, number int32, pt schema.PrimitiveType) *schema.Field {
	return &schema.Field{
		Name:   name,
		Number: number,
		Label:  schema.LabelSingular,
		Type:   schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: pt},
	}
}

func wktMessage(name string, fields ...*schema.Field) *schema.Message {
	return &schema.Message{Name: name, Fields: fields}
}

func wktFile(name string, messages ...*schema.Message) *schema.ProtoFile {
	return &schema.ProtoFile{
		Name:     "google/protobuf/" + name,
		Package:  wellKnownPackage,
		Syntax:   "proto3",
		Messages: messages,
	}
}

// wellKnownFiles returns fresh definitions on every call; registration
// mutates the field tables it is given.
func wellKnownFiles() []*schema.ProtoFile {
	wrappers := wktFile("wrappers.proto")
	for _, name := range []string{
		"DoubleValue", "FloatValue", "Int64Value", "UInt64Value", "Int32Value",
		"UInt32Value", "BoolValue", "StringValue", "BytesValue",
	} {
		wrappers.Messages = append(wrappers.Messages,
			wktMessage(name, wktField("value", 1, wrapperTypes[wellKnownPackage+"."+name])))
	}

	paths := wktField("paths", 1, schema.TypeString)
	paths.Label = schema.LabelRepeated

	structFile := wktFile("struct.proto", structMessages()...)
	structFile.Enums = []*schema.Enum{{
		Name:   "NullValue",
		Values: []*schema.EnumValue{{Name: "NULL_VALUE", Number: 0}},
	}}

	return []*schema.ProtoFile{
		wktFile("timestamp.proto", wktMessage("Timestamp",
			wktField("seconds", 1, schema.TypeInt64), wktField("nanos", 2, schema.TypeInt32))),
		wktFile("duration.proto", wktMessage("Duration",
			wktField("seconds", 1, schema.TypeInt64), wktField("nanos", 2, schema.TypeInt32))),
		wktFile("empty.proto", wktMessage("Empty")),
		wrappers,
		wktFile("any.proto", wktMessage("Any",
			wktField("type_url", 1, schema.TypeString), wktField("value", 2, schema.TypeBytes))),
		wktFile("field_mask.proto", wktMessage("FieldMask", paths)),
		structFile,
	}
}

func structMessages() []*schema.Message {
	fields := &schema.Field{
		Name:   "fields",
		Number: 1,
		Label:  schema.LabelRepeated,
		Type: schema.FieldType{
			Kind:     schema.KindMap,
			MapKey:   &schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.TypeString},
			MapValue: &schema.FieldType{Kind: schema.KindMessage, MessageType: ".google.protobuf.Value"},
		},
	}
	member := func(name string, number int32, ft schema.FieldType) *schema.Field {
		return &schema.Field{Name: name, Number: number, Label: schema.LabelOptional, Type: ft}
	}
	value := &schema.Message{
		Name: "Value",
		OneofGroups: []*schema.Oneof{{
			Name: "kind",
			Fields: []*schema.Field{
				member("null_value", 1, schema.FieldType{Kind: schema.KindEnum, EnumType: ".google.protobuf.NullValue"}),
				member("number_value", 2, schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.TypeDouble}),
				member("string_value", 3, schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.TypeString}),
				member("bool_value", 4, schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.TypeBool}),
				member("struct_value", 5, schema.FieldType{Kind: schema.KindMessage, MessageType: ".google.protobuf.Struct"}),
				member("list_value", 6, schema.FieldType{Kind: schema.KindMessage, MessageType: ".google.protobuf.ListValue"}),
			},
		}},
	}
	values := member("values", 1, schema.FieldType{Kind: schema.KindMessage, MessageType: ".google.protobuf.Value"})
	values.Label = schema.LabelRepeated
	return []*schema.Message{
		wktMessage("Struct", fields),
		value,
		wktMessage("ListValue", values),
	}
}
