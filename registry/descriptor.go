package registry

import (
	"fmt"
	"os"
	"strings"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/anirudhraja/protocodec/schema"
)

// LoadDescriptorSetFile reads a serialized FileDescriptorSet, as written by
// `protoc --descriptor_set_out` or `buf build -o`, and registers its files.
func (r *Registry) LoadDescriptorSetFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read descriptor set: %w", err)
	}
	set := &descriptorpb.FileDescriptorSet{}
	if err := proto.Unmarshal(data, set); err != nil {
		return fmt.Errorf("failed to parse descriptor set %s: %w", path, err)
	}
	return r.LoadFileDescriptorSet(set)
}

// LoadFileDescriptorSet registers every file of a compiled descriptor set.
// Files already registered under the same name are skipped.
func (r *Registry) LoadFileDescriptorSet(set *descriptorpb.FileDescriptorSet) error {
	files := make([]*schema.ProtoFile, 0, len(set.GetFile()))
	needsWellKnown := false
	for _, fd := range set.GetFile() {
		file, err := FileFromDescriptor(fd)
		if err != nil {
			return err
		}
		files = append(files, file)
		for _, dep := range fd.GetDependency() {
			if strings.HasPrefix(dep, wellKnownPrefix) {
				needsWellKnown = true
			}
		}
	}

	if needsWellKnown {
		if err := r.RegisterWellKnownTypes(); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	var fresh []*schema.ProtoFile
	for _, file := range files {
		if _, seen := r.repo.ProtoFiles[file.Name]; !seen {
			fresh = append(fresh, file)
		}
	}
	return r.registerLocked(fresh, false)
}

// FileFromDescriptor converts a compiled file descriptor into a schema file.
func FileFromDescriptor(fd *descriptorpb.FileDescriptorProto) (*schema.ProtoFile, error) {
	syntax := fd.GetSyntax()
	if syntax == "" {
		syntax = "proto2"
	}
	file := &schema.ProtoFile{
		Name:    fd.GetName(),
		Package: fd.GetPackage(),
		Syntax:  syntax,
	}

	public := make(map[int32]bool)
	for _, i := range fd.GetPublicDependency() {
		public[i] = true
	}
	weak := make(map[int32]bool)
	for _, i := range fd.GetWeakDependency() {
		weak[i] = true
	}
	for i, dep := range fd.GetDependency() {
		file.Imports = append(file.Imports, &schema.Import{Path: dep, Public: public[int32(i)], Weak: weak[int32(i)]})
	}

	for _, md := range fd.GetMessageType() {
		msg, err := messageFromDescriptor(md, syntax)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fd.GetName(), err)
		}
		file.Messages = append(file.Messages, msg)
	}
	for _, ed := range fd.GetEnumType() {
		file.Enums = append(file.Enums, enumFromDescriptor(ed))
	}
	for _, sd := range fd.GetService() {
		service := &schema.Service{Name: sd.GetName()}
		for _, m := range sd.GetMethod() {
			service.Methods = append(service.Methods, &schema.Method{
				Name:            m.GetName(),
				InputType:       m.GetInputType(),
				OutputType:      m.GetOutputType(),
				ClientStreaming: m.GetClientStreaming(),
				ServerStreaming: m.GetServerStreaming(),
			})
		}
		file.Services = append(file.Services, service)
	}
	return file, nil
}

func messageFromDescriptor(md *descriptorpb.DescriptorProto, syntax string) (*schema.Message, error) {
	msg := &schema.Message{
		Name:     md.GetName(),
		MapEntry: md.GetOptions().GetMapEntry(),
	}

	// map entry types become map fields rather than nested messages
	entries := make(map[string]*descriptorpb.DescriptorProto)
	for _, nested := range md.GetNestedType() {
		if nested.GetOptions().GetMapEntry() {
			entries[nested.GetName()] = nested
			continue
		}
		nestedMsg, err := messageFromDescriptor(nested, syntax)
		if err != nil {
			return nil, err
		}
		msg.NestedTypes = append(msg.NestedTypes, nestedMsg)
	}
	for _, ed := range md.GetEnumType() {
		msg.NestedEnums = append(msg.NestedEnums, enumFromDescriptor(ed))
	}

	// proto3 optional fields live in synthetic oneofs that only track presence
	synthetic := make(map[int32]bool)
	for _, fd := range md.GetField() {
		if fd.GetProto3Optional() && fd.OneofIndex != nil {
			synthetic[fd.GetOneofIndex()] = true
		}
	}
	oneofs := make([]*schema.Oneof, len(md.GetOneofDecl()))
	for i, od := range md.GetOneofDecl() {
		oneofs[i] = &schema.Oneof{Name: od.GetName()}
	}

	for _, fd := range md.GetField() {
		if fd.GetType() == descriptorpb.FieldDescriptorProto_TYPE_GROUP {
			// groups are skipped on the wire like unknown fields
			continue
		}
		field, err := fieldFromDescriptor(fd, syntax, entries)
		if err != nil {
			return nil, fmt.Errorf("message %s: %w", md.GetName(), err)
		}
		if fd.OneofIndex != nil && !synthetic[fd.GetOneofIndex()] {
			idx := int(fd.GetOneofIndex())
			if idx >= len(oneofs) {
				return nil, fmt.Errorf("message %s: field %s has invalid oneof index %d", md.GetName(), fd.GetName(), idx)
			}
			field.Label = schema.LabelOptional
			oneofs[idx].Fields = append(oneofs[idx].Fields, field)
			continue
		}
		msg.Fields = append(msg.Fields, field)
	}
	for i, oneof := range oneofs {
		if !synthetic[int32(i)] {
			msg.OneofGroups = append(msg.OneofGroups, oneof)
		}
	}
	return msg, nil
}

func fieldFromDescriptor(fd *descriptorpb.FieldDescriptorProto, syntax string, entries map[string]*descriptorpb.DescriptorProto) (*schema.Field, error) {
	field := &schema.Field{
		Name:         fd.GetName(),
		Number:       fd.GetNumber(),
		DefaultValue: fd.GetDefaultValue(),
		JsonName:     fd.GetJsonName(),
	}

	ft, err := fieldTypeFromDescriptor(fd)
	if err != nil {
		return nil, err
	}
	field.Type = ft

	switch fd.GetLabel() {
	case descriptorpb.FieldDescriptorProto_LABEL_REPEATED:
		field.Label = schema.LabelRepeated
	case descriptorpb.FieldDescriptorProto_LABEL_REQUIRED:
		field.Label = schema.LabelRequired
	default:
		if syntax == "proto3" && !fd.GetProto3Optional() {
			field.Label = schema.LabelSingular
		} else {
			field.Label = schema.LabelOptional
		}
	}

	if field.Label == schema.LabelRepeated && fd.GetType() == descriptorpb.FieldDescriptorProto_TYPE_MESSAGE {
		typeName := fd.GetTypeName()
		if entry, ok := entries[typeName[strings.LastIndex(typeName, ".")+1:]]; ok {
			return mapFieldFromEntry(field, entry)
		}
	}

	if field.Label == schema.LabelRepeated && field.Type.IsPackable() {
		field.Packed = syntax != "proto2"
		if opts := fd.GetOptions(); opts != nil && opts.Packed != nil {
			field.Packed = opts.GetPacked()
		}
	}
	return field, nil
}

func mapFieldFromEntry(field *schema.Field, entry *descriptorpb.DescriptorProto) (*schema.Field, error) {
	var key, value *schema.FieldType
	for _, ef := range entry.GetField() {
		ft, err := fieldTypeFromDescriptor(ef)
		if err != nil {
			return nil, err
		}
		switch ef.GetNumber() {
		case 1:
			key = &ft
		case 2:
			value = &ft
		}
	}
	if key == nil || value == nil {
		return nil, fmt.Errorf("map entry %s lacks key or value", entry.GetName())
	}
	field.Type = schema.FieldType{Kind: schema.KindMap, MapKey: key, MapValue: value}
	return field, nil
}

var descriptorPrimitives = map[descriptorpb.FieldDescriptorProto_Type]schema.PrimitiveType{
	descriptorpb.FieldDescriptorProto_TYPE_DOUBLE:   schema.TypeDouble,
	descriptorpb.FieldDescriptorProto_TYPE_FLOAT:    schema.TypeFloat,
	descriptorpb.FieldDescriptorProto_TYPE_INT64:    schema.TypeInt64,
	descriptorpb.FieldDescriptorProto_TYPE_UINT64:   schema.TypeUint64,
	descriptorpb.FieldDescriptorProto_TYPE_INT32:    schema.TypeInt32,
	descriptorpb.FieldDescriptorProto_TYPE_FIXED64:  schema.TypeFixed64,
	descriptorpb.FieldDescriptorProto_TYPE_FIXED32:  schema.TypeFixed32,
	descriptorpb.FieldDescriptorProto_TYPE_BOOL:     schema.TypeBool,
	descriptorpb.FieldDescriptorProto_TYPE_STRING:   schema.TypeString,
	descriptorpb.FieldDescriptorProto_TYPE_BYTES:    schema.TypeBytes,
	descriptorpb.FieldDescriptorProto_TYPE_UINT32:   schema.TypeUint32,
	descriptorpb.FieldDescriptorProto_TYPE_SFIXED32: schema.TypeSfixed32,
	descriptorpb.FieldDescriptorProto_TYPE_SFIXED64: schema.TypeSfixed64,
	descriptorpb.FieldDescriptorProto_TYPE_SINT32:   schema.TypeSint32,
	descriptorpb.FieldDescriptorProto_TYPE_SINT64:   schema.TypeSint64,
}

func fieldTypeFromDescriptor(fd *descriptorpb.FieldDescriptorProto) (schema.FieldType, error) {
	switch fd.GetType() {
	case descriptorpb.FieldDescriptorProto_TYPE_MESSAGE:
		return schema.FieldType{Kind: schema.KindMessage, MessageType: fd.GetTypeName()}, nil
	case descriptorpb.FieldDescriptorProto_TYPE_ENUM:
		return schema.FieldType{Kind: schema.KindEnum, EnumType: fd.GetTypeName()}, nil
	}
	if p, ok := descriptorPrimitives[fd.GetType()]; ok {
		return schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: p}, nil
	}
	if fd.GetTypeName() != "" {
		// protoc leaves the type unset for unresolved references
		return schema.FieldType{Kind: schema.KindMessage, MessageType: fd.GetTypeName()}, nil
	}
	return schema.FieldType{}, fmt.Errorf("field %s has unsupported type %s", fd.GetName(), fd.GetType())
}

func enumFromDescriptor(ed *descriptorpb.EnumDescriptorProto) *schema.Enum {
	enum := &schema.Enum{
		Name:       ed.GetName(),
		AllowAlias: ed.GetOptions().GetAllowAlias(),
	}
	for _, v := range ed.GetValue() {
		enum.Values = append(enum.Values, &schema.EnumValue{Name: v.GetName(), Number: v.GetNumber()})
	}
	return enum
}
