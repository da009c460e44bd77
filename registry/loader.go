package registry

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	protoparser "github.com/yoheimuta/go-protoparser/v4"
	protoparserparser "github.com/yoheimuta/go-protoparser/v4/parser"

	"github.com/anirudhraja/protocodec/schema"
)

// wellKnownPrefix marks imports served by RegisterWellKnownTypes.
const wellKnownPrefix = "google/protobuf/"

// loader parses a set of .proto files and, depth first, everything they import.
type loader struct {
	searchDirs     []string
	visited        map[string]struct{} // to make sure we don't end up in a loop
	files          []*schema.ProtoFile
	needsWellKnown bool
}

func newLoader(searchDirs []string) *loader {
	return &loader{
		searchDirs: searchDirs,
		visited:    make(map[string]struct{}),
	}
}

func (l *loader) load(protoFile string) error {
	protoFile = filepath.Clean(protoFile)
	if _, ok := l.visited[protoFile]; ok {
		return nil
	}
	l.visited[protoFile] = struct{}{}

	f, err := os.Open(protoFile)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	defer f.Close()

	parsed, err := ParseFile(protoFile, f)
	if err != nil {
		return err
	}
	for _, imp := range parsed.Imports {
		if strings.HasPrefix(imp.Path, wellKnownPrefix) {
			l.needsWellKnown = true
			continue
		}
		fullImportPath, err := l.findIfProtoExists(imp.Path, filepath.Dir(protoFile))
		if err != nil {
			if imp.Weak {
				continue
			}
			return err
		}
		if err := l.load(fullImportPath); err != nil {
			return fmt.Errorf("import %s: %w", imp.Path, err)
		}
	}
	l.files = append(l.files, parsed)
	return nil
}

func (l *loader) findIfProtoExists(protoPath, importerDir string) (string, error) {
	if !strings.HasSuffix(protoPath, ".proto") {
		return "", fmt.Errorf("is not a .proto file: %s", protoPath)
	}
	dirs := append(append([]string(nil), l.searchDirs...), importerDir)
	for _, dir := range dirs {
		fullPath := filepath.Join(dir, protoPath)
		// Check if the path exists
		if _, err := os.Stat(fullPath); err == nil {
			return fullPath, nil
		}
	}
	return "", fmt.Errorf("path does not exist: %s (searched %s)", protoPath, strings.Join(dirs, ", "))
}

// ParseFile parses .proto source into a schema file. Type references are
// left as written; Registry.Register resolves them.
func ParseFile(name string, content io.Reader) (*schema.ProtoFile, error) {
	parsedBody, err := protoparser.Parse(content, protoparser.WithFilename(name))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}

	protoFile := &schema.ProtoFile{
		Name:   name,
		Syntax: "proto2", // protoc's default when no syntax statement is present
	}
	if parsedBody.Syntax != nil {
		protoFile.Syntax = strings.Trim(parsedBody.Syntax.ProtobufVersion, `"'`)
	}
	proto3 := protoFile.Syntax == "proto3"

	for _, body := range parsedBody.ProtoBody {
		switch b := body.(type) {
		case *protoparserparser.Package:
			protoFile.Package = b.Name
		case *protoparserparser.Import:
			protoFile.Imports = append(protoFile.Imports, &schema.Import{
				Path:   unquote(b.Location),
				Public: b.Modifier == protoparserparser.ImportModifierPublic,
				Weak:   b.Modifier == protoparserparser.ImportModifierWeak,
			})
		case *protoparserparser.Message:
			msg, err := convertMessage(b, proto3)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			protoFile.Messages = append(protoFile.Messages, msg)
		case *protoparserparser.Enum:
			enum, err := convertEnum(b)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			protoFile.Enums = append(protoFile.Enums, enum)
		case *protoparserparser.Service:
			protoFile.Services = append(protoFile.Services, convertService(b))
		}
	}
	return protoFile, nil
}

func convertMessage(m *protoparserparser.Message, proto3 bool) (*schema.Message, error) {
	msg := &schema.Message{Name: m.MessageName}
	for _, body := range m.MessageBody {
		switch b := body.(type) {
		case *protoparserparser.Field:
			field, err := convertField(b, proto3)
			if err != nil {
				return nil, fmt.Errorf("message %s: %w", m.MessageName, err)
			}
			msg.Fields = append(msg.Fields, field)
		case *protoparserparser.MapField:
			field, err := convertMapField(b)
			if err != nil {
				return nil, fmt.Errorf("message %s: %w", m.MessageName, err)
			}
			msg.Fields = append(msg.Fields, field)
		case *protoparserparser.Oneof:
			oneof := &schema.Oneof{Name: b.OneofName}
			for _, of := range b.OneofFields {
				field, err := newField(of.FieldName, of.FieldNumber, of.Type, of.FieldOptions)
				if err != nil {
					return nil, fmt.Errorf("message %s: %w", m.MessageName, err)
				}
				field.Label = schema.LabelOptional
				oneof.Fields = append(oneof.Fields, field)
			}
			msg.OneofGroups = append(msg.OneofGroups, oneof)
		case *protoparserparser.Message:
			nested, err := convertMessage(b, proto3)
			if err != nil {
				return nil, err
			}
			msg.NestedTypes = append(msg.NestedTypes, nested)
		case *protoparserparser.Enum:
			enum, err := convertEnum(b)
			if err != nil {
				return nil, err
			}
			msg.NestedEnums = append(msg.NestedEnums, enum)
		}
	}
	return msg, nil
}

func convertField(f *protoparserparser.Field, proto3 bool) (*schema.Field, error) {
	field, err := newField(f.FieldName, f.FieldNumber, f.Type, f.FieldOptions)
	if err != nil {
		return nil, err
	}

	switch {
	case f.IsRepeated:
		field.Label = schema.LabelRepeated
	case f.IsRequired:
		field.Label = schema.LabelRequired
	case f.IsOptional || !proto3:
		field.Label = schema.LabelOptional
	default:
		field.Label = schema.LabelSingular
	}

	if field.Label == schema.LabelRepeated {
		// proto3 packs repeated scalars unless told otherwise; proto2 only on request
		field.Packed = proto3
		if v, ok := fieldOption(f.FieldOptions, "packed"); ok {
			field.Packed = v == "true"
		}
		if field.Type.Kind == schema.KindPrimitive && !field.Type.IsPackable() {
			field.Packed = false
		}
	}
	return field, nil
}

// newField builds a field from its declaration. Named types are recorded as
// message references until registration resolves them.
func newField(name, number, typeName string, options []*protoparserparser.FieldOption) (*schema.Field, error) {
	n, err := strconv.ParseInt(number, 0, 32)
	if err != nil {
		return nil, fmt.Errorf("field %s: invalid number %q", name, number)
	}
	field := &schema.Field{
		Name:   name,
		Number: int32(n),
		Type:   parseTypeName(typeName),
	}
	if v, ok := fieldOption(options, "json_name"); ok {
		field.JsonName = v
	}
	for _, opt := range options {
		// defaults keep their escaped text form, as in descriptors
		if opt.OptionName == "default" {
			field.DefaultValue = trimQuotes(opt.Constant)
		}
	}
	return field, nil
}

func convertMapField(f *protoparserparser.MapField) (*schema.Field, error) {
	n, err := strconv.ParseInt(f.FieldNumber, 0, 32)
	if err != nil {
		return nil, fmt.Errorf("map field %s: invalid number %q", f.MapName, f.FieldNumber)
	}
	keyType := parseTypeName(f.KeyType)
	if keyType.Kind != schema.KindPrimitive || keyType.PrimitiveType == schema.TypeFloat ||
		keyType.PrimitiveType == schema.TypeDouble || keyType.PrimitiveType == schema.TypeBytes {
		return nil, fmt.Errorf("map field %s: invalid key type %s", f.MapName, f.KeyType)
	}
	valueType := parseTypeName(f.Type)
	field := &schema.Field{
		Name:   f.MapName,
		Number: int32(n),
		Label:  schema.LabelRepeated,
		Type: schema.FieldType{
			Kind:     schema.KindMap,
			MapKey:   &keyType,
			MapValue: &valueType,
		},
	}
	if v, ok := fieldOption(f.FieldOptions, "json_name"); ok {
		field.JsonName = v
	}
	return field, nil
}

func parseTypeName(typeName string) schema.FieldType {
	if p, ok := schema.LookupPrimitive(typeName); ok {
		return schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: p}
	}
	return schema.FieldType{Kind: schema.KindMessage, MessageType: typeName}
}

func convertEnum(e *protoparserparser.Enum) (*schema.Enum, error) {
	enum := &schema.Enum{Name: e.EnumName}
	for _, body := range e.EnumBody {
		switch b := body.(type) {
		case *protoparserparser.EnumField:
			n, err := strconv.ParseInt(b.Number, 0, 32)
			if err != nil {
				return nil, fmt.Errorf("enum %s value %s: invalid number %q", e.EnumName, b.Ident, b.Number)
			}
			enum.Values = append(enum.Values, &schema.EnumValue{Name: b.Ident, Number: int32(n)})
		case *protoparserparser.Option:
			if b.OptionName == "allow_alias" {
				enum.AllowAlias = b.Constant == "true"
			}
		}
	}
	if len(enum.Values) == 0 {
		return nil, fmt.Errorf("enum %s has no values", e.EnumName)
	}
	return enum, nil
}

func convertService(s *protoparserparser.Service) *schema.Service {
	service := &schema.Service{Name: s.ServiceName}
	for _, body := range s.ServiceBody {
		rpc, ok := body.(*protoparserparser.RPC)
		if !ok {
			continue
		}
		service.Methods = append(service.Methods, &schema.Method{
			Name:            rpc.RPCName,
			InputType:       rpc.RPCRequest.MessageType,
			OutputType:      rpc.RPCResponse.MessageType,
			ClientStreaming: rpc.RPCRequest.IsStream,
			ServerStreaming: rpc.RPCResponse.IsStream,
		})
	}
	return service
}

func fieldOption(options []*protoparserparser.FieldOption, name string) (string, bool) {
	for _, opt := range options {
		if opt.OptionName == name {
			return unquote(opt.Constant), true
		}
	}
	return "", false
}

func trimQuotes(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		if u, err := strconv.Unquote(`"` + s[1:len(s)-1] + `"`); err == nil {
			return u
		}
		return s[1 : len(s)-1]
	}
	return s
}
