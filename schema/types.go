package schema

import (
	"fmt"
	"sort"
	"sync"
)

// ProtoRepo represents a collection of .proto files and their definitions.
type ProtoRepo struct {
	ProtoFiles map[string]*ProtoFile `json:"proto_files"`
}

// ProtoFile represents a single .proto file
type ProtoFile struct {
	Name     string     `json:"name"`     // file.proto
	Package  string     `json:"package"`  // package name
	Syntax   string     `json:"syntax"`   // proto2 or proto3
	Imports  []*Import  `json:"imports"`  // imported files
	Messages []*Message `json:"messages"` // message definitions
	Enums    []*Enum    `json:"enums"`    // enum definitions
	Services []*Service `json:"services"` // service definitions
}

// Import represents an import statement
type Import struct {
	Path   string `json:"path"`   // "google/protobuf/timestamp.proto"
	Public bool   `json:"public"` // public import
	Weak   bool   `json:"weak"`   // weak import
}

// Message represents a protobuf message definition
type Message struct {
	Name        string     `json:"name"`         // "User"
	FullName    string     `json:"full_name"`    // "pkg.User", set on registration
	Fields      []*Field   `json:"fields"`       // message fields
	NestedTypes []*Message `json:"nested_types"` // nested messages
	NestedEnums []*Enum    `json:"nested_enums"` // nested enums
	OneofGroups []*Oneof   `json:"oneof_groups"` // oneof groups
	MapEntry    bool       `json:"map_entry"`    // is this a map entry?

	indexOnce sync.Once
	byNumber  map[int32]*Field
	byName    map[string]*Field
	oneofOf   map[int32]*Oneof
	ordered   []*Field
}

// Field represents a message field
type Field struct {
	Name         string     `json:"name"`          // "user_name"
	Number       int32      `json:"number"`        // 1
	Label        FieldLabel `json:"label"`         // singular, optional, required, repeated
	Type         FieldType  `json:"type"`          // field type information
	DefaultValue string     `json:"default_value"` // default value (proto2 text form)
	JsonName     string     `json:"json_name"`     // JSON field name
	Packed       bool       `json:"packed"`        // repeated scalars are emitted packed
}

// Oneof represents a oneof group
type Oneof struct {
	Name   string   `json:"name"`   // "user_info"
	Fields []*Field `json:"fields"` // fields in this oneof
}

// FieldLabel represents field cardinality.
type FieldLabel string

const (
	// LabelSingular is a proto3 field without explicit presence. Zero values
	// are not written to the wire.
	LabelSingular FieldLabel = "singular"
	LabelOptional FieldLabel = "optional"
	LabelRequired FieldLabel = "required"
	LabelRepeated FieldLabel = "repeated"
)

// FieldType represents field type information
type FieldType struct {
	Kind          TypeKind      `json:"kind"`                     // primitive, message, enum, map
	PrimitiveType PrimitiveType `json:"primitive_type,omitempty"` // for primitive types
	MessageType   string        `json:"message_type,omitempty"`   // for message types: "User", "google.protobuf.Timestamp"
	EnumType      string        `json:"enum_type,omitempty"`      // for enum types
	MapKey        *FieldType    `json:"map_key,omitempty"`        // for map key type
	MapValue      *FieldType    `json:"map_value,omitempty"`      // for map value type
}

// TypeKind represents the kind of field type
type TypeKind string

const (
	KindPrimitive TypeKind = "primitive"
	KindMessage   TypeKind = "message"
	KindEnum      TypeKind = "enum"
	KindMap       TypeKind = "map"
)

// PrimitiveType represents protobuf primitive types
type PrimitiveType string

const (
	TypeDouble   PrimitiveType = "double"
	TypeFloat    PrimitiveType = "float"
	TypeInt64    PrimitiveType = "int64"
	TypeUint64   PrimitiveType = "uint64"
	TypeInt32    PrimitiveType = "int32"
	TypeFixed64  PrimitiveType = "fixed64"
	TypeFixed32  PrimitiveType = "fixed32"
	TypeBool     PrimitiveType = "bool"
	TypeString   PrimitiveType = "string"
	TypeBytes    PrimitiveType = "bytes"
	TypeUint32   PrimitiveType = "uint32"
	TypeSfixed32 PrimitiveType = "sfixed32"
	TypeSfixed64 PrimitiveType = "sfixed64"
	TypeSint32   PrimitiveType = "sint32"
	TypeSint64   PrimitiveType = "sint64"
)

var primitives = map[string]PrimitiveType{
	"double": TypeDouble, "float": TypeFloat, "int64": TypeInt64, "uint64": TypeUint64,
	"int32": TypeInt32, "fixed64": TypeFixed64, "fixed32": TypeFixed32, "bool": TypeBool,
	"string": TypeString, "bytes": TypeBytes, "uint32": TypeUint32, "sfixed32": TypeSfixed32,
	"sfixed64": TypeSfixed64, "sint32": TypeSint32, "sint64": TypeSint64,
}

// LookupPrimitive returns the primitive type named by a .proto scalar keyword.
func LookupPrimitive(name string) (PrimitiveType, bool) {
	p, ok := primitives[name]
	return p, ok
}

// IsPackedType checks and returns if the Primitive type can be packed for repeated label
func IsPackedType(t PrimitiveType) bool {
	switch t {
	case TypeString, TypeBytes, "":
		return false
	}
	_, ok := primitives[string(t)]
	return ok
}

// Is64Bit reports whether values of t are 64-bit integers.
func Is64Bit(t PrimitiveType) bool {
	switch t {
	case TypeInt64, TypeUint64, TypeSint64, TypeFixed64, TypeSfixed64:
		return true
	}
	return false
}

// IsUnsigned reports whether t is an unsigned integer type.
func IsUnsigned(t PrimitiveType) bool {
	switch t {
	case TypeUint32, TypeUint64, TypeFixed32, TypeFixed64:
		return true
	}
	return false
}

// IsPackable reports whether a repeated field of this type may use the packed encoding.
func (ft *FieldType) IsPackable() bool {
	switch ft.Kind {
	case KindEnum:
		return true
	case KindPrimitive:
		return IsPackedType(ft.PrimitiveType)
	}
	return false
}

// Enum represents an enum definition
type Enum struct {
	Name       string       `json:"name"`        // "Status"
	FullName   string       `json:"full_name"`   // "pkg.Status", set on registration
	Values     []*EnumValue `json:"values"`      // enum values
	AllowAlias bool         `json:"allow_alias"` // allow_alias option
}

// EnumValue represents an enum value
type EnumValue struct {
	Name   string `json:"name"`   // "ACTIVE"
	Number int32  `json:"number"` // 1
}

// ValueByNumber returns the first value declared with the given number.
func (e *Enum) ValueByNumber(n int32) *EnumValue {
	for _, v := range e.Values {
		if v.Number == n {
			return v
		}
	}
	return nil
}

// ValueByName returns the value with the given name.
func (e *Enum) ValueByName(name string) *EnumValue {
	for _, v := range e.Values {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// Service represents a service definition
type Service struct {
	Name     string    `json:"name"`      // "UserService"
	FullName string    `json:"full_name"` // "pkg.UserService"
	Methods  []*Method `json:"methods"`   // service methods
}

// Method represents a service method
type Method struct {
	Name            string `json:"name"`             // "GetUser"
	InputType       string `json:"input_type"`       // "GetUserRequest"
	OutputType      string `json:"output_type"`      // "GetUserResponse"
	ClientStreaming bool   `json:"client_streaming"` // stream input
	ServerStreaming bool   `json:"server_streaming"` // stream output
}

// MaxFieldNumber is the largest field number the wire format can carry.
const MaxFieldNumber = 1<<29 - 1

func (m *Message) buildIndex() {
	m.byNumber = make(map[int32]*Field)
	m.byName = make(map[string]*Field)
	m.oneofOf = make(map[int32]*Oneof)
	all := m.AllFields()
	for _, f := range all {
		m.byNumber[f.Number] = f
		m.byName[f.Name] = f
	}
	// proto names take precedence over JSON names
	for _, f := range all {
		if f.JsonName == "" {
			continue
		}
		if _, taken := m.byName[f.JsonName]; !taken {
			m.byName[f.JsonName] = f
		}
	}
	for _, o := range m.OneofGroups {
		for _, f := range o.Fields {
			m.oneofOf[f.Number] = o
		}
	}
	m.ordered = all
	sort.SliceStable(m.ordered, func(i, j int) bool {
		return m.ordered[i].Number < m.ordered[j].Number
	})
}

// FieldsByNumber returns all fields, oneof members included, in ascending
// field number order. The slice must not be modified.
func (m *Message) FieldsByNumber() []*Field {
	m.indexOnce.Do(m.buildIndex)
	return m.ordered
}

// FieldByNumber returns the field with the given number, including oneof members.
func (m *Message) FieldByNumber(n int32) *Field {
	m.indexOnce.Do(m.buildIndex)
	return m.byNumber[n]
}

// FieldByName returns the field with the given proto name or JSON name.
func (m *Message) FieldByName(name string) *Field {
	m.indexOnce.Do(m.buildIndex)
	return m.byName[name]
}

// OneofOf returns the oneof group the field belongs to, or nil.
func (m *Message) OneofOf(f *Field) *Oneof {
	m.indexOnce.Do(m.buildIndex)
	return m.oneofOf[f.Number]
}

// AllFields returns regular fields followed by oneof members.
func (m *Message) AllFields() []*Field {
	out := make([]*Field, 0, len(m.Fields))
	out = append(out, m.Fields...)
	for _, o := range m.OneofGroups {
		out = append(out, o.Fields...)
	}
	return out
}

// Validate checks field numbers and names for a single message (not nested types).
func (m *Message) Validate() error {
	numbers := make(map[int32]string)
	names := make(map[string]struct{})
	for _, f := range m.AllFields() {
		if f.Number < 1 || f.Number > MaxFieldNumber {
			return fmt.Errorf("message %s: field %s has invalid number %d", m.Name, f.Name, f.Number)
		}
		if other, dup := numbers[f.Number]; dup {
			return fmt.Errorf("message %s: fields %s and %s share number %d", m.Name, other, f.Name, f.Number)
		}
		if _, dup := names[f.Name]; dup {
			return fmt.Errorf("message %s: duplicate field name %s", m.Name, f.Name)
		}
		numbers[f.Number] = f.Name
		names[f.Name] = struct{}{}
		if f.Type.Kind == KindMap && (f.Type.MapKey == nil || f.Type.MapValue == nil) {
			return fmt.Errorf("message %s: map field %s lacks key or value type", m.Name, f.Name)
		}
	}
	return nil
}
