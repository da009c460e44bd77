package registry

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/anirudhraja/protocodec/schema"
)

// Registry allows us to store the schema of the protobuf messages. We look this up when we need to parse or marshal a message.
//
// A Registry is an explicit object: nothing is registered process-wide, and
// two registries never share definitions. Lookups are safe for concurrent use;
// loading takes an exclusive lock.
type Registry struct {
	// ProtoDirectories are searched, in order, to resolve import paths.
	ProtoDirectories []string

	mu       sync.RWMutex
	repo     *schema.ProtoRepo
	messages map[string]*schema.Message // fully qualified name -> message
	enums    map[string]*schema.Enum    // fully qualified name -> enum
	services map[string]*schema.Service // fully qualified name -> service
	builtin  map[string]struct{}        // names registered by RegisterWellKnownTypes
}

// Option configures a Registry.
type Option func(*Registry)

// WithProtoDirectories sets the directories searched for imported .proto files.
func WithProtoDirectories(dirs ...string) Option {
	return func(r *Registry) {
		r.ProtoDirectories = append(r.ProtoDirectories, dirs...)
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		repo:     &schema.ProtoRepo{ProtoFiles: make(map[string]*schema.ProtoFile)},
		messages: make(map[string]*schema.Message),
		enums:    make(map[string]*schema.Enum),
		services: make(map[string]*schema.Service),
		builtin:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds the definitions of a single file. See RegisterFiles.
func (r *Registry) Register(file *schema.ProtoFile) error {
	return r.RegisterFiles(file)
}

// RegisterFiles adds the messages, enums and services of the given files
// under their fully qualified names, then resolves every type reference they
// make. Files may refer to each other and to anything registered earlier.
// On error nothing from the batch stays registered, but the files themselves
// keep the full names and resolved references assigned before the failure.
// Registration takes ownership of the files and qualifies them in place.
func (r *Registry) RegisterFiles(files ...*schema.ProtoFile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registerLocked(files, false)
}

func (r *Registry) registerLocked(files []*schema.ProtoFile, builtin bool) error {
	for _, file := range files {
		for _, msg := range file.Messages {
			if err := validateMessage(msg); err != nil {
				return fmt.Errorf("%s: %w", file.Name, err)
			}
		}
	}

	added := &symbols{}
	if err := r.buildSymbolTable(files, added, builtin); err != nil {
		r.rollback(added)
		return fmt.Errorf("failed to build symbol table: %w", err)
	}
	for _, file := range files {
		r.repo.ProtoFiles[file.Name] = file
	}
	return nil
}

func validateMessage(msg *schema.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	for _, nested := range msg.NestedTypes {
		if err := validateMessage(nested); err != nil {
			return err
		}
	}
	return nil
}

// symbols records names added during one registration, for rollback.
type symbols struct {
	messages, enums, services []string
	replaced                  map[string]interface{}
}

func (r *Registry) rollback(added *symbols) {
	for _, name := range added.messages {
		delete(r.messages, name)
		delete(r.builtin, name)
	}
	for _, name := range added.enums {
		delete(r.enums, name)
		delete(r.builtin, name)
	}
	for _, name := range added.services {
		delete(r.services, name)
	}
	for name, def := range added.replaced {
		switch d := def.(type) {
		case *schema.Message:
			r.messages[name] = d
		case *schema.Enum:
			r.enums[name] = d
		}
		r.builtin[name] = struct{}{}
	}
}

// buildSymbolTable registers names first so that files in one batch can
// refer to each other, then resolves field and method types.
func (r *Registry) buildSymbolTable(files []*schema.ProtoFile, added *symbols, builtin bool) error {
	// Pass 1: Register all message, enum and service names
	for _, protoFile := range files {
		if err := r.registerNames(protoFile, added, builtin); err != nil {
			return err
		}
	}

	// Pass 2: Resolve field type references
	for _, protoFile := range files {
		if err := r.buildDefinitions(protoFile); err != nil {
			return err
		}
	}

	// Pass 3: Resolve service method types
	for _, protoFile := range files {
		if err := r.buildServices(protoFile); err != nil {
			return err
		}
	}
	return nil
}

// registerNames registers all message, enum, and service names
func (r *Registry) registerNames(protoFile *schema.ProtoFile, added *symbols, builtin bool) error {
	pkg := protoFile.Package
	for _, msg := range protoFile.Messages {
		if err := r.registerMessage(getFullName(pkg, msg.Name), msg, added, builtin); err != nil {
			return err
		}
	}

	for _, enum := range protoFile.Enums {
		if err := r.registerEnum(getFullName(pkg, enum.Name), enum, added, builtin); err != nil {
			return err
		}
	}

	for _, service := range protoFile.Services {
		fullName := getFullName(pkg, service.Name)
		if _, exists := r.services[fullName]; exists {
			return fmt.Errorf("duplicate service %s", fullName)
		}
		service.FullName = fullName
		r.services[fullName] = service
		added.services = append(added.services, fullName)
	}
	return nil
}

func (r *Registry) registerMessage(fullName string, msg *schema.Message, added *symbols, builtin bool) error {
	if err := r.claim(fullName, added, builtin); err != nil {
		return err
	}
	msg.FullName = fullName
	r.messages[fullName] = msg
	added.messages = append(added.messages, fullName)

	// Register nested types
	for _, nestedMsg := range msg.NestedTypes {
		if err := r.registerMessage(fullName+"."+nestedMsg.Name, nestedMsg, added, builtin); err != nil {
			return err
		}
	}
	for _, nestedEnum := range msg.NestedEnums {
		if err := r.registerEnum(fullName+"."+nestedEnum.Name, nestedEnum, added, builtin); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) registerEnum(fullName string, enum *schema.Enum, added *symbols, builtin bool) error {
	if err := r.claim(fullName, added, builtin); err != nil {
		return err
	}
	enum.FullName = fullName
	r.enums[fullName] = enum
	added.enums = append(added.enums, fullName)
	return nil
}

// claim reserves a type name. A user definition may replace a built-in
// well-known type of the same name; any other collision is an error.
func (r *Registry) claim(fullName string, added *symbols, builtin bool) error {
	msg, isMessage := r.messages[fullName]
	enum, isEnum := r.enums[fullName]
	if !isMessage && !isEnum {
		if builtin {
			r.builtin[fullName] = struct{}{}
		}
		return nil
	}
	if _, wasBuiltin := r.builtin[fullName]; !wasBuiltin || builtin {
		return fmt.Errorf("duplicate type %s", fullName)
	}

	if added.replaced == nil {
		added.replaced = make(map[string]interface{})
	}
	if isMessage {
		added.replaced[fullName] = msg
		delete(r.messages, fullName)
	} else {
		added.replaced[fullName] = enum
		delete(r.enums, fullName)
	}
	delete(r.builtin, fullName)
	return nil
}

// buildDefinitions resolves the type name of every message and enum field to
// a fully qualified name and sets its kind.
func (r *Registry) buildDefinitions(protoFile *schema.ProtoFile) error {
	for _, msg := range protoFile.Messages {
		if err := r.resolveMessageFields(msg); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) resolveMessageFields(msg *schema.Message) error {
	for _, field := range msg.AllFields() {
		if err := r.resolveFieldType(&field.Type, msg.FullName); err != nil {
			return fmt.Errorf("message %s field %s: %w", msg.FullName, field.Name, err)
		}
		if field.Type.Kind == schema.KindMap {
			if err := r.resolveFieldType(field.Type.MapValue, msg.FullName); err != nil {
				return fmt.Errorf("message %s map field %s: %w", msg.FullName, field.Name, err)
			}
		}
		if field.Type.Kind == schema.KindMessage {
			field.Packed = false
		}
	}
	for _, nested := range msg.NestedTypes {
		if err := r.resolveMessageFields(nested); err != nil {
			return err
		}
	}
	return nil
}

// resolveFieldType qualifies a message or enum reference. The loaders record
// every named type as a message reference; whether it names an enum is only
// known once all files are registered.
func (r *Registry) resolveFieldType(ft *schema.FieldType, scope string) error {
	var typeName string
	switch ft.Kind {
	case schema.KindMessage:
		typeName = ft.MessageType
	case schema.KindEnum:
		typeName = ft.EnumType
	default:
		return nil
	}

	fullName, err := getReferencedType(typeName, scope, r.isType)
	if err != nil {
		return err
	}
	if _, ok := r.enums[fullName]; ok {
		ft.Kind = schema.KindEnum
		ft.EnumType = fullName
		ft.MessageType = ""
		return nil
	}
	ft.Kind = schema.KindMessage
	ft.MessageType = fullName
	ft.EnumType = ""
	return nil
}

// buildServices resolves method input and output types.
func (r *Registry) buildServices(protoFile *schema.ProtoFile) error {
	for _, service := range protoFile.Services {
		for _, method := range service.Methods {
			in, err := getReferencedType(method.InputType, service.FullName, r.isMessage)
			if err != nil {
				return fmt.Errorf("service %s method %s input: %w", service.FullName, method.Name, err)
			}
			out, err := getReferencedType(method.OutputType, service.FullName, r.isMessage)
			if err != nil {
				return fmt.Errorf("service %s method %s output: %w", service.FullName, method.Name, err)
			}
			method.InputType, method.OutputType = in, out
		}
	}
	return nil
}

func (r *Registry) isType(name string) bool {
	if _, ok := r.messages[name]; ok {
		return true
	}
	_, ok := r.enums[name]
	return ok
}

func (r *Registry) isMessage(name string) bool {
	_, ok := r.messages[name]
	return ok
}

func getFullName(pkg, name string) string {
	if pkg == "" {
		return name
	}
	return pkg + "." + name
}

// LoadSchema Given a path it will recursively scan all *proto files inside it and register them.
// Imports are followed through ProtoDirectories, the scanned directory and the
// importing file's directory; google/protobuf imports are served by the
// built-in well-known types.
func (r *Registry) LoadSchema(protoPath string) error {
	// Check if the path exists
	info, err := os.Stat(protoPath)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}

	var roots []string
	searchDirs := append([]string(nil), r.ProtoDirectories...)
	if !info.IsDir() {
		if !strings.HasSuffix(protoPath, ".proto") {
			return fmt.Errorf("file %s is not a .proto file", protoPath)
		}
		roots = append(roots, protoPath)
	} else {
		searchDirs = append(searchDirs, protoPath)
		err = filepath.WalkDir(protoPath, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			// Skip directories and non-proto files
			if d.IsDir() || !strings.HasSuffix(path, ".proto") {
				return nil
			}
			roots = append(roots, path)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to walk directory: %w", err)
		}
	}

	l := newLoader(searchDirs)
	for _, root := range roots {
		if err := l.load(root); err != nil {
			return fmt.Errorf("failed to load proto file %s: %w", root, err)
		}
	}

	if l.needsWellKnown {
		if err := r.RegisterWellKnownTypes(); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	var fresh []*schema.ProtoFile
	for _, file := range l.files {
		if _, seen := r.repo.ProtoFiles[file.Name]; !seen {
			fresh = append(fresh, file)
		}
	}
	return r.registerLocked(fresh, false)
}

// GetMessage retrieves a message definition by fully qualified name, with or
// without a leading dot, or by a suffix that matches exactly one message.
func (r *Registry) GetMessage(name string) (*schema.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	full, err := lookup(r.messages, name)
	if err != nil {
		return nil, fmt.Errorf("message %w", err)
	}
	return r.messages[full], nil
}

// GetEnum retrieves an enum definition by name, like GetMessage.
func (r *Registry) GetEnum(name string) (*schema.Enum, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	full, err := lookup(r.enums, name)
	if err != nil {
		return nil, fmt.Errorf("enum %w", err)
	}
	return r.enums[full], nil
}

// GetService retrieves a service definition by name, like GetMessage.
func (r *Registry) GetService(name string) (*schema.Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	full, err := lookup(r.services, name)
	if err != nil {
		return nil, fmt.Errorf("service %w", err)
	}
	return r.services[full], nil
}

func lookup[T any](defs map[string]T, name string) (string, error) {
	name = strings.TrimPrefix(name, ".")
	if _, exists := defs[name]; exists {
		return name, nil
	}

	// Try without package prefix
	var matches []string
	for fullName := range defs {
		if strings.HasSuffix(fullName, "."+name) {
			matches = append(matches, fullName)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("not found: %s", name)
	case 1:
		return matches[0], nil
	default:
		sort.Strings(matches)
		return "", fmt.Errorf("name %s is ambiguous: %s", name, strings.Join(matches, ", "))
	}
}

// ListMessages returns all registered message names, sorted.
func (r *Registry) ListMessages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.messages)
}

// ListEnums returns all registered enum names, sorted.
func (r *Registry) ListEnums() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.enums)
}

// ListServices returns all registered service names, sorted.
func (r *Registry) ListServices() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.services)
}

// Files returns the registered files keyed by name.
func (r *Registry) Files() *schema.ProtoRepo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	repo := &schema.ProtoRepo{ProtoFiles: make(map[string]*schema.ProtoFile, len(r.repo.ProtoFiles))}
	for name, file := range r.repo.ProtoFiles {
		repo.ProtoFiles[name] = file
	}
	return repo
}

func sortedKeys[T any](m map[string]T) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MapEntryMessage returns the synthetic entry message protobuf defines for a
// map field: key in field 1, value in field 2.
func MapEntryMessage(field *schema.Field) (*schema.Message, error) {
	if field.Type.Kind != schema.KindMap {
		return nil, fmt.Errorf("field %s is not a map", field.Name)
	}
	return &schema.Message{
		Name:     mapEntryName(field.Name),
		MapEntry: true,
		Fields: []*schema.Field{
			{
				Name:   "key",
				Number: 1,
				Label:  schema.LabelOptional,
				Type:   *field.Type.MapKey,
			},
			{
				Name:   "value",
				Number: 2,
				Label:  schema.LabelOptional,
				Type:   *field.Type.MapValue,
			},
		},
	}, nil
}

// mapEntryName derives the entry message name protoc uses: "tag_counts"
// becomes "TagCountsEntry".
func mapEntryName(fieldName string) string {
	camel := schema.ToLowerCamel(fieldName)
	if camel == "" {
		return "Entry"
	}
	return strings.ToUpper(camel[:1]) + camel[1:] + "Entry"
}
