// Package protocodec encodes and decodes protobuf messages from schemas loaded
// at runtime, without generated code. A Codec owns a schema registry and
// moves data between three forms: protobuf bytes, message instances
// (wire.Message) and plain objects as produced by encoding/json.
package protocodec

import (
	"fmt"

	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/anirudhraja/protocodec/convert"
	"github.com/anirudhraja/protocodec/registry"
	"github.com/anirudhraja/protocodec/schema"
	"github.com/anirudhraja/protocodec/wire"
)

// Config controls a Codec.
type Config struct {
	// Wire holds the encoder and decoder options.
	Wire wire.Config
	// StrictIngest runs Verify before Encode builds a message, so closed-world
	// checks such as enum membership and required fields apply to plain objects.
	StrictIngest bool
	// ProtoDirectories are searched for imported .proto files.
	ProtoDirectories []string
}

// Codec provides schema-aware protobuf operations. It is safe for concurrent
// use once its schemas are loaded.
type Codec struct {
	cfg       Config
	registry  *registry.Registry
	converter *convert.Converter
}

// New creates a Codec whose registry already holds the well-known types.
func New(cfg Config) *Codec {
	reg := registry.New(registry.WithProtoDirectories(cfg.ProtoDirectories...))
	// fresh registry: the well-known files cannot collide with anything
	if err := reg.RegisterWellKnownTypes(); err != nil {
		panic(fmt.Sprintf("protocodec: registering well-known types: %v", err))
	}
	return &Codec{
		cfg:       cfg,
		registry:  reg,
		converter: convert.New(reg),
	}
}

// ===== SCHEMA LOADING =====

// LoadSchema loads a .proto file, or every .proto file under a directory.
func (c *Codec) LoadSchema(path string) error {
	return c.registry.LoadSchema(path)
}

// LoadDescriptorSet registers the files of a compiled descriptor set.
func (c *Codec) LoadDescriptorSet(set *descriptorpb.FileDescriptorSet) error {
	return c.registry.LoadFileDescriptorSet(set)
}

// LoadDescriptorSetFile reads and registers a serialized descriptor set.
func (c *Codec) LoadDescriptorSetFile(path string) error {
	return c.registry.LoadDescriptorSetFile(path)
}

// Register adds schema files built in code.
func (c *Codec) Register(files ...*schema.ProtoFile) error {
	return c.registry.RegisterFiles(files...)
}

// ===== MESSAGE INSTANCES =====

// Marshal encodes a message instance of typeName.
func (c *Codec) Marshal(typeName string, msg wire.Message) ([]byte, error) {
	desc, err := c.registry.GetMessage(typeName)
	if err != nil {
		return nil, fmt.Errorf("message type not found: %w", err)
	}
	return wire.EncodeMessage(msg, desc, c.registry, c.cfg.Wire.Encode)
}

// Unmarshal decodes protobuf bytes as typeName.
func (c *Codec) Unmarshal(typeName string, data []byte) (wire.Message, error) {
	desc, err := c.registry.GetMessage(typeName)
	if err != nil {
		return nil, fmt.Errorf("message type not found: %w", err)
	}
	return wire.DecodeMessage(data, desc, c.registry, c.cfg.Wire.Decode)
}

// ===== PLAIN OBJECTS =====

// Verify checks a plain object against typeName. See convert.Converter.Verify.
func (c *Codec) Verify(typeName string, obj interface{}) error {
	return c.converter.Verify(typeName, obj)
}

// FromObject builds a message instance from a plain object.
func (c *Codec) FromObject(typeName string, obj interface{}) (wire.Message, error) {
	return c.converter.FromObject(typeName, obj)
}

// ToObject renders a message instance as a plain object.
func (c *Codec) ToObject(typeName string, msg wire.Message, opts convert.ToObjectOptions) (map[string]interface{}, error) {
	return c.converter.ToObject(typeName, msg, opts)
}

// Encode converts a plain object to protobuf bytes. With StrictIngest the
// object must pass Verify first.
func (c *Codec) Encode(typeName string, obj interface{}) ([]byte, error) {
	if c.cfg.StrictIngest {
		if err := c.converter.Verify(typeName, obj); err != nil {
			return nil, err
		}
	}
	msg, err := c.converter.FromObject(typeName, obj)
	if err != nil {
		return nil, err
	}
	return c.Marshal(typeName, msg)
}

// Decode converts protobuf bytes to a plain object.
func (c *Codec) Decode(typeName string, data []byte, opts convert.ToObjectOptions) (map[string]interface{}, error) {
	msg, err := c.Unmarshal(typeName, data)
	if err != nil {
		return nil, err
	}
	return c.converter.ToObject(typeName, msg, opts)
}

// ===== REGISTRY ACCESS =====

func (c *Codec) Registry() *registry.Registry { return c.registry }
func (c *Codec) ListMessages() []string       { return c.registry.ListMessages() }
func (c *Codec) ListEnums() []string          { return c.registry.ListEnums() }
func (c *Codec) ListServices() []string       { return c.registry.ListServices() }
