package wire

import (
	"fmt"

	"github.com/anirudhraja/protocodec/schema"
)

// Encoder writes message instances in the wire format using their schema.
type Encoder struct {
	w        *Writer
	resolver Resolver
	opts     EncodeOptions
}

// NewEncoder creates an encoder. resolver may be nil when no field refers to
// another message or enum by name.
func NewEncoder(resolver Resolver, opts EncodeOptions) *Encoder {
	return &Encoder{
		w:        NewWriter(),
		resolver: resolver,
		opts:     opts,
	}
}

// EncodeMessage encodes a message using schema - main entry point
func EncodeMessage(msg Message, desc *schema.Message, resolver Resolver, opts EncodeOptions) ([]byte, error) {
	return NewEncoder(resolver, opts).Encode(msg, desc)
}

// Encode serializes msg. The returned slice is owned by the caller.
func (e *Encoder) Encode(msg Message, desc *schema.Message) ([]byte, error) {
	e.w.Reset()
	if err := e.writeMessage(msg, desc); err != nil {
		return nil, err
	}
	out, err := e.w.Finish()
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), out...), nil
}

// writeMessage appends the fields of msg in ascending field number order.
func (e *Encoder) writeMessage(msg Message, desc *schema.Message) error {
	for _, field := range desc.FieldsByNumber() {
		value, present := msg[field.Name]
		if !present || value == nil {
			if field.Label == schema.LabelRequired && !e.opts.AllowPartial {
				return wrapWithField(ErrMissingRequired, field.Name)
			}
			continue
		}
		if err := e.writeField(field, value); err != nil {
			return wrapWithField(err, field.Name)
		}
	}
	return nil
}

func (e *Encoder) writeField(field *schema.Field, value interface{}) error {
	if field.Type.Kind == schema.KindMap {
		return e.writeMap(field, value)
	}

	if field.Label == schema.LabelRepeated {
		elems, err := toSlice(value)
		if err != nil {
			return err
		}
		if len(elems) == 0 {
			return nil
		}
		if field.Packed && field.Type.IsPackable() {
			e.w.Tag(FieldNumber(field.Number), WireBytes).Fork()
			for i, elem := range elems {
				if err := e.writeValue(&field.Type, elem); err != nil {
					return wrapWithField(err, fmt.Sprintf("[%d]", i))
				}
			}
			return e.w.Ldelim()
		}
		wt := WireTypeOf(&field.Type)
		for i, elem := range elems {
			e.w.Tag(FieldNumber(field.Number), wt)
			if err := e.writeValue(&field.Type, elem); err != nil {
				return wrapWithField(err, fmt.Sprintf("[%d]", i))
			}
		}
		return nil
	}

	if field.Type.Kind == schema.KindEnum {
		if _, ok := value.(string); ok {
			n, err := enumNumber(value, field.Type.EnumType, e.resolver)
			if err != nil {
				return err
			}
			value = n
		}
	}
	if field.Label == schema.LabelSingular && isZero(&field.Type, value) {
		return nil
	}
	e.w.Tag(FieldNumber(field.Number), WireTypeOf(&field.Type))
	return e.writeValue(&field.Type, value)
}

// writeValue appends a single value without its tag.
func (e *Encoder) writeValue(ft *schema.FieldType, value interface{}) error {
	switch ft.Kind {
	case schema.KindPrimitive:
		return e.writeScalar(ft.PrimitiveType, value)
	case schema.KindEnum:
		n, err := enumNumber(value, ft.EnumType, e.resolver)
		if err != nil {
			return err
		}
		e.w.Int32(n)
		return nil
	case schema.KindMessage:
		return e.writeNested(ft.MessageType, value)
	default:
		return fmt.Errorf("unsupported field type: %s", ft.Kind)
	}
}

func (e *Encoder) writeNested(messageType string, value interface{}) error {
	// pre-encoded message bytes are copied through as-is
	if raw, ok := value.([]byte); ok {
		e.w.Bytes(raw)
		return nil
	}
	nested, ok := value.(Message)
	if !ok {
		return fmt.Errorf("message value must be map[string]interface{} or []byte, got %T", value)
	}
	if e.resolver == nil {
		return fmt.Errorf("registry is required to encode message fields")
	}
	desc, err := e.resolver.GetMessage(messageType)
	if err != nil {
		return err
	}
	e.w.Fork()
	if err := e.writeMessage(nested, desc); err != nil {
		return err
	}
	return e.w.Ldelim()
}

func (e *Encoder) writeScalar(pt schema.PrimitiveType, value interface{}) error {
	switch pt {
	case schema.TypeString:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
		e.w.String(s)
	case schema.TypeBytes:
		switch b := value.(type) {
		case []byte:
			e.w.Bytes(b)
		case string:
			e.w.String(b)
		default:
			return fmt.Errorf("expected []byte, got %T", value)
		}
	case schema.TypeBool:
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("expected bool, got %T", value)
		}
		e.w.Bool(b)
	case schema.TypeInt32:
		n, err := asInt32(value)
		if err != nil {
			return err
		}
		e.w.Int32(n)
	case schema.TypeSint32:
		n, err := asInt32(value)
		if err != nil {
			return err
		}
		e.w.Sint32(n)
	case schema.TypeSfixed32:
		n, err := asInt32(value)
		if err != nil {
			return err
		}
		e.w.Sfixed32(n)
	case schema.TypeUint32:
		n, err := asUint32(value)
		if err != nil {
			return err
		}
		e.w.Uint32(n)
	case schema.TypeFixed32:
		n, err := asUint32(value)
		if err != nil {
			return err
		}
		e.w.Fixed32(n)
	case schema.TypeInt64:
		n, err := asInt64(value)
		if err != nil {
			return err
		}
		e.w.Int64(n)
	case schema.TypeSint64:
		n, err := asInt64(value)
		if err != nil {
			return err
		}
		e.w.Sint64(n)
	case schema.TypeSfixed64:
		n, err := asInt64(value)
		if err != nil {
			return err
		}
		e.w.Sfixed64(n)
	case schema.TypeUint64:
		n, err := asUint64(value)
		if err != nil {
			return err
		}
		e.w.Uint64(n)
	case schema.TypeFixed64:
		n, err := asUint64(value)
		if err != nil {
			return err
		}
		e.w.Fixed64(n)
	case schema.TypeFloat:
		f, err := asFloat64(value)
		if err != nil {
			return err
		}
		e.w.Float(float32(f))
	case schema.TypeDouble:
		f, err := asFloat64(value)
		if err != nil {
			return err
		}
		e.w.Double(f)
	default:
		return fmt.Errorf("unsupported primitive type: %s", pt)
	}
	return nil
}
