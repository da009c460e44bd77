package wire

import (
	"fmt"

	"github.com/anirudhraja/protocodec/schema"
)

// Decoder reads wire-format messages into message instances using their schema.
// A Decoder holds no per-call state and may be shared between goroutines.
type Decoder struct {
	resolver Resolver
	opts     DecodeOptions
}

// NewDecoder creates a decoder. With a nil resolver nested messages decode to
// their raw bytes. Otherwise a nested type the resolver cannot find is an error.
func NewDecoder(resolver Resolver, opts DecodeOptions) *Decoder {
	return &Decoder{resolver: resolver, opts: opts}
}

// DecodeMessage decodes protobuf bytes using schema - main entry point
func DecodeMessage(data []byte, desc *schema.Message, resolver Resolver, opts DecodeOptions) (Message, error) {
	return NewDecoder(resolver, opts).Decode(data, desc)
}

// Decode decodes the whole of data as one message of type desc.
func (d *Decoder) Decode(data []byte, desc *schema.Message) (Message, error) {
	return d.DecodeFrom(NewReader(data), desc)
}

// DecodeFrom decodes a message spanning the rest of r, up to its boundary.
func (d *Decoder) DecodeFrom(r *Reader, desc *schema.Message) (Message, error) {
	msg := make(Message)
	if err := d.readMessage(r, desc, msg, 0); err != nil {
		return nil, fmt.Errorf("failed to decode message %s: %w", desc.Name, err)
	}
	return msg, nil
}

// Merge decodes data into an existing instance: scalars are overwritten,
// repeated fields appended and nested messages merged. Nested messages and
// lists already in into are updated in place, so values shared with other
// instances see the change. Copy into first to keep them apart.
func (d *Decoder) Merge(data []byte, desc *schema.Message, into Message) error {
	if err := d.readMessage(NewReader(data), desc, into, 0); err != nil {
		return fmt.Errorf("failed to decode message %s: %w", desc.Name, err)
	}
	return nil
}

// readMessage is the decode loop: read a tag, dispatch to the field's decoder
// or skip it, until the reader's boundary.
func (d *Decoder) readMessage(r *Reader, desc *schema.Message, into Message, depth int) error {
	if depth > d.opts.recursionLimit() {
		return ErrRecursionLimit
	}
	for !r.EOF() {
		num, wt, err := r.Tag()
		if err != nil {
			return err
		}

		field := desc.FieldByNumber(int32(num))
		if field == nil {
			// Unknown field - skip it
			if err := r.SkipType(wt); err != nil {
				return err
			}
			continue
		}

		if err := d.readField(r, desc, field, wt, into, depth); err != nil {
			return wrapWithField(err, field.Name)
		}
	}

	if d.opts.PopulateDefaults {
		for _, field := range desc.FieldsByNumber() {
			if _, ok := into[field.Name]; ok || !populatable(desc, field) {
				continue
			}
			def, err := DefaultValue(field, d.resolver)
			if err != nil {
				return wrapWithField(err, field.Name)
			}
			into[field.Name] = def
		}
	}

	if !d.opts.AllowPartial {
		for _, field := range desc.Fields {
			if field.Label != schema.LabelRequired {
				continue
			}
			if _, ok := into[field.Name]; !ok {
				return wrapWithField(ErrMissingRequired, field.Name)
			}
		}
	}
	return nil
}

func populatable(desc *schema.Message, field *schema.Field) bool {
	if field.Label == schema.LabelRepeated || desc.OneofOf(field) != nil {
		return false
	}
	return field.Type.Kind == schema.KindPrimitive || field.Type.Kind == schema.KindEnum
}

func (d *Decoder) readField(r *Reader, desc *schema.Message, field *schema.Field, wt WireType, into Message, depth int) error {
	want := WireTypeOf(&field.Type)

	switch {
	case field.Type.Kind == schema.KindMap:
		if wt != WireBytes {
			return d.mismatch(r, wt, want)
		}
		entry, err := r.Limit()
		if err != nil {
			return err
		}
		key, value, err := d.readMapEntry(entry, field.Type.MapKey, field.Type.MapValue, depth+1)
		if err != nil {
			return err
		}
		m, _ := into[field.Name].(map[interface{}]interface{})
		if m == nil {
			m = make(map[interface{}]interface{})
			into[field.Name] = m
		}
		m[key] = value
		return nil

	case field.Label == schema.LabelRepeated:
		list, _ := into[field.Name].([]interface{})
		if wt == WireBytes && field.Type.IsPackable() {
			packed, err := r.Limit()
			if err != nil {
				return err
			}
			for !packed.EOF() {
				v, err := d.readValue(packed, &field.Type, nil, depth)
				if err != nil {
					return err
				}
				list = append(list, v)
			}
			if list == nil {
				list = []interface{}{}
			}
			into[field.Name] = list
			return nil
		}
		if wt != want {
			return d.mismatch(r, wt, want)
		}
		v, err := d.readValue(r, &field.Type, nil, depth)
		if err != nil {
			return err
		}
		into[field.Name] = append(list, v)
		return nil

	default:
		if wt != want {
			return d.mismatch(r, wt, want)
		}
		v, err := d.readValue(r, &field.Type, into[field.Name], depth)
		if err != nil {
			return err
		}
		if oneof := desc.OneofOf(field); oneof != nil {
			for _, member := range oneof.Fields {
				delete(into, member.Name)
			}
		}
		into[field.Name] = v
		return nil
	}
}

// mismatch handles a known field arriving with an unexpected wire type.
func (d *Decoder) mismatch(r *Reader, got, want WireType) error {
	if d.opts.StrictWireType {
		return fmt.Errorf("%w: got %s, want %s", ErrWireTypeMismatch, got, want)
	}
	return r.SkipType(got)
}

// readValue decodes one value of type ft. For message types, existing is the
// instance to merge into, if any.
func (d *Decoder) readValue(r *Reader, ft *schema.FieldType, existing interface{}, depth int) (interface{}, error) {
	switch ft.Kind {
	case schema.KindPrimitive:
		return readScalar(r, ft.PrimitiveType)
	case schema.KindEnum:
		return r.Int32()
	case schema.KindMessage:
		return d.readNested(r, ft.MessageType, existing, depth+1)
	default:
		return nil, fmt.Errorf("unsupported field type: %s", ft.Kind)
	}
}

func (d *Decoder) readNested(r *Reader, messageType string, existing interface{}, depth int) (interface{}, error) {
	body, err := r.Limit()
	if err != nil {
		return nil, err
	}
	if d.resolver == nil {
		return body.Rest(), nil
	}
	desc, err := d.resolver.GetMessage(messageType)
	if err != nil {
		return nil, err
	}
	msg, ok := existing.(Message)
	if !ok {
		msg = make(Message)
	}
	if err := d.readMessage(body, desc, msg, depth); err != nil {
		return nil, err
	}
	return msg, nil
}

// readScalar decodes a primitive value into its message instance representation.
func readScalar(r *Reader, pt schema.PrimitiveType) (interface{}, error) {
	switch pt {
	case schema.TypeInt32:
		return r.Int32()
	case schema.TypeInt64:
		return r.Int64()
	case schema.TypeUint32:
		return r.Uint32()
	case schema.TypeUint64:
		return r.Uint64()
	case schema.TypeSint32:
		return r.Sint32()
	case schema.TypeSint64:
		return r.Sint64()
	case schema.TypeBool:
		return r.Bool()
	case schema.TypeFixed32:
		return r.Fixed32()
	case schema.TypeFixed64:
		return r.Fixed64()
	case schema.TypeSfixed32:
		return r.Sfixed32()
	case schema.TypeSfixed64:
		return r.Sfixed64()
	case schema.TypeFloat:
		return r.Float()
	case schema.TypeDouble:
		return r.Double()
	case schema.TypeString:
		return r.String()
	case schema.TypeBytes:
		return r.Bytes()
	default:
		return nil, fmt.Errorf("unsupported primitive type: %s", pt)
	}
}
