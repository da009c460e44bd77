// Package reverse holds the StringReverse sample messages: a schema file for
// the table-driven codec and statically typed structs that encode themselves
// directly against wire.Writer and wire.Reader.
package reverse

import (
	"fmt"

	"github.com/anirudhraja/protocodec/schema"
	"github.com/anirudhraja/protocodec/wire"
)

const (
	// Package is the proto package of the sample messages.
	Package = "reverse"

	RequestType  = Package + ".StringReverseRequest"
	ResponseType = Package + ".StringReverseResponse"
)

// File returns the schema of reverse.proto:
//
//	syntax = "proto3";
//	package reverse;
//	message StringReverseRequest { string user_string = 1; }
//	message StringReverseResponse { string reversed_string = 1; }
//
// Each call returns a fresh file that may be registered independently.
func File() *schema.ProtoFile {
	return &schema.ProtoFile{
		Name:    "reverse.proto",
		Package: Package,
		Syntax:  "proto3",
		Messages: []*schema.Message{
			stringMessage("StringReverseRequest", "user_string", "userString"),
			stringMessage("StringReverseResponse", "reversed_string", "reversedString"),
		},
	}
}

func stringMessage(name, field, jsonName string) *schema.Message {
	return &schema.Message{
		Name: name,
		Fields: []*schema.Field{{
			Name:     field,
			Number:   1,
			Label:    schema.LabelSingular,
			Type:     schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.TypeString},
			JsonName: jsonName,
		}},
	}
}

// StringReverseRequest carries the string to reverse.
type StringReverseRequest struct {
	UserString string
}

// Marshal encodes the request. An empty string encodes to no bytes.
func (m *StringReverseRequest) Marshal() ([]byte, error) {
	return marshalString(m.UserString)
}

// Unmarshal decodes data into m, replacing its contents.
func (m *StringReverseRequest) Unmarshal(data []byte) error {
	s, err := unmarshalString(data)
	if err != nil {
		return fmt.Errorf("%s: %w", RequestType, err)
	}
	m.UserString = s
	return nil
}

// StringReverseResponse carries the reversed string.
type StringReverseResponse struct {
	ReversedString string
}

// Marshal encodes the response. An empty string encodes to no bytes.
func (m *StringReverseResponse) Marshal() ([]byte, error) {
	return marshalString(m.ReversedString)
}

// Unmarshal decodes data into m, replacing its contents.
func (m *StringReverseResponse) Unmarshal(data []byte) error {
	s, err := unmarshalString(data)
	if err != nil {
		return fmt.Errorf("%s: %w", ResponseType, err)
	}
	m.ReversedString = s
	return nil
}

// Both messages have the same shape: one proto3 string at field 1.
func marshalString(s string) ([]byte, error) {
	w := wire.NewWriter()
	if s != "" {
		w.Tag(1, wire.WireBytes).String(s)
	}
	return w.Finish()
}

func unmarshalString(data []byte) (string, error) {
	var s string
	r := wire.NewReader(data)
	for !r.EOF() {
		num, wt, err := r.Tag()
		if err != nil {
			return "", err
		}
		if num != 1 || wt != wire.WireBytes {
			if err := r.SkipType(wt); err != nil {
				return "", err
			}
			continue
		}
		// last occurrence wins
		if s, err = r.String(); err != nil {
			return "", err
		}
	}
	return s, nil
}

// Handle decodes a StringReverseRequest, reverses its string by code point
// and returns the encoded StringReverseResponse.
func Handle(req []byte) ([]byte, error) {
	var in StringReverseRequest
	if err := in.Unmarshal(req); err != nil {
		return nil, err
	}
	out := StringReverseResponse{ReversedString: Reverse(in.UserString)}
	return out.Marshal()
}

// Reverse reverses s by runes.
func Reverse(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}
