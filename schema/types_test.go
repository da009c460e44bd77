package schema

import (
	"strings"
	"sync"
	"testing"
)

func scalar(name string, number int32, pt PrimitiveType) *Field {
	return &Field{Name: name, Number: number, Label: LabelSingular, Type: FieldType{Kind: KindPrimitive, PrimitiveType: pt}}
}

func TestMessage_Index(t *testing.T) {
	card := scalar("card", 5, TypeString)
	card.Label = LabelOptional
	msg := &Message{
		Name: "Order",
		Fields: []*Field{
			scalar("note", 9, TypeString),
			scalar("order_id", 1, TypeInt64),
		},
		OneofGroups: []*Oneof{{Name: "payment", Fields: []*Field{card}}},
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			msg.FieldsByNumber()
		}()
	}
	wg.Wait()

	var numbers []int32
	for _, f := range msg.FieldsByNumber() {
		numbers = append(numbers, f.Number)
	}
	if len(numbers) != 3 || numbers[0] != 1 || numbers[1] != 5 || numbers[2] != 9 {
		t.Errorf("FieldsByNumber order = %v", numbers)
	}
	if f := msg.FieldByNumber(5); f != card {
		t.Errorf("FieldByNumber(5) = %v", f)
	}
	if f := msg.FieldByName("order_id"); f == nil || f.Number != 1 {
		t.Errorf("FieldByName(order_id) = %v", f)
	}
	if o := msg.OneofOf(card); o == nil || o.Name != "payment" {
		t.Errorf("OneofOf(card) = %v", o)
	}
	if o := msg.OneofOf(msg.Fields[0]); o != nil {
		t.Errorf("OneofOf(note) = %v", o)
	}
}

func TestMessage_FieldByJSONName(t *testing.T) {
	alias := scalar("display", 2, TypeString)
	alias.JsonName = "name"
	msg := &Message{Name: "M", Fields: []*Field{scalar("name", 1, TypeString), alias}}

	// a proto name shadows another field's JSON name
	if f := msg.FieldByName("name"); f.Number != 1 {
		t.Errorf("FieldByName(name) = field %d", f.Number)
	}
	if got := alias.JSONKey(); got != "name" {
		t.Errorf("JSONKey() = %q", got)
	}
}

func TestMessage_Validate(t *testing.T) {
	tests := []struct {
		name    string
		fields  []*Field
		wantErr string
	}{
		{"valid", []*Field{scalar("a", 1, TypeInt32), scalar("b", MaxFieldNumber, TypeInt32)}, ""},
		{"zero number", []*Field{scalar("a", 0, TypeInt32)}, "invalid number"},
		{"too large", []*Field{scalar("a", MaxFieldNumber+1, TypeInt32)}, "invalid number"},
		{"shared number", []*Field{scalar("a", 3, TypeInt32), scalar("b", 3, TypeInt32)}, "share number 3"},
		{"duplicate name", []*Field{scalar("a", 1, TypeInt32), scalar("a", 2, TypeInt32)}, "duplicate field name"},
		{"map without key", []*Field{{Name: "m", Number: 1, Label: LabelRepeated, Type: FieldType{Kind: KindMap}}}, "lacks key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := (&Message{Name: "M", Fields: tt.fields}).Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("got %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestToLowerCamel(t *testing.T) {
	tests := map[string]string{
		"":             "",
		"name":         "name",
		"user_name":    "userName",
		"a_b_c":        "aBC",
		"trailing_":    "trailing",
		"field_1_name": "field1Name",
		"alreadyCamel": "alreadyCamel",
	}
	for in, want := range tests {
		if got := ToLowerCamel(in); got != want {
			t.Errorf("ToLowerCamel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPackable(t *testing.T) {
	tests := []struct {
		ft   FieldType
		want bool
	}{
		{FieldType{Kind: KindPrimitive, PrimitiveType: TypeInt32}, true},
		{FieldType{Kind: KindPrimitive, PrimitiveType: TypeDouble}, true},
		{FieldType{Kind: KindPrimitive, PrimitiveType: TypeString}, false},
		{FieldType{Kind: KindPrimitive, PrimitiveType: TypeBytes}, false},
		{FieldType{Kind: KindEnum, EnumType: "E"}, true},
		{FieldType{Kind: KindMessage, MessageType: "M"}, false},
	}
	for _, tt := range tests {
		if got := tt.ft.IsPackable(); got != tt.want {
			t.Errorf("%+v IsPackable() = %v, want %v", tt.ft, got, tt.want)
		}
	}
}
