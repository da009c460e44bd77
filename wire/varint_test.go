package wire

import (
	"errors"
	"math"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
)

func TestVarint_Boundaries(t *testing.T) {
	tests := []struct {
		name  string
		value uint64
		size  int
	}{
		{"zero", 0, 1},
		{"one byte max", 127, 1},
		{"two bytes min", 128, 2},
		{"uint32 max", math.MaxUint32, 5},
		{"int64 max", math.MaxInt64, 9},
		{"uint64 max", math.MaxUint64, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AppendVarint(nil, tt.value)
			if len(got) != tt.size {
				t.Errorf("expected %d bytes, got %d", tt.size, len(got))
			}
			if VarintSize(tt.value) != tt.size {
				t.Errorf("VarintSize(%d) = %d, want %d", tt.value, VarintSize(tt.value), tt.size)
			}

			// the reference implementation must agree byte for byte
			want := protowire.AppendVarint(nil, tt.value)
			if string(got) != string(want) {
				t.Errorf("encoding mismatch: got %x, want %x", got, want)
			}

			v, n, err := ConsumeVarint(got)
			if err != nil {
				t.Fatalf("ConsumeVarint failed: %v", err)
			}
			if v != tt.value || n != tt.size {
				t.Errorf("ConsumeVarint = (%d, %d), want (%d, %d)", v, n, tt.value, tt.size)
			}
		})
	}
}

func TestVarint_NegativeInt32IsTenBytes(t *testing.T) {
	w := NewWriter()
	w.Int32(-1)
	out, err := w.Finish()
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	if len(out) != 10 {
		t.Fatalf("expected 10 bytes for int32(-1), got %d: %x", len(out), out)
	}

	r := NewReader(out)
	got, err := r.Int32()
	if err != nil {
		t.Fatalf("Int32 failed: %v", err)
	}
	if got != -1 {
		t.Errorf("expected -1, got %d", got)
	}
}

func TestVarint_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{
			name: "eleven continuation bytes",
			data: []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x01},
		},
		{
			name: "tenth byte overflows 64 bits",
			data: []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x02},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ConsumeVarint(tt.data)
			var malformed *MalformedVarintError
			if !errors.As(err, &malformed) {
				t.Fatalf("expected MalformedVarintError, got %v", err)
			}

			r := NewReader(append([]byte{0x08}, tt.data...))
			if _, _, err := r.Tag(); err != nil {
				t.Fatalf("Tag failed: %v", err)
			}
			_, err = r.Uint64()
			if !errors.As(err, &malformed) {
				t.Fatalf("expected MalformedVarintError from reader, got %v", err)
			}
			if malformed.Offset != 1 {
				t.Errorf("expected offset 1, got %d", malformed.Offset)
			}
		})
	}
}

func TestVarint_Truncated(t *testing.T) {
	r := NewReader([]byte{0x80, 0x80})
	_, err := r.Uint64()
	var truncated *TruncatedMessageError
	if !errors.As(err, &truncated) {
		t.Fatalf("expected TruncatedMessageError, got %v", err)
	}
}

func TestZigZag(t *testing.T) {
	tests32 := []struct {
		value   int32
		encoded uint64
	}{
		{0, 0},
		{-1, 1},
		{1, 2},
		{-2, 3},
		{math.MaxInt32, 0xFFFFFFFE},
		{math.MinInt32, 0xFFFFFFFF},
	}
	for _, tt := range tests32 {
		if got := EncodeZigZag32(tt.value); got != tt.encoded {
			t.Errorf("EncodeZigZag32(%d) = %d, want %d", tt.value, got, tt.encoded)
		}
		if got := DecodeZigZag32(tt.encoded); got != tt.value {
			t.Errorf("DecodeZigZag32(%d) = %d, want %d", tt.encoded, got, tt.value)
		}
	}

	for _, v := range []int64{0, -1, 1, math.MaxInt64, math.MinInt64, -123456789012} {
		encoded := EncodeZigZag64(v)
		if encoded != protowire.EncodeZigZag(v) {
			t.Errorf("EncodeZigZag64(%d) = %d, want %d", v, encoded, protowire.EncodeZigZag(v))
		}
		if got := DecodeZigZag64(encoded); got != v {
			t.Errorf("DecodeZigZag64(%d) = %d, want %d", encoded, got, v)
		}
	}
}

func TestFixed_LittleEndian(t *testing.T) {
	w := NewWriter()
	w.Fixed32(0x01020304).Fixed64(0x0102030405060708).Double(math.Inf(-1)).Float(float32(math.NaN()))
	out, err := w.Finish()
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	if out[0] != 0x04 || out[3] != 0x01 {
		t.Errorf("fixed32 not little-endian: %x", out[:4])
	}
	if out[4] != 0x08 || out[11] != 0x01 {
		t.Errorf("fixed64 not little-endian: %x", out[4:12])
	}

	r := NewReader(out)
	if v, _ := r.Fixed32(); v != 0x01020304 {
		t.Errorf("Fixed32 = %x", v)
	}
	if v, _ := r.Fixed64(); v != 0x0102030405060708 {
		t.Errorf("Fixed64 = %x", v)
	}
	if v, _ := r.Double(); !math.IsInf(v, -1) {
		t.Errorf("Double = %v, want -Inf", v)
	}
	if v, _ := r.Float(); !math.IsNaN(float64(v)) {
		t.Errorf("Float = %v, want NaN", v)
	}

	if _, err := NewReader([]byte{1, 2, 3}).Fixed32(); err == nil {
		t.Error("expected error reading fixed32 from 3 bytes")
	}
}
