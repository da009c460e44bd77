package wire

import (
	"encoding/binary"
	"math"
)

// READER METHODS

func (r *Reader) need(n int) error {
	if n < 0 || r.end-r.pos < n {
		return &TruncatedMessageError{Offset: r.pos, Need: n, Have: r.end - r.pos}
	}
	return nil
}

// Fixed32 decodes a little-endian 32-bit value.
func (r *Reader) Fixed32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

// Fixed64 decodes a little-endian 64-bit value.
func (r *Reader) Fixed64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

// Sfixed32 decodes a signed 32-bit fixed-width value
func (r *Reader) Sfixed32() (int32, error) {
	v, err := r.Fixed32()
	return int32(v), err
}

// Sfixed64 decodes a signed 64-bit fixed-width value
func (r *Reader) Sfixed64() (int64, error) {
	v, err := r.Fixed64()
	return int64(v), err
}

// Float decodes a 32-bit IEEE 754 float.
func (r *Reader) Float() (float32, error) {
	v, err := r.Fixed32()
	return math.Float32frombits(v), err
}

// Double decodes a 64-bit IEEE 754 float.
func (r *Reader) Double() (float64, error) {
	v, err := r.Fixed64()
	return math.Float64frombits(v), err
}

// WRITER METHODS

// Fixed32 appends a little-endian 32-bit value.
func (w *Writer) Fixed32(v uint32) *Writer {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
	return w
}

// Fixed64 appends a little-endian 64-bit value.
func (w *Writer) Fixed64(v uint64) *Writer {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
	return w
}

// Sfixed32 appends a signed 32-bit fixed-width value.
func (w *Writer) Sfixed32(v int32) *Writer {
	return w.Fixed32(uint32(v))
}

// Sfixed64 appends a signed 64-bit fixed-width value.
func (w *Writer) Sfixed64(v int64) *Writer {
	return w.Fixed64(uint64(v))
}

// Float appends a 32-bit float.
func (w *Writer) Float(v float32) *Writer {
	return w.Fixed32(math.Float32bits(v))
}

// Double appends a 64-bit float.
func (w *Writer) Double(v float64) *Writer {
	return w.Fixed64(math.Float64bits(v))
}
