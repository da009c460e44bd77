package wire

// maxVarintLen is the longest valid encoding of a 64-bit value.
const maxVarintLen = 10

// AppendVarint appends v to b using 7 bits per byte, low-order group first.
func AppendVarint(b []byte, v uint64) []byte {
	for v >= 0x80 {
		b = append(b, byte(v)|0x80)
		v >>= 7
	}
	return append(b, byte(v))
}

// ConsumeVarint decodes a varint from the start of b, returning the value and
// the number of bytes read.
func ConsumeVarint(b []byte) (uint64, int, error) {
	var result uint64
	for i := 0; i < maxVarintLen; i++ {
		if i >= len(b) {
			return 0, 0, &TruncatedMessageError{Need: i + 1, Have: len(b)}
		}
		c := b[i]
		if i == maxVarintLen-1 && c > 1 {
			// the tenth byte may only carry bit 63
			return 0, 0, &MalformedVarintError{}
		}
		result |= uint64(c&0x7F) << (7 * uint(i))
		if c < 0x80 {
			return result, i + 1, nil
		}
	}
	return 0, 0, &MalformedVarintError{}
}

// VarintSize returns the number of bytes needed to encode the given varint
func VarintSize(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// DecodeZigZag32 decodes a zigzag-encoded 32-bit integer
func DecodeZigZag32(encoded uint64) int32 {
	return int32((uint32(encoded) >> 1) ^ uint32(-int32(encoded&1)))
}

// DecodeZigZag64 decodes a zigzag-encoded 64-bit integer
func DecodeZigZag64(encoded uint64) int64 {
	return int64((encoded >> 1) ^ uint64(-int64(encoded&1)))
}

// EncodeZigZag32 encodes a signed 32-bit integer using zigzag encoding
func EncodeZigZag32(v int32) uint64 {
	return uint64((uint32(v) << 1) ^ uint32(v>>31))
}

// EncodeZigZag64 encodes a signed 64-bit integer using zigzag encoding
func EncodeZigZag64(v int64) uint64 {
	return uint64((v << 1) ^ (v >> 63))
}

// READER METHODS

// Varint decodes a varint at the cursor.
func (r *Reader) Varint() (uint64, error) {
	start := r.pos
	v, n, err := ConsumeVarint(r.buf[r.pos:r.end])
	if err != nil {
		switch e := err.(type) {
		case *TruncatedMessageError:
			e.Offset = start
		case *MalformedVarintError:
			e.Offset = start
		}
		return 0, err
	}
	r.pos += n
	return v, nil
}

// Uint32 decodes a varint as uint32, truncating higher bits.
func (r *Reader) Uint32() (uint32, error) {
	v, err := r.Varint()
	return uint32(v), err
}

// Int32 decodes a varint as int32
func (r *Reader) Int32() (int32, error) {
	v, err := r.Varint()
	return int32(v), err
}

// Uint64 decodes a varint as uint64
func (r *Reader) Uint64() (uint64, error) {
	return r.Varint()
}

// Int64 decodes a varint as int64
func (r *Reader) Int64() (int64, error) {
	v, err := r.Varint()
	return int64(v), err
}

// Sint32 decodes a zigzag-encoded signed varint as int32
func (r *Reader) Sint32() (int32, error) {
	v, err := r.Varint()
	return DecodeZigZag32(v), err
}

// Sint64 decodes a zigzag-encoded signed varint as int64
func (r *Reader) Sint64() (int64, error) {
	v, err := r.Varint()
	return DecodeZigZag64(v), err
}

// Bool decodes a varint as bool
func (r *Reader) Bool() (bool, error) {
	v, err := r.Varint()
	return v != 0, err
}

// skipVarint advances past a varint, validating its length.
func (r *Reader) skipVarint() error {
	_, err := r.Varint()
	return err
}

// WRITER METHODS

// Varint appends a raw varint.
func (w *Writer) Varint(v uint64) *Writer {
	w.buf = AppendVarint(w.buf, v)
	return w
}

// Uint32 appends an unsigned 32-bit varint.
func (w *Writer) Uint32(v uint32) *Writer {
	return w.Varint(uint64(v))
}

// Int32 appends a signed 32-bit varint; negative values are sign-extended to 10 bytes.
func (w *Writer) Int32(v int32) *Writer {
	return w.Varint(uint64(int64(v)))
}

// Uint64 appends an unsigned 64-bit varint.
func (w *Writer) Uint64(v uint64) *Writer {
	return w.Varint(v)
}

// Int64 appends a signed 64-bit varint.
func (w *Writer) Int64(v int64) *Writer {
	return w.Varint(uint64(v))
}

// Sint32 appends a zigzag-encoded 32-bit varint.
func (w *Writer) Sint32(v int32) *Writer {
	return w.Varint(EncodeZigZag32(v))
}

// Sint64 appends a zigzag-encoded 64-bit varint.
func (w *Writer) Sint64(v int64) *Writer {
	return w.Varint(EncodeZigZag64(v))
}

// Bool appends a bool as a one-byte varint.
func (w *Writer) Bool(v bool) *Writer {
	if v {
		return w.Varint(1)
	}
	return w.Varint(0)
}
