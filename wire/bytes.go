package wire

// READER METHODS

// length reads a length prefix and checks it fits before the boundary.
func (r *Reader) length() (int, error) {
	start := r.pos
	n, err := r.Varint()
	if err != nil {
		return 0, err
	}
	if have := r.end - r.pos; n > uint64(have) {
		r.pos = start
		return 0, &TruncatedMessageError{Offset: start, Need: int(min(n, uint64(maxInt))), Have: have}
	}
	return int(n), nil
}

const maxInt = int(^uint(0) >> 1)

// Bytes decodes a length-delimited byte array. The result is a copy and does
// not alias the reader's buffer.
func (r *Reader) Bytes() ([]byte, error) {
	raw, err := r.RawBytes()
	if err != nil {
		return nil, err
	}
	data := make([]byte, len(raw))
	copy(data, raw)
	return data, nil
}

// RawBytes decodes a length-delimited byte array without copying.
func (r *Reader) RawBytes() ([]byte, error) {
	n, err := r.length()
	if err != nil {
		return nil, err
	}
	data := r.buf[r.pos : r.pos+n : r.pos+n]
	r.pos += n
	return data, nil
}

// String decodes a length-delimited UTF-8 string.
func (r *Reader) String() (string, error) {
	raw, err := r.RawBytes()
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Limit returns a reader over the next length-delimited region and advances
// r past it. Reads on the child cannot cross the region's end.
func (r *Reader) Limit() (*Reader, error) {
	n, err := r.length()
	if err != nil {
		return nil, err
	}
	child := &Reader{buf: r.buf, pos: r.pos, end: r.pos + n}
	r.pos += n
	return child, nil
}

// Rest returns a copy of the unread bytes before the boundary and moves the
// cursor to the boundary.
func (r *Reader) Rest() []byte {
	data := make([]byte, r.end-r.pos)
	copy(data, r.buf[r.pos:r.end])
	r.pos = r.end
	return data
}

// WRITER METHODS

// Bytes appends a length-prefixed byte array.
func (w *Writer) Bytes(data []byte) *Writer {
	w.buf = AppendVarint(w.buf, uint64(len(data)))
	w.buf = append(w.buf, data...)
	return w
}

// String appends a length-prefixed UTF-8 string.
func (w *Writer) String(s string) *Writer {
	w.buf = AppendVarint(w.buf, uint64(len(s)))
	w.buf = append(w.buf, s...)
	return w
}

// Raw appends bytes without a length prefix.
func (w *Writer) Raw(data []byte) *Writer {
	w.buf = append(w.buf, data...)
	return w
}

// BytesSize returns the size needed to encode the given bytes
func BytesSize(data []byte) int {
	return VarintSize(uint64(len(data))) + len(data)
}
