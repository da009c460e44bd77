package wire

// Writer is an append-only encoding buffer.
//
// Fork and Ldelim bracket a length-delimited region whose size is unknown when
// it is opened; Ldelim inserts the varint byte count in front of the region
// once it is complete, so nested messages need no sizing pre-pass.
type Writer struct {
	buf   []byte
	forks []int
}

// NewWriter creates an empty writer.
func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 64)}
}

// Len returns the number of bytes written so far, including open regions.
func (w *Writer) Len() int { return len(w.buf) }

// Reset clears the writer for reuse.
func (w *Writer) Reset() {
	w.buf = w.buf[:0]
	w.forks = w.forks[:0]
}

// Tag appends a field key.
func (w *Writer) Tag(num FieldNumber, wt WireType) *Writer {
	return w.Varint(uint64(MakeTag(num, wt)))
}

// Fork opens a length-delimited region.
func (w *Writer) Fork() *Writer {
	w.forks = append(w.forks, len(w.buf))
	return w
}

// Ldelim closes the innermost open region, prefixing it with its length.
func (w *Writer) Ldelim() error {
	if len(w.forks) == 0 {
		return ErrUnbalancedLdelim
	}
	start := w.forks[len(w.forks)-1]
	w.forks = w.forks[:len(w.forks)-1]

	n := len(w.buf) - start
	size := VarintSize(uint64(n))
	w.buf = append(w.buf, make([]byte, size)...)
	copy(w.buf[start+size:], w.buf[start:start+n])
	AppendVarint(w.buf[start:start], uint64(n))
	return nil
}

// Finish returns the encoded bytes. It fails if a region is still open.
func (w *Writer) Finish() ([]byte, error) {
	if len(w.forks) != 0 {
		return nil, ErrUnclosedFork
	}
	return w.buf, nil
}
