package wire

import (
	"fmt"
)

// Reader is a cursor over an encoded buffer. Reads never cross the end
// boundary, which for nested regions is the end of the enclosing
// length-delimited value rather than the end of the buffer.
type Reader struct {
	buf []byte
	pos int
	end int
	num FieldNumber // field number of the last tag read
}

// NewReader creates a reader over the whole of buf.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf, end: len(buf)}
}

// Pos returns the cursor position relative to the start of the buffer.
func (r *Reader) Pos() int { return r.pos }

// Len returns the end boundary.
func (r *Reader) Len() int { return r.end }

// Remaining returns the number of unread bytes before the boundary.
func (r *Reader) Remaining() int { return r.end - r.pos }

// EOF reports whether the cursor reached the boundary.
func (r *Reader) EOF() bool { return r.pos >= r.end }

// Tag reads a field key.
func (r *Reader) Tag() (FieldNumber, WireType, error) {
	start := r.pos
	v, err := r.Varint()
	if err != nil {
		return 0, 0, err
	}
	if v>>3 == 0 || v>>3 > uint64(1<<29-1) {
		return 0, 0, fmt.Errorf("%w %d at offset %d", ErrInvalidFieldNum, v>>3, start)
	}
	num, wt := ParseTag(Tag(v))
	if wt > WireFixed32 {
		return 0, 0, fmt.Errorf("%w %d at offset %d", ErrInvalidWireType, wt, start)
	}
	r.num = num
	return num, wt, nil
}

// SkipType advances past a value of the given wire type without interpreting it.
// A group is closed only by an end-group tag with the field number of the
// last tag read.
func (r *Reader) SkipType(wt WireType) error {
	switch wt {
	case WireVarint:
		return r.skipVarint()
	case WireFixed64:
		return r.skip(8)
	case WireBytes:
		n, err := r.length()
		if err != nil {
			return err
		}
		r.pos += n
		return nil
	case WireFixed32:
		return r.skip(4)
	case WireStartGroup:
		return r.skipGroup()
	default:
		return fmt.Errorf("%w %d at offset %d", ErrInvalidWireType, wt, r.pos)
	}
}

func (r *Reader) skip(n int) error {
	if err := r.need(n); err != nil {
		return err
	}
	r.pos += n
	return nil
}

// skipGroup skips until the end-group tag matching the start-group just read.
func (r *Reader) skipGroup() error {
	group := r.num
	for {
		if r.EOF() {
			return &TruncatedMessageError{Offset: r.pos, Need: 1}
		}
		start := r.pos
		num, wt, err := r.Tag()
		if err != nil {
			return err
		}
		if wt == WireEndGroup {
			if num != group {
				return fmt.Errorf("%w: end group %d at offset %d closes group %d", ErrGroupMismatch, num, start, group)
			}
			return nil
		}
		if err := r.SkipType(wt); err != nil {
			return err
		}
	}
}
