package wire

import (
	"errors"
	"fmt"
	"strings"
)

// Unrecoverable wire conditions. Callers should discard the buffer.
var (
	ErrInvalidWireType  = errors.New("invalid wire type")
	ErrInvalidFieldNum  = errors.New("invalid field number")
	ErrUnbalancedLdelim = errors.New("ldelim without matching fork")
	ErrUnclosedFork     = errors.New("writer has unclosed forks")
	ErrRecursionLimit   = errors.New("exceeded maximum recursion depth")
	ErrMissingRequired  = errors.New("required field not set")
	ErrWireTypeMismatch = errors.New("wire type does not match field type")
	ErrGroupMismatch    = errors.New("mismatched end group")
)

// MalformedVarintError reports a varint that does not terminate within 10
// bytes or overflows 64 bits.
type MalformedVarintError struct {
	Offset int // position of the first byte of the varint
}

func (e *MalformedVarintError) Error() string {
	return fmt.Sprintf("malformed varint at offset %d", e.Offset)
}

// TruncatedMessageError reports a read past the end of the buffer or past the
// declared boundary of a length-delimited region.
type TruncatedMessageError struct {
	Offset int // position the read started at
	Need   int // bytes required
	Have   int // bytes available before the boundary
}

func (e *TruncatedMessageError) Error() string {
	return fmt.Sprintf("truncated message at offset %d: need %d bytes, have %d", e.Offset, e.Need, e.Have)
}

// FieldError represents an encoding/decoding error with a field path.
type FieldError struct {
	FieldPath []string // e.g., ["field_args", "input", "target_location", "latitude"]
	Err       error    // underlying error
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	if len(e.FieldPath) == 0 {
		return e.Err.Error()
	}

	return fmt.Sprintf("error at proto path %s: %v", e.Path(), e.Err)
}

// Unwrap returns the underlying error.
func (e *FieldError) Unwrap() error {
	return e.Err
}

// Path returns the dotted field path. Element indices and map keys are
// attached to their field without a dot, e.g. "items[2].name".
func (e *FieldError) Path() string {
	var sb strings.Builder
	for i, part := range e.FieldPath {
		if i > 0 && !strings.HasPrefix(part, "[") {
			sb.WriteByte('.')
		}
		sb.WriteString(part)
	}
	return sb.String()
}

// wrapWithField prefixes err's path with fieldName, flattening nested FieldErrors.
func wrapWithField(err error, fieldName string) error {
	if err == nil {
		return nil
	}

	if fe, ok := err.(*FieldError); ok {
		return &FieldError{
			FieldPath: append([]string{fieldName}, fe.FieldPath...),
			Err:       fe.Err,
		}
	}

	return &FieldError{
		FieldPath: []string{fieldName},
		Err:       err,
	}
}

// newFieldError creates a path-less FieldError.
func newFieldError(format string, args ...interface{}) error {
	return &FieldError{Err: fmt.Errorf(format, args...)}
}
