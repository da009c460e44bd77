package convert

import (
	"fmt"
	"strconv"
	"strings"
)

// TypeMismatchError is returned by FromObject when a value's shape
// contradicts the schema: a scalar where a message, list or map is required,
// or a scalar that cannot be coerced to the field's type.
type TypeMismatchError struct {
	Path     string // dotted field path, e.g. "lines[2].sku"
	Expected string // what the schema requires, e.g. "object", "array", "int32"
	Value    interface{}
	Err      error // coercion failure, if any
}

func (e *TypeMismatchError) Error() string {
	msg := fmt.Sprintf("type mismatch at %s: expected %s, got %T", e.path(), e.Expected, e.Value)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TypeMismatchError) Unwrap() error {
	return e.Err
}

func (e *TypeMismatchError) path() string {
	if e.Path == "" {
		return "<root>"
	}
	return e.Path
}

// VerifyError describes the first offending field found by Verify.
type VerifyError struct {
	Path   string
	Reason string
}

func (e *VerifyError) Error() string {
	if e.Path == "" {
		return e.Reason
	}
	return e.Path + ": " + e.Reason
}

func mismatch(path, expected string, value interface{}, err error) error {
	return &TypeMismatchError{Path: path, Expected: expected, Value: value, Err: err}
}

func invalid(path, format string, args ...interface{}) error {
	return &VerifyError{Path: path, Reason: fmt.Sprintf(format, args...)}
}

// fieldPath appends a field name to a dotted path.
func fieldPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}

// indexPath appends a list index or map key, attached without a dot.
func indexPath(parent string, key interface{}) string {
	var sb strings.Builder
	sb.WriteString(parent)
	sb.WriteByte('[')
	switch k := key.(type) {
	case int:
		sb.WriteString(strconv.Itoa(k))
	default:
		fmt.Fprint(&sb, k)
	}
	sb.WriteByte(']')
	return sb.String()
}
