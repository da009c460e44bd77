package convert

import (
	"errors"
)

// Verify checks a plain object against the schema of typeName without
// building anything. It returns nil or a *VerifyError naming the first
// offending field: shapes of messages, lists and maps, integer ranges, enum
// membership, base64 bytes, oneof multiplicity, map keys and required fields.
//
// Verify is advisory. FromObject does not call it and accepts some inputs
// Verify rejects, such as enum numbers outside the declared values.
func (c *Converter) Verify(typeName string, obj interface{}) error {
	desc, err := c.message(typeName)
	if err != nil {
		return &VerifyError{Reason: err.Error()}
	}
	in := &ingester{c: c, verify: true}
	if _, err := in.message(desc, obj, "", 0); err != nil {
		var verr *VerifyError
		if errors.As(err, &verr) {
			return verr
		}
		return &VerifyError{Reason: err.Error()}
	}
	return nil
}
