package convert

import (
	"github.com/anirudhraja/protocodec/wire"
)

// FromObject builds a message instance of typeName from a plain object.
//
// Keys may be proto field names or JSON names; unknown keys and null values
// are ignored. A message field that is not an object, a repeated field that
// is not a list or a map field that is not an object fails with a
// *TypeMismatchError, as does a scalar that cannot be coerced. Coercion is
// permissive: numbers may arrive as numeric strings, integral floats,
// json.Number or any Int64Input form; enums as names or numbers; bytes as
// base64 strings or octet arrays. When several members of a oneof are set,
// the one with the highest field number wins.
func (c *Converter) FromObject(typeName string, obj interface{}) (wire.Message, error) {
	desc, err := c.message(typeName)
	if err != nil {
		return nil, err
	}
	in := &ingester{c: c}
	return in.message(desc, obj, "", 0)
}
