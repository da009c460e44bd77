// Package convert maps between plain objects, the JSON-like values produced
// by encoding/json, and wire message instances.
package convert

import (
	"fmt"

	"github.com/anirudhraja/protocodec/schema"
	"github.com/anirudhraja/protocodec/wire"
)

// Converter converts plain objects to and from message instances using the
// definitions of a resolver, normally a *registry.Registry. It holds no
// mutable state and may be shared between goroutines.
type Converter struct {
	resolver wire.Resolver
}

// New creates a converter over resolver.
func New(resolver wire.Resolver) *Converter {
	return &Converter{resolver: resolver}
}

func (c *Converter) message(typeName string) (*schema.Message, error) {
	if c.resolver == nil {
		return nil, fmt.Errorf("cannot resolve %s without a registry", typeName)
	}
	return c.resolver.GetMessage(typeName)
}

// enumValue maps an enum name or number to its number. Unknown numbers are
// accepted only when strict is false, since proto3 enums are open.
func (c *Converter) enumValue(enumType string, v interface{}, strict bool) (int32, error) {
	if c.resolver == nil {
		return 0, fmt.Errorf("cannot resolve enum %s without a registry", enumType)
	}
	enum, err := c.resolver.GetEnum(enumType)
	if err != nil {
		return 0, err
	}
	if name, ok := v.(string); ok {
		if ev := enum.ValueByName(name); ev != nil {
			return ev.Number, nil
		}
	}
	n, err := coerceInt(v, -1<<31, 1<<31-1)
	if err != nil {
		return 0, fmt.Errorf("enum %s has no value %v", enum.FullName, v)
	}
	if strict && enum.ValueByNumber(int32(n)) == nil {
		return 0, fmt.Errorf("enum %s has no value %d", enum.FullName, n)
	}
	return int32(n), nil
}

// objectOf returns v as a plain object, if it is one.
func objectOf(v interface{}) (map[string]interface{}, bool) {
	m, ok := v.(map[string]interface{})
	return m, ok
}

// listOf returns v as a list, if it is one. Typed slices built by Go callers
// are accepted alongside the []interface{} encoding/json produces.
func listOf(v interface{}) ([]interface{}, bool) {
	switch t := v.(type) {
	case []interface{}:
		return t, true
	case []map[string]interface{}:
		return spread(t), true
	case []string:
		return spread(t), true
	case []float64:
		return spread(t), true
	case []int:
		return spread(t), true
	case []int32:
		return spread(t), true
	case []int64:
		return spread(t), true
	case []uint32:
		return spread(t), true
	case []uint64:
		return spread(t), true
	case []bool:
		return spread(t), true
	case [][]byte:
		return spread(t), true
	}
	return nil, false
}

func spread[T any](in []T) []interface{} {
	out := make([]interface{}, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

// mapOf returns the entries of a map-field value keyed by their string form.
func mapOf(v interface{}) (map[string]interface{}, bool) {
	switch t := v.(type) {
	case map[string]interface{}:
		return t, true
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	}
	return nil, false
}
