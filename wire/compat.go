package wire

import (
	"os"
	"strconv"
)

// DefaultRecursionLimit bounds message nesting during decode.
const DefaultRecursionLimit = 100

// EncodeOptions controls optional encoder behaviors.
type EncodeOptions struct {
	// AllowPartial: when true, missing required fields are not reported.
	AllowPartial bool
}

// DecodeOptions controls optional decoder behaviors.
type DecodeOptions struct {
	// StrictWireType: when true, the decoder rejects known fields that use a
	// wire type other than the one their type declares. When false (default),
	// such occurrences are skipped like unknown fields.
	StrictWireType bool

	// PopulateDefaults: when true, absent singular scalar and enum fields are
	// filled with their declared default or zero value. When false (default),
	// absent fields remain missing from the result.
	PopulateDefaults bool

	// AllowPartial: when true, missing required fields are not reported.
	AllowPartial bool

	// RecursionLimit bounds message nesting. Zero means DefaultRecursionLimit.
	RecursionLimit int
}

func (o DecodeOptions) recursionLimit() int {
	if o.RecursionLimit <= 0 {
		return DefaultRecursionLimit
	}
	return o.RecursionLimit
}

// Config groups encoder and decoder options.
type Config struct {
	Encode EncodeOptions
	Decode DecodeOptions
}

// ConfigFromEnv returns a Config with toggles read from the environment.
// Unset variables leave the zero-valued defaults.
func ConfigFromEnv() Config {
	var c Config
	if envBool("PROTOCODEC_STRICT_WIRE") {
		c.Decode.StrictWireType = true
	}
	if envBool("PROTOCODEC_POPULATE_DEFAULTS") {
		c.Decode.PopulateDefaults = true
	}
	if envBool("PROTOCODEC_ALLOW_PARTIAL") {
		c.Encode.AllowPartial = true
		c.Decode.AllowPartial = true
	}
	if v := os.Getenv("PROTOCODEC_RECURSION_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Decode.RecursionLimit = n
		}
	}
	return c
}

func envBool(name string) bool {
	v := os.Getenv(name)
	return v == "1" || v == "true"
}
