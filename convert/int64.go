package convert

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Int64Input is one of the accepted plain-object forms of a 64-bit integer
// field: Int64Number, Int64Decimal or Int64HighLow.
type Int64Input interface {
	Int64() (int64, error)
	Uint64() (uint64, error)
	isInt64Input()
}

// Int64Number is a JSON number. It must be integral; values beyond 2^53 have
// already lost precision and should travel as Int64Decimal instead.
type Int64Number float64

// Int64Decimal is a base-10 string such as "-9223372036854775808".
type Int64Decimal string

// Int64HighLow is a pair of 32-bit halves, the form used by JavaScript long
// libraries: {"low": l, "high": h, "unsigned": u}.
type Int64HighLow struct {
	Low      uint32
	High     uint32
	Unsigned bool
}

func (Int64Number) isInt64Input()  {}
func (Int64Decimal) isInt64Input() {}
func (Int64HighLow) isInt64Input() {}

var (
	errNotIntegral = errors.New("not an integer")
	errOutOfRange  = errors.New("out of range")
)

func (n Int64Number) Int64() (int64, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, errNotIntegral
	}
	// 2^63 is exactly representable; MaxInt64 is not
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, errOutOfRange
	}
	return int64(f), nil
}

func (n Int64Number) Uint64() (uint64, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, errNotIntegral
	}
	if f < 0 || f >= math.MaxUint64 {
		return 0, errOutOfRange
	}
	return uint64(f), nil
}

func (d Int64Decimal) Int64() (int64, error) {
	s := strings.TrimSpace(string(d))
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	} else if errors.Is(err, strconv.ErrRange) {
		return 0, errOutOfRange
	}
	// "1e3" and "5.0" are integral too
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid decimal %q", string(d))
	}
	return Int64Number(f).Int64()
}

func (d Int64Decimal) Uint64() (uint64, error) {
	s := strings.TrimSpace(string(d))
	if v, err := strconv.ParseUint(s, 10, 64); err == nil {
		return v, nil
	} else if errors.Is(err, strconv.ErrRange) {
		return 0, errOutOfRange
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid decimal %q", string(d))
	}
	return Int64Number(f).Uint64()
}

func (p Int64HighLow) bits() uint64 {
	return uint64(p.High)<<32 | uint64(p.Low)
}

func (p Int64HighLow) Int64() (int64, error) {
	if p.Unsigned && p.bits() > math.MaxInt64 {
		return 0, errOutOfRange
	}
	return int64(p.bits()), nil
}

func (p Int64HighLow) Uint64() (uint64, error) {
	if !p.Unsigned && p.High&(1<<31) != 0 {
		return 0, errOutOfRange
	}
	return p.bits(), nil
}

// ParseInt64Input classifies a plain-object value as one of the Int64Input
// variants. Native Go integers are carried as Int64Decimal so that no
// precision is lost.
func ParseInt64Input(v interface{}) (Int64Input, error) {
	switch t := v.(type) {
	case Int64Input:
		return t, nil
	case float64:
		return Int64Number(t), nil
	case float32:
		return Int64Number(t), nil
	case json.Number:
		return Int64Decimal(t), nil
	case string:
		return Int64Decimal(t), nil
	case int, int8, int16, int32, int64:
		return Int64Decimal(fmt.Sprint(t)), nil
	case uint, uint8, uint16, uint32, uint64:
		return Int64Decimal(fmt.Sprint(t)), nil
	case map[string]interface{}:
		return parseHighLow(t)
	}
	return nil, fmt.Errorf("cannot use %T as a 64-bit integer", v)
}

func parseHighLow(m map[string]interface{}) (Int64Input, error) {
	lowRaw, hasLow := m["low"]
	highRaw, hasHigh := m["high"]
	if !hasLow || !hasHigh {
		return nil, errors.New("64-bit integer object needs low and high")
	}
	low, err := half(lowRaw)
	if err != nil {
		return nil, fmt.Errorf("low: %w", err)
	}
	high, err := half(highRaw)
	if err != nil {
		return nil, fmt.Errorf("high: %w", err)
	}
	pair := Int64HighLow{Low: low, High: high}
	if u, ok := m["unsigned"]; ok {
		b, isBool := u.(bool)
		if !isBool {
			return nil, fmt.Errorf("unsigned: expected bool, got %T", u)
		}
		pair.Unsigned = b
	}
	return pair, nil
}

// half accepts a 32-bit half written either signed or unsigned.
func half(v interface{}) (uint32, error) {
	in, err := ParseInt64Input(v)
	if err != nil {
		return 0, err
	}
	if _, isPair := in.(Int64HighLow); isPair {
		return 0, errors.New("nested 64-bit integer object")
	}
	n, err := in.Int64()
	if err != nil {
		return 0, err
	}
	if n < math.MinInt32 || n > math.MaxUint32 {
		return 0, errOutOfRange
	}
	return uint32(n), nil
}
