package convert

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInt64Input(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
		want  Int64Input
	}{
		{"float", float64(3), Int64Number(3)},
		{"float32", float32(2), Int64Number(2)},
		{"string", "-12", Int64Decimal("-12")},
		{"json number", json.Number("77"), Int64Decimal("77")},
		{"native int", int64(math.MinInt64), Int64Decimal("-9223372036854775808")},
		{"native uint", uint64(math.MaxUint64), Int64Decimal("18446744073709551615")},
		{"pair", map[string]interface{}{"low": float64(1), "high": float64(2), "unsigned": true}, Int64HighLow{Low: 1, High: 2, Unsigned: true}},
		{"signed halves", map[string]interface{}{"low": float64(-1), "high": float64(-1)}, Int64HighLow{Low: math.MaxUint32, High: math.MaxUint32}},
		{"already classified", Int64Number(5), Int64Number(5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseInt64Input(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []interface{}{
		true,
		nil,
		[]interface{}{1},
		map[string]interface{}{"low": float64(1)},
		map[string]interface{}{"low": float64(1), "high": float64(1 << 33)},
		map[string]interface{}{"low": float64(1), "high": float64(1), "unsigned": "yes"},
	} {
		_, err := ParseInt64Input(bad)
		assert.Error(t, err, "%#v", bad)
	}
}

func TestInt64Input_Int64(t *testing.T) {
	tests := []struct {
		name    string
		input   Int64Input
		want    int64
		wantErr bool
	}{
		{"number", Int64Number(-42), -42, false},
		{"largest exact float", Int64Number(1 << 53), 1 << 53, false},
		{"number not integral", Int64Number(0.5), 0, true},
		{"number NaN", Int64Number(math.NaN()), 0, true},
		{"number 2^63", Int64Number(math.Pow(2, 63)), 0, true},
		{"number -2^63", Int64Number(-math.Pow(2, 63)), math.MinInt64, false},
		{"decimal max", Int64Decimal("9223372036854775807"), math.MaxInt64, false},
		{"decimal overflow", Int64Decimal("9223372036854775808"), 0, true},
		{"decimal exponent", Int64Decimal("1e3"), 1000, false},
		{"decimal spaces", Int64Decimal(" 8 "), 8, false},
		{"decimal garbage", Int64Decimal("eight"), 0, true},
		{"pair max", Int64HighLow{Low: math.MaxUint32, High: math.MaxInt32}, math.MaxInt64, false},
		{"pair minus one", Int64HighLow{Low: math.MaxUint32, High: math.MaxUint32}, -1, false},
		{"unsigned pair too big", Int64HighLow{High: 1 << 31, Unsigned: true}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.input.Int64()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInt64Input_Uint64(t *testing.T) {
	tests := []struct {
		name    string
		input   Int64Input
		want    uint64
		wantErr bool
	}{
		{"number", Int64Number(42), 42, false},
		{"negative number", Int64Number(-1), 0, true},
		{"decimal max", Int64Decimal("18446744073709551615"), math.MaxUint64, false},
		{"decimal negative", Int64Decimal("-1"), 0, true},
		{"decimal overflow", Int64Decimal("18446744073709551616"), 0, true},
		{"unsigned pair", Int64HighLow{Low: math.MaxUint32, High: math.MaxUint32, Unsigned: true}, math.MaxUint64, false},
		{"signed negative pair", Int64HighLow{High: 1 << 31}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.input.Uint64()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
