package config

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseType(t *testing.T) {
	tests := []struct {
		name string
		want Type
	}{
		{"", TypeString},
		{"string", TypeString},
		{"integer", TypeInt},
		{"number", TypeFloat},
		{"boolean", TypeBool},
		{"Duration", TypeDuration},
		{"enum", TypeEnum},
		{"array", TypeList},
	}
	for _, tt := range tests {
		got, err := ParseType(tt.name)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}

	_, err := ParseType("object")
	assert.ErrorIs(t, err, ErrInvalidDefinition)
}

func TestType_Coerce(t *testing.T) {
	tests := []struct {
		typ   Type
		in    any
		want  any
		fails bool
	}{
		{TypeInt, 5, int64(5), false},
		{TypeInt, 5.0, int64(5), false},
		{TypeInt, 5.5, nil, true},
		{TypeInt, 1e19, nil, true},
		{TypeInt, -1e19, nil, true},
		{TypeInt, float64(1 << 63), nil, true},
		{TypeInt, float64(-(1 << 63)), int64(math.MinInt64), false},
		{TypeInt, float64(1 << 62), int64(1 << 62), false},
		{TypeInt, math.Inf(1), nil, true},
		{TypeInt, math.NaN(), nil, true},
		{TypeInt, uint64(math.MaxUint64), nil, true},
		{TypeFloat, int64(2), 2.0, false},
		{TypeDuration, "1m30s", 90 * time.Second, false},
		{TypeDuration, "soon", nil, true},
		{TypeList, []any{"a", "b"}, []string{"a", "b"}, false},
		{TypeList, []any{"a", 1}, nil, true},
		{TypeBool, "true", nil, true},
	}
	for _, tt := range tests {
		got, err := tt.typ.Coerce(tt.in)
		if tt.fails {
			assert.ErrorIs(t, err, ErrTypeMismatch, "%s %v", tt.typ, tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestDefinition_Validate(t *testing.T) {
	def := Definition{Key: "rate", Type: TypeInt, Minimum: MinValue(1), Maximum: MaxValue(10)}

	assert.NoError(t, def.Validate(int64(5)))

	var verr *ValidationError
	require.ErrorAs(t, def.Validate(int64(11)), &verr)
	assert.Equal(t, ErrCodeOutOfRange, verr.Code)
	assert.Equal(t, "rate", verr.Path)

	require.ErrorAs(t, def.Validate(5), &verr)
	assert.Equal(t, ErrCodeTypeMismatch, verr.Code)
	assert.ErrorIs(t, verr, ErrTypeMismatch)
}

func TestFormatFor(t *testing.T) {
	f, err := FormatFor("a/b/config.yml")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)

	f, err = FormatFor("config")
	require.NoError(t, err)
	assert.Equal(t, FormatTOML, f)

	_, err = FormatFor("config.json")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
