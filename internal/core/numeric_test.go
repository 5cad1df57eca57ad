package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveRemainingDefaultsBlankToImpressions(t *testing.T) {
	for _, stored := range []interface{}{nil, "", "   "} {
		got, err := ResolveRemaining(stored, 5000)
		require.NoError(t, err)
		assert.Equal(t, int64(5000), got, "stored=%v", stored)
	}
}

func TestResolveRemainingParsesStoredValues(t *testing.T) {
	cases := []struct {
		stored interface{}
		want   int64
	}{
		{float64(1200), 1200},
		{"1,200", 1200},
		{"1,200,500", 1200500},
		{" 300 ", 300},
		{"0", 0},
		{int64(42), 42},
	}

	for _, tc := range cases {
		got, err := ResolveRemaining(tc.stored, 9999)
		require.NoError(t, err, "stored=%v", tc.stored)
		assert.Equal(t, tc.want, got, "stored=%v", tc.stored)
	}
}

func TestResolveRemainingIsIdempotent(t *testing.T) {
	first, err := ResolveRemaining("2,500", 3000)
	require.NoError(t, err)
	second, err := ResolveRemaining("2,500", 3000)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestResolveRemainingRejectsMalformedValues(t *testing.T) {
	for _, stored := range []interface{}{"12oo", "n/a", true, []interface{}{1}} {
		_, err := ResolveRemaining(stored, 100)
		require.Error(t, err, "stored=%v", stored)

		var malformed *MalformedQuantityError
		assert.ErrorAs(t, err, &malformed, "stored=%v", stored)
	}
}

func TestParseQuantityRoundsFloats(t *testing.T) {
	got, err := ParseQuantity(float64(99.6))
	require.NoError(t, err)
	assert.Equal(t, int64(100), got)
}
