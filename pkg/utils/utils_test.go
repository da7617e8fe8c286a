package utils

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestGenerateRequestID(t *testing.T) {
	id := GenerateRequestID()

	assert.True(t, strings.HasPrefix(id, RequestIDPrefix))
	assert.Len(t, id, len(RequestIDPrefix)+12)
	assert.Equal(t, strings.ToUpper(id), id)
	assert.NotEqual(t, id, GenerateRequestID())
}

func TestClampDecimal(t *testing.T) {
	min := decimal.NewFromInt(30000000)
	max := decimal.NewFromInt(100000000)

	tests := []struct {
		name     string
		value    decimal.Decimal
		expected decimal.Decimal
	}{
		{name: "inside range", value: decimal.NewFromInt(50000000), expected: decimal.NewFromInt(50000000)},
		{name: "below minimum", value: decimal.NewFromInt(1000), expected: min},
		{name: "above maximum", value: decimal.NewFromInt(500000000), expected: max},
		{name: "exactly maximum", value: max, expected: max},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ClampDecimal(tt.value, min, max)
			assert.True(t, result.Equal(tt.expected), "Expected %v, but got %v", tt.expected, result)
		})
	}
}

func TestInRange(t *testing.T) {
	min := decimal.NewFromInt(10)
	max := decimal.NewFromInt(20)

	assert.True(t, InRange(decimal.NewFromInt(10), min, max))
	assert.True(t, InRange(decimal.NewFromInt(20), min, max))
	assert.False(t, InRange(decimal.NewFromInt(9), min, max))
	assert.False(t, InRange(decimal.NewFromInt(21), min, max))
}

func TestContainsFold(t *testing.T) {
	assert.True(t, ContainsFold("LN-ABC123", "abc"))
	assert.True(t, ContainsFold("09121111111", "1211"))
	assert.False(t, ContainsFold("LN-ABC123", "xyz"))
}

func TestDecimalFromString(t *testing.T) {
	amount, err := DecimalFromString("30000000")
	assert.NoError(t, err)
	assert.True(t, amount.Equal(decimal.NewFromInt(30000000)))

	_, err = DecimalFromString("thirty")
	assert.Error(t, err)
}
