package utils

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RequestIDPrefix marks loan request identifiers
const RequestIDPrefix = "LN-"

// GenerateRequestID returns a new opaque loan request identifier
func GenerateRequestID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return RequestIDPrefix + strings.ToUpper(raw[:12])
}

// ClampDecimal bounds value to [min, max]
func ClampDecimal(value, min, max decimal.Decimal) decimal.Decimal {
	if value.LessThan(min) {
		return min
	}
	if value.GreaterThan(max) {
		return max
	}
	return value
}

// InRange reports whether min <= value <= max
func InRange(value, min, max decimal.Decimal) bool {
	return value.GreaterThanOrEqual(min) && value.LessThanOrEqual(max)
}

// ContainsFold is a case-insensitive substring match
func ContainsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// DecimalFromString converts string to decimal.Decimal
func DecimalFromString(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}
