package domain

import "github.com/shopspring/decimal"

// Fixed-point scales for persisted values.
const (
	MoneyPlaces int32 = 2
	RatePlaces  int32 = 6
)

// QuantizeMoney rounds an amount to MoneyPlaces, half away from zero.
func QuantizeMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// QuantizeRate rounds an exchange rate to RatePlaces, half away from zero.
func QuantizeRate(d decimal.Decimal) decimal.Decimal {
	return d.Round(RatePlaces)
}

// Convert returns amount × rate quantized to money precision.
func Convert(amount, rate decimal.Decimal) decimal.Decimal {
	return QuantizeMoney(amount.Mul(rate))
}

// IdentityRate is the rate between a currency and itself.
func IdentityRate() decimal.Decimal {
	return decimal.NewFromInt(1)
}
