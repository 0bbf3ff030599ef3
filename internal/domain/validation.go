package domain

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Validation errors
var (
	ErrInvalidName     = errors.New("invalid name")
	ErrInvalidCurrency = errors.New("invalid currency code")
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrAmountTooLarge  = errors.New("amount exceeds maximum allowed")
	ErrInvalidActor    = errors.New("actor must carry user and tenant")
)

// Validation constants
const (
	MaxNameLength   = 255
	MaxAmount       = "1000000000000" // 1 trillion
	MaxPageSize     = 1000
	DefaultPageSize = 50
)

var maxAmount = decimal.RequireFromString(MaxAmount)

// Valid currency codes (ISO 4217)
var validCurrencies = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "JPY": true,
	"CNY": true, "AUD": true, "CAD": true, "CHF": true,
	"SEK": true, "NZD": true, "KRW": true, "SGD": true,
	"NOK": true, "MXN": true, "INR": true, "BRL": true,
	"ZAR": true, "RUB": true, "TRY": true, "HKD": true,
	"AED": true, "SAR": true, "EGP": true, "PLN": true,
	"DKK": true, "CZK": true, "HUF": true, "ILS": true,
}

// NormalizeCurrency trims and upper-cases a currency code.
func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateName validates a party or product name.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return NewValidationError("name", ErrInvalidName, "name cannot be empty")
	}
	if len(name) > MaxNameLength {
		return NewValidationError("name", ErrInvalidName, "name exceeds %d characters", MaxNameLength)
	}
	return nil
}

// ValidateCurrency validates currency code
func ValidateCurrency(currency string) error {
	currency = NormalizeCurrency(currency)
	if !validCurrencies[currency] {
		return NewValidationError("currency", ErrInvalidCurrency, "%q is not a valid ISO 4217 currency code", currency)
	}
	return nil
}

// ValidateAmount checks an amount that stays strictly positive once quantized
// to MoneyPlaces and is below MaxAmount.
func ValidateAmount(field string, amount decimal.Decimal) error {
	if !QuantizeMoney(amount).IsPositive() {
		return NewValidationError(field, ErrInvalidAmount, "must be at least 0.01, got %s", amount)
	}
	if amount.GreaterThan(maxAmount) {
		return NewValidationError(field, ErrAmountTooLarge, "maximum amount is %s", MaxAmount)
	}
	return nil
}

// ValidateUnitPrice allows zero-priced lines but never negative ones.
func ValidateUnitPrice(field string, price decimal.Decimal) error {
	if price.IsNegative() {
		return NewValidationError(field, ErrInvalidAmount, "must not be negative, got %s", price)
	}
	if price.GreaterThan(maxAmount) {
		return NewValidationError(field, ErrAmountTooLarge, "maximum amount is %s", MaxAmount)
	}
	return nil
}

// ValidateQuantity checks a strictly positive line quantity.
func ValidateQuantity(field string, qty int64) error {
	if qty <= 0 {
		return NewValidationError(field, ErrInvalidQuantity, "must be positive, got %d", qty)
	}
	return nil
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
