package domain

import (
	"errors"
	"fmt"
)

var (
	// Ledger errors
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrConcurrencyTimeout = errors.New("concurrent modification, retry")
	ErrReferenceViolation = errors.New("referenced entity missing or still in use")

	// Lookup errors
	ErrPartyNotFound    = errors.New("party not found")
	ErrProductNotFound  = errors.New("product not found")
	ErrDocumentNotFound = errors.New("document not found")
	ErrActivityNotFound = errors.New("activity not found")

	// Document errors
	ErrInvalidCounterparty    = errors.New("exactly one of customer or supplier is required")
	ErrEmptyDocument          = errors.New("document has no line items")
	ErrBankAccountRequired    = errors.New("bank account is required")
	ErrDocumentHasReturns     = errors.New("document has returns")
	ErrReturnAlreadyCommitted = errors.New("return already committed")
	ErrReturnExceedsSource    = errors.New("returned quantity exceeds source document")

	// Currency errors
	ErrRateUnavailable = errors.New("exchange rate unavailable")

	// Activity errors
	ErrNotRestorable = errors.New("activity is not restorable")
)

// ErrValidation is matched by every *ValidationError.
var ErrValidation = errors.New("validation failed")

// ValidationError reports caller input that can never succeed as given.
// errors.Is matches both ErrValidation and the wrapped cause.
type ValidationError struct {
	Err     error
	Field   string
	Message string
}

// NewValidationError builds a ValidationError for field with cause err.
func NewValidationError(field string, err error, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Err: err, Message: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Field == "" {
		return msg
	}
	return e.Field + ": " + msg
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
