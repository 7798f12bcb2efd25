/*
errors.go - Centralized error types for commission calculation

PURPOSE:
  All commission errors in one place. Validation failures are surfaced to
  the caller immediately with the offending field named - the calculator
  never swallows an error or substitutes a guessed default.

ERROR CATEGORIES:
  1. Policy errors - unrecognized commission type
  2. Amount errors - negative rate
  3. Input errors - malformed attendance records

USAGE:
  Callers classify with errors.Is:

    if errors.Is(err, commission.ErrInvalidPolicy) {
        // 400, not 500
    }

SEE ALSO:
  - calculator.go: Where these errors are raised
  - api: Translates these into HTTP responses
*/
package commission

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidPolicy is returned for an unrecognized commission policy type.
	ErrInvalidPolicy = errors.New("invalid commission policy type")

	// ErrInvalidAmount is returned for a negative commission rate.
	ErrInvalidAmount = errors.New("invalid commission amount")

	// ErrInvalidInput is returned for malformed attendance records.
	ErrInvalidInput = errors.New("invalid commission input")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidPolicyError names the unrecognized policy type.
type InvalidPolicyError struct {
	Type PolicyType
}

func (e *InvalidPolicyError) Error() string {
	return fmt.Sprintf("invalid commission policy type %q (want %q or %q)",
		e.Type, ByClass, ByStudent)
}

func (e *InvalidPolicyError) Unwrap() error { return ErrInvalidPolicy }

// InvalidAmountError names the rejected commission rate.
type InvalidAmountError struct {
	Amount decimal.Decimal
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("invalid commission amount %s: must not be negative", e.Amount)
}

func (e *InvalidAmountError) Unwrap() error { return ErrInvalidAmount }

// InvalidInputError names the malformed record and field.
type InvalidInputError struct {
	Field   string
	Message string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid commission input: %s: %s", e.Field, e.Message)
}

func (e *InvalidInputError) Unwrap() error { return ErrInvalidInput }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
// There are no retryable failure modes here - the calculator is pure
// computation, so every error is a caller bug or a data-integrity problem.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidPolicy) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidInput)
}
