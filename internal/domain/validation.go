package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Validation constants
const (
	AmountScale           = 2
	MaxAmount             = "1000000000000" // 1 trillion
	MaxCustomerIDLength   = 128
	MaxIdempotencyKeySize = 255
)

var maxAmount = decimal.RequireFromString(MaxAmount)

// ValidateAmount validates a deposit, withdrawal or transfer amount.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	if !amount.Equal(amount.Truncate(AmountScale)) {
		return fmt.Errorf("%w: at most %d decimal places", ErrInvalidAmount, AmountScale)
	}

	if amount.GreaterThan(maxAmount) {
		return fmt.Errorf("%w: maximum amount is %s", ErrInvalidAmount, MaxAmount)
	}

	return nil
}

// ValidateOpeningBalance validates the balance an account is opened with.
func ValidateOpeningBalance(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrInvalidOpeningFunds
	}
	if amount.IsZero() {
		return nil
	}
	if err := ValidateAmount(amount); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOpeningFunds, err)
	}
	return nil
}

// ParseAmount parses a decimal string and validates it as an amount.
func ParseAmount(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q is not a number", ErrInvalidAmount, s)
	}
	if err := ValidateAmount(amount); err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}

// ValidateTransfer checks the parts of a transfer that need no stored state.
func ValidateTransfer(fromAccountID, toAccountID string, amount decimal.Decimal) error {
	if fromAccountID == toAccountID {
		return ErrSameAccount
	}
	return ValidateAmount(amount)
}

// ValidateCustomerID validates the owner reference of an account.
func ValidateCustomerID(customerID string) error {
	customerID = strings.TrimSpace(customerID)

	if customerID == "" {
		return fmt.Errorf("%w: customer id cannot be empty", ErrInvalidCustomerID)
	}

	if len(customerID) > MaxCustomerIDLength {
		return fmt.Errorf("%w: customer id exceeds %d characters", ErrInvalidCustomerID, MaxCustomerIDLength)
	}

	return nil
}

// ValidateAccountType validates the requested account type.
func ValidateAccountType(t AccountType) error {
	if !t.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidAccountType, t)
	}
	return nil
}

// ValidateIdempotencyKey rejects keys the stores cannot index.
func ValidateIdempotencyKey(key string) error {
	if len(key) > MaxIdempotencyKeySize {
		return fmt.Errorf("%w: exceeds %d characters", ErrInvalidIdempotencyKey, MaxIdempotencyKeySize)
	}
	return nil
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int, error) {
	const MaxPageSize = 1000
	const DefaultPageSize = 50

	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset, nil
}
