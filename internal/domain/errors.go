package domain

import "errors"

var (
	// Account errors
	ErrAccountNotFound     = errors.New("account not found")
	ErrAccountClosed       = errors.New("account is closed")
	ErrAccountNotEmpty     = errors.New("account balance must be zero to close")
	ErrInvalidAccountType  = errors.New("invalid account type")
	ErrInvalidCustomerID   = errors.New("invalid customer id")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrInvalidOpeningFunds = errors.New("opening balance must not be negative")

	// Operation errors
	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrSameAccount           = errors.New("cannot transfer to same account")
	ErrOperationInProgress   = errors.New("operation with this idempotency key is in progress")
	ErrInvalidIdempotencyKey = errors.New("invalid idempotency key")
	ErrIdempotencyKeyReused  = errors.New("idempotency key was used for a different operation")
	ErrDuplicateEntry        = errors.New("ledger entry already recorded for idempotency key")
	ErrEntryNotFound         = errors.New("ledger entry not found")
	ErrInconsistentLedger    = errors.New("ledger is inconsistent")

	// Store errors
	ErrUnavailable = errors.New("ledger store unavailable")
	ErrTimeout     = errors.New("ledger operation timed out")
)

var ledgerErrors = []error{
	ErrAccountNotFound,
	ErrAccountClosed,
	ErrAccountNotEmpty,
	ErrInvalidAccountType,
	ErrInvalidCustomerID,
	ErrInsufficientFunds,
	ErrInvalidOpeningFunds,
	ErrInvalidAmount,
	ErrSameAccount,
	ErrOperationInProgress,
	ErrInvalidIdempotencyKey,
	ErrIdempotencyKeyReused,
	ErrDuplicateEntry,
	ErrEntryNotFound,
	ErrInconsistentLedger,
	ErrUnavailable,
	ErrTimeout,
}

// IsLedgerError reports whether err wraps one of the errors declared by this package.
func IsLedgerError(err error) bool {
	for _, target := range ledgerErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
