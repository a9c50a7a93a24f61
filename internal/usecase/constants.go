package usecase

import "time"

const (
	// DefaultTransactionTimeout bounds a ledger transaction, lock waits
	// included, when no operation timeout is configured.
	DefaultTransactionTimeout = 5 * time.Second

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// IdempotencyPending marks a key whose operation has not finished yet.
	IdempotencyPending = "processing"

	// maxUnpairedReported caps the operation ids listed by a consistency check.
	maxUnpairedReported = 100
)
