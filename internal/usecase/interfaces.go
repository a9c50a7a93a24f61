package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
)

// AccountRepository defines data access for accounts.
type AccountRepository interface {
	Create(ctx context.Context, tx Transaction, account *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Account, error)
	// GetByIDsForUpdate locks the accounts in ascending id order. Unknown ids
	// are skipped, so callers compare the result length with the request.
	GetByIDsForUpdate(ctx context.Context, tx Transaction, ids []string) ([]*domain.Account, error)
	// UpdateBalance sets the balance, bumps the version and records the
	// commit time of the entry that produced the new balance.
	UpdateBalance(ctx context.Context, tx Transaction, id string, balance decimal.Decimal, entryAt time.Time) error
	UpdateStatus(ctx context.Context, tx Transaction, id string, status domain.AccountStatus, updatedAt time.Time) error
	ListByCustomer(ctx context.Context, customerID string) ([]*domain.Account, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Account, error)
}

// EntryRepository defines data access for ledger entries. Entries are
// append-only: there is no update or delete.
type EntryRepository interface {
	Create(ctx context.Context, tx Transaction, entry *domain.LedgerEntry) error
	GetByOperation(ctx context.Context, operationID string) ([]*domain.LedgerEntry, error)
	GetByIdempotencyKey(ctx context.Context, key string) ([]*domain.LedgerEntry, error)
	// ListByAccount and ListByCustomer return entries newest first. A limit
	// of zero means no limit.
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.LedgerEntry, error)
	ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]*domain.LedgerEntry, error)
	// GetLatestAt returns the newest entry of the account created at or
	// before at, or domain.ErrEntryNotFound.
	GetLatestAt(ctx context.Context, accountID string, at time.Time) (*domain.LedgerEntry, error)
}

// LedgerRepository defines data access for ledger-wide operations.
type LedgerRepository interface {
	Totals(ctx context.Context) (*domain.LedgerTotals, error)
	// UnpairedTransfers returns operation ids whose transfer legs do not
	// form exactly one SENT/RECEIVED pair.
	UnpairedTransfers(ctx context.Context, limit int) ([]string, error)
	// AccountSnapshot returns the account's balance and entry history as of
	// one committed state, or domain.ErrAccountNotFound.
	AccountSnapshot(ctx context.Context, accountID string) (*domain.AccountSnapshot, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublished(ctx context.Context, before time.Time) (int64, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Retrier re-runs fn while it fails with a transient store error.
type Retrier interface {
	Retry(ctx context.Context, fn func() error) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops the key so a failed operation can be retried.
	Release(ctx context.Context, key string) error
}

// OperationObserver records the outcome of ledger operations.
type OperationObserver interface {
	ObserveOperation(op domain.OperationType, amount decimal.Decimal, duration time.Duration, err error)
	ObserveReplay(op domain.OperationType)
}
