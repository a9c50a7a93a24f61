package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/infrastructure/postgres/generated"
	"github.com/iho/bankledger/internal/usecase"
)

// EntryRepository implements usecase.EntryRepository.
type EntryRepository struct {
	queries *generated.Queries
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(db generated.DBTX) *EntryRepository {
	return &EntryRepository{queries: generated.New(db)}
}

// Create appends an entry. A second entry with the same idempotency key,
// account and type is reported as domain.ErrDuplicateEntry.
func (r *EntryRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.LedgerEntry) error {
	queries, err := queriesFor(tx)
	if err != nil {
		return err
	}

	err = queries.CreateEntry(ctx, generated.CreateEntryParams{
		ID:                    entry.ID,
		OperationID:           entry.OperationID,
		AccountID:             entry.AccountID,
		CounterpartyAccountID: textOrNull(entry.CounterpartyAccountID),
		EntryType:             string(entry.Type),
		Status:                string(entry.Status),
		Amount:                decimalToNumeric(entry.Amount),
		BalanceAfter:          decimalToNumeric(entry.BalanceAfter),
		AccountVersion:        entry.AccountVersion,
		IdempotencyKey:        textOrNull(entry.IdempotencyKey),
		CreatedAt:             timeToPgTimestamptz(entry.CreatedAt),
	})

	switch pgErrorCode(err) {
	case "":
		return err
	case pgErrUniqueViolation:
		return fmt.Errorf("%w: %s", domain.ErrDuplicateEntry, entry.IdempotencyKey)
	case pgErrForeignKeyViolation:
		return fmt.Errorf("%w: %s", domain.ErrAccountNotFound, entry.AccountID)
	default:
		return err
	}
}

// GetByOperation returns the entries of one operation.
func (r *EntryRepository) GetByOperation(ctx context.Context, operationID string) ([]*domain.LedgerEntry, error) {
	rows, err := r.queries.GetEntriesByOperation(ctx, operationID)
	if err != nil {
		return nil, err
	}

	return rowsToEntries(rows), nil
}

// GetByIdempotencyKey returns the entries written under key.
func (r *EntryRepository) GetByIdempotencyKey(ctx context.Context, key string) ([]*domain.LedgerEntry, error) {
	if key == "" {
		return []*domain.LedgerEntry{}, nil
	}

	rows, err := r.queries.GetEntriesByIdempotencyKey(ctx, textOrNull(key))
	if err != nil {
		return nil, err
	}

	return rowsToEntries(rows), nil
}

// ListByAccount lists an account's entries, newest first.
func (r *EntryRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.LedgerEntry, error) {
	rows, err := r.queries.ListEntriesByAccount(ctx, generated.ListEntriesByAccountParams{
		AccountID: accountID,
		Limit:     pageLimit(limit),
		Offset:    int32(offset),
	})
	if err != nil {
		return nil, err
	}

	return rowsToEntries(rows), nil
}

// ListByCustomer lists entries across a customer's accounts, newest first.
func (r *EntryRepository) ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]*domain.LedgerEntry, error) {
	rows, err := r.queries.ListEntriesByCustomer(ctx, generated.ListEntriesByCustomerParams{
		CustomerID: customerID,
		Limit:      pageLimit(limit),
		Offset:     int32(offset),
	})
	if err != nil {
		return nil, err
	}

	return rowsToEntries(rows), nil
}

// GetLatestAt returns the newest entry of an account not later than at.
func (r *EntryRepository) GetLatestAt(ctx context.Context, accountID string, at time.Time) (*domain.LedgerEntry, error) {
	row, err := r.queries.GetLatestEntryAt(ctx, generated.GetLatestEntryAtParams{
		AccountID: accountID,
		CreatedAt: timeToPgTimestamptz(at),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEntryNotFound
		}
		return nil, err
	}

	return rowToEntry(row), nil
}

// pageLimit maps a zero limit to SQL NULL, which PostgreSQL reads as no limit.
func pageLimit(limit int) pgtype.Int4 {
	return pgtype.Int4{Int32: int32(limit), Valid: limit > 0}
}

func rowsToEntries(rows []generated.LedgerEntry) []*domain.LedgerEntry {
	entries := make([]*domain.LedgerEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, rowToEntry(row))
	}
	return entries
}

func rowToEntry(row generated.LedgerEntry) *domain.LedgerEntry {
	return &domain.LedgerEntry{
		ID:                    row.ID,
		OperationID:           row.OperationID,
		AccountID:             row.AccountID,
		CounterpartyAccountID: row.CounterpartyAccountID.String,
		Type:                  domain.EntryType(row.EntryType),
		Status:                domain.EntryStatus(row.Status),
		Amount:                numericToDecimal(row.Amount),
		BalanceAfter:          numericToDecimal(row.BalanceAfter),
		AccountVersion:        row.AccountVersion,
		IdempotencyKey:        row.IdempotencyKey.String,
		CreatedAt:             row.CreatedAt.Time.UTC(),
	}
}
