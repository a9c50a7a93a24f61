package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
)

// EntryUseCase is the read side of the ledger. It only sees committed entries.
type EntryUseCase struct {
	entryRepo   EntryRepository
	accountRepo AccountRepository
}

// NewEntryUseCase creates a new EntryUseCase.
func NewEntryUseCase(entryRepo EntryRepository, accountRepo AccountRepository) *EntryUseCase {
	return &EntryUseCase{
		entryRepo:   entryRepo,
		accountRepo: accountRepo,
	}
}

// EntriesForAccount returns the full history of an account, newest first.
// An unknown account has no history.
func (uc *EntryUseCase) EntriesForAccount(ctx context.Context, accountID string) ([]*domain.LedgerEntry, error) {
	entries, err := uc.entryRepo.ListByAccount(ctx, accountID, 0, 0)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	return nonNil(entries), nil
}

// EntriesForCustomer returns entries over all accounts of a customer, newest first.
func (uc *EntryUseCase) EntriesForCustomer(ctx context.Context, customerID string) ([]*domain.LedgerEntry, error) {
	entries, err := uc.entryRepo.ListByCustomer(ctx, customerID, 0, 0)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	return nonNil(entries), nil
}

// ListEntriesInput represents input for listing entries page by page.
type ListEntriesInput struct {
	AccountID  string
	CustomerID string
	Limit      int
	Offset     int
}

// ListEntriesByAccount lists one page of an account's entries.
func (uc *EntryUseCase) ListEntriesByAccount(ctx context.Context, input ListEntriesInput) ([]*domain.LedgerEntry, error) {
	limit, offset, _ := domain.ValidatePagination(input.Limit, input.Offset)

	entries, err := uc.entryRepo.ListByAccount(ctx, input.AccountID, limit, offset)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	return nonNil(entries), nil
}

// ListEntriesByCustomer lists one page of a customer's entries.
func (uc *EntryUseCase) ListEntriesByCustomer(ctx context.Context, input ListEntriesInput) ([]*domain.LedgerEntry, error) {
	limit, offset, _ := domain.ValidatePagination(input.Limit, input.Offset)

	entries, err := uc.entryRepo.ListByCustomer(ctx, input.CustomerID, limit, offset)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	return nonNil(entries), nil
}

// EntriesForOperation returns the one or two entries an operation wrote.
func (uc *EntryUseCase) EntriesForOperation(ctx context.Context, operationID string) ([]*domain.LedgerEntry, error) {
	entries, err := uc.entryRepo.GetByOperation(ctx, operationID)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	return nonNil(entries), nil
}

// BalanceAt returns the balance an account had at a point in time.
func (uc *EntryUseCase) BalanceAt(ctx context.Context, accountID string, at time.Time) (decimal.Decimal, error) {
	entry, err := uc.entryRepo.GetLatestAt(ctx, accountID, at)
	if err == nil {
		return entry.BalanceAfter, nil
	}
	if !errors.Is(err, domain.ErrEntryNotFound) {
		return decimal.Zero, classifyStoreError(err)
	}

	account, err := uc.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return decimal.Zero, classifyStoreError(err)
	}

	if at.Before(account.CreatedAt) {
		return decimal.Zero, nil
	}

	return account.OpeningBalance, nil
}

func nonNil(entries []*domain.LedgerEntry) []*domain.LedgerEntry {
	if entries == nil {
		return []*domain.LedgerEntry{}
	}
	return entries
}
