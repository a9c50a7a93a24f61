package memory

import (
	"context"
	"sort"
	"time"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// EntryRepository implements usecase.EntryRepository.
type EntryRepository struct {
	store *Store
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(store *Store) *EntryRepository {
	return &EntryRepository{store: store}
}

// Create stages an entry.
func (r *EntryRepository) Create(_ context.Context, tx usecase.Transaction, entry *domain.LedgerEntry) error {
	t, err := txFrom(tx)
	if err != nil {
		return err
	}
	t.entries = append(t.entries, cloneEntry(entry))
	return nil
}

// GetByOperation returns the entries of one operation in write order.
func (r *EntryRepository) GetByOperation(_ context.Context, operationID string) ([]*domain.LedgerEntry, error) {
	entries := r.filter(func(e *domain.LedgerEntry) bool { return e.OperationID == operationID })
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}

// GetByIdempotencyKey returns the entries written under key.
func (r *EntryRepository) GetByIdempotencyKey(_ context.Context, key string) ([]*domain.LedgerEntry, error) {
	if key == "" {
		return []*domain.LedgerEntry{}, nil
	}
	entries := r.filter(func(e *domain.LedgerEntry) bool { return e.IdempotencyKey == key })
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}

// ListByAccount lists an account's entries, newest first.
func (r *EntryRepository) ListByAccount(_ context.Context, accountID string, limit, offset int) ([]*domain.LedgerEntry, error) {
	entries := r.filter(func(e *domain.LedgerEntry) bool { return e.AccountID == accountID })
	sortNewestFirst(entries)
	return page(entries, limit, offset), nil
}

// ListByCustomer lists entries across a customer's accounts, newest first.
func (r *EntryRepository) ListByCustomer(_ context.Context, customerID string, limit, offset int) ([]*domain.LedgerEntry, error) {
	r.store.mu.RLock()
	owned := make(map[string]bool)
	for id, a := range r.store.accounts {
		if a.CustomerID == customerID {
			owned[id] = true
		}
	}
	r.store.mu.RUnlock()

	entries := r.filter(func(e *domain.LedgerEntry) bool { return owned[e.AccountID] })
	sortNewestFirst(entries)
	return page(entries, limit, offset), nil
}

// GetLatestAt returns the newest entry of an account not later than at.
func (r *EntryRepository) GetLatestAt(_ context.Context, accountID string, at time.Time) (*domain.LedgerEntry, error) {
	entries := r.filter(func(e *domain.LedgerEntry) bool {
		return e.AccountID == accountID && !e.CreatedAt.After(at)
	})
	if len(entries) == 0 {
		return nil, domain.ErrEntryNotFound
	}
	sortNewestFirst(entries)
	return entries[0], nil
}

func (r *EntryRepository) filter(keep func(*domain.LedgerEntry) bool) []*domain.LedgerEntry {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]*domain.LedgerEntry, 0)
	for _, e := range r.store.entries {
		if keep(e) {
			out = append(out, cloneEntry(e))
		}
	}
	return out
}
