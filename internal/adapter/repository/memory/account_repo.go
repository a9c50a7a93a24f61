package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	store *Store
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(store *Store) *AccountRepository {
	return &AccountRepository{store: store}
}

// Create stages a new account.
func (r *AccountRepository) Create(_ context.Context, tx usecase.Transaction, account *domain.Account) error {
	t, err := txFrom(tx)
	if err != nil {
		return err
	}
	t.created = append(t.created, account.Clone())
	return nil
}

// GetByID retrieves a committed account.
func (r *AccountRepository) GetByID(_ context.Context, id string) (*domain.Account, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	a, ok := r.store.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return a.Clone(), nil
}

// GetByIDForUpdate locks and retrieves one account.
func (r *AccountRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Account, error) {
	accounts, err := r.GetByIDsForUpdate(ctx, tx, []string{id})
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, domain.ErrAccountNotFound
	}
	return accounts[0], nil
}

// GetByIDsForUpdate locks accounts in ascending id order.
func (r *AccountRepository) GetByIDsForUpdate(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.Account, error) {
	t, err := txFrom(tx)
	if err != nil {
		return nil, err
	}

	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	accounts := make([]*domain.Account, 0, len(sorted))
	for _, id := range sorted {
		// Accounts are never removed, so an id missing now stays missing
		// and needs no lock.
		if !r.exists(id) {
			continue
		}
		if err := t.lock(ctx, id); err != nil {
			return nil, err
		}

		staged, ok := t.accounts[id]
		if !ok {
			r.store.mu.RLock()
			staged = r.store.accounts[id].Clone()
			r.store.mu.RUnlock()
			t.accounts[id] = staged
		}

		accounts = append(accounts, staged.Clone())
	}

	return accounts, nil
}

// UpdateBalance stages a balance change on a locked account.
func (r *AccountRepository) UpdateBalance(_ context.Context, tx usecase.Transaction, id string, balance decimal.Decimal, entryAt time.Time) error {
	a, err := lockedAccount(tx, id)
	if err != nil {
		return err
	}
	if balance.IsNegative() {
		return domain.ErrInsufficientFunds
	}
	a.Balance = balance
	a.Version++
	a.LastEntryAt = entryAt
	a.UpdatedAt = entryAt
	return nil
}

// UpdateStatus stages a status change on a locked account.
func (r *AccountRepository) UpdateStatus(_ context.Context, tx usecase.Transaction, id string, status domain.AccountStatus, updatedAt time.Time) error {
	a, err := lockedAccount(tx, id)
	if err != nil {
		return err
	}
	a.Status = status
	a.UpdatedAt = updatedAt
	return nil
}

// ListByCustomer lists a customer's accounts, oldest first.
func (r *AccountRepository) ListByCustomer(_ context.Context, customerID string) ([]*domain.Account, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	accounts := make([]*domain.Account, 0)
	for _, a := range r.store.accounts {
		if a.CustomerID == customerID {
			accounts = append(accounts, a.Clone())
		}
	}
	sortOldestFirst(accounts)
	return accounts, nil
}

// List lists accounts with pagination, oldest first.
func (r *AccountRepository) List(_ context.Context, limit, offset int) ([]*domain.Account, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	accounts := make([]*domain.Account, 0, len(r.store.accounts))
	for _, a := range r.store.accounts {
		accounts = append(accounts, a.Clone())
	}
	sortOldestFirst(accounts)
	return page(accounts, limit, offset), nil
}

func (r *AccountRepository) exists(id string) bool {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	_, ok := r.store.accounts[id]
	return ok
}

func lockedAccount(tx usecase.Transaction, id string) (*domain.Account, error) {
	t, err := txFrom(tx)
	if err != nil {
		return nil, err
	}
	a, ok := t.accounts[id]
	if !ok {
		return nil, fmt.Errorf("memory: account %s is not locked by this transaction", id)
	}
	return a, nil
}

func sortOldestFirst(accounts []*domain.Account) {
	sort.Slice(accounts, func(i, j int) bool {
		if !accounts[i].CreatedAt.Equal(accounts[j].CreatedAt) {
			return accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
		}
		return accounts[i].ID < accounts[j].ID
	})
}
