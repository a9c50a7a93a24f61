// Package memory is an in-process implementation of the ledger stores.
// Transactions lock accounts one by one and buffer their writes until
// Commit, so readers only ever observe committed state.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// ErrTxDone is returned when a finished transaction is used again.
var ErrTxDone = errors.New("memory: transaction has already been committed or rolled back")

// Store holds the committed ledger state.
type Store struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account
	entries  []*domain.LedgerEntry
	keys     map[string]struct{}
	outbox   []*domain.OutboxEvent

	locksMu sync.Mutex
	locks   map[string]chan struct{}
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		accounts: make(map[string]*domain.Account),
		keys:     make(map[string]struct{}),
		locks:    make(map[string]chan struct{}),
	}
}

func (s *Store) lockFor(id string) chan struct{} {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	ch, ok := s.locks[id]
	if !ok {
		ch = make(chan struct{}, 1)
		s.locks[id] = ch
	}
	return ch
}

// TxManager implements usecase.TransactionManager.
type TxManager struct {
	store *Store
}

// NewTxManager creates a new TxManager.
func NewTxManager(store *Store) *TxManager {
	return &TxManager{store: store}
}

// Begin starts a new transaction.
func (m *TxManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Tx{
		store:    m.store,
		held:     make(map[string]chan struct{}),
		accounts: make(map[string]*domain.Account),
	}, nil
}

// Tx buffers writes and holds account locks until it finishes.
type Tx struct {
	store    *Store
	held     map[string]chan struct{}
	accounts map[string]*domain.Account
	created  []*domain.Account
	entries  []*domain.LedgerEntry
	outbox   []*domain.OutboxEvent
	done     bool
}

// lock waits for the account lock or for ctx to end.
func (t *Tx) lock(ctx context.Context, id string) error {
	if t.done {
		return ErrTxDone
	}
	if _, ok := t.held[id]; ok {
		return nil
	}

	ch := t.store.lockFor(id)
	select {
	case ch <- struct{}{}:
		t.held[id] = ch
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Commit applies the buffered writes atomically. A transaction whose
// context has ended is rolled back instead.
func (t *Tx) Commit(ctx context.Context) error {
	if t.done {
		return ErrTxDone
	}
	defer t.release()

	if err := ctx.Err(); err != nil {
		return err
	}

	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range t.created {
		if _, exists := s.accounts[a.ID]; exists {
			return fmt.Errorf("memory: account %s already exists", a.ID)
		}
	}

	staged := make(map[string]struct{})
	for _, e := range t.entries {
		if e.IdempotencyKey == "" {
			continue
		}
		k := idempotencyIndex(e)
		if _, dup := s.keys[k]; dup {
			return domain.ErrDuplicateEntry
		}
		if _, dup := staged[k]; dup {
			return domain.ErrDuplicateEntry
		}
		staged[k] = struct{}{}
	}

	for _, a := range t.created {
		s.accounts[a.ID] = a
	}
	for id, a := range t.accounts {
		s.accounts[id] = a
	}
	for k := range staged {
		s.keys[k] = struct{}{}
	}
	s.entries = append(s.entries, t.entries...)
	s.outbox = append(s.outbox, t.outbox...)

	return nil
}

// Rollback discards the buffered writes. It is a no-op after Commit.
func (t *Tx) Rollback(context.Context) error {
	if t.done {
		return nil
	}
	t.release()
	return nil
}

func (t *Tx) release() {
	t.done = true
	for id, ch := range t.held {
		<-ch
		delete(t.held, id)
	}
}

func txFrom(tx usecase.Transaction) (*Tx, error) {
	t, ok := tx.(*Tx)
	if !ok {
		return nil, fmt.Errorf("memory: unexpected transaction type %T", tx)
	}
	if t.done {
		return nil, ErrTxDone
	}
	return t, nil
}

func idempotencyIndex(e *domain.LedgerEntry) string {
	return e.IdempotencyKey + "\x00" + e.AccountID + "\x00" + string(e.Type)
}

func cloneEntry(e *domain.LedgerEntry) *domain.LedgerEntry {
	c := *e
	return &c
}

// sortNewestFirst orders entries by commit time, then by id.
func sortNewestFirst(entries []*domain.LedgerEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.After(entries[j].CreatedAt)
		}
		return entries[i].ID > entries[j].ID
	})
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
