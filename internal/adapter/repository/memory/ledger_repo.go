package memory

import (
	"context"
	"sort"

	"github.com/iho/bankledger/internal/domain"
)

// LedgerRepository implements usecase.LedgerRepository.
type LedgerRepository struct {
	store *Store
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(store *Store) *LedgerRepository {
	return &LedgerRepository{store: store}
}

// Totals sums balances and entry amounts over the whole ledger.
func (r *LedgerRepository) Totals(context.Context) (*domain.LedgerTotals, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var totals domain.LedgerTotals
	for _, a := range r.store.accounts {
		totals.Balances = totals.Balances.Add(a.Balance)
		totals.OpeningBalances = totals.OpeningBalances.Add(a.OpeningBalance)
	}

	for _, e := range r.store.entries {
		switch e.Type {
		case domain.EntryTypeDeposit:
			totals.Deposits = totals.Deposits.Add(e.Amount)
		case domain.EntryTypeWithdraw:
			totals.Withdrawals = totals.Withdrawals.Add(e.Amount)
		case domain.EntryTypeTransferSent:
			totals.TransfersSent = totals.TransfersSent.Add(e.Amount)
		case domain.EntryTypeTransferReceived:
			totals.TransfersReceived = totals.TransfersReceived.Add(e.Amount)
		}
	}

	return &totals, nil
}

// UnpairedTransfers returns transfer operations that do not consist of
// exactly one matching SENT/RECEIVED pair.
func (r *LedgerRepository) UnpairedTransfers(_ context.Context, limit int) ([]string, error) {
	r.store.mu.RLock()
	legs := make(map[string][]*domain.LedgerEntry)
	for _, e := range r.store.entries {
		if e.Type == domain.EntryTypeTransferSent || e.Type == domain.EntryTypeTransferReceived {
			legs[e.OperationID] = append(legs[e.OperationID], e)
		}
	}
	r.store.mu.RUnlock()

	unpaired := make([]string, 0)
	for opID, l := range legs {
		if len(l) != 2 || !l[0].PairsWith(l[1]) {
			unpaired = append(unpaired, opID)
		}
	}

	sort.Strings(unpaired)
	return page(unpaired, limit, 0), nil
}

// AccountSnapshot reads an account and its entries under one read lock.
func (r *LedgerRepository) AccountSnapshot(_ context.Context, accountID string) (*domain.AccountSnapshot, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	a, ok := r.store.accounts[accountID]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}

	snap := &domain.AccountSnapshot{
		AccountID:      a.ID,
		Balance:        a.Balance,
		OpeningBalance: a.OpeningBalance,
		Version:        a.Version,
	}
	var latest *domain.LedgerEntry
	for _, e := range r.store.entries {
		if e.AccountID != accountID {
			continue
		}
		snap.EntrySum = snap.EntrySum.Add(e.SignedAmount())
		if latest == nil || e.AccountVersion >= latest.AccountVersion {
			latest = e
		}
	}
	if latest != nil {
		snap.HasEntries = true
		snap.LastEntryBalance = latest.BalanceAfter
	}
	return snap, nil
}
