package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/infrastructure/postgres/generated"
)

// LedgerRepository implements usecase.LedgerRepository.
type LedgerRepository struct {
	queries *generated.Queries
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(db generated.DBTX) *LedgerRepository {
	return &LedgerRepository{queries: generated.New(db)}
}

// Totals sums balances and entry amounts over the whole ledger in one
// statement, so both sides come from the same snapshot.
func (r *LedgerRepository) Totals(ctx context.Context) (*domain.LedgerTotals, error) {
	row, err := r.queries.GetLedgerTotals(ctx)
	if err != nil {
		return nil, err
	}

	return &domain.LedgerTotals{
		Balances:          numericToDecimal(row.Balances),
		OpeningBalances:   numericToDecimal(row.OpeningBalances),
		Deposits:          numericToDecimal(row.Deposits),
		Withdrawals:       numericToDecimal(row.Withdrawals),
		TransfersSent:     numericToDecimal(row.TransfersSent),
		TransfersReceived: numericToDecimal(row.TransfersReceived),
	}, nil
}

// UnpairedTransfers returns transfer operations whose legs do not form one
// matching SENT/RECEIVED pair.
func (r *LedgerRepository) UnpairedTransfers(ctx context.Context, limit int) ([]string, error) {
	return r.queries.ListUnpairedTransfers(ctx, int32(limit))
}

// AccountSnapshot reads an account's balance, entry sum and newest entry in
// one statement. PostgreSQL evaluates the subqueries against the same
// snapshot as the account row, so concurrent commits cannot split them.
func (r *LedgerRepository) AccountSnapshot(ctx context.Context, accountID string) (*domain.AccountSnapshot, error) {
	row, err := r.queries.GetAccountSnapshot(ctx, accountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}

	return &domain.AccountSnapshot{
		AccountID:        row.ID,
		Balance:          numericToDecimal(row.Balance),
		OpeningBalance:   numericToDecimal(row.OpeningBalance),
		Version:          row.Version,
		EntrySum:         numericToDecimal(row.EntrySum),
		LastEntryBalance: numericToDecimal(row.LastEntryBalance),
		HasEntries:       row.LastEntryBalance.Valid,
	}, nil
}
