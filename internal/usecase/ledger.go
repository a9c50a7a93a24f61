package usecase

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
)

// Ledger is the entry point for callers that have already resolved which
// accounts to touch and by how much. Mutations return the resulting
// balances; reads see committed state only.
type Ledger struct {
	balances *BalanceUseCase
	accounts *AccountUseCase
	entries  *EntryUseCase
}

// NewLedger creates a new Ledger.
func NewLedger(balances *BalanceUseCase, accounts *AccountUseCase, entries *EntryUseCase) *Ledger {
	return &Ledger{
		balances: balances,
		accounts: accounts,
		entries:  entries,
	}
}

// Deposit credits accountID and returns its new balance.
func (l *Ledger) Deposit(ctx context.Context, accountID string, amount decimal.Decimal) (decimal.Decimal, error) {
	return l.DepositWithKey(ctx, accountID, amount, "")
}

// DepositWithKey is Deposit deduplicated by an idempotency key.
func (l *Ledger) DepositWithKey(ctx context.Context, accountID string, amount decimal.Decimal, key string) (decimal.Decimal, error) {
	result, err := l.balances.Deposit(ctx, DepositInput{AccountID: accountID, Amount: amount, IdempotencyKey: key})
	if err != nil {
		return decimal.Zero, err
	}
	balance, _ := result.BalanceOf(accountID)
	return balance, nil
}

// Withdraw debits accountID and returns its new balance.
func (l *Ledger) Withdraw(ctx context.Context, accountID string, amount decimal.Decimal) (decimal.Decimal, error) {
	return l.WithdrawWithKey(ctx, accountID, amount, "")
}

// WithdrawWithKey is Withdraw deduplicated by an idempotency key.
func (l *Ledger) WithdrawWithKey(ctx context.Context, accountID string, amount decimal.Decimal, key string) (decimal.Decimal, error) {
	result, err := l.balances.Withdraw(ctx, WithdrawInput{AccountID: accountID, Amount: amount, IdempotencyKey: key})
	if err != nil {
		return decimal.Zero, err
	}
	balance, _ := result.BalanceOf(accountID)
	return balance, nil
}

// Transfer moves amount from fromID to toID and returns both new balances.
func (l *Ledger) Transfer(ctx context.Context, fromID, toID string, amount decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	return l.TransferWithKey(ctx, fromID, toID, amount, "")
}

// TransferWithKey is Transfer deduplicated by an idempotency key.
func (l *Ledger) TransferWithKey(ctx context.Context, fromID, toID string, amount decimal.Decimal, key string) (decimal.Decimal, decimal.Decimal, error) {
	result, err := l.balances.Transfer(ctx, TransferInput{
		FromAccountID:  fromID,
		ToAccountID:    toID,
		Amount:         amount,
		IdempotencyKey: key,
	})
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	from, _ := result.BalanceOf(fromID)
	to, _ := result.BalanceOf(toID)
	return from, to, nil
}

// GetAccount returns the committed state of an account.
func (l *Ledger) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	return l.accounts.GetAccount(ctx, accountID)
}

// ListAccountsForCustomer returns every account a customer owns.
func (l *Ledger) ListAccountsForCustomer(ctx context.Context, customerID string) ([]*domain.Account, error) {
	return l.accounts.ListAccountsForCustomer(ctx, customerID)
}

// EntriesForAccount returns an account's entries, newest first.
func (l *Ledger) EntriesForAccount(ctx context.Context, accountID string) ([]*domain.LedgerEntry, error) {
	return l.entries.EntriesForAccount(ctx, accountID)
}

// EntriesForCustomer returns a customer's entries, newest first.
func (l *Ledger) EntriesForCustomer(ctx context.Context, customerID string) ([]*domain.LedgerEntry, error) {
	return l.entries.EntriesForCustomer(ctx, customerID)
}
