package domain

import "github.com/shopspring/decimal"

// LedgerTotals aggregates balances and entry amounts over the whole ledger.
type LedgerTotals struct {
	Balances          decimal.Decimal
	OpeningBalances   decimal.Decimal
	Deposits          decimal.Decimal
	Withdrawals       decimal.Decimal
	TransfersSent     decimal.Decimal
	TransfersReceived decimal.Decimal
}

// ExpectedBalance is the sum of balances implied by opening balances and
// external flows. Transfers move money between accounts and cancel out.
func (t LedgerTotals) ExpectedBalance() decimal.Decimal {
	return t.OpeningBalances.Add(t.Deposits).Sub(t.Withdrawals)
}

// Conserved reports whether no money was created or destroyed.
func (t LedgerTotals) Conserved() bool {
	return t.Balances.Equal(t.ExpectedBalance()) && t.TransfersSent.Equal(t.TransfersReceived)
}

// AccountSnapshot is an account's stored balance read together with its
// entry history, so both sides describe the same committed state.
type AccountSnapshot struct {
	AccountID        string
	Balance          decimal.Decimal
	OpeningBalance   decimal.Decimal
	Version          int64
	EntrySum         decimal.Decimal
	LastEntryBalance decimal.Decimal
	HasEntries       bool
}

// ReplayedBalance is the opening balance plus every entry's signed amount.
func (s AccountSnapshot) ReplayedBalance() decimal.Decimal {
	return s.OpeningBalance.Add(s.EntrySum)
}
