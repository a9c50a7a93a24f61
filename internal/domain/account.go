package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType classifies an account.
type AccountType string

const (
	AccountTypeSavings AccountType = "SAVINGS"
	AccountTypeCurrent AccountType = "CURRENT"
)

// IsValid reports whether t is a known account type.
func (t AccountType) IsValid() bool {
	switch t {
	case AccountTypeSavings, AccountTypeCurrent:
		return true
	}
	return false
}

// AccountStatus is the lifecycle state of an account.
type AccountStatus string

const (
	AccountStatusActive AccountStatus = "ACTIVE"
	AccountStatusClosed AccountStatus = "CLOSED"
)

// Account is a customer-owned balance holder.
type Account struct {
	LastEntryAt    time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ID             string
	CustomerID     string
	Type           AccountType
	Status         AccountStatus
	Balance        decimal.Decimal
	OpeningBalance decimal.Decimal
	Version        int64
}

// IsActive reports whether the account accepts balance mutations.
func (a *Account) IsActive() bool {
	return a.Status == AccountStatusActive
}

// ValidateDebit checks if account can be debited by amount.
func (a *Account) ValidateDebit(amount decimal.Decimal) error {
	if a.Balance.LessThan(amount) {
		return ErrInsufficientFunds
	}
	return nil
}

// ApplyDebit returns new balance after debit.
func (a *Account) ApplyDebit(amount decimal.Decimal) decimal.Decimal {
	return a.Balance.Sub(amount)
}

// ApplyCredit returns new balance after credit.
func (a *Account) ApplyCredit(amount decimal.Decimal) decimal.Decimal {
	return a.Balance.Add(amount)
}

// NextEntryTime returns the timestamp the next entry on this account must
// carry so that entry times never go backwards.
func (a *Account) NextEntryTime(now time.Time) time.Time {
	if now.Before(a.LastEntryAt) {
		return a.LastEntryAt
	}
	return now
}

// Clone returns a copy that shares no mutable state with a.
func (a *Account) Clone() *Account {
	c := *a
	return &c
}
