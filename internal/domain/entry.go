package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryType is the kind of balance change an entry records.
type EntryType string

const (
	EntryTypeDeposit          EntryType = "DEPOSIT"
	EntryTypeWithdraw         EntryType = "WITHDRAW"
	EntryTypeTransferSent     EntryType = "TRANSFER_SENT"
	EntryTypeTransferReceived EntryType = "TRANSFER_RECEIVED"
)

// IsValid reports whether t is a known entry type.
func (t EntryType) IsValid() bool {
	switch t {
	case EntryTypeDeposit, EntryTypeWithdraw, EntryTypeTransferSent, EntryTypeTransferReceived:
		return true
	}
	return false
}

// IsCredit reports whether entries of type t increase the balance.
func (t EntryType) IsCredit() bool {
	return t == EntryTypeDeposit || t == EntryTypeTransferReceived
}

// EntryStatus is the outcome recorded on an entry. The ledger only ever
// writes SUCCESS; FAILED is accepted when reading data written by older
// versions of the system.
type EntryStatus string

const (
	EntryStatusSuccess EntryStatus = "SUCCESS"
	EntryStatusFailed  EntryStatus = "FAILED"
)

// OperationType identifies a ledger operation.
type OperationType string

const (
	OperationDeposit  OperationType = "DEPOSIT"
	OperationWithdraw OperationType = "WITHDRAW"
	OperationTransfer OperationType = "TRANSFER"
)

// LedgerEntry is one immutable record of a balance change on one account.
// Both legs of a transfer share OperationID and CreatedAt.
type LedgerEntry struct {
	CreatedAt             time.Time
	ID                    string
	OperationID           string
	AccountID             string
	CounterpartyAccountID string
	IdempotencyKey        string
	Type                  EntryType
	Status                EntryStatus
	Amount                decimal.Decimal
	BalanceAfter          decimal.Decimal
	AccountVersion        int64
}

// SignedAmount returns the amount with the sign of its effect on the balance.
func (e *LedgerEntry) SignedAmount() decimal.Decimal {
	if e.Type.IsCredit() {
		return e.Amount
	}
	return e.Amount.Neg()
}

// Operation derives the operation type from the entry type.
func (e *LedgerEntry) Operation() OperationType {
	switch e.Type {
	case EntryTypeDeposit:
		return OperationDeposit
	case EntryTypeWithdraw:
		return OperationWithdraw
	default:
		return OperationTransfer
	}
}

// PairsWith reports whether e and other are the two legs of one transfer.
func (e *LedgerEntry) PairsWith(other *LedgerEntry) bool {
	if e.OperationID != other.OperationID {
		return false
	}
	if !e.Amount.Equal(other.Amount) || !e.CreatedAt.Equal(other.CreatedAt) {
		return false
	}
	if e.AccountID != other.CounterpartyAccountID || other.AccountID != e.CounterpartyAccountID {
		return false
	}
	return (e.Type == EntryTypeTransferSent && other.Type == EntryTypeTransferReceived) ||
		(e.Type == EntryTypeTransferReceived && other.Type == EntryTypeTransferSent)
}
