package main

import (
	"encoding/json"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

type accountView struct {
	ID             string          `json:"id"`
	CustomerID     string          `json:"customer_id"`
	Type           string          `json:"type"`
	Status         string          `json:"status"`
	Balance        decimal.Decimal `json:"balance"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	Version        int64           `json:"version"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func accountFromDomain(a *domain.Account) *accountView {
	return &accountView{
		ID:             a.ID,
		CustomerID:     a.CustomerID,
		Type:           string(a.Type),
		Status:         string(a.Status),
		Balance:        a.Balance,
		OpeningBalance: a.OpeningBalance,
		Version:        a.Version,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

func accountsFromDomain(accounts []*domain.Account) []*accountView {
	out := make([]*accountView, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, accountFromDomain(a))
	}
	return out
}

type entryView struct {
	ID             string          `json:"id"`
	OperationID    string          `json:"operation_id"`
	AccountID      string          `json:"account_id"`
	Counterparty   string          `json:"counterparty_account_id,omitempty"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
	Type           string          `json:"type"`
	Status         string          `json:"status"`
	Amount         decimal.Decimal `json:"amount"`
	BalanceAfter   decimal.Decimal `json:"balance_after"`
	CreatedAt      time.Time       `json:"created_at"`
}

func entryFromDomain(e *domain.LedgerEntry) *entryView {
	return &entryView{
		ID:             e.ID,
		OperationID:    e.OperationID,
		AccountID:      e.AccountID,
		Counterparty:   e.CounterpartyAccountID,
		IdempotencyKey: e.IdempotencyKey,
		Type:           string(e.Type),
		Status:         string(e.Status),
		Amount:         e.Amount,
		BalanceAfter:   e.BalanceAfter,
		CreatedAt:      e.CreatedAt,
	}
}

func entriesFromDomain(entries []*domain.LedgerEntry) []*entryView {
	out := make([]*entryView, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryFromDomain(e))
	}
	return out
}

type operationView struct {
	OperationID    string          `json:"operation_id"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
	Type           string          `json:"type"`
	Replayed       bool            `json:"replayed"`
	CommittedAt    time.Time       `json:"committed_at"`
	Balances       []balanceView   `json:"balances"`
	Entries        []*entryView    `json:"entries"`
	Amount         decimal.Decimal `json:"amount"`
}

type balanceView struct {
	AccountID string          `json:"account_id"`
	Balance   decimal.Decimal `json:"balance"`
}

func operationFromResult(r *usecase.OperationResult) *operationView {
	v := &operationView{
		OperationID:    r.OperationID,
		IdempotencyKey: r.IdempotencyKey,
		Type:           string(r.Type),
		Replayed:       r.Replayed,
		CommittedAt:    r.CommittedAt,
		Entries:        entriesFromDomain(r.Entries),
		Balances:       make([]balanceView, 0, len(r.Entries)),
	}
	for _, e := range r.Entries {
		v.Amount = e.Amount
		v.Balances = append(v.Balances, balanceView{AccountID: e.AccountID, Balance: e.BalanceAfter})
	}
	return v
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
