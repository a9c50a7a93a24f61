package domain

import "time"

// Event types
const (
	EventTypeDepositCompleted    = "ledger.deposit.completed"
	EventTypeWithdrawalCompleted = "ledger.withdrawal.completed"
	EventTypeTransferCompleted   = "ledger.transfer.completed"
	EventTypeAccountOpened       = "ledger.account.opened"
	EventTypeAccountClosed       = "ledger.account.closed"
)

// Aggregate types
const (
	AggregateTypeOperation = "operation"
	AggregateTypeAccount   = "account"
)

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// OperationCompletedEvent payload
type OperationCompletedEvent struct {
	OperationID   string `json:"operation_id"`
	Type          string `json:"type"`
	FromAccountID string `json:"from_account_id,omitempty"`
	ToAccountID   string `json:"to_account_id,omitempty"`
	Amount        string `json:"amount"`
	CommittedAt   string `json:"committed_at"`
}

// AccountOpenedEvent payload
type AccountOpenedEvent struct {
	AccountID      string `json:"account_id"`
	CustomerID     string `json:"customer_id"`
	Type           string `json:"type"`
	OpeningBalance string `json:"opening_balance"`
}

// AccountClosedEvent payload
type AccountClosedEvent struct {
	AccountID  string `json:"account_id"`
	CustomerID string `json:"customer_id"`
	ClosedAt   string `json:"closed_at"`
}

// Payload flattens the event for the outbox.
func (e OperationCompletedEvent) Payload() map[string]any {
	p := map[string]any{
		"operation_id": e.OperationID,
		"type":         e.Type,
		"amount":       e.Amount,
		"committed_at": e.CommittedAt,
	}
	if e.FromAccountID != "" {
		p["from_account_id"] = e.FromAccountID
	}
	if e.ToAccountID != "" {
		p["to_account_id"] = e.ToAccountID
	}
	return p
}

// Payload flattens the event for the outbox.
func (e AccountOpenedEvent) Payload() map[string]any {
	return map[string]any{
		"account_id":      e.AccountID,
		"customer_id":     e.CustomerID,
		"type":            e.Type,
		"opening_balance": e.OpeningBalance,
	}
}

// Payload flattens the event for the outbox.
func (e AccountClosedEvent) Payload() map[string]any {
	return map[string]any{
		"account_id":  e.AccountID,
		"customer_id": e.CustomerID,
		"closed_at":   e.ClosedAt,
	}
}

// OperationEventType maps an operation to the event emitted when it commits.
func OperationEventType(op OperationType) string {
	switch op {
	case OperationDeposit:
		return EventTypeDepositCompleted
	case OperationWithdraw:
		return EventTypeWithdrawalCompleted
	default:
		return EventTypeTransferCompleted
	}
}
