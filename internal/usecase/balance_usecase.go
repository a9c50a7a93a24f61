package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
)

// BalanceConfig wires a BalanceUseCase. Retrier, Idempotency, Observer and
// Logger are optional.
type BalanceConfig struct {
	TxManager      TransactionManager
	Accounts       AccountRepository
	Entries        EntryRepository
	Outbox         OutboxRepository
	IDGen          IDGenerator
	Retrier        Retrier
	Idempotency    IdempotencyStore
	Observer       OperationObserver
	Logger         *zerolog.Logger
	Clock          func() time.Time
	Timeout        time.Duration
	IdempotencyTTL time.Duration
}

// BalanceUseCase is the only writer of balances and ledger entries.
type BalanceUseCase struct {
	txManager      TransactionManager
	accountRepo    AccountRepository
	entryRepo      EntryRepository
	outboxRepo     OutboxRepository
	idGen          IDGenerator
	retrier        Retrier
	idempotency    IdempotencyStore
	observer       OperationObserver
	logger         zerolog.Logger
	clock          func() time.Time
	timeout        time.Duration
	idempotencyTTL time.Duration
}

// NewBalanceUseCase creates a new BalanceUseCase.
func NewBalanceUseCase(cfg BalanceConfig) *BalanceUseCase {
	uc := &BalanceUseCase{
		txManager:      cfg.TxManager,
		accountRepo:    cfg.Accounts,
		entryRepo:      cfg.Entries,
		outboxRepo:     cfg.Outbox,
		idGen:          cfg.IDGen,
		retrier:        cfg.Retrier,
		idempotency:    cfg.Idempotency,
		observer:       cfg.Observer,
		logger:         zerolog.Nop(),
		clock:          cfg.Clock,
		timeout:        cfg.Timeout,
		idempotencyTTL: cfg.IdempotencyTTL,
	}
	if cfg.Logger != nil {
		uc.logger = *cfg.Logger
	}
	if uc.retrier == nil {
		uc.retrier = noRetry{}
	}
	if uc.observer == nil {
		uc.observer = noopObserver{}
	}
	if uc.clock == nil {
		uc.clock = time.Now
	}
	if uc.timeout <= 0 {
		uc.timeout = DefaultTransactionTimeout
	}
	if uc.idempotencyTTL <= 0 {
		uc.idempotencyTTL = IdempotencyKeyTTL
	}
	return uc
}

// DepositInput represents input for a deposit.
type DepositInput struct {
	AccountID      string
	IdempotencyKey string
	Amount         decimal.Decimal
}

// WithdrawInput represents input for a withdrawal.
type WithdrawInput struct {
	AccountID      string
	IdempotencyKey string
	Amount         decimal.Decimal
}

// TransferInput represents input for a transfer between two accounts.
type TransferInput struct {
	FromAccountID  string
	ToAccountID    string
	IdempotencyKey string
	Amount         decimal.Decimal
}

// OperationResult describes a committed operation. Entries carry the
// balance of each touched account right after the commit.
type OperationResult struct {
	CommittedAt    time.Time             `json:"committed_at"`
	OperationID    string                `json:"operation_id"`
	IdempotencyKey string                `json:"idempotency_key,omitempty"`
	Type           domain.OperationType  `json:"type"`
	Entries        []*domain.LedgerEntry `json:"entries"`
	Replayed       bool                  `json:"-"`
}

// BalanceOf returns the post-operation balance of accountID.
func (r *OperationResult) BalanceOf(accountID string) (decimal.Decimal, bool) {
	for _, e := range r.Entries {
		if e.AccountID == accountID {
			return e.BalanceAfter, true
		}
	}
	return decimal.Zero, false
}

// Deposit credits an account.
func (uc *BalanceUseCase) Deposit(ctx context.Context, input DepositInput) (*OperationResult, error) {
	return uc.execute(ctx, operation{
		kind:     domain.OperationDeposit,
		creditID: input.AccountID,
		amount:   input.Amount,
		key:      input.IdempotencyKey,
	})
}

// Withdraw debits an account if it holds enough funds.
func (uc *BalanceUseCase) Withdraw(ctx context.Context, input WithdrawInput) (*OperationResult, error) {
	return uc.execute(ctx, operation{
		kind:    domain.OperationWithdraw,
		debitID: input.AccountID,
		amount:  input.Amount,
		key:     input.IdempotencyKey,
	})
}

// Transfer moves funds between two accounts as one atomic unit.
func (uc *BalanceUseCase) Transfer(ctx context.Context, input TransferInput) (*OperationResult, error) {
	return uc.execute(ctx, operation{
		kind:     domain.OperationTransfer,
		debitID:  input.FromAccountID,
		creditID: input.ToAccountID,
		amount:   input.Amount,
		key:      input.IdempotencyKey,
	})
}

func (uc *BalanceUseCase) execute(ctx context.Context, op operation) (*OperationResult, error) {
	start := time.Now()
	log := uc.loggerFor(ctx)

	result, err := uc.run(ctx, op)
	if err == nil && result.Replayed {
		uc.observer.ObserveReplay(op.kind)
		return result, nil
	}

	uc.observer.ObserveOperation(op.kind, op.amount, time.Since(start), err)
	if err != nil {
		event := log.Debug()
		if errors.Is(err, domain.ErrUnavailable) || errors.Is(err, domain.ErrTimeout) {
			event = log.Error()
		}
		event.Err(err).
			Str("type", string(op.kind)).
			Str("debit_account_id", op.debitID).
			Str("credit_account_id", op.creditID).
			Str("amount", op.amount.String()).
			Msg("ledger operation rejected")
		return nil, err
	}

	log.Debug().
		Str("operation_id", result.OperationID).
		Str("type", string(op.kind)).
		Str("amount", op.amount.String()).
		Msg("ledger operation committed")

	return result, nil
}

// loggerFor prefers a logger carried by ctx, which holds request fields.
func (uc *BalanceUseCase) loggerFor(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &uc.logger
}

func (uc *BalanceUseCase) run(ctx context.Context, op operation) (*OperationResult, error) {
	// 0. Validate inputs before touching the store
	if err := op.validate(); err != nil {
		return nil, err
	}

	if op.key == "" {
		return uc.commit(ctx, op)
	}

	if uc.idempotency == nil {
		return uc.commitOnce(ctx, op)
	}

	// The pending marker outlives one operation attempt but not a crashed caller.
	exists, cached, err := uc.idempotency.CheckAndSet(ctx, op.key, []byte(IdempotencyPending), 3*uc.timeout)
	if err != nil {
		uc.logger.Warn().Err(err).Str("idempotency_key", op.key).Msg("idempotency store unavailable, falling back to ledger entries")
		return uc.commitOnce(ctx, op)
	}

	if exists {
		if len(cached) == 0 || string(cached) == IdempotencyPending {
			return nil, domain.ErrOperationInProgress
		}

		var stored OperationResult
		if err := json.Unmarshal(cached, &stored); err != nil {
			uc.logger.Warn().Err(err).Str("idempotency_key", op.key).Msg("unreadable idempotency record")
			return uc.commitOnce(ctx, op)
		}

		return op.replay(&stored)
	}

	// The marker must be resolved even when the caller's context is gone.
	bg := context.WithoutCancel(ctx)

	result, err := uc.commitOnce(ctx, op)
	if err != nil {
		if releaseErr := uc.idempotency.Release(bg, op.key); releaseErr != nil {
			uc.logger.Warn().Err(releaseErr).Str("idempotency_key", op.key).Msg("failed to release idempotency key")
		}
		return nil, err
	}

	payload, err := json.Marshal(result)
	if err == nil {
		err = uc.idempotency.Update(bg, op.key, payload, uc.idempotencyTTL)
	}
	if err != nil {
		uc.logger.Warn().Err(err).Str("idempotency_key", op.key).Msg("failed to store idempotent result")
		// Without the marker, retries replay from the ledger entries.
		if releaseErr := uc.idempotency.Release(bg, op.key); releaseErr != nil {
			uc.logger.Warn().Err(releaseErr).Str("idempotency_key", op.key).Msg("failed to release idempotency key")
		}
	}

	return result, nil
}

// commitOnce commits op unless entries carrying its idempotency key exist.
func (uc *BalanceUseCase) commitOnce(ctx context.Context, op operation) (*OperationResult, error) {
	result, err := uc.lookupByKey(ctx, op)
	if !errors.Is(err, domain.ErrEntryNotFound) {
		return result, err
	}

	result, err = uc.commit(ctx, op)
	if errors.Is(err, domain.ErrDuplicateEntry) {
		// A concurrent request with the same key won the race.
		return uc.lookupByKey(ctx, op)
	}

	return result, err
}

func (uc *BalanceUseCase) lookupByKey(ctx context.Context, op operation) (*OperationResult, error) {
	entries, err := uc.entryRepo.GetByIdempotencyKey(ctx, op.key)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	if len(entries) == 0 {
		return nil, domain.ErrEntryNotFound
	}
	return op.replay(resultFromEntries(op.key, entries))
}

func (uc *BalanceUseCase) commit(ctx context.Context, op operation) (*OperationResult, error) {
	var result *OperationResult

	err := uc.retrier.Retry(ctx, func() error {
		r, err := uc.apply(ctx, op)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, classifyStoreError(err)
	}

	return result, nil
}

func (uc *BalanceUseCase) apply(ctx context.Context, op operation) (*OperationResult, error) {
	txCtx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	// 1. Collect and sort unique account IDs (DEADLOCK PREVENTION)
	accountIDs := op.accountIDs()

	// 2. Begin transaction
	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	// 3. Lock accounts in sorted order
	accounts, err := uc.accountRepo.GetByIDsForUpdate(txCtx, tx, accountIDs)
	if err != nil {
		return nil, err
	}

	accountMap := buildAccountMap(accounts)

	committedAt := uc.clock().UTC().Truncate(time.Microsecond)
	for _, id := range accountIDs {
		account, ok := accountMap[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, id)
		}
		if !account.IsActive() {
			return nil, fmt.Errorf("%w: %s", domain.ErrAccountClosed, id)
		}
		committedAt = account.NextEntryTime(committedAt)
	}

	// 4. Check funds before writing anything
	legs := op.legs()
	for _, l := range legs {
		if l.entryType.IsCredit() {
			continue
		}
		if err := accountMap[l.accountID].ValidateDebit(op.amount); err != nil {
			return nil, err
		}
	}

	// 5. Append entries and move balances
	result := &OperationResult{
		OperationID:    uc.idGen.Generate(),
		IdempotencyKey: op.key,
		Type:           op.kind,
		CommittedAt:    committedAt,
	}

	for _, l := range legs {
		entry, err := uc.post(txCtx, tx, accountMap[l.accountID], l, op, result)
		if err != nil {
			return nil, err
		}
		result.Entries = append(result.Entries, entry)
	}

	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   result.OperationID,
		AggregateType: domain.AggregateTypeOperation,
		EventType:     domain.OperationEventType(op.kind),
		Payload: domain.OperationCompletedEvent{
			OperationID:   result.OperationID,
			Type:          string(op.kind),
			FromAccountID: op.debitID,
			ToAccountID:   op.creditID,
			Amount:        op.amount.StringFixed(domain.AmountScale),
			CommittedAt:   committedAt.Format(time.RFC3339Nano),
		}.Payload(),
		CreatedAt: committedAt,
	}
	if err := uc.outboxRepo.Create(txCtx, tx, event); err != nil {
		return nil, err
	}

	// 6. Commit transaction
	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	return result, nil
}

func (uc *BalanceUseCase) post(
	ctx context.Context,
	tx Transaction,
	account *domain.Account,
	l leg,
	op operation,
	result *OperationResult,
) (*domain.LedgerEntry, error) {
	newBalance := account.ApplyDebit(op.amount)
	if l.entryType.IsCredit() {
		newBalance = account.ApplyCredit(op.amount)
	}

	entry := &domain.LedgerEntry{
		ID:                    uc.idGen.Generate(),
		OperationID:           result.OperationID,
		AccountID:             account.ID,
		CounterpartyAccountID: l.counterparty,
		IdempotencyKey:        op.key,
		Type:                  l.entryType,
		Status:                domain.EntryStatusSuccess,
		Amount:                op.amount,
		BalanceAfter:          newBalance,
		AccountVersion:        account.Version + 1,
		CreatedAt:             result.CommittedAt,
	}

	if err := uc.entryRepo.Create(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := uc.accountRepo.UpdateBalance(ctx, tx, account.ID, newBalance, result.CommittedAt); err != nil {
		return nil, err
	}

	account.Balance = newBalance
	account.Version++
	account.LastEntryAt = result.CommittedAt

	return entry, nil
}

type leg struct {
	accountID    string
	counterparty string
	entryType    domain.EntryType
}

type operation struct {
	kind     domain.OperationType
	debitID  string
	creditID string
	key      string
	amount   decimal.Decimal
}

func (op operation) validate() error {
	if err := domain.ValidateIdempotencyKey(op.key); err != nil {
		return err
	}
	if op.kind == domain.OperationTransfer {
		return domain.ValidateTransfer(op.debitID, op.creditID, op.amount)
	}
	return domain.ValidateAmount(op.amount)
}

// legs lists the entries op writes, debit first.
func (op operation) legs() []leg {
	switch op.kind {
	case domain.OperationDeposit:
		return []leg{{accountID: op.creditID, entryType: domain.EntryTypeDeposit}}
	case domain.OperationWithdraw:
		return []leg{{accountID: op.debitID, entryType: domain.EntryTypeWithdraw}}
	default:
		return []leg{
			{accountID: op.debitID, counterparty: op.creditID, entryType: domain.EntryTypeTransferSent},
			{accountID: op.creditID, counterparty: op.debitID, entryType: domain.EntryTypeTransferReceived},
		}
	}
}

func (op operation) accountIDs() []string {
	seen := make(map[string]bool)

	var ids []string
	for _, l := range op.legs() {
		if !seen[l.accountID] {
			seen[l.accountID] = true
			ids = append(ids, l.accountID)
		}
	}

	sort.Strings(ids)
	return ids
}

// replay returns a stored result if it was produced by the same request.
func (op operation) replay(stored *OperationResult) (*OperationResult, error) {
	legs := op.legs()
	if stored.Type != op.kind || len(stored.Entries) != len(legs) {
		return nil, domain.ErrIdempotencyKeyReused
	}

	for _, e := range stored.Entries {
		if !e.Amount.Equal(op.amount) || !hasLeg(legs, e) {
			return nil, domain.ErrIdempotencyKeyReused
		}
	}

	stored.Replayed = true
	return stored, nil
}

func hasLeg(legs []leg, e *domain.LedgerEntry) bool {
	for _, l := range legs {
		if l.accountID == e.AccountID && l.entryType == e.Type {
			return true
		}
	}
	return false
}

// resultFromEntries rebuilds the result of the earliest operation among entries.
func resultFromEntries(key string, entries []*domain.LedgerEntry) *OperationResult {
	sorted := make([]*domain.LedgerEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	first := sorted[0]
	result := &OperationResult{
		OperationID:    first.OperationID,
		IdempotencyKey: key,
		Type:           first.Operation(),
		CommittedAt:    first.CreatedAt,
	}
	for _, e := range sorted {
		if e.OperationID == first.OperationID {
			result.Entries = append(result.Entries, e)
		}
	}
	return result
}

func buildAccountMap(accounts []*domain.Account) map[string]*domain.Account {
	m := make(map[string]*domain.Account)
	for _, a := range accounts {
		m[a.ID] = a
	}

	return m
}

type noRetry struct{}

func (noRetry) Retry(_ context.Context, fn func() error) error {
	return fn()
}

type noopObserver struct{}

func (noopObserver) ObserveOperation(domain.OperationType, decimal.Decimal, time.Duration, error) {}

func (noopObserver) ObserveReplay(domain.OperationType) {}
