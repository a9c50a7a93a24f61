package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
)

// AccountUseCase handles account business logic.
type AccountUseCase struct {
	txManager   TransactionManager
	accountRepo AccountRepository
	outboxRepo  OutboxRepository
	idGen       IDGenerator
	clock       func() time.Time
	timeout     time.Duration
}

// NewAccountUseCase creates a new AccountUseCase.
func NewAccountUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
) *AccountUseCase {
	return &AccountUseCase{
		txManager:   txManager,
		accountRepo: accountRepo,
		outboxRepo:  outboxRepo,
		idGen:       idGen,
		clock:       time.Now,
		timeout:     DefaultTransactionTimeout,
	}
}

// WithTimeout sets the bound on account transactions. Non-positive values
// keep the default.
func (uc *AccountUseCase) WithTimeout(d time.Duration) *AccountUseCase {
	if d > 0 {
		uc.timeout = d
	}
	return uc
}

// OpenAccountInput represents input for opening an account.
type OpenAccountInput struct {
	CustomerID     string
	Type           domain.AccountType
	OpeningBalance decimal.Decimal
}

// OpenAccount creates a new active account owned by a customer.
func (uc *AccountUseCase) OpenAccount(ctx context.Context, input OpenAccountInput) (*domain.Account, error) {
	if err := domain.ValidateCustomerID(input.CustomerID); err != nil {
		return nil, err
	}
	if err := domain.ValidateAccountType(input.Type); err != nil {
		return nil, err
	}
	if err := domain.ValidateOpeningBalance(input.OpeningBalance); err != nil {
		return nil, err
	}

	now := uc.clock().UTC().Truncate(time.Microsecond)

	account := &domain.Account{
		ID:             uc.idGen.Generate(),
		CustomerID:     input.CustomerID,
		Type:           input.Type,
		Status:         domain.AccountStatusActive,
		Balance:        input.OpeningBalance,
		OpeningBalance: input.OpeningBalance,
		Version:        0,
		LastEntryAt:    now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   account.ID,
		AggregateType: domain.AggregateTypeAccount,
		EventType:     domain.EventTypeAccountOpened,
		Payload: domain.AccountOpenedEvent{
			AccountID:      account.ID,
			CustomerID:     account.CustomerID,
			Type:           string(account.Type),
			OpeningBalance: account.OpeningBalance.StringFixed(domain.AmountScale),
		}.Payload(),
		CreatedAt: now,
	}

	err := uc.inTx(ctx, func(txCtx context.Context, tx Transaction) error {
		if err := uc.accountRepo.Create(txCtx, tx, account); err != nil {
			return err
		}
		return uc.outboxRepo.Create(txCtx, tx, event)
	})
	if err != nil {
		return nil, err
	}

	return account, nil
}

// CloseAccount soft-deletes an account. Only empty accounts can be closed;
// closing a closed account returns it unchanged.
func (uc *AccountUseCase) CloseAccount(ctx context.Context, id string) (*domain.Account, error) {
	var closed *domain.Account

	err := uc.inTx(ctx, func(txCtx context.Context, tx Transaction) error {
		account, err := uc.accountRepo.GetByIDForUpdate(txCtx, tx, id)
		if err != nil {
			return err
		}

		if !account.IsActive() {
			closed = account
			return nil
		}

		if !account.Balance.IsZero() {
			return fmt.Errorf("%w: balance is %s", domain.ErrAccountNotEmpty, account.Balance.StringFixed(domain.AmountScale))
		}

		now := uc.clock().UTC().Truncate(time.Microsecond)
		if err := uc.accountRepo.UpdateStatus(txCtx, tx, id, domain.AccountStatusClosed, now); err != nil {
			return err
		}

		account.Status = domain.AccountStatusClosed
		account.UpdatedAt = now
		closed = account

		return uc.outboxRepo.Create(txCtx, tx, &domain.OutboxEvent{
			ID:            uc.idGen.Generate(),
			AggregateID:   account.ID,
			AggregateType: domain.AggregateTypeAccount,
			EventType:     domain.EventTypeAccountClosed,
			Payload: domain.AccountClosedEvent{
				AccountID:  account.ID,
				CustomerID: account.CustomerID,
				ClosedAt:   now.Format(time.RFC3339Nano),
			}.Payload(),
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	return closed, nil
}

// GetAccount retrieves an account by ID.
func (uc *AccountUseCase) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	account, err := uc.accountRepo.GetByID(ctx, id)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	return account, nil
}

// ListAccountsForCustomer lists every account a customer owns, oldest first.
func (uc *AccountUseCase) ListAccountsForCustomer(ctx context.Context, customerID string) ([]*domain.Account, error) {
	accounts, err := uc.accountRepo.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	return accounts, nil
}

// ListAccountsInput represents input for listing accounts.
type ListAccountsInput struct {
	Limit  int
	Offset int
}

// ListAccounts lists accounts with pagination.
func (uc *AccountUseCase) ListAccounts(ctx context.Context, input ListAccountsInput) ([]*domain.Account, error) {
	limit, offset, _ := domain.ValidatePagination(input.Limit, input.Offset)

	accounts, err := uc.accountRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	return accounts, nil
}

func (uc *AccountUseCase) inTx(ctx context.Context, fn func(context.Context, Transaction) error) error {
	txCtx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return classifyStoreError(err)
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	if err := fn(txCtx, tx); err != nil {
		return classifyStoreError(err)
	}

	return classifyStoreError(tx.Commit(txCtx))
}
