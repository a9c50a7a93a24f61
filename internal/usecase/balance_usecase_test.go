package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"go.uber.org/mock/gomock"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
	"github.com/iho/bankledger/internal/usecase/mocks"
)

type balanceMocks struct {
	txm         *mocks.MockTransactionManager
	tx          *mocks.MockTransaction
	accounts    *mocks.MockAccountRepository
	entries     *mocks.MockEntryRepository
	outbox      *mocks.MockOutboxRepository
	idempotency *mocks.MockIdempotencyStore
	cfg         usecase.BalanceConfig
}

func newBalanceMocks(t *testing.T) *balanceMocks {
	t.Helper()
	ctrl := gomock.NewController(t)

	m := &balanceMocks{
		txm:         mocks.NewMockTransactionManager(ctrl),
		tx:          mocks.NewMockTransaction(ctrl),
		accounts:    mocks.NewMockAccountRepository(ctrl),
		entries:     mocks.NewMockEntryRepository(ctrl),
		outbox:      mocks.NewMockOutboxRepository(ctrl),
		idempotency: mocks.NewMockIdempotencyStore(ctrl),
	}
	m.cfg = usecase.BalanceConfig{
		TxManager: m.txm,
		Accounts:  m.accounts,
		Entries:   m.entries,
		Outbox:    m.outbox,
		IDGen:     &sequentialIDs{prefix: "id"},
		Clock:     fixedClock,
	}
	return m
}

func (m *balanceMocks) useCase() *usecase.BalanceUseCase {
	return usecase.NewBalanceUseCase(m.cfg)
}

// expectTx expects one transaction that locks ids and returns accounts.
func (m *balanceMocks) expectTx(ids []string, accounts ...*domain.Account) {
	m.txm.EXPECT().Begin(gomock.Any()).Return(m.tx, nil)
	m.tx.EXPECT().Rollback(gomock.Any()).Return(nil)
	m.accounts.EXPECT().GetByIDsForUpdate(gomock.Any(), m.tx, ids).Return(accounts, nil)
}

func (m *balanceMocks) expectCommit() {
	m.outbox.EXPECT().Create(gomock.Any(), m.tx, gomock.Any()).Return(nil)
	m.tx.EXPECT().Commit(gomock.Any()).Return(nil)
}

func captureEntries(m *balanceMocks, n int) *[]*domain.LedgerEntry {
	var captured []*domain.LedgerEntry
	m.entries.EXPECT().Create(gomock.Any(), m.tx, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ usecase.Transaction, e *domain.LedgerEntry) error {
			captured = append(captured, e)
			return nil
		}).Times(n)
	return &captured
}

func TestBalanceUseCase_Deposit(t *testing.T) {
	m := newBalanceMocks(t)
	m.expectTx([]string{"acc-1"}, activeAccount("acc-1", 100))
	entries := captureEntries(m, 1)
	m.accounts.EXPECT().UpdateBalance(gomock.Any(), m.tx, "acc-1", eqDecimal("150.25"), fixedNow).Return(nil)
	m.expectCommit()

	result, err := m.useCase().Deposit(context.Background(), usecase.DepositInput{
		AccountID: "acc-1",
		Amount:    decimal.RequireFromString("50.25"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(*entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(*entries))
	}
	e := (*entries)[0]
	if e.Type != domain.EntryTypeDeposit || e.Status != domain.EntryStatusSuccess {
		t.Errorf("unexpected entry type/status: %s/%s", e.Type, e.Status)
	}
	if e.AccountVersion != 4 {
		t.Errorf("expected account version 4, got %d", e.AccountVersion)
	}
	if !e.CreatedAt.Equal(fixedNow) || !result.CommittedAt.Equal(fixedNow) {
		t.Errorf("expected commit time %v, got entry %v result %v", fixedNow, e.CreatedAt, result.CommittedAt)
	}
	if e.OperationID != result.OperationID {
		t.Errorf("entry operation %s does not match result %s", e.OperationID, result.OperationID)
	}

	balance, ok := result.BalanceOf("acc-1")
	if !ok || !balance.Equal(decimal.RequireFromString("150.25")) {
		t.Errorf("expected balance 150.25, got %s (found=%v)", balance, ok)
	}
}

func TestBalanceUseCase_Withdraw(t *testing.T) {
	t.Run("debits the account", func(t *testing.T) {
		m := newBalanceMocks(t)
		m.expectTx([]string{"acc-1"}, activeAccount("acc-1", 100))
		entries := captureEntries(m, 1)
		m.accounts.EXPECT().UpdateBalance(gomock.Any(), m.tx, "acc-1", eqDecimal("0"), fixedNow).Return(nil)
		m.expectCommit()

		result, err := m.useCase().Withdraw(context.Background(), usecase.WithdrawInput{
			AccountID: "acc-1",
			Amount:    decimal.NewFromInt(100),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if (*entries)[0].Type != domain.EntryTypeWithdraw {
			t.Errorf("expected WITHDRAW entry, got %s", (*entries)[0].Type)
		}
		if b, _ := result.BalanceOf("acc-1"); !b.IsZero() {
			t.Errorf("expected zero balance, got %s", b)
		}
	})

	t.Run("insufficient funds writes nothing", func(t *testing.T) {
		m := newBalanceMocks(t)
		m.expectTx([]string{"acc-1"}, activeAccount("acc-1", 10))

		_, err := m.useCase().Withdraw(context.Background(), usecase.WithdrawInput{
			AccountID: "acc-1",
			Amount:    decimal.RequireFromString("10.01"),
		})
		if !errors.Is(err, domain.ErrInsufficientFunds) {
			t.Fatalf("expected ErrInsufficientFunds, got %v", err)
		}
	})
}

func TestBalanceUseCase_Transfer(t *testing.T) {
	m := newBalanceMocks(t)
	// Locks are taken in ascending id order regardless of direction.
	m.expectTx([]string{"acc-a", "acc-b"}, activeAccount("acc-a", 20), activeAccount("acc-b", 100))
	entries := captureEntries(m, 2)
	m.accounts.EXPECT().UpdateBalance(gomock.Any(), m.tx, "acc-b", eqDecimal("70"), fixedNow).Return(nil)
	m.accounts.EXPECT().UpdateBalance(gomock.Any(), m.tx, "acc-a", eqDecimal("50"), fixedNow).Return(nil)
	m.expectCommit()

	result, err := m.useCase().Transfer(context.Background(), usecase.TransferInput{
		FromAccountID: "acc-b",
		ToAccountID:   "acc-a",
		Amount:        decimal.NewFromInt(30),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sent, received := (*entries)[0], (*entries)[1]
	if sent.Type != domain.EntryTypeTransferSent || sent.AccountID != "acc-b" || sent.CounterpartyAccountID != "acc-a" {
		t.Errorf("unexpected sent leg: %+v", sent)
	}
	if received.Type != domain.EntryTypeTransferReceived || received.AccountID != "acc-a" || received.CounterpartyAccountID != "acc-b" {
		t.Errorf("unexpected received leg: %+v", received)
	}
	if !sent.PairsWith(received) {
		t.Errorf("legs do not pair: %+v %+v", sent, received)
	}
	if result.Type != domain.OperationTransfer || len(result.Entries) != 2 {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestBalanceUseCase_RejectsBeforeTouchingStore(t *testing.T) {
	tests := []struct {
		name    string
		run     func(uc *usecase.BalanceUseCase) error
		wantErr error
	}{
		{
			name: "transfer to same account",
			run: func(uc *usecase.BalanceUseCase) error {
				_, err := uc.Transfer(context.Background(), usecase.TransferInput{FromAccountID: "a", ToAccountID: "a", Amount: decimal.NewFromInt(1)})
				return err
			},
			wantErr: domain.ErrSameAccount,
		},
		{
			name: "zero deposit",
			run: func(uc *usecase.BalanceUseCase) error {
				_, err := uc.Deposit(context.Background(), usecase.DepositInput{AccountID: "a", Amount: decimal.Zero})
				return err
			},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name: "negative withdrawal",
			run: func(uc *usecase.BalanceUseCase) error {
				_, err := uc.Withdraw(context.Background(), usecase.WithdrawInput{AccountID: "a", Amount: decimal.NewFromInt(-1)})
				return err
			},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name: "sub-cent transfer",
			run: func(uc *usecase.BalanceUseCase) error {
				_, err := uc.Transfer(context.Background(), usecase.TransferInput{FromAccountID: "a", ToAccountID: "b", Amount: decimal.RequireFromString("0.001")})
				return err
			},
			wantErr: domain.ErrInvalidAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newBalanceMocks(t)
			if err := tt.run(m.useCase()); !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestBalanceUseCase_AccountChecks(t *testing.T) {
	t.Run("missing account", func(t *testing.T) {
		m := newBalanceMocks(t)
		m.expectTx([]string{"acc-a", "acc-b"}, activeAccount("acc-a", 100))

		_, err := m.useCase().Transfer(context.Background(), usecase.TransferInput{
			FromAccountID: "acc-a",
			ToAccountID:   "acc-b",
			Amount:        decimal.NewFromInt(1),
		})
		if !errors.Is(err, domain.ErrAccountNotFound) {
			t.Fatalf("expected ErrAccountNotFound, got %v", err)
		}
	})

	t.Run("closed account", func(t *testing.T) {
		m := newBalanceMocks(t)
		closed := activeAccount("acc-1", 0)
		closed.Status = domain.AccountStatusClosed
		m.expectTx([]string{"acc-1"}, closed)

		_, err := m.useCase().Deposit(context.Background(), usecase.DepositInput{AccountID: "acc-1", Amount: decimal.NewFromInt(1)})
		if !errors.Is(err, domain.ErrAccountClosed) {
			t.Fatalf("expected ErrAccountClosed, got %v", err)
		}
	})
}

func TestBalanceUseCase_StoreFailures(t *testing.T) {
	t.Run("failure after first leg leaves nothing committed", func(t *testing.T) {
		m := newBalanceMocks(t)
		m.expectTx([]string{"acc-a", "acc-b"}, activeAccount("acc-a", 100), activeAccount("acc-b", 0))
		m.entries.EXPECT().Create(gomock.Any(), m.tx, gomock.Any()).Return(nil).Times(2)
		m.accounts.EXPECT().UpdateBalance(gomock.Any(), m.tx, "acc-a", gomock.Any(), gomock.Any()).Return(nil)
		m.accounts.EXPECT().UpdateBalance(gomock.Any(), m.tx, "acc-b", gomock.Any(), gomock.Any()).Return(errors.New("connection reset"))

		_, err := m.useCase().Transfer(context.Background(), usecase.TransferInput{
			FromAccountID: "acc-a",
			ToAccountID:   "acc-b",
			Amount:        decimal.NewFromInt(10),
		})
		if !errors.Is(err, domain.ErrUnavailable) {
			t.Fatalf("expected ErrUnavailable, got %v", err)
		}
	})

	t.Run("lock wait past deadline", func(t *testing.T) {
		m := newBalanceMocks(t)
		m.txm.EXPECT().Begin(gomock.Any()).Return(m.tx, nil)
		m.tx.EXPECT().Rollback(gomock.Any()).Return(nil)
		m.accounts.EXPECT().GetByIDsForUpdate(gomock.Any(), m.tx, []string{"acc-1"}).
			Return(nil, context.DeadlineExceeded)

		_, err := m.useCase().Deposit(context.Background(), usecase.DepositInput{AccountID: "acc-1", Amount: decimal.NewFromInt(1)})
		if !errors.Is(err, domain.ErrTimeout) {
			t.Fatalf("expected ErrTimeout, got %v", err)
		}
	})

	t.Run("begin fails", func(t *testing.T) {
		m := newBalanceMocks(t)
		m.txm.EXPECT().Begin(gomock.Any()).Return(nil, errors.New("too many connections"))

		_, err := m.useCase().Deposit(context.Background(), usecase.DepositInput{AccountID: "acc-1", Amount: decimal.NewFromInt(1)})
		if !errors.Is(err, domain.ErrUnavailable) {
			t.Fatalf("expected ErrUnavailable, got %v", err)
		}
	})
}

func TestBalanceUseCase_CommitTimeNeverGoesBackwards(t *testing.T) {
	m := newBalanceMocks(t)
	ahead := activeAccount("acc-1", 5)
	ahead.LastEntryAt = fixedNow.Add(5 * time.Second)
	m.expectTx([]string{"acc-1"}, ahead)
	entries := captureEntries(m, 1)
	m.accounts.EXPECT().UpdateBalance(gomock.Any(), m.tx, "acc-1", gomock.Any(), ahead.LastEntryAt).Return(nil)
	m.expectCommit()

	if _, err := m.useCase().Deposit(context.Background(), usecase.DepositInput{AccountID: "acc-1", Amount: decimal.NewFromInt(1)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !(*entries)[0].CreatedAt.Equal(ahead.LastEntryAt) {
		t.Fatalf("expected entry time %v, got %v", ahead.LastEntryAt, (*entries)[0].CreatedAt)
	}
}

func TestBalanceUseCase_RetriesTransientFailures(t *testing.T) {
	m := newBalanceMocks(t)
	ctrl := gomock.NewController(t)
	retrier := mocks.NewMockRetrier(ctrl)
	retrier.EXPECT().Retry(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, fn func() error) error {
		if err := fn(); err == nil {
			t.Fatal("expected first attempt to fail")
		}
		return fn()
	})
	m.cfg.Retrier = retrier

	m.txm.EXPECT().Begin(gomock.Any()).Return(m.tx, nil).Times(2)
	m.tx.EXPECT().Rollback(gomock.Any()).Return(nil).Times(2)
	m.accounts.EXPECT().GetByIDsForUpdate(gomock.Any(), m.tx, []string{"acc-1"}).
		DoAndReturn(func(context.Context, usecase.Transaction, []string) ([]*domain.Account, error) {
			return []*domain.Account{activeAccount("acc-1", 10)}, nil
		}).Times(2)
	m.entries.EXPECT().Create(gomock.Any(), m.tx, gomock.Any()).Return(nil).Times(2)
	m.accounts.EXPECT().UpdateBalance(gomock.Any(), m.tx, "acc-1", eqDecimal("15"), gomock.Any()).
		Return(&pgconn.PgError{Code: "40P01"})
	m.accounts.EXPECT().UpdateBalance(gomock.Any(), m.tx, "acc-1", eqDecimal("15"), gomock.Any()).Return(nil)
	m.expectCommit()

	result, err := m.useCase().Deposit(context.Background(), usecase.DepositInput{AccountID: "acc-1", Amount: decimal.NewFromInt(5)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b, _ := result.BalanceOf("acc-1"); !b.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("expected 15 after retry, got %s", b)
	}
}

func TestBalanceUseCase_ReportsOutcome(t *testing.T) {
	m := newBalanceMocks(t)
	ctrl := gomock.NewController(t)
	observer := mocks.NewMockOperationObserver(ctrl)
	observer.EXPECT().ObserveOperation(domain.OperationWithdraw, eqDecimal("5"), gomock.Any(), gomock.Any()).
		Do(func(_ domain.OperationType, _ decimal.Decimal, _ time.Duration, err error) {
			if !errors.Is(err, domain.ErrInsufficientFunds) {
				t.Errorf("observer got %v", err)
			}
		})
	m.cfg.Observer = observer
	m.expectTx([]string{"acc-1"}, activeAccount("acc-1", 1))

	_, _ = m.useCase().Withdraw(context.Background(), usecase.WithdrawInput{AccountID: "acc-1", Amount: decimal.NewFromInt(5)})
}

func storedResult(t *testing.T, op domain.OperationType, legs ...*domain.LedgerEntry) []byte {
	t.Helper()
	payload, err := json.Marshal(&usecase.OperationResult{
		OperationID: "op-stored",
		Type:        op,
		CommittedAt: fixedNow,
		Entries:     legs,
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return payload
}

func TestBalanceUseCase_Idempotency(t *testing.T) {
	depositLeg := &domain.LedgerEntry{
		ID:           "e-1",
		OperationID:  "op-stored",
		AccountID:    "acc-1",
		Type:         domain.EntryTypeDeposit,
		Amount:       decimal.NewFromInt(50),
		BalanceAfter: decimal.NewFromInt(150),
		CreatedAt:    fixedNow,
	}

	t.Run("replays cached result", func(t *testing.T) {
		m := newBalanceMocks(t)
		m.cfg.Idempotency = m.idempotency
		m.idempotency.EXPECT().CheckAndSet(gomock.Any(), "key-1", gomock.Any(), gomock.Any()).
			Return(true, storedResult(t, domain.OperationDeposit, depositLeg), nil)

		result, err := m.useCase().Deposit(context.Background(), usecase.DepositInput{
			AccountID:      "acc-1",
			Amount:         decimal.NewFromInt(50),
			IdempotencyKey: "key-1",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.Replayed || result.OperationID != "op-stored" {
			t.Fatalf("expected replay of op-stored, got %+v", result)
		}
		if b, _ := result.BalanceOf("acc-1"); !b.Equal(decimal.NewFromInt(150)) {
			t.Fatalf("expected original balance 150, got %s", b)
		}
	})

	t.Run("pending key", func(t *testing.T) {
		m := newBalanceMocks(t)
		m.cfg.Idempotency = m.idempotency
		m.idempotency.EXPECT().CheckAndSet(gomock.Any(), "key-1", gomock.Any(), gomock.Any()).
			Return(true, []byte(usecase.IdempotencyPending), nil)

		_, err := m.useCase().Deposit(context.Background(), usecase.DepositInput{
			AccountID:      "acc-1",
			Amount:         decimal.NewFromInt(50),
			IdempotencyKey: "key-1",
		})
		if !errors.Is(err, domain.ErrOperationInProgress) {
			t.Fatalf("expected ErrOperationInProgress, got %v", err)
		}
	})

	t.Run("key reused for different request", func(t *testing.T) {
		m := newBalanceMocks(t)
		m.cfg.Idempotency = m.idempotency
		m.idempotency.EXPECT().CheckAndSet(gomock.Any(), "key-1", gomock.Any(), gomock.Any()).
			Return(true, storedResult(t, domain.OperationDeposit, depositLeg), nil)

		_, err := m.useCase().Deposit(context.Background(), usecase.DepositInput{
			AccountID:      "acc-1",
			Amount:         decimal.NewFromInt(60),
			IdempotencyKey: "key-1",
		})
		if !errors.Is(err, domain.ErrIdempotencyKeyReused) {
			t.Fatalf("expected ErrIdempotencyKeyReused, got %v", err)
		}
	})

	t.Run("stores result after commit", func(t *testing.T) {
		m := newBalanceMocks(t)
		m.cfg.Idempotency = m.idempotency
		m.idempotency.EXPECT().CheckAndSet(gomock.Any(), "key-1", []byte(usecase.IdempotencyPending), gomock.Any()).Return(false, nil, nil)
		m.entries.EXPECT().GetByIdempotencyKey(gomock.Any(), "key-1").Return(nil, nil)
		m.expectTx([]string{"acc-1"}, activeAccount("acc-1", 100))
		entries := captureEntries(m, 1)
		m.accounts.EXPECT().UpdateBalance(gomock.Any(), m.tx, "acc-1", gomock.Any(), gomock.Any()).Return(nil)
		m.expectCommit()

		var stored usecase.OperationResult
		m.idempotency.EXPECT().Update(gomock.Any(), "key-1", gomock.Any(), usecase.IdempotencyKeyTTL).
			DoAndReturn(func(_ context.Context, _ string, payload []byte, _ time.Duration) error {
				return json.Unmarshal(payload, &stored)
			})

		result, err := m.useCase().Deposit(context.Background(), usecase.DepositInput{
			AccountID:      "acc-1",
			Amount:         decimal.NewFromInt(50),
			IdempotencyKey: "key-1",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if (*entries)[0].IdempotencyKey != "key-1" {
			t.Errorf("expected entry to carry the key, got %q", (*entries)[0].IdempotencyKey)
		}
		if stored.OperationID != result.OperationID {
			t.Errorf("stored %q, committed %q", stored.OperationID, result.OperationID)
		}
	})

	t.Run("releases key when the result cannot be stored", func(t *testing.T) {
		m := newBalanceMocks(t)
		m.cfg.Idempotency = m.idempotency
		m.idempotency.EXPECT().CheckAndSet(gomock.Any(), "key-1", gomock.Any(), gomock.Any()).Return(false, nil, nil)
		m.entries.EXPECT().GetByIdempotencyKey(gomock.Any(), "key-1").Return(nil, nil)
		m.expectTx([]string{"acc-1"}, activeAccount("acc-1", 100))
		captureEntries(m, 1)
		m.accounts.EXPECT().UpdateBalance(gomock.Any(), m.tx, "acc-1", gomock.Any(), gomock.Any()).Return(nil)
		m.expectCommit()
		gomock.InOrder(
			m.idempotency.EXPECT().Update(gomock.Any(), "key-1", gomock.Any(), gomock.Any()).Return(errors.New("redis: connection reset")),
			m.idempotency.EXPECT().Release(gomock.Any(), "key-1").Return(nil),
		)

		result, err := m.useCase().Deposit(context.Background(), usecase.DepositInput{
			AccountID:      "acc-1",
			Amount:         decimal.NewFromInt(50),
			IdempotencyKey: "key-1",
		})
		if err != nil {
			t.Fatalf("committed deposit must still succeed, got %v", err)
		}
		if result.Replayed {
			t.Fatalf("first attempt reported as replay: %+v", result)
		}
	})

	t.Run("releases key when operation fails", func(t *testing.T) {
		m := newBalanceMocks(t)
		m.cfg.Idempotency = m.idempotency
		m.idempotency.EXPECT().CheckAndSet(gomock.Any(), "key-1", gomock.Any(), gomock.Any()).Return(false, nil, nil)
		m.entries.EXPECT().GetByIdempotencyKey(gomock.Any(), "key-1").Return(nil, nil)
		m.expectTx([]string{"acc-1"}, activeAccount("acc-1", 10))
		m.idempotency.EXPECT().Release(gomock.Any(), "key-1").Return(nil)

		_, err := m.useCase().Withdraw(context.Background(), usecase.WithdrawInput{
			AccountID:      "acc-1",
			Amount:         decimal.NewFromInt(50),
			IdempotencyKey: "key-1",
		})
		if !errors.Is(err, domain.ErrInsufficientFunds) {
			t.Fatalf("expected ErrInsufficientFunds, got %v", err)
		}
	})

	t.Run("replays from ledger entries without a cache", func(t *testing.T) {
		m := newBalanceMocks(t)
		m.entries.EXPECT().GetByIdempotencyKey(gomock.Any(), "key-1").Return([]*domain.LedgerEntry{depositLeg}, nil)

		result, err := m.useCase().Deposit(context.Background(), usecase.DepositInput{
			AccountID:      "acc-1",
			Amount:         decimal.NewFromInt(50),
			IdempotencyKey: "key-1",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.Replayed || result.OperationID != "op-stored" {
			t.Fatalf("expected replay, got %+v", result)
		}
	})

	t.Run("concurrent duplicate resolves to the winner", func(t *testing.T) {
		m := newBalanceMocks(t)
		gomock.InOrder(
			m.entries.EXPECT().GetByIdempotencyKey(gomock.Any(), "key-1").Return(nil, nil),
			m.entries.EXPECT().GetByIdempotencyKey(gomock.Any(), "key-1").Return([]*domain.LedgerEntry{depositLeg}, nil),
		)
		m.expectTx([]string{"acc-1"}, activeAccount("acc-1", 100))
		m.entries.EXPECT().Create(gomock.Any(), m.tx, gomock.Any()).Return(nil)
		m.accounts.EXPECT().UpdateBalance(gomock.Any(), m.tx, "acc-1", gomock.Any(), gomock.Any()).Return(nil)
		m.outbox.EXPECT().Create(gomock.Any(), m.tx, gomock.Any()).Return(nil)
		m.tx.EXPECT().Commit(gomock.Any()).Return(domain.ErrDuplicateEntry)

		result, err := m.useCase().Deposit(context.Background(), usecase.DepositInput{
			AccountID:      "acc-1",
			Amount:         decimal.NewFromInt(50),
			IdempotencyKey: "key-1",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.OperationID != "op-stored" {
			t.Fatalf("expected winner op-stored, got %s", result.OperationID)
		}
	})
}
