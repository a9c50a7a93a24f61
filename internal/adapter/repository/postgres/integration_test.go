package postgres_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/bankledger/internal/adapter/repository/postgres"
	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/infrastructure/idgen"
	infrapg "github.com/iho/bankledger/internal/infrastructure/postgres"
	"github.com/iho/bankledger/internal/usecase"
)

type testLedger struct {
	pool     *pgxpool.Pool
	ledger   *usecase.Ledger
	accounts *usecase.AccountUseCase
	recon    *usecase.ReconciliationUseCase
	outbox   *postgres.OutboxRepository
}

func newTestLedger(t *testing.T) *testLedger {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set")
	}

	require.NoError(t, infrapg.RunMigrations(dbURL, zerolog.Nop()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := infrapg.NewPool(ctx, dbURL, 20, 1)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, "TRUNCATE outbox_events, ledger_entries, accounts")
	require.NoError(t, err)

	txm := postgres.NewTxManager(pool)
	accountRepo := postgres.NewAccountRepository(pool)
	entryRepo := postgres.NewEntryRepository(pool)
	outboxRepo := postgres.NewOutboxRepository(pool)
	ids := idgen.NewULIDGenerator()

	balances := usecase.NewBalanceUseCase(usecase.BalanceConfig{
		TxManager: txm,
		Accounts:  accountRepo,
		Entries:   entryRepo,
		Outbox:    outboxRepo,
		IDGen:     ids,
		Retrier:   postgres.NewRetrier(zerolog.Nop()),
	})
	accounts := usecase.NewAccountUseCase(txm, accountRepo, outboxRepo, ids)
	entries := usecase.NewEntryUseCase(entryRepo, accountRepo)

	return &testLedger{
		pool:     pool,
		ledger:   usecase.NewLedger(balances, accounts, entries),
		accounts: accounts,
		recon:    usecase.NewReconciliationUseCase(accountRepo, postgres.NewLedgerRepository(pool)),
		outbox:   outboxRepo,
	}
}

func (l *testLedger) open(t *testing.T, customer, balance string) string {
	t.Helper()
	a, err := l.accounts.OpenAccount(context.Background(), usecase.OpenAccountInput{
		CustomerID:     customer,
		Type:           domain.AccountTypeCurrent,
		OpeningBalance: decimal.RequireFromString(balance),
	})
	require.NoError(t, err)
	return a.ID
}

func TestIntegration_ExampleScenario(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	a := l.open(t, "alice", "100.00")
	b := l.open(t, "bob", "50.00")

	from, to, err := l.ledger.Transfer(ctx, a, b, decimal.RequireFromString("30.00"))
	require.NoError(t, err)
	assert.Equal(t, "70.00", from.StringFixed(2))
	assert.Equal(t, "80.00", to.StringFixed(2))

	_, _, err = l.ledger.Transfer(ctx, a, b, decimal.RequireFromString("1000.00"))
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	left, err := l.ledger.Withdraw(ctx, a, decimal.RequireFromString("70.00"))
	require.NoError(t, err)
	assert.True(t, left.IsZero())

	_, err = l.ledger.Withdraw(ctx, a, decimal.RequireFromString("0.01"))
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	history, err := l.ledger.EntriesForAccount(ctx, a)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.EntryTypeWithdraw, history[0].Type)
	assert.Equal(t, domain.EntryTypeTransferSent, history[1].Type)
	assert.Equal(t, b, history[1].CounterpartyAccountID)

	require.NoError(t, l.recon.CheckLedgerConsistency(ctx))

	events, err := l.outbox.GetUnpublished(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, events, 4)
}

func TestIntegration_ConcurrentWithdrawals(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	acc := l.open(t, "carol", "100.00")

	const workers = 40
	var (
		wg           sync.WaitGroup
		successCount atomic.Int32
		refusedCount atomic.Int32
	)

	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			_, err := l.ledger.Withdraw(ctx, acc, decimal.RequireFromString("7.00"))
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, domain.ErrInsufficientFunds):
				refusedCount.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(14), successCount.Load())
	assert.Equal(t, int32(workers-14), refusedCount.Load())

	account, err := l.ledger.GetAccount(ctx, acc)
	require.NoError(t, err)
	assert.Equal(t, "2.00", account.Balance.StringFixed(2))
}

func TestIntegration_OppositeTransfersDoNotDeadlock(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	a := l.open(t, "dave", "500.00")
	b := l.open(t, "erin", "500.00")

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			from, to := a, b
			if i%2 == 1 {
				from, to = b, a
			}
			_, _, err := l.ledger.Transfer(ctx, from, to, decimal.RequireFromString("3.00"))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	accounts, err := l.accounts.ListAccountsForCustomer(ctx, "dave")
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "500.00", accounts[0].Balance.StringFixed(2))

	report, err := l.recon.GenerateReconciliationReport(ctx)
	require.NoError(t, err)
	assert.True(t, report.LedgerConsistent, report.LedgerError)
	assert.Empty(t, report.Discrepancies)
}

func TestIntegration_ReconcileDuringDeposits(t *testing.T) {
	l := newTestLedger(t)
	acc := l.open(t, "erin", "0")
	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				if _, err := l.ledger.Deposit(ctx, acc, decimal.RequireFromString("1.00")); err != nil && ctx.Err() == nil {
					t.Errorf("deposit: %v", err)
					return
				}
			}
		}()
	}

	drifted := 0
	for i := 0; i < 100; i++ {
		result, err := l.recon.ReconcileAccount(context.Background(), acc)
		require.NoError(t, err)
		if !result.IsReconciled {
			drifted++
		}
	}
	cancel()
	wg.Wait()

	assert.Zero(t, drifted)
}

func TestIntegration_IdempotentDeposit(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	acc := l.open(t, "frank", "0")

	first, err := l.ledger.DepositWithKey(ctx, acc, decimal.RequireFromString("25.00"), "deposit-1")
	require.NoError(t, err)
	again, err := l.ledger.DepositWithKey(ctx, acc, decimal.RequireFromString("25.00"), "deposit-1")
	require.NoError(t, err)
	assert.True(t, first.Equal(again))

	history, err := l.ledger.EntriesForAccount(ctx, acc)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestIntegration_EntriesAreAppendOnly(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	acc := l.open(t, "grace", "0")

	_, err := l.ledger.Deposit(ctx, acc, decimal.RequireFromString("1.00"))
	require.NoError(t, err)

	_, err = l.pool.Exec(ctx, "UPDATE ledger_entries SET amount = 2 WHERE account_id = $1", acc)
	assert.Error(t, err)
	_, err = l.pool.Exec(ctx, "DELETE FROM ledger_entries WHERE account_id = $1", acc)
	assert.Error(t, err)
}
