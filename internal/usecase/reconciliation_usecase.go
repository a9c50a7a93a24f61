package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
)

// ReconciliationUseCase handles balance reconciliation operations
type ReconciliationUseCase struct {
	accountRepo AccountRepository
	ledgerRepo  LedgerRepository
	clock       func() time.Time
}

// NewReconciliationUseCase creates a new reconciliation use case
func NewReconciliationUseCase(
	accountRepo AccountRepository,
	ledgerRepo LedgerRepository,
) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		accountRepo: accountRepo,
		ledgerRepo:  ledgerRepo,
		clock:       time.Now,
	}
}

// ReconciliationResult represents the result of a reconciliation check
type ReconciliationResult struct {
	LastChecked       time.Time       `json:"last_checked"`
	AccountID         string          `json:"account_id"`
	RecordedBalance   decimal.Decimal `json:"recorded_balance"`
	CalculatedBalance decimal.Decimal `json:"calculated_balance"`
	LastEntryBalance  decimal.Decimal `json:"last_entry_balance"`
	Difference        decimal.Decimal `json:"difference"`
	IsReconciled      bool            `json:"is_reconciled"`
}

// ReconcileAccount replays an account's entries on top of its opening
// balance and compares the outcome with the stored balance and with the
// balance recorded on the newest entry. All three come from one snapshot,
// so commits running alongside never show up as a difference.
func (uc *ReconciliationUseCase) ReconcileAccount(ctx context.Context, accountID string) (*ReconciliationResult, error) {
	snap, err := uc.ledgerRepo.AccountSnapshot(ctx, accountID)
	if err != nil {
		return nil, classifyStoreError(err)
	}

	lastEntryBalance := snap.OpeningBalance
	if snap.HasEntries {
		lastEntryBalance = snap.LastEntryBalance
	}

	calculated := snap.ReplayedBalance()
	difference := snap.Balance.Sub(calculated)

	return &ReconciliationResult{
		AccountID:         accountID,
		RecordedBalance:   snap.Balance,
		CalculatedBalance: calculated,
		LastEntryBalance:  lastEntryBalance,
		Difference:        difference,
		IsReconciled:      difference.IsZero() && lastEntryBalance.Equal(snap.Balance),
		LastChecked:       uc.clock().UTC(),
	}, nil
}

// ReconcileAllAccounts reconciles all accounts in the system
func (uc *ReconciliationUseCase) ReconcileAllAccounts(ctx context.Context) ([]*ReconciliationResult, error) {
	limit, _, _ := domain.ValidatePagination(1000, 0)

	var results []*ReconciliationResult
	for offset := 0; ; offset += limit {
		accounts, err := uc.accountRepo.List(ctx, limit, offset)
		if err != nil {
			return nil, classifyStoreError(err)
		}

		for _, account := range accounts {
			result, err := uc.ReconcileAccount(ctx, account.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to reconcile account %s: %w", account.ID, err)
			}
			results = append(results, result)
		}

		if len(accounts) < limit {
			return results, nil
		}
	}
}

// CheckLedgerConsistency verifies that money was neither created nor
// destroyed and that every transfer has exactly two matching legs.
func (uc *ReconciliationUseCase) CheckLedgerConsistency(ctx context.Context) error {
	totals, err := uc.ledgerRepo.Totals(ctx)
	if err != nil {
		return classifyStoreError(err)
	}

	if !totals.Balances.Equal(totals.ExpectedBalance()) {
		return fmt.Errorf(
			"%w: balances=%s expected=%s difference=%s",
			domain.ErrInconsistentLedger,
			totals.Balances.String(),
			totals.ExpectedBalance().String(),
			totals.Balances.Sub(totals.ExpectedBalance()).String(),
		)
	}

	if !totals.TransfersSent.Equal(totals.TransfersReceived) {
		return fmt.Errorf(
			"%w: transfers sent=%s received=%s",
			domain.ErrInconsistentLedger,
			totals.TransfersSent.String(),
			totals.TransfersReceived.String(),
		)
	}

	unpaired, err := uc.ledgerRepo.UnpairedTransfers(ctx, maxUnpairedReported)
	if err != nil {
		return classifyStoreError(err)
	}
	if len(unpaired) > 0 {
		return fmt.Errorf("%w: unpaired transfer operations %v", domain.ErrInconsistentLedger, unpaired)
	}

	return nil
}

// ReconciliationReport represents a full reconciliation report
type ReconciliationReport struct {
	CheckedAt          time.Time               `json:"checked_at"`
	Discrepancies      []*ReconciliationResult `json:"discrepancies"`
	LedgerError        string                  `json:"ledger_error,omitempty"`
	TotalAccounts      int                     `json:"total_accounts"`
	ReconciledAccounts int                     `json:"reconciled_accounts"`
	LedgerConsistent   bool                    `json:"ledger_consistent"`
}

// GenerateReconciliationReport generates a comprehensive reconciliation report
func (uc *ReconciliationUseCase) GenerateReconciliationReport(ctx context.Context) (*ReconciliationReport, error) {
	results, err := uc.ReconcileAllAccounts(ctx)
	if err != nil {
		return nil, err
	}

	ledgerErr := uc.CheckLedgerConsistency(ctx)
	if ledgerErr != nil && !isInconsistent(ledgerErr) {
		return nil, ledgerErr
	}

	report := &ReconciliationReport{
		TotalAccounts:    len(results),
		Discrepancies:    make([]*ReconciliationResult, 0),
		LedgerConsistent: ledgerErr == nil,
		CheckedAt:        uc.clock().UTC(),
	}
	if ledgerErr != nil {
		report.LedgerError = ledgerErr.Error()
	}

	for _, result := range results {
		if result.IsReconciled {
			report.ReconciledAccounts++
		} else {
			report.Discrepancies = append(report.Discrepancies, result)
		}
	}

	return report, nil
}
