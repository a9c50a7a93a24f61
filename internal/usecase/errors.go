package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/iho/bankledger/internal/domain"
)

// classifyStoreError maps failures that did not come from ledger rules onto
// ErrTimeout or ErrUnavailable, keeping the cause in the chain.
func classifyStoreError(err error) error {
	if err == nil || domain.IsLedgerError(err) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", domain.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", domain.ErrUnavailable, err)
}

func isInconsistent(err error) bool {
	return errors.Is(err, domain.ErrInconsistentLedger)
}
