package usecase_test

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

// sequentialIDs implements usecase.IDGenerator with predictable ids.
type sequentialIDs struct {
	prefix string
	n      atomic.Int64
}

func (s *sequentialIDs) Generate() string {
	return fmt.Sprintf("%s-%04d", s.prefix, s.n.Add(1))
}

func activeAccount(id string, balance int64) *domain.Account {
	return &domain.Account{
		ID:             id,
		CustomerID:     "cust-" + id,
		Type:           domain.AccountTypeCurrent,
		Status:         domain.AccountStatusActive,
		Balance:        decimal.NewFromInt(balance),
		OpeningBalance: decimal.NewFromInt(balance),
		Version:        3,
		LastEntryAt:    fixedNow.Add(-time.Hour),
		CreatedAt:      fixedNow.Add(-24 * time.Hour),
	}
}

// decimalEq matches decimal arguments by value rather than representation.
type decimalEq struct{ want decimal.Decimal }

func eqDecimal(s string) decimalEq { return decimalEq{want: decimal.RequireFromString(s)} }

func (m decimalEq) Matches(x any) bool {
	d, ok := x.(decimal.Decimal)
	return ok && d.Equal(m.want)
}

func (m decimalEq) String() string { return "is decimal " + m.want.String() }
