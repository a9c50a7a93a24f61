package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestAccount_ValidateDebit(t *testing.T) {
	tests := []struct {
		name        string
		balance     decimal.Decimal
		debitAmount decimal.Decimal
		expectError bool
	}{
		{
			name:        "debit more than balance",
			balance:     decimal.NewFromInt(100),
			debitAmount: decimal.NewFromInt(150),
			expectError: true,
		},
		{
			name:        "debit exact balance",
			balance:     decimal.NewFromInt(100),
			debitAmount: decimal.NewFromInt(100),
			expectError: false,
		},
		{
			name:        "debit less than balance",
			balance:     decimal.NewFromInt(100),
			debitAmount: decimal.NewFromInt(50),
			expectError: false,
		},
		{
			name:        "debit one cent over",
			balance:     decimal.RequireFromString("10.00"),
			debitAmount: decimal.RequireFromString("10.01"),
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc := &Account{Balance: tt.balance}

			err := acc.ValidateDebit(tt.debitAmount)

			if tt.expectError && !errors.Is(err, ErrInsufficientFunds) {
				t.Errorf("expected ErrInsufficientFunds, got %v", err)
			}

			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestAccount_ApplyDebit(t *testing.T) {
	acc := &Account{Balance: decimal.NewFromInt(100)}
	newBalance := acc.ApplyDebit(decimal.NewFromInt(30))

	expected := decimal.NewFromInt(70)
	if !newBalance.Equal(expected) {
		t.Errorf("expected balance %s, got %s", expected, newBalance)
	}
}

func TestAccount_ApplyCredit(t *testing.T) {
	acc := &Account{Balance: decimal.NewFromInt(100)}
	newBalance := acc.ApplyCredit(decimal.NewFromInt(30))

	expected := decimal.NewFromInt(130)
	if !newBalance.Equal(expected) {
		t.Errorf("expected balance %s, got %s", expected, newBalance)
	}
}

func TestAccount_NextEntryTime(t *testing.T) {
	last := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	acc := &Account{LastEntryAt: last}

	if got := acc.NextEntryTime(last.Add(-time.Second)); !got.Equal(last) {
		t.Errorf("expected clock skew to be clamped to %v, got %v", last, got)
	}

	later := last.Add(time.Minute)
	if got := acc.NextEntryTime(later); !got.Equal(later) {
		t.Errorf("expected %v, got %v", later, got)
	}
}

func TestAccount_Clone(t *testing.T) {
	acc := &Account{ID: "acc-1", Balance: decimal.NewFromInt(10), Status: AccountStatusActive}
	c := acc.Clone()
	c.Balance = decimal.NewFromInt(99)
	c.Status = AccountStatusClosed

	if !acc.Balance.Equal(decimal.NewFromInt(10)) || !acc.IsActive() {
		t.Fatalf("clone mutated the original account: %+v", acc)
	}
}

func TestAccountType_IsValid(t *testing.T) {
	if !AccountTypeSavings.IsValid() || !AccountTypeCurrent.IsValid() {
		t.Fatal("expected SAVINGS and CURRENT to be valid")
	}
	if AccountType("BROKERAGE").IsValid() {
		t.Fatal("expected unknown type to be invalid")
	}
}
