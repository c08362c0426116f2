package services

import (
	"testing"

	"review-task-system/models"

	"github.com/shopspring/decimal"
)

func TestSelectRate(t *testing.T) {
	normal := decimal.NewFromFloat(5.50)
	frozen := decimal.NewFromFloat(8.00)
	level := &models.Level{CommissionRate: normal, FrozenCommissionRate: &frozen}

	if got := selectRate(level, false); !got.Equal(normal) {
		t.Fatalf("expected normal rate %s, got %s", normal, got)
	}
	if got := selectRate(level, true); !got.Equal(frozen) {
		t.Fatalf("expected frozen rate %s, got %s", frozen, got)
	}

	// Levels without a configured frozen rate fall back to the default 6%.
	level.FrozenCommissionRate = nil
	if got := selectRate(level, true); !got.Equal(models.DefaultFrozenCommissionRate) {
		t.Fatalf("expected fallback rate %s, got %s", models.DefaultFrozenCommissionRate, got)
	}
}

func TestCommissionAmount(t *testing.T) {
	cases := []struct {
		price, rate, want string
	}{
		{"100.00", "5.50", "5.5"},
		{"70.00", "6.00", "4.2"},
		{"33.33", "3.00", "1"},      // 0.9999 rounds to 1.00
		{"10.00", "30", "3"},        // the training split: 30% of 10.00
		{"0.01", "5.00", "0"},       // rounds below a cent
	}
	for _, tc := range cases {
		price, _ := decimal.NewFromString(tc.price)
		rate, _ := decimal.NewFromString(tc.rate)
		want, _ := decimal.NewFromString(tc.want)
		if got := commissionAmount(price, rate); !got.Equal(want) {
			t.Errorf("commissionAmount(%s, %s) = %s, want %s", tc.price, tc.rate, got, want)
		}
	}
}

func TestComparisonBalanceUsesFrozenSnapshot(t *testing.T) {
	snapshot := decimal.NewFromInt(50)
	user := &models.User{
		Balance:             decimal.NewFromInt(-20),
		BalanceFrozen:       true,
		BalanceFrozenAmount: &snapshot,
	}
	review := &models.ProductReview{UseFrozenCommission: true}

	if got := comparisonBalance(user, review); !got.Equal(snapshot) {
		t.Fatalf("expected frozen snapshot %s, got %s", snapshot, got)
	}

	// A review that was never frozen-eligible compares against the live balance
	// even while the user is frozen on another task.
	fresh := &models.ProductReview{}
	if got := comparisonBalance(user, fresh); !got.Equal(user.Balance) {
		t.Fatalf("expected live balance %s, got %s", user.Balance, got)
	}

	// Once unfrozen the snapshot is gone and the live balance rules.
	user.BalanceFrozen = false
	user.BalanceFrozenAmount = nil
	if got := comparisonBalance(user, review); !got.Equal(user.Balance) {
		t.Fatalf("expected live balance %s after unfreeze, got %s", user.Balance, got)
	}
}
