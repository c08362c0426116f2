package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestContinuousOrderThreshold(t *testing.T) {
	// Explicit value wins.
	eight := 8
	level := Level{MinOrders: 40, StartContinuousOrdersAfter: &eight}
	if got := level.ContinuousOrderThreshold(); got != 8 {
		t.Fatalf("explicit threshold: want 8, got %d", got)
	}

	// Unset: max(0, min_orders - 10).
	level.StartContinuousOrdersAfter = nil
	if got := level.ContinuousOrderThreshold(); got != 30 {
		t.Fatalf("default threshold: want 30, got %d", got)
	}

	level.MinOrders = 5
	if got := level.ContinuousOrderThreshold(); got != 0 {
		t.Fatalf("small level should clamp to 0, got %d", got)
	}
}

func TestFrozenRateFallback(t *testing.T) {
	rate := decimal.NewFromFloat(8.50)
	level := Level{FrozenCommissionRate: &rate}
	if got := level.FrozenRate(); !got.Equal(rate) {
		t.Fatalf("want configured rate %s, got %s", rate, got)
	}

	level.FrozenCommissionRate = nil
	if got := level.FrozenRate(); !got.Equal(DefaultFrozenCommissionRate) {
		t.Fatalf("want default rate %s, got %s", DefaultFrozenCommissionRate, got)
	}
}
