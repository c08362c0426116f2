package services

import (
	"testing"

	"review-task-system/models"

	"github.com/shopspring/decimal"
)

func TestSampleAgreedPriceWithinBand(t *testing.T) {
	balance := decimal.NewFromInt(200)
	minPct := decimal.NewFromInt(30)
	maxPct := decimal.NewFromInt(70)

	low := balance.Mul(minPct).Div(oneHundred)  // 60
	high := balance.Mul(maxPct).Div(oneHundred) // 140

	for i := 0; i < 500; i++ {
		price := sampleAgreedPrice(balance, minPct, maxPct)
		// Rounding to 2dp can nudge the draw by at most half a cent.
		if price.LessThan(low.Sub(minAgreedPrice)) || price.GreaterThan(high.Add(minAgreedPrice)) {
			t.Fatalf("price %s outside band [%s, %s]", price, low, high)
		}
	}
}

func TestSampleAgreedPriceFloor(t *testing.T) {
	price := sampleAgreedPrice(decimal.Zero, decimal.NewFromInt(30), decimal.NewFromInt(70))
	if !price.Equal(minAgreedPrice) {
		t.Fatalf("expected floor price 0.01, got %s", price)
	}

	negative := sampleAgreedPrice(decimal.NewFromInt(-50), decimal.NewFromInt(30), decimal.NewFromInt(70))
	if !negative.Equal(minAgreedPrice) {
		t.Fatalf("negative balance should floor to 0.01, got %s", negative)
	}
}

func TestSampleAgreedPriceDegenerateBand(t *testing.T) {
	balance := decimal.NewFromInt(100)
	pct := decimal.NewFromInt(50)
	price := sampleAgreedPrice(balance, pct, pct)
	if !price.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("min==max band should be exact: want 50, got %s", price)
	}
}

func TestEffectivePriceResolutionOrder(t *testing.T) {
	agreed := decimal.NewFromFloat(42.50)
	product := &models.Product{Price: decimal.NewFromInt(100)}
	review := &models.ProductReview{AgreedPrice: &agreed}

	// Cached agreed price wins when nothing forces actual price.
	if got := effectivePrice(product, review); !got.Equal(agreed) {
		t.Fatalf("expected agreed price %s, got %s", agreed, got)
	}

	// Review-level force beats the cached agreed price.
	review.UseActualPrice = true
	if got := effectivePrice(product, review); !got.Equal(product.Price) {
		t.Fatalf("review force: expected %s, got %s", product.Price, got)
	}

	// Product-level force also wins.
	review.UseActualPrice = false
	product.UseActualPrice = true
	if got := effectivePrice(product, review); !got.Equal(product.Price) {
		t.Fatalf("product force: expected %s, got %s", product.Price, got)
	}

	// No agreed price cached and nothing forced: fall through to product price.
	product.UseActualPrice = false
	review.AgreedPrice = nil
	if got := effectivePrice(product, review); !got.Equal(product.Price) {
		t.Fatalf("fallback: expected %s, got %s", product.Price, got)
	}
}
