package services

import (
	"math/rand"

	"review-task-system/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// minAgreedPrice is the floor for banded prices.
var minAgreedPrice = decimal.NewFromFloat(0.01)

var oneHundred = decimal.NewFromInt(100)

// sampleAgreedPrice draws a price uniformly from [minPct%, maxPct%] of balance,
// rounded to 2dp with a 0.01 floor. Ordinary (non-seeded) randomness is fine
// here; only the pool ordering needs determinism.
func sampleAgreedPrice(balance, minPct, maxPct decimal.Decimal) decimal.Decimal {
	span := maxPct.Sub(minPct)
	pct := minPct.Add(span.Mul(decimal.NewFromFloat(rand.Float64())))
	price := balance.Mul(pct).Div(oneHundred).Round(2)
	if price.LessThan(minAgreedPrice) {
		return minAgreedPrice
	}
	return price
}

// effectivePrice resolves the price a submission settles at:
// forced actual price (product or review) → cached agreed price → product price.
func effectivePrice(product *models.Product, review *models.ProductReview) decimal.Decimal {
	if product.UseActualPrice || review.UseActualPrice {
		return product.Price
	}
	if review.AgreedPrice != nil {
		return *review.AgreedPrice
	}
	return product.Price
}

// ensureReview returns the user's review row for a product, creating it (with a
// one-time agreed price when banding applies) the first time the product is
// served or submitted. The agreed price is computed from the balance at that
// moment and never recomputed.
func ensureReview(tx *gorm.DB, user *models.User, product *models.Product) (*models.ProductReview, error) {
	var review models.ProductReview
	err := tx.Where("user_id = ? AND product_id = ?", user.ID, product.ID).First(&review).Error
	if err == nil {
		return &review, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	review = models.ProductReview{
		UserID:    user.ID,
		ProductID: product.ID,
		Status:    models.ReviewStatusPending,
	}
	if !product.UseActualPrice && user.Level != nil {
		agreed := sampleAgreedPrice(user.Balance, user.Level.PriceMinPercent, user.Level.PriceMaxPercent)
		review.AgreedPrice = &agreed
	}
	if err := tx.Create(&review).Error; err != nil {
		return nil, err
	}
	return &review, nil
}
