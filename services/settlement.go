package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"review-task-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// trainingBonusPercent of the commission (not the price) flows to a training
// account's origin account.
var trainingBonusPercent = decimal.NewFromInt(30)

type SettlementService struct {
	DB *gorm.DB
}

func NewSettlementService(db *gorm.DB) *SettlementService {
	return &SettlementService{DB: db}
}

// SubmitResult is the outcome of one submission.
type SubmitResult struct {
	Review         *models.ProductReview `json:"review"`
	Status         models.ReviewStatus   `json:"status"`
	Commission     *decimal.Decimal      `json:"commission,omitempty"`
	OriginBonus    *decimal.Decimal      `json:"origin_bonus,omitempty"`
	NewBalance     decimal.Decimal       `json:"new_balance"`
	BalanceFrozen  bool                  `json:"balance_frozen"`
	CompletedCount int64                 `json:"completed_count"`
	AlreadyDone    bool                  `json:"already_done,omitempty"`
}

// selectRate picks the commission rate: the level's frozen rate when the review
// was marked frozen-eligible at an earlier insufficient-balance submit,
// otherwise the normal rate.
func selectRate(level *models.Level, frozenEligible bool) decimal.Decimal {
	if frozenEligible {
		return level.FrozenRate()
	}
	return level.CommissionRate
}

// commissionAmount = price × rate / 100, rounded to currency precision.
func commissionAmount(price, rate decimal.Decimal) decimal.Decimal {
	return price.Mul(rate).Div(oneHundred).Round(2)
}

// comparisonBalance is the balance a submission is checked against. A review
// already frozen-eligible on a currently frozen user compares against the
// pre-debit snapshot: the cost was reserved at freeze time, so the live
// (already debited) balance must not be charged again.
func comparisonBalance(user *models.User, review *models.ProductReview) decimal.Decimal {
	if review.UseFrozenCommission && user.BalanceFrozen && user.BalanceFrozenAmount != nil {
		return *user.BalanceFrozenAmount
	}
	return user.Balance
}

// SubmitReview runs the settlement state machine for one user submission.
// Everything — review status, balance, frozen fields, ledger rows, counter —
// moves inside one transaction with the user row locked.
func (s *SettlementService) SubmitReview(userID, productID, reviewText string) (*SubmitResult, error) {
	var result SubmitResult

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var user models.User
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&user, "id = ?", userID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if user.LevelID == nil {
			return ErrNoLevelAssigned
		}
		var level models.Level
		if err := tx.First(&level, "id = ?", *user.LevelID).Error; err != nil {
			return fmt.Errorf("load level: %w", err)
		}
		user.Level = &level

		var product models.Product
		if err := tx.First(&product, "id = ?", productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		review, err := ensureReview(tx, &user, &product)
		if err != nil {
			return err
		}

		// Idempotency: a completed review takes the new text but never
		// recomputes or re-credits commission.
		if review.Status == models.ReviewStatusCompleted {
			if reviewText != "" {
				review.ReviewText = &reviewText
				if err := tx.Model(review).Update("review_text", reviewText).Error; err != nil {
					return err
				}
			}
			result = SubmitResult{
				Review:         review,
				Status:         review.Status,
				NewBalance:     user.Balance,
				BalanceFrozen:  user.BalanceFrozen,
				CompletedCount: user.CompletedCount,
				AlreadyDone:    true,
			}
			return nil
		}

		price := effectivePrice(&product, review)

		if comparisonBalance(&user, review).LessThan(price) {
			return s.freeze(tx, &user, review, price, reviewText, &result)
		}
		return s.complete(tx, &user, &product, review, price, reviewText, &result)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// freeze leaves the review PENDING and, if the user was not already frozen,
// reserves the cost: debit the live balance and snapshot the pre-debit amount.
func (s *SettlementService) freeze(tx *gorm.DB, user *models.User, review *models.ProductReview, price decimal.Decimal, reviewText string, result *SubmitResult) error {
	updates := map[string]interface{}{
		"status":                models.ReviewStatusPending,
		"use_frozen_commission": true,
	}
	if reviewText != "" {
		updates["review_text"] = reviewText
		review.ReviewText = &reviewText
	}
	if err := tx.Model(review).Updates(updates).Error; err != nil {
		return err
	}
	review.Status = models.ReviewStatusPending
	review.UseFrozenCommission = true

	if !user.BalanceFrozen {
		snapshot := user.Balance
		user.BalanceFrozenAmount = &snapshot
		user.Balance = user.Balance.Sub(price)
		user.BalanceFrozen = true
		err := tx.Model(user).
			Select("balance", "balance_frozen", "balance_frozen_amount").
			Updates(map[string]interface{}{
				"balance":               user.Balance,
				"balance_frozen":        true,
				"balance_frozen_amount": snapshot,
			}).Error
		if err != nil {
			return err
		}
		log.Printf("[SETTLEMENT] user %s frozen: price=%s snapshot=%s balance=%s",
			user.ID, price, snapshot, user.Balance)
	}

	*result = SubmitResult{
		Review:         review,
		Status:         models.ReviewStatusPending,
		NewBalance:     user.Balance,
		BalanceFrozen:  true,
		CompletedCount: user.CompletedCount,
	}
	return nil
}

// complete marks the review COMPLETED, pays commission (and the origin-account
// split for training accounts), clears frozen state and bumps the counter.
func (s *SettlementService) complete(tx *gorm.DB, user *models.User, product *models.Product, review *models.ProductReview, price decimal.Decimal, reviewText string, result *SubmitResult) error {
	now := time.Now()
	rate := selectRate(user.Level, review.UseFrozenCommission)
	commission := commissionAmount(price, rate)

	updates := map[string]interface{}{
		"status":            models.ReviewStatusCompleted,
		"commission_earned": commission,
		"completed_at":      now,
	}
	if reviewText != "" {
		updates["review_text"] = reviewText
		review.ReviewText = &reviewText
	}
	if err := tx.Model(review).Updates(updates).Error; err != nil {
		return err
	}
	review.Status = models.ReviewStatusCompleted
	review.CommissionEarned = commission
	review.CompletedAt = &now

	var originBonus *decimal.Decimal
	if user.IsTrainingAccount && user.OriginalAccountID != nil {
		bonus := commissionAmount(commission, trainingBonusPercent)
		var origin models.User
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&origin, "id = ?", *user.OriginalAccountID).Error
		if err != nil {
			return fmt.Errorf("load origin account: %w", err)
		}
		remark := fmt.Sprintf("30%% commission bonus from training account %s - product: %s", user.Username, product.Title)
		remarkType := string(models.TransactionTypeCommission)
		txn := models.Transaction{
			MemberAccountID: origin.ID,
			Type:            models.TransactionTypeCommission,
			Amount:          bonus,
			Remark:          &remark,
			RemarkType:      &remarkType,
			Status:          models.TransactionStatusCompleted,
		}
		if err := tx.Create(&txn).Error; err != nil {
			return err
		}
		err = tx.Model(&origin).
			Update("balance", origin.Balance.Add(bonus)).Error
		if err != nil {
			return err
		}
		originBonus = &bonus
	}

	remark := fmt.Sprintf("Commission for reviewing product: %s", product.Title)
	remarkType := string(models.TransactionTypeCommission)
	txn := models.Transaction{
		MemberAccountID: user.ID,
		Type:            models.TransactionTypeCommission,
		Amount:          commission,
		Remark:          &remark,
		RemarkType:      &remarkType,
		Status:          models.TransactionStatusCompleted,
	}
	if err := tx.Create(&txn).Error; err != nil {
		return err
	}

	user.Balance = user.Balance.Add(commission)
	user.BalanceFrozen = false
	user.BalanceFrozenAmount = nil
	err := tx.Model(user).
		Select("balance", "balance_frozen", "balance_frozen_amount").
		Updates(map[string]interface{}{
			"balance":               user.Balance,
			"balance_frozen":        false,
			"balance_frozen_amount": nil,
		}).Error
	if err != nil {
		return err
	}

	// SQL-side increment; never a read-modify-write.
	err = tx.Model(&models.User{}).Where("id = ?", user.ID).
		UpdateColumn("completed_count", gorm.Expr("completed_count + 1")).Error
	if err != nil {
		return err
	}
	user.CompletedCount++

	*result = SubmitResult{
		Review:         review,
		Status:         models.ReviewStatusCompleted,
		Commission:     &commission,
		OriginBonus:    originBonus,
		NewBalance:     user.Balance,
		BalanceFrozen:  false,
		CompletedCount: user.CompletedCount,
	}
	return nil
}

// --- Handlers ---

// Submit handles POST /tasks/submit
func (s *SettlementService) Submit(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)

	var req struct {
		ProductID  string `json:"product_id"`
		ReviewText string `json:"review_text"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.ProductID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "product_id is required"})
	}

	result, err := s.SubmitReview(userID, req.ProductID, req.ReviewText)
	if err != nil {
		return respondError(c, err)
	}

	if result.Status == models.ReviewStatusPending {
		return c.JSON(fiber.Map{
			"message":         "Insufficient balance. Task is pending; cost has been reserved.",
			"result":          result,
			"balance_frozen":  true,
			"new_balance":     result.NewBalance,
		})
	}
	resp := fiber.Map{
		"message":         "Review submitted successfully. Commission earned!",
		"result":          result,
		"new_balance":     result.NewBalance,
		"completed_count": result.CompletedCount,
	}
	if result.AlreadyDone {
		resp["message"] = "Review already completed."
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}
