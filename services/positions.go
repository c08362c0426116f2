package services

import (
	"errors"
	"fmt"
	"log"

	"review-task-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PositionService implements operator queue overrides: per-user pins, the
// continuous-order region, and catalog-wide repositioning.
type PositionService struct {
	DB *gorm.DB
}

func NewPositionService(db *gorm.DB) *PositionService {
	return &PositionService{DB: db}
}

// pinReview pins a product into a user's queue at an explicit position. The
// review takes the actual product price and, if it was already completed, is
// reopened so the product can be served again.
func pinReview(tx *gorm.DB, user *models.User, product *models.Product, position int) (*models.ProductReview, error) {
	review, err := ensureReview(tx, user, product)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"position":         position,
		"use_actual_price": true,
	}
	if review.Status == models.ReviewStatusCompleted {
		// Re-pinning a finished product reopens it for another cycle.
		updates["status"] = models.ReviewStatusPending
		updates["commission_earned"] = decimal.Zero
		updates["completed_at"] = nil
	}
	if err := tx.Model(review).Updates(updates).Error; err != nil {
		return nil, err
	}
	if review.Status == models.ReviewStatusCompleted {
		review.Status = models.ReviewStatusPending
		review.CommissionEarned = decimal.Zero
		review.CompletedAt = nil
	}
	review.Position = &position
	review.UseActualPrice = true
	return review, nil
}

// clearOverride removes a review's pin, returning it to pooled ordering.
func clearOverride(tx *gorm.DB, reviewID string) error {
	return tx.Model(&models.ProductReview{}).Where("id = ?", reviewID).
		Updates(map[string]interface{}{
			"position":         nil,
			"use_actual_price": false,
		}).Error
}

// nextContinuousPosition: strictly sequential append after the threshold.
func nextContinuousPosition(threshold int, positionedAtOrAfter int64) int {
	return threshold + 1 + int(positionedAtOrAfter)
}

func (s *PositionService) loadUserWithLevel(tx *gorm.DB, userID string) (*models.User, error) {
	var user models.User
	if err := tx.Preload("Level").First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// InsertAtPosition pins a product at an explicit queue position for one user,
// or moves it in the global catalog order when no user is given.
func (s *PositionService) InsertAtPosition(productID string, position int, userID *string) error {
	if position < 1 {
		return ErrInvalidPosition
	}
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.First(&product, "id = ?", productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if userID == nil {
			if err := tx.Model(&product).Update("use_actual_price", true).Error; err != nil {
				return err
			}
			return repositionProduct(tx, &product, position)
		}

		user, err := s.loadUserWithLevel(tx, *userID)
		if err != nil {
			return err
		}
		_, err = pinReview(tx, user, &product, position)
		return err
	})
}

// repositionProduct moves a product to a new catalog position, shifting every
// product in between by one so no two products share a position. Both UPDATEs
// run inside the caller's transaction.
func repositionProduct(tx *gorm.DB, product *models.Product, newPos int) error {
	old := product.Position
	if old == newPos {
		// Already there; reported as success, not an error.
		return nil
	}
	if newPos < old {
		err := tx.Model(&models.Product{}).
			Where("position >= ? AND position < ?", newPos, old).
			UpdateColumn("position", gorm.Expr("position + 1")).Error
		if err != nil {
			return err
		}
	} else {
		err := tx.Model(&models.Product{}).
			Where("position > ? AND position <= ?", old, newPos).
			UpdateColumn("position", gorm.Expr("position - 1")).Error
		if err != nil {
			return err
		}
	}
	return tx.Model(product).UpdateColumn("position", newPos).Error
}

// AddContinuousOrder appends a product to the next slot of the user's
// continuous-order region.
func (s *PositionService) AddContinuousOrder(userID, productID string) (int, error) {
	var assigned int
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		pos, _, err := s.continuousSlot(tx, userID)
		if err != nil {
			return err
		}
		var product models.Product
		if err := tx.First(&product, "id = ?", productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		user, err := s.loadUserWithLevel(tx, userID)
		if err != nil {
			return err
		}
		if _, err := pinReview(tx, user, &product, pos); err != nil {
			return err
		}
		assigned = pos
		return nil
	})
	return assigned, err
}

// ReplaceNextContinuousOrder computes the same slot as AddContinuousOrder but
// first evicts whatever review currently occupies it.
func (s *PositionService) ReplaceNextContinuousOrder(userID, productID string) (int, error) {
	var assigned int
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		pos, _, err := s.continuousSlot(tx, userID)
		if err != nil {
			return err
		}

		var occupant models.ProductReview
		err = tx.Where("user_id = ? AND position = ?", userID, pos).First(&occupant).Error
		if err == nil {
			if err := clearOverride(tx, occupant.ID); err != nil {
				return err
			}
			log.Printf("[POSITIONS] evicted review %s from slot %d for user %s", occupant.ID, pos, userID)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var product models.Product
		if err := tx.First(&product, "id = ?", productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		user, err := s.loadUserWithLevel(tx, userID)
		if err != nil {
			return err
		}
		if _, err := pinReview(tx, user, &product, pos); err != nil {
			return err
		}
		assigned = pos
		return nil
	})
	return assigned, err
}

// continuousSlot returns the next continuous-order position for a user:
// threshold + 1 + (reviews already positioned at or after threshold + 1).
func (s *PositionService) continuousSlot(tx *gorm.DB, userID string) (int, *models.User, error) {
	user, err := s.loadUserWithLevel(tx, userID)
	if err != nil {
		return 0, nil, err
	}
	if user.Level == nil {
		return 0, nil, ErrNoLevelAssigned
	}
	threshold := user.Level.ContinuousOrderThreshold()
	var count int64
	err = tx.Model(&models.ProductReview{}).
		Where("user_id = ? AND position IS NOT NULL AND position >= ?", userID, threshold+1).
		Count(&count).Error
	if err != nil {
		return 0, nil, err
	}
	return nextContinuousPosition(threshold, count), user, nil
}

// ResetContinuousOrders clears position and override flags for all of a user's
// reviews at or after the threshold — or all positioned reviews when the user
// has no level. Returns the number of rows cleared.
func (s *PositionService) ResetContinuousOrders(userID string) (int64, error) {
	var cleared int64
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		n, err := resetContinuousOrders(tx, userID)
		if err != nil {
			return err
		}
		cleared = n
		return nil
	})
	return cleared, err
}

func resetContinuousOrders(tx *gorm.DB, userID string) (int64, error) {
	var user models.User
	if err := tx.Preload("Level").First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrNotFound
		}
		return 0, err
	}

	q := tx.Model(&models.ProductReview{}).Where("user_id = ? AND position IS NOT NULL", userID)
	if user.Level != nil {
		q = q.Where("position >= ?", user.Level.ContinuousOrderThreshold()+1)
	}
	res := q.Updates(map[string]interface{}{
		"position":         nil,
		"use_actual_price": false,
	})
	return res.RowsAffected, res.Error
}

// --- Handlers ---

// HandleInsertAtPosition handles POST /admin/positions/insert
func (s *PositionService) HandleInsertAtPosition(c *fiber.Ctx) error {
	var req struct {
		ProductID string  `json:"product_id"`
		Position  *int    `json:"position"`
		UserID    *string `json:"user_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.ProductID == "" || req.Position == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "product_id and position are required"})
	}
	if req.UserID != nil {
		if err := requireManagedUser(s.DB, c, *req.UserID); err != nil {
			return respondError(c, err)
		}
	}
	if err := s.InsertAtPosition(req.ProductID, *req.Position, req.UserID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Product inserted at position", "position": *req.Position})
}

// HandleAddContinuousOrder handles POST /admin/continuous-orders
func (s *PositionService) HandleAddContinuousOrder(c *fiber.Ctx) error {
	return s.handleContinuous(c, s.AddContinuousOrder, "Continuous order added")
}

// HandleReplaceNextContinuousOrder handles POST /admin/continuous-orders/replace-next
func (s *PositionService) HandleReplaceNextContinuousOrder(c *fiber.Ctx) error {
	return s.handleContinuous(c, s.ReplaceNextContinuousOrder, "Next continuous order replaced")
}

func (s *PositionService) handleContinuous(c *fiber.Ctx, op func(string, string) (int, error), message string) error {
	var req struct {
		UserID    string `json:"user_id"`
		ProductID string `json:"product_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.UserID == "" || req.ProductID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_id and product_id are required"})
	}
	if err := requireManagedUser(s.DB, c, req.UserID); err != nil {
		return respondError(c, err)
	}
	pos, err := op(req.UserID, req.ProductID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": message, "position": pos})
}

// HandleResetContinuousOrders handles POST /admin/continuous-orders/reset
func (s *PositionService) HandleResetContinuousOrders(c *fiber.Ctx) error {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.UserID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_id is required"})
	}
	if err := requireManagedUser(s.DB, c, req.UserID); err != nil {
		return respondError(c, err)
	}
	cleared, err := s.ResetContinuousOrders(req.UserID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": fmt.Sprintf("%d continuous order(s) cleared", cleared), "cleared": cleared})
}
