package services

import (
	"errors"
	"log"
	"time"

	"review-task-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// ProgressService owns the completion counter and operator-triggered replays.
type ProgressService struct {
	DB *gorm.DB
}

func NewProgressService(db *gorm.DB) *ProgressService {
	return &ProgressService{DB: db}
}

// ResetLevelProgress lets a user replay a level: completed reviews for the
// level's products are deleted, same-day completed reviews and completed
// commission ledger rows go with them (so today's commission reports zero),
// and the counter resets. The balance is deliberately left untouched — money
// already earned stays earned.
func (s *ProgressService) ResetLevelProgress(userID, levelID string) (int64, error) {
	var deleted int64
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		var level models.Level
		if err := tx.First(&level, "id = ?", levelID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		n, err := resetLevelProgressTx(tx, userID, levelID)
		if err != nil {
			return err
		}
		deleted = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	log.Printf("[PROGRESS] reset level %s for user %s: %d review(s) deleted, balance untouched", levelID, userID, deleted)
	return deleted, nil
}

// AssignLevel sets (or clears) a user's level. Assignment always resets the
// continuous-order region; when a level is assigned the user also gets a fresh
// progress reset for it.
func (s *ProgressService) AssignLevel(userID string, levelID *string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if levelID != nil {
			var level models.Level
			if err := tx.First(&level, "id = ?", *levelID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrNotFound
				}
				return err
			}
		}

		if _, err := resetContinuousOrders(tx, userID); err != nil {
			return err
		}
		if err := tx.Model(&user).Update("level_id", levelID).Error; err != nil {
			return err
		}
		if levelID == nil {
			return nil
		}

		_, err := resetLevelProgressTx(tx, userID, *levelID)
		return err
	})
}

// resetLevelProgressTx runs the reset inside the caller's transaction.
func resetLevelProgressTx(tx *gorm.DB, userID, levelID string) (int64, error) {
	res := tx.Where(
		"user_id = ? AND status = ? AND product_id IN (?)",
		userID, models.ReviewStatusCompleted,
		tx.Table("level_products").Select("product_id").Where("level_id = ?", levelID),
	).Delete(&models.ProductReview{})
	if res.Error != nil {
		return 0, res.Error
	}
	deleted := res.RowsAffected

	res = tx.Where(
		"user_id = ? AND status = ? AND completed_at >= ?",
		userID, models.ReviewStatusCompleted, startOfToday(),
	).Delete(&models.ProductReview{})
	if res.Error != nil {
		return 0, res.Error
	}
	deleted += res.RowsAffected

	err := tx.Where(
		"member_account_id = ? AND type = ? AND status = ?",
		userID, models.TransactionTypeCommission, models.TransactionStatusCompleted,
	).Delete(&models.Transaction{}).Error
	if err != nil {
		return 0, err
	}

	err = tx.Model(&models.User{}).Where("id = ?", userID).
		UpdateColumn("completed_count", 0).Error
	return deleted, err
}

func startOfToday() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// --- Handlers ---

// HandleResetLevelProgress handles POST /admin/progress/reset
func (s *ProgressService) HandleResetLevelProgress(c *fiber.Ctx) error {
	var req struct {
		UserID  string `json:"user_id"`
		LevelID string `json:"level_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.UserID == "" || req.LevelID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_id and level_id are required"})
	}
	if err := requireManagedUser(s.DB, c, req.UserID); err != nil {
		return respondError(c, err)
	}
	deleted, err := s.ResetLevelProgress(req.UserID, req.LevelID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message":               "Level progress reset",
		"reviews_deleted":       deleted,
		"commission_unaffected": true,
	})
}

// HandleAssignLevel handles POST /admin/users/assign-level
func (s *ProgressService) HandleAssignLevel(c *fiber.Ctx) error {
	var req struct {
		UserID  string  `json:"user_id"`
		LevelID *string `json:"level_id"`
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
	if err := s.AssignLevel(req.UserID, req.LevelID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Level assignment updated"})
}
