package services

import (
	"strconv"

	"review-task-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TransactionService struct {
	DB *gorm.DB
}

func NewTransactionService(db *gorm.DB) *TransactionService {
	return &TransactionService{DB: db}
}

// TodayCommission sums a user's completed commission payouts since local midnight.
func TodayCommission(db *gorm.DB, userID string) (decimal.Decimal, error) {
	var row struct {
		Total decimal.Decimal
	}
	err := db.Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("member_account_id = ? AND type = ? AND status = ? AND created_at >= ?",
			userID, models.TransactionTypeCommission, models.TransactionStatusCompleted, startOfToday()).
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, err
	}
	return row.Total, nil
}

// ListMine handles GET /transactions?type=&limit=&offset=
func (s *TransactionService) ListMine(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)

	limit, err := strconv.Atoi(c.Query("limit", "50"))
	if err != nil || limit <= 0 || limit > 200 {
		limit = 50
	}
	offset, err := strconv.Atoi(c.Query("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	q := s.DB.Where("member_account_id = ?", userID)
	if t := c.Query("type"); t != "" {
		q = q.Where("type = ?", t)
	}

	var txns []models.Transaction
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&txns).Error; err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"transactions": txns, "count": len(txns)})
}
