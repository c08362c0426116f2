package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"review-task-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserService struct {
	DB *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{DB: db}
}

// requireManagedUser enforces operator scope: admins act on anyone, agents only
// on users they created.
func requireManagedUser(db *gorm.DB, c *fiber.Ctx, targetID string) error {
	actorID, _ := c.Locals("user_id").(string)

	var actor models.User
	if err := db.First(&actor, "id = ?", actorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrForbidden
		}
		return err
	}
	if actor.IsAdmin() {
		return nil
	}
	if !actor.IsAgent() {
		return ErrForbidden
	}

	var target models.User
	if err := db.First(&target, "id = ?", targetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if target.CreatedByID == nil || *target.CreatedByID != actor.ID {
		return ErrForbidden
	}
	return nil
}

// SearchUsers handles GET /admin/users?q=&limit=
func (s *UserService) SearchUsers(c *fiber.Ctx) error {
	query := c.Query("q", "")
	limit, err := strconv.Atoi(c.Query("limit", "50"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 50
	}

	db := s.DB.Model(&models.User{}).Preload("Level").Limit(limit)
	if query != "" {
		term := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
		db = db.Where(
			"LOWER(username) LIKE ? OR LOWER(email) LIKE ? OR phone_number LIKE ?",
			term, term, term,
		)
	}

	// Agents only see their own users.
	actorID, _ := c.Locals("user_id").(string)
	var actor models.User
	if err := s.DB.First(&actor, "id = ?", actorID).Error; err != nil {
		return respondError(c, err)
	}
	if actor.IsAgent() {
		db = db.Where("created_by_id = ?", actor.ID)
	}

	var users []models.User
	if err := db.Find(&users).Error; err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"users": users, "count": len(users)})
}

// AdjustBalance handles POST /admin/users/:id/balance — operator credit/debit
// with a ledger row. Unfreezing itself stays with settlement: the next
// submission re-runs the comparison against the updated amounts.
func (s *UserService) AdjustBalance(c *fiber.Ctx) error {
	targetID := c.Params("id")

	var req struct {
		Amount string `json:"amount"`
		Remark string `json:"remark"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.IsZero() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "amount must be a non-zero decimal"})
	}

	if err := requireManagedUser(s.DB, c, targetID); err != nil {
		return respondError(c, err)
	}

	var newBalance decimal.Decimal
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		var user models.User
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&user, "id = ?", targetID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		txnType := models.TransactionTypeDeposit
		if amount.IsNegative() {
			txnType = models.TransactionTypeAdjustment
		}
		remark := req.Remark
		if remark == "" {
			remark = fmt.Sprintf("Operator balance adjustment: %s", amount)
		}
		remarkType := string(models.TransactionTypeAdjustment)
		txn := models.Transaction{
			MemberAccountID: user.ID,
			Type:            txnType,
			Amount:          amount,
			Remark:          &remark,
			RemarkType:      &remarkType,
			Status:          models.TransactionStatusCompleted,
		}
		if err := tx.Create(&txn).Error; err != nil {
			return err
		}

		newBalance = user.Balance.Add(amount)
		updates := map[string]interface{}{"balance": newBalance}
		// A top-up while frozen also raises the frozen snapshot: that snapshot is
		// what the pending task settles against, so without this the task could
		// never become affordable.
		if user.BalanceFrozen && user.BalanceFrozenAmount != nil && amount.IsPositive() {
			updates["balance_frozen_amount"] = user.BalanceFrozenAmount.Add(amount)
		}
		return tx.Model(&user).Updates(updates).Error
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Balance adjusted", "new_balance": newBalance})
}
