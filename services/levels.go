package services

import (
	"errors"
	"fmt"
	"strings"

	"review-task-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type LevelService struct {
	DB *gorm.DB
}

func NewLevelService(db *gorm.DB) *LevelService {
	return &LevelService{DB: db}
}

// ListLevels handles GET /admin/levels.
func (s *LevelService) ListLevels(c *fiber.Ctx) error {
	var levels []models.Level
	if err := s.DB.Order("level_number ASC").Find(&levels).Error; err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"levels": levels, "count": len(levels)})
}

type levelRequest struct {
	LevelNumber                *int    `json:"level"`
	LevelName                  *string `json:"level_name"`
	Status                     *string `json:"status"`
	Benefits                   *string `json:"benefits"`
	CommissionRate             *string `json:"commission_rate"`
	FrozenCommissionRate       *string `json:"frozen_commission_rate"`
	MinOrders                  *int    `json:"min_orders"`
	StartContinuousOrdersAfter *int    `json:"start_continuous_orders_after"`
	PriceMinPercent            *string `json:"price_min_percent"`
	PriceMaxPercent            *string `json:"price_max_percent"`
}

// CreateLevel handles POST /admin/levels.
func (s *LevelService) CreateLevel(c *fiber.Ctx) error {
	var req levelRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.LevelNumber == nil || req.LevelName == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "level and level_name are required"})
	}

	level := models.Level{
		LevelNumber:     *req.LevelNumber,
		LevelName:       *req.LevelName,
		Status:          models.LevelStatusActive,
		PriceMinPercent: decimal.NewFromInt(30),
		PriceMaxPercent: decimal.NewFromInt(70),
	}
	if err := applyLevelRequest(&level, &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := s.DB.Create(&level).Error; err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Level created successfully", "level": level})
}

// UpdateLevel handles PATCH /admin/levels/:id. The level number is immutable
// identity once created.
func (s *LevelService) UpdateLevel(c *fiber.Ctx) error {
	id := c.Params("id")

	var level models.Level
	if err := s.DB.First(&level, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondError(c, ErrNotFound)
		}
		return respondError(c, err)
	}

	var req levelRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	req.LevelNumber = nil
	if err := applyLevelRequest(&level, &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := s.DB.Save(&level).Error; err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Level updated successfully", "level": level})
}

func applyLevelRequest(level *models.Level, req *levelRequest) error {
	if req.LevelNumber != nil {
		level.LevelNumber = *req.LevelNumber
	}
	if req.LevelName != nil {
		level.LevelName = *req.LevelName
	}
	if req.Status != nil {
		level.Status = models.LevelStatus(strings.ToUpper(*req.Status))
	}
	if req.Benefits != nil {
		level.Benefits = req.Benefits
	}
	if req.CommissionRate != nil {
		rate, err := decimal.NewFromString(*req.CommissionRate)
		if err != nil {
			return fmt.Errorf("commission_rate must be a decimal")
		}
		level.CommissionRate = rate
	}
	if req.FrozenCommissionRate != nil {
		rate, err := decimal.NewFromString(*req.FrozenCommissionRate)
		if err != nil {
			return fmt.Errorf("frozen_commission_rate must be a decimal")
		}
		level.FrozenCommissionRate = &rate
	}
	if req.MinOrders != nil {
		if *req.MinOrders < 0 {
			return fmt.Errorf("min_orders must not be negative")
		}
		level.MinOrders = *req.MinOrders
	}
	if req.StartContinuousOrdersAfter != nil {
		level.StartContinuousOrdersAfter = req.StartContinuousOrdersAfter
	}
	if req.PriceMinPercent != nil {
		v, err := decimal.NewFromString(*req.PriceMinPercent)
		if err != nil {
			return fmt.Errorf("price_min_percent must be a decimal")
		}
		level.PriceMinPercent = v
	}
	if req.PriceMaxPercent != nil {
		v, err := decimal.NewFromString(*req.PriceMaxPercent)
		if err != nil {
			return fmt.Errorf("price_max_percent must be a decimal")
		}
		level.PriceMaxPercent = v
	}
	if level.PriceMinPercent.GreaterThan(level.PriceMaxPercent) {
		return fmt.Errorf("price_min_percent must not exceed price_max_percent")
	}
	return nil
}

// AssignProducts handles POST /admin/levels/:id/products — replaces (or clears)
// the level's product catalog.
func (s *LevelService) AssignProducts(c *fiber.Ctx) error {
	id := c.Params("id")

	var level models.Level
	if err := s.DB.First(&level, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondError(c, ErrNotFound)
		}
		return respondError(c, err)
	}

	var req struct {
		ProductIDs []string `json:"product_ids"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if len(req.ProductIDs) == 0 {
		if err := s.DB.Model(&level).Association("Products").Clear(); err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"message": fmt.Sprintf("All products removed from level %q", level.LevelName)})
	}

	var products []models.Product
	if err := s.DB.Where("id IN ?", req.ProductIDs).Find(&products).Error; err != nil {
		return respondError(c, err)
	}
	if err := s.DB.Model(&level).Association("Products").Replace(&products); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message":       fmt.Sprintf("%d product(s) assigned to level %q", len(products), level.LevelName),
		"product_count": len(products),
	})
}

// ProductsByLevel handles GET /admin/levels/:id/products.
func (s *LevelService) ProductsByLevel(c *fiber.Ctx) error {
	id := c.Params("id")

	var level models.Level
	if err := s.DB.First(&level, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondError(c, ErrNotFound)
		}
		return respondError(c, err)
	}

	q := s.DB.
		Joins("JOIN level_products lp ON lp.product_id = products.id").
		Where("lp.level_id = ?", level.ID)
	if status := c.Query("status"); status != "" {
		q = q.Where("products.status = ?", strings.ToUpper(status))
	}

	var products []models.Product
	if err := q.Order("products.position ASC").Find(&products).Error; err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"level": level, "products": products, "count": len(products)})
}
