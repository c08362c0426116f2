package services

import (
	"errors"
	"log"
	"path/filepath"
	"strings"
	"time"

	"review-task-system/models"
	"review-task-system/utils"

	"github.com/go-co-op/gocron/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ProductService struct {
	DB *gorm.DB
}

func NewProductService(db *gorm.DB) *ProductService {
	return &ProductService{DB: db}
}

// ListProducts handles GET /admin/products with status/search/price filters.
func (s *ProductService) ListProducts(c *fiber.Ctx) error {
	q := s.DB.Model(&models.Product{})

	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", strings.ToUpper(status))
	}
	if search := c.Query("search"); search != "" {
		term := "%" + strings.ToLower(strings.TrimSpace(search)) + "%"
		q = q.Where("LOWER(title) LIKE ? OR LOWER(COALESCE(description, '')) LIKE ?", term, term)
	}
	if minPrice := c.Query("min_price"); minPrice != "" {
		if v, err := decimal.NewFromString(minPrice); err == nil {
			q = q.Where("price >= ?", v)
		}
	}
	if maxPrice := c.Query("max_price"); maxPrice != "" {
		if v, err := decimal.NewFromString(maxPrice); err == nil {
			q = q.Where("price <= ?", v)
		}
	}

	var products []models.Product
	if err := q.Order("position ASC, created_at DESC").Find(&products).Error; err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"products": products, "count": len(products)})
}

// CreateProduct handles POST /admin/products (multipart: fields + optional image).
func (s *ProductService) CreateProduct(c *fiber.Ctx) error {
	title := strings.TrimSpace(c.FormValue("title"))
	if title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "title is required"})
	}
	price, err := decimal.NewFromString(c.FormValue("price"))
	if err != nil || price.IsNegative() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "price must be a non-negative decimal"})
	}

	product := models.Product{
		Title:  title,
		Price:  price,
		Status: models.ProductStatusActive,
	}
	if desc := c.FormValue("description"); desc != "" {
		product.Description = &desc
	}
	if status := c.FormValue("status"); status != "" {
		product.Status = models.ProductStatus(strings.ToUpper(status))
	}
	if activateAt := c.FormValue("activate_at"); activateAt != "" {
		t, err := time.Parse(time.RFC3339, activateAt)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "activate_at must be RFC3339"})
		}
		product.ActivateAt = &t
	}

	if imageFile, err := c.FormFile("image"); err == nil && imageFile.Size > 0 {
		ext := filepath.Ext(imageFile.Filename)
		if ext == "" {
			ext = ".png"
		}
		key := "products/" + slug.Make(title) + "-" + uuid.NewString()[:8] + ext
		imageURL, err := utils.UploadFileToR2(imageFile, key)
		if err != nil {
			log.Printf("[PRODUCTS] image upload failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to upload product image"})
		}
		product.ImageURL = &imageURL
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		// Append at the end of the catalog order.
		var maxPos int
		row := tx.Model(&models.Product{}).Select("COALESCE(MAX(position), 0)")
		if err := row.Scan(&maxPos).Error; err != nil {
			return err
		}
		product.Position = maxPos + 1
		return tx.Create(&product).Error
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Product created successfully", "product": product})
}

// UpdateProduct handles PATCH /admin/products/:id.
func (s *ProductService) UpdateProduct(c *fiber.Ctx) error {
	id := c.Params("id")

	var product models.Product
	if err := s.DB.First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondError(c, ErrNotFound)
		}
		return respondError(c, err)
	}

	var req struct {
		Title          *string `json:"title"`
		Description    *string `json:"description"`
		Price          *string `json:"price"`
		Status         *string `json:"status"`
		UseActualPrice *bool   `json:"use_actual_price"`
		ActivateAt     *string `json:"activate_at"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Price != nil {
		price, err := decimal.NewFromString(*req.Price)
		if err != nil || price.IsNegative() {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "price must be a non-negative decimal"})
		}
		updates["price"] = price
	}
	if req.Status != nil {
		updates["status"] = strings.ToUpper(*req.Status)
	}
	if req.UseActualPrice != nil {
		updates["use_actual_price"] = *req.UseActualPrice
	}
	if req.ActivateAt != nil {
		t, err := time.Parse(time.RFC3339, *req.ActivateAt)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "activate_at must be RFC3339"})
		}
		updates["activate_at"] = t
	}

	if len(updates) > 0 {
		if err := s.DB.Model(&product).Updates(updates).Error; err != nil {
			return respondError(c, err)
		}
	}
	return c.JSON(fiber.Map{"message": "Product updated successfully", "product": product})
}

// DeleteProduct handles DELETE /admin/products/:id (soft delete).
func (s *ProductService) DeleteProduct(c *fiber.Ctx) error {
	id := c.Params("id")
	res := s.DB.Delete(&models.Product{}, "id = ?", id)
	if res.Error != nil {
		return respondError(c, res.Error)
	}
	if res.RowsAffected == 0 {
		return respondError(c, ErrNotFound)
	}
	return c.JSON(fiber.Map{"message": "Product deleted successfully"})
}

// StartActivationScheduler flips INACTIVE products to ACTIVE once their
// activate_at time passes.
func (s *ProductService) StartActivationScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			var products []models.Product
			now := time.Now()
			err := s.DB.Where("status = ? AND activate_at IS NOT NULL AND activate_at <= ?",
				models.ProductStatusInactive, now).
				Find(&products).Error
			if err != nil {
				log.Printf("[Scheduler] DB error: %v", err)
				return
			}

			for _, p := range products {
				updates := map[string]interface{}{"status": models.ProductStatusActive, "activate_at": nil}
				if err := s.DB.Model(&p).Updates(updates).Error; err != nil {
					log.Printf("[Scheduler] Failed to activate product %s: %v", p.ID, err)
				} else {
					log.Printf("✅ Auto-activated product: %s", p.Title)
				}
			}
		}),
	)
}
