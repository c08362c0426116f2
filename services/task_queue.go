package services

import (
	"errors"
	"log"
	"strconv"

	"review-task-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type TaskService struct {
	DB *gorm.DB
}

func NewTaskService(db *gorm.DB) *TaskService {
	return &TaskService{DB: db}
}

// QueueEntry is one slot of a user's combined task queue.
type QueueEntry struct {
	Slot    int                   `json:"slot"`
	Pinned  bool                  `json:"pinned"`
	Product models.Product        `json:"product"`
	Review  *models.ProductReview `json:"review,omitempty"`
}

// CombinedQueue builds the user's served queue: for each slot the operator-pinned
// review wins; otherwise the next unconsumed entry of the deterministic base pool
// fills it. Pins beyond MinOrders extend the queue.
func (s *TaskService) CombinedQueue(tx *gorm.DB, user *models.User) ([]QueueEntry, error) {
	if user.Level == nil {
		return nil, ErrNoLevelAssigned
	}

	var pinned []models.ProductReview
	err := tx.Where("user_id = ? AND position IS NOT NULL", user.ID).
		Preload("Product").
		Find(&pinned).Error
	if err != nil {
		return nil, err
	}

	pinnedBySlot := make(map[int]*models.ProductReview, len(pinned))
	pinnedProducts := make(map[string]bool, len(pinned))
	queueLen := user.Level.MinOrders
	for i := range pinned {
		r := &pinned[i]
		pinnedBySlot[*r.Position] = r
		pinnedProducts[r.ProductID] = true
		if *r.Position > queueLen {
			queueLen = *r.Position
		}
	}

	pool, err := BuildBasePool(tx, user)
	if err != nil {
		return nil, err
	}

	// Existing reviews for pool products, so served entries carry status/price.
	poolIDs := make([]string, 0, len(pool))
	for _, p := range pool {
		if !pinnedProducts[p.ID] {
			poolIDs = append(poolIDs, p.ID)
		}
	}
	reviewByProduct := make(map[string]*models.ProductReview)
	if len(poolIDs) > 0 {
		var existing []models.ProductReview
		if err := tx.Where("user_id = ? AND product_id IN ?", user.ID, poolIDs).Find(&existing).Error; err != nil {
			return nil, err
		}
		for i := range existing {
			reviewByProduct[existing[i].ProductID] = &existing[i]
		}
	}

	entries := make([]QueueEntry, 0, queueLen)
	next := 0
	for slot := 1; slot <= queueLen; slot++ {
		if r, ok := pinnedBySlot[slot]; ok {
			entry := QueueEntry{Slot: slot, Pinned: true, Review: r}
			if r.Product != nil {
				entry.Product = *r.Product
			}
			entries = append(entries, entry)
			continue
		}
		for next < len(pool) && pinnedProducts[pool[next].ID] {
			next++
		}
		if next >= len(pool) {
			continue
		}
		p := pool[next]
		next++
		entries = append(entries, QueueEntry{
			Slot:    slot,
			Product: p,
			Review:  reviewByProduct[p.ID],
		})
	}
	return entries, nil
}

// GetNextTasks returns a page of the combined queue, materializing review rows
// (and their one-time agreed prices) for the served window.
func (s *TaskService) GetNextTasks(user *models.User, limit, offset int) ([]QueueEntry, int, error) {
	var page []QueueEntry
	var total int
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		entries, err := s.CombinedQueue(tx, user)
		if err != nil {
			return err
		}
		total = len(entries)
		if offset >= len(entries) {
			page = []QueueEntry{}
			return nil
		}
		end := offset + limit
		if end > len(entries) {
			end = len(entries)
		}
		page = entries[offset:end]
		for i := range page {
			if page[i].Review == nil {
				review, err := ensureReview(tx, user, &page[i].Product)
				if err != nil {
					return err
				}
				page[i].Review = review
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return page, total, nil
}

// NextTask returns the first slot whose review is not COMPLETED, or nil when the
// queue is exhausted.
func (s *TaskService) NextTask(user *models.User) (*QueueEntry, error) {
	var found *QueueEntry
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		entries, err := s.CombinedQueue(tx, user)
		if err != nil {
			return err
		}
		for i := range entries {
			if entries[i].Review != nil && entries[i].Review.Status == models.ReviewStatusCompleted {
				continue
			}
			if entries[i].Review == nil {
				review, err := ensureReview(tx, user, &entries[i].Product)
				if err != nil {
					return err
				}
				entries[i].Review = review
			}
			found = &entries[i]
			return nil
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// --- Handlers ---

func (s *TaskService) currentUser(c *fiber.Ctx) (*models.User, error) {
	userID, _ := c.Locals("user_id").(string)
	var user models.User
	if err := s.DB.Preload("Level").First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// ListTasks handles GET /tasks?limit=&offset=
func (s *TaskService) ListTasks(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return respondError(c, err)
	}

	limit, err := strconv.Atoi(c.Query("limit", "20"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 20
	}
	offset, err := strconv.Atoi(c.Query("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	entries, total, err := s.GetNextTasks(user, limit, offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"tasks":  entries,
		"count":  len(entries),
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// GetNext handles GET /tasks/next
func (s *TaskService) GetNext(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return respondError(c, err)
	}
	entry, err := s.NextTask(user)
	if err != nil {
		return respondError(c, err)
	}
	if entry == nil {
		return c.JSON(fiber.Map{"task": nil, "message": "All tasks completed"})
	}
	return c.JSON(fiber.Map{"task": entry})
}

// Dashboard handles GET /dashboard: balance, today's commission, entitlements,
// completed count, level payload.
func (s *TaskService) Dashboard(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return respondError(c, err)
	}

	todayCommission, err := TodayCommission(s.DB, user.ID)
	if err != nil {
		log.Printf("[DASHBOARD] failed to sum today's commission for %s: %v", user.ID, err)
		return respondError(c, err)
	}

	entitlements := 0
	if user.Level != nil {
		entitlements = user.Level.MinOrders
	}

	resp := fiber.Map{
		"records_summary": fiber.Map{
			"total_balance":      user.Balance,
			"todays_commission":  todayCommission,
			"entitlements":       entitlements,
			"completed":          user.CompletedCount,
			"balance_frozen":     user.BalanceFrozen,
		},
		"level":           user.Level,
		"commission_rate": nil,
	}
	if user.Level != nil {
		resp["commission_rate"] = user.Level.CommissionRate
	}
	return c.JSON(resp)
}

// ListByReviewStatus handles GET /tasks/by-status?review_status=PENDING|COMPLETED|NOT_COMPLETED
func (s *TaskService) ListByReviewStatus(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return respondError(c, err)
	}
	if user.Level == nil {
		return c.JSON(fiber.Map{"products": []models.Product{}, "count": 0, "message": "No level assigned. No products available."})
	}

	reviewStatus := c.Query("review_status")
	q := s.DB.
		Joins("JOIN level_products lp ON lp.product_id = products.id").
		Where("lp.level_id = ? AND products.status = ?", user.Level.ID, models.ProductStatusActive)

	switch reviewStatus {
	case "":
		// no filter
	case "COMPLETED", "PENDING":
		q = q.Where("products.id IN (?)", s.DB.Model(&models.ProductReview{}).
			Select("product_id").
			Where("user_id = ? AND status = ?", user.ID, reviewStatus))
	case "NOT_COMPLETED":
		q = q.Where("products.id NOT IN (?)", s.DB.Model(&models.ProductReview{}).
			Select("product_id").
			Where("user_id = ?", user.ID))
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid review_status. Use: PENDING, COMPLETED, or NOT_COMPLETED",
		})
	}

	var products []models.Product
	if err := q.Order("products.position ASC").Find(&products).Error; err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"review_status": orDefault(reviewStatus, "ALL"),
		"level":         user.Level,
		"products":      products,
		"count":         len(products),
	})
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// respondError maps service sentinel errors onto HTTP responses.
func respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	case errors.Is(err, ErrNoLevelAssigned):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "no level assigned"})
	case errors.Is(err, ErrInvalidPosition):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid position"})
	case errors.Is(err, ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden"})
	default:
		log.Printf("[HTTP] internal error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}
