package services

import (
	"hash/fnv"
	"math/rand"

	"review-task-system/models"

	"gorm.io/gorm"
)

// PoolSeed derives the shuffle seed for a user's task pool. The same
// (user, level) pair must always produce the same seed so the served queue is
// stable across requests and restarts without being persisted.
func PoolSeed(userID, levelID string) int64 {
	h := fnv.New64a()
	h.Write([]byte(userID))
	h.Write([]byte{0})
	h.Write([]byte(levelID))
	return int64(h.Sum64())
}

// PermutePool returns a deterministic pseudo-random reordering of products.
// Pure: same seed, same output.
func PermutePool(products []models.Product, seed int64) []models.Product {
	out := make([]models.Product, len(products))
	copy(out, products)
	r := rand.New(rand.NewSource(seed))
	r.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

// BuildBasePool assembles the user's base task pool: ACTIVE products assigned
// to their level, cheapest first, up to MinOrders; if the level's catalog is
// too small, the remainder is filled from any other ACTIVE products (cheapest
// first). The result is shuffled with the user's deterministic seed.
func BuildBasePool(db *gorm.DB, user *models.User) ([]models.Product, error) {
	if user.Level == nil {
		return nil, ErrNoLevelAssigned
	}
	level := user.Level

	var pool []models.Product
	err := db.
		Joins("JOIN level_products lp ON lp.product_id = products.id").
		Where("lp.level_id = ? AND products.status = ?", level.ID, models.ProductStatusActive).
		Order("products.price ASC").
		Limit(level.MinOrders).
		Find(&pool).Error
	if err != nil {
		return nil, err
	}

	if len(pool) < level.MinOrders {
		seen := make([]string, 0, len(pool))
		for _, p := range pool {
			seen = append(seen, p.ID)
		}
		q := db.Where("status = ?", models.ProductStatusActive)
		if len(seen) > 0 {
			q = q.Where("id NOT IN ?", seen)
		}
		var fill []models.Product
		if err := q.Order("price ASC").Limit(level.MinOrders - len(pool)).Find(&fill).Error; err != nil {
			return nil, err
		}
		pool = append(pool, fill...)
	}

	return PermutePool(pool, PoolSeed(user.ID, level.ID)), nil
}
