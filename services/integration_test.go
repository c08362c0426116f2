package services

import (
	"os"
	"testing"

	"review-task-system/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// openTestDB connects to TEST_DATABASE_URL, or skips. These tests exercise the
// transactional settlement paths against a real Postgres.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping DB-backed tests")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	err = db.AutoMigrate(
		&models.User{},
		&models.Level{},
		&models.Product{},
		&models.ProductReview{},
		&models.Transaction{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	t.Cleanup(func() {
		db.Exec("DELETE FROM transactions")
		db.Exec("DELETE FROM product_reviews")
		db.Exec("DELETE FROM level_products")
		db.Exec("DELETE FROM products")
		db.Exec("DELETE FROM users")
		db.Exec("DELETE FROM levels")
	})
	return db
}

func createLevel(t *testing.T, db *gorm.DB, minOrders int) *models.Level {
	t.Helper()
	level := models.Level{
		ID:              uuid.NewString(),
		LevelNumber:     int(uuid.New().ID() % 100000),
		LevelName:       "VIP",
		CommissionRate:  decimal.NewFromInt(10),
		MinOrders:       minOrders,
		PriceMinPercent: decimal.NewFromInt(30),
		PriceMaxPercent: decimal.NewFromInt(70),
	}
	if err := db.Create(&level).Error; err != nil {
		t.Fatalf("create level: %v", err)
	}
	return &level
}

func createUser(t *testing.T, db *gorm.DB, level *models.Level, balance string) *models.User {
	t.Helper()
	bal, _ := decimal.NewFromString(balance)
	id := uuid.NewString()
	user := models.User{
		ID:          id,
		Email:       id + "@test.local",
		Username:    "u-" + id[:8],
		PhoneNumber: "+1" + id[:10],
		Balance:     bal,
	}
	if level != nil {
		user.LevelID = &level.ID
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return &user
}

func createActualPriceProduct(t *testing.T, db *gorm.DB, level *models.Level, price string, position int) *models.Product {
	t.Helper()
	p, _ := decimal.NewFromString(price)
	product := models.Product{
		ID:             uuid.NewString(),
		Title:          "Product " + uuid.NewString()[:8],
		Price:          p,
		Status:         models.ProductStatusActive,
		Position:       position,
		UseActualPrice: true,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	if level != nil {
		if err := db.Model(level).Association("Products").Append(&product); err != nil {
			t.Fatalf("assign product to level: %v", err)
		}
	}
	return &product
}

func TestFreezeAndUnfreeze(t *testing.T) {
	db := openTestDB(t)
	svc := NewSettlementService(db)

	level := createLevel(t, db, 5)
	user := createUser(t, db, level, "50.00")
	product := createActualPriceProduct(t, db, level, "70.00", 1)

	// balance 50 < price 70: PENDING, cost reserved, snapshot taken.
	res, err := svc.SubmitReview(user.ID, product.ID, "first try")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Status != models.ReviewStatusPending {
		t.Fatalf("expected PENDING, got %s", res.Status)
	}

	var fresh models.User
	db.First(&fresh, "id = ?", user.ID)
	if !fresh.BalanceFrozen {
		t.Fatal("expected balance_frozen=true")
	}
	if fresh.BalanceFrozenAmount == nil || !fresh.BalanceFrozenAmount.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected snapshot 50.00, got %v", fresh.BalanceFrozenAmount)
	}
	if !fresh.Balance.Equal(decimal.NewFromInt(-20)) {
		t.Fatalf("expected live balance -20.00, got %s", fresh.Balance)
	}

	// Resubmitting while still unaffordable must not debit again.
	if _, err := svc.SubmitReview(user.ID, product.ID, "still waiting"); err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	db.First(&fresh, "id = ?", user.ID)
	if !fresh.Balance.Equal(decimal.NewFromInt(-20)) {
		t.Fatalf("second submit debited again: balance %s", fresh.Balance)
	}

	// Top up so the snapshot covers the price: 50 + 100 = 150 >= 70.
	snapshot := fresh.BalanceFrozenAmount.Add(decimal.NewFromInt(100))
	db.Model(&fresh).Updates(map[string]interface{}{
		"balance":               fresh.Balance.Add(decimal.NewFromInt(100)),
		"balance_frozen_amount": snapshot,
	})

	res, err = svc.SubmitReview(user.ID, product.ID, "done")
	if err != nil {
		t.Fatalf("final submit: %v", err)
	}
	if res.Status != models.ReviewStatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", res.Status)
	}
	// Frozen completion pays the default 6% rate: 70 × 6% = 4.20.
	if res.Commission == nil || !res.Commission.Equal(decimal.NewFromFloat(4.20)) {
		t.Fatalf("expected commission 4.20, got %v", res.Commission)
	}

	db.First(&fresh, "id = ?", user.ID)
	if fresh.BalanceFrozen || fresh.BalanceFrozenAmount != nil {
		t.Fatal("frozen fields not cleared after completion")
	}
	if !fresh.Balance.Equal(decimal.NewFromFloat(84.20)) {
		t.Fatalf("expected balance 84.20, got %s", fresh.Balance)
	}
	if fresh.CompletedCount != 1 {
		t.Fatalf("expected completed_count 1, got %d", fresh.CompletedCount)
	}
}

func TestSettlementIdempotent(t *testing.T) {
	db := openTestDB(t)
	svc := NewSettlementService(db)

	level := createLevel(t, db, 5)
	user := createUser(t, db, level, "1000.00")
	product := createActualPriceProduct(t, db, level, "100.00", 1)

	first, err := svc.SubmitReview(user.ID, product.ID, "great")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if first.Status != models.ReviewStatusCompleted || first.Commission == nil {
		t.Fatalf("expected completed with commission, got %+v", first)
	}

	second, err := svc.SubmitReview(user.ID, product.ID, "updated note")
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if !second.AlreadyDone {
		t.Fatal("expected idempotent resubmission")
	}
	if !second.NewBalance.Equal(first.NewBalance) {
		t.Fatalf("resubmission changed balance: %s -> %s", first.NewBalance, second.NewBalance)
	}

	var count int64
	db.Model(&models.Transaction{}).
		Where("member_account_id = ? AND type = ?", user.ID, models.TransactionTypeCommission).
		Count(&count)
	if count != 1 {
		t.Fatalf("expected exactly one commission ledger row, got %d", count)
	}
}

func TestTrainingAccountSplit(t *testing.T) {
	db := openTestDB(t)
	svc := NewSettlementService(db)

	level := createLevel(t, db, 5)
	origin := createUser(t, db, level, "0.00")
	training := createUser(t, db, level, "1000.00")
	db.Model(training).Updates(map[string]interface{}{
		"is_training_account": true,
		"original_account_id": origin.ID,
	})

	product := createActualPriceProduct(t, db, level, "100.00", 1)

	// 100 × 10% = 10.00 commission, 30% of that = 3.00 to the origin.
	res, err := svc.SubmitReview(training.ID, product.ID, "split")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Commission == nil || !res.Commission.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected commission 10.00, got %v", res.Commission)
	}
	if res.OriginBonus == nil || !res.OriginBonus.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("expected origin bonus 3.00, got %v", res.OriginBonus)
	}

	var freshOrigin models.User
	db.First(&freshOrigin, "id = ?", origin.ID)
	if !freshOrigin.Balance.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("expected origin balance 3.00, got %s", freshOrigin.Balance)
	}
}

func TestRepositionShiftsNeighbors(t *testing.T) {
	db := openTestDB(t)

	level := createLevel(t, db, 6)
	ids := make(map[int]string)
	for pos := 1; pos <= 6; pos++ {
		p := createActualPriceProduct(t, db, level, "10.00", pos)
		ids[pos] = p.ID
	}

	// Move 5 → 2: products at {2,3,4} shift to {3,4,5}.
	err := db.Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.First(&product, "id = ?", ids[5]).Error; err != nil {
			return err
		}
		return repositionProduct(tx, &product, 2)
	})
	if err != nil {
		t.Fatalf("reposition: %v", err)
	}

	want := map[string]int{
		ids[1]: 1, ids[5]: 2, ids[2]: 3, ids[3]: 4, ids[4]: 5, ids[6]: 6,
	}
	assertPositions(t, db, want)

	// Move back 2 → 5: {3,4,5} shift to {2,3,4}.
	err = db.Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.First(&product, "id = ?", ids[5]).Error; err != nil {
			return err
		}
		return repositionProduct(tx, &product, 5)
	})
	if err != nil {
		t.Fatalf("reposition back: %v", err)
	}
	want = map[string]int{
		ids[1]: 1, ids[2]: 2, ids[3]: 3, ids[4]: 4, ids[5]: 5, ids[6]: 6,
	}
	assertPositions(t, db, want)
}

func assertPositions(t *testing.T, db *gorm.DB, want map[string]int) {
	t.Helper()
	var products []models.Product
	if err := db.Find(&products).Error; err != nil {
		t.Fatalf("load products: %v", err)
	}
	seen := map[int]string{}
	for _, p := range products {
		if prev, dup := seen[p.Position]; dup {
			t.Fatalf("position %d shared by %s and %s", p.Position, prev, p.ID)
		}
		seen[p.Position] = p.ID
		if wantPos, ok := want[p.ID]; ok && wantPos != p.Position {
			t.Errorf("product %s at position %d, want %d", p.ID, p.Position, wantPos)
		}
	}
}

func TestResetLevelProgressKeepsBalance(t *testing.T) {
	db := openTestDB(t)
	settlement := NewSettlementService(db)
	progress := NewProgressService(db)

	level := createLevel(t, db, 5)
	user := createUser(t, db, level, "1000.00")
	product := createActualPriceProduct(t, db, level, "100.00", 1)

	if _, err := settlement.SubmitReview(user.ID, product.ID, "done"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	var before models.User
	db.First(&before, "id = ?", user.ID)
	if before.CompletedCount != 1 {
		t.Fatalf("expected completed_count 1 before reset, got %d", before.CompletedCount)
	}

	deleted, err := progress.ResetLevelProgress(user.ID, level.ID)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if deleted == 0 {
		t.Fatal("expected at least one deleted review")
	}

	var after models.User
	db.First(&after, "id = ?", user.ID)
	if after.CompletedCount != 0 {
		t.Fatalf("expected completed_count 0, got %d", after.CompletedCount)
	}
	if !after.Balance.Equal(before.Balance) {
		t.Fatalf("reset changed balance: %s -> %s", before.Balance, after.Balance)
	}

	today, err := TodayCommission(db, user.ID)
	if err != nil {
		t.Fatalf("today commission: %v", err)
	}
	if !today.IsZero() {
		t.Fatalf("expected today's commission 0 after reset, got %s", today)
	}
}
