package handler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"verdant-system/internal/database/models"
	"verdant-system/internal/services/errs"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Batch{},
		&models.Inventory{},
		&models.Sale{},
		&models.SaleItem{},
		&models.StockMovement{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func seedInventory(t *testing.T, db *gorm.DB, quantity, reserved int64) *models.Inventory {
	t.Helper()

	product := models.Product{
		StoreID:   1,
		SKU:       "FL-OGK-3.5",
		Name:      "OG Kush 3.5g",
		Category:  models.CategoryFlower,
		UnitPrice: decimal.NewFromFloat(35.00),
		IsActive:  true,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}

	inventory := models.Inventory{
		ProductID:       product.ID,
		StoreID:         1,
		Quantity:        quantity,
		Reserved:        reserved,
		Available:       quantity - reserved,
		InitialQuantity: quantity,
		ReorderLevel:    2,
	}
	if err := db.Create(&inventory).Error; err != nil {
		t.Fatalf("seed inventory: %v", err)
	}
	return &inventory
}

func TestPurchaseAdjustmentIncrementsAndLogsOneMovement(t *testing.T) {
	db := newTestDB(t)
	s := NewInventoryHandler(db)
	inv := seedInventory(t, db, 5, 0)

	updated, err := s.Adjust(context.Background(), AdjustInput{
		InventoryID: inv.ID,
		Delta:       50,
		Type:        models.MovementPurchase,
		Reason:      "Restock from supplier",
		ActorID:     7,
	})
	if err != nil {
		t.Fatalf("adjust failed: %v", err)
	}

	if updated.Quantity != 55 || updated.Available != 55 {
		t.Fatalf("expected quantity=55 available=55, got quantity=%d available=%d", updated.Quantity, updated.Available)
	}

	var movements []models.StockMovement
	if err := db.Where("inventory_id = ?", inv.ID).Find(&movements).Error; err != nil {
		t.Fatalf("list movements: %v", err)
	}
	if len(movements) != 1 {
		t.Fatalf("expected exactly one movement, got %d", len(movements))
	}
	if movements[0].Delta != 50 || movements[0].Type != models.MovementPurchase {
		t.Fatalf("expected delta=+50 type=PURCHASE, got delta=%d type=%s", movements[0].Delta, movements[0].Type)
	}
	if movements[0].CreatedBy != 7 {
		t.Fatalf("expected movement actor 7, got %d", movements[0].CreatedBy)
	}
}

func TestAdjustRejectsOverDecrement(t *testing.T) {
	db := newTestDB(t)
	s := NewInventoryHandler(db)
	inv := seedInventory(t, db, 3, 0)

	_, err := s.Adjust(context.Background(), AdjustInput{
		InventoryID: inv.ID,
		Delta:       -5,
		Type:        models.MovementSale,
		Reason:      "Sale RCPT-X",
		ActorID:     1,
	})

	var insufficient *errs.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if insufficient.ProductID != inv.ProductID {
		t.Fatalf("error should name product %d, got %d", inv.ProductID, insufficient.ProductID)
	}

	var after models.Inventory
	if err := db.First(&after, inv.ID).Error; err != nil {
		t.Fatalf("reload inventory: %v", err)
	}
	if after.Available != 3 || after.Quantity != 3 {
		t.Fatalf("failed adjust must leave stock unchanged, got quantity=%d available=%d", after.Quantity, after.Available)
	}

	var count int64
	db.Model(&models.StockMovement{}).Where("inventory_id = ?", inv.ID).Count(&count)
	if count != 0 {
		t.Fatalf("failed adjust must not write a movement, found %d", count)
	}
}

func TestCompetingDecrementsOnlyOneSucceeds(t *testing.T) {
	db := newTestDB(t)
	s := NewInventoryHandler(db)
	inv := seedInventory(t, db, 1, 0)

	var successes, insufficient int
	for i := 0; i < 2; i++ {
		_, err := s.Adjust(context.Background(), AdjustInput{
			InventoryID: inv.ID,
			Delta:       -1,
			Type:        models.MovementSale,
			Reason:      "Sale RCPT-C",
			ActorID:     1,
		})
		switch {
		case err == nil:
			successes++
		default:
			var ise *errs.InsufficientStockError
			if !errors.As(err, &ise) {
				t.Fatalf("unexpected error kind: %v", err)
			}
			insufficient++
		}
	}

	if successes != 1 || insufficient != 1 {
		t.Fatalf("expected exactly one success and one InsufficientStockError, got %d/%d", successes, insufficient)
	}

	var after models.Inventory
	if err := db.First(&after, inv.ID).Error; err != nil {
		t.Fatalf("reload inventory: %v", err)
	}
	if after.Available != 0 {
		t.Fatalf("expected final available=0, got %d", after.Available)
	}
}

// newPostgresTestDB connects to the database named by TEST_DATABASE_DSN and
// recreates the schema. The sqlite tests run single-writer, so only a real
// postgres exercises the FOR UPDATE row lock; this suite is opt-in.
func newPostgresTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open postgres test db: %v", err)
	}

	_ = db.Migrator().DropTable(
		&models.StockMovement{},
		&models.SaleItem{},
		&models.Sale{},
		&models.Inventory{},
		&models.Batch{},
		&models.Product{},
		&models.User{},
	)
	if err := db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Batch{},
		&models.Inventory{},
		&models.Sale{},
		&models.SaleItem{},
		&models.StockMovement{},
	); err != nil {
		t.Fatalf("migrate postgres test db: %v", err)
	}
	return db
}

func TestConcurrentDecrementsSerializeOnRowLock(t *testing.T) {
	db := newPostgresTestDB(t)
	s := NewInventoryHandler(db)
	inv := seedInventory(t, db, 1, 0)

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Adjust(context.Background(), AdjustInput{
				InventoryID: inv.ID,
				Delta:       -1,
				Type:        models.MovementSale,
				Reason:      "Sale RCPT-P",
				ActorID:     1,
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, insufficient int
	for err := range results {
		switch {
		case err == nil:
			successes++
		default:
			var ise *errs.InsufficientStockError
			if !errors.As(err, &ise) {
				t.Fatalf("unexpected error kind: %v", err)
			}
			insufficient++
		}
	}
	if successes != 1 || insufficient != 1 {
		t.Fatalf("expected exactly one success and one InsufficientStockError, got %d/%d", successes, insufficient)
	}

	var after models.Inventory
	if err := db.First(&after, inv.ID).Error; err != nil {
		t.Fatalf("reload inventory: %v", err)
	}
	if after.Available != 0 {
		t.Fatalf("expected final available=0, got %d", after.Available)
	}

	var count int64
	db.Model(&models.StockMovement{}).Where("inventory_id = ?", inv.ID).Count(&count)
	if count != 1 {
		t.Fatalf("expected exactly one movement from the winning adjust, got %d", count)
	}
}

func TestAdjustValidatesDeltaSign(t *testing.T) {
	db := newTestDB(t)
	s := NewInventoryHandler(db)
	inv := seedInventory(t, db, 10, 0)

	cases := []struct {
		name  string
		delta int64
		mtype models.MovementType
	}{
		{"purchase must be positive", -1, models.MovementPurchase},
		{"sale must be negative", 1, models.MovementSale},
		{"damage must be negative", 3, models.MovementDamage},
		{"zero delta", 0, models.MovementAdjustment},
		{"unknown type", 1, models.MovementType("MYSTERY")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Adjust(context.Background(), AdjustInput{
				InventoryID: inv.ID,
				Delta:       tc.delta,
				Type:        tc.mtype,
				Reason:      "test",
				ActorID:     1,
			})
			var validation *errs.ValidationError
			if !errors.As(err, &validation) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestReserveAndReleaseKeepAvailableInvariant(t *testing.T) {
	db := newTestDB(t)
	s := NewInventoryHandler(db)
	inv := seedInventory(t, db, 10, 0)

	reserved, err := s.Reserve(context.Background(), inv.ID, 4, 1)
	if err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if reserved.Quantity != 10 || reserved.Reserved != 4 || reserved.Available != 6 {
		t.Fatalf("after reserve: got quantity=%d reserved=%d available=%d", reserved.Quantity, reserved.Reserved, reserved.Available)
	}
	if reserved.Available != reserved.Quantity-reserved.Reserved {
		t.Fatalf("available invariant broken after reserve")
	}

	released, err := s.Release(context.Background(), inv.ID, 3, 1)
	if err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if released.Reserved != 1 || released.Available != 9 {
		t.Fatalf("after release: got reserved=%d available=%d", released.Reserved, released.Available)
	}

	if _, err := s.Release(context.Background(), inv.ID, 5, 1); err == nil {
		t.Fatalf("expected release beyond reserved to fail")
	}
}

func TestReserveInsufficientStock(t *testing.T) {
	db := newTestDB(t)
	s := NewInventoryHandler(db)
	inv := seedInventory(t, db, 2, 0)

	_, err := s.Reserve(context.Background(), inv.ID, 3, 1)
	var insufficient *errs.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
}

func TestGetAvailable(t *testing.T) {
	db := newTestDB(t)
	s := NewInventoryHandler(db)
	inv := seedInventory(t, db, 8, 3)

	available, err := s.GetAvailable(context.Background(), inv.ProductID, 1)
	if err != nil {
		t.Fatalf("get available: %v", err)
	}
	if available != 5 {
		t.Fatalf("expected available=5, got %d", available)
	}

	_, err = s.GetAvailable(context.Background(), 9999, 1)
	var notFound *errs.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError for unknown product, got %v", err)
	}
}

func TestTransferWritesPairedMovements(t *testing.T) {
	db := newTestDB(t)
	s := NewInventoryHandler(db)
	from := seedInventory(t, db, 10, 0)

	to := models.Inventory{
		ProductID:       from.ProductID,
		StoreID:         2,
		Quantity:        0,
		Available:       0,
		InitialQuantity: 0,
	}
	if err := db.Create(&to).Error; err != nil {
		t.Fatalf("seed destination: %v", err)
	}

	fromAfter, toAfter, err := s.Transfer(context.Background(), from.ID, to.ID, 4, 1, "Rebalance")
	if err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	if fromAfter.Quantity != 6 || toAfter.Quantity != 4 {
		t.Fatalf("expected 6/4 after transfer, got %d/%d", fromAfter.Quantity, toAfter.Quantity)
	}

	var outbound, inbound models.StockMovement
	if err := db.Where("inventory_id = ? AND type = ?", from.ID, models.MovementTransferOut).First(&outbound).Error; err != nil {
		t.Fatalf("missing TRANSFER_OUT movement: %v", err)
	}
	if err := db.Where("inventory_id = ? AND type = ?", to.ID, models.MovementTransferIn).First(&inbound).Error; err != nil {
		t.Fatalf("missing TRANSFER_IN movement: %v", err)
	}
	if outbound.Delta != -4 || inbound.Delta != 4 {
		t.Fatalf("expected deltas -4/+4, got %d/%d", outbound.Delta, inbound.Delta)
	}
	if outbound.Reference == nil || inbound.Reference == nil || *outbound.Reference != *inbound.Reference {
		t.Fatalf("paired transfer movements must share a reference")
	}
}

func TestTransferInsufficientRollsBackBothSides(t *testing.T) {
	db := newTestDB(t)
	s := NewInventoryHandler(db)
	from := seedInventory(t, db, 2, 0)

	to := models.Inventory{ProductID: from.ProductID, StoreID: 2}
	if err := db.Create(&to).Error; err != nil {
		t.Fatalf("seed destination: %v", err)
	}

	if _, _, err := s.Transfer(context.Background(), from.ID, to.ID, 5, 1, ""); err == nil {
		t.Fatalf("expected transfer to fail")
	}

	var fromAfter, toAfter models.Inventory
	db.First(&fromAfter, from.ID)
	db.First(&toAfter, to.ID)
	if fromAfter.Quantity != 2 || toAfter.Quantity != 0 {
		t.Fatalf("failed transfer must leave both sides unchanged, got %d/%d", fromAfter.Quantity, toAfter.Quantity)
	}

	var count int64
	db.Model(&models.StockMovement{}).Count(&count)
	if count != 0 {
		t.Fatalf("failed transfer must not write movements, found %d", count)
	}
}
