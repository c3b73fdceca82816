package handler

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"verdant-system/internal/database/models"
	"verdant-system/internal/services/errs"
	ledger "verdant-system/internal/services/ledger/handler"
)

// InventoryHandler is the authoritative store for on-hand and available
// counts. Every successful mutation appends exactly one ledger entry in the
// same transaction; counts are always re-read from the database, never
// cached.
type InventoryHandler struct {
	db *gorm.DB
}

func NewInventoryHandler(db *gorm.DB) *InventoryHandler {
	return &InventoryHandler{db: db}
}

type CreateInventoryInput struct {
	ProductID       int32
	StoreID         int64
	InitialQuantity int64
	ReorderLevel    int64
	MaxStockLevel   *int64
	StorageLocation *string
	BatchID         *int64
}

type AdjustInput struct {
	InventoryID int64
	Delta       int64
	Type        models.MovementType
	Reason      string
	ActorID     int64
	Reference   *string
}

// forUpdate takes a row lock so concurrent adjustments serialize on the
// inventory row. sqlite (tests) has no FOR UPDATE; its single writer gives
// the same guarantee.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// CreateInventory stocks a product for the first time. The opening count is
// recorded as initial_quantity, the anchor the ledger is reconciled against,
// so no movement row is written here.
func (s *InventoryHandler) CreateInventory(ctx context.Context, input CreateInventoryInput) (*models.Inventory, error) {
	if input.ProductID == 0 {
		return nil, errs.Validation("product_id required")
	}
	if input.StoreID == 0 {
		return nil, errs.Validation("store_id required")
	}
	if input.InitialQuantity < 0 {
		return nil, errs.Validation("initial quantity must not be negative")
	}

	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, input.ProductID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errs.NotFound("product", "%d", input.ProductID)
		}
		return nil, errs.Transient(err)
	}

	inventory := models.Inventory{
		ProductID:       input.ProductID,
		StoreID:         input.StoreID,
		Quantity:        input.InitialQuantity,
		Reserved:        0,
		Available:       input.InitialQuantity,
		InitialQuantity: input.InitialQuantity,
		ReorderLevel:    input.ReorderLevel,
		MaxStockLevel:   input.MaxStockLevel,
		StorageLocation: input.StorageLocation,
		BatchID:         input.BatchID,
	}

	if err := s.db.WithContext(ctx).Create(&inventory).Error; err != nil {
		return nil, errs.Transient(err)
	}

	return &inventory, nil
}

// GetAvailable reads the current available count for a (product, store)
// pair.
func (s *InventoryHandler) GetAvailable(ctx context.Context, productID int32, storeID int64) (int64, error) {
	var inventory models.Inventory
	if err := s.db.WithContext(ctx).
		Where("product_id = ? AND store_id = ?", productID, storeID).
		First(&inventory).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, errs.NotFound("inventory", "product %d in store %d", productID, storeID)
		}
		return 0, errs.Transient(err)
	}
	return inventory.Available, nil
}

func (s *InventoryHandler) GetInventory(ctx context.Context, inventoryID int64) (*models.Inventory, error) {
	var inventory models.Inventory
	if err := s.db.WithContext(ctx).
		Preload("Product").
		Preload("Batch").
		First(&inventory, inventoryID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errs.NotFound("inventory", "%d", inventoryID)
		}
		return nil, errs.Transient(err)
	}
	return &inventory, nil
}

func (s *InventoryHandler) ListInventories(ctx context.Context, storeID int64) ([]models.Inventory, error) {
	var inventories []models.Inventory
	if err := s.db.WithContext(ctx).
		Preload("Product").
		Where("store_id = ?", storeID).
		Order("id ASC").
		Find(&inventories).Error; err != nil {
		return nil, errs.Transient(err)
	}
	return inventories, nil
}

// ListLowStock returns inventories at or below their reorder level.
func (s *InventoryHandler) ListLowStock(ctx context.Context, storeID int64) ([]models.Inventory, error) {
	var inventories []models.Inventory
	if err := s.db.WithContext(ctx).
		Preload("Product").
		Where("store_id = ? AND available <= reorder_level", storeID).
		Order("available ASC").
		Find(&inventories).Error; err != nil {
		return nil, errs.Transient(err)
	}
	return inventories, nil
}

// Adjust applies a signed delta to the on-hand quantity and appends the
// matching ledger entry, all in one transaction.
func (s *InventoryHandler) Adjust(ctx context.Context, input AdjustInput) (*models.Inventory, error) {
	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	inventory, err := s.AdjustTx(tx, input)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, errs.Transient(err)
	}
	return inventory, nil
}

// AdjustTx is Adjust on a caller-owned transaction. The sale settlement
// engine uses it so line decrements commit or roll back with the Sale
// header.
func (s *InventoryHandler) AdjustTx(tx *gorm.DB, input AdjustInput) (*models.Inventory, error) {
	if !input.Type.Valid() {
		return nil, errs.Validation("invalid movement type %q", input.Type)
	}
	if input.Delta == 0 {
		return nil, errs.Validation("delta must be non-zero")
	}
	if input.Type.Inbound() && input.Delta < 0 {
		return nil, errs.Validation("%s movement requires a positive delta", input.Type)
	}
	if input.Type.Outbound() && input.Delta > 0 {
		return nil, errs.Validation("%s movement requires a negative delta", input.Type)
	}
	if input.Reason == "" {
		return nil, errs.Validation("reason required")
	}
	if input.ActorID == 0 {
		return nil, errs.Validation("acting user required")
	}

	var inventory models.Inventory
	if err := forUpdate(tx).First(&inventory, input.InventoryID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errs.NotFound("inventory", "%d", input.InventoryID)
		}
		return nil, errs.Transient(err)
	}

	newQuantity := inventory.Quantity + input.Delta
	newAvailable := newQuantity - inventory.Reserved
	if newAvailable < 0 {
		return nil, &errs.InsufficientStockError{
			ProductID: inventory.ProductID,
			Available: inventory.Available,
			Requested: -input.Delta,
		}
	}
	if input.Delta > 0 && inventory.MaxStockLevel != nil && newQuantity > *inventory.MaxStockLevel {
		return nil, errs.Validation("adjustment exceeds max stock level %d", *inventory.MaxStockLevel)
	}

	inventory.Quantity = newQuantity
	inventory.Available = newAvailable
	inventory.UpdatedAt = time.Now()

	if err := tx.Save(&inventory).Error; err != nil {
		return nil, errs.Transient(err)
	}

	movement := models.StockMovement{
		InventoryID: inventory.ID,
		StoreID:     inventory.StoreID,
		Type:        input.Type,
		Delta:       input.Delta,
		Reason:      input.Reason,
		Reference:   input.Reference,
		CreatedBy:   input.ActorID,
		CreatedAt:   time.Now(),
	}
	if err := ledger.Append(tx, &movement); err != nil {
		return nil, err
	}

	return &inventory, nil
}

// Reserve moves stock from available into reserved without changing the
// on-hand quantity, holding it against a pending order.
func (s *InventoryHandler) Reserve(ctx context.Context, inventoryID, quantity, actorID int64) (*models.Inventory, error) {
	if quantity <= 0 {
		return nil, errs.Validation("quantity must be greater than 0")
	}

	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var inventory models.Inventory
	if err := forUpdate(tx).First(&inventory, inventoryID).Error; err != nil {
		tx.Rollback()
		if err == gorm.ErrRecordNotFound {
			return nil, errs.NotFound("inventory", "%d", inventoryID)
		}
		return nil, errs.Transient(err)
	}

	if inventory.Available < quantity {
		tx.Rollback()
		return nil, &errs.InsufficientStockError{
			ProductID: inventory.ProductID,
			Available: inventory.Available,
			Requested: quantity,
		}
	}

	inventory.Available -= quantity
	inventory.Reserved += quantity
	inventory.UpdatedAt = time.Now()

	if err := tx.Save(&inventory).Error; err != nil {
		tx.Rollback()
		return nil, errs.Transient(err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, errs.Transient(err)
	}
	return &inventory, nil
}

// Release returns reserved stock to available.
func (s *InventoryHandler) Release(ctx context.Context, inventoryID, quantity, actorID int64) (*models.Inventory, error) {
	if quantity <= 0 {
		return nil, errs.Validation("quantity must be greater than 0")
	}

	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var inventory models.Inventory
	if err := forUpdate(tx).First(&inventory, inventoryID).Error; err != nil {
		tx.Rollback()
		if err == gorm.ErrRecordNotFound {
			return nil, errs.NotFound("inventory", "%d", inventoryID)
		}
		return nil, errs.Transient(err)
	}

	if inventory.Reserved < quantity {
		tx.Rollback()
		return nil, errs.Validation("cannot release %d, only %d reserved", quantity, inventory.Reserved)
	}

	inventory.Reserved -= quantity
	inventory.Available += quantity
	inventory.UpdatedAt = time.Now()

	if err := tx.Save(&inventory).Error; err != nil {
		tx.Rollback()
		return nil, errs.Transient(err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, errs.Transient(err)
	}
	return &inventory, nil
}

// Transfer moves stock between two inventory records, writing a paired
// TRANSFER_OUT / TRANSFER_IN with a shared reference.
func (s *InventoryHandler) Transfer(ctx context.Context, fromID, toID, quantity, actorID int64, reason string) (*models.Inventory, *models.Inventory, error) {
	if fromID == toID {
		return nil, nil, errs.Validation("cannot transfer to the same inventory record")
	}
	if quantity <= 0 {
		return nil, nil, errs.Validation("quantity must be greater than 0")
	}
	if reason == "" {
		reason = "Stock transfer"
	}

	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	reference := fmt.Sprintf("XFER-%d-%d-%d", fromID, toID, time.Now().Unix())

	from, err := s.AdjustTx(tx, AdjustInput{
		InventoryID: fromID,
		Delta:       -quantity,
		Type:        models.MovementTransferOut,
		Reason:      reason,
		ActorID:     actorID,
		Reference:   &reference,
	})
	if err != nil {
		tx.Rollback()
		return nil, nil, err
	}

	to, err := s.AdjustTx(tx, AdjustInput{
		InventoryID: toID,
		Delta:       quantity,
		Type:        models.MovementTransferIn,
		Reason:      reason,
		ActorID:     actorID,
		Reference:   &reference,
	})
	if err != nil {
		tx.Rollback()
		return nil, nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, nil, errs.Transient(err)
	}
	return from, to, nil
}
