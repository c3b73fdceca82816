package handler

import (
	"context"
	"time"

	"gorm.io/gorm"

	"verdant-system/internal/database/models"
	"verdant-system/internal/services/errs"
)

// LedgerHandler is the read side of the stock movement ledger. Writes only
// happen through Append, inside the stock store's transactions; there is no
// update or delete path.
type LedgerHandler struct {
	db *gorm.DB
}

func NewLedgerHandler(db *gorm.DB) *LedgerHandler {
	return &LedgerHandler{db: db}
}

// Append writes one movement row on the caller's open transaction. Every
// quantity change in the stock store produces exactly one entry; the two
// writes commit or roll back together.
func Append(tx *gorm.DB, movement *models.StockMovement) error {
	if !movement.Type.Valid() {
		return errs.Validation("invalid movement type %q", movement.Type)
	}
	if movement.Delta == 0 {
		return errs.Validation("movement delta must be non-zero")
	}
	if movement.Reason == "" {
		return errs.Validation("movement reason required")
	}
	if movement.CreatedAt.IsZero() {
		movement.CreatedAt = time.Now()
	}
	if err := tx.Create(movement).Error; err != nil {
		return errs.Transient(err)
	}
	return nil
}

// ListForInventory returns the movements for one inventory record in
// chronological order. Ties on created_at break on id, which follows
// insertion order, so the sequence is a total order.
func (s *LedgerHandler) ListForInventory(ctx context.Context, inventoryID int64, since *time.Time) ([]models.StockMovement, error) {
	var movements []models.StockMovement

	query := s.db.WithContext(ctx).Where("inventory_id = ?", inventoryID)
	if since != nil {
		query = query.Where("created_at >= ?", *since)
	}

	if err := query.Order("created_at ASC, id ASC").Find(&movements).Error; err != nil {
		return nil, errs.Transient(err)
	}
	return movements, nil
}

// ListRecent returns the newest movements for a store, for dashboard feeds.
func (s *LedgerHandler) ListRecent(ctx context.Context, storeID int64, limit int) ([]models.StockMovement, error) {
	if limit <= 0 {
		limit = 20
	}

	var movements []models.StockMovement
	if err := s.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&movements).Error; err != nil {
		return nil, errs.Transient(err)
	}
	return movements, nil
}

// Reconcile verifies that the ledger fully explains the current on-hand
// count: quantity - initial_quantity must equal the sum of all deltas.
func (s *LedgerHandler) Reconcile(ctx context.Context, inventoryID int64) error {
	var inventory models.Inventory
	if err := s.db.WithContext(ctx).First(&inventory, inventoryID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return errs.NotFound("inventory", "%d", inventoryID)
		}
		return errs.Transient(err)
	}

	var sum struct {
		Total int64
	}
	if err := s.db.WithContext(ctx).Model(&models.StockMovement{}).
		Select("COALESCE(SUM(delta), 0) AS total").
		Where("inventory_id = ?", inventoryID).
		Scan(&sum).Error; err != nil {
		return errs.Transient(err)
	}

	if inventory.Quantity-inventory.InitialQuantity != sum.Total {
		return errs.Integrity("inventory %d: ledger sum %d does not explain quantity %d (initial %d)",
			inventoryID, sum.Total, inventory.Quantity, inventory.InitialQuantity)
	}
	return nil
}
