package handler

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"verdant-system/internal/database/models"
	"verdant-system/internal/services/errs"
	inventory "verdant-system/internal/services/inventory/handler"
)

// SalesHandler turns proposed carts into settled sales. A settlement writes
// the Sale header, its items and every inventory decrement in one
// transaction; a failure on any line rolls the whole attempt back.
type SalesHandler struct {
	db        *gorm.DB
	inventory *inventory.InventoryHandler
	taxRate   decimal.Decimal
}

func NewSalesHandler(db *gorm.DB, inv *inventory.InventoryHandler, taxRate decimal.Decimal) *SalesHandler {
	return &SalesHandler{
		db:        db,
		inventory: inv,
		taxRate:   taxRate,
	}
}

type CartLine struct {
	ProductID int32
	Quantity  int64
	UnitPrice decimal.Decimal
	Discount  decimal.Decimal
}

type SettleInput struct {
	Cart          []CartLine
	CustomerName  *string
	CustomerID    *string
	PaymentMethod models.PaymentMethod
	AgeVerified   bool
	ActorID       int64
	StoreID       int64

	// OrderDiscount applies to the whole sale on top of line discounts.
	OrderDiscount decimal.Decimal

	// ReceiptNumber is optional. A caller that supplies its own acts as an
	// idempotency key: retrying with the same number returns the already
	// settled sale instead of settling twice.
	ReceiptNumber string
}

// computeTotals prices a cart: subtotal is the discounted sum of the lines,
// tax is subtotal times the store rate, total = subtotal + tax - discount.
// All arithmetic is decimal; rounding to cents (half-up) happens here, once.
func computeTotals(cart []CartLine, orderDiscount, taxRate decimal.Decimal) (subtotal, tax, total decimal.Decimal) {
	subtotal = decimal.Zero
	for _, line := range cart {
		lineGross := line.UnitPrice.Mul(decimal.NewFromInt(line.Quantity))
		subtotal = subtotal.Add(lineGross).Sub(line.Discount)
	}
	subtotal = subtotal.Round(2)
	tax = subtotal.Mul(taxRate).Round(2)
	total = subtotal.Add(tax).Sub(orderDiscount).Round(2)
	return subtotal, tax, total
}

// forUpdate locks the sale row so concurrent refunds or voids of the same
// sale serialize on the status check. sqlite (tests) has no FOR UPDATE; its
// single writer gives the same guarantee.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

func generateReceiptNumber(storeID int64) string {
	suffix := strings.ToUpper(uuid.New().String()[:8])
	return fmt.Sprintf("RCPT-%d-%d-%s", storeID, time.Now().Unix(), suffix)
}

func (s *SalesHandler) validateSettle(input SettleInput) error {
	if len(input.Cart) == 0 {
		return errs.Validation("cart must not be empty")
	}
	if !input.AgeVerified {
		return errs.Validation("age verification required before settling a sale")
	}
	if !input.PaymentMethod.Valid() {
		return errs.Validation("invalid payment method %q", input.PaymentMethod)
	}
	if input.ActorID == 0 {
		return errs.Validation("acting user required")
	}
	if input.StoreID == 0 {
		return errs.Validation("store required")
	}
	if input.OrderDiscount.IsNegative() {
		return errs.Validation("order discount must not be negative")
	}
	for _, line := range input.Cart {
		if line.Quantity <= 0 {
			return errs.Validation("quantity for product %d must be greater than 0", line.ProductID)
		}
		if line.UnitPrice.IsNegative() {
			return errs.Validation("unit price for product %d must not be negative", line.ProductID)
		}
		if line.Discount.IsNegative() {
			return errs.Validation("discount for product %d must not be negative", line.ProductID)
		}
		if line.Discount.GreaterThan(line.UnitPrice.Mul(decimal.NewFromInt(line.Quantity))) {
			return errs.Validation("discount for product %d exceeds the line amount", line.ProductID)
		}
	}
	return nil
}

// Settle validates the cart, prices it, persists the Sale with its items and
// applies every inventory decrement, or does none of it.
func (s *SalesHandler) Settle(ctx context.Context, input SettleInput) (*models.Sale, error) {
	if err := s.validateSettle(input); err != nil {
		return nil, err
	}

	receiptNumber := input.ReceiptNumber
	if receiptNumber != "" {
		var existing models.Sale
		err := s.db.WithContext(ctx).
			Preload("Items").
			Where("receipt_number = ? AND store_id = ?", receiptNumber, input.StoreID).
			First(&existing).Error
		if err == nil {
			return &existing, nil
		}
		if err != gorm.ErrRecordNotFound {
			return nil, errs.Transient(err)
		}
	} else {
		receiptNumber = generateReceiptNumber(input.StoreID)
	}

	subtotal, tax, total := computeTotals(input.Cart, input.OrderDiscount, s.taxRate)
	if total.IsNegative() {
		return nil, errs.Validation("order discount %s exceeds the amount due %s",
			input.OrderDiscount.StringFixed(2), subtotal.Add(tax).StringFixed(2))
	}

	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	now := time.Now()
	sale := models.Sale{
		ReceiptNumber: receiptNumber,
		StoreID:       input.StoreID,
		CashierID:     input.ActorID,
		CustomerName:  input.CustomerName,
		CustomerID:    input.CustomerID,
		Subtotal:      subtotal,
		Tax:           tax,
		Discount:      input.OrderDiscount.Round(2),
		Total:         total,
		PaymentMethod: input.PaymentMethod,
		AgeVerified:   input.AgeVerified,
		VerifiedBy:    input.ActorID,
		Status:        models.SaleCompleted,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := tx.Create(&sale).Error; err != nil {
		tx.Rollback()
		return nil, errs.Transient(err)
	}

	for _, line := range input.Cart {
		var inv models.Inventory
		if err := tx.Where("product_id = ? AND store_id = ?", line.ProductID, input.StoreID).
			First(&inv).Error; err != nil {
			tx.Rollback()
			if err == gorm.ErrRecordNotFound {
				return nil, errs.NotFound("inventory", "product %d in store %d", line.ProductID, input.StoreID)
			}
			return nil, errs.Transient(err)
		}

		item := models.SaleItem{
			SaleID:    sale.ID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Discount:  line.Discount.Round(2),
			LineTotal: line.UnitPrice.Mul(decimal.NewFromInt(line.Quantity)).Sub(line.Discount).Round(2),
			CreatedAt: now,
		}
		if err := tx.Create(&item).Error; err != nil {
			tx.Rollback()
			return nil, errs.Transient(err)
		}

		// Sales come straight out of on-hand stock; reserved is only touched
		// by the reserve/release lifecycle.
		if _, err := s.inventory.AdjustTx(tx, inventory.AdjustInput{
			InventoryID: inv.ID,
			Delta:       -line.Quantity,
			Type:        models.MovementSale,
			Reason:      fmt.Sprintf("Sale %s", receiptNumber),
			ActorID:     input.ActorID,
			Reference:   &receiptNumber,
		}); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, errs.Transient(err)
	}

	if err := s.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.Product").
		First(&sale, sale.ID).Error; err != nil {
		return nil, errs.Transient(err)
	}

	log.Printf("sale settled: receipt=%s store=%d total=%s", sale.ReceiptNumber, sale.StoreID, sale.Total)
	return &sale, nil
}

func (s *SalesHandler) GetSale(ctx context.Context, saleID int64) (*models.Sale, error) {
	var sale models.Sale
	if err := s.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.Product").
		First(&sale, saleID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errs.NotFound("sale", "%d", saleID)
		}
		return nil, errs.Transient(err)
	}
	return &sale, nil
}

type ListSalesQuery struct {
	StoreID   int64
	CashierID *int64
	Status    *models.SaleStatus
	StartDate *time.Time
	EndDate   *time.Time
	Page      int
	PageSize  int
}

func (s *SalesHandler) ListSales(ctx context.Context, query ListSalesQuery) ([]models.Sale, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Sale{}).Where("store_id = ?", query.StoreID)

	if query.CashierID != nil {
		q = q.Where("cashier_id = ?", *query.CashierID)
	}
	if query.Status != nil {
		q = q.Where("status = ?", *query.Status)
	}
	if query.StartDate != nil {
		q = q.Where("created_at >= ?", *query.StartDate)
	}
	if query.EndDate != nil {
		q = q.Where("created_at <= ?", *query.EndDate)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, errs.Transient(err)
	}

	pageSize := query.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	page := query.Page
	if page <= 0 {
		page = 1
	}

	var sales []models.Sale
	if err := q.Preload("Items").
		Order("created_at DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&sales).Error; err != nil {
		return nil, 0, errs.Transient(err)
	}
	return sales, total, nil
}

// RefundSale moves a COMPLETED sale to REFUNDED and restores its stock with
// compensating RETURN movements, all in one transaction.
func (s *SalesHandler) RefundSale(ctx context.Context, saleID, actorID int64, reason string) (*models.Sale, error) {
	if reason == "" {
		return nil, errs.Validation("refund reason required")
	}

	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var sale models.Sale
	if err := forUpdate(tx).Preload("Items").First(&sale, saleID).Error; err != nil {
		tx.Rollback()
		if err == gorm.ErrRecordNotFound {
			return nil, errs.NotFound("sale", "%d", saleID)
		}
		return nil, errs.Transient(err)
	}

	if sale.Status != models.SaleCompleted {
		tx.Rollback()
		return nil, errs.Validation("only COMPLETED sales can be refunded, sale %d is %s", saleID, sale.Status)
	}

	for _, item := range sale.Items {
		var inv models.Inventory
		if err := tx.Where("product_id = ? AND store_id = ?", item.ProductID, sale.StoreID).
			First(&inv).Error; err != nil {
			tx.Rollback()
			if err == gorm.ErrRecordNotFound {
				return nil, errs.NotFound("inventory", "product %d in store %d", item.ProductID, sale.StoreID)
			}
			return nil, errs.Transient(err)
		}

		if _, err := s.inventory.AdjustTx(tx, inventory.AdjustInput{
			InventoryID: inv.ID,
			Delta:       item.Quantity,
			Type:        models.MovementReturn,
			Reason:      fmt.Sprintf("Refund of sale %s: %s", sale.ReceiptNumber, reason),
			ActorID:     actorID,
			Reference:   &sale.ReceiptNumber,
		}); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	sale.Status = models.SaleRefunded
	sale.UpdatedAt = time.Now()
	if err := tx.Save(&sale).Error; err != nil {
		tx.Rollback()
		return nil, errs.Transient(err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, errs.Transient(err)
	}

	log.Printf("sale refunded: receipt=%s by=%d", sale.ReceiptNumber, actorID)
	return &sale, nil
}

// VoidSale cancels a PENDING sale. Pending sales have no inventory effects
// yet, so no compensation is needed.
func (s *SalesHandler) VoidSale(ctx context.Context, saleID, actorID int64, reason string) (*models.Sale, error) {
	if reason == "" {
		return nil, errs.Validation("void reason required")
	}

	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var sale models.Sale
	if err := forUpdate(tx).First(&sale, saleID).Error; err != nil {
		tx.Rollback()
		if err == gorm.ErrRecordNotFound {
			return nil, errs.NotFound("sale", "%d", saleID)
		}
		return nil, errs.Transient(err)
	}

	if sale.Status != models.SalePending {
		tx.Rollback()
		return nil, errs.Validation("only PENDING sales can be voided, sale %d is %s", saleID, sale.Status)
	}

	sale.Status = models.SaleVoided
	sale.UpdatedAt = time.Now()
	if err := tx.Save(&sale).Error; err != nil {
		tx.Rollback()
		return nil, errs.Transient(err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, errs.Transient(err)
	}

	log.Printf("sale voided: receipt=%s by=%d reason=%s", sale.ReceiptNumber, actorID, reason)
	return &sale, nil
}
