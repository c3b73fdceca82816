package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"verdant-system/internal/database/models"
	"verdant-system/internal/services/errs"
)

const (
	CATALOG_CACHE_PREFIX      = "catalog:"
	CATALOG_PRODUCT_CACHE_KEY = "catalog:products"
	CACHE_TTL_SHORT           = 5 * time.Minute
	CACHE_TTL_MEDIUM          = 30 * time.Minute
)

type CatalogHandler struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewCatalogHandler(db *gorm.DB, redisClient *redis.Client) *CatalogHandler {
	return &CatalogHandler{
		db:    db,
		redis: redisClient,
	}
}

func (s *CatalogHandler) invalidateCatalogCaches(ctx context.Context, productIDs ...int32) {
	if s.redis == nil {
		return
	}
	_ = s.redis.Del(ctx, CATALOG_PRODUCT_CACHE_KEY)
	for _, id := range productIDs {
		cacheKey := fmt.Sprintf("%s%d", CATALOG_CACHE_PREFIX, id)
		_ = s.redis.Del(ctx, cacheKey)
	}
}

type CreateProductInput struct {
	StoreID    int64
	SKU        string
	Name       string
	Category   models.ProductCategory
	THCPercent *decimal.Decimal
	CBDPercent *decimal.Decimal
	UnitPrice  decimal.Decimal
}

type UpdateProductInput struct {
	Name       *string
	Category   *models.ProductCategory
	THCPercent *decimal.Decimal
	CBDPercent *decimal.Decimal
	UnitPrice  *decimal.Decimal
	IsActive   *bool
}

func (s *CatalogHandler) CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	if input.SKU == "" || input.Name == "" {
		return nil, errs.Validation("sku and name are required")
	}
	if input.StoreID == 0 {
		return nil, errs.Validation("store_id required")
	}
	if !input.Category.Valid() {
		return nil, errs.Validation("invalid category %q", input.Category)
	}
	if input.UnitPrice.IsNegative() {
		return nil, errs.Validation("unit price must not be negative")
	}

	product := models.Product{
		StoreID:    input.StoreID,
		SKU:        input.SKU,
		Name:       input.Name,
		Category:   input.Category,
		THCPercent: input.THCPercent,
		CBDPercent: input.CBDPercent,
		UnitPrice:  input.UnitPrice.Round(2),
		IsActive:   true,
	}

	if err := s.db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, errs.Transient(err)
	}

	s.invalidateCatalogCaches(ctx)
	return &product, nil
}

func (s *CatalogHandler) UpdateProduct(ctx context.Context, productID int32, input UpdateProductInput) (*models.Product, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, productID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errs.NotFound("product", "%d", productID)
		}
		return nil, errs.Transient(err)
	}

	if input.Name != nil {
		product.Name = *input.Name
	}
	if input.Category != nil {
		if !input.Category.Valid() {
			return nil, errs.Validation("invalid category %q", *input.Category)
		}
		product.Category = *input.Category
	}
	if input.THCPercent != nil {
		product.THCPercent = input.THCPercent
	}
	if input.CBDPercent != nil {
		product.CBDPercent = input.CBDPercent
	}
	if input.UnitPrice != nil {
		if input.UnitPrice.IsNegative() {
			return nil, errs.Validation("unit price must not be negative")
		}
		product.UnitPrice = input.UnitPrice.Round(2)
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}

	if err := s.db.WithContext(ctx).Save(&product).Error; err != nil {
		return nil, errs.Transient(err)
	}

	s.invalidateCatalogCaches(ctx, product.ID)
	return &product, nil
}

// DeactivateProduct soft-deletes: the row stays, with its inventory and
// sale history intact.
func (s *CatalogHandler) DeactivateProduct(ctx context.Context, productID int32) (*models.Product, error) {
	inactive := false
	return s.UpdateProduct(ctx, productID, UpdateProductInput{IsActive: &inactive})
}

func (s *CatalogHandler) GetProduct(ctx context.Context, productID int32) (*models.Product, error) {
	if s.redis != nil {
		cacheKey := fmt.Sprintf("%s%d", CATALOG_CACHE_PREFIX, productID)
		if cached, err := s.redis.Get(ctx, cacheKey).Result(); err == nil {
			var product models.Product
			if json.Unmarshal([]byte(cached), &product) == nil {
				return &product, nil
			}
		}
	}

	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, productID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errs.NotFound("product", "%d", productID)
		}
		return nil, errs.Transient(err)
	}

	if s.redis != nil {
		if data, err := json.Marshal(product); err == nil {
			cacheKey := fmt.Sprintf("%s%d", CATALOG_CACHE_PREFIX, productID)
			_ = s.redis.Set(ctx, cacheKey, data, CACHE_TTL_SHORT)
		}
	}
	return &product, nil
}

func (s *CatalogHandler) GetProductBySKU(ctx context.Context, storeID int64, sku string) (*models.Product, error) {
	if sku == "" {
		return nil, errs.Validation("sku required")
	}

	var product models.Product
	if err := s.db.WithContext(ctx).
		Where("store_id = ? AND sku = ?", storeID, sku).
		First(&product).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errs.NotFound("product", "sku %s in store %d", sku, storeID)
		}
		return nil, errs.Transient(err)
	}
	return &product, nil
}

type ListProductsQuery struct {
	StoreID    int64
	IsActive   *bool
	Category   *models.ProductCategory
	SearchTerm *string
	Page       int
	PageSize   int
}

func (s *CatalogHandler) ListProducts(ctx context.Context, query ListProductsQuery) ([]models.Product, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Product{}).Where("store_id = ?", query.StoreID)

	if query.IsActive != nil {
		q = q.Where("is_active = ?", *query.IsActive)
	}
	if query.Category != nil {
		q = q.Where("category = ?", *query.Category)
	}
	if query.SearchTerm != nil && *query.SearchTerm != "" {
		searchTerm := "%" + *query.SearchTerm + "%"
		q = q.Where("sku LIKE ? OR name LIKE ?", searchTerm, searchTerm)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, errs.Transient(err)
	}

	pageSize := query.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}
	page := query.Page
	if page <= 0 {
		page = 1
	}

	var products []models.Product
	if err := q.Order("id ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&products).Error; err != nil {
		return nil, 0, errs.Transient(err)
	}
	return products, total, nil
}

type CreateBatchInput struct {
	BatchNumber     string
	Supplier        string
	SupplierLicense string
	ReceivedDate    *time.Time
	ExpiryDate      *time.Time
	TestDate        *time.Time
	LabResults      models.JSONMap
}

func (s *CatalogHandler) CreateBatch(ctx context.Context, input CreateBatchInput) (*models.Batch, error) {
	if input.Supplier == "" {
		return nil, errs.Validation("supplier required")
	}

	batchNumber := input.BatchNumber
	if batchNumber == "" {
		batchNumber = fmt.Sprintf("BATCH-%s", uuid.New().String()[:13])
	}

	batch := models.Batch{
		BatchNumber:     batchNumber,
		Supplier:        input.Supplier,
		SupplierLicense: input.SupplierLicense,
		ReceivedDate:    input.ReceivedDate,
		ExpiryDate:      input.ExpiryDate,
		TestDate:        input.TestDate,
		LabResults:      input.LabResults,
	}

	if err := s.db.WithContext(ctx).Create(&batch).Error; err != nil {
		return nil, errs.Transient(err)
	}
	return &batch, nil
}

func (s *CatalogHandler) GetBatch(ctx context.Context, batchID int64) (*models.Batch, error) {
	var batch models.Batch
	if err := s.db.WithContext(ctx).First(&batch, batchID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errs.NotFound("batch", "%d", batchID)
		}
		return nil, errs.Transient(err)
	}
	return &batch, nil
}

func (s *CatalogHandler) ListBatches(ctx context.Context, page, pageSize int) ([]models.Batch, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Batch{}).Count(&total).Error; err != nil {
		return nil, 0, errs.Transient(err)
	}

	if pageSize <= 0 {
		pageSize = 10
	}
	if page <= 0 {
		page = 1
	}

	var batches []models.Batch
	if err := s.db.WithContext(ctx).
		Order("id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&batches).Error; err != nil {
		return nil, 0, errs.Transient(err)
	}
	return batches, total, nil
}
