package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"verdant-system/internal/database/models"
	cataloghandler "verdant-system/internal/services/catalog/handler"
)

type CatalogHTTPHandler struct {
	catalog *cataloghandler.CatalogHandler
}

func NewCatalogHTTPHandler(catalog *cataloghandler.CatalogHandler) *CatalogHTTPHandler {
	return &CatalogHTTPHandler{catalog: catalog}
}

type CreateProductRequest struct {
	SKU        string           `json:"sku" binding:"required"`
	Name       string           `json:"name" binding:"required"`
	Category   string           `json:"category" binding:"required"`
	THCPercent *decimal.Decimal `json:"thc_percent,omitempty"`
	CBDPercent *decimal.Decimal `json:"cbd_percent,omitempty"`
	UnitPrice  decimal.Decimal  `json:"unit_price" binding:"required"`
}

type UpdateProductRequest struct {
	Name       *string          `json:"name,omitempty"`
	Category   *string          `json:"category,omitempty"`
	THCPercent *decimal.Decimal `json:"thc_percent,omitempty"`
	CBDPercent *decimal.Decimal `json:"cbd_percent,omitempty"`
	UnitPrice  *decimal.Decimal `json:"unit_price,omitempty"`
	IsActive   *bool            `json:"is_active,omitempty"`
}

type ListProductsQuery struct {
	Page       int     `form:"page,default=1"`
	PageSize   int     `form:"page_size,default=10"`
	IsActive   *bool   `form:"is_active,omitempty"`
	Category   *string `form:"category,omitempty"`
	SearchTerm *string `form:"search,omitempty"`
}

type CreateBatchRequest struct {
	BatchNumber     string                 `json:"batch_number,omitempty"`
	Supplier        string                 `json:"supplier" binding:"required"`
	SupplierLicense string                 `json:"supplier_license,omitempty"`
	ReceivedDate    *time.Time             `json:"received_date,omitempty"`
	ExpiryDate      *time.Time             `json:"expiry_date,omitempty"`
	TestDate        *time.Time             `json:"test_date,omitempty"`
	LabResults      map[string]interface{} `json:"lab_results,omitempty"`
}

func (h *CatalogHTTPHandler) CreateProduct(c *gin.Context) {
	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("VALIDATION_ERROR", "Invalid request format"))
		return
	}

	product, err := h.catalog.CreateProduct(c.Request.Context(), cataloghandler.CreateProductInput{
		StoreID:    storeID(c),
		SKU:        req.SKU,
		Name:       req.Name,
		Category:   models.ProductCategory(req.Category),
		THCPercent: req.THCPercent,
		CBDPercent: req.CBDPercent,
		UnitPrice:  req.UnitPrice,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("Product created successfully", product))
}

func (h *CatalogHTTPHandler) UpdateProduct(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("VALIDATION_ERROR", "Invalid product ID"))
		return
	}

	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("VALIDATION_ERROR", "Invalid request format"))
		return
	}

	var category *models.ProductCategory
	if req.Category != nil {
		cat := models.ProductCategory(*req.Category)
		category = &cat
	}

	product, err := h.catalog.UpdateProduct(c.Request.Context(), int32(productID), cataloghandler.UpdateProductInput{
		Name:       req.Name,
		Category:   category,
		THCPercent: req.THCPercent,
		CBDPercent: req.CBDPercent,
		UnitPrice:  req.UnitPrice,
		IsActive:   req.IsActive,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Product updated successfully", product))
}

func (h *CatalogHTTPHandler) DeactivateProduct(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("VALIDATION_ERROR", "Invalid product ID"))
		return
	}

	product, err := h.catalog.DeactivateProduct(c.Request.Context(), int32(productID))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Product deactivated", product))
}

func (h *CatalogHTTPHandler) GetProduct(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("VALIDATION_ERROR", "Invalid product ID"))
		return
	}

	product, err := h.catalog.GetProduct(c.Request.Context(), int32(productID))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Product retrieved successfully", product))
}

func (h *CatalogHTTPHandler) GetProductBySKU(c *gin.Context) {
	sku := c.Param("sku")

	product, err := h.catalog.GetProductBySKU(c.Request.Context(), storeID(c), sku)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Product retrieved successfully", product))
}

func (h *CatalogHTTPHandler) ListProducts(c *gin.Context) {
	var query ListProductsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("VALIDATION_ERROR", "Invalid query parameters"))
		return
	}

	var category *models.ProductCategory
	if query.Category != nil {
		cat := models.ProductCategory(*query.Category)
		category = &cat
	}

	products, total, err := h.catalog.ListProducts(c.Request.Context(), cataloghandler.ListProductsQuery{
		StoreID:    storeID(c),
		IsActive:   query.IsActive,
		Category:   category,
		SearchTerm: query.SearchTerm,
		Page:       query.Page,
		PageSize:   query.PageSize,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successWithMetaResponse("Products retrieved successfully", products, paginationMeta{
		Page:       query.Page,
		PageSize:   query.PageSize,
		TotalCount: total,
	}))
}

func (h *CatalogHTTPHandler) CreateBatch(c *gin.Context) {
	var req CreateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("VALIDATION_ERROR", "Invalid request format"))
		return
	}

	batch, err := h.catalog.CreateBatch(c.Request.Context(), cataloghandler.CreateBatchInput{
		BatchNumber:     req.BatchNumber,
		Supplier:        req.Supplier,
		SupplierLicense: req.SupplierLicense,
		ReceivedDate:    req.ReceivedDate,
		ExpiryDate:      req.ExpiryDate,
		TestDate:        req.TestDate,
		LabResults:      models.JSONMap(req.LabResults),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("Batch created successfully", batch))
}

func (h *CatalogHTTPHandler) GetBatch(c *gin.Context) {
	batchID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("VALIDATION_ERROR", "Invalid batch ID"))
		return
	}

	batch, err := h.catalog.GetBatch(c.Request.Context(), batchID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Batch retrieved successfully", batch))
}

func (h *CatalogHTTPHandler) ListBatches(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	batches, total, err := h.catalog.ListBatches(c.Request.Context(), page, pageSize)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successWithMetaResponse("Batches retrieved successfully", batches, paginationMeta{
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
	}))
}
