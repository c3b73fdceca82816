package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"verdant-system/internal/database/models"
	inventoryhandler "verdant-system/internal/services/inventory/handler"
	ledgerhandler "verdant-system/internal/services/ledger/handler"
)

type InventoryHTTPHandler struct {
	inventory *inventoryhandler.InventoryHandler
	ledger    *ledgerhandler.LedgerHandler
}

func NewInventoryHTTPHandler(inv *inventoryhandler.InventoryHandler, ledger *ledgerhandler.LedgerHandler) *InventoryHTTPHandler {
	return &InventoryHTTPHandler{
		inventory: inv,
		ledger:    ledger,
	}
}

type CreateInventoryRequest struct {
	ProductID       int32   `json:"product_id" binding:"required"`
	InitialQuantity int64   `json:"initial_quantity"`
	ReorderLevel    int64   `json:"reorder_level"`
	MaxStockLevel   *int64  `json:"max_stock_level,omitempty"`
	StorageLocation *string `json:"storage_location,omitempty"`
	BatchID         *int64  `json:"batch_id,omitempty"`
}

type AdjustStockRequest struct {
	InventoryID int64   `json:"inventory_id" binding:"required"`
	Delta       int64   `json:"delta" binding:"required"`
	Type        string  `json:"type" binding:"required"`
	Reason      string  `json:"reason" binding:"required"`
	Reference   *string `json:"reference,omitempty"`
}

type ReserveStockRequest struct {
	InventoryID int64 `json:"inventory_id" binding:"required"`
	Quantity    int64 `json:"quantity" binding:"required,min=1"`
}

type TransferStockRequest struct {
	FromInventoryID int64  `json:"from_inventory_id" binding:"required"`
	ToInventoryID   int64  `json:"to_inventory_id" binding:"required"`
	Quantity        int64  `json:"quantity" binding:"required,min=1"`
	Reason          string `json:"reason,omitempty"`
}

func (h *InventoryHTTPHandler) CreateInventory(c *gin.Context) {
	var req CreateInventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("VALIDATION_ERROR", "Invalid request format"))
		return
	}

	inv, err := h.inventory.CreateInventory(c.Request.Context(), inventoryhandler.CreateInventoryInput{
		ProductID:       req.ProductID,
		StoreID:         storeID(c),
		InitialQuantity: req.InitialQuantity,
		ReorderLevel:    req.ReorderLevel,
		MaxStockLevel:   req.MaxStockLevel,
		StorageLocation: req.StorageLocation,
		BatchID:         req.BatchID,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("Inventory created successfully", inv))
}

func (h *InventoryHTTPHandler) GetInventory(c *gin.Context) {
	inventoryID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("VALIDATION_ERROR", "Invalid inventory ID"))
		return
	}

	inv, err := h.inventory.GetInventory(c.Request.Context(), inventoryID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Inventory retrieved successfully", inv))
}

func (h *InventoryHTTPHandler) GetAvailable(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("productId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("VALIDATION_ERROR", "Invalid product ID"))
		return
	}

	available, err := h.inventory.GetAvailable(c.Request.Context(), int32(productID), storeID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Available stock retrieved", gin.H{
		"product_id": productID,
		"available":  available,
	}))
}

func (h *InventoryHTTPHandler) ListInventories(c *gin.Context) {
	inventories, err := h.inventory.ListInventories(c.Request.Context(), storeID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Inventories retrieved successfully", inventories))
}

func (h *InventoryHTTPHandler) ListLowStock(c *gin.Context) {
	inventories, err := h.inventory.ListLowStock(c.Request.Context(), storeID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Low stock retrieved successfully", inventories))
}

func (h *InventoryHTTPHandler) AdjustStock(c *gin.Context) {
	var req AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("VALIDATION_ERROR", "Invalid request format"))
		return
	}

	inv, err := h.inventory.Adjust(c.Request.Context(), inventoryhandler.AdjustInput{
		InventoryID: req.InventoryID,
		Delta:       req.Delta,
		Type:        models.MovementType(req.Type),
		Reason:      req.Reason,
		ActorID:     actorID(c),
		Reference:   req.Reference,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Stock adjusted successfully", inv))
}

func (h *InventoryHTTPHandler) ReserveStock(c *gin.Context) {
	var req ReserveStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("VALIDATION_ERROR", "Invalid request format"))
		return
	}

	inv, err := h.inventory.Reserve(c.Request.Context(), req.InventoryID, req.Quantity, actorID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Stock reserved successfully", inv))
}

func (h *InventoryHTTPHandler) ReleaseStock(c *gin.Context) {
	var req ReserveStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("VALIDATION_ERROR", "Invalid request format"))
		return
	}

	inv, err := h.inventory.Release(c.Request.Context(), req.InventoryID, req.Quantity, actorID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Stock released successfully", inv))
}

func (h *InventoryHTTPHandler) TransferStock(c *gin.Context) {
	var req TransferStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("VALIDATION_ERROR", "Invalid request format"))
		return
	}

	from, to, err := h.inventory.Transfer(c.Request.Context(),
		req.FromInventoryID, req.ToInventoryID, req.Quantity, actorID(c), req.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Stock transferred successfully", gin.H{
		"from": from,
		"to":   to,
	}))
}

func (h *InventoryHTTPHandler) ListMovements(c *gin.Context) {
	inventoryID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("VALIDATION_ERROR", "Invalid inventory ID"))
		return
	}

	var since *time.Time
	if sinceParam := c.Query("since"); sinceParam != "" {
		t, err := time.Parse(time.RFC3339, sinceParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("VALIDATION_ERROR", "Invalid since timestamp, expected RFC3339"))
			return
		}
		since = &t
	}

	movements, err := h.ledger.ListForInventory(c.Request.Context(), inventoryID, since)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Movements retrieved successfully", movements))
}

func (h *InventoryHTTPHandler) ListRecentMovements(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	movements, err := h.ledger.ListRecent(c.Request.Context(), storeID(c), limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Recent movements retrieved successfully", movements))
}

func (h *InventoryHTTPHandler) ReconcileInventory(c *gin.Context) {
	inventoryID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("VALIDATION_ERROR", "Invalid inventory ID"))
		return
	}

	if err := h.ledger.Reconcile(c.Request.Context(), inventoryID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Ledger reconciled, no discrepancy", nil))
}
