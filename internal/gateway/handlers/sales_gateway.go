package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"verdant-system/internal/database/models"
	saleshandler "verdant-system/internal/services/sales/handler"
)

type SalesHTTPHandler struct {
	sales *saleshandler.SalesHandler
}

func NewSalesHTTPHandler(sales *saleshandler.SalesHandler) *SalesHTTPHandler {
	return &SalesHTTPHandler{sales: sales}
}

type CartLineRequest struct {
	ProductID int32           `json:"product_id" binding:"required"`
	Quantity  int64           `json:"quantity" binding:"required,min=1"`
	UnitPrice decimal.Decimal `json:"unit_price" binding:"required"`
	Discount  decimal.Decimal `json:"discount"`
}

type SettleSaleRequest struct {
	Cart          []CartLineRequest `json:"items" binding:"required"`
	CustomerName  *string           `json:"customer_name,omitempty"`
	CustomerID    *string           `json:"customer_id,omitempty"`
	PaymentMethod string            `json:"payment_method" binding:"required"`
	AgeVerified   bool              `json:"age_verified"`
	Discount      decimal.Decimal   `json:"discount"`
	ReceiptNumber string            `json:"receipt_number,omitempty"`
}

type RefundSaleRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type ListSalesQuery struct {
	Page      int     `form:"page,default=1"`
	PageSize  int     `form:"page_size,default=20"`
	CashierID *int64  `form:"cashier_id,omitempty"`
	Status    *string `form:"status,omitempty"`
	StartDate string  `form:"start_date,omitempty"`
	EndDate   string  `form:"end_date,omitempty"`
}

func (h *SalesHTTPHandler) SettleSale(c *gin.Context) {
	var req SettleSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("VALIDATION_ERROR", "Invalid request format"))
		return
	}

	cart := make([]saleshandler.CartLine, 0, len(req.Cart))
	for _, line := range req.Cart {
		cart = append(cart, saleshandler.CartLine{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Discount:  line.Discount,
		})
	}

	sale, err := h.sales.Settle(c.Request.Context(), saleshandler.SettleInput{
		Cart:          cart,
		CustomerName:  req.CustomerName,
		CustomerID:    req.CustomerID,
		PaymentMethod: models.PaymentMethod(req.PaymentMethod),
		AgeVerified:   req.AgeVerified,
		ActorID:       actorID(c),
		StoreID:       storeID(c),
		OrderDiscount: req.Discount,
		ReceiptNumber: req.ReceiptNumber,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("Sale settled successfully", sale))
}

func (h *SalesHTTPHandler) GetSale(c *gin.Context) {
	saleID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("VALIDATION_ERROR", "Invalid sale ID"))
		return
	}

	sale, err := h.sales.GetSale(c.Request.Context(), saleID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Sale retrieved successfully", sale))
}

func (h *SalesHTTPHandler) ListSales(c *gin.Context) {
	var query ListSalesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("VALIDATION_ERROR", "Invalid query parameters"))
		return
	}

	listQuery := saleshandler.ListSalesQuery{
		StoreID:   storeID(c),
		CashierID: query.CashierID,
		Page:      query.Page,
		PageSize:  query.PageSize,
	}

	if query.Status != nil {
		status := models.SaleStatus(*query.Status)
		listQuery.Status = &status
	}
	if query.StartDate != "" {
		t, err := time.Parse(time.RFC3339, query.StartDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("VALIDATION_ERROR", "Invalid start_date, expected RFC3339"))
			return
		}
		listQuery.StartDate = &t
	}
	if query.EndDate != "" {
		t, err := time.Parse(time.RFC3339, query.EndDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("VALIDATION_ERROR", "Invalid end_date, expected RFC3339"))
			return
		}
		listQuery.EndDate = &t
	}

	sales, total, err := h.sales.ListSales(c.Request.Context(), listQuery)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successWithMetaResponse("Sales retrieved successfully", sales, paginationMeta{
		Page:       query.Page,
		PageSize:   query.PageSize,
		TotalCount: total,
	}))
}

func (h *SalesHTTPHandler) RefundSale(c *gin.Context) {
	saleID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("VALIDATION_ERROR", "Invalid sale ID"))
		return
	}

	var req RefundSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("VALIDATION_ERROR", "Invalid request format"))
		return
	}

	sale, err := h.sales.RefundSale(c.Request.Context(), saleID, actorID(c), req.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Sale refunded successfully", sale))
}

func (h *SalesHTTPHandler) VoidSale(c *gin.Context) {
	saleID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("VALIDATION_ERROR", "Invalid sale ID"))
		return
	}

	var req RefundSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("VALIDATION_ERROR", "Invalid request format"))
		return
	}

	sale, err := h.sales.VoidSale(c.Request.Context(), saleID, actorID(c), req.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Sale voided successfully", sale))
}
