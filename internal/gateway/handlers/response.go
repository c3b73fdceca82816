package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"verdant-system/internal/gateway/middleware"
	"verdant-system/internal/services/errs"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Code    string      `json:"code,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

func successResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	}
}

func successWithMetaResponse(message string, data interface{}, meta interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    meta,
	}
}

func errorResponse(code, message string) APIResponse {
	return APIResponse{
		Success: false,
		Message: message,
		Code:    code,
	}
}

// respondServiceError maps the core's typed errors onto HTTP statuses and
// stable codes. Raw database errors never reach the client.
func respondServiceError(c *gin.Context, err error) {
	var (
		validation   *errs.ValidationError
		notFound     *errs.NotFoundError
		insufficient *errs.InsufficientStockError
		transient    *errs.TransientError
		integrity    *errs.IntegrityError
	)

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, errorResponse("VALIDATION_ERROR", validation.Reason))
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, errorResponse("NOT_FOUND", notFound.Error()))
	case errors.As(err, &insufficient):
		c.JSON(http.StatusConflict, errorResponse("INSUFFICIENT_STOCK", insufficient.Error()))
	case errors.As(err, &transient):
		c.JSON(http.StatusServiceUnavailable, errorResponse("TRANSIENT", "Temporary storage failure, retry the request"))
	case errors.As(err, &integrity):
		c.JSON(http.StatusInternalServerError, errorResponse("INTEGRITY_ERROR", "Internal bookkeeping error"))
	default:
		c.JSON(http.StatusInternalServerError, errorResponse("INTERNAL", "Internal server error"))
	}
}

func actorID(c *gin.Context) int64 {
	return c.GetInt64(middleware.ContextUserID)
}

func storeID(c *gin.Context) int64 {
	return c.GetInt64(middleware.ContextStoreID)
}

type paginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalCount int64 `json:"total_count"`
}
