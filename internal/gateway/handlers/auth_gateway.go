package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	userhandler "verdant-system/internal/services/user/handler"
	"verdant-system/internal/utils"
)

type AuthHTTPHandler struct {
	users    *userhandler.UserHandler
	tokenTTL time.Duration
}

func NewAuthHTTPHandler(users *userhandler.UserHandler, tokenTTL time.Duration) *AuthHTTPHandler {
	return &AuthHTTPHandler{
		users:    users,
		tokenTTL: tokenTTL,
	}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RegisterRequest struct {
	Username  string `json:"username" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=6"`
	Firstname string `json:"firstname" binding:"required"`
	Lastname  string `json:"lastname" binding:"required"`
	Role      string `json:"role,omitempty"`
	StoreID   int64  `json:"store_id" binding:"required"`
}

func (h *AuthHTTPHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("VALIDATION_ERROR", "Invalid request format"))
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, errorResponse("UNAUTHORIZED", "Invalid credentials"))
		return
	}

	token, expiresAt, err := utils.GenerateToken(user.ID, user.Username, user.StoreID, user.Role, h.tokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("INTERNAL", "Failed to issue token"))
		return
	}

	c.JSON(http.StatusOK, successResponse("Login successful", map[string]interface{}{
		"token":      token,
		"expires_at": expiresAt,
		"user":       user,
	}))
}

func (h *AuthHTTPHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("VALIDATION_ERROR", "Invalid request format"))
		return
	}

	user, err := h.users.CreateUser(c.Request.Context(), userhandler.CreateUserInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		Firstname: req.Firstname,
		Lastname:  req.Lastname,
		Role:      req.Role,
		StoreID:   req.StoreID,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("User registered successfully", user))
}
