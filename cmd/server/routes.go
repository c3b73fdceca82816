package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"verdant-system/config"
	"verdant-system/internal/database"
	"verdant-system/internal/gateway/handlers"
	"verdant-system/internal/gateway/middleware"
	cataloghandler "verdant-system/internal/services/catalog/handler"
	inventoryhandler "verdant-system/internal/services/inventory/handler"
	ledgerhandler "verdant-system/internal/services/ledger/handler"
	saleshandler "verdant-system/internal/services/sales/handler"
	userhandler "verdant-system/internal/services/user/handler"
	"verdant-system/internal/utils"
)

func main() {
	cfg := config.LoadConfig()
	utils.SetJWTSecret(cfg.Auth.JWTSecret)

	db, err := database.NewConnection(cfg.DB.DSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	redisClient := config.NewRedisClient(cfg.Redis)

	users := userhandler.NewUserHandler(db)
	catalog := cataloghandler.NewCatalogHandler(db, redisClient)
	inventory := inventoryhandler.NewInventoryHandler(db)
	ledger := ledgerhandler.NewLedgerHandler(db)
	sales := saleshandler.NewSalesHandler(db, inventory, cfg.Store.TaxRate)

	authHandler := handlers.NewAuthHTTPHandler(users, cfg.Auth.TokenTTL)
	catalogHandler := handlers.NewCatalogHTTPHandler(catalog)
	inventoryHandler := handlers.NewInventoryHTTPHandler(inventory, ledger)
	salesHandler := handlers.NewSalesHTTPHandler(sales)

	r := gin.Default()

	r.Use(middleware.CORS())
	r.Use(gin.Recovery())
	r.Use(middleware.RateLimit())

	// --- Public API Group ---
	public := r.Group("/api/v1")
	{
		auth := public.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/register", authHandler.Register)
		}
	}

	// --- Protected API Group ---
	protected := r.Group("/api/v1")
	protected.Use(middleware.JWTAuth())
	{
		products := protected.Group("/products")
		{
			products.POST("", catalogHandler.CreateProduct)
			products.GET("", catalogHandler.ListProducts)
			products.GET("/:id", catalogHandler.GetProduct)
			products.GET("/sku/:sku", catalogHandler.GetProductBySKU)
			products.PUT("/:id", catalogHandler.UpdateProduct)
			products.DELETE("/:id", catalogHandler.DeactivateProduct)
		}

		batches := protected.Group("/batches")
		{
			batches.POST("", catalogHandler.CreateBatch)
			batches.GET("", catalogHandler.ListBatches)
			batches.GET("/:id", catalogHandler.GetBatch)
		}

		inventoryGroup := protected.Group("/inventory")
		{
			inventoryGroup.POST("", inventoryHandler.CreateInventory)
			inventoryGroup.GET("", inventoryHandler.ListInventories)
			inventoryGroup.GET("/low-stock", inventoryHandler.ListLowStock)
			inventoryGroup.GET("/available/:productId", inventoryHandler.GetAvailable)
			inventoryGroup.GET("/:id", inventoryHandler.GetInventory)
			inventoryGroup.GET("/:id/movements", inventoryHandler.ListMovements)
			inventoryGroup.POST("/:id/reconcile", inventoryHandler.ReconcileInventory)
			inventoryGroup.POST("/adjust", inventoryHandler.AdjustStock)
			inventoryGroup.POST("/reserve", inventoryHandler.ReserveStock)
			inventoryGroup.POST("/release", inventoryHandler.ReleaseStock)
			inventoryGroup.POST("/transfer", inventoryHandler.TransferStock)
		}

		salesGroup := protected.Group("/sales")
		{
			salesGroup.POST("", salesHandler.SettleSale)
			salesGroup.GET("", salesHandler.ListSales)
			salesGroup.GET("/:id", salesHandler.GetSale)
			salesGroup.POST("/:id/refund", salesHandler.RefundSale)
			salesGroup.POST("/:id/void", salesHandler.VoidSale)
		}

		movements := protected.Group("/movements")
		{
			movements.GET("/recent", inventoryHandler.ListRecentMovements)
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"message":   "Server is running",
			"timestamp": time.Now(),
		})
	})

	port := ":" + cfg.Server.Port
	log.Printf("Starting server on port %s", port)
	if err := r.Run(port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
