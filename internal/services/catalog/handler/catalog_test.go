package handler

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"verdant-system/internal/database/models"
	"verdant-system/internal/services/errs"
)

func newTestCatalog(t *testing.T) *CatalogHandler {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.Product{}, &models.Batch{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	// No redis in tests; the handler runs cacheless.
	return NewCatalogHandler(db, nil)
}

func TestCreateProductValidatesCategory(t *testing.T) {
	catalog := newTestCatalog(t)

	_, err := catalog.CreateProduct(context.Background(), CreateProductInput{
		StoreID:   1,
		SKU:       "XX-1",
		Name:      "Mystery Item",
		Category:  "SNACKS",
		UnitPrice: decimal.RequireFromString("9.99"),
	})

	var validation *errs.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError for bad category, got %v", err)
	}
}

func TestCreateProductRoundsPrice(t *testing.T) {
	catalog := newTestCatalog(t)

	product, err := catalog.CreateProduct(context.Background(), CreateProductInput{
		StoreID:   1,
		SKU:       "FL-1",
		Name:      "Blue Dream 3.5g",
		Category:  models.CategoryFlower,
		UnitPrice: decimal.RequireFromString("35.005"),
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	if product.UnitPrice.StringFixed(2) != "35.01" {
		t.Fatalf("expected price rounded to 35.01, got %s", product.UnitPrice.StringFixed(2))
	}
	if !product.IsActive {
		t.Fatalf("new products must start active")
	}
}

func TestDeactivateProductKeepsRow(t *testing.T) {
	catalog := newTestCatalog(t)

	product, err := catalog.CreateProduct(context.Background(), CreateProductInput{
		StoreID:   1,
		SKU:       "FL-1",
		Name:      "Blue Dream 3.5g",
		Category:  models.CategoryFlower,
		UnitPrice: decimal.RequireFromString("35.00"),
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	deactivated, err := catalog.DeactivateProduct(context.Background(), product.ID)
	if err != nil {
		t.Fatalf("deactivate product: %v", err)
	}
	if deactivated.IsActive {
		t.Fatalf("product should be inactive after deactivation")
	}

	// Still retrievable: deactivation is a soft flag, not a delete.
	fetched, err := catalog.GetProduct(context.Background(), product.ID)
	if err != nil {
		t.Fatalf("get deactivated product: %v", err)
	}
	if fetched.SKU != "FL-1" {
		t.Fatalf("expected SKU FL-1, got %s", fetched.SKU)
	}
}

func TestGetProductBySKUScopedToStore(t *testing.T) {
	catalog := newTestCatalog(t)

	_, err := catalog.CreateProduct(context.Background(), CreateProductInput{
		StoreID:   1,
		SKU:       "FL-1",
		Name:      "Blue Dream 3.5g",
		Category:  models.CategoryFlower,
		UnitPrice: decimal.RequireFromString("35.00"),
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	if _, err := catalog.GetProductBySKU(context.Background(), 1, "FL-1"); err != nil {
		t.Fatalf("lookup in owning store failed: %v", err)
	}

	_, err = catalog.GetProductBySKU(context.Background(), 2, "FL-1")
	var notFound *errs.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError in other store, got %v", err)
	}
}

func TestListProductsFilters(t *testing.T) {
	catalog := newTestCatalog(t)
	ctx := context.Background()

	seed := []CreateProductInput{
		{StoreID: 1, SKU: "FL-1", Name: "Blue Dream 3.5g", Category: models.CategoryFlower, UnitPrice: decimal.RequireFromString("35.00")},
		{StoreID: 1, SKU: "ED-1", Name: "Sour Gummies 10mg", Category: models.CategoryEdibles, UnitPrice: decimal.RequireFromString("12.00")},
		{StoreID: 2, SKU: "FL-2", Name: "OG Kush 7g", Category: models.CategoryFlower, UnitPrice: decimal.RequireFromString("60.00")},
	}
	for _, input := range seed {
		if _, err := catalog.CreateProduct(ctx, input); err != nil {
			t.Fatalf("seed product %s: %v", input.SKU, err)
		}
	}

	products, total, err := catalog.ListProducts(ctx, ListProductsQuery{StoreID: 1})
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	if total != 2 || len(products) != 2 {
		t.Fatalf("expected 2 products in store 1, got total=%d len=%d", total, len(products))
	}

	flower := models.CategoryFlower
	products, total, err = catalog.ListProducts(ctx, ListProductsQuery{StoreID: 1, Category: &flower})
	if err != nil {
		t.Fatalf("list by category: %v", err)
	}
	if total != 1 || products[0].SKU != "FL-1" {
		t.Fatalf("expected only FL-1 for flower filter, got total=%d", total)
	}

	search := "Gummies"
	products, total, err = catalog.ListProducts(ctx, ListProductsQuery{StoreID: 1, SearchTerm: &search})
	if err != nil {
		t.Fatalf("list by search: %v", err)
	}
	if total != 1 || products[0].SKU != "ED-1" {
		t.Fatalf("expected only ED-1 for search %q, got total=%d", search, total)
	}
}

func TestUpdateProductPartial(t *testing.T) {
	catalog := newTestCatalog(t)

	product, err := catalog.CreateProduct(context.Background(), CreateProductInput{
		StoreID:   1,
		SKU:       "FL-1",
		Name:      "Blue Dream 3.5g",
		Category:  models.CategoryFlower,
		UnitPrice: decimal.RequireFromString("35.00"),
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	newPrice := decimal.RequireFromString("32.50")
	updated, err := catalog.UpdateProduct(context.Background(), product.ID, UpdateProductInput{
		UnitPrice: &newPrice,
	})
	if err != nil {
		t.Fatalf("update product: %v", err)
	}
	if updated.UnitPrice.StringFixed(2) != "32.50" {
		t.Fatalf("expected updated price 32.50, got %s", updated.UnitPrice.StringFixed(2))
	}
	if updated.Name != "Blue Dream 3.5g" {
		t.Fatalf("untouched fields must survive a partial update")
	}
}

func TestCreateBatchGeneratesNumber(t *testing.T) {
	catalog := newTestCatalog(t)

	batch, err := catalog.CreateBatch(context.Background(), CreateBatchInput{
		Supplier:        "Green Fields Farms",
		SupplierLicense: "LIC-00412",
		LabResults:      models.JSONMap{"thc": "22.4", "pesticides": "pass"},
	})
	if err != nil {
		t.Fatalf("create batch: %v", err)
	}
	if batch.BatchNumber == "" {
		t.Fatalf("expected a generated batch number")
	}

	fetched, err := catalog.GetBatch(context.Background(), batch.ID)
	if err != nil {
		t.Fatalf("get batch: %v", err)
	}
	if fetched.LabResults["pesticides"] != "pass" {
		t.Fatalf("lab results must round-trip, got %v", fetched.LabResults)
	}
}

func TestCreateBatchRequiresSupplier(t *testing.T) {
	catalog := newTestCatalog(t)

	_, err := catalog.CreateBatch(context.Background(), CreateBatchInput{})
	var validation *errs.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError without supplier, got %v", err)
	}
}
