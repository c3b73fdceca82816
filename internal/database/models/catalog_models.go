package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type ProductCategory string

const (
	CategoryFlower       ProductCategory = "FLOWER"
	CategoryEdibles      ProductCategory = "EDIBLES"
	CategoryConcentrates ProductCategory = "CONCENTRATES"
	CategoryVapes        ProductCategory = "VAPES"
	CategoryTopicals     ProductCategory = "TOPICALS"
	CategoryTinctures    ProductCategory = "TINCTURES"
	CategoryAccessories  ProductCategory = "ACCESSORIES"
	CategoryPreRolls     ProductCategory = "PRE_ROLLS"
)

func (c ProductCategory) Valid() bool {
	switch c {
	case CategoryFlower, CategoryEdibles, CategoryConcentrates, CategoryVapes,
		CategoryTopicals, CategoryTinctures, CategoryAccessories, CategoryPreRolls:
		return true
	}
	return false
}

// JSONMap stores free-form lab-result payloads as jsonb.
type JSONMap map[string]interface{}

func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = JSONMap{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("failed to scan JSONMap: %v", value)
	}
}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	return json.Marshal(m)
}

type Product struct {
	ID         int32            `gorm:"primaryKey;autoIncrement" json:"id"`
	StoreID    int64            `gorm:"not null;index;uniqueIndex:idx_store_sku" json:"store_id"`
	SKU        string           `gorm:"type:varchar(64);not null;uniqueIndex:idx_store_sku" json:"sku"`
	Name       string           `gorm:"type:varchar(128);not null" json:"name"`
	Category   ProductCategory  `gorm:"type:varchar(32);not null" json:"category"`
	THCPercent *decimal.Decimal `gorm:"type:numeric(5,2)" json:"thc_percent,omitempty"`
	CBDPercent *decimal.Decimal `gorm:"type:numeric(5,2)" json:"cbd_percent,omitempty"`
	UnitPrice  decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	IsActive   bool             `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`

	Inventories []Inventory `gorm:"foreignKey:ProductID" json:"inventories,omitempty"`
}

type Batch struct {
	ID              int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	BatchNumber     string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"batch_number"`
	Supplier        string     `gorm:"type:varchar(128);not null" json:"supplier"`
	SupplierLicense string     `gorm:"type:varchar(64)" json:"supplier_license"`
	ReceivedDate    *time.Time `json:"received_date,omitempty"`
	ExpiryDate      *time.Time `json:"expiry_date,omitempty"`
	TestDate        *time.Time `json:"test_date,omitempty"`
	LabResults      JSONMap    `gorm:"type:jsonb" json:"lab_results,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

type Inventory struct {
	ID              int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID       int32     `gorm:"not null;uniqueIndex:idx_product_store" json:"product_id"`
	StoreID         int64     `gorm:"not null;index;uniqueIndex:idx_product_store" json:"store_id"`
	Quantity        int64     `gorm:"not null;default:0" json:"quantity"`
	Reserved        int64     `gorm:"not null;default:0" json:"reserved"`
	Available       int64     `gorm:"not null;default:0" json:"available"`
	InitialQuantity int64     `gorm:"not null;default:0" json:"initial_quantity"`
	ReorderLevel    int64     `gorm:"not null;default:0" json:"reorder_level"`
	MaxStockLevel   *int64    `json:"max_stock_level,omitempty"`
	StorageLocation *string   `gorm:"type:varchar(128)" json:"storage_location,omitempty"`
	BatchID         *int64    `json:"batch_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Batch   *Batch   `gorm:"foreignKey:BatchID" json:"batch,omitempty"`
}
