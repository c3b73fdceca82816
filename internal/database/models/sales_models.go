package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "CASH"
	PaymentDebit    PaymentMethod = "DEBIT"
	PaymentCredit   PaymentMethod = "CREDIT"
	PaymentGiftCard PaymentMethod = "GIFT_CARD"
	PaymentOther    PaymentMethod = "OTHER"
)

func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCash, PaymentDebit, PaymentCredit, PaymentGiftCard, PaymentOther:
		return true
	}
	return false
}

type SaleStatus string

const (
	SaleCompleted SaleStatus = "COMPLETED"
	SalePending   SaleStatus = "PENDING"
	SaleRefunded  SaleStatus = "REFUNDED"
	SaleVoided    SaleStatus = "VOIDED"
)

type Sale struct {
	ID            int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	ReceiptNumber string  `gorm:"type:varchar(64);uniqueIndex;not null" json:"receipt_number"`
	StoreID       int64   `gorm:"not null;index" json:"store_id"`
	CashierID     int64   `gorm:"not null;index" json:"cashier_id"`
	CustomerName  *string `gorm:"type:varchar(128)" json:"customer_name,omitempty"`
	CustomerID    *string `gorm:"type:varchar(64)" json:"customer_id,omitempty"`

	Subtotal decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal"`
	Tax      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"tax"`
	Discount decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"discount"`
	Total    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total"`

	PaymentMethod PaymentMethod `gorm:"type:varchar(32);not null" json:"payment_method"`
	AgeVerified   bool          `gorm:"not null" json:"age_verified"`
	VerifiedBy    int64         `gorm:"not null" json:"verified_by"`
	Status        SaleStatus    `gorm:"type:varchar(16);not null" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Items []SaleItem `gorm:"foreignKey:SaleID" json:"items,omitempty"`
}

type SaleItem struct {
	ID        int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	SaleID    int64 `gorm:"index;not null" json:"sale_id"`
	ProductID int32 `gorm:"not null" json:"product_id"`
	Quantity  int64 `gorm:"not null" json:"quantity"`

	// Price at time of sale, not live-priced.
	UnitPrice decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	Discount  decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"discount"`
	LineTotal decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"line_total"`

	CreatedAt time.Time `json:"created_at"`

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}
