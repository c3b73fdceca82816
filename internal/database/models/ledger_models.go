package models

import "time"

type MovementType string

const (
	MovementPurchase    MovementType = "PURCHASE"
	MovementSale        MovementType = "SALE"
	MovementTransferIn  MovementType = "TRANSFER_IN"
	MovementTransferOut MovementType = "TRANSFER_OUT"
	MovementAdjustment  MovementType = "ADJUSTMENT"
	MovementDamage      MovementType = "DAMAGE"
	MovementReturn      MovementType = "RETURN"
	MovementExpired     MovementType = "EXPIRED"
)

func (m MovementType) Valid() bool {
	switch m {
	case MovementPurchase, MovementSale, MovementTransferIn, MovementTransferOut,
		MovementAdjustment, MovementDamage, MovementReturn, MovementExpired:
		return true
	}
	return false
}

// Inbound reports whether the movement type adds stock. ADJUSTMENT carries
// either sign and is excluded here.
func (m MovementType) Inbound() bool {
	switch m {
	case MovementPurchase, MovementTransferIn, MovementReturn:
		return true
	}
	return false
}

// Outbound reports whether the movement type removes stock.
func (m MovementType) Outbound() bool {
	switch m {
	case MovementSale, MovementTransferOut, MovementDamage, MovementExpired:
		return true
	}
	return false
}

// StockMovement is one append-only ledger entry. Rows are never updated or
// deleted; corrections are new compensating ADJUSTMENT entries.
type StockMovement struct {
	ID          int64        `gorm:"primaryKey;autoIncrement" json:"id"`
	InventoryID int64        `gorm:"not null;index" json:"inventory_id"`
	StoreID     int64        `gorm:"not null;index" json:"store_id"`
	Type        MovementType `gorm:"type:varchar(16);not null" json:"type"`
	Delta       int64        `gorm:"not null" json:"delta"`
	Reason      string       `gorm:"type:varchar(255);not null" json:"reason"`
	Reference   *string      `gorm:"type:varchar(100)" json:"reference,omitempty"`
	CreatedBy   int64        `gorm:"not null" json:"created_by"`
	CreatedAt   time.Time    `json:"created_at"`

	Inventory *Inventory `gorm:"foreignKey:InventoryID" json:"inventory,omitempty"`
}
