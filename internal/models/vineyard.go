package models

import (
	"time"
)

// Vineyard mirrors an on-chain vineyard record. The chain assigns the ID;
// rows are immutable once indexed.
type Vineyard struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name         string    `gorm:"not null" json:"name"`
	Owner        string    `gorm:"not null" json:"owner"`
	GrapeVariety string    `json:"grape_variety"`
	Latitude     string    `gorm:"type:varchar(32)" json:"latitude"`
	Longitude    string    `gorm:"type:varchar(32)" json:"longitude"`
	RegisteredAt time.Time `json:"registered_at"`

	// Chain provenance
	BlockNumber uint64 `gorm:"index" json:"block_number"`
	TxHash      string `gorm:"type:varchar(66)" json:"tx_hash"`
	IndexedAt   time.Time `json:"indexed_at"`
}

// TableName specifies the table name for Vineyard model
func (Vineyard) TableName() string {
	return "vineyards"
}
