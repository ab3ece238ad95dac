package models

import (
	"time"
)

// Process mirrors an on-chain production process record. A process always
// references an existing vineyard; the contract rejects orphaned references
// and the client re-verifies before submitting.
type Process struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement:false" json:"id"`
	VineyardID  uint64    `gorm:"index;not null" json:"vineyard_id"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `json:"description"`
	FileName    string    `json:"file_name"`
	FileType    string    `gorm:"type:varchar(128)" json:"file_type"`
	IPFSCid     string    `gorm:"type:varchar(128)" json:"ipfs_cid"`
	CreatedAt   time.Time `json:"created_at"`
	CreatedBy   string    `gorm:"type:varchar(42)" json:"created_by"`

	// Chain provenance
	BlockNumber uint64 `gorm:"index" json:"block_number"`
	TxHash      string `gorm:"type:varchar(66)" json:"tx_hash"`
	IndexedAt   time.Time `json:"indexed_at"`

	// Relations
	Vineyard *Vineyard `gorm:"foreignKey:VineyardID" json:"vineyard,omitempty"`
}

// TableName specifies the table name for Process model
func (Process) TableName() string {
	return "processes"
}
