package models

import (
	"time"

	"gorm.io/datatypes"
)

// ChainEvent is the raw audit trail of indexed contract events. The read
// model tables are projections; this table keeps the original log payload.
type ChainEvent struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"type:varchar(64);index" json:"name"`
	RecordID    uint64         `gorm:"index" json:"record_id"`
	BlockNumber uint64         `gorm:"index" json:"block_number"`
	TxHash      string         `gorm:"type:varchar(66)" json:"tx_hash"`
	LogIndex    uint           `json:"log_index"`
	Payload     datatypes.JSON `gorm:"type:jsonb" json:"payload"`
	CreatedAt   time.Time      `json:"created_at"`
}

// TableName specifies the table name for ChainEvent model
func (ChainEvent) TableName() string {
	return "chain_events"
}

// IndexCheckpoint tracks the last block the indexer has scanned. A single
// row (ID=1) is maintained; scans resume from LastBlock+1.
type IndexCheckpoint struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	LastBlock uint64    `json:"last_block"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for IndexCheckpoint model
func (IndexCheckpoint) TableName() string {
	return "index_checkpoints"
}
