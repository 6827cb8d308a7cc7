package model

import (
	"database/sql"
	"time"
)

const TableSyncStatus = "treasury.sync_status"

// Checkpoint of a single sync stream
type SyncStatus struct {
	Id       int `gorm:"primaryKey"`
	SyncType SyncType

	// Last fully applied transaction
	LastSlot    int64
	LastTxIndex int64
	LastBlock   sql.NullInt64
	LastTxHash  sql.NullString

	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (SyncStatus) TableName() string {
	return TableSyncStatus
}

// Returns true if (slot, txIndex) is strictly after the checkpoint
func (self *SyncStatus) IsBefore(slot, txIndex int64) bool {
	if slot != self.LastSlot {
		return self.LastSlot < slot
	}
	return self.LastTxIndex < txIndex
}
