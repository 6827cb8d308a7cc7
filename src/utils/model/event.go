package model

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jackc/pgtype"
)

const TableEvent = "treasury.events"

// Immutable audit record, one per transaction
type Event struct {
	Id               int `gorm:"primaryKey"`
	TxHash           string
	Slot             int64
	BlockNumber      sql.NullInt64
	BlockTime        sql.NullInt64
	EventType        string
	TreasuryId       sql.NullInt32
	VendorContractId sql.NullInt32
	MilestoneId      sql.NullInt32
	AmountLovelace   sql.NullInt64
	Reason           sql.NullString
	Destination      sql.NullString
	Metadata         pgtype.JSONB `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (Event) TableName() string {
	return TableEvent
}

// Flat representation used in notifications
type eventMessage struct {
	TxHash           string          `json:"tx_hash"`
	Slot             int64           `json:"slot"`
	BlockNumber      *int64          `json:"block_number,omitempty"`
	BlockTime        *int64          `json:"block_time,omitempty"`
	EventType        string          `json:"event_type"`
	TreasuryId       *int32          `json:"treasury_id,omitempty"`
	VendorContractId *int32          `json:"vendor_contract_id,omitempty"`
	MilestoneId      *int32          `json:"milestone_id,omitempty"`
	AmountLovelace   *int64          `json:"amount_lovelace,omitempty"`
	Reason           *string         `json:"reason,omitempty"`
	Destination      *string         `json:"destination,omitempty"`
	Metadata         json.RawMessage `json:"metadata,omitempty"`
}

func nullInt64(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}

func nullInt32(v sql.NullInt32) *int32 {
	if !v.Valid {
		return nil
	}
	return &v.Int32
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func (self *Event) MarshalBinary() ([]byte, error) {
	msg := eventMessage{
		TxHash:           self.TxHash,
		Slot:             self.Slot,
		BlockNumber:      nullInt64(self.BlockNumber),
		BlockTime:        nullInt64(self.BlockTime),
		EventType:        self.EventType,
		TreasuryId:       nullInt32(self.TreasuryId),
		VendorContractId: nullInt32(self.VendorContractId),
		MilestoneId:      nullInt32(self.MilestoneId),
		AmountLovelace:   nullInt64(self.AmountLovelace),
		Reason:           nullString(self.Reason),
		Destination:      nullString(self.Destination),
	}
	if self.Metadata.Status == pgtype.Present {
		msg.Metadata = json.RawMessage(self.Metadata.Bytes)
	}
	return json.Marshal(msg)
}
