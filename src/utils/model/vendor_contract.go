package model

import (
	"database/sql"
	"time"

	"github.com/lib/pq"
)

const TableVendorContract = "treasury.vendor_contracts"

type VendorContractStatus string

const (
	VendorContractStatusActive    VendorContractStatus = "active"
	VendorContractStatusPaused    VendorContractStatus = "paused"
	VendorContractStatusCompleted VendorContractStatus = "completed"
	VendorContractStatusCancelled VendorContractStatus = "cancelled"
)

// Project funded by a treasury contract
type VendorContract struct {
	Id                    int `gorm:"primaryKey"`
	TreasuryId            sql.NullInt32
	ProjectId             string
	OtherIdentifiers      pq.StringArray `gorm:"type:text[]"`
	ProjectName           sql.NullString
	Description           sql.NullString
	VendorName            sql.NullString
	VendorAddress         sql.NullString
	ContractUrl           sql.NullString
	ContractAddress       sql.NullString
	FundTxHash            string
	FundSlot              sql.NullInt64
	FundBlockTime         sql.NullInt64
	InitialAmountLovelace sql.NullInt64
	Status                VendorContractStatus

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (VendorContract) TableName() string {
	return TableVendorContract
}

// Aggregates computed over a vendor contract's milestones and tracked outputs
type VendorContractSummary struct {
	VendorContractId      int
	ProjectId             string
	Status                VendorContractStatus
	TotalMilestones       int64
	PendingMilestones     int64
	CompletedMilestones   int64
	DisbursedMilestones   int64
	TotalDisbursed        int64
	CurrentBalance        int64
	UnspentUtxoCount      int64
	EventCount            int64
	InitialAmountLovelace int64
}
