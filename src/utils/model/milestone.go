package model

import (
	"database/sql"
	"time"

	"github.com/jackc/pgtype"
)

const TableMilestone = "treasury.milestones"

type MilestoneStatus string

const (
	MilestoneStatusPending   MilestoneStatus = "pending"
	MilestoneStatusCompleted MilestoneStatus = "completed"
	MilestoneStatusDisbursed MilestoneStatus = "disbursed"
)

type Milestone struct {
	Id                  int `gorm:"primaryKey"`
	VendorContractId    int
	MilestoneId         string
	MilestoneOrder      int
	Label               sql.NullString
	Description         sql.NullString
	AcceptanceCriteria  sql.NullString
	AmountLovelace      sql.NullInt64
	Status              MilestoneStatus
	CompleteTxHash      sql.NullString
	CompleteTime        sql.NullInt64
	CompleteDescription sql.NullString
	Evidence            pgtype.JSONB `gorm:"type:jsonb"`
	DisburseTxHash      sql.NullString
	DisburseTime        sql.NullInt64
	DisburseAmount      sql.NullInt64

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (Milestone) TableName() string {
	return TableMilestone
}
