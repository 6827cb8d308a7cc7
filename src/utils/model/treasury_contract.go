package model

import (
	"database/sql"
	"time"

	"github.com/jackc/pgtype"
)

const TableTreasuryContract = "treasury.treasury_contracts"

const TreasuryStatusActive = "active"

type TreasuryContract struct {
	Id                int `gorm:"primaryKey"`
	ContractInstance  string
	ContractAddress   sql.NullString
	StakeCredential   sql.NullString
	Name              sql.NullString
	PublishTxHash     sql.NullString
	PublishTime       sql.NullInt64
	InitializedTxHash sql.NullString
	InitializedAt     sql.NullInt64
	Permissions       pgtype.JSONB `gorm:"type:jsonb"`
	Status            string

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (TreasuryContract) TableName() string {
	return TableTreasuryContract
}
