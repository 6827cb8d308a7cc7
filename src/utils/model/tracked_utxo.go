package model

import (
	"database/sql"
)

const TableTrackedUtxo = "treasury.utxos"

type AddressType string

const (
	AddressTypeTreasury       AddressType = "treasury"
	AddressTypeVendorContract AddressType = "vendor_contract"
	AddressTypeVendor         AddressType = "vendor"
)

// Local mirror of a transaction output belonging to the treasury or one of its projects
type TrackedUtxo struct {
	Id               int `gorm:"primaryKey"`
	TxHash           string
	OutputIndex      int16
	Address          sql.NullString
	AddressType      sql.NullString
	VendorContractId sql.NullInt32
	LovelaceAmount   sql.NullInt64
	Slot             sql.NullInt64
	BlockNumber      sql.NullInt64
	Spent            bool
	SpentTxHash      sql.NullString
	SpentSlot        sql.NullInt64
}

func (TrackedUtxo) TableName() string {
	return TableTrackedUtxo
}
