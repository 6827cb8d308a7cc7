package ledger

import (
	"database/sql"
	"encoding/json"
	"strings"
)

// Position in the ledger. Transactions are ordered by slot and then by their index within the block
type Cursor struct {
	Slot    int64
	TxIndex int64
}

// Cursor placed before every transaction
var Genesis = Cursor{Slot: 0, TxIndex: -1}

func (self Cursor) Before(other Cursor) bool {
	if self.Slot != other.Slot {
		return self.Slot < other.Slot
	}
	return self.TxIndex < other.TxIndex
}

// Transaction carrying metadata under the watched label
type RawEvent struct {
	TxHash      string
	Slot        int64
	TxIndex     int64
	BlockNumber sql.NullInt64
	BlockTime   sql.NullInt64

	// Metadata as stored on chain, may be empty
	Body json.RawMessage
}

func (self *RawEvent) Cursor() Cursor {
	return Cursor{Slot: self.Slot, TxIndex: self.TxIndex}
}

// Output consumed by a transaction
type Input struct {
	TxHash      string
	OutputIndex int
}

// Output produced by a transaction
type Output struct {
	TxHash      string
	OutputIndex int
	Address     string
	Amount      int64
}

// Unspent output held by an address
type Utxo struct {
	Output
	Slot        int64
	BlockNumber sql.NullInt64
}

// Script addresses are recognized by their prefix
type AddressPattern string

func (self AddressPattern) Matches(address string) bool {
	return self != "" && strings.HasPrefix(address, string(self))
}
