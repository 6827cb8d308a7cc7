package utxo

import (
	"database/sql"

	"github.com/warp-contracts/tom-indexer/src/utils/ledger"
	"github.com/warp-contracts/tom-indexer/src/utils/model"
)

// Script addresses belong either to a vendor contract or to the treasury, anything else is a vendor payout address
func Classify(pattern ledger.AddressPattern, address string, linked bool) model.AddressType {
	if !pattern.Matches(address) {
		return model.AddressTypeVendor
	}
	if linked {
		return model.AddressTypeVendorContract
	}
	return model.AddressTypeTreasury
}

// Rows for the outputs of a transaction owned by the vendor contract
func trackedOutputs(pattern ledger.AddressPattern, event *ledger.RawEvent, outputs []ledger.Output, vc *model.VendorContract) []*model.TrackedUtxo {
	out := make([]*model.TrackedUtxo, 0, len(outputs))
	for _, o := range outputs {
		linked := vc.ContractAddress.Valid && vc.ContractAddress.String == o.Address
		out = append(out, &model.TrackedUtxo{
			TxHash:           o.TxHash,
			OutputIndex:      int16(o.OutputIndex),
			Address:          sql.NullString{String: o.Address, Valid: o.Address != ""},
			AddressType:      sql.NullString{String: string(Classify(pattern, o.Address, linked)), Valid: true},
			VendorContractId: sql.NullInt32{Int32: int32(vc.Id), Valid: true},
			LovelaceAmount:   sql.NullInt64{Int64: o.Amount, Valid: true},
			Slot:             sql.NullInt64{Int64: event.Slot, Valid: true},
			BlockNumber:      event.BlockNumber,
		})
	}
	return out
}
