package processor

import (
	"github.com/warp-contracts/tom-indexer/src/utils/model"
	"github.com/warp-contracts/tom-indexer/src/utils/tom"
)

type OutcomeKind string

const (
	// Event interpreted and stored
	OutcomeApplied OutcomeKind = "applied"

	// Tagged transaction without usable metadata
	OutcomeNoBody OutcomeKind = "no_body"

	// Event type this indexer doesn't know
	OutcomeUnknownType OutcomeKind = "unknown_type"

	// Known type, but required fields are missing
	OutcomeIgnored OutcomeKind = "ignored"

	// Owning vendor contract couldn't be determined
	OutcomeUnresolved OutcomeKind = "unresolved"
)

// Result of processing a single event. Soft failures are outcomes, not errors
type Outcome struct {
	Kind      OutcomeKind
	EventType tom.EventType

	TreasuryId       *int
	VendorContractId *int

	// Addresses whose outputs may have changed
	Addresses []string

	// Audit record inserted by this call, nil if there was none or it already existed
	Event *model.Event
}

func (self *Outcome) addAddress(address string) {
	if address == "" {
		return
	}
	for _, a := range self.Addresses {
		if a == address {
			return
		}
	}
	self.Addresses = append(self.Addresses, address)
}

func (self *Outcome) addVendorContract(vc *model.VendorContract) {
	id := vc.Id
	self.VendorContractId = &id
	if vc.TreasuryId.Valid && self.TreasuryId == nil {
		treasuryId := int(vc.TreasuryId.Int32)
		self.TreasuryId = &treasuryId
	}
	self.addAddress(vc.ContractAddress.String)
	self.addAddress(vc.VendorAddress.String)
}

func (self *Outcome) addTreasury(t *model.TreasuryContract) {
	id := t.Id
	self.TreasuryId = &id
	self.addAddress(t.ContractAddress.String)
}
