package processor

import (
	"fmt"

	"github.com/warp-contracts/tom-indexer/src/utils/model"
	"github.com/warp-contracts/tom-indexer/src/utils/tom"

	"github.com/lib/pq"
)

// Creates the vendor contract with its milestones and starts tracking the outputs of the funding transaction
func (self *application) fund() (err error) {
	projectId := self.identifier()
	if projectId == "" {
		return self.skip(OutcomeIgnored, "Fund without project identifier, skipping")
	}

	body := self.payload.Body

	outputs, err := self.source.GetOutputs(self.ctx, self.event.TxHash)
	if err != nil {
		return
	}

	vc := &model.VendorContract{
		ProjectId:     projectId,
		ProjectName:   nullString(body.Text("label")),
		Description:   nullString(body.Text("description")),
		ContractUrl:   nullString(body.Text("contract")),
		FundTxHash:    self.event.TxHash,
		FundSlot:      nullInt64(self.event.Slot, true),
		FundBlockTime: self.event.BlockTime,
		Status:        model.VendorContractStatusActive,
	}

	if others := body.Strings("otherIdentifiers"); len(others) > 0 {
		vc.OtherIdentifiers = pq.StringArray(others)
	}

	if vendor := body.Object("vendor"); vendor != nil {
		vc.VendorName = nullString(vendor.Text("name"))
		vc.VendorAddress = nullString(vendor.Text("label"))
		if !vc.VendorAddress.Valid {
			vc.VendorAddress = nullString(vendor.Text("address"))
		}
	}

	if o := self.scriptOutput(outputs); o != nil {
		vc.ContractAddress = nullString(o.Address, true)
		vc.InitialAmountLovelace = nullInt64(o.Amount, true)
	}

	if self.payload.Instance != "" {
		err = self.upsertTreasury(&model.TreasuryContract{})
		if err != nil {
			return
		}
		vc.TreasuryId = nullId(self.outcome.TreasuryId)
	}

	vc.Id, err = self.repo.UpsertVendorContract(self.ctx, vc)
	if err != nil {
		return
	}

	stored, err := self.repo.GetVendorContract(self.ctx, vc.Id)
	if err != nil {
		return
	}
	self.outcome.addVendorContract(stored)

	err = self.repo.InsertMilestones(self.ctx, self.milestones(body, stored.Id))
	if err != nil {
		return
	}

	// Every output of the funding transaction starts the provenance chain
	err = self.resolver.Seed(self.ctx, self.repo, self.event, outputs, stored.Id)
	if err != nil {
		return
	}

	return self.appendEvent(&model.Event{
		AmountLovelace: vc.InitialAmountLovelace,
	})
}

// Milestones in the order they're listed in the body
func (self *application) milestones(body tom.Fields, vendorContractId int) (out []*model.Milestone) {
	entries, ok := body.Array("milestones")
	if !ok {
		return
	}

	for idx, entry := range entries {
		id, ok := entry.String("identifier")
		if !ok {
			id = fmt.Sprintf("m-%d", idx)
		}

		out = append(out, &model.Milestone{
			VendorContractId:   vendorContractId,
			MilestoneId:        id,
			MilestoneOrder:     idx + 1,
			Label:              nullString(entry.Text("label")),
			Description:        nullString(entry.Text("description")),
			AcceptanceCriteria: nullString(entry.Text("acceptanceCriteria")),
			AmountLovelace:     nullInt64(entry.Int64("amount")),
			Status:             model.MilestoneStatusPending,
		})
	}
	return
}
