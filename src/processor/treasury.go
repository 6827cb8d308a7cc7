package processor

import (
	"github.com/warp-contracts/tom-indexer/src/utils/model"
	"github.com/warp-contracts/tom-indexer/src/utils/tom"
)

func (self *application) upsertTreasury(t *model.TreasuryContract) (err error) {
	t.ContractInstance = self.payload.Instance
	t.Id, err = self.repo.UpsertTreasuryContract(self.ctx, t)
	if err != nil {
		return
	}

	// Fill-only upsert, the stored row is what counts
	stored, err := self.repo.GetTreasuryContractByInstance(self.ctx, t.ContractInstance)
	if err != nil {
		return
	}
	self.outcome.addTreasury(stored)
	return
}

func (self *application) publish() (err error) {
	if self.payload.Instance == "" {
		return self.skip(OutcomeIgnored, "Publish without instance, skipping")
	}

	body := self.payload.Body
	err = self.upsertTreasury(&model.TreasuryContract{
		Name:          nullString(body.Text("label")),
		PublishTxHash: nullString(self.event.TxHash, true),
		PublishTime:   self.event.BlockTime,
		Permissions:   jsonb(body.Raw("permissions")),
	})
	if err != nil {
		return
	}

	return self.appendEvent(&model.Event{})
}

func (self *application) initialize() (err error) {
	if self.payload.Instance == "" {
		return self.skip(OutcomeIgnored, "Initialize without instance, skipping")
	}

	outputs, err := self.source.GetOutputs(self.ctx, self.event.TxHash)
	if err != nil {
		return
	}

	t := &model.TreasuryContract{
		InitializedTxHash: nullString(self.event.TxHash, true),
		InitializedAt:     self.event.BlockTime,
	}
	if o := self.scriptOutput(outputs); o != nil {
		t.ContractAddress = nullString(o.Address, true)
	}

	err = self.upsertTreasury(t)
	if err != nil {
		return
	}

	return self.appendEvent(&model.Event{})
}

// Sweep and reorganize only reference the treasury, which is never created here
func (self *application) treasuryScoped(eventType tom.EventType) (err error) {
	t, err := self.treasury()
	if err != nil {
		return
	}
	if t != nil {
		self.outcome.addTreasury(t)
	}

	return self.appendEvent(&model.Event{EventType: string(eventType)})
}
