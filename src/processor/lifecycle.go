package processor

import (
	"github.com/warp-contracts/tom-indexer/src/utils/model"
	"github.com/warp-contracts/tom-indexer/src/utils/tom"
)

var statusChanges = map[tom.EventType]model.VendorContractStatus{
	tom.EventTypePause:  model.VendorContractStatusPaused,
	tom.EventTypeResume: model.VendorContractStatusActive,
	tom.EventTypeCancel: model.VendorContractStatusCancelled,
}

var withReason = map[tom.EventType]bool{
	tom.EventTypePause:  true,
	tom.EventTypeModify: true,
	tom.EventTypeCancel: true,
}

// Withdraw, pause, resume, modify and cancel
func (self *application) lifecycle(eventType tom.EventType) (err error) {
	vc, err := self.vendorContract()
	if err != nil {
		return
	}
	if vc == nil {
		return self.skip(OutcomeUnresolved, "Could not find vendor contract")
	}
	self.outcome.addVendorContract(vc)

	if status, ok := statusChanges[eventType]; ok {
		err = self.repo.SetVendorContractStatus(self.ctx, vc.Id, status)
		if err != nil {
			return
		}
	}

	e := &model.Event{}
	if withReason[eventType] {
		e.Reason = nullString(self.payload.Body.Text("reason"))
	}

	return self.appendEvent(e)
}
