package processor

import (
	"errors"

	"github.com/warp-contracts/tom-indexer/src/store"
	"github.com/warp-contracts/tom-indexer/src/utils/model"
)

func (self *application) complete() (err error) {
	vc, err := self.vendorContract()
	if err != nil {
		return
	}
	if vc == nil {
		return self.skip(OutcomeUnresolved, "Could not find vendor contract for complete event")
	}
	self.outcome.addVendorContract(vc)

	body := self.payload.Body
	touched := false

	// Keyed encoding: {"milestones": {"<id>": {"description": ..., "evidence": ...}}}
	if milestones := body.Object("milestones"); milestones != nil {
		for _, milestoneId := range milestones.Keys() {
			entry := milestones.Object(milestoneId)
			id, err := self.repo.CompleteMilestone(self.ctx, vc.Id, milestoneId, &store.MilestoneCompletion{
				TxHash:      self.event.TxHash,
				Time:        self.event.BlockTime,
				Description: nullString(entry.Text("description")),
				Evidence:    jsonb(entry.Raw("evidence")),
			})
			if errors.Is(err, store.ErrNotFound) {
				self.log.WithField("milestone", milestoneId).Debug("Unknown milestone")
				continue
			}
			if errors.Is(err, store.ErrNotTransitioned) {
				self.log.WithField("milestone", milestoneId).Debug("Milestone can't be completed anymore")
				continue
			}
			if err != nil {
				return err
			}

			touched = true

			// Only the first one is stored, there's one audit record per transaction
			err = self.appendEvent(&model.Event{MilestoneId: nullId(&id)})
			if err != nil {
				return err
			}
		}
	}

	// Legacy encoding: {"milestone": "<id>"}
	if milestoneId, ok := body.String("milestone"); ok {
		_, err = self.repo.CompleteMilestone(self.ctx, vc.Id, milestoneId, &store.MilestoneCompletion{
			TxHash:      self.event.TxHash,
			Time:        self.event.BlockTime,
			OnlyPending: true,
		})
		switch {
		case errors.Is(err, store.ErrNotFound):
			self.log.WithField("milestone", milestoneId).Debug("Unknown milestone")
		case errors.Is(err, store.ErrNotTransitioned):
			self.log.WithField("milestone", milestoneId).Debug("Milestone isn't pending")
		case err != nil:
			return
		}
	}

	if touched {
		return nil
	}

	return self.appendEvent(&model.Event{})
}

func (self *application) disburse() (err error) {
	vc, err := self.vendorContract()
	if err != nil {
		return
	}

	if vc != nil {
		self.outcome.addVendorContract(vc)
	} else {
		// Recorded on the treasury level
		t, err := self.treasury()
		if err != nil {
			return err
		}
		if t != nil {
			self.outcome.addTreasury(t)
		}
	}

	outputs, err := self.source.GetOutputs(self.ctx, self.event.TxHash)
	if err != nil {
		return
	}

	// Funds leaving script custody
	var amount int64
	for _, o := range outputs {
		if !self.pattern.Matches(o.Address) {
			amount += o.Amount
			self.outcome.addAddress(o.Address)
		}
	}

	e := &model.Event{
		AmountLovelace: nullInt64(amount, true),
		Destination:    nullString(self.payload.Body.Text("destination")),
	}

	if milestoneId, ok := self.payload.Body.String("milestone"); ok && vc != nil {
		id, err := self.repo.DisburseMilestone(self.ctx, vc.Id, milestoneId, &store.MilestoneDisbursement{
			TxHash: self.event.TxHash,
			Time:   self.event.BlockTime,
			Amount: nullInt64(amount, true),
		})
		switch {
		case errors.Is(err, store.ErrNotFound):
			self.log.WithField("milestone", milestoneId).Debug("Unknown milestone")
		case errors.Is(err, store.ErrNotTransitioned):
			self.log.WithField("milestone", milestoneId).Debug("Milestone already disbursed")
		case err != nil:
			return err
		default:
			e.MilestoneId = nullId(&id)
		}
	}

	return self.appendEvent(e)
}
