package processor

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/warp-contracts/tom-indexer/src/store"
	"github.com/warp-contracts/tom-indexer/src/utils/ledger"
	"github.com/warp-contracts/tom-indexer/src/utils/model"
	"github.com/warp-contracts/tom-indexer/src/utils/tom"

	"github.com/jackc/pgtype"
	"github.com/sirupsen/logrus"
)

// State of a single event being applied inside a repository transaction
type application struct {
	*Processor

	ctx     context.Context
	log     *logrus.Entry
	repo    store.Repository
	event   *ledger.RawEvent
	payload *tom.Payload
	outcome *Outcome
}

func (self *application) apply(eventType tom.EventType) error {
	switch eventType {
	case tom.EventTypePublish:
		return self.publish()
	case tom.EventTypeInitialize:
		return self.initialize()
	case tom.EventTypeFund:
		return self.fund()
	case tom.EventTypeComplete:
		return self.complete()
	case tom.EventTypeDisburse:
		return self.disburse()
	case tom.EventTypeWithdraw, tom.EventTypePause, tom.EventTypeResume, tom.EventTypeModify, tom.EventTypeCancel:
		return self.lifecycle(eventType)
	case tom.EventTypeSweep, tom.EventTypeSweepTreasury, tom.EventTypeSweepVendor, tom.EventTypeReorganize:
		return self.treasuryScoped(eventType.Canonical())
	}
	return nil
}

func (self *application) skip(kind OutcomeKind, msg string) error {
	self.outcome.Kind = kind
	self.log.Debug(msg)
	return nil
}

func nullString(s string, ok bool) sql.NullString {
	return sql.NullString{String: s, Valid: ok}
}

func nullInt64(v int64, ok bool) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: ok}
}

func nullId(id *int) sql.NullInt32 {
	if id == nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: int32(*id), Valid: true}
}

func jsonb(raw json.RawMessage) pgtype.JSONB {
	if raw == nil {
		return pgtype.JSONB{Status: pgtype.Null}
	}
	return pgtype.JSONB{Bytes: raw, Status: pgtype.Present}
}

// Project identifier given explicitly in the body, empty when absent or blank
func (self *application) identifier() string {
	id, _ := self.payload.Body.String("identifier")
	return strings.TrimSpace(id)
}

// Appends the audit record. Ids missing in the event are taken from the outcome
func (self *application) appendEvent(e *model.Event) (err error) {
	e.TxHash = self.event.TxHash
	e.Slot = self.event.Slot
	e.BlockNumber = self.event.BlockNumber
	e.BlockTime = self.event.BlockTime
	e.Metadata = jsonb(self.payload.Raw)
	if e.EventType == "" {
		e.EventType = string(self.outcome.EventType)
	}
	if !e.TreasuryId.Valid {
		e.TreasuryId = nullId(self.outcome.TreasuryId)
	}
	if !e.VendorContractId.Valid {
		e.VendorContractId = nullId(self.outcome.VendorContractId)
	}

	inserted, err := self.repo.InsertEvent(self.ctx, e)
	if err != nil {
		return
	}
	if inserted && self.outcome.Event == nil {
		self.outcome.Event = e
	}
	return
}

// Finds the vendor contract the event belongs to, nil if it can't be determined.
// An explicit identifier is resolved by project id only. Without one the owner is traced through the inputs.
func (self *application) vendorContract() (vc *model.VendorContract, err error) {
	if id := self.identifier(); id != "" {
		vc, err = self.repo.GetVendorContractByProjectId(self.ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			self.log.WithField("identifier", id).Debug("Unknown project identifier")
			return nil, nil
		}
		if err != nil {
			return nil, err
		}

		err = self.resolver.Attach(self.ctx, self.repo, self.event, vc.Id)
		if err != nil {
			return nil, err
		}
		return
	}

	traced, err := self.resolver.Resolve(self.ctx, self.repo, self.event)
	if err != nil || traced == nil {
		return nil, err
	}

	return self.repo.GetVendorContract(self.ctx, *traced)
}

// Treasury referenced by the payload's instance, nil if unknown
func (self *application) treasury() (*model.TreasuryContract, error) {
	if self.payload.Instance == "" {
		return nil, nil
	}
	t, err := self.repo.GetTreasuryContractByInstance(self.ctx, self.payload.Instance)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return t, err
}

// First output paid to a script address
func (self *application) scriptOutput(outputs []ledger.Output) *ledger.Output {
	for i := range outputs {
		if self.pattern.Matches(outputs[i].Address) {
			return &outputs[i]
		}
	}
	return nil
}
