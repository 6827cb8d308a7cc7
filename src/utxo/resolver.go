package utxo

import (
	"context"
	"errors"
	"fmt"

	"github.com/warp-contracts/tom-indexer/src/store"
	"github.com/warp-contracts/tom-indexer/src/utils/config"
	"github.com/warp-contracts/tom-indexer/src/utils/ledger"
	"github.com/warp-contracts/tom-indexer/src/utils/logger"

	"github.com/sirupsen/logrus"
)

// Finds the vendor contract a transaction belongs to by following tracked outputs it spends.
// Ownership moves forward one hop per resolved transaction.
type Resolver struct {
	log     *logrus.Entry
	source  ledger.Source
	pattern ledger.AddressPattern
}

func NewResolver(config *config.Config) (self *Resolver) {
	self = new(Resolver)
	self.log = logger.NewSublogger("resolver")
	self.pattern = ledger.AddressPattern(config.Ledger.ScriptAddressPrefix)
	return
}

func (self *Resolver) WithSource(source ledger.Source) *Resolver {
	self.source = source
	return self
}

// Returns nil if none of the inputs is a tracked output with an owner.
// When inputs of different contracts are spent together the first input in ledger order decides.
// Every tracked input is marked spent, not only the one that decides ownership: rows without an owner
// and inputs of transactions that stay unresolved are flagged too, since the chain consumed them either way.
// The outputs of the transaction are registered under the owner.
func (self *Resolver) Resolve(ctx context.Context, repo store.Repository, event *ledger.RawEvent) (vendorContractId *int, err error) {
	vendorContractId, _, err = self.spend(ctx, repo, event)
	if err != nil {
		return nil, err
	}

	if vendorContractId == nil {
		self.log.WithField("tx_hash", event.TxHash).Debug("No tracked utxo among inputs")
		return nil, nil
	}

	err = self.propagate(ctx, repo, event, *vendorContractId)
	if err != nil {
		return nil, err
	}

	return
}

// Used when the transaction names its vendor contract explicitly. Tracked inputs are marked spent and,
// if the transaction spent any, its outputs are registered under the named contract whoever owned the inputs.
func (self *Resolver) Attach(ctx context.Context, repo store.Repository, event *ledger.RawEvent, vendorContractId int) (err error) {
	_, spent, err := self.spend(ctx, repo, event)
	if err != nil || spent == 0 {
		return
	}

	return self.propagate(ctx, repo, event, vendorContractId)
}

// Marks tracked inputs spent. Returns the owner of the first owned input and the number of tracked inputs
func (self *Resolver) spend(ctx context.Context, repo store.Repository, event *ledger.RawEvent) (owner *int, spent int, err error) {
	inputs, err := self.source.GetInputs(ctx, event.TxHash)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get inputs of %s: %w", event.TxHash, err)
	}

	for _, in := range inputs {
		tracked, err := repo.GetTrackedUtxo(ctx, in.TxHash, in.OutputIndex)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, 0, fmt.Errorf("failed to get tracked utxo %s#%d: %w", in.TxHash, in.OutputIndex, err)
		}

		err = repo.MarkTrackedUtxoSpent(ctx, in.TxHash, in.OutputIndex, event.TxHash, event.Slot)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to mark utxo %s#%d spent: %w", in.TxHash, in.OutputIndex, err)
		}
		spent++

		if owner != nil || !tracked.VendorContractId.Valid {
			continue
		}

		id := int(tracked.VendorContractId.Int32)
		owner = &id
	}

	return
}

func (self *Resolver) propagate(ctx context.Context, repo store.Repository, event *ledger.RawEvent, vendorContractId int) (err error) {
	vc, err := repo.GetVendorContract(ctx, vendorContractId)
	if err != nil {
		return fmt.Errorf("failed to get vendor contract %d: %w", vendorContractId, err)
	}

	outputs, err := self.source.GetOutputs(ctx, event.TxHash)
	if err != nil {
		return
	}

	err = repo.UpsertTrackedUtxoOwner(ctx, trackedOutputs(self.pattern, event, outputs, vc))
	if err != nil {
		return fmt.Errorf("failed to register outputs of %s: %w", event.TxHash, err)
	}

	self.log.WithField("tx_hash", event.TxHash).
		WithField("vendor_contract_id", vendorContractId).
		WithField("outputs", len(outputs)).
		Debug("Propagated ownership")
	return
}

// Registers every output of a funding transaction under the new vendor contract. Existing rows are kept
func (self *Resolver) Seed(ctx context.Context, repo store.Repository, event *ledger.RawEvent, outputs []ledger.Output, vendorContractId int) (err error) {
	vc, err := repo.GetVendorContract(ctx, vendorContractId)
	if err != nil {
		return fmt.Errorf("failed to get vendor contract %d: %w", vendorContractId, err)
	}

	_, err = repo.InsertTrackedUtxos(ctx, trackedOutputs(self.pattern, event, outputs, vc))
	if err != nil {
		return fmt.Errorf("failed to register outputs of %s: %w", event.TxHash, err)
	}
	return
}
