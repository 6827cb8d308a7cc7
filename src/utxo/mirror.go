package utxo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/warp-contracts/tom-indexer/src/store"
	"github.com/warp-contracts/tom-indexer/src/utils/config"
	"github.com/warp-contracts/tom-indexer/src/utils/ledger"
	"github.com/warp-contracts/tom-indexer/src/utils/logger"
	"github.com/warp-contracts/tom-indexer/src/utils/model"
	"github.com/warp-contracts/tom-indexer/src/utils/monitoring"
	"github.com/warp-contracts/tom-indexer/src/utils/monitoring/report"

	"github.com/gammazero/workerpool"
	"github.com/sirupsen/logrus"
)

// Copies current outputs of treasury and project addresses into tracked utxos.
// Existing rows are never modified, spent flags set while resolving provenance stay authoritative.
type Mirror struct {
	log     *logrus.Entry
	config  *config.Config
	repo    store.Repository
	source  ledger.Source
	pattern ledger.AddressPattern
	report  *report.MirrorReport
}

func NewMirror(config *config.Config) (self *Mirror) {
	self = new(Mirror)
	self.config = config
	self.log = logger.NewSublogger("mirror")
	self.pattern = ledger.AddressPattern(config.Ledger.ScriptAddressPrefix)
	self.report = &report.MirrorReport{}
	return
}

func (self *Mirror) WithRepository(repo store.Repository) *Mirror {
	self.repo = repo
	return self
}

func (self *Mirror) WithMonitor(monitor monitoring.Monitor) *Mirror {
	self.report = monitor.GetReport().Mirror
	return self
}

func (self *Mirror) WithSource(source ledger.Source) *Mirror {
	self.source = source
	return self
}

// Mirrors every address known from contracts. Returns the number of inserted rows
func (self *Mirror) Sync(ctx context.Context) (n int64, err error) {
	addresses, err := self.repo.GetTrackedAddresses(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get tracked addresses: %w", err)
	}
	return self.SyncAddresses(ctx, addresses)
}

type fetched struct {
	address string
	utxos   []ledger.Utxo
	err     error
}

// Mirrors only the given addresses
func (self *Mirror) SyncAddresses(ctx context.Context, addresses []string) (n int64, err error) {
	addresses = unique(addresses)
	if len(addresses) == 0 {
		return
	}

	// Download in parallel
	results := make([]fetched, len(addresses))
	size := self.config.Mirror.WorkerPoolSize
	if size < 1 {
		size = 1
	}
	workers := workerpool.New(size)
	for i := range addresses {
		i := i
		workers.Submit(func() {
			results[i].address = addresses[i]
			results[i].utxos, results[i].err = self.source.GetAddressUtxos(ctx, addresses[i])
		})
	}
	workers.StopWait()

	// Store sequentially
	for _, r := range results {
		if r.err != nil {
			self.report.Errors.FetchFailures.Inc()
			return n, fmt.Errorf("failed to get utxos of %s: %w", r.address, r.err)
		}

		inserted, err := self.store(ctx, r.address, r.utxos)
		if err != nil {
			self.report.Errors.StoreFailures.Inc()
			return n, err
		}
		n += inserted
		self.report.State.AddressesSynced.Inc()
		self.report.State.UtxosInserted.Add(uint64(inserted))
	}

	self.log.WithField("addresses", len(addresses)).WithField("inserted", n).Debug("Mirrored addresses")
	return
}

func (self *Mirror) store(ctx context.Context, address string, utxos []ledger.Utxo) (n int64, err error) {
	if len(utxos) == 0 {
		return
	}

	var owner sql.NullInt32
	vc, err := self.repo.FindVendorContractByAddress(ctx, address)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return 0, fmt.Errorf("failed to find contract of %s: %w", address, err)
	default:
		owner = sql.NullInt32{Int32: int32(vc.Id), Valid: true}
	}

	addressType := Classify(self.pattern, address, owner.Valid)

	rows := make([]*model.TrackedUtxo, 0, len(utxos))
	for _, u := range utxos {
		rows = append(rows, &model.TrackedUtxo{
			TxHash:           u.TxHash,
			OutputIndex:      int16(u.OutputIndex),
			Address:          sql.NullString{String: address, Valid: true},
			AddressType:      sql.NullString{String: string(addressType), Valid: true},
			VendorContractId: owner,
			LovelaceAmount:   sql.NullInt64{Int64: u.Amount, Valid: true},
			Slot:             sql.NullInt64{Int64: u.Slot, Valid: true},
			BlockNumber:      u.BlockNumber,
		})
	}

	n, err = self.repo.InsertTrackedUtxos(ctx, rows)
	if err != nil {
		return 0, fmt.Errorf("failed to insert utxos of %s: %w", address, err)
	}
	return
}

func unique(in []string) (out []string) {
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return
}
