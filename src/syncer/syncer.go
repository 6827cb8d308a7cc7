package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/warp-contracts/tom-indexer/src/processor"
	"github.com/warp-contracts/tom-indexer/src/store"
	"github.com/warp-contracts/tom-indexer/src/utils/config"
	"github.com/warp-contracts/tom-indexer/src/utils/ledger"
	"github.com/warp-contracts/tom-indexer/src/utils/model"
	"github.com/warp-contracts/tom-indexer/src/utils/monitoring"
	"github.com/warp-contracts/tom-indexer/src/utils/monitoring/report"
	"github.com/warp-contracts/tom-indexer/src/utils/task"
	"github.com/warp-contracts/tom-indexer/src/utxo"
)

// Applies tagged transactions in ledger order and keeps the checkpoint.
// Runs a one-off backfill and then polls for new events.
type Syncer struct {
	*task.Task

	report *report.SyncerReport

	source    ledger.Source
	processor *processor.Processor
	mirror    *utxo.Mirror

	events *Checkpoint
	utxos  *Checkpoint

	// Applied events are sent here, if set
	output chan *model.Event

	// Backfill position, kept in memory so an interrupted backfill continues where it stopped
	backfillCursor *ledger.Cursor
	isBackfilled   bool

	// Consecutive failures of the transaction at the head of the stream
	failedTxHash   string
	failedAttempts int

	lastFullSync time.Time

	batchSize int
}

func NewSyncer(config *config.Config) (self *Syncer) {
	self = new(Syncer)
	self.report = &report.SyncerReport{}

	self.batchSize = config.Syncer.BatchSize
	if self.batchSize < 1 {
		self.batchSize = 1
	}

	self.Task = task.NewTask(config, "syncer").
		WithPeriodicSubtaskFunc(config.Syncer.PollInterval, self.run)

	return
}

func (self *Syncer) WithRepository(repo store.Repository) *Syncer {
	self.events = NewCheckpoint(repo, model.SyncTypeEvents)
	self.utxos = NewCheckpoint(repo, model.SyncTypeUtxos)
	return self
}

func (self *Syncer) WithSource(source ledger.Source) *Syncer {
	self.source = source
	return self
}

func (self *Syncer) WithProcessor(processor *processor.Processor) *Syncer {
	self.processor = processor
	return self
}

func (self *Syncer) WithMirror(mirror *utxo.Mirror) *Syncer {
	self.mirror = mirror
	return self
}

func (self *Syncer) WithMonitor(monitor monitoring.Monitor) *Syncer {
	self.report = monitor.GetReport().Syncer
	return self
}

func (self *Syncer) WithOutput(output chan *model.Event) *Syncer {
	self.output = output
	return self
}

// Single tick. Failures are logged and retried on the next tick
func (self *Syncer) run() (err error) {
	if !self.isBackfilled {
		err = self.backfill()
		if err != nil {
			self.Log.WithError(err).Error("Backfill interrupted, will continue")
			return nil
		}
	}

	err = self.poll()
	if err != nil {
		self.Log.WithError(err).Warn("Poll failed, will retry")
	}
	return nil
}

func (self *Syncer) backfill() (err error) {
	if self.backfillCursor == nil {
		cursor := ledger.Genesis
		if !self.Config.Syncer.BackfillFromGenesis {
			cursor, err = self.events.Load(self.Ctx)
			if err != nil {
				self.report.Errors.CheckpointLoadFailures.Inc()
				return
			}
		}
		self.backfillCursor = &cursor
		self.Log.WithField("slot", cursor.Slot).WithField("tx_index", cursor.TxIndex).Info("Starting backfill")
	}

	var applied int
	for !self.IsStopping.Load() {
		var n int
		n, err = self.batch(self.backfillCursor)
		applied += n
		if err != nil {
			return
		}
		if n < self.batchSize {
			break
		}
	}
	if self.IsStopping.Load() {
		return
	}

	err = self.fullSync()
	if err != nil {
		return
	}

	self.isBackfilled = true
	self.report.State.BackfillFinished.Store(true)
	self.Log.WithField("events", applied).Info("Backfill finished")
	return
}

// Steady state, applies everything after the checkpoint
func (self *Syncer) poll() (err error) {
	cursor, err := self.events.Load(self.Ctx)
	if err != nil {
		self.report.Errors.CheckpointLoadFailures.Inc()
		return
	}

	for !self.IsStopping.Load() {
		var n int
		n, err = self.batch(&cursor)
		if err != nil {
			return
		}
		if n < self.batchSize {
			break
		}
	}

	self.report.State.LastPollTimestamp.Store(time.Now().Unix())

	if time.Since(self.lastFullSync) >= self.Config.Mirror.FullSyncInterval {
		return self.fullSync()
	}
	return
}

// Fetches and applies one batch after the cursor, moves the cursor to the last consumed event.
// Returns the number of fetched events.
func (self *Syncer) batch(cursor *ledger.Cursor) (n int, err error) {
	events, err := self.source.GetEvents(self.Ctx, *cursor, self.batchSize)
	if err != nil {
		self.report.Errors.FetchFailures.Inc()
		return 0, fmt.Errorf("failed to get events: %w", err)
	}
	self.report.State.EventsFetched.Add(uint64(len(events)))

	last, addresses, applyErr := self.apply(events)
	if last != nil {
		*cursor = last.Cursor()
		err = self.checkpoint(last)
		if err != nil {
			return
		}
	}

	// Outputs touched by the batch are refreshed even if the batch stopped early
	if len(addresses) > 0 {
		_, err = self.mirror.SyncAddresses(self.Ctx, addresses)
		if err != nil {
			self.Log.WithError(err).Warn("Failed to mirror touched addresses")
		}
	}

	if applyErr != nil {
		return 0, applyErr
	}
	return len(events), nil
}

// Applies events sequentially and stops at the first failure.
// Returns the last consumed event and addresses touched by the applied ones.
func (self *Syncer) apply(events []*ledger.RawEvent) (last *ledger.RawEvent, addresses []string, err error) {
	for _, event := range events {
		if self.IsStopping.Load() {
			return
		}

		var outcome *processor.Outcome
		outcome, err = self.process(event)
		if err != nil {
			self.report.Errors.ApplyFailures.Inc()
			if !self.giveUp(event) {
				return
			}

			self.Log.WithError(err).
				WithField("tx_hash", event.TxHash).
				WithField("slot", event.Slot).
				WithField("attempts", self.Config.Syncer.MaxEventAttempts).
				Error("Skipping event that keeps failing")
			self.report.State.EventsSkipped.Inc()
			err = nil
			last = event
			continue
		}

		self.count(outcome)
		addresses = append(addresses, outcome.Addresses...)
		self.publish(outcome.Event)
		last = event
	}
	return
}

func (self *Syncer) process(event *ledger.RawEvent) (*processor.Outcome, error) {
	ctx, cancel := context.WithTimeout(self.Ctx, self.Config.Syncer.EventTimeout)
	defer cancel()

	outcome, err := self.processor.Process(ctx, event)
	if err != nil {
		return nil, err
	}

	if event.TxHash == self.failedTxHash {
		self.failedTxHash = ""
		self.failedAttempts = 0
	}
	return outcome, nil
}

// Counts a failed attempt, returns true once the event should be skipped
func (self *Syncer) giveUp(event *ledger.RawEvent) bool {
	if event.TxHash != self.failedTxHash {
		self.failedTxHash = event.TxHash
		self.failedAttempts = 0
	}
	self.failedAttempts++

	if self.failedAttempts < self.Config.Syncer.MaxEventAttempts {
		return false
	}

	self.failedTxHash = ""
	self.failedAttempts = 0
	return true
}

func (self *Syncer) count(outcome *processor.Outcome) {
	switch outcome.Kind {
	case processor.OutcomeApplied:
		self.report.State.EventsApplied.Inc()
	case processor.OutcomeNoBody:
		self.report.State.EventsNoBody.Inc()
	case processor.OutcomeUnknownType:
		self.report.State.EventsUnknownType.Inc()
	case processor.OutcomeIgnored:
		self.report.State.EventsIgnored.Inc()
	case processor.OutcomeUnresolved:
		self.report.State.EventsUnresolved.Inc()
	}
}

func (self *Syncer) publish(event *model.Event) {
	if self.output == nil || event == nil {
		return
	}

	select {
	case <-self.Ctx.Done():
	case self.output <- event:
	}
}

func (self *Syncer) checkpoint(event *ledger.RawEvent) (err error) {
	saved, err := self.events.Save(self.Ctx, event)
	if err != nil {
		self.report.Errors.CheckpointSaveFailures.Inc()
		return
	}
	if !saved {
		// Replaying events behind the checkpoint
		return
	}

	self.report.State.CheckpointSlot.Store(event.Slot)
	self.report.State.CheckpointTxIndex.Store(event.TxIndex)
	return
}

// Mirrors every tracked address and records the position the mirror is consistent with
func (self *Syncer) fullSync() (err error) {
	n, err := self.mirror.Sync(self.Ctx)
	if err != nil {
		return fmt.Errorf("failed to mirror tracked addresses: %w", err)
	}

	self.lastFullSync = time.Now()
	self.Log.WithField("inserted", n).Info("Mirrored tracked addresses")

	cursor, err := self.events.Load(self.Ctx)
	if err != nil {
		self.report.Errors.CheckpointLoadFailures.Inc()
		return
	}
	_, err = self.utxos.Save(self.Ctx, &ledger.RawEvent{Slot: cursor.Slot, TxIndex: cursor.TxIndex})
	return
}
