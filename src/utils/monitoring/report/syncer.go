package report

import (
	"go.uber.org/atomic"
)

type SyncerErrors struct {
	FetchFailures          atomic.Uint64 `json:"fetch"`
	ApplyFailures          atomic.Uint64 `json:"apply"`
	CheckpointLoadFailures atomic.Uint64 `json:"checkpoint_load"`
	CheckpointSaveFailures atomic.Uint64 `json:"checkpoint_save"`
}

type SyncerState struct {
	// Position of the last applied event
	CheckpointSlot    atomic.Int64 `json:"checkpoint_slot"`
	CheckpointTxIndex atomic.Int64 `json:"checkpoint_tx_index"`

	LastPollTimestamp atomic.Int64 `json:"last_poll_timestamp"`
	BackfillFinished  atomic.Bool  `json:"backfill_finished"`

	EventsFetched     atomic.Uint64 `json:"events_fetched"`
	EventsApplied     atomic.Uint64 `json:"events_applied"`
	EventsNoBody      atomic.Uint64 `json:"events_no_body"`
	EventsUnknownType atomic.Uint64 `json:"events_unknown_type"`
	EventsIgnored     atomic.Uint64 `json:"events_ignored"`
	EventsUnresolved  atomic.Uint64 `json:"events_unresolved"`
	EventsSkipped     atomic.Uint64 `json:"events_skipped"`

	AverageEventsAppliedPerMinute atomic.Float64 `json:"average_events_applied_per_minute"`
}

type SyncerReport struct {
	State  SyncerState  `json:"state"`
	Errors SyncerErrors `json:"errors"`
}
