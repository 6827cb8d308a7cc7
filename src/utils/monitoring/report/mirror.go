package report

import (
	"go.uber.org/atomic"
)

type MirrorErrors struct {
	FetchFailures atomic.Uint64 `json:"fetch"`
	StoreFailures atomic.Uint64 `json:"store"`
}

type MirrorState struct {
	AddressesSynced       atomic.Uint64 `json:"addresses_synced"`
	UtxosInserted         atomic.Uint64 `json:"utxos_inserted"`
	LastFullSyncTimestamp atomic.Int64  `json:"last_full_sync_timestamp"`
}

type MirrorReport struct {
	State  MirrorState  `json:"state"`
	Errors MirrorErrors `json:"errors"`
}
