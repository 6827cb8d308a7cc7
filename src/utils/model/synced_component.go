package model

// Name of the stream a checkpoint belongs to
type SyncType string

const (
	SyncTypeEvents SyncType = "events"
	SyncTypeUtxos  SyncType = "utxos"
)
