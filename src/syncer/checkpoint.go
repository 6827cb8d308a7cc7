package syncer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/warp-contracts/tom-indexer/src/store"
	"github.com/warp-contracts/tom-indexer/src/utils/ledger"
	"github.com/warp-contracts/tom-indexer/src/utils/model"
)

// Position of a single sync stream, persisted in sync_status
type Checkpoint struct {
	repo     store.Repository
	syncType model.SyncType
}

func NewCheckpoint(repo store.Repository, syncType model.SyncType) *Checkpoint {
	return &Checkpoint{repo: repo, syncType: syncType}
}

// Missing row means nothing was applied yet
func (self *Checkpoint) Load(ctx context.Context) (cursor ledger.Cursor, err error) {
	status, err := self.repo.GetSyncStatus(ctx, self.syncType)
	if errors.Is(err, store.ErrNotFound) {
		return ledger.Genesis, nil
	}
	if err != nil {
		return ledger.Genesis, fmt.Errorf("failed to load %s checkpoint: %w", self.syncType, err)
	}

	return ledger.Cursor{Slot: status.LastSlot, TxIndex: status.LastTxIndex}, nil
}

// Moves the checkpoint to the event. Positions at or before the stored one are ignored
func (self *Checkpoint) Save(ctx context.Context, event *ledger.RawEvent) (saved bool, err error) {
	saved, err = self.repo.SaveSyncStatus(ctx, &model.SyncStatus{
		SyncType:    self.syncType,
		LastSlot:    event.Slot,
		LastTxIndex: event.TxIndex,
		LastBlock:   event.BlockNumber,
		LastTxHash:  sql.NullString{String: event.TxHash, Valid: event.TxHash != ""},
	})
	if err != nil {
		return false, fmt.Errorf("failed to save %s checkpoint: %w", self.syncType, err)
	}
	return
}
