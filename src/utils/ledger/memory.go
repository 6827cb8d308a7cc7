package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"sync"
)

// In-memory chain, used in tests and for dry runs
type MemorySource struct {
	mtx sync.RWMutex
	txs []*MemoryTx
}

type MemoryTx struct {
	Hash        string
	Slot        int64
	TxIndex     int64
	BlockNumber int64
	BlockTime   int64

	// Nil for transactions that carry no tagged metadata
	Metadata json.RawMessage

	// Set for transactions tagged with the label but with no metadata body
	Tagged bool

	Inputs  []Input
	Outputs []Output
}

func NewMemorySource() *MemorySource {
	return &MemorySource{}
}

// Appends a transaction. Outputs' TxHash and OutputIndex are filled in
func (self *MemorySource) Add(tx *MemoryTx) *MemorySource {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	for i := range tx.Outputs {
		tx.Outputs[i].TxHash = tx.Hash
		tx.Outputs[i].OutputIndex = i
	}

	self.txs = append(self.txs, tx)
	sort.SliceStable(self.txs, func(i, j int) bool {
		return self.txs[i].cursor().Before(self.txs[j].cursor())
	})
	return self
}

func (self *MemoryTx) cursor() Cursor {
	return Cursor{Slot: self.Slot, TxIndex: self.TxIndex}
}

func (self *MemorySource) find(txHash string) *MemoryTx {
	for _, tx := range self.txs {
		if tx.Hash == txHash {
			return tx
		}
	}
	return nil
}

func (self *MemorySource) GetEvents(ctx context.Context, after Cursor, limit int) (out []*RawEvent, err error) {
	self.mtx.RLock()
	defer self.mtx.RUnlock()

	for _, tx := range self.txs {
		if len(out) >= limit {
			break
		}
		if tx.Metadata == nil && !tx.Tagged {
			continue
		}
		if !after.Before(tx.cursor()) {
			continue
		}
		out = append(out, &RawEvent{
			TxHash:      tx.Hash,
			Slot:        tx.Slot,
			TxIndex:     tx.TxIndex,
			BlockNumber: sql.NullInt64{Int64: tx.BlockNumber, Valid: true},
			BlockTime:   sql.NullInt64{Int64: tx.BlockTime, Valid: true},
			Body:        tx.Metadata,
		})
	}
	return
}

func (self *MemorySource) GetInputs(ctx context.Context, txHash string) ([]Input, error) {
	self.mtx.RLock()
	defer self.mtx.RUnlock()

	tx := self.find(txHash)
	if tx == nil {
		return nil, nil
	}

	out := make([]Input, len(tx.Inputs))
	copy(out, tx.Inputs)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TxHash != out[j].TxHash {
			return out[i].TxHash < out[j].TxHash
		}
		return out[i].OutputIndex < out[j].OutputIndex
	})
	return out, nil
}

func (self *MemorySource) GetOutputs(ctx context.Context, txHash string) ([]Output, error) {
	self.mtx.RLock()
	defer self.mtx.RUnlock()

	tx := self.find(txHash)
	if tx == nil {
		return nil, nil
	}

	out := make([]Output, len(tx.Outputs))
	copy(out, tx.Outputs)
	return out, nil
}

func (self *MemorySource) GetAddressUtxos(ctx context.Context, address string) (out []Utxo, err error) {
	self.mtx.RLock()
	defer self.mtx.RUnlock()

	spent := make(map[Input]struct{})
	for _, tx := range self.txs {
		for _, in := range tx.Inputs {
			spent[in] = struct{}{}
		}
	}

	for _, tx := range self.txs {
		for _, o := range tx.Outputs {
			if o.Address != address {
				continue
			}
			if _, ok := spent[Input{TxHash: o.TxHash, OutputIndex: o.OutputIndex}]; ok {
				continue
			}
			out = append(out, Utxo{
				Output:      o,
				Slot:        tx.Slot,
				BlockNumber: sql.NullInt64{Int64: tx.BlockNumber, Valid: true},
			})
		}
	}
	return
}
