package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/warp-contracts/tom-indexer/src/utils/config"
	"github.com/warp-contracts/tom-indexer/src/utils/logger"

	"github.com/lib/pq"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Source backed by the tables of a yaci-store indexer living in the same database
type YaciSource struct {
	db     *gorm.DB
	log    *logrus.Entry
	config *config.Config

	schema string

	// Transaction outputs never change, so they're cached
	outputs *cache.Cache
}

func NewYaciSource(config *config.Config) (self *YaciSource) {
	self = new(YaciSource)
	self.config = config
	self.log = logger.NewSublogger("yaci-source")
	self.schema = pq.QuoteIdentifier(config.Ledger.Schema)
	self.outputs = cache.New(config.Ledger.OutputsCacheExpiration, config.Ledger.OutputsCacheExpiration*2)
	return
}

func (self *YaciSource) WithDB(db *gorm.DB) *YaciSource {
	self.db = db
	return self
}

func (self *YaciSource) table(name string) string {
	return self.schema + "." + name
}

func (self *YaciSource) query(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, self.config.Ledger.QueryTimeout)
	return self.db.WithContext(ctx), cancel
}

type yaciEvent struct {
	TxHash      string
	Slot        int64
	TxIndex     int64
	BlockNumber sql.NullInt64
	BlockTime   sql.NullInt64
	Body        sql.NullString
}

func (self *YaciSource) GetEvents(ctx context.Context, after Cursor, limit int) (out []*RawEvent, err error) {
	db, cancel := self.query(ctx)
	defer cancel()

	// Metadata rows without a transaction row are treated as the first in their block
	query := fmt.Sprintf(`
		SELECT m.tx_hash, m.slot, COALESCE(t.tx_index, 0) AS tx_index,
			b.number AS block_number, b.block_time, m.body
		FROM %s m
		JOIN %s b ON b.slot = m.slot
		LEFT JOIN %s t ON t.tx_hash = m.tx_hash
		WHERE m.label = ? AND (m.slot, COALESCE(t.tx_index, 0)) > (?, ?)
		ORDER BY m.slot ASC, tx_index ASC, m.tx_hash ASC
		LIMIT ?`,
		self.table("transaction_metadata"), self.table("block"), self.table("transaction"))

	var rows []yaciEvent
	err = db.Raw(query, self.config.Ledger.MetadataLabel, after.Slot, after.TxIndex, limit).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tagged transactions: %w", err)
	}

	out = make([]*RawEvent, 0, len(rows))
	for _, row := range rows {
		event := &RawEvent{
			TxHash:      row.TxHash,
			Slot:        row.Slot,
			TxIndex:     row.TxIndex,
			BlockNumber: row.BlockNumber,
			BlockTime:   row.BlockTime,
		}
		if row.Body.Valid {
			event.Body = []byte(row.Body.String)
		}
		out = append(out, event)
	}

	return
}

func (self *YaciSource) GetInputs(ctx context.Context, txHash string) (out []Input, err error) {
	db, cancel := self.query(ctx)
	defer cancel()

	// Inputs are a set ordered by (tx hash, index) on chain
	query := fmt.Sprintf(`
		SELECT tx_hash, output_index
		FROM %s
		WHERE spent_tx_hash = ?
		ORDER BY tx_hash ASC, output_index ASC`, self.table("tx_input"))

	err = db.Raw(query, txHash).Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch inputs of %s: %w", txHash, err)
	}
	return
}

func (self *YaciSource) GetOutputs(ctx context.Context, txHash string) (out []Output, err error) {
	if cached, ok := self.outputs.Get(txHash); ok {
		return cached.([]Output), nil
	}

	db, cancel := self.query(ctx)
	defer cancel()

	query := fmt.Sprintf(`
		SELECT tx_hash, output_index, owner_addr AS address, COALESCE(lovelace_amount, 0) AS amount
		FROM %s
		WHERE tx_hash = ?
		ORDER BY output_index ASC`, self.table("address_utxo"))

	err = db.Raw(query, txHash).Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch outputs of %s: %w", txHash, err)
	}

	// Not indexed yet, don't remember the empty result
	if len(out) > 0 {
		self.outputs.SetDefault(txHash, out)
	}

	return
}

type yaciUtxo struct {
	TxHash      string
	OutputIndex int
	Address     string
	Amount      int64
	Slot        int64
	BlockNumber sql.NullInt64
}

func (self *YaciSource) GetAddressUtxos(ctx context.Context, address string) (out []Utxo, err error) {
	db, cancel := self.query(ctx)
	defer cancel()

	query := fmt.Sprintf(`
		SELECT a.tx_hash, a.output_index, a.owner_addr AS address, COALESCE(a.lovelace_amount, 0) AS amount,
			a.slot, a.block AS block_number
		FROM %s a
		LEFT JOIN %s i ON i.tx_hash = a.tx_hash AND i.output_index = a.output_index
		WHERE a.owner_addr = ? AND i.tx_hash IS NULL
		ORDER BY a.slot ASC, a.tx_hash ASC, a.output_index ASC`,
		self.table("address_utxo"), self.table("tx_input"))

	var rows []yaciUtxo
	err = db.Raw(query, address).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch utxos of %s: %w", address, err)
	}

	out = make([]Utxo, 0, len(rows))
	for _, row := range rows {
		out = append(out, Utxo{
			Output: Output{
				TxHash:      row.TxHash,
				OutputIndex: row.OutputIndex,
				Address:     row.Address,
				Amount:      row.Amount,
			},
			Slot:        row.Slot,
			BlockNumber: row.BlockNumber,
		})
	}

	self.log.WithField("address", address).WithField("count", len(out)).Trace("Fetched address utxos")

	return
}
