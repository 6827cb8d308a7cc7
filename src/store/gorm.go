package store

import (
	"context"
	"errors"
	"time"

	"github.com/warp-contracts/tom-indexer/src/utils/model"

	"github.com/jackc/pgtype"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var _ Repository = (*GormRepository)(nil)

// Repository backed by postgres
type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// Undefined JSONB values can't be bound as parameters
func nullJSONB(v pgtype.JSONB) pgtype.JSONB {
	if v.Status == pgtype.Undefined {
		v.Status = pgtype.Null
	}
	return v
}

func (self *GormRepository) Transaction(ctx context.Context, f func(repo Repository) error) error {
	return self.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return f(&GormRepository{db: tx})
	})
}

func (self *GormRepository) UpsertTreasuryContract(ctx context.Context, c *model.TreasuryContract) (id int, err error) {
	status := c.Status
	if status == "" {
		status = model.TreasuryStatusActive
	}

	err = self.db.WithContext(ctx).
		Raw(`INSERT INTO treasury.treasury_contracts AS t (
				contract_instance, contract_address, stake_credential, name, publish_tx_hash, publish_time,
				initialized_tx_hash, initialized_at, permissions, status)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (contract_instance) DO UPDATE SET
				contract_address = COALESCE(t.contract_address, EXCLUDED.contract_address),
				stake_credential = COALESCE(t.stake_credential, EXCLUDED.stake_credential),
				name = COALESCE(t.name, EXCLUDED.name),
				publish_tx_hash = COALESCE(t.publish_tx_hash, EXCLUDED.publish_tx_hash),
				publish_time = COALESCE(t.publish_time, EXCLUDED.publish_time),
				initialized_tx_hash = COALESCE(t.initialized_tx_hash, EXCLUDED.initialized_tx_hash),
				initialized_at = COALESCE(t.initialized_at, EXCLUDED.initialized_at),
				permissions = COALESCE(t.permissions, EXCLUDED.permissions),
				updated_at = NOW()
			RETURNING id`,
			c.ContractInstance, c.ContractAddress, c.StakeCredential, c.Name, c.PublishTxHash, c.PublishTime,
			c.InitializedTxHash, c.InitializedAt, nullJSONB(c.Permissions), status).
		Scan(&id).
		Error
	return
}

func (self *GormRepository) GetTreasuryContractByInstance(ctx context.Context, instance string) (out *model.TreasuryContract, err error) {
	out = new(model.TreasuryContract)
	err = self.db.WithContext(ctx).
		Where("contract_instance = ?", instance).
		Take(out).
		Error
	if err != nil {
		return nil, notFound(err)
	}
	return
}

func (self *GormRepository) UpsertVendorContract(ctx context.Context, c *model.VendorContract) (id int, err error) {
	status := c.Status
	if status == "" {
		status = model.VendorContractStatusActive
	}

	err = self.db.WithContext(ctx).
		Raw(`INSERT INTO treasury.vendor_contracts AS v (
				treasury_id, project_id, other_identifiers, project_name, description, vendor_name, vendor_address,
				contract_url, contract_address, fund_tx_hash, fund_slot, fund_block_time, initial_amount_lovelace, status)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (project_id) DO UPDATE SET
				project_name = COALESCE(EXCLUDED.project_name, v.project_name),
				description = COALESCE(EXCLUDED.description, v.description),
				treasury_id = COALESCE(v.treasury_id, EXCLUDED.treasury_id),
				other_identifiers = COALESCE(v.other_identifiers, EXCLUDED.other_identifiers),
				vendor_name = COALESCE(v.vendor_name, EXCLUDED.vendor_name),
				vendor_address = COALESCE(v.vendor_address, EXCLUDED.vendor_address),
				contract_url = COALESCE(v.contract_url, EXCLUDED.contract_url),
				contract_address = COALESCE(v.contract_address, EXCLUDED.contract_address),
				fund_slot = COALESCE(v.fund_slot, EXCLUDED.fund_slot),
				fund_block_time = COALESCE(v.fund_block_time, EXCLUDED.fund_block_time),
				initial_amount_lovelace = COALESCE(v.initial_amount_lovelace, EXCLUDED.initial_amount_lovelace),
				updated_at = NOW()
			RETURNING id`,
			c.TreasuryId, c.ProjectId, c.OtherIdentifiers, c.ProjectName, c.Description, c.VendorName, c.VendorAddress,
			c.ContractUrl, c.ContractAddress, c.FundTxHash, c.FundSlot, c.FundBlockTime, c.InitialAmountLovelace, status).
		Scan(&id).
		Error
	return
}

func (self *GormRepository) GetVendorContractByProjectId(ctx context.Context, projectId string) (out *model.VendorContract, err error) {
	out = new(model.VendorContract)
	err = self.db.WithContext(ctx).
		Where("project_id = ?", projectId).
		Take(out).
		Error
	if err != nil {
		return nil, notFound(err)
	}
	return
}

func (self *GormRepository) GetVendorContract(ctx context.Context, id int) (out *model.VendorContract, err error) {
	out = new(model.VendorContract)
	err = self.db.WithContext(ctx).
		Where("id = ?", id).
		Take(out).
		Error
	if err != nil {
		return nil, notFound(err)
	}
	return
}

func (self *GormRepository) FindVendorContractByAddress(ctx context.Context, address string) (out *model.VendorContract, err error) {
	out = new(model.VendorContract)
	err = self.db.WithContext(ctx).
		Where("contract_address = ? OR vendor_address = ?", address, address).
		Order("id ASC").
		Take(out).
		Error
	if err != nil {
		return nil, notFound(err)
	}
	return
}

func (self *GormRepository) SetVendorContractStatus(ctx context.Context, id int, status model.VendorContractStatus) error {
	return self.db.WithContext(ctx).
		Model(&model.VendorContract{}).
		Where("id = ?", id).
		Update("status", status).
		Error
}

func (self *GormRepository) GetTrackedAddresses(ctx context.Context) (out []string, err error) {
	err = self.db.WithContext(ctx).
		Raw(`SELECT contract_address FROM treasury.treasury_contracts WHERE contract_address IS NOT NULL
			UNION
			SELECT contract_address FROM treasury.vendor_contracts WHERE contract_address IS NOT NULL
			UNION
			SELECT vendor_address FROM treasury.vendor_contracts WHERE vendor_address IS NOT NULL
			ORDER BY 1`).
		Scan(&out).
		Error
	return
}

func (self *GormRepository) InsertMilestones(ctx context.Context, milestones []*model.Milestone) error {
	if len(milestones) == 0 {
		return nil
	}
	for _, m := range milestones {
		m.Evidence = nullJSONB(m.Evidence)
		if m.Status == "" {
			m.Status = model.MilestoneStatusPending
		}
	}
	return self.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "vendor_contract_id"}, {Name: "milestone_id"}},
			DoNothing: true,
		}).
		Create(&milestones).
		Error
}

func (self *GormRepository) GetMilestones(ctx context.Context, vendorContractId int) (out []*model.Milestone, err error) {
	err = self.db.WithContext(ctx).
		Where("vendor_contract_id = ?", vendorContractId).
		Order("milestone_order ASC").
		Find(&out).
		Error
	return
}

func (self *GormRepository) getMilestone(ctx context.Context, vendorContractId int, milestoneId string) (out *model.Milestone, err error) {
	out = new(model.Milestone)
	err = self.db.WithContext(ctx).
		Where("vendor_contract_id = ? AND milestone_id = ?", vendorContractId, milestoneId).
		Take(out).
		Error
	if err != nil {
		return nil, notFound(err)
	}
	return
}

func (self *GormRepository) CompleteMilestone(ctx context.Context, vendorContractId int, milestoneId string, completion *MilestoneCompletion) (id int, err error) {
	m, err := self.getMilestone(ctx, vendorContractId, milestoneId)
	if err != nil {
		return
	}

	allowed := []model.MilestoneStatus{model.MilestoneStatusPending}
	updates := map[string]interface{}{
		"status":           model.MilestoneStatusCompleted,
		"complete_tx_hash": completion.TxHash,
		"complete_time":    completion.Time,
	}
	if !completion.OnlyPending {
		allowed = append(allowed, model.MilestoneStatusCompleted)
		updates["complete_description"] = completion.Description
		updates["evidence"] = nullJSONB(completion.Evidence)
	}

	tx := self.db.WithContext(ctx).
		Model(&model.Milestone{}).
		Where("id = ? AND status IN ?", m.Id, allowed).
		Updates(updates)
	if tx.Error != nil {
		return 0, tx.Error
	}
	if tx.RowsAffected == 0 {
		return 0, ErrNotTransitioned
	}

	return m.Id, nil
}

func (self *GormRepository) DisburseMilestone(ctx context.Context, vendorContractId int, milestoneId string, disbursement *MilestoneDisbursement) (id int, err error) {
	m, err := self.getMilestone(ctx, vendorContractId, milestoneId)
	if err != nil {
		return
	}

	tx := self.db.WithContext(ctx).
		Model(&model.Milestone{}).
		Where("id = ? AND status IN ?", m.Id, []model.MilestoneStatus{model.MilestoneStatusPending, model.MilestoneStatusCompleted}).
		Updates(map[string]interface{}{
			"status":           model.MilestoneStatusDisbursed,
			"disburse_tx_hash": disbursement.TxHash,
			"disburse_time":    disbursement.Time,
			"disburse_amount":  disbursement.Amount,
		})
	if tx.Error != nil {
		return 0, tx.Error
	}
	if tx.RowsAffected == 0 {
		return 0, ErrNotTransitioned
	}

	return m.Id, nil
}

func (self *GormRepository) InsertEvent(ctx context.Context, event *model.Event) (inserted bool, err error) {
	event.Metadata = nullJSONB(event.Metadata)
	tx := self.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tx_hash"}},
			DoNothing: true,
		}).
		Create(event)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (self *GormRepository) GetEventByTxHash(ctx context.Context, txHash string) (out *model.Event, err error) {
	out = new(model.Event)
	err = self.db.WithContext(ctx).
		Where("tx_hash = ?", txHash).
		Take(out).
		Error
	if err != nil {
		return nil, notFound(err)
	}
	return
}

func (self *GormRepository) GetEvents(ctx context.Context, vendorContractId *int) (out []*model.Event, err error) {
	query := self.db.WithContext(ctx)
	if vendorContractId != nil {
		query = query.Where("vendor_contract_id = ?", *vendorContractId)
	}
	err = query.
		Order("slot ASC, id ASC").
		Find(&out).
		Error
	return
}

func (self *GormRepository) GetTrackedUtxo(ctx context.Context, txHash string, outputIndex int) (out *model.TrackedUtxo, err error) {
	out = new(model.TrackedUtxo)
	err = self.db.WithContext(ctx).
		Where("tx_hash = ? AND output_index = ?", txHash, outputIndex).
		Take(out).
		Error
	if err != nil {
		return nil, notFound(err)
	}
	return
}

func (self *GormRepository) GetTrackedUtxos(ctx context.Context, vendorContractId int) (out []*model.TrackedUtxo, err error) {
	err = self.db.WithContext(ctx).
		Where("vendor_contract_id = ?", vendorContractId).
		Order("slot ASC, tx_hash ASC, output_index ASC").
		Find(&out).
		Error
	return
}

func (self *GormRepository) InsertTrackedUtxos(ctx context.Context, utxos []*model.TrackedUtxo) (n int64, err error) {
	if len(utxos) == 0 {
		return
	}
	tx := self.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tx_hash"}, {Name: "output_index"}},
			DoNothing: true,
		}).
		Create(&utxos)
	return tx.RowsAffected, tx.Error
}

func (self *GormRepository) UpsertTrackedUtxoOwner(ctx context.Context, utxos []*model.TrackedUtxo) error {
	if len(utxos) == 0 {
		return nil
	}
	return self.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tx_hash"}, {Name: "output_index"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"vendor_contract_id": gorm.Expr("EXCLUDED.vendor_contract_id"),
				"address":            gorm.Expr("COALESCE(treasury.utxos.address, EXCLUDED.address)"),
				"address_type":       gorm.Expr("COALESCE(treasury.utxos.address_type, EXCLUDED.address_type)"),
				"lovelace_amount":    gorm.Expr("COALESCE(treasury.utxos.lovelace_amount, EXCLUDED.lovelace_amount)"),
				"slot":               gorm.Expr("COALESCE(treasury.utxos.slot, EXCLUDED.slot)"),
				"block_number":       gorm.Expr("COALESCE(treasury.utxos.block_number, EXCLUDED.block_number)"),
			}),
		}).
		Create(&utxos).
		Error
}

func (self *GormRepository) MarkTrackedUtxoSpent(ctx context.Context, txHash string, outputIndex int, spentTxHash string, spentSlot int64) error {
	return self.db.WithContext(ctx).
		Model(&model.TrackedUtxo{}).
		Where("tx_hash = ? AND output_index = ? AND NOT spent", txHash, outputIndex).
		Updates(map[string]interface{}{
			"spent":         true,
			"spent_tx_hash": spentTxHash,
			"spent_slot":    spentSlot,
		}).
		Error
}

func (self *GormRepository) GetSyncStatus(ctx context.Context, syncType model.SyncType) (out *model.SyncStatus, err error) {
	out = new(model.SyncStatus)
	err = self.db.WithContext(ctx).
		Where("sync_type = ?", syncType).
		Take(out).
		Error
	if err != nil {
		return nil, notFound(err)
	}
	return
}

func (self *GormRepository) SaveSyncStatus(ctx context.Context, status *model.SyncStatus) (saved bool, err error) {
	tx := self.db.WithContext(ctx).
		Exec(`INSERT INTO treasury.sync_status AS s (sync_type, last_slot, last_tx_index, last_block, last_tx_hash, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (sync_type) DO UPDATE SET
				last_slot = EXCLUDED.last_slot,
				last_tx_index = EXCLUDED.last_tx_index,
				last_block = EXCLUDED.last_block,
				last_tx_hash = EXCLUDED.last_tx_hash,
				updated_at = EXCLUDED.updated_at
			WHERE (s.last_slot, s.last_tx_index) < (EXCLUDED.last_slot, EXCLUDED.last_tx_index)`,
			status.SyncType, status.LastSlot, status.LastTxIndex, status.LastBlock, status.LastTxHash, time.Now())
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

const summaryQuery = `SELECT
		v.id AS vendor_contract_id,
		v.project_id,
		v.status,
		COALESCE(v.initial_amount_lovelace, 0) AS initial_amount_lovelace,
		(SELECT COUNT(*) FROM treasury.milestones m WHERE m.vendor_contract_id = v.id) AS total_milestones,
		(SELECT COUNT(*) FROM treasury.milestones m WHERE m.vendor_contract_id = v.id AND m.status = 'pending') AS pending_milestones,
		(SELECT COUNT(*) FROM treasury.milestones m WHERE m.vendor_contract_id = v.id AND m.status = 'completed') AS completed_milestones,
		(SELECT COUNT(*) FROM treasury.milestones m WHERE m.vendor_contract_id = v.id AND m.status = 'disbursed') AS disbursed_milestones,
		(SELECT COALESCE(SUM(m.disburse_amount), 0) FROM treasury.milestones m WHERE m.vendor_contract_id = v.id AND m.status = 'disbursed') AS total_disbursed,
		(SELECT COALESCE(SUM(u.lovelace_amount), 0) FROM treasury.utxos u
			WHERE u.vendor_contract_id = v.id AND NOT u.spent AND u.address = v.contract_address) AS current_balance,
		(SELECT COUNT(*) FROM treasury.utxos u
			WHERE u.vendor_contract_id = v.id AND NOT u.spent AND u.address = v.contract_address) AS unspent_utxo_count,
		(SELECT COUNT(*) FROM treasury.events e WHERE e.vendor_contract_id = v.id) AS event_count
	FROM treasury.vendor_contracts v`

func (self *GormRepository) GetVendorContractSummary(ctx context.Context, projectId string) (out *model.VendorContractSummary, err error) {
	var rows []*model.VendorContractSummary
	err = self.db.WithContext(ctx).
		Raw(summaryQuery+" WHERE v.project_id = ?", projectId).
		Scan(&rows).
		Error
	if err != nil {
		return
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0], nil
}

func (self *GormRepository) GetVendorContractSummaries(ctx context.Context) (out []*model.VendorContractSummary, err error) {
	err = self.db.WithContext(ctx).
		Raw(summaryQuery + " ORDER BY v.fund_block_time DESC NULLS LAST, v.id DESC").
		Scan(&out).
		Error
	return
}
