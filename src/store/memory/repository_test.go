package memory

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/warp-contracts/tom-indexer/src/store"
	"github.com/warp-contracts/tom-indexer/src/utils/model"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}

type RepositoryTestSuite struct {
	suite.Suite
	ctx  context.Context
	repo *Repository
}

func (s *RepositoryTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.repo = NewRepository()
}

func str(v string) sql.NullString {
	return sql.NullString{String: v, Valid: true}
}

func (s *RepositoryTestSuite) TestTreasuryFillOnly() {
	id, err := s.repo.UpsertTreasuryContract(s.ctx, &model.TreasuryContract{ContractInstance: "i1", Name: str("first")})
	require.Nil(s.T(), err)

	id2, err := s.repo.UpsertTreasuryContract(s.ctx, &model.TreasuryContract{
		ContractInstance: "i1",
		Name:             str("second"),
		PublishTxHash:    str("tx"),
	})
	require.Nil(s.T(), err)
	require.Equal(s.T(), id, id2)

	t, err := s.repo.GetTreasuryContractByInstance(s.ctx, "i1")
	require.Nil(s.T(), err)
	require.Equal(s.T(), "first", t.Name.String)
	require.Equal(s.T(), "tx", t.PublishTxHash.String)
	require.Equal(s.T(), model.TreasuryStatusActive, t.Status)

	_, err = s.repo.GetTreasuryContractByInstance(s.ctx, "missing")
	require.ErrorIs(s.T(), err, store.ErrNotFound)
}

func (s *RepositoryTestSuite) TestVendorRefreshesOnlyDescriptiveFields() {
	_, err := s.repo.UpsertVendorContract(s.ctx, &model.VendorContract{
		ProjectId:       "P",
		ProjectName:     str("old"),
		ContractAddress: str("addr1xa"),
		FundTxHash:      "f1",
	})
	require.Nil(s.T(), err)

	_, err = s.repo.UpsertVendorContract(s.ctx, &model.VendorContract{
		ProjectId:       "P",
		ProjectName:     str("new"),
		ContractAddress: str("addr1xb"),
		FundTxHash:      "f2",
	})
	require.Nil(s.T(), err)

	v, err := s.repo.GetVendorContractByProjectId(s.ctx, "P")
	require.Nil(s.T(), err)
	require.Equal(s.T(), "new", v.ProjectName.String)
	require.Equal(s.T(), "addr1xa", v.ContractAddress.String)
	require.Equal(s.T(), "f1", v.FundTxHash)
	require.Equal(s.T(), model.VendorContractStatusActive, v.Status)
}

func (s *RepositoryTestSuite) TestTransactionRollback() {
	err := s.repo.Transaction(s.ctx, func(repo store.Repository) error {
		_, err := repo.InsertEvent(s.ctx, &model.Event{TxHash: "tx", EventType: "publish"})
		require.Nil(s.T(), err)

		// Visible inside the transaction
		_, err = repo.GetEventByTxHash(s.ctx, "tx")
		require.Nil(s.T(), err)

		return errors.New("boom")
	})
	require.Error(s.T(), err)

	_, err = s.repo.GetEventByTxHash(s.ctx, "tx")
	require.ErrorIs(s.T(), err, store.ErrNotFound)

	err = s.repo.Transaction(s.ctx, func(repo store.Repository) error {
		_, err := repo.InsertEvent(s.ctx, &model.Event{TxHash: "tx", EventType: "publish"})
		return err
	})
	require.Nil(s.T(), err)

	_, err = s.repo.GetEventByTxHash(s.ctx, "tx")
	require.Nil(s.T(), err)
}

func (s *RepositoryTestSuite) TestEventSkipOnConflict() {
	inserted, err := s.repo.InsertEvent(s.ctx, &model.Event{TxHash: "tx", EventType: "complete"})
	require.Nil(s.T(), err)
	require.True(s.T(), inserted)

	inserted, err = s.repo.InsertEvent(s.ctx, &model.Event{TxHash: "tx", EventType: "disburse"})
	require.Nil(s.T(), err)
	require.False(s.T(), inserted)

	e, err := s.repo.GetEventByTxHash(s.ctx, "tx")
	require.Nil(s.T(), err)
	require.Equal(s.T(), "complete", e.EventType)
}

func (s *RepositoryTestSuite) TestMilestoneProgression() {
	vc, err := s.repo.UpsertVendorContract(s.ctx, &model.VendorContract{ProjectId: "P", FundTxHash: "f"})
	require.Nil(s.T(), err)

	err = s.repo.InsertMilestones(s.ctx, []*model.Milestone{
		{VendorContractId: vc, MilestoneId: "m0", MilestoneOrder: 1},
		{VendorContractId: vc, MilestoneId: "m1", MilestoneOrder: 2},
	})
	require.Nil(s.T(), err)

	// Replay doesn't duplicate
	err = s.repo.InsertMilestones(s.ctx, []*model.Milestone{{VendorContractId: vc, MilestoneId: "m0", MilestoneOrder: 1}})
	require.Nil(s.T(), err)

	_, err = s.repo.CompleteMilestone(s.ctx, vc, "m0", &store.MilestoneCompletion{TxHash: "c"})
	require.Nil(s.T(), err)
	_, err = s.repo.DisburseMilestone(s.ctx, vc, "m0", &store.MilestoneDisbursement{TxHash: "d", Amount: sql.NullInt64{Int64: 5, Valid: true}})
	require.Nil(s.T(), err)

	// Disbursed milestones never go back
	_, err = s.repo.CompleteMilestone(s.ctx, vc, "m0", &store.MilestoneCompletion{TxHash: "c2"})
	require.ErrorIs(s.T(), err, store.ErrNotTransitioned)
	_, err = s.repo.DisburseMilestone(s.ctx, vc, "m0", &store.MilestoneDisbursement{TxHash: "d2"})
	require.ErrorIs(s.T(), err, store.ErrNotTransitioned)

	// Legacy completion only touches pending milestones
	_, err = s.repo.CompleteMilestone(s.ctx, vc, "m1", &store.MilestoneCompletion{TxHash: "c3", OnlyPending: true})
	require.Nil(s.T(), err)
	_, err = s.repo.CompleteMilestone(s.ctx, vc, "m1", &store.MilestoneCompletion{TxHash: "c4", OnlyPending: true})
	require.ErrorIs(s.T(), err, store.ErrNotTransitioned)

	// Keyed completion refreshes a completed milestone
	id, err := s.repo.CompleteMilestone(s.ctx, vc, "m1", &store.MilestoneCompletion{TxHash: "c3"})
	require.Nil(s.T(), err)
	require.NotZero(s.T(), id)

	_, err = s.repo.CompleteMilestone(s.ctx, vc, "missing", &store.MilestoneCompletion{TxHash: "c"})
	require.ErrorIs(s.T(), err, store.ErrNotFound)

	ms, err := s.repo.GetMilestones(s.ctx, vc)
	require.Nil(s.T(), err)
	require.Len(s.T(), ms, 2)
	require.Equal(s.T(), model.MilestoneStatusDisbursed, ms[0].Status)
	require.Equal(s.T(), "c", ms[0].CompleteTxHash.String)
	require.Equal(s.T(), "d", ms[0].DisburseTxHash.String)
	require.Equal(s.T(), model.MilestoneStatusCompleted, ms[1].Status)
	require.Equal(s.T(), "c3", ms[1].CompleteTxHash.String)

	summary, err := s.repo.GetVendorContractSummary(s.ctx, "P")
	require.Nil(s.T(), err)
	require.Equal(s.T(), int64(2), summary.TotalMilestones)
	require.Equal(s.T(), int64(1), summary.DisbursedMilestones)
	require.Equal(s.T(), int64(1), summary.CompletedMilestones)
	require.Equal(s.T(), int64(5), summary.TotalDisbursed)
}

func (s *RepositoryTestSuite) TestUtxoSpentIsOneWay() {
	vc := sql.NullInt32{Int32: 7, Valid: true}
	n, err := s.repo.InsertTrackedUtxos(s.ctx, []*model.TrackedUtxo{{TxHash: "a", OutputIndex: 0, VendorContractId: vc}})
	require.Nil(s.T(), err)
	require.Equal(s.T(), int64(1), n)

	err = s.repo.MarkTrackedUtxoSpent(s.ctx, "a", 0, "b", 10)
	require.Nil(s.T(), err)
	err = s.repo.MarkTrackedUtxoSpent(s.ctx, "a", 0, "c", 20)
	require.Nil(s.T(), err)

	// Neither a bulk insert nor an owner upsert clears the flag
	n, err = s.repo.InsertTrackedUtxos(s.ctx, []*model.TrackedUtxo{{TxHash: "a", OutputIndex: 0}})
	require.Nil(s.T(), err)
	require.Equal(s.T(), int64(0), n)
	err = s.repo.UpsertTrackedUtxoOwner(s.ctx, []*model.TrackedUtxo{{TxHash: "a", OutputIndex: 0, VendorContractId: sql.NullInt32{Int32: 8, Valid: true}}})
	require.Nil(s.T(), err)

	u, err := s.repo.GetTrackedUtxo(s.ctx, "a", 0)
	require.Nil(s.T(), err)
	require.True(s.T(), u.Spent)
	require.Equal(s.T(), "b", u.SpentTxHash.String)
	require.Equal(s.T(), int32(8), u.VendorContractId.Int32)
}

func (s *RepositoryTestSuite) TestSyncStatusMonotonic() {
	saved, err := s.repo.SaveSyncStatus(s.ctx, &model.SyncStatus{SyncType: model.SyncTypeEvents, LastSlot: 10, LastTxIndex: 2})
	require.Nil(s.T(), err)
	require.True(s.T(), saved)

	saved, err = s.repo.SaveSyncStatus(s.ctx, &model.SyncStatus{SyncType: model.SyncTypeEvents, LastSlot: 10, LastTxIndex: 1})
	require.Nil(s.T(), err)
	require.False(s.T(), saved)

	saved, err = s.repo.SaveSyncStatus(s.ctx, &model.SyncStatus{SyncType: model.SyncTypeEvents, LastSlot: 10, LastTxIndex: 2})
	require.Nil(s.T(), err)
	require.False(s.T(), saved)

	saved, err = s.repo.SaveSyncStatus(s.ctx, &model.SyncStatus{SyncType: model.SyncTypeEvents, LastSlot: 11, LastTxIndex: 0})
	require.Nil(s.T(), err)
	require.True(s.T(), saved)

	status, err := s.repo.GetSyncStatus(s.ctx, model.SyncTypeEvents)
	require.Nil(s.T(), err)
	require.Equal(s.T(), int64(11), status.LastSlot)
	require.Equal(s.T(), int64(0), status.LastTxIndex)
}

func (s *RepositoryTestSuite) TestFailureInjection() {
	s.repo.WithFailure(func(op string) error {
		if op == "InsertEvent" {
			return errors.New("db down")
		}
		return nil
	})

	_, err := s.repo.InsertEvent(s.ctx, &model.Event{TxHash: "x"})
	require.Error(s.T(), err)

	_, err = s.repo.UpsertTreasuryContract(s.ctx, &model.TreasuryContract{ContractInstance: "i"})
	require.Nil(s.T(), err)
}
