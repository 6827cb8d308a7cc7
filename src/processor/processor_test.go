package processor

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"

	"github.com/warp-contracts/tom-indexer/src/store/memory"
	"github.com/warp-contracts/tom-indexer/src/utils/config"
	"github.com/warp-contracts/tom-indexer/src/utils/ledger"
	"github.com/warp-contracts/tom-indexer/src/utils/model"
	"github.com/warp-contracts/tom-indexer/src/utils/tom"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const (
	instance        = "treasury-instance"
	treasuryAddress = "addr1xtreasury"
	projectAddress  = "addr1xproject"
	vendorAddress   = "addr1qvendor"
)

func TestProcessorTestSuite(t *testing.T) {
	suite.Run(t, new(ProcessorTestSuite))
}

type ProcessorTestSuite struct {
	suite.Suite
	ctx       context.Context
	config    *config.Config
	repo      *memory.Repository
	source    *ledger.MemorySource
	processor *Processor
	slot      int64
}

func (s *ProcessorTestSuite) SetupSuite() {
	s.ctx = context.Background()
	s.config = config.Default()
}

func (s *ProcessorTestSuite) SetupTest() {
	s.repo = memory.NewRepository()
	s.source = ledger.NewMemorySource()
	s.processor = NewProcessor(s.config).WithRepository(s.repo).WithSource(s.source)
	s.slot = 0
}

// Adds a transaction to the chain and returns it as a raw event
func (s *ProcessorTestSuite) tx(hash string, metadata string, inputs []ledger.Input, outputs ...ledger.Output) *ledger.RawEvent {
	s.slot += 10
	tx := &ledger.MemoryTx{
		Hash:        hash,
		Slot:        s.slot,
		BlockNumber: s.slot / 10,
		BlockTime:   1700000000 + s.slot,
		Tagged:      true,
		Inputs:      inputs,
		Outputs:     outputs,
	}
	if metadata != "" {
		tx.Metadata = json.RawMessage(metadata)
	}
	s.source.Add(tx)

	return &ledger.RawEvent{
		TxHash:      hash,
		Slot:        tx.Slot,
		BlockNumber: sql.NullInt64{Int64: tx.BlockNumber, Valid: true},
		BlockTime:   sql.NullInt64{Int64: tx.BlockTime, Valid: true},
		Body:        tx.Metadata,
	}
}

func out(address string, amount int64) ledger.Output {
	return ledger.Output{Address: address, Amount: amount}
}

func (s *ProcessorTestSuite) process(event *ledger.RawEvent) *Outcome {
	outcome, err := s.processor.Process(s.ctx, event)
	require.Nil(s.T(), err)
	require.NotNil(s.T(), outcome)
	return outcome
}

func (s *ProcessorTestSuite) fundEvent() *ledger.RawEvent {
	return s.tx("fund", `{"instance":"`+instance+`","body":{
		"event":"fund",
		"identifier":"P",
		"otherIdentifiers":["EC-1"],
		"label":["Project ","Name"],
		"description":"Build things",
		"vendor":{"name":"Vendor","label":"`+vendorAddress+`"},
		"contract":"https://example.com/contract.pdf",
		"milestones":[
			{"identifier":"m0","label":"First","amount":400000000},
			{"description":"no identifier","amount":"600000000"}
		]}}`,
		nil,
		out(projectAddress, 1_000_000_000),
		out(treasuryAddress, 5_000_000_000),
	)
}

func (s *ProcessorTestSuite) vendorContract() *model.VendorContract {
	vc, err := s.repo.GetVendorContractByProjectId(s.ctx, "P")
	require.Nil(s.T(), err)
	return vc
}

func (s *ProcessorTestSuite) TestNoBody() {
	for _, body := range []string{"", "null", "[1,2,3]", `"text"`} {
		outcome := s.process(s.tx("nobody-"+body, body, nil))
		require.Equal(s.T(), OutcomeNoBody, outcome.Kind)
	}

	events, err := s.repo.GetEvents(s.ctx, nil)
	require.Nil(s.T(), err)
	require.Empty(s.T(), events)
}

func (s *ProcessorTestSuite) TestUnknownType() {
	outcome := s.process(s.tx("unknown", `{"instance":"x","body":{"event":"frobnicate"}}`, nil))
	require.Equal(s.T(), OutcomeUnknownType, outcome.Kind)
	require.Equal(s.T(), tom.EventType("frobnicate"), outcome.EventType)

	outcome = s.process(s.tx("noevent", `{"instance":"x","body":{}}`, nil))
	require.Equal(s.T(), OutcomeUnknownType, outcome.Kind)

	// Following events are unaffected
	outcome = s.process(s.tx("publish", `{"instance":"x","body":{"event":"publish"}}`, nil))
	require.Equal(s.T(), OutcomeApplied, outcome.Kind)

	events, err := s.repo.GetEvents(s.ctx, nil)
	require.Nil(s.T(), err)
	require.Len(s.T(), events, 1)
}

func (s *ProcessorTestSuite) TestPublishAndInitialize() {
	outcome := s.process(s.tx("publish", `{"instance":"`+instance+`","body":{
		"event":"Publish","label":"Main treasury","permissions":{"disburse":{"signatures":["a"]}}}}`, nil))
	require.Equal(s.T(), OutcomeApplied, outcome.Kind)
	require.Equal(s.T(), tom.EventTypePublish, outcome.EventType)
	require.NotNil(s.T(), outcome.TreasuryId)
	require.NotNil(s.T(), outcome.Event)

	// Populated fields are never overwritten
	s.process(s.tx("publish2", `{"instance":"`+instance+`","body":{"event":"publish","label":"Renamed"}}`, nil))

	outcome = s.process(s.tx("init", `{"instance":"`+instance+`","body":{"event":"initialize"}}`, nil,
		out(vendorAddress, 1), out(treasuryAddress, 100)))
	require.Equal(s.T(), []string{treasuryAddress}, outcome.Addresses)

	t, err := s.repo.GetTreasuryContractByInstance(s.ctx, instance)
	require.Nil(s.T(), err)
	require.Equal(s.T(), "Main treasury", t.Name.String)
	require.Equal(s.T(), "publish", t.PublishTxHash.String)
	require.Equal(s.T(), "init", t.InitializedTxHash.String)
	require.Equal(s.T(), treasuryAddress, t.ContractAddress.String)
	require.JSONEq(s.T(), `{"disburse":{"signatures":["a"]}}`, string(t.Permissions.Bytes))

	e, err := s.repo.GetEventByTxHash(s.ctx, "init")
	require.Nil(s.T(), err)
	require.Equal(s.T(), "initialize", e.EventType)
	require.Equal(s.T(), int32(t.Id), e.TreasuryId.Int32)
}

func (s *ProcessorTestSuite) TestPublishWithoutInstance() {
	outcome := s.process(s.tx("publish", `{"body":{"event":"publish"}}`, nil))
	require.Equal(s.T(), OutcomeIgnored, outcome.Kind)
}

func (s *ProcessorTestSuite) TestFund() {
	outcome := s.process(s.fundEvent())
	require.Equal(s.T(), OutcomeApplied, outcome.Kind)
	require.ElementsMatch(s.T(), []string{projectAddress, vendorAddress}, outcome.Addresses)

	vc := s.vendorContract()
	require.Equal(s.T(), "Project Name", vc.ProjectName.String)
	require.Equal(s.T(), "Build things", vc.Description.String)
	require.Equal(s.T(), "Vendor", vc.VendorName.String)
	require.Equal(s.T(), vendorAddress, vc.VendorAddress.String)
	require.Equal(s.T(), projectAddress, vc.ContractAddress.String)
	require.Equal(s.T(), int64(1_000_000_000), vc.InitialAmountLovelace.Int64)
	require.Equal(s.T(), []string{"EC-1"}, []string(vc.OtherIdentifiers))
	require.Equal(s.T(), model.VendorContractStatusActive, vc.Status)
	require.True(s.T(), vc.TreasuryId.Valid)

	milestones, err := s.repo.GetMilestones(s.ctx, vc.Id)
	require.Nil(s.T(), err)
	require.Len(s.T(), milestones, 2)
	require.Equal(s.T(), "m0", milestones[0].MilestoneId)
	require.Equal(s.T(), 1, milestones[0].MilestoneOrder)
	require.Equal(s.T(), "m-1", milestones[1].MilestoneId)
	require.Equal(s.T(), 2, milestones[1].MilestoneOrder)
	require.Equal(s.T(), int64(600_000_000), milestones[1].AmountLovelace.Int64)

	utxos, err := s.repo.GetTrackedUtxos(s.ctx, vc.Id)
	require.Nil(s.T(), err)
	require.Len(s.T(), utxos, 2)

	e, err := s.repo.GetEventByTxHash(s.ctx, "fund")
	require.Nil(s.T(), err)
	require.Equal(s.T(), "fund", e.EventType)
	require.Equal(s.T(), int64(1_000_000_000), e.AmountLovelace.Int64)
	require.Equal(s.T(), int32(vc.Id), e.VendorContractId.Int32)
}

func (s *ProcessorTestSuite) TestFundWithoutIdentifier() {
	outcome := s.process(s.tx("fund", `{"instance":"x","body":{"event":"fund","identifier":"  "}}`, nil))
	require.Equal(s.T(), OutcomeIgnored, outcome.Kind)

	_, err := s.repo.GetTreasuryContractByInstance(s.ctx, "x")
	require.Error(s.T(), err)
}

func (s *ProcessorTestSuite) TestOrdering() {
	s.process(s.fundEvent())

	outcome := s.process(s.tx("complete", `{"body":{"event":"complete","identifier":"P",
		"milestones":{"m0":{"description":"done","evidence":[{"url":"https://example.com"}]}}}}`, nil))
	require.Equal(s.T(), OutcomeApplied, outcome.Kind)

	outcome = s.process(s.tx("disburse", `{"body":{"event":"disburse","identifier":"P","milestone":"m0",
		"destination":["addr1q","vendor"]}}`, nil, out(vendorAddress, 400_000_000)))
	require.Equal(s.T(), OutcomeApplied, outcome.Kind)

	milestones, err := s.repo.GetMilestones(s.ctx, s.vendorContract().Id)
	require.Nil(s.T(), err)
	require.Equal(s.T(), model.MilestoneStatusDisbursed, milestones[0].Status)
	require.Equal(s.T(), "done", milestones[0].CompleteDescription.String)
	require.Equal(s.T(), "complete", milestones[0].CompleteTxHash.String)
	require.Equal(s.T(), "disburse", milestones[0].DisburseTxHash.String)
	require.Equal(s.T(), int64(400_000_000), milestones[0].DisburseAmount.Int64)
	require.Equal(s.T(), model.MilestoneStatusPending, milestones[1].Status)

	e, err := s.repo.GetEventByTxHash(s.ctx, "complete")
	require.Nil(s.T(), err)
	require.Equal(s.T(), int32(milestones[0].Id), e.MilestoneId.Int32)

	e, err = s.repo.GetEventByTxHash(s.ctx, "disburse")
	require.Nil(s.T(), err)
	require.Equal(s.T(), "addr1qvendor", e.Destination.String)
	require.Equal(s.T(), int32(milestones[0].Id), e.MilestoneId.Int32)
}

func (s *ProcessorTestSuite) TestLegacyComplete() {
	s.process(s.fundEvent())
	s.process(s.tx("complete", `{"body":{"event":"complete","identifier":"P","milestone":"m0"}}`, nil))

	milestones, err := s.repo.GetMilestones(s.ctx, s.vendorContract().Id)
	require.Nil(s.T(), err)
	require.Equal(s.T(), model.MilestoneStatusCompleted, milestones[0].Status)

	// Contract level record
	e, err := s.repo.GetEventByTxHash(s.ctx, "complete")
	require.Nil(s.T(), err)
	require.False(s.T(), e.MilestoneId.Valid)
	require.True(s.T(), e.VendorContractId.Valid)
}

func (s *ProcessorTestSuite) TestProvenance() {
	s.process(s.fundEvent())

	// No identifier, spends the contract output
	outcome := s.process(s.tx("complete", `{"body":{"event":"complete","milestones":{"m-1":{}}}}`,
		[]ledger.Input{{TxHash: "fund", OutputIndex: 0}},
		out(projectAddress, 1_000_000_000)))
	require.Equal(s.T(), OutcomeApplied, outcome.Kind)

	vc := s.vendorContract()
	require.Equal(s.T(), vc.Id, *outcome.VendorContractId)

	spent, err := s.repo.GetTrackedUtxo(s.ctx, "fund", 0)
	require.Nil(s.T(), err)
	require.True(s.T(), spent.Spent)
	require.Equal(s.T(), "complete", spent.SpentTxHash.String)

	next, err := s.repo.GetTrackedUtxo(s.ctx, "complete", 0)
	require.Nil(s.T(), err)
	require.Equal(s.T(), int32(vc.Id), next.VendorContractId.Int32)

	// Ownership keeps moving forward
	outcome = s.process(s.tx("pause", `{"body":{"event":"pause","reason":"audit"}}`,
		[]ledger.Input{{TxHash: "complete", OutputIndex: 0}},
		out(projectAddress, 1_000_000_000)))
	require.Equal(s.T(), OutcomeApplied, outcome.Kind)
	require.Equal(s.T(), model.VendorContractStatusPaused, s.vendorContract().Status)

	e, err := s.repo.GetEventByTxHash(s.ctx, "pause")
	require.Nil(s.T(), err)
	require.Equal(s.T(), "audit", e.Reason.String)
}

func (s *ProcessorTestSuite) TestBalance() {
	s.process(s.fundEvent())

	outcome := s.process(s.tx("disburse", `{"body":{"event":"disburse"}}`,
		[]ledger.Input{{TxHash: "fund", OutputIndex: 0}},
		out(projectAddress, 600_000_000),
		out(vendorAddress, 400_000_000)))
	require.Equal(s.T(), OutcomeApplied, outcome.Kind)
	require.Contains(s.T(), outcome.Addresses, vendorAddress)

	e, err := s.repo.GetEventByTxHash(s.ctx, "disburse")
	require.Nil(s.T(), err)
	require.Equal(s.T(), int64(400_000_000), e.AmountLovelace.Int64)

	summary, err := s.repo.GetVendorContractSummary(s.ctx, "P")
	require.Nil(s.T(), err)
	require.Equal(s.T(), int64(600_000_000), summary.CurrentBalance)
	require.Equal(s.T(), int64(1), summary.UnspentUtxoCount)
	require.Equal(s.T(), int64(2), summary.EventCount)
}

func (s *ProcessorTestSuite) TestUnresolvedDisburseIsRecorded() {
	s.process(s.tx("publish", `{"instance":"`+instance+`","body":{"event":"publish"}}`, nil))

	outcome := s.process(s.tx("disburse", `{"instance":"`+instance+`","body":{"event":"disburse","milestone":"m0"}}`, nil,
		out(vendorAddress, 5)))
	require.Equal(s.T(), OutcomeApplied, outcome.Kind)
	require.Nil(s.T(), outcome.VendorContractId)

	e, err := s.repo.GetEventByTxHash(s.ctx, "disburse")
	require.Nil(s.T(), err)
	require.False(s.T(), e.VendorContractId.Valid)
	require.False(s.T(), e.MilestoneId.Valid)
	require.True(s.T(), e.TreasuryId.Valid)
	require.Equal(s.T(), int64(5), e.AmountLovelace.Int64)
}

func (s *ProcessorTestSuite) TestLifecycle() {
	s.process(s.fundEvent())

	s.process(s.tx("pause", `{"body":{"event":"pause","identifier":"P","reason":"late"}}`, nil))
	require.Equal(s.T(), model.VendorContractStatusPaused, s.vendorContract().Status)

	s.process(s.tx("resume", `{"body":{"event":"resume","identifier":"P"}}`, nil))
	require.Equal(s.T(), model.VendorContractStatusActive, s.vendorContract().Status)

	s.process(s.tx("modify", `{"body":{"event":"modify","identifier":"P","reason":["new ","scope"]}}`, nil))
	require.Equal(s.T(), model.VendorContractStatusActive, s.vendorContract().Status)

	s.process(s.tx("withdraw", `{"body":{"event":"withdraw","identifier":"P"}}`, nil))

	s.process(s.tx("cancel", `{"body":{"event":"cancel","identifier":"P","reason":"gone"}}`, nil))
	require.Equal(s.T(), model.VendorContractStatusCancelled, s.vendorContract().Status)

	e, err := s.repo.GetEventByTxHash(s.ctx, "modify")
	require.Nil(s.T(), err)
	require.Equal(s.T(), "new scope", e.Reason.String)

	e, err = s.repo.GetEventByTxHash(s.ctx, "withdraw")
	require.Nil(s.T(), err)
	require.False(s.T(), e.Reason.Valid)

	outcome := s.process(s.tx("orphan", `{"body":{"event":"withdraw"}}`, nil))
	require.Equal(s.T(), OutcomeUnresolved, outcome.Kind)
	_, err = s.repo.GetEventByTxHash(s.ctx, "orphan")
	require.Error(s.T(), err)
}

func (s *ProcessorTestSuite) TestUnknownIdentifierIsUnresolved() {
	s.process(s.fundEvent())

	// Spends the contract output but names a project that doesn't exist
	outcome := s.process(s.tx("cancel", `{"body":{"event":"cancel","identifier":"NOPE","reason":"typo"}}`,
		[]ledger.Input{{TxHash: "fund", OutputIndex: 0}},
		out(projectAddress, 1_000_000_000)))
	require.Equal(s.T(), OutcomeUnresolved, outcome.Kind)
	require.Nil(s.T(), outcome.VendorContractId)

	require.Equal(s.T(), model.VendorContractStatusActive, s.vendorContract().Status)

	_, err := s.repo.GetEventByTxHash(s.ctx, "cancel")
	require.Error(s.T(), err)

	// Ownership doesn't move either
	_, err = s.repo.GetTrackedUtxo(s.ctx, "cancel", 0)
	require.Error(s.T(), err)
}

func (s *ProcessorTestSuite) TestIdentifierWinsOverInputs() {
	s.process(s.fundEvent())
	s.process(s.tx("fundq", `{"body":{"event":"fund","identifier":"Q"}}`, nil, out("addr1xq", 1_000_000)))

	// Names Q while spending an output of P
	outcome := s.process(s.tx("pause", `{"body":{"event":"pause","identifier":"Q"}}`,
		[]ledger.Input{{TxHash: "fund", OutputIndex: 0}},
		out(projectAddress, 1_000_000_000)))
	require.Equal(s.T(), OutcomeApplied, outcome.Kind)

	q, err := s.repo.GetVendorContractByProjectId(s.ctx, "Q")
	require.Nil(s.T(), err)
	require.Equal(s.T(), q.Id, *outcome.VendorContractId)
	require.Equal(s.T(), model.VendorContractStatusPaused, q.Status)
	require.Equal(s.T(), model.VendorContractStatusActive, s.vendorContract().Status)

	spent, err := s.repo.GetTrackedUtxo(s.ctx, "fund", 0)
	require.Nil(s.T(), err)
	require.True(s.T(), spent.Spent)

	next, err := s.repo.GetTrackedUtxo(s.ctx, "pause", 0)
	require.Nil(s.T(), err)
	require.Equal(s.T(), int32(q.Id), next.VendorContractId.Int32)
}

func (s *ProcessorTestSuite) TestCompleteAfterDisburse() {
	s.process(s.fundEvent())
	s.process(s.tx("disburse", `{"body":{"event":"disburse","identifier":"P","milestone":"m0"}}`, nil,
		out(vendorAddress, 400_000_000)))

	outcome := s.process(s.tx("late", `{"body":{"event":"complete","identifier":"P",
		"milestones":{"m0":{"description":"too late"}}}}`, nil))
	require.Equal(s.T(), OutcomeApplied, outcome.Kind)

	milestones, err := s.repo.GetMilestones(s.ctx, s.vendorContract().Id)
	require.Nil(s.T(), err)
	require.Equal(s.T(), model.MilestoneStatusDisbursed, milestones[0].Status)
	require.False(s.T(), milestones[0].CompleteDescription.Valid)

	// Recorded on the contract level only
	e, err := s.repo.GetEventByTxHash(s.ctx, "late")
	require.Nil(s.T(), err)
	require.False(s.T(), e.MilestoneId.Valid)
	require.True(s.T(), e.VendorContractId.Valid)

	// Second disbursement isn't linked to the milestone either
	s.process(s.tx("again", `{"body":{"event":"disburse","identifier":"P","milestone":"m0"}}`, nil,
		out(vendorAddress, 1)))
	e, err = s.repo.GetEventByTxHash(s.ctx, "again")
	require.Nil(s.T(), err)
	require.False(s.T(), e.MilestoneId.Valid)

	milestones, err = s.repo.GetMilestones(s.ctx, s.vendorContract().Id)
	require.Nil(s.T(), err)
	require.Equal(s.T(), "disburse", milestones[0].DisburseTxHash.String)
}

func (s *ProcessorTestSuite) TestSweep() {
	s.process(s.tx("publish", `{"instance":"`+instance+`","body":{"event":"publish"}}`, nil))

	for _, variant := range []string{"sweep", "SweepTreasury", "sweepvendor"} {
		outcome := s.process(s.tx(variant, `{"instance":"`+instance+`","body":{"event":"`+variant+`"}}`, nil))
		require.Equal(s.T(), tom.EventTypeSweep, outcome.EventType)

		e, err := s.repo.GetEventByTxHash(s.ctx, variant)
		require.Nil(s.T(), err)
		require.Equal(s.T(), "sweep", e.EventType)
		require.True(s.T(), e.TreasuryId.Valid)
	}

	s.process(s.tx("reorg", `{"instance":"unknown","body":{"event":"reorganize"}}`, nil))
	e, err := s.repo.GetEventByTxHash(s.ctx, "reorg")
	require.Nil(s.T(), err)
	require.Equal(s.T(), "reorganize", e.EventType)
	require.False(s.T(), e.TreasuryId.Valid)

	// Sweep never creates a treasury
	_, err = s.repo.GetTreasuryContractByInstance(s.ctx, "unknown")
	require.Error(s.T(), err)
}

func (s *ProcessorTestSuite) TestIdempotence() {
	events := []*ledger.RawEvent{
		s.tx("publish", `{"instance":"`+instance+`","body":{"event":"publish","label":"T"}}`, nil),
		s.fundEvent(),
		s.tx("complete", `{"body":{"event":"complete","milestones":{"m0":{"description":"ok"},"m-1":{}}}}`,
			[]ledger.Input{{TxHash: "fund", OutputIndex: 0}},
			out(projectAddress, 1_000_000_000)),
		s.tx("disburse", `{"body":{"event":"disburse","milestone":"m0"}}`,
			[]ledger.Input{{TxHash: "complete", OutputIndex: 0}},
			out(projectAddress, 600_000_000),
			out(vendorAddress, 400_000_000)),
		s.tx("pause", `{"body":{"event":"pause","identifier":"P"}}`, nil),
	}

	for _, e := range events {
		s.process(e)
	}
	first, err := s.repo.GetVendorContractSummary(s.ctx, "P")
	require.Nil(s.T(), err)
	firstEvents, err := s.repo.GetEvents(s.ctx, nil)
	require.Nil(s.T(), err)
	firstMilestones, err := s.repo.GetMilestones(s.ctx, first.VendorContractId)
	require.Nil(s.T(), err)

	for _, e := range events {
		s.process(e)
	}
	second, err := s.repo.GetVendorContractSummary(s.ctx, "P")
	require.Nil(s.T(), err)
	secondEvents, err := s.repo.GetEvents(s.ctx, nil)
	require.Nil(s.T(), err)
	secondMilestones, err := s.repo.GetMilestones(s.ctx, first.VendorContractId)
	require.Nil(s.T(), err)

	require.Equal(s.T(), first, second)
	require.Len(s.T(), secondEvents, len(firstEvents))
	require.Len(s.T(), secondMilestones, len(firstMilestones))
	for i := range firstMilestones {
		require.Equal(s.T(), firstMilestones[i].Status, secondMilestones[i].Status)
		require.Equal(s.T(), firstMilestones[i].CompleteTxHash, secondMilestones[i].CompleteTxHash)
		require.Equal(s.T(), firstMilestones[i].DisburseAmount, secondMilestones[i].DisburseAmount)
	}

	require.Equal(s.T(), int64(600_000_000), second.CurrentBalance)
	require.Equal(s.T(), int64(1), second.DisbursedMilestones)
	require.Equal(s.T(), int64(1), second.CompletedMilestones)
}

func (s *ProcessorTestSuite) TestAtomicity() {
	s.repo.WithFailure(func(op string) error {
		if op == "InsertEvent" {
			return errors.New("connection reset")
		}
		return nil
	})

	_, err := s.processor.Process(s.ctx, s.fundEvent())
	require.Error(s.T(), err)

	// Nothing from the failed event is visible
	_, err = s.repo.GetVendorContractByProjectId(s.ctx, "P")
	require.Error(s.T(), err)
	_, err = s.repo.GetTrackedUtxo(s.ctx, "fund", 0)
	require.Error(s.T(), err)
	_, err = s.repo.GetTreasuryContractByInstance(s.ctx, instance)
	require.Error(s.T(), err)
}

type fakeAnchors struct {
	documents map[string]string
}

func (self *fakeAnchors) Fetch(ctx context.Context, url, dataHash string) ([]byte, error) {
	doc, ok := self.documents[url]
	if !ok {
		return nil, errors.New("not found")
	}
	return []byte(doc), nil
}

func (s *ProcessorTestSuite) TestAnchor() {
	s.processor.WithAnchorFetcher(&fakeAnchors{documents: map[string]string{
		"https://example.com/publish.json": `{"body":{"event":"publish","label":"Anchored"}}`,
	}})

	metadata := `{"instance":"` + instance + `","body":{"anchorUrl":"https://example.com/publish.json"}}`
	outcome := s.process(s.tx("publish", metadata, nil))
	require.Equal(s.T(), OutcomeApplied, outcome.Kind)

	t, err := s.repo.GetTreasuryContractByInstance(s.ctx, instance)
	require.Nil(s.T(), err)
	require.Equal(s.T(), "Anchored", t.Name.String)

	// On-chain payload is what gets stored
	e, err := s.repo.GetEventByTxHash(s.ctx, "publish")
	require.Nil(s.T(), err)
	require.JSONEq(s.T(), metadata, string(e.Metadata.Bytes))

	// Fetch failures are retried later
	_, err = s.processor.Process(s.ctx, s.tx("missing", `{"body":{"anchorUrl":"https://example.com/missing.json"}}`, nil))
	require.Error(s.T(), err)
}
