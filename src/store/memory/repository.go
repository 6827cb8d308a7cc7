package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp-contracts/tom-indexer/src/store"
	"github.com/warp-contracts/tom-indexer/src/utils/model"

	"github.com/jackc/pgtype"
)

var _ store.Repository = (*Repository)(nil)

type state struct {
	nextId       int
	treasuries   []*model.TreasuryContract
	vendors      []*model.VendorContract
	milestones   []*model.Milestone
	events       []*model.Event
	utxos        []*model.TrackedUtxo
	syncStatuses map[model.SyncType]*model.SyncStatus
}

func cloneAll[T any](in []*T) []*T {
	out := make([]*T, len(in))
	for i, v := range in {
		c := *v
		out[i] = &c
	}
	return out
}

func (self *state) clone() *state {
	out := &state{
		nextId:       self.nextId,
		treasuries:   cloneAll(self.treasuries),
		vendors:      cloneAll(self.vendors),
		milestones:   cloneAll(self.milestones),
		events:       cloneAll(self.events),
		utxos:        cloneAll(self.utxos),
		syncStatuses: make(map[model.SyncType]*model.SyncStatus, len(self.syncStatuses)),
	}
	for k, v := range self.syncStatuses {
		c := *v
		out.syncStatuses[k] = &c
	}
	return out
}

func (self *state) id() int {
	self.nextId++
	return self.nextId
}

// In-memory repository. Transactions work on a copy of the whole state that replaces it on commit
type Repository struct {
	mtx   *sync.Mutex
	state *state

	// Set for views handed to a transaction callback
	inTransaction bool

	// Called before every write, a returned error is returned by the write
	failure func(op string) error
}

func NewRepository() *Repository {
	return &Repository{
		mtx: &sync.Mutex{},
		state: &state{
			syncStatuses: map[model.SyncType]*model.SyncStatus{
				model.SyncTypeEvents: {Id: 1, SyncType: model.SyncTypeEvents, LastTxIndex: -1},
				model.SyncTypeUtxos:  {Id: 2, SyncType: model.SyncTypeUtxos, LastTxIndex: -1},
			},
			nextId: 2,
		},
	}
}

// Injects write failures
func (self *Repository) WithFailure(f func(op string) error) *Repository {
	self.failure = f
	return self
}

func (self *Repository) lock() func() {
	if self.inTransaction {
		return func() {}
	}
	self.mtx.Lock()
	return self.mtx.Unlock
}

func (self *Repository) fail(op string) error {
	if self.failure == nil {
		return nil
	}
	return self.failure(op)
}

func (self *Repository) Transaction(ctx context.Context, f func(repo store.Repository) error) error {
	unlock := self.lock()
	defer unlock()

	view := &Repository{
		mtx:           self.mtx,
		state:         self.state.clone(),
		inTransaction: true,
		failure:       self.failure,
	}

	err := f(view)
	if err != nil {
		return err
	}

	if err = ctx.Err(); err != nil {
		return err
	}

	*self.state = *view.state
	return nil
}

func fillTreasuryContract(dst *model.TreasuryContract, src *model.TreasuryContract) {
	if !dst.ContractAddress.Valid {
		dst.ContractAddress = src.ContractAddress
	}
	if !dst.StakeCredential.Valid {
		dst.StakeCredential = src.StakeCredential
	}
	if !dst.Name.Valid {
		dst.Name = src.Name
	}
	if !dst.PublishTxHash.Valid {
		dst.PublishTxHash = src.PublishTxHash
	}
	if !dst.PublishTime.Valid {
		dst.PublishTime = src.PublishTime
	}
	if !dst.InitializedTxHash.Valid {
		dst.InitializedTxHash = src.InitializedTxHash
	}
	if !dst.InitializedAt.Valid {
		dst.InitializedAt = src.InitializedAt
	}
	if dst.Permissions.Status != pgtype.Present {
		dst.Permissions = src.Permissions
	}
}

func (self *Repository) UpsertTreasuryContract(ctx context.Context, c *model.TreasuryContract) (id int, err error) {
	defer self.lock()()
	if err = self.fail("UpsertTreasuryContract"); err != nil {
		return
	}

	now := time.Now()
	for _, t := range self.state.treasuries {
		if t.ContractInstance == c.ContractInstance {
			fillTreasuryContract(t, c)
			t.UpdatedAt = now
			return t.Id, nil
		}
	}

	t := *c
	t.Id = self.state.id()
	if t.Status == "" {
		t.Status = model.TreasuryStatusActive
	}
	t.CreatedAt, t.UpdatedAt = now, now
	self.state.treasuries = append(self.state.treasuries, &t)
	return t.Id, nil
}

func (self *Repository) GetTreasuryContractByInstance(ctx context.Context, instance string) (*model.TreasuryContract, error) {
	defer self.lock()()
	for _, t := range self.state.treasuries {
		if t.ContractInstance == instance {
			c := *t
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (self *Repository) UpsertVendorContract(ctx context.Context, c *model.VendorContract) (id int, err error) {
	defer self.lock()()
	if err = self.fail("UpsertVendorContract"); err != nil {
		return
	}

	now := time.Now()
	for _, v := range self.state.vendors {
		if v.ProjectId != c.ProjectId {
			continue
		}
		if c.ProjectName.Valid {
			v.ProjectName = c.ProjectName
		}
		if c.Description.Valid {
			v.Description = c.Description
		}
		if !v.TreasuryId.Valid {
			v.TreasuryId = c.TreasuryId
		}
		if v.OtherIdentifiers == nil {
			v.OtherIdentifiers = c.OtherIdentifiers
		}
		if !v.VendorName.Valid {
			v.VendorName = c.VendorName
		}
		if !v.VendorAddress.Valid {
			v.VendorAddress = c.VendorAddress
		}
		if !v.ContractUrl.Valid {
			v.ContractUrl = c.ContractUrl
		}
		if !v.ContractAddress.Valid {
			v.ContractAddress = c.ContractAddress
		}
		if !v.FundSlot.Valid {
			v.FundSlot = c.FundSlot
		}
		if !v.FundBlockTime.Valid {
			v.FundBlockTime = c.FundBlockTime
		}
		if !v.InitialAmountLovelace.Valid {
			v.InitialAmountLovelace = c.InitialAmountLovelace
		}
		v.UpdatedAt = now
		return v.Id, nil
	}

	v := *c
	v.Id = self.state.id()
	if v.Status == "" {
		v.Status = model.VendorContractStatusActive
	}
	v.CreatedAt, v.UpdatedAt = now, now
	self.state.vendors = append(self.state.vendors, &v)
	return v.Id, nil
}

func (self *Repository) findVendor(f func(v *model.VendorContract) bool) (*model.VendorContract, error) {
	for _, v := range self.state.vendors {
		if f(v) {
			c := *v
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (self *Repository) GetVendorContractByProjectId(ctx context.Context, projectId string) (*model.VendorContract, error) {
	defer self.lock()()
	return self.findVendor(func(v *model.VendorContract) bool { return v.ProjectId == projectId })
}

func (self *Repository) GetVendorContract(ctx context.Context, id int) (*model.VendorContract, error) {
	defer self.lock()()
	return self.findVendor(func(v *model.VendorContract) bool { return v.Id == id })
}

func (self *Repository) FindVendorContractByAddress(ctx context.Context, address string) (*model.VendorContract, error) {
	defer self.lock()()
	return self.findVendor(func(v *model.VendorContract) bool {
		return (v.ContractAddress.Valid && v.ContractAddress.String == address) ||
			(v.VendorAddress.Valid && v.VendorAddress.String == address)
	})
}

func (self *Repository) SetVendorContractStatus(ctx context.Context, id int, status model.VendorContractStatus) error {
	defer self.lock()()
	if err := self.fail("SetVendorContractStatus"); err != nil {
		return err
	}
	for _, v := range self.state.vendors {
		if v.Id == id {
			v.Status = status
			v.UpdatedAt = time.Now()
		}
	}
	return nil
}

func (self *Repository) GetTrackedAddresses(ctx context.Context) ([]string, error) {
	defer self.lock()()
	set := make(map[string]struct{})
	for _, t := range self.state.treasuries {
		if t.ContractAddress.Valid {
			set[t.ContractAddress.String] = struct{}{}
		}
	}
	for _, v := range self.state.vendors {
		if v.ContractAddress.Valid {
			set[v.ContractAddress.String] = struct{}{}
		}
		if v.VendorAddress.Valid {
			set[v.VendorAddress.String] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for a := range set {
		out = append(out, a)
	}
	sort.Strings(out)
	return out, nil
}

func (self *Repository) InsertMilestones(ctx context.Context, milestones []*model.Milestone) error {
	defer self.lock()()
	if err := self.fail("InsertMilestones"); err != nil {
		return err
	}

	now := time.Now()
outer:
	for _, m := range milestones {
		for _, existing := range self.state.milestones {
			if existing.VendorContractId == m.VendorContractId && existing.MilestoneId == m.MilestoneId {
				continue outer
			}
		}
		c := *m
		c.Id = self.state.id()
		if c.Status == "" {
			c.Status = model.MilestoneStatusPending
		}
		c.CreatedAt, c.UpdatedAt = now, now
		self.state.milestones = append(self.state.milestones, &c)
		m.Id = c.Id
	}
	return nil
}

func (self *Repository) GetMilestones(ctx context.Context, vendorContractId int) (out []*model.Milestone, err error) {
	defer self.lock()()
	for _, m := range self.state.milestones {
		if m.VendorContractId == vendorContractId {
			c := *m
			out = append(out, &c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].MilestoneOrder < out[j].MilestoneOrder })
	return
}

func (self *Repository) milestone(vendorContractId int, milestoneId string) *model.Milestone {
	for _, m := range self.state.milestones {
		if m.VendorContractId == vendorContractId && m.MilestoneId == milestoneId {
			return m
		}
	}
	return nil
}

func (self *Repository) CompleteMilestone(ctx context.Context, vendorContractId int, milestoneId string, completion *store.MilestoneCompletion) (id int, err error) {
	defer self.lock()()
	if err = self.fail("CompleteMilestone"); err != nil {
		return
	}

	m := self.milestone(vendorContractId, milestoneId)
	if m == nil {
		return 0, store.ErrNotFound
	}

	allowed := m.Status == model.MilestoneStatusPending ||
		(!completion.OnlyPending && m.Status == model.MilestoneStatusCompleted)
	if !allowed {
		return 0, store.ErrNotTransitioned
	}

	m.Status = model.MilestoneStatusCompleted
	m.CompleteTxHash.String, m.CompleteTxHash.Valid = completion.TxHash, true
	m.CompleteTime = completion.Time
	if !completion.OnlyPending {
		m.CompleteDescription = completion.Description
		m.Evidence = completion.Evidence
	}
	m.UpdatedAt = time.Now()
	return m.Id, nil
}

func (self *Repository) DisburseMilestone(ctx context.Context, vendorContractId int, milestoneId string, disbursement *store.MilestoneDisbursement) (id int, err error) {
	defer self.lock()()
	if err = self.fail("DisburseMilestone"); err != nil {
		return
	}

	m := self.milestone(vendorContractId, milestoneId)
	if m == nil {
		return 0, store.ErrNotFound
	}

	if m.Status == model.MilestoneStatusDisbursed {
		return 0, store.ErrNotTransitioned
	}

	m.Status = model.MilestoneStatusDisbursed
	m.DisburseTxHash.String, m.DisburseTxHash.Valid = disbursement.TxHash, true
	m.DisburseTime = disbursement.Time
	m.DisburseAmount = disbursement.Amount
	m.UpdatedAt = time.Now()
	return m.Id, nil
}

func (self *Repository) InsertEvent(ctx context.Context, event *model.Event) (inserted bool, err error) {
	defer self.lock()()
	if err = self.fail("InsertEvent"); err != nil {
		return
	}

	for _, e := range self.state.events {
		if e.TxHash == event.TxHash {
			return false, nil
		}
	}

	c := *event
	c.Id = self.state.id()
	c.CreatedAt = time.Now()
	self.state.events = append(self.state.events, &c)
	event.Id = c.Id
	return true, nil
}

func (self *Repository) GetEventByTxHash(ctx context.Context, txHash string) (*model.Event, error) {
	defer self.lock()()
	for _, e := range self.state.events {
		if e.TxHash == txHash {
			c := *e
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (self *Repository) GetEvents(ctx context.Context, vendorContractId *int) (out []*model.Event, err error) {
	defer self.lock()()
	for _, e := range self.state.events {
		if vendorContractId != nil && (!e.VendorContractId.Valid || int(e.VendorContractId.Int32) != *vendorContractId) {
			continue
		}
		c := *e
		out = append(out, &c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Slot < out[j].Slot })
	return
}

func (self *Repository) utxo(txHash string, outputIndex int) *model.TrackedUtxo {
	for _, u := range self.state.utxos {
		if u.TxHash == txHash && int(u.OutputIndex) == outputIndex {
			return u
		}
	}
	return nil
}

func (self *Repository) GetTrackedUtxo(ctx context.Context, txHash string, outputIndex int) (*model.TrackedUtxo, error) {
	defer self.lock()()
	u := self.utxo(txHash, outputIndex)
	if u == nil {
		return nil, store.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (self *Repository) GetTrackedUtxos(ctx context.Context, vendorContractId int) (out []*model.TrackedUtxo, err error) {
	defer self.lock()()
	for _, u := range self.state.utxos {
		if u.VendorContractId.Valid && int(u.VendorContractId.Int32) == vendorContractId {
			c := *u
			out = append(out, &c)
		}
	}
	return
}

func (self *Repository) InsertTrackedUtxos(ctx context.Context, utxos []*model.TrackedUtxo) (n int64, err error) {
	defer self.lock()()
	if err = self.fail("InsertTrackedUtxos"); err != nil {
		return
	}

	for _, u := range utxos {
		if self.utxo(u.TxHash, int(u.OutputIndex)) != nil {
			continue
		}
		c := *u
		c.Id = self.state.id()
		self.state.utxos = append(self.state.utxos, &c)
		n++
	}
	return
}

func (self *Repository) UpsertTrackedUtxoOwner(ctx context.Context, utxos []*model.TrackedUtxo) error {
	defer self.lock()()
	if err := self.fail("UpsertTrackedUtxoOwner"); err != nil {
		return err
	}

	for _, u := range utxos {
		existing := self.utxo(u.TxHash, int(u.OutputIndex))
		if existing == nil {
			c := *u
			c.Id = self.state.id()
			self.state.utxos = append(self.state.utxos, &c)
			continue
		}
		existing.VendorContractId = u.VendorContractId
		if !existing.Address.Valid {
			existing.Address = u.Address
		}
		if !existing.AddressType.Valid {
			existing.AddressType = u.AddressType
		}
		if !existing.LovelaceAmount.Valid {
			existing.LovelaceAmount = u.LovelaceAmount
		}
		if !existing.Slot.Valid {
			existing.Slot = u.Slot
		}
		if !existing.BlockNumber.Valid {
			existing.BlockNumber = u.BlockNumber
		}
	}
	return nil
}

func (self *Repository) MarkTrackedUtxoSpent(ctx context.Context, txHash string, outputIndex int, spentTxHash string, spentSlot int64) error {
	defer self.lock()()
	if err := self.fail("MarkTrackedUtxoSpent"); err != nil {
		return err
	}

	u := self.utxo(txHash, outputIndex)
	if u == nil || u.Spent {
		return nil
	}
	u.Spent = true
	u.SpentTxHash.String, u.SpentTxHash.Valid = spentTxHash, true
	u.SpentSlot.Int64, u.SpentSlot.Valid = spentSlot, true
	return nil
}

func (self *Repository) GetSyncStatus(ctx context.Context, syncType model.SyncType) (*model.SyncStatus, error) {
	defer self.lock()()
	s, ok := self.state.syncStatuses[syncType]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := *s
	return &c, nil
}

func (self *Repository) SaveSyncStatus(ctx context.Context, status *model.SyncStatus) (saved bool, err error) {
	defer self.lock()()
	if err = self.fail("SaveSyncStatus"); err != nil {
		return
	}

	existing, ok := self.state.syncStatuses[status.SyncType]
	if ok && !existing.IsBefore(status.LastSlot, status.LastTxIndex) {
		return false, nil
	}

	c := *status
	if ok {
		c.Id = existing.Id
	} else {
		c.Id = self.state.id()
	}
	c.UpdatedAt = time.Now()
	self.state.syncStatuses[status.SyncType] = &c
	return true, nil
}

func (self *Repository) summary(v *model.VendorContract) *model.VendorContractSummary {
	out := &model.VendorContractSummary{
		VendorContractId:      v.Id,
		ProjectId:             v.ProjectId,
		Status:                v.Status,
		InitialAmountLovelace: v.InitialAmountLovelace.Int64,
	}

	for _, m := range self.state.milestones {
		if m.VendorContractId != v.Id {
			continue
		}
		out.TotalMilestones++
		switch m.Status {
		case model.MilestoneStatusPending:
			out.PendingMilestones++
		case model.MilestoneStatusCompleted:
			out.CompletedMilestones++
		case model.MilestoneStatusDisbursed:
			out.DisbursedMilestones++
			out.TotalDisbursed += m.DisburseAmount.Int64
		}
	}

	for _, u := range self.state.utxos {
		if u.Spent || !u.VendorContractId.Valid || int(u.VendorContractId.Int32) != v.Id {
			continue
		}
		if !v.ContractAddress.Valid || u.Address.String != v.ContractAddress.String {
			continue
		}
		out.CurrentBalance += u.LovelaceAmount.Int64
		out.UnspentUtxoCount++
	}

	for _, e := range self.state.events {
		if e.VendorContractId.Valid && int(e.VendorContractId.Int32) == v.Id {
			out.EventCount++
		}
	}

	return out
}

func (self *Repository) GetVendorContractSummary(ctx context.Context, projectId string) (*model.VendorContractSummary, error) {
	defer self.lock()()
	for _, v := range self.state.vendors {
		if v.ProjectId == projectId {
			return self.summary(v), nil
		}
	}
	return nil, store.ErrNotFound
}

func (self *Repository) GetVendorContractSummaries(ctx context.Context) (out []*model.VendorContractSummary, err error) {
	defer self.lock()()
	for i := len(self.state.vendors) - 1; i >= 0; i-- {
		out = append(out, self.summary(self.state.vendors[i]))
	}
	return
}
