package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/warp-contracts/tom-indexer/src/utils/model"

	"github.com/jackc/pgtype"
)

var (
	ErrNotFound = errors.New("not found")

	// The milestone exists but its status doesn't allow the transition
	ErrNotTransitioned = errors.New("milestone not transitioned")
)

// Fields set when a milestone is marked completed
type MilestoneCompletion struct {
	TxHash      string
	Time        sql.NullInt64
	Description sql.NullString
	Evidence    pgtype.JSONB

	// Legacy single-milestone payloads only complete pending milestones and carry no description
	OnlyPending bool
}

type MilestoneDisbursement struct {
	TxHash string
	Time   sql.NullInt64
	Amount sql.NullInt64
}

// Storage of the normalized treasury model.
// Every write is either fill-only or skip-on-conflict, so applying the same event twice is a no-op.
type Repository interface {
	// Runs f in a single database transaction. The whole unit is rolled back when f returns an error
	Transaction(ctx context.Context, f func(repo Repository) error) error

	// Creates the treasury contract or fills its empty fields. Returns the contract id
	UpsertTreasuryContract(ctx context.Context, contract *model.TreasuryContract) (id int, err error)
	GetTreasuryContractByInstance(ctx context.Context, instance string) (*model.TreasuryContract, error)

	// Creates the vendor contract if absent. For an existing one only name and description are refreshed when set
	UpsertVendorContract(ctx context.Context, contract *model.VendorContract) (id int, err error)
	GetVendorContractByProjectId(ctx context.Context, projectId string) (*model.VendorContract, error)
	GetVendorContract(ctx context.Context, id int) (*model.VendorContract, error)

	// Vendor contract whose script or payout address is the given one
	FindVendorContractByAddress(ctx context.Context, address string) (*model.VendorContract, error)
	SetVendorContractStatus(ctx context.Context, id int, status model.VendorContractStatus) error

	// Contract and payout addresses of all known contracts, deduplicated
	GetTrackedAddresses(ctx context.Context) ([]string, error)

	// Inserts milestones, existing ones are left untouched
	InsertMilestones(ctx context.Context, milestones []*model.Milestone) error
	GetMilestones(ctx context.Context, vendorContractId int) ([]*model.Milestone, error)

	// Marks the milestone completed. Returns ErrNotFound if the contract has no such milestone
	// and ErrNotTransitioned if its status blocks the update. Disbursed milestones are never moved back
	CompleteMilestone(ctx context.Context, vendorContractId int, milestoneId string, completion *MilestoneCompletion) (id int, err error)

	// Marks the milestone disbursed. Returns ErrNotFound if the contract has no such milestone
	// and ErrNotTransitioned if it is already disbursed
	DisburseMilestone(ctx context.Context, vendorContractId int, milestoneId string, disbursement *MilestoneDisbursement) (id int, err error)

	// Appends to the audit log. Returns false if the transaction already has an event
	InsertEvent(ctx context.Context, event *model.Event) (inserted bool, err error)
	GetEventByTxHash(ctx context.Context, txHash string) (*model.Event, error)
	GetEvents(ctx context.Context, vendorContractId *int) ([]*model.Event, error)

	GetTrackedUtxo(ctx context.Context, txHash string, outputIndex int) (*model.TrackedUtxo, error)
	GetTrackedUtxos(ctx context.Context, vendorContractId int) ([]*model.TrackedUtxo, error)

	// Inserts outputs, existing rows are left untouched. Returns the number of inserted rows
	InsertTrackedUtxos(ctx context.Context, utxos []*model.TrackedUtxo) (n int64, err error)

	// Inserts outputs, existing rows get the new owner. Spent flags are never cleared
	UpsertTrackedUtxoOwner(ctx context.Context, utxos []*model.TrackedUtxo) error

	// Flags the output spent by spentTxHash. Already spent outputs keep their spender
	MarkTrackedUtxoSpent(ctx context.Context, txHash string, outputIndex int, spentTxHash string, spentSlot int64) error

	GetSyncStatus(ctx context.Context, syncType model.SyncType) (*model.SyncStatus, error)

	// Stores the checkpoint unless the stored one is at the same position or later
	SaveSyncStatus(ctx context.Context, status *model.SyncStatus) (saved bool, err error)

	GetVendorContractSummary(ctx context.Context, projectId string) (*model.VendorContractSummary, error)
	GetVendorContractSummaries(ctx context.Context) ([]*model.VendorContractSummary, error)
}
