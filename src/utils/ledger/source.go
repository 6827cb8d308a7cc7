package ledger

import "context"

// Read-only access to the indexed chain
type Source interface {
	// Transactions tagged with the watched label, strictly after the cursor, ascending
	GetEvents(ctx context.Context, after Cursor, limit int) ([]*RawEvent, error)

	// Inputs of the transaction in canonical ledger order
	GetInputs(ctx context.Context, txHash string) ([]Input, error)

	// Outputs of the transaction ordered by index
	GetOutputs(ctx context.Context, txHash string) ([]Output, error)

	// Outputs currently unspent at the address
	GetAddressUtxos(ctx context.Context, address string) ([]Utxo, error)
}
