package config

import (
	"time"

	"github.com/spf13/viper"
)

// Read-only access to the chain data indexed by yaci-store
type Ledger struct {
	// Schema holding yaci-store tables
	Schema string

	// Metadata label of the TOM events
	MetadataLabel string

	// Address prefix of script (contract) addresses
	ScriptAddressPrefix string

	// How long transaction outputs are cached. Outputs never change once on chain
	OutputsCacheExpiration time.Duration

	// Max time of a single query
	QueryTimeout time.Duration
}

func setLedgerDefaults() {
	viper.SetDefault("Ledger.Schema", "yaci_store")
	viper.SetDefault("Ledger.MetadataLabel", "1694")
	viper.SetDefault("Ledger.ScriptAddressPrefix", "addr1x")
	viper.SetDefault("Ledger.OutputsCacheExpiration", "30m")
	viper.SetDefault("Ledger.QueryTimeout", "1m")
}
