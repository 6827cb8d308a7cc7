package config

import (
	"time"

	"github.com/spf13/viper"
)

type Syncer struct {
	// Max number of events fetched in one poll
	BatchSize int

	// Time between polls for new events
	PollInterval time.Duration

	// Replay the whole event history upon start. Safe, because applying events is idempotent
	BackfillFromGenesis bool

	// Consecutive failures after which a transaction is skipped
	MaxEventAttempts int

	// Max time applying a single event may take
	EventTimeout time.Duration
}

func setSyncerDefaults() {
	viper.SetDefault("Syncer.BatchSize", "1000")
	viper.SetDefault("Syncer.PollInterval", "15s")
	viper.SetDefault("Syncer.BackfillFromGenesis", "true")
	viper.SetDefault("Syncer.MaxEventAttempts", "5")
	viper.SetDefault("Syncer.EventTimeout", "1m")
}
