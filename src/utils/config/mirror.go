package config

import (
	"time"

	"github.com/spf13/viper"
)

type Mirror struct {
	// Number of workers downloading address UTXO sets
	WorkerPoolSize int

	// How often all tracked addresses are refreshed, not only the ones touched by new events
	FullSyncInterval time.Duration
}

func setMirrorDefaults() {
	viper.SetDefault("Mirror.WorkerPoolSize", "8")
	viper.SetDefault("Mirror.FullSyncInterval", "10m")
}
