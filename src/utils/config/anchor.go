package config

import (
	"time"

	"github.com/spf13/viper"
)

// Off-chain metadata referenced by anchorUrl
type Anchor struct {
	Enabled bool

	// Request timeout
	RequestTimeout time.Duration

	// Max size of the downloaded document
	MaxBodySize int64

	// Requests per second to a single host
	RateLimit float64

	// How long verified documents are cached
	CacheExpiration time.Duration
}

func setAnchorDefaults() {
	viper.SetDefault("Anchor.Enabled", "false")
	viper.SetDefault("Anchor.RequestTimeout", "15s")
	viper.SetDefault("Anchor.MaxBodySize", "10485760")
	viper.SetDefault("Anchor.RateLimit", "2")
	viper.SetDefault("Anchor.CacheExpiration", "1h")
}
