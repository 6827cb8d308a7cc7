package common

import (
	"context"

	cfg "github.com/warp-contracts/tom-indexer/src/utils/config"
)

type contextKey int

const (
	ContextKeyConfig contextKey = iota
)

func SetConfig(ctx context.Context, config *cfg.Config) context.Context {
	return context.WithValue(ctx, ContextKeyConfig, config)
}

func GetConfig(ctx context.Context) (config *cfg.Config) {
	config, _ = ctx.Value(ContextKeyConfig).(*cfg.Config)
	return
}
