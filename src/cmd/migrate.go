package cmd

import (
	"github.com/warp-contracts/tom-indexer/src/utils/logger"
	"github.com/warp-contracts/tom-indexer/src/utils/model"

	migrate "github.com/rubenv/sql-migrate"
	"github.com/spf13/cobra"
)

var migrateDown bool

func init() {
	migrateCmd.Flags().BoolVar(&migrateDown, "down", false, "roll back the last migration")
	RootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the treasury schema",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		direction := migrate.Up
		if migrateDown {
			direction = migrate.Down
		}

		_, err = model.Migrate(applicationCtx, conf, direction)
		return
	},
	PostRunE: func(cmd *cobra.Command, args []string) (err error) {
		log := logger.NewSublogger("root-cmd")
		log.Debug("Finished migrate command")
		return
	},
}
