package cmd

import (
	"github.com/warp-contracts/tom-indexer/src/syncer"
	"github.com/warp-contracts/tom-indexer/src/utils/logger"

	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(syncCmd)
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Backfill treasury events and keep following the ledger",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		controller, err := syncer.NewController(conf)
		if err != nil {
			return
		}

		err = controller.Start()
		if err != nil {
			return
		}

		select {
		case <-controller.CtxRunning.Done():
		case <-applicationCtx.Done():
		}

		controller.StopWait()

		return
	},
	PostRunE: func(cmd *cobra.Command, args []string) (err error) {
		log := logger.NewSublogger("root-cmd")
		log.Debug("Finished sync command")
		return
	},
}
