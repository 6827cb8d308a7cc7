package cmd

import (
	"encoding/json"
	"os"

	"github.com/warp-contracts/tom-indexer/src/store"
	"github.com/warp-contracts/tom-indexer/src/utils/logger"
	"github.com/warp-contracts/tom-indexer/src/utils/model"

	"github.com/spf13/cobra"
)

var statusProjectId string

func init() {
	statusCmd.Flags().StringVar(&statusProjectId, "project", "", "show a single project")
	RootCmd.AddCommand(statusCmd)
}

type status struct {
	Checkpoints []*model.SyncStatus            `json:"checkpoints"`
	Contracts   []*model.VendorContractSummary `json:"contracts"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print sync checkpoints and vendor contract summaries as JSON",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		db, err := model.Connect(applicationCtx, &conf.Database, conf.Database.User, conf.Database.Password, "status")
		if err != nil {
			return
		}
		sqlDB, err := db.DB()
		if err != nil {
			return
		}
		defer sqlDB.Close()

		repo := store.NewGormRepository(db)

		var out status
		for _, syncType := range []model.SyncType{model.SyncTypeEvents, model.SyncTypeUtxos} {
			var s *model.SyncStatus
			s, err = repo.GetSyncStatus(applicationCtx, syncType)
			if err != nil {
				return
			}
			out.Checkpoints = append(out.Checkpoints, s)
		}

		if statusProjectId != "" {
			var summary *model.VendorContractSummary
			summary, err = repo.GetVendorContractSummary(applicationCtx, statusProjectId)
			if err != nil {
				return
			}
			out.Contracts = append(out.Contracts, summary)
		} else {
			out.Contracts, err = repo.GetVendorContractSummaries(applicationCtx)
			if err != nil {
				return
			}
		}

		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(out)
	},
	PostRunE: func(cmd *cobra.Command, args []string) (err error) {
		log := logger.NewSublogger("root-cmd")
		log.Debug("Finished status command")
		return
	},
}
