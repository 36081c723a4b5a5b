package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	syncTenant      string
	syncSpreadsheet string
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a sync for one tenant spreadsheet",
	RunE: func(cmd *cobra.Command, args []string) error {
		if syncTenant == "" || syncSpreadsheet == "" {
			return eris.New("--tenant and --spreadsheet are required")
		}

		e, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		summary, err := e.engine.Sync(cmd.Context(), syncTenant, syncSpreadsheet)
		if err != nil {
			return eris.Wrap(err, "sync run")
		}

		zap.L().Info("sync finished",
			zap.String("status", string(summary.Status)),
			zap.Int("total", summary.Counts.Total),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

func init() {
	syncCmd.Flags().StringVar(&syncTenant, "tenant", "", "tenant id")
	syncCmd.Flags().StringVar(&syncSpreadsheet, "spreadsheet", "", "spreadsheet id")
	rootCmd.AddCommand(syncCmd)
}
