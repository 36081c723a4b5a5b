package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var (
	historyTenant string
	historyLimit  int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent sync runs for a tenant",
	RunE: func(cmd *cobra.Command, args []string) error {
		if historyTenant == "" {
			return eris.New("--tenant is required")
		}
		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		recs, err := st.RecentSyncRecords(cmd.Context(), historyTenant, historyLimit)
		if err != nil {
			return eris.Wrap(err, "recent sync records")
		}
		for _, r := range recs {
			fmt.Printf("%s\t%s/%s\t%s\ttotal=%d created=%d skipped=%d failed=%d errors=%d\n",
				r.CompletedAt.Format("2006-01-02 15:04:05"),
				r.SpreadsheetID, r.SubSheetName,
				r.Status,
				r.TotalRecords, r.CreatedCount, r.SkippedCount, r.FailedCount, r.ErrorCount,
			)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().StringVar(&historyTenant, "tenant", "", "tenant id")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of runs to show")
	rootCmd.AddCommand(historyCmd)
}
