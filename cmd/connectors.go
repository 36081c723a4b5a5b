package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/sheetsync/internal/sheets"
)

var connectorsTenant string

var connectorsCmd = &cobra.Command{
	Use:   "connectors",
	Short: "Manage spreadsheet connectors",
}

var connectorsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a tenant's connectors",
	RunE: func(cmd *cobra.Command, args []string) error {
		if connectorsTenant == "" {
			return eris.New("--tenant is required")
		}
		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		conns, err := st.ListConnectors(cmd.Context(), connectorsTenant)
		if err != nil {
			return eris.Wrap(err, "list connectors")
		}
		for _, c := range conns {
			mappings, err := st.ListFieldMappings(cmd.Context(), connectorsTenant, c.SpreadsheetID)
			if err != nil {
				return eris.Wrap(err, "list field mappings")
			}
			fmt.Printf("%s\t%s\tmappings=%d\n", c.SpreadsheetID, c.SheetName, len(mappings))
		}
		return nil
	},
}

var connectorsAddCmd = &cobra.Command{
	Use:   "add <spreadsheet-id> [sheet-name]",
	Short: "Register a spreadsheet for a tenant",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if connectorsTenant == "" {
			return eris.New("--tenant is required")
		}
		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		name := ""
		if len(args) == 2 {
			name = args[1]
		}
		conn, err := st.CreateConnector(cmd.Context(), connectorsTenant, args[0], name)
		if err != nil {
			return eris.Wrap(err, "create connector")
		}
		fmt.Printf("created %s\n", conn.ID)
		return nil
	},
}

var connectorsRemoveCmd = &cobra.Command{
	Use:   "remove <spreadsheet-id>",
	Short: "Remove a connector and its field mappings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if connectorsTenant == "" {
			return eris.New("--tenant is required")
		}
		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.DeleteConnectorWithMappings(cmd.Context(), connectorsTenant, args[0]); err != nil {
			return eris.Wrap(err, "delete connector")
		}
		fmt.Printf("removed %s\n", args[0])
		return nil
	},
}

var connectorsColumnsCmd = &cobra.Command{
	Use:   "columns <spreadsheet-id>",
	Short: "Show the formatted column headers of each sub-sheet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reader := sheets.NewXLSXReader(cfg.Sheets.Dir)
		headers, err := reader.FetchHeaders(cmd.Context(), args[0])
		if err != nil {
			return eris.Wrap(err, "fetch headers")
		}
		for name, cols := range headers {
			fmt.Printf("%s:\n", name)
			for _, c := range cols {
				fmt.Printf("  %s\n", sheets.FormatHeader(c))
			}
		}
		return nil
	},
}

func init() {
	connectorsCmd.PersistentFlags().StringVar(&connectorsTenant, "tenant", "", "tenant id")
	connectorsCmd.AddCommand(connectorsListCmd, connectorsAddCmd, connectorsRemoveCmd, connectorsColumnsCmd)
	rootCmd.AddCommand(connectorsCmd)
}
