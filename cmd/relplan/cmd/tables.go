package cmd

import (
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "list the tables of the seeded store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		tables, err := st.Tables(ctx)
		if err != nil {
			return err
		}

		var data [][]string
		for _, t := range tables {
			data = append(data, []string{t.Name, strings.Join(t.Columns, ", ")})
		}
		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.SetHeader([]string{"table", "columns"})
		table.AppendBulk(data)
		table.Render()
		return nil
	},
}
