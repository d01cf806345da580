package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matthewbaird/relplan/internal/plan"
	"github.com/matthewbaird/relplan/internal/tabulate"
)

const (
	outputTuples = "tuples"
	outputTable  = "table"
	outputJSON   = "json"
)

var (
	execOutput string

	execCmd = &cobra.Command{
		Use:   "exec [file]",
		Short: "compile a plan file and run it against the seeded store",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch execOutput {
			case outputTuples, outputTable, outputJSON:
			default:
				return fmt.Errorf("unknown output %q: want %s, %s or %s", execOutput, outputTuples, outputTable, outputJSON)
			}

			ctx := cmd.Context()
			path := planPath(args)
			data, err := readPlanFile(path)
			if err != nil {
				return err
			}

			st, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			exec, _, err := newExecutor(ctx, st, nil)
			if err != nil {
				return err
			}
			p, err := exec.Parse(data, plan.FormatFromPath(path))
			if err != nil {
				return err
			}
			result, err := exec.Execute(ctx, p)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch execOutput {
			case outputJSON:
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			case outputTable:
				fmt.Fprintf(out, "final query = %s\n", result.SQL)
				tabulate.Table(out, result.Columns, result.Rows)
			default:
				fmt.Fprintf(out, "final query = %s\n", result.SQL)
				fmt.Fprintln(out, tabulate.Tuples(result.Rows))
			}
			return nil
		},
	}
)

func init() {
	execCmd.Flags().StringVarP(&execOutput, "output", "o", outputTuples,
		fmt.Sprintf("result format [%s|%s|%s]", outputTuples, outputTable, outputJSON))
}
