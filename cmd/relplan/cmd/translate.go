package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matthewbaird/relplan/internal/catalog"
	"github.com/matthewbaird/relplan/internal/plan"
)

var (
	translateTables []string

	translateCmd = &cobra.Command{
		Use:   "translate [file]",
		Short: "print the SQL a plan file compiles to",
		Long: "Reads a plan (JSON, YAML or CUE, picked by extension; \"-\" reads JSON " +
			"from stdin) and prints the compiled query. Without --tables every " +
			"name that is not a plan node is taken to be a table.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := planPath(args)
			data, err := readPlanFile(path)
			if err != nil {
				return err
			}

			var opts []plan.Option
			if len(translateTables) > 0 {
				opts = append(opts, plan.WithCatalog(catalog.New(translateTables...)))
			}
			p, err := plan.Parse(data, plan.FormatFromPath(path), opts...)
			if err != nil {
				return err
			}

			sql, err := newTranslator().Translate(p)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sql)
			return nil
		},
	}
)

func init() {
	translateCmd.Flags().StringSliceVar(&translateTables, "tables", nil,
		"known tables; references to anything else fail (e.g. --tables A,B)")
}
