package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reqwire/reqwire/internal/trace"
)

var traceCmd = &cobra.Command{
	Use:   "trace",
	Short: "Build a traceability matrix between two document selections",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup := newService()
		defer cleanup()

		rows, _ := cmd.Flags().GetStringSlice("rows")
		columns, _ := cmd.Flags().GetStringSlice("cols")
		direction, _ := cmd.Flags().GetString("direction")
		descendants, _ := cmd.Flags().GetBool("descendants")

		matrix, err := svc.BuildTraceMatrix(trace.Config{
			Rows:      trace.AxisConfig{Documents: rows, IncludeDescendants: descendants},
			Columns:   trace.AxisConfig{Documents: columns, IncludeDescendants: descendants},
			Direction: trace.Direction(direction),
		})
		if err != nil {
			return err
		}

		s := matrix.Summary
		fmt.Printf("rows: %d  columns: %d  linked pairs: %d/%d  links: %d\n",
			s.TotalRows, s.TotalColumns, s.LinkedPairs, s.TotalPairs, s.LinkCount)
		fmt.Printf("coverage: rows %.0f%%  columns %.0f%%  pairs %.1f%%\n",
			s.RowCoverage*100, s.ColumnCoverage*100, s.PairCoverage*100)
		if len(s.OrphanRows) > 0 {
			fmt.Printf("orphan rows: %v\n", s.OrphanRows)
		}
		if len(s.OrphanColumns) > 0 {
			fmt.Printf("orphan columns: %v\n", s.OrphanColumns)
		}
		return nil
	},
}

func init() {
	traceCmd.Flags().StringSlice("rows", nil, "row axis document prefixes")
	traceCmd.Flags().StringSlice("cols", nil, "column axis document prefixes")
	traceCmd.Flags().String("direction", "", "child_to_parent (default) or parent_to_child")
	traceCmd.Flags().Bool("descendants", false, "include descendant documents on both axes")
	rootCmd.AddCommand(traceCmd)
}
