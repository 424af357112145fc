package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"reposift/internal/candidate"
	"reposift/internal/logging"
	"reposift/internal/setstore"
)

func newGreenCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var limit int

	cmd := &cobra.Command{
		Use:   "green",
		Short: "Show the accepted candidates",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			records := setstore.New(logging.NewNop()).LoadRecords(cfg.Paths.GreenListFile)
			if limit > 0 && len(records) > limit {
				records = records[:limit]
			}
			if records == nil {
				records = []candidate.Record{}
			}

			if jsonOutput {
				return writeJSON(cmd, records)
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "Green list is empty")
				return nil
			}
			rows := make([][]string, 0, len(records))
			for _, r := range records {
				rows = append(rows, []string{
					r.FullName,
					strconv.Itoa(r.StarCount()),
					derefOr(r.Language, "-"),
					formatPercent(r.LanguagePercent),
					formatOptionalInt(r.BenchmarkMatches),
					derefOr(r.PushedAt, "-"),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Repository", "Stars", "Language", "Lang %", "Benchmarks", "Pushed"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print records as JSON")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most this many records")
	return cmd
}

func formatPercent(value *float64) string {
	if value == nil {
		return "-"
	}
	return strconv.FormatFloat(*value, 'f', 2, 64)
}

func formatOptionalInt(value *int) string {
	if value == nil {
		return "-"
	}
	return strconv.Itoa(*value)
}

func derefOr(value *string, fallback string) string {
	if value == nil || *value == "" {
		return fallback
	}
	return *value
}
