// ABOUTME: CLI command for exporting any named query as JSON, YAML or Markdown.
// ABOUTME: Writes to stdout or to a file with -o.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/vamos/internal/docstore"
	"github.com/harperreed/vamos/internal/query"
)

var (
	exportOutput string
	exportBins   int
	exportLimit  int
)

var exportCmd = &cobra.Command{
	Use:   "export <query> [json|yaml|markdown]",
	Short: "Export a query result",
	Long: `Export the result of one dashboard query.

QUERIES:

  overview, data_status, user, weight_trend, heart_rate,
  heart_rate_histogram, bmi, bmi_categories, activity_types,
  calorie_trend, goal_status, recent_feed

FORMATS:

  json      Table with name, columns and rows (default)
  yaml      Same shape as YAML
  markdown  Pipe table under a heading

EXAMPLES:

  vamos export overview
  vamos export bmi_categories markdown
  vamos export user yaml --user user-0001
  vamos export calorie_trend json --days 7 -o calories.json`,
	Args:      cobra.RangeArgs(1, 2),
	ValidArgs: query.Names(),
	RunE: func(cmd *cobra.Command, args []string) error {
		format := query.FormatJSON
		if len(args) == 2 {
			format = args[1]
		}
		f, err := filterFromFlags()
		if err != nil {
			return err
		}

		t, err := application.Query.Run(cmd.Context(), args[0], query.Params{
			Filter:   f,
			Window:   query.Days(trendDays),
			Bins:     exportBins,
			Lookback: feedLookback,
			Limit:    exportLimit,
		})
		if err != nil {
			return err
		}
		data, err := t.Render(format)
		if err != nil {
			return err
		}

		if exportOutput != "" {
			if err := os.WriteFile(exportOutput, []byte(data), 0600); err != nil {
				return fmt.Errorf("failed to write file: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("✓ Exported %s to %s", args[0], exportOutput))
			return nil
		}
		fmt.Fprint(cmd.OutOrStdout(), data)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default: stdout)")
	exportCmd.Flags().StringVarP(&filterUser, "user", "u", "", "restrict to one user")
	exportCmd.Flags().StringVar(&filterFrom, "from", "", "start time (inclusive)")
	exportCmd.Flags().StringVar(&filterTo, "to", "", "end time (exclusive)")
	exportCmd.Flags().IntVarP(&trendDays, "days", "d", query.DefaultTrendDays, "trailing window for trends")
	exportCmd.Flags().IntVarP(&exportBins, "bins", "b", 0, fmt.Sprintf("histogram bins (0 for %d, at most %d)", query.DefaultBins, query.MaxBins))
	exportCmd.Flags().DurationVarP(&feedLookback, "lookback", "l", time.Minute, "lookback for recent_feed")
	exportCmd.Flags().IntVarP(&exportLimit, "limit", "n", 0, fmt.Sprintf("max rows for recent_feed (0 for %d, at most %d)", docstore.DefaultRecentLimit, docstore.MaxRecentLimit))
	rootCmd.AddCommand(exportCmd)
}
