// ABOUTME: CLI command for loading a directory of CSV and JSON files into both stores.
// ABOUTME: Prints a per-table report of inserted, existing and skipped rows.
package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/vamos/internal/importer"
)

var importVerbose bool

var importCmd = &cobra.Command{
	Use:   "import [dir]",
	Short: "Import sample data into the stores",
	Long: `Import <dir>/postgres/<table>.csv for users, coaches, user_coach, goals,
activities, health_metrics and alerts into the structured store, then
<dir>/mongo/<collection>.json for user_metrics, nutrition_logs and
sleep_records into the document store.

Missing files are reported and skipped. Malformed rows are skipped and
counted; a file that cannot be decoded at all fails only its own table.
Importing the same directory twice inserts nothing new.

EXAMPLES:

  vamos import                 # Read ./sample_data
  vamos import /tmp/fit -v     # Show the first problems per table`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "sample_data"
		if len(args) == 1 {
			dir = args[0]
		}

		report, err := application.Import(cmd.Context(), dir)
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}
		printReport(cmd, report)
		return nil
	},
}

func printReport(cmd *cobra.Command, r *importer.Report) {
	out := cmd.OutOrStdout()
	faint := color.New(color.Faint)
	fmt.Fprintln(out, faint.Sprintf("%s %s %8s %8s %8s %8s", padRight("table", 16), padRight("store", 10), "read", "inserted", "existing", "skipped"))
	for _, t := range r.Tables {
		if t.Missing {
			fmt.Fprintf(out, "%s %s %s\n", padRight(t.Name, 16), padRight(t.Store, 10), color.YellowString("missing %s", t.File))
			continue
		}
		if t.Failed {
			fmt.Fprintf(out, "%s %s %s\n", padRight(t.Name, 16), padRight(t.Store, 10), color.RedString("failed %s", t.File))
		} else {
			fmt.Fprintf(out, "%s %s %8d %8d %8d %8d\n", padRight(t.Name, 16), padRight(t.Store, 10), t.Read, t.Inserted, t.Existing, t.Skipped)
		}
		if importVerbose || t.Failed {
			for _, p := range t.Problems {
				fmt.Fprintln(out, faint.Sprint("    "+p))
			}
		}
	}
	if missing := r.Missing(); len(missing) > 0 {
		fmt.Fprintln(out, color.YellowString("! No file for %s", strings.Join(missing, ", ")))
	}
	if failed := r.Failed(); len(failed) > 0 {
		fmt.Fprintln(out, color.RedString("✗ Could not read %s", strings.Join(failed, ", ")))
	}
	fmt.Fprintln(out, color.GreenString("✓ Imported %d rows (%d skipped) in %s",
		r.TotalInserted(), r.TotalSkipped(), r.Finished.Sub(r.Started).Round(time.Millisecond)))
}

func init() {
	importCmd.Flags().BoolVarP(&importVerbose, "verbose", "v", false, "print skipped-row problems")
	rootCmd.AddCommand(importCmd)
}
