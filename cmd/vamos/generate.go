// ABOUTME: CLI command for writing a synthetic sample dataset to disk.
// ABOUTME: Produces the CSV and JSON files the import command reads.
package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/vamos/internal/sample"
)

var (
	genUsers   int
	genCoaches int
	genSeed    int64
)

var generateCmd = &cobra.Command{
	Use:     "generate [dir]",
	Aliases: []string{"gen"},
	Short:   "Write a sample dataset",
	Long: `Generate synthetic users, coaches, goals, activities, health metrics,
alerts and the three document collections, and write them to a directory
(default: sample_data) as postgres/<table>.csv and mongo/<collection>.json.

The same seed always produces the same data.

EXAMPLES:

  vamos generate                       # 500 users, 50 coaches into sample_data
  vamos generate /tmp/fit --users 50   # Smaller set elsewhere
  vamos generate --seed 42             # Different but reproducible data`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "sample_data"
		if len(args) == 1 {
			dir = args[0]
		}
		if genUsers <= 0 {
			return fmt.Errorf("--users must be positive")
		}
		if genCoaches <= 0 {
			return fmt.Errorf("--coaches must be positive")
		}

		ds := sample.Generate(sample.Options{Users: genUsers, Coaches: genCoaches, Seed: genSeed, Now: time.Now()})
		if err := ds.Write(dir); err != nil {
			return fmt.Errorf("failed to write sample data: %w", err)
		}

		out := cmd.OutOrStdout()
		counts := ds.Counts()
		names := make([]string, 0, len(counts))
		for name := range counts {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(out, "%s %d\n", padRight(name, 16), counts[name])
		}
		fmt.Fprintln(out, color.GreenString("✓ Wrote sample data to %s", dir))
		return nil
	},
}

func init() {
	generateCmd.Flags().IntVar(&genUsers, "users", 500, "number of users")
	generateCmd.Flags().IntVar(&genCoaches, "coaches", 50, "number of coaches")
	generateCmd.Flags().Int64Var(&genSeed, "seed", 1, "random seed")
	rootCmd.AddCommand(generateCmd)
}
