// ABOUTME: CLI command for dumping every structured table as one JSON or YAML document.
// ABOUTME: Complements export, which works per query rather than per table.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var snapshotOutput string

var snapshotCmd = &cobra.Command{
	Use:   "snapshot [json|yaml]",
	Short: "Dump the structured store",
	Long: `Write every row of users, coaches, user_coach, goals, activities,
health_metrics and alerts as a single JSON (default) or YAML document.

EXAMPLES:

  vamos snapshot                        # JSON to stdout
  vamos snapshot yaml -o backup.yaml    # YAML to a file`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"json", "yaml"},
	RunE: func(cmd *cobra.Command, args []string) error {
		format := "json"
		if len(args) == 1 {
			format = strings.ToLower(args[0])
		}

		var data []byte
		var err error
		switch format {
		case "json":
			data, err = application.Repo.ExportJSON(cmd.Context())
		case "yaml", "yml":
			data, err = application.Repo.ExportYAML(cmd.Context())
		default:
			return fmt.Errorf("unsupported format: %s (use json or yaml)", format)
		}
		if err != nil {
			return fmt.Errorf("failed to export: %w", err)
		}

		if snapshotOutput != "" {
			if err := os.WriteFile(snapshotOutput, data, 0600); err != nil {
				return fmt.Errorf("failed to write file: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("✓ Snapshot written to %s", snapshotOutput))
			return nil
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func init() {
	snapshotCmd.Flags().StringVarP(&snapshotOutput, "output", "o", "", "output file (default: stdout)")
	rootCmd.AddCommand(snapshotCmd)
}
