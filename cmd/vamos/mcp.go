// ABOUTME: CLI command for starting the MCP server.
// ABOUTME: Runs a stdio MCP server exposing the dashboard queries and the live feed.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/harperreed/vamos/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server",
	Long: `Start the Model Context Protocol (MCP) server for AI assistant integration.

The server communicates via stdin/stdout. Logs go to stderr.

CLAUDE DESKTOP CONFIGURATION:

  {
    "mcpServers": {
      "vamos": {
        "command": "vamos",
        "args": ["mcp"]
      }
    }
  }

AVAILABLE TOOLS:

  system_overview       Users, today's activities, BMI, alerts
  user_detail           Everything about one user
  weight_trend          Daily average weight
  heart_rate_histogram  Resting heart rate buckets
  bmi_distribution      BMI per user
  bmi_categories        Users per BMI category
  activity_types        Activity type distribution
  calorie_trend         Daily calories burned
  goal_status           Goals per status
  data_status           Backends and row counts
  resolve_alert         Mark an alert resolved
  complete_goal         Complete an active goal
  export_query          Any query as JSON, YAML or Markdown
  feed_start            Start the live feed
  feed_stop             Stop the live feed
  feed_status           Live feed status
  recent_feed           Latest live samples

AVAILABLE RESOURCES:

  vamos://overview      System overview
  vamos://status        Data and feed status
  vamos://charts        Every chart as Markdown
  vamos://feed/recent   Latest sample per user`,
	RunE: func(cmd *cobra.Command, args []string) error {
		server, err := mcp.NewServer(application)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		go func() {
			select {
			case <-sigChan:
				cancel()
			case <-ctx.Done():
			}
		}()

		return server.Serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
