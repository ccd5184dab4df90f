// ABOUTME: Root Cobra command for the vamos CLI.
// ABOUTME: Loads configuration and opens the application (or a demo dataset) via PersistentPre/PostRunE.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harperreed/vamos/internal/app"
	"github.com/harperreed/vamos/internal/config"
	"github.com/harperreed/vamos/internal/logger"
	"github.com/harperreed/vamos/internal/sample"
)

var (
	cfg         *config.Config
	log         *logger.Logger
	application *app.App

	demoMode  bool
	demoUsers int
	logMode   string
)

// Commands that never touch the stores.
var offline = map[string]bool{
	"help":       true,
	"version":    true,
	"generate":   true,
	"completion": true,
}

var rootCmd = &cobra.Command{
	Use:   "vamos",
	Short: "Fitness dashboard data core",
	Long: `Vamos imports fitness records into PostgreSQL and MongoDB, aggregates them
into chart-ready tables and runs a simulated real-time wearable feed.

QUICK START:

  $ vamos generate sample_data          # Write sample CSV and JSON files
  $ vamos import sample_data            # Load them into both stores
  $ vamos overview                      # Users, today's activities, BMI, alerts
  $ vamos user user-0001                # Drill into one user
  $ vamos bmi --categories              # BMI category breakdown
  $ vamos export goal_status markdown   # Any query as JSON, YAML or Markdown

LIVE FEED:

  $ vamos feed start --interval 2s      # Append live samples until Ctrl-C
  $ vamos feed recent --lookback 30s    # Samples from the last 30 seconds

SERVERS:

  $ vamos serve                         # JSON API, websocket feed, /metrics
  $ vamos mcp                           # MCP server on stdio

DEMO MODE:

  Every command accepts --demo, which generates a sample dataset into a
  throwaway SQLite database and an in-memory document store. Nothing
  needs to be running.

CONFIGURATION:

  ~/.config/vamos/config.json, then .env, then the environment
  (PG_HOST, PG_PORT, PG_DB, PG_USER, PG_PASSWORD, MONGO_URI, MONGO_DB,
  VAMOS_BACKEND, VAMOS_DOCSTORE, VAMOS_CACHE, REDIS_ADDR, ...).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		for c := cmd; c != nil; c = c.Parent() {
			if offline[c.Name()] {
				return nil
			}
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		mode := logMode
		if mode == "" {
			mode = cfg.LogMode
		}
		if mode == "" {
			mode = "production"
		}
		log, err = logger.New(mode)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if demoMode {
			application, err = app.OpenDemo(ctx, log, sample.Options{Users: demoUsers, Coaches: max(demoUsers/10, 1), Seed: 1})
		} else {
			application, err = app.Open(ctx, cfg, log)
		}
		if err != nil {
			return fmt.Errorf("failed to open stores: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeApp()
	},
}

// closeApp releases the stores. Cobra skips PostRun when RunE fails, so main calls it too.
func closeApp() error {
	if application == nil {
		return nil
	}
	err := application.Close()
	application = nil
	log.Sync()
	return err
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&demoMode, "demo", false, "run against a generated in-process dataset")
	rootCmd.PersistentFlags().IntVar(&demoUsers, "demo-users", 100, "users in the demo dataset")
	rootCmd.PersistentFlags().StringVar(&logMode, "log-mode", "", "log mode: production, development or nop")
}
