// ABOUTME: CLI command for the HTTP API server.
// ABOUTME: Serves the JSON API, the websocket feed and /metrics until interrupted.
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/harperreed/vamos/internal/api"
)

var (
	serveAddr    string
	serveOrigins []string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the JSON API used by the dashboard frontend.

ENDPOINTS:

  GET  /healthz                     Store connectivity
  GET  /metrics                     Prometheus metrics
  GET  /feed/ws                     Websocket push of the recent feed
  GET  /api/overview                System overview
  GET  /api/status                  Backends and row counts
  GET  /api/users/:id               User detail
  GET  /api/weight                  Daily average weight (?days=, ?user_id=)
  GET  /api/heart-rate              Resting heart rate histogram (?bins=)
  GET  /api/bmi                     BMI per user
  GET  /api/bmi/categories          Users per BMI category
  GET  /api/activities              Activity type distribution
  GET  /api/calories                Daily calories burned (?days=)
  GET  /api/goals                   Goals per status
  GET  /api/export/:query           Any query (?format=json|yaml|markdown)
  POST /api/alerts/:id/resolve      Resolve an alert
  POST /api/goals/:id/complete      Complete an active goal
  GET  /api/feed                    Feed status
  GET  /api/feed/recent             Recent samples (?lookback= seconds)
  POST /api/feed/start              Start the feed
  POST /api/feed/stop               Stop the feed

EXAMPLES:

  vamos serve
  vamos serve --addr :9000 --origins http://localhost:5173
  vamos serve --demo`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := serveAddr
		if addr == "" {
			addr = cfg.GetHTTPAddr()
		}
		origins := serveOrigins
		if len(origins) == 0 {
			origins = cfg.AllowOrigins
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv := api.NewServer(application, api.Options{AllowOrigins: origins})
		return srv.Run(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, :8080)")
	serveCmd.Flags().StringSliceVar(&serveOrigins, "origins", nil, "allowed CORS origins (default any)")
	rootCmd.AddCommand(serveCmd)
}
