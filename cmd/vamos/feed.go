// ABOUTME: CLI commands for the simulated real-time wearable feed.
// ABOUTME: "feed start" appends samples until interrupted; "feed recent" reads the latest window.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/vamos/internal/app"
	"github.com/harperreed/vamos/internal/docstore"
	"github.com/harperreed/vamos/internal/query"
)

var (
	feedInterval time.Duration
	feedUsers    []string
	feedCount    int
	feedDuration time.Duration
	feedLookback time.Duration
	feedLimit    int
)

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Run or inspect the live wearable feed",
}

var feedStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Append live samples until interrupted",
	Long: `Start the simulated wearable feed. Every interval one sample per user
(heart rate, steps, calories, active minutes) is appended to the
real_time_metrics collection. The command runs until Ctrl-C, or for
--duration when given.

Without --users, the first --count users (default 10) are picked.

EXAMPLES:

  vamos feed start                              # 10 users every 5s
  vamos feed start -i 2s --users user-0001      # One user every 2 seconds
  vamos feed start --duration 30s               # Stop on its own`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if feedDuration > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, feedDuration)
			defer cancel()
		}

		users, err := application.StartFeed(ctx, feedInterval, feedUsers, feedCount)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, color.GreenString("✓ Feed started for %d users every %s", len(users), feedInterval))

		<-ctx.Done()
		if err := application.StopFeed(); err != nil {
			return err
		}
		st := application.Feed.Status()
		fmt.Fprintf(out, "Stopped after %d ticks, %d samples, %d errors\n", st.Ticks, st.Samples, st.Errors)
		return nil
	},
}

var feedRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Show samples from the last lookback window",
	RunE: func(cmd *cobra.Command, args []string) error {
		return show(cmd, "recent_feed", query.Params{Lookback: feedLookback, Limit: feedLimit})
	},
}

func init() {
	feedStartCmd.Flags().DurationVarP(&feedInterval, "interval", "i", 5*time.Second, "time between samples (2s to 10s)")
	feedStartCmd.Flags().StringSliceVar(&feedUsers, "users", nil, "user ids to simulate")
	feedStartCmd.Flags().IntVarP(&feedCount, "count", "n", app.DefaultFeedUsers, "users to pick when --users is empty")
	feedStartCmd.Flags().DurationVar(&feedDuration, "duration", 0, "stop after this long (0 runs until interrupted)")

	feedRecentCmd.Flags().DurationVarP(&feedLookback, "lookback", "l", time.Minute, "how far back to look")
	feedRecentCmd.Flags().IntVarP(&feedLimit, "limit", "n", 0, fmt.Sprintf("max samples (0 for %d, at most %d)", docstore.DefaultRecentLimit, docstore.MaxRecentLimit))

	feedCmd.AddCommand(feedStartCmd, feedRecentCmd)
	rootCmd.AddCommand(feedCmd)
}
