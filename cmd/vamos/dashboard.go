// ABOUTME: CLI commands for the dashboard queries: overview, status, user, bmi and the trend charts.
// ABOUTME: Each command runs one named query and prints it as aligned columns.
package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/vamos/internal/models"
	"github.com/harperreed/vamos/internal/query"
)

var (
	filterUser string
	filterFrom string
	filterTo   string
	trendDays  int
	hrBins     int
	bmiByCat   bool
)

// filterFromFlags parses --user, --from and --to.
func filterFromFlags() (models.Filter, error) {
	f := models.Filter{UserID: strings.TrimSpace(filterUser)}
	var err error
	if filterFrom != "" {
		if f.From, err = models.ParseTime(filterFrom); err != nil {
			return f, fmt.Errorf("invalid --from: %w", err)
		}
	}
	if filterTo != "" {
		if f.To, err = models.ParseTime(filterTo); err != nil {
			return f, fmt.Errorf("invalid --to: %w", err)
		}
	}
	return f, nil
}

// show runs the named query and prints its table.
func show(cmd *cobra.Command, name string, p query.Params) error {
	t, err := application.Query.Run(cmd.Context(), name, p)
	if err != nil {
		return err
	}
	printTable(cmd.OutOrStdout(), t)
	return nil
}

func filtered(name string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		f, err := filterFromFlags()
		if err != nil {
			return err
		}
		return show(cmd, name, query.Params{Filter: f, Window: query.Days(trendDays), Bins: hrBins})
	}
}

var overviewCmd = &cobra.Command{
	Use:     "overview",
	Aliases: []string{"ov"},
	Short:   "Show system overview",
	Long: `Show total users, activities logged today, average BMI and the
unresolved alert count, followed by the most recent unresolved alerts.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ov, err := application.Query.SystemOverview(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		printTable(out, ov.Table())
		if len(ov.RecentAlerts) == 0 {
			return nil
		}
		fmt.Fprintln(out)
		heading(out, "Recent alerts")
		for _, a := range ov.RecentAlerts {
			fmt.Fprintf(out, "%s %s %s %s\n",
				color.New(color.Faint).Sprint(a.TriggeredAt.Local().Format("2006-01-02 15:04")),
				padRight(a.UserID, 10),
				padRight(string(a.Severity), 8),
				truncate(a.Message, 60))
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show backends and row counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return show(cmd, "data_status", query.Params{})
	},
}

var userCmd = &cobra.Command{
	Use:   "user <user-id>",
	Short: "Show one user's detail",
	Long: `Show a user's profile, BMI, coaches, activity summary, active goals
with progress, unresolved alerts and nutrition and sleep summaries.

An unknown user prints a notice rather than failing.

EXAMPLES:

  vamos user user-0001`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := application.Query.UserDetail(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if !d.Found() {
			fmt.Fprintln(out, color.YellowString("No user %s.", args[0]))
			return nil
		}
		faint := color.New(color.Faint)
		heading(out, fmt.Sprintf("%s  %s", d.User.UserID, d.User.Name))
		fmt.Fprintf(out, "%s %d  %s %s  %s %.1f cm\n",
			faint.Sprint("age"), d.User.Age, faint.Sprint("gender"), d.User.Gender, faint.Sprint("height"), d.User.HeightCm)
		if d.BMI != nil {
			fmt.Fprintf(out, "%s %.1f (%s)\n", faint.Sprint("bmi"), d.BMI.BMI, d.BMI.Category)
		}
		for _, c := range d.Coaches {
			fmt.Fprintf(out, "%s %s\n", faint.Sprint("coach"), c.Name)
		}
		fmt.Fprintf(out, "%s %d\n", faint.Sprint("unresolved alerts"), len(d.UnresolvedAlerts))

		fmt.Fprintln(out)
		heading(out, "Activity summary")
		printTable(out, d.ActivitySummary.Table())
		fmt.Fprintln(out)
		heading(out, fmt.Sprintf("Goals (%.0f%% completed)", d.GoalCompletion()*100))
		printTable(out, d.GoalsTable())
		fmt.Fprintln(out)
		heading(out, "Activities")
		printTable(out, d.Table())
		return nil
	},
}

var bmiCmd = &cobra.Command{
	Use:   "bmi",
	Short: "Show BMI per user or per category",
	Long: `Show each user's BMI with its category, or with --categories the number
of users in each category (underweight, normal, overweight, obese).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		name := "bmi"
		if bmiByCat {
			name = "bmi_categories"
		}
		return show(cmd, name, query.Params{Filter: models.Filter{UserID: filterUser}})
	},
}

var activitiesCmd = &cobra.Command{
	Use:   "activities",
	Short: "Show activity type distribution",
	RunE:  filtered("activity_types"),
}

var caloriesCmd = &cobra.Command{
	Use:   "calories",
	Short: "Show daily calories burned",
	RunE:  filtered("calorie_trend"),
}

var weightCmd = &cobra.Command{
	Use:   "weight",
	Short: "Show daily average weight",
	RunE:  filtered("weight_trend"),
}

var goalsCmd = &cobra.Command{
	Use:   "goals",
	Short: "Show goal counts per status",
	RunE:  filtered("goal_status"),
}

var heartRateCmd = &cobra.Command{
	Use:     "heart-rate",
	Aliases: []string{"hr"},
	Short:   "Show resting heart rate histogram",
	RunE:    filtered("heart_rate_histogram"),
}

func init() {
	for _, c := range []*cobra.Command{activitiesCmd, heartRateCmd, goalsCmd} {
		c.Flags().StringVarP(&filterUser, "user", "u", "", "restrict to one user")
		c.Flags().StringVar(&filterFrom, "from", "", "start time (inclusive)")
		c.Flags().StringVar(&filterTo, "to", "", "end time (exclusive)")
	}
	for _, c := range []*cobra.Command{weightCmd, caloriesCmd} {
		c.Flags().StringVarP(&filterUser, "user", "u", "", "restrict to one user")
		c.Flags().IntVarP(&trendDays, "days", "d", query.DefaultTrendDays, "trailing window in days")
	}
	heartRateCmd.Flags().IntVarP(&hrBins, "bins", "b", 0, fmt.Sprintf("histogram bins (0 for %d, at most %d)", query.DefaultBins, query.MaxBins))
	bmiCmd.Flags().StringVarP(&filterUser, "user", "u", "", "restrict to one user")
	bmiCmd.Flags().BoolVarP(&bmiByCat, "categories", "c", false, "count users per category")

	rootCmd.AddCommand(overviewCmd, statusCmd, userCmd, bmiCmd,
		activitiesCmd, caloriesCmd, weightCmd, goalsCmd, heartRateCmd)
}
