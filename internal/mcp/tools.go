// ABOUTME: MCP tool implementations for the vamos dashboard.
// ABOUTME: Read-only aggregation queries, alert/goal updates, export and live feed control.
package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/vamos/internal/models"
	"github.com/harperreed/vamos/internal/query"
)

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "system_overview",
		Description: "Total users, today's activity count, average BMI and unresolved alerts",
	}, s.handleSystemOverview)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "user_detail",
		Description: "Profile, activities, active goals with progress, alerts, coaches and BMI for one user",
	}, s.handleUserDetail)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "weight_trend",
		Description: "Average weight per day over the trailing window",
	}, s.handleWeightTrend)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "heart_rate_histogram",
		Description: "Heart rate distribution bucketed for charting",
	}, s.handleHeartRate)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "bmi_distribution",
		Description: "Latest BMI and category per user",
	}, s.handleBMIDistribution)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "bmi_categories",
		Description: "Number of users per BMI category (underweight, healthy, overweight, obese)",
	}, s.handleBMICategories)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "activity_types",
		Description: "Activity count and share per activity type",
	}, s.handleActivityTypes)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "calorie_trend",
		Description: "Calories burned per day over the trailing window",
	}, s.handleCalorieTrend)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "goal_status",
		Description: "Number of goals per status",
	}, s.handleGoalStatus)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "data_status",
		Description: "Row counts of every table and collection",
	}, s.handleDataStatus)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "resolve_alert",
		Description: "Mark an alert as resolved",
	}, s.handleResolveAlert)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "complete_goal",
		Description: "Move an active goal to completed",
	}, s.handleCompleteGoal)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "export_query",
		Description: "Render any dashboard query as JSON, YAML or Markdown",
	}, s.handleExport)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "feed_start",
		Description: "Start the real-time feed generator",
	}, s.handleFeedStart)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "feed_stop",
		Description: "Stop the real-time feed generator",
	}, s.handleFeedStop)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "feed_status",
		Description: "State and counters of the real-time feed generator",
	}, s.handleFeedStatus)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "recent_feed",
		Description: "Live samples from the last few seconds, newest first",
	}, s.handleRecentFeed)
}

// Tool input/output types

type emptyInput struct{}

type userInput struct {
	UserID string `json:"user_id" jsonschema:"User ID, e.g. user-0001"`
}

type scopeInput struct {
	UserID string `json:"user_id,omitempty" jsonschema:"Restrict to one user"`
}

type filterInput struct {
	UserID string `json:"user_id,omitempty" jsonschema:"Restrict to one user"`
	From   string `json:"from,omitempty" jsonschema:"Start of range, inclusive (YYYY-MM-DD or ISO 8601)"`
	To     string `json:"to,omitempty" jsonschema:"End of range, exclusive (YYYY-MM-DD or ISO 8601)"`
}

type trendInput struct {
	UserID string `json:"user_id,omitempty" jsonschema:"Restrict to one user"`
	Days   int    `json:"days,omitempty" jsonschema:"Trailing window in days (default 30)"`
}

type heartRateInput struct {
	UserID string `json:"user_id,omitempty" jsonschema:"Restrict to one user"`
	From   string `json:"from,omitempty" jsonschema:"Start of range, inclusive"`
	To     string `json:"to,omitempty" jsonschema:"End of range, exclusive"`
	Bins   int    `json:"bins,omitempty" jsonschema:"Number of histogram buckets (default 20, at most 200)"`
}

type alertInput struct {
	AlertID string `json:"alert_id" jsonschema:"Alert ID"`
}

type goalInput struct {
	GoalID string `json:"goal_id" jsonschema:"Goal ID"`
}

type exportInput struct {
	Query  string `json:"query" jsonschema:"Query name: overview, weight_trend, heart_rate, heart_rate_histogram, user, bmi, bmi_categories, activity_types, calorie_trend, goal_status, data_status, recent_feed"`
	Format string `json:"format,omitempty" jsonschema:"json, yaml or markdown (default markdown)"`
	UserID string `json:"user_id,omitempty" jsonschema:"Restrict to one user (required for the user query)"`
	Days   int    `json:"days,omitempty" jsonschema:"Trailing window in days for trend queries"`
	Bins   int    `json:"bins,omitempty" jsonschema:"Histogram buckets (default 20, at most 200)"`
}

type exportOutput struct {
	Query   string `json:"query"`
	Format  string `json:"format"`
	Content string `json:"content"`
}

type feedStartInput struct {
	IntervalSeconds int      `json:"interval_seconds,omitempty" jsonschema:"Seconds between ticks, 2 to 10 (default 5)"`
	Users           []string `json:"users,omitempty" jsonschema:"User IDs to simulate"`
	Count           int      `json:"count,omitempty" jsonschema:"Number of users to simulate when none are named (default 10)"`
}

type feedStartOutput struct {
	RunID   string   `json:"run_id"`
	Users   []string `json:"users"`
	Message string   `json:"message"`
}

type recentFeedInput struct {
	LookbackSeconds int `json:"lookback_seconds,omitempty" jsonschema:"How far back to look (default 60)"`
	Limit           int `json:"limit,omitempty" jsonschema:"Max samples (default 500, max 5000)"`
}

type simpleOutput struct {
	Message string `json:"message"`
}

func parseFilter(userID, from, to string) (models.Filter, error) {
	f := models.Filter{UserID: strings.TrimSpace(userID)}
	var err error
	if from != "" {
		if f.From, err = models.ParseTime(from); err != nil {
			return f, fmt.Errorf("invalid from: %w", err)
		}
	}
	if to != "" {
		if f.To, err = models.ParseTime(to); err != nil {
			return f, fmt.Errorf("invalid to: %w", err)
		}
	}
	return f, nil
}

// Tool handlers

func (s *Server) handleSystemOverview(ctx context.Context, req *mcp.CallToolRequest, input emptyInput) (*mcp.CallToolResult, any, error) {
	ov, err := s.app.Query.SystemOverview(ctx)
	if err != nil {
		return nil, nil, err
	}
	return nil, ov, nil
}

func (s *Server) handleUserDetail(ctx context.Context, req *mcp.CallToolRequest, input userInput) (*mcp.CallToolResult, any, error) {
	if input.UserID == "" {
		return nil, nil, fmt.Errorf("user_id is required")
	}
	d, err := s.app.Query.UserDetail(ctx, input.UserID)
	if err != nil {
		return nil, nil, err
	}
	if !d.Found() {
		return nil, map[string]any{"message": fmt.Sprintf("No user found with ID %s.", input.UserID)}, nil
	}
	return nil, map[string]any{
		"detail":          d,
		"goal_completion": d.GoalCompletion(),
	}, nil
}

func (s *Server) handleWeightTrend(ctx context.Context, req *mcp.CallToolRequest, input trendInput) (*mcp.CallToolResult, any, error) {
	series, err := s.app.Query.WeightTrend(ctx, models.Filter{UserID: input.UserID}, query.Days(input.Days))
	if err != nil {
		return nil, nil, err
	}
	return nil, map[string]any{"series": series}, nil
}

func (s *Server) handleHeartRate(ctx context.Context, req *mcp.CallToolRequest, input heartRateInput) (*mcp.CallToolResult, any, error) {
	f, err := parseFilter(input.UserID, input.From, input.To)
	if err != nil {
		return nil, nil, err
	}
	hr, err := s.app.Query.HeartRateDistribution(ctx, f)
	if err != nil {
		return nil, nil, err
	}
	return nil, map[string]any{
		"samples": len(hr),
		"buckets": hr.Histogram(input.Bins),
	}, nil
}

func (s *Server) handleBMIDistribution(ctx context.Context, req *mcp.CallToolRequest, input scopeInput) (*mcp.CallToolResult, any, error) {
	rows, err := s.app.Query.BMIDistribution(ctx, models.Filter{UserID: input.UserID})
	if err != nil {
		return nil, nil, err
	}
	return nil, map[string]any{"users": rows}, nil
}

func (s *Server) handleBMICategories(ctx context.Context, req *mcp.CallToolRequest, input emptyInput) (*mcp.CallToolResult, any, error) {
	counts, err := s.app.Query.BMICategoryBreakdown(ctx, models.Filter{})
	if err != nil {
		return nil, nil, err
	}
	return nil, map[string]any{"categories": counts}, nil
}

func (s *Server) handleActivityTypes(ctx context.Context, req *mcp.CallToolRequest, input filterInput) (*mcp.CallToolResult, any, error) {
	f, err := parseFilter(input.UserID, input.From, input.To)
	if err != nil {
		return nil, nil, err
	}
	types, err := s.app.Query.ActivityTypeDistribution(ctx, f)
	if err != nil {
		return nil, nil, err
	}
	return nil, map[string]any{"types": types}, nil
}

func (s *Server) handleCalorieTrend(ctx context.Context, req *mcp.CallToolRequest, input trendInput) (*mcp.CallToolResult, any, error) {
	series, err := s.app.Query.CalorieTrend(ctx, models.Filter{UserID: input.UserID}, query.Days(input.Days))
	if err != nil {
		return nil, nil, err
	}
	return nil, map[string]any{"series": series}, nil
}

func (s *Server) handleGoalStatus(ctx context.Context, req *mcp.CallToolRequest, input scopeInput) (*mcp.CallToolResult, any, error) {
	statuses, err := s.app.Query.GoalStatusDistribution(ctx, models.Filter{UserID: input.UserID})
	if err != nil {
		return nil, nil, err
	}
	return nil, map[string]any{"statuses": statuses}, nil
}

func (s *Server) handleDataStatus(ctx context.Context, req *mcp.CallToolRequest, input emptyInput) (*mcp.CallToolResult, any, error) {
	st, err := s.app.Query.DataStatus(ctx)
	if err != nil {
		return nil, nil, err
	}
	return nil, st, nil
}

func (s *Server) handleResolveAlert(ctx context.Context, req *mcp.CallToolRequest, input alertInput) (*mcp.CallToolResult, simpleOutput, error) {
	if err := s.app.Repo.ResolveAlert(ctx, input.AlertID); err != nil {
		return nil, simpleOutput{}, fmt.Errorf("failed to resolve alert: %w", err)
	}
	s.invalidate(ctx)
	return nil, simpleOutput{Message: fmt.Sprintf("Resolved alert: %s", input.AlertID)}, nil
}

func (s *Server) handleCompleteGoal(ctx context.Context, req *mcp.CallToolRequest, input goalInput) (*mcp.CallToolResult, simpleOutput, error) {
	g, err := s.app.Repo.CompleteGoal(ctx, input.GoalID)
	if err != nil {
		return nil, simpleOutput{}, fmt.Errorf("failed to complete goal: %w", err)
	}
	s.invalidate(ctx)
	return nil, simpleOutput{Message: fmt.Sprintf("Completed %s goal %s", g.GoalType, g.GoalID)}, nil
}

// invalidate drops cached results after a write. A failure only leaves results stale until the TTL.
func (s *Server) invalidate(ctx context.Context) {
	if err := s.app.Query.Invalidate(ctx); err != nil {
		s.app.Log.Warn("cache invalidation failed", "error", err)
	}
}

func (s *Server) handleExport(ctx context.Context, req *mcp.CallToolRequest, input exportInput) (*mcp.CallToolResult, exportOutput, error) {
	format := input.Format
	if format == "" {
		format = query.FormatMarkdown
	}
	p := query.Params{
		Filter: models.Filter{UserID: input.UserID},
		Window: query.Days(input.Days),
		Bins:   input.Bins,
	}
	t, err := s.app.Query.Run(ctx, input.Query, p)
	if err != nil {
		return nil, exportOutput{}, err
	}
	out, err := t.Render(format)
	if err != nil {
		return nil, exportOutput{}, err
	}
	return nil, exportOutput{Query: input.Query, Format: format, Content: out}, nil
}

func (s *Server) handleFeedStart(ctx context.Context, req *mcp.CallToolRequest, input feedStartInput) (*mcp.CallToolResult, feedStartOutput, error) {
	interval := 5 * time.Second
	if input.IntervalSeconds > 0 {
		interval = time.Duration(input.IntervalSeconds) * time.Second
	}
	users, err := s.app.StartFeed(ctx, interval, input.Users, input.Count)
	if err != nil {
		return nil, feedStartOutput{}, fmt.Errorf("failed to start feed: %w", err)
	}
	st := s.app.Feed.Status()
	return nil, feedStartOutput{
		RunID:   st.RunID,
		Users:   users,
		Message: fmt.Sprintf("Feed started for %d users every %s", len(users), interval),
	}, nil
}

func (s *Server) handleFeedStop(ctx context.Context, req *mcp.CallToolRequest, input emptyInput) (*mcp.CallToolResult, simpleOutput, error) {
	if err := s.app.StopFeed(); err != nil {
		return nil, simpleOutput{}, fmt.Errorf("failed to stop feed: %w", err)
	}
	st := s.app.Feed.Status()
	return nil, simpleOutput{Message: fmt.Sprintf("Feed stopped after %d ticks (%d samples)", st.Ticks, st.Samples)}, nil
}

func (s *Server) handleFeedStatus(ctx context.Context, req *mcp.CallToolRequest, input emptyInput) (*mcp.CallToolResult, any, error) {
	return nil, s.app.Feed.Status(), nil
}

func (s *Server) handleRecentFeed(ctx context.Context, req *mcp.CallToolRequest, input recentFeedInput) (*mcp.CallToolResult, any, error) {
	lookback := time.Duration(input.LookbackSeconds) * time.Second
	w, err := s.app.Query.RecentFeed(ctx, lookback, input.Limit)
	if err != nil {
		return nil, nil, err
	}
	return nil, w, nil
}
