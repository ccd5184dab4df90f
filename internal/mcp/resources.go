// ABOUTME: MCP resource implementations for the vamos dashboard.
// ABOUTME: Provides vamos://overview, vamos://status, vamos://charts and vamos://feed/recent.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/vamos/internal/models"
	"github.com/harperreed/vamos/internal/query"
)

const (
	overviewURI = "vamos://overview"
	statusURI   = "vamos://status"
	chartsURI   = "vamos://charts"
	feedURI     = "vamos://feed/recent"
)

func (s *Server) registerResources() {
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         overviewURI,
		Name:        "System Overview",
		Description: "Landing page KPIs and the most recent alerts",
		MIMEType:    "application/json",
	}, s.handleOverviewResource)

	s.mcpServer.AddResource(&mcp.Resource{
		URI:         statusURI,
		Name:        "Data Status",
		Description: "Row counts per table and collection plus feed state",
		MIMEType:    "application/json",
	}, s.handleStatusResource)

	// vamos://charts - every chart table of the dashboard in one document
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         chartsURI,
		Name:        "Dashboard Charts",
		Description: "Weight trend, BMI categories, activity types, calorie trend and goal status tables",
		MIMEType:    "text/markdown",
	}, s.handleChartsResource)

	s.mcpServer.AddResource(&mcp.Resource{
		URI:         feedURI,
		Name:        "Live Feed",
		Description: "Real-time samples from the last minute",
		MIMEType:    "application/json",
	}, s.handleFeedResource)
}

// Resource handlers

func (s *Server) handleOverviewResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	ov, err := s.app.Query.SystemOverview(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load overview: %w", err)
	}
	return jsonResource(overviewURI, ov)
}

func (s *Server) handleStatusResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	st, err := s.app.Query.DataStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load data status: %w", err)
	}
	return jsonResource(statusURI, map[string]any{
		"generated_at": time.Now().Format(time.RFC3339),
		"data":         st,
		"feed":         s.app.Feed.Status(),
	})
}

func (s *Server) handleChartsResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	p := query.Params{Window: query.Days(0)}
	var text string
	for _, name := range []string{"weight_trend", "bmi_categories", "activity_types", "calorie_trend", "goal_status"} {
		t, err := s.app.Query.Run(ctx, name, p)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", name, err)
		}
		text += t.Markdown() + "\n"
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      chartsURI,
			MIMEType: "text/markdown",
			Text:     text,
		}},
	}, nil
}

func (s *Server) handleFeedResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	w, err := s.app.Query.RecentFeed(ctx, time.Minute, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load live feed: %w", err)
	}
	latest := make(map[string]models.RealTimeMetric)
	for _, m := range w.Samples {
		// Samples are newest first, so the first one seen per user is the latest.
		if _, ok := latest[m.UserID]; !ok {
			latest[m.UserID] = m
		}
	}
	return jsonResource(feedURI, map[string]any{
		"window":      w,
		"latest":      latest,
		"active":      s.app.Feed.Active(),
		"users_shown": len(latest),
	})
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
