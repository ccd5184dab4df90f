// ABOUTME: Generic column/row table every query result converts to, with JSON, YAML and Markdown output.
// ABOUTME: Also maps query names to service calls for the export surfaces.
package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/harperreed/vamos/internal/models"
)

// ErrBadParams marks a query that cannot run with the parameters it was given.
var ErrBadParams = errors.New("invalid query parameters")

// Export formats.
const (
	FormatJSON     = "json"
	FormatYAML     = "yaml"
	FormatMarkdown = "markdown"
)

// Table is a named grid of values. Rows is never nil.
type Table struct {
	Name    string   `json:"name" yaml:"name"`
	Columns []string `json:"columns" yaml:"columns"`
	Rows    [][]any  `json:"rows" yaml:"rows"`
}

// Tabular is implemented by every query result.
type Tabular interface {
	Table() Table
}

func NewTable(name string, columns ...string) Table {
	return Table{Name: name, Columns: columns, Rows: [][]any{}}
}

// Append adds a row. Values beyond the column count are dropped; missing ones are nil.
func (t *Table) Append(values ...any) {
	row := make([]any, len(t.Columns))
	copy(row, values)
	t.Rows = append(t.Rows, row)
}

// Render encodes the table in one of the export formats.
func (t Table) Render(format string) (string, error) {
	switch strings.ToLower(format) {
	case FormatJSON:
		data, err := json.MarshalIndent(t, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal json: %w", err)
		}
		return string(data) + "\n", nil
	case FormatYAML, "yml":
		data, err := yaml.Marshal(t)
		if err != nil {
			return "", fmt.Errorf("marshal yaml: %w", err)
		}
		return string(data), nil
	case FormatMarkdown, "md":
		return t.Markdown(), nil
	}
	return "", fmt.Errorf("unsupported format: %s (use json, yaml, or markdown)", format)
}

// Markdown renders the table as a GitHub-flavored pipe table under a heading.
func (t Table) Markdown() string {
	var sb strings.Builder
	sb.WriteString("## " + t.Name + "\n\n")
	if len(t.Rows) == 0 {
		sb.WriteString("_No data._\n")
		return sb.String()
	}
	sb.WriteString("| " + strings.Join(t.Columns, " | ") + " |\n")
	sb.WriteString("|" + strings.Repeat(" --- |", len(t.Columns)) + "\n")
	for _, r := range t.Rows {
		cells := make([]string, len(r))
		for i, v := range r {
			cells[i] = strings.ReplaceAll(FormatValue(v), "|", "\\|")
		}
		sb.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	return sb.String()
}

// FormatValue renders a cell for text output.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case time.Time:
		return x.Format("2006-01-02 15:04:05")
	case float64:
		return fmt.Sprintf("%.2f", x)
	case float32:
		return fmt.Sprintf("%.2f", x)
	}
	return fmt.Sprint(v)
}

// Params are the optional arguments of a named query.
type Params struct {
	Filter   models.Filter
	Window   time.Duration
	Bins     int
	Lookback time.Duration
	Limit    int
}

type runner func(context.Context, *Service, Params) (Tabular, error)

func wrap[T Tabular](v T, err error) (Tabular, error) {
	if err != nil {
		return nil, err
	}
	return v, nil
}

var runners = map[string]runner{
	"overview": func(ctx context.Context, s *Service, _ Params) (Tabular, error) {
		return wrap(s.SystemOverview(ctx))
	},
	"weight_trend": func(ctx context.Context, s *Service, p Params) (Tabular, error) {
		return wrap(s.WeightTrend(ctx, p.Filter, p.Window))
	},
	"heart_rate": func(ctx context.Context, s *Service, p Params) (Tabular, error) {
		return wrap(s.HeartRateDistribution(ctx, p.Filter))
	},
	"heart_rate_histogram": func(ctx context.Context, s *Service, p Params) (Tabular, error) {
		h, err := s.HeartRateDistribution(ctx, p.Filter)
		if err != nil {
			return nil, err
		}
		return h.Histogram(p.Bins), nil
	},
	"user": func(ctx context.Context, s *Service, p Params) (Tabular, error) {
		if p.Filter.UserID == "" {
			return nil, fmt.Errorf("user query needs a user id: %w", ErrBadParams)
		}
		return wrap(s.UserDetail(ctx, p.Filter.UserID))
	},
	"bmi": func(ctx context.Context, s *Service, p Params) (Tabular, error) {
		return wrap(s.BMIDistribution(ctx, p.Filter))
	},
	"bmi_categories": func(ctx context.Context, s *Service, p Params) (Tabular, error) {
		return wrap(s.BMICategoryBreakdown(ctx, p.Filter))
	},
	"activity_types": func(ctx context.Context, s *Service, p Params) (Tabular, error) {
		return wrap(s.ActivityTypeDistribution(ctx, p.Filter))
	},
	"calorie_trend": func(ctx context.Context, s *Service, p Params) (Tabular, error) {
		return wrap(s.CalorieTrend(ctx, p.Filter, p.Window))
	},
	"goal_status": func(ctx context.Context, s *Service, p Params) (Tabular, error) {
		return wrap(s.GoalStatusDistribution(ctx, p.Filter))
	},
	"data_status": func(ctx context.Context, s *Service, _ Params) (Tabular, error) {
		return wrap(s.DataStatus(ctx))
	},
	"recent_feed": func(ctx context.Context, s *Service, p Params) (Tabular, error) {
		return wrap(s.RecentFeed(ctx, p.Lookback, p.Limit))
	},
}

// Names lists the queries Run accepts.
func Names() []string {
	out := make([]string, 0, len(runners))
	for name := range runners {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Run executes the named query and returns its table.
func (s *Service) Run(ctx context.Context, name string, p Params) (Table, error) {
	r, ok := runners[name]
	if !ok {
		return Table{}, fmt.Errorf("unknown query %q (available: %s): %w", name, strings.Join(Names(), ", "), ErrBadParams)
	}
	res, err := r(ctx, s, p)
	if err != nil {
		return Table{}, err
	}
	return res.Table(), nil
}
