// ABOUTME: CSV decoding for structured tables, one file per table with a header row.
// ABOUTME: Each row becomes a typed model or a row-level error that the importer counts as skipped.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/harperreed/vamos/internal/models"
)

// row gives by-name access to one CSV record.
type row struct {
	cols map[string]int
	vals []string
}

func (r row) str(name string) string {
	i, ok := r.cols[name]
	if !ok || i >= len(r.vals) {
		return ""
	}
	v := strings.TrimSpace(r.vals[i])
	if strings.EqualFold(v, "nan") || strings.EqualFold(v, "null") || strings.EqualFold(v, "none") {
		return ""
	}
	return v
}

func (r row) required(name string) (string, error) {
	v := r.str(name)
	if v == "" {
		return "", fmt.Errorf("missing %s", name)
	}
	return v, nil
}

// integer accepts "45" and pandas-style "45.0". Empty yields 0.
func (r row) integer(name string) (int, error) {
	v := r.str(name)
	if v == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("%s: not an integer: %q", name, v)
	}
	return int(f), nil
}

func (r row) float(name string) (float64, error) {
	p, err := r.floatPtr(name)
	if err != nil || p == nil {
		return 0, err
	}
	return *p, nil
}

func (r row) floatPtr(name string) (*float64, error) {
	v := r.str(name)
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%s: not a number: %q", name, v)
	}
	return &f, nil
}

func (r row) timestamp(name string) (time.Time, error) {
	v := r.str(name)
	if v == "" {
		return time.Time{}, nil
	}
	t, err := models.ParseTime(v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", name, err)
	}
	return t, nil
}

func (r row) boolean(name string) (bool, error) {
	v := strings.ToLower(r.str(name))
	switch v {
	case "":
		return false, nil
	case "yes", "y":
		return true, nil
	case "no", "n":
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: not a boolean: %q", name, v)
	}
	return b, nil
}

// readCSV decodes every record with parse. Bad records are returned as problems, not errors;
// only an unreadable header is fatal.
func readCSV[T any](r io.Reader, parse func(row) (T, error)) ([]T, []error, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, 0, nil
	}
	if err != nil {
		return nil, nil, 0, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}

	var (
		out      []T
		problems []error
		read     int
	)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		read++
		if err != nil {
			problems = append(problems, fmt.Errorf("line %d: %w", line, err))
			continue
		}
		v, err := parse(row{cols: cols, vals: rec})
		if err != nil {
			problems = append(problems, fmt.Errorf("line %d: %w", line, err))
			continue
		}
		out = append(out, v)
	}
	return out, problems, read, nil
}

func parseUser(r row) (models.User, error) {
	var (
		u   models.User
		err error
	)
	if u.UserID, err = r.required("user_id"); err != nil {
		return u, err
	}
	u.Name = r.str("name")
	u.Email = r.str("email")
	u.Gender = r.str("gender")
	if u.Age, err = r.integer("age"); err != nil {
		return u, err
	}
	if u.Age < 0 || u.Age > 130 {
		return u, fmt.Errorf("age out of range: %d", u.Age)
	}
	if u.HeightCm, err = r.float("height_cm"); err != nil {
		return u, err
	}
	if u.HeightCm != 0 && !models.PlausibleHeightCm(u.HeightCm) {
		return u, fmt.Errorf("height_cm out of range: %v", u.HeightCm)
	}
	if u.WeightKg, err = r.floatPtr("weight_kg"); err != nil {
		return u, err
	}
	if u.WeightKg != nil && !models.PlausibleWeightKg(*u.WeightKg) {
		return u, fmt.Errorf("weight_kg out of range: %v", *u.WeightKg)
	}
	u.CreatedAt, err = r.timestamp("created_at")
	return u, err
}

func parseCoach(r row) (models.Coach, error) {
	var (
		c   models.Coach
		err error
	)
	if c.CoachID, err = r.required("coach_id"); err != nil {
		return c, err
	}
	c.Name = r.str("name")
	c.Specialty = r.str("specialty")
	c.Email = r.str("email")
	return c, nil
}

func parseUserCoach(r row) (models.UserCoach, error) {
	var (
		uc  models.UserCoach
		err error
	)
	if uc.UserID, err = r.required("user_id"); err != nil {
		return uc, err
	}
	uc.CoachID, err = r.required("coach_id")
	return uc, err
}

func parseGoal(r row) (models.Goal, error) {
	var (
		g   models.Goal
		err error
	)
	if g.GoalID, err = r.required("goal_id"); err != nil {
		return g, err
	}
	if g.UserID, err = r.required("user_id"); err != nil {
		return g, err
	}
	g.GoalType = r.str("goal_type")
	if g.TargetValue, err = r.float("target_value"); err != nil {
		return g, err
	}
	if g.CurrentValue, err = r.float("current_value"); err != nil {
		return g, err
	}
	if g.TargetValue < 0 || g.CurrentValue < 0 {
		return g, errors.New("negative goal value")
	}
	status := strings.ToLower(r.str("status"))
	if status == "" {
		status = string(models.GoalActive)
	}
	if !models.IsValidGoalStatus(status) {
		return g, fmt.Errorf("unknown goal status: %q", status)
	}
	g.Status = models.GoalStatus(status)
	deadline, err := r.timestamp("deadline")
	if err != nil {
		return g, err
	}
	if !deadline.IsZero() {
		g.Deadline = &deadline
	}
	g.CreatedAt, err = r.timestamp("created_at")
	return g, err
}

func parseActivity(r row) (models.Activity, error) {
	var (
		a   models.Activity
		err error
	)
	if a.ActivityID, err = r.required("activity_id"); err != nil {
		return a, err
	}
	if a.UserID, err = r.required("user_id"); err != nil {
		return a, err
	}
	at, ok := models.ParseActivityType(r.str("activity_type"))
	if !ok {
		return a, fmt.Errorf("unknown activity type: %q", r.str("activity_type"))
	}
	a.ActivityType = at
	if a.DurationMin, err = r.integer("duration_min"); err != nil {
		return a, err
	}
	if a.CaloriesBurned, err = r.integer("calories_burned"); err != nil {
		return a, err
	}
	if a.DurationMin < 0 || a.CaloriesBurned < 0 {
		return a, errors.New("negative duration or calories")
	}
	dist, err := r.floatPtr("distance_km")
	if err != nil {
		return a, err
	}
	if dist != nil && *dist < 0 {
		return a, errors.New("negative distance")
	}
	if at.HasDistance() {
		a.DistanceKm = dist
	}
	if a.Date, err = r.timestamp("date"); err != nil {
		return a, err
	}
	if a.Date.IsZero() {
		return a, errors.New("missing date")
	}
	return a, nil
}

func parseHealthMetric(r row) (models.HealthMetric, error) {
	var (
		m   models.HealthMetric
		err error
	)
	if m.MetricID, err = r.required("metric_id"); err != nil {
		return m, err
	}
	if m.UserID, err = r.required("user_id"); err != nil {
		return m, err
	}
	m.MetricType = r.str("metric_type")
	m.Value = r.str("value")
	m.RecordedAt, err = r.timestamp("recorded_at")
	return m, err
}

func parseAlert(r row) (models.Alert, error) {
	var (
		a   models.Alert
		err error
	)
	if a.AlertID, err = r.required("alert_id"); err != nil {
		return a, err
	}
	if a.UserID, err = r.required("user_id"); err != nil {
		return a, err
	}
	a.AlertType = r.str("alert_type")
	a.Message = r.str("message")
	sev := strings.ToLower(r.str("severity"))
	if sev != "" && !models.IsValidSeverity(sev) {
		return a, fmt.Errorf("unknown severity: %q", sev)
	}
	a.Severity = models.Severity(sev)
	if a.TriggeredAt, err = r.timestamp("triggered_at"); err != nil {
		return a, err
	}
	a.Resolved, err = r.boolean("resolved")
	return a, err
}
