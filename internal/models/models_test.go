// ABOUTME: Tests for dashboard models.
// ABOUTME: Covers BMI math, categories, goal lifecycle, parsing helpers and JSON decoding.
package models

import (
	"encoding/json"
	"math"
	"testing"
	"time"
)

func TestBMIExample(t *testing.T) {
	bmi, ok := BMI(175, 70)
	if !ok {
		t.Fatal("expected ok")
	}
	if got := Round2(bmi); got != 22.86 {
		t.Errorf("BMI(175, 70) = %v, want 22.86", got)
	}
	if cat := CategorizeBMI(bmi); cat != BMIHealthy {
		t.Errorf("category = %s, want healthy", cat)
	}
}

func TestBMIInvalid(t *testing.T) {
	if _, ok := BMI(0, 70); ok {
		t.Error("zero height should not be ok")
	}
	if _, ok := BMI(175, -1); ok {
		t.Error("negative weight should not be ok")
	}
}

func TestCategorizeBMI(t *testing.T) {
	tests := []struct {
		bmi  float64
		want BMICategory
	}{
		{15, BMIUnderweight},
		{18.49, BMIUnderweight},
		{18.5, BMIHealthy},
		{24.99, BMIHealthy},
		{25, BMIOverweight},
		{29.9, BMIOverweight},
		{30, BMIObese},
		{45, BMIObese},
	}

	for _, tt := range tests {
		if got := CategorizeBMI(tt.bmi); got != tt.want {
			t.Errorf("CategorizeBMI(%v) = %s, want %s", tt.bmi, got, tt.want)
		}
	}
}

func TestGoalProgressRatioClamped(t *testing.T) {
	tests := []struct {
		name    string
		current float64
		target  float64
		want    float64
	}{
		{"half", 50, 100, 0.5},
		{"over target", 120, 100, 1},
		{"negative progress", -5, 100, 0},
		{"zero target", 10, 0, 0},
		{"negative target", 10, -3, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &Goal{CurrentValue: tt.current, TargetValue: tt.target}
			got := g.ProgressRatio()
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("ProgressRatio() = %v, want %v", got, tt.want)
			}
			if got < 0 || got > 1 {
				t.Errorf("ProgressRatio() = %v outside [0,1]", got)
			}
		})
	}
}

func TestGoalTransition(t *testing.T) {
	g := &Goal{GoalID: "goal-00001", Status: GoalActive}
	if err := g.Transition(GoalCompleted); err != nil {
		t.Fatalf("active->completed failed: %v", err)
	}
	if err := g.Transition(GoalActive); err == nil {
		t.Error("completed->active should fail")
	}
	if g.Status != GoalCompleted {
		t.Errorf("status = %s, want completed", g.Status)
	}
	if err := g.Transition(GoalCompleted); err != nil {
		t.Errorf("same-status transition should be a no-op: %v", err)
	}
	if err := (&Goal{Status: GoalActive}).Transition("paused"); err == nil {
		t.Error("unknown status should fail")
	}
}

func TestParseActivityType(t *testing.T) {
	if at, ok := ParseActivityType(" Running "); !ok || at != ActivityRunning {
		t.Errorf("ParseActivityType(Running) = %v, %v", at, ok)
	}
	if at, ok := ParseActivityType("weights"); !ok || at != ActivityWeightTraining {
		t.Errorf("weights alias = %v, %v", at, ok)
	}
	if _, ok := ParseActivityType("skydiving"); ok {
		t.Error("unknown activity type should fail")
	}
	if !ActivityCycling.HasDistance() || ActivityYoga.HasDistance() {
		t.Error("HasDistance mismatch")
	}
}

func TestParseTime(t *testing.T) {
	valid := []string{
		"2025-01-31T08:30:00Z",
		"2025-01-31T08:30:00+05:00",
		"2025-01-31 08:30:00.123456",
		"2025-01-31 08:30:00",
		"2025-01-31 08:30",
		"2025-01-31",
	}
	for _, s := range valid {
		if _, err := ParseTime(s); err != nil {
			t.Errorf("ParseTime(%q) failed: %v", s, err)
		}
	}
	for _, s := range []string{"", "31-01-2025", "not a date"} {
		if _, err := ParseTime(s); err == nil {
			t.Errorf("ParseTime(%q) expected error", s)
		}
	}

	got, _ := ParseTime("2025-01-31T08:30:00+05:00")
	if got.Location() != time.UTC || got.Hour() != 3 {
		t.Errorf("expected UTC 03:30, got %v", got)
	}
}

func TestUserMetricJSONIgnoresUnknownFields(t *testing.T) {
	raw := `{"sensor_id":"weight-001","user_id":"user-0001","meta":{"sensor_type":"weight"},
		"ts":"2025-03-01 07:00:00","weight_kg":70.5,"firmware_blob":"xyz","extra":{"a":1}}`

	var m UserMetric
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if m.UserID != "user-0001" || m.WeightKg == nil || *m.WeightKg != 70.5 {
		t.Errorf("unexpected decode: %+v", m)
	}
	if m.TS.IsZero() {
		t.Error("expected ts to be parsed")
	}
	if err := m.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}

func TestUserMetricValidate(t *testing.T) {
	h := 400.0
	tests := []struct {
		name string
		m    UserMetric
	}{
		{"missing user", UserMetric{TS: time.Now(), HeightCm: &h}},
		{"missing ts", UserMetric{UserID: "u"}},
		{"no measurement", UserMetric{UserID: "u", TS: time.Now()}},
		{"implausible height", UserMetric{UserID: "u", TS: time.Now(), HeightCm: &h}},
	}
	for _, tt := range tests {
		if err := tt.m.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tt.name)
		}
	}
}

func TestFlexTimeExtendedJSON(t *testing.T) {
	var v struct {
		TS FlexTime `json:"ts"`
	}
	if err := json.Unmarshal([]byte(`{"ts":{"$date":"2025-02-01T10:00:00Z"}}`), &v); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if v.TS.Year() != 2025 || v.TS.Hour() != 10 {
		t.Errorf("unexpected time: %v", v.TS.Time)
	}
	if err := json.Unmarshal([]byte(`{"ts":1738404000000}`), &v); err != nil {
		t.Fatalf("Unmarshal epoch failed: %v", err)
	}
	if v.TS.Year() != 2025 {
		t.Errorf("unexpected epoch time: %v", v.TS.Time)
	}
}

func TestStartOfDay(t *testing.T) {
	loc := time.FixedZone("X", -5*3600)
	ts := time.Date(2025, 6, 2, 3, 0, 0, 0, time.UTC) // 22:00 on June 1 in X
	got := StartOfDay(ts, loc)
	if got.Day() != 1 || got.Hour() != 0 || got.Location() != loc {
		t.Errorf("StartOfDay = %v", got)
	}
}
