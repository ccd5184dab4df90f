// ABOUTME: Logical snapshot of the structured store in JSON or YAML.
// ABOUTME: A portable dump for inspection; pg_dump remains the backup of record.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/harperreed/vamos/internal/models"
)

// Snapshot holds every row of every structured table.
type Snapshot struct {
	Version       string                `json:"version" yaml:"version"`
	ExportedAt    time.Time             `json:"exported_at" yaml:"exported_at"`
	Tool          string                `json:"tool" yaml:"tool"`
	Backend       string                `json:"backend" yaml:"backend"`
	Users         []models.User         `json:"users" yaml:"users"`
	Coaches       []models.Coach        `json:"coaches" yaml:"coaches"`
	UserCoaches   []models.UserCoach    `json:"user_coach" yaml:"user_coach"`
	Goals         []models.Goal         `json:"goals" yaml:"goals"`
	Activities    []models.Activity     `json:"activities" yaml:"activities"`
	HealthMetrics []models.HealthMetric `json:"health_metrics" yaml:"health_metrics"`
	Alerts        []models.Alert        `json:"alerts" yaml:"alerts"`
}

// GetAllData reads every table for export.
func (s *Store) GetAllData(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{
		Version:    "1.0",
		ExportedAt: time.Now().UTC(),
		Tool:       "vamos",
		Backend:    s.backend,
	}

	db := s.db.WithContext(ctx)
	steps := []struct {
		table string
		dest  any
		order string
	}{
		{"users", &snap.Users, "user_id"},
		{"coaches", &snap.Coaches, "coach_id"},
		{"user_coach", &snap.UserCoaches, "user_id, coach_id"},
		{"goals", &snap.Goals, "goal_id"},
		{"activities", &snap.Activities, "activity_id"},
		{"health_metrics", &snap.HealthMetrics, "metric_id"},
		{"alerts", &snap.Alerts, "alert_id"},
	}
	for _, st := range steps {
		if err := db.Order(st.order).Find(st.dest).Error; err != nil {
			return nil, fmt.Errorf("read %s: %w", st.table, err)
		}
	}
	return snap, nil
}

// ExportJSON exports all data as JSON.
func (s *Store) ExportJSON(ctx context.Context) ([]byte, error) {
	data, err := s.GetAllData(ctx)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(data, "", "  ")
}

// ExportYAML exports all data as YAML.
func (s *Store) ExportYAML(ctx context.Context) ([]byte, error) {
	data, err := s.GetAllData(ctx)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(data)
}
