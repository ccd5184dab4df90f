// ABOUTME: Structured store schema definition and idempotent initialization.
// ABOUTME: Seven tables created in dependency order; nothing is ever dropped.
package storage

import (
	"context"

	"github.com/harperreed/vamos/internal/storeerr"
)

// Tables lists structured tables in import order: referenced before referencing.
var Tables = []string{"users", "coaches", "user_coach", "goals", "activities", "health_metrics", "alerts"}

type ddl struct {
	object string
	sql    string
}

var schema = []ddl{
	{"users", `CREATE TABLE IF NOT EXISTS users (
		user_id VARCHAR(50) PRIMARY KEY,
		name VARCHAR(100),
		email VARCHAR(150),
		age INTEGER,
		gender VARCHAR(20),
		height_cm DECIMAL(5,2),
		weight_kg DECIMAL(6,2),
		created_at TIMESTAMP
	)`},
	{"coaches", `CREATE TABLE IF NOT EXISTS coaches (
		coach_id VARCHAR(50) PRIMARY KEY,
		name VARCHAR(100),
		specialty VARCHAR(50),
		email VARCHAR(150)
	)`},
	{"user_coach", `CREATE TABLE IF NOT EXISTS user_coach (
		user_id VARCHAR(50) NOT NULL REFERENCES users(user_id),
		coach_id VARCHAR(50) NOT NULL REFERENCES coaches(coach_id),
		PRIMARY KEY (user_id, coach_id)
	)`},
	{"goals", `CREATE TABLE IF NOT EXISTS goals (
		goal_id VARCHAR(50) PRIMARY KEY,
		user_id VARCHAR(50) NOT NULL REFERENCES users(user_id),
		goal_type VARCHAR(50),
		target_value DECIMAL(10,2),
		current_value DECIMAL(10,2),
		deadline DATE,
		status VARCHAR(20),
		created_at TIMESTAMP
	)`},
	{"activities", `CREATE TABLE IF NOT EXISTS activities (
		activity_id VARCHAR(50) PRIMARY KEY,
		user_id VARCHAR(50) NOT NULL REFERENCES users(user_id),
		activity_type VARCHAR(50),
		duration_min INTEGER,
		calories_burned INTEGER,
		distance_km DECIMAL(8,2),
		date TIMESTAMP
	)`},
	{"health_metrics", `CREATE TABLE IF NOT EXISTS health_metrics (
		metric_id VARCHAR(50) PRIMARY KEY,
		user_id VARCHAR(50) NOT NULL REFERENCES users(user_id),
		metric_type VARCHAR(50),
		value TEXT,
		recorded_at TIMESTAMP
	)`},
	{"alerts", `CREATE TABLE IF NOT EXISTS alerts (
		alert_id VARCHAR(50) PRIMARY KEY,
		user_id VARCHAR(50) NOT NULL REFERENCES users(user_id),
		alert_type VARCHAR(50),
		message TEXT,
		severity VARCHAR(20),
		triggered_at TIMESTAMP,
		resolved BOOLEAN NOT NULL DEFAULT FALSE
	)`},
	{"idx_activities_user_date", `CREATE INDEX IF NOT EXISTS idx_activities_user_date ON activities(user_id, date)`},
	{"idx_activities_date", `CREATE INDEX IF NOT EXISTS idx_activities_date ON activities(date)`},
	{"idx_goals_user_status", `CREATE INDEX IF NOT EXISTS idx_goals_user_status ON goals(user_id, status)`},
	{"idx_alerts_user_resolved", `CREATE INDEX IF NOT EXISTS idx_alerts_user_resolved ON alerts(user_id, resolved)`},
	{"idx_health_metrics_user", `CREATE INDEX IF NOT EXISTS idx_health_metrics_user ON health_metrics(user_id, recorded_at)`},
}

// EnsureSchema creates any missing tables and indexes. Safe to call repeatedly.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, d := range schema {
		if err := s.db.WithContext(ctx).Exec(d.sql).Error; err != nil {
			if pingErr := s.Ping(ctx); pingErr != nil {
				return pingErr
			}
			return &storeerr.SchemaError{Store: s.backend, Object: d.object, Err: err}
		}
	}
	s.log.Debug("schema verified", "tables", len(Tables))
	return nil
}
