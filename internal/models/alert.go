// ABOUTME: Alert model, severity levels and legacy health metric rows.
// ABOUTME: Resolved alerts stay in the table; only the flag changes.
package models

import "time"

// Severity ranks how urgent an alert is.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// AllSeverities lists severities from least to most urgent.
var AllSeverities = []Severity{SeverityInfo, SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// IsValidSeverity checks if s is a known severity.
func IsValidSeverity(s string) bool {
	for _, sv := range AllSeverities {
		if string(sv) == s {
			return true
		}
	}
	return false
}

// Alert is a notification raised for a user.
type Alert struct {
	AlertID     string    `gorm:"column:alert_id;primaryKey" json:"alert_id" yaml:"alert_id"`
	UserID      string    `gorm:"column:user_id" json:"user_id" yaml:"user_id"`
	AlertType   string    `gorm:"column:alert_type" json:"alert_type" yaml:"alert_type"`
	Message     string    `gorm:"column:message" json:"message" yaml:"message"`
	Severity    Severity  `gorm:"column:severity" json:"severity" yaml:"severity"`
	TriggeredAt time.Time `gorm:"column:triggered_at" json:"triggered_at" yaml:"triggered_at"`
	Resolved    bool      `gorm:"column:resolved" json:"resolved" yaml:"resolved"`
}

func (Alert) TableName() string { return "alerts" }

// HealthMetric is a legacy free-form measurement row kept for import compatibility.
type HealthMetric struct {
	MetricID   string    `gorm:"column:metric_id;primaryKey" json:"metric_id" yaml:"metric_id"`
	UserID     string    `gorm:"column:user_id" json:"user_id" yaml:"user_id"`
	MetricType string    `gorm:"column:metric_type" json:"metric_type" yaml:"metric_type"`
	Value      string    `gorm:"column:value" json:"value" yaml:"value"`
	RecordedAt time.Time `gorm:"column:recorded_at" json:"recorded_at" yaml:"recorded_at"`
}

func (HealthMetric) TableName() string { return "health_metrics" }
