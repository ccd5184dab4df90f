// ABOUTME: Activity model and the closed set of activity types.
// ABOUTME: Distance is only meaningful for running, walking and cycling.
package models

import (
	"strings"
	"time"
)

// ActivityType is one of the supported exercise kinds.
type ActivityType string

const (
	ActivityRunning        ActivityType = "running"
	ActivityWalking        ActivityType = "walking"
	ActivityCycling        ActivityType = "cycling"
	ActivitySwimming       ActivityType = "swimming"
	ActivityYoga           ActivityType = "yoga"
	ActivityWeightTraining ActivityType = "weight_training"
)

// AllActivityTypes lists every valid activity type.
var AllActivityTypes = []ActivityType{
	ActivityRunning, ActivityWalking, ActivityCycling,
	ActivitySwimming, ActivityYoga, ActivityWeightTraining,
}

// ParseActivityType normalizes s to an ActivityType. "weights" is accepted for weight_training.
func ParseActivityType(s string) (ActivityType, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "weights" {
		return ActivityWeightTraining, true
	}
	for _, at := range AllActivityTypes {
		if string(at) == s {
			return at, true
		}
	}
	return "", false
}

// HasDistance reports whether the activity type records a distance.
func (t ActivityType) HasDistance() bool {
	switch t {
	case ActivityRunning, ActivityWalking, ActivityCycling:
		return true
	}
	return false
}

// Activity is a single exercise session.
type Activity struct {
	ActivityID     string       `gorm:"column:activity_id;primaryKey" json:"activity_id" yaml:"activity_id"`
	UserID         string       `gorm:"column:user_id" json:"user_id" yaml:"user_id"`
	ActivityType   ActivityType `gorm:"column:activity_type" json:"activity_type" yaml:"activity_type"`
	DurationMin    int          `gorm:"column:duration_min" json:"duration_min" yaml:"duration_min"`
	CaloriesBurned int          `gorm:"column:calories_burned" json:"calories_burned" yaml:"calories_burned"`
	DistanceKm     *float64     `gorm:"column:distance_km" json:"distance_km,omitempty" yaml:"distance_km,omitempty"`
	Date           time.Time    `gorm:"column:date" json:"date" yaml:"date"`
}

func (Activity) TableName() string { return "activities" }
