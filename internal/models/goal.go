// ABOUTME: Goal model with status lifecycle and clamped progress ratio.
// ABOUTME: Status only moves forward out of active; completed is terminal.
package models

import (
	"fmt"
	"time"
)

// GoalStatus is the lifecycle state of a goal.
type GoalStatus string

const (
	GoalActive    GoalStatus = "active"
	GoalCompleted GoalStatus = "completed"
	GoalCancelled GoalStatus = "cancelled"
)

// AllGoalStatuses lists statuses in display order.
var AllGoalStatuses = []GoalStatus{GoalActive, GoalCompleted, GoalCancelled}

// IsValidGoalStatus checks if s is a known goal status.
func IsValidGoalStatus(s string) bool {
	for _, gs := range AllGoalStatuses {
		if string(gs) == s {
			return true
		}
	}
	return false
}

// Goal is a user's target with tracked progress.
type Goal struct {
	GoalID       string     `gorm:"column:goal_id;primaryKey" json:"goal_id" yaml:"goal_id"`
	UserID       string     `gorm:"column:user_id" json:"user_id" yaml:"user_id"`
	GoalType     string     `gorm:"column:goal_type" json:"goal_type" yaml:"goal_type"`
	TargetValue  float64    `gorm:"column:target_value" json:"target_value" yaml:"target_value"`
	CurrentValue float64    `gorm:"column:current_value" json:"current_value" yaml:"current_value"`
	Deadline     *time.Time `gorm:"column:deadline" json:"deadline,omitempty" yaml:"deadline,omitempty"`
	Status       GoalStatus `gorm:"column:status" json:"status" yaml:"status"`
	CreatedAt    time.Time  `gorm:"column:created_at" json:"created_at" yaml:"created_at"`
}

func (Goal) TableName() string { return "goals" }

// ProgressRatio returns current/target clamped to [0,1]. A non-positive target yields 0.
func (g *Goal) ProgressRatio() float64 {
	if g.TargetValue <= 0 {
		return 0
	}
	r := g.CurrentValue / g.TargetValue
	switch {
	case r < 0:
		return 0
	case r > 1:
		return 1
	}
	return r
}

// Transition moves the goal to next. Only active goals may change status.
func (g *Goal) Transition(next GoalStatus) error {
	if g.Status == next {
		return nil
	}
	if !IsValidGoalStatus(string(next)) {
		return fmt.Errorf("unknown goal status: %s", next)
	}
	if g.Status != GoalActive {
		return fmt.Errorf("goal %s: cannot move from %s to %s", g.GoalID, g.Status, next)
	}
	g.Status = next
	return nil
}
