// ABOUTME: Single-user drill-down joining both stores by user_id.
// ABOUTME: An unknown user yields an empty detail, not an error.
package query

import (
	"context"

	"github.com/harperreed/vamos/internal/docstore"
	"github.com/harperreed/vamos/internal/models"
)

// GoalProgress is a goal with its clamped progress ratio.
type GoalProgress struct {
	models.Goal   `yaml:",inline"`
	ProgressRatio float64 `json:"progress_ratio" yaml:"progress_ratio"`
}

// UserDetail gathers everything known about one user.
type UserDetail struct {
	UserID           string                    `json:"user_id" yaml:"user_id"`
	User             *models.User              `json:"user" yaml:"user"`
	Activities       []models.Activity         `json:"activities" yaml:"activities"`
	ActivitySummary  ActivityTypes             `json:"activity_summary" yaml:"activity_summary"`
	ActiveGoals      []GoalProgress            `json:"active_goals" yaml:"active_goals"`
	GoalsCompleted   int                       `json:"goals_completed" yaml:"goals_completed"`
	GoalsTotal       int                       `json:"goals_total" yaml:"goals_total"`
	UnresolvedAlerts []models.Alert            `json:"unresolved_alerts" yaml:"unresolved_alerts"`
	Coaches          []models.Coach            `json:"coaches" yaml:"coaches"`
	BMI              *BMIRow                   `json:"bmi" yaml:"bmi"`
	Nutrition        docstore.NutritionSummary `json:"nutrition" yaml:"nutrition"`
	Sleep            docstore.SleepSummary     `json:"sleep" yaml:"sleep"`
}

// Found reports whether the user exists in the structured store.
func (d *UserDetail) Found() bool { return d.User != nil }

// GoalCompletion is completed/total goals, 0 when the user has none.
func (d *UserDetail) GoalCompletion() float64 {
	if d.GoalsTotal == 0 {
		return 0
	}
	return models.Round2(float64(d.GoalsCompleted) / float64(d.GoalsTotal))
}

func emptyDetail(userID string) *UserDetail {
	return &UserDetail{
		UserID:           userID,
		Activities:       []models.Activity{},
		ActivitySummary:  ActivityTypes{},
		ActiveGoals:      []GoalProgress{},
		UnresolvedAlerts: []models.Alert{},
		Coaches:          []models.Coach{},
	}
}

// UserDetail returns the user's record, activities newest first and active goals with progress.
func (s *Service) UserDetail(ctx context.Context, userID string) (*UserDetail, error) {
	key := queryKey("user", models.Filter{UserID: userID})
	return cached(ctx, s, "user", key, s.ttl, func(ctx context.Context) (*UserDetail, error) {
		d := emptyDetail(userID)
		user, err := s.repo.GetUser(ctx, userID)
		if err != nil || user == nil {
			return d, err
		}
		d.User = user
		f := models.Filter{UserID: userID}

		if d.Activities, err = s.repo.ListActivities(ctx, f, 0); err != nil {
			return nil, err
		}
		if d.ActivitySummary, err = s.activityTypes(ctx, f); err != nil {
			return nil, err
		}

		goals, err := s.repo.ListGoals(ctx, f, "")
		if err != nil {
			return nil, err
		}
		d.GoalsTotal = len(goals)
		for i := range goals {
			switch goals[i].Status {
			case models.GoalCompleted:
				d.GoalsCompleted++
			case models.GoalActive:
				d.ActiveGoals = append(d.ActiveGoals, GoalProgress{Goal: goals[i], ProgressRatio: goals[i].ProgressRatio()})
			}
		}

		if d.UnresolvedAlerts, err = s.repo.ListAlerts(ctx, f, true, 0); err != nil {
			return nil, err
		}
		if d.Coaches, err = s.repo.CoachesForUser(ctx, userID); err != nil {
			return nil, err
		}

		body, err := s.docs.LatestBodyMetrics(ctx, f)
		if err != nil {
			return nil, err
		}
		for _, b := range body {
			if bmi, ok := b.BMI(); ok && b.UserID == userID {
				d.BMI = &BMIRow{
					UserID:   userID,
					HeightCm: *b.HeightCm,
					WeightKg: *b.WeightKg,
					BMI:      models.Round2(bmi),
					Category: models.CategorizeBMI(bmi),
				}
			}
		}
		if d.Nutrition, err = s.docs.NutritionSummary(ctx, f); err != nil {
			return nil, err
		}
		if d.Sleep, err = s.docs.SleepSummary(ctx, f); err != nil {
			return nil, err
		}
		return d, nil
	})
}

// Table renders the user's activities, the main drill-down chart.
func (d *UserDetail) Table() Table {
	t := NewTable("user_activities", "date", "activity_type", "duration_min", "calories_burned", "distance_km")
	for _, a := range d.Activities {
		var dist any
		if a.DistanceKm != nil {
			dist = *a.DistanceKm
		}
		t.Append(a.Date, string(a.ActivityType), a.DurationMin, a.CaloriesBurned, dist)
	}
	return t
}

// GoalsTable renders the active goals with progress.
func (d *UserDetail) GoalsTable() Table {
	t := NewTable("user_goals", "goal_id", "goal_type", "current_value", "target_value", "progress_ratio", "deadline")
	for _, g := range d.ActiveGoals {
		var deadline any
		if g.Deadline != nil {
			deadline = g.Deadline.Format("2006-01-02")
		}
		t.Append(g.GoalID, g.GoalType, g.CurrentValue, g.TargetValue, models.Round2(g.ProgressRatio), deadline)
	}
	return t
}
