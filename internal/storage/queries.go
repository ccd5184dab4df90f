// ABOUTME: Read queries over the structured store used by the aggregation layer.
// ABOUTME: Reads report not-found as nil or an empty slice. Writes to a missing row return storeerr.ErrNotFound.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/harperreed/vamos/internal/models"
	"github.com/harperreed/vamos/internal/storeerr"
)

// TypeCount is the number of activities of one type and the calories they burned.
type TypeCount struct {
	ActivityType  models.ActivityType `gorm:"column:activity_type"`
	Count         int64               `gorm:"column:activity_count"`
	TotalCalories int64               `gorm:"column:total_calories"`
	TotalMinutes  int64               `gorm:"column:total_minutes"`
}

// StatusCount is the number of goals in one status.
type StatusCount struct {
	Status models.GoalStatus `gorm:"column:status"`
	Count  int64             `gorm:"column:goal_count"`
}

// CaloriePoint is one activity's burn at its timestamp.
type CaloriePoint struct {
	Date     time.Time `gorm:"column:date"`
	Calories int       `gorm:"column:calories_burned"`
}

// TableCount is the row count of one table or collection.
type TableCount struct {
	Name  string `json:"name" yaml:"name"`
	Count int64  `json:"count" yaml:"count"`
}

func applyFilter(db *gorm.DB, f models.Filter, tsColumn string) *gorm.DB {
	if f.UserID != "" {
		db = db.Where("user_id = ?", f.UserID)
	}
	if tsColumn == "" {
		return db
	}
	if !f.From.IsZero() {
		db = db.Where(tsColumn+" >= ?", f.From.UTC())
	}
	if !f.To.IsZero() {
		db = db.Where(tsColumn+" < ?", f.To.UTC())
	}
	return db
}

func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// CountActivitiesBetween counts activities with from <= date < to.
func (s *Store) CountActivitiesBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Activity{}).
		Where("date >= ? AND date < ?", from.UTC(), to.UTC()).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count activities: %w", err)
	}
	return n, nil
}

func (s *Store) CountUnresolvedAlerts(ctx context.Context, f models.Filter) (int64, error) {
	var n int64
	db := applyFilter(s.db.WithContext(ctx).Model(&models.Alert{}), f, "triggered_at")
	if err := db.Where("resolved = ?", false).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count unresolved alerts: %w", err)
	}
	return n, nil
}

// ListAlerts returns alerts newest first. limit <= 0 means no limit.
func (s *Store) ListAlerts(ctx context.Context, f models.Filter, unresolvedOnly bool, limit int) ([]models.Alert, error) {
	db := applyFilter(s.db.WithContext(ctx), f, "triggered_at")
	if unresolvedOnly {
		db = db.Where("resolved = ?", false)
	}
	if limit > 0 {
		db = db.Limit(limit)
	}
	alerts := []models.Alert{}
	if err := db.Order("triggered_at DESC, alert_id").Find(&alerts).Error; err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	return alerts, nil
}

// GetUser returns nil without error when the user does not exist.
func (s *Store) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	if err := s.db.WithContext(ctx).Order("user_id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *Store) ListUserIDs(ctx context.Context, limit int) ([]string, error) {
	ids := []string{}
	db := s.db.WithContext(ctx).Model(&models.User{}).Order("user_id")
	if limit > 0 {
		db = db.Limit(limit)
	}
	if err := db.Pluck("user_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	return ids, nil
}

// ListActivities returns activities newest first. limit <= 0 means no limit.
func (s *Store) ListActivities(ctx context.Context, f models.Filter, limit int) ([]models.Activity, error) {
	db := applyFilter(s.db.WithContext(ctx), f, "date")
	if limit > 0 {
		db = db.Limit(limit)
	}
	acts := []models.Activity{}
	if err := db.Order("date DESC, activity_id").Find(&acts).Error; err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	return acts, nil
}

func (s *Store) ActivityTypeCounts(ctx context.Context, f models.Filter) ([]TypeCount, error) {
	rows := []TypeCount{}
	err := applyFilter(s.db.WithContext(ctx).Model(&models.Activity{}), f, "date").
		Select("activity_type, COUNT(*) AS activity_count, " +
			"COALESCE(SUM(calories_burned), 0) AS total_calories, " +
			"COALESCE(SUM(duration_min), 0) AS total_minutes").
		Group("activity_type").
		Order("activity_count DESC, activity_type").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("activity type counts: %w", err)
	}
	return rows, nil
}

// ActivityCalories returns (date, calories) for every activity in range, oldest first.
// Day bucketing happens in the caller so it follows the local calendar.
func (s *Store) ActivityCalories(ctx context.Context, f models.Filter) ([]CaloriePoint, error) {
	rows := []CaloriePoint{}
	err := applyFilter(s.db.WithContext(ctx).Model(&models.Activity{}), f, "date").
		Select("date, calories_burned").
		Order("date").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("activity calories: %w", err)
	}
	return rows, nil
}

// ListGoals returns goals, optionally restricted to one status, oldest first.
func (s *Store) ListGoals(ctx context.Context, f models.Filter, status models.GoalStatus) ([]models.Goal, error) {
	db := applyFilter(s.db.WithContext(ctx), f, "created_at")
	if status != "" {
		db = db.Where("status = ?", status)
	}
	goals := []models.Goal{}
	if err := db.Order("created_at, goal_id").Find(&goals).Error; err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	return goals, nil
}

func (s *Store) GoalStatusCounts(ctx context.Context, f models.Filter) ([]StatusCount, error) {
	rows := []StatusCount{}
	err := applyFilter(s.db.WithContext(ctx).Model(&models.Goal{}), f, "created_at").
		Select("status, COUNT(*) AS goal_count").
		Group("status").
		Order("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("goal status counts: %w", err)
	}
	return rows, nil
}

func (s *Store) CoachesForUser(ctx context.Context, userID string) ([]models.Coach, error) {
	coaches := []models.Coach{}
	err := s.db.WithContext(ctx).
		Joins("JOIN user_coach ON user_coach.coach_id = coaches.coach_id").
		Where("user_coach.user_id = ?", userID).
		Order("coaches.coach_id").
		Find(&coaches).Error
	if err != nil {
		return nil, fmt.Errorf("coaches for user: %w", err)
	}
	return coaches, nil
}

// Counts returns the row count of every structured table in schema order.
func (s *Store) Counts(ctx context.Context) ([]TableCount, error) {
	out := make([]TableCount, 0, len(Tables))
	for _, table := range Tables {
		var n int64
		if err := s.db.WithContext(ctx).Table(table).Count(&n).Error; err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		out = append(out, TableCount{Name: table, Count: n})
	}
	return out, nil
}

// ResolveAlert marks an alert resolved. Resolving twice is not an error.
func (s *Store) ResolveAlert(ctx context.Context, alertID string) error {
	tx := s.db.WithContext(ctx).Model(&models.Alert{}).
		Where("alert_id = ?", alertID).
		Update("resolved", true)
	if tx.Error != nil {
		return fmt.Errorf("resolve alert: %w", tx.Error)
	}
	if tx.RowsAffected == 0 {
		var n int64
		if err := s.db.WithContext(ctx).Model(&models.Alert{}).Where("alert_id = ?", alertID).Count(&n).Error; err != nil {
			return fmt.Errorf("resolve alert: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("alert %s: %w", alertID, storeerr.ErrNotFound)
		}
	}
	return nil
}

// CompleteGoal moves an active goal to completed.
func (s *Store) CompleteGoal(ctx context.Context, goalID string) (*models.Goal, error) {
	var g models.Goal
	err := s.db.WithContext(ctx).Where("goal_id = ?", goalID).First(&g).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("goal %s: %w", goalID, storeerr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get goal: %w", err)
	}
	if err := g.Transition(models.GoalCompleted); err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Model(&models.Goal{}).
		Where("goal_id = ?", goalID).
		Update("status", g.Status).Error
	if err != nil {
		return nil, fmt.Errorf("complete goal: %w", err)
	}
	return &g, nil
}
