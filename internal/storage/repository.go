// ABOUTME: Repository interface for the structured store.
// ABOUTME: The aggregation layer depends on this contract rather than on gorm.
package storage

import (
	"context"
	"time"

	"github.com/harperreed/vamos/internal/models"
)

// Repository defines the structured store operations used outside this package.
// This interface allows swapping implementations (e.g., for testing).
type Repository interface {
	// Schema and import
	EnsureSchema(ctx context.Context) error
	InsertUsers(ctx context.Context, rows []models.User) (InsertResult, error)
	InsertCoaches(ctx context.Context, rows []models.Coach) (InsertResult, error)
	InsertUserCoaches(ctx context.Context, rows []models.UserCoach) (InsertResult, error)
	InsertGoals(ctx context.Context, rows []models.Goal) (InsertResult, error)
	InsertActivities(ctx context.Context, rows []models.Activity) (InsertResult, error)
	InsertHealthMetrics(ctx context.Context, rows []models.HealthMetric) (InsertResult, error)
	InsertAlerts(ctx context.Context, rows []models.Alert) (InsertResult, error)

	// Reads
	CountUsers(ctx context.Context) (int64, error)
	CountActivitiesBetween(ctx context.Context, from, to time.Time) (int64, error)
	CountUnresolvedAlerts(ctx context.Context, f models.Filter) (int64, error)
	ListAlerts(ctx context.Context, f models.Filter, unresolvedOnly bool, limit int) ([]models.Alert, error)
	GetUser(ctx context.Context, userID string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	ListUserIDs(ctx context.Context, limit int) ([]string, error)
	ListActivities(ctx context.Context, f models.Filter, limit int) ([]models.Activity, error)
	ActivityTypeCounts(ctx context.Context, f models.Filter) ([]TypeCount, error)
	ActivityCalories(ctx context.Context, f models.Filter) ([]CaloriePoint, error)
	ListGoals(ctx context.Context, f models.Filter, status models.GoalStatus) ([]models.Goal, error)
	GoalStatusCounts(ctx context.Context, f models.Filter) ([]StatusCount, error)
	CoachesForUser(ctx context.Context, userID string) ([]models.Coach, error)
	Counts(ctx context.Context) ([]TableCount, error)

	// Writes outside import
	ResolveAlert(ctx context.Context, alertID string) error
	CompleteGoal(ctx context.Context, goalID string) (*models.Goal, error)

	// Snapshots
	ExportJSON(ctx context.Context) ([]byte, error)
	ExportYAML(ctx context.Context) ([]byte, error)

	// Lifecycle
	Backend() string
	Ping(ctx context.Context) error
	Close() error
}

var _ Repository = (*Store)(nil)
