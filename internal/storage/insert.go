// ABOUTME: Idempotent batched inserts for every structured table.
// ABOUTME: Existing primary keys are left alone; rows the store rejects are skipped and counted.
package storage

import (
	"context"

	"gorm.io/gorm/clause"

	"github.com/harperreed/vamos/internal/models"
)

const insertBatchSize = 500

// InsertResult tallies the outcome of an insert call.
type InsertResult struct {
	Inserted int
	Existing int
	Skipped  int
	Errors   []error
}

func insertRows[T any](ctx context.Context, s *Store, table string, rows []T) (InsertResult, error) {
	var res InsertResult
	if len(rows) == 0 {
		return res, nil
	}

	db := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true})
	for start := 0; start < len(rows); start += insertBatchSize {
		end := min(start+insertBatchSize, len(rows))
		batch := rows[start:end]

		tx := db.Create(&batch)
		if tx.Error == nil {
			res.Inserted += int(tx.RowsAffected)
			res.Existing += len(batch) - int(tx.RowsAffected)
			continue
		}

		// A lost connection aborts; anything else is a bad row somewhere in the batch.
		if err := s.Ping(ctx); err != nil {
			return res, err
		}
		s.log.Warn("batch insert failed, retrying row by row", "table", table, "rows", len(batch), "error", tx.Error)
		for i := range batch {
			row := batch[i]
			rtx := db.Create(&row)
			switch {
			case rtx.Error != nil:
				res.Skipped++
				res.Errors = append(res.Errors, rtx.Error)
			case rtx.RowsAffected == 0:
				res.Existing++
			default:
				res.Inserted++
			}
		}
	}
	return res, nil
}

func (s *Store) InsertUsers(ctx context.Context, rows []models.User) (InsertResult, error) {
	return insertRows(ctx, s, "users", rows)
}

func (s *Store) InsertCoaches(ctx context.Context, rows []models.Coach) (InsertResult, error) {
	return insertRows(ctx, s, "coaches", rows)
}

func (s *Store) InsertUserCoaches(ctx context.Context, rows []models.UserCoach) (InsertResult, error) {
	return insertRows(ctx, s, "user_coach", rows)
}

func (s *Store) InsertGoals(ctx context.Context, rows []models.Goal) (InsertResult, error) {
	return insertRows(ctx, s, "goals", rows)
}

func (s *Store) InsertActivities(ctx context.Context, rows []models.Activity) (InsertResult, error) {
	return insertRows(ctx, s, "activities", rows)
}

func (s *Store) InsertHealthMetrics(ctx context.Context, rows []models.HealthMetric) (InsertResult, error) {
	return insertRows(ctx, s, "health_metrics", rows)
}

func (s *Store) InsertAlerts(ctx context.Context, rows []models.Alert) (InsertResult, error) {
	return insertRows(ctx, s, "alerts", rows)
}
