// ABOUTME: Activity, calorie and goal aggregations over the structured store.
package query

import (
	"context"
	"sort"
	"time"

	"github.com/harperreed/vamos/internal/models"
)

// ActivityTypeRow summarizes one activity type.
type ActivityTypeRow struct {
	ActivityType  models.ActivityType `json:"activity_type" yaml:"activity_type"`
	Count         int64               `json:"count" yaml:"count"`
	TotalCalories int64               `json:"total_calories" yaml:"total_calories"`
	TotalMinutes  int64               `json:"total_minutes" yaml:"total_minutes"`
	Share         float64             `json:"share" yaml:"share"`
}

// ActivityTypes is ordered by count descending.
type ActivityTypes []ActivityTypeRow

// ActivityTypeDistribution counts activities per type with each type's share of the total.
func (s *Service) ActivityTypeDistribution(ctx context.Context, f models.Filter) (ActivityTypes, error) {
	return cached(ctx, s, "activity_types", queryKey("activity_types", f), s.ttl, func(ctx context.Context) (ActivityTypes, error) {
		return s.activityTypes(ctx, f)
	})
}

func (s *Service) activityTypes(ctx context.Context, f models.Filter) (ActivityTypes, error) {
	counts, err := s.repo.ActivityTypeCounts(ctx, f)
	if err != nil {
		return nil, err
	}
	var total int64
	for _, c := range counts {
		total += c.Count
	}
	out := make(ActivityTypes, 0, len(counts))
	for _, c := range counts {
		row := ActivityTypeRow{
			ActivityType:  c.ActivityType,
			Count:         c.Count,
			TotalCalories: c.TotalCalories,
			TotalMinutes:  c.TotalMinutes,
		}
		if total > 0 {
			row.Share = models.Round2(float64(c.Count) / float64(total))
		}
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].ActivityType < out[j].ActivityType
		}
		return out[i].Count > out[j].Count
	})
	return out, nil
}

func (a ActivityTypes) Table() Table {
	t := NewTable("activity_types", "activity_type", "count", "total_calories", "total_minutes", "share")
	for _, r := range a {
		t.Append(string(r.ActivityType), r.Count, r.TotalCalories, r.TotalMinutes, r.Share)
	}
	return t
}

// DailyCalories is the calories burned across all activities on one day.
type DailyCalories struct {
	Day        time.Time `json:"day" yaml:"day"`
	Calories   int64     `json:"calories" yaml:"calories"`
	Activities int       `json:"activities" yaml:"activities"`
}

// CalorieSeries is ordered by day ascending. Days without activity are omitted.
type CalorieSeries []DailyCalories

// CalorieTrend sums calories burned per local day over the trailing window.
func (s *Service) CalorieTrend(ctx context.Context, f models.Filter, window time.Duration) (CalorieSeries, error) {
	key := queryKey("calorie_trend", f, window, s.dayOf(s.now()).Format("2006-01-02"))
	return cached(ctx, s, "calorie_trend", key, s.ttl, func(ctx context.Context) (CalorieSeries, error) {
		points, err := s.repo.ActivityCalories(ctx, s.windowed(f, window))
		if err != nil {
			return nil, err
		}
		out := CalorieSeries{}
		for _, p := range points {
			d := s.dayOf(p.Date)
			if n := len(out); n > 0 && out[n-1].Day.Equal(d) {
				out[n-1].Calories += int64(p.Calories)
				out[n-1].Activities++
				continue
			}
			out = append(out, DailyCalories{Day: d, Calories: int64(p.Calories), Activities: 1})
		}
		return out, nil
	})
}

func (c CalorieSeries) Table() Table {
	t := NewTable("calorie_trend", "day", "calories", "activities")
	for _, p := range c {
		t.Append(p.Day.Format("2006-01-02"), p.Calories, p.Activities)
	}
	return t
}

// GoalStatusRow is the number of goals in one status.
type GoalStatusRow struct {
	Status models.GoalStatus `json:"status" yaml:"status"`
	Count  int64             `json:"count" yaml:"count"`
}

// GoalStatuses lists known statuses in lifecycle order, then any others by name.
type GoalStatuses []GoalStatusRow

// GoalStatusDistribution counts goals per status. Known statuses are always present.
func (s *Service) GoalStatusDistribution(ctx context.Context, f models.Filter) (GoalStatuses, error) {
	return cached(ctx, s, "goal_status", queryKey("goal_status", f), s.ttl, func(ctx context.Context) (GoalStatuses, error) {
		counts, err := s.repo.GoalStatusCounts(ctx, f)
		if err != nil {
			return nil, err
		}
		byStatus := make(map[models.GoalStatus]int64, len(counts))
		for _, c := range counts {
			byStatus[c.Status] += c.Count
		}
		out := make(GoalStatuses, 0, len(byStatus)+len(models.AllGoalStatuses))
		for _, st := range models.AllGoalStatuses {
			out = append(out, GoalStatusRow{Status: st, Count: byStatus[st]})
			delete(byStatus, st)
		}
		var extra GoalStatuses
		for st, n := range byStatus {
			extra = append(extra, GoalStatusRow{Status: st, Count: n})
		}
		sort.Slice(extra, func(i, j int) bool { return extra[i].Status < extra[j].Status })
		return append(out, extra...), nil
	})
}

func (g GoalStatuses) Table() Table {
	t := NewTable("goal_status", "status", "count")
	for _, r := range g {
		t.Append(string(r.Status), r.Count)
	}
	return t
}
