// ABOUTME: System-wide KPIs, data status and the live feed window.
// ABOUTME: Counts come from the structured store; BMI and feed samples from the document store.
package query

import (
	"context"
	"fmt"
	"time"

	"github.com/harperreed/vamos/internal/docstore"
	"github.com/harperreed/vamos/internal/models"
	"github.com/harperreed/vamos/internal/storage"
)

// Overview is the landing page summary.
type Overview struct {
	TotalUsers          int64          `json:"total_users" yaml:"total_users"`
	TodaysActivityCount int64          `json:"todays_activity_count" yaml:"todays_activity_count"`
	AvgBMI              *float64       `json:"avg_bmi" yaml:"avg_bmi"`
	UnresolvedAlerts    int64          `json:"unresolved_alerts" yaml:"unresolved_alerts"`
	RecentAlerts        []models.Alert `json:"recent_alerts" yaml:"recent_alerts"`
	Day                 time.Time      `json:"day" yaml:"day"`
}

// SystemOverview reports user count, today's activities, mean BMI and alert state.
// Alert state is read from the store on every call; alerts can be resolved outside this process.
func (s *Service) SystemOverview(ctx context.Context) (Overview, error) {
	start, end := s.today()
	key := queryKey("overview", models.Filter{}, start.Format("2006-01-02"))
	ov, err := cached(ctx, s, "overview", key, s.ttl, func(ctx context.Context) (Overview, error) {
		ov := Overview{Day: start}
		var err error
		if ov.TotalUsers, err = s.repo.CountUsers(ctx); err != nil {
			return ov, err
		}
		if ov.TodaysActivityCount, err = s.repo.CountActivitiesBetween(ctx, start, end); err != nil {
			return ov, err
		}

		samples, err := s.docs.LatestBodyMetrics(ctx, models.Filter{})
		if err != nil {
			return ov, err
		}
		var sum float64
		n := 0
		for _, b := range samples {
			if bmi, ok := b.BMI(); ok {
				sum += bmi
				n++
			}
		}
		if n > 0 {
			avg := models.Round2(sum / float64(n))
			ov.AvgBMI = &avg
		}
		return ov, nil
	})
	if err != nil {
		return ov, err
	}

	if ov.UnresolvedAlerts, err = s.repo.CountUnresolvedAlerts(ctx, models.Filter{}); err != nil {
		return ov, fmt.Errorf("overview: %w", err)
	}
	if ov.RecentAlerts, err = s.repo.ListAlerts(ctx, models.Filter{}, false, recentAlerts); err != nil {
		return ov, fmt.Errorf("overview: %w", err)
	}
	return ov, nil
}

// Table renders the KPIs as metric/value rows.
func (o Overview) Table() Table {
	t := NewTable("overview", "metric", "value")
	var bmi any
	if o.AvgBMI != nil {
		bmi = *o.AvgBMI
	}
	t.Append("total_users", o.TotalUsers)
	t.Append("todays_activity_count", o.TodaysActivityCount)
	t.Append("avg_bmi", bmi)
	t.Append("unresolved_alerts", o.UnresolvedAlerts)
	return t
}

// DataStatus lists row counts for every table and collection.
type DataStatus struct {
	StructuredBackend string                     `json:"structured_backend" yaml:"structured_backend"`
	DocumentBackend   string                     `json:"document_backend" yaml:"document_backend"`
	Tables            []storage.TableCount       `json:"tables" yaml:"tables"`
	Collections       []docstore.CollectionCount `json:"collections" yaml:"collections"`
}

// DataStatus is never cached: it backs the post-import check.
func (s *Service) DataStatus(ctx context.Context) (DataStatus, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveQuery("data_status", time.Since(start)) }()

	ds := DataStatus{StructuredBackend: s.repo.Backend(), DocumentBackend: s.docs.Backend()}
	var err error
	if ds.Tables, err = s.repo.Counts(ctx); err != nil {
		return ds, err
	}
	if ds.Collections, err = s.docs.Counts(ctx); err != nil {
		return ds, err
	}
	return ds, nil
}

func (d DataStatus) Table() Table {
	t := NewTable("data_status", "store", "name", "count")
	for _, c := range d.Tables {
		t.Append(d.StructuredBackend, c.Name, c.Count)
	}
	for _, c := range d.Collections {
		t.Append(d.DocumentBackend, c.Name, c.Count)
	}
	return t
}

// FeedWindow is the set of live samples with From <= ts <= To, newest first.
type FeedWindow struct {
	From    time.Time               `json:"from" yaml:"from"`
	To      time.Time               `json:"to" yaml:"to"`
	Samples []models.RealTimeMetric `json:"samples" yaml:"samples"`
}

// RecentFeed returns live samples from the last lookback, at most limit of them.
func (s *Service) RecentFeed(ctx context.Context, lookback time.Duration, limit int) (FeedWindow, error) {
	if lookback <= 0 {
		lookback = time.Minute
	}
	key := fmt.Sprintf("%srecent|%s|%d", FeedPrefix, lookback, limit)
	return cached(ctx, s, "recent_feed", key, feedTTL, func(ctx context.Context) (FeedWindow, error) {
		now := s.now()
		w := FeedWindow{From: now.Add(-lookback), To: now}
		var err error
		w.Samples, err = s.docs.RecentRealTime(ctx, w.From, w.To, limit)
		return w, err
	})
}

func (w FeedWindow) Table() Table {
	t := NewTable("recent_feed", "ts", "user_id", "heart_rate_bpm", "steps", "calories", "active_minutes")
	for _, m := range w.Samples {
		t.Append(m.TS, m.UserID, m.HeartRateBPM, m.Steps, m.Calories, m.ActiveMinutes)
	}
	return t
}
