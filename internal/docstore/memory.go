// ABOUTME: In-process document store for demo mode and tests.
// ABOUTME: Mirrors the MongoDB semantics including the real-time TTL expiry.
package docstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/harperreed/vamos/internal/models"
)

// Memory keeps documents in maps keyed by document id.
type Memory struct {
	mu        sync.RWMutex
	now       func() time.Time
	closed    bool
	metrics   map[string]models.UserMetric
	nutrition map[string]models.NutritionLog
	sleep     map[string]models.SleepRecord
	realtime  map[string]models.RealTimeMetric
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		now:       time.Now,
		metrics:   make(map[string]models.UserMetric),
		nutrition: make(map[string]models.NutritionLog),
		sleep:     make(map[string]models.SleepRecord),
		realtime:  make(map[string]models.RealTimeMetric),
	}
}

// SetClock replaces the time source used for TTL expiry.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *Memory) Backend() string { return BackendMemory }

func (m *Memory) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return errClosed(BackendMemory)
	}
	return ctx.Err()
}

func (m *Memory) EnsureIndexes(ctx context.Context) error { return m.Ping(ctx) }

func upsertInto[T any](items map[string]T, docs []T, id func(*T) string, set func(*T, string)) UpsertResult {
	var res UpsertResult
	for i := range docs {
		d := docs[i]
		key := id(&d)
		set(&d, key)
		if _, ok := items[key]; ok {
			res.Matched++
		} else {
			res.Upserted++
		}
		items[key] = d
	}
	return res
}

func (m *Memory) UpsertUserMetrics(ctx context.Context, docs []models.UserMetric) (UpsertResult, error) {
	if err := m.Ping(ctx); err != nil {
		return UpsertResult{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return upsertInto(m.metrics, docs, UserMetricID, func(d *models.UserMetric, id string) { d.ID = id }), nil
}

func (m *Memory) UpsertNutritionLogs(ctx context.Context, docs []models.NutritionLog) (UpsertResult, error) {
	if err := m.Ping(ctx); err != nil {
		return UpsertResult{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return upsertInto(m.nutrition, docs, NutritionLogID, func(d *models.NutritionLog, id string) { d.LogID = id }), nil
}

func (m *Memory) UpsertSleepRecords(ctx context.Context, docs []models.SleepRecord) (UpsertResult, error) {
	if err := m.Ping(ctx); err != nil {
		return UpsertResult{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return upsertInto(m.sleep, docs, SleepRecordID, func(d *models.SleepRecord, id string) { d.RecordID = id }), nil
}

func (m *Memory) UpsertRealTimeMetrics(ctx context.Context, docs []models.RealTimeMetric) (UpsertResult, error) {
	if err := m.Ping(ctx); err != nil {
		return UpsertResult{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	res := upsertInto(m.realtime, docs, RealTimeID, func(d *models.RealTimeMetric, id string) { d.ID = id })
	m.expireLocked()
	return res, nil
}

func (m *Memory) InsertRealTime(ctx context.Context, docs []models.RealTimeMetric) error {
	if err := m.Ping(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range docs {
		d := docs[i]
		d.ID = RealTimeID(&d)
		m.realtime[d.ID] = d
	}
	m.expireLocked()
	return nil
}

// expireLocked drops live samples past retention, as the TTL index would.
func (m *Memory) expireLocked() {
	cutoff := m.now().Add(-models.RealTimeRetention)
	for id, d := range m.realtime {
		if d.TS.Before(cutoff) {
			delete(m.realtime, id)
		}
	}
}

func (m *Memory) LatestBodyMetrics(ctx context.Context, f models.Filter) ([]BodySample, error) {
	if err := m.Ping(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	heights := make(map[string]latestValue)
	weights := make(map[string]latestValue)
	for _, d := range m.metrics {
		if !f.MatchesUser(d.UserID) || !f.Contains(d.TS) {
			continue
		}
		if d.HeightCm != nil {
			if cur, ok := heights[d.UserID]; !ok || d.TS.After(cur.ts) {
				heights[d.UserID] = latestValue{*d.HeightCm, d.TS}
			}
		}
		if d.WeightKg != nil {
			if cur, ok := weights[d.UserID]; !ok || d.TS.After(cur.ts) {
				weights[d.UserID] = latestValue{*d.WeightKg, d.TS}
			}
		}
	}
	return mergeLatest(heights, weights), nil
}

func (m *Memory) WeightSamples(ctx context.Context, f models.Filter) ([]WeightPoint, error) {
	if err := m.Ping(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []WeightPoint{}
	for _, d := range m.metrics {
		if d.WeightKg == nil || !f.MatchesUser(d.UserID) || !f.Contains(d.TS) {
			continue
		}
		out = append(out, WeightPoint{UserID: d.UserID, TS: d.TS, WeightKg: *d.WeightKg})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TS.Before(out[j].TS) })
	return out, nil
}

func (m *Memory) HeartRateSamples(ctx context.Context, f models.Filter) ([]HeartRatePoint, error) {
	if err := m.Ping(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []HeartRatePoint{}
	for _, d := range m.metrics {
		if d.HeartRateBPM == nil || !f.MatchesUser(d.UserID) || !f.Contains(d.TS) {
			continue
		}
		out = append(out, HeartRatePoint{UserID: d.UserID, TS: d.TS, BPM: *d.HeartRateBPM})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TS.Before(out[j].TS) })
	return out, nil
}

func (m *Memory) RecentRealTime(ctx context.Context, from, to time.Time, limit int) ([]models.RealTimeMetric, error) {
	if err := m.Ping(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expireLocked()

	out := []models.RealTimeMetric{}
	for _, d := range m.realtime {
		if d.TS.Before(from) || d.TS.After(to) {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TS.Equal(out[j].TS) {
			return out[i].UserID < out[j].UserID
		}
		return out[i].TS.After(out[j].TS)
	})
	if limit = clampLimit(limit, DefaultRecentLimit, MaxRecentLimit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) NutritionSummary(ctx context.Context, f models.Filter) (NutritionSummary, error) {
	var s NutritionSummary
	if err := m.Ping(ctx); err != nil {
		return s, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	days := make(map[string]struct{})
	for _, d := range m.nutrition {
		if !f.MatchesUser(d.UserID) || !f.Contains(d.Timestamp) {
			continue
		}
		s.Logs++
		s.TotalCalories += d.Calories
		s.ProteinG += d.ProteinG
		s.CarbsG += d.CarbsG
		s.FatG += d.FatG
		days[d.Timestamp.UTC().Format("2006-01-02")] = struct{}{}
	}
	s.Days = len(days)
	if s.Days > 0 {
		s.AvgDailyKcal = s.TotalCalories / float64(s.Days)
	}
	return s, nil
}

func (m *Memory) SleepSummary(ctx context.Context, f models.Filter) (SleepSummary, error) {
	var s SleepSummary
	if err := m.Ping(ctx); err != nil {
		return s, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var hours, quality float64
	for _, d := range m.sleep {
		if !f.MatchesUser(d.UserID) || !f.Contains(d.Date) {
			continue
		}
		s.Nights++
		hours += d.SleepDurationHours
		quality += float64(d.SleepQualityScore)
		if d.Date.After(s.LastNight) {
			s.LastNight = d.Date
		}
	}
	if s.Nights > 0 {
		s.AvgHours = hours / float64(s.Nights)
		s.AvgQualityScore = quality / float64(s.Nights)
	}
	return s, nil
}

func (m *Memory) Counts(ctx context.Context) ([]CollectionCount, error) {
	if err := m.Ping(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expireLocked()
	return []CollectionCount{
		{Name: models.CollUserMetrics, Count: int64(len(m.metrics))},
		{Name: models.CollNutritionLogs, Count: int64(len(m.nutrition))},
		{Name: models.CollSleepRecords, Count: int64(len(m.sleep))},
		{Name: models.CollRealTimeMetrics, Count: int64(len(m.realtime))},
	}, nil
}

func (m *Memory) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

var _ Store = (*Memory)(nil)
